package load

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistry(t *testing.T) {
	r, err := DefaultRegistry("")
	require.NoError(t, err)

	for _, table := range []string{
		"main.locale", "dis.disease", "dis.dyn", "npi.type", "npi.npi",
		"pop.school", "pop.hospital", "pop.household", "pop.gq", "pop.workplace", "pop.person", "pop.gq_person",
		"vax.vax", "health.measure", "health.health", "weather.weather", "mobility.mobility", "mobility.airtraffic",
	} {
		_, ok := r.Get(table)
		assert.True(t, ok, table)
	}
	assert.Equal(t, 18, r.Len())
	assert.Equal(t, []string{"dis", "health", "main", "mobility", "npi", "pop", "vax", "weather"}, r.Schemas())
	assert.Len(t, r.BySchema("pop"), 7)

	locale := r.MustGet("main.locale")
	assert.Equal(t, PolicyReplace, locale.Policy)
	assert.Equal(t, VacuumFull, locale.Vacuum)

	dyn := r.MustGet("dis.dyn")
	assert.Equal(t, "disease_id", dyn.Scope)
	assert.True(t, dyn.IsOptional("n_dead"))
	assert.False(t, dyn.IsOptional("day_i"))

	assert.Equal(t, "disease_id", r.MustGet("npi.npi").Scope)
	assert.Empty(t, r.MustGet("npi.type").Scope)

	school := r.MustGet("pop.school")
	require.NotNil(t, school.Geometry)
	assert.Equal(t, 4269, school.Geometry.To)
	assert.True(t, school.PerRow)

	assert.False(t, r.MustGet("vax.vax").PerRow)
}

func TestRegistry_MustGetPanics(t *testing.T) {
	assert.Panics(t, func() { NewRegistry().MustGet("nope.nope") })
}

func TestRegistry_RegisterDuplicate(t *testing.T) {
	r := NewRegistry()
	d := Descriptor{Table: "a.b", Columns: []string{"x"}, Policy: PolicyReplace}
	require.NoError(t, r.Register(d))
	assert.Error(t, r.Register(d))
}

func TestDefaultRegistry_Override(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tables.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
tables:
  - table: vax.vax
    columns: [locale_id, vaccine, season, month, dim_type, dim, coverage, ci_low, ci_high, sample_size]
    key: [locale_id, vaccine, season, month, dim_type, dim]
    policy: insert_if_absent
    vacuum: none
`), 0o644))

	r, err := DefaultRegistry(path)
	require.NoError(t, err)
	assert.Equal(t, VacuumNone, r.MustGet("vax.vax").Vacuum)
	assert.Equal(t, 18, r.Len())
}

func TestParseDescriptors_Strict(t *testing.T) {
	_, err := ParseDescriptors([]byte(`
tables:
  - table: a.b
    columns: [x]
    policy: replace
    polcy: merge
`))
	assert.Error(t, err)
}

func TestDescriptorValidate(t *testing.T) {
	base := func() Descriptor {
		return Descriptor{
			Table:   "pop.school",
			Columns: []string{"st_fips", "id", "lat", "long"},
			Key:     []string{"st_fips", "id"},
			Scope:   "st_fips",
			Policy:  PolicyInsertIfAbsent,
			Geometry: &Geometry{
				Column: "coords", Lat: "lat", Long: "long", From: 4326, To: 4269,
			},
		}
	}
	require.NoError(t, base().Validate())

	tests := []struct {
		name   string
		mutate func(*Descriptor)
	}{
		{"unqualified table", func(d *Descriptor) { d.Table = "school" }},
		{"no columns", func(d *Descriptor) { d.Columns = nil }},
		{"quoted column", func(d *Descriptor) { d.Columns = append(d.Columns, `x"; drop`) }},
		{"key not a column", func(d *Descriptor) { d.Key = []string{"nope"} }},
		{"scope not a column", func(d *Descriptor) { d.Scope = "nope" }},
		{"unknown policy", func(d *Descriptor) { d.Policy = "upsert" }},
		{"merge without key", func(d *Descriptor) { d.Policy = PolicyMerge; d.Key = nil; d.Geometry = nil }},
		{"per row on replace", func(d *Descriptor) { d.Policy = PolicyReplace; d.PerRow = true; d.Geometry = nil }},
		{"geometry on replace", func(d *Descriptor) { d.Policy = PolicyReplace }},
		{"geometry column listed", func(d *Descriptor) { d.Geometry.Column = "lat" }},
		{"geometry without srid", func(d *Descriptor) { d.Geometry.From = 0 }},
		{"unknown vacuum", func(d *Descriptor) { d.Vacuum = "sometimes" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := base()
			tt.mutate(&d)
			assert.Error(t, d.Validate())
		})
	}
}
