package etl

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momacs/localedb/internal/core"
	"github.com/momacs/localedb/internal/transform"
)

func ohioResolver() *fakeResolver {
	return &fakeResolver{
		names: map[string]int64{
			transform.NameKey("US", nil, nil):                           840,
			transform.NameKey("US", strPtr("Ohio"), nil):                84000039,
			transform.NameKey("US", strPtr("Ohio"), strPtr("Franklin")): 84039049,
			transform.NameKey("Canada", strPtr("Ontario"), nil):         12407,
		},
		fips: map[string]int64{"840": 840, "39": 84000039, "39049": 84039049},
		partials: map[string][]int64{
			"Ohio|":            {84000039},
			"Ohio|Franklin":    {84039049},
			"Virginia|Fairfax": {84051059, 84051600},
		},
	}
}

func TestResolveSeries(t *testing.T) {
	p := &transform.DynPass{
		Column: transform.ColConfirmed,
		Days:   []time.Time{time.Date(2020, 1, 22, 0, 0, 0, 0, time.UTC)},
		Series: []transform.DynSeries{
			{Ordinal: 1, Key: core.LocaleKey{Admin0: "US", Admin1: strPtr("Ohio")}},
			{Ordinal: 2, Key: core.LocaleKey{Admin0: "Canada", Admin1: strPtr("Ontario")}},
		},
	}
	ids, err := resolveSeries(context.Background(), ohioResolver(), p)
	require.NoError(t, err)
	assert.Equal(t, []int64{84000039, 12407}, ids)
}

func TestResolveSeries_NotFoundKeepsType(t *testing.T) {
	p := &transform.DynPass{Series: []transform.DynSeries{
		{Ordinal: 7, Key: core.LocaleKey{Admin0: "US", Admin1: strPtr("Ohio"), Admin2: strPtr("Nowhere")}},
	}}
	_, err := resolveSeries(context.Background(), ohioResolver(), p)

	var nf *core.LocaleNotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "Nowhere", *nf.Key.Admin2)
	assert.Contains(t, err.Error(), "disease row 7")
}

func TestResolveNPI(t *testing.T) {
	r := ohioResolver()
	ctx := context.Background()

	id, err := resolveNPI(ctx, r, transform.NPIRow{Ordinal: 1, State: strPtr("Ohio")})
	require.NoError(t, err)
	assert.Equal(t, int64(84000039), id)

	id, err = resolveNPI(ctx, r, transform.NPIRow{Ordinal: 2, State: strPtr("Ohio"), County: strPtr("Franklin")})
	require.NoError(t, err)
	assert.Equal(t, int64(84039049), id)

	id, err = resolveNPI(ctx, r, transform.NPIRow{Ordinal: 3})
	require.NoError(t, err)
	assert.Equal(t, int64(840), id)
}

func TestResolveNPI_AmbiguityIsETLError(t *testing.T) {
	tests := []struct {
		name   string
		row    transform.NPIRow
		reason string
	}{
		{
			name:   "several candidates",
			row:    transform.NPIRow{Ordinal: 12, FIPS: "51059", State: strPtr("Virginia"), County: strPtr("Fairfax")},
			reason: "expected exactly one locale, found 2",
		},
		{
			name:   "no candidate",
			row:    transform.NPIRow{Ordinal: 13, FIPS: "39999", State: strPtr("Ohio"), County: strPtr("Atlantis")},
			reason: "expected exactly one locale, found 0",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := resolveNPI(context.Background(), ohioResolver(), tt.row)

			var ee *core.ETLError
			require.ErrorAs(t, err, &ee)
			assert.Equal(t, core.DatasetNPI, ee.Dataset)
			assert.Equal(t, tt.row.Ordinal, ee.Ordinal)
			assert.Equal(t, tt.reason, ee.Reason)
			assert.Equal(t, tt.row.FIPS, ee.Fields["fips"])
			assert.Equal(t, *tt.row.County, ee.Fields["county"])
			assert.True(t, core.IsResolutionFailure(err))
		})
	}
}

func TestResolveFIPS(t *testing.T) {
	r := ohioResolver()
	id, err := resolveFIPS(context.Background(), r, core.DatasetVaccine, 1, "840")
	require.NoError(t, err)
	assert.Equal(t, int64(840), id)

	_, err = resolveFIPS(context.Background(), r, core.DatasetWeather, 44, "99001")
	var nf *core.LocaleNotFoundError
	require.ErrorAs(t, err, &nf)
	assert.True(t, strings.HasPrefix(err.Error(), "weather row 44: "))
}

func TestPopLocales(t *testing.T) {
	st, co, err := popLocales(context.Background(), ohioResolver(), transform.PopRow{File: "households.txt", Line: 2, GeoKey: "390490001001"})
	require.NoError(t, err)
	assert.Equal(t, int64(84000039), st)
	assert.Equal(t, int64(84039049), co)

	_, _, err = popLocales(context.Background(), ohioResolver(), transform.PopRow{File: "households.txt", Line: 3, GeoKey: "390010001001"})
	assert.ErrorContains(t, err, "households.txt line 3")
}
