package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncoder(t *testing.T) {
	enc := NewEncoder()
	for _, l := range []string{"stay at home", "school closure", "", "stay at home", "gathering size 10"} {
		enc.Add(l)
	}
	codes := enc.Build(1)

	assert.Equal(t, 3, codes.Len())
	assert.Equal(t, [][]any{
		{int32(1), "gathering size 10"},
		{int32(2), "school closure"},
		{int32(3), "stay at home"},
	}, codes.Rows())

	id, ok := codes.ID("school closure")
	require.True(t, ok)
	assert.Equal(t, int32(2), id)

	_, ok = codes.ID("")
	assert.False(t, ok)
}

func TestEncoder_BuildIsSnapshot(t *testing.T) {
	enc := NewEncoder()
	enc.Add("b")
	codes := enc.Build(0)
	enc.Add("a")

	id, ok := codes.ID("b")
	require.True(t, ok)
	assert.Equal(t, int32(0), id)
	_, ok = codes.ID("a")
	assert.False(t, ok, "labels added after Build must not leak into it")
}

func TestCorrections(t *testing.T) {
	assert.Equal(t, "Dona Ana", CountyNameCorrections.Apply("35013", "county", "Doña Ana"))
	assert.Equal(t, "LaSalle", CountyNameCorrections.Apply("22059", "county", "La Salle"))
	// Same value under another FIPS is left alone.
	assert.Equal(t, "La Salle", CountyNameCorrections.Apply("17099", "county", "La Salle"))
	assert.Equal(t, "Franklin", CountyNameCorrections.Apply("39049", "county", "Franklin"))
}

func TestDedupe(t *testing.T) {
	type rec struct {
		k string
		n int
	}
	in := []rec{{"a", 1}, {"b", 2}, {"a", 3}, {"c", 4}, {"b", 5}}
	out, removed := Dedupe(in, func(r rec) string { return r.k })

	assert.Equal(t, 2, removed)
	assert.Equal(t, []rec{{"a", 1}, {"b", 2}, {"c", 4}}, out)
	assert.Len(t, in, 5, "input is not modified")
}

func TestRequire(t *testing.T) {
	out, dropped := Require([]string{"x", "", "y", ""}, func(s string) bool { return s != "" })
	assert.Equal(t, []string{"x", "y"}, out)
	assert.Equal(t, 2, dropped)
}

func TestKey(t *testing.T) {
	assert.NotEqual(t, Key("ab", "c"), Key("a", "bc"))
	assert.Equal(t, Key("a", "b"), Key("a", "b"))
}

func TestNameKey_NullAware(t *testing.T) {
	empty := ""
	assert.NotEqual(t, NameKey("US", nil, nil), NameKey("US", &empty, nil))
}

func TestNormalizeFIPS(t *testing.T) {
	tests := []struct {
		raw   string
		width int
		want  string
	}{
		{"39049.0", CountyFIPSLen, "39049"},
		{"1001", CountyFIPSLen, "01001"},
		{"6.0", StateFIPSLen, "06"},
		{"39", StateFIPSLen, "39"},
		{"", CountyFIPSLen, ""},
		{"840", 0, "840"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := NormalizeFIPS(tt.raw, tt.width)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := NormalizeFIPS("N/A", CountyFIPSLen)
	assert.Error(t, err)
}

func TestFIPSLevel(t *testing.T) {
	tests := []struct {
		code  string
		fips  string
		level Level
	}{
		{"00000", "840", LevelCountry},
		{"01000", "01", LevelState},
		{"1000", "01", LevelState},
		{"01001", "01001", LevelCounty},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			fips, level := FIPSLevel(tt.code)
			assert.Equal(t, tt.fips, fips)
			assert.Equal(t, tt.level, level)
		})
	}
}

func TestCountyFIPS(t *testing.T) {
	assert.Equal(t, "01001", CountyFIPS("1", "1"))
	assert.Equal(t, "39049", CountyFIPS("39", "049"))
}

func TestLookupState(t *testing.T) {
	for _, in := range []string{"Ohio", "ohio", "OH", "39"} {
		s, ok := LookupState(in)
		require.True(t, ok, in)
		assert.Equal(t, "39", s.FIPS)
	}
	_, ok := LookupState("Region 1")
	assert.False(t, ok)
}

func TestNOAAStateFIPS(t *testing.T) {
	f, ok := NOAAStateFIPS("50")
	require.True(t, ok)
	assert.Equal(t, "02", f, "Alaska")

	f, ok = NOAAStateFIPS("33")
	require.True(t, ok)
	assert.Equal(t, "39", f, "Ohio")

	_, ok = NOAAStateFIPS("49")
	assert.False(t, ok, "Hawaii has no climate division data")
}

func TestTitleCounty(t *testing.T) {
	assert.Equal(t, "Miami-Dade", TitleCounty("MIAMI-DADE"))
	assert.Equal(t, "Los Angeles", TitleCounty("LOS ANGELES"))
	assert.Equal(t, "Cook", TitleCounty(" COOK "))
}
