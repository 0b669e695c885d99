package etl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momacs/localedb/internal/transform"
)

func TestCheckSharedTypes(t *testing.T) {
	enc := transform.NewEncoder()
	for _, name := range []string{"stay at home", "school closure", "mask mandate"} {
		enc.Add(name)
	}
	codes := enc.Build(1)

	tests := []struct {
		name    string
		shared  []npiType
		wantErr string
	}{
		{"nothing shared", nil, ""},
		{"same ids", []npiType{{1, "mask mandate"}, {3, "stay at home"}}, ""},
		{"renumbered", []npiType{{1, "school closure"}}, `npi type 1 "school closure"`},
		{"gone from file", []npiType{{4, "curfew"}}, `npi type 4 "curfew"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkSharedTypes(tt.shared, codes)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
