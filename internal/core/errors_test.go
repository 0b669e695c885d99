package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestLocaleKeyString(t *testing.T) {
	tests := []struct {
		name string
		key  LocaleKey
		want string
	}{
		{"country only", LocaleKey{Admin0: "US"}, `admin0="US" admin1=NULL admin2=NULL`},
		{"state", LocaleKey{Admin0: "US", Admin1: strPtr("Ohio")}, `admin0="US" admin1="Ohio" admin2=NULL`},
		{"fips only", LocaleKey{FIPS: "39049"}, "fips=39049"},
		{"names and fips", LocaleKey{Admin0: "US", Admin1: strPtr("Ohio"), FIPS: "39"}, `admin0="US" admin1="Ohio" admin2=NULL fips=39`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.key.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestETLErrorMessage(t *testing.T) {
	err := &ETLError{
		Dataset: DatasetNPI,
		Ordinal: 12,
		Fields:  map[string]string{"state": "Ohio", "county": "Franklin", "fips": "39049"},
		Reason:  "expected exactly one locale, found 0",
	}
	want := `etl error in npi row 12: expected exactly one locale, found 0 [county="Franklin" fips="39049" state="Ohio"]`
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestIsResolutionFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"not found", fmt.Errorf("row 3: %w", &LocaleNotFoundError{}), true},
		{"integrity", &LocaleIntegrityError{Matches: 2}, true},
		{"etl", &ETLError{}, true},
		{"fetch", &FetchError{}, false},
		{"plain", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsResolutionFailure(tt.err); got != tt.want {
				t.Errorf("IsResolutionFailure() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLoadStateTerminal(t *testing.T) {
	for _, s := range []LoadState{StatePending, StateExtracting, StateTransforming, StateResolving, StateLoading, StateVacuuming} {
		if s.Terminal() {
			t.Errorf("%s.Terminal() = true, want false", s)
		}
	}
	if !StateDone.Terminal() || !StateFailed.Terminal() {
		t.Error("done and failed must be terminal")
	}
}
