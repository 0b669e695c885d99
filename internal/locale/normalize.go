package locale

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// countySuffixes are dropped from the end of a county name before comparing.
// "city" is kept: Virginia has both "Richmond" and "Richmond City".
var countySuffixes = []string{
	" city and borough",
	" census area",
	" municipality",
	" borough",
	" parish",
	" county",
}

// NormalizeName folds a place name for partial matching: diacritics removed,
// lower case, periods and apostrophes dropped, whitespace collapsed and a
// trailing administrative suffix stripped.
func NormalizeName(s string) string {
	s = foldDiacritics(s)
	s = strings.ToLower(s)
	s = strings.NewReplacer(".", "", "'", "", "’", "", "-", " ").Replace(s)
	s = strings.Join(strings.Fields(s), " ")
	for _, suf := range countySuffixes {
		if strings.HasSuffix(s, suf) && len(s) > len(suf) {
			s = strings.TrimSuffix(s, suf)
			break
		}
	}
	return s
}

func foldDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
