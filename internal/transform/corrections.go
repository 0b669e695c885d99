package transform

// Correction replaces one known-bad raw value. It matches only when both the
// FIPS code and the raw value are identical, so a fix never spreads to other
// records.
type Correction struct {
	FIPS  string
	Field string
	From  string
	To    string
}

// Corrections is an ordered list of single-record fixes.
type Corrections []Correction

// Apply returns the corrected value of field for the record with fips,
// or value unchanged.
func (cs Corrections) Apply(fips, field, value string) string {
	for _, c := range cs {
		if c.FIPS == fips && c.Field == field && c.From == value {
			return c.To
		}
	}
	return value
}

// CountyNameCorrections aligns county spellings in the JHU and Keystone
// exports with the locale reference.
var CountyNameCorrections = Corrections{
	{FIPS: "35013", Field: "county", From: "Doña Ana", To: "Dona Ana"},
	{FIPS: "35013", Field: "county", From: "Do?a Ana", To: "Dona Ana"},
	{FIPS: "22059", Field: "county", From: "La Salle", To: "LaSalle"},
	{FIPS: "46102", Field: "county", From: "Shannon", To: "Oglala Lakota"},
	{FIPS: "02158", Field: "county", From: "Wade Hampton", To: "Kusilvak"},
	{FIPS: "24510", Field: "county", From: "Baltimore", To: "Baltimore City"},
	{FIPS: "29510", Field: "county", From: "St. Louis", To: "St. Louis City"},
	{FIPS: "51760", Field: "county", From: "Richmond", To: "Richmond City"},
}
