package transform

import "strings"

// State is one US state or territory.
type State struct {
	FIPS string
	Abbr string
	Name string
}

// States lists the states, DC and the populated territories.
var States = []State{
	{"01", "AL", "Alabama"}, {"02", "AK", "Alaska"}, {"04", "AZ", "Arizona"},
	{"05", "AR", "Arkansas"}, {"06", "CA", "California"}, {"08", "CO", "Colorado"},
	{"09", "CT", "Connecticut"}, {"10", "DE", "Delaware"}, {"11", "DC", "District of Columbia"},
	{"12", "FL", "Florida"}, {"13", "GA", "Georgia"}, {"15", "HI", "Hawaii"},
	{"16", "ID", "Idaho"}, {"17", "IL", "Illinois"}, {"18", "IN", "Indiana"},
	{"19", "IA", "Iowa"}, {"20", "KS", "Kansas"}, {"21", "KY", "Kentucky"},
	{"22", "LA", "Louisiana"}, {"23", "ME", "Maine"}, {"24", "MD", "Maryland"},
	{"25", "MA", "Massachusetts"}, {"26", "MI", "Michigan"}, {"27", "MN", "Minnesota"},
	{"28", "MS", "Mississippi"}, {"29", "MO", "Missouri"}, {"30", "MT", "Montana"},
	{"31", "NE", "Nebraska"}, {"32", "NV", "Nevada"}, {"33", "NH", "New Hampshire"},
	{"34", "NJ", "New Jersey"}, {"35", "NM", "New Mexico"}, {"36", "NY", "New York"},
	{"37", "NC", "North Carolina"}, {"38", "ND", "North Dakota"}, {"39", "OH", "Ohio"},
	{"40", "OK", "Oklahoma"}, {"41", "OR", "Oregon"}, {"42", "PA", "Pennsylvania"},
	{"44", "RI", "Rhode Island"}, {"45", "SC", "South Carolina"}, {"46", "SD", "South Dakota"},
	{"47", "TN", "Tennessee"}, {"48", "TX", "Texas"}, {"49", "UT", "Utah"},
	{"50", "VT", "Vermont"}, {"51", "VA", "Virginia"}, {"53", "WA", "Washington"},
	{"54", "WV", "West Virginia"}, {"55", "WI", "Wisconsin"}, {"56", "WY", "Wyoming"},
	{"60", "AS", "American Samoa"}, {"66", "GU", "Guam"}, {"69", "MP", "Northern Mariana Islands"},
	{"72", "PR", "Puerto Rico"}, {"78", "VI", "Virgin Islands"},
}

var stateIndex = func() map[string]State {
	m := make(map[string]State, 3*len(States))
	for _, s := range States {
		m[strings.ToLower(s.Name)] = s
		m[strings.ToLower(s.Abbr)] = s
		m[s.FIPS] = s
	}
	return m
}()

// LookupState finds a state by name, postal abbreviation or FIPS code,
// ignoring case.
func LookupState(s string) (State, bool) {
	st, ok := stateIndex[strings.ToLower(strings.TrimSpace(s))]
	return st, ok
}

// noaaStates maps the NOAA climate division state numbering (alphabetical,
// contiguous states first) to FIPS.
var noaaStates = map[string]string{
	"01": "01", "02": "04", "03": "05", "04": "06", "05": "08",
	"06": "09", "07": "10", "08": "12", "09": "13", "10": "16",
	"11": "17", "12": "18", "13": "19", "14": "20", "15": "21",
	"16": "22", "17": "23", "18": "24", "19": "25", "20": "26",
	"21": "27", "22": "28", "23": "29", "24": "30", "25": "31",
	"26": "32", "27": "33", "28": "34", "29": "35", "30": "36",
	"31": "37", "32": "38", "33": "39", "34": "40", "35": "41",
	"36": "42", "37": "44", "38": "45", "39": "46", "40": "47",
	"41": "48", "42": "49", "43": "50", "44": "51", "45": "53",
	"46": "54", "47": "55", "48": "56", "50": "02",
}

// NOAAStateFIPS converts a NOAA state code to its FIPS code.
func NOAAStateFIPS(code string) (string, bool) {
	f, ok := noaaStates[code]
	return f, ok
}
