package source

import "io"

// MobilityRecord is one row of the Google Community Mobility Report.
type MobilityRecord struct {
	Ordinal     int    `csv:"-"`
	CountryCode string `csv:"country_region_code"`
	Country     string `csv:"country_region"`
	SubRegion1  string `csv:"sub_region_1"`
	SubRegion2  string `csv:"sub_region_2"`
	MetroArea   string `csv:"metro_area"`
	ISO3166     string `csv:"iso_3166_2_code"`
	CensusFIPS  string `csv:"census_fips_code"`
	Date        string `csv:"date"`
	Retail      string `csv:"retail_and_recreation_percent_change_from_baseline"`
	Grocery     string `csv:"grocery_and_pharmacy_percent_change_from_baseline"`
	Parks       string `csv:"parks_percent_change_from_baseline"`
	Transit     string `csv:"transit_stations_percent_change_from_baseline"`
	Workplaces  string `csv:"workplaces_percent_change_from_baseline"`
	Residential string `csv:"residential_percent_change_from_baseline"`
}

// ReadMobility parses the global mobility report keeping only US rows. The
// file is several hundred megabytes, so filtering happens while decoding.
func ReadMobility(r io.Reader) ([]MobilityRecord, error) {
	return decodeAll(r,
		func(rec *MobilityRecord) bool { return rec.CountryCode == "US" },
		func(rec *MobilityRecord, n int) { rec.Ordinal = n })
}
