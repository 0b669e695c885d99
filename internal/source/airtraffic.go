package source

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

// T100Record is one row of a BTS T-100 market file, domestic or
// international. Domestic files have no country columns.
type T100Record struct {
	Ordinal           int    `csv:"-"`
	Passengers        string `csv:"PASSENGERS"`
	Distance          string `csv:"DISTANCE"`
	Origin            string `csv:"ORIGIN"`
	OriginCityName    string `csv:"ORIGIN_CITY_NAME"`
	OriginStateAbr    string `csv:"ORIGIN_STATE_ABR"`
	OriginCountry     string `csv:"ORIGIN_COUNTRY"`
	OriginCountryName string `csv:"ORIGIN_COUNTRY_NAME"`
	Dest              string `csv:"DEST"`
	DestCityName      string `csv:"DEST_CITY_NAME"`
	DestStateAbr      string `csv:"DEST_STATE_ABR"`
	DestCountry       string `csv:"DEST_COUNTRY"`
	DestCountryName   string `csv:"DEST_COUNTRY_NAME"`
	Month             string `csv:"MONTH"`
}

// ReadT100 parses a T-100 market CSV. data may also be the ZIP archive BTS
// serves; the first .csv entry is read.
func ReadT100(data []byte) ([]T100Record, error) {
	r, err := unzipCSV(data)
	if err != nil {
		return nil, err
	}
	return decodeAll(r, nil, func(rec *T100Record, n int) { rec.Ordinal = n })
}

func unzipCSV(data []byte) (io.Reader, error) {
	if !bytes.HasPrefix(data, []byte("PK\x03\x04")) {
		return bytes.NewReader(data), nil
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open zip: %w", err)
	}
	for _, f := range zr.File {
		if !strings.EqualFold(path.Ext(f.Name), ".csv") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", f.Name, err)
		}
		defer rc.Close()
		b, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f.Name, err)
		}
		return bytes.NewReader(b), nil
	}
	return nil, errors.New("zip has no .csv entry")
}

// AirLookups are the enrichment tables for air traffic rows.
type AirLookups struct {
	StateNames    map[string]string            // state abbreviation -> state name
	AirportCounty map[string]string            // airport code -> county name, upper case
	CountyFIPS    map[string]map[string]string // state abbreviation -> county name -> 5-digit FIPS
	CityAdmin1    map[string]map[string]string // country name -> city -> admin1
}

// ReadStateNames parses abv_to_state.txt (tab-delimited Code, Description).
func ReadStateNames(r io.Reader) (map[string]string, error) {
	return readPairs(r, '\t', "Code", "Description")
}

// ReadAirportCounties parses airportFD.txt (tab-delimited FAA airport facility
// data) into airport code -> county.
func ReadAirportCounties(r io.Reader) (map[string]string, error) {
	return readPairs(r, '\t', "LocationID", "County")
}

// ReadCountyFIPS parses county_to_fips.csv.
func ReadCountyFIPS(r io.Reader) (map[string]map[string]string, error) {
	return readNested(r, "State", "County Name", "FIPS County Code")
}

// ReadWorldCities parses worldcities.csv into country -> city -> admin1.
func ReadWorldCities(r io.Reader) (map[string]map[string]string, error) {
	return readNested(r, "country", "city_ascii", "admin_name")
}

func readPairs(r io.Reader, comma rune, keyCol, valCol string) (map[string]string, error) {
	cr := newCSVReader(r, comma)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	idx := columnIndex(header)
	k, ok1 := idx[keyCol]
	v, ok2 := idx[valCol]
	if !ok1 || !ok2 {
		return nil, fmt.Errorf("header lacks %q or %q", keyCol, valCol)
	}
	out := make(map[string]string)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		if key := field(rec, k); key != "" {
			out[key] = field(rec, v)
		}
	}
}

// readNested builds outer -> inner -> value. Later rows overwrite earlier ones.
func readNested(r io.Reader, outerCol, innerCol, valCol string) (map[string]map[string]string, error) {
	cr := newCSVReader(r, ',')
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	idx := columnIndex(header)
	o, ok1 := idx[outerCol]
	i, ok2 := idx[innerCol]
	v, ok3 := idx[valCol]
	if !ok1 || !ok2 || !ok3 {
		return nil, fmt.Errorf("header lacks one of %q, %q, %q", outerCol, innerCol, valCol)
	}
	out := make(map[string]map[string]string)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		outer := field(rec, o)
		if out[outer] == nil {
			out[outer] = make(map[string]string)
		}
		out[outer][field(rec, i)] = field(rec, v)
	}
}
