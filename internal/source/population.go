package source

import (
	"bufio"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// PopNA is the missing value marker of the synthetic population extracts.
const PopNA = "X"

// PopFile describes one per-county extract of the synthetic population.
type PopFile struct {
	Name    string         // file name searched for under the state directory
	Table   string         // target table in the pop schema
	Columns []string       // column names in file order
	Pattern *regexp.Regexp // a data line must match to be loaded
}

// PopFiles lists the extracts in load order: places before the people
// referencing them.
var PopFiles = []PopFile{
	{"schools.txt", "school", []string{"id", "stco", "lat", "long"},
		regexp.MustCompile(`^\d+\t\d+\t-?[0-9]+\.[0-9]+\t-?[0-9]+\.[0-9]+$`)},
	{"hospitals.txt", "hospital", []string{"id", "worker_cnt", "physician_cnt", "bed_cnt", "lat", "long"},
		regexp.MustCompile(`^\d+\t\d+\t\d+\t\d+\t-?[0-9]+\.[0-9]+\t-?[0-9]+\.[0-9]+$`)},
	{"households.txt", "household", []string{"id", "stcotrbg", "race_id", "income", "lat", "long"},
		regexp.MustCompile(`^\d+\t\d+\t\d+\t-?\d+\t-?[0-9]+\.[0-9]+\t-?[0-9]+\.[0-9]+$`)},
	{"gq.txt", "gq", []string{"id", "type", "stcotrbg", "person_cnt", "lat", "long"},
		regexp.MustCompile(`^\d+\t\w+\t\d+\t\d+\t-?[0-9]+\.[0-9]+\t-?[0-9]+\.[0-9]+$`)},
	{"workplaces.txt", "workplace", []string{"id", "lat", "long"},
		regexp.MustCompile(`^\d+\t-?[0-9]+\.[0-9]+\t-?[0-9]+\.[0-9]+$`)},
	{"people.txt", "person", []string{"id", "household_id", "age", "sex", "race_id", "relate_id", "school_id", "workplace_id"},
		regexp.MustCompile(`^\d+\t\d+\t\d+\t[FM]\t\d+\t\d+\t(?:\d+|X)\t(?:\d+|X)$`)},
	{"gq_people.txt", "gq_person", []string{"id", "gq_id", "age", "sex"},
		regexp.MustCompile(`^\d+\t\d+\t\d+\t[FM]$`)},
}

// PopRow is one parsed extract line. Values line up with PopFile.Columns;
// PopNA becomes nil.
type PopRow struct {
	File   string
	Line   int
	Values []any
}

// PopBatch is the content of every file of one kind under a state directory.
type PopBatch struct {
	File    PopFile
	Paths   []string
	Rows    []PopRow
	Dropped int // non-matching data lines
}

// FindPopFiles returns every non-empty file called name under root, sorted.
func FindPopFiles(root, name string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || d.Name() != name {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.Size() > 0 {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	sort.Strings(paths)
	return paths, nil
}

// ReadPopBatch reads every file of kind f under root.
func ReadPopBatch(root string, f PopFile) (*PopBatch, error) {
	paths, err := FindPopFiles(root, f.Name)
	if err != nil {
		return nil, err
	}
	b := &PopBatch{File: f, Paths: paths}
	for _, p := range paths {
		fh, err := os.Open(p)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", p, err)
		}
		rows, dropped, err := ReadPopFile(fh, p, f)
		fh.Close()
		if err != nil {
			return nil, err
		}
		b.Rows = append(b.Rows, rows...)
		b.Dropped += dropped
	}
	return b, nil
}

// ReadPopFile parses one tab-delimited extract. The header line is skipped;
// lines not matching f.Pattern are counted and dropped. The extracts are known
// to contain shifted records and non-numeric coordinates.
func ReadPopFile(r io.Reader, name string, f PopFile) ([]PopRow, int, error) {
	sc := bufio.NewScanner(Clean(r))
	sc.Buffer(make([]byte, 64*1024), 1024*1024)

	var rows []PopRow
	dropped := 0
	for line := 0; sc.Scan(); line++ {
		if line == 0 {
			continue
		}
		text := strings.TrimRight(sc.Text(), "\r")
		if !f.Pattern.MatchString(text) {
			dropped++
			continue
		}
		vals, err := parsePopLine(strings.Split(text, "\t"), f.Columns)
		if err != nil {
			return nil, 0, fmt.Errorf("%s line %d: %w", name, line+1, err)
		}
		rows = append(rows, PopRow{File: name, Line: line + 1, Values: vals})
	}
	if err := sc.Err(); err != nil {
		return nil, 0, fmt.Errorf("read %s: %w", name, err)
	}
	return rows, dropped, nil
}

// parsePopLine types each field by column name. Geo keys and categorical
// codes stay strings; coordinates are float64; everything else is int64.
func parsePopLine(fields, cols []string) ([]any, error) {
	if len(fields) != len(cols) {
		return nil, fmt.Errorf("%d fields, want %d", len(fields), len(cols))
	}
	vals := make([]any, len(cols))
	for i, c := range cols {
		s := fields[i]
		if s == PopNA {
			vals[i] = nil
			continue
		}
		switch c {
		case "stco", "stcotrbg", "type", "sex":
			vals[i] = s
		case "lat", "long":
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", c, err)
			}
			vals[i] = v
		default:
			v, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", c, err)
			}
			vals[i] = v
		}
	}
	return vals, nil
}
