// Package load writes transformed rows into PostgreSQL.
//
// What a load may do to a table is declared up front in a capability
// descriptor (tables.yaml, embedded; a file may override entries). The
// Loader applies one of three policies inside a caller-provided
// transaction:
//
//   - replace: delete the batch's scope, then COPY the batch
//   - merge: paged INSERT .. ON CONFLICT DO UPDATE of the contributing columns
//   - insert_if_absent: COPY into a temp staging table, then INSERT .. SELECT
//     .. ON CONFLICT DO NOTHING
//
// Unit wraps the transaction itself: advisory lock, deferred constraints and
// guaranteed rollback.
package load

import (
	_ "embed"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/goccy/go-yaml"
)

//go:embed tables.yaml
var defaultDescriptors []byte

// Policy is how a table accepts a batch.
type Policy string

const (
	PolicyReplace        Policy = "replace"
	PolicyMerge          Policy = "merge"
	PolicyInsertIfAbsent Policy = "insert_if_absent"
)

// VacuumMode is the maintenance run after a load.
type VacuumMode string

const (
	VacuumFull    VacuumMode = "full"
	VacuumAnalyze VacuumMode = "analyze"
	VacuumNone    VacuumMode = "none"
)

// Geometry derives a point column from coordinate columns.
type Geometry struct {
	Column string `yaml:"column"`
	Lat    string `yaml:"lat"`
	Long   string `yaml:"long"`
	From   int    `yaml:"from"`
	To     int    `yaml:"to"`
}

// Descriptor declares one loadable table.
type Descriptor struct {
	Table    string     `yaml:"table"`
	Columns  []string   `yaml:"columns"`
	Key      []string   `yaml:"key"`
	Scope    string     `yaml:"scope"`
	Policy   Policy     `yaml:"policy"`
	PerRow   bool       `yaml:"per_row"`
	Optional []string   `yaml:"optional"`
	Geometry *Geometry  `yaml:"geometry"`
	Vacuum   VacuumMode `yaml:"vacuum"`
}

type descriptorFile struct {
	Tables []Descriptor `yaml:"tables"`
}

var identRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Schema returns the schema part of Table.
func (d Descriptor) Schema() string {
	s, _, _ := strings.Cut(d.Table, ".")
	return s
}

// IsOptional reports whether col is merged with COALESCE.
func (d Descriptor) IsOptional(col string) bool {
	return slices.Contains(d.Optional, col)
}

// Validate checks the descriptor is usable by its policy.
func (d Descriptor) Validate() error {
	var errs []error
	schema, table, ok := strings.Cut(d.Table, ".")
	if !ok || !identRe.MatchString(schema) || !identRe.MatchString(table) {
		errs = append(errs, fmt.Errorf("table %q must be schema.table", d.Table))
	}
	if len(d.Columns) == 0 {
		errs = append(errs, errors.New("no columns"))
	}
	for _, c := range d.Columns {
		if !identRe.MatchString(c) {
			errs = append(errs, fmt.Errorf("column %q is not a plain identifier", c))
		}
	}
	subset := func(what string, cols ...string) {
		for _, c := range cols {
			if c != "" && !slices.Contains(d.Columns, c) {
				errs = append(errs, fmt.Errorf("%s %q is not a column", what, c))
			}
		}
	}
	subset("key", d.Key...)
	subset("scope", d.Scope)
	subset("optional", d.Optional...)

	switch d.Policy {
	case PolicyReplace:
	case PolicyMerge, PolicyInsertIfAbsent:
		if len(d.Key) == 0 {
			errs = append(errs, fmt.Errorf("policy %s needs a key", d.Policy))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown policy %q", d.Policy))
	}
	if d.PerRow && d.Policy != PolicyInsertIfAbsent {
		errs = append(errs, errors.New("per_row applies to insert_if_absent only"))
	}

	if g := d.Geometry; g != nil {
		if d.Policy != PolicyInsertIfAbsent {
			errs = append(errs, errors.New("geometry applies to insert_if_absent only"))
		}
		if !identRe.MatchString(g.Column) || slices.Contains(d.Columns, g.Column) {
			errs = append(errs, fmt.Errorf("geometry column %q must be an identifier outside columns", g.Column))
		}
		subset("geometry lat", g.Lat)
		subset("geometry long", g.Long)
		if g.From <= 0 || g.To <= 0 {
			errs = append(errs, errors.New("geometry needs positive from and to SRIDs"))
		}
	}

	switch d.Vacuum {
	case VacuumFull, VacuumAnalyze, VacuumNone, "":
	default:
		errs = append(errs, fmt.Errorf("unknown vacuum mode %q", d.Vacuum))
	}

	if len(errs) > 0 {
		return fmt.Errorf("descriptor %s: %w", d.Table, errors.Join(errs...))
	}
	return nil
}

// ParseDescriptors decodes and validates a descriptor document. Unknown
// fields are rejected so a misspelt capability cannot silently disappear.
func ParseDescriptors(data []byte) ([]Descriptor, error) {
	var f descriptorFile
	if err := yaml.UnmarshalWithOptions(data, &f, yaml.Strict()); err != nil {
		return nil, fmt.Errorf("parse descriptors: %w", err)
	}
	for _, d := range f.Tables {
		if err := d.Validate(); err != nil {
			return nil, err
		}
	}
	return f.Tables, nil
}
