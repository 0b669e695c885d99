package etl

import (
	"bytes"
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/momacs/localedb/internal/core"
	"github.com/momacs/localedb/internal/load"
	"github.com/momacs/localedb/internal/source"
	"github.com/momacs/localedb/internal/transform"
)

// LoadNPI replaces the Keystone interventions of disease; other diseases'
// rows are kept. npi.type is shared and rebuilt from the file, so the load
// fails when that would give a type id kept by another disease a new name.
func (o *Orchestrator) LoadNPI(ctx context.Context, disease string) core.LoadResult {
	var (
		recs  []source.NPIRecord
		batch *transform.NPIBatch
	)
	return o.run(ctx, job{
		dataset:     core.DatasetNPI,
		target:      disease,
		lock:        load.LockShared,
		needsLocale: true,
		tables:      []string{"npi.type", "npi.npi"},
		extract: func(ctx context.Context) error {
			data, err := o.fetcher.Fetch(ctx, o.sources.KeystoneNPI)
			if err != nil {
				return err
			}
			recs, err = source.ReadKeystone(bytes.NewReader(data))
			return err
		},
		transform: func(context.Context) (transform.Stats, error) {
			var st transform.Stats
			batch, st = transform.NPIs(recs)
			return st, nil
		},
		write: func(ctx context.Context, s *session) error {
			diseaseID, err := o.diseaseID(ctx, s, disease)
			if err != nil {
				return err
			}

			rows := make([][]any, len(batch.Rows))
			for i, r := range batch.Rows {
				localeID, err := resolveNPI(ctx, s.resolver, r)
				if err != nil {
					return err
				}
				rows[i] = []any{diseaseID, localeID, r.TypeID, r.Begin, r.End,
					r.BeginCitation, r.BeginNote, r.EndCitation, r.EndNote}
			}

			if err := s.loading(); err != nil {
				return err
			}
			shared, err := sharedNPITypes(ctx, s.tx, diseaseID)
			if err != nil {
				return err
			}
			if err := checkSharedTypes(shared, batch.Types); err != nil {
				return err
			}
			if err := s.apply(o.loader.Replace(ctx, s.tx, o.registry.MustGet("npi.type"), nil, batch.Types.Rows())); err != nil {
				return err
			}
			return s.apply(o.loader.Replace(ctx, s.tx, o.registry.MustGet("npi.npi"), diseaseID, rows))
		},
	})
}

type npiType struct {
	ID   int32
	Name string
}

// sharedNPITypes lists the types still referenced by other diseases.
func sharedNPITypes(ctx context.Context, tx pgx.Tx, diseaseID int32) ([]npiType, error) {
	rows, err := tx.Query(ctx, `SELECT DISTINCT t.id, t.name
FROM npi.npi n JOIN npi.type t ON t.id = n.type_id
WHERE n.disease_id IS DISTINCT FROM $1
ORDER BY t.id`, diseaseID)
	if err != nil {
		return nil, fmt.Errorf("npi types in use: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[npiType])
}

// checkSharedTypes fails when codes would drop or rename a type other
// diseases still reference.
func checkSharedTypes(shared []npiType, codes *transform.Codes) error {
	for _, t := range shared {
		id, ok := codes.ID(t.Name)
		if !ok || id != t.ID {
			return fmt.Errorf("npi type %d %q is used by another disease and would change; reload every disease's npi from one file", t.ID, t.Name)
		}
	}
	return nil
}
