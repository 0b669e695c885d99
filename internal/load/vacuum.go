package load

import (
	"context"
	"fmt"

	"github.com/momacs/localedb/internal/core"
	"github.com/momacs/localedb/internal/logging"
)

// Vacuum runs each descriptor's maintenance. VACUUM cannot run inside a
// transaction block, so db must be the pool, never a pgx.Tx.
func Vacuum(ctx context.Context, db core.DBTX, ds ...Descriptor) error {
	log := logging.FromContext(ctx)
	for _, d := range ds {
		sql := vacuumSQL(d)
		if sql == "" {
			continue
		}
		if _, err := db.Exec(ctx, sql); err != nil {
			return fmt.Errorf("vacuum %s: %w", d.Table, err)
		}
		log.Debug("vacuumed", "table", d.Table, "mode", d.Vacuum)
	}
	return nil
}

func vacuumSQL(d Descriptor) string {
	switch d.Vacuum {
	case VacuumFull:
		return "VACUUM (FULL, ANALYZE) " + quoteTable(d.Table)
	case VacuumAnalyze:
		return "VACUUM ANALYZE " + quoteTable(d.Table)
	default:
		return ""
	}
}
