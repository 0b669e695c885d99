package etl

import (
	"context"
	"fmt"

	"github.com/momacs/localedb/internal/core"
	"github.com/momacs/localedb/internal/locale"
	"github.com/momacs/localedb/internal/transform"
)

// resolveSeries resolves every location of a time series pass by name.
func resolveSeries(ctx context.Context, r locale.Resolver, p *transform.DynPass) ([]int64, error) {
	ids := make([]int64, len(p.Series))
	for i, s := range p.Series {
		id, err := r.ResolveByName(ctx, s.Key.Admin0, s.Key.Admin1, s.Key.Admin2)
		if err != nil {
			return nil, rowError(core.DatasetDisease, s.Ordinal, err)
		}
		ids[i] = id
	}
	return ids, nil
}

// resolveNPI resolves an intervention by state and county name. Rows
// without a state apply to the whole country.
func resolveNPI(ctx context.Context, r locale.Resolver, row transform.NPIRow) (int64, error) {
	if row.State == nil {
		id, err := r.ResolveByName(ctx, locale.Country, nil, nil)
		if err != nil {
			return 0, rowError(core.DatasetNPI, row.Ordinal, err)
		}
		return id, nil
	}
	ids, err := r.ResolveAdmin1Partial(ctx, locale.Country, *row.State, row.County)
	if err != nil {
		return 0, rowError(core.DatasetNPI, row.Ordinal, err)
	}
	if len(ids) != 1 {
		return 0, &core.ETLError{
			Dataset: core.DatasetNPI,
			Ordinal: row.Ordinal,
			Fields:  row.Fields(),
			Reason:  fmt.Sprintf("expected exactly one locale, found %d", len(ids)),
		}
	}
	return ids[0], nil
}

// resolveFIPS resolves a fact row keyed by FIPS.
func resolveFIPS(ctx context.Context, r locale.Resolver, ds core.Dataset, ordinal int, fips string) (int64, error) {
	id, err := r.ResolveByFIPS(ctx, fips)
	if err != nil {
		return 0, rowError(ds, ordinal, err)
	}
	return id, nil
}

// popLocales returns the state and county locale of a population row
// from the prefixes of its geo key.
func popLocales(ctx context.Context, r locale.Resolver, row transform.PopRow) (stID, coID int64, err error) {
	stID, err = r.ResolveFIPSPrefix(ctx, row.GeoKey, transform.StateFIPSLen)
	if err != nil {
		return 0, 0, fmt.Errorf("%s line %d: %w", row.File, row.Line, err)
	}
	coID, err = r.ResolveFIPSPrefix(ctx, row.GeoKey, transform.CountyFIPSLen)
	if err != nil {
		return 0, 0, fmt.Errorf("%s line %d: %w", row.File, row.Line, err)
	}
	return stID, coID, nil
}
