package core

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the interface for database operations.
// Satisfied by *pgxpool.Pool, *pgxpool.Conn and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Beginner starts a transaction. Satisfied by *pgxpool.Pool.
type Beginner interface {
	Begin(context.Context) (pgx.Tx, error)
}

// Pool is what the orchestrator needs from a connection pool:
// statements outside a transaction (vacuum) and transactions.
type Pool interface {
	DBTX
	Beginner
}

// Dataset names one loadable dataset family.
type Dataset string

const (
	DatasetLocale     Dataset = "locale"
	DatasetDisease    Dataset = "disease"
	DatasetNPI        Dataset = "npi"
	DatasetPopulation Dataset = "population"
	DatasetVaccine    Dataset = "vaccination"
	DatasetHealth     Dataset = "health"
	DatasetWeather    Dataset = "weather"
	DatasetMobility   Dataset = "mobility"
	DatasetAirTraffic Dataset = "airtraffic"
)

// LoadState is the stage a dataset load is in.
type LoadState string

const (
	StatePending      LoadState = "pending"
	StateExtracting   LoadState = "extracting"
	StateTransforming LoadState = "transforming"
	StateResolving    LoadState = "resolving"
	StateLoading      LoadState = "loading"
	StateVacuuming    LoadState = "vacuuming"
	StateDone         LoadState = "done"
	StateFailed       LoadState = "failed"
)

// Terminal reports whether no further transition is possible.
func (s LoadState) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// LoadResult contains the final result of one dataset load.
type LoadResult struct {
	LoadID    string
	Dataset   Dataset
	Target    string // scope detail: disease name, state FIPS, year range
	State     LoadState
	Extracted int
	Dropped   int   // rows removed by transform rules before resolution
	Loaded    int64 // rows written
	Skipped   int64 // rows already present (insert-if-absent)
	Already   bool  // whole batch was already loaded
	Duration  time.Duration
	Err       error
}

// Succeeded reports whether the load ended in StateDone.
func (r LoadResult) Succeeded() bool {
	return r.State == StateDone && r.Err == nil
}
