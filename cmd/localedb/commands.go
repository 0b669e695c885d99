package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/momacs/localedb/internal/core"
	"github.com/momacs/localedb/internal/etl"
)

var errNoCommand = errors.New("missing command")

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "localedb [<host> <port> <user> <password> <dbname>] <command>",
		Short: "Load epidemiological, population and environmental datasets into LocaleDB",
		Long: `localedb creates the LocaleDB schema and loads its datasets.

Every dataset row is tied to a locale from main.locale, so load the main
reference data first. Loads are idempotent: rerunning one merges, replaces
or skips rows according to the target table's load policy.

The database is given either by five leading positional parameters or by
DATABASE_URL.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(*cobra.Command, []string) error {
			return errNoCommand
		},
	}

	root.AddCommand(
		newSchemaCmd(a),
		newTablesCmd(a),
		newMainCmd(a),
		newDiseaseCmd(a),
		newNPICmd(a),
		newPopStateCmd(a),
		newVaxCmd(a),
		newHealthCmd(a),
		newWeatherCmd(a),
		newMobilityCmd(a),
		newAirTrafficCmd(a),
		newAllCmd(a),
	)
	return root
}

func newSchemaCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Create the schemas, tables and extensions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.createSchema(cmd.Context())
		},
	}
}

func newTablesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List the target tables and how each accepts a load",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			return a.listTables()
		},
	}
}

func newMainCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "main",
		Aliases: []string{"locale"},
		Short:   "Replace the locale reference table",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd.Context(), func(ctx context.Context, o *etl.Orchestrator) []core.LoadResult {
				return one(o.LoadLocales(ctx))
			})
		},
	}
}

func newDiseaseCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "disease <name>",
		Short: "Load the case dynamics of a disease (c19)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd.Context(), func(ctx context.Context, o *etl.Orchestrator) []core.LoadResult {
				return one(o.LoadDisease(ctx, args[0]))
			})
		},
	}
}

func newNPICmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "npi [disease]",
		Short: "Replace the Keystone non-pharmaceutical interventions of a disease",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			disease := etl.DiseaseCOVID19
			if len(args) == 1 {
				disease = args[0]
			}
			return a.load(cmd.Context(), func(ctx context.Context, o *etl.Orchestrator) []core.LoadResult {
				return one(o.LoadNPI(ctx, disease))
			})
		},
	}
}

func newPopStateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "pop-state <st_fips> [dir]",
		Short: "Load one state's synthetic population",
		Long: `Loads the synthetic population of one state from dir, which defaults
to $LOCALEDB_DATA_DIR/<st_fips>. Rows already present are skipped, so a
partially loaded state can be resumed.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var dir string
			if len(args) == 2 {
				dir = args[1]
			}
			return a.load(cmd.Context(), func(ctx context.Context, o *etl.Orchestrator) []core.LoadResult {
				return one(o.LoadPopState(ctx, args[0], dir))
			})
		},
	}
}

func newVaxCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "vax <path|url>",
		Short: "Load vaccination coverage estimates",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd.Context(), func(ctx context.Context, o *etl.Orchestrator) []core.LoadResult {
				return one(o.LoadVax(ctx, args[0]))
			})
		},
	}
}

func newHealthCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "health <path|url> <year>",
		Short: "Load one year of county health rankings",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			year, err := etl.ParseYear(args[1])
			if err != nil {
				return err
			}
			return a.load(cmd.Context(), func(ctx context.Context, o *etl.Orchestrator) []core.LoadResult {
				return one(o.LoadHealth(ctx, args[0], year))
			})
		},
	}
}

func newWeatherCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "weather <year_from> <year_to>",
		Short: "Load NOAA county climate observations",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := etl.ParseYear(args[0])
			if err != nil {
				return err
			}
			to, err := etl.ParseYear(args[1])
			if err != nil {
				return err
			}
			return a.load(cmd.Context(), func(ctx context.Context, o *etl.Orchestrator) []core.LoadResult {
				return one(o.LoadWeather(ctx, from, to))
			})
		},
	}
}

func newMobilityCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mobility [path|url]",
		Short: "Load the US part of the Google mobility report",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var src string
			if len(args) == 1 {
				src = args[0]
			}
			return a.load(cmd.Context(), func(ctx context.Context, o *etl.Orchestrator) []core.LoadResult {
				return one(o.LoadMobility(ctx, src))
			})
		},
	}
}

func newAirTrafficCmd(a *app) *cobra.Command {
	var req etl.AirTrafficRequest
	cmd := &cobra.Command{
		Use:   "airtraffic <year> <domestic> <international>",
		Short: "Load BTS T-100 passenger totals between airports",
		Long: `Loads one year of BTS T-100 market data. domestic and international
are the path or URL of the two segment files for that year. Each route
endpoint is linked to the most specific locale it names.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			year, err := etl.ParseYear(args[0])
			if err != nil {
				return err
			}
			req.Year, req.Domestic, req.International = year, args[1], args[2]
			return a.load(cmd.Context(), func(ctx context.Context, o *etl.Orchestrator) []core.LoadResult {
				return one(o.LoadAirTraffic(ctx, req))
			})
		},
	}
	cmd.Flags().StringVar(&req.DestState, "state", "", "keep only routes into this state (two-letter code)")
	cmd.Flags().Float64Var(&req.MinPassengers, "min-pax", 0, "drop routes with fewer passengers")
	return cmd
}

func newAllCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "all",
		Short: "Load main reference data, COVID-19 dynamics and NPIs in order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd.Context(), func(ctx context.Context, o *etl.Orchestrator) []core.LoadResult {
				return o.RunAll(ctx)
			})
		},
	}
}
