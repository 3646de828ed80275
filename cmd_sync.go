// cmd_sync.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/gewnthar/samsync/services"
)

type bootstrapCmd struct {
	startYear int
	endYear   int
	region    string
	clear     bool
	json      bool
}

func (*bootstrapCmd) Name() string     { return "bootstrap" }
func (*bootstrapCmd) Synopsis() string { return "load whole fiscal-year exports into the database" }
func (*bootstrapCmd) Usage() string {
	return `samsync bootstrap [-start-year <fy>] [-end-year <fy>] [-region <region>] [-clear] [-json]

  Downloads the archived export of every fiscal year in the range, plus the
  current export for the current and next fiscal year, and merges them.
  Completed scopes are skipped when their export did not change; failed ones
  resume from their last committed chunk.
`
}

func (c *bootstrapCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.startYear, "start-year", 0, "First fiscal year to load (default: end year - bootstrap_years + 1)")
	f.IntVar(&c.endYear, "end-year", 0, "Last fiscal year to load (default: the current fiscal year)")
	f.StringVar(&c.region, "region", "", "Only keep records of this portfolio (AFRICA, AMERICAS, ASIA, MIDDLE_EAST, EUROPE)")
	f.BoolVar(&c.clear, "clear", false, "Delete every stored record and checkpoint first")
	f.BoolVar(&c.json, "json", false, "Print the run report as JSON")
}

func (c *bootstrapCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withApp(ctx, func(a *app) subcommands.ExitStatus {
		report, err := a.syncService().RunBootstrap(ctx, services.BootstrapRequest{
			StartYear: c.startYear,
			EndYear:   c.endYear,
			Region:    c.region,
			Clear:     c.clear,
		})
		return reportStatus(report, err, c.json)
	})
}

type updateCmd struct {
	region       string
	lookbackDays int
	json         bool
}

func (*updateCmd) Name() string     { return "update" }
func (*updateCmd) Synopsis() string { return "merge recent changes from the current export" }
func (*updateCmd) Usage() string {
	return `samsync update [-region <region>] [-lookback-days <n>] [-json]

  Merges the records of the current export modified within the lookback
  window. The window starts n days before the last completed update of the
  same region.
`
}

func (c *updateCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.region, "region", "", "Only keep records of this portfolio")
	f.IntVar(&c.lookbackDays, "lookback-days", 0, "Days before the last completed update to include (default: sync.default_lookback_days)")
	f.BoolVar(&c.json, "json", false, "Print the run report as JSON")
}

func (c *updateCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.lookbackDays < 0 {
		fmt.Fprintln(os.Stderr, "-lookback-days must not be negative")
		return subcommands.ExitUsageError
	}
	return withApp(ctx, func(a *app) subcommands.ExitStatus {
		report, err := a.syncService().RunIncremental(ctx, services.IncrementalRequest{
			Region:       c.region,
			LookbackDays: c.lookbackDays,
		})
		return reportStatus(report, err, c.json)
	})
}

// reportStatus prints the report and maps it to an exit status. A run with any failed scope exits 1.
func reportStatus(report *services.RunReport, err error, asJSON bool) subcommands.ExitStatus {
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		if errors.Is(err, services.ErrInvalidRegion) || errors.Is(err, services.ErrInvalidYears) {
			return subcommands.ExitUsageError
		}
		return subcommands.ExitFailure
	}
	if err := writeReport(os.Stdout, report, asJSON); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	if report.Failed() {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
