// cmd_inspect.go
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/subcommands"

	"github.com/gewnthar/samsync/geo"
	"github.com/gewnthar/samsync/models"
)

type statsCmd struct {
	checkpoints bool
}

func (*statsCmd) Name() string     { return "stats" }
func (*statsCmd) Synopsis() string { return "show stored record counts per region and sub-region" }
func (*statsCmd) Usage() string {
	return `samsync stats [-checkpoints]
`
}

func (c *statsCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.checkpoints, "checkpoints", false, "Also list the checkpoint of every scope")
}

func (c *statsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withApp(ctx, func(a *app) subcommands.ExitStatus {
		stats, err := a.store.RegionStats(ctx)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return subcommands.ExitFailure
		}
		writeStats(os.Stdout, stats)

		if !c.checkpoints {
			return subcommands.ExitSuccess
		}
		cps, err := a.store.ListCheckpoints(ctx)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return subcommands.ExitFailure
		}
		fmt.Println()
		writeCheckpoints(os.Stdout, cps)
		return subcommands.ExitSuccess
	})
}

func writeStats(w io.Writer, stats []models.RegionCount) {
	var rows [][]string
	var total int64
	for _, s := range stats {
		rows = append(rows, []string{s.Region, s.SubRegion, itoa(s.Count)})
		total += s.Count
	}
	rows = append(rows, []string{"TOTAL", "", itoa(total)})
	writeTable(w, []string{"REGION", "SUB-REGION", "RECORDS"}, rows)
}

func writeCheckpoints(w io.Writer, cps []models.SyncCheckpoint) {
	var rows [][]string
	for _, cp := range cps {
		merged := "-"
		if cp.LastFullMergeAt != nil {
			merged = cp.LastFullMergeAt.Format(time.RFC3339)
		}
		rows = append(rows, []string{
			cp.ScopeID, string(cp.Status), itoa(cp.RowOffset), itoa(int64(cp.ChunksCommitted)),
			itoa(cp.Inserted), itoa(cp.Updated), merged, cp.LastError,
		})
	}
	writeTable(w, []string{"SCOPE", "STATUS", "ROWS", "CHUNKS", "INSERTED", "UPDATED", "LAST MERGE", "ERROR"}, rows)
}

type resolveCmd struct {
	list string
}

func (*resolveCmd) Name() string     { return "resolve" }
func (*resolveCmd) Synopsis() string { return "classify country values the way the merger does" }
func (*resolveCmd) Usage() string {
	return `samsync resolve <country>...
samsync resolve -list <region>

  Prints the ISO3 code, region and sub-region each value resolves to. With
  -list, prints the countries of a portfolio instead. No database is needed.
`
}

func (c *resolveCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.list, "list", "", "List the countries of this portfolio")
}

func (c *resolveCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.list != "" {
		region, ok := geo.NormalizeRegion(c.list)
		if !ok {
			fmt.Fprintf(os.Stderr, "unknown region %q, want one of %v\n", c.list, geo.Regions())
			return subcommands.ExitUsageError
		}
		var rows [][]string
		for _, country := range geo.Countries(region, "") {
			rows = append(rows, []string{country.ISO3, country.Name, country.SubRegion})
		}
		writeTable(os.Stdout, []string{"ISO3", "NAME", "SUB-REGION"}, rows)
		return subcommands.ExitSuccess
	}

	if f.NArg() == 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	resolver := geo.NewResolver(nil)
	var rows [][]string
	unresolved := 0
	for _, raw := range f.Args() {
		res := resolver.Resolve(raw)
		if !res.Resolved {
			unresolved++
		}
		rows = append(rows, []string{raw, res.CountryCode, res.Region, res.SubRegion, string(res.Method)})
	}
	writeTable(os.Stdout, []string{"INPUT", "ISO3", "REGION", "SUB-REGION", "MATCH"}, rows)
	if unresolved > 0 {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
