package status

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"slices"
	"text/tabwriter"

	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"

	"github.com/sig-0/bnarates/cmd/common"
	"github.com/sig-0/bnarates/cmd/env"
	"github.com/sig-0/bnarates/storage/types"
)

const recentCount = 5

// statusCfg wraps the status configuration
type statusCfg struct {
	flags common.Flags
}

// NewStatusCmd creates the status command
func NewStatusCmd() *ffcli.Command {
	cfg := &statusCfg{}

	fs := flag.NewFlagSet("status", flag.ExitOnError)
	cfg.flags.RegisterFlags(fs)

	return &ffcli.Command{
		Name:       "status",
		ShortUsage: "status [flags]",
		LongHelp:   "Shows the stored rate statistics and the most recent rates",
		FlagSet:    fs,
		Exec:       cfg.exec,
		Options: []ff.Option{
			// Allow using ENV variables
			ff.WithEnvVars(),
			ff.WithEnvVarPrefix(env.Prefix),
		},
	}
}

func (c *statusCfg) exec(ctx context.Context, _ []string) error {
	rt, err := common.Setup(ctx, &c.flags)
	if err != nil {
		return err
	}
	defer rt.Close()

	stats, err := rt.Storage.Stats(ctx)
	if err != nil {
		return fmt.Errorf("unable to fetch stats: %w", err)
	}

	recent, err := rt.Storage.Recent(ctx, recentCount)
	if err != nil {
		return fmt.Errorf("unable to fetch recent rates: %w", err)
	}

	return printStatus(os.Stdout, stats, recent)
}

// printStatus writes the statistics and recent rates as aligned columns
func printStatus(out io.Writer, stats *types.Stats, recent []*types.RateRecord) error {
	if stats.Total == 0 {
		_, err := fmt.Fprintln(out, "No rates stored")

		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	_, _ = fmt.Fprintf(w, "Total records:\t%d\n", stats.Total)
	_, _ = fmt.Fprintf(w, "Date range:\t%s to %s\n", stats.FirstDate, stats.LastDate)

	sources := make([]types.Source, 0, len(stats.Sources))
	for source := range stats.Sources {
		sources = append(sources, source)
	}

	slices.Sort(sources)

	_, _ = fmt.Fprintln(w, "Sources:")

	for _, source := range sources {
		_, _ = fmt.Fprintf(w, "  %s\t%d\n", source, stats.Sources[source])
	}

	_, _ = fmt.Fprintln(w, "Recent rates:")

	for _, record := range recent {
		_, _ = fmt.Fprintf(w, "  %s\t%.4f\t%s\n", record.Date, record.RateSell, record.Source)
	}

	return w.Flush()
}
