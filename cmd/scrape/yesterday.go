package scrape

import (
	"context"
	"errors"
	"flag"
	"fmt"

	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"

	"github.com/sig-0/bnarates/cmd/common"
	"github.com/sig-0/bnarates/cmd/env"
	"github.com/sig-0/bnarates/storage/types"
)

var errNotSaved = errors.New("unable to save rate")

// yesterdayCfg wraps the yesterday configuration
type yesterdayCfg struct {
	flags common.Flags

	fallback bool
	dryRun   bool
}

// NewYesterdayCmd creates the yesterday command
func NewYesterdayCmd() *ffcli.Command {
	cfg := &yesterdayCfg{}

	fs := flag.NewFlagSet("yesterday", flag.ExitOnError)
	cfg.registerFlags(fs)

	return &ffcli.Command{
		Name:       "yesterday",
		ShortUsage: "yesterday [flags]",
		LongHelp:   "Scrapes the latest published sell rate and saves it",
		FlagSet:    fs,
		Exec:       cfg.exec,
		Options: []ff.Option{
			// Allow using ENV variables
			ff.WithEnvVars(),
			ff.WithEnvVarPrefix(env.Prefix),
		},
	}
}

func (c *yesterdayCfg) registerFlags(fs *flag.FlagSet) {
	c.flags.RegisterFlags(fs)

	fs.BoolVar(
		&c.fallback,
		"fallback",
		false,
		"fall back to the historical page when the current value page fails",
	)

	fs.BoolVar(
		&c.dryRun,
		"dry-run",
		false,
		"only print the scraped rate, without saving it",
	)
}

func (c *yesterdayCfg) exec(ctx context.Context, _ []string) error {
	rt, err := common.Setup(ctx, &c.flags)
	if err != nil {
		return err
	}
	defer rt.Close()

	record, err := rt.Orchestrator.ScrapeYesterday(ctx, c.fallback)
	if err != nil {
		return fmt.Errorf("unable to scrape rate: %w", err)
	}

	rt.Logger.Info(
		"scraped rate",
		"date", record.Date,
		"rate", record.RateSell,
		"source", record.Source,
	)

	if c.dryRun {
		rt.Logger.Info("dry run, not saving")

		return nil
	}

	if saved := rt.Orchestrator.Save(ctx, rt.Storage, []*types.RateRecord{record}); saved != 1 {
		return errNotSaved
	}

	rt.Logger.Info("rate saved", "date", record.Date)

	return nil
}
