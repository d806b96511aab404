package scrape

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"

	"github.com/sig-0/bnarates/cmd/common"
	"github.com/sig-0/bnarates/cmd/env"
	"github.com/sig-0/bnarates/storage/types"
)

var (
	errInvalidArgs  = errors.New("expected exactly two dates: <start> <end>")
	errInvalidRange = errors.New("start date must not be after end date")
)

// backfillCfg wraps the backfill configuration
type backfillCfg struct {
	flags common.Flags

	dryRun bool
}

// NewBackfillCmd creates the backfill command
func NewBackfillCmd() *ffcli.Command {
	cfg := &backfillCfg{}

	fs := flag.NewFlagSet("backfill", flag.ExitOnError)
	cfg.registerFlags(fs)

	return &ffcli.Command{
		Name:       "backfill",
		ShortUsage: "backfill [flags] <YYYY-MM-DD> <YYYY-MM-DD>",
		LongHelp:   "Scrapes every day of the inclusive date range from the historical page",
		FlagSet:    fs,
		Exec:       cfg.exec,
		Options: []ff.Option{
			// Allow using ENV variables
			ff.WithEnvVars(),
			ff.WithEnvVarPrefix(env.Prefix),
		},
	}
}

func (c *backfillCfg) registerFlags(fs *flag.FlagSet) {
	c.flags.RegisterFlags(fs)

	fs.BoolVar(
		&c.dryRun,
		"dry-run",
		false,
		"only print the scraped rates, without saving them",
	)
}

func (c *backfillCfg) exec(ctx context.Context, args []string) error {
	start, end, err := parseRange(args)
	if err != nil {
		return err
	}

	rt, err := common.Setup(ctx, &c.flags)
	if err != nil {
		return err
	}
	defer rt.Close()

	rt.Logger.Info(
		"backfilling rates",
		"start", types.FormatDate(start),
		"end", types.FormatDate(end),
	)

	result, err := rt.Orchestrator.ScrapeRange(ctx, start, end)
	if err != nil && result == nil {
		return fmt.Errorf("unable to scrape range: %w", err)
	}

	if len(result.Records) == 0 {
		rt.Logger.Warn("no rates scraped", "missed", len(result.Missed))

		return err
	}

	rt.Logger.Info(
		"scraped rates",
		"scraped", len(result.Records),
		"missed", len(result.Missed),
	)

	if c.dryRun {
		for _, record := range result.Records {
			rt.Logger.Info(
				"dry run, not saving",
				"date", record.Date,
				"rate", record.RateSell,
				"source", record.Source,
			)
		}

		return err
	}

	saved := rt.Orchestrator.Save(ctx, rt.Storage, result.Records)

	rt.Logger.Info(
		"rates saved",
		"saved", saved,
		"scraped", len(result.Records),
	)

	// err is set when the scrape was interrupted
	return err
}

// parseRange parses and orders the two ISO date arguments
func parseRange(args []string) (time.Time, time.Time, error) {
	if len(args) != 2 {
		return time.Time{}, time.Time{}, errInvalidArgs
	}

	start, err := types.ParseDate(args[0])
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	end, err := types.ParseDate(args[1])
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	if start.After(end) {
		return time.Time{}, time.Time{}, errInvalidRange
	}

	return start, end, nil
}
