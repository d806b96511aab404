package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	_ "time/tzdata" // Buenos Aires zone on hosts without a tz database

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v3/ffcli"

	"github.com/sig-0/bnarates/cmd/scrape"
	"github.com/sig-0/bnarates/cmd/serve"
	"github.com/sig-0/bnarates/cmd/sql"
	"github.com/sig-0/bnarates/cmd/status"
)

func main() {
	// Load .env, so its variables reach the flags
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		_, _ = fmt.Fprintf(os.Stderr, "unable to load .env file: %s\n", err)
	}

	fs := flag.NewFlagSet("root", flag.ExitOnError)

	// Create the root command
	cmd := &ffcli.Command{
		ShortUsage: "<sub-command> [flags] [<arg>...]",
		LongHelp:   "Scrapes and serves the BNA ARS/USD sell rate",
		FlagSet:    fs,
		Exec: func(_ context.Context, _ []string) error {
			return flag.ErrHelp
		},
	}

	// Add the subcommands
	cmd.Subcommands = []*ffcli.Command{
		scrape.NewYesterdayCmd(),
		scrape.NewBackfillCmd(),
		status.NewStatusCmd(),
		serve.NewServeCmd(),
		sql.NewSQLCmd(),
	}

	if err := cmd.ParseAndRun(context.Background(), os.Args[1:]); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)

		os.Exit(1)
	}
}
