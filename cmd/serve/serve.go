package serve

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"
	"golang.org/x/sync/errgroup"

	"github.com/sig-0/bnarates/cmd/common"
	"github.com/sig-0/bnarates/cmd/env"
	"github.com/sig-0/bnarates/ingest"
	"github.com/sig-0/bnarates/server"
)

// serveCfg wraps the serve configuration
type serveCfg struct {
	flags common.Flags

	listenAddress string
	noScheduler   bool
}

// NewServeCmd creates the serve command
func NewServeCmd() *ffcli.Command {
	cfg := &serveCfg{}

	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	cfg.registerFlags(fs)

	return &ffcli.Command{
		Name:       "serve",
		ShortUsage: "serve [flags]",
		LongHelp:   "Serves the rates API and scrapes the latest rate on a schedule",
		FlagSet:    fs,
		Exec:       cfg.exec,
		Options: []ff.Option{
			// Allow using ENV variables
			ff.WithEnvVars(),
			ff.WithEnvVarPrefix(env.Prefix),
		},
	}
}

func (c *serveCfg) registerFlags(fs *flag.FlagSet) {
	c.flags.RegisterFlags(fs)

	fs.StringVar(
		&c.listenAddress,
		"listen",
		"",
		"the IP:PORT URL for the server",
	)

	fs.BoolVar(
		&c.noScheduler,
		"no-scheduler",
		false,
		"only serve the API, without scheduled scraping",
	)
}

// exec executes the serve command
func (c *serveCfg) exec(ctx context.Context, _ []string) error {
	rt, err := common.Setup(ctx, &c.flags)
	if err != nil {
		return err
	}
	defer rt.Close()

	serverCfg := rt.Config.Server
	if c.listenAddress != "" {
		serverCfg.ListenAddress = c.listenAddress
	}

	// Create the server instance
	s, err := server.New(
		rt.Storage,
		server.WithLogger(rt.Logger),
		server.WithConfig(&serverCfg),
	)
	if err != nil {
		return fmt.Errorf("unable to create server, %w", err)
	}

	runCtx, cancelFn := signal.NotifyContext(
		ctx,
		os.Interrupt,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT,
	)
	defer cancelFn()

	group, gCtx := errgroup.WithContext(runCtx)

	// Start the HTTP server
	group.Go(func() error {
		return s.Serve(gCtx)
	})

	if c.noScheduler {
		return group.Wait()
	}

	// Create the scrape scheduler
	scheduler := ingest.NewScheduler(
		rt.Storage,
		ingest.WithSchedulerLogger(rt.Logger),
		ingest.WithRetryDelay(rt.Config.Scrape.RetryDelay()),
	)

	for _, provider := range defaultProviders(rt) {
		if err = scheduler.Register(provider); err != nil {
			return fmt.Errorf("unable to register provider: %w", err)
		}
	}

	// Start the scrape scheduler
	group.Go(func() error {
		return scheduler.Start(gCtx)
	})

	return group.Wait()
}
