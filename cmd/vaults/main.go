// Command vaults runs the self-hosted multi-user file storage server.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/kaysting/vaults/internal/config"
	"github.com/kaysting/vaults/internal/httpapi"
	"github.com/kaysting/vaults/internal/logging"
	"github.com/kaysting/vaults/internal/store"
	"github.com/kaysting/vaults/internal/vault"
)

const version = "1.0.0"

// main is the process entry point and forwards to run for testable logic.
func main() {
	if err := run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func run(argv []string) error {
	fs := flag.NewFlagSet("vaults", flag.ContinueOnError)
	var (
		configPath  string
		logLevel    string
		showVersion bool
	)
	fs.StringVar(&configPath, "config", "./vaults.yaml", "path to vaults.yaml")
	fs.StringVar(&logLevel, "log-level", "", "log level override: debug|info|warning|error")
	fs.BoolVar(&showVersion, "version", false, "print version and exit")
	if err := fs.Parse(argv[1:]); err != nil {
		return err
	}
	if showVersion {
		fmt.Printf("vaults %s\n", version)
		return nil
	}

	c, err := config.Load(configPath)
	if err != nil {
		return err
	}
	level := c.Log.Level
	// CLI overrides config.
	if strings.TrimSpace(logLevel) != "" {
		level = logLevel
	}
	lg, err := logging.New(logging.Options{Level: level, DefaultSlog: true})
	if err != nil {
		return err
	}

	ctx := context.Background()
	st, err := store.Open(ctx, c.DB.Path)
	if err != nil {
		return err
	}
	defer st.Close()

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	sw := &store.Sweeper{
		Store:          st,
		Logger:         lg,
		SessionMaxIdle: time.Duration(c.Server.InactiveSessionExpireDays) * 24 * time.Hour,
		DownloadMaxAge: time.Duration(c.Server.DownloadExpireDays) * 24 * time.Hour,
		UploadMaxAge:   time.Duration(c.Server.UploadExpireHours) * time.Hour,
	}
	go sw.Run(sweepCtx, time.Minute)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		lg.Info("shutting down", "signal", sig.String())
		stopSweep()
		_ = st.Close()
		os.Exit(0)
	}()

	srv := httpapi.New(c, st, vault.NewRegistry(c.Vaults), lg)
	return srv.ListenAndServe()
}
