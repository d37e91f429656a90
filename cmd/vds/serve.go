package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/drmeng/vds/internal/config"
	"github.com/drmeng/vds/internal/dashboard"
	"github.com/drmeng/vds/internal/db"
	"github.com/drmeng/vds/internal/digest"
	"github.com/drmeng/vds/internal/notify"
	"github.com/spf13/cobra"
)

// connectTimeout bounds how long serve waits for the database at startup.
const connectTimeout = 30 * time.Second

func newServeCmd() *cobra.Command {
	var (
		configPath string
		port       int
		noDigest   bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the dashboard API and the digest scheduler",
		Long: `Serves the register as a JSON API and posts the overdue-document digest
on the schedule from the config file. Runs until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath, port, noDigest)
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().IntVarP(&port, "port", "p", 0, "port to listen on (default: server.port from config)")
	cmd.Flags().BoolVar(&noDigest, "no-digest", false, "do not schedule the overdue digest")
	return cmd
}

func runServe(cmd *cobra.Command, configPath string, port int, noDigest bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if !noDigest {
		if err := digest.ValidateSchedule(cfg.Digest.Schedule); err != nil {
			return err
		}
	}
	if port == 0 {
		port = cfg.Server.Port
	}
	log := newLogger(cmd, cfg)

	gormDB, err := db.OpenWithRetry(cfg.Database, connectTimeout)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", databaseName(cfg.Database), err)
	}
	defer db.Close(gormDB)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			fmt.Fprintf(cmd.OutOrStdout(), "\nReceived %s, shutting down...\n", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	notifier := notify.New(cfg.Notify, log)

	digestDone := make(chan error, 1)
	if noDigest {
		digestDone <- nil
	} else {
		go func() {
			digestDone <- digest.Run(ctx, digest.RunOpts{
				DB:       gormDB,
				Schedule: cfg.Digest.Schedule,
				Poster:   notifier,
				Logger:   log.Named("digest"),
			})
		}()
	}

	err = dashboard.Start(ctx, dashboard.StartOpts{
		DB:       gormDB,
		Port:     port,
		Out:      cmd.OutOrStdout(),
		Logger:   log.Named("http"),
		Notifier: notifier,
	})
	cancel()
	if derr := <-digestDone; err == nil {
		err = derr
	}
	return err
}
