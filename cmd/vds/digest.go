package main

import (
	"context"
	"fmt"
	"time"

	"github.com/drmeng/vds/internal/db"
	"github.com/drmeng/vds/internal/digest"
	"github.com/drmeng/vds/internal/notify"
	"github.com/spf13/cobra"
)

func newDigestCmd() *cobra.Command {
	var (
		configPath string
		post       bool
	)

	cmd := &cobra.Command{
		Use:   "digest",
		Short: "Print the overdue-document digest",
		Long: `Lists active documents whose next due date has passed, oldest first.
With --notify the digest is also posted to the configured Slack webhook.
"vds serve" posts it on the configured schedule.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDigest(cmd, configPath, post)
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().BoolVar(&post, "notify", false, "post the digest to Slack")
	return cmd
}

func runDigest(cmd *cobra.Command, configPath string, post bool) error {
	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	defer db.Close(gormDB)

	r, err := digest.Build(gormDB, time.Now())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, r.Format())

	if post && !r.Empty() {
		n := notify.New(cfg.Notify, newLogger(cmd, cfg))
		if !n.Enabled() {
			return fmt.Errorf("--notify: no Slack webhook configured")
		}
		n.Post(context.Background(), r.Format())
	}
	return nil
}
