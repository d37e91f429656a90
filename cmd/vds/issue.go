package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/drmeng/vds/internal/db"
	"github.com/drmeng/vds/internal/document"
	"github.com/drmeng/vds/internal/notify"
	"github.com/drmeng/vds/internal/revision"
	"github.com/spf13/cobra"
)

func newIssueCmd() *cobra.Command {
	var (
		configPath string
		projectRef string
		source     string
		notes      string
	)

	cmd := &cobra.Command{
		Use:   "issue <document-id>...",
		Short: "Issue documents under a new transmittal",
		Long: `Creates one transmittal for the project and issues each document under it
with its next revision label. A document that cannot be issued is reported and
skipped; the others are still issued. The command exits non-zero when any
document was skipped.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIssue(cmd, configPath, projectRef, source, notes, args)
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().StringVarP(&projectRef, "project", "p", "", "project WA number or ID (required)")
	cmd.Flags().StringVar(&source, "source", "", "numbering source (default: project's earliest, else HOUSE)")
	cmd.Flags().StringVar(&notes, "notes", "", "transmittal notes")
	cmd.MarkFlagRequired("project")
	return cmd
}

func runIssue(cmd *cobra.Command, configPath, projectRef, source, notes string, args []string) error {
	ids, err := parseIDs(args)
	if err != nil {
		return err
	}

	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	defer db.Close(gormDB)
	log := newLogger(cmd, cfg)

	p, err := resolveProject(gormDB, projectRef)
	if err != nil {
		return err
	}

	res, err := revision.IssueBatch(gormDB, revision.BatchOpts{
		ProjectID:   p.ID,
		Source:      source,
		Notes:       notes,
		DocumentIDs: ids,
		Logger:      log,
	})
	if res == nil {
		return err
	}

	numbers, nerr := document.Numbers(gormDB, ids)
	if nerr != nil {
		log.Warn("issue: document numbers", "error", nerr)
	}

	out := cmd.OutOrStdout()
	tr := res.Transmittal
	fmt.Fprintf(out, "Transmittal %s (source %s, %s)\n", tr.Number, tr.Source, tr.DateSent.Format("2006-01-02"))
	if len(res.Revisions) > 0 {
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "DOCUMENT\tREV\tPURPOSE")
		for _, r := range res.Revisions {
			fmt.Fprintf(w, "%s\t%s\t%s\n", numbers[r.DocumentID], r.RevisionNumber, r.Purpose)
		}
		w.Flush()
	}
	for _, f := range res.Failures {
		fmt.Fprintf(out, "Not issued: document %d: %v\n", f.DocumentID, f.Err)
	}

	notify.New(cfg.Notify, log).Batch(context.Background(), p.WANumber, res, numbers)

	if err != nil {
		return fmt.Errorf("%d of %d documents not issued", len(res.Failures), len(ids))
	}
	return nil
}
