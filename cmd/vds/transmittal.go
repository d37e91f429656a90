package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/drmeng/vds/internal/db"
	"github.com/drmeng/vds/internal/models"
	"github.com/drmeng/vds/internal/transmittal"
	"github.com/spf13/cobra"
)

func newTransmittalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "transmittal",
		Aliases: []string{"tr"},
		Short:   "Transmittal management commands",
	}

	cmd.AddCommand(newTransmittalNewCmd())
	cmd.AddCommand(newTransmittalListCmd())
	cmd.AddCommand(newTransmittalShowCmd())
	cmd.AddCommand(newTransmittalDeleteCmd())
	return cmd
}

func newTransmittalNewCmd() *cobra.Command {
	var (
		configPath string
		projectRef string
		source     string
		notes      string
	)

	cmd := &cobra.Command{
		Use:   "new",
		Short: "Record an empty transmittal",
		Long: `Records a transmittal dated today with the next number in the source's
sequence. Without --source the project's earliest source is reused, or HOUSE
for a project with no transmittals yet. Use "vds issue" to issue documents.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransmittalNew(cmd, configPath, projectRef, source, notes)
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().StringVarP(&projectRef, "project", "p", "", "project WA number or ID (required)")
	cmd.Flags().StringVar(&source, "source", "", "numbering source (default: project's earliest, else HOUSE)")
	cmd.Flags().StringVar(&notes, "notes", "", "transmittal notes")
	cmd.MarkFlagRequired("project")
	return cmd
}

func runTransmittalNew(cmd *cobra.Command, configPath, projectRef, source, notes string) error {
	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	defer db.Close(gormDB)

	p, err := resolveProject(gormDB, projectRef)
	if err != nil {
		return err
	}
	tr, err := transmittal.Create(gormDB, transmittal.CreateOpts{
		ProjectID: p.ID,
		Source:    source,
		Notes:     notes,
		Logger:    newLogger(cmd, cfg),
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created transmittal %s (id %d, source %s, %s)\n",
		tr.Number, tr.ID, tr.Source, tr.DateSent.Format("2006-01-02"))
	return nil
}

func newTransmittalListCmd() *cobra.Command {
	var (
		configPath string
		projectRef string
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List transmittals",
		Long: `Lists a project's transmittals, latest first. Without --project the most
recent transmittals across all projects are shown.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransmittalList(cmd, configPath, projectRef, limit)
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().StringVarP(&projectRef, "project", "p", "", "project WA number or ID")
	cmd.Flags().IntVar(&limit, "limit", transmittal.DefaultRecent, "number of recent transmittals without --project")
	return cmd
}

func runTransmittalList(cmd *cobra.Command, configPath, projectRef string, limit int) error {
	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	defer db.Close(gormDB)

	var trs []models.Transmittal
	if projectRef != "" {
		p, err := resolveProject(gormDB, projectRef)
		if err != nil {
			return err
		}
		trs, err = transmittal.List(gormDB, p.ID)
		if err != nil {
			return err
		}
	} else {
		trs, err = transmittal.Recent(gormDB, limit)
		if err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	if len(trs) == 0 {
		fmt.Fprintln(out, "No transmittals found.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNUMBER\tSOURCE\tSENT\tPROJECT\tNOTES")
	for _, tr := range trs {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%s\n",
			tr.ID, tr.Number, tr.Source, tr.DateSent.Format("2006-01-02"), tr.ProjectID, orDash(truncate(tr.Notes, 40)))
	}
	w.Flush()
	return nil
}

func newTransmittalShowCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a transmittal and the revisions it issued",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransmittalShow(cmd, configPath, args[0])
		},
	}

	addConfigFlag(cmd, &configPath)
	return cmd
}

func runTransmittalShow(cmd *cobra.Command, configPath, arg string) error {
	id, err := parseID(arg)
	if err != nil {
		return err
	}

	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	defer db.Close(gormDB)

	d, err := transmittal.GetDetails(gormDB, id)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	tr := d.Transmittal
	fmt.Fprintf(out, "ID:       %d\n", tr.ID)
	fmt.Fprintf(out, "Number:   %s\n", tr.Number)
	fmt.Fprintf(out, "Source:   %s\n", tr.Source)
	fmt.Fprintf(out, "Sent:     %s\n", tr.DateSent.Format("2006-01-02"))
	if tr.Notes != "" {
		fmt.Fprintf(out, "Notes:    %s\n", tr.Notes)
	}

	if len(d.Lines) == 0 {
		fmt.Fprintln(out, "\nNo revisions issued.")
		return nil
	}
	fmt.Fprintln(out)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DOCUMENT\tREV\tPURPOSE\tTITLE")
	for _, l := range d.Lines {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", l.DocumentNumber, l.RevisionNumber, l.Purpose, truncate(l.DocumentTitle, 40))
	}
	w.Flush()
	return nil
}

func newTransmittalDeleteCmd() *cobra.Command {
	var (
		configPath string
		yes        bool
	)

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a transmittal and its revisions",
		Long: `Deletes a transmittal together with the revisions issued under it.
Documents keep their current revision label and latest issue date.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransmittalDelete(cmd, configPath, args[0], yes)
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation prompt")
	return cmd
}

func runTransmittalDelete(cmd *cobra.Command, configPath, arg string, skipConfirm bool) error {
	id, err := parseID(arg)
	if err != nil {
		return err
	}

	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	defer db.Close(gormDB)

	tr, err := transmittal.Get(gormDB, id)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if !skipConfirm {
		prompt := fmt.Sprintf("WARNING: This will delete transmittal %s and every revision issued under it.", tr.Number)
		if !confirm(cmd, prompt) {
			fmt.Fprintln(out, "Aborted.")
			return nil
		}
	}

	if err := transmittal.Delete(gormDB, tr.ID); err != nil {
		return err
	}
	newLogger(cmd, cfg).Info("transmittal deleted", "transmittal", tr.Number)
	fmt.Fprintf(out, "Deleted transmittal %s\n", tr.Number)
	return nil
}
