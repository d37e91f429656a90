package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/drmeng/vds/internal/db"
	"github.com/drmeng/vds/internal/document"
	"github.com/drmeng/vds/internal/revision"
	"github.com/spf13/cobra"
)

func newDocumentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "document",
		Aliases: []string{"doc"},
		Short:   "Document management commands",
	}

	cmd.AddCommand(newDocumentAddCmd())
	cmd.AddCommand(newDocumentListCmd())
	cmd.AddCommand(newDocumentDeleteCmd())
	cmd.AddCommand(newDocumentNextCmd())
	cmd.AddCommand(newDocumentHistoryCmd())
	return cmd
}

func newDocumentAddCmd() *cobra.Command {
	var (
		configPath string
		projectRef string
		requiredBy string
		nextDue    string
		opts       document.CreateOpts
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a document to a project",
		Long: `Adds a document to a project register. Client and supplier numbers are
optional but must be unique when given. Dates accept most common layouts.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDocumentAdd(cmd, configPath, projectRef, requiredBy, nextDue, opts)
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().StringVarP(&projectRef, "project", "p", "", "project WA number or ID (required)")
	cmd.Flags().StringVar(&opts.DocumentNumber, "number", "", "document number (required, unique)")
	cmd.Flags().StringVar(&opts.Title, "title", "", "document title (required)")
	cmd.Flags().StringVar(&opts.ClientNumber, "client-number", "", "client document number")
	cmd.Flags().StringVar(&opts.SupplierNumber, "supplier-number", "", "supplier document number")
	cmd.Flags().StringVar(&opts.RevisionNumber, "revision", "", "current revision label carried over from another register")
	cmd.Flags().StringVar(&opts.VDSStatus, "status", document.StatusActive, "VDS status")
	cmd.Flags().StringVar(&opts.Stub, "stub", "", "document stub")
	cmd.Flags().StringVar(&opts.Discipline, "discipline", "", "engineering discipline")
	cmd.Flags().StringVar(&requiredBy, "required-by", "", "date the client requires the document")
	cmd.Flags().StringVar(&nextDue, "next-due", "", "date the next issue is due")
	cmd.Flags().StringVar(&opts.Notes, "notes", "", "free-form notes")
	cmd.Flags().BoolVar(&opts.Penalty, "penalty", false, "late delivery carries a penalty")
	cmd.Flags().BoolVar(&opts.Milestone, "milestone", false, "document is tied to a payment milestone")
	cmd.Flags().BoolVar(&opts.Priority, "priority", false, "mark as priority")
	cmd.MarkFlagRequired("project")
	cmd.MarkFlagRequired("number")
	cmd.MarkFlagRequired("title")
	return cmd
}

func runDocumentAdd(cmd *cobra.Command, configPath, projectRef, requiredBy, nextDue string, opts document.CreateOpts) error {
	var err error
	if opts.RequiredBy, err = parseDate(requiredBy); err != nil {
		return fmt.Errorf("--required-by: %w", err)
	}
	if opts.NextDue, err = parseDate(nextDue); err != nil {
		return fmt.Errorf("--next-due: %w", err)
	}

	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	defer db.Close(gormDB)

	p, err := resolveProject(gormDB, projectRef)
	if err != nil {
		return err
	}
	opts.ProjectID = p.ID

	d, err := document.Create(gormDB, opts)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Added document %s (id %d) to %s\n", d.DocumentNumber, d.ID, p.WANumber)
	return nil
}

func newDocumentListCmd() *cobra.Command {
	var (
		configPath string
		projectRef string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a project's documents",
		Long:  "Lists the documents of a project by document number, with the label each would receive on its next issue.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDocumentList(cmd, configPath, projectRef)
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().StringVarP(&projectRef, "project", "p", "", "project WA number or ID (required)")
	cmd.MarkFlagRequired("project")
	return cmd
}

func runDocumentList(cmd *cobra.Command, configPath, projectRef string) error {
	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	defer db.Close(gormDB)

	p, err := resolveProject(gormDB, projectRef)
	if err != nil {
		return err
	}
	docs, err := document.List(gormDB, p.ID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(docs) == 0 {
		fmt.Fprintf(out, "No documents found in %s.\n", p.WANumber)
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNUMBER\tTITLE\tREV\tNEXT\tLATEST ISSUE\tNEXT DUE\tSTATUS")
	for i := range docs {
		d := &docs[i]
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			d.ID, d.DocumentNumber, truncate(d.Title, 40), orDash(d.CurrentRevision()),
			document.NextRevision(d), formatDate(d.LatestIssue), formatDate(d.NextDue), d.VDSStatus)
	}
	w.Flush()
	return nil
}

func newDocumentDeleteCmd() *cobra.Command {
	var (
		configPath string
		projectRef string
		yes        bool
	)

	cmd := &cobra.Command{
		Use:   "delete <id>...",
		Short: "Delete documents and their revision history",
		Long:  "Deletes the given documents of a project. Their revisions are removed with them; transmittals are kept.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDocumentDelete(cmd, configPath, projectRef, args, yes)
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().StringVarP(&projectRef, "project", "p", "", "project WA number or ID (required)")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation prompt")
	cmd.MarkFlagRequired("project")
	return cmd
}

func runDocumentDelete(cmd *cobra.Command, configPath, projectRef string, args []string, skipConfirm bool) error {
	ids, err := parseIDs(args)
	if err != nil {
		return err
	}

	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	defer db.Close(gormDB)

	p, err := resolveProject(gormDB, projectRef)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if !skipConfirm {
		prompt := fmt.Sprintf("WARNING: This will delete %d document(s) from %s together with their revision history.", len(ids), p.WANumber)
		if !confirm(cmd, prompt) {
			fmt.Fprintln(out, "Aborted.")
			return nil
		}
	}

	n, err := document.Delete(gormDB, p.ID, ids)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Deleted %d document(s) from %s\n", n, p.WANumber)
	return nil
}

func newDocumentNextCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "next <id>",
		Short: "Show the label a document's next issue would receive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDocumentNext(cmd, configPath, args[0])
		},
	}

	addConfigFlag(cmd, &configPath)
	return cmd
}

func runDocumentNext(cmd *cobra.Command, configPath, arg string) error {
	id, err := parseID(arg)
	if err != nil {
		return err
	}

	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	defer db.Close(gormDB)

	d, err := document.Get(gormDB, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %s -> %s\n", d.DocumentNumber, orDash(d.CurrentRevision()), document.NextRevision(d))
	return nil
}

func newDocumentHistoryCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "history <id>",
		Short: "Show a document's revision history",
		Long:  "Lists every revision of a document, newest first.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDocumentHistory(cmd, configPath, args[0])
		},
	}

	addConfigFlag(cmd, &configPath)
	return cmd
}

func runDocumentHistory(cmd *cobra.Command, configPath, arg string) error {
	id, err := parseID(arg)
	if err != nil {
		return err
	}

	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	defer db.Close(gormDB)

	d, err := document.Get(gormDB, id)
	if err != nil {
		return err
	}
	revs, err := revision.ListForDocument(gormDB, d.ID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(revs) == 0 {
		fmt.Fprintf(out, "%s has never been issued.\n", d.DocumentNumber)
		return nil
	}

	fmt.Fprintf(out, "%s  %s\n\n", d.DocumentNumber, d.Title)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "REV\tDATE\tTRANSMITTAL\tPURPOSE\tPREPARED\tREVIEWED\tAPPROVED")
	for _, r := range revs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\t%s\n",
			r.RevisionNumber, r.Date.Format("2006-01-02"), r.TransmittalID, r.Purpose,
			orDash(deref(r.PreparedBy)), orDash(deref(r.ReviewedBy)), orDash(deref(r.ApprovedBy)))
	}
	w.Flush()
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
