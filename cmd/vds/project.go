package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/drmeng/vds/internal/dashboard"
	"github.com/drmeng/vds/internal/db"
	"github.com/drmeng/vds/internal/project"
	"github.com/spf13/cobra"
)

func newProjectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Project management commands",
	}

	cmd.AddCommand(newProjectCreateCmd())
	cmd.AddCommand(newProjectListCmd())
	cmd.AddCommand(newProjectShowCmd())
	return cmd
}

func newProjectCreateCmd() *cobra.Command {
	var (
		configPath string
		opts       project.CreateOpts
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Register a new project",
		Long:  "Registers a project under a unique WA number. Documents and transmittals are added to it afterwards.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProjectCreate(cmd, configPath, opts)
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().StringVar(&opts.WANumber, "wa", "", "WA number (required, unique)")
	cmd.Flags().StringVar(&opts.Title, "title", "", "project title (required)")
	cmd.Flags().StringVar(&opts.ClientNumber, "client-number", "", "client's project number")
	cmd.Flags().StringVar(&opts.DrmRefNumber, "drm-ref", "", "internal reference number")
	cmd.Flags().StringVar(&opts.Stub, "stub", "", "short project code")
	cmd.Flags().StringVar(&opts.ClientTitle, "client-title", "", "client's project title")
	cmd.Flags().StringVar(&opts.Country, "country", "", "country")
	cmd.Flags().StringVar(&opts.Location, "location", "", "site location")
	cmd.MarkFlagRequired("wa")
	cmd.MarkFlagRequired("title")
	return cmd
}

func runProjectCreate(cmd *cobra.Command, configPath string, opts project.CreateOpts) error {
	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	defer db.Close(gormDB)

	p, err := project.Create(gormDB, opts)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created project %s (id %d)\n", p.WANumber, p.ID)
	return nil
}

func newProjectListCmd() *cobra.Command {
	var (
		configPath string
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List projects",
		Long:  "Lists projects with the latest WA number first.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProjectList(cmd, configPath, limit)
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of projects (0 = all)")
	return cmd
}

func runProjectList(cmd *cobra.Command, configPath string, limit int) error {
	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	defer db.Close(gormDB)

	projects, err := project.List(gormDB, limit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(projects) == 0 {
		fmt.Fprintln(out, "No projects found.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tWA\tTITLE\tCLIENT\tCOUNTRY")
	for _, p := range projects {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
			p.ID, p.WANumber, truncate(p.Title, 40), orDash(p.ClientTitle), orDash(p.Country))
	}
	w.Flush()
	return nil
}

func newProjectShowCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "show <wa-number|id>",
		Short: "Show project details",
		Long:  "Displays a project with counts of its documents, transmittals and revisions.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProjectShow(cmd, configPath, args[0])
		},
	}

	addConfigFlag(cmd, &configPath)
	return cmd
}

func runProjectShow(cmd *cobra.Command, configPath, ref string) error {
	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	defer db.Close(gormDB)

	p, err := resolveProject(gormDB, ref)
	if err != nil {
		return err
	}
	s, err := dashboard.Summarize(gormDB, p.ID, time.Now())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "ID:            %d\n", p.ID)
	fmt.Fprintf(out, "WA number:     %s\n", p.WANumber)
	fmt.Fprintf(out, "Title:         %s\n", p.Title)
	if p.ClientTitle != "" {
		fmt.Fprintf(out, "Client title:  %s\n", p.ClientTitle)
	}
	if p.ClientNumber != "" {
		fmt.Fprintf(out, "Client number: %s\n", p.ClientNumber)
	}
	if p.DrmRefNumber != "" {
		fmt.Fprintf(out, "DRM ref:       %s\n", p.DrmRefNumber)
	}
	if p.Stub != "" {
		fmt.Fprintf(out, "Stub:          %s\n", p.Stub)
	}
	if p.Country != "" {
		fmt.Fprintf(out, "Country:       %s\n", p.Country)
	}
	if p.Location != nil {
		fmt.Fprintf(out, "Location:      %s\n", *p.Location)
	}

	fmt.Fprintln(out, "\nRegister:")
	fmt.Fprintf(out, "  Documents:    %d (%d issued, %d never issued, %d overdue)\n",
		s.Documents, s.Issued, s.NeverIssued, s.Overdue)
	fmt.Fprintf(out, "  Transmittals: %d\n", s.Transmittals)
	fmt.Fprintf(out, "  Revisions:    %d\n", s.Revisions)
	return nil
}
