package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/drmeng/vds/internal/config"
	"github.com/drmeng/vds/internal/db"
	"github.com/drmeng/vds/internal/logging"
	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

const defaultConfigPath = "vds.yaml"

func addConfigFlag(cmd *cobra.Command, configPath *string) {
	cmd.Flags().StringVarP(configPath, "config", "c", defaultConfigPath, "path to VDS config file")
}

// connectFromConfig loads the config and opens the database it names.
// Callers close the connection with db.Close.
func connectFromConfig(configPath string) (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	gormDB, err := db.Open(cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to %s: %w", databaseName(cfg.Database), err)
	}
	return cfg, gormDB, nil
}

// newLogger writes to the command's stderr at the configured level.
func newLogger(cmd *cobra.Command, cfg *config.Config) hclog.Logger {
	return logging.New("vds", cfg.LogLevel, cmd.ErrOrStderr())
}

// databaseName describes the configured store for messages and prompts.
func databaseName(cfg config.DatabaseConfig) string {
	if cfg.Driver == config.DriverSQLite || cfg.Driver == "" {
		return cfg.Path
	}
	return cfg.Name
}

func newDBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database management commands",
	}

	cmd.AddCommand(newDBInitCmd())
	cmd.AddCommand(newDBResetCmd())
	return cmd
}

func newDBInitCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the register database",
		Long:  "Migrates all register tables and seeds the projects listed in the config file.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDBInit(cmd, configPath)
		},
	}

	addConfigFlag(cmd, &configPath)
	return cmd
}

func runDBInit(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()

	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	defer db.Close(gormDB)
	fmt.Fprintf(out, "Connected to %s database %s\n", cfg.Database.Driver, databaseName(cfg.Database))

	if err := migrateAndSeed(cmd, gormDB, cfg); err != nil {
		return err
	}
	fmt.Fprintln(out, "\nRegister database initialized successfully.")
	return nil
}

func migrateAndSeed(cmd *cobra.Command, gormDB *gorm.DB, cfg *config.Config) error {
	out := cmd.OutOrStdout()

	if err := db.AutoMigrate(gormDB); err != nil {
		return err
	}
	fmt.Fprintf(out, "Migrated %d tables\n", len(db.AllModels()))

	if err := db.SeedProjects(gormDB, cfg.Projects); err != nil {
		return err
	}
	fmt.Fprintf(out, "Seeded %d projects:", len(cfg.Projects))
	for _, p := range cfg.Projects {
		fmt.Fprintf(out, " %s", p.WANumber)
	}
	fmt.Fprintln(out)
	return nil
}

func newDBResetCmd() *cobra.Command {
	var (
		configPath string
		yes        bool
		force      bool
	)

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Drop and re-initialize the register database",
		Long: `Drops every register table, then migrates and seeds again from config.
All projects, documents, transmittals and revisions are lost.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDBReset(cmd, configPath, yes || force)
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation prompt")
	cmd.Flags().BoolVar(&force, "force", false, "skip confirmation prompt (alias for --yes)")
	return cmd
}

func runDBReset(cmd *cobra.Command, configPath string, skipConfirm bool) error {
	out := cmd.OutOrStdout()

	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	defer db.Close(gormDB)
	name := databaseName(cfg.Database)

	if !skipConfirm {
		prompt := fmt.Sprintf("WARNING: This will permanently delete all data in database %q.\nThis action cannot be undone.", name)
		if !confirm(cmd, prompt) {
			fmt.Fprintln(out, "Aborted.")
			return nil
		}
	}

	if err := db.DropAll(gormDB); err != nil {
		return err
	}
	fmt.Fprintf(out, "Dropped all tables in %s\n", name)

	if err := migrateAndSeed(cmd, gormDB, cfg); err != nil {
		return err
	}
	fmt.Fprintln(out, "\nRegister database reset and re-initialized successfully.")
	return nil
}

// confirm prints the warning and returns true only when the user types "yes".
func confirm(cmd *cobra.Command, warning string) bool {
	out := cmd.OutOrStdout()
	in := cmd.InOrStdin()

	fmt.Fprintln(out, warning)
	fmt.Fprintln(out)
	fmt.Fprint(out, "Type \"yes\" to confirm: ")

	scanner := bufio.NewScanner(in)
	if scanner.Scan() {
		return strings.TrimSpace(scanner.Text()) == "yes"
	}
	return false
}
