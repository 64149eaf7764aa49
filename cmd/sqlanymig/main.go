package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/kadirbelkuyu/sqlanymig/internal/app"
	"github.com/kadirbelkuyu/sqlanymig/internal/config"
	"github.com/kadirbelkuyu/sqlanymig/internal/profiles"
	"github.com/kadirbelkuyu/sqlanymig/pkg/logger"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "sqlanymig",
	Short: "Migrate SQL Anywhere databases to PostgreSQL",
	Long:  `Reads a SQL Anywhere reload script or a live catalog, unloads table data and produces a PostgreSQL script that recreates the schema and loads the data.`,
}

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Generate the PostgreSQL script",
	RunE:  runConvert,
}

var unloadCmd = &cobra.Command{
	Use:   "unload",
	Short: "Unload table data from the source database",
	RunE:  runUnload,
}

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Create the schema on the target server",
	RunE:  runApply,
}

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load unloaded data files into the target database",
	RunE:  runLoad,
}

var initCmd = &cobra.Command{
	Use:   "init <alias>",
	Short: "Save a new migration profile",
	Args:  cobra.ExactArgs(1),
	RunE:  runInit,
}

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "List saved migration profiles",
	RunE:  runProfiles,
}

var deleteProfileCmd = &cobra.Command{
	Use:   "delete <alias>",
	Short: "Delete a saved migration profile",
	Args:  cobra.ExactArgs(1),
	RunE:  runDeleteProfile,
}

var (
	configPath     string
	profileDir     string
	verbose        bool
	assumeYes      bool
	tables         string
	workers        int
	forceUnload    bool
	interactive    bool
	dataDir        string
	createDatabase bool

	initMode   string
	initFile   string
	initDSN    string
	initTarget string
	listMode   string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Configuration file path or profile alias")
	rootCmd.PersistentFlags().StringVar(&profileDir, "profiles", "configs", "Directory holding saved profiles")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Enable verbose logging")
	rootCmd.PersistentFlags().BoolVar(&assumeYes, "yes", false, "Do not ask for confirmation")

	for _, cmd := range []*cobra.Command{convertCmd, unloadCmd, loadCmd} {
		cmd.Flags().StringVar(&tables, "tables", "", "Comma separated list of tables to process")
		cmd.Flags().IntVar(&workers, "workers", 0, "Number of parallel workers")
	}
	for _, cmd := range []*cobra.Command{convertCmd, unloadCmd} {
		cmd.Flags().BoolVar(&interactive, "interactive", false, "Pick the tables to unload interactively")
	}
	convertCmd.Flags().BoolVar(&forceUnload, "unload", false, "Unload data in reload mode too")
	loadCmd.Flags().StringVar(&dataDir, "data-dir", "", "Directory containing the data files")
	applyCmd.Flags().BoolVar(&createDatabase, "create-database", false, "Create roles and drop/create the database first")

	initCmd.Flags().StringVar(&initMode, "mode", config.ModeReload, "Source mode: reload, catalog or hybrid")
	initCmd.Flags().StringVar(&initFile, "file", "", "Reload script path")
	initCmd.Flags().StringVar(&initDSN, "dsn", "", "Source database DSN")
	initCmd.Flags().StringVar(&initTarget, "database", "", "Target database name")

	profilesCmd.Flags().StringVar(&listMode, "mode", "", "Only list profiles of this source mode")
	profilesCmd.AddCommand(deleteProfileCmd)

	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(unloadCmd)
	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(loadCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(profilesCmd)

	cobra.OnInitialize(func() {
		rootCmd.SilenceUsage = true
		rootCmd.SilenceErrors = true
	})
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	if strings.TrimSpace(configPath) == "" {
		return nil, fmt.Errorf("required flag \"config\" not set")
	}
	path, err := profiles.NewManager(profileDir).Resolve(configPath)
	if err != nil {
		return nil, err
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("cannot load config: %w", err)
	}
	return cfg, nil
}

func workflowOptions() app.Options {
	return app.Options{
		Unload:         forceUnload,
		Tables:         parseTables(tables),
		Workers:        workers,
		Yes:            assumeYes,
		Interactive:    interactive,
		DataDir:        dataDir,
		CreateDatabase: createDatabase,
	}
}

func parseTables(list string) []string {
	var names []string
	for _, name := range strings.Split(list, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}

type workflow func(*app.Service, context.Context, *config.Config, app.Options) error

func run(fn workflow) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		service := app.NewService(logger.NewLogger(verbose), os.Stdout, nil)
		return fn(service, cmd.Context(), cfg, workflowOptions())
	}
}

func runConvert(cmd *cobra.Command, args []string) error {
	return run((*app.Service).Convert)(cmd, args)
}

func runUnload(cmd *cobra.Command, args []string) error {
	return run((*app.Service).Unload)(cmd, args)
}

func runApply(cmd *cobra.Command, args []string) error {
	return run((*app.Service).Apply)(cmd, args)
}

func runLoad(cmd *cobra.Command, args []string) error {
	return run((*app.Service).Load)(cmd, args)
}

func runInit(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	cfg.Source.Mode = initMode
	cfg.Source.File = initFile
	cfg.Source.DSN = initDSN
	if initTarget != "" {
		cfg.Target.Database = initTarget
	}

	profile, err := profiles.NewManager(profileDir).Save(args[0], cfg)
	if err != nil {
		return err
	}

	fmt.Printf("Profile %s saved to %s\n", profile.Name, profile.Path)
	return nil
}

func runProfiles(cmd *cobra.Command, args []string) error {
	manager := profiles.NewManager(profileDir)
	list, err := manager.List(listMode)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Printf("No profiles found in %s\n", manager.Directory())
		return nil
	}

	fmt.Printf("%-24s %-8s %-24s %s\n", "Name", "Mode", "Database", "Modified")
	for _, p := range list {
		fmt.Printf("%-24s %-8s %-24s %s\n", p.Name, p.Mode, p.Database, p.Modified.Format("2006-01-02 15:04"))
	}
	return nil
}

func runDeleteProfile(cmd *cobra.Command, args []string) error {
	if err := profiles.NewManager(profileDir).Delete(args[0]); err != nil {
		return err
	}
	fmt.Printf("Profile %s deleted\n", args[0])
	return nil
}
