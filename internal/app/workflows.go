package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/kadirbelkuyu/sqlanymig/internal/apply"
	"github.com/kadirbelkuyu/sqlanymig/internal/catalog"
	"github.com/kadirbelkuyu/sqlanymig/internal/codec"
	"github.com/kadirbelkuyu/sqlanymig/internal/config"
	"github.com/kadirbelkuyu/sqlanymig/internal/database"
	"github.com/kadirbelkuyu/sqlanymig/internal/generator"
	"github.com/kadirbelkuyu/sqlanymig/internal/load"
	"github.com/kadirbelkuyu/sqlanymig/internal/reload"
	"github.com/kadirbelkuyu/sqlanymig/internal/schema"
	"github.com/kadirbelkuyu/sqlanymig/internal/unload"
	"github.com/kadirbelkuyu/sqlanymig/pkg/interactive"
	"github.com/kadirbelkuyu/sqlanymig/pkg/logger"
	"github.com/kadirbelkuyu/sqlanymig/pkg/progress"
)

type Options struct {
	// Unload forces a data unload in reload mode. Catalog and hybrid always unload.
	Unload      bool
	Tables      []string
	Workers     int
	Yes         bool
	Interactive bool
	// DataDir overrides where load looks for data files.
	DataDir        string
	CreateDatabase bool
}

// Prompter is the interactive surface used by the workflows.
type Prompter interface {
	SelectTables(tables []interactive.TableInfo) ([]string, error)
	ConfirmAction(action, target string) bool
}

type Service struct {
	logger *logger.Logger
	out    io.Writer
	prompt Prompter
}

func NewService(log *logger.Logger, out io.Writer, prompt Prompter) *Service {
	if out == nil {
		out = os.Stdout
	}
	if prompt == nil {
		prompt = interactive.NewTableSelector()
	}
	return &Service{logger: log, out: out, prompt: prompt}
}

// Acquire builds the schema model for the configured source mode. The returned
// connection is nil in reload mode; callers close it otherwise.
func (s *Service) Acquire(ctx context.Context, cfg *config.Config) (*schema.Model, *database.Connection, error) {
	switch cfg.Source.Mode {
	case config.ModeReload:
		model, err := s.importScript(cfg)
		return model, nil, err

	case config.ModeCatalog:
		conn, err := database.OpenSource(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		model, err := catalog.NewExtractor(conn, s.logger, cfg.Source.Owners).Extract(ctx)
		if err != nil {
			conn.Close()
			return nil, nil, fmt.Errorf("failed to read source catalog: %w", err)
		}
		return model, conn, nil

	case config.ModeHybrid:
		model, err := s.importScript(cfg)
		if err != nil {
			return nil, nil, err
		}
		conn, err := database.OpenSource(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return model, conn, nil

	default:
		return nil, nil, fmt.Errorf("unknown source mode %q", cfg.Source.Mode)
	}
}

func (s *Service) importScript(cfg *config.Config) (*schema.Model, error) {
	importer := reload.NewImporter(s.logger, cfg.Source.Encoding)
	if cfg.Source.Mode == config.ModeHybrid {
		importer.OnLoadTable(func(t *schema.Table) {
			s.logger.ForTable(t.Name).Debugf("Scheduled for live unload with columns %v", t.Content.Columns)
		})
	}

	model, err := importer.ImportFile(cfg.Source.File)
	if err != nil {
		return nil, fmt.Errorf("failed to import reload script: %w", err)
	}
	return model, nil
}

// Convert acquires the model, unloads data when needed and writes the PostgreSQL script.
func (s *Service) Convert(ctx context.Context, cfg *config.Config, opts Options) error {
	s.logger.Info("Starting conversion...")

	model, conn, err := s.Acquire(ctx, cfg)
	if err != nil {
		return err
	}
	if conn != nil {
		defer conn.Close()
	}

	if cfg.Source.Mode != config.ModeReload || opts.Unload {
		if conn == nil {
			if conn, err = database.OpenSource(ctx, cfg); err != nil {
				return err
			}
			defer conn.Close()
		}
		if _, err := s.unload(ctx, cfg, opts, model, conn); err != nil {
			return err
		}
	}

	script, err := generator.NewPostgres(generator.OptionsFromConfig(cfg), s.logger).Build(model)
	if err != nil {
		return fmt.Errorf("failed to generate target script: %w", err)
	}
	if len(script.Passthrough) > 0 {
		s.logger.Warnf("%d default expressions were passed through untranslated", len(script.Passthrough))
	}

	return s.writeScript(cfg, opts, script)
}

// Unload exports table data only and prints a summary per table.
func (s *Service) Unload(ctx context.Context, cfg *config.Config, opts Options) error {
	model, conn, err := s.Acquire(ctx, cfg)
	if err != nil {
		return err
	}
	if conn == nil {
		if conn, err = database.OpenSource(ctx, cfg); err != nil {
			return err
		}
	}
	defer conn.Close()

	results, err := s.unload(ctx, cfg, opts, model, conn)
	if err != nil {
		return err
	}

	fmt.Fprintln(s.out)
	fmt.Fprintln(s.out, "Unload completed successfully.")
	for _, r := range results {
		fmt.Fprintf(s.out, "%-30s %8d rows  %10d bytes  %s  %s\n",
			r.Table, r.Rows, r.Metadata.Size, shortChecksum(r.Metadata.Checksum),
			r.Metadata.CompletedAt.Sub(r.Metadata.StartedAt).Round(time.Millisecond))
	}
	return nil
}

func (s *Service) unload(ctx context.Context, cfg *config.Config, opts Options, model *schema.Model, conn *database.Connection) ([]unload.Result, error) {
	tables, err := s.selectTables(cfg, opts, model)
	if err != nil {
		return nil, err
	}
	if len(tables) == 0 {
		s.logger.Info("No tables to unload")
		return nil, nil
	}

	unloader := unload.NewUnloader(unload.NewSQLSource(conn.DB), s.logger, unload.Options{
		OutputDir: outputDir(cfg),
		Workers:   workers(cfg, opts),
		Tables:    tables,
		Format:    codec.Format(cfg.Target.Format),
		Delimiter: cfg.DelimiterByte(),
		Null:      cfg.Target.NullValue,
		Encoding:  cfg.Source.Encoding,
		Progress:  progress.NewBar(-1, "Unloading rows"),
	})

	results, err := unloader.Run(ctx, model)
	if err != nil {
		return nil, err
	}
	if err := unload.Apply(model, results); err != nil {
		return nil, err
	}
	return results, nil
}

// selectTables resolves the unload allow-list. Hybrid mode only unloads tables
// the reload script loads data into.
func (s *Service) selectTables(cfg *config.Config, opts Options, model *schema.Model) ([]string, error) {
	allow := allowList(cfg, opts)

	var candidates []*schema.Table
	for _, t := range model.TablesByID() {
		if cfg.Source.Mode == config.ModeHybrid && t.Content == nil {
			continue
		}
		if len(allow) > 0 && !slices.Contains(allow, t.Name) {
			continue
		}
		candidates = append(candidates, t)
	}

	if opts.Interactive {
		infos := make([]interactive.TableInfo, len(candidates))
		for i, t := range candidates {
			infos[i] = interactive.TableInfo{Name: t.Name, Owner: t.Owner, Columns: len(t.Columns)}
		}
		return s.prompt.SelectTables(infos)
	}

	names := make([]string, len(candidates))
	for i, t := range candidates {
		names[i] = t.Name
	}
	return names, nil
}

func (s *Service) writeScript(cfg *config.Config, opts Options, script *generator.Script) error {
	if strings.TrimSpace(cfg.Target.OutputPath) == "" {
		_, err := script.WriteTo(s.out)
		return err
	}

	path := filepath.Join(cfg.Target.OutputPath, cfg.Target.ScriptName)
	if _, err := os.Stat(path); err == nil && !opts.Yes {
		if !s.prompt.ConfirmAction("overwrite", path) {
			s.logger.Info("Operation cancelled by user.")
			return nil
		}
	}

	if err := os.MkdirAll(cfg.Target.OutputPath, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create script file: %w", err)
	}
	defer file.Close()

	if _, err := script.WriteTo(file); err != nil {
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close script file: %w", err)
	}

	s.logger.Infof("Target script written to %s", path)
	return nil
}

// Apply creates roles, the database and the schema on the configured PostgreSQL server.
func (s *Service) Apply(ctx context.Context, cfg *config.Config, opts Options) error {
	model, conn, err := s.Acquire(ctx, cfg)
	if err != nil {
		return err
	}
	if conn != nil {
		conn.Close()
	}

	script, err := generator.NewPostgres(generator.OptionsFromConfig(cfg), s.logger).Build(model)
	if err != nil {
		return fmt.Errorf("failed to generate target script: %w", err)
	}

	if opts.CreateDatabase {
		if !opts.Yes && !s.prompt.ConfirmAction("drop and create database", cfg.Target.Database) {
			s.logger.Info("Operation cancelled by user.")
			return nil
		}
		admin, err := database.OpenTarget(ctx, cfg, "postgres")
		if err != nil {
			return err
		}
		err = apply.NewCreator(admin, s.logger).PrepareDatabase(ctx, script)
		admin.Close()
		if err != nil {
			return fmt.Errorf("failed to prepare database: %w", err)
		}
	}

	target, err := database.OpenTarget(ctx, cfg, cfg.Target.Database)
	if err != nil {
		return err
	}
	defer target.Close()

	if err := apply.NewCreator(target, s.logger).CreateSchema(ctx, script); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}

	s.logger.Info("Schema applied successfully!")
	return nil
}

// Load streams the data files into the target database with COPY FROM STDIN.
func (s *Service) Load(ctx context.Context, cfg *config.Config, opts Options) error {
	model, conn, err := s.Acquire(ctx, cfg)
	if err != nil {
		return err
	}
	if conn != nil {
		conn.Close()
	}

	allow := allowList(cfg, opts)
	dataDir := opts.DataDir
	if cfg.Source.Mode != config.ModeReload {
		if dataDir == "" {
			dataDir = filepath.Join(outputDir(cfg), "unloaded")
		}
		attachUnloaded(model, cfg, allow, dataDir)
	}

	copier, err := load.Connect(ctx, cfg.PgxURL(cfg.Target.Database), workers(cfg, opts))
	if err != nil {
		return err
	}
	defer copier.Close()

	loader := load.NewLoader(copier, s.logger, load.Options{
		Workers:   workers(cfg, opts),
		Delimiter: cfg.DelimiterByte(),
		Null:      cfg.Target.NullValue,
		Encoding:  cfg.Source.Encoding,
		Tables:    allow,
		Progress:  progress.NewBar(-1, "Loading rows"),
	})

	results, err := loader.Run(ctx, model, dataDir)
	if err != nil {
		return err
	}

	var rows int64
	for _, r := range results {
		rows += r.Rows
	}
	s.logger.Infof("%d rows loaded into %d tables", rows, len(results))
	return nil
}

// attachUnloaded points table contents at the files written by a previous unload.
func attachUnloaded(model *schema.Model, cfg *config.Config, allow []string, dataDir string) {
	for _, t := range model.TablesByID() {
		if cfg.Source.Mode == config.ModeHybrid && t.Content == nil {
			continue
		}
		if len(allow) > 0 && !slices.Contains(allow, t.Name) {
			continue
		}
		path := filepath.Join(dataDir, t.Name+".dat")
		if _, err := os.Stat(path); err != nil {
			continue
		}

		content := &schema.TableContent{File: path, Encoding: cfg.Source.Encoding}
		if t.Content != nil {
			content.Columns = t.Content.Columns
		}
		t.Content = content
	}
}

// allowList prefers the command line tables over target.tables.
func allowList(cfg *config.Config, opts Options) []string {
	if len(opts.Tables) > 0 {
		return opts.Tables
	}
	return cfg.Target.Tables
}

func outputDir(cfg *config.Config) string {
	if strings.TrimSpace(cfg.Target.OutputPath) == "" {
		return "."
	}
	return cfg.Target.OutputPath
}

func workers(cfg *config.Config, opts Options) int {
	if opts.Workers > 0 {
		return opts.Workers
	}
	return cfg.Target.Workers
}

func shortChecksum(checksum string) string {
	if len(checksum) <= 16 {
		return checksum
	}
	return checksum[:16] + "..."
}
