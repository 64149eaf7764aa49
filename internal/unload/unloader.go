package unload

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kadirbelkuyu/sqlanymig/internal/codec"
	"github.com/kadirbelkuyu/sqlanymig/internal/migerr"
	"github.com/kadirbelkuyu/sqlanymig/internal/schema"
	"github.com/kadirbelkuyu/sqlanymig/internal/textenc"
	"github.com/kadirbelkuyu/sqlanymig/pkg/logger"
	"github.com/kadirbelkuyu/sqlanymig/pkg/progress"
)

const DefaultWorkers = 20

type Options struct {
	OutputDir string
	Workers   int
	// Tables restricts the unload to the named tables. Empty means all.
	Tables    []string
	Format    codec.Format
	Delimiter byte
	// Null is the NULL sentinel; nil means codec.DefaultNull.
	Null     *string
	Encoding string
	Progress *progress.Bar
}

type Result struct {
	Table    string
	Content  *schema.TableContent
	Rows     int64
	Metadata *Metadata
}

type Unloader struct {
	source RowSource
	logger *logger.Logger
	opts   Options
}

func NewUnloader(source RowSource, logger *logger.Logger, opts Options) *Unloader {
	if opts.Workers < 1 {
		opts.Workers = DefaultWorkers
	}
	if opts.Null == nil {
		null := codec.DefaultNull
		opts.Null = &null
	}
	if opts.Progress == nil {
		opts.Progress = progress.Silent()
	}
	return &Unloader{source: source, logger: logger, opts: opts}
}

// Dir is the directory data files are written to.
func (u *Unloader) Dir() string {
	return filepath.Join(u.opts.OutputDir, "unloaded")
}

// Selected returns the tables of model that pass the allow-list, ordered by id.
func (u *Unloader) Selected(model *schema.Model) []*schema.Table {
	var out []*schema.Table
	for _, t := range model.TablesByID() {
		if len(u.opts.Tables) == 0 || slices.Contains(u.opts.Tables, t.Name) {
			out = append(out, t)
		}
	}
	return out
}

// Run unloads every selected table in parallel. The first failure cancels the
// remaining jobs. The model is not modified; see Apply.
func (u *Unloader) Run(ctx context.Context, model *schema.Model) ([]Result, error) {
	tables := u.Selected(model)
	u.logger.Infof("Unloading %d tables with %d workers", len(tables), u.opts.Workers)

	if err := os.MkdirAll(u.Dir(), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	results := make([]Result, len(tables))
	formatter := codec.NewFormatter(u.opts.Format, u.opts.Delimiter, *u.opts.Null)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(u.opts.Workers)

	for i, table := range tables {
		g.Go(func() error {
			result, err := u.unloadTable(ctx, table, formatter)
			if err != nil {
				return migerr.New(migerr.ErrTableUnload, "unload table").WithTable(table.Name).WithCause(err)
			}
			results[i] = *result
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	u.opts.Progress.Finish()

	return results, nil
}

func (u *Unloader) unloadTable(ctx context.Context, table *schema.Table, formatter *codec.Formatter) (*Result, error) {
	started := time.Now()
	path := filepath.Join(u.Dir(), table.Name+".dat")
	log := u.logger.ForTable(table.Name)
	log.Infof("Unloading table data into %s", path)

	columns, err := table.ContentColumns()
	if err != nil {
		return nil, err
	}
	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = c.Name
	}

	cursor, err := u.source.Query(ctx, table, columns)
	if err != nil {
		return nil, err
	}
	defer cursor.Close()

	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create data file: %w", err)
	}
	defer file.Close()

	digest := newDigestWriter(file)
	encoded, err := textenc.NewWriter(digest, u.opts.Encoding)
	if err != nil {
		return nil, err
	}
	writer := bufio.NewWriter(encoded)

	var rows int64
	for cursor.Next() {
		values, err := cursor.Values()
		if err != nil {
			return nil, err
		}

		for i, v := range values {
			if !v.Valid && !columns[i].Nullable {
				log.Warnf("Value of column %s is NULL but the column is NOT NULL", columns[i].Name)
			}
		}

		record, err := formatter.FormatRecord(values, columns)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", rows+1, err)
		}
		if _, err := writer.WriteString(record); err != nil {
			return nil, fmt.Errorf("failed to write data file: %w", err)
		}
		if err := writer.WriteByte('\n'); err != nil {
			return nil, fmt.Errorf("failed to write data file: %w", err)
		}

		rows++
		u.opts.Progress.Increment()
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to read source rows: %w", err)
	}

	if err := writer.Flush(); err != nil {
		return nil, fmt.Errorf("failed to write data file: %w", err)
	}
	if err := encoded.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode data file: %w", err)
	}

	log.Infof("%d rows unloaded", rows)

	return &Result{
		Table: table.Name,
		Content: &schema.TableContent{
			File:     path,
			Columns:  names,
			Encoding: u.opts.Encoding,
		},
		Rows:     rows,
		Metadata: digest.metadata(path, started),
	}, nil
}

// Apply attaches unloaded contents to their tables once every job has finished.
func Apply(model *schema.Model, results []Result) error {
	for _, r := range results {
		table, err := model.LookupTable(r.Table, "attach table content", r.Content.File)
		if err != nil {
			return err
		}
		table.Content = r.Content
	}
	return nil
}
