package load

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/kadirbelkuyu/sqlanymig/internal/codec"
	"github.com/kadirbelkuyu/sqlanymig/internal/generator"
	"github.com/kadirbelkuyu/sqlanymig/internal/migerr"
	"github.com/kadirbelkuyu/sqlanymig/internal/schema"
	"github.com/kadirbelkuyu/sqlanymig/internal/textenc"
	"github.com/kadirbelkuyu/sqlanymig/pkg/logger"
	"github.com/kadirbelkuyu/sqlanymig/pkg/progress"
)

// Copier runs one COPY ... FROM STDIN statement fed by r.
type Copier interface {
	CopyFrom(ctx context.Context, r io.Reader, sql string) (pgconn.CommandTag, error)
}

// PoolCopier runs each COPY on its own pooled connection.
type PoolCopier struct {
	pool *pgxpool.Pool
}

// Connect opens a pool sized for workers concurrent COPY streams.
func Connect(ctx context.Context, url string, workers int) (*PoolCopier, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse target url: %w", err)
	}
	if workers > 0 {
		cfg.MaxConns = int32(workers)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to target: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to reach target database: %w", err)
	}
	return &PoolCopier{pool: pool}, nil
}

func (p *PoolCopier) CopyFrom(ctx context.Context, r io.Reader, sql string) (pgconn.CommandTag, error) {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return pgconn.CommandTag{}, fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Release()

	return conn.Conn().PgConn().CopyFrom(ctx, r, sql)
}

func (p *PoolCopier) Close() {
	p.pool.Close()
}

type Options struct {
	Workers   int
	Delimiter byte
	// Null is the NULL sentinel; nil means codec.DefaultNull.
	Null *string
	// Encoding is used for tables whose content has none.
	Encoding string
	// Tables restricts the load to the named tables. Empty means all.
	Tables   []string
	Progress *progress.Bar
}

type Result struct {
	Table string
	File  string
	Rows  int64
}

type Loader struct {
	copier Copier
	logger *logger.Logger
	opts   Options
}

func NewLoader(copier Copier, logger *logger.Logger, opts Options) *Loader {
	if opts.Workers < 1 {
		opts.Workers = 20
	}
	if opts.Delimiter == 0 {
		opts.Delimiter = codec.DefaultDelimiter
	}
	if opts.Null == nil {
		null := codec.DefaultNull
		opts.Null = &null
	}
	if opts.Progress == nil {
		opts.Progress = progress.Silent()
	}
	return &Loader{copier: copier, logger: logger, opts: opts}
}

// Statement builds the COPY FROM STDIN statement for table.
func (l *Loader) Statement(table *schema.Table, columns []*schema.Column) string {
	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = generator.Ident(c.Name)
	}

	encoding := table.Content.Encoding
	if encoding == "" {
		encoding = l.opts.Encoding
	}

	return fmt.Sprintf("COPY %s ( %s ) FROM STDIN ( FORMAT TEXT, DELIMITER %s, ENCODING %s, NULL %s )",
		generator.Ident(table.Name),
		strings.Join(names, ", "),
		generator.Literal(string(l.opts.Delimiter)),
		generator.Literal(textenc.PostgresName(encoding)),
		generator.Literal(*l.opts.Null),
	)
}

// Selected returns the tables of model with content that pass the allow-list, ordered by id.
func (l *Loader) Selected(model *schema.Model) []*schema.Table {
	var out []*schema.Table
	for _, t := range model.TablesByID() {
		if t.Content == nil {
			continue
		}
		if len(l.opts.Tables) == 0 || slices.Contains(l.opts.Tables, t.Name) {
			out = append(out, t)
		}
	}
	return out
}

// Run loads every selected table. Files are looked up in dataDir by base
// name when dataDir is set, otherwise at the recorded path.
func (l *Loader) Run(ctx context.Context, model *schema.Model, dataDir string) ([]Result, error) {
	tables := l.Selected(model)
	l.logger.Infof("Loading %d tables with %d workers", len(tables), l.opts.Workers)

	results := make([]Result, len(tables))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(l.opts.Workers)

	for i, table := range tables {
		g.Go(func() error {
			result, err := l.loadTable(ctx, table, l.file(table, dataDir))
			if err != nil {
				return err
			}
			results[i] = *result
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	l.opts.Progress.Finish()

	return results, nil
}

func (l *Loader) file(table *schema.Table, dataDir string) string {
	file := table.Content.File
	if dataDir == "" {
		return file
	}
	return filepath.Join(dataDir, filepath.Base(strings.ReplaceAll(file, `\`, "/")))
}

func (l *Loader) loadTable(ctx context.Context, table *schema.Table, path string) (*Result, error) {
	log := l.logger.ForTable(table.Name)

	columns, err := table.ContentColumns()
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open data file for %s: %w", table.Name, err)
	}
	defer file.Close()

	log.Infof("Loading %s", path)

	pr, pw := io.Pipe()
	var invalid error
	done := make(chan struct{})
	go func() {
		defer close(done)
		invalid = l.stream(pw, file, table.Name, len(columns))
		pw.CloseWithError(invalid)
	}()

	tag, copyErr := l.copier.CopyFrom(ctx, pr, l.Statement(table, columns))
	pr.CloseWithError(errors.New("copy finished"))
	<-done

	if invalid != nil {
		return nil, invalid
	}
	if copyErr != nil {
		return nil, fmt.Errorf("failed to copy %s: %w", table.Name, copyErr)
	}

	log.Infof("%d rows loaded", tag.RowsAffected())
	return &Result{Table: table.Name, File: path, Rows: tag.RowsAffected()}, nil
}

// stream copies records from r to w, rejecting any record whose field count
// does not match the content columns.
func (l *Loader) stream(w io.Writer, r io.Reader, table string, width int) error {
	reader := bufio.NewReaderSize(r, 64*1024)
	line := 0
	for {
		record, readErr := reader.ReadBytes('\n')
		if len(record) > 0 {
			line++
			fields := codec.SplitRecord(string(bytes.TrimRight(record, "\r\n")), l.opts.Delimiter)
			if len(fields) != width {
				return migerr.New(migerr.ErrMalformed, "validate data file").
					WithTable(table).
					WithCause(fmt.Errorf("line %d has %d fields, expected %d", line, len(fields), width)).
					WithSnippet(string(record))
			}
			if _, err := w.Write(record); err != nil {
				// the COPY side stopped reading and reports its own error
				return nil
			}
			l.opts.Progress.Increment()
		}
		if readErr == io.EOF {
			return nil
		}
		if readErr != nil {
			return fmt.Errorf("failed to read data file: %w", readErr)
		}
	}
}
