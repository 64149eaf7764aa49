package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirbelkuyu/sqlanymig/internal/config"
	"github.com/kadirbelkuyu/sqlanymig/internal/schema"
	"github.com/kadirbelkuyu/sqlanymig/pkg/interactive"
	"github.com/kadirbelkuyu/sqlanymig/pkg/logger"
)

const reloadFixture = "../reload/testdata/reload.sql"

type fakePrompt struct {
	confirm  bool
	asked    int
	selected []string
	offered  []interactive.TableInfo
}

func (p *fakePrompt) SelectTables(tables []interactive.TableInfo) ([]string, error) {
	p.offered = tables
	return p.selected, nil
}

func (p *fakePrompt) ConfirmAction(string, string) bool {
	p.asked++
	return p.confirm
}

func reloadConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Source.File = reloadFixture
	cfg.Source.Encoding = "windows-1252"
	cfg.Target.Database = "Shop"
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestConvertWritesScriptToOutput(t *testing.T) {
	var out bytes.Buffer
	svc := NewService(logger.Discard(), &out, &fakePrompt{})

	require.NoError(t, svc.Convert(context.Background(), reloadConfig(t), Options{}))

	script := out.String()
	assert.Contains(t, script, "CREATE DATABASE \"Shop\"")
	assert.Contains(t, script, "CREATE TABLE Customer (")
	assert.Contains(t, script, "CREATE SEQUENCE InvoiceNo")
	assert.Contains(t, script, "FROM '/db_unloaded/unload/401.dat'")
}

func TestConvertAsksBeforeOverwriting(t *testing.T) {
	cfg := reloadConfig(t)
	cfg.Target.OutputPath = t.TempDir()
	path := filepath.Join(cfg.Target.OutputPath, cfg.Target.ScriptName)
	require.NoError(t, os.WriteFile(path, []byte("keep"), 0o644))

	prompt := &fakePrompt{}
	svc := NewService(logger.Discard(), &bytes.Buffer{}, prompt)

	require.NoError(t, svc.Convert(context.Background(), cfg, Options{}))
	assert.Equal(t, 1, prompt.asked)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "keep", string(data))

	require.NoError(t, svc.Convert(context.Background(), cfg, Options{Yes: true}))
	assert.Equal(t, 1, prompt.asked)
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "CREATE TABLE Orders (")
}

func TestConvertReportsImportFailure(t *testing.T) {
	cfg := reloadConfig(t)
	cfg.Source.File = filepath.Join(t.TempDir(), "missing.sql")

	err := NewService(logger.Discard(), &bytes.Buffer{}, &fakePrompt{}).Convert(context.Background(), cfg, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to import reload script")
}

func modelWithContent() *schema.Model {
	m := schema.NewModel()
	customer := &schema.Table{ID: 401, Name: "Customer", Owner: "dba"}
	customer.AddColumn(&schema.Column{Name: "Id"})
	customer.AddColumn(&schema.Column{Name: "Name"})
	customer.Content = &schema.TableContent{File: "C:/unload/401.dat", Columns: []string{"Name", "Id"}}
	m.AddTable(customer)
	m.AddTable(&schema.Table{ID: 402, Name: "Orders", Owner: "dba"})
	m.AddTable(&schema.Table{ID: 403, Name: "Audit", Owner: "dba"})
	return m
}

func TestSelectTables(t *testing.T) {
	svc := NewService(logger.Discard(), &bytes.Buffer{}, &fakePrompt{})
	cfg := config.Default()

	cfg.Source.Mode = config.ModeCatalog
	names, err := svc.selectTables(cfg, Options{}, modelWithContent())
	require.NoError(t, err)
	assert.Equal(t, []string{"Customer", "Orders", "Audit"}, names)

	names, err = svc.selectTables(cfg, Options{Tables: []string{"Audit", "Customer"}}, modelWithContent())
	require.NoError(t, err)
	assert.Equal(t, []string{"Customer", "Audit"}, names)

	cfg.Source.Mode = config.ModeHybrid
	names, err = svc.selectTables(cfg, Options{}, modelWithContent())
	require.NoError(t, err)
	assert.Equal(t, []string{"Customer"}, names)
}

func TestSelectTablesInteractive(t *testing.T) {
	prompt := &fakePrompt{selected: []string{"Orders"}}
	svc := NewService(logger.Discard(), &bytes.Buffer{}, prompt)
	cfg := config.Default()
	cfg.Source.Mode = config.ModeCatalog

	names, err := svc.selectTables(cfg, Options{Interactive: true}, modelWithContent())
	require.NoError(t, err)
	assert.Equal(t, []string{"Orders"}, names)
	require.Len(t, prompt.offered, 3)
	assert.Equal(t, interactive.TableInfo{Name: "Customer", Owner: "dba", Columns: 2}, prompt.offered[0])
}

func TestAttachUnloaded(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"Customer.dat", "Orders.dat"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}

	cfg := config.Default()
	cfg.Source.Mode = config.ModeHybrid
	cfg.Source.Encoding = "windows-1252"
	model := modelWithContent()
	attachUnloaded(model, cfg, nil, dir)

	customer, _ := model.Table("Customer")
	assert.Equal(t, &schema.TableContent{
		File:     filepath.Join(dir, "Customer.dat"),
		Columns:  []string{"Name", "Id"},
		Encoding: "windows-1252",
	}, customer.Content)
	orders, _ := model.Table("Orders")
	assert.Nil(t, orders.Content)

	cfg.Source.Mode = config.ModeCatalog
	model = modelWithContent()
	attachUnloaded(model, cfg, nil, dir)
	orders, _ = model.Table("Orders")
	require.NotNil(t, orders.Content)
	assert.Empty(t, orders.Content.Columns)
	audit, _ := model.Table("Audit")
	assert.Nil(t, audit.Content)
}

func TestShortChecksum(t *testing.T) {
	assert.Equal(t, "abc", shortChecksum("abc"))
	assert.Equal(t, "0123456789abcdef...", shortChecksum("0123456789abcdef0123"))
}

func TestAllowListPrefersCommandLine(t *testing.T) {
	cfg := config.Default()
	cfg.Target.Tables = []string{"Orders"}

	assert.Equal(t, []string{"Orders"}, allowList(cfg, Options{}))
	assert.Equal(t, []string{"Customer"}, allowList(cfg, Options{Tables: []string{"Customer"}}))
}

func TestAttachUnloadedHonoursAllowList(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"Customer.dat", "Orders.dat"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}

	cfg := config.Default()
	cfg.Source.Mode = config.ModeCatalog
	model := modelWithContent()
	attachUnloaded(model, cfg, []string{"Orders"}, dir)

	orders, _ := model.Table("Orders")
	require.NotNil(t, orders.Content)
	assert.Equal(t, filepath.Join(dir, "Orders.dat"), orders.Content.File)
	customer, _ := model.Table("Customer")
	assert.Equal(t, "C:/unload/401.dat", customer.Content.File, "tables outside the allow-list keep their content")
}
