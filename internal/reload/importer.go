package reload

import (
	"fmt"
	"os"

	"github.com/kadirbelkuyu/sqlanymig/internal/schema"
	"github.com/kadirbelkuyu/sqlanymig/internal/textenc"
	"github.com/kadirbelkuyu/sqlanymig/pkg/logger"
)

// Importer builds a schema model from a reload script.
type Importer struct {
	logger   *logger.Logger
	encoding string
	observer func(*schema.Table)
}

func NewImporter(logger *logger.Logger, encoding string) *Importer {
	return &Importer{
		logger:   logger,
		encoding: encoding,
	}
}

// OnLoadTable registers a callback invoked after each load table section was applied.
func (i *Importer) OnLoadTable(fn func(*schema.Table)) {
	i.observer = fn
}

func (i *Importer) ImportFile(path string) (*schema.Model, error) {
	i.logger.Infof("Reading reload script %s (%s)", path, i.encoding)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read reload script: %w", err)
	}

	script, err := textenc.DecodeBytes(data, i.encoding)
	if err != nil {
		return nil, err
	}

	return i.Import(script)
}

// Import folds every section of the script into a new model. The first fatal
// section error aborts the import.
func (i *Importer) Import(script string) (*schema.Model, error) {
	model := schema.NewModel()

	var count, skipped int
	for section := range Sections(NormalizeNewlines(script)) {
		count++

		st, ok := classify(section)
		if !ok {
			skipped++
			i.logger.Debugf("Skipping unsupported section:\n%s", section)
			continue
		}

		if err := st.extract(model, section); err != nil {
			return nil, fmt.Errorf("failed to process %s section %d: %w", st.kind, count, err)
		}

		if st.kind != KindLoadTable {
			continue
		}
		if table, ok := lastLoaded(model, section); ok {
			if table.Content.Encoding == "" {
				table.Content.Encoding = i.encoding
			}
			if i.observer != nil {
				i.observer(table)
			}
		}
	}

	i.logger.Infof("%d sections read, %d skipped: %d tables, %d sequences, %d foreign keys, %d indexes",
		count, skipped, len(model.Tables), len(model.Sequences), len(model.ForeignKeys), len(model.Indexes))

	return model, nil
}

func lastLoaded(model *schema.Model, section string) (*schema.Table, bool) {
	match := loadTablePattern.FindStringSubmatch(section)
	if match == nil {
		return nil, false
	}
	return model.Table(match[2])
}
