// Package spreadsheet imports and exports invoice-key batches as .xlsx files.
//
// The expected layout is a single column of 44-digit keys, one per row, with
// an optional header row. Import is all-or-nothing: a malformed key rejects
// the whole file so a truncated batch is never silently accepted.
package spreadsheet

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/KevymLuccas/hbmxml/internal/domain/batch"
	"github.com/KevymLuccas/hbmxml/internal/domain/key"
	"github.com/KevymLuccas/hbmxml/pkg/logger"
)

// headerLabel is the column header written on export and tolerated on import.
const headerLabel = "Chave NFe"

// Loader reads and writes key batches.
type Loader struct {
	log logger.Logger
}

// Option applies a configuration option to the Loader.
type Option func(*Loader)

// WithLogger sets a custom logger for the loader.
func WithLogger(log logger.Logger) Option {
	return func(l *Loader) {
		if log != nil {
			l.log = log
		}
	}
}

// New creates a Loader.
func New(opts ...Option) *Loader {
	l := &Loader{}
	for _, opt := range opts {
		opt(l)
	}
	if l.log == nil {
		l.log = logger.Get().Named("spreadsheet")
	}
	return l
}

// Import reads the first sheet's first column into a batch. It fails with
// ErrMalformedFile when the file or sheet structure is unusable, with
// key.ErrInvalidKey when any cell is not a valid key, and with
// batch.ErrTooManyKeys past the batch limit. Duplicate keys are skipped and
// logged; they carry no extra work for the portal.
func (l *Loader) Import(ctx context.Context, path string) (*batch.Batch, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFile, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: no sheets", ErrMalformedFile)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFile, err)
	}

	b := batch.New()
	dups := 0
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell := strings.TrimSpace(row[0])
		if cell == "" {
			continue
		}
		if i == 0 && isHeader(cell) {
			continue
		}

		k, err := key.Parse(cell)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		switch err := b.AddKey(k); {
		case errors.Is(err, batch.ErrDuplicateKey):
			dups++
		case err != nil:
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
	}

	if b.Len() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoKeys, path)
	}
	if dups > 0 {
		l.log.Warn(ctx, "duplicate keys skipped on import",
			logger.Int("duplicates", dups), logger.String("path", path))
	}
	l.log.Info(ctx, "batch imported",
		logger.Int("keys", b.Len()), logger.String("path", path))
	return b, nil
}

// Export writes all keys of b to path as a single-column sheet.
func (l *Loader) Export(ctx context.Context, path string, b *batch.Batch) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	if err := f.SetCellValue(sheet, "A1", headerLabel); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, k := range b.Keys() {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("compute cell: %w", err)
		}
		// Force a string cell so leading zeros survive Excel.
		if err := f.SetCellStr(sheet, cell, k.String()); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save spreadsheet: %w", err)
	}
	l.log.Info(ctx, "batch exported",
		logger.Int("keys", b.Len()), logger.String("path", path))
	return nil
}

// isHeader reports whether a first-row cell is a column caption rather than
// a key. Anything containing a letter qualifies.
func isHeader(cell string) bool {
	return strings.ContainsFunc(cell, func(r rune) bool {
		return r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z'
	})
}
