// Package importer implements the CSV expense import pipeline: streaming
// parse, per-row validation, rule-based category resolution, and a single
// atomic bulk insert per file.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"spendtrack/internal/core"
	"spendtrack/internal/storage"
)

type Pipeline struct {
	store storage.Store
	rules []KeywordRule
}

// NewPipeline builds a pipeline over the given store. A nil rules slice
// selects DefaultKeywordRules.
func NewPipeline(store storage.Store, rules []KeywordRule) *Pipeline {
	if rules == nil {
		rules = DefaultKeywordRules()
	}
	return &Pipeline{store: store, rules: rules}
}

// Result reports one finished import. Skipped counts rejected rows, which
// never abort the batch.
type Result struct {
	ImportedCount int
	SkippedCount  int
}

// ImportFile runs Import over the file at path and removes the file on every
// exit path, exactly once.
func (p *Pipeline) ImportFile(ctx context.Context, userID int64, path string) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		removeUpload(ctx, path)
		return Result{}, fmt.Errorf("open upload: %w", err)
	}
	defer func() {
		f.Close()
		removeUpload(ctx, path)
	}()

	return p.Import(ctx, userID, f)
}

func removeUpload(ctx context.Context, path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.WarnContext(ctx, "Failed to remove uploaded file", "path", path, "error", err)
	}
}

// Import streams src as CSV with a header row naming columns out of
// {title, amount, date, merchant, category, categoryId} and imports every
// valid row for userID in one bulk write.
//
// The whole batch is aborted with core.ErrMissingUncategorized before any
// row is read when the user lacks an Uncategorized category. Individual row
// rejections are logged and skipped. A batch in which no row survives yields
// core.ErrEmptyBatch instead of a no-op insert.
func (p *Pipeline) Import(ctx context.Context, userID int64, src io.Reader) (Result, error) {
	cats, err := p.store.ListCategories(ctx, userID)
	if err != nil {
		return Result{}, fmt.Errorf("load categories: %w", err)
	}
	cm := BuildCategoryMap(cats)
	uncategorizedID, ok := cm.Lookup(core.UncategorizedName)
	if !ok {
		return Result{}, fmt.Errorf("user %d: %w", userID, core.ErrMissingUncategorized)
	}

	reader := csv.NewReader(src)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return Result{}, core.ErrEmptyBatch
	}
	if err != nil {
		return Result{}, fmt.Errorf("read header: %w", err)
	}
	cols := headerIndex(header)

	var (
		batch   []core.Expense
		skipped int
		line    = 1 // header consumed
	)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			// Malformed line: a per-row problem, not a batch failure.
			slog.WarnContext(ctx, "Import row unreadable", "line", line, "error", err)
			skipped++
			continue
		}

		raw := RawRow{
			Line:       line,
			Title:      field(record, cols, "title"),
			Amount:     field(record, cols, "amount"),
			Date:       field(record, cols, "date"),
			Merchant:   field(record, cols, "merchant"),
			Category:   field(record, cols, "category"),
			CategoryID: field(record, cols, "categoryid"),
		}

		row, err := ValidateRow(raw)
		if err != nil {
			slog.WarnContext(ctx, "Import row rejected", "line", line, "reason", err)
			skipped++
			continue
		}

		categoryID := Resolve(row.Merchant, row.CategoryHint, cm, p.rules, uncategorizedID)
		batch = append(batch, core.Expense{
			UserID:     userID,
			Title:      row.Title,
			Amount:     core.Money{Cents: row.AmountCents},
			Merchant:   row.Merchant,
			Date:       row.Date,
			CategoryID: &categoryID,
		})
	}

	if len(batch) == 0 {
		return Result{SkippedCount: skipped}, core.ErrEmptyBatch
	}

	inserted, err := p.store.BulkInsertExpenses(ctx, batch)
	if err != nil {
		return Result{SkippedCount: skipped}, fmt.Errorf("bulk insert batch: %w", err)
	}

	slog.InfoContext(ctx, "Import completed",
		"user_id", userID,
		"imported", inserted,
		"skipped", skipped)

	return Result{ImportedCount: inserted, SkippedCount: skipped}, nil
}

// headerIndex maps normalized column names to their positions. The
// categoryId column normalizes to "categoryid"; "category_id" is accepted
// too.
func headerIndex(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(name))
		key = strings.ReplaceAll(key, "_", "")
		cols[key] = i
	}
	return cols
}

func field(record []string, cols map[string]int, name string) string {
	i, ok := cols[name]
	if !ok || i >= len(record) {
		return ""
	}
	return record[i]
}
