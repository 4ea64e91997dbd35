// Package writer persists a presented partition as Parquet datasets, a JSON summary
// and bad-row CSV reports under an output directory.
package writer

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/railzwaylabs/salesanalytics/internal/sales/domain"
	"github.com/railzwaylabs/salesanalytics/internal/sales/validation"
	"go.uber.org/zap"
)

const (
	DatasetDailyRevenue       = "daily_revenue"
	DatasetCategoryRevenue    = "daily_category_revenue"
	DatasetProductPerformance = "product_performance"
	DatasetLowStock           = "low_stock"
)

var rejectionSources = []domain.Source{domain.SourceOrders, domain.SourceProducts, domain.SourceInventory}

type FileWriter struct {
	log     *zap.Logger
	parquet *parquetEncoder
}

func New(log *zap.Logger) *FileWriter {
	return &FileWriter{
		log:     log.Named("writer"),
		parquet: newParquetEncoder(memory.DefaultAllocator),
	}
}

// DatasetPath is processed/<dataset>/date=YYYY-MM-DD/data.parquet under outputDir.
func DatasetPath(outputDir, dataset, key string) string {
	return filepath.Join(outputDir, "processed", dataset, "date="+key, "data.parquet")
}

// SummaryPath is summaries/summary_YYYY-MM-DD.json under outputDir.
func SummaryPath(outputDir, key string) string {
	return filepath.Join(outputDir, "summaries", "summary_"+key+".json")
}

// BadRowsPath is bad_rows/<source>-YYYY-MM-DD.csv under outputDir.
func BadRowsPath(outputDir string, source domain.Source, key string) string {
	return filepath.Join(outputDir, "bad_rows", string(source)+"-"+key+".csv")
}

type artifact struct {
	path string
	rows int
	data []byte
}

// WritePartition writes every artifact of p. Artifacts hold no run-specific values, so
// writing the same partition twice yields identical bytes.
func (w *FileWriter) WritePartition(ctx context.Context, outputDir string, p domain.Partition) ([]domain.OutputFile, error) {
	if outputDir == "" {
		return nil, domain.ErrMissingLocation
	}
	key := p.Key()

	artifacts, err := w.encode(outputDir, key, p)
	if err != nil {
		return nil, err
	}

	out := make([]domain.OutputFile, 0, len(artifacts))
	for _, a := range artifacts {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		if err := writeAtomic(a.path, a.data); err != nil {
			return out, err
		}
		out = append(out, domain.OutputFile{Path: a.path, Checksum: checksum(a.data), Rows: a.rows})
	}

	for _, source := range rejectionSources {
		if hasRejections(p.Rejections, source) {
			continue
		}
		if err := removeIfExists(BadRowsPath(outputDir, source, key)); err != nil {
			return out, err
		}
	}

	w.log.Info("partition written",
		zap.String("date", key),
		zap.Int("files", len(out)),
		zap.Int("rejections", len(p.Rejections)),
	)
	return out, nil
}

func (w *FileWriter) encode(outputDir, key string, p domain.Partition) ([]artifact, error) {
	var artifacts []artifact

	add := func(path string, rows int, encode func() ([]byte, error)) error {
		data, err := encode()
		if err != nil {
			return fmt.Errorf("encode %s: %w", path, err)
		}
		artifacts = append(artifacts, artifact{path: path, rows: rows, data: data})
		return nil
	}

	steps := []struct {
		path   string
		rows   int
		encode func() ([]byte, error)
	}{
		{DatasetPath(outputDir, DatasetDailyRevenue, key), len(p.DailyRevenue), func() ([]byte, error) { return w.parquet.dailyRevenue(p.DailyRevenue) }},
		{DatasetPath(outputDir, DatasetCategoryRevenue, key), len(p.CategoryRevenue), func() ([]byte, error) { return w.parquet.categoryRevenue(p.CategoryRevenue) }},
		{DatasetPath(outputDir, DatasetProductPerformance, key), len(p.ProductPerformance), func() ([]byte, error) { return w.parquet.productPerformance(p.ProductPerformance) }},
		{DatasetPath(outputDir, DatasetLowStock, key), len(p.LowStock), func() ([]byte, error) { return w.parquet.lowStock(p.LowStock) }},
		{SummaryPath(outputDir, key), 1, func() ([]byte, error) { return encodeSummary(p.Summary) }},
	}
	for _, s := range steps {
		if err := add(s.path, s.rows, s.encode); err != nil {
			return nil, err
		}
	}

	for _, source := range rejectionSources {
		rows := rejectionsOf(p.Rejections, source)
		if len(rows) == 0 {
			continue
		}
		if err := add(BadRowsPath(outputDir, source, key), len(rows), func() ([]byte, error) {
			return encodeBadRows(source, rows)
		}); err != nil {
			return nil, err
		}
	}
	return artifacts, nil
}

func encodeSummary(s domain.DailySummary) ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// encodeBadRows writes the rejected records with their source columns first, any extra
// columns sorted after them, then _line and _error.
func encodeBadRows(source domain.Source, rows []domain.Rejection) ([]byte, error) {
	columns := badRowColumns(source, rows)

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	header := append(append([]string{}, columns...), "_line", "_error")
	if err := w.Write(header); err != nil {
		return nil, err
	}
	for _, r := range rows {
		record := make([]string, 0, len(header))
		for _, c := range columns {
			record = append(record, r.Record[c])
		}
		record = append(record, strconv.Itoa(r.Line), r.Reason)
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func badRowColumns(source domain.Source, rows []domain.Rejection) []string {
	var known []string
	switch source {
	case domain.SourceOrders:
		known = validation.OrderColumns
	case domain.SourceProducts:
		known = validation.ProductColumns
	case domain.SourceInventory:
		known = validation.InventoryColumns
	}

	seen := make(map[string]bool, len(known))
	columns := append([]string{}, known...)
	for _, c := range known {
		seen[c] = true
	}
	var extra []string
	for _, r := range rows {
		for c := range r.Record {
			if !seen[c] {
				seen[c] = true
				extra = append(extra, c)
			}
		}
	}
	sort.Strings(extra)
	return append(columns, extra...)
}

func rejectionsOf(all []domain.Rejection, source domain.Source) []domain.Rejection {
	var out []domain.Rejection
	for _, r := range all {
		if r.Source == source {
			out = append(out, r)
		}
	}
	return out
}

func hasRejections(all []domain.Rejection, source domain.Source) bool {
	for _, r := range all {
		if r.Source == source {
			return true
		}
	}
	return false
}
