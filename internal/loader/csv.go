// Package loader reads the raw CSV sources of a batch from an input directory.
package loader

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/railzwaylabs/salesanalytics/internal/sales/domain"
	"go.uber.org/zap"
)

const (
	ProductsFile  = "products.csv"
	InventoryFile = "inventory.csv"
)

var ErrBatchNotFound = errors.New("batch_not_found")

var dateInName = regexp.MustCompile(`(\d{4}-\d{2}-\d{2}|\d{8})`)

type CSVLoader struct {
	log *zap.Logger
}

func New(log *zap.Logger) *CSVLoader {
	return &CSVLoader{log: log.Named("loader")}
}

// LoadOrders reads the orders file of date. When several files match, the first by
// name wins.
func (l *CSVLoader) LoadOrders(ctx context.Context, inputDir string, date time.Time) (domain.RawTable, error) {
	files, err := l.ordersFiles(inputDir)
	if err != nil {
		return domain.RawTable{}, err
	}
	key := date.Format(domain.DateLayout)
	var matches []string
	for _, f := range files {
		if f.date.Format(domain.DateLayout) == key {
			matches = append(matches, f.path)
		}
	}
	if len(matches) == 0 {
		return domain.RawTable{}, fmt.Errorf("%w: no orders file for %s in %s", ErrBatchNotFound, key, inputDir)
	}
	if len(matches) > 1 {
		l.log.Warn("multiple orders files for date, using first",
			zap.String("date", key),
			zap.Strings("files", matches),
		)
	}
	return ReadFile(ctx, domain.SourceOrders, matches[0])
}

func (l *CSVLoader) LoadProducts(ctx context.Context, inputDir string) (domain.RawTable, error) {
	return ReadFile(ctx, domain.SourceProducts, filepath.Join(inputDir, ProductsFile))
}

func (l *CSVLoader) LoadInventory(ctx context.Context, inputDir string) (domain.RawTable, error) {
	return ReadFile(ctx, domain.SourceInventory, filepath.Join(inputDir, InventoryFile))
}

// Discover lists every date that has an orders file, ascending and unique.
func (l *CSVLoader) Discover(ctx context.Context, inputDir string) ([]time.Time, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	files, err := l.ordersFiles(inputDir)
	if err != nil {
		return nil, err
	}
	seen := make(map[time.Time]struct{}, len(files))
	dates := make([]time.Time, 0, len(files))
	for _, f := range files {
		if _, ok := seen[f.date]; ok {
			continue
		}
		seen[f.date] = struct{}{}
		dates = append(dates, f.date)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates, nil
}

type ordersFile struct {
	path string
	date time.Time
}

func (l *CSVLoader) ordersFiles(inputDir string) ([]ordersFile, error) {
	entries, err := os.ReadDir(inputDir)
	if err != nil {
		return nil, fmt.Errorf("read input dir: %w", err)
	}
	var out []ordersFile
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		date, ok := OrdersFileDate(e.Name())
		if !ok {
			continue
		}
		out = append(out, ordersFile{path: filepath.Join(inputDir, e.Name()), date: date})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].path < out[j].path })
	return out, nil
}

// OrdersFileDate reports whether name follows the orders naming convention and returns
// its date: the name contains "order" in any case, a YYYYMMDD or YYYY-MM-DD date and
// ends in .csv.
func OrdersFileDate(name string) (time.Time, bool) {
	base := filepath.Base(name)
	lower := strings.ToLower(base)
	if !strings.HasSuffix(lower, ".csv") || !strings.Contains(lower, "order") {
		return time.Time{}, false
	}
	for _, candidate := range dateInName.FindAllString(base, -1) {
		if d, err := domain.ParseDateKey(candidate); err == nil {
			return d, true
		}
	}
	return time.Time{}, false
}

// ReadFile loads a CSV file with a header row. Header names are trimmed and lower-cased;
// data rows keep their raw values and 1-based source line numbers.
func ReadFile(ctx context.Context, source domain.Source, path string) (domain.RawTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.RawTable{}, fmt.Errorf("open %s: %w", source, err)
	}
	defer f.Close()

	table, err := Read(ctx, source, f)
	if err != nil {
		return domain.RawTable{}, fmt.Errorf("read %s: %w", path, err)
	}
	table.Path = path
	return table, nil
}

func Read(ctx context.Context, source domain.Source, r io.Reader) (domain.RawTable, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	table := domain.RawTable{Source: source}
	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return table, nil
	}
	if err != nil {
		return table, err
	}
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		table.Columns = append(table.Columns, strings.ToLower(strings.TrimSpace(h)))
	}

	for n := 0; ; n++ {
		if n%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return table, err
			}
		}
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return table, err
		}
		line, _ := reader.FieldPos(0)
		values := make(map[string]string, len(table.Columns))
		for i, col := range table.Columns {
			if i < len(record) {
				values[col] = record[i]
			}
		}
		table.Rows = append(table.Rows, domain.RawRow{Line: line, Values: values})
	}
	return table, nil
}
