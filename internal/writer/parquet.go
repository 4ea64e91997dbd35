package writer

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/decimal128"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/railzwaylabs/salesanalytics/internal/sales/domain"
	"github.com/railzwaylabs/salesanalytics/internal/sales/transform"
)

// moneyType stores presented amounts exactly, two decimals.
var moneyType = &arrow.Decimal128Type{Precision: 38, Scale: 2}

// maxUnscaledMoney is the first unscaled value moneyType cannot hold.
var maxUnscaledMoney = new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(moneyType.Precision)), nil)

var ErrMoneyOutOfRange = errors.New("amount exceeds parquet decimal precision")

var (
	dailyRevenueSchema = arrow.NewSchema([]arrow.Field{
		{Name: "date", Type: arrow.FixedWidthTypes.Date32},
		{Name: "total_revenue", Type: moneyType},
		{Name: "top_category", Type: arrow.BinaryTypes.String, Nullable: true},
		{Name: "top_category_revenue", Type: moneyType},
	}, nil)

	categoryRevenueSchema = arrow.NewSchema([]arrow.Field{
		{Name: "date", Type: arrow.FixedWidthTypes.Date32},
		{Name: "category", Type: arrow.BinaryTypes.String},
		{Name: "revenue", Type: moneyType},
		{Name: "total_units", Type: arrow.PrimitiveTypes.Int64},
	}, nil)

	productPerformanceSchema = arrow.NewSchema([]arrow.Field{
		{Name: "product_id", Type: arrow.BinaryTypes.String},
		{Name: "product_name", Type: arrow.BinaryTypes.String, Nullable: true},
		{Name: "category", Type: arrow.BinaryTypes.String},
		{Name: "total_units_transacted", Type: arrow.PrimitiveTypes.Int64},
		{Name: "units_sold", Type: arrow.PrimitiveTypes.Int64},
		{Name: "units_returned", Type: arrow.PrimitiveTypes.Int64},
		{Name: "revenue_completed", Type: moneyType},
		{Name: "revenue_returned", Type: moneyType},
		{Name: "return_rate_percent", Type: moneyType},
	}, nil)

	lowStockSchema = arrow.NewSchema([]arrow.Field{
		{Name: "product_id", Type: arrow.BinaryTypes.String},
		{Name: "product_name", Type: arrow.BinaryTypes.String, Nullable: true},
		{Name: "warehouse_id", Type: arrow.BinaryTypes.String},
		{Name: "stock_on_hand", Type: arrow.PrimitiveTypes.Int64},
		{Name: "last_restock_date", Type: arrow.FixedWidthTypes.Date32},
	}, nil)
)

type parquetEncoder struct {
	mem   memory.Allocator
	props *parquet.WriterProperties
}

func newParquetEncoder(mem memory.Allocator) *parquetEncoder {
	return &parquetEncoder{
		mem: mem,
		props: parquet.NewWriterProperties(
			parquet.WithCompression(compress.Codecs.Snappy),
			parquet.WithCreatedBy("salesanalytics"),
		),
	}
}

func (e *parquetEncoder) encode(schema *arrow.Schema, fill func(b *array.RecordBuilder) error) ([]byte, error) {
	b := array.NewRecordBuilder(e.mem, schema)
	defer b.Release()
	if err := fill(b); err != nil {
		return nil, err
	}

	rec := b.NewRecord()
	defer rec.Release()

	var buf bytes.Buffer
	fw, err := pqarrow.NewFileWriter(schema, &buf, e.props, pqarrow.DefaultWriterProps())
	if err != nil {
		return nil, fmt.Errorf("parquet writer: %w", err)
	}
	if err := fw.Write(rec); err != nil {
		fw.Close()
		return nil, fmt.Errorf("parquet write: %w", err)
	}
	if err := fw.Close(); err != nil {
		return nil, fmt.Errorf("parquet close: %w", err)
	}
	return buf.Bytes(), nil
}

func (e *parquetEncoder) dailyRevenue(rows []domain.DailyRevenueRow) ([]byte, error) {
	return e.encode(dailyRevenueSchema, func(b *array.RecordBuilder) error {
		for _, r := range rows {
			b.Field(0).(*array.Date32Builder).Append(arrow.Date32FromTime(r.Date))
			appendNullableString(b.Field(2), r.TopCategory)
			if err := appendMoneys(b, []int{1, 3}, r.TotalRevenue, r.TopCategoryRevenue); err != nil {
				return err
			}
		}
		return nil
	})
}

func (e *parquetEncoder) categoryRevenue(rows []domain.CategoryRevenueRow) ([]byte, error) {
	return e.encode(categoryRevenueSchema, func(b *array.RecordBuilder) error {
		for _, r := range rows {
			b.Field(0).(*array.Date32Builder).Append(arrow.Date32FromTime(r.Date))
			b.Field(1).(*array.StringBuilder).Append(r.Category)
			b.Field(3).(*array.Int64Builder).Append(r.Units)
			if err := appendMoney(b.Field(2), r.Revenue); err != nil {
				return err
			}
		}
		return nil
	})
}

func (e *parquetEncoder) productPerformance(rows []domain.ProductPerformanceRow) ([]byte, error) {
	return e.encode(productPerformanceSchema, func(b *array.RecordBuilder) error {
		for _, r := range rows {
			b.Field(0).(*array.StringBuilder).Append(r.ProductID)
			appendNullableString(b.Field(1), r.ProductName)
			b.Field(2).(*array.StringBuilder).Append(r.Category)
			b.Field(3).(*array.Int64Builder).Append(r.TotalUnitsTransacted)
			b.Field(4).(*array.Int64Builder).Append(r.UnitsSold)
			b.Field(5).(*array.Int64Builder).Append(r.UnitsReturned)
			if err := appendMoneys(b, []int{6, 7, 8}, r.RevenueCompleted, r.RevenueReturned, r.ReturnRatePercent); err != nil {
				return err
			}
		}
		return nil
	})
}

// lowStock encodes last_restock_date as the wall-clock calendar date, matching order dates.
func (e *parquetEncoder) lowStock(rows []domain.LowStockAlertRow) ([]byte, error) {
	return e.encode(lowStockSchema, func(b *array.RecordBuilder) error {
		for _, r := range rows {
			b.Field(0).(*array.StringBuilder).Append(r.ProductID)
			appendNullableString(b.Field(1), r.ProductName)
			b.Field(2).(*array.StringBuilder).Append(r.WarehouseID)
			b.Field(3).(*array.Int64Builder).Append(r.StockOnHand)
			b.Field(4).(*array.Date32Builder).Append(arrow.Date32FromTime(transform.DateKey(r.LastRestockDate)))
		}
		return nil
	})
}

func appendMoney(b array.Builder, m domain.Money) error {
	unscaled := m.Shift(moneyType.Scale).BigInt()
	if unscaled.CmpAbs(maxUnscaledMoney) >= 0 {
		return fmt.Errorf("%w: %s", ErrMoneyOutOfRange, m.StringFixed(moneyType.Scale))
	}
	b.(*array.Decimal128Builder).Append(decimal128.FromBigInt(unscaled))
	return nil
}

// appendMoneys appends values[i] to field fields[i].
func appendMoneys(b *array.RecordBuilder, fields []int, values ...domain.Money) error {
	for i, v := range values {
		if err := appendMoney(b.Field(fields[i]), v); err != nil {
			return err
		}
	}
	return nil
}

func appendNullableString(b array.Builder, v *string) {
	sb := b.(*array.StringBuilder)
	if v == nil {
		sb.AppendNull()
		return
	}
	sb.Append(*v)
}
