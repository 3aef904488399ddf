package saleslog

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	cbigquery "cloud.google.com/go/bigquery"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	pkgbigquery "github.com/angelmondragon/smart-inventory/pkg/bigquery"
	"github.com/angelmondragon/smart-inventory/pkg/db/models"
)

type fakeIterator struct {
	rows []DailyTotal
	pos  int
}

func (it *fakeIterator) Next(dst any) error {
	if it.pos >= len(it.rows) {
		return iterator.Done
	}
	row := it.rows[it.pos]
	it.pos++
	v := reflect.ValueOf(dst).Elem()
	v.FieldByName("Day").Set(reflect.ValueOf(row.Day))
	v.FieldByName("TotalSold").SetInt(int64(row.TotalSold))
	return nil
}

type fakeWarehouse struct {
	insertErrs []error
	inserts    int
	inserted   []any
	sql        string
	params     []cbigquery.QueryParameter
	rows       []DailyTotal
	ensured    []pkgbigquery.TableSpec
}

func (w *fakeWarehouse) EnsureTable(_ context.Context, table pkgbigquery.TableSpec) error {
	w.ensured = append(w.ensured, table)
	return nil
}

func (w *fakeWarehouse) InsertRows(_ context.Context, _ string, rows []any) error {
	w.inserts++
	if len(w.insertErrs) > 0 {
		err := w.insertErrs[0]
		w.insertErrs = w.insertErrs[1:]
		if err != nil {
			return err
		}
	}
	w.inserted = rows
	return nil
}

func (w *fakeWarehouse) Query(_ context.Context, sql string, params []cbigquery.QueryParameter) (rowIterator, error) {
	w.sql = sql
	w.params = params
	return &fakeIterator{rows: w.rows}, nil
}

func fastRetry() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaximumBackoff: time.Millisecond}
}

func TestArchiveDailyTotalsQueriesQualifiedTable(t *testing.T) {
	day := time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)
	wh := &fakeWarehouse{rows: []DailyTotal{{Day: day, TotalSold: 4}, {Day: day.AddDate(0, 0, 1), TotalSold: 6}}}
	archive := newBigQueryArchive(wh, "product_daily_sales", "`p.d.product_daily_sales`", fastRetry())
	productID := uuid.New()

	totals, err := archive.DailyTotals(context.Background(), productID, nil)
	require.NoError(t, err)
	require.Len(t, totals, 2)
	require.Equal(t, 6, totals[1].TotalSold)
	require.True(t, strings.Contains(wh.sql, "`p.d.product_daily_sales`"))
	require.Equal(t, productID.String(), wh.params[0].Value)
}

func TestArchiveExportRetriesTransientErrors(t *testing.T) {
	wh := &fakeWarehouse{insertErrs: []error{&googleapi.Error{Code: 503}, status.Error(codes.Unavailable, "busy")}}
	archive := newBigQueryArchive(wh, "product_daily_sales", "`p.d.t`", fastRetry())
	exported := time.Date(2026, 3, 15, 1, 0, 0, 0, time.UTC)
	archive.now = func() time.Time { return exported }

	metric := models.ProductDailyMetric{
		ProductID: uuid.New(),
		Day:       time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
		TotalSold: 5,
		Revenue:   decimal.RequireFromString("52.50"),
	}
	require.NoError(t, archive.Export(context.Background(), []models.ProductDailyMetric{metric}))
	require.Equal(t, 3, wh.inserts)

	row, ok := wh.inserted[0].(*DailySalesRow)
	require.True(t, ok)
	require.Equal(t, metric.ProductID.String(), row.ProductID)
	require.Equal(t, 52.5, row.Revenue)
	require.Equal(t, exported, row.ExportedAt)
}

func TestArchiveExportStopsOnPermanentError(t *testing.T) {
	wh := &fakeWarehouse{insertErrs: []error{&googleapi.Error{Code: 400}}}
	archive := newBigQueryArchive(wh, "product_daily_sales", "`p.d.t`", fastRetry())

	err := archive.Export(context.Background(), []models.ProductDailyMetric{{ProductID: uuid.New()}})
	require.Error(t, err)
	require.Equal(t, 1, wh.inserts)
}

func TestArchiveExportSkipsEmptyBatch(t *testing.T) {
	wh := &fakeWarehouse{}
	archive := newBigQueryArchive(wh, "t", "`p.d.t`", fastRetry())
	require.NoError(t, archive.Export(context.Background(), nil))
	require.Zero(t, wh.inserts)
}

func TestIsRetryableBigQueryError(t *testing.T) {
	require.True(t, isRetryableBigQueryError(&googleapi.Error{Code: 429}))
	require.False(t, isRetryableBigQueryError(&googleapi.Error{Code: 404}))
	require.True(t, isRetryableBigQueryError(status.Error(codes.DeadlineExceeded, "slow")))
	require.False(t, isRetryableBigQueryError(errors.New("boom")))
	require.True(t, isRetryableBigQueryError(cbigquery.PutMultiError{
		{Errors: cbigquery.MultiError{&googleapi.Error{Code: 500}}},
	}))
	require.False(t, isRetryableBigQueryError(cbigquery.PutMultiError{}))
}

func TestNewBigQueryArchiveRequiresClient(t *testing.T) {
	_, err := NewBigQueryArchive(nil, RetryPolicy{})
	require.Error(t, err)
}

func TestArchiveEnsureSchemaPartitionsDailySales(t *testing.T) {
	wh := &fakeWarehouse{}
	archive := newBigQueryArchive(wh, "product_daily_sales", "`p.d.t`", fastRetry())

	require.NoError(t, archive.EnsureSchema(context.Background()))
	require.Len(t, wh.ensured, 1)

	table := wh.ensured[0]
	require.Equal(t, "product_daily_sales", table.Name)
	require.Equal(t, "day", table.PartitionField)
	require.Equal(t, []string{"product_id"}, table.Clustering)

	names := make([]string, 0, len(table.Schema))
	for _, field := range table.Schema {
		names = append(names, field.Name)
	}
	require.Contains(t, names, "day")
	require.Contains(t, names, "total_sold")
	require.Contains(t, names, "exported_at")
}
