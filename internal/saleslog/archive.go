package saleslog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	cbigquery "cloud.google.com/go/bigquery"
	"github.com/google/uuid"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	pkgbigquery "github.com/angelmondragon/smart-inventory/pkg/bigquery"
	"github.com/angelmondragon/smart-inventory/pkg/db/models"
)

const (
	defaultMaxAttempts    = 3
	defaultInitialBackoff = 250 * time.Millisecond
	defaultMaximumBackoff = 2 * time.Second

	dailyTotalsSQL = `
SELECT day, SUM(total_sold) AS total_sold
FROM %s
WHERE product_id = @product_id
  AND day >= @since
GROUP BY day
ORDER BY day ASC
`
)

// RetryPolicy controls how many times BigQuery inserts are retried.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaximumBackoff time.Duration
}

// DailySalesRow is the BigQuery shape of one product_daily_metrics row.
type DailySalesRow struct {
	ProductID  string    `bigquery:"product_id"`
	Day        time.Time `bigquery:"day"`
	TotalSold  int64     `bigquery:"total_sold"`
	Views      int64     `bigquery:"views"`
	AddToCarts int64     `bigquery:"add_to_carts"`
	Revenue    float64   `bigquery:"revenue"`
	ExportedAt time.Time `bigquery:"exported_at"`
}

type rowIterator interface {
	Next(dst any) error
}

type warehouse interface {
	EnsureTable(ctx context.Context, table pkgbigquery.TableSpec) error
	InsertRows(ctx context.Context, table string, rows []any) error
	Query(ctx context.Context, sql string, params []cbigquery.QueryParameter) (rowIterator, error)
}

// BigQueryArchive keeps the long daily sales history in BigQuery. It serves
// seasonality reads that outgrow Postgres and receives the nightly rollup.
type BigQueryArchive struct {
	client         warehouse
	table          string
	qualifiedTable string
	retry          RetryPolicy
	now            func() time.Time
}

// NewBigQueryArchive binds the archive to the configured daily sales table.
func NewBigQueryArchive(client *pkgbigquery.Client, retry RetryPolicy) (*BigQueryArchive, error) {
	if client == nil {
		return nil, errors.New("bigquery client required")
	}
	table := strings.TrimSpace(client.DailySalesTable())
	if table == "" {
		return nil, errors.New("daily sales table is required")
	}
	return newBigQueryArchive(clientWarehouse{client: client}, table, client.QualifiedTable(table), retry), nil
}

func newBigQueryArchive(client warehouse, table, qualified string, retry RetryPolicy) *BigQueryArchive {
	if retry.MaxAttempts <= 0 {
		retry.MaxAttempts = defaultMaxAttempts
	}
	if retry.InitialBackoff <= 0 {
		retry.InitialBackoff = defaultInitialBackoff
	}
	if retry.MaximumBackoff <= 0 {
		retry.MaximumBackoff = defaultMaximumBackoff
	}
	if retry.MaximumBackoff < retry.InitialBackoff {
		retry.MaximumBackoff = retry.InitialBackoff
	}
	return &BigQueryArchive{
		client:         client,
		table:          table,
		qualifiedTable: qualified,
		retry:          retry,
		now:            time.Now,
	}
}

// EnsureSchema makes sure the daily sales table exists, partitioned by day and
// clustered by product so per-product history reads prune well.
func (a *BigQueryArchive) EnsureSchema(ctx context.Context) error {
	schema, err := cbigquery.InferSchema(DailySalesRow{})
	if err != nil {
		return fmt.Errorf("infer daily sales schema: %w", err)
	}
	return a.client.EnsureTable(ctx, pkgbigquery.TableSpec{
		Name:           a.table,
		Schema:         schema,
		PartitionField: "day",
		Clustering:     []string{"product_id"},
	})
}

// DailyTotals reads the archived daily totals for a product, oldest first.
func (a *BigQueryArchive) DailyTotals(ctx context.Context, productID uuid.UUID, since *time.Time) ([]DailyTotal, error) {
	from := time.Unix(0, 0).UTC()
	if since != nil {
		from = StartOfDay(*since)
	}
	params := []cbigquery.QueryParameter{
		{Name: "product_id", Value: productID.String()},
		{Name: "since", Value: from},
	}

	iter, err := a.client.Query(ctx, fmt.Sprintf(dailyTotalsSQL, a.qualifiedTable), params)
	if err != nil {
		return nil, fmt.Errorf("query daily totals: %w", err)
	}

	var totals []DailyTotal
	for {
		var row struct {
			Day       time.Time `bigquery:"day"`
			TotalSold int64     `bigquery:"total_sold"`
		}
		if err := iter.Next(&row); err != nil {
			if err == iterator.Done {
				break
			}
			return nil, fmt.Errorf("reading daily total row: %w", err)
		}
		totals = append(totals, DailyTotal{Day: row.Day.UTC(), TotalSold: int(row.TotalSold)})
	}
	return totals, nil
}

// Export appends rolled-up metrics to the archive table.
func (a *BigQueryArchive) Export(ctx context.Context, metrics []models.ProductDailyMetric) error {
	if len(metrics) == 0 {
		return nil
	}
	exportedAt := a.now().UTC()
	rows := make([]any, 0, len(metrics))
	for _, m := range metrics {
		rows = append(rows, &DailySalesRow{
			ProductID:  m.ProductID.String(),
			Day:        StartOfDay(m.Day),
			TotalSold:  int64(m.TotalSold),
			Views:      int64(m.Views),
			AddToCarts: int64(m.AddToCarts),
			Revenue:    m.Revenue.InexactFloat64(),
			ExportedAt: exportedAt,
		})
	}
	return a.insertWithRetry(ctx, rows)
}

func (a *BigQueryArchive) insertWithRetry(ctx context.Context, rows []any) error {
	attempts := 0
	backoff := a.retry.InitialBackoff

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := a.client.InsertRows(ctx, a.table, rows)
		if err == nil {
			return nil
		}

		attempts++
		if attempts >= a.retry.MaxAttempts || !isRetryableBigQueryError(err) {
			return fmt.Errorf("insert %s rows: %w", a.table, err)
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		backoff = min(backoff*2, a.retry.MaximumBackoff)
	}
}

func isRetryableBigQueryError(err error) bool {
	if err == nil {
		return false
	}

	var pme cbigquery.PutMultiError
	if errors.As(err, &pme) {
		if len(pme) == 0 {
			return false
		}
		for _, rowErr := range pme {
			if !isRetryableBigQueryError(rowErr.Errors) {
				return false
			}
		}
		return true
	}

	var multi cbigquery.MultiError
	if errors.As(err, &multi) {
		if len(multi) == 0 {
			return false
		}
		for _, inner := range multi {
			if !isRetryableBigQueryError(inner) {
				return false
			}
		}
		return true
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return isRetryableHTTPCode(apiErr.Code)
	}

	var statusErr interface{ GRPCStatus() *status.Status }
	if errors.As(err, &statusErr) {
		if st := statusErr.GRPCStatus(); st != nil {
			return isRetryableGRPCCode(st.Code())
		}
	}

	return false
}

func isRetryableHTTPCode(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusRequestTimeout,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

func isRetryableGRPCCode(code codes.Code) bool {
	switch code {
	case codes.Aborted,
		codes.DeadlineExceeded,
		codes.Internal,
		codes.ResourceExhausted,
		codes.Unavailable:
		return true
	default:
		return false
	}
}

type clientWarehouse struct {
	client *pkgbigquery.Client
}

func (w clientWarehouse) EnsureTable(ctx context.Context, spec pkgbigquery.TableSpec) error {
	return w.client.EnsureTable(ctx, spec)
}

func (w clientWarehouse) InsertRows(ctx context.Context, table string, rows []any) error {
	return w.client.InsertRows(ctx, table, rows)
}

func (w clientWarehouse) Query(ctx context.Context, sql string, params []cbigquery.QueryParameter) (rowIterator, error) {
	it, err := w.client.Query(ctx, sql, params)
	if err != nil {
		return nil, err
	}
	return it, nil
}
