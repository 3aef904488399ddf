package saleslog

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/smart-inventory/pkg/db/models"
	"github.com/angelmondragon/smart-inventory/pkg/enums"
)

// Repository reads and appends sales activity and its daily rollups.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, log *models.SalesLog) error
	SumPurchased(ctx context.Context, productID uuid.UUID, since time.Time) (int, error)
	UpsertDailyMetrics(ctx context.Context, dayStart, dayEnd time.Time) (int64, error)
	ListDailyMetrics(ctx context.Context, productID uuid.UUID, since *time.Time) ([]models.ProductDailyMetric, error)
	ListMetricsForDay(ctx context.Context, day time.Time) ([]models.ProductDailyMetric, error)
	LatestMetricDay(ctx context.Context) (*time.Time, error)
	SumTotalSold(ctx context.Context, productIDs []uuid.UUID, since time.Time) (map[uuid.UUID]int, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a sales log repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, log *models.SalesLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *repository) SumPurchased(ctx context.Context, productID uuid.UUID, since time.Time) (int, error) {
	var total int
	err := r.db.WithContext(ctx).
		Model(&models.SalesLog{}).
		Select("COALESCE(SUM(quantity), 0)").
		Where("product_id = ? AND action = ? AND created_at >= ?", productID, enums.SalesActionPurchased, since).
		Scan(&total).Error
	return total, err
}

// UpsertDailyMetrics folds every log in [dayStart, dayEnd) into one metrics
// row per product, replacing any previous rollup for that day.
func (r *repository) UpsertDailyMetrics(ctx context.Context, dayStart, dayEnd time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Exec(`
		INSERT INTO product_daily_metrics (product_id, day, total_sold, views, add_to_carts, revenue, updated_at)
		SELECT product_id,
			?,
			COALESCE(SUM(CASE WHEN action = 'purchased' THEN quantity ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN action = 'viewed' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN action = 'added_to_cart' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN action = 'purchased' THEN total_price ELSE 0 END), 0),
			CURRENT_TIMESTAMP
		FROM sales_logs
		WHERE created_at >= ? AND created_at < ?
		GROUP BY product_id
		ON CONFLICT (product_id, day) DO UPDATE SET
			total_sold = EXCLUDED.total_sold,
			views = EXCLUDED.views,
			add_to_carts = EXCLUDED.add_to_carts,
			revenue = EXCLUDED.revenue,
			updated_at = EXCLUDED.updated_at
	`, dayStart, dayStart, dayEnd)
	return res.RowsAffected, res.Error
}

func (r *repository) ListDailyMetrics(ctx context.Context, productID uuid.UUID, since *time.Time) ([]models.ProductDailyMetric, error) {
	query := r.db.WithContext(ctx).Where("product_id = ?", productID)
	if since != nil {
		query = query.Where("day >= ?", *since)
	}
	var metrics []models.ProductDailyMetric
	if err := query.Order("day ASC").Find(&metrics).Error; err != nil {
		return nil, err
	}
	return metrics, nil
}

func (r *repository) ListMetricsForDay(ctx context.Context, day time.Time) ([]models.ProductDailyMetric, error) {
	var metrics []models.ProductDailyMetric
	err := r.db.WithContext(ctx).
		Where("day = ?", day).
		Order("product_id ASC").
		Find(&metrics).Error
	if err != nil {
		return nil, err
	}
	return metrics, nil
}

// LatestMetricDay returns the most recent rolled-up day, or nil before the first rollup.
func (r *repository) LatestMetricDay(ctx context.Context) (*time.Time, error) {
	var metrics []models.ProductDailyMetric
	err := r.db.WithContext(ctx).
		Order("day DESC").
		Limit(1).
		Find(&metrics).Error
	if err != nil || len(metrics) == 0 {
		return nil, err
	}
	day := metrics[0].Day.UTC()
	return &day, nil
}

func (r *repository) SumTotalSold(ctx context.Context, productIDs []uuid.UUID, since time.Time) (map[uuid.UUID]int, error) {
	out := make(map[uuid.UUID]int, len(productIDs))
	if len(productIDs) == 0 {
		return out, nil
	}

	var rows []struct {
		ProductID uuid.UUID
		Total     int
	}
	err := r.db.WithContext(ctx).
		Model(&models.ProductDailyMetric{}).
		Select("product_id, COALESCE(SUM(total_sold), 0) AS total").
		Where("product_id IN ? AND day >= ?", productIDs, since).
		Group("product_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ProductID] = row.Total
	}
	return out, nil
}
