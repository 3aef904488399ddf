package bigquery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/angelmondragon/smart-inventory/pkg/config"
	"github.com/angelmondragon/smart-inventory/pkg/logger"
)

const metadataCheckTimeout = 10 * time.Second

var (
	errProjectIDRequired    = errors.New("gcp project id is required")
	errDatasetRequired      = errors.New("bigquery dataset is required")
	errTableNameRequired    = errors.New("bigquery table name is required")
	errClientNotInitialized = errors.New("bigquery client not initialized")
)

// TableSpec describes a day-partitioned table the service writes to.
type TableSpec struct {
	Name           string
	Schema         bigquery.Schema
	PartitionField string
	Clustering     []string
}

// Client wraps the warehouse dataset holding archived inventory history.
type Client struct {
	client    *bigquery.Client
	dataset   *bigquery.Dataset
	projectID string
	cfg       config.BigQueryConfig
	logg      *logger.Logger

	mu     sync.Mutex
	tables map[string]struct{}
}

// NewClient connects to the configured dataset, which must already exist.
// Tables are checked or created through EnsureTable.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.BigQueryConfig, logg *logger.Logger) (*Client, error) {
	projectID := strings.TrimSpace(gcp.ProjectID)
	if projectID == "" {
		return nil, errProjectIDRequired
	}
	datasetID := strings.TrimSpace(cfg.Dataset)
	if datasetID == "" {
		return nil, errDatasetRequired
	}

	bqClient, err := bigquery.NewClient(ctx, projectID, clientOptions(gcp)...)
	if err != nil {
		return nil, fmt.Errorf("creating bigquery client: %w", err)
	}
	if loc := strings.TrimSpace(cfg.Location); loc != "" {
		bqClient.Location = loc
	}

	client := &Client{
		client:    bqClient,
		dataset:   bqClient.Dataset(datasetID),
		projectID: projectID,
		cfg:       cfg,
		logg:      logg,
		tables:    map[string]struct{}{},
	}
	if err := client.checkDataset(ctx); err != nil {
		_ = bqClient.Close()
		return nil, err
	}

	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{"dataset": datasetID, "location": bqClient.Location}), "bigquery client initialized")
	}
	return client, nil
}

func clientOptions(gcp config.GCPConfig) []option.ClientOption {
	switch {
	case strings.TrimSpace(gcp.CredentialsJSON) != "":
		return []option.ClientOption{option.WithCredentialsJSON([]byte(gcp.CredentialsJSON))}
	case strings.TrimSpace(gcp.ApplicationCredentials) != "":
		return []option.ClientOption{option.WithCredentialsFile(gcp.ApplicationCredentials)}
	}
	return nil
}

func (c *Client) checkDataset(ctx context.Context) error {
	if c == nil || c.dataset == nil {
		return errClientNotInitialized
	}
	ctx, cancel := context.WithTimeout(ctx, metadataCheckTimeout)
	defer cancel()

	if _, err := c.dataset.Metadata(ctx); err != nil {
		if isNotFound(err) {
			return fmt.Errorf("dataset %q does not exist", c.dataset.DatasetID)
		}
		return fmt.Errorf("checking dataset %q: %w", c.dataset.DatasetID, err)
	}
	return nil
}

// EnsureTable verifies spec.Name exists. Missing tables are created with
// daily partitioning when AutoCreateTables is set and reported otherwise.
func (c *Client) EnsureTable(ctx context.Context, spec TableSpec) error {
	if c == nil || c.dataset == nil {
		return errClientNotInitialized
	}
	name := strings.TrimSpace(spec.Name)
	if name == "" {
		return errTableNameRequired
	}

	ctx, cancel := context.WithTimeout(ctx, metadataCheckTimeout)
	defer cancel()

	table := c.dataset.Table(name)
	_, err := table.Metadata(ctx)
	switch {
	case err == nil:
	case !isNotFound(err):
		return fmt.Errorf("checking table %q: %w", name, err)
	case !c.cfg.AutoCreateTables:
		return fmt.Errorf("table %q does not exist", name)
	default:
		if err := table.Create(ctx, tableMetadata(spec)); err != nil && !isAlreadyExists(err) {
			return fmt.Errorf("creating table %q: %w", name, err)
		}
		if c.logg != nil {
			c.logg.Info(c.logg.WithFields(ctx, map[string]any{"table": name, "partition_field": spec.PartitionField}), "bigquery table created")
		}
	}

	c.mu.Lock()
	c.tables[name] = struct{}{}
	c.mu.Unlock()
	return nil
}

func tableMetadata(spec TableSpec) *bigquery.TableMetadata {
	meta := &bigquery.TableMetadata{Schema: spec.Schema}
	if spec.PartitionField != "" {
		meta.TimePartitioning = &bigquery.TimePartitioning{
			Type:  bigquery.DayPartitioningType,
			Field: spec.PartitionField,
		}
	}
	if len(spec.Clustering) > 0 {
		meta.Clustering = &bigquery.Clustering{Fields: spec.Clustering}
	}
	return meta
}

// Ping verifies the dataset and every table passed to EnsureTable are reachable.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.checkDataset(ctx); err != nil {
		return err
	}

	c.mu.Lock()
	names := make([]string, 0, len(c.tables))
	for name := range c.tables {
		names = append(names, name)
	}
	c.mu.Unlock()

	for _, name := range names {
		if _, err := c.dataset.Table(name).Metadata(ctx); err != nil {
			return fmt.Errorf("checking table %q: %w", name, err)
		}
	}
	return nil
}

// InsertRows streams rows into table. Rows implementing bigquery.ValueSaver
// control their own insert IDs.
func (c *Client) InsertRows(ctx context.Context, table string, rows []any) error {
	if c == nil || c.client == nil {
		return errClientNotInitialized
	}
	if strings.TrimSpace(table) == "" {
		return errTableNameRequired
	}
	if len(rows) == 0 {
		return nil
	}
	return c.dataset.Table(strings.TrimSpace(table)).Inserter().Put(ctx, rows)
}

// Query runs a parameterized query and labels the job for cost attribution.
func (c *Client) Query(ctx context.Context, sql string, params []bigquery.QueryParameter) (*bigquery.RowIterator, error) {
	if c == nil || c.client == nil {
		return nil, errClientNotInitialized
	}
	if strings.TrimSpace(sql) == "" {
		return nil, errors.New("sql query is required")
	}
	q := c.client.Query(sql)
	q.Parameters = params
	q.Labels = map[string]string{"service": "smart-inventory"}
	return q.Read(ctx)
}

// DailySalesTable returns the configured daily sales table name.
func (c *Client) DailySalesTable() string {
	if c == nil {
		return ""
	}
	return strings.TrimSpace(c.cfg.DailySalesTable)
}

// QualifiedTable returns the backtick-quoted project.dataset.table identifier for SQL.
func (c *Client) QualifiedTable(table string) string {
	if c == nil || c.dataset == nil {
		return ""
	}
	return qualifiedTable(c.projectID, c.dataset.DatasetID, table)
}

func qualifiedTable(projectID, datasetID, table string) string {
	return fmt.Sprintf("`%s.%s.%s`", projectID, datasetID, strings.TrimSpace(table))
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

func isNotFound(err error) bool {
	return apiErrorCode(err) == http.StatusNotFound
}

func isAlreadyExists(err error) bool {
	return apiErrorCode(err) == http.StatusConflict
}

func apiErrorCode(err error) int {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr != nil {
		return apiErr.Code
	}
	return 0
}
