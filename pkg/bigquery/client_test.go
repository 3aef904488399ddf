package bigquery

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"

	"github.com/angelmondragon/smart-inventory/pkg/config"
)

func TestTableMetadataPartitionsByDay(t *testing.T) {
	meta := tableMetadata(TableSpec{
		Name:           "product_daily_sales",
		Schema:         bigquery.Schema{{Name: "day", Type: bigquery.DateFieldType}},
		PartitionField: "day",
		Clustering:     []string{"product_id"},
	})

	if meta.TimePartitioning == nil || meta.TimePartitioning.Field != "day" || meta.TimePartitioning.Type != bigquery.DayPartitioningType {
		t.Fatalf("expected daily partitioning on day, got %+v", meta.TimePartitioning)
	}
	if meta.Clustering == nil || len(meta.Clustering.Fields) != 1 || meta.Clustering.Fields[0] != "product_id" {
		t.Fatalf("expected clustering on product_id, got %+v", meta.Clustering)
	}

	plain := tableMetadata(TableSpec{Name: "t"})
	if plain.TimePartitioning != nil || plain.Clustering != nil {
		t.Fatalf("expected an unpartitioned table")
	}
}

func TestQualifiedTable(t *testing.T) {
	got := qualifiedTable("inventory-prod", "smart_inventory", " product_daily_sales ")
	if got != "`inventory-prod.smart_inventory.product_daily_sales`" {
		t.Fatalf("unexpected qualified table %s", got)
	}

	var c *Client
	if c.QualifiedTable("t") != "" || c.DailySalesTable() != "" {
		t.Fatalf("nil client should return empty identifiers")
	}
}

func TestNilClientOperationsFail(t *testing.T) {
	var c *Client
	if err := c.InsertRows(nil, "t", []any{1}); !errors.Is(err, errClientNotInitialized) {
		t.Fatalf("expected not initialized, got %v", err)
	}
	if err := c.EnsureTable(nil, TableSpec{Name: "t"}); !errors.Is(err, errClientNotInitialized) {
		t.Fatalf("expected not initialized, got %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("closing a nil client should be a no-op, got %v", err)
	}
}

func TestAPIErrorClassification(t *testing.T) {
	notFound := fmt.Errorf("metadata: %w", &googleapi.Error{Code: http.StatusNotFound})
	if !isNotFound(notFound) || isAlreadyExists(notFound) {
		t.Fatalf("expected not found classification")
	}
	if !isAlreadyExists(&googleapi.Error{Code: http.StatusConflict}) {
		t.Fatalf("expected already exists classification")
	}
	if isNotFound(errors.New("timeout")) {
		t.Fatalf("plain errors are not api errors")
	}
}

func TestClientOptions(t *testing.T) {
	tests := []struct {
		name string
		gcp  config.GCPConfig
		want int
	}{
		{"json wins", config.GCPConfig{CredentialsJSON: `{"dummy": "value"}`, ApplicationCredentials: "/tmp/creds"}, 1},
		{"file", config.GCPConfig{ApplicationCredentials: "/tmp/creds"}, 1},
		{"ambient", config.GCPConfig{}, 0},
	}
	for _, tt := range tests {
		if got := len(clientOptions(tt.gcp)); got != tt.want {
			t.Fatalf("%s: expected %d options, got %d", tt.name, tt.want, got)
		}
	}
}
