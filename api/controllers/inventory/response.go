package inventory

import (
	inventorydto "github.com/angelmondragon/smart-inventory/api/controllers/inventory/dto"
	inventorysvc "github.com/angelmondragon/smart-inventory/internal/inventory"
	"github.com/angelmondragon/smart-inventory/pkg/db/models"
)

func newRecord(record *models.InventoryRecord) inventorydto.Record {
	if record == nil {
		return inventorydto.Record{}
	}
	return inventorydto.Record{
		ProductID:            record.ProductID,
		CurrentStock:         record.CurrentStock,
		ReservedStock:        record.ReservedStock,
		AvailableStock:       record.AvailableStock,
		Threshold:            record.Threshold,
		ReorderPoint:         record.ReorderPoint,
		OptimalOrderQuantity: record.OptimalOrderQuantity,
		LeadTimeDays:         record.LeadTimeDays,
		AutoReorderEnabled:   record.AutoReorderEnabled,
		LastReorderAt:        record.LastReorderAt,
		SalesVelocity:        record.SalesVelocity,
		ForecastedDemand:     record.ForecastedDemand,
		Seasonality:          record.Seasonality,
		LowStock:             record.AvailableStock <= record.Threshold,
		UpdatedAt:            record.UpdatedAt,
	}
}

func newRecords(records []models.InventoryRecord) []inventorydto.Record {
	out := make([]inventorydto.Record, 0, len(records))
	for i := range records {
		out = append(out, newRecord(&records[i]))
	}
	return out
}

func newRecordPage(result *inventorysvc.ListResult) inventorydto.RecordPage {
	if result == nil {
		return inventorydto.RecordPage{Records: []inventorydto.Record{}}
	}
	return inventorydto.RecordPage{
		Records:    newRecords(result.Records),
		NextCursor: result.NextCursor,
	}
}

func newOverview(overview *inventorysvc.Overview) inventorydto.Overview {
	if overview == nil {
		return inventorydto.Overview{Critical: []inventorydto.Record{}}
	}
	return inventorydto.Overview{
		Total:             overview.Total,
		OutOfStock:        overview.OutOfStock,
		LowStock:          overview.LowStock,
		InStock:           overview.InStock,
		InStockPercentage: overview.InStockPercentage,
		Critical:          newRecords(overview.Critical),
	}
}
