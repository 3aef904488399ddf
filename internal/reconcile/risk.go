package reconcile

import (
	"context"
	"fmt"
	"html"
	"math"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/smart-inventory/internal/notifications"
	"github.com/angelmondragon/smart-inventory/pkg/enums"
)

const minRiskVelocity = 0.1

// Risk is one product expected to sell out inside the look-ahead window.
type Risk struct {
	ProductID         uuid.UUID          `json:"product_id"`
	Title             string             `json:"title"`
	Category          string             `json:"category"`
	AvailableStock    int                `json:"available_stock"`
	ForecastedDemand  int                `json:"forecasted_demand"`
	DaysUntilStockout int                `json:"days_until_stockout"`
	Risk              enums.StockoutRisk `json:"risk"`
}

// CheckStockoutRisks lists in-stock products whose available stock covers at
// most lookAheadDays of sales, soonest first. lookAheadDays <= 0 uses the configured window.
func (s *Sweeper) CheckStockoutRisks(ctx context.Context, lookAheadDays int) ([]Risk, error) {
	if lookAheadDays <= 0 {
		lookAheadDays = s.cfg.StockoutLookAhead
	}
	records, err := s.ledger.InStock(ctx)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.ProductID)
	}
	products, err := s.catalog.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}

	risks := make([]Risk, 0)
	for _, r := range records {
		velocity := r.SalesVelocity
		if velocity <= 0 {
			velocity = minRiskVelocity
		}
		days := int(math.Floor(float64(r.AvailableStock) / velocity))
		if days > lookAheadDays {
			continue
		}

		risk := Risk{
			ProductID:         r.ProductID,
			Title:             r.ProductID.String(),
			Category:          "Uncategorized",
			AvailableStock:    r.AvailableStock,
			ForecastedDemand:  r.ForecastedDemand,
			DaysUntilStockout: days,
			Risk:              enums.StockoutRiskForDays(days),
		}
		if p, ok := products[r.ProductID]; ok {
			risk.Title = p.Title
			if len(p.Categories) > 0 {
				risk.Category = strings.Join(p.Categories, ", ")
			}
		}
		risks = append(risks, risk)
	}

	sort.SliceStable(risks, func(i, j int) bool {
		return risks[i].DaysUntilStockout < risks[j].DaysUntilStockout
	})
	s.metrics.SetStockoutRisk(countByRisk(risks))
	return risks, nil
}

// SendSelloutReport emails the stockout-risk report when anything is at risk
// and returns the number of products reported.
func (s *Sweeper) SendSelloutReport(ctx context.Context, lookAheadDays int) (int, error) {
	if lookAheadDays <= 0 {
		lookAheadDays = s.cfg.StockoutLookAhead
	}
	risks, err := s.CheckStockoutRisks(ctx, lookAheadDays)
	if err != nil {
		return 0, err
	}
	if len(risks) == 0 {
		s.logg.Info(s.logg.WithField(ctx, "look_ahead_days", lookAheadDays), "reconcile.no_sellout_risk")
		return 0, nil
	}

	counts := countByRisk(risks)
	s.notifier.Send(ctx, notifications.Email{
		Kind:      enums.NotificationKindSelloutReport,
		Recipient: s.adminEmail,
		Subject: fmt.Sprintf("Sellout Risk Alert: %d Critical + %d High Risk Products",
			counts[string(enums.StockoutRiskCritical)], counts[string(enums.StockoutRiskHigh)]),
		HTMLBody: s.renderSelloutReport(risks, counts, lookAheadDays),
	})

	s.logg.Info(s.logg.WithField(ctx, "at_risk", len(risks)), "reconcile.sellout_report_sent")
	return len(risks), nil
}

func countByRisk(risks []Risk) map[string]int {
	counts := map[string]int{
		string(enums.StockoutRiskCritical): 0,
		string(enums.StockoutRiskHigh):     0,
		string(enums.StockoutRiskMedium):   0,
		string(enums.StockoutRiskLow):      0,
	}
	for _, r := range risks {
		counts[string(r.Risk)]++
	}
	return counts
}

func (s *Sweeper) renderSelloutReport(risks []Risk, counts map[string]int, lookAheadDays int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<h2>Sellout Risk Report - %s</h2>", s.now().UTC().Format("2006-01-02"))
	fmt.Fprintf(&b, "<p>%d products are at risk of selling out within %d days.</p>", len(risks), lookAheadDays)
	b.WriteString("<h3>Summary</h3><ul>")
	fmt.Fprintf(&b, "<li><strong>Critical Risk (0-2 days):</strong> %d products</li>", counts[string(enums.StockoutRiskCritical)])
	fmt.Fprintf(&b, "<li><strong>High Risk (3-5 days):</strong> %d products</li>", counts[string(enums.StockoutRiskHigh)])
	fmt.Fprintf(&b, "<li><strong>Medium Risk (6-10 days):</strong> %d products</li>", counts[string(enums.StockoutRiskMedium)])
	fmt.Fprintf(&b, "<li><strong>Low Risk (11-%d days):</strong> %d products</li>", lookAheadDays, counts[string(enums.StockoutRiskLow)])
	b.WriteString("</ul>")

	for _, level := range []enums.StockoutRisk{
		enums.StockoutRiskCritical,
		enums.StockoutRiskHigh,
		enums.StockoutRiskMedium,
		enums.StockoutRiskLow,
	} {
		var rows []Risk
		for _, r := range risks {
			if r.Risk == level {
				rows = append(rows, r)
			}
		}
		if len(rows) == 0 {
			continue
		}
		label := strings.ToUpper(level.String()[:1]) + level.String()[1:]
		fmt.Fprintf(&b, "<h3>%s Risk Products (%d)</h3>", label, len(rows))
		b.WriteString(`<table border="1" cellpadding="5" cellspacing="0"><thead><tr>`)
		b.WriteString("<th>Product</th><th>Category</th><th>Available Stock</th><th>Forecasted Demand</th><th>Days Until Stockout</th>")
		b.WriteString("</tr></thead><tbody>")
		for _, r := range rows {
			fmt.Fprintf(&b, "<tr><td>%s</td><td>%s</td><td>%d</td><td>%d</td><td>%d</td></tr>",
				html.EscapeString(r.Title), html.EscapeString(r.Category), r.AvailableStock, r.ForecastedDemand, r.DaysUntilStockout)
		}
		b.WriteString("</tbody></table>")
	}
	return b.String()
}
