package enums

// StockoutRisk classifies how soon available stock runs out.
type StockoutRisk string

const (
	StockoutRiskCritical StockoutRisk = "critical"
	StockoutRiskHigh     StockoutRisk = "high"
	StockoutRiskMedium   StockoutRisk = "medium"
	StockoutRiskLow      StockoutRisk = "low"
)

// StockoutRiskForDays buckets days of remaining cover.
func StockoutRiskForDays(days int) StockoutRisk {
	switch {
	case days <= 2:
		return StockoutRiskCritical
	case days <= 5:
		return StockoutRiskHigh
	case days <= 10:
		return StockoutRiskMedium
	default:
		return StockoutRiskLow
	}
}

// String implements fmt.Stringer.
func (r StockoutRisk) String() string {
	return string(r)
}
