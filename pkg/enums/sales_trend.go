package enums

// SalesTrend is the direction of recent daily sales.
type SalesTrend string

const (
	SalesTrendIncreasing SalesTrend = "increasing"
	SalesTrendDecreasing SalesTrend = "decreasing"
	SalesTrendStable     SalesTrend = "stable"
)

// String implements fmt.Stringer.
func (t SalesTrend) String() string {
	return string(t)
}
