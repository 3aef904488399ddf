package enums

// ReorderPriority ranks how urgently a product needs restocking.
type ReorderPriority string

const (
	ReorderPriorityHigh   ReorderPriority = "high"
	ReorderPriorityMedium ReorderPriority = "medium"
	ReorderPriorityLow    ReorderPriority = "low"
)

// Rank orders priorities so that high sorts first.
func (p ReorderPriority) Rank() int {
	switch p {
	case ReorderPriorityHigh:
		return 0
	case ReorderPriorityMedium:
		return 1
	default:
		return 2
	}
}

// String implements fmt.Stringer.
func (p ReorderPriority) String() string {
	return string(p)
}
