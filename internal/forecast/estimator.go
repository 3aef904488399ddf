package forecast

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrEstimation marks a failed advisory estimate. It is logged, never returned
// from Forecast.
var ErrEstimation = errors.New("demand estimation failed")

var estimatePattern = regexp.MustCompile(`-?\d+(\.\d+)?`)

// Comparable is a same-category product offered to the estimator as context.
type Comparable struct {
	Title         string
	Price         decimal.Decimal
	SalesVelocity float64
	TotalSold     int
}

// EstimateRequest is the context an estimator sees for one product.
type EstimateRequest struct {
	Title        string
	Categories   []string
	Price        decimal.Decimal
	Discount     decimal.Decimal
	CurrentStock int
	HorizonDays  int
	Comparables  []Comparable
}

// Estimator returns free-text demand guidance for a product.
type Estimator interface {
	Estimate(ctx context.Context, req EstimateRequest) (string, error)
}

type completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// PromptEstimator renders the request into a prompt for a text completion backend.
type PromptEstimator struct {
	client completer
}

// NewPromptEstimator wraps a completion client such as pkg/openai.
func NewPromptEstimator(client completer) (*PromptEstimator, error) {
	if client == nil {
		return nil, errors.New("completion client required")
	}
	return &PromptEstimator{client: client}, nil
}

// Estimate asks the backend for a single demand figure.
func (e *PromptEstimator) Estimate(ctx context.Context, req EstimateRequest) (string, error) {
	return e.client.Complete(ctx, BuildPrompt(req))
}

// BuildPrompt renders the estimator prompt.
func BuildPrompt(req EstimateRequest) string {
	categories := "Unknown"
	if len(req.Categories) > 0 {
		categories = strings.Join(req.Categories, ", ")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "As an inventory management assistant, predict the demand for the next %d days for this product.\n\n", req.HorizonDays)
	fmt.Fprintf(&b, "Product: %s\n", req.Title)
	fmt.Fprintf(&b, "Category: %s\n", categories)
	fmt.Fprintf(&b, "Price: $%s (%s%% discount if applicable)\n", req.Price.StringFixed(2), req.Discount.String())
	fmt.Fprintf(&b, "Current Stock: %d\n\n", req.CurrentStock)
	b.WriteString("This product has limited historical sales data.\n")
	if len(req.Comparables) > 0 {
		b.WriteString("\nSimilar products in the same category have the following metrics:\n")
		for _, c := range req.Comparables {
			fmt.Fprintf(&b, "- %s: Price $%s, Sales velocity: %.2f units/day, Total sold: %d\n",
				c.Title, c.Price.StringFixed(2), c.SalesVelocity, c.TotalSold)
		}
	}
	fmt.Fprintf(&b, "\nProvide just the numeric total demand for the next %d days, with no additional text.", req.HorizonDays)
	return b.String()
}

// ParseEstimate extracts the first number in reply, rounded. ok is false when
// that number is missing, negative or rounds to zero.
func ParseEstimate(reply string) (int, bool) {
	match := estimatePattern.FindString(reply)
	if match == "" {
		return 0, false
	}
	value, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, false
	}
	rounded := int(math.Round(value))
	if rounded <= 0 {
		return 0, false
	}
	return rounded, true
}
