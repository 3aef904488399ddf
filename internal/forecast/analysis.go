package forecast

import (
	"math"
	"time"

	"github.com/angelmondragon/smart-inventory/internal/saleslog"
	"github.com/angelmondragon/smart-inventory/pkg/enums"
	"github.com/angelmondragon/smart-inventory/pkg/types"
)

const (
	trendThresholdPct   = 5.0
	fullConfidencePts   = 30.0
	volumeWeight        = 0.4
	varianceWeight      = 0.6
	minTrendPoints      = 2
	varianceMeanDivisor = 3.0
)

// Trend summarizes how daily sales moved across a window.
type Trend struct {
	Direction  enums.SalesTrend `json:"trend"`
	ChangeRate float64          `json:"change_rate"`
	Confidence float64          `json:"confidence"`
}

func stableTrend() Trend {
	return Trend{Direction: enums.SalesTrendStable}
}

// Velocity is units sold per day across the window.
func Velocity(totalSold, windowDays int) float64 {
	if windowDays <= 0 {
		return 0
	}
	return float64(totalSold) / float64(windowDays)
}

// ComputeSeasonality averages each calendar month across years and divides by
// the annual mean. ok is false when there is no history at all.
func ComputeSeasonality(totals []saleslog.DailyTotal) (types.Seasonality, bool) {
	if len(totals) == 0 {
		return types.Seasonality{}, false
	}

	type yearMonth struct {
		year  int
		month time.Month
	}
	monthly := make(map[yearMonth]int)
	for _, t := range totals {
		day := t.Day.UTC()
		monthly[yearMonth{day.Year(), day.Month()}] += t.TotalSold
	}

	var sums, counts [12]float64
	for key, total := range monthly {
		sums[key.month-1] += float64(total)
		counts[key.month-1]++
	}

	var averages types.Seasonality
	var grand float64
	for i := range averages {
		if counts[i] > 0 {
			averages[i] = sums[i] / counts[i]
		}
		grand += averages[i]
	}

	annual := grand / 12
	if annual <= 0 {
		return averages, true
	}
	var factors types.Seasonality
	for i := range factors {
		factors[i] = round2(averages[i] / annual)
	}
	return factors, true
}

// ComputeTrend splits the points into two halves and compares their daily
// means. Confidence blends data volume with consistency.
func ComputeTrend(points []saleslog.DailyTotal) Trend {
	n := len(points)
	if n < minTrendPoints {
		return stableTrend()
	}

	mid := n / 2
	firstAvg := meanSold(points[:mid])
	secondAvg := meanSold(points[mid:])

	var changeRate float64
	if firstAvg > 0 {
		changeRate = (secondAvg - firstAvg) / firstAvg * 100
	}

	direction := enums.SalesTrendStable
	switch {
	case changeRate > trendThresholdPct:
		direction = enums.SalesTrendIncreasing
	case changeRate < -trendThresholdPct:
		direction = enums.SalesTrendDecreasing
	}

	mean := meanSold(points)
	var variance float64
	for _, p := range points {
		d := float64(p.TotalSold) - mean
		variance += d * d
	}
	variance /= float64(n)

	divisor := mean * varianceMeanDivisor
	if divisor == 0 {
		divisor = 1
	}
	volume := math.Min(1, float64(n)/fullConfidencePts)
	consistency := math.Max(0, 1-math.Min(1, variance/divisor))

	return Trend{
		Direction:  direction,
		ChangeRate: round2(changeRate),
		Confidence: round2(volume*volumeWeight + consistency*varianceWeight),
	}
}

// Demand projects units over the horizon, never negative.
func Demand(velocity float64, trend Trend, seasonalFactor float64, horizonDays int) int {
	trendFactor := 1 + trend.ChangeRate/100*trend.Confidence
	return int(math.Round(math.Max(0, velocity*trendFactor*seasonalFactor*float64(horizonDays))))
}

func meanSold(points []saleslog.DailyTotal) float64 {
	if len(points) == 0 {
		return 0
	}
	var sum int
	for _, p := range points {
		sum += p.TotalSold
	}
	return float64(sum) / float64(len(points))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
