package enums

// ForecastSource records which path produced a demand figure.
type ForecastSource string

const (
	ForecastSourceData      ForecastSource = "data"
	ForecastSourceEstimator ForecastSource = "estimator"
)
