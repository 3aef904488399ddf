package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Seasonality holds one multiplicative demand factor per calendar month,
// index 0 for January. A zero entry means no factor was derived.
type Seasonality [12]float64

// Factor returns the factor for month, defaulting to 1.0 when unset.
func (s *Seasonality) Factor(month time.Month) float64 {
	if s == nil || month < time.January || month > time.December {
		return 1.0
	}
	if f := s[month-1]; f > 0 {
		return f
	}
	return 1.0
}

// IsZero reports whether no month carries a factor.
func (s *Seasonality) IsZero() bool {
	if s == nil {
		return true
	}
	for _, f := range s {
		if f != 0 {
			return false
		}
	}
	return true
}

// Value marshals the factors into a JSON array.
func (s Seasonality) Value() (driver.Value, error) {
	buf, err := json.Marshal([12]float64(s))
	if err != nil {
		return nil, err
	}
	return string(buf), nil
}

// Scan decodes a JSON array of 12 factors.
func (s *Seasonality) Scan(value interface{}) error {
	if value == nil {
		*s = Seasonality{}
		return nil
	}

	var raw []byte
	switch v := value.(type) {
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("seasonality: unsupported scan type %T", value)
	}

	var factors [12]float64
	if err := json.Unmarshal(raw, &factors); err != nil {
		return fmt.Errorf("seasonality: %w", err)
	}
	*s = factors
	return nil
}
