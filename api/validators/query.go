package validators

import (
	"net/http"
	"strconv"
	"strings"

	pkgerrors "github.com/angelmondragon/smart-inventory/pkg/errors"
)

// ParseQueryInt reads an optional integer query parameter bounded to [min, max].
func ParseQueryInt(r *http.Request, key string, defaultVal, min, max int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return defaultVal, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, queryError(key, "must be numeric")
	}
	if value < min || value > max {
		return 0, queryError(key, "out of range").WithDetails(map[string]any{"field": key, "min": min, "max": max})
	}
	return value, nil
}

func queryError(key, problem string) *pkgerrors.Error {
	return pkgerrors.Newf(pkgerrors.CodeValidation, "query parameter %s %s", key, problem).
		WithDetails(map[string]any{"field": key})
}
