package pagination

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

const (
	// DefaultLimit is the page size when none is requested.
	DefaultLimit = 25
	// MaxLimit caps any keyset page.
	MaxLimit = 100

	cursorVersion = "v1"
)

// Cursor is the keyset position of the last row on a stock-ordered page:
// rows sort by available stock, then product ID.
type Cursor struct {
	Available int
	ProductID uuid.UUID
}

// NormalizeLimit clamps limit into [1, MaxLimit], defaulting when unset.
func NormalizeLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	}
	return limit
}

// LimitWithBuffer fetches one extra row to detect a following page.
func LimitWithBuffer(limit int) int {
	return NormalizeLimit(limit) + 1
}

// EncodeCursor renders an opaque, URL-safe cursor.
func EncodeCursor(cursor Cursor) string {
	payload := strings.Join([]string{cursorVersion, strconv.Itoa(cursor.Available), cursor.ProductID.String()}, "|")
	return base64.RawURLEncoding.EncodeToString([]byte(payload))
}

// ParseCursor decodes a cursor from EncodeCursor. A blank value means the first page.
func ParseCursor(value string) (*Cursor, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}

	decoded, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}
	parts := strings.Split(string(decoded), "|")
	if len(parts) != 3 || parts[0] != cursorVersion {
		return nil, fmt.Errorf("invalid cursor format")
	}

	available, err := strconv.Atoi(parts[1])
	if err != nil {
		return nil, fmt.Errorf("invalid cursor stock: %w", err)
	}
	id, err := uuid.Parse(parts[2])
	if err != nil {
		return nil, fmt.Errorf("invalid cursor id: %w", err)
	}
	return &Cursor{Available: available, ProductID: id}, nil
}
