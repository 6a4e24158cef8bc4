package common

import (
	"strconv"
	"strings"

	"github.com/noah-isme/backend-kasir/internal/money"
)

// AtoiDefault converts the provided string to an integer falling back to the default when parsing fails.
func AtoiDefault(value string, def int) int {
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

// QtyDefault parses a free-text quantity. Malformed or non-positive input
// falls back to the default rather than surfacing an error: price and
// quantity fields arrive from free-form terminal entry and are coerced at
// the boundary.
func QtyDefault(value string, def int32) int32 {
	parsed := AtoiDefault(strings.TrimSpace(value), int(def))
	if parsed <= 0 {
		return def
	}
	return int32(parsed)
}

// MoneyDefault parses a free-text monetary amount, treating malformed input
// as the provided default.
func MoneyDefault(value string, def money.Money) money.Money {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return def
	}
	parsed, err := money.Parse(trimmed)
	if err != nil {
		return def
	}
	return parsed
}
