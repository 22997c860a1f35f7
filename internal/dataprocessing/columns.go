package dataprocessing

import (
	"strings"
	"unicode"
)

// ColumnRole classifies a column for decimal precision resolution.
type ColumnRole int

const (
	RoleUnspecified ColumnRole = iota
	RolePrice
	RoleQuantity
)

// The two fixed classification sets, keyed by capitalized-era names.
// ClassifyColumn canonicalizes its argument first, so a snake_case spelling
// resolves to the same role as its renamed form. Membership is exact;
// anything else is unspecified and falls through to sample inference.
var priceColumns = map[string]struct{}{
	"Price": {}, "Open": {}, "High": {}, "Low": {}, "Close": {},
}

var quantityColumns = map[string]struct{}{
	"Qty": {}, "Quantity": {}, "Volume": {},
	"QuoteVolume": {}, "QuoteAssetVolume": {},
	"TakerBuyVolume": {}, "TakerBuyBaseAssetVolume": {},
	"TakerBuyQuoteVolume": {}, "TakerBuyQuoteAssetVolume": {},
}

// ClassifyColumn maps a column name, in either naming era, to its precision
// role.
func ClassifyColumn(name string) ColumnRole {
	canonical := SnakeToPascal(name)
	if _, ok := priceColumns[canonical]; ok {
		return RolePrice
	}
	if _, ok := quantityColumns[canonical]; ok {
		return RoleQuantity
	}
	return RoleUnspecified
}

// SnakeToPascal converts a snake_case column name to PascalCase. Names that
// already start with an uppercase letter pass through unchanged, so running
// the conversion twice is a no-op.
func SnakeToPascal(name string) string {
	if name == "" {
		return name
	}
	first := []rune(name)[0]
	if !unicode.IsLower(first) {
		return name
	}

	parts := strings.Split(name, "_")
	var b strings.Builder
	for _, part := range parts {
		if part == "" {
			continue
		}
		runes := []rune(part)
		b.WriteRune(unicode.ToUpper(runes[0]))
		b.WriteString(strings.ToLower(string(runes[1:])))
	}
	return b.String()
}

// PascalToSnake converts a PascalCase column name to snake_case.
func PascalToSnake(name string) string {
	var b strings.Builder
	for i, r := range name {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteRune('_')
			}
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}
