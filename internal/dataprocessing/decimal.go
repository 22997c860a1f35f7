package dataprocessing

import (
	"strings"

	"bnvision/pkg/contracts/domain"
)

const (
	// DefaultScale applies when neither metadata nor samples give a usable
	// fraction width.
	DefaultScale = 8
	// sampleLimit bounds how many non-null values the inference looks at.
	sampleLimit = 10
)

// ResolveScale decides the fixed-point scale for one column.
//
// Resolution order: price-role metadata precision, quantity-role metadata
// precision, maximum fraction width across the sample, default. Malformed
// samples never raise; they fall through to the default.
func ResolveScale(role ColumnRole, meta *domain.SymbolPrecision, samples []string) int {
	if meta != nil {
		if role == RolePrice && meta.PricePrecision != nil {
			return *meta.PricePrecision
		}
		if role == RoleQuantity && meta.QuantityPrecision != nil {
			return *meta.QuantityPrecision
		}
	}

	if scale, ok := inferScale(samples); ok && scale > 0 {
		return scale
	}
	return DefaultScale
}

// decimalEligible reports whether a text column should be cast to decimal at
// all: either its role has a metadata precision, or every sampled value is a
// plain decimal numeral.
func decimalEligible(role ColumnRole, meta *domain.SymbolPrecision, samples []string) bool {
	if meta != nil {
		if role == RolePrice && meta.PricePrecision != nil {
			return true
		}
		if role == RoleQuantity && meta.QuantityPrecision != nil {
			return true
		}
	}
	_, ok := inferScale(samples)
	return ok
}

// inferScale scans a sample for the maximum number of digits after the
// decimal point. ok is false when the sample is empty or any value is not a
// plain decimal numeral (digits with at most one '.').
func inferScale(samples []string) (int, bool) {
	if len(samples) == 0 {
		return 0, false
	}

	maxScale := 0
	for _, s := range samples {
		if !isPlainDecimal(s) {
			return 0, false
		}
		if dot := strings.IndexByte(s, '.'); dot >= 0 {
			if frac := len(s) - dot - 1; frac > maxScale {
				maxScale = frac
			}
		}
	}
	return maxScale, true
}

// isPlainDecimal matches digits with an optional single '.'; no signs,
// exponents or grouping.
func isPlainDecimal(s string) bool {
	if s == "" {
		return false
	}
	dots := 0
	digits := 0
	for i := 0; i < len(s); i++ {
		switch {
		case s[i] == '.':
			dots++
			if dots > 1 {
				return false
			}
		case s[i] >= '0' && s[i] <= '9':
			digits++
		default:
			return false
		}
	}
	return digits > 0
}

// sampleValues collects up to sampleLimit non-null values from a text column.
func sampleValues(c *Column) []string {
	var samples []string
	for i := 0; i < c.Len() && len(samples) < sampleLimit; i++ {
		if c.Nulls[i] {
			continue
		}
		samples = append(samples, c.Text[i])
	}
	return samples
}
