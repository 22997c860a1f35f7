package domain

import (
	"fmt"
	"path/filepath"
	"regexp"
	"time"
)

// Source identifies a Binance Vision archive tree. Each variant carries its
// own archive base URL and exchange-info endpoint, so call sites never branch
// on the variant themselves.
type Source string

const (
	// SourceUM is the USD-M futures daily archive tree.
	SourceUM Source = "um"
)

// ParseSource validates a source name from configuration or CLI input.
func ParseSource(s string) (Source, error) {
	switch Source(s) {
	case SourceUM:
		return SourceUM, nil
	}
	return "", fmt.Errorf("unsupported source %q", s)
}

// BaseURL returns the daily archive base URL for the source.
func (s Source) BaseURL() string {
	switch s {
	case SourceUM:
		return "https://data.binance.vision/data/futures/um/daily"
	}
	return ""
}

// ExchangeInfoURL returns the bulk symbol metadata endpoint for the source.
func (s Source) ExchangeInfoURL() string {
	switch s {
	case SourceUM:
		return "https://fapi.binance.com/fapi/v1/exchangeInfo"
	}
	return ""
}

func (s Source) String() string { return string(s) }

// DataType names one vendor data set (klines, aggTrades, bookDepth, ...).
type DataType string

const (
	DataTypeKlines            DataType = "klines"
	DataTypeIndexPriceKlines  DataType = "indexPriceKlines"
	DataTypePremiumIndexKline DataType = "premiumIndexKlines"
	DataTypeAggTrades         DataType = "aggTrades"
	DataTypeBookDepth         DataType = "bookDepth"
	DataTypeMetrics           DataType = "metrics"
)

// ParseDataType validates a data type name from configuration or CLI input.
func ParseDataType(s string) (DataType, error) {
	switch DataType(s) {
	case DataTypeKlines, DataTypeIndexPriceKlines, DataTypePremiumIndexKline,
		DataTypeAggTrades, DataTypeBookDepth, DataTypeMetrics:
		return DataType(s), nil
	}
	return "", fmt.Errorf("unsupported data type %q", s)
}

// HasInterval reports whether the data type's identity includes a sampling
// interval. Interval-bearing types use a different URL shape and derive their
// canonical file name from the archive's internal entry name.
func (t DataType) HasInterval() bool {
	switch t {
	case DataTypeKlines, DataTypeIndexPriceKlines, DataTypePremiumIndexKline:
		return true
	}
	return false
}

func (t DataType) String() string { return string(t) }

// Job is one (symbol, data type, date) unit of download work. Immutable once
// created; one job maps to exactly one archive + checksum pair remotely and
// one canonical raw file locally.
type Job struct {
	Symbol   string    `json:"symbol" validate:"required"`
	DataType DataType  `json:"data_type" validate:"required"`
	Date     time.Time `json:"date" validate:"required"`
	Source   Source    `json:"source" validate:"required"`
}

// DateString returns the job date in the vendor's YYYY-MM-DD URL form.
func (j Job) DateString() string { return j.Date.Format("2006-01-02") }

// Dir returns the job's destination directory under root:
// {root}/{source}/{YYYY}/{MM}/{DD}/{data_type}.
func (j Job) Dir(root string) string {
	return filepath.Join(root,
		j.Source.String(),
		j.Date.Format("2006"),
		j.Date.Format("01"),
		j.Date.Format("02"),
		j.DataType.String(),
	)
}

func (j Job) String() string {
	return fmt.Sprintf("%s/%s/%s", j.Symbol, j.DataType, j.DateString())
}

// SymbolPrecision holds the vendor's decimal-place counts for one symbol.
// Either field may be absent in the vendor document.
type SymbolPrecision struct {
	Symbol            string `json:"symbol"`
	PricePrecision    *int   `json:"pricePrecision,omitempty"`
	QuantityPrecision *int   `json:"quantityPrecision,omitempty"`
}

// PrecisionMap is the read-only metadata snapshot for one run. A nil map is
// valid and means the metadata endpoint was unavailable.
type PrecisionMap map[string]SymbolPrecision

var baseSymbolRe = regexp.MustCompile(`^[A-Z0-9]+`)

// BaseSymbol extracts the leading symbol token from a raw file stem such as
// "BTCUSDT-1d" or "1000SHIBUSDT". Returns "" when the stem does not start
// with an uppercase symbol.
func BaseSymbol(stem string) string {
	return baseSymbolRe.FindString(stem)
}

// Lookup returns the precision record for a raw file stem, matching on the
// stem's leading symbol token.
func (m PrecisionMap) Lookup(stem string) (SymbolPrecision, bool) {
	if m == nil {
		return SymbolPrecision{}, false
	}
	rec, ok := m[BaseSymbol(stem)]
	return rec, ok
}
