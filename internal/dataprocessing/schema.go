package dataprocessing

import (
	"strings"

	"bnvision/pkg/contracts/domain"
)

// PrimitiveType is the declared type of a schema column. Decimal-eligible
// text columns stay TypeText and are upgraded later by the precision
// resolver.
type PrimitiveType int

const (
	TypeText PrimitiveType = iota
	TypeInt64
	TypeUInt64
	TypeUInt8
	TypeInt8
	TypeBool
)

// SchemaEntry maps a canonical column name to its primitive type. Entry order
// mirrors the vendor's column order; it is not semantically significant.
type SchemaEntry struct {
	Name string
	Type PrimitiveType
}

// NamingEra distinguishes the two column-naming conventions the vendor data
// has gone through.
type NamingEra int

const (
	// EraSnake is the original snake_case convention (open_time).
	EraSnake NamingEra = iota
	// EraPascal is the capitalized-word convention (OpenTime).
	EraPascal
)

// Registry entries are declared in the Pascal era; snake-era lookups derive
// their names mechanically.
var klinesSchema = []SchemaEntry{
	{"OpenTime", TypeInt64},
	{"Open", TypeText},
	{"High", TypeText},
	{"Low", TypeText},
	{"Close", TypeText},
	{"Volume", TypeText},
	{"CloseTime", TypeInt64},
	{"QuoteVolume", TypeText},
	{"Count", TypeUInt64},
	{"TakerBuyVolume", TypeText},
	{"TakerBuyQuoteVolume", TypeText},
	{"Ignore", TypeUInt8},
}

var schemaRegistry = map[domain.DataType][]SchemaEntry{
	domain.DataTypeKlines:           klinesSchema,
	domain.DataTypeIndexPriceKlines: klinesSchema,
	domain.DataTypeAggTrades: {
		{"AggTradeId", TypeUInt64},
		{"Price", TypeText},
		{"Quantity", TypeText},
		{"FirstTradeId", TypeUInt64},
		{"LastTradeId", TypeUInt64},
		{"TransactTime", TypeUInt64},
		{"IsBuyerMaker", TypeBool},
	},
	domain.DataTypeBookDepth: {
		{"Timestamp", TypeText},
		{"Percentage", TypeInt8},
		{"Depth", TypeText},
		{"Notional", TypeText},
	},
	domain.DataTypeMetrics: {
		{"CreateTime", TypeText},
		{"Symbol", TypeText},
		{"SumOpenInterest", TypeText},
		{"SumOpenInterestValue", TypeText},
		{"CountToptraderLongShortRatio", TypeText},
		{"SumToptraderLongShortRatio", TypeText},
		{"CountLongShortRatio", TypeText},
		{"SumTakerLongShortVolRatio", TypeText},
	},
}

// SchemaFor returns the schema for a data type in the requested naming era.
// Data types without a registered schema return ok=false; callers fall back
// to inference, which is not an error.
func SchemaFor(dataType domain.DataType, era NamingEra) ([]SchemaEntry, bool) {
	entries, ok := schemaRegistry[dataType]
	if !ok {
		return nil, false
	}
	if era == EraPascal {
		return entries, true
	}

	converted := make([]SchemaEntry, len(entries))
	for i, e := range entries {
		converted[i] = SchemaEntry{Name: PascalToSnake(e.Name), Type: e.Type}
	}
	return converted, true
}

// DetectEra decides which naming convention a raw file uses. A single
// lowercase or underscored name marks the whole file as snake era.
func DetectEra(names []string) NamingEra {
	for _, name := range names {
		if name == "" {
			continue
		}
		if strings.Contains(name, "_") || name[0] >= 'a' && name[0] <= 'z' {
			return EraSnake
		}
	}
	return EraPascal
}
