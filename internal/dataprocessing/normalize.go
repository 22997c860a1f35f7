package dataprocessing

import (
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	pipeerrors "bnvision/internal/errors"
	"bnvision/pkg/contracts/domain"
)

// textTimestampLayout is the vendor's textual timestamp format (bookDepth,
// metrics). The fractional part is optional.
const textTimestampLayout = "2006-01-02 15:04:05.999999999"

// Normalizer turns an all-text row set into the canonical typed form.
// Normalization is deterministic given identical input and metadata snapshot
// and never drops rows; the bookDepth pivot is the one intentional
// row-to-column transposition.
type Normalizer struct {
	logger *slog.Logger
}

// NewNormalizer creates a normalizer.
func NewNormalizer(logger *slog.Logger) *Normalizer {
	return &Normalizer{logger: logger}
}

// Normalize applies, in order: schema coercion, column-name normalization,
// decimal precision resolution, and data-type-specific reshaping. meta may be
// nil; numeric columns then get sample-based or default scales.
func (n *Normalizer) Normalize(rs *RowSet, dataType domain.DataType, meta *domain.SymbolPrecision) (*RowSet, error) {
	// 1. Schema coercion. A failure anywhere degrades the whole data type's
	// schema to untyped rather than aborting the row set.
	era := DetectEra(rs.Names())
	if schema, ok := SchemaFor(dataType, era); ok {
		if err := applySchema(rs, schema); err != nil {
			err = pipeerrors.Wrap(pipeerrors.CodeSchemaCoercion, "normalize", dataType.String(), err)
			n.logger.Warn("Schema coercion failed, leaving columns untyped",
				slog.String("data_type", dataType.String()),
				slog.Any("error", err))
		}
	}

	// 2. Column-name normalization to the capitalized-word form.
	for _, name := range rs.Names() {
		if converted := SnakeToPascal(name); converted != name {
			if err := rs.Rename(name, converted); err != nil {
				return nil, fmt.Errorf("failed to rename column %s: %w", name, err)
			}
		}
	}

	// 3. Decimal precision resolution for the remaining text columns.
	for _, col := range rs.Columns() {
		if col.Kind != KindText {
			continue
		}
		role := ClassifyColumn(col.Name)
		samples := sampleValues(col)
		if !decimalEligible(role, meta, samples) {
			continue
		}
		scale := ResolveScale(role, meta, samples)
		if err := castDecimal(col, int32(scale)); err != nil {
			// Recovered locally: the column stays text.
			err = pipeerrors.Wrap(pipeerrors.CodeDecimalParse, "normalize", col.Name, err)
			n.logger.Warn("Decimal cast failed, leaving column as text",
				slog.String("column", col.Name),
				slog.Int("scale", scale),
				slog.Any("error", err))
		}
	}

	// 4. Data-type-specific temporal and structural reshaping.
	switch dataType {
	case domain.DataTypeKlines, domain.DataTypeIndexPriceKlines:
		n.decodeMillis(rs, "OpenTime")
		n.decodeMillis(rs, "CloseTime")
	case domain.DataTypeAggTrades:
		n.decodeMillis(rs, "TransactTime")
	case domain.DataTypeBookDepth:
		n.parseTextTimestamp(rs, "Timestamp")
		return pivotBookDepth(rs)
	case domain.DataTypeMetrics:
		n.parseTextTimestamp(rs, "CreateTime")
	}

	return rs, nil
}

// applySchema coerces every schema-matched column to its declared primitive
// type. The coercion is staged: nothing is replaced until every column
// parsed, so one bad value leaves the whole row set untyped.
func applySchema(rs *RowSet, schema []SchemaEntry) error {
	var staged []*Column
	for _, entry := range schema {
		col, ok := rs.Column(entry.Name)
		if !ok || col.Kind != KindText || entry.Type == TypeText {
			continue
		}
		coerced, err := coerceColumn(col, entry.Type)
		if err != nil {
			return fmt.Errorf("column %s: %w", entry.Name, err)
		}
		staged = append(staged, coerced)
	}

	for _, col := range staged {
		if err := rs.Replace(col); err != nil {
			return err
		}
	}
	return nil
}

// coerceColumn parses a text column into the given primitive type. Null rows
// stay null.
func coerceColumn(c *Column, t PrimitiveType) (*Column, error) {
	out := &Column{Name: c.Name, Nulls: append([]bool(nil), c.Nulls...)}

	switch t {
	case TypeInt64, TypeInt8:
		out.Kind = KindInt
		out.Ints = make([]int64, c.Len())
		for i, v := range c.Text {
			if c.Nulls[i] {
				continue
			}
			parsed, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("value %q is not an integer", v)
			}
			out.Ints[i] = parsed
		}
	case TypeUInt64, TypeUInt8:
		out.Kind = KindUint
		out.Uints = make([]uint64, c.Len())
		for i, v := range c.Text {
			if c.Nulls[i] {
				continue
			}
			parsed, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("value %q is not an unsigned integer", v)
			}
			out.Uints[i] = parsed
		}
	case TypeBool:
		out.Kind = KindBool
		out.Bools = make([]bool, c.Len())
		for i, v := range c.Text {
			if c.Nulls[i] {
				continue
			}
			parsed, err := strconv.ParseBool(v)
			if err != nil {
				return nil, fmt.Errorf("value %q is not a boolean", v)
			}
			out.Bools[i] = parsed
		}
	default:
		return nil, fmt.Errorf("unsupported primitive type %d", t)
	}

	return out, nil
}

// castDecimal upgrades a text column to exact fixed-point values of the
// given scale.
func castDecimal(c *Column, scale int32) error {
	decs := make([]decimal.Decimal, c.Len())
	for i, v := range c.Text {
		if c.Nulls[i] {
			continue
		}
		parsed, err := decimal.NewFromString(v)
		if err != nil {
			return fmt.Errorf("value %q is not a decimal", v)
		}
		decs[i] = parsed
	}

	c.Kind = KindDecimal
	c.Scale = scale
	c.Decs = decs
	c.Text = nil
	return nil
}

// decodeMillis converts an integer millisecond column to timestamps. Columns
// that degraded to text are parsed on the fly; absent columns are skipped.
func (n *Normalizer) decodeMillis(rs *RowSet, name string) {
	col, ok := rs.Column(name)
	if !ok {
		return
	}

	times := make([]time.Time, col.Len())
	for i := 0; i < col.Len(); i++ {
		if col.Nulls[i] {
			continue
		}
		var ms int64
		switch col.Kind {
		case KindInt:
			ms = col.Ints[i]
		case KindUint:
			ms = int64(col.Uints[i])
		case KindDecimal:
			ms = col.Decs[i].IntPart()
		case KindText:
			parsed, err := strconv.ParseInt(col.Text[i], 10, 64)
			if err != nil {
				n.logger.Warn("Millisecond decode failed, leaving column as is",
					slog.String("column", name),
					slog.String("value", col.Text[i]))
				return
			}
			ms = parsed
		default:
			return
		}
		times[i] = time.UnixMilli(ms).UTC()
	}

	col.Kind = KindTimestamp
	col.Times = times
	col.Text, col.Ints, col.Uints, col.Decs = nil, nil, nil, nil
}

// parseTextTimestamp converts a textual timestamp column using the vendor
// layout.
func (n *Normalizer) parseTextTimestamp(rs *RowSet, name string) {
	col, ok := rs.Column(name)
	if !ok || col.Kind != KindText {
		return
	}

	times := make([]time.Time, col.Len())
	for i, v := range col.Text {
		if col.Nulls[i] {
			continue
		}
		parsed, err := time.Parse(textTimestampLayout, v)
		if err != nil {
			n.logger.Warn("Timestamp parse failed, leaving column as text",
				slog.String("column", name),
				slog.String("value", v))
			return
		}
		times[i] = parsed.UTC()
	}

	col.Kind = KindTimestamp
	col.Times = times
	col.Text = nil
}

// pivotBookDepth transposes the long-form (Timestamp, Percentage, Depth,
// Notional) table into wide form: one row per distinct timestamp and one
// Depth_{p}/Notional_{p} column pair per distinct percentage, both in first
// appearance order.
func pivotBookDepth(rs *RowSet) (*RowSet, error) {
	tsCol, ok := rs.Column("Timestamp")
	if !ok {
		return rs, nil
	}
	pctCol, ok := rs.Column("Percentage")
	if !ok {
		return rs, nil
	}
	depthCol, ok := rs.Column("Depth")
	if !ok {
		return rs, nil
	}
	notionalCol, ok := rs.Column("Notional")
	if !ok {
		return rs, nil
	}

	var tsOrder []int
	tsIndex := make(map[string]int)
	var pctOrder []string
	pctIndex := make(map[string]int)
	cells := make(map[[2]int]int) // (tsRow, pctIdx) -> source row

	for i := 0; i < rs.Rows(); i++ {
		tsKey := timestampKey(tsCol, i)
		row, seen := tsIndex[tsKey]
		if !seen {
			row = len(tsOrder)
			tsIndex[tsKey] = row
			tsOrder = append(tsOrder, i)
		}

		pctKey := percentageKey(pctCol, i)
		pct, seen := pctIndex[pctKey]
		if !seen {
			pct = len(pctOrder)
			pctIndex[pctKey] = pct
			pctOrder = append(pctOrder, pctKey)
		}

		cells[[2]int{row, pct}] = i
	}

	out := NewRowSet(len(tsOrder))

	outTS := &Column{Name: "Timestamp", Kind: tsCol.Kind, Scale: tsCol.Scale}
	for _, src := range tsOrder {
		appendValue(outTS, tsCol, src)
	}
	if err := out.AddColumn(outTS); err != nil {
		return nil, err
	}

	for pct, pctKey := range pctOrder {
		depthOut := &Column{Name: "Depth_" + pctKey, Kind: depthCol.Kind, Scale: depthCol.Scale}
		notionalOut := &Column{Name: "Notional_" + pctKey, Kind: notionalCol.Kind, Scale: notionalCol.Scale}
		for row := range tsOrder {
			if src, ok := cells[[2]int{row, pct}]; ok {
				appendValue(depthOut, depthCol, src)
				appendValue(notionalOut, notionalCol, src)
			} else {
				appendNull(depthOut)
				appendNull(notionalOut)
			}
		}
		if err := out.AddColumn(depthOut); err != nil {
			return nil, err
		}
		if err := out.AddColumn(notionalOut); err != nil {
			return nil, err
		}
	}

	return out, nil
}

func timestampKey(c *Column, i int) string {
	if c.Nulls[i] {
		return ""
	}
	switch c.Kind {
	case KindTimestamp:
		return c.Times[i].Format(time.RFC3339Nano)
	case KindText:
		return c.Text[i]
	case KindInt:
		return strconv.FormatInt(c.Ints[i], 10)
	case KindUint:
		return strconv.FormatUint(c.Uints[i], 10)
	case KindDecimal:
		return c.Decs[i].String()
	}
	return ""
}

func percentageKey(c *Column, i int) string {
	if c.Nulls[i] {
		return "null"
	}
	switch c.Kind {
	case KindInt:
		return strconv.FormatInt(c.Ints[i], 10)
	case KindUint:
		return strconv.FormatUint(c.Uints[i], 10)
	case KindDecimal:
		return c.Decs[i].String()
	case KindText:
		return c.Text[i]
	}
	return "null"
}

// appendValue copies row i of src onto the end of dst. Both share a kind.
func appendValue(dst, src *Column, i int) {
	dst.Nulls = append(dst.Nulls, src.Nulls[i])
	switch src.Kind {
	case KindText:
		dst.Text = append(dst.Text, src.Text[i])
	case KindInt:
		dst.Ints = append(dst.Ints, src.Ints[i])
	case KindUint:
		dst.Uints = append(dst.Uints, src.Uints[i])
	case KindBool:
		dst.Bools = append(dst.Bools, src.Bools[i])
	case KindDecimal:
		dst.Decs = append(dst.Decs, src.Decs[i])
	case KindTimestamp:
		dst.Times = append(dst.Times, src.Times[i])
	}
}

// appendNull extends dst with a null row.
func appendNull(dst *Column) {
	dst.Nulls = append(dst.Nulls, true)
	switch dst.Kind {
	case KindText:
		dst.Text = append(dst.Text, "")
	case KindInt:
		dst.Ints = append(dst.Ints, 0)
	case KindUint:
		dst.Uints = append(dst.Uints, 0)
	case KindBool:
		dst.Bools = append(dst.Bools, false)
	case KindDecimal:
		dst.Decs = append(dst.Decs, decimal.Decimal{})
	case KindTimestamp:
		dst.Times = append(dst.Times, time.Time{})
	}
}
