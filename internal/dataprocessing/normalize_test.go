package dataprocessing

import (
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bnvision/pkg/contracts/domain"
)

func testNormalizer() *Normalizer {
	return NewNormalizer(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

const klinesSnakeCSV = `open_time,open,high,low,close,volume,close_time,quote_asset_volume,count,taker_buy_base_asset_volume,taker_buy_quote_asset_volume,ignore
1640995200000,46216.93,46731.39,46208.37,46731.39,112.5,1640998799999,5200000.1,3500,60.25,2790000.5,0
1640998800000,46731.39,46949.99,46700.00,46900.12,98.7,1641002399999,4600000.2,3100,50.10,2350000.4,0
`

func TestNormalizeKlinesEndToEnd(t *testing.T) {
	rs, err := ReadCSV(strings.NewReader(klinesSnakeCSV))
	require.NoError(t, err)

	meta := &domain.SymbolPrecision{
		Symbol:            "BTCUSDT",
		PricePrecision:    intPtr(2),
		QuantityPrecision: intPtr(3),
	}

	out, err := testNormalizer().Normalize(rs, domain.DataTypeKlines, meta)
	require.NoError(t, err)
	assert.Equal(t, 2, out.Rows())

	openTime, ok := out.Column("OpenTime")
	require.True(t, ok)
	assert.Equal(t, KindTimestamp, openTime.Kind)
	assert.Equal(t, time.UnixMilli(1640995200000).UTC(), openTime.Times[0])

	closeTime, ok := out.Column("CloseTime")
	require.True(t, ok)
	assert.Equal(t, KindTimestamp, closeTime.Kind)

	open, ok := out.Column("Open")
	require.True(t, ok)
	assert.Equal(t, KindDecimal, open.Kind)
	assert.Equal(t, int32(2), open.Scale)
	assert.True(t, open.Decs[0].Equal(decimal.RequireFromString("46216.93")))

	volume, ok := out.Column("Volume")
	require.True(t, ok)
	assert.Equal(t, KindDecimal, volume.Kind)
	assert.Equal(t, int32(3), volume.Scale)

	// The long vendor volume names are quantity columns too: metadata
	// precision applies, not the scale of the sampled values.
	for _, name := range []string{"QuoteAssetVolume", "TakerBuyBaseAssetVolume", "TakerBuyQuoteAssetVolume"} {
		col, ok := out.Column(name)
		require.True(t, ok, name)
		assert.Equal(t, KindDecimal, col.Kind, name)
		assert.Equal(t, int32(3), col.Scale, name)
	}

	count, ok := out.Column("Count")
	require.True(t, ok)
	assert.Equal(t, KindUint, count.Kind)
	assert.Equal(t, uint64(3500), count.Uints[0])

	// Pre-rename snake names are gone.
	_, ok = out.Column("open_time")
	assert.False(t, ok)
}

func TestNormalizePascalEraInput(t *testing.T) {
	input := strings.ReplaceAll(klinesSnakeCSV,
		"open_time,open,high,low,close,volume,close_time,quote_asset_volume,count,taker_buy_base_asset_volume,taker_buy_quote_asset_volume,ignore",
		"OpenTime,Open,High,Low,Close,Volume,CloseTime,QuoteVolume,Count,TakerBuyVolume,TakerBuyQuoteVolume,Ignore")

	rs, err := ReadCSV(strings.NewReader(input))
	require.NoError(t, err)

	out, err := testNormalizer().Normalize(rs, domain.DataTypeKlines, nil)
	require.NoError(t, err)

	openTime, ok := out.Column("OpenTime")
	require.True(t, ok)
	assert.Equal(t, KindTimestamp, openTime.Kind)
}

func TestNormalizeSchemaDegrade(t *testing.T) {
	// A non-numeric open_time poisons the whole schema: every typed column
	// stays text, but renaming and the decimal pass still run.
	input := `open_time,open,count
not-a-number,1.25,10
1640998800000,2.50,20
`
	rs, err := ReadCSV(strings.NewReader(input))
	require.NoError(t, err)

	out, err := testNormalizer().Normalize(rs, domain.DataTypeKlines, nil)
	require.NoError(t, err)

	openTime, ok := out.Column("OpenTime")
	require.True(t, ok)
	assert.Equal(t, KindText, openTime.Kind)

	// Degrade covers the whole schema, not just the bad column, so Count was
	// never coerced to uint; the decimal pass then picks it up by sample.
	count, ok := out.Column("Count")
	require.True(t, ok)
	assert.Equal(t, KindDecimal, count.Kind)
	assert.Equal(t, int32(DefaultScale), count.Scale)

	open, ok := out.Column("Open")
	require.True(t, ok)
	assert.Equal(t, KindDecimal, open.Kind)
	assert.Equal(t, int32(2), open.Scale)
}

func TestNormalizeAggTrades(t *testing.T) {
	input := `agg_trade_id,price,quantity,first_trade_id,last_trade_id,transact_time,is_buyer_maker
100,46216.93,0.5,200,201,1640995200123,true
101,46217.00,1.25,202,205,1640995200456,false
`
	rs, err := ReadCSV(strings.NewReader(input))
	require.NoError(t, err)

	out, err := testNormalizer().Normalize(rs, domain.DataTypeAggTrades, nil)
	require.NoError(t, err)

	txn, ok := out.Column("TransactTime")
	require.True(t, ok)
	assert.Equal(t, KindTimestamp, txn.Kind)
	assert.Equal(t, time.UnixMilli(1640995200123).UTC(), txn.Times[0])

	maker, ok := out.Column("IsBuyerMaker")
	require.True(t, ok)
	assert.Equal(t, KindBool, maker.Kind)
	assert.Equal(t, []bool{true, false}, maker.Bools)

	qty, ok := out.Column("Quantity")
	require.True(t, ok)
	assert.Equal(t, KindDecimal, qty.Kind)
}

func TestNormalizeBookDepthPivot(t *testing.T) {
	input := `timestamp,percentage,depth,notional
2024-01-02 00:00:00,1,10.5,100.25
2024-01-02 00:00:00,2,20.5,200.25
2024-01-02 00:01:00,1,11.5,110.25
2024-01-02 00:01:00,2,21.5,210.25
`
	rs, err := ReadCSV(strings.NewReader(input))
	require.NoError(t, err)

	out, err := testNormalizer().Normalize(rs, domain.DataTypeBookDepth, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, out.Rows())
	assert.Equal(t,
		[]string{"Timestamp", "Depth_1", "Notional_1", "Depth_2", "Notional_2"},
		out.Names())

	ts, ok := out.Column("Timestamp")
	require.True(t, ok)
	assert.Equal(t, KindTimestamp, ts.Kind)
	assert.Equal(t,
		time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), ts.Times[0])
	assert.Equal(t,
		time.Date(2024, 1, 2, 0, 1, 0, 0, time.UTC), ts.Times[1])

	depth1, ok := out.Column("Depth_1")
	require.True(t, ok)
	assert.Equal(t, KindDecimal, depth1.Kind)
	assert.True(t, depth1.Decs[0].Equal(decimal.RequireFromString("10.5")))
	assert.True(t, depth1.Decs[1].Equal(decimal.RequireFromString("11.5")))

	notional2, ok := out.Column("Notional_2")
	require.True(t, ok)
	assert.True(t, notional2.Decs[1].Equal(decimal.RequireFromString("210.25")))
}

func TestNormalizeBookDepthPivotMissingCell(t *testing.T) {
	input := `timestamp,percentage,depth,notional
2024-01-02 00:00:00,1,10.5,100.25
2024-01-02 00:01:00,1,11.5,110.25
2024-01-02 00:01:00,2,21.5,210.25
`
	rs, err := ReadCSV(strings.NewReader(input))
	require.NoError(t, err)

	out, err := testNormalizer().Normalize(rs, domain.DataTypeBookDepth, nil)
	require.NoError(t, err)

	depth2, ok := out.Column("Depth_2")
	require.True(t, ok)
	assert.True(t, depth2.Nulls[0], "first timestamp has no percentage 2 row")
	assert.False(t, depth2.Nulls[1])
}

func TestNormalizeBookDepthFractionalTimestamp(t *testing.T) {
	input := `timestamp,percentage,depth,notional
2024-01-02 00:00:00.123456789,1,10.5,100.25
`
	rs, err := ReadCSV(strings.NewReader(input))
	require.NoError(t, err)

	out, err := testNormalizer().Normalize(rs, domain.DataTypeBookDepth, nil)
	require.NoError(t, err)

	ts, ok := out.Column("Timestamp")
	require.True(t, ok)
	assert.Equal(t, KindTimestamp, ts.Kind)
	assert.Equal(t, 123456789, ts.Times[0].Nanosecond())
}

func TestNormalizeMetrics(t *testing.T) {
	input := `create_time,symbol,sum_open_interest,sum_open_interest_value,count_toptrader_long_short_ratio,sum_toptrader_long_short_ratio,count_long_short_ratio,sum_taker_long_short_vol_ratio
2024-01-02 00:05:00,BTCUSDT,81000.125,3700000000.5,2.05,1.85,2.55,1.15
`
	rs, err := ReadCSV(strings.NewReader(input))
	require.NoError(t, err)

	out, err := testNormalizer().Normalize(rs, domain.DataTypeMetrics, nil)
	require.NoError(t, err)

	created, ok := out.Column("CreateTime")
	require.True(t, ok)
	assert.Equal(t, KindTimestamp, created.Kind)

	symbol, ok := out.Column("Symbol")
	require.True(t, ok)
	assert.Equal(t, KindText, symbol.Kind)

	oi, ok := out.Column("SumOpenInterest")
	require.True(t, ok)
	assert.Equal(t, KindDecimal, oi.Kind)
	assert.Equal(t, int32(3), oi.Scale)
}

func TestNormalizeDecimalCastFailureReverts(t *testing.T) {
	// Metadata forces the price column eligible even though a value is not
	// parseable; the cast fails and the column stays text.
	rs := NewRowSet(2)
	require.NoError(t, rs.AddColumn(NewTextColumn("Price", []string{"1.5", "bogus"})))

	meta := &domain.SymbolPrecision{Symbol: "BTCUSDT", PricePrecision: intPtr(2)}

	out, err := testNormalizer().Normalize(rs, domain.DataType("unregistered"), meta)
	require.NoError(t, err)

	price, ok := out.Column("Price")
	require.True(t, ok)
	assert.Equal(t, KindText, price.Kind)
	assert.Equal(t, []string{"1.5", "bogus"}, price.Text)
}

func TestNormalizeDeterministic(t *testing.T) {
	run := func() *RowSet {
		rs, err := ReadCSV(strings.NewReader(klinesSnakeCSV))
		require.NoError(t, err)
		out, err := testNormalizer().Normalize(rs, domain.DataTypeKlines, nil)
		require.NoError(t, err)
		return out
	}

	first := run()
	second := run()

	require.Equal(t, first.Names(), second.Names())
	for i, col := range first.Columns() {
		other := second.Columns()[i]
		assert.Equal(t, col.Kind, other.Kind, col.Name)
		assert.Equal(t, col.Nulls, other.Nulls, col.Name)
		assert.Equal(t, col.Times, other.Times, col.Name)
		assert.Equal(t, col.Ints, other.Ints, col.Name)
	}
}
