package metadata

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pipeerrors "bnvision/internal/errors"
	"bnvision/pkg/contracts/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const exchangeInfoBody = `{
	"symbols": [
		{"symbol": "BTCUSDT", "pricePrecision": 2, "quantityPrecision": 3},
		{"symbol": "ETHUSDT", "pricePrecision": 2},
		{"symbol": "1000SHIBUSDT", "pricePrecision": 6, "quantityPrecision": 0}
	]
}`

func TestFetchAll(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(exchangeInfoBody))
	}))
	defer server.Close()

	client := NewClientForURL(server.URL, discardLogger())
	precisions, err := client.FetchAll(context.Background())
	require.NoError(t, err)
	require.Len(t, precisions, 3)

	btc := precisions["BTCUSDT"]
	require.NotNil(t, btc.PricePrecision)
	assert.Equal(t, 2, *btc.PricePrecision)
	require.NotNil(t, btc.QuantityPrecision)
	assert.Equal(t, 3, *btc.QuantityPrecision)

	eth := precisions["ETHUSDT"]
	assert.Nil(t, eth.QuantityPrecision)

	shib := precisions["1000SHIBUSDT"]
	require.NotNil(t, shib.QuantityPrecision)
	assert.Equal(t, 0, *shib.QuantityPrecision)
}

func TestFetchAll_RetriesOnce(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(exchangeInfoBody))
	}))
	defer server.Close()

	client := NewClientForURL(server.URL, discardLogger())
	client.backoff = 10 * time.Millisecond

	precisions, err := client.FetchAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, precisions, 3)
	assert.Equal(t, int32(2), calls.Load())
}

func TestFetchAll_UnavailableAfterRetry(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClientForURL(server.URL, discardLogger())
	client.backoff = 10 * time.Millisecond

	precisions, err := client.FetchAll(context.Background())
	assert.Error(t, err)
	assert.True(t, pipeerrors.Is(err, pipeerrors.CodeMetadataUnavailable))
	assert.Nil(t, precisions)
	assert.Equal(t, int32(2), calls.Load())
}

func TestPrecisionMap_Lookup(t *testing.T) {
	price := 2
	precisions := domain.PrecisionMap{
		"BTCUSDT": {Symbol: "BTCUSDT", PricePrecision: &price},
	}

	rec, ok := precisions.Lookup("BTCUSDT-1d")
	require.True(t, ok)
	assert.Equal(t, "BTCUSDT", rec.Symbol)

	_, ok = precisions.Lookup("DOGEUSDT-1d")
	assert.False(t, ok)

	var empty domain.PrecisionMap
	_, ok = empty.Lookup("BTCUSDT")
	assert.False(t, ok)
}
