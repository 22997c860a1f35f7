package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	pipeerrors "bnvision/internal/errors"
	"bnvision/pkg/contracts/domain"
)

const (
	requestTimeout = 30 * time.Second
	retryBackoff   = 2 * time.Second
)

// Client fetches the vendor's bulk exchange-info document. One FetchAll call
// per run; the result is a read-only snapshot shared by all workers.
type Client struct {
	httpClient *http.Client
	url        string
	backoff    time.Duration
	logger     *slog.Logger
}

// NewClient creates a metadata client for the given source.
func NewClient(source domain.Source, logger *slog.Logger) *Client {
	return NewClientForURL(source.ExchangeInfoURL(), logger)
}

// NewClientForURL creates a metadata client against an explicit endpoint.
func NewClientForURL(url string, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: requestTimeout},
		url:        url,
		backoff:    retryBackoff,
		logger:     logger,
	}
}

// exchangeInfo mirrors the slice of the vendor document we care about.
type exchangeInfo struct {
	Symbols []domain.SymbolPrecision `json:"symbols"`
}

// FetchAll retrieves precision metadata for every symbol. On failure it
// retries once after a short backoff and then returns an error; callers treat
// that as "no metadata" and keep going, never abort the run.
func (c *Client) FetchAll(ctx context.Context) (domain.PrecisionMap, error) {
	info, err := c.fetch(ctx)
	if err != nil {
		c.logger.WarnContext(ctx, "Exchange info fetch failed, retrying",
			slog.String("url", c.url),
			slog.Any("error", err))

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.backoff):
		}

		info, err = c.fetch(ctx)
		if err != nil {
			return nil, pipeerrors.Wrap(pipeerrors.CodeMetadataUnavailable, "fetch_all", c.url, err)
		}
	}

	precisions := make(domain.PrecisionMap, len(info.Symbols))
	for _, s := range info.Symbols {
		precisions[s.Symbol] = s
	}

	c.logger.InfoContext(ctx, "Fetched symbol precision metadata",
		slog.Int("symbol_count", len(precisions)))

	return precisions, nil
}

func (c *Client) fetch(ctx context.Context) (*exchangeInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, c.url)
	}

	var info exchangeInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode exchange info: %w", err)
	}

	return &info, nil
}
