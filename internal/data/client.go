// internal/data/client.go
// Package data talks to the market data API for candlesticks and token
// rankings.
package data

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// ErrInvalidInterval is returned for an interval the API does not serve.
var ErrInvalidInterval = errors.New("invalid candlestick interval")

// validIntervals mirrors what the API accepts.
var validIntervals = map[string]struct{}{
	"15s": {}, "30s": {}, "1m": {}, "5m": {}, "15m": {},
	"30m": {}, "1h": {}, "4h": {}, "1d": {},
}

// Candlestick is one OHLCV bar. Prices are quoted in SOL per whole token.
type Candlestick struct {
	Timestamp uint64  `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

// TopToken is one entry of the ranked token list.
type TopToken struct {
	Name         string  `json:"name"`
	Pubkey       string  `json:"pubkey"`
	Price        float64 `json:"price"`
	MarketCap    float64 `json:"market_cap"`
	PriceChange  float64 `json:"price_change_percent"`
	VolumeChange float64 `json:"volume_change_percent"`
}

// Client wraps the data API endpoints.
type Client struct {
	http   *resty.Client
	logger *zap.Logger
}

func NewClient(baseURL string, logger *zap.Logger) *Client {
	http := resty.New().
		SetBaseURL(strings.TrimSuffix(baseURL, "/")).
		SetTimeout(15 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond)

	return &Client{
		http:   http,
		logger: logger.With(zap.String("component", "data_api")),
	}
}

// ValidateInterval checks the interval against the API's whitelist.
func ValidateInterval(interval string) error {
	if _, ok := validIntervals[interval]; !ok {
		return fmt.Errorf("%w: %q", ErrInvalidInterval, interval)
	}
	return nil
}

// FetchCandlesticks returns the bars for a mint at the given interval,
// oldest first. A zero limit leaves the count to the server.
func (c *Client) FetchCandlesticks(ctx context.Context, mint, interval string, limit int) ([]Candlestick, error) {
	if err := ValidateInterval(interval); err != nil {
		return nil, err
	}

	req := c.http.R().
		SetContext(ctx).
		SetQueryParam("mint", mint).
		SetQueryParam("interval", interval)
	if limit > 0 {
		req.SetQueryParam("limit", strconv.Itoa(limit))
	}

	var candles []Candlestick
	resp, err := req.
		SetResult(&candles).
		Get("/candlesticks")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch candlesticks: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("data API returned %s for %s", resp.Status(), mint)
	}

	return candles, nil
}

// TopTokensFilter narrows the ranking server-side. Zero values are
// omitted from the query.
type TopTokensFilter struct {
	Limit        int
	MinVolume    float64
	MinMarketCap float64
}

// FetchTopTokens returns the API's current token ranking.
func (c *Client) FetchTopTokens(ctx context.Context, filter TopTokensFilter) ([]TopToken, error) {
	req := c.http.R().SetContext(ctx)
	if filter.Limit > 0 {
		req.SetQueryParam("limit", strconv.Itoa(filter.Limit))
	}
	if filter.MinVolume > 0 {
		req.SetQueryParam("min_volume", strconv.FormatFloat(filter.MinVolume, 'f', -1, 64))
	}
	if filter.MinMarketCap > 0 {
		req.SetQueryParam("min_market_cap", strconv.FormatFloat(filter.MinMarketCap, 'f', -1, 64))
	}

	var tokens []TopToken
	resp, err := req.
		SetResult(&tokens).
		Get("/top-tokens")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch top tokens: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("data API returned %s", resp.Status())
	}

	return tokens, nil
}
