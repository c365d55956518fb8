// internal/data/feed.go
package data

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

// CandleFetcher is the slice of the data client the feed needs.
type CandleFetcher interface {
	FetchCandlesticks(ctx context.Context, mint, interval string, limit int) ([]Candlestick, error)
}

// PriceFeed polls the data API and emits prices in lamports per raw
// token unit, the same unit entry prices are computed in.
type PriceFeed struct {
	client        CandleFetcher
	interval      string
	pollEvery     time.Duration
	tokenDecimals uint8
	logger        *zap.Logger
}

func NewPriceFeed(client CandleFetcher, interval string, pollEvery time.Duration, tokenDecimals uint8, logger *zap.Logger) (*PriceFeed, error) {
	if err := ValidateInterval(interval); err != nil {
		return nil, err
	}
	if pollEvery <= 0 {
		return nil, fmt.Errorf("poll period must be positive")
	}

	return &PriceFeed{
		client:        client,
		interval:      interval,
		pollEvery:     pollEvery,
		tokenDecimals: tokenDecimals,
		logger:        logger.With(zap.String("component", "price_feed")),
	}, nil
}

// Subscribe starts polling for the mint and returns the price channel.
// The channel closes when ctx is cancelled or the API keeps failing past
// the retry budget.
func (f *PriceFeed) Subscribe(ctx context.Context, mint solana.PublicKey) (<-chan float64, error) {
	prices := make(chan float64)

	go func() {
		defer close(prices)

		ticker := time.NewTicker(f.pollEvery)
		defer ticker.Stop()

		for {
			price, err := f.fetchLatest(ctx, mint)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				f.logger.Error("Price fetch failed, closing feed",
					zap.String("mint", mint.String()),
					zap.Error(err))
				return
			}

			select {
			case prices <- price:
			case <-ctx.Done():
				return
			}

			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
		}
	}()

	return prices, nil
}

func (f *PriceFeed) fetchLatest(ctx context.Context, mint solana.PublicKey) (float64, error) {
	return backoff.Retry(ctx, func() (float64, error) {
		candles, err := f.client.FetchCandlesticks(ctx, mint.String(), f.interval, 1)
		if err != nil {
			return 0, err
		}
		if len(candles) == 0 {
			return 0, fmt.Errorf("no candlesticks for %s", mint)
		}

		latest := candles[len(candles)-1]
		if latest.Close <= 0 {
			return 0, backoff.Permanent(fmt.Errorf("non-positive close price %f", latest.Close))
		}
		return f.toLamportsPerUnit(latest.Close), nil
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(15*time.Second),
	)
}

// toLamportsPerUnit converts a SOL-per-whole-token quote into lamports
// per raw token unit.
func (f *PriceFeed) toLamportsPerUnit(solPerToken float64) float64 {
	return solPerToken * float64(solana.LAMPORTS_PER_SOL) / math.Pow10(int(f.tokenDecimals))
}
