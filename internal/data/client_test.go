package data

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestValidateInterval(t *testing.T) {
	for _, interval := range []string{"15s", "30s", "1m", "5m", "15m", "30m", "1h", "4h", "1d"} {
		assert.NoError(t, ValidateInterval(interval), interval)
	}

	assert.ErrorIs(t, ValidateInterval("2m"), ErrInvalidInterval)
	assert.ErrorIs(t, ValidateInterval(""), ErrInvalidInterval)
	assert.ErrorIs(t, ValidateInterval("1w"), ErrInvalidInterval)
}

func TestFetchCandlesticks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/candlesticks", r.URL.Path)
		assert.Equal(t, "30s", r.URL.Query().Get("interval"))
		require.NotEmpty(t, r.URL.Query().Get("mint"))

		_ = json.NewEncoder(w).Encode([]Candlestick{
			{Timestamp: 1_700_000_000, Open: 0.001, Close: 0.0012, Volume: 42},
			{Timestamp: 1_700_000_030, Open: 0.0012, Close: 0.0013, Volume: 17},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, zap.NewNop())
	candles, err := client.FetchCandlesticks(context.Background(), "some-mint", "30s", 0)
	require.NoError(t, err)
	require.Len(t, candles, 2)
	assert.Equal(t, 0.0013, candles[1].Close)
}

func TestFetchCandlesticks_RejectsBadIntervalWithoutCalling(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
	}))
	defer server.Close()

	client := NewClient(server.URL, zap.NewNop())
	_, err := client.FetchCandlesticks(context.Background(), "some-mint", "2m", 0)
	assert.ErrorIs(t, err, ErrInvalidInterval)
	assert.False(t, called)
}

func TestFetchTopTokens(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/top-tokens", r.URL.Path)
		assert.Equal(t, "10", r.URL.Query().Get("limit"))
		assert.Equal(t, "50000", r.URL.Query().Get("min_volume"))
		_ = json.NewEncoder(w).Encode([]TopToken{
			{Name: "TOKEN", Pubkey: "abc", Price: 0.01, MarketCap: 1_000_000},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, zap.NewNop())
	tokens, err := client.FetchTopTokens(context.Background(), TopTokensFilter{Limit: 10, MinVolume: 50_000})
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	assert.Equal(t, "TOKEN", tokens[0].Name)
}

type fakeFetcher struct {
	candles []Candlestick
	err     error
}

func (f *fakeFetcher) FetchCandlesticks(_ context.Context, _, _ string, _ int) ([]Candlestick, error) {
	return f.candles, f.err
}

func TestPriceFeed_ConvertsToLamportsPerUnit(t *testing.T) {
	// 0.002 SOL per whole token with 6 decimals is 2 lamports per raw unit.
	fetcher := &fakeFetcher{candles: []Candlestick{{Close: 0.002}}}
	feed, err := NewPriceFeed(fetcher, "30s", 10*time.Millisecond, 6, zap.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	prices, err := feed.Subscribe(ctx, solana.NewWallet().PublicKey())
	require.NoError(t, err)

	select {
	case price := <-prices:
		assert.InDelta(t, 2.0, price, 1e-9)
	case <-time.After(time.Second):
		t.Fatal("no price emitted")
	}
}

func TestPriceFeed_ClosesOnCancel(t *testing.T) {
	fetcher := &fakeFetcher{candles: []Candlestick{{Close: 0.002}}}
	feed, err := NewPriceFeed(fetcher, "30s", 10*time.Millisecond, 6, zap.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	prices, err := feed.Subscribe(ctx, solana.NewWallet().PublicKey())
	require.NoError(t, err)

	<-prices
	cancel()

	select {
	case _, ok := <-prices:
		if ok {
			// one in-flight price may still come through, the close must follow
			_, ok = <-prices
			assert.False(t, ok)
		}
	case <-time.After(time.Second):
		t.Fatal("feed did not close after cancellation")
	}
}

func TestPriceFeed_RejectsBadInterval(t *testing.T) {
	_, err := NewPriceFeed(&fakeFetcher{}, "2m", time.Second, 6, zap.NewNop())
	assert.ErrorIs(t, err, ErrInvalidInterval)
}
