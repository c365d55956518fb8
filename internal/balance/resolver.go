// internal/balance/resolver.go
package balance

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/seller-bot/internal/wallet"
)

// Resolver races a websocket notification against a direct RPC query for
// the wallet's token account of a given mint.
type Resolver struct {
	wallet   *wallet.Wallet
	client   TokenBalanceFetcher
	wsURL    string
	snapshot *Snapshot
	logger   *zap.Logger
}

func NewResolver(w *wallet.Wallet, client TokenBalanceFetcher, wsURL string, snapshot *Snapshot, logger *zap.Logger) *Resolver {
	return &Resolver{
		wallet:   w,
		client:   client,
		wsURL:    wsURL,
		snapshot: snapshot,
		logger:   logger.With(zap.String("component", "balance_resolver")),
	}
}

// Resolve returns the current raw token amount of the wallet's associated
// token account for mint, along with the name of the source that won.
func (r *Resolver) Resolve(ctx context.Context, mint solana.PublicKey) (uint64, string, error) {
	ata, err := r.wallet.GetATA(mint)
	if err != nil {
		return 0, "", fmt.Errorf("failed to derive token account for %s: %w", mint, err)
	}

	sources := []Source{
		NewPushSource(r.wsURL, r.logger),
		NewPullSource(r.client),
	}
	amount, source, err := Race(ctx, r.logger, ata, sources...)
	if err == nil && r.snapshot != nil {
		r.snapshot.SetToken(mint.String(), amount)
	}
	return amount, source, err
}
