// internal/balance/race.go
package balance

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

type outcome struct {
	amount uint64
	source string
	err    error
}

// Race runs every source concurrently and returns the first completion,
// successful or not. The losers are cancelled as soon as a winner is in:
// an error from the winning source is authoritative, falling back to a
// slower source would mean selling against a stale balance.
func Race(ctx context.Context, logger *zap.Logger, account solana.PublicKey, sources ...Source) (uint64, string, error) {
	if len(sources) == 0 {
		return 0, "", ErrUnavailable
	}

	raceCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan outcome, len(sources))
	for _, src := range sources {
		go func(src Source) {
			amount, err := src.Fetch(raceCtx, account)
			results <- outcome{amount: amount, source: src.Name(), err: err}
		}(src)
	}

	select {
	case res := <-results:
		if res.err != nil {
			logger.Error("Balance source failed",
				zap.String("source", res.source),
				zap.Error(res.err))
			return 0, res.source, res.err
		}
		logger.Debug("Balance race settled",
			zap.String("winner", res.source),
			zap.Uint64("amount", res.amount))
		return res.amount, res.source, nil
	case <-ctx.Done():
		return 0, "", ctx.Err()
	}
}
