// internal/exit/executor.go
package exit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/seller-bot/internal/metrics"
)

// Mode selects how a swap reaches the chain.
type Mode string

const (
	// SubmitDirect broadcasts the transaction through a regular RPC node
	SubmitDirect Mode = "direct"

	// SubmitBundle wraps the transaction in an atomic tipped bundle
	SubmitBundle Mode = "bundle"
)

// Submitter turns a sell decision into an on-chain transaction.
type Submitter interface {
	Sell(ctx context.Context, pos *Position, amount uint64, mode Mode) (string, error)
}

// PriceFeed streams the token price in lamports per raw token unit.
type PriceFeed interface {
	Subscribe(ctx context.Context, mint solana.PublicKey) (<-chan float64, error)
}

// BalanceResolver reports the wallet's current holding of a mint and the
// name of the source that answered first.
type BalanceResolver interface {
	Resolve(ctx context.Context, mint solana.PublicKey) (uint64, string, error)
}

// Request is one accepted trigger, already parsed and validated at the
// HTTP boundary.
type Request struct {
	Pool          solana.PublicKey
	InputMint     solana.PublicKey
	OutputMint    solana.PublicKey
	LamportsSpent uint64
	Insta         bool
}

// Options tune a run without touching the ladder tables.
type Options struct {
	StopLoss       []LevelConfig
	TakeProfit     []LevelConfig
	BundleStopLoss bool
	MaxRunDuration time.Duration
}

// Executor drives one exit run from trigger to completion.
type Executor struct {
	submitter Submitter
	feed      PriceFeed
	resolver  BalanceResolver
	opts      Options
}

func NewExecutor(submitter Submitter, feed PriceFeed, resolver BalanceResolver, opts Options) *Executor {
	if opts.StopLoss == nil {
		opts.StopLoss = DefaultStopLossLevels()
	}
	if opts.TakeProfit == nil {
		opts.TakeProfit = DefaultTakeProfitLevels()
	}
	return &Executor{
		submitter: submitter,
		feed:      feed,
		resolver:  resolver,
		opts:      opts,
	}
}

// Run resolves the balance, then either dumps the whole position at once
// (insta) or walks the price feed through the stop-loss and take-profit
// ladders until both are exhausted, the budget is spent, or the run
// window closes.
func (e *Executor) Run(ctx context.Context, logger *zap.Logger, req Request) error {
	balance, source, err := e.resolver.Resolve(ctx, req.InputMint)
	if err != nil {
		return fmt.Errorf("failed to resolve balance: %w", err)
	}
	metrics.BalanceRaceWins.WithLabelValues(source).Inc()
	logger.Info("Balance resolved",
		zap.Uint64("balance", balance),
		zap.String("source", source))

	pos := &Position{
		Pool:         req.Pool,
		InputMint:    req.InputMint,
		OutputMint:   req.OutputMint,
		LamportsIn:   req.LamportsSpent,
		TokenBalance: balance,
	}

	if req.Insta {
		metrics.RunsStarted.WithLabelValues("insta").Inc()
		return e.runInsta(ctx, logger, pos)
	}

	metrics.RunsStarted.WithLabelValues("ladder").Inc()
	return e.runLadder(ctx, logger, pos)
}

func (e *Executor) runInsta(ctx context.Context, logger *zap.Logger, pos *Position) error {
	if pos.TokenBalance == 0 {
		logger.Info("No balance to sell, nothing to do")
		return nil
	}

	sig, err := e.sell(ctx, logger, pos, pos.TokenBalance, SubmitDirect)
	if err != nil {
		return fmt.Errorf("insta sell failed: %w", err)
	}
	logger.Info("Position sold in full",
		zap.Uint64("amount", pos.TokenBalance),
		zap.String("signature", sig))
	return nil
}

func (e *Executor) runLadder(ctx context.Context, logger *zap.Logger, pos *Position) error {
	if pos.LamportsIn == 0 {
		return fmt.Errorf("%w: zero entry cost, cannot compute entry price", ErrInvalidRequest)
	}
	if pos.TokenBalance == 0 {
		return fmt.Errorf("%w: no balance to ladder out of", ErrInvalidRequest)
	}

	stopLoss, err := NewLadder(SideStopLoss, e.opts.StopLoss, pos.TokenBalance)
	if err != nil {
		return err
	}
	takeProfit, err := NewLadder(SideTakeProfit, e.opts.TakeProfit, pos.TokenBalance)
	if err != nil {
		return err
	}

	if e.opts.MaxRunDuration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.MaxRunDuration)
		defer cancel()
	}

	prices, err := e.feed.Subscribe(ctx, pos.InputMint)
	if err != nil {
		return fmt.Errorf("failed to subscribe to price feed: %w", err)
	}

	entryPrice := pos.EntryPrice()
	logger.Info("Ladder armed",
		zap.Float64("entry_price", entryPrice),
		zap.Uint64("balance", pos.TokenBalance))

	// The two ladders share one budget: capping each rung at what is
	// actually left keeps the total sold within the starting balance.
	remaining := pos.TokenBalance

	for {
		select {
		case price, ok := <-prices:
			if !ok {
				if stopLoss.Exhausted() && takeProfit.Exhausted() {
					return nil
				}
				return errors.New("price feed ended before the run completed")
			}

			ratio := price / entryPrice
			fires := append(stopLoss.Observe(ratio), takeProfit.Observe(ratio)...)
			for _, fire := range fires {
				amount := fire.Amount
				if amount > remaining {
					amount = remaining
				}
				if amount == 0 {
					continue
				}

				mode := SubmitDirect
				if fire.Side == SideStopLoss && e.opts.BundleStopLoss {
					mode = SubmitBundle
				}

				sig, err := e.sell(ctx, logger, pos, amount, mode)
				if err != nil {
					return &SubmissionError{
						Side:   fire.Side,
						Level:  fire.TriggerRatio,
						Amount: amount,
						Err:    err,
					}
				}
				remaining -= amount
				metrics.LadderLevelsFired.WithLabelValues(string(fire.Side)).Inc()
				logger.Info("Ladder level fired",
					zap.String("side", string(fire.Side)),
					zap.Float64("trigger_ratio", fire.TriggerRatio),
					zap.Float64("price_ratio", ratio),
					zap.Uint64("amount", amount),
					zap.Uint64("remaining", remaining),
					zap.String("signature", sig))
			}

			if remaining == 0 || (stopLoss.Exhausted() && takeProfit.Exhausted()) {
				logger.Info("Exit run completed",
					zap.Uint64("remaining", remaining))
				return nil
			}

		case <-ctx.Done():
			if e.opts.MaxRunDuration > 0 && errors.Is(ctx.Err(), context.DeadlineExceeded) {
				logger.Info("Run window elapsed, position kept as is",
					zap.Uint64("remaining", remaining))
				return nil
			}
			return ctx.Err()
		}
	}
}

func (e *Executor) sell(ctx context.Context, logger *zap.Logger, pos *Position, amount uint64, mode Mode) (string, error) {
	sig, err := e.submitter.Sell(ctx, pos, amount, mode)
	if err != nil {
		metrics.SellsSubmitted.WithLabelValues(string(mode), "error").Inc()
		logger.Error("Swap submission failed",
			zap.String("mode", string(mode)),
			zap.Uint64("amount", amount),
			zap.Error(err))
		return "", err
	}
	metrics.SellsSubmitted.WithLabelValues(string(mode), "ok").Inc()
	return sig, nil
}
