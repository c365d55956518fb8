// internal/balance/broadcast.go
package balance

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/ws"
	"go.uber.org/zap"
)

// Snapshot is a process-wide cell holding the fund wallet's native
// balance. Readers get the last known value; a lost stream leaves the
// value stale rather than zeroed.
type Snapshot struct {
	mu       sync.RWMutex
	lamports uint64
	tokens   map[string]uint64
	seeded   bool
}

// View is a point-in-time copy of the snapshot for readers.
type View struct {
	Lamports uint64
	Tokens   map[string]uint64
}

// Lamports returns the last observed native balance.
func (s *Snapshot) Lamports() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lamports
}

// TokenBalance returns the last observed raw amount for a mint.
func (s *Snapshot) TokenBalance(mint string) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens[mint]
}

// SetToken records a fresh token balance reading.
func (s *Snapshot) SetToken(mint string, amount uint64) {
	s.mu.Lock()
	if s.tokens == nil {
		s.tokens = make(map[string]uint64)
	}
	s.tokens[mint] = amount
	s.mu.Unlock()
}

// Copy returns a detached view of the whole snapshot.
func (s *Snapshot) Copy() View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tokens := make(map[string]uint64, len(s.tokens))
	for mint, amount := range s.tokens {
		tokens[mint] = amount
	}
	return View{Lamports: s.lamports, Tokens: tokens}
}

// Seeded reports whether at least one reading has landed.
func (s *Snapshot) Seeded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.seeded
}

func (s *Snapshot) Set(lamports uint64) {
	s.mu.Lock()
	s.lamports = lamports
	s.seeded = true
	s.mu.Unlock()
}

// LamportsFetcher is the RPC surface needed to seed the snapshot.
type LamportsFetcher interface {
	GetBalance(ctx context.Context, pubkey solana.PublicKey) (uint64, error)
}

// BroadcastService keeps the snapshot current: it seeds the value over
// RPC at startup, then follows account notifications on a websocket
// subscription for the rest of the process lifetime.
type BroadcastService struct {
	snapshot *Snapshot
	client   LamportsFetcher
	wsURL    string
	owner    solana.PublicKey
	logger   *zap.Logger
}

func NewBroadcastService(client LamportsFetcher, wsURL string, owner solana.PublicKey, logger *zap.Logger) *BroadcastService {
	return &BroadcastService{
		snapshot: &Snapshot{},
		client:   client,
		wsURL:    wsURL,
		owner:    owner,
		logger:   logger.With(zap.String("component", "balance_broadcast")),
	}
}

// Snapshot returns the shared balance cell.
func (s *BroadcastService) Snapshot() *Snapshot {
	return s.snapshot
}

// Run blocks until ctx is cancelled. The initial RPC seed must succeed;
// after that, stream failures are logged and retried while the last
// known value stays readable.
func (s *BroadcastService) Run(ctx context.Context) error {
	lamports, err := s.client.GetBalance(ctx, s.owner)
	if err != nil {
		return fmt.Errorf("failed to seed fund balance: %w", err)
	}
	s.snapshot.Set(lamports)
	s.logger.Info("Fund balance seeded",
		zap.String("owner", s.owner.String()),
		zap.Uint64("lamports", lamports))

	for {
		err := s.follow(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.logger.Warn("Balance stream ended, reconnecting", zap.Error(err))

		_, err = backoff.Retry(ctx, func() (struct{}, error) {
			lamports, err := s.client.GetBalance(ctx, s.owner)
			if err != nil {
				return struct{}{}, err
			}
			s.snapshot.Set(lamports)
			return struct{}{}, nil
		},
			backoff.WithBackOff(backoff.NewExponentialBackOff()),
			backoff.WithMaxElapsedTime(30*time.Second),
		)
		if err != nil {
			s.logger.Warn("Balance reseed failed, keeping stale value", zap.Error(err))
		}
	}
}

func (s *BroadcastService) follow(ctx context.Context) error {
	client, err := ws.Connect(ctx, s.wsURL)
	if err != nil {
		return fmt.Errorf("failed to connect websocket: %w", err)
	}
	defer client.Close()

	sub, err := client.AccountSubscribeWithOpts(s.owner, rpc.CommitmentConfirmed, solana.EncodingBase64)
	if err != nil {
		return fmt.Errorf("failed to subscribe to fund account: %w", err)
	}
	defer sub.Unsubscribe()

	for {
		result, err := sub.Recv(ctx)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrSubscriptionLost, err)
		}
		if result == nil {
			return ErrSubscriptionLost
		}

		s.snapshot.Set(result.Value.Lamports)
		s.logger.Debug("Fund balance updated",
			zap.Uint64("lamports", result.Value.Lamports))
	}
}
