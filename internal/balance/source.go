// internal/balance/source.go
// Package balance resolves token balances from competing on-chain sources.
package balance

import (
	"context"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/ws"
	"go.uber.org/zap"
)

var (
	// ErrUnavailable is returned when no source could produce a balance
	ErrUnavailable = errors.New("balance unavailable from all sources")

	// ErrSubscriptionLost is returned when an account stream ends before
	// delivering a notification
	ErrSubscriptionLost = errors.New("account subscription lost")
)

// Source yields a single balance reading for a token account.
type Source interface {
	Name() string
	Fetch(ctx context.Context, account solana.PublicKey) (uint64, error)
}

// TokenBalanceFetcher is the RPC surface the pull source needs.
type TokenBalanceFetcher interface {
	GetTokenAccountBalance(ctx context.Context, account solana.PublicKey) (uint64, error)
}

// PullSource reads the balance with a direct RPC query.
type PullSource struct {
	client TokenBalanceFetcher
}

func NewPullSource(client TokenBalanceFetcher) *PullSource {
	return &PullSource{client: client}
}

func (s *PullSource) Name() string { return "rpc" }

func (s *PullSource) Fetch(ctx context.Context, account solana.PublicKey) (uint64, error) {
	return s.client.GetTokenAccountBalance(ctx, account)
}

// PushSource waits for the next account notification on a websocket
// subscription and decodes the SPL amount out of it. It wins the race
// when a purchase has just landed and the node pushes the fresh state
// before the RPC query returns.
type PushSource struct {
	wsURL  string
	logger *zap.Logger
}

func NewPushSource(wsURL string, logger *zap.Logger) *PushSource {
	return &PushSource{wsURL: wsURL, logger: logger}
}

func (s *PushSource) Name() string { return "stream" }

func (s *PushSource) Fetch(ctx context.Context, account solana.PublicKey) (uint64, error) {
	client, err := ws.Connect(ctx, s.wsURL)
	if err != nil {
		return 0, fmt.Errorf("failed to connect websocket: %w", err)
	}
	defer client.Close()

	sub, err := client.AccountSubscribeWithOpts(account, rpc.CommitmentProcessed, solana.EncodingBase64)
	if err != nil {
		return 0, fmt.Errorf("failed to subscribe to account %s: %w", account, err)
	}
	defer sub.Unsubscribe()

	result, err := sub.Recv(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrSubscriptionLost, err)
	}
	if result == nil {
		return 0, ErrSubscriptionLost
	}

	data := result.Value.Data.GetBinary()
	var tokenAccount token.Account
	if err := bin.NewBinDecoder(data).Decode(&tokenAccount); err != nil {
		return 0, fmt.Errorf("failed to decode token account: %w", err)
	}

	s.logger.Debug("Received account notification",
		zap.String("account", account.String()),
		zap.Uint64("amount", tokenAccount.Amount))

	return tokenAccount.Amount, nil
}
