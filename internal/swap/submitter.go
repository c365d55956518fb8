// internal/swap/submitter.go
// Package swap builds, signs and submits the sell transactions.
package swap

import (
	"context"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/seller-bot/internal/dex/raydium"
	"github.com/rovshanmuradov/seller-bot/internal/exit"
	"github.com/rovshanmuradov/seller-bot/internal/jito"
	"github.com/rovshanmuradov/seller-bot/internal/wallet"
)

// ChainClient is the RPC surface the submitter needs.
type ChainClient interface {
	GetAccountInfoData(ctx context.Context, pubkey solana.PublicKey) ([]byte, error)
	GetTokenAccountBalance(ctx context.Context, account solana.PublicKey) (uint64, error)
	GetRecentBlockhash(ctx context.Context) (solana.Hash, error)
	SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
}

// BundleRelay submits signed transactions as one atomic bundle.
type BundleRelay interface {
	SendBundle(ctx context.Context, txs []*solana.Transaction) (string, error)
}

type poolKeys struct {
	amm    *raydium.AmmKeys
	market *raydium.MarketKeys
}

// Submitter executes sells through Raydium AMM v4 pools.
type Submitter struct {
	client      ChainClient
	wallet      *wallet.Wallet
	relay       BundleRelay
	logger      *zap.Logger
	slippageBps uint16
	tipLamports uint64

	// pool account sets are immutable once created, cache them per pool
	keysCache sync.Map
}

func NewSubmitter(client ChainClient, w *wallet.Wallet, relay BundleRelay, slippageBps uint16, tipLamports uint64, logger *zap.Logger) *Submitter {
	return &Submitter{
		client:      client,
		wallet:      w,
		relay:       relay,
		logger:      logger.With(zap.String("component", "swap")),
		slippageBps: slippageBps,
		tipLamports: tipLamports,
	}
}

// Sell swaps amount raw units of the position's input mint through its
// pool. The returned string is the transaction signature.
func (s *Submitter) Sell(ctx context.Context, pos *exit.Position, amount uint64, mode exit.Mode) (string, error) {
	if amount == 0 {
		return "", fmt.Errorf("sell amount must be positive")
	}
	if amount > pos.TokenBalance {
		return "", fmt.Errorf("sell amount %d exceeds position balance %d", amount, pos.TokenBalance)
	}

	keys, err := s.loadKeys(ctx, pos.Pool)
	if err != nil {
		return "", err
	}

	input, output, err := raydium.ResolveSellMints(keys.amm)
	if err != nil {
		return "", err
	}
	if !input.Equals(pos.InputMint) || !output.Equals(pos.OutputMint) {
		return "", fmt.Errorf("pool %s trades %s/%s, request names %s/%s",
			pos.Pool, input, output, pos.InputMint, pos.OutputMint)
	}

	userSource, err := s.wallet.GetATA(pos.InputMint)
	if err != nil {
		return "", fmt.Errorf("failed to derive source token account: %w", err)
	}
	userDest, err := s.wallet.GetATA(pos.OutputMint)
	if err != nil {
		return "", fmt.Errorf("failed to derive destination token account: %w", err)
	}

	minAmountOut, err := s.quoteMinOut(ctx, keys.amm, input, amount)
	if err != nil {
		return "", err
	}

	swapIx, err := raydium.BuildSwapBaseInInstruction(raydium.SwapParams{
		Keys:         keys.amm,
		Market:       keys.market,
		UserSource:   userSource,
		UserDest:     userDest,
		UserOwner:    s.wallet.PublicKey,
		AmountIn:     amount,
		MinAmountOut: minAmountOut,
	})
	if err != nil {
		return "", err
	}

	instructions := []solana.Instruction{swapIx}
	if mode == exit.SubmitBundle {
		instructions = append(instructions, s.tipInstruction())
	}

	tx, err := s.buildSignedTransaction(ctx, instructions)
	if err != nil {
		return "", err
	}

	s.logger.Debug("Submitting sell",
		zap.String("pool", pos.Pool.String()),
		zap.Uint64("amount_in", amount),
		zap.Uint64("min_amount_out", minAmountOut),
		zap.String("mode", string(mode)))

	if mode == exit.SubmitBundle {
		if _, err := s.relay.SendBundle(ctx, []*solana.Transaction{tx}); err != nil {
			return "", fmt.Errorf("bundle submission failed: %w", err)
		}
		return tx.Signatures[0].String(), nil
	}

	sig, err := s.client.SendTransaction(ctx, tx)
	if err != nil {
		return "", err
	}
	return sig.String(), nil
}

// ResolveMints reports which mint a sell through the pool spends and
// which it receives.
func (s *Submitter) ResolveMints(ctx context.Context, pool solana.PublicKey) (input, output solana.PublicKey, err error) {
	keys, err := s.loadKeys(ctx, pool)
	if err != nil {
		return solana.PublicKey{}, solana.PublicKey{}, err
	}
	return raydium.ResolveSellMints(keys.amm)
}

func (s *Submitter) loadKeys(ctx context.Context, pool solana.PublicKey) (*poolKeys, error) {
	if cached, ok := s.keysCache.Load(pool); ok {
		return cached.(*poolKeys), nil
	}

	amm, err := raydium.LoadAmmKeys(ctx, s.client, pool)
	if err != nil {
		return nil, err
	}
	market, err := raydium.LoadMarketKeys(ctx, s.client, amm)
	if err != nil {
		return nil, err
	}

	keys := &poolKeys{amm: amm, market: market}
	s.keysCache.Store(pool, keys)
	return keys, nil
}

// quoteMinOut estimates the swap output from the current vault reserves
// with the constant product formula, then applies the slippage tolerance.
func (s *Submitter) quoteMinOut(ctx context.Context, amm *raydium.AmmKeys, input solana.PublicKey, amountIn uint64) (uint64, error) {
	srcVault, dstVault := amm.AmmCoinVault, amm.AmmPcVault
	if !amm.AmmCoinMint.Equals(input) {
		srcVault, dstVault = amm.AmmPcVault, amm.AmmCoinVault
	}

	srcReserve, err := s.client.GetTokenAccountBalance(ctx, srcVault)
	if err != nil {
		return 0, fmt.Errorf("failed to read source vault: %w", err)
	}
	dstReserve, err := s.client.GetTokenAccountBalance(ctx, dstVault)
	if err != nil {
		return 0, fmt.Errorf("failed to read destination vault: %w", err)
	}
	if srcReserve == 0 || dstReserve == 0 {
		return 0, fmt.Errorf("pool vaults are empty")
	}

	amountOut := uint64(float64(amountIn) * float64(dstReserve) / float64(srcReserve+amountIn))
	return raydium.MinAmountOutWithSlippage(amountOut, s.slippageBps), nil
}

func (s *Submitter) tipInstruction() solana.Instruction {
	return jito.TipInstruction(s.wallet.PublicKey, s.tipLamports)
}

func (s *Submitter) buildSignedTransaction(ctx context.Context, instructions []solana.Instruction) (*solana.Transaction, error) {
	blockhash, err := s.client.GetRecentBlockhash(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent blockhash: %w", err)
	}

	tx, err := solana.NewTransaction(instructions, blockhash, solana.TransactionPayer(s.wallet.PublicKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}

	if err := s.wallet.SignTransaction(tx); err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}
	return tx, nil
}
