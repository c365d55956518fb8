package swap

import (
	"context"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/seller-bot/internal/dex/raydium"
	"github.com/rovshanmuradov/seller-bot/internal/exit"
	"github.com/rovshanmuradov/seller-bot/internal/wallet"
)

type fakeChain struct {
	balances map[solana.PublicKey]uint64
	sentTxs  []*solana.Transaction
}

func (f *fakeChain) GetAccountInfoData(_ context.Context, _ solana.PublicKey) ([]byte, error) {
	panic("key loading is bypassed in tests via the cache")
}

func (f *fakeChain) GetTokenAccountBalance(_ context.Context, account solana.PublicKey) (uint64, error) {
	return f.balances[account], nil
}

func (f *fakeChain) GetRecentBlockhash(_ context.Context) (solana.Hash, error) {
	return solana.HashFromBytes(make([]byte, 32)), nil
}

func (f *fakeChain) SendTransaction(_ context.Context, tx *solana.Transaction) (solana.Signature, error) {
	f.sentTxs = append(f.sentTxs, tx)
	return tx.Signatures[0], nil
}

type fakeRelay struct {
	bundles [][]*solana.Transaction
}

func (f *fakeRelay) SendBundle(_ context.Context, txs []*solana.Transaction) (string, error) {
	f.bundles = append(f.bundles, txs)
	return "bundle-id", nil
}

type fixture struct {
	submitter *Submitter
	chain     *fakeChain
	relay     *fakeRelay
	pos       *exit.Position
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	kp := solana.NewWallet()
	w, err := wallet.New(kp.PrivateKey.String())
	require.NoError(t, err)

	tokenMint := solana.NewWallet().PublicKey()
	pool := solana.NewWallet().PublicKey()
	amm := &raydium.AmmKeys{
		AmmPool:         pool,
		AmmAuthority:    solana.NewWallet().PublicKey(),
		AmmOpenOrders:   solana.NewWallet().PublicKey(),
		AmmTargetOrders: solana.NewWallet().PublicKey(),
		AmmCoinMint:     tokenMint,
		AmmPcMint:       raydium.WSOLMint,
		AmmCoinVault:    solana.NewWallet().PublicKey(),
		AmmPcVault:      solana.NewWallet().PublicKey(),
		MarketProgram:   solana.NewWallet().PublicKey(),
		Market:          solana.NewWallet().PublicKey(),
	}
	market := &raydium.MarketKeys{
		EventQueue:     solana.NewWallet().PublicKey(),
		Bids:           solana.NewWallet().PublicKey(),
		Asks:           solana.NewWallet().PublicKey(),
		CoinVault:      solana.NewWallet().PublicKey(),
		PcVault:        solana.NewWallet().PublicKey(),
		VaultSignerKey: solana.NewWallet().PublicKey(),
	}

	chain := &fakeChain{balances: map[solana.PublicKey]uint64{
		amm.AmmCoinVault: 1_000_000,
		amm.AmmPcVault:   500_000,
	}}
	relay := &fakeRelay{}

	s := NewSubmitter(chain, w, relay, 500, 10_000, zap.NewNop())
	s.keysCache.Store(pool, &poolKeys{amm: amm, market: market})

	return &fixture{
		submitter: s,
		chain:     chain,
		relay:     relay,
		pos: &exit.Position{
			Pool:         pool,
			InputMint:    tokenMint,
			OutputMint:   raydium.WSOLMint,
			LamportsIn:   2_000,
			TokenBalance: 10_000,
		},
	}
}

func TestSell_Direct(t *testing.T) {
	f := newFixture(t)

	sig, err := f.submitter.Sell(context.Background(), f.pos, 1_000, exit.SubmitDirect)
	require.NoError(t, err)
	assert.NotEmpty(t, sig)

	require.Len(t, f.chain.sentTxs, 1)
	assert.Empty(t, f.relay.bundles)

	tx := f.chain.sentTxs[0]
	assert.Len(t, tx.Message.Instructions, 1, "a direct sell carries only the swap")
	assert.NotEmpty(t, tx.Signatures)
}

func TestSell_BundleCarriesTip(t *testing.T) {
	f := newFixture(t)

	sig, err := f.submitter.Sell(context.Background(), f.pos, 1_000, exit.SubmitBundle)
	require.NoError(t, err)
	assert.NotEmpty(t, sig)

	assert.Empty(t, f.chain.sentTxs, "bundles must not go through the regular broadcast path")
	require.Len(t, f.relay.bundles, 1)
	require.Len(t, f.relay.bundles[0], 1)

	tx := f.relay.bundles[0][0]
	assert.Len(t, tx.Message.Instructions, 2, "a bundle carries the swap plus the tip transfer")
}

func TestSell_RejectsZeroAmount(t *testing.T) {
	f := newFixture(t)

	_, err := f.submitter.Sell(context.Background(), f.pos, 0, exit.SubmitDirect)
	assert.Error(t, err)
}

func TestSell_RejectsAmountAboveBalance(t *testing.T) {
	f := newFixture(t)

	_, err := f.submitter.Sell(context.Background(), f.pos, f.pos.TokenBalance+1, exit.SubmitDirect)
	assert.Error(t, err)
}

func TestSell_RejectsMintMismatch(t *testing.T) {
	f := newFixture(t)
	f.pos.InputMint = solana.NewWallet().PublicKey()

	_, err := f.submitter.Sell(context.Background(), f.pos, 1_000, exit.SubmitDirect)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "request names")
}
