// internal/dex/raydium/pool.go
package raydium

import (
	"context"
	"encoding/binary"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// AmmKeys holds the account set of one AMM v4 pool, decoded from the
// on-chain liquidity state.
type AmmKeys struct {
	AmmPool         solana.PublicKey
	AmmAuthority    solana.PublicKey
	AmmOpenOrders   solana.PublicKey
	AmmTargetOrders solana.PublicKey
	AmmCoinMint     solana.PublicKey
	AmmPcMint       solana.PublicKey
	AmmCoinVault    solana.PublicKey
	AmmPcVault      solana.PublicKey
	MarketProgram   solana.PublicKey
	Market          solana.PublicKey
	Nonce           uint8
}

// MarketKeys holds the serum market accounts referenced by a pool.
type MarketKeys struct {
	EventQueue       solana.PublicKey
	Bids             solana.PublicKey
	Asks             solana.PublicKey
	CoinVault        solana.PublicKey
	PcVault          solana.PublicKey
	VaultSignerKey   solana.PublicKey
	VaultSignerNonce uint64
}

// AccountFetcher is the minimal RPC surface needed to resolve pool keys.
type AccountFetcher interface {
	GetAccountInfoData(ctx context.Context, pubkey solana.PublicKey) ([]byte, error)
}

// liquidityStateV4 mirrors the Raydium AMM v4 liquidity account layout.
type liquidityStateV4 struct {
	Status                 uint64
	Nonce                  uint64
	MaxOrder               uint64
	Depth                  uint64
	BaseDecimal            uint64
	QuoteDecimal           uint64
	State                  uint64
	ResetFlag              uint64
	MinSize                uint64
	VolMaxCutRatio         uint64
	AmountWaveRatio        uint64
	BaseLotSize            uint64
	QuoteLotSize           uint64
	MinPriceMultiplier     uint64
	MaxPriceMultiplier     uint64
	SystemDecimalValue     uint64
	MinSeparateNumerator   uint64
	MinSeparateDenominator uint64
	TradeFeeNumerator      uint64
	TradeFeeDenominator    uint64
	PnlNumerator           uint64
	PnlDenominator         uint64
	SwapFeeNumerator       uint64
	SwapFeeDenominator     uint64
	BaseNeedTakePnl        uint64
	QuoteNeedTakePnl       uint64
	QuoteTotalPnl          uint64
	BaseTotalPnl           uint64
	PoolOpenTime           uint64
	PunishPcAmount         uint64
	PunishCoinAmount       uint64
	OrderbookToInitTime    uint64
	SwapBaseInAmount       bin.Uint128
	SwapQuoteOutAmount     bin.Uint128
	SwapBase2QuoteFee      uint64
	SwapQuoteInAmount      bin.Uint128
	SwapBaseOutAmount      bin.Uint128
	SwapQuote2BaseFee      uint64
	BaseVault              solana.PublicKey
	QuoteVault             solana.PublicKey
	BaseMint               solana.PublicKey
	QuoteMint              solana.PublicKey
	LpMint                 solana.PublicKey
	OpenOrders             solana.PublicKey
	MarketID               solana.PublicKey
	MarketProgramID        solana.PublicKey
	TargetOrders           solana.PublicKey
	WithdrawQueue          solana.PublicKey
	LpVault                solana.PublicKey
	Owner                  solana.PublicKey
	LpReserve              uint64
	Padding                [3]uint64
}

// marketStateV3 mirrors the serum market account layout.
type marketStateV3 struct {
	Padding                [5]byte
	AccountFlags           uint64
	OwnAddress             solana.PublicKey
	VaultSignerNonce       uint64
	BaseMint               solana.PublicKey
	QuoteMint              solana.PublicKey
	BaseVault              solana.PublicKey
	BaseDepositsTotal      uint64
	BaseFeesAccrued        uint64
	QuoteVault             solana.PublicKey
	QuoteDepositsTotal     uint64
	QuoteFeesAccrued       uint64
	QuoteDustThreshold     uint64
	RequestQueue           solana.PublicKey
	EventQueue             solana.PublicKey
	Bids                   solana.PublicKey
	Asks                   solana.PublicKey
	BaseLotSize            uint64
	QuoteLotSize           uint64
	FeeRateBps             uint64
	ReferrerRebatesAccrued uint64
	EndPadding             [7]byte
}

// LoadAmmKeys fetches and decodes the pool account into its key set.
func LoadAmmKeys(ctx context.Context, fetcher AccountFetcher, ammPool solana.PublicKey) (*AmmKeys, error) {
	data, err := fetcher.GetAccountInfoData(ctx, ammPool)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch amm account %s: %w", ammPool, err)
	}

	var state liquidityStateV4
	if err := bin.NewBinDecoder(data).Decode(&state); err != nil {
		return nil, fmt.Errorf("failed to decode amm state: %w", err)
	}

	authority, err := solana.CreateProgramAddress(
		[][]byte{ammAuthoritySeed, {uint8(state.Nonce)}},
		AmmProgramID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to derive amm authority: %w", err)
	}

	return &AmmKeys{
		AmmPool:         ammPool,
		AmmAuthority:    authority,
		AmmOpenOrders:   state.OpenOrders,
		AmmTargetOrders: state.TargetOrders,
		AmmCoinMint:     state.BaseMint,
		AmmPcMint:       state.QuoteMint,
		AmmCoinVault:    state.BaseVault,
		AmmPcVault:      state.QuoteVault,
		MarketProgram:   state.MarketProgramID,
		Market:          state.MarketID,
		Nonce:           uint8(state.Nonce),
	}, nil
}

// LoadMarketKeys fetches and decodes the serum market referenced by the pool.
func LoadMarketKeys(ctx context.Context, fetcher AccountFetcher, keys *AmmKeys) (*MarketKeys, error) {
	data, err := fetcher.GetAccountInfoData(ctx, keys.Market)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch market account %s: %w", keys.Market, err)
	}

	var state marketStateV3
	if err := bin.NewBinDecoder(data).Decode(&state); err != nil {
		return nil, fmt.Errorf("failed to decode market state: %w", err)
	}

	nonceBytes := make([]byte, 8)
	binary.LittleEndian.PutUint64(nonceBytes, state.VaultSignerNonce)
	vaultSigner, err := solana.CreateProgramAddress(
		[][]byte{keys.Market.Bytes(), nonceBytes},
		keys.MarketProgram,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to derive market vault signer: %w", err)
	}

	return &MarketKeys{
		EventQueue:       state.EventQueue,
		Bids:             state.Bids,
		Asks:             state.Asks,
		CoinVault:        state.BaseVault,
		PcVault:          state.QuoteVault,
		VaultSignerKey:   vaultSigner,
		VaultSignerNonce: state.VaultSignerNonce,
	}, nil
}

// ResolveSellMints normalizes the swap direction for a sell through the
// pool: the non-WSOL side is what gets sold (input), WSOL is what comes
// back (output).
func ResolveSellMints(keys *AmmKeys) (input, output solana.PublicKey, err error) {
	switch {
	case keys.AmmPcMint.Equals(WSOLMint):
		return keys.AmmCoinMint, keys.AmmPcMint, nil
	case keys.AmmCoinMint.Equals(WSOLMint):
		return keys.AmmPcMint, keys.AmmCoinMint, nil
	default:
		return solana.PublicKey{}, solana.PublicKey{},
			fmt.Errorf("pool %s has no WSOL side", keys.AmmPool)
	}
}
