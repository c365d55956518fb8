// internal/dex/raydium/instructions.go
package raydium

import (
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// SwapParams carries everything needed to build one swapBaseIn instruction.
type SwapParams struct {
	Keys         *AmmKeys
	Market       *MarketKeys
	UserSource   solana.PublicKey // ATA holding the mint being sold
	UserDest     solana.PublicKey // ATA receiving the proceeds
	UserOwner    solana.PublicKey
	AmountIn     uint64
	MinAmountOut uint64
}

// BuildSwapBaseInInstruction builds the AMM v4 swap instruction selling
// an exact input amount.
func BuildSwapBaseInInstruction(params SwapParams) (solana.Instruction, error) {
	if err := validateSwapParams(params); err != nil {
		return nil, err
	}

	data := make([]byte, swapInstructionSize)
	data[0] = instructionSwapBaseIn
	binary.LittleEndian.PutUint64(data[1:9], params.AmountIn)
	binary.LittleEndian.PutUint64(data[9:17], params.MinAmountOut)

	accountMetas := solana.AccountMetaSlice{
		solana.NewAccountMeta(solana.TokenProgramID, false, false),
		solana.NewAccountMeta(params.Keys.AmmPool, true, false),
		solana.NewAccountMeta(params.Keys.AmmAuthority, false, false),
		solana.NewAccountMeta(params.Keys.AmmOpenOrders, true, false),
		solana.NewAccountMeta(params.Keys.AmmTargetOrders, true, false),
		solana.NewAccountMeta(params.Keys.AmmCoinVault, true, false),
		solana.NewAccountMeta(params.Keys.AmmPcVault, true, false),
		solana.NewAccountMeta(params.Keys.MarketProgram, false, false),
		solana.NewAccountMeta(params.Keys.Market, true, false),
		solana.NewAccountMeta(params.Market.Bids, true, false),
		solana.NewAccountMeta(params.Market.Asks, true, false),
		solana.NewAccountMeta(params.Market.EventQueue, true, false),
		solana.NewAccountMeta(params.Market.CoinVault, true, false),
		solana.NewAccountMeta(params.Market.PcVault, true, false),
		solana.NewAccountMeta(params.Market.VaultSignerKey, false, false),
		solana.NewAccountMeta(params.UserSource, true, false),
		solana.NewAccountMeta(params.UserDest, true, false),
		solana.NewAccountMeta(params.UserOwner, true, true),
	}

	return solana.NewInstruction(AmmProgramID, accountMetas, data), nil
}

func validateSwapParams(params SwapParams) error {
	if params.Keys == nil || params.Market == nil {
		return fmt.Errorf("pool and market keys are required")
	}
	if params.UserOwner.IsZero() {
		return fmt.Errorf("user owner is required")
	}
	if params.UserSource.IsZero() || params.UserDest.IsZero() {
		return fmt.Errorf("user token accounts are required")
	}
	if params.AmountIn == 0 {
		return fmt.Errorf("amount in must be positive")
	}
	return nil
}

// MinAmountOutWithSlippage applies a basis-point slippage tolerance to an
// expected output amount.
func MinAmountOutWithSlippage(amountOut uint64, slippageBps uint16) uint64 {
	slippage := (amountOut * uint64(slippageBps)) / 10_000
	return amountOut - slippage
}
