// internal/dex/raydium/constants.go
// Package raydium implements the Raydium AMM v4 integration on Solana
package raydium

import "github.com/gagliardetto/solana-go"

var (
	// AmmProgramID is the Raydium Liquidity Pool V4 program
	AmmProgramID = solana.MustPublicKeyFromBase58("675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8")

	// WSOLMint is the wrapped SOL mint, the quote side of every pool we exit through
	WSOLMint = solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")
)

const (
	// swapBaseIn instruction index in the AMM v4 program
	instructionSwapBaseIn uint8 = 9

	// swap instruction data: 1 (index) + 8 (amountIn) + 8 (minAmountOut)
	swapInstructionSize = 17
)

// ammAuthoritySeed is the PDA seed of the pool authority ("amm authority")
var ammAuthoritySeed = []byte{97, 109, 109, 32, 97, 117, 116, 104, 111, 114, 105, 116, 121}
