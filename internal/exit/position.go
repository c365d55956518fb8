// internal/exit/position.go
package exit

import "github.com/gagliardetto/solana-go"

// Position is the resolved state a run operates on: the pool to exit
// through and the balance snapshot taken when the run started.
type Position struct {
	Pool         solana.PublicKey
	InputMint    solana.PublicKey
	OutputMint   solana.PublicKey
	LamportsIn   uint64 // what the position originally cost
	TokenBalance uint64 // raw token units held at run start
}

// EntryPrice returns the effective purchase price in lamports per raw
// token unit. Callers must guard against a zero balance first.
func (p *Position) EntryPrice() float64 {
	return float64(p.LamportsIn) / float64(p.TokenBalance)
}
