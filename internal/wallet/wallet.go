// ==================================
// File: internal/wallet/wallet.go
// ==================================
package wallet

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/gagliardetto/solana-go"
)

// Wallet holds the fund keypair used to sign every exit transaction.
type Wallet struct {
	PrivateKey solana.PrivateKey
	PublicKey  solana.PublicKey

	mu       sync.Mutex
	ataCache map[string]solana.PublicKey
}

// New creates a wallet from a base58-encoded private key.
func New(privateKeyBase58 string) (*Wallet, error) {
	privateKey, err := solana.PrivateKeyFromBase58(privateKeyBase58)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return fromKey(privateKey), nil
}

// LoadFromFile reads a solana-keygen JSON keypair file.
func LoadFromFile(path string) (*Wallet, error) {
	cleanPath := filepath.Clean(path)
	privateKey, err := solana.PrivateKeyFromSolanaKeygenFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read keypair file %s: %w", cleanPath, err)
	}
	return fromKey(privateKey), nil
}

func fromKey(privateKey solana.PrivateKey) *Wallet {
	return &Wallet{
		PrivateKey: privateKey,
		PublicKey:  privateKey.PublicKey(),
		ataCache:   make(map[string]solana.PublicKey),
	}
}

// SignTransaction signs the transaction with the fund private key.
func (w *Wallet) SignTransaction(tx *solana.Transaction) error {
	_, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(w.PublicKey) {
			return &w.PrivateKey
		}
		return nil
	})
	return err
}

// GetATA returns the associated token account address for the given mint.
// Previously derived addresses are served from cache.
func (w *Wallet) GetATA(mint solana.PublicKey) (solana.PublicKey, error) {
	mintStr := mint.String()

	w.mu.Lock()
	defer w.mu.Unlock()
	if ata, ok := w.ataCache[mintStr]; ok {
		return ata, nil
	}
	ata, _, err := solana.FindAssociatedTokenAddress(w.PublicKey, mint)
	if err != nil {
		return solana.PublicKey{}, err
	}
	w.ataCache[mintStr] = ata
	return ata, nil
}

// String returns the wallet's public key.
func (w *Wallet) String() string {
	return w.PublicKey.String()
}
