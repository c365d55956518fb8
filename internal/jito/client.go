// internal/jito/client.go
// Package jito submits atomic transaction bundles to a Jito block engine.
package jito

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// tipAccounts are the block engine's mainnet tip destinations. One is
// picked at random per bundle to spread load across them.
var tipAccounts = []solana.PublicKey{
	solana.MustPublicKeyFromBase58("96gYZGLnJYVFmbjzopPSU6QiEV5fGqZNyN9nmNhvrZU5"),
	solana.MustPublicKeyFromBase58("HFqU5x63VTqvQss8hp11i4wVV8bD44PvwucfZ2bU7gRe"),
	solana.MustPublicKeyFromBase58("Cw8CFyM9FkoMi7K7Crf6HNQqf4uEMzpKw6QNghXLvLkY"),
	solana.MustPublicKeyFromBase58("ADaUMid9yfUytqMBgopwjb2DTLSokTSzL1zt6iGPaS49"),
	solana.MustPublicKeyFromBase58("DfXygSm4jCyNCybVYYK6DwvWqjKee8pbDmJGcLWNDXjh"),
	solana.MustPublicKeyFromBase58("ADuUkR4vqLUMWXxW9gh6D6L8pMSawimctcNZ5pGwDcEt"),
	solana.MustPublicKeyFromBase58("DttWaMuVvTiduZRnguLF7jNxTgiMBZ1hyAumKUiL2KRL"),
	solana.MustPublicKeyFromBase58("3AVi9Tg9Uo68tJfuvoKvqKNWKkC5wPdSSdeBnizKZ6jT"),
}

// RandomTipAccount picks a tip destination for one bundle.
func RandomTipAccount() solana.PublicKey {
	return tipAccounts[rand.Intn(len(tipAccounts))]
}

// TipInstruction builds a native transfer paying the bundle tip.
func TipInstruction(from solana.PublicKey, lamports uint64) solana.Instruction {
	return system.NewTransferInstruction(lamports, from, RandomTipAccount()).Build()
}

type bundleRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type bundleResponse struct {
	Result string `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Client talks JSON-RPC to one block engine endpoint.
type Client struct {
	http   *resty.Client
	logger *zap.Logger
}

func NewClient(blockEngineURL string, logger *zap.Logger) *Client {
	http := resty.New().
		SetBaseURL(strings.TrimSuffix(blockEngineURL, "/")).
		SetTimeout(10 * time.Second).
		SetHeader("Content-Type", "application/json")

	return &Client{
		http:   http,
		logger: logger.With(zap.String("component", "jito")),
	}
}

// SendBundle submits the signed transactions as one atomic bundle and
// returns the bundle id. Either every transaction lands or none do.
func (c *Client) SendBundle(ctx context.Context, txs []*solana.Transaction) (string, error) {
	if len(txs) == 0 {
		return "", fmt.Errorf("bundle is empty")
	}

	encoded := make([]string, 0, len(txs))
	for _, tx := range txs {
		b64, err := tx.ToBase64()
		if err != nil {
			return "", fmt.Errorf("failed to encode transaction: %w", err)
		}
		encoded = append(encoded, b64)
	}

	var result bundleResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(bundleRequest{
			JSONRPC: "2.0",
			ID:      1,
			Method:  "sendBundle",
			Params:  []any{encoded, map[string]string{"encoding": "base64"}},
		}).
		SetResult(&result).
		Post("/api/v1/bundles")
	if err != nil {
		return "", fmt.Errorf("failed to send bundle: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("block engine returned %s: %s", resp.Status(), resp.String())
	}
	if result.Error != nil {
		return "", fmt.Errorf("block engine rejected bundle: %s (code %d)",
			result.Error.Message, result.Error.Code)
	}

	c.logger.Info("Bundle submitted",
		zap.String("bundle_id", result.Result),
		zap.Int("transactions", len(txs)))

	return result.Result, nil
}
