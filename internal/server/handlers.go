// internal/server/handlers.go
// Package server exposes the HTTP trigger surface of the seller.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/seller-bot/internal/balance"
	"github.com/rovshanmuradov/seller-bot/internal/exit"
	"github.com/rovshanmuradov/seller-bot/internal/logger"
)

// Runner drives one exit run to completion.
type Runner interface {
	Run(ctx context.Context, logger *zap.Logger, req exit.Request) error
}

// MintResolver maps a pool to its sell direction on chain.
type MintResolver interface {
	ResolveMints(ctx context.Context, pool solana.PublicKey) (input, output solana.PublicKey, err error)
}

// Handler holds the dependencies behind the HTTP endpoints. Runs are
// detached from the request context: the response confirms the trigger,
// the run itself lives on runCtx until it completes or the process stops.
type Handler struct {
	runner   Runner
	resolver MintResolver
	snapshot *balance.Snapshot
	logger   *logger.Logger
	runCtx   context.Context
}

func NewHandler(runner Runner, resolver MintResolver, snapshot *balance.Snapshot, log *logger.Logger, runCtx context.Context) *Handler {
	return &Handler{
		runner:   runner,
		resolver: resolver,
		snapshot: snapshot,
		logger:   log,
		runCtx:   runCtx,
	}
}

type sellRequest struct {
	AmmPool       string `json:"amm_pool"`
	InputMint     string `json:"input_mint"`
	OutputMint    string `json:"output_mint"`
	LamportsSpent uint64 `json:"lamports_spent"`
	Insta         bool   `json:"insta,omitempty"`
}

type simpleSellRequest struct {
	AmmPool string `json:"amm_pool"`
}

type statusResponse struct {
	Status string `json:"status"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type balanceResponse struct {
	Balance uint64 `json:"balance"`
}

// HandleSell accepts a fully specified trigger and starts the run.
func (h *Handler) HandleSell(w http.ResponseWriter, r *http.Request) {
	var body sellRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}

	pool, err := solana.PublicKeyFromBase58(body.AmmPool)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid amm_pool"})
		return
	}
	inputMint, err := solana.PublicKeyFromBase58(body.InputMint)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid input_mint"})
		return
	}
	outputMint, err := solana.PublicKeyFromBase58(body.OutputMint)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid output_mint"})
		return
	}
	if !body.Insta && body.LamportsSpent == 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "lamports_spent is required for ladder runs"})
		return
	}

	h.startRun(exit.Request{
		Pool:          pool,
		InputMint:     inputMint,
		OutputMint:    outputMint,
		LamportsSpent: body.LamportsSpent,
		Insta:         body.Insta,
	})
	writeJSON(w, http.StatusOK, statusResponse{Status: "OK, triggered sell"})
}

// HandleSellSimple takes only a pool address, resolves the sell direction
// on chain and dumps the whole position at once.
func (h *Handler) HandleSellSimple(w http.ResponseWriter, r *http.Request) {
	var body simpleSellRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}

	pool, err := solana.PublicKeyFromBase58(body.AmmPool)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid amm_pool"})
		return
	}

	inputMint, outputMint, err := h.resolver.ResolveMints(r.Context(), pool)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	h.startRun(exit.Request{
		Pool:       pool,
		InputMint:  inputMint,
		OutputMint: outputMint,
		Insta:      true,
	})
	writeJSON(w, http.StatusOK, statusResponse{Status: "OK"})
}

// HandleBalance reports the last known fund balance.
func (h *Handler) HandleBalance(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, balanceResponse{Balance: h.snapshot.Lamports()})
}

// HandleHealthz is the liveness probe.
func (h *Handler) HandleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) startRun(req exit.Request) {
	runLogger := h.logger.WithRun(req.Pool.String())
	runLogger.Info("Exit run triggered",
		zap.Bool("insta", req.Insta),
		zap.Uint64("lamports_spent", req.LamportsSpent))

	go func() {
		if err := h.runner.Run(h.runCtx, runLogger, req); err != nil {
			runLogger.Error("Exit run failed", zap.Error(err))
			return
		}
		runLogger.Info("Exit run finished")
	}()
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
