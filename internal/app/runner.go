// internal/app/runner.go
// Package app wires the seller's components together and runs them.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/seller-bot/internal/balance"
	bcsolana "github.com/rovshanmuradov/seller-bot/internal/blockchain/solana"
	"github.com/rovshanmuradov/seller-bot/internal/config"
	"github.com/rovshanmuradov/seller-bot/internal/data"
	"github.com/rovshanmuradov/seller-bot/internal/exit"
	"github.com/rovshanmuradov/seller-bot/internal/jito"
	"github.com/rovshanmuradov/seller-bot/internal/logger"
	"github.com/rovshanmuradov/seller-bot/internal/server"
	"github.com/rovshanmuradov/seller-bot/internal/swap"
	"github.com/rovshanmuradov/seller-bot/internal/wallet"
)

// defaultTokenDecimals covers the pump.fun style mints this seller
// trades; a config knob can follow when other decimals show up.
const defaultTokenDecimals = 6

// Runner owns the seller's long-lived services.
type Runner struct {
	cfg        *config.Config
	log        *logger.Logger
	client     *bcsolana.Client
	broadcast  *balance.BroadcastService
	httpServer *http.Server
	shutdownCh chan os.Signal
}

// NewRunner builds the full dependency graph from the configuration.
func NewRunner(cfg *config.Config, log *logger.Logger) (*Runner, error) {
	client, err := bcsolana.NewClient(cfg.RPCList, log.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create RPC client: %w", err)
	}

	fundWallet, err := wallet.LoadFromFile(cfg.FundKeypairPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load fund wallet: %w", err)
	}
	log.Info("Fund wallet loaded", zap.String("pubkey", fundWallet.String()))

	relay := jito.NewClient(cfg.BlockEngineURL, log.Logger)
	submitter := swap.NewSubmitter(client, fundWallet, relay, cfg.SlippageBps, cfg.TipLamports, log.Logger)

	dataClient := data.NewClient(cfg.DataAPIURL, log.Logger)
	feed, err := data.NewPriceFeed(
		dataClient,
		cfg.PriceInterval,
		time.Duration(cfg.PriceDelay)*time.Millisecond,
		defaultTokenDecimals,
		log.Logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create price feed: %w", err)
	}

	broadcast := balance.NewBroadcastService(client, cfg.WebSocketURL, fundWallet.PublicKey, log.Logger)
	resolver := balance.NewResolver(fundWallet, client, cfg.WebSocketURL, broadcast.Snapshot(), log.Logger)

	executor := exit.NewExecutor(submitter, feed, resolver, exit.Options{
		BundleStopLoss: cfg.BundleStopLoss,
		MaxRunDuration: time.Duration(cfg.MaxRunMinutes) * time.Minute,
	})

	r := &Runner{
		cfg:        cfg,
		log:        log,
		client:     client,
		broadcast:  broadcast,
		shutdownCh: make(chan os.Signal, 1),
	}

	handler := server.NewHandler(executor, submitter, broadcast.Snapshot(), log, context.Background())
	r.httpServer = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           server.NewRouter(handler),
		ReadHeaderTimeout: 5 * time.Second,
	}

	return r, nil
}

// Run starts the balance broadcast and the HTTP server and blocks until
// a shutdown signal arrives or one of them fails.
func (r *Runner) Run(ctx context.Context) error {
	signal.Notify(r.shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := r.broadcast.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		r.log.Info("HTTP server listening", zap.String("addr", r.cfg.ListenAddr))
		err := r.httpServer.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		select {
		case sig := <-r.shutdownCh:
			r.log.Info("Signal received, shutting down", zap.String("signal", sig.String()))
			cancel()
		case <-gctx.Done():
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return r.httpServer.Shutdown(shutdownCtx)
	})

	err := g.Wait()
	r.log.Info("Seller stopped")
	return err
}

// Shutdown flushes the logger on the way out.
func (r *Runner) Shutdown() {
	if err := r.log.Sync(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to sync logger during shutdown: %v\n", err)
	}
}
