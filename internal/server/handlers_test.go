package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/seller-bot/internal/balance"
	"github.com/rovshanmuradov/seller-bot/internal/exit"
	"github.com/rovshanmuradov/seller-bot/internal/logger"
)

type fakeRunner struct {
	mu   sync.Mutex
	runs []exit.Request
}

func (f *fakeRunner) Run(_ context.Context, _ *zap.Logger, req exit.Request) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs = append(f.runs, req)
	return nil
}

func (f *fakeRunner) started() []exit.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]exit.Request(nil), f.runs...)
}

type fakeMintResolver struct {
	input, output solana.PublicKey
	err           error
}

func (f *fakeMintResolver) ResolveMints(_ context.Context, _ solana.PublicKey) (solana.PublicKey, solana.PublicKey, error) {
	return f.input, f.output, f.err
}

func newTestServer(t *testing.T, runner *fakeRunner, resolver *fakeMintResolver) (*httptest.Server, *balance.Snapshot) {
	t.Helper()

	cfg := logger.DefaultConfig()
	cfg.LogFile = filepath.Join(t.TempDir(), "test.log")
	log, err := logger.New(cfg)
	require.NoError(t, err)

	var snapshot balance.Snapshot
	h := NewHandler(runner, resolver, &snapshot, log, context.Background())
	server := httptest.NewServer(NewRouter(h))
	t.Cleanup(server.Close)
	return server, &snapshot
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestHandleSell_TriggersLadderRun(t *testing.T) {
	runner := &fakeRunner{}
	server, _ := newTestServer(t, runner, &fakeMintResolver{})

	pool := solana.NewWallet().PublicKey()
	input := solana.NewWallet().PublicKey()
	output := solana.NewWallet().PublicKey()

	resp := postJSON(t, server.URL+"/sell", map[string]any{
		"amm_pool":       pool.String(),
		"input_mint":     input.String(),
		"output_mint":    output.String(),
		"lamports_spent": 1_000_000,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "OK, triggered sell", body["status"])

	require.Eventually(t, func() bool { return len(runner.started()) == 1 }, time.Second, 5*time.Millisecond)
	run := runner.started()[0]
	assert.Equal(t, pool, run.Pool)
	assert.Equal(t, input, run.InputMint)
	assert.Equal(t, uint64(1_000_000), run.LamportsSpent)
	assert.False(t, run.Insta)
}

func TestHandleSell_RejectsBadPubkey(t *testing.T) {
	runner := &fakeRunner{}
	server, _ := newTestServer(t, runner, &fakeMintResolver{})

	resp := postJSON(t, server.URL+"/sell", map[string]any{
		"amm_pool":       "not-a-pubkey",
		"input_mint":     solana.NewWallet().PublicKey().String(),
		"output_mint":    solana.NewWallet().PublicKey().String(),
		"lamports_spent": 1,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, runner.started())
}

func TestHandleSell_RejectsZeroLamportsForLadder(t *testing.T) {
	runner := &fakeRunner{}
	server, _ := newTestServer(t, runner, &fakeMintResolver{})

	resp := postJSON(t, server.URL+"/sell", map[string]any{
		"amm_pool":    solana.NewWallet().PublicKey().String(),
		"input_mint":  solana.NewWallet().PublicKey().String(),
		"output_mint": solana.NewWallet().PublicKey().String(),
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, runner.started())
}

func TestHandleSell_InstaNeedsNoLamports(t *testing.T) {
	runner := &fakeRunner{}
	server, _ := newTestServer(t, runner, &fakeMintResolver{})

	resp := postJSON(t, server.URL+"/sell", map[string]any{
		"amm_pool":    solana.NewWallet().PublicKey().String(),
		"input_mint":  solana.NewWallet().PublicKey().String(),
		"output_mint": solana.NewWallet().PublicKey().String(),
		"insta":       true,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Eventually(t, func() bool { return len(runner.started()) == 1 }, time.Second, 5*time.Millisecond)
	assert.True(t, runner.started()[0].Insta)
}

func TestHandleSellSimple_ResolvesMintsAndDumps(t *testing.T) {
	runner := &fakeRunner{}
	resolver := &fakeMintResolver{
		input:  solana.NewWallet().PublicKey(),
		output: solana.NewWallet().PublicKey(),
	}
	server, _ := newTestServer(t, runner, resolver)

	resp := postJSON(t, server.URL+"/sell-simple", map[string]any{
		"amm_pool": solana.NewWallet().PublicKey().String(),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.Eventually(t, func() bool { return len(runner.started()) == 1 }, time.Second, 5*time.Millisecond)
	run := runner.started()[0]
	assert.True(t, run.Insta, "the simple trigger always dumps at once")
	assert.Equal(t, resolver.input, run.InputMint)
	assert.Equal(t, resolver.output, run.OutputMint)
}

func TestHandleSellSimple_ResolverFailure(t *testing.T) {
	runner := &fakeRunner{}
	resolver := &fakeMintResolver{err: errors.New("pool has no WSOL side")}
	server, _ := newTestServer(t, runner, resolver)

	resp := postJSON(t, server.URL+"/sell-simple", map[string]any{
		"amm_pool": solana.NewWallet().PublicKey().String(),
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, runner.started())
}

func TestHandleBalance(t *testing.T) {
	server, snapshot := newTestServer(t, &fakeRunner{}, &fakeMintResolver{})
	snapshot.Set(123_456_789)

	resp, err := http.Get(server.URL + "/balance")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]uint64
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, uint64(123_456_789), body["balance"])
}

func TestHandleHealthz(t *testing.T) {
	server, _ := newTestServer(t, &fakeRunner{}, &fakeMintResolver{})

	resp, err := http.Get(server.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	server, _ := newTestServer(t, &fakeRunner{}, &fakeMintResolver{})

	resp, err := http.Get(server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
