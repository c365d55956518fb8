// internal/blockchain/solana/types.go
package solana

import (
	"sync"
	"time"

	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
)

const (
	defaultTimeout = 10 * time.Second
	maxRetries     = 3
	retryDelay     = 200 * time.Millisecond
)

// Client is a round-robin pool over several RPC endpoints. A failing
// endpoint is marked inactive and skipped until the process restarts.
type Client struct {
	rpcClients []*RPCClient
	currIndex  int
	mutex      sync.Mutex
	logger     *zap.Logger
}

// RPCClient wraps a single RPC endpoint with liveness state and metrics
type RPCClient struct {
	Client  *rpc.Client
	URL     string
	active  bool
	mutex   sync.RWMutex
	metrics *RPCMetrics
}

// RPCMetrics tracks per-endpoint request outcomes
type RPCMetrics struct {
	successCount uint64
	errorCount   uint64
	latency      time.Duration
	mutex        sync.RWMutex
}
