// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"net/url"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

type Config struct {
	ListenAddr      string   `mapstructure:"listen_addr"`
	RPCList         []string `mapstructure:"rpc_list"`
	WebSocketURL    string   `mapstructure:"websocket_url"`
	FundKeypairPath string   `mapstructure:"fund_keypair_path"`
	BlockEngineURL  string   `mapstructure:"block_engine_url"`
	DataAPIURL      string   `mapstructure:"data_api_url"`
	PriceDelay      int      `mapstructure:"price_delay"`
	PriceInterval   string   `mapstructure:"price_interval"`
	SlippageBps     uint16   `mapstructure:"slippage_bps"`
	TipLamports     uint64   `mapstructure:"tip_lamports"`
	BundleStopLoss  bool     `mapstructure:"bundle_stop_loss"`
	MaxRunMinutes   int      `mapstructure:"max_run_minutes"`
	DebugLogging    bool     `mapstructure:"debug_logging"`
	LogFile         string   `mapstructure:"log_file"`
}

const (
	DefaultListenAddr    = "0.0.0.0:8081"
	DefaultDataAPIURL    = "https://api.listen-rs.com/v1/adapter"
	DefaultPriceDelay    = 1000
	DefaultPriceInterval = "30s"
	DefaultSlippageBps   = 500
	DefaultTipLamports   = 100_000
)

func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	defaults := map[string]interface{}{
		"listen_addr":    DefaultListenAddr,
		"data_api_url":   DefaultDataAPIURL,
		"price_delay":    DefaultPriceDelay,
		"price_interval": DefaultPriceInterval,
		"slippage_bps":   DefaultSlippageBps,
		"tip_lamports":   DefaultTipLamports,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := loadEnvironmentVariables(v, &cfg); err != nil {
		return nil, err
	}

	return &cfg, validateConfig(&cfg)
}

func validateConfig(cfg *Config) error {
	if len(cfg.RPCList) == 0 {
		return errors.New("rpc_list is empty")
	}
	if cfg.WebSocketURL == "" {
		return errors.New("missing websocket_url in configuration")
	}
	if err := validateURLWithCache(cfg.WebSocketURL, "ws"); err != nil {
		return errors.New("invalid WebSocket URL protocol")
	}
	for _, rpcURL := range cfg.RPCList {
		if err := validateURLWithCache(rpcURL, "http"); err != nil {
			return errors.New("invalid RPC URL protocol")
		}
	}
	if cfg.FundKeypairPath == "" {
		return errors.New("missing fund_keypair_path in configuration")
	}
	if cfg.BlockEngineURL != "" {
		if err := validateURLWithCache(cfg.BlockEngineURL, "http"); err != nil {
			return errors.New("invalid block engine URL protocol")
		}
	}
	return validateNumericParams(cfg)
}

func validateNumericParams(cfg *Config) error {
	if cfg.PriceDelay <= 0 {
		return errors.New("invalid price_delay")
	}
	if cfg.SlippageBps == 0 || cfg.SlippageBps > 10_000 {
		return errors.New("invalid slippage_bps")
	}
	if cfg.MaxRunMinutes < 0 {
		return errors.New("invalid max_run_minutes")
	}
	return nil
}

var urlCache sync.Map

func validateURLWithCache(rawURL string, protocol string) error {
	if _, ok := urlCache.Load(rawURL); ok {
		return nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid URL format")
	}
	if !strings.HasPrefix(parsed.Scheme, protocol) {
		return errors.New("invalid URL protocol")
	}
	urlCache.Store(rawURL, parsed)
	return nil
}

func loadEnvironmentVariables(v *viper.Viper, cfg *Config) error {
	v.AutomaticEnv()
	v.SetEnvPrefix("SELLER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	envKeypair := v.GetString("FUND_KEYPAIR_PATH")
	if envKeypair != "" {
		cfg.FundKeypairPath = envKeypair
	}

	envRPCList := v.GetString("RPC_LIST")
	if envRPCList != "" {
		rpcs := strings.Split(envRPCList, ",")
		var cleanRPCs []string
		for _, rpc := range rpcs {
			clean := strings.TrimSpace(rpc)
			if clean != "" {
				cleanRPCs = append(cleanRPCs, clean)
			}
		}
		if len(cleanRPCs) > 0 {
			cfg.RPCList = cleanRPCs
		}
	}

	envWS := v.GetString("WS_URL")
	if envWS != "" {
		cfg.WebSocketURL = envWS
	}

	envBlockEngine := v.GetString("BLOCK_ENGINE_URL")
	if envBlockEngine != "" {
		cfg.BlockEngineURL = envBlockEngine
	}
	return nil
}
