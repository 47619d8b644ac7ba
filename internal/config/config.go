// =================================
// File: internal/config/config.go
// =================================

// Package config loads and validates the toolkit configuration file.
package config

import (
	"errors"
	"net/url"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	RPCList      []string `mapstructure:"rpc_list"`
	RPCRateLimit float64  `mapstructure:"rpc_rate_limit"`

	StreamEndpoint string `mapstructure:"stream_endpoint"`
	StreamXToken   string `mapstructure:"stream_x_token"`
	WatchAccount   string `mapstructure:"watch_account"`

	RelayURLs   []string `mapstructure:"relay_urls"`
	TipFloorURL string   `mapstructure:"tip_floor_url"`
	TipTier     string   `mapstructure:"tip_tier"`

	SlippageBps uint64 `mapstructure:"slippage_bps"`
	WalletsFile string `mapstructure:"wallets_file"`

	DebugLogging bool   `mapstructure:"debug_logging"`
	LogFile      string `mapstructure:"log_file"`
}

const (
	DefaultRPCRateLimit = 10.0
	DefaultTipTier      = "landed_tips_95th_percentile"
	DefaultSlippageBps  = 100
	DefaultWalletsFile  = "wallets.txt"
)

func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	defaults := map[string]interface{}{
		"rpc_rate_limit": DefaultRPCRateLimit,
		"tip_tier":       DefaultTipTier,
		"slippage_bps":   DefaultSlippageBps,
		"wallets_file":   DefaultWalletsFile,
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

	loadEnvironmentVariables(v, &cfg)

	return &cfg, validateConfig(&cfg)
}

func validateConfig(cfg *Config) error {
	if len(cfg.RPCList) == 0 {
		return errors.New("rpc_list is empty")
	}
	for _, rpcURL := range cfg.RPCList {
		if err := validateURL(rpcURL, "http"); err != nil {
			return errors.New("invalid RPC URL protocol")
		}
	}
	if cfg.StreamEndpoint != "" {
		if err := validateURL(cfg.StreamEndpoint, "ws"); err != nil {
			return errors.New("invalid stream endpoint protocol")
		}
	}
	for _, relayURL := range cfg.RelayURLs {
		if err := validateURL(relayURL, "http"); err != nil {
			return errors.New("invalid relay URL protocol")
		}
	}
	if cfg.RPCRateLimit <= 0 {
		return errors.New("invalid rpc_rate_limit")
	}
	if cfg.SlippageBps >= 10_000 {
		return errors.New("invalid slippage_bps")
	}
	if !validTipTier(cfg.TipTier) {
		return errors.New("unknown tip_tier")
	}
	return nil
}

func validTipTier(tier string) bool {
	switch tier {
	case "landed_tips_25th_percentile",
		"landed_tips_50th_percentile",
		"landed_tips_75th_percentile",
		"landed_tips_95th_percentile",
		"landed_tips_99th_percentile",
		"ema_landed_tips_50th_percentile":
		return true
	}
	return false
}

func validateURL(rawURL string, protocol string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid URL format")
	}
	if !strings.HasPrefix(parsed.Scheme, protocol) {
		return errors.New("invalid URL protocol")
	}
	return nil
}

func loadEnvironmentVariables(v *viper.Viper, cfg *Config) {
	v.AutomaticEnv()
	v.SetEnvPrefix("EXECKIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if token := v.GetString("STREAM_X_TOKEN"); token != "" {
		cfg.StreamXToken = token
	}
	if wallets := v.GetString("WALLETS_FILE"); wallets != "" {
		cfg.WalletsFile = wallets
	}
}
