// Package config loads the engine configuration from a JSON file.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/gagliardetto/solana-go"
)

// Trading is the copy-trade policy block. Amounts are SOL; they are
// converted to lamports where they are applied.
type Trading struct {
	MinTradeAmount     float64 `json:"min_trade_amount"`
	MaxTradeAmount     float64 `json:"max_trade_amount"`
	SlippageTolerance  float64 `json:"slippage_tolerance"`
	GasPriceMultiplier float64 `json:"gas_price_multiplier"`
	Enabled            bool    `json:"enabled"`
}

type Config struct {
	RpcURL             string   `json:"rpc_url"`
	StreamEndpoint     string   `json:"stream_endpoint"`
	StreamAuthToken    string   `json:"stream_auth_token"`
	JitoURL            string   `json:"jito_url"`
	LeaderWallets      []string `json:"leader_wallets"`
	FollowerPrivateKey string   `json:"follower_private_key"`
	JournalPath        string   `json:"journal_path"`
	MinWsolBalance     float64  `json:"min_wsol_balance"`
	Trading            Trading  `json:"trading"`
}

// Load reads and validates the config file. Any problem here is fatal at
// startup.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.JournalPath == "" {
		cfg.JournalPath = "trades/records.jsonl"
	}
	if cfg.MinWsolBalance == 0 {
		cfg.MinWsolBalance = 0.01
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.RpcURL == "" {
		return errors.New("rpc_url is required")
	}
	if c.StreamEndpoint == "" {
		return errors.New("stream_endpoint is required")
	}
	if len(c.LeaderWallets) == 0 {
		return errors.New("at least one leader wallet is required")
	}
	for _, w := range c.LeaderWallets {
		if _, err := solana.PublicKeyFromBase58(w); err != nil {
			return fmt.Errorf("invalid leader wallet %q: %w", w, err)
		}
	}
	if _, err := solana.PrivateKeyFromBase58(c.FollowerPrivateKey); err != nil {
		return fmt.Errorf("invalid follower private key: %w", err)
	}
	if c.Trading.MinTradeAmount < 0 || c.Trading.MaxTradeAmount < 0 {
		return errors.New("trade amount bounds must not be negative")
	}
	if c.Trading.MaxTradeAmount > 0 && c.Trading.MinTradeAmount > c.Trading.MaxTradeAmount {
		return errors.New("min_trade_amount exceeds max_trade_amount")
	}
	if c.Trading.SlippageTolerance < 0 || c.Trading.SlippageTolerance >= 1 {
		return errors.New("slippage_tolerance must be in [0, 1)")
	}
	return nil
}

// FollowerKey returns the decoded follower keypair.
func (c *Config) FollowerKey() solana.PrivateKey {
	key, _ := solana.PrivateKeyFromBase58(c.FollowerPrivateKey)
	return key
}

// Lamports converts a SOL amount from the config to lamports.
func Lamports(amount float64) uint64 {
	if amount <= 0 {
		return 0
	}
	return uint64(amount * 1e9)
}
