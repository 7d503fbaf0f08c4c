// Package config loads service configuration from a YAML file with
// environment variable overrides. The protocol section mirrors the on-chain
// parameter account so simulations and tests build contexts through the same
// constructors as live data.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"solana-exchange-core/internal/exchange"
	"solana-exchange-core/internal/fixed"
	"solana-exchange-core/internal/oracle"
	"solana-exchange-core/internal/solana"
	"solana-exchange-core/internal/stability"
	"solana-exchange-core/internal/state"
)

// Config holds all application configuration.
type Config struct {
	Server struct {
		ListenAddr          string `yaml:"listen_addr"`
		RefreshIntervalSecs int    `yaml:"refresh_interval_secs"`
		HealthSnapshotSecs  int    `yaml:"health_snapshot_secs"`
		ShutdownTimeoutSecs int    `yaml:"shutdown_timeout_secs"`
	} `yaml:"server"`
	Solana struct {
		RPCURL string `yaml:"rpc_url"`
		WSURL  string `yaml:"ws_url"`
	} `yaml:"solana"`
	Accounts struct {
		StateHeader           string   `yaml:"state_header"`
		PoolShareMint         string   `yaml:"pool_share_mint"`
		PoolStablecoinAccount string   `yaml:"pool_stablecoin_account"`
		PoolLevercoinAccount  string   `yaml:"pool_levercoin_account"`
		PoolConfig            string   `yaml:"pool_config"`
		LSTHeaders            []string `yaml:"lst_headers"`
	} `yaml:"accounts"`
	Storage struct {
		PostgresDSN   string `yaml:"postgres_dsn"`
		ClickHouseDSN string `yaml:"clickhouse_dsn"`
	} `yaml:"storage"`
	Protocol Protocol `yaml:"protocol"`
}

// Protocol mirrors the exchange parameter account as decimal strings, for
// offline use where no chain is available.
type Protocol struct {
	Threshold1       string `yaml:"threshold1"`
	Threshold2       string `yaml:"threshold2"`
	MaxStalenessSecs uint64 `yaml:"max_staleness_secs"`
	ConfTolerance    string `yaml:"conf_tolerance"`

	StablecoinMintFee     ScheduleConfig `yaml:"stablecoin_mint_fee"`
	StablecoinRedeemFee   ScheduleConfig `yaml:"stablecoin_redeem_fee"`
	LevercoinMintFee      ScheduleConfig `yaml:"levercoin_mint_fee"`
	LevercoinRedeemFee    ScheduleConfig `yaml:"levercoin_redeem_fee"`
	SwapToStablecoinFee   ScheduleConfig `yaml:"swap_to_stablecoin_fee"`
	SwapFromStablecoinFee ScheduleConfig `yaml:"swap_from_stablecoin_fee"`

	PoolWithdrawalFee string `yaml:"pool_withdrawal_fee"`
}

// ScheduleConfig is one fee schedule; a nil mode is left unconfigured and
// blocks the operation in that mode.
type ScheduleConfig struct {
	Stable *string `yaml:"stable"`
	Decay  *string `yaml:"decay"`
	Depeg  *string `yaml:"depeg"`
}

// Load reads config from a YAML file, then applies environment variable
// overrides and defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("SOLANA_RPC_URL"); v != "" {
		cfg.Solana.RPCURL = v
	}
	if v := os.Getenv("SOLANA_WS_URL"); v != "" {
		cfg.Solana.WSURL = v
	}
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		cfg.Storage.PostgresDSN = v
	}
	if v := os.Getenv("CLICKHOUSE_DSN"); v != "" {
		cfg.Storage.ClickHouseDSN = v
	}
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		cfg.Server.ListenAddr = v
	}
	if v := os.Getenv("REFRESH_INTERVAL_SECS"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil {
			cfg.Server.RefreshIntervalSecs = secs
		}
	}

	// Defaults
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = ":8080"
	}
	if cfg.Server.RefreshIntervalSecs == 0 {
		cfg.Server.RefreshIntervalSecs = 15
	}
	if cfg.Server.HealthSnapshotSecs == 0 {
		cfg.Server.HealthSnapshotSecs = 60
	}
	if cfg.Server.ShutdownTimeoutSecs == 0 {
		cfg.Server.ShutdownTimeoutSecs = 10
	}

	return cfg, nil
}

// Validate checks the fields the quote server cannot run without.
func (c *Config) Validate() error {
	if c.Solana.RPCURL == "" {
		return fmt.Errorf("solana.rpc_url is required")
	}
	if c.Accounts.StateHeader == "" {
		return fmt.Errorf("accounts.state_header is required")
	}
	if c.Accounts.PoolShareMint == "" || c.Accounts.PoolConfig == "" {
		return fmt.Errorf("accounts.pool_share_mint and accounts.pool_config are required")
	}
	return nil
}

// Addresses parses the account section into the tracker's address set.
func (c *Config) Addresses() (state.Addresses, error) {
	var addrs state.Addresses
	var err error
	if addrs.StateHeader, err = solana.ParsePubkey(c.Accounts.StateHeader); err != nil {
		return state.Addresses{}, fmt.Errorf("accounts.state_header: %w", err)
	}
	if addrs.PoolShareMint, err = solana.ParsePubkey(c.Accounts.PoolShareMint); err != nil {
		return state.Addresses{}, fmt.Errorf("accounts.pool_share_mint: %w", err)
	}
	if addrs.PoolStablecoinAccount, err = solana.ParsePubkey(c.Accounts.PoolStablecoinAccount); err != nil {
		return state.Addresses{}, fmt.Errorf("accounts.pool_stablecoin_account: %w", err)
	}
	if addrs.PoolLevercoinAccount, err = solana.ParsePubkey(c.Accounts.PoolLevercoinAccount); err != nil {
		return state.Addresses{}, fmt.Errorf("accounts.pool_levercoin_account: %w", err)
	}
	if addrs.PoolConfig, err = solana.ParsePubkey(c.Accounts.PoolConfig); err != nil {
		return state.Addresses{}, fmt.Errorf("accounts.pool_config: %w", err)
	}
	for i, raw := range c.Accounts.LSTHeaders {
		pk, err := solana.ParsePubkey(raw)
		if err != nil {
			return state.Addresses{}, fmt.Errorf("accounts.lst_headers[%d]: %w", i, err)
		}
		addrs.LSTHeaders = append(addrs.LSTHeaders, pk)
	}
	return addrs, nil
}

// Controller builds the stability controller from the protocol thresholds.
func (p Protocol) Controller() (stability.Controller, error) {
	t1, err := fixed.Parse[fixed.N9](p.Threshold1)
	if err != nil {
		return stability.Controller{}, fmt.Errorf("protocol.threshold1: %w", err)
	}
	t2, err := fixed.Parse[fixed.N9](p.Threshold2)
	if err != nil {
		return stability.Controller{}, fmt.Errorf("protocol.threshold2: %w", err)
	}
	return stability.NewController(t1, t2)
}

// OracleConfig builds the oracle limits from the protocol section.
func (p Protocol) OracleConfig() (oracle.Config, error) {
	tolerance, err := fixed.Parse[fixed.N8](p.ConfTolerance)
	if err != nil {
		return oracle.Config{}, fmt.Errorf("protocol.conf_tolerance: %w", err)
	}
	return oracle.Config{
		MaxStalenessSecs: p.MaxStalenessSecs,
		ConfTolerance:    tolerance,
	}, nil
}

// StablecoinFees builds the stablecoin fee table.
func (p Protocol) StablecoinFees() (exchange.StablecoinFees, error) {
	mint, err := p.StablecoinMintFee.Schedule()
	if err != nil {
		return exchange.StablecoinFees{}, fmt.Errorf("protocol.stablecoin_mint_fee: %w", err)
	}
	redeem, err := p.StablecoinRedeemFee.Schedule()
	if err != nil {
		return exchange.StablecoinFees{}, fmt.Errorf("protocol.stablecoin_redeem_fee: %w", err)
	}
	return exchange.StablecoinFees{Mint: mint, Redeem: redeem}, nil
}

// LevercoinFees builds the levercoin fee table.
func (p Protocol) LevercoinFees() (exchange.LevercoinFees, error) {
	var fees exchange.LevercoinFees
	var err error
	if fees.Mint, err = p.LevercoinMintFee.Schedule(); err != nil {
		return exchange.LevercoinFees{}, fmt.Errorf("protocol.levercoin_mint_fee: %w", err)
	}
	if fees.Redeem, err = p.LevercoinRedeemFee.Schedule(); err != nil {
		return exchange.LevercoinFees{}, fmt.Errorf("protocol.levercoin_redeem_fee: %w", err)
	}
	if fees.SwapToStablecoin, err = p.SwapToStablecoinFee.Schedule(); err != nil {
		return exchange.LevercoinFees{}, fmt.Errorf("protocol.swap_to_stablecoin_fee: %w", err)
	}
	if fees.SwapFromStablecoin, err = p.SwapFromStablecoinFee.Schedule(); err != nil {
		return exchange.LevercoinFees{}, fmt.Errorf("protocol.swap_from_stablecoin_fee: %w", err)
	}
	return fees, nil
}

// WithdrawalFee parses the stability pool withdrawal fee.
func (p Protocol) WithdrawalFee() (fixed.UFix[fixed.N9], error) {
	if p.PoolWithdrawalFee == "" {
		return fixed.Zero[fixed.N9](), nil
	}
	fee, err := fixed.Parse[fixed.N9](p.PoolWithdrawalFee)
	if err != nil {
		return fixed.UFix[fixed.N9]{}, fmt.Errorf("protocol.pool_withdrawal_fee: %w", err)
	}
	return fee, nil
}

// Schedule parses the configured modes into a fee schedule.
func (s ScheduleConfig) Schedule() (exchange.Schedule, error) {
	rates := make(map[stability.Mode]fixed.UFix[fixed.N9], 3)
	for _, entry := range []struct {
		mode stability.Mode
		raw  *string
	}{
		{stability.Stable, s.Stable},
		{stability.Decay, s.Decay},
		{stability.Depeg, s.Depeg},
	} {
		if entry.raw == nil {
			continue
		}
		rate, err := fixed.Parse[fixed.N9](*entry.raw)
		if err != nil {
			return exchange.Schedule{}, fmt.Errorf("%s rate: %w", entry.mode, err)
		}
		rates[entry.mode] = rate
	}
	return exchange.NewSchedule(rates), nil
}
