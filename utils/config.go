package utils

import (
	"fmt"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/ethpandaops/curvewatch/config"
	"github.com/ethpandaops/curvewatch/types"
)

// Config is the globally accessible configuration
var Config *types.Config

// ReadConfig will process a configuration
func ReadConfig(cfg *types.Config, path string) error {
	err := readConfigFile(cfg, path)
	if err != nil {
		return err
	}

	err = readConfigEnv(cfg)
	if err != nil {
		return fmt.Errorf("error processing environment config: %w", err)
	}

	// endpoints
	if cfg.ExecutionApi.Endpoints == nil && cfg.ExecutionApi.Endpoint != "" {
		cfg.ExecutionApi.Endpoints = []types.EndpointConfig{
			{
				Url:  cfg.ExecutionApi.Endpoint,
				Name: "default",
			},
		}
	}

	err = validateConfig(cfg)
	if err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"factory":   cfg.Chain.FactoryAddress,
		"endpoints": len(cfg.ExecutionApi.Endpoints),
		"wallet":    cfg.Wallet.Address,
	}).Infof("did init config")

	return nil
}

func readConfigFile(cfg *types.Config, path string) error {
	err := yaml.Unmarshal([]byte(config.DefaultConfigYml), cfg)
	if err != nil {
		return fmt.Errorf("error decoding default config: %v", err)
	}

	if path == "" {
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("error opening config file %v: %v", path, err)
	}
	defer f.Close()

	decoder := yaml.NewDecoder(f)
	err = decoder.Decode(cfg)
	if err != nil {
		return fmt.Errorf("error decoding config file %v: %v", path, err)
	}

	return nil
}

func readConfigEnv(cfg *types.Config) error {
	return envconfig.Process("", cfg)
}

func validateConfig(cfg *types.Config) error {
	if len(cfg.ExecutionApi.Endpoints) == 0 {
		return fmt.Errorf("missing execution node endpoints (need at least 1 endpoint to run curvewatch)")
	}
	for idx, endpoint := range cfg.ExecutionApi.Endpoints {
		if endpoint.Url == "" {
			return fmt.Errorf("execution endpoint %v has no url", idx)
		}
	}

	if !common.IsHexAddress(cfg.Chain.FactoryAddress) {
		return fmt.Errorf("invalid factory address: %q", cfg.Chain.FactoryAddress)
	}
	if cfg.Wallet.Address != "" && !common.IsHexAddress(cfg.Wallet.Address) {
		return fmt.Errorf("invalid wallet address: %q", cfg.Wallet.Address)
	}
	if cfg.Wallet.Token != "" && !common.IsHexAddress(cfg.Wallet.Token) {
		return fmt.Errorf("invalid wallet token address: %q", cfg.Wallet.Token)
	}

	curve := &cfg.Curve
	durations := []struct {
		name  string
		value time.Duration
		limit time.Duration
	}{
		{"curve.snapshotPollInterval", curve.SnapshotPollInterval, 1 * time.Hour},
		{"curve.walletPollInterval", curve.WalletPollInterval, 1 * time.Hour},
		{"curve.eventPollInterval", curve.EventPollInterval, 10 * time.Minute},
		{"curve.settleDelay", curve.SettleDelay, 1 * time.Minute},
		{"curve.maxSettleWait", curve.MaxSettleWait, 5 * time.Minute},
		{"curve.estimateCacheDuration", curve.EstimateCacheDuration, 1 * time.Hour},
		{"curve.estimateDebounce", curve.EstimateDebounce, 10 * time.Second},
		{"curve.notifyCooldown", curve.NotifyCooldown, 1 * time.Hour},
		{"curve.callTimeout", curve.CallTimeout, 5 * time.Minute},
	}
	for _, d := range durations {
		if d.value <= 0 || d.value > d.limit {
			return fmt.Errorf("invalid %v: %v (must be > 0 and <= %v)", d.name, d.value, d.limit)
		}
	}

	if curve.MaxInputDecimals <= 0 || curve.MaxInputDecimals > cfg.Chain.Decimals {
		return fmt.Errorf("invalid curve.maxInputDecimals: %v", curve.MaxInputDecimals)
	}
	if curve.DisplayDecimals < 0 || curve.DisplayDecimals > cfg.Chain.Decimals {
		return fmt.Errorf("invalid curve.displayDecimals: %v", curve.DisplayDecimals)
	}
	if curve.BuyGasReserve < 0 || curve.BuyGasReserve >= 1 {
		return fmt.Errorf("invalid curve.buyGasReserve: %v", curve.BuyGasReserve)
	}
	if curve.MaxBuyRatio <= 0 || curve.MaxBuyRatio > 1 {
		return fmt.Errorf("invalid curve.maxBuyRatio: %v", curve.MaxBuyRatio)
	}
	if curve.EstimateCacheSize <= 0 {
		curve.EstimateCacheSize = 1
	}
	if curve.LogBatchSize == 0 {
		curve.LogBatchSize = 1000
	}

	return nil
}
