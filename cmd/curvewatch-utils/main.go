package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ethpandaops/curvewatch/services"
	"github.com/ethpandaops/curvewatch/types"
	"github.com/ethpandaops/curvewatch/utils"
)

var rootCmd = &cobra.Command{
	Use:     "curvewatch-utils",
	Short:   "Curvewatch bonding curve utilities",
	Long:    "One-shot tools for inspecting bonding curve tokens: state snapshots, trade estimates and event streams",
	Version: utils.GetBuildVersion(),
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to the config file, if empty string defaults will be used")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// startCurveService loads the config of cmd and starts a curve service connected to the configured endpoints.
// prepare runs on the initialized service before it is started.
func startCurveService(ctx context.Context, cmd *cobra.Command, prepare func(*services.CurveService)) (*services.CurveService, func(), error) {
	configPath, _ := cmd.Flags().GetString("config")

	cfg := &types.Config{}
	err := utils.ReadConfig(cfg, configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("error reading config file: %v", err)
	}

	// keep stdout free for command output
	cfg.Logging.OutputStderr = true
	utils.Config = cfg
	logWriter, logger := utils.InitLogger()

	err = services.InitCurveService(ctx, logger.WithField("service", "curve"))
	if err != nil {
		logWriter.Dispose()
		return nil, nil, err
	}

	service := services.GlobalCurveService
	if prepare != nil {
		prepare(service)
	}

	err = service.StartService()
	if err != nil {
		logWriter.Dispose()
		return nil, nil, err
	}

	logger.WithFields(logrus.Fields{
		"factory":   cfg.Chain.FactoryAddress,
		"endpoints": len(service.GetExecutionPool().GetAllEndpoints()),
	}).Debugf("curve service ready")

	return service, func() {
		service.StopService()
		logWriter.Dispose()
	}, nil
}
