package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var estimateCmd = &cobra.Command{
	Use:   "estimate",
	Short: "Estimate the counterparty amount of a trade",
	Long:  "Estimate the tokens received for a buy or the native amount received for a sell, including the price impact",
	RunE:  runEstimate,
}

func init() {
	rootCmd.AddCommand(estimateCmd)

	estimateCmd.Flags().StringP("token", "t", "", "Token address (required)")
	estimateCmd.Flags().StringP("direction", "d", "buy", "Trade direction (buy/sell)")
	estimateCmd.Flags().StringP("amount", "a", "", "Input amount in display units (required)")
	estimateCmd.Flags().Float64P("slippage", "s", 1.0, "Slippage tolerance in percent")
	estimateCmd.MarkFlagRequired("token")
	estimateCmd.MarkFlagRequired("amount")
}

func runEstimate(cmd *cobra.Command, args []string) error {
	token, _ := cmd.Flags().GetString("token")
	direction, _ := cmd.Flags().GetString("direction")
	amount, _ := cmd.Flags().GetString("amount")
	slippage, _ := cmd.Flags().GetFloat64("slippage")

	service, stop, err := startCurveService(cmd.Context(), cmd, nil)
	if err != nil {
		return err
	}
	defer stop()

	impact, err := service.PriceImpact(cmd.Context(), direction, amount, token, slippage)
	if err != nil {
		return err
	}

	fmt.Printf("Direction:     %v\n", impact.Direction)
	fmt.Printf("Amount:        %v\n", impact.Amount)
	fmt.Printf("Estimate:      %v\n", impact.Estimate)
	fmt.Printf("Price impact:  %.2f%% (%v)\n", impact.Impact, impact.Severity)
	if impact.Warning != "" {
		fmt.Printf("Warning:       %v\n", impact.Warning)
	}
	fmt.Printf("Min received:  %v (%.2f%% slippage)\n", impact.MinReceived, impact.Slippage)

	return nil
}
