package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Read the aggregated state of a token",
	Long:  "Read all curve fields of a token in a single batch and print the snapshot with its funding progress as JSON",
	RunE:  runSnapshot,
}

func init() {
	rootCmd.AddCommand(snapshotCmd)

	snapshotCmd.Flags().StringP("token", "t", "", "Token address (required)")
	snapshotCmd.MarkFlagRequired("token")
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	token, _ := cmd.Flags().GetString("token")

	service, stop, err := startCurveService(cmd.Context(), cmd, nil)
	if err != nil {
		return err
	}
	defer stop()

	snapshot, err := service.GetSnapshot(cmd.Context(), token)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(snapshot)
}
