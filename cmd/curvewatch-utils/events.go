package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/ethpandaops/curvewatch/curve"
	"github.com/ethpandaops/curvewatch/services"
	"github.com/ethpandaops/curvewatch/utils"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Stream the decoded factory events of a token",
	Long:  "Watch the factory logs and print every decoded event of a token as a JSON line until interrupted",
	RunE:  runEvents,
}

func init() {
	rootCmd.AddCommand(eventsCmd)

	eventsCmd.Flags().StringP("token", "t", "", "Token address (required)")
	eventsCmd.Flags().Uint64P("from-block", "f", 0, "Start scanning from this block instead of the current head")
	eventsCmd.MarkFlagRequired("token")
}

func runEvents(cmd *cobra.Command, args []string) error {
	token, _ := cmd.Flags().GetString("token")
	fromBlock, _ := cmd.Flags().GetUint64("from-block")

	service, stop, err := startCurveService(cmd.Context(), cmd, func(cs *services.CurveService) {
		cs.GetWatcher().SetStartBlock(fromBlock)
	})
	if err != nil {
		return err
	}
	defer stop()

	encoder := json.NewEncoder(os.Stdout)
	unsubscribe, err := service.Subscribe(token, func(ev *curve.Event) {
		encoder.Encode(ev)
	})
	if err != nil {
		return err
	}
	defer unsubscribe()

	utils.WaitForCtrlC()
	return nil
}
