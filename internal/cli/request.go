package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/covehq/wavegate/internal/approval"
)

var (
	requestWave        int
	requestRequester   string
	requestDescription string
	requestRisk        string
)

func init() {
	rootCmd.AddCommand(requestCmd)
	requestCmd.Flags().IntVar(&requestWave, "wave", 1, "Wave number the request applies to")
	requestCmd.Flags().StringVar(&requestRequester, "requester", "", "Who is asking (required)")
	requestCmd.Flags().StringVar(&requestDescription, "description", "", "What the operation will do")
	requestCmd.Flags().StringVar(&requestRisk, "risk", "", "Risk level note (low, medium, high)")
}

var requestCmd = &cobra.Command{
	Use:   "request <operation>",
	Short: "Create a pending approval request",
	Args:  cobra.ExactArgs(1),
	RunE:  runRequest,
}

func runRequest(cmd *cobra.Command, args []string) error {
	if requestRequester == "" {
		return fmt.Errorf("--requester is required")
	}

	store, _, err := openStore()
	if err != nil {
		return err
	}

	gate := approval.NewGate(store)
	name, err := gate.CreateRequest(approval.Request{
		Wave:        requestWave,
		Operation:   args[0],
		Requester:   requestRequester,
		Description: requestDescription,
		RiskLevel:   requestRisk,
	})
	if err != nil {
		return err
	}

	level := approval.Classify(args[0])
	fmt.Printf("Request written: %s (needs %s sign-off, %s)\n", name, level.Role(), level)
	return nil
}
