package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/covehq/wavegate/internal/approval"
	"github.com/covehq/wavegate/internal/audit"
)

var (
	approveWave      int
	approveApprover  string
	approveRequester string
	approveRisk      string
)

func init() {
	rootCmd.AddCommand(approveCmd)
	approveCmd.Flags().IntVar(&approveWave, "wave", 1, "Wave number the approval applies to")
	approveCmd.Flags().StringVar(&approveApprover, "approver", "", "Who is granting the approval (required)")
	approveCmd.Flags().StringVar(&approveRequester, "requester", "", "Who asked for the approval")
	approveCmd.Flags().StringVar(&approveRisk, "risk", "", "Risk level note (low, medium, high)")
}

var approveCmd = &cobra.Command{
	Use:   "approve <operation>",
	Short: "Write the approval fact for an operation",
	Long:  "Classifies the operation and writes the approval fact for its level and wave. Forbidden (L0) operations can never be approved; auto-allowed (L5) operations need no fact.",
	Args:  cobra.ExactArgs(1),
	RunE:  runApprove,
}

func runApprove(cmd *cobra.Command, args []string) error {
	operation := args[0]
	if approveApprover == "" {
		return fmt.Errorf("--approver is required")
	}

	store, cfg, err := openStore()
	if err != nil {
		return err
	}

	gate := approval.NewGate(store)
	name, err := gate.Approve(approveWave, operation, approveApprover, approveRequester, approveRisk)
	if err != nil {
		return err
	}

	if log := openAuditLog(cfg); log != nil {
		_ = log.Record(audit.Entry{
			Event:     "approval_granted",
			Operation: operation,
			Level:     approval.Classify(operation).String(),
			Wave:      approveWave,
			Agent:     approveRequester,
			Decision:  "approved",
			Reason:    "granted by " + approveApprover,
		})
		log.Close()
	}

	fmt.Printf("Approval written: %s\n", name)
	return nil
}
