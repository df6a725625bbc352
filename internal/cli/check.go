package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/covehq/wavegate/internal/approval"
	"github.com/covehq/wavegate/internal/escalate"
	"github.com/covehq/wavegate/internal/signal"
)

var (
	checkWave   int
	checkAgent  string
	checkStrict bool
)

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().IntVar(&checkWave, "wave", 1, "Wave number to check against")
	checkCmd.Flags().StringVar(&checkAgent, "agent", "", "Also check stop facts covering this agent")
	checkCmd.Flags().BoolVar(&checkStrict, "strict", false, "Require the approval fact's operation to match exactly")
}

var checkCmd = &cobra.Command{
	Use:   "check <operation>",
	Short: "Classify an operation and report whether it may proceed",
	Long:  "Composes all three read paths: approval gate, emergency stop facts, and the budget sentinel. All must allow for the verdict to be ALLOWED.",
	Args:  cobra.ExactArgs(1),
	RunE:  runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	operation := args[0]

	store, cfg, err := openStore()
	if err != nil {
		return err
	}

	gate := approval.NewGate(store)
	res := gate.Require(checkWave, operation, approval.CheckOptions{
		Timeout:              cfg.ApprovalTimeout(),
		StrictOperationMatch: checkStrict,
	})

	fmt.Printf("operation: %s\n", operation)
	fmt.Printf("level:     %s", res.Level)
	if role := res.Level.Role(); role != "" {
		fmt.Printf(" (%s sign-off)", role)
	}
	fmt.Println()

	allowed := res.Approved
	if res.Approved {
		fmt.Println("approval:  satisfied")
	} else {
		fmt.Printf("approval:  blocked (%s) %s\n", res.Code, res.Message)
	}

	if checkAgent != "" {
		esc := escalate.New(store, cfg.Topology)
		if esc.Stopped(checkAgent, checkWave) {
			fmt.Printf("emergency: %s is covered by an active stop fact\n", checkAgent)
			allowed = false
		} else {
			fmt.Println("emergency: no stop facts cover this agent")
		}
	}

	if store.Exists(signal.SentinelName) {
		fmt.Println("sentinel:  system-wide stop is active")
		allowed = false
	}

	if allowed {
		fmt.Println("verdict:   ALLOWED")
		return nil
	}
	fmt.Println("verdict:   BLOCKED")
	return nil
}
