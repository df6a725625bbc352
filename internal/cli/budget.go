package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/covehq/wavegate/internal/audit"
	"github.com/covehq/wavegate/internal/budget"
)

var (
	budgetReason  string
	budgetConfirm bool
	budgetSpent   float64
)

func init() {
	rootCmd.AddCommand(budgetCmd)
	budgetCmd.AddCommand(budgetTripCmd, budgetClearCmd, budgetEvalCmd)
	budgetTripCmd.Flags().StringVar(&budgetReason, "reason", "", "Why the stop is being triggered (required)")
	budgetClearCmd.Flags().BoolVar(&budgetConfirm, "confirm", false, "Explicitly confirm the clear")
	budgetEvalCmd.Flags().Float64Var(&budgetSpent, "spent", 0, "Cumulative spend to evaluate")
}

var budgetCmd = &cobra.Command{
	Use:   "budget",
	Short: "Budget circuit breaker controls",
}

var budgetTripCmd = &cobra.Command{
	Use:   "trip",
	Short: "Write the system sentinel regardless of tracked spend",
	RunE:  runBudgetTrip,
}

var budgetClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the budget emergency stop (requires --confirm)",
	RunE:  runBudgetClear,
}

var budgetEvalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Evaluate a spend figure against the configured limit",
	Long:  "Runs the circuit breaker once with the given --spent total. At or past the limit this writes the system sentinel, exactly as the in-process breaker would.",
	RunE:  runBudgetEval,
}

func runBudgetTrip(cmd *cobra.Command, args []string) error {
	store, cfg, err := openStore()
	if err != nil {
		return err
	}
	if err := budget.TriggerEmergencyStop(store, budgetReason); err != nil {
		return err
	}
	if log := openAuditLog(cfg); log != nil {
		_ = log.Record(audit.Entry{
			Event:  "budget_emergency_stop",
			Action: "emergency_stop_triggered",
			Reason: budgetReason,
		})
		log.Close()
	}
	fmt.Println("Emergency stop triggered")
	return nil
}

func runBudgetClear(cmd *cobra.Command, args []string) error {
	store, cfg, err := openStore()
	if err != nil {
		return err
	}
	b := budget.New(store, budget.Config{Limit: cfg.Budget.Limit, Thresholds: cfg.Budget.Thresholds})
	if err := b.ClearEmergencyStop(budgetConfirm); err != nil {
		return err
	}
	if log := openAuditLog(cfg); log != nil {
		_ = log.Record(audit.Entry{
			Event:  "budget_emergency_stop",
			Action: "emergency_stop_cleared",
		})
		log.Close()
	}
	fmt.Println("Emergency stop cleared")
	return nil
}

func runBudgetEval(cmd *cobra.Command, args []string) error {
	store, cfg, err := openStore()
	if err != nil {
		return err
	}
	b := budget.New(store, budget.Config{Limit: cfg.Budget.Limit, Thresholds: cfg.Budget.Thresholds})
	if log := openAuditLog(cfg); log != nil {
		defer log.Close()
		b.OnAudit(func(r budget.AuditRecord) {
			_ = log.Record(audit.Entry{
				Event:      r.Event,
				Action:     r.Action,
				Agent:      r.Agent,
				Wave:       r.Wave,
				Story:      r.Story,
				Spent:      r.Spent,
				Budget:     r.Budget,
				Percentage: r.Percentage,
			})
		})
	}
	b.RecordSpend(budgetSpent)

	d, err := b.CheckAndEnforce()
	if err != nil {
		return err
	}
	fmt.Printf("spent %.2f of %.2f (%.1f%%): %s\n", b.Spent(), b.Limit(), d.Percentage, d.Status)
	if d.Blocked {
		fmt.Printf("blocked: %s\n", d.Error.Message)
	}
	return nil
}
