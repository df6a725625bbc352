package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/covehq/wavegate/internal/escalate"
)

var clearConfirm bool

func init() {
	rootCmd.AddCommand(clearCmd)
	clearCmd.AddCommand(clearAgentCmd, clearDomainCmd, clearWaveCmd, clearSystemCmd)
	clearCmd.PersistentFlags().BoolVar(&clearConfirm, "confirm", false, "Explicitly confirm the clear")
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear a scoped emergency stop (requires --confirm)",
	Long:  "Removes exactly the stop facts written by the corresponding trigger. Nothing self-heals; every clear is an explicit, confirmed action.",
}

var clearAgentCmd = &cobra.Command{
	Use:   "agent <agent-id>",
	Short: "Clear a single agent's stop fact (E1)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runClear(escalate.E1, escalate.ClearOptions{Confirm: clearConfirm, Agent: args[0]})
	},
}

var clearDomainCmd = &cobra.Command{
	Use:   "domain <name>",
	Short: "Clear a domain's stop facts (E2)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runClear(escalate.E2, escalate.ClearOptions{Confirm: clearConfirm, Domain: args[0]})
	},
}

var clearWaveCmd = &cobra.Command{
	Use:   "wave <number>",
	Short: "Clear a wave's stop facts (E3)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		wave, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid wave number %q", args[0])
		}
		return runClear(escalate.E3, escalate.ClearOptions{Confirm: clearConfirm, Wave: wave})
	},
}

var clearSystemCmd = &cobra.Command{
	Use:   "system",
	Short: "Clear the system sentinel (E4)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runClear(escalate.E4, escalate.ClearOptions{Confirm: clearConfirm})
	},
}

func runClear(level escalate.Level, opts escalate.ClearOptions) error {
	store, cfg, err := openStore()
	if err != nil {
		return err
	}
	if err := newEscalator(store, cfg).Clear(level, opts); err != nil {
		return err
	}
	fmt.Printf("%s stop cleared\n", level)
	return nil
}
