package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/covehq/wavegate/internal/escalate"
)

var stopReason string

func init() {
	rootCmd.AddCommand(stopCmd)
	stopCmd.AddCommand(stopAgentCmd, stopDomainCmd, stopWaveCmd, stopSystemCmd)
	stopCmd.PersistentFlags().StringVar(&stopReason, "reason", "", "Why the stop is being triggered")
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Trigger a scoped emergency stop",
	Long:  "Writes stop facts to the coordination directory. Scopes cascade: agent (E1), domain (E2), wave (E3), system (E4).",
}

var stopAgentCmd = &cobra.Command{
	Use:   "agent <agent-id>",
	Short: "Halt a single agent (E1)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStop(func(esc *escalate.Escalator) (escalate.Result, error) {
			return esc.TriggerAgent(args[0], stopReason)
		})
	},
}

var stopDomainCmd = &cobra.Command{
	Use:   "domain <name>",
	Short: "Halt every agent in a domain (E2)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStop(func(esc *escalate.Escalator) (escalate.Result, error) {
			return esc.TriggerDomain(args[0], stopReason)
		})
	},
}

var stopWaveCmd = &cobra.Command{
	Use:   "wave <number>",
	Short: "Halt every agent in a wave (E3)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		wave, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid wave number %q", args[0])
		}
		return runStop(func(esc *escalate.Escalator) (escalate.Result, error) {
			return esc.TriggerWave(wave, stopReason)
		})
	},
}

var stopSystemCmd = &cobra.Command{
	Use:   "system",
	Short: "Halt the entire system (E4, requires --reason)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStop(func(esc *escalate.Escalator) (escalate.Result, error) {
			return esc.TriggerSystem(stopReason)
		})
	},
}

func runStop(trigger func(*escalate.Escalator) (escalate.Result, error)) error {
	store, cfg, err := openStore()
	if err != nil {
		return err
	}

	res, err := trigger(newEscalator(store, cfg))
	if err != nil {
		return err
	}

	fmt.Printf("%s stop triggered, %d agent(s) halted: %s\n",
		res.Level, len(res.Agents), strings.Join(res.Agents, ", "))
	return nil
}
