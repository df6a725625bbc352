package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/covehq/wavegate/internal/audit"
	"github.com/covehq/wavegate/internal/config"
	"github.com/covehq/wavegate/internal/escalate"
	"github.com/covehq/wavegate/internal/signal"
)

var (
	configPath string
	coordDir   string
)

var rootCmd = &cobra.Command{
	Use:   "wavegate",
	Short: "Safety and governance control plane for wave-based agent orchestration",
	Long:  "Gates, throttles, and forcibly halts autonomous coding agents: approval levels (L0-L5), cascading emergency stops (E1-E4), and a budget circuit breaker over a shared coordination directory.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.wavegate/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&coordDir, "dir", "", "Coordination directory (overrides config)")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig loads the config file, applying the --dir override.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if coordDir != "" {
		cfg.CoordinationDir = coordDir
	}
	return cfg, nil
}

// openStore opens the coordination directory from config and flags.
func openStore() (*signal.DirStore, *config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	store, err := signal.NewDirStore(cfg.CoordinationDir)
	if err != nil {
		return nil, nil, err
	}
	return store, cfg, nil
}

// openAuditLog opens the governance log, returning nil (with a stderr
// warning) when it is unavailable so unrecorded actions are visible.
func openAuditLog(cfg *config.Config) *audit.Log {
	log, err := audit.Open(cfg.AuditLog)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: governance log unavailable: %v\n", err)
		return nil
	}
	return log
}

// newEscalator builds an escalator whose history feeds the governance log.
func newEscalator(store *signal.DirStore, cfg *config.Config) *escalate.Escalator {
	esc := escalate.New(store, cfg.Topology)
	if log := openAuditLog(cfg); log != nil {
		esc.OnEscalation(func(ev escalate.Event) {
			_ = log.Record(audit.Entry{
				Event:  "escalation",
				Action: ev.Action,
				Level:  ev.Level.String(),
				Agent:  ev.Target,
				Reason: ev.Reason,
			})
		})
	}
	return esc
}
