package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/covehq/wavegate/internal/audit"
)

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditVerifyCmd)
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Governance log operations",
}

var auditVerifyCmd = &cobra.Command{
	Use:   "verify [path]",
	Short: "Verify the hash chain of the governance log",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		path := cfg.AuditLog
		if len(args) == 1 {
			path = args[0]
		}

		res := audit.Verify(path)
		if !res.Valid {
			if res.ErrorLine > 0 {
				return fmt.Errorf("chain broken at line %d: %s", res.ErrorLine, res.Error)
			}
			return fmt.Errorf("verify %s: %s", path, res.Error)
		}
		fmt.Printf("OK: %d entries, chain intact\n", res.Lines)
		return nil
	},
}
