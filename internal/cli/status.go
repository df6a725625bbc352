package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/covehq/wavegate/internal/signal"
)

func init() {
	rootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the coordination directory's current state",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	store, _, err := openStore()
	if err != nil {
		return err
	}

	fmt.Printf("coordination dir: %s\n\n", store.Dir())

	if store.Exists(signal.SentinelName) {
		raw, err := store.Read(signal.SentinelName)
		if err == nil {
			fmt.Println("SYSTEM STOP ACTIVE")
			for _, line := range strings.Split(strings.TrimRight(string(raw), "\n"), "\n") {
				fmt.Printf("  %s\n", line)
			}
			fmt.Println()
		}
	}

	names, err := store.List()
	if err != nil {
		return err
	}

	var stops, approvals, requests, other []string
	for _, name := range names {
		switch {
		case name == signal.SentinelName:
			// printed above
		case strings.HasPrefix(name, "STOP-"):
			stops = append(stops, name)
		case strings.HasSuffix(name, "-APPROVED.json"):
			approvals = append(approvals, name)
		case strings.HasSuffix(name, "-APPROVAL-NEEDED.json"):
			requests = append(requests, name)
		default:
			other = append(other, name)
		}
	}

	printGroup := func(label string, items []string) {
		fmt.Printf("%s (%d)\n", label, len(items))
		for _, name := range items {
			fmt.Printf("  %s\n", name)
		}
	}
	printGroup("stop facts", stops)
	printGroup("approvals", approvals)
	printGroup("pending requests", requests)
	if len(other) > 0 {
		printGroup("other facts", other)
	}

	if len(names) == 0 {
		fmt.Println("\nall clear: no facts present")
	}
	return nil
}
