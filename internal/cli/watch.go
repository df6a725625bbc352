package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/covehq/wavegate/internal/watch"
)

var (
	watchPoll     bool
	watchInterval time.Duration
)

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().BoolVar(&watchPoll, "poll", false, "Poll the directory instead of using inotify")
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 2*time.Second, "Poll interval when --poll is set")
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the coordination directory for stop facts",
	Long:  "Prints a line whenever a stop fact or the emergency sentinel appears or goes away. Runs until interrupted.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
		go func() {
			<-sigs
			cancel()
		}()

		handler := func(e watch.Event) {
			state := "cleared"
			if e.Present {
				state = "active"
			}
			fmt.Printf("%s  %-7s %s\n", time.Now().Format("15:04:05"), state, e.Name)
		}

		fmt.Printf("Watching %s\n", cfg.CoordinationDir)
		if watchPoll {
			return watch.NewPoll(cfg.CoordinationDir, handler, watchInterval).Run(ctx)
		}
		return watch.New(cfg.CoordinationDir, handler).Run(ctx)
	},
}
