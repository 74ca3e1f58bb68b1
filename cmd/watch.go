package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"notegrid.app/notegrid/internal/engine"
	model "notegrid.app/notegrid/pkg/models"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Keep the local cache in sync and print a line on every change",
	Long: "Runs the periodic refresh until interrupted. SIGUSR1 triggers an immediate\n" +
		"refresh, the same as an application regaining focus.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		onChange := func(d model.UserData) {
			fmt.Fprintf(out, "%s  %d tasks, %d links (updated %s)\n",
				time.Now().Format(time.TimeOnly), len(d.Tasks), len(d.Links),
				time.UnixMilli(d.UpdatedAt).Format(time.DateTime))
		}

		c, err := openClient(engine.OnChange(onChange))
		if err != nil {
			return err
		}
		defer c.close()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := c.resume(ctx); err != nil {
			return err
		}
		c.engine.Start()
		defer c.engine.Stop()

		focus := make(chan os.Signal, 1)
		signal.Notify(focus, syscall.SIGUSR1)
		defer signal.Stop(focus)

		for {
			select {
			case <-focus:
				c.engine.Focus(context.WithoutCancel(ctx))
			case <-ctx.Done():
				return nil
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
