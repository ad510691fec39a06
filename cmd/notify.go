package cmd

import (
	"context"
	"fmt"

	"github.com/Deadly1ne/ChapBuddy/internal/config"
	"github.com/Deadly1ne/ChapBuddy/internal/notify"

	"github.com/spf13/cobra"
)

var notifyTestCmd = &cobra.Command{
	Use:   "notify-test [series_id]",
	Short: "Send a test message to the configured Discord webhook",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := config.LoadMerged(config.Options{
			IgnoreConfig: flagIgnoreConfig,
			Debug:        flagDebug,
		})
		if err != nil {
			return err
		}

		webhook := cfg.DiscordWebhook
		if len(args) == 1 {
			found := false
			for _, s := range cfg.Series {
				if s.ID == args[0] {
					webhook = cfg.Webhook(s)
					found = true
					break
				}
			}
			if !found {
				return fmt.Errorf("unknown series id %q", args[0])
			}
		}

		if webhook == "" {
			return fmt.Errorf("no webhook configured")
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		if err := notify.NewService(webhook, nil).TestNotification(ctx); err != nil {
			return err
		}

		fmt.Println("Test notification sent.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(notifyTestCmd)
}
