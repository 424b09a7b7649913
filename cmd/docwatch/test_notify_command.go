package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"docwatch/internal/notifier"
)

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	var topic string

	cmd := &cobra.Command{
		Use:   "test-notify",
		Short: "Send a test notification",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if strings.TrimSpace(cfg.Notifications.NtfyServer) == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "Notifications are not configured; nothing sent")
				return nil
			}

			svc := notifier.NewService(cfg)
			if err := svc.Send(cmd.Context(), topic, "docwatch test notification"); err != nil {
				return fmt.Errorf("send test notification: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Test notification sent")
			return nil
		},
	}

	cmd.Flags().StringVarP(&topic, "topic", "t", "", "Override the destination topic")
	return cmd
}
