package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"docwatch/internal/daemon"
	"docwatch/internal/logging"
)

func newUploadCommand(ctx *commandContext) *cobra.Command {
	var topic string
	var wait bool
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a document and track it to completion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			d, err := daemon.New(cfg, logger)
			if err != nil {
				return fmt.Errorf("create runtime: %w", err)
			}
			defer d.Close()

			submissionID, err := d.Submit(cmd.Context(), args[0], topic)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Uploaded %s (submission %s)\n", args[0], submissionID)

			if !wait {
				fmt.Fprintln(out, "Tracking handed off; run the daemon to follow progress")
				return nil
			}

			interval := time.Duration(cfg.Tracker.TickIntervalSeconds) * time.Second
			if interval <= 0 {
				interval = time.Second
			}
			deadline := time.Now().Add(timeout)
			for d.Tracker().Registry().Len() > 0 {
				if timeout > 0 && time.Now().After(deadline) {
					return fmt.Errorf("gave up waiting after %s; submission may still complete", timeout)
				}
				select {
				case <-cmd.Context().Done():
					return cmd.Context().Err()
				case <-time.After(interval):
				}
				d.Tracker().Tick(cmd.Context())
			}
			fmt.Fprintln(out, "Tracking finished")
			return nil
		},
	}

	cmd.Flags().StringVarP(&topic, "topic", "t", "", "Notification topic for this submission")
	cmd.Flags().BoolVarP(&wait, "wait", "w", true, "Poll until tracking reaches a terminal state")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Minute, "Maximum time to wait (0 waits forever)")
	return cmd
}
