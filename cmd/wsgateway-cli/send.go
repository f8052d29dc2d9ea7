package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newSendCommand() *cobra.Command {
	var (
		binary bool
		wait   time.Duration
		count  int
	)

	cmd := &cobra.Command{
		Use:   "send [message]",
		Short: "Send one frame and print replies",
		Long: `Send one frame to the endpoint. With --binary the argument is hex-decoded and sent
as a binary frame. Replies are printed until --wait elapses or --count frames arrive.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := dial(cmd.Context())
			if err != nil {
				return err
			}
			defer client.Close()

			if binary {
				data, err := hex.DecodeString(args[0])
				if err != nil {
					return fmt.Errorf("invalid hex payload: %w", err)
				}
				err = client.SendBinary(data)
				if err != nil {
					return fmt.Errorf("failed to send: %w", err)
				}
			} else if err := client.SendText(args[0]); err != nil {
				return fmt.Errorf("failed to send: %w", err)
			}

			if wait <= 0 {
				return nil
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), wait)
			defer cancel()
			return printFrames(ctx, cmd.OutOrStdout(), client, count)
		},
	}

	cmd.Flags().BoolVar(&binary, "binary", false, "Send the hex-decoded argument as a binary frame")
	cmd.Flags().DurationVar(&wait, "wait", time.Second, "How long to wait for replies (0 = do not wait)")
	cmd.Flags().IntVarP(&count, "count", "n", 1, "Stop after this many replies (0 = until --wait elapses)")
	return cmd
}
