package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rmacdonaldsmith/wsgateway/pkg/channel"
	"github.com/rmacdonaldsmith/wsgateway/pkg/wsclient"
)

func newListenCommand() *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Print frames delivered to the connection",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			client, err := dial(ctx)
			if err != nil {
				return err
			}
			defer client.Close()

			fmt.Fprintf(cmd.ErrOrStderr(), "Listening on %s...\n", endpointURL)
			return printFrames(ctx, cmd.OutOrStdout(), client, count)
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", 0, "Exit after this many frames (0 = until interrupted)")
	return cmd
}

func dial(ctx context.Context) (*wsclient.Client, error) {
	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := wsclient.Dial(dialCtx, wsclient.Config{URL: endpointURL, HandshakeTimeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	return client, nil
}

// printFrames writes frames to w until ctx is done, the connection closes or count
// frames were printed
func printFrames(ctx context.Context, w io.Writer, client *wsclient.Client, count int) error {
	printed := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-client.Errors():
			if ok && err != nil {
				return err
			}
		case frame, ok := <-client.Frames():
			if !ok {
				return nil
			}
			printFrame(w, frame)
			printed++
			if count > 0 && printed >= count {
				return nil
			}
		}
	}
}

func printFrame(w io.Writer, frame channel.Frame) {
	if frame.Type == channel.FrameBinary {
		fmt.Fprintf(w, "[binary %d bytes] %x\n", len(frame.Data), frame.Data)
		return
	}
	fmt.Fprintln(w, frame.Text())
}
