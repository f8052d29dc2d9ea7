package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	endpointURL string
	timeout     time.Duration
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "wsgateway-cli",
		Short: "wsgateway endpoint command line client",
		Long: `wsgateway-cli connects to a wsgateway inbound endpoint. It can listen for frames
delivered to a subscriber path or send frames and print the replies.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&endpointURL, "url", "ws://localhost:8080/", "Endpoint URL including the subscriber path")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "Connection timeout")

	rootCmd.AddCommand(newListenCommand())
	rootCmd.AddCommand(newSendCommand())
	return rootCmd
}
