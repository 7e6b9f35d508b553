// Command camsim behaves like an edge camera: it pushes frames, heartbeats
// and alarm events to a relay.
package main

import (
	"fmt"
	"os"
	"time"

	"camrelay/client"

	"github.com/spf13/cobra"
)

var (
	relayURL string
	cameraID int
	timeout  time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "camsim",
	Short: "Simulate an edge camera against a camera relay",
}

func newClient() *client.Client {
	return client.New(relayURL, cameraID, timeout)
}

func main() {
	rootCmd.PersistentFlags().StringVar(&relayURL, "relay", "http://localhost:8080", "relay base URL")
	rootCmd.PersistentFlags().IntVar(&cameraID, "camera", 1, "camera number")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "per-request timeout")

	rootCmd.AddCommand(pushCmd(), heartbeatCmd(), triggerCmd(), clearCmd(), registerCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
