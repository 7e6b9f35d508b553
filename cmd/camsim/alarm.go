package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func triggerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "trigger",
		Short: "Trigger this camera's alarm",
		RunE: func(cmd *cobra.Command, _ []string) error {
			command, err := newClient().TriggerAlarm(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Println(command)
			return nil
		},
	}
}

func clearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear this camera's alarm",
		RunE: func(cmd *cobra.Command, _ []string) error {
			command, err := newClient().ClearAlarm(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Println(command)
			return nil
		},
	}
}

func registerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "register <stream-url>",
		Short: "Register an externally reachable stream URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return newClient().Register(cmd.Context(), args[0])
		},
	}
}

func heartbeatCmd() *cobra.Command {
	var every time.Duration

	cmd := &cobra.Command{
		Use:   "heartbeat",
		Short: "Send a heartbeat, or keep sending one with --every",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c := newClient()
			if every <= 0 {
				return c.Heartbeat(cmd.Context())
			}

			ticker := time.NewTicker(every)
			defer ticker.Stop()
			for {
				if err := c.Heartbeat(cmd.Context()); err != nil {
					fmt.Println("heartbeat failed:", err)
				}
				select {
				case <-cmd.Context().Done():
					return nil
				case <-ticker.C:
				}
			}
		},
	}
	cmd.Flags().DurationVar(&every, "every", 0, "repeat interval")
	return cmd
}
