package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the mrcpd daemon",
	Long: `Stop the running mrcpd daemon gracefully.

The daemon closes the control socket, stops the media engine, flushes
the event publisher, and exits. Live sessions are not terminated
individually.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStop()
	},
}

func runStop() error {
	c, err := dialControl()
	if err != nil {
		exitWithError("could not connect to daemon", err)
	}
	defer c.Close()

	if err := c.Stop(); err != nil {
		exitWithError("stop failed", err)
	}
	fmt.Println("daemon stopping")
	return nil
}
