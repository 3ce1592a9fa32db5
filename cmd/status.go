package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon status",
	Long:  `Query the mrcpd daemon for uptime, session count, and configured profiles.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStatus()
	},
}

func runStatus() error {
	c, err := dialControl()
	if err != nil {
		exitWithError("could not connect to daemon", err)
	}
	defer c.Close()

	status, err := c.Status()
	if err != nil {
		exitWithError("status query failed", err)
	}

	fmt.Printf("uptime:    %s\n", status.Uptime)
	fmt.Printf("sessions:  %d\n", status.SessionCount)
	fmt.Printf("profiles:  %v\n", status.Profiles)
	return nil
}
