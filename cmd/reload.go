package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var reloadCmd = &cobra.Command{
	Use:   "reload",
	Short: "Reload mrcpd configuration",
	Long: `Reload the running daemon's configuration file without restarting.

Log level and format hot-swap in place; changes to listen addresses or
the metrics port are logged but require a restart to take effect.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReload()
	},
}

func runReload() error {
	c, err := dialControl()
	if err != nil {
		exitWithError("could not connect to daemon", err)
	}
	defer c.Close()

	if err := c.Reload(); err != nil {
		exitWithError("reload failed", err)
	}
	fmt.Println("configuration reloaded")
	return nil
}
