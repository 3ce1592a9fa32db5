// Package cmd implements mrcpd's CLI: a daemon subcommand that runs the
// process in the foreground, and status/reload/stop subcommands that
// talk to a running daemon over its control-plane Unix socket.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"firestige.xyz/otus/internal/control"
	"firestige.xyz/otus/internal/daemon"
)

var (
	configFile string
	socketPath string
	pidFile    string
)

var rootCmd = &cobra.Command{
	Use:   "mrcpd",
	Short: "mrcpd - MRCP server-side session core",
	Long: `mrcpd runs the server side of the Media Resource Control Protocol:
it accepts session offers against a named profile, negotiates termination
streams into a Media Context, and drives the session's method/event
traffic to whichever resource engines the profile wires in.

  mrcpd daemon   run the daemon in the foreground
  mrcpd status   query a running daemon's health
  mrcpd reload   reload daemon configuration without restarting
  mrcpd stop     ask a running daemon to shut down gracefully`,
	Version: "0.1.0",
}

// Execute runs the root command. Called once by main.main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "/etc/mrcpd/config.yml",
		"config file path")
	rootCmd.PersistentFlags().StringVarP(&socketPath, "socket", "s", "",
		"control-plane socket path (defaults to /var/run/mrcpd.sock)")
	rootCmd.PersistentFlags().StringVar(&pidFile, "pidfile", "",
		"pid file path (defaults to /var/run/mrcpd.pid)")

	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(reloadCmd)
	rootCmd.AddCommand(stopCmd)
}

// dialControl ensures a daemon is reachable at socketPath (starting one
// in the background if not) and returns a connected control.Client.
func dialControl() (*control.Client, error) {
	if err := daemon.EnsureRunning(socketPath, pidFile); err != nil {
		return nil, fmt.Errorf("could not reach or start daemon: %w", err)
	}
	sock := socketPath
	if sock == "" {
		sock = "/var/run/mrcpd.sock"
	}
	return control.Dial(sock)
}

func exitWithError(msg string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", msg)
	}
	os.Exit(1)
}
