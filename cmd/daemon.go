package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"firestige.xyz/otus/internal/channel"
	"firestige.xyz/otus/internal/config"
	"firestige.xyz/otus/internal/daemon"
	"firestige.xyz/otus/internal/methodfsm"
	"firestige.xyz/otus/internal/termination"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run mrcpd in the foreground",
	Long: `Run the mrcpd daemon process in the foreground.

The daemon loads its configuration, starts the media engine, registers
the configured profiles, opens the control-plane socket, and blocks
until a shutdown signal or control command arrives.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDaemon()
	},
}

// defaultResourceFactories wires every resource name a profile declares
// to a generic method/event passthrough channel (methodfsm.NewGeneric),
// the same stand-in internal/profile's own tests use in place of a real
// resource engine. An embedder linking mrcpd against concrete engines
// (speech recognizer, synthesizer, recorder) supplies its own
// daemon.ResourceFactories instead of calling this.
func defaultResourceFactories(profiles []config.ProfileConfig) daemon.ResourceFactories {
	factories := daemon.ResourceFactories{}
	for _, p := range profiles {
		for _, name := range p.Resources {
			if _, exists := factories[name]; exists {
				continue
			}
			factories[name] = func(resourceName string) (channel.EngineChannel, error) {
				term := termination.New(termination.KindEngine, resourceName)
				return channel.NewSyncEngineChannel(term, methodfsm.NewGeneric()), nil
			}
		}
	}
	return factories
}

func runDaemon() error {
	fmt.Printf("starting mrcpd (config: %s)\n", configFile)

	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("daemon: load config: %w", err)
	}

	d, err := daemon.New(configFile, defaultResourceFactories(cfg.Profiles))
	if err != nil {
		return fmt.Errorf("daemon: %w", err)
	}

	if err := d.Start(); err != nil {
		return fmt.Errorf("daemon: start: %w", err)
	}

	if err := d.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "mrcpd exited: %v\n", err)
		os.Exit(1)
	}
	return nil
}
