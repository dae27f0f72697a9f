// Command sss-server bridges a SmartScope to the network.
//
// Usage:
//
//	sss-server serve [--interactive] [flags]
//	sss-server browse [--timeout 5s]
//	sss-server probe <host:port>
//	sss-server log view [filters] <file>
//	sss-server config show
//
// Examples:
//
//	# Serve the simulated scope on fixed ports without advertising
//	sss-server serve --control-port 25000 --data-port 25001 --discovery none
//
//	# Serve with a console and a protocol log
//	sss-server serve --interactive --protocol-log sss.cbor
//
//	# Show only control-socket errors from a protocol log
//	sss-server log view --channel control --category error sss.cbor
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/labnation/sss-go/internal/config"
)

var configFile string

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "sss-server",
		Short:         "SmartScope network bridge",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "YAML configuration file")
	root.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")

	root.AddCommand(
		newServeCommand(),
		newBrowseCommand(),
		newProbeCommand(),
		newLogCommand(),
		newConfigCommand(),
	)
	return root
}

// loadConfig merges the config file, environment and the command's flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	return config.Load(config.LoadOptions{
		ConfigFile: configFile,
		Flags:      cmd.Flags(),
	})
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
