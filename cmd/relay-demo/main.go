// Command relay-demo serves a small application built on relay.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

type rootOptions struct {
	configPath string
	listen     string
	verbose    bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "relay-demo",
		Short:         "Demo server for the relay router",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "Path to a YAML config file")
	flags.StringVar(&opts.listen, "listen", "", "Address to listen on (overrides config)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Log every routing decision")

	rootCmd.AddCommand(
		serveCmd(opts),
		routesCmd(opts),
	)
	return rootCmd
}
