// Package main provides metagen, the Blocks metadata documentation tool.
// It registers the known component classes and dumps their compiled
// metadata (props, fields, methods, hooks, watchers, mods) as YAML.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/go-drift/blocks/examples"
)

var (
	// Version information - set at build time.
	Version   = "dev"
	GitCommit = "unknown"
)

func main() {
	if err := examples.RegisterAll(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	rootCmd := &cobra.Command{
		Use:   "metagen",
		Short: "Blocks component metadata documentation generator",
		Long: `metagen inspects the registered Blocks component classes and emits
their compiled metadata as YAML: props, fields, system fields, methods,
computed values, lifecycle hooks, watchers, and modifier defaults.

An optional blocks.yaml in the project root controls the output directory
and the set of components to include.`,
	}

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(describeCmd)
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
