package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/go-drift/blocks/cmd/metagen/internal/config"
	"github.com/go-drift/blocks/pkg/engine"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version and engine compatibility",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("metagen version: %s\n", Version)
		fmt.Printf("git commit: %s\n", GitCommit)
		fmt.Printf("go version: %s\n", runtime.Version())
		fmt.Printf("engine contract: %s\n", engine.ContractVersion)

		cwd, err := os.Getwd()
		if err != nil {
			return
		}
		resolved, err := config.Resolve(cwd)
		if err != nil || resolved.EngineVersion == "" {
			return
		}
		if err := engine.CheckVersion(resolved.EngineVersion); err != nil {
			fmt.Printf("engine %s: INCOMPATIBLE (%v)\n", resolved.EngineVersion, err)
			return
		}
		fmt.Printf("engine %s: compatible\n", resolved.EngineVersion)
	},
}
