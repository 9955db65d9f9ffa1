package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/go-drift/blocks/pkg/component"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered components",
	Run: func(cmd *cobra.Command, args []string) {
		for _, name := range component.Registered() {
			m, _, _ := component.Lookup(name)
			parent := ""
			if p := m.Parent(); p != nil {
				parent = " (extends " + p.ComponentName + ")"
			}
			fmt.Printf("%s%s\n", name, parent)
		}
	},
}
