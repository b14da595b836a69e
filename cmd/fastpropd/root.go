// Command fastpropd runs the propositionalization daemon: a loopback TCP
// server (§6) fronting a process-wide pipeline manager and frame store.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configFile string

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "fastpropd",
		Short: "propositionalization engine daemon",
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "path to a config file (TOML, YAML, or JSON)")
	root.AddCommand(newServeCommand())
	return root
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
