package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var version = "dev"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "controllers",
		Short: "Discover controller descriptors and serve them",
		Long: `controllers loads route descriptors by convention:

  *.controller.yaml            a descriptor file
  name.controller/index.yaml   a descriptor package

and registers the handlers they name on a gin router.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		routesCmd(),
		serveCmd(),
	)
	return root
}
