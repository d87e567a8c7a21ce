// gqlcompose builds the GraphQL schema of a content project.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version = "dev"

var (
	configPath string
	verbose    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "gqlcompose",
		Short: "Compose a GraphQL schema from type definitions and content nodes",
		Long: `gqlcompose merges explicit type definitions, types inferred from content
nodes and third-party schemas into one queryable GraphQL schema.

The project is described by a gqlcompose.yml file listing the type definition
files, the node fixtures and the node store.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "gqlcompose.yml", "Project configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log build phases")

	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(printCmd)
	rootCmd.AddCommand(typegenCmd)
	rootCmd.AddCommand(watchCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func logger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
