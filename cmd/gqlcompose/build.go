package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/syssam/gqlcompose"
	"github.com/syssam/gqlcompose/compiler"
	sqlstore "github.com/syssam/gqlcompose/dialect/sql"
)

var (
	buildOut   string
	printOut   string
	printStats bool
)

func init() {
	buildCmd.Flags().StringVarP(&buildOut, "out", "o", "-", "Output file for the schema SDL")
	buildCmd.Flags().BoolVar(&printStats, "stats", false, "Print type counts and store query stats after the build")
	printCmd.Flags().StringVarP(&printOut, "out", "o", "-", "Output file for the type definitions")
}

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the schema and print it as SDL",
	Long: `Build the schema of the project and print the complete SDL, including the
generated query surface.

Examples:
  gqlcompose build
  gqlcompose build -c site/gqlcompose.yml -o schema.graphql`,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := openProject(cmd.Context())
		if err != nil {
			return err
		}
		defer p.close()

		s, err := p.build(cmd.Context())
		if err != nil {
			return err
		}
		if err := output(buildOut, []byte(s.SDL())); err != nil {
			return err
		}
		if printStats {
			fmt.Fprintf(os.Stderr, "%d types, %d root fields, %d inference conflicts\n",
				s.Types().Len(), len(s.AST().Query.Fields), len(p.builder.Conflicts()))
			if stats, ok := storeStats(p.store); ok {
				fmt.Fprintf(os.Stderr, "store: %s\n", stats)
			}
		}
		return nil
	},
}

var printCmd = &cobra.Command{
	Use:   "print",
	Short: "Print the explicit and inferred type definitions",
	Long: `Print the explicit and inferred types of the project with their directives.
The output can be checked in as the project's type definitions to freeze
inference.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := os.MkdirTemp("", "gqlcompose-print-*")
		if err != nil {
			return err
		}
		defer os.RemoveAll(dir)
		path := filepath.Join(dir, "types.graphql")

		p, err := openProject(cmd.Context(), compiler.WithPrintTypeDefs(path))
		if err != nil {
			return err
		}
		defer p.close()
		if _, err := p.build(cmd.Context()); err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return output(printOut, data)
	},
}

// storeStats returns the query stats of an SQL node store.
func storeStats(store gqlcompose.NodeStore) (sqlstore.StatsSnapshot, bool) {
	s, ok := store.(*sqlstore.Store)
	if !ok {
		return sqlstore.StatsSnapshot{}, false
	}
	return s.Stats()
}
