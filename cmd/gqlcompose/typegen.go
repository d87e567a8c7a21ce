package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/syssam/gqlcompose/contrib/graphql"
	"github.com/syssam/gqlcompose/contrib/typegen"
)

var (
	typegenOut     string
	typegenPackage string
	typegenTypes   []string
	typegenGQLGen  string
	typegenImport  string
	typegenSchema  string
)

func init() {
	typegenCmd.Flags().StringVarP(&typegenOut, "out", "o", "model/types.go", "Output Go file")
	typegenCmd.Flags().StringVarP(&typegenPackage, "package", "p", "model", "Package name of the generated file")
	typegenCmd.Flags().StringSliceVarP(&typegenTypes, "type", "t", nil, "Generate only these types and the types they reference")
	typegenCmd.Flags().StringVar(&typegenGQLGen, "gqlgen", "", "gqlgen.yml file to bind the generated models in")
	typegenCmd.Flags().StringVar(&typegenImport, "import", "", "Import path of the generated package, required with --gqlgen")
	typegenCmd.Flags().StringVar(&typegenSchema, "schema", "", "Schema file to add to the gqlgen configuration")
}

var typegenCmd = &cobra.Command{
	Use:   "typegen",
	Short: "Generate Go types for the object and enum types of the schema",
	Long: `Build the schema and generate Go structs for its object types and string
types for its enums. Node types get their id, parent, children and internal
fields so that nodes decode into them directly.

Examples:
  gqlcompose typegen -o internal/model/types.go -p model
  gqlcompose typegen -t Post -t Author
  gqlcompose typegen --gqlgen gqlgen.yml --import example.com/site/model --schema schema.graphql`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if typegenGQLGen != "" && typegenImport == "" {
			return fmt.Errorf("--import is required with --gqlgen")
		}
		p, err := openProject(cmd.Context())
		if err != nil {
			return err
		}
		defer p.close()
		s, err := p.build(cmd.Context())
		if err != nil {
			return err
		}
		g, err := typegen.New(s.Types(), typegen.Config{Package: typegenPackage, Types: typegenTypes})
		if err != nil {
			return err
		}
		if err := g.WriteFile(typegenOut); err != nil {
			return err
		}
		p.log.Info("types generated", "out", typegenOut)
		if typegenGQLGen == "" {
			return nil
		}
		gc, err := graphql.LoadGQLGenConfig(typegenGQLGen)
		if err != nil {
			return err
		}
		gc.BindModels(typegenImport, g.Names(), typegenSchema)
		if err := graphql.SaveGQLGenConfig(typegenGQLGen, gc); err != nil {
			return err
		}
		p.log.Info("gqlgen models bound", "config", typegenGQLGen, "types", len(g.Names()))
		return nil
	},
}
