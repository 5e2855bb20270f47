package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"assetgraph/internal/codec"
	"assetgraph/internal/loader"
)

func newSchemaCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Import and export data models",
	}
	cmd.AddCommand(newSchemaImportCmd(a), newSchemaExportCmd(a))
	return cmd
}

func newSchemaImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Add the classes, rules and list items of a data model file",
		Long: `Imports a YAML or JSON data model into the configured store. Whatever the
store already holds is left untouched, so importing a file twice is harmless.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			model, err := loader.LoadFile(args[0])
			if err != nil {
				return err
			}
			inv, db, err := a.openInventory()
			if err != nil {
				return err
			}
			defer db.Close()

			result, err := inv.Startup(cmd.Context(), model)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "classes created:    %d\n", result.ClassesCreated)
			fmt.Fprintf(out, "attributes created: %d\n", result.AttributesCreated)
			fmt.Fprintf(out, "rules added:        %d\n", result.RulesAdded)
			fmt.Fprintf(out, "items created:      %d\n", result.ItemsCreated)
			return nil
		},
	}
}

func newSchemaExportCmd(a *app) *cobra.Command {
	var format, output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the live schema as a data model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := exportCodec(format, output)
			if err != nil {
				return err
			}
			inv, db, err := a.openInventory()
			if err != nil {
				return err
			}
			defer db.Close()

			if _, err := inv.Startup(cmd.Context(), nil); err != nil {
				return err
			}
			model, err := inv.ExportDataModel(cmd.Context())
			if err != nil {
				return err
			}

			var w io.Writer = cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", output, err)
				}
				defer f.Close()
				w = f
			}
			return c.Export(model, w)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "", "output format: yaml or json (default: from --output, else yaml)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to a file instead of stdout")
	return cmd
}

func exportCodec(format, output string) (codec.Codec, error) {
	switch {
	case format != "":
		return codec.ForFormat(format)
	case output != "":
		return codec.ForPath(output)
	}
	return codec.NewYAMLCodec(), nil
}
