// =============================================================================
// ifirma client - Schema Command
// =============================================================================
//
// COMMAND USAGE:
//   ifirma schema [--kind domestic]
//
// Prints the attribute schema of a document kind as YAML: every accepted
// attribute, its wire name, and the values lookups accept.
//
// =============================================================================

package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ginjaninja78/ifirma-client/internal/invoice"
	"github.com/ginjaninja78/ifirma-client/internal/types"
)

var schemaKind string

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the attribute schema of a document kind",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSchema(schemaKind, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(schemaCmd)
	schemaCmd.Flags().StringVar(&schemaKind, "kind", "domestic", "Document kind (domestic, cash-on-delivery)")
}

func runSchema(kindName string, out io.Writer) error {
	kind, err := types.ParseDocumentKind(kindName)
	if err != nil {
		return err
	}
	schema, err := invoice.SchemaFor(kind)
	if err != nil {
		return err
	}

	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(schema.Describe()); err != nil {
		return fmt.Errorf("failed to encode schema: %w", err)
	}
	return enc.Close()
}
