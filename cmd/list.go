// =============================================================================
// ifirma client - List Command
// =============================================================================
//
// COMMAND USAGE:
//   ifirma list [--kind domestic]
//
// Prints the most recent final documents of a kind as indented JSON.
//
// =============================================================================

package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/ifirma-client/internal/invoice"
	"github.com/ginjaninja78/ifirma-client/internal/types"
)

var listKind string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: fmt.Sprintf("List the %d most recent documents of a kind", invoice.ListPageSize),
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		svc, err := a.service()
		if err != nil {
			return err
		}
		return runList(cmd.Context(), svc, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().StringVar(&listKind, "kind", "domestic", "Document kind (domestic, cash-on-delivery)")
}

func runList(ctx context.Context, svc *invoice.Service, out io.Writer) error {
	kind, err := types.ParseDocumentKind(listKind)
	if err != nil {
		return err
	}

	result := svc.List(ctx, kind)
	if !result.Success {
		if result.Err == nil {
			return fmt.Errorf("failed to list %s documents", kind)
		}
		return fmt.Errorf("failed to list %s documents: %w", kind, result.Err)
	}

	data := result.Body
	if result.Envelope != nil && len(result.Envelope.Data) > 0 {
		data = result.Envelope.Data
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return fmt.Errorf("failed to format listing: %w", err)
	}
	buf.WriteByte('\n')
	_, err = buf.WriteTo(out)
	return err
}
