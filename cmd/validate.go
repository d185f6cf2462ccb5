// =============================================================================
// ifirma client - Validate Command
// =============================================================================
//
// COMMAND USAGE:
//   ifirma validate [file...]
//
// Loads and validates invoice files without sending anything. Without
// arguments every invoice file in the input directory is checked. With
// --verbose the translated payload is dumped as well.
//
// =============================================================================

package cmd

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"

	"github.com/ginjaninja78/ifirma-client/internal/config"
	"github.com/ginjaninja78/ifirma-client/internal/document"
	"github.com/ginjaninja78/ifirma-client/internal/validation"
	"github.com/ginjaninja78/ifirma-client/pkg/utils"
)

var validateCmd = &cobra.Command{
	Use:   "validate [file...]",
	Short: "Validate invoice files without submitting them",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		files := args
		if len(files) == 0 {
			if files, err = utils.NewFileManager(cfg, nil).DiscoverInvoiceFiles(); err != nil {
				return err
			}
		}
		return runValidate(cfg, files, verbose, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

// runValidate reports on every file and fails if any of them is invalid.
func runValidate(cfg *config.Config, files []string, dump bool, out io.Writer) error {
	if len(files) == 0 {
		fmt.Fprintln(out, "No invoice files found.")
		return nil
	}

	invalid := 0
	for _, path := range files {
		doc, err := document.Load(path, cfg.Items)
		if err != nil {
			invalid++
			fmt.Fprintf(out, "✗ %s: %v\n", filepath.Base(path), err)
			continue
		}

		res, err := validation.Validate(doc.Attributes, doc.Kind)
		if err != nil {
			invalid++
			fmt.Fprintf(out, "✗ %s: %v\n", filepath.Base(path), err)
			continue
		}

		mark := "✓"
		if !res.IsValid {
			mark = "✗"
			invalid++
		}
		fmt.Fprintf(out, "%s %s (%s, %s): %d error(s), %d warning(s)\n",
			mark, filepath.Base(path), doc.Kind, doc.Stage, res.ErrorCount, res.WarningCount)
		if len(res.Errors) > 0 {
			fmt.Fprintln(out, validation.FormatErrors(res.Errors))
		}
		if dump {
			spew.Fdump(out, res.Payload)
		}
	}

	if invalid > 0 {
		return fmt.Errorf("%d of %d invoice file(s) are invalid", invalid, len(files))
	}
	return nil
}
