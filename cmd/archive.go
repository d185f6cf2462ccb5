// =============================================================================
// ifirma client - Archive Command
// =============================================================================
//
// COMMAND USAGE:
//   ifirma archive list [prefix]
//   ifirma archive get <key> [--out file]
//   ifirma archive prune --older-than 2160h [prefix]
//
// Works on the store selected by the "archive" configuration section.
//
// =============================================================================

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/ifirma-client/internal/archive"
	"github.com/ginjaninja78/ifirma-client/pkg/utils"
)

var (
	archiveOut       string
	archiveOlderThan time.Duration
)

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Inspect and prune the rendering archive",
}

var archiveListCmd = &cobra.Command{
	Use:   "list [prefix]",
	Short: "List archived entries",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openArchive(cmd.Context())
		if err != nil {
			return err
		}
		prefix := ""
		if len(args) == 1 {
			prefix = args[0]
		}
		return runArchiveList(cmd.Context(), store, prefix, cmd.OutOrStdout())
	},
}

var archiveGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Copy an archived entry to a file or stdout",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openArchive(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if archiveOut != "" {
			f, err := os.Create(archiveOut)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", archiveOut, err)
			}
			defer f.Close()
			out = f
		}
		return runArchiveGet(cmd.Context(), store, args[0], out)
	},
}

var archivePruneCmd = &cobra.Command{
	Use:   "prune [prefix]",
	Short: "Delete archived entries older than --older-than",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if archiveOlderThan <= 0 {
			return errors.New("--older-than must be positive")
		}
		store, err := openArchive(cmd.Context())
		if err != nil {
			return err
		}
		prefix := ""
		if len(args) == 1 {
			prefix = args[0]
		}
		removed, err := utils.PruneArchive(cmd.Context(), store, prefix, archiveOlderThan)
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %d entr(ies)\n", removed)
		return err
	},
}

func init() {
	rootCmd.AddCommand(archiveCmd)
	archiveCmd.AddCommand(archiveListCmd, archiveGetCmd, archivePruneCmd)

	archiveGetCmd.Flags().StringVarP(&archiveOut, "out", "o", "", "Write to this file instead of stdout")
	archivePruneCmd.Flags().DurationVar(&archiveOlderThan, "older-than", 90*24*time.Hour, "Minimum age of removed entries")
}

func openArchive(ctx context.Context) (archive.Store, error) {
	a, err := loadApp()
	if err != nil {
		return nil, err
	}
	store, err := archive.Open(ctx, a.cfg.Archive)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	if store == nil {
		return nil, errors.New("archive is disabled (archive.driver is none)")
	}
	return store, nil
}

func runArchiveList(ctx context.Context, store archive.Store, prefix string, out io.Writer) error {
	entries, err := store.List(ctx, prefix)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tSIZE\tMODIFIED")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%d\t%s\n", e.Key, e.Size, e.LastModified.Format(time.RFC3339))
	}
	return tw.Flush()
}

func runArchiveGet(ctx context.Context, store archive.Store, key string, out io.Writer) error {
	_, rc, err := store.Get(ctx, key)
	if err != nil {
		return err
	}
	defer rc.Close()
	if _, err := io.Copy(out, rc); err != nil {
		return fmt.Errorf("failed to copy %s: %w", key, err)
	}
	return nil
}
