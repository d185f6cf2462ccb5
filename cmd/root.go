// =============================================================================
// ifirma client - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. Every other command
// is attached to it.
//
// COBRA CLI STRUCTURE:
//   rootCmd (ifirma)
//   ├── submitCmd   (ifirma submit)
//   ├── retrieveCmd (ifirma retrieve <id>)
//   ├── listCmd     (ifirma list)
//   ├── validateCmd (ifirma validate [file...])
//   ├── schemaCmd   (ifirma schema)
//   ├── archiveCmd  (ifirma archive list|get|prune)
//   └── versionCmd  (ifirma version)
//
// CONFIGURATION:
//   The root command owns the global flags (--config, --verbose). Commands
//   call loadApp to read the configuration and build the logger.
//
// =============================================================================

package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/ifirma-client/internal/config"
	"github.com/ginjaninja78/ifirma-client/internal/invoice"
	"github.com/ginjaninja78/ifirma-client/internal/logctx"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the configuration file.
var cfgFile string

// verbose enables debug logging when set to true.
var verbose bool

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

var rootCmd = &cobra.Command{
	Use:   "ifirma",
	Short: "ifirma.pl invoicing client",
	Long: `ifirma is a command line client for the ifirma.pl invoicing API.

It translates invoice files written with English attribute names into the
payloads ifirma expects, submits them, and retrieves the resulting documents.

Key Features:
  - Domestic and cash-on-delivery invoices, final or proforma
  - Line items inline or from CSV/XLSX files
  - Validation with every problem reported at once
  - Concurrent batch submission with input archival
  - Rendering archive on disk, in memory or in S3

Example Usage:
  ifirma submit                         # Submit every invoice file in the input directory
  ifirma submit --file invoice.yaml     # Submit a single file
  ifirma retrieve 1234 --format pdf     # Fetch a rendering
  ifirma validate invoice.yaml          # Check a file without sending it`,

	SilenceUsage: true,

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute runs the root command. It is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yaml",
		"Path to the configuration file",
	)
	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable debug logging",
	)
}

// =============================================================================
// SHARED SETUP
// =============================================================================

// app bundles what every command needs.
type app struct {
	cfg *config.Config
	log *slog.Logger
}

// loadApp reads the configuration and builds a logger writing to stderr.
func loadApp() (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	log, err := newLogger(os.Stderr, cfg.LogLevel, verbose)
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, log: log}, nil
}

// newLogger builds a text logger at level, or at debug when debug is set.
// Records carry the operation and request data of their context.
func newLogger(w io.Writer, level string, debug bool) (*slog.Logger, error) {
	lvl, err := config.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	if debug {
		lvl = slog.LevelDebug
	}
	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})
	return slog.New(logctx.New(h)), nil
}

// service builds the invoice service from the configuration.
func (a *app) service() (*invoice.Service, error) {
	return invoice.New(a.cfg.Transport(a.log), invoice.WithLogger(a.log))
}
