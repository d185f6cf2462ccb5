// =============================================================================
// ifirma client - Submit Command
// =============================================================================
//
// This file defines the 'submit' command, which sends invoice files to
// ifirma. It orchestrates the whole submission pipeline.
//
// COMMAND USAGE:
//   ifirma submit [flags]
//
// FLAGS:
//   --file     : Submit a single invoice file instead of the input directory
//   --dry-run  : Validate and translate without sending anything
//   --kind     : Override the document kind of every file
//   --stage    : Override the document stage of every file
//
// PROCESSING PIPELINE:
//   1. Load configuration
//   2. Discover invoice files in the input directory
//   3. For each file (concurrently, at most max_concurrency at a time):
//      a. Load the file and its line items
//      b. Validate and translate the attributes
//      c. Submit the payload
//      d. Move the file to the input archive
//   4. Write the error log and the summary
//
// =============================================================================

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/ifirma-client/internal/archive"
	"github.com/ginjaninja78/ifirma-client/internal/config"
	"github.com/ginjaninja78/ifirma-client/internal/document"
	"github.com/ginjaninja78/ifirma-client/internal/envelope"
	"github.com/ginjaninja78/ifirma-client/internal/invoice"
	"github.com/ginjaninja78/ifirma-client/internal/transport"
	"github.com/ginjaninja78/ifirma-client/internal/types"
	"github.com/ginjaninja78/ifirma-client/internal/validation"
	"github.com/ginjaninja78/ifirma-client/pkg/utils"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var submitFlags struct {
	file   string
	dryRun bool
	kind   string
	stage  string
}

// =============================================================================
// SUBMIT COMMAND DEFINITION
// =============================================================================

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit invoice files to ifirma",
	Long: `The submit command scans the input directory for invoice files (.yaml,
.yml, .json), validates each one against the schema of its document kind, and
sends it to ifirma.

Files are processed concurrently and independently: a failure in one file does
not affect the others unless stop_on_error is set.

On success:
  - The invoice file is moved to the input archive
  - The identifier assigned by ifirma is reported in the summary

On error:
  - The invoice file stays in the input directory
  - Validation problems are written to <file>.errors.log in the log directory
  - The failure is added to the run's error log`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runSubmit(cmd.Context(), cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(submitCmd)

	submitCmd.Flags().StringVar(&submitFlags.file, "file", "", "Submit a single invoice file")
	submitCmd.Flags().BoolVar(&submitFlags.dryRun, "dry-run", false, "Validate and translate without sending anything")
	submitCmd.Flags().StringVar(&submitFlags.kind, "kind", "", "Override the document kind (domestic, cash-on-delivery)")
	submitCmd.Flags().StringVar(&submitFlags.stage, "stage", "", "Override the document stage (final, proforma)")
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

func runSubmit(ctx context.Context, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := loadApp()
	if err != nil {
		return err
	}
	if err := a.cfg.EnsureDirs(); err != nil {
		return err
	}

	s := &submitter{cfg: a.cfg, log: a.log, dryRun: submitFlags.dryRun}
	if submitFlags.kind != "" {
		k, err := types.ParseDocumentKind(submitFlags.kind)
		if err != nil {
			return err
		}
		s.kind = &k
	}
	if submitFlags.stage != "" {
		st, err := types.ParseDocumentStage(submitFlags.stage)
		if err != nil {
			return err
		}
		s.stage = &st
	}

	store, err := archive.Open(ctx, a.cfg.Archive)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	s.fm = utils.NewFileManager(a.cfg, store)

	var files []string
	if submitFlags.file != "" {
		if !utils.FileExists(submitFlags.file) {
			return fmt.Errorf("invoice file %s does not exist", submitFlags.file)
		}
		files = []string{submitFlags.file}
	} else {
		files, err = s.fm.DiscoverInvoiceFiles()
		if err != nil {
			return err
		}
	}
	if len(files) == 0 {
		fmt.Fprintln(out, "No invoice files found in the input directory.")
		return nil
	}

	if !s.dryRun {
		if s.svc, err = a.service(); err != nil {
			return err
		}
	}

	fmt.Fprintf(out, "Found %d invoice file(s)\n", len(files))
	summary, entries := s.run(ctx, files, out)
	fmt.Fprintln(out)
	if err := utils.WriteSummary(out, summary); err != nil {
		return err
	}

	if _, err := utils.WriteSummaryLog(summary, a.cfg.LogDir); err != nil {
		a.log.WarnContext(ctx, "submit.summary.write_failed", slog.String("err", err.Error()))
	}
	if path, err := utils.WriteErrorLog(entries, a.cfg.LogDir); err != nil {
		a.log.WarnContext(ctx, "submit.error_log.write_failed", slog.String("err", err.Error()))
	} else if path != "" {
		fmt.Fprintf(out, "\nErrors have been logged to %s\n", path)
	}

	if summary.FailedFiles > 0 {
		return fmt.Errorf("%d of %d invoice file(s) failed", summary.FailedFiles, summary.TotalFiles)
	}
	return nil
}

// =============================================================================
// SUBMITTER
// =============================================================================

// submitter processes invoice files. svc is nil on dry runs.
type submitter struct {
	cfg    *config.Config
	log    *slog.Logger
	fm     *utils.FileManager
	svc    *invoice.Service
	dryRun bool

	// Overrides applied to every document.
	kind  *types.DocumentKind
	stage *types.DocumentStage
}

type fileOutcome struct {
	processed *utils.ProcessedFileInfo
	failed    *utils.FailedFileInfo
	entries   []utils.ErrorLogEntry
}

// run processes files concurrently and collects the outcomes.
func (s *submitter) run(ctx context.Context, files []string, out io.Writer) (utils.ProcessingSummary, []utils.ErrorLogEntry) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	limit := s.cfg.MaxConcurrency
	if limit <= 0 {
		limit = 1
	}
	sem := make(chan struct{}, limit)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		summary = utils.ProcessingSummary{StartTime: time.Now()}
		entries []utils.ErrorLogEntry
	)

	for _, file := range files {
		wg.Add(1)
		go func(path string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			var o fileOutcome
			if ctx.Err() != nil {
				o = skipped(path)
			} else {
				o = s.processFile(ctx, path)
			}

			mu.Lock()
			defer mu.Unlock()
			summary.Record(o.processed, o.failed)
			entries = append(entries, o.entries...)
			if o.processed != nil {
				fmt.Fprintf(out, "  ✓ %s -> %s %s %s\n", filepath.Base(path), o.processed.Kind, o.processed.Stage, o.processed.DocumentID)
			} else {
				fmt.Fprintf(out, "  ✗ %s: %s\n", filepath.Base(path), o.failed.ErrorMessage)
				if s.cfg.StopOnError && o.failed.ErrorType != "skipped" {
					cancel()
				}
			}
		}(file)
	}
	wg.Wait()

	summary.EndTime = time.Now()
	sort.Slice(summary.ProcessedFiles, func(i, j int) bool {
		return summary.ProcessedFiles[i].InputFile < summary.ProcessedFiles[j].InputFile
	})
	sort.Slice(summary.FailedFilesList, func(i, j int) bool {
		return summary.FailedFilesList[i].InputFile < summary.FailedFilesList[j].InputFile
	})
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].FileName < entries[j].FileName })
	return summary, entries
}

// processFile runs the pipeline for one invoice file.
func (s *submitter) processFile(ctx context.Context, path string) fileOutcome {
	start := time.Now()
	log := s.log.With(slog.String("file", path))

	doc, err := document.Load(path, s.cfg.Items)
	if err != nil {
		return failure(path, "load", err)
	}
	if s.kind != nil {
		doc.Kind = *s.kind
	}
	if s.stage != nil {
		doc.Stage = *s.stage
	}

	res, err := validation.Validate(doc.Attributes, doc.Kind)
	if err != nil {
		return failure(path, "validation", err)
	}
	if !res.IsValid {
		return s.validationFailure(ctx, path, res)
	}
	for _, w := range res.Errors {
		log.WarnContext(ctx, "submit.validation.warning", slog.String("path", w.Path), slog.String("message", w.Message))
	}

	processed := &utils.ProcessedFileInfo{
		InputFile: path,
		Kind:      doc.Kind,
		Stage:     doc.Stage,
		LineItems: countItems(doc.Attributes),
	}

	if s.dryRun {
		processed.ProcessTime = time.Since(start)
		return fileOutcome{processed: processed}
	}

	result, err := s.svc.Submit(ctx, doc.Attributes, doc.Kind, doc.Stage)
	if err != nil {
		return failure(path, "translation", err)
	}
	if !result.Success {
		return remoteFailure(path, result.Err)
	}
	if result.Envelope != nil {
		processed.DocumentID = result.Envelope.ID
	}

	archived, err := s.fm.ArchiveInputFile(ctx, path)
	if err != nil {
		log.WarnContext(ctx, "submit.archive.failed", slog.String("err", err.Error()))
	}
	processed.ArchivePath = archived
	processed.ProcessTime = time.Since(start)
	return fileOutcome{processed: processed}
}

// validationFailure writes the per-file validation report.
func (s *submitter) validationFailure(ctx context.Context, path string, res *validation.ValidationResult) fileOutcome {
	logPath := filepath.Join(s.fm.LogDir, filepath.Base(path)+".errors.log")
	if err := validation.WriteErrorLog(path, res.Errors, logPath); err != nil {
		s.log.WarnContext(ctx, "submit.validation.log_failed", slog.String("err", err.Error()))
	}

	o := fileOutcome{failed: &utils.FailedFileInfo{
		InputFile:    path,
		ErrorType:    "validation",
		ErrorMessage: fmt.Sprintf("%d validation error(s), see %s", res.ErrorCount, logPath),
	}}
	now := time.Now()
	for _, e := range res.Errors {
		if e.Severity != validation.SeverityError {
			continue
		}
		o.entries = append(o.entries, utils.ErrorLogEntry{
			Timestamp:    now,
			FileName:     path,
			ErrorType:    "validation",
			ErrorMessage: e.Message,
			Path:         e.Path,
		})
	}
	return o
}

func failure(path, errType string, err error) fileOutcome {
	return fileOutcome{
		failed: &utils.FailedFileInfo{InputFile: path, ErrorType: errType, ErrorMessage: err.Error()},
		entries: []utils.ErrorLogEntry{{
			Timestamp:    time.Now(),
			FileName:     path,
			ErrorType:    errType,
			ErrorMessage: err.Error(),
		}},
	}
}

func remoteFailure(path string, err error) fileOutcome {
	if err == nil {
		err = errors.New("request was not accepted")
	}
	var remote *envelope.RemoteFailure
	switch {
	case errors.As(err, &remote):
		o := failure(path, "remote", err)
		o.entries[0].RemoteCode = remote.Code
		return o
	case errors.Is(err, transport.ErrTransport):
		return failure(path, "transport", err)
	default:
		return failure(path, "response", err)
	}
}

func skipped(path string) fileOutcome {
	return fileOutcome{failed: &utils.FailedFileInfo{
		InputFile:    path,
		ErrorType:    "skipped",
		ErrorMessage: "not submitted after an earlier failure",
	}}
}

func countItems(attrs map[string]any) int {
	if items, ok := attrs["items"].([]any); ok {
		return len(items)
	}
	return 0
}
