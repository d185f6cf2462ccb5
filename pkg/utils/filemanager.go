// =============================================================================
// ifirma client - File Manager Utility
// =============================================================================
//
// This module provides the file handling around invoice operations:
//   - Invoice file discovery in the input directory
//   - Input archival (moving submitted invoice files away)
//   - Output naming and writing of retrieved renderings
//   - Handing renderings and submitted files to the archive store
//   - Error log and summary generation
//
// ARCHIVAL STRATEGY:
//   - Submitted invoice files are moved to input_archive
//   - Renderings are written to the output directory and, when an archive
//     store is configured, also stored under "<kind>/<stage>/<name>"
//   - Failed files remain in their original location
//   - Error logs are created in the log directory
//
// =============================================================================

package utils

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ginjaninja78/ifirma-client/internal/archive"
	"github.com/ginjaninja78/ifirma-client/internal/config"
	"github.com/ginjaninja78/ifirma-client/internal/document"
	"github.com/ginjaninja78/ifirma-client/internal/types"
)

// =============================================================================
// FILE MANAGER
// =============================================================================

// FileManager handles file operations around invoice operations.
type FileManager struct {
	// InputDir is the directory scanned for invoice files.
	InputDir string

	// OutputDir is the directory where renderings are written.
	OutputDir string

	// InputArchiveDir is the directory for submitted invoice files.
	InputArchiveDir string

	// LogDir is the directory for error logs and summaries.
	LogDir string

	// NameFormat names rendering files. See GenerateOutputFileName.
	NameFormat string

	// UseTimestampSubdirs creates date-based subdirectories in the input
	// archive. Example: input_archive/2024/01/15/invoice.yaml
	UseTimestampSubdirs bool

	// Archive receives copies of renderings and submitted invoice files.
	// Nil disables archiving.
	Archive archive.Store
}

// NewFileManager creates a FileManager from cfg.
func NewFileManager(cfg *config.Config, store archive.Store) *FileManager {
	return &FileManager{
		InputDir:        cfg.InputDir,
		OutputDir:       cfg.OutputDir,
		InputArchiveDir: cfg.InputArchiveDir,
		LogDir:          cfg.LogDir,
		NameFormat:      cfg.OutputNameFormat,
		Archive:         store,
	}
}

// =============================================================================
// DIRECTORY MANAGEMENT
// =============================================================================

// EnsureDirectories creates all required directories if they don't exist.
func (fm *FileManager) EnsureDirectories() error {
	for _, dir := range []string{fm.InputDir, fm.OutputDir, fm.InputArchiveDir, fm.LogDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// =============================================================================
// FILE DISCOVERY
// =============================================================================

// DiscoverInvoiceFiles lists the invoice files directly inside InputDir,
// sorted by name. Line item files next to them are not returned.
func (fm *FileManager) DiscoverInvoiceFiles() ([]string, error) {
	entries, err := os.ReadDir(fm.InputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to scan input directory: %w", err)
	}

	var result []string
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		if document.IsDocument(entry.Name()) {
			result = append(result, filepath.Join(fm.InputDir, entry.Name()))
		}
	}
	sort.Strings(result)
	return result, nil
}

// =============================================================================
// FILE ARCHIVAL
// =============================================================================

// ArchiveInputFile moves a submitted invoice file to the input archive and,
// when an archive store is set, stores a copy under "input/<name>".
//
// PARAMETERS:
//   - ctx: Bounds the archive store call.
//   - filePath: The path to the file to archive.
//
// RETURNS:
//   - The path to the archived file.
//   - An error if archival fails.
func (fm *FileManager) ArchiveInputFile(ctx context.Context, filePath string) (string, error) {
	if fm.Archive != nil {
		data, err := os.ReadFile(filePath)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", filePath, err)
		}
		key := archive.Key("input", time.Now().Format("20060102_150405")+"_"+filepath.Base(filePath))
		if _, err := fm.Archive.Put(ctx, key, bytes.NewReader(data), archive.PutOptions{}); err != nil {
			return "", fmt.Errorf("failed to archive %s: %w", filePath, err)
		}
	}

	archivePath := fm.getArchivePath(fm.InputArchiveDir, filePath)
	if err := os.MkdirAll(filepath.Dir(archivePath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	if err := os.Rename(filePath, archivePath); err != nil {
		// Rename fails across devices; fall back to copy and delete.
		if err := copyFile(filePath, archivePath); err != nil {
			return "", fmt.Errorf("failed to copy file to archive: %w", err)
		}
		if err := os.Remove(filePath); err != nil {
			return "", fmt.Errorf("failed to remove original file: %w", err)
		}
	}
	return archivePath, nil
}

// getArchivePath constructs the archive path for a file.
func (fm *FileManager) getArchivePath(archiveDir, filePath string) string {
	fileName := filepath.Base(filePath)
	if fm.UseTimestampSubdirs {
		now := time.Now()
		return filepath.Join(archiveDir,
			fmt.Sprintf("%d", now.Year()),
			fmt.Sprintf("%02d", now.Month()),
			fmt.Sprintf("%02d", now.Day()),
			fileName)
	}
	return filepath.Join(archiveDir, fileName)
}

// =============================================================================
// OUTPUT FILES
// =============================================================================

// OutputParams fills the placeholders of an output name.
type OutputParams struct {
	ID    string
	Kind  types.DocumentKind
	Stage types.DocumentStage
	Repr  types.Representation
}

// OutputFile describes a written rendering.
type OutputFile struct {
	Path       string
	ArchiveKey string
	Size       int
}

// GenerateOutputFileName generates an output file name.
//
// PARAMETERS:
//   - format: The format string for the file name.
//             Placeholders:
//               {uuid}      - A random UUID
//               {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
//               {date}      - Current date (YYYYMMDD)
//               {id}        - Document id
//               {kind}      - Document kind
//               {stage}     - Document stage
//               {ext}       - Representation
//   - params: The document the rendering belongs to.
//
// RETURNS:
//   - The generated file name, always ending in ".<ext>".
//
// EXAMPLE:
//   format: "{kind}_{id}_{timestamp}.{ext}"
//   output: "domestic_1234_20240115_143022.pdf"
func GenerateOutputFileName(format string, params OutputParams) string {
	if format == "" {
		format = "{kind}_{id}_{timestamp}.{ext}"
	}
	now := time.Now()

	replacer := strings.NewReplacer(
		"{uuid}", uuid.New().String(),
		"{timestamp}", now.Format("20060102_150405"),
		"{date}", now.Format("20060102"),
		"{id}", sanitizeName(params.ID),
		"{kind}", params.Kind.String(),
		"{stage}", params.Stage.String(),
		"{ext}", string(params.Repr),
	)
	result := replacer.Replace(format)

	if ext := "." + string(params.Repr); params.Repr != "" && !strings.HasSuffix(strings.ToLower(result), ext) {
		result += ext
	}
	return filepath.Base(result)
}

// WriteOutput writes a rendering to OutputDir and stores it in the archive.
//
// PARAMETERS:
//   - ctx: Bounds the archive store call.
//   - params: The document the rendering belongs to.
//   - body: The rendering.
//   - contentType: Its declared content type.
//
// RETURNS:
//   - Where the rendering went.
//   - An error if it could not be written. A failed archive store after a
//     successful write is reported with the written OutputFile.
func (fm *FileManager) WriteOutput(ctx context.Context, params OutputParams, body []byte, contentType string) (OutputFile, error) {
	name := GenerateOutputFileName(fm.NameFormat, params)
	out := OutputFile{Path: filepath.Join(fm.OutputDir, name), Size: len(body)}

	if err := os.MkdirAll(fm.OutputDir, 0o755); err != nil {
		return OutputFile{}, fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(out.Path, body, 0o644); err != nil {
		return OutputFile{}, fmt.Errorf("failed to write output file: %w", err)
	}

	if fm.Archive == nil {
		return out, nil
	}
	key := archive.Key(params.Kind.String(), params.Stage.String(), name)
	_, err := fm.Archive.Put(ctx, key, bytes.NewReader(body), archive.PutOptions{
		ContentType: contentType,
		Metadata: map[string]string{
			"invoice-id":     params.ID,
			"representation": string(params.Repr),
		},
	})
	if err != nil {
		return out, fmt.Errorf("failed to archive output file: %w", err)
	}
	out.ArchiveKey = key
	return out, nil
}

// sanitizeName keeps a document id usable as part of a file name.
func sanitizeName(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', ' ':
			return '_'
		}
		return r
	}, s)
}

// =============================================================================
// ERROR LOG GENERATION
// =============================================================================

// ErrorLogEntry represents a single error log entry.
type ErrorLogEntry struct {
	Timestamp    time.Time
	FileName     string
	ErrorType    string
	ErrorMessage string
	// Path is the attribute path for translation errors.
	Path string
	// RemoteCode is the ifirma response code for remote failures.
	RemoteCode int
}

// WriteErrorLog writes error entries to a timestamped log file in dir.
//
// RETURNS:
//   - The path to the error log file, empty when there were no entries.
//   - An error if writing fails.
func WriteErrorLog(entries []ErrorLogEntry, dir string) (string, error) {
	if len(entries) == 0 {
		return "", nil
	}

	logPath := filepath.Join(dir, fmt.Sprintf("error_log_%s.txt", time.Now().Format("20060102_150405")))
	file, err := os.Create(logPath)
	if err != nil {
		return "", fmt.Errorf("failed to create error log: %w", err)
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	fmt.Fprintf(w, "ifirma client - Error Log\n"+
		"Generated: %s\n"+
		"Total Errors: %d\n"+
		"================================================================================\n\n",
		time.Now().Format("2006-01-02 15:04:05"), len(entries))

	for i, entry := range entries {
		fmt.Fprintf(w, "Error #%d\n"+
			"  Timestamp:   %s\n"+
			"  File:        %s\n"+
			"  Error Type:  %s\n"+
			"  Message:     %s\n",
			i+1,
			entry.Timestamp.Format("2006-01-02 15:04:05"),
			entry.FileName,
			entry.ErrorType,
			entry.ErrorMessage)
		if entry.Path != "" {
			fmt.Fprintf(w, "  Attribute:   %s\n", entry.Path)
		}
		if entry.RemoteCode != 0 {
			fmt.Fprintf(w, "  Remote Code: %d\n", entry.RemoteCode)
		}
		w.WriteString("\n")
	}
	w.WriteString("================================================================================\n" +
		"End of Error Log\n")

	if err := w.Flush(); err != nil {
		return "", fmt.Errorf("failed to flush error log: %w", err)
	}
	return logPath, nil
}

// =============================================================================
// PROCESSING SUMMARY
// =============================================================================

// ProcessingSummary contains summary information about a submit run.
type ProcessingSummary struct {
	StartTime        time.Time
	EndTime          time.Time
	TotalFiles       int
	SuccessfulFiles  int
	FailedFiles      int
	TotalLineItems   int
	ValidationErrors int
	ProcessedFiles   []ProcessedFileInfo
	FailedFilesList  []FailedFileInfo
}

// ProcessedFileInfo describes a submitted invoice file.
type ProcessedFileInfo struct {
	InputFile   string
	ArchivePath string
	Kind        types.DocumentKind
	Stage       types.DocumentStage
	// DocumentID is the identifier ifirma assigned, if it reported one.
	DocumentID  string
	LineItems   int
	ProcessTime time.Duration
}

// FailedFileInfo describes an invoice file that was not submitted.
type FailedFileInfo struct {
	InputFile    string
	ErrorMessage string
	ErrorType    string
}

// Record adds the outcome of one file to s.
func (s *ProcessingSummary) Record(processed *ProcessedFileInfo, failed *FailedFileInfo) {
	s.TotalFiles++
	if processed != nil {
		s.SuccessfulFiles++
		s.TotalLineItems += processed.LineItems
		s.ProcessedFiles = append(s.ProcessedFiles, *processed)
	}
	if failed != nil {
		s.FailedFiles++
		if failed.ErrorType == "validation" {
			s.ValidationErrors++
		}
		s.FailedFilesList = append(s.FailedFilesList, *failed)
	}
}

// WriteSummaryLog writes a processing summary to a file in dir.
//
// RETURNS:
//   - The path to the summary file.
//   - An error if writing fails.
func WriteSummaryLog(summary ProcessingSummary, dir string) (string, error) {
	summaryPath := filepath.Join(dir, fmt.Sprintf("processing_summary_%s.txt", time.Now().Format("20060102_150405")))
	file, err := os.Create(summaryPath)
	if err != nil {
		return "", fmt.Errorf("failed to create summary file: %w", err)
	}
	defer file.Close()

	if err := WriteSummary(file, summary); err != nil {
		return "", err
	}
	return summaryPath, nil
}

// WriteSummary renders summary to w.
func WriteSummary(out io.Writer, summary ProcessingSummary) error {
	w := bufio.NewWriter(out)
	fmt.Fprintf(w, "ifirma client - Processing Summary\n"+
		"================================================================================\n\n"+
		"Run Information:\n"+
		"  Start Time:        %s\n"+
		"  End Time:          %s\n"+
		"  Duration:          %s\n\n"+
		"Statistics:\n"+
		"  Total Files:       %d\n"+
		"  Successful:        %d\n"+
		"  Failed:            %d\n"+
		"  Total Line Items:  %d\n"+
		"  Validation Errors: %d\n\n",
		summary.StartTime.Format("2006-01-02 15:04:05"),
		summary.EndTime.Format("2006-01-02 15:04:05"),
		summary.EndTime.Sub(summary.StartTime).String(),
		summary.TotalFiles,
		summary.SuccessfulFiles,
		summary.FailedFiles,
		summary.TotalLineItems,
		summary.ValidationErrors)

	if len(summary.ProcessedFiles) > 0 {
		w.WriteString("Successful Files:\n")
		w.WriteString("--------------------------------------------------------------------------------\n")
		for _, pf := range summary.ProcessedFiles {
			fmt.Fprintf(w, "  Input:        %s\n", pf.InputFile)
			fmt.Fprintf(w, "  Document:     %s %s %s\n", pf.Kind, pf.Stage, pf.DocumentID)
			fmt.Fprintf(w, "  Line Items:   %d\n", pf.LineItems)
			fmt.Fprintf(w, "  Process Time: %s\n\n", pf.ProcessTime.String())
		}
	}

	if len(summary.FailedFilesList) > 0 {
		w.WriteString("Failed Files:\n")
		w.WriteString("--------------------------------------------------------------------------------\n")
		for _, ff := range summary.FailedFilesList {
			fmt.Fprintf(w, "  File:  %s\n", ff.InputFile)
			fmt.Fprintf(w, "  Type:  %s\n", ff.ErrorType)
			fmt.Fprintf(w, "  Error: %s\n\n", ff.ErrorMessage)
		}
	}

	w.WriteString("================================================================================\n" +
		"End of Summary\n")

	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to flush summary: %w", err)
	}
	return nil
}

// =============================================================================
// ARCHIVE RETENTION
// =============================================================================

// PruneArchive removes archive entries under prefix older than maxAge.
//
// RETURNS:
//   - The number of entries removed.
//   - An error if listing or deleting fails.
func PruneArchive(ctx context.Context, store archive.Store, prefix string, maxAge time.Duration) (int, error) {
	if store == nil {
		return 0, errors.New("archive is disabled")
	}
	entries, err := store.List(ctx, prefix)
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, e := range entries {
		if !e.LastModified.Before(cutoff) {
			continue
		}
		ok, err := store.Delete(ctx, e.Key)
		if err != nil {
			return removed, fmt.Errorf("failed to prune archive: %w", err)
		}
		if ok {
			removed++
		}
	}
	return removed, nil
}

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

// copyFile copies a file from src to dst.
func copyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	destFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer destFile.Close()

	if _, err := io.Copy(destFile, sourceFile); err != nil {
		return err
	}
	return destFile.Sync()
}

// FileExists checks if a file exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}
