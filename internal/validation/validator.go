// =============================================================================
// ifirma client - Invoice Validation
// =============================================================================
//
// This module checks an invoice attribute tree before anything is sent.
//
// VALIDATION STRATEGY:
//   1. Translation: the tree is translated with the schema variant of its
//      kind, collecting every problem instead of stopping at the first one
//      (unknown keys, unmapped lookup values, malformed dates or numbers).
//      These are errors: the invoice cannot be submitted.
//   2. Completeness: keys ifirma needs for a usable invoice (issue_date,
//      sale_date, customer, items) are checked for presence. Missing keys
//      are warnings: the remote side decides.
//
// =============================================================================

package validation

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ginjaninja78/ifirma-client/internal/converter"
	"github.com/ginjaninja78/ifirma-client/internal/invoice"
	"github.com/ginjaninja78/ifirma-client/internal/types"
)

// Severity levels.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// RecommendedKeys are the top-level keys whose absence is a warning.
var RecommendedKeys = []string{"issue_date", "sale_date", "customer", "items"}

// =============================================================================
// VALIDATION ERROR TYPES
// =============================================================================

// ValidationError represents a single validation problem.
type ValidationError struct {
	// Severity is SeverityError or SeverityWarning.
	Severity string

	// Path locates the attribute, e.g. "items[2].vat_rate".
	Path string

	// Rule names the check that failed.
	Rule string

	// Message is a human-readable explanation.
	Message string

	// Err is the underlying translation error, if any.
	Err error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s (%s)", strings.ToUpper(e.Severity), e.Path, e.Message, e.Rule)
}

// Unwrap returns the underlying translation error.
func (e *ValidationError) Unwrap() error { return e.Err }

// =============================================================================
// VALIDATION RESULT
// =============================================================================

// ValidationResult contains the results of validation.
type ValidationResult struct {
	// IsValid is true if there are no errors. Warnings do not count.
	IsValid bool

	// Errors contains all problems, translation errors first.
	Errors []*ValidationError

	// ErrorCount is the number of errors.
	ErrorCount int

	// WarningCount is the number of warnings.
	WarningCount int

	// Payload is the translated wire payload, partial when IsValid is false.
	Payload map[string]any
}

// =============================================================================
// VALIDATOR
// =============================================================================

// Validate checks attrs against the schema variant of kind.
func Validate(attrs map[string]any, kind types.DocumentKind) (*ValidationResult, error) {
	schema, err := invoice.SchemaFor(kind)
	if err != nil {
		return nil, err
	}

	payload, translationErrs := converter.TranslateAll(attrs, schema)

	result := &ValidationResult{Payload: payload}
	for _, terr := range translationErrs {
		result.add(fromTranslationError(terr))
	}
	for _, key := range RecommendedKeys {
		if _, ok := attrs[key]; !ok {
			result.add(&ValidationError{
				Severity: SeverityWarning,
				Path:     key,
				Rule:     "recommended",
				Message:  "attribute is not set",
			})
		}
	}
	if items, ok := attrs["items"].([]any); ok && len(items) == 0 {
		result.add(&ValidationError{
			Severity: SeverityWarning,
			Path:     "items",
			Rule:     "recommended",
			Message:  "invoice has no line items",
		})
	}

	result.IsValid = result.ErrorCount == 0
	return result, nil
}

func (r *ValidationResult) add(e *ValidationError) {
	r.Errors = append(r.Errors, e)
	if e.Severity == SeverityError {
		r.ErrorCount++
	} else {
		r.WarningCount++
	}
}

// Err joins the errors of r, ignoring warnings. It is nil for valid results.
func (r *ValidationResult) Err() error {
	if r.IsValid {
		return nil
	}
	errs := make([]error, 0, r.ErrorCount)
	for _, e := range r.Errors {
		if e.Severity == SeverityError {
			errs = append(errs, e)
		}
	}
	return errors.Join(errs...)
}

func fromTranslationError(err error) *ValidationError {
	ve := &ValidationError{Severity: SeverityError, Err: err, Message: err.Error()}

	var (
		mismatch  *converter.SchemaMismatchError
		unmapped  *converter.UnmappedValueError
		transform *converter.TransformError
	)
	switch {
	case errors.As(err, &mismatch):
		ve.Path, ve.Rule, ve.Message = mismatch.Path, "schema", mismatch.Reason
	case errors.As(err, &unmapped):
		ve.Path, ve.Rule = unmapped.Path, "lookup"
		ve.Message = fmt.Sprintf("value %v is not one of the %s values", unmapped.Value, unmapped.Lookup)
	case errors.As(err, &transform):
		ve.Path, ve.Rule, ve.Message = transform.Path, transform.Transformer, transform.Err.Error()
	}
	return ve
}

// =============================================================================
// REPORTING
// =============================================================================

// FormatErrors formats validation problems for display or logging.
func FormatErrors(errs []*ValidationError) string {
	if len(errs) == 0 {
		return "No validation errors."
	}

	var builder strings.Builder
	fmt.Fprintf(&builder, "Validation completed with %d problem(s):\n\n", len(errs))
	for i, err := range errs {
		fmt.Fprintf(&builder, "%d. %s\n", i+1, err.Error())
	}
	return builder.String()
}

// WriteErrorLog writes a report for source to filePath.
//
// PARAMETERS:
//   - source: The invoice file the problems belong to.
//   - errs: The problems to write.
//   - filePath: The path to the log file.
func WriteErrorLog(source string, errs []*ValidationError, filePath string) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create error log: %w", err)
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	fmt.Fprintf(w, "Source: %s\n", source)
	fmt.Fprintf(w, "Time:   %s\n\n", time.Now().Format(time.RFC3339))
	w.WriteString(FormatErrors(errs))

	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to write error log: %w", err)
	}
	return nil
}
