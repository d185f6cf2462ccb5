// =============================================================================
// ifirma client - Shared Types
// =============================================================================
//
// This package contains shared types used across multiple modules to avoid
// import cycles. Types defined here are used by:
//   - invoice
//   - transport
//   - document
//   - cmd
//
// =============================================================================

package types

import (
	"errors"
	"fmt"
	"strings"
)

//go:generate stringer -type=DocumentKind,DocumentStage -linecomment -output=types_string.go

// =============================================================================
// DOCUMENT SELECTORS
// =============================================================================

// DocumentKind selects the payment-reporting convention of an invoice.
// It decides the schema variant and, together with DocumentStage, the
// wire endpoint.
type DocumentKind int

const (
	KindDomestic       DocumentKind = iota // domestic
	KindCashOnDelivery                     // cash-on-delivery
)

// DocumentStage selects between a final invoice and a proforma.
// It only affects the wire endpoint, never the schema.
type DocumentStage int

const (
	StageFinal    DocumentStage = iota // final
	StageProforma                      // proforma
)

// ParseDocumentKind accepts the names used in invoice files and CLI flags.
func ParseDocumentKind(s string) (DocumentKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "domestic", "kraj":
		return KindDomestic, nil
	case "cash-on-delivery", "cod", "wysylka":
		return KindCashOnDelivery, nil
	default:
		return 0, fmt.Errorf("unknown document kind %q", s)
	}
}

// ParseDocumentStage accepts the names used in invoice files and CLI flags.
func ParseDocumentStage(s string) (DocumentStage, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "final":
		return StageFinal, nil
	case "proforma":
		return StageProforma, nil
	default:
		return 0, fmt.Errorf("unknown document stage %q", s)
	}
}

// Valid reports whether k is one of the declared kinds.
func (k DocumentKind) Valid() bool {
	return k == KindDomestic || k == KindCashOnDelivery
}

// Valid reports whether s is one of the declared stages.
func (s DocumentStage) Valid() bool {
	return s == StageFinal || s == StageProforma
}

// =============================================================================
// REPRESENTATIONS
// =============================================================================

// Representation is the file extension of a document rendering served at
// the sibling path of a status envelope. "json" is the status path itself
// and is not a rendering.
type Representation string

const (
	RepresentationPDF Representation = "pdf"
	RepresentationXML Representation = "xml"
)

// DefaultRepresentation is used when the caller does not pick one.
const DefaultRepresentation = RepresentationPDF

// ParseRepresentation normalizes a representation name. An empty string
// selects DefaultRepresentation.
func ParseRepresentation(s string) (Representation, error) {
	r := Representation(strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")))
	switch r {
	case "":
		return DefaultRepresentation, nil
	case RepresentationPDF, RepresentationXML:
		return r, nil
	default:
		return "", fmt.Errorf("unsupported representation %q", s)
	}
}

// =============================================================================
// CONFIGURATION ERRORS
// =============================================================================

// ErrConfiguration matches every *ConfigurationError.
var ErrConfiguration = errors.New("configuration error")

// ConfigurationError reports a missing or malformed construction parameter.
// It is fatal and never retried.
type ConfigurationError struct {
	// Field is the configuration key at fault (e.g. "username").
	Field string

	// Reason is a short human-readable explanation.
	Reason string
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

// Is makes errors.Is(err, ErrConfiguration) hold.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}
