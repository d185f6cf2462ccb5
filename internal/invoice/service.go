// =============================================================================
// ifirma client - Invoice Operation Service
// =============================================================================
//
// This module orchestrates one invoice operation end to end:
//
//   Idle -> SchemaSelected -> Translated -> Sent -> EnvelopeParsed -> Done|Failed
//
// OPERATIONS:
//   - Submit   : translate attributes with the kind's schema variant and
//                POST them to the kind/stage create path
//   - Retrieve : fetch the JSON status envelope, and only when it reports
//                success fetch the requested rendering at the sibling path
//   - List     : fetch the bounded listing of a kind
//
// No state is kept between calls and nothing is retried.
//
// =============================================================================

package invoice

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ginjaninja78/ifirma-client/internal/converter"
	"github.com/ginjaninja78/ifirma-client/internal/envelope"
	"github.com/ginjaninja78/ifirma-client/internal/logctx"
	"github.com/ginjaninja78/ifirma-client/internal/transport"
	"github.com/ginjaninja78/ifirma-client/internal/types"
)

// Transport sends one request and returns the raw response.
type Transport interface {
	Send(ctx context.Context, method, path string, body any) (*transport.Response, error)
}

// Result is the outcome of one operation.
type Result struct {
	// Success is true when the operation completed and the remote side
	// accepted it.
	Success bool

	// Envelope is the parsed response envelope, nil for raw renderings.
	Envelope *envelope.Envelope

	// Body is the raw response body.
	Body []byte

	// ContentType is the declared type of Body.
	ContentType string

	// Err is the transport error or remote failure behind an unsuccessful
	// result.
	Err error
}

// Service is safe for concurrent use.
type Service struct {
	transport Transport
	log       *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger used for state transitions.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// NewService builds a Service on top of any Transport.
func NewService(t Transport, opts ...Option) *Service {
	s := &Service{
		transport: t,
		log:       slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// New builds a Service backed by the HTTP transport. Missing or malformed
// credentials are reported as *types.ConfigurationError.
func New(cfg transport.Config, opts ...Option) (*Service, error) {
	s := NewService(nil, opts...)
	if cfg.Logger == nil {
		cfg.Logger = s.log
	}
	client, err := transport.New(cfg)
	if err != nil {
		return nil, err
	}
	s.transport = client
	return s, nil
}

// Schema returns a freshly owned copy of the schema used for kind.
func (s *Service) Schema(kind types.DocumentKind) (converter.Schema, error) {
	return SchemaFor(kind)
}

// BuildPayload translates attrs into the wire payload for kind without
// sending anything.
func BuildPayload(attrs map[string]any, kind types.DocumentKind) (map[string]any, error) {
	schema, err := SchemaFor(kind)
	if err != nil {
		return nil, err
	}
	payload, err := converter.Translate(attrs, schema)
	if err != nil {
		return nil, fmt.Errorf("failed to translate invoice attributes: %w", err)
	}
	return payload, nil
}

// =============================================================================
// SUBMIT
// =============================================================================

// Submit creates a document. The error return is reserved for problems
// found before anything is sent (unknown keys, unmapped values, an invalid
// kind or stage). Transport and remote failures are reported through
// Result.Err.
func (s *Service) Submit(ctx context.Context, attrs map[string]any, kind types.DocumentKind, stage types.DocumentStage) (Result, error) {
	ctx = logctx.WithOperationData(ctx, &logctx.OperationData{
		Operation: "submit",
		Kind:      kind.String(),
		Stage:     stage.String(),
	})
	s.state(ctx, "submit", "idle")

	endpoint, err := EndpointFor(kind, stage)
	if err != nil {
		s.state(ctx, "submit", "failed")
		return Result{}, err
	}

	schema, err := SchemaFor(kind)
	if err != nil {
		s.state(ctx, "submit", "failed")
		return Result{}, err
	}
	s.state(ctx, "submit", "schema_selected")

	payload, err := converter.Translate(attrs, schema)
	if err != nil {
		s.state(ctx, "submit", "failed")
		return Result{}, fmt.Errorf("failed to translate invoice attributes: %w", err)
	}
	s.state(ctx, "submit", "translated")

	resp, err := s.transport.Send(ctx, http.MethodPost, endpoint.CreatePath(), payload)
	if err != nil {
		return s.fail(ctx, "submit", resp, err), nil
	}
	s.state(ctx, "submit", "sent")

	return s.envelopeResult(ctx, "submit", resp), nil
}

// =============================================================================
// RETRIEVE
// =============================================================================

// Retrieve fetches document id in repr. The status envelope is fetched
// first; the rendering is only requested when the status reports success.
// A failed status is returned unchanged.
func (s *Service) Retrieve(ctx context.Context, id string, kind types.DocumentKind, stage types.DocumentStage, repr types.Representation) Result {
	id = strings.TrimSpace(id)
	ctx = logctx.WithOperationData(ctx, &logctx.OperationData{
		Operation:  "retrieve",
		Kind:       kind.String(),
		Stage:      stage.String(),
		DocumentID: id,
	})
	s.state(ctx, "retrieve", "idle")

	if id == "" || strings.ContainsAny(id, "/?#") {
		return s.fail(ctx, "retrieve", nil, fmt.Errorf("invalid document id %q", id))
	}
	repr, err := types.ParseRepresentation(string(repr))
	if err != nil {
		return s.fail(ctx, "retrieve", nil, err)
	}
	endpoint, err := EndpointFor(kind, stage)
	if err != nil {
		return s.fail(ctx, "retrieve", nil, err)
	}

	resp, err := s.transport.Send(ctx, http.MethodGet, endpoint.StatusPath(id), nil)
	if err != nil {
		return s.fail(ctx, "retrieve", resp, err)
	}
	s.state(ctx, "retrieve", "sent")

	status := s.envelopeResult(ctx, "retrieve.status", resp)
	if !status.Success {
		s.state(ctx, "retrieve", "failed")
		return status
	}

	resp, err = s.transport.Send(ctx, http.MethodGet, endpoint.RepresentationPath(id, repr), nil)
	if err != nil {
		return s.fail(ctx, "retrieve", resp, err)
	}

	result := Result{
		Success:     true,
		Body:        resp.Body,
		ContentType: resp.ContentType,
	}
	if resp.IsJSON() {
		if env, err := envelope.Parse(resp.Body); err == nil {
			result.Envelope = env
			result.Success = env.Success()
			result.Err = env.Err()
		}
	}

	if result.Success {
		s.state(ctx, "retrieve", "done")
	} else {
		s.state(ctx, "retrieve", "failed")
	}
	return result
}

// =============================================================================
// LIST
// =============================================================================

// List fetches the most recent documents of kind, ListPageSize at a time.
func (s *Service) List(ctx context.Context, kind types.DocumentKind) Result {
	ctx = logctx.WithOperationData(ctx, &logctx.OperationData{
		Operation: "list",
		Kind:      kind.String(),
		Stage:     types.StageFinal.String(),
	})
	s.state(ctx, "list", "idle")

	endpoint, err := EndpointFor(kind, types.StageFinal)
	if err != nil {
		return s.fail(ctx, "list", nil, err)
	}

	resp, err := s.transport.Send(ctx, http.MethodGet, endpoint.ListPath(), nil)
	if err != nil {
		return s.fail(ctx, "list", resp, err)
	}
	s.state(ctx, "list", "sent")

	return s.envelopeResult(ctx, "list", resp)
}

// =============================================================================
// HELPERS
// =============================================================================

// envelopeResult parses resp as a response envelope.
func (s *Service) envelopeResult(ctx context.Context, op string, resp *transport.Response) Result {
	env, err := envelope.Parse(resp.Body)
	if err != nil {
		return s.fail(ctx, op, resp, fmt.Errorf("failed to parse response envelope: %w", err))
	}
	s.state(ctx, op, "envelope_parsed")

	result := Result{
		Success:     env.Success(),
		Envelope:    env,
		Body:        resp.Body,
		ContentType: resp.ContentType,
		Err:         env.Err(),
	}
	if result.Success {
		s.state(ctx, op, "done")
	} else {
		s.log.DebugContext(ctx, "invoice."+op+".failed",
			slog.Int("code", env.Code),
			slog.String("message", env.Message),
		)
	}
	return result
}

func (s *Service) fail(ctx context.Context, op string, resp *transport.Response, err error) Result {
	s.log.DebugContext(ctx, "invoice."+op+".failed", slog.String("err", err.Error()))
	result := Result{Err: err}
	if resp != nil {
		result.Body = resp.Body
		result.ContentType = resp.ContentType
	}
	return result
}

func (s *Service) state(ctx context.Context, op, state string) {
	s.log.DebugContext(ctx, "invoice."+op+"."+state)
}
