package logctx

import (
	"context"
	"log/slog"
)

// Handler adds the operation and request data carried by the context to
// every record before passing it on.
type Handler struct {
	slog.Handler
}

// New wraps h. A nil h is replaced by a handler that discards everything.
func New(h slog.Handler) Handler {
	if h == nil {
		h = slog.DiscardHandler
	}
	return Handler{Handler: h}
}

func (h Handler) Handle(ctx context.Context, r slog.Record) error {
	if od, ok := ctx.Value(operationDataKey{}).(*OperationData); ok {
		r.AddAttrs(slog.Group("op",
			slog.String("name", od.Operation),
			slog.String("kind", od.Kind),
			slog.String("stage", od.Stage),
			slog.String("id", od.DocumentID),
		))
	}

	if rd, ok := ctx.Value(requestDataKey{}).(*RequestData); ok {
		r.AddAttrs(slog.Group("req",
			slog.String("id", rd.RequestID),
			slog.String("method", rd.Method),
			slog.String("path", rd.Path),
		))
	}

	return h.Handler.Handle(ctx, r)
}

func (h Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return Handler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h Handler) WithGroup(name string) slog.Handler {
	return Handler{Handler: h.Handler.WithGroup(name)}
}

type operationDataKey struct{}

type OperationData struct {
	Operation  string
	Kind       string
	Stage      string
	DocumentID string
}

func WithOperationData(ctx context.Context, data *OperationData) context.Context {
	return context.WithValue(ctx, operationDataKey{}, data)
}

type requestDataKey struct{}

type RequestData struct {
	RequestID string
	Method    string
	Path      string
}

func WithRequestData(ctx context.Context, data *RequestData) context.Context {
	return context.WithValue(ctx, requestDataKey{}, data)
}
