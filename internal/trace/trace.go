// Package trace carries trace and span identifiers through ticks, OCR passes and
// control requests so that log lines from one unit of work can be correlated.
// IDs follow the W3C Trace Context sizes.
package trace

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"sort"
	"time"
)

// Propagation keys for HTTP headers and gRPC metadata.
const (
	TraceIDKey      = "x-trace-id"
	SpanIDKey       = "x-span-id"
	ParentSpanIDKey = "x-parent-span-id"
)

type ctxKey struct{}

// Context identifies one span within a trace.
type Context struct {
	TraceID      string
	SpanID       string
	ParentSpanID string
}

// New starts a fresh trace.
func New() Context {
	return Context{TraceID: newTraceID(), SpanID: newSpanID()}
}

// NewChild derives a span under parent.
func NewChild(parent Context) Context {
	return Context{
		TraceID:      parent.TraceID,
		SpanID:       newSpanID(),
		ParentSpanID: parent.SpanID,
	}
}

// FromContext returns the trace context stored in ctx, if any.
func FromContext(ctx context.Context) (Context, bool) {
	tc, ok := ctx.Value(ctxKey{}).(Context)
	return tc, ok
}

// WithContext stores tc in ctx.
func WithContext(ctx context.Context, tc Context) context.Context {
	return context.WithValue(ctx, ctxKey{}, tc)
}

// EnsureContext returns ctx unchanged when it already carries a trace, otherwise a child with a new one.
func EnsureContext(ctx context.Context) (context.Context, Context) {
	if tc, ok := FromContext(ctx); ok {
		return ctx, tc
	}
	tc := New()
	return WithContext(ctx, tc), tc
}

func newTraceID() string { return randomHex(16) }

func newSpanID() string { return randomHex(8) }

func randomHex(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// Span times one named operation. It is not safe for concurrent use.
type Span struct {
	Name      string
	Ctx       Context
	StartTime time.Time
	EndTime   time.Time
	Attrs     map[string]any
	Err       error
}

// StartSpan opens a span as a child of the trace in ctx, or as a new trace.
func StartSpan(ctx context.Context, name string) (context.Context, *Span) {
	tc := New()
	if parent, ok := FromContext(ctx); ok && parent.TraceID != "" {
		tc = NewChild(parent)
	}
	s := &Span{
		Name:      name,
		Ctx:       tc,
		StartTime: time.Now(),
		Attrs:     make(map[string]any),
	}
	return WithContext(ctx, tc), s
}

// SetAttr records an attribute that is emitted with the span.
func (s *Span) SetAttr(key string, val any) {
	s.Attrs[key] = val
}

// Fail marks the span as failed.
func (s *Span) Fail(err error) {
	s.Err = err
}

// End closes the span.
func (s *Span) End() {
	if s.EndTime.IsZero() {
		s.EndTime = time.Now()
	}
}

// EndAndLog closes the span and logs it at debug, or at warn when it failed.
func (s *Span) EndAndLog(ctx context.Context) {
	s.End()
	if s.Err != nil {
		Logger(ctx).Warn("span failed", "span", s, "error", s.Err)
		return
	}
	Logger(ctx).Debug("span", "span", s)
}

// Duration is zero until End is called.
func (s *Span) Duration() time.Duration {
	if s.EndTime.IsZero() {
		return 0
	}
	return s.EndTime.Sub(s.StartTime)
}

// LogValue implements slog.LogValuer. Attributes are emitted in key order.
func (s *Span) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("name", s.Name),
		slog.String("span_id", s.Ctx.SpanID),
		slog.Duration("duration", s.Duration()),
	}
	keys := make([]string, 0, len(s.Attrs))
	for k := range s.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		attrs = append(attrs, slog.Any(k, s.Attrs[k]))
	}
	return slog.GroupValue(attrs...)
}

// Logger returns the default logger annotated with the trace in ctx.
func Logger(ctx context.Context) *slog.Logger {
	tc, ok := FromContext(ctx)
	if !ok {
		return slog.Default()
	}
	args := []any{"trace_id", tc.TraceID, "span_id", tc.SpanID}
	if tc.ParentSpanID != "" {
		args = append(args, "parent_span_id", tc.ParentSpanID)
	}
	return slog.Default().With(args...)
}
