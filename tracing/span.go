package tracing

import (
	"context"
	"net/http"

	"go.opencensus.io/trace"

	"github.com/ozontech/seq-registry/consts"
)

type debugKey struct{}

// StartSpan starts a child span and propagates the debug mark of the request.
func StartSpan(ctx context.Context, name string, o ...trace.StartOption) (context.Context, *trace.Span) {
	ctx, span := trace.StartSpan(ctx, name, o...)
	if IsDebug(ctx) {
		span.AddAttributes(trace.BoolAttribute(consts.JaegerDebugKey, true))
	}
	return ctx, span
}

// HTTPSpan starts the root span of a request. Requests carrying the debug
// header are always sampled.
func HTTPSpan(r *http.Request, name string) (context.Context, *trace.Span) {
	if r.Header.Get(consts.DebugHeader) == "" {
		return trace.StartSpan(r.Context(), name, trace.WithSampler(trace.ProbabilitySampler(defaultProbability)))
	}

	ctx := context.WithValue(r.Context(), debugKey{}, true)
	ctx, span := trace.StartSpan(ctx, name, trace.WithSampler(trace.AlwaysSample()))
	span.AddAttributes(trace.BoolAttribute(consts.JaegerDebugKey, true))
	return ctx, span
}

func IsDebug(ctx context.Context) bool {
	v, _ := ctx.Value(debugKey{}).(bool)
	return v
}

// SetError marks the span as failed. A nil err is a no-op.
func SetError(span *trace.Span, code int32, err error) {
	if err == nil {
		return
	}
	span.SetStatus(trace.Status{Code: code, Message: err.Error()})
}
