package middleware_test

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/jpl-au/relay"
	"github.com/jpl-au/relay/middleware"
)

type recordedSpan struct {
	noop.Span
	mu     sync.Mutex
	name   string
	kind   trace.SpanKind
	attrs  map[attribute.Key]attribute.Value
	status codes.Code
	errs   []error
	ended  bool
}

func (s *recordedSpan) SetName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.name = name
}

func (s *recordedSpan) SetAttributes(kv ...attribute.KeyValue) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range kv {
		s.attrs[a.Key] = a.Value
	}
}

func (s *recordedSpan) SetStatus(code codes.Code, _ string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = code
}

func (s *recordedSpan) RecordError(err error, _ ...trace.EventOption) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs = append(s.errs, err)
}

func (s *recordedSpan) End(...trace.SpanEndOption) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ended = true
}

type recordingTracer struct {
	noop.Tracer
	mu    sync.Mutex
	spans []*recordedSpan
}

func (tr *recordingTracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	cfg := trace.NewSpanStartConfig(opts...)
	span := &recordedSpan{name: name, kind: cfg.SpanKind(), attrs: map[attribute.Key]attribute.Value{}}
	span.SetAttributes(cfg.Attributes()...)
	tr.mu.Lock()
	tr.spans = append(tr.spans, span)
	tr.mu.Unlock()
	return trace.ContextWithSpan(ctx, span), span
}

type recordingProvider struct {
	noop.TracerProvider
	tracer *recordingTracer
}

func (p recordingProvider) Tracer(string, ...trace.TracerOption) trace.Tracer {
	return p.tracer
}

func newTracedRouter(t *testing.T, opts ...middleware.TracingOption) (*relay.Router, *recordingTracer) {
	t.Helper()
	tracer := &recordingTracer{}
	rt, _ := newRouter(t)
	opts = append([]middleware.TracingOption{middleware.WithTracerProvider(recordingProvider{tracer: tracer})}, opts...)
	rt.OnAll(middleware.Tracing(opts...))
	return rt, tracer
}

func TestTracing_Success(t *testing.T) {
	rt, tracer := newTracedRouter(t)
	var inner trace.Span
	rt.Get("/orders/:id", func(ctx *relay.Context, next relay.Next) error {
		inner = trace.SpanFromContext(ctx.Request.Context())
		return ctx.Send.Plain(http.StatusOK, "order")
	})

	get(rt, "/orders/5?x=1")

	require.Len(t, tracer.spans, 1)
	span := tracer.spans[0]
	assert.Same(t, span, inner, "downstream actions see the span")
	assert.Equal(t, "GET /orders/:id", span.name)
	assert.Equal(t, trace.SpanKindServer, span.kind)
	assert.Equal(t, "GET", span.attrs["http.method"].AsString())
	assert.Equal(t, "/orders/5?x=1", span.attrs["http.target"].AsString())
	assert.Equal(t, "/orders/:id", span.attrs["http.route"].AsString())
	assert.Equal(t, int64(200), span.attrs["http.status_code"].AsInt64())
	assert.Equal(t, codes.Ok, span.status)
	assert.True(t, span.ended)
}

func TestTracing_ErrorsAndServerStatuses(t *testing.T) {
	rt, tracer := newTracedRouter(t)
	rt.Get("/err", func(ctx *relay.Context, next relay.Next) error {
		return errors.New("failed")
	})
	rt.Get("/503", func(ctx *relay.Context, next relay.Next) error {
		return ctx.Send.Empty(http.StatusServiceUnavailable)
	})

	get(rt, "/err")
	get(rt, "/503")
	get(rt, "/none")

	require.Len(t, tracer.spans, 3)
	assert.Equal(t, codes.Error, tracer.spans[0].status)
	require.Len(t, tracer.spans[0].errs, 1)
	assert.EqualError(t, tracer.spans[0].errs[0], "failed")

	assert.Equal(t, codes.Error, tracer.spans[1].status)
	assert.Empty(t, tracer.spans[1].errs)

	assert.Equal(t, "HTTP GET", tracer.spans[2].name, "unmatched requests keep the generic name")
	assert.Equal(t, int64(404), tracer.spans[2].attrs["http.status_code"].AsInt64())
}

func TestTracing_FilterAndExtractor(t *testing.T) {
	rt, tracer := newTracedRouter(t,
		middleware.WithTracerName("test"),
		middleware.WithTraceFilter(func(ctx *relay.Context) bool {
			return ctx.URL.Path != "/healthz"
		}),
		middleware.WithAttributeExtractor(func(ctx *relay.Context) []attribute.KeyValue {
			return []attribute.KeyValue{attribute.String("tenant", ctx.Request.Header.Get("X-Tenant"))}
		}),
	)
	rt.Any("*", func(ctx *relay.Context, next relay.Next) error {
		return ctx.Send.Empty(http.StatusOK)
	})

	get(rt, "/healthz")
	require.Empty(t, tracer.spans)

	get(rt, "/work")
	require.Len(t, tracer.spans, 1)
	assert.Equal(t, "", tracer.spans[0].attrs["tenant"].AsString())
	assert.Equal(t, "GET *", tracer.spans[0].name)
}
