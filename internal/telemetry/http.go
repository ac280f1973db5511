package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	// TracerName is the instrumentation scope of HTTP server spans
	TracerName = "github.com/hustsync/hustsync/http"

	// HTTPMetricsMeterName is the instrumentation scope of HTTP instruments
	HTTPMetricsMeterName = TracerName

	unknownRoute = "unknown_route"
)

// served is what the API handlers produced for one request. The route is
// only known after chi has matched it, so it is read once next returns.
type served struct {
	status int
	route  string
}

func serve(next http.Handler, w http.ResponseWriter, r *http.Request) served {
	ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
	next.ServeHTTP(ww, r)

	res := served{status: ww.Status(), route: unknownRoute}
	if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
		res.route = rctx.RoutePattern()
	}
	return res
}

func passThrough(next http.Handler) http.Handler { return next }

// TracingMiddleware starts a server span per request, continuing any W3C
// trace context sent by the caller. A nil provider passes requests through.
func TracingMiddleware(provider trace.TracerProvider) func(http.Handler) http.Handler {
	if provider == nil {
		return passThrough
	}
	tracer := provider.Tracer(TracerName)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
			ctx, span := tracer.Start(ctx, r.Method+" "+r.URL.Path,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					semconv.HTTPRequestMethodKey.String(r.Method),
					semconv.URLPath(r.URL.Path),
					semconv.UserAgentOriginal(r.UserAgent()),
				),
			)
			defer span.End()

			res := serve(next, w, r.WithContext(ctx))

			span.SetName(r.Method + " " + res.route)
			span.SetAttributes(
				semconv.HTTPRouteKey.String(res.route),
				semconv.HTTPResponseStatusCode(res.status),
			)
			if res.status >= http.StatusBadRequest {
				span.SetStatus(codes.Error, http.StatusText(res.status))
				return
			}
			span.SetStatus(codes.Ok, "")
		})
	}
}

// HTTPMetrics counts and times manager API requests by route pattern
type HTTPMetrics struct {
	duration metric.Float64Histogram
	total    metric.Int64Counter
	inFlight metric.Int64UpDownCounter
}

// NewHTTPMetrics creates the HTTP instruments. A nil provider yields nil.
func NewHTTPMetrics(provider metric.MeterProvider) (*HTTPMetrics, error) {
	if provider == nil {
		return nil, nil
	}
	meter := provider.Meter(HTTPMetricsMeterName)

	var (
		m   HTTPMetrics
		err error
	)
	if m.duration, err = meter.Float64Histogram("hustsync_http_request_duration_seconds",
		metric.WithDescription("Duration of HTTP requests in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10),
	); err != nil {
		return nil, err
	}
	if m.total, err = meter.Int64Counter("hustsync_http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	); err != nil {
		return nil, err
	}
	if m.inFlight, err = meter.Int64UpDownCounter("hustsync_http_active_requests",
		metric.WithDescription("Number of in-flight HTTP requests"),
		metric.WithUnit("{request}"),
	); err != nil {
		return nil, err
	}
	return &m, nil
}

// Middleware records request metrics. A nil receiver passes requests through.
// Labels use the chi route pattern so that worker and mirror names in the
// path do not multiply series.
func (m *HTTPMetrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		start := time.Now()

		m.inFlight.Add(ctx, 1)
		res := serve(next, w, r)
		m.inFlight.Add(ctx, -1)

		attrs := metric.WithAttributes(
			attribute.String("method", r.Method),
			attribute.String("route", res.route),
			attribute.String("status_code", strconv.Itoa(res.status)),
		)
		m.duration.Record(ctx, time.Since(start).Seconds(), attrs)
		m.total.Add(ctx, 1, attrs)
	})
}

// MetricsMiddleware combines NewHTTPMetrics and Middleware
func MetricsMiddleware(provider metric.MeterProvider) (func(http.Handler) http.Handler, error) {
	metrics, err := NewHTTPMetrics(provider)
	if err != nil {
		return nil, err
	}
	return metrics.Middleware, nil
}
