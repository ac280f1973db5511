package otel

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func recordingTracer(t *testing.T) (trace.Tracer, *tracetest.InMemoryExporter) {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return tp.Tracer("hustsync-test"), exporter
}

func attrValue(attrs []attribute.KeyValue, key attribute.Key) (string, bool) {
	for _, kv := range attrs {
		if kv.Key == key {
			return kv.Value.Emit(), true
		}
	}
	return "", false
}

func TestStartSpan(t *testing.T) {
	t.Parallel()

	t.Run("nil tracer keeps the parent span", func(t *testing.T) {
		t.Parallel()
		tracer, exporter := recordingTracer(t)
		parentCtx, parent := tracer.Start(context.Background(), "parent")

		ctx, span := StartSpan(parentCtx, nil, "Manager.ListJobs")
		assert.Equal(t, parentCtx, ctx)
		assert.Equal(t, parent.SpanContext(), span.SpanContext())
		parent.End()
		assert.Len(t, exporter.GetSpans(), 1)
	})

	t.Run("nil tracer without parent", func(t *testing.T) {
		t.Parallel()
		_, span := StartSpan(context.Background(), nil, "Manager.ListJobs")
		assert.False(t, span.SpanContext().IsValid())
		assert.NotPanics(t, func() { span.End() })
	})

	t.Run("records name and job attributes", func(t *testing.T) {
		t.Parallel()
		tracer, exporter := recordingTracer(t)

		_, span := StartSpan(context.Background(), tracer, "Manager.UpdateJob",
			trace.WithAttributes(JobAttributes("w1", "elvish")...))
		span.End()

		spans := exporter.GetSpans()
		require.Len(t, spans, 1)
		assert.Equal(t, "Manager.UpdateJob", spans[0].Name)
		mirror, ok := attrValue(spans[0].Attributes, AttrMirrorName)
		require.True(t, ok)
		assert.Equal(t, "elvish", mirror)
		worker, ok := attrValue(spans[0].Attributes, AttrWorkerID)
		require.True(t, ok)
		assert.Equal(t, "w1", worker)
	})
}

func TestJobAttributes(t *testing.T) {
	t.Parallel()

	assert.Len(t, JobAttributes("w1", "archlinux"), 2)

	attrs := JobAttributes("w1", "")
	require.Len(t, attrs, 1)
	assert.Equal(t, AttrWorkerID, attrs[0].Key)
}

func TestRecordError(t *testing.T) {
	t.Parallel()

	errNotFound := errors.New("worker not found")

	tests := []struct {
		name       string
		err        error
		expected   []error
		wantCode   codes.Code
		wantEvents int
	}{
		{name: "nil error", err: nil, wantCode: codes.Unset},
		{
			name:       "unexpected error fails the span",
			err:        errors.New("bucket jobs not found"),
			wantCode:   codes.Error,
			wantEvents: 1,
		},
		{
			name:       "expected error only adds an event",
			err:        fmt.Errorf("lookup w9: %w", errNotFound),
			expected:   []error{errNotFound},
			wantCode:   codes.Unset,
			wantEvents: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tracer, exporter := recordingTracer(t)
			_, span := tracer.Start(context.Background(), "Manager.GetWorker")

			RecordError(span, tt.err, tt.expected...)
			span.End()

			spans := exporter.GetSpans()
			require.Len(t, spans, 1)
			assert.Equal(t, tt.wantCode, spans[0].Status.Code)
			require.Len(t, spans[0].Events, tt.wantEvents)
			if tt.wantEvents > 0 {
				assert.Equal(t, "exception", spans[0].Events[0].Name)
			}
			if tt.wantCode == codes.Error {
				assert.Equal(t, "operation failed", spans[0].Status.Description)
			}
		})
	}
}

func TestRecordErrorNilSpan(t *testing.T) {
	t.Parallel()
	assert.NotPanics(t, func() { RecordError(nil, errors.New("boom")) })
}
