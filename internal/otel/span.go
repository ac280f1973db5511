// Package otel provides span helpers shared by the manager and the worker.
package otel

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys used on hustsync spans
const (
	AttrWorkerID    = attribute.Key("hustsync.worker.id")
	AttrMirrorName  = attribute.Key("hustsync.mirror.name")
	AttrSyncStatus  = attribute.Key("hustsync.sync.status")
	AttrCommand     = attribute.Key("hustsync.command")
	AttrResultCount = attribute.Key("result.count")
)

// StartSpan starts a new span if the tracer is non-nil, otherwise returns a no-op span.
func StartSpan(
	ctx context.Context,
	tracer trace.Tracer,
	name string,
	opts ...trace.SpanStartOption,
) (context.Context, trace.Span) {
	if tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return tracer.Start(ctx, name, opts...)
}

// RecordError records err on span and marks the span failed, unless err
// matches one of expected. Expected errors such as "not found" are part of
// normal operation and only get an event.
// The status description stays generic; details live in the span event.
func RecordError(span trace.Span, err error, expected ...error) {
	if err == nil || span == nil {
		return
	}
	span.RecordError(err)
	for _, e := range expected {
		if errors.Is(err, e) {
			return
		}
	}
	span.SetStatus(codes.Error, "operation failed")
}

// JobAttributes identifies a mirror job on a span. An empty mirror leaves
// only the worker attribute, as for worker-level commands.
func JobAttributes(workerID, mirror string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{AttrWorkerID.String(workerID)}
	if mirror != "" {
		attrs = append(attrs, AttrMirrorName.String(mirror))
	}
	return attrs
}
