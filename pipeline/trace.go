/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package pipeline

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
)

const tracerName = "chainguard.docfixer.pipeline"

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, oteltrace.Span) {
	tr := otel.Tracer(tracerName, oteltrace.WithInstrumentationVersion("1.0.0"))
	return tr.Start(ctx, name, oteltrace.WithAttributes(attrs...))
}

func endSpan(span oteltrace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// step runs fn under its own span and, when d is positive, its own deadline.
func step[T any](ctx context.Context, name string, d time.Duration, fn func(context.Context) (T, error)) (T, error) {
	ctx, span := startSpan(ctx, name)
	if d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}
	v, err := fn(ctx)
	endSpan(span, err)
	return v, err
}
