package otelhelper

import (
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrorEvent is the span event recorded for failed journey operations.
const ErrorEvent = "journey.error"

// SetError marks span as failed. The innermost wrapped error's type is recorded under
// ErrorTypeKey so storage and validation failures can be told apart.
func SetError(span trace.Span, err error, attrs ...attribute.KeyValue) {
	attrs = append(attrs, attribute.String(ErrorTypeKey, rootErrorType(err)))

	span.RecordError(err, trace.WithAttributes(attrs...))
	span.SetStatus(codes.Error, err.Error())
	span.AddEvent(ErrorEvent, trace.WithAttributes(attrs...))
}

func rootErrorType(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return fmt.Sprintf("%T", err)
		}

		err = next
	}
}
