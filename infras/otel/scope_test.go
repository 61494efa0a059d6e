package otel

import (
	"context"
	"errors"
	"testing"

	"studio/shared/failure"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func recordSpan(t *testing.T, fn func(scope Scope)) trace.ReadOnlySpan {
	t.Helper()

	recorder := tracetest.NewSpanRecorder()
	provider := trace.NewTracerProvider(trace.WithSpanProcessor(recorder))
	o := &otelImpl{TracerProvider: provider}

	_, scope := o.NewScope(context.Background(), "service", "service.Create")
	fn(scope)
	scope.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)

	return spans[0]
}

func attributeValue(span trace.ReadOnlySpan, key string) (attribute.Value, bool) {
	for _, kv := range span.Attributes() {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}

	return attribute.Value{}, false
}

func TestScope_TraceError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus codes.Code
		wantCode   int64
	}{
		{name: "conflict stays ok", err: failure.Conflict("slot taken"), wantStatus: codes.Unset, wantCode: 409},
		{name: "not found stays ok", err: failure.NotFound("room not found"), wantStatus: codes.Unset, wantCode: 404},
		{name: "storage failure marks span", err: errors.New("connection refused"), wantStatus: codes.Error, wantCode: 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			span := recordSpan(t, func(scope Scope) {
				scope.TraceIfError(nil)
				scope.TraceIfError(tt.err)
			})

			assert.Equal(t, tt.wantStatus, span.Status().Code)
			require.Len(t, span.Events(), 1)

			code, ok := attributeValue(span, attributeErrorCode)
			require.True(t, ok)
			assert.Equal(t, tt.wantCode, code.AsInt64())
		})
	}
}

func TestScope_SetAttributes(t *testing.T) {
	span := recordSpan(t, func(scope Scope) {
		scope.SetAttribute("booking.room_id", "room-a")
		scope.SetAttributes(map[string]any{
			"booking.minutes": 90,
			"booking.total":   97.5,
			"booking.paid":    false,
		})
		scope.AddEvent("booking created")
	})

	roomID, _ := attributeValue(span, "booking.room_id")
	minutes, _ := attributeValue(span, "booking.minutes")
	total, _ := attributeValue(span, "booking.total")
	paid, ok := attributeValue(span, "booking.paid")

	assert.Equal(t, "room-a", roomID.AsString())
	assert.Equal(t, int64(90), minutes.AsInt64())
	assert.InDelta(t, 97.5, total.AsFloat64(), 0.001)
	require.True(t, ok)
	assert.False(t, paid.AsBool())
	assert.Equal(t, "booking created", span.Events()[0].Name)
}
