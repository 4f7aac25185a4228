package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestTraceLoggerAttachesTraceID(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	ctx := ContextWithTraceID(context.Background(), "trace-42")
	TraceLogger(ctx, logger).Info("turn_completed", slog.String("session_id", "s1"))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("unmarshal log line: %v", err)
	}
	if got := entry["trace_id"]; got != "trace-42" {
		t.Fatalf("trace_id = %v", got)
	}
	if got := entry["session_id"]; got != "s1" {
		t.Fatalf("session_id = %v", got)
	}
}

func TestTraceLoggerWithoutTraceReturnsLogger(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	if got := TraceLogger(context.Background(), logger); got != logger {
		t.Fatal("expected the original logger when no trace is set")
	}
}

func TestTraceLoggerNilLoggerIsSafe(t *testing.T) {
	TraceLogger(context.Background(), nil).Info("dropped")
}
