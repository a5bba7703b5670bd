package types

import (
	"context"
	"testing"
)

// mockLogger implements the Logger interface for testing purposes.
type mockLogger struct {
	messages []string
}

func (m *mockLogger) Info(msg string, args ...any)  { m.messages = append(m.messages, "info:"+msg) }
func (m *mockLogger) Error(msg string, args ...any) { m.messages = append(m.messages, "error:"+msg) }
func (m *mockLogger) Warn(msg string, args ...any)  { m.messages = append(m.messages, "warn:"+msg) }
func (m *mockLogger) With(args ...any) Logger        { return m }

func TestWithRequestID_GetRequestID(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-abc")
	if got := GetRequestID(ctx); got != "req-abc" {
		t.Errorf("GetRequestID() = %q, want %q", got, "req-abc")
	}

	if got := GetRequestID(context.Background()); got != "" {
		t.Errorf("GetRequestID() on empty context = %q, want empty", got)
	}
}

func TestWithLogger_LoggerFromContext(t *testing.T) {
	if l := LoggerFromContext(context.Background()); l != nil {
		t.Errorf("expected nil logger on empty context, got %v", l)
	}

	ml := &mockLogger{}
	ctx := WithLogger(context.Background(), ml)

	got := LoggerFromContext(ctx)
	if got == nil {
		t.Fatal("expected logger, got nil")
	}
	got.Info("hello")
	if len(ml.messages) != 1 || ml.messages[0] != "info:hello" {
		t.Errorf("messages = %v, want [info:hello]", ml.messages)
	}
}

func TestContextKeysDoNotCollide(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-1")
	ctx = WithLogger(ctx, NopLogger{})

	if GetRequestID(ctx) != "req-1" {
		t.Error("request id lost after storing logger")
	}
	if LoggerFromContext(ctx) == nil {
		t.Error("logger lost")
	}
	// A plain string key with the same text must not shadow ours.
	ctx = context.WithValue(ctx, "request_id", "other") //nolint:staticcheck
	if GetRequestID(ctx) != "req-1" {
		t.Error("untyped key shadowed typed request id key")
	}
}
