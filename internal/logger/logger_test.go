package logger

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew(t *testing.T) {
	for _, env := range []string{"prod", "local", "dev", "docker"} {
		if _, err := New(Options{Env: env}); err != nil {
			t.Errorf("New(%q): %v", env, err)
		}
	}
	if _, err := New(Options{Env: "staging"}); err == nil {
		t.Error("expected error for unknown environment")
	}
	if _, err := New(Options{Env: "local", Level: "loud"}); err == nil {
		t.Error("expected error for invalid level")
	}
}

func TestNew_LevelOverride(t *testing.T) {
	l, err := New(Options{Env: "prod", Level: "warn", Component: "poictl"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l.Core().Enabled(zap.InfoLevel) {
		t.Error("info must be disabled at warn level")
	}
	if !l.Core().Enabled(zap.WarnLevel) {
		t.Error("warn must be enabled")
	}
}

func TestFromContext_DefaultsToNop(t *testing.T) {
	if FromContext(context.Background()) == nil {
		t.Fatal("expected a non-nil logger")
	}
}

func TestWith_AddsFields(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	ctx := ContextWithLogger(context.Background(), zap.New(core))

	ctx = With(ctx, zap.String("request_id", "r-1"))
	FromContext(ctx).Info("search done")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if got := entries[0].ContextMap()["request_id"]; got != "r-1" {
		t.Errorf("expected request_id field, got %v", got)
	}
}
