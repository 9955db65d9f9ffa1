package log

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestEmit_NoopByDefault(t *testing.T) {
	SetLogger(nil)
	// Must not panic with no logger installed.
	Emit("component:hook:created", "a", "b")
}

func TestEmit_ReachesInstalledLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	SetLogger(zap.New(core))
	t.Cleanup(func() { SetLogger(nil) })

	Emit("component:watcher", "count", "bCounter")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected one entry, got %d", len(entries))
	}
	if entries[0].LoggerName != "component:watcher" {
		t.Errorf("expected channel name on the entry, got %q", entries[0].LoggerName)
	}
}

func TestChannel_Named(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	SetLogger(zap.New(core))
	t.Cleanup(func() { SetLogger(nil) })

	Channel("engine").Debugw("flush")
	if logs.Len() != 1 || logs.All()[0].LoggerName != "engine" {
		t.Error("Channel should return a logger named after the channel")
	}
}
