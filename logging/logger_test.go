package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

// Interface compliance (compile-time assertions)
var (
	_ Logger = (*SlogAdapter)(nil)
	_ Logger = (*RelayLogger)(nil)
	_ Logger = NoOpLogger{}
)

func newBufferedLogger(t *testing.T) (*RelayLogger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	lg := NewLogger(&LoggerConfig{
		Level:  LogLevelDebug,
		Format: "json",
		Output: &buf,
	})
	return lg, &buf
}

func decodeRecord(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	line := strings.TrimSpace(buf.String())
	var rec map[string]any
	if err := json.Unmarshal([]byte(line), &rec); err != nil {
		t.Fatalf("decode log record %q: %v", line, err)
	}
	return rec
}

func TestRelayLogger_KeyValueArgsBecomeAttrs(t *testing.T) {
	lg, buf := newBufferedLogger(t)

	lg.Error("orchestrator.persist.failed", "thread_id", "t1", "sender", "user")

	rec := decodeRecord(t, buf)
	if rec["msg"] != "orchestrator.persist.failed" {
		t.Fatalf("message mangled: %q", rec["msg"])
	}
	if rec["thread_id"] != "t1" {
		t.Fatalf("thread_id attribute lost: %#v", rec)
	}
	if rec["sender"] != "user" {
		t.Fatalf("sender attribute lost: %#v", rec)
	}
}

func TestRelayLogger_WithThreadContext(t *testing.T) {
	lg, buf := newBufferedLogger(t)

	lg.WithComponent("orchestrator").WithThread("t1", "turn-1").Info("turn completed", "agent", "Echo")

	rec := decodeRecord(t, buf)
	if rec["component"] != "orchestrator" || rec["thread_id"] != "t1" || rec["turn_id"] != "turn-1" {
		t.Fatalf("contextual fields lost: %#v", rec)
	}
	if rec["agent"] != "Echo" {
		t.Fatalf("call-site attribute lost: %#v", rec)
	}
}

func TestRelayLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	lg := NewLogger(&LoggerConfig{Level: LogLevelWarn, Format: "json", Output: &buf})

	lg.Debug("hidden")
	lg.Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("records below the configured level were emitted: %s", buf.String())
	}

	lg.Warn("visible")
	if buf.Len() == 0 {
		t.Fatalf("warn record was filtered out")
	}
}

func TestRelayLogger_OddArgsKeptUnderBadKey(t *testing.T) {
	lg, buf := newBufferedLogger(t)

	lg.Info("dangling", "orphan")

	rec := decodeRecord(t, buf)
	if rec["!BADKEY"] != "orphan" {
		t.Fatalf("dangling arg dropped: %#v", rec)
	}
}
