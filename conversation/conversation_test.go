package conversation

import (
	"strings"
	"testing"
)

func TestNewMessage_Defaults(t *testing.T) {
	m := NewMessage("t1", "user", "hello")
	if m.ID == "" {
		t.Fatalf("expected generated message id")
	}
	if m.ThreadID != "t1" || m.Sender != "user" || m.Content != "hello" {
		t.Fatalf("unexpected message: %#v", m)
	}
	if m.Timestamp.IsZero() {
		t.Fatalf("expected timestamp to be set")
	}

	m2 := NewMessage("t1", "user", "hello", func(o *MessageOptions) {
		o.ID = "fixed"
		o.Metadata = map[string]string{"k": "v"}
	})
	if m2.ID != "fixed" || m2.Metadata["k"] != "v" {
		t.Fatalf("options not applied: %#v", m2)
	}
}

func TestMessage_CloneIsolation(t *testing.T) {
	m := NewMessage("t1", "user", "hello", func(o *MessageOptions) {
		o.Metadata = map[string]string{"k": "v"}
	})
	c := m.Clone()
	c.Metadata["k"] = "changed"
	if m.Metadata["k"] != "v" {
		t.Fatalf("clone shares metadata map")
	}
}

func TestThread_LastN(t *testing.T) {
	th := NewThread("t1")
	for _, content := range []string{"a", "b", "c"} {
		th.AddMessage(NewMessage("t1", "user", content))
	}
	if got := th.LastN(0); got != nil {
		t.Fatalf("expected nil for n=0, got %#v", got)
	}
	got := th.LastN(2)
	if len(got) != 2 || got[0].Content != "b" || got[1].Content != "c" {
		t.Fatalf("unexpected tail: %#v", got)
	}
	if got := th.LastN(10); len(got) != 3 {
		t.Fatalf("expected all messages when n exceeds length, got %d", len(got))
	}
}

func TestThread_Summary(t *testing.T) {
	th := NewThread("t1")
	if th.Summary() != "" {
		t.Fatalf("expected empty summary for empty thread")
	}
	th.AddMessage(NewMessage("t1", "user", "hi"))
	th.AddMessage(NewMessage("t1", "assistant", "hello"))
	s := th.Summary()
	if !strings.HasPrefix(s, "Summary of thread t1:") {
		t.Fatalf("unexpected summary header: %q", s)
	}
	if !strings.Contains(s, "user said: hi") || !strings.Contains(s, "assistant said: hello") {
		t.Fatalf("summary missing lines: %q", s)
	}
}

func TestThread_CloneIsolation(t *testing.T) {
	th := NewThread("t1", func(o *ThreadOptions) {
		o.Metadata = map[string]string{"topic": "go"}
	})
	th.AddMessage(NewMessage("t1", "user", "hi"))

	c := th.Clone()
	c.Metadata["topic"] = "changed"
	c.AddMessage(NewMessage("t1", "user", "more"))
	c.Messages[0].Content = "mutated"

	if th.Metadata["topic"] != "go" {
		t.Fatalf("clone shares metadata")
	}
	if len(th.Messages) != 1 || th.Messages[0].Content != "hi" {
		t.Fatalf("clone shares message slice: %#v", th.Messages)
	}
}
