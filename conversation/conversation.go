// Package conversation defines the immutable value types shared by every
// storage backend and orchestrator: a Message represents one conversational
// turn, a Thread an ordered, append-only sequence of messages. The types carry
// JSON tags because the durable repositories persist them verbatim; reading a
// record back must reproduce the exact ordered message sequence.
package conversation

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Message is a single conversational turn. Treat it as immutable once it has
// been appended to a thread; repositories hand out copies, never shared state.
type Message struct {
	ID        string            `json:"message_id"`
	ThreadID  string            `json:"thread_id"`
	Sender    string            `json:"sender"`
	Content   string            `json:"content"`
	Timestamp time.Time         `json:"timestamp"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// MessageOptions configures optional Message fields.
type MessageOptions struct {
	// ID overrides the generated message id. Leave empty to get a UUID.
	ID string
	// Metadata is an open key/value mapping attached to the message.
	Metadata map[string]string
}

// NewMessage constructs a message bound to a thread. An id is generated when
// none is supplied; the timestamp is always taken at construction (UTC).
func NewMessage(threadID, sender, content string, optFns ...func(o *MessageOptions)) Message {
	opts := MessageOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.ID == "" {
		opts.ID = uuid.NewString()
	}
	return Message{
		ID:        opts.ID,
		ThreadID:  threadID,
		Sender:    sender,
		Content:   content,
		Timestamp: time.Now().UTC(),
		Metadata:  opts.Metadata,
	}
}

// Clone returns a deep copy of the message (metadata map included).
func (m Message) Clone() Message {
	c := m
	if m.Metadata != nil {
		c.Metadata = make(map[string]string, len(m.Metadata))
		for k, v := range m.Metadata {
			c.Metadata[k] = v
		}
	}
	return c
}

// Thread is an ordered conversation. Messages are append-only: arrival order
// is preserved and entries are never reordered or removed individually. The
// invariant every repository upholds is that each contained message has
// Message.ThreadID == Thread.ID.
//
// A Thread returned by a repository is a read snapshot; mutate conversations
// only through Repository.AppendMessage.
type Thread struct {
	ID       string            `json:"thread_id"`
	Metadata map[string]string `json:"metadata,omitempty"`
	Messages []Message         `json:"messages,omitempty"`
}

// ThreadOptions configures optional Thread fields.
type ThreadOptions struct {
	Metadata map[string]string
}

// NewThread constructs an empty thread with the caller-supplied id.
func NewThread(id string, optFns ...func(o *ThreadOptions)) *Thread {
	opts := ThreadOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Thread{ID: id, Metadata: opts.Metadata}
}

// AddMessage appends a message to the thread. Intended for repository
// implementations and construction of fixtures; callers holding a snapshot
// must go through the repository instead.
func (t *Thread) AddMessage(m Message) { t.Messages = append(t.Messages, m) }

// LastN returns up to n trailing messages in arrival order. n <= 0 yields nil.
func (t *Thread) LastN(n int) []Message {
	if n <= 0 || len(t.Messages) == 0 {
		return nil
	}
	if n > len(t.Messages) {
		n = len(t.Messages)
	}
	out := make([]Message, n)
	copy(out, t.Messages[len(t.Messages)-n:])
	return out
}

// Summary renders a naive line-per-message digest of the conversation. Memory
// backed agents use it to seed model context; replace with model-generated
// summaries where conversations grow long.
func (t *Thread) Summary() string {
	if len(t.Messages) == 0 {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Summary of thread %s:\n", t.ID)
	for i, m := range t.Messages {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s said: %s", m.Sender, m.Content)
	}
	return b.String()
}

// Clone returns a deep copy of the thread safe for independent mutation.
func (t *Thread) Clone() *Thread {
	c := &Thread{ID: t.ID}
	if t.Metadata != nil {
		c.Metadata = make(map[string]string, len(t.Metadata))
		for k, v := range t.Metadata {
			c.Metadata[k] = v
		}
	}
	if t.Messages != nil {
		c.Messages = make([]Message, 0, len(t.Messages))
		for _, m := range t.Messages {
			c.Messages = append(c.Messages, m.Clone())
		}
	}
	return c
}
