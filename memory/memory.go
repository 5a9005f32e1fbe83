package memory

import (
	"fmt"

	"github.com/agentrelay/agentrelay/conversation"
)

// Repository stores conversation threads and their ordered messages.
//
// Contract shared by every backend:
//   - CreateThread rejects ids that already exist (*DuplicateThreadError);
//     it never silently overwrites messages.
//   - GetThread returns a fully materialized snapshot (metadata plus all
//     messages in arrival order) or *ThreadNotFoundError – never a partially
//     loaded thread. Durable backends surface *CorruptRecordError instead of
//     returning truncated history.
//   - AppendMessage fails with *ThreadNotFoundError for unknown threads and
//     never creates one as a side effect. Concurrent appends to the same
//     thread are serialized per thread id, so no message is lost and order
//     follows caller order.
//   - ListThreads returns the known ids; ordering is only stable within a
//     single snapshot.
//   - DeleteThread removes the thread and all messages; deleting an absent id
//     always fails with *ThreadNotFoundError, never silently succeeds.
//
// Implementations must be safe for concurrent use.
type Repository interface {
	CreateThread(thread *conversation.Thread) error
	GetThread(threadID string) (*conversation.Thread, error)
	AppendMessage(threadID string, message conversation.Message) error
	ListThreads() ([]string, error)
	DeleteThread(threadID string) error
}

// ThreadNotFoundError reports an operation against a thread id the repository
// does not know.
type ThreadNotFoundError struct {
	ThreadID string
}

func (e *ThreadNotFoundError) Error() string {
	return fmt.Sprintf("thread %q not found", e.ThreadID)
}

// InvalidThreadIDError reports a thread id a backend cannot safely map to a
// record name.
type InvalidThreadIDError struct {
	ThreadID string
	Reason   string
}

func (e *InvalidThreadIDError) Error() string {
	return fmt.Sprintf("invalid thread id %q: %s", e.ThreadID, e.Reason)
}

// DuplicateThreadError reports a CreateThread call for an id that already
// exists. The original thread's messages remain intact.
type DuplicateThreadError struct {
	ThreadID string
}

func (e *DuplicateThreadError) Error() string {
	return fmt.Sprintf("thread %q already exists", e.ThreadID)
}

// CorruptRecordError reports a durable thread record that could not be fully
// decoded. The partial content is never returned to the caller.
type CorruptRecordError struct {
	ThreadID string
	Err      error
}

func (e *CorruptRecordError) Error() string {
	return fmt.Sprintf("corrupt record for thread %q: %v", e.ThreadID, e.Err)
}

// Unwrap exposes the underlying decode failure.
func (e *CorruptRecordError) Unwrap() error { return e.Err }
