package memory

import (
	"sync"

	"github.com/agentrelay/agentrelay/conversation"
)

// threadRecord pairs a stored thread with its own mutex so appends on one
// thread never contend with appends on another.
type threadRecord struct {
	mu     sync.Mutex
	thread *conversation.Thread
}

// InMemoryRepository is a volatile Repository keeping threads in a process
// local map. Contents are lost on process exit; it is the default backend and
// the test double of choice. Returned threads are deep copies, so callers can
// never mutate stored history directly.
type InMemoryRepository struct {
	mu      sync.RWMutex
	threads map[string]*threadRecord
}

// NewInMemoryRepository constructs an empty in-memory repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{threads: make(map[string]*threadRecord)}
}

// CreateThread stores a clone of the given thread. Fails with
// *DuplicateThreadError if the id is already present.
func (r *InMemoryRepository) CreateThread(thread *conversation.Thread) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.threads[thread.ID]; ok {
		return &DuplicateThreadError{ThreadID: thread.ID}
	}
	r.threads[thread.ID] = &threadRecord{thread: thread.Clone()}
	return nil
}

// GetThread returns a deep copy of the stored thread.
func (r *InMemoryRepository) GetThread(threadID string) (*conversation.Thread, error) {
	r.mu.RLock()
	rec, ok := r.threads[threadID]
	r.mu.RUnlock()
	if !ok {
		return nil, &ThreadNotFoundError{ThreadID: threadID}
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.thread.Clone(), nil
}

// AppendMessage appends to an existing thread. Appends on the same thread id
// are serialized by the record mutex; appends on different threads proceed
// independently.
func (r *InMemoryRepository) AppendMessage(threadID string, message conversation.Message) error {
	r.mu.RLock()
	rec, ok := r.threads[threadID]
	r.mu.RUnlock()
	if !ok {
		return &ThreadNotFoundError{ThreadID: threadID}
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.thread.AddMessage(message.Clone())
	return nil
}

// ListThreads returns the ids of all stored threads.
func (r *InMemoryRepository) ListThreads() ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.threads))
	for id := range r.threads {
		ids = append(ids, id)
	}
	return ids, nil
}

// DeleteThread removes a thread and its messages.
func (r *InMemoryRepository) DeleteThread(threadID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.threads[threadID]; !ok {
		return &ThreadNotFoundError{ThreadID: threadID}
	}
	delete(r.threads, threadID)
	return nil
}
