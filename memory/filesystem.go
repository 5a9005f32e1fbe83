package memory

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/agentrelay/agentrelay/conversation"
)

// threadHeader is the first line of a thread file: the thread's own metadata
// without its messages.
type threadHeader struct {
	ThreadID string            `json:"thread_id"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// FileSystemRepository persists each thread as one self-describing file under
// a base directory: the first line holds the thread header, every following
// line one message, in arrival order.
//
// All writes go through a write-to-temp-then-rename swap, so a concurrent
// reader either sees the previous complete record or the new complete record,
// never a truncated one. A per-thread mutex serializes appends on the same
// thread id while leaving other threads untouched.
type FileSystemRepository struct {
	dir   string
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewFileSystemRepository creates (if needed) the base directory and returns a
// repository over it. Pointing a fresh instance at an existing directory
// recovers all previously stored threads.
func NewFileSystemRepository(dir string) (*FileSystemRepository, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create repository dir: %w", err)
	}
	return &FileSystemRepository{dir: dir, locks: make(map[string]*sync.Mutex)}, nil
}

// validateThreadID rejects ids that cannot name a record file inside the base
// directory. An id with path separators would otherwise escape it.
func validateThreadID(threadID string) error {
	if threadID == "" {
		return &InvalidThreadIDError{ThreadID: threadID, Reason: "must be non-empty"}
	}
	if strings.ContainsAny(threadID, `/\`) || threadID == "." || threadID == ".." {
		return &InvalidThreadIDError{ThreadID: threadID, Reason: "must not contain path elements"}
	}
	return nil
}

func (r *FileSystemRepository) threadPath(threadID string) string {
	return filepath.Join(r.dir, threadID+".json")
}

// lockFor returns the append lock for a thread id, creating it on first use.
func (r *FileSystemRepository) lockFor(threadID string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.locks[threadID]
	if !ok {
		l = &sync.Mutex{}
		r.locks[threadID] = l
	}
	return l
}

// writeAtomic swaps the thread file to the given content via temp + rename.
func (r *FileSystemRepository) writeAtomic(threadID string, content []byte) error {
	tmp, err := os.CreateTemp(r.dir, threadID+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp record: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp record: %w", err)
	}
	if err := os.Rename(tmpName, r.threadPath(threadID)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("swap record: %w", err)
	}
	return nil
}

func encodeThread(thread *conversation.Thread) ([]byte, error) {
	var buf bytes.Buffer
	header, err := json.Marshal(threadHeader{ThreadID: thread.ID, Metadata: thread.Metadata})
	if err != nil {
		return nil, err
	}
	buf.Write(header)
	buf.WriteByte('\n')
	for _, m := range thread.Messages {
		line, err := json.Marshal(m)
		if err != nil {
			return nil, err
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// CreateThread writes a new thread record. Fails with *DuplicateThreadError if
// the backing file already exists; the existing record is left untouched.
func (r *FileSystemRepository) CreateThread(thread *conversation.Thread) error {
	if err := validateThreadID(thread.ID); err != nil {
		return err
	}
	lock := r.lockFor(thread.ID)
	lock.Lock()
	defer lock.Unlock()

	if _, err := os.Stat(r.threadPath(thread.ID)); err == nil {
		return &DuplicateThreadError{ThreadID: thread.ID}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat record: %w", err)
	}

	content, err := encodeThread(thread)
	if err != nil {
		return fmt.Errorf("encode thread %s: %w", thread.ID, err)
	}
	return r.writeAtomic(thread.ID, content)
}

// GetThread reads back the full record. A record whose header or any message
// line fails to decode yields *CorruptRecordError; partial content is never
// returned.
func (r *FileSystemRepository) GetThread(threadID string) (*conversation.Thread, error) {
	if err := validateThreadID(threadID); err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(r.threadPath(threadID))
	if os.IsNotExist(err) {
		return nil, &ThreadNotFoundError{ThreadID: threadID}
	}
	if err != nil {
		return nil, fmt.Errorf("read record: %w", err)
	}

	lines := strings.Split(string(raw), "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) == "" {
		return nil, &CorruptRecordError{ThreadID: threadID, Err: fmt.Errorf("missing header line")}
	}
	var header threadHeader
	if err := json.Unmarshal([]byte(lines[0]), &header); err != nil {
		return nil, &CorruptRecordError{ThreadID: threadID, Err: fmt.Errorf("decode header: %w", err)}
	}

	thread := &conversation.Thread{ID: header.ThreadID, Metadata: header.Metadata}
	for i, line := range lines[1:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		var m conversation.Message
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			return nil, &CorruptRecordError{ThreadID: threadID, Err: fmt.Errorf("decode message line %d: %w", i+2, err)}
		}
		thread.AddMessage(m)
	}
	return thread, nil
}

// AppendMessage appends one message line to an existing record. The existing
// bytes are preserved verbatim, so reading back reproduces exactly what was
// appended.
func (r *FileSystemRepository) AppendMessage(threadID string, message conversation.Message) error {
	if err := validateThreadID(threadID); err != nil {
		return err
	}
	lock := r.lockFor(threadID)
	lock.Lock()
	defer lock.Unlock()

	raw, err := os.ReadFile(r.threadPath(threadID))
	if os.IsNotExist(err) {
		return &ThreadNotFoundError{ThreadID: threadID}
	}
	if err != nil {
		return fmt.Errorf("read record: %w", err)
	}

	line, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	if len(raw) > 0 && raw[len(raw)-1] != '\n' {
		raw = append(raw, '\n')
	}
	raw = append(raw, line...)
	raw = append(raw, '\n')
	return r.writeAtomic(threadID, raw)
}

// ListThreads returns the ids of all thread files in the base directory.
func (r *FileSystemRepository) ListThreads() ([]string, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}
	return ids, nil
}

// DeleteThread removes the thread file. Repeated deletes on an absent id
// always fail with *ThreadNotFoundError.
func (r *FileSystemRepository) DeleteThread(threadID string) error {
	if err := validateThreadID(threadID); err != nil {
		return err
	}
	lock := r.lockFor(threadID)
	lock.Lock()
	defer lock.Unlock()

	err := os.Remove(r.threadPath(threadID))
	if os.IsNotExist(err) {
		return &ThreadNotFoundError{ThreadID: threadID}
	}
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}

	// Drop the append lock with the record; a late waiter on the old mutex
	// fails with ThreadNotFoundError anyway.
	r.mu.Lock()
	delete(r.locks, threadID)
	r.mu.Unlock()
	return nil
}
