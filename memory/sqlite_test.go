package memory

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/agentrelay/agentrelay/conversation"
)

func newSQLiteRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "threads.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSQLiteRepository_RoundTrip(t *testing.T) {
	repo := newSQLiteRepo(t)

	th := conversation.NewThread("t1", func(o *conversation.ThreadOptions) {
		o.Metadata = map[string]string{"topic": "go"}
	})
	th.AddMessage(conversation.NewMessage("t1", "user", "seed"))
	if err := repo.CreateThread(th); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	msg := conversation.NewMessage("t1", "assistant", "hello", func(o *conversation.MessageOptions) {
		o.Metadata = map[string]string{"k": "v"}
	})
	if err := repo.AppendMessage("t1", msg); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	got, err := repo.GetThread("t1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Metadata["topic"] != "go" {
		t.Fatalf("thread metadata lost: %#v", got.Metadata)
	}
	if len(got.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(got.Messages))
	}
	if got.Messages[0].Content != "seed" || got.Messages[1].Content != "hello" {
		t.Fatalf("order broken: %#v", got.Messages)
	}
	if got.Messages[1].ID != msg.ID || got.Messages[1].Metadata["k"] != "v" {
		t.Fatalf("appended message not preserved: %#v", got.Messages[1])
	}
	if got.Messages[1].Timestamp.IsZero() {
		t.Fatalf("timestamp lost")
	}
}

func TestSQLiteRepository_AppendOrder(t *testing.T) {
	repo := newSQLiteRepo(t)
	_ = repo.CreateThread(conversation.NewThread("t1"))
	for i := 0; i < 10; i++ {
		if err := repo.AppendMessage("t1", conversation.NewMessage("t1", "user", fmt.Sprintf("m%d", i))); err != nil {
			t.Fatalf("append failed: %v", err)
		}
	}
	th, _ := repo.GetThread("t1")
	for i, m := range th.Messages {
		if m.Content != fmt.Sprintf("m%d", i) {
			t.Fatalf("order broken at %d: %q", i, m.Content)
		}
	}
}

func TestSQLiteRepository_ConcurrentAppends(t *testing.T) {
	repo := newSQLiteRepo(t)
	_ = repo.CreateThread(conversation.NewThread("t1"))

	const n = 50
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- repo.AppendMessage("t1", conversation.NewMessage("t1", "user", fmt.Sprintf("m%d", i)))
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent append failed: %v", err)
		}
	}

	th, err := repo.GetThread("t1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if len(th.Messages) != n {
		t.Fatalf("messages lost under concurrency: got %d, want %d", len(th.Messages), n)
	}
}

func TestSQLiteRepository_Errors(t *testing.T) {
	repo := newSQLiteRepo(t)
	_ = repo.CreateThread(conversation.NewThread("t1"))

	var dup *DuplicateThreadError
	if err := repo.CreateThread(conversation.NewThread("t1")); !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateThreadError, got %v", err)
	}

	var notFound *ThreadNotFoundError
	if _, err := repo.GetThread("ghost"); !errors.As(err, &notFound) {
		t.Fatalf("expected ThreadNotFoundError from get, got %v", err)
	}
	if err := repo.AppendMessage("ghost", conversation.NewMessage("ghost", "user", "x")); !errors.As(err, &notFound) {
		t.Fatalf("expected ThreadNotFoundError from append, got %v", err)
	}
	if err := repo.DeleteThread("ghost"); !errors.As(err, &notFound) {
		t.Fatalf("expected ThreadNotFoundError from delete, got %v", err)
	}
}

func TestSQLiteRepository_DeleteCascades(t *testing.T) {
	repo := newSQLiteRepo(t)
	_ = repo.CreateThread(conversation.NewThread("t1"))
	_ = repo.AppendMessage("t1", conversation.NewMessage("t1", "user", "hi"))

	if err := repo.DeleteThread("t1"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	// re-creating the id starts from an empty message history
	if err := repo.CreateThread(conversation.NewThread("t1")); err != nil {
		t.Fatalf("recreate failed: %v", err)
	}
	th, _ := repo.GetThread("t1")
	if len(th.Messages) != 0 {
		t.Fatalf("messages survived cascade: %#v", th.Messages)
	}
}
