package memory

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/agentrelay/agentrelay/conversation"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteRepository is a durable Repository backed by an embedded SQLite
// database. Threads and messages live in two tables; the message sequence
// number assigned inside the append transaction preserves arrival order.
//
// SQLite takes a single writer per database, so the pool is pinned to one
// connection and write transactions on the same thread id are additionally
// serialized by a per-thread mutex. Without both, concurrent appends collide
// on the database write lock and fail instead of queueing.
type SQLiteRepository struct {
	db    *sql.DB
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewSQLiteRepository opens (or creates) the database at dsn and runs the
// schema migrations. Use ":memory:" for a throwaway instance.
func NewSQLiteRepository(dsn string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One pooled connection: transactions queue on the connection instead of
	// racing for the database write lock and failing with SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	repo := &SQLiteRepository{db: db, locks: make(map[string]*sync.Mutex)}
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return repo, nil
}

func (r *SQLiteRepository) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS threads (
			thread_id TEXT PRIMARY KEY,
			metadata TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			thread_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			message_id TEXT NOT NULL,
			sender TEXT NOT NULL,
			content TEXT NOT NULL,
			timestamp TEXT NOT NULL,
			metadata TEXT,
			PRIMARY KEY (thread_id, seq),
			FOREIGN KEY (thread_id) REFERENCES threads(thread_id) ON DELETE CASCADE
		)`,
	}
	for _, m := range migrations {
		if _, err := r.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// Close closes the underlying database handle.
func (r *SQLiteRepository) Close() error { return r.db.Close() }

// lockFor returns the write lock for a thread id, creating it on first use.
func (r *SQLiteRepository) lockFor(threadID string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.locks[threadID]
	if !ok {
		l = &sync.Mutex{}
		r.locks[threadID] = l
	}
	return l
}

func marshalMetadata(md map[string]string) (sql.NullString, error) {
	if len(md) == 0 {
		return sql.NullString{}, nil
	}
	raw, err := json.Marshal(md)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(raw), Valid: true}, nil
}

// CreateThread inserts the thread row plus any seed messages in one
// transaction. An existing id yields *DuplicateThreadError.
func (r *SQLiteRepository) CreateThread(thread *conversation.Thread) error {
	lock := r.lockFor(thread.ID)
	lock.Lock()
	defer lock.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRow(`SELECT COUNT(1) FROM threads WHERE thread_id = ?`, thread.ID).Scan(&exists); err != nil {
		return fmt.Errorf("check thread: %w", err)
	}
	if exists > 0 {
		return &DuplicateThreadError{ThreadID: thread.ID}
	}

	md, err := marshalMetadata(thread.Metadata)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	if _, err := tx.Exec(`INSERT INTO threads (thread_id, metadata) VALUES (?, ?)`, thread.ID, md); err != nil {
		return fmt.Errorf("insert thread: %w", err)
	}
	for i, m := range thread.Messages {
		if err := insertMessage(tx, thread.ID, i+1, m); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func insertMessage(tx *sql.Tx, threadID string, seq int, m conversation.Message) error {
	md, err := marshalMetadata(m.Metadata)
	if err != nil {
		return fmt.Errorf("encode message metadata: %w", err)
	}
	_, err = tx.Exec(
		`INSERT INTO messages (thread_id, seq, message_id, sender, content, timestamp, metadata)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		threadID, seq, m.ID, m.Sender, m.Content, m.Timestamp.UTC().Format(time.RFC3339Nano), md,
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// GetThread materializes the full thread, messages ordered by their append
// sequence. Undecodable stored metadata or timestamps surface as
// *CorruptRecordError.
func (r *SQLiteRepository) GetThread(threadID string) (*conversation.Thread, error) {
	var md sql.NullString
	err := r.db.QueryRow(`SELECT metadata FROM threads WHERE thread_id = ?`, threadID).Scan(&md)
	if err == sql.ErrNoRows {
		return nil, &ThreadNotFoundError{ThreadID: threadID}
	}
	if err != nil {
		return nil, fmt.Errorf("query thread: %w", err)
	}

	thread := &conversation.Thread{ID: threadID}
	if md.Valid {
		if err := json.Unmarshal([]byte(md.String), &thread.Metadata); err != nil {
			return nil, &CorruptRecordError{ThreadID: threadID, Err: fmt.Errorf("decode thread metadata: %w", err)}
		}
	}

	rows, err := r.db.Query(
		`SELECT message_id, sender, content, timestamp, metadata
		 FROM messages WHERE thread_id = ? ORDER BY seq`, threadID)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			m     conversation.Message
			ts    string
			msgMD sql.NullString
		)
		if err := rows.Scan(&m.ID, &m.Sender, &m.Content, &ts, &msgMD); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.ThreadID = threadID
		m.Timestamp, err = time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, &CorruptRecordError{ThreadID: threadID, Err: fmt.Errorf("decode timestamp: %w", err)}
		}
		if msgMD.Valid {
			if err := json.Unmarshal([]byte(msgMD.String), &m.Metadata); err != nil {
				return nil, &CorruptRecordError{ThreadID: threadID, Err: fmt.Errorf("decode message metadata: %w", err)}
			}
		}
		thread.AddMessage(m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return thread, nil
}

// AppendMessage assigns the next sequence number and inserts the message in a
// single write transaction. The per-thread lock keeps at most one append in
// flight per thread id, so sequence numbers follow caller order.
func (r *SQLiteRepository) AppendMessage(threadID string, message conversation.Message) error {
	lock := r.lockFor(threadID)
	lock.Lock()
	defer lock.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRow(`SELECT COUNT(1) FROM threads WHERE thread_id = ?`, threadID).Scan(&exists); err != nil {
		return fmt.Errorf("check thread: %w", err)
	}
	if exists == 0 {
		return &ThreadNotFoundError{ThreadID: threadID}
	}

	var next int
	if err := tx.QueryRow(`SELECT COALESCE(MAX(seq), 0) + 1 FROM messages WHERE thread_id = ?`, threadID).Scan(&next); err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}
	if err := insertMessage(tx, threadID, next, message); err != nil {
		return err
	}
	return tx.Commit()
}

// ListThreads returns all stored thread ids.
func (r *SQLiteRepository) ListThreads() ([]string, error) {
	rows, err := r.db.Query(`SELECT thread_id FROM threads`)
	if err != nil {
		return nil, fmt.Errorf("query threads: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan thread id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DeleteThread removes the thread row; messages follow via cascade.
func (r *SQLiteRepository) DeleteThread(threadID string) error {
	lock := r.lockFor(threadID)
	lock.Lock()
	defer lock.Unlock()

	res, err := r.db.Exec(`DELETE FROM threads WHERE thread_id = ?`, threadID)
	if err != nil {
		return fmt.Errorf("delete thread: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return &ThreadNotFoundError{ThreadID: threadID}
	}

	r.mu.Lock()
	delete(r.locks, threadID)
	r.mu.Unlock()
	return nil
}
