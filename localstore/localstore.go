// Package localstore keeps the client's offline copy of the task list, the
// queue of writes not yet accepted by the server, and user preferences in a
// single SQLite file.
package localstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/erntsn/todo-app/models"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("task not found in local store")

const schema = `
CREATE TABLE IF NOT EXISTS tasks (
	user_id TEXT NOT NULL,
	id TEXT NOT NULL,
	doc TEXT NOT NULL,
	PRIMARY KEY (user_id, id)
);
CREATE TABLE IF NOT EXISTS pending_ops (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL UNIQUE,
	user_id TEXT NOT NULL,
	kind TEXT NOT NULL,
	task_id TEXT NOT NULL,
	payload TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	attempts INTEGER NOT NULL DEFAULT 0,
	last_error TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_pending_user ON pending_ops(user_id, seq);
CREATE TABLE IF NOT EXISTS sync_errors (
	op_id TEXT NOT NULL,
	user_id TEXT NOT NULL,
	kind TEXT NOT NULL,
	task_id TEXT NOT NULL,
	message TEXT NOT NULL,
	at DATETIME NOT NULL
);
CREATE TABLE IF NOT EXISTS prefs (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One writer at a time; the CLI is single process.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Tasks returns the mirrored tasks of userID in creation order.
func (s *Store) Tasks(ctx context.Context, userID string) ([]models.Task, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT doc FROM tasks WHERE user_id = ?`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		var t models.Task
		if err := json.Unmarshal([]byte(doc), &t); err != nil {
			return nil, fmt.Errorf("decode task: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(tasks, func(i, j int) bool {
		if tasks[i].CreatedAt.Equal(tasks[j].CreatedAt) {
			return tasks[i].ID < tasks[j].ID
		}
		return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
	})
	return tasks, nil
}

func (s *Store) Task(ctx context.Context, userID, id string) (*models.Task, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT doc FROM tasks WHERE user_id = ? AND id = ?`, userID, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var t models.Task
	if err := json.Unmarshal([]byte(doc), &t); err != nil {
		return nil, fmt.Errorf("decode task: %w", err)
	}
	return &t, nil
}

// PutTask inserts or overwrites a mirrored task.
func (s *Store) PutTask(ctx context.Context, t *models.Task) error {
	return putTask(ctx, s.db, t)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func putTask(ctx context.Context, db execer, t *models.Task) error {
	doc, err := json.Marshal(t)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `
	INSERT INTO tasks (user_id, id, doc) VALUES (?, ?, ?)
	ON CONFLICT(user_id, id) DO UPDATE SET doc = excluded.doc
	`, t.UserID, t.ID, string(doc))
	return err
}

func (s *Store) DeleteTask(ctx context.Context, userID, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE user_id = ? AND id = ?`, userID, id)
	return err
}

// ReplaceTasks swaps the whole mirror of userID for tasks.
func (s *Store) ReplaceTasks(ctx context.Context, userID string, tasks []models.Task) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE user_id = ?`, userID); err != nil {
		return err
	}
	for i := range tasks {
		if tasks[i].UserID == "" {
			tasks[i].UserID = userID
		}
		if err := putTask(ctx, tx, &tasks[i]); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ClearUser removes every local trace of userID: its mirror, queued writes
// and recorded sync errors.
func (s *Store) ClearUser(ctx context.Context, userID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"tasks", "pending_ops", "sync_errors"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE user_id = ?`, userID); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return tx.Commit()
}

type OpKind string

const (
	OpCreate OpKind = "create"
	OpUpdate OpKind = "update"
	OpStatus OpKind = "status"
	OpDelete OpKind = "delete"
)

// Op is a write waiting to be replayed against the server.
type Op struct {
	ID        string
	UserID    string
	Kind      OpKind
	TaskID    string
	Payload   json.RawMessage
	CreatedAt time.Time
	Attempts  int
	LastError string
}

// Enqueue appends op to the queue. A missing id or timestamp is filled in.
func (s *Store) Enqueue(ctx context.Context, op *Op) error {
	if op.ID == "" {
		op.ID = uuid.New().String()
	}
	if op.CreatedAt.IsZero() {
		op.CreatedAt = s.now().UTC()
	}
	if op.Payload == nil {
		op.Payload = json.RawMessage("null")
	}
	_, err := s.db.ExecContext(ctx, `
	INSERT INTO pending_ops (id, user_id, kind, task_id, payload, created_at)
	VALUES (?, ?, ?, ?, ?, ?)
	`, op.ID, op.UserID, string(op.Kind), op.TaskID, string(op.Payload), op.CreatedAt)
	return err
}

// Pending lists the queued ops of userID, oldest first.
func (s *Store) Pending(ctx context.Context, userID string) ([]Op, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT id, user_id, kind, task_id, payload, created_at, attempts, last_error
	FROM pending_ops
	WHERE user_id = ?
	ORDER BY seq ASC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ops []Op
	for rows.Next() {
		var op Op
		var kind, payload string
		if err := rows.Scan(&op.ID, &op.UserID, &kind, &op.TaskID, &payload, &op.CreatedAt, &op.Attempts, &op.LastError); err != nil {
			return nil, err
		}
		op.Kind = OpKind(kind)
		op.Payload = json.RawMessage(payload)
		ops = append(ops, op)
	}
	return ops, rows.Err()
}

func (s *Store) PendingCount(ctx context.Context, userID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pending_ops WHERE user_id = ?`, userID).Scan(&n)
	return n, err
}

func (s *Store) RemoveOp(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM pending_ops WHERE id = ?`, id)
	return err
}

// MarkAttempt records a failed replay that will be retried.
func (s *Store) MarkAttempt(ctx context.Context, id string, cause error) error {
	_, err := s.db.ExecContext(ctx, `
	UPDATE pending_ops SET attempts = attempts + 1, last_error = ? WHERE id = ?
	`, cause.Error(), id)
	return err
}

// SyncError is a queued write the server rejected.
type SyncError struct {
	OpID    string
	Kind    OpKind
	TaskID  string
	Message string
	At      time.Time
}

// Reject drops op from the queue and records why.
func (s *Store) Reject(ctx context.Context, op Op, cause error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM pending_ops WHERE id = ?`, op.ID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
	INSERT INTO sync_errors (op_id, user_id, kind, task_id, message, at)
	VALUES (?, ?, ?, ?, ?, ?)
	`, op.ID, op.UserID, string(op.Kind), op.TaskID, cause.Error(), s.now().UTC()); err != nil {
		return err
	}
	return tx.Commit()
}

// SyncErrors lists rejected writes of userID, newest first.
func (s *Store) SyncErrors(ctx context.Context, userID string) ([]SyncError, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT op_id, kind, task_id, message, at FROM sync_errors
	WHERE user_id = ? ORDER BY at DESC, rowid DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SyncError
	for rows.Next() {
		var e SyncError
		var kind string
		if err := rows.Scan(&e.OpID, &kind, &e.TaskID, &e.Message, &e.At); err != nil {
			return nil, err
		}
		e.Kind = OpKind(kind)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) ClearSyncErrors(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sync_errors WHERE user_id = ?`, userID)
	return err
}
