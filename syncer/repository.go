// Package syncer is the client's local-first task repository. Writes land in
// the local mirror first and are then sent to the server; while the server
// is unreachable they wait in the pending queue and are replayed in order.
package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sort"
	"time"

	"github.com/erntsn/todo-app/client"
	"github.com/erntsn/todo-app/localstore"
	"github.com/erntsn/todo-app/models"
	"github.com/google/uuid"
)

// Remote is the part of the API the repository replays writes against.
type Remote interface {
	ListTasks(ctx context.Context, f models.Filter) ([]models.Task, error)
	GetTask(ctx context.Context, id string) (*models.Task, error)
	CreateTask(ctx context.Context, task *models.Task) (*models.Task, error)
	UpdateTask(ctx context.Context, task *models.Task) (*models.TaskChange, error)
	SetStatus(ctx context.Context, id string, status models.Status, nextID string) (*models.TaskChange, error)
	DeleteTask(ctx context.Context, id string) error
}

type Repository struct {
	local  *localstore.Store
	remote Remote
	userID string
	now    func() time.Time
	// Logger receives sync diagnostics; nil discards them.
	Logger *log.Logger
}

func New(local *localstore.Store, remote Remote, userID string) *Repository {
	return &Repository{local: local, remote: remote, userID: userID, now: time.Now}
}

// ErrSessionExpired stops a replay when the server no longer accepts the
// token. Nothing is dropped; the queue waits for a new login.
var ErrSessionExpired = errors.New("session expired, run `todo login` to send queued changes")

// Result tells the caller whether a write reached the server.
type Result struct {
	Task   *models.Task
	Next   *models.Task
	Queued bool
	// SessionExpired is set when the write was queued because the server
	// refused the token.
	SessionExpired bool
}

// List reads the local mirror, so it works offline.
func (r *Repository) List(ctx context.Context, f models.Filter) ([]models.Task, error) {
	tasks, err := r.local.Tasks(ctx, r.userID)
	if err != nil {
		return nil, err
	}
	return models.FilterTasks(tasks, f), nil
}

func (r *Repository) Get(ctx context.Context, id string) (*models.Task, error) {
	return r.local.Task(ctx, r.userID, id)
}

// Tags returns the distinct tags of the mirrored tasks, sorted.
func (r *Repository) Tags(ctx context.Context) ([]string, error) {
	tasks, err := r.local.Tasks(ctx, r.userID)
	if err != nil {
		return nil, err
	}
	tags := models.DistinctTags(tasks)
	sort.Strings(tags)
	return tags, nil
}

func (r *Repository) Create(ctx context.Context, task models.Task) (*Result, error) {
	now := r.now()
	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	task.UserID = r.userID
	task.CreatedAt = now
	task.UpdatedAt = now
	task.Normalize()
	if err := task.Validate(); err != nil {
		return nil, err
	}
	if task.Status == models.StatusDone || task.Completed {
		if err := task.ApplyStatus(models.StatusDone, now); err != nil {
			return nil, err
		}
	}

	if err := r.local.PutTask(ctx, &task); err != nil {
		return nil, err
	}
	return r.send(ctx, localstore.OpCreate, task.ID, task, nil)
}

// Update applies a partial edit and sends the resulting task in full.
func (r *Repository) Update(ctx context.Context, id string, patch models.TaskPatch) (*Result, error) {
	return r.edit(ctx, id, func(t *models.Task) error {
		t.ApplyPatch(patch)
		return nil
	})
}

func (r *Repository) AddSubtask(ctx context.Context, taskID, text string) (*Result, error) {
	return r.edit(ctx, taskID, func(t *models.Task) error {
		_, err := t.AddSubtask("", text)
		return err
	})
}

func (r *Repository) ToggleSubtask(ctx context.Context, taskID, subtaskID string) (*Result, error) {
	return r.edit(ctx, taskID, func(t *models.Task) error { return t.ToggleSubtask(subtaskID) })
}

func (r *Repository) RemoveSubtask(ctx context.Context, taskID, subtaskID string) (*Result, error) {
	return r.edit(ctx, taskID, func(t *models.Task) error { return t.RemoveSubtask(subtaskID) })
}

func (r *Repository) edit(ctx context.Context, id string, apply func(*models.Task) error) (*Result, error) {
	task, err := r.local.Task(ctx, r.userID, id)
	if err != nil {
		return nil, err
	}
	prev := task.Clone()
	if err := apply(task); err != nil {
		return nil, err
	}
	task.Normalize()
	if err := task.Validate(); err != nil {
		return nil, err
	}
	task.UpdatedAt = r.now()

	if err := r.local.PutTask(ctx, task); err != nil {
		return nil, err
	}
	return r.send(ctx, localstore.OpUpdate, id, task, prev)
}

// Toggle flips the completed state.
func (r *Repository) Toggle(ctx context.Context, id string) (*Result, error) {
	task, err := r.local.Task(ctx, r.userID, id)
	if err != nil {
		return nil, err
	}
	return r.SetStatus(ctx, id, task.ToggleTarget())
}

// SetStatus moves a task to another column. Completing a recurring task
// creates its next occurrence locally and sends that id along, so the
// server creates the same occurrence exactly once.
func (r *Repository) SetStatus(ctx context.Context, id string, status models.Status) (*Result, error) {
	task, err := r.local.Task(ctx, r.userID, id)
	if err != nil {
		return nil, err
	}
	prev := task.Clone()
	next, err := task.ChangeStatus(status, "", r.now())
	if err != nil {
		return nil, err
	}

	if err := r.local.PutTask(ctx, task); err != nil {
		return nil, err
	}
	req := models.StatusRequest{Status: string(status)}
	if next != nil {
		if err := r.local.PutTask(ctx, next); err != nil {
			return nil, err
		}
		req.NextID = next.ID
	}

	res, err := r.send(ctx, localstore.OpStatus, id, req, prev)
	if err != nil {
		if next != nil {
			r.local.DeleteTask(ctx, r.userID, next.ID)
		}
		return nil, err
	}
	if res.Next == nil {
		res.Next = next
	}
	return res, nil
}

func (r *Repository) Delete(ctx context.Context, id string) (*Result, error) {
	task, err := r.local.Task(ctx, r.userID, id)
	if err != nil {
		return nil, err
	}
	if err := r.local.DeleteTask(ctx, r.userID, id); err != nil {
		return nil, err
	}
	return r.send(ctx, localstore.OpDelete, id, nil, task)
}

// send delivers a write that is already applied locally. Earlier queued
// writes go first; if they cannot, or the server is unreachable, the write
// joins the queue. A rejected write is rolled back to prev and returned as
// an error.
func (r *Repository) send(ctx context.Context, kind localstore.OpKind, taskID string, payload interface{}, prev *models.Task) (*Result, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	op := localstore.Op{UserID: r.userID, Kind: kind, TaskID: taskID, Payload: raw}

	queued, err := r.local.PendingCount(ctx, r.userID)
	if err != nil {
		return nil, err
	}
	if queued > 0 {
		fr, err := r.Flush(ctx)
		switch {
		case errors.Is(err, ErrSessionExpired):
			return r.enqueueExpired(ctx, op)
		case err != nil || fr.Offline:
			return r.enqueue(ctx, op)
		}
	}

	res, err := r.apply(ctx, op, true)
	switch {
	case err == nil:
		return res, nil
	case client.IsAuth(err):
		r.logf("%s %s queued, session refused: %v", kind, taskID, err)
		return r.enqueueExpired(ctx, op)
	case client.Retryable(err):
		r.logf("%s %s queued: %v", kind, taskID, err)
		return r.enqueue(ctx, op)
	default:
		r.rollback(ctx, kind, taskID, prev)
		return nil, err
	}
}

func (r *Repository) enqueue(ctx context.Context, op localstore.Op) (*Result, error) {
	if err := r.local.Enqueue(ctx, &op); err != nil {
		return nil, err
	}
	res := &Result{Queued: true}
	if op.Kind != localstore.OpDelete {
		if t, err := r.local.Task(ctx, r.userID, op.TaskID); err == nil {
			res.Task = t
		}
	}
	return res, nil
}

func (r *Repository) enqueueExpired(ctx context.Context, op localstore.Op) (*Result, error) {
	res, err := r.enqueue(ctx, op)
	if err != nil {
		return nil, err
	}
	res.SessionExpired = true
	return res, nil
}

func (r *Repository) rollback(ctx context.Context, kind localstore.OpKind, taskID string, prev *models.Task) {
	var err error
	if prev != nil {
		err = r.local.PutTask(ctx, prev)
	} else if kind == localstore.OpCreate {
		err = r.local.DeleteTask(ctx, r.userID, taskID)
	}
	if err != nil {
		r.logf("roll back %s %s: %v", kind, taskID, err)
	}
}

// apply sends one write to the server. When mirror is set the server's
// answer is written back to the local mirror. Replays that find their
// effect already in place (a create answered 409, a delete answered 404)
// count as delivered.
func (r *Repository) apply(ctx context.Context, op localstore.Op, mirror bool) (*Result, error) {
	res := &Result{}
	var change *models.TaskChange

	switch op.Kind {
	case localstore.OpCreate:
		var task models.Task
		if err := json.Unmarshal(op.Payload, &task); err != nil {
			return nil, fmt.Errorf("decode queued create: %w", err)
		}
		created, err := r.remote.CreateTask(ctx, &task)
		if client.IsStatus(err, http.StatusConflict) {
			if created, err = r.remote.GetTask(ctx, task.ID); err != nil {
				return nil, err
			}
		} else if err != nil {
			return nil, err
		}
		change = &models.TaskChange{Task: *created}

	case localstore.OpUpdate:
		var task models.Task
		if err := json.Unmarshal(op.Payload, &task); err != nil {
			return nil, fmt.Errorf("decode queued update: %w", err)
		}
		c, err := r.remote.UpdateTask(ctx, &task)
		if err != nil {
			return nil, err
		}
		change = c

	case localstore.OpStatus:
		var req models.StatusRequest
		if err := json.Unmarshal(op.Payload, &req); err != nil {
			return nil, fmt.Errorf("decode queued status: %w", err)
		}
		c, err := r.remote.SetStatus(ctx, op.TaskID, models.Status(req.Status), req.NextID)
		if err != nil {
			return nil, err
		}
		change = c

	case localstore.OpDelete:
		err := r.remote.DeleteTask(ctx, op.TaskID)
		if err != nil && !client.IsStatus(err, http.StatusNotFound) {
			return nil, err
		}
		return res, nil

	default:
		return nil, fmt.Errorf("unknown queued operation %q", op.Kind)
	}

	res.Task = &change.Task
	res.Next = change.Next
	if mirror {
		if err := r.local.PutTask(ctx, &change.Task); err != nil {
			return nil, err
		}
		if change.Next != nil {
			if err := r.local.PutTask(ctx, change.Next); err != nil {
				return nil, err
			}
		}
	}
	return res, nil
}

// FlushResult summarizes a replay of the pending queue.
type FlushResult struct {
	Sent      int
	Dropped   int
	Remaining int
	// Offline is set when the replay stopped because the server could
	// not be reached.
	Offline bool
}

// Flush replays queued writes oldest first. It stops at the first write
// the server cannot take right now, keeping it and everything after it
// queued; a refused token stops it with ErrSessionExpired. Writes the
// server rejects are dropped and recorded.
func (r *Repository) Flush(ctx context.Context) (FlushResult, error) {
	var fr FlushResult
	ops, err := r.local.Pending(ctx, r.userID)
	if err != nil {
		return fr, err
	}

	for i, op := range ops {
		// A later queued write to the same task will overwrite the mirror
		// anyway; keep the optimistic copy until then.
		mirror := !touchedLater(ops[i+1:], op.TaskID)

		_, err := r.apply(ctx, op, mirror)
		switch {
		case err == nil:
			if err := r.local.RemoveOp(ctx, op.ID); err != nil {
				return fr, err
			}
			fr.Sent++

		case ctx.Err() != nil:
			fr.Remaining = len(ops) - i
			return fr, ctx.Err()

		case client.IsAuth(err):
			if err := r.local.MarkAttempt(ctx, op.ID, err); err != nil {
				return fr, err
			}
			fr.Remaining = len(ops) - i
			return fr, fmt.Errorf("%w: %v", ErrSessionExpired, err)

		case client.Retryable(err):
			if err := r.local.MarkAttempt(ctx, op.ID, err); err != nil {
				return fr, err
			}
			r.logf("sync stopped at %s %s: %v", op.Kind, op.TaskID, err)
			fr.Remaining = len(ops) - i
			fr.Offline = true
			return fr, nil

		default:
			r.logf("dropping %s %s: %v", op.Kind, op.TaskID, err)
			if err := r.local.Reject(ctx, op, err); err != nil {
				return fr, err
			}
			if client.IsStatus(err, http.StatusNotFound) && !touchedLater(ops[i+1:], op.TaskID) {
				r.local.DeleteTask(ctx, r.userID, op.TaskID)
			}
			fr.Dropped++
		}
	}
	return fr, nil
}

// Refresh flushes the queue and, once it is empty, replaces the mirror with
// the server's list. While writes are still queued the local copy wins.
func (r *Repository) Refresh(ctx context.Context) (FlushResult, error) {
	fr, err := r.Flush(ctx)
	if err != nil || fr.Offline {
		return fr, err
	}
	if n, err := r.local.PendingCount(ctx, r.userID); err != nil || n > 0 {
		fr.Remaining = n
		return fr, err
	}

	tasks, err := r.remote.ListTasks(ctx, models.Filter{})
	if err != nil {
		if client.Retryable(err) {
			fr.Offline = true
			return fr, nil
		}
		return fr, err
	}
	return fr, r.local.ReplaceTasks(ctx, r.userID, tasks)
}

// Pending is the number of queued writes.
func (r *Repository) Pending(ctx context.Context) (int, error) {
	return r.local.PendingCount(ctx, r.userID)
}

func (r *Repository) SyncErrors(ctx context.Context) ([]localstore.SyncError, error) {
	return r.local.SyncErrors(ctx, r.userID)
}

// Logout forgets everything stored locally for the user.
func (r *Repository) Logout(ctx context.Context) error {
	if err := r.local.ClearUser(ctx, r.userID); err != nil {
		return fmt.Errorf("clear local data: %w", err)
	}
	return nil
}

func (r *Repository) logf(format string, args ...interface{}) {
	if r.Logger != nil {
		r.Logger.Printf(format, args...)
	}
}

func touchedLater(ops []localstore.Op, taskID string) bool {
	for _, op := range ops {
		if op.TaskID == taskID {
			return true
		}
	}
	return false
}

// ErrNotFound is returned for tasks missing from the local mirror.
var ErrNotFound = localstore.ErrNotFound

// IsNotFound reports a missing task, locally or on the server.
func IsNotFound(err error) bool {
	return errors.Is(err, localstore.ErrNotFound) || client.IsStatus(err, http.StatusNotFound)
}
