package client

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"taskflow-api/domain"
	"taskflow-api/ordering"
)

// State is the lifecycle of a Board's local snapshot.
type State int

const (
	StateIdle State = iota
	StateFetching
	StateReady
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateReady:
		return "ready"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Board holds an optimistic local copy of one owner's task list. Mutations
// update the snapshot first and talk to the server after; a failed request
// either reverts the local change or triggers a refetch to reconcile.
//
// Fetches are generation-stamped: each Refresh takes a new sequence number,
// and a result is only applied while no later fetch has landed. A slow
// response that is overtaken by a newer one is discarded instead of
// clobbering fresher data.
type Board struct {
	api   *Client
	owner string

	mu         sync.Mutex
	tasks      []domain.Task
	state      State
	lastErr    error
	fetchSeq   uint64
	appliedSeq uint64
}

// NewBoard creates a Board for the owner's task list. The snapshot starts
// empty; call Refresh to load it.
func NewBoard(api *Client, ownerEmail string) *Board {
	return &Board{api: api, owner: ownerEmail, state: StateIdle}
}

// State reports the snapshot lifecycle state.
func (b *Board) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Err returns the error from the last failed fetch, if the board is in
// StateError.
func (b *Board) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastErr
}

// Generation reports the sequence number of the fetch whose result is
// currently applied. It only ever increases.
func (b *Board) Generation() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.appliedSeq
}

// Tasks returns a copy of the current snapshot.
func (b *Board) Tasks() []domain.Task {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]domain.Task, len(b.tasks))
	copy(out, b.tasks)
	return out
}

// Refresh fetches the owner's tasks and applies them unless a later fetch
// already landed.
func (b *Board) Refresh(ctx context.Context) error {
	seq := b.beginFetch()
	tasks, err := b.api.Tasks(ctx, b.owner)
	return b.completeFetch(seq, tasks, err)
}

func (b *Board) beginFetch() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fetchSeq++
	if b.state != StateReady {
		b.state = StateFetching
	}
	return b.fetchSeq
}

func (b *Board) completeFetch(seq uint64, tasks []domain.Task, err error) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if seq <= b.appliedSeq {
		// A newer fetch already landed; this result is stale.
		return err
	}
	b.appliedSeq = seq
	if err != nil {
		b.state = StateError
		b.lastErr = err
		return err
	}
	b.tasks = tasks
	b.state = StateReady
	b.lastErr = nil
	return nil
}

// Move applies a drag move to the snapshot immediately, then persists the
// resulting order changes as independent per-task updates. If any update
// fails the board refetches from the server to reconcile.
func (b *Board) Move(ctx context.Context, mv ordering.Move) error {
	b.mu.Lock()
	res, err := ordering.Apply(b.tasks, mv)
	if err != nil {
		b.mu.Unlock()
		return err
	}
	b.tasks = res.Tasks
	b.mu.Unlock()

	if len(res.Patches) == 0 {
		return nil
	}

	errs := make([]error, len(res.Patches))
	var wg sync.WaitGroup
	for i, p := range res.Patches {
		wg.Add(1)
		go func(i int, p ordering.Patch) {
			defer wg.Done()
			order := p.Order
			patch := domain.TaskPatch{Order: &order}
			if p.Category != "" {
				category := p.Category
				patch.Category = &category
			}
			errs[i] = b.api.UpdateTask(ctx, p.TaskID, patch)
		}(i, p)
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		if refreshErr := b.Refresh(ctx); refreshErr != nil {
			return errors.Join(err, refreshErr)
		}
		return err
	}
	return nil
}

// CreateTask appends a placeholder task to the snapshot, persists it, and
// swaps the placeholder for the server's record. On failure the placeholder
// is removed.
func (b *Board) CreateTask(ctx context.Context, title, description, category string) (domain.Task, error) {
	pending := domain.Task{
		ID:          "pending-" + uuid.NewString(),
		Title:       title,
		Description: description,
		Category:    category,
		OwnerEmail:  b.owner,
	}

	b.mu.Lock()
	for _, t := range b.tasks {
		if t.Category == category {
			pending.Order++
		}
	}
	b.tasks = append(b.tasks, pending)
	b.mu.Unlock()

	created, err := b.api.CreateTask(ctx, pending)
	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.removeLocked(pending.ID)
		return domain.Task{}, err
	}
	for i := range b.tasks {
		if b.tasks[i].ID == pending.ID {
			b.tasks[i] = created
			return created, nil
		}
	}
	// The placeholder vanished under a concurrent refresh; the fetched
	// snapshot already reflects the server.
	return created, nil
}

// UpdateTask patches one task locally, persists the change, and reverts the
// snapshot if the server rejects it.
func (b *Board) UpdateTask(ctx context.Context, id string, patch domain.TaskPatch) error {
	b.mu.Lock()
	idx := b.indexLocked(id)
	if idx < 0 {
		b.mu.Unlock()
		return &APIError{StatusCode: 404, Message: "Task not found"}
	}
	previous := b.tasks[idx]
	b.tasks[idx] = patched(previous, patch)
	b.mu.Unlock()

	if err := b.api.UpdateTask(ctx, id, patch); err != nil {
		b.mu.Lock()
		if i := b.indexLocked(id); i >= 0 {
			b.tasks[i] = previous
		}
		b.mu.Unlock()
		return err
	}
	return nil
}

// DeleteTask removes the task from the snapshot, then from the server. On
// failure the task is restored.
func (b *Board) DeleteTask(ctx context.Context, id string) error {
	b.mu.Lock()
	idx := b.indexLocked(id)
	if idx < 0 {
		b.mu.Unlock()
		return &APIError{StatusCode: 404, Message: "Task not found"}
	}
	removed := b.tasks[idx]
	b.tasks = append(b.tasks[:idx:idx], b.tasks[idx+1:]...)
	b.mu.Unlock()

	if err := b.api.DeleteTask(ctx, id); err != nil {
		b.mu.Lock()
		b.tasks = append(b.tasks, removed)
		b.mu.Unlock()
		return err
	}
	return nil
}

func (b *Board) indexLocked(id string) int {
	for i := range b.tasks {
		if b.tasks[i].ID == id {
			return i
		}
	}
	return -1
}

func (b *Board) removeLocked(id string) {
	if i := b.indexLocked(id); i >= 0 {
		b.tasks = append(b.tasks[:i:i], b.tasks[i+1:]...)
	}
}

func patched(t domain.Task, p domain.TaskPatch) domain.Task {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Category != nil {
		t.Category = *p.Category
	}
	if p.Order != nil {
		t.Order = *p.Order
	}
	return t
}
