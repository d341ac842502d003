package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"taskflow-api/domain"
)

// Memory is an in-process store with the same observable semantics as Store,
// including the not-found report for updates that modify nothing. It backs
// tests and local development without a MongoDB instance.
type Memory struct {
	mu    sync.Mutex
	tasks map[string]domain.Task
	users map[string]domain.User
	// insertion sequence per id, used to keep equal-order listings stable
	seq     map[string]int
	nextSeq int
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		tasks: make(map[string]domain.Task),
		users: make(map[string]domain.User),
		seq:   make(map[string]int),
	}
}

func (m *Memory) TasksByOwner(_ context.Context, email string) ([]domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tasks := make([]domain.Task, 0)
	for _, t := range m.tasks {
		if t.OwnerEmail == email {
			tasks = append(tasks, t)
		}
	}
	sort.SliceStable(tasks, func(i, j int) bool {
		if tasks[i].Order != tasks[j].Order {
			return tasks[i].Order < tasks[j].Order
		}
		return m.seq[tasks[i].ID] < m.seq[tasks[j].ID]
	})
	return tasks, nil
}

func (m *Memory) CreateTask(_ context.Context, task domain.Task) (domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	task.ID = uuid.NewString()
	task.CreatedAt = time.Now().UTC()
	m.tasks[task.ID] = task
	m.seq[task.ID] = m.nextSeq
	m.nextSeq++
	return task, nil
}

func (m *Memory) UpdateTask(_ context.Context, id string, patch domain.TaskPatch) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	task, ok := m.tasks[id]
	if !ok {
		return "", NotFoundError{ID: id}
	}

	changed := false
	if patch.Title != nil && *patch.Title != task.Title {
		task.Title = *patch.Title
		changed = true
	}
	if patch.Description != nil && *patch.Description != task.Description {
		task.Description = *patch.Description
		changed = true
	}
	if patch.Category != nil && *patch.Category != task.Category {
		task.Category = *patch.Category
		changed = true
	}
	if patch.Order != nil && *patch.Order != task.Order {
		task.Order = *patch.Order
		changed = true
	}
	if !changed {
		// Mirrors the document store: a no-op modification reports not-found.
		return "", NotFoundError{ID: id}
	}
	m.tasks[id] = task
	return task.OwnerEmail, nil
}

func (m *Memory) UpdateOrders(_ context.Context, updates []domain.OrderUpdate) (int64, []string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var modified int64
	ownerSet := make(map[string]struct{})
	for _, u := range updates {
		task, ok := m.tasks[u.TaskID]
		if !ok {
			continue
		}
		ownerSet[task.OwnerEmail] = struct{}{}
		if task.Order == u.Order {
			continue
		}
		task.Order = u.Order
		m.tasks[u.TaskID] = task
		modified++
	}
	owners := make([]string, 0, len(ownerSet))
	for o := range ownerSet {
		owners = append(owners, o)
	}
	sort.Strings(owners)
	return modified, owners, nil
}

func (m *Memory) DeleteTask(_ context.Context, id string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	task, ok := m.tasks[id]
	if !ok {
		return "", NotFoundError{ID: id}
	}
	delete(m.tasks, id)
	delete(m.seq, id)
	return task.OwnerEmail, nil
}

func (m *Memory) RegisterUser(_ context.Context, user domain.User) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[user.ExternalID]; ok {
		return false, nil
	}
	m.users[user.ExternalID] = user
	return true, nil
}

// User returns the stored profile for a uid, for test assertions.
func (m *Memory) User(uid string) (domain.User, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[uid]
	return u, ok
}
