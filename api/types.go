package api

import (
	"context"

	"taskflow-api/domain"
)

// Storage abstracts persistence for handlers. Write operations report the
// affected owner emails so caching wrappers can invalidate per-owner state.
type Storage interface {
	TasksByOwner(ctx context.Context, email string) ([]domain.Task, error)
	CreateTask(ctx context.Context, task domain.Task) (domain.Task, error)
	UpdateTask(ctx context.Context, id string, patch domain.TaskPatch) (string, error)
	UpdateOrders(ctx context.Context, updates []domain.OrderUpdate) (int64, []string, error)
	DeleteTask(ctx context.Context, id string) (string, error)
	RegisterUser(ctx context.Context, user domain.User) (bool, error)
}

// NotFoundError is implemented by storage errors that map to a 404 response.
type NotFoundError interface {
	error
	NotFound()
}

// Authenticator is implemented by types able to extract user IDs from headers.
type Authenticator interface {
	UserIDFromAuthHeader(string) (string, error)
}
