package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"taskflow-api/domain"
)

type backend interface {
	TasksByOwner(ctx context.Context, email string) ([]domain.Task, error)
	CreateTask(ctx context.Context, task domain.Task) (domain.Task, error)
	UpdateTask(ctx context.Context, id string, patch domain.TaskPatch) (string, error)
	UpdateOrders(ctx context.Context, updates []domain.OrderUpdate) (int64, []string, error)
	DeleteTask(ctx context.Context, id string) (string, error)
	RegisterUser(ctx context.Context, user domain.User) (bool, error)
}

// Cache wraps a store with Redis-backed caching of per-owner task lists.
// Every successful write evicts the affected owner's entry; cache failures
// fall through to the backing store without surfacing errors.
type Cache struct {
	base  backend
	redis *redis.Client
	ttl   time.Duration
}

// NewCache creates a caching wrapper using the provided Redis client and TTL.
func NewCache(base backend, client *redis.Client, ttl time.Duration) *Cache {
	if base == nil {
		panic("storage.NewCache: base storage is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Cache{base: base, redis: client, ttl: ttl}
}

func (c *Cache) TasksByOwner(ctx context.Context, email string) ([]domain.Task, error) {
	if tasks, ok := c.loadTasks(ctx, email); ok {
		return tasks, nil
	}

	tasks, err := c.base.TasksByOwner(ctx, email)
	if err != nil {
		return nil, err
	}

	c.storeTasks(ctx, email, tasks)
	return tasks, nil
}

func (c *Cache) CreateTask(ctx context.Context, task domain.Task) (domain.Task, error) {
	created, err := c.base.CreateTask(ctx, task)
	if err != nil {
		return domain.Task{}, err
	}
	c.evict(ctx, created.OwnerEmail)
	return created, nil
}

func (c *Cache) UpdateTask(ctx context.Context, id string, patch domain.TaskPatch) (string, error) {
	owner, err := c.base.UpdateTask(ctx, id, patch)
	if err != nil {
		return "", err
	}
	c.evict(ctx, owner)
	return owner, nil
}

func (c *Cache) UpdateOrders(ctx context.Context, updates []domain.OrderUpdate) (int64, []string, error) {
	modified, owners, err := c.base.UpdateOrders(ctx, updates)
	if err != nil {
		return 0, nil, err
	}
	c.evict(ctx, owners...)
	return modified, owners, nil
}

func (c *Cache) DeleteTask(ctx context.Context, id string) (string, error) {
	owner, err := c.base.DeleteTask(ctx, id)
	if err != nil {
		return "", err
	}
	c.evict(ctx, owner)
	return owner, nil
}

// RegisterUser passes through; user profiles are not cached.
func (c *Cache) RegisterUser(ctx context.Context, user domain.User) (bool, error) {
	return c.base.RegisterUser(ctx, user)
}

func (c *Cache) loadTasks(ctx context.Context, email string) ([]domain.Task, bool) {
	if c.redis == nil {
		return nil, false
	}
	data, err := c.redis.Get(ctx, tasksCacheKey(email)).Bytes()
	if err != nil {
		if err != redis.Nil {
			// On redis errors fall back to the backing storage without failing.
			_ = c.redis.Del(ctx, tasksCacheKey(email)).Err()
		}
		return nil, false
	}
	var tasks []domain.Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		_ = c.redis.Del(ctx, tasksCacheKey(email)).Err()
		return nil, false
	}
	return tasks, true
}

func (c *Cache) storeTasks(ctx context.Context, email string, tasks []domain.Task) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	data, err := json.Marshal(tasks)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, tasksCacheKey(email), data, c.ttl).Err()
}

func (c *Cache) evict(ctx context.Context, owners ...string) {
	if c.redis == nil || len(owners) == 0 {
		return
	}
	keys := make([]string, 0, len(owners))
	for _, o := range owners {
		if o != "" {
			keys = append(keys, tasksCacheKey(o))
		}
	}
	if len(keys) == 0 {
		return
	}
	_, _ = c.redis.Del(ctx, keys...).Result()
}

func tasksCacheKey(email string) string {
	return "tasks:" + email
}
