package storage

import (
	"context"
	"errors"
	"testing"

	"taskflow-api/domain"
)

func mustCreate(t *testing.T, m *Memory, task domain.Task) domain.Task {
	t.Helper()
	created, err := m.CreateTask(context.Background(), task)
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	return created
}

func TestMemoryTasksByOwnerFiltersAndSorts(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	mustCreate(t, m, domain.Task{Title: "b", Category: domain.CategoryToDo, OwnerEmail: "a@b.c", Order: 1})
	mustCreate(t, m, domain.Task{Title: "a", Category: domain.CategoryToDo, OwnerEmail: "a@b.c", Order: 0})
	mustCreate(t, m, domain.Task{Title: "other", Category: domain.CategoryToDo, OwnerEmail: "x@y.z", Order: 0})

	tasks, err := m.TasksByOwner(ctx, "a@b.c")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(tasks))
	}
	for i, task := range tasks {
		if task.OwnerEmail != "a@b.c" {
			t.Fatalf("foreign task in listing: %#v", task)
		}
		if task.Order != i {
			t.Fatalf("expected ascending order, got %#v", tasks)
		}
	}
}

func TestMemoryCreateAssignsIDAndTimestamp(t *testing.T) {
	m := NewMemory()
	created := mustCreate(t, m, domain.Task{Title: "t", Category: domain.CategoryToDo, OwnerEmail: "a@b.c"})
	if created.ID == "" {
		t.Fatal("expected assigned id")
	}
	if created.CreatedAt.IsZero() {
		t.Fatal("expected assigned timestamp")
	}
}

func TestMemoryUpdateSemantics(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	created := mustCreate(t, m, domain.Task{Title: "t", Category: domain.CategoryToDo, OwnerEmail: "a@b.c"})

	title := "renamed"
	owner, err := m.UpdateTask(ctx, created.ID, domain.TaskPatch{Title: &title})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if owner != "a@b.c" {
		t.Fatalf("unexpected owner: %s", owner)
	}

	// Identical values modify nothing and therefore report not-found.
	var nf interface{ NotFound() }
	if _, err := m.UpdateTask(ctx, created.ID, domain.TaskPatch{Title: &title}); !errors.As(err, &nf) {
		t.Fatalf("expected not-found for no-op update, got %v", err)
	}
	if _, err := m.UpdateTask(ctx, "missing", domain.TaskPatch{Title: &title}); !errors.As(err, &nf) {
		t.Fatalf("expected not-found for unknown id, got %v", err)
	}

	tasks, _ := m.TasksByOwner(ctx, "a@b.c")
	if tasks[0].Title != "renamed" {
		t.Fatalf("update not persisted: %#v", tasks[0])
	}
}

func TestMemoryDeleteTwice(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	created := mustCreate(t, m, domain.Task{Title: "t", Category: domain.CategoryToDo, OwnerEmail: "a@b.c"})

	if _, err := m.DeleteTask(ctx, created.ID); err != nil {
		t.Fatalf("first delete: %v", err)
	}
	var nf interface{ NotFound() }
	if _, err := m.DeleteTask(ctx, created.ID); !errors.As(err, &nf) {
		t.Fatalf("expected not-found on second delete, got %v", err)
	}
}

func TestMemoryUpdateOrdersSkipsUnknownIDs(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	a := mustCreate(t, m, domain.Task{Title: "a", Category: domain.CategoryToDo, OwnerEmail: "a@b.c", Order: 0})
	b := mustCreate(t, m, domain.Task{Title: "b", Category: domain.CategoryToDo, OwnerEmail: "a@b.c", Order: 1})

	modified, owners, err := m.UpdateOrders(ctx, []domain.OrderUpdate{
		{TaskID: a.ID, Order: 1},
		{TaskID: b.ID, Order: 0},
		{TaskID: "ghost", Order: 7},
	})
	if err != nil {
		t.Fatalf("update orders: %v", err)
	}
	if modified != 2 {
		t.Fatalf("expected 2 modified, got %d", modified)
	}
	if len(owners) != 1 || owners[0] != "a@b.c" {
		t.Fatalf("unexpected owners: %#v", owners)
	}

	tasks, _ := m.TasksByOwner(ctx, "a@b.c")
	if tasks[0].ID != b.ID || tasks[1].ID != a.ID {
		t.Fatalf("orders not swapped: %#v", tasks)
	}
}

func TestMemoryRegisterUserIdempotent(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	user := domain.User{ExternalID: "uid-1", Email: "a@b.c", DisplayName: "Ada"}

	created, err := m.RegisterUser(ctx, user)
	if err != nil || !created {
		t.Fatalf("expected first registration to create, got created=%v err=%v", created, err)
	}

	again := user
	again.DisplayName = "Someone Else"
	created, err = m.RegisterUser(ctx, again)
	if err != nil || created {
		t.Fatalf("expected second registration to be a no-op, got created=%v err=%v", created, err)
	}

	stored, ok := m.User("uid-1")
	if !ok || stored.DisplayName != "Ada" {
		t.Fatalf("second registration must not change fields: %#v", stored)
	}
}
