package domain

import (
	"strings"
	"testing"

	"github.com/bytedance/sonic"
)

func TestTaskMarshalIncludesZeroOrder(t *testing.T) {
	task := Task{ID: "t1", Title: "Title", Category: CategoryToDo, OwnerEmail: "a@b.c", Order: 0}

	payload, err := sonic.Marshal(task)
	if err != nil {
		t.Fatalf("marshal task: %v", err)
	}

	if !strings.Contains(string(payload), "\"order\":0") {
		t.Fatalf("expected order field to be present, got %s", payload)
	}
}

func TestTaskValidate(t *testing.T) {
	base := Task{Title: "write docs", Category: CategoryToDo, OwnerEmail: "a@b.c"}

	if err := base.Validate(); err != nil {
		t.Fatalf("expected valid task, got %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Task)
	}{
		{"missing title", func(task *Task) { task.Title = "" }},
		{"missing category", func(task *Task) { task.Category = "" }},
		{"missing owner", func(task *Task) { task.OwnerEmail = "" }},
		{"long title", func(task *Task) { task.Title = strings.Repeat("x", 51) }},
		{"long description", func(task *Task) { task.Description = strings.Repeat("x", 201) }},
		{"unknown category", func(task *Task) { task.Category = "Backlog" }},
		{"negative order", func(task *Task) { task.Order = -1 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			task := base
			tc.mutate(&task)
			if err := task.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestTaskValidateBoundaryLengths(t *testing.T) {
	task := Task{
		Title:       strings.Repeat("t", 50),
		Description: strings.Repeat("d", 200),
		Category:    CategoryDone,
		OwnerEmail:  "a@b.c",
	}
	if err := task.Validate(); err != nil {
		t.Fatalf("boundary lengths should pass, got %v", err)
	}
}

func TestTaskPatchValidate(t *testing.T) {
	title := "new title"
	order := 2
	patch := TaskPatch{Title: &title, Order: &order}
	if err := patch.Validate(); err != nil {
		t.Fatalf("expected valid patch, got %v", err)
	}

	if err := (TaskPatch{}).Validate(); err == nil {
		t.Fatal("expected error for empty patch")
	}

	empty := ""
	if err := (TaskPatch{Title: &empty}).Validate(); err == nil {
		t.Fatal("expected error for empty title")
	}

	bad := "Shipped"
	if err := (TaskPatch{Category: &bad}).Validate(); err == nil {
		t.Fatal("expected error for unknown category")
	}

	neg := -3
	if err := (TaskPatch{Order: &neg}).Validate(); err == nil {
		t.Fatal("expected error for negative order")
	}
}

func TestUserValidate(t *testing.T) {
	u := User{ExternalID: "uid-1", Email: "a@b.c", DisplayName: "Ada"}
	if err := u.Validate(); err != nil {
		t.Fatalf("expected valid user, got %v", err)
	}
	u.DisplayName = ""
	if err := u.Validate(); err == nil {
		t.Fatal("expected error for missing display name")
	}
}
