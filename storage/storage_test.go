package storage

import (
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestTaskDocumentToDomain(t *testing.T) {
	oid := primitive.NewObjectID()
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	doc := taskDocument{
		ID:         oid,
		Title:      "Write report",
		Category:   "In Progress",
		OwnerEmail: "a@b.c",
		Order:      3,
		CreatedAt:  created,
	}

	task := doc.toDomain()
	if task.ID != oid.Hex() {
		t.Fatalf("expected hex id %s, got %s", oid.Hex(), task.ID)
	}
	if task.Order != 3 || task.Category != "In Progress" || !task.CreatedAt.Equal(created) {
		t.Fatalf("unexpected mapping: %#v", task)
	}
}
