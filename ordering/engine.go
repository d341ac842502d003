// Package ordering implements the board's drag-and-drop model as a pure
// transformation: given the owner's current tasks and a move descriptor it
// produces a new snapshot plus the minimal set of order patches to persist.
//
// Only the destination column is renumbered. When a task leaves a column the
// source column keeps its existing numbering, so it may be left with a gap;
// readers sort by order, so display is unaffected. Callers that want dense
// numbering on both sides must issue a second move or a bulk order update.
package ordering

import (
	"fmt"
	"sort"

	"taskflow-api/domain"
)

// Move describes a completed drag gesture. Indexes are positions within the
// order-sorted view of the named category, not positions in the raw list.
type Move struct {
	SourceCategory string `json:"sourceCategory"`
	SourceIndex    int    `json:"sourceIndex"`
	DestCategory   string `json:"destCategory"`
	DestIndex      int    `json:"destIndex"`
}

// Patch records one task whose persisted position changed. Category is empty
// unless the task switched columns, which only happens for the moved task.
type Patch struct {
	TaskID   string
	Order    int
	Category string
}

// Result is the outcome of applying a Move.
type Result struct {
	// Tasks is a fresh snapshot with the move applied; the input is never
	// mutated. Slice positions mirror the input.
	Tasks []domain.Task
	// Moved is the dragged task after the move.
	Moved domain.Task
	// Patches lists every task whose order or category changed, and nothing
	// else. Tasks outside the destination category never appear.
	Patches []Patch
}

// IndexError reports a move descriptor that does not match the snapshot.
type IndexError struct {
	Category string
	Index    int
	Size     int
}

func (e IndexError) Error() string {
	return fmt.Sprintf("index %d out of range for category %q (%d tasks)", e.Index, e.Category, e.Size)
}

// Apply computes the effect of mv on tasks.
func Apply(tasks []domain.Task, mv Move) (Result, error) {
	if !domain.ValidCategory(mv.SourceCategory) {
		return Result{}, domain.ValidationError{Field: "sourceCategory", Reason: "unknown category"}
	}
	if !domain.ValidCategory(mv.DestCategory) {
		return Result{}, domain.ValidationError{Field: "destCategory", Reason: "unknown category"}
	}
	if mv.SourceIndex < 0 || mv.DestIndex < 0 {
		return Result{}, domain.ValidationError{Field: "index", Reason: "must not be negative"}
	}

	snapshot := make([]domain.Task, len(tasks))
	copy(snapshot, tasks)

	source := categoryView(snapshot, mv.SourceCategory)
	if mv.SourceIndex >= len(source) {
		return Result{}, IndexError{Category: mv.SourceCategory, Index: mv.SourceIndex, Size: len(source)}
	}
	movedIdx := source[mv.SourceIndex]

	snapshot[movedIdx].Category = mv.DestCategory

	dest := categoryView(snapshot, mv.DestCategory)
	dest = remove(dest, movedIdx)
	at := mv.DestIndex
	if at > len(dest) {
		at = len(dest)
	}
	dest = insert(dest, at, movedIdx)

	var patches []Patch
	for pos, idx := range dest {
		orderChanged := tasks[idx].Order != pos
		categoryChanged := tasks[idx].Category != snapshot[idx].Category
		snapshot[idx].Order = pos
		if !orderChanged && !categoryChanged {
			continue
		}
		p := Patch{TaskID: snapshot[idx].ID, Order: pos}
		if categoryChanged {
			p.Category = snapshot[idx].Category
		}
		patches = append(patches, p)
	}

	return Result{Tasks: snapshot, Moved: snapshot[movedIdx], Patches: patches}, nil
}

// categoryView returns indexes into tasks for the given category, sorted by
// order. Ties keep their relative slice positions.
func categoryView(tasks []domain.Task, category string) []int {
	var view []int
	for i := range tasks {
		if tasks[i].Category == category {
			view = append(view, i)
		}
	}
	sort.SliceStable(view, func(a, b int) bool {
		return tasks[view[a]].Order < tasks[view[b]].Order
	})
	return view
}

func remove(view []int, idx int) []int {
	out := view[:0]
	for _, v := range view {
		if v != idx {
			out = append(out, v)
		}
	}
	return out
}

func insert(view []int, at, idx int) []int {
	view = append(view, 0)
	copy(view[at+1:], view[at:])
	view[at] = idx
	return view
}
