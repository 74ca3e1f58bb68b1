package model

import (
	"fmt"
	"slices"
)

// Reorder places the entities named by ids first, in that order, followed by
// every entity that was not named, in its previous relative order. Unknown
// and repeated ids are skipped, so the result is always a permutation of items.
func Reorder[T any](items []T, ids []string, idOf func(T) string) []T {
	byID := make(map[string]T, len(items))
	for _, it := range items {
		byID[idOf(it)] = it
	}

	listed := make(map[string]struct{}, len(ids))
	out := make([]T, 0, len(items))
	for _, id := range ids {
		if _, seen := listed[id]; seen {
			continue
		}
		it, ok := byID[id]
		if !ok {
			continue
		}
		listed[id] = struct{}{}
		out = append(out, it)
	}

	for _, it := range items {
		if _, ok := listed[idOf(it)]; !ok {
			out = append(out, it)
		}
	}
	return out
}

// GroupField names the task attribute a board column is keyed on.
type GroupField string

const (
	GroupQuadrant GroupField = "q"
	GroupKanban   GroupField = "kanban"
	GroupColor    GroupField = "color"
)

func ParseGroupField(s string) (GroupField, error) {
	switch f := GroupField(s); f {
	case GroupQuadrant, GroupKanban, GroupColor:
		return f, nil
	case "quadrant":
		return GroupQuadrant, nil
	default:
		return "", fmt.Errorf("unknown group field %q", s)
	}
}

// Group identifies a column: every task whose Field equals Value. An empty
// Value selects the tasks where the field is unset.
type Group struct {
	Field GroupField
	Value string
}

func (g Group) Contains(t Task) bool {
	switch g.Field {
	case GroupQuadrant:
		return string(t.Quadrant) == g.Value
	case GroupKanban:
		return string(t.Kanban) == g.Value
	case GroupColor:
		return t.Color == g.Value
	default:
		return false
	}
}

// MoveTask applies upd to the task with the given id and splices it into
// group at index. The result is every task outside the group, in its prior
// relative order, followed by the group's tasks. index is clamped to the
// group's bounds. ok is false when no task has that id.
func MoveTask(tasks []Task, id string, upd TaskUpdate, index int, group Group, now int64) (out []Task, ok bool) {
	pos := TaskIndex(tasks, id)
	if pos < 0 {
		return tasks, false
	}

	moved := upd.Apply(tasks[pos])
	moved.UpdatedAt = now

	var target, other []Task
	for i, t := range tasks {
		if i == pos {
			continue
		}
		if group.Contains(t) {
			target = append(target, t)
		} else {
			other = append(other, t)
		}
	}

	index = max(0, min(index, len(target)))
	target = slices.Insert(target, index, moved)

	out = make([]Task, 0, len(tasks))
	out = append(out, other...)
	return append(out, target...), true
}
