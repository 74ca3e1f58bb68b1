package model

import (
	"encoding/json"
	"slices"
)

// Quadrant is the Eisenhower-matrix category of a task. The zero value means
// the task is not placed in any quadrant and travels as JSON null.
type Quadrant string

const (
	QuadrantNone     Quadrant = ""
	QuadrantDo       Quadrant = "do"
	QuadrantDecide   Quadrant = "decide"
	QuadrantDelegate Quadrant = "delegate"
	QuadrantDelete   Quadrant = "delete"
)

func (q Quadrant) Valid() bool {
	switch q {
	case QuadrantNone, QuadrantDo, QuadrantDecide, QuadrantDelegate, QuadrantDelete:
		return true
	default:
		return false
	}
}

func (q Quadrant) MarshalJSON() ([]byte, error) {
	return marshalNullableString(string(q))
}

func (q *Quadrant) UnmarshalJSON(b []byte) error {
	s, err := unmarshalNullableString(b)
	if err != nil {
		return err
	}
	*q = Quadrant(s)
	return nil
}

// KanbanStatus is the workflow column of a task. The zero value means none.
type KanbanStatus string

const (
	KanbanNone       KanbanStatus = ""
	KanbanBacklog    KanbanStatus = "backlog"
	KanbanTodo       KanbanStatus = "todo"
	KanbanInProgress KanbanStatus = "in-progress"
	KanbanDone       KanbanStatus = "done"
)

func (k KanbanStatus) Valid() bool {
	switch k {
	case KanbanNone, KanbanBacklog, KanbanTodo, KanbanInProgress, KanbanDone:
		return true
	default:
		return false
	}
}

func (k KanbanStatus) MarshalJSON() ([]byte, error) {
	return marshalNullableString(string(k))
}

func (k *KanbanStatus) UnmarshalJSON(b []byte) error {
	s, err := unmarshalNullableString(b)
	if err != nil {
		return err
	}
	*k = KanbanStatus(s)
	return nil
}

// Palette holds the only colors a task may carry, in display order.
var Palette = []string{
	"#ef4444",
	"#22c55e",
	"#f97316",
	"#3b82f6",
	"#8b5cf6",
	"#ec4899",
	"#14b8a6",
	"#facc15",
	"#64748b",
	"#0f172a",
}

// DefaultColor is assigned to tasks created without a color.
var DefaultColor = Palette[0]

func ValidColor(c string) bool {
	return slices.Contains(Palette, c)
}

type Task struct {
	ID        string       `json:"id"`
	Title     string       `json:"title"`
	Note      string       `json:"note"`
	Tags      []string     `json:"tags"`
	Color     string       `json:"color"`
	Quadrant  Quadrant     `json:"q"`
	Kanban    KanbanStatus `json:"kanban"`
	Completed bool         `json:"completed"`
	CreatedAt int64        `json:"createdAt"`
	UpdatedAt int64        `json:"updatedAt"`
}

// NewTask returns a task with every field at its documented default.
func NewTask(id string, now int64) Task {
	return Task{
		ID:        id,
		Tags:      []string{},
		Color:     DefaultColor,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (t Task) Clone() Task {
	t.Tags = slices.Clone(t.Tags)
	if t.Tags == nil {
		t.Tags = []string{}
	}
	return t
}

// TaskUpdate is a partial task. Fields that are not Set are left untouched
// when the update is applied.
type TaskUpdate struct {
	Title     Optional[string]       `json:"title,omitzero"`
	Note      Optional[string]       `json:"note,omitzero"`
	Tags      Optional[[]string]     `json:"tags,omitzero"`
	Color     Optional[string]       `json:"color,omitzero"`
	Quadrant  Optional[Quadrant]     `json:"q,omitzero"`
	Kanban    Optional[KanbanStatus] `json:"kanban,omitzero"`
	Completed Optional[bool]         `json:"completed,omitzero"`
}

// Empty reports whether the update carries no field at all.
func (u TaskUpdate) Empty() bool {
	return !u.Title.Set && !u.Note.Set && !u.Tags.Set && !u.Color.Set &&
		!u.Quadrant.Set && !u.Kanban.Set && !u.Completed.Set
}

// MarshalJSON writes only the fields that are Set, so an unset nullable field
// is never confused with an explicit null by the receiver.
func (u TaskUpdate) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, 7)
	put := func(key string, set bool, v any) {
		if set {
			m[key] = v
		}
	}
	put("title", u.Title.Set, u.Title)
	put("note", u.Note.Set, u.Note)
	put("tags", u.Tags.Set, u.Tags)
	put("color", u.Color.Set, u.Color)
	put("q", u.Quadrant.Set, u.Quadrant)
	put("kanban", u.Kanban.Set, u.Kanban)
	put("completed", u.Completed.Set, u.Completed)
	return json.Marshal(m)
}

// Apply returns t with the update merged in. An explicit null clears the
// nullable fields (q, kanban) and is ignored on every other field.
func (u TaskUpdate) Apply(t Task) Task {
	out := t.Clone()
	if u.Title.Present() {
		out.Title = u.Title.Value
	}
	if u.Note.Present() {
		out.Note = u.Note.Value
	}
	if u.Tags.Present() {
		out.Tags = slices.Clone(u.Tags.Value)
		if out.Tags == nil {
			out.Tags = []string{}
		}
	}
	if u.Color.Present() {
		out.Color = u.Color.Value
	}
	if u.Quadrant.Set {
		out.Quadrant = u.Quadrant.Value
	}
	if u.Kanban.Set {
		out.Kanban = u.Kanban.Value
	}
	if u.Completed.Present() {
		out.Completed = u.Completed.Value
	}
	return out
}

func marshalNullableString(s string) ([]byte, error) {
	if s == "" {
		return []byte("null"), nil
	}
	return json.Marshal(s)
}

func unmarshalNullableString(b []byte) (string, error) {
	if string(b) == "null" {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return "", err
	}
	return s, nil
}
