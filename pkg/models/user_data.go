package model

import "slices"

// UserData is the whole record owned by one identity. Task and link order is
// significant.
type UserData struct {
	Tasks     []Task `json:"tasks"`
	Links     []Link `json:"links"`
	CreatedAt int64  `json:"createdAt"`
	UpdatedAt int64  `json:"updatedAt"`
}

func NewUserData(now int64) UserData {
	return UserData{
		Tasks:     []Task{},
		Links:     []Link{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Normalize replaces nil collections with empty ones so the record always
// serializes with arrays.
func (d *UserData) Normalize() {
	if d.Tasks == nil {
		d.Tasks = []Task{}
	}
	if d.Links == nil {
		d.Links = []Link{}
	}
	for i := range d.Tasks {
		if d.Tasks[i].Tags == nil {
			d.Tasks[i].Tags = []string{}
		}
	}
}

func (d UserData) Clone() UserData {
	out := d
	out.Tasks = make([]Task, len(d.Tasks))
	for i, t := range d.Tasks {
		out.Tasks[i] = t.Clone()
	}
	out.Links = slices.Clone(d.Links)
	if out.Links == nil {
		out.Links = []Link{}
	}
	return out
}

func TaskIndex(tasks []Task, id string) int {
	return slices.IndexFunc(tasks, func(t Task) bool { return t.ID == id })
}

func LinkIndex(links []Link, id string) int {
	return slices.IndexFunc(links, func(l Link) bool { return l.ID == id })
}

// MaxIDLength is the longest task or link id the API stores.
const MaxIDLength = 128

// ValidID reports whether id can be stored as a task or link id.
func ValidID(id string) bool {
	return id != "" && len(id) <= MaxIDLength
}

func TaskID(t Task) string { return t.ID }

func LinkID(l Link) string { return l.ID }
