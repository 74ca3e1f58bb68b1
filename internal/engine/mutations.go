package engine

import (
	"context"
	"strings"
	"time"

	model "notegrid.app/notegrid/pkg/models"
)

// mutate runs fn against a copy of the record. When fn succeeds the copy
// becomes the record, is written to the Local Cache and its changes are
// handed to the syncer. Without a session or a loaded record it does nothing.
func (e *Engine) mutate(fn func(d *model.UserData, now int64) ([]Change, bool)) bool {
	e.mu.Lock()
	if e.session == nil || e.data == nil {
		e.mu.Unlock()
		return false
	}

	next := e.data.Clone()
	now := e.nowMS()
	changes, ok := fn(&next, now)
	if !ok {
		e.mu.Unlock()
		return false
	}
	next.UpdatedAt = now
	e.data = &next
	e.saveCache(next)
	for _, c := range changes {
		e.session.syncer.Push(c, next.Clone())
	}
	snap := next.Clone()
	e.mu.Unlock()

	e.notify(snap)
	return true
}

// AddTask appends a new task built from partial over the defaults.
func (e *Engine) AddTask(partial model.TaskUpdate) (model.Task, bool) {
	var created model.Task
	ok := e.mutate(func(d *model.UserData, now int64) ([]Change, bool) {
		created = partial.Apply(model.NewTask(e.newID(), now))
		d.Tasks = append(d.Tasks, created)
		return []Change{{Kind: TaskCreated, Task: created.Clone()}}, true
	})
	return created, ok
}

func (e *Engine) UpdateTask(id string, upd model.TaskUpdate) (model.Task, bool) {
	var updated model.Task
	ok := e.mutate(func(d *model.UserData, now int64) ([]Change, bool) {
		i := model.TaskIndex(d.Tasks, id)
		if i < 0 {
			return nil, false
		}
		updated = upd.Apply(d.Tasks[i])
		updated.UpdatedAt = now
		d.Tasks[i] = updated
		return []Change{{Kind: TaskUpdated, ID: id, Update: upd}}, true
	})
	return updated, ok
}

func (e *Engine) DeleteTask(id string) bool {
	return e.mutate(func(d *model.UserData, _ int64) ([]Change, bool) {
		i := model.TaskIndex(d.Tasks, id)
		if i < 0 {
			return nil, false
		}
		d.Tasks = append(d.Tasks[:i], d.Tasks[i+1:]...)
		return []Change{{Kind: TaskDeleted, ID: id}}, true
	})
}

// ReorderTasks puts the listed tasks first, in the given order. The remote
// receives the complete resulting order.
func (e *Engine) ReorderTasks(ids []string) bool {
	return e.mutate(func(d *model.UserData, _ int64) ([]Change, bool) {
		d.Tasks = model.Reorder(d.Tasks, ids, model.TaskID)
		return []Change{{Kind: TasksReordered, IDs: taskIDs(d.Tasks)}}, true
	})
}

// MoveTask applies upd to a task and places it at index within group.
func (e *Engine) MoveTask(id string, upd model.TaskUpdate, index int, group model.Group) bool {
	return e.mutate(func(d *model.UserData, now int64) ([]Change, bool) {
		tasks, ok := model.MoveTask(d.Tasks, id, upd, index, group, now)
		if !ok {
			return nil, false
		}
		d.Tasks = tasks

		changes := make([]Change, 0, 2)
		if !upd.Empty() {
			changes = append(changes, Change{Kind: TaskUpdated, ID: id, Update: upd})
		}
		return append(changes, Change{Kind: TasksReordered, IDs: taskIDs(tasks)}), true
	})
}

// AddLink appends a link built from draft. A draft without a url is refused.
func (e *Engine) AddLink(draft model.LinkDraft) (model.Link, bool) {
	draft.URL = strings.TrimSpace(draft.URL)
	if draft.URL == "" {
		return model.Link{}, false
	}

	var created model.Link
	ok := e.mutate(func(d *model.UserData, now int64) ([]Change, bool) {
		created = draft.Link(e.newID(), now)
		d.Links = append(d.Links, created)
		return []Change{{Kind: LinkCreated, Link: created}}, true
	})
	return created, ok
}

// CaptureLink saves a browsed page as a link unless one with the same URL
// already exists.
func (e *Engine) CaptureLink(rawURL, title string) (model.Link, error) {
	draft, err := draftFromPage(rawURL, title)
	if err != nil {
		return model.Link{}, err
	}

	var created model.Link
	var dup bool
	ok := e.mutate(func(d *model.UserData, now int64) ([]Change, bool) {
		for _, l := range d.Links {
			if l.URL == draft.URL {
				dup = true
				return nil, false
			}
		}
		created = draft.Link(e.newID(), now)
		d.Links = append(d.Links, created)
		return []Change{{Kind: LinkCreated, Link: created}}, true
	})
	switch {
	case dup:
		return model.Link{}, ErrDuplicateLink
	case !ok:
		return model.Link{}, ErrNotAuthenticated
	}
	return created, nil
}

func (e *Engine) DeleteLink(id string) bool {
	return e.mutate(func(d *model.UserData, _ int64) ([]Change, bool) {
		i := model.LinkIndex(d.Links, id)
		if i < 0 {
			return nil, false
		}
		d.Links = append(d.Links[:i], d.Links[i+1:]...)
		return []Change{{Kind: LinkDeleted, ID: id}}, true
	})
}

func (e *Engine) ReorderLinks(ids []string) bool {
	return e.mutate(func(d *model.UserData, _ int64) ([]Change, bool) {
		d.Links = model.Reorder(d.Links, ids, model.LinkID)
		full := make([]string, len(d.Links))
		for i, l := range d.Links {
			full[i] = l.ID
		}
		return []Change{{Kind: LinksReordered, IDs: full}}, true
	})
}

// Import replaces the whole record with the tasks and links in raw.
func (e *Engine) Import(raw []byte) ImportResult {
	imported, err := parseImport(raw, e.nowMS(), e.newID)
	if err != nil {
		return importFailure(err)
	}

	ok := e.mutate(func(d *model.UserData, _ int64) ([]Change, bool) {
		*d = imported
		return []Change{{Kind: Replaced}}, true
	})
	if !ok {
		return ImportResult{Error: ErrNotAuthenticated.Error()}
	}
	return ImportResult{
		Success:       true,
		TasksImported: len(imported.Tasks),
		LinksImported: len(imported.Links),
	}
}

// Export renders the current tasks and links as an indented backup document.
func (e *Engine) Export() ([]byte, error) {
	data, ok := e.Snapshot()
	if !ok {
		return nil, ErrNotAuthenticated
	}
	return encodeExport(data, e.clock())
}

// Flush hands any debounced change to the dispatcher without waiting for it
// to be sent.
func (e *Engine) Flush() {
	e.mu.Lock()
	s := e.session
	e.mu.Unlock()
	if s != nil {
		s.syncer.Flush()
	}
}

func taskIDs(tasks []model.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}

// closeTimeout bounds how long Close waits for pending changes by default.
const closeTimeout = 5 * time.Second

// Shutdown closes the session with a bounded wait.
func (e *Engine) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	e.Close(ctx)
}
