package engine

import (
	"context"
	"sync"
	"time"

	model "notegrid.app/notegrid/pkg/models"
)

type ChangeKind int

const (
	TaskCreated ChangeKind = iota
	TaskUpdated
	TaskDeleted
	TasksReordered
	LinkCreated
	LinkDeleted
	LinksReordered
	// Replaced means the whole record was swapped out, as on import.
	Replaced
)

func (k ChangeKind) String() string {
	switch k {
	case TaskCreated:
		return "task.create"
	case TaskUpdated:
		return "task.update"
	case TaskDeleted:
		return "task.delete"
	case TasksReordered:
		return "task.reorder"
	case LinkCreated:
		return "link.create"
	case LinkDeleted:
		return "link.delete"
	case LinksReordered:
		return "link.reorder"
	case Replaced:
		return "data.replace"
	default:
		return "unknown"
	}
}

// Change describes one local mutation. Only the fields relevant to Kind are
// set.
type Change struct {
	Kind   ChangeKind
	ID     string
	Task   model.Task
	Update model.TaskUpdate
	Link   model.Link
	IDs    []string
}

// Syncer pushes local mutations to the remote store. Push must not block on
// the network.
type Syncer interface {
	Push(c Change, snapshot model.UserData)
	// Flush sends anything still held back.
	Flush()
}

// DocumentSyncer coalesces mutations into one whole-record PUT sent after
// the debounce window has been quiet.
type DocumentSyncer struct {
	remote     Remote
	dispatcher *Dispatcher
	debounce   time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	gen     uint64
	pending *model.UserData
}

func NewDocumentSyncer(remote Remote, d *Dispatcher, debounce time.Duration) *DocumentSyncer {
	return &DocumentSyncer{remote: remote, dispatcher: d, debounce: debounce}
}

func (s *DocumentSyncer) Push(_ Change, snapshot model.UserData) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending = &snapshot
	s.stopTimerLocked()
	if s.debounce <= 0 {
		s.sendLocked()
		return
	}
	gen := s.gen
	s.timer = time.AfterFunc(s.debounce, func() { s.fire(gen) })
}

// fire runs when a debounce window closes. A callback whose window was
// superseded by a later Push or Flush does nothing.
func (s *DocumentSyncer) fire(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen {
		return
	}
	s.timer = nil
	s.sendLocked()
}

func (s *DocumentSyncer) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopTimerLocked()
	s.sendLocked()
}

func (s *DocumentSyncer) stopTimerLocked() {
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *DocumentSyncer) sendLocked() {
	if s.pending == nil {
		return
	}
	data := *s.pending
	s.pending = nil
	s.dispatcher.Enqueue(Replaced.String(), func(ctx context.Context) error {
		_, err := s.remote.ReplaceUserData(ctx, data)
		return err
	})
}

// FieldSyncer sends one targeted request per mutation, in mutation order.
type FieldSyncer struct {
	remote     Remote
	dispatcher *Dispatcher
}

func NewFieldSyncer(remote Remote, d *Dispatcher) *FieldSyncer {
	return &FieldSyncer{remote: remote, dispatcher: d}
}

func (s *FieldSyncer) Push(c Change, snapshot model.UserData) {
	r := s.remote
	var fn func(ctx context.Context) error

	switch c.Kind {
	case TaskCreated:
		fn = func(ctx context.Context) error {
			_, err := r.CreateTask(ctx, c.Task)
			return err
		}
	case TaskUpdated:
		fn = func(ctx context.Context) error {
			_, err := r.UpdateTask(ctx, c.ID, c.Update)
			return err
		}
	case TaskDeleted:
		fn = func(ctx context.Context) error { return r.DeleteTask(ctx, c.ID) }
	case TasksReordered:
		fn = func(ctx context.Context) error { return r.ReorderTasks(ctx, c.IDs) }
	case LinkCreated:
		fn = func(ctx context.Context) error {
			_, err := r.CreateLink(ctx, c.Link)
			return err
		}
	case LinkDeleted:
		fn = func(ctx context.Context) error { return r.DeleteLink(ctx, c.ID) }
	case LinksReordered:
		fn = func(ctx context.Context) error { return r.ReorderLinks(ctx, c.IDs) }
	case Replaced:
		fn = func(ctx context.Context) error {
			_, err := r.ReplaceUserData(ctx, snapshot)
			return err
		}
	default:
		return
	}
	s.dispatcher.Enqueue(c.Kind.String(), fn)
}

func (s *FieldSyncer) Flush() {}
