// Package engine is the client-side Reconciliation Engine. It owns the
// in-memory record, applies mutations optimistically, mirrors the record to
// the Local Cache and pushes changes to the remote store in the background.
// The remote store is authoritative: every refresh overwrites local state.
package engine

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	config "notegrid.app/notegrid/internal/configs"
	"notegrid.app/notegrid/internal/identity"
	"notegrid.app/notegrid/internal/localstore"
	"notegrid.app/notegrid/internal/remote"
	model "notegrid.app/notegrid/pkg/models"
)

var ErrNotAuthenticated = errors.New("not authenticated")

type Option func(*Engine)

func WithLogger(l *log.Logger) Option { return func(e *Engine) { e.logger = l } }

// WithSyncMode selects config.SyncModeDocument or config.SyncModeField.
func WithSyncMode(mode string) Option { return func(e *Engine) { e.syncMode = mode } }

func WithDebounce(d time.Duration) Option { return func(e *Engine) { e.debounce = d } }

func WithRefreshInterval(d time.Duration) Option {
	return func(e *Engine) { e.refreshInterval = d }
}

func WithRequestTimeout(d time.Duration) Option {
	return func(e *Engine) { e.requestTimeout = d }
}

func WithQueueSize(n int) Option { return func(e *Engine) { e.queueSize = n } }

func WithClock(now func() time.Time) Option { return func(e *Engine) { e.clock = now } }

func WithIDGenerator(fn func() string) Option { return func(e *Engine) { e.newID = fn } }

// OnChange registers fn to receive a copy of the record after every load,
// refresh and mutation.
func OnChange(fn func(model.UserData)) Option { return func(e *Engine) { e.onChange = fn } }

type Engine struct {
	dial            Dialer
	ids             *identity.Provider
	cache           localCache
	logger          *log.Logger
	syncMode        string
	debounce        time.Duration
	refreshInterval time.Duration
	requestTimeout  time.Duration
	queueSize       int
	clock           func() time.Time
	newID           func() string
	onChange        func(model.UserData)

	mu      sync.Mutex
	session *session
	data    *model.UserData
	loading bool
}

// session is everything bound to one active identity.
type session struct {
	identity   string
	remote     Remote
	syncer     Syncer
	dispatcher *Dispatcher

	stop     chan struct{}
	stopOnce sync.Once
	loopWG   sync.WaitGroup
	started  bool
}

func New(dial Dialer, store localstore.Store, opts ...Option) *Engine {
	e := &Engine{
		dial:            dial,
		ids:             identity.NewProvider(store),
		cache:           localCache{store: store},
		logger:          log.StandardLogger(),
		syncMode:        config.SyncModeDocument,
		debounce:        300 * time.Millisecond,
		refreshInterval: 30 * time.Second,
		requestTimeout:  10 * time.Second,
		queueSize:       256,
		clock:           time.Now,
		newID:           identity.Generate,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) nowMS() int64 { return e.clock().UnixMilli() }

func (e *Engine) requestContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, e.requestTimeout)
}

func (e *Engine) newSession(id string) *session {
	r := e.dial(id)
	d := NewDispatcher(e.queueSize, e.logger, func() (context.Context, context.CancelFunc) {
		return e.requestContext(context.Background())
	})

	var s Syncer
	if e.syncMode == config.SyncModeField {
		s = NewFieldSyncer(r, d)
	} else {
		s = NewDocumentSyncer(r, d, e.debounce)
	}
	return &session{
		identity:   id,
		remote:     r,
		syncer:     s,
		dispatcher: d,
		stop:       make(chan struct{}),
	}
}

func (s *session) stopLoop() {
	s.stopOnce.Do(func() { close(s.stop) })
	s.loopWG.Wait()
}

// end stops the refresh loop and delivers every pending change.
func (s *session) end(ctx context.Context) {
	s.stopLoop()
	s.syncer.Flush()
	s.dispatcher.Shutdown(ctx)
}

func (e *Engine) notify(data model.UserData) {
	if e.onChange != nil {
		e.onChange(data)
	}
}

// Open resumes the session of the persisted identity, if there is one.
func (e *Engine) Open(ctx context.Context) (string, error) {
	id, err := e.ids.Current(ctx)
	if err != nil || id == "" {
		return "", err
	}
	e.Load(ctx, id)
	return id, nil
}

// Load starts a session for id. Cached state is shown first; the remote
// record then replaces it. When the remote is unreachable the cached record,
// or an empty one, stands.
func (e *Engine) Load(ctx context.Context, id string) {
	s := e.newSession(id)

	e.mu.Lock()
	prev := e.session
	e.session = s
	e.data = nil
	e.loading = true
	cached, ok, err := e.cache.load(ctx)
	if err != nil {
		e.logger.WithError(err).Warn("local cache unreadable")
	}
	if ok {
		e.data = &cached
	}
	e.mu.Unlock()

	if prev != nil {
		prev.end(ctx)
	}
	if ok {
		e.notify(cached.Clone())
	}

	rctx, cancel := e.requestContext(ctx)
	data, err := s.remote.FetchUserData(rctx)
	cancel()

	e.mu.Lock()
	if e.session != s {
		e.mu.Unlock()
		return
	}
	if err != nil {
		e.logger.WithError(err).Warn("initial fetch failed, using local state")
		if e.data == nil {
			empty := model.NewUserData(e.nowMS())
			e.data = &empty
		}
	} else {
		e.data = &data
		e.saveCache(data)
	}
	e.loading = false
	snap := e.data.Clone()
	e.mu.Unlock()

	e.notify(snap)
}

// Refresh overwrites local state with the remote record.
func (e *Engine) Refresh(ctx context.Context) error {
	e.mu.Lock()
	s := e.session
	e.mu.Unlock()
	if s == nil {
		return nil
	}

	rctx, cancel := e.requestContext(ctx)
	data, err := s.remote.FetchUserData(rctx)
	cancel()
	if err != nil {
		e.logger.WithError(err).Warn("refresh failed")
		return err
	}

	e.mu.Lock()
	if e.session != s {
		e.mu.Unlock()
		return nil
	}
	e.data = &data
	e.saveCache(data)
	snap := data.Clone()
	e.mu.Unlock()

	e.notify(snap)
	return nil
}

// Focus is called when the application regains visibility.
func (e *Engine) Focus(ctx context.Context) {
	_ = e.Refresh(ctx)
}

// Start begins periodic refreshes for the current session.
func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.session
	if s == nil || s.started {
		return
	}
	s.started = true
	s.loopWG.Add(1)
	go e.refreshLoop(s)
}

func (e *Engine) refreshLoop(s *session) {
	defer s.loopWG.Done()

	ticker := time.NewTicker(e.refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_ = e.Refresh(context.Background())
		case <-s.stop:
			return
		}
	}
}

// Stop ends periodic refreshes. The session stays open.
func (e *Engine) Stop() {
	e.mu.Lock()
	s := e.session
	e.mu.Unlock()
	if s != nil {
		s.stopLoop()
	}
}

// Close ends the session, sending any pending changes first. The last known
// record remains readable.
func (e *Engine) Close(ctx context.Context) {
	e.mu.Lock()
	s := e.session
	e.session = nil
	e.loading = false
	e.mu.Unlock()

	if s != nil {
		s.end(ctx)
	}
}

// Login adopts an existing code, registering it first when the server does
// not know it yet.
func (e *Engine) Login(ctx context.Context, code string) (string, error) {
	id := identity.Normalize(code)
	if !identity.Validate(id) {
		return "", identity.ErrInvalidFormat
	}

	r := e.dial(id)
	rctx, cancel := e.requestContext(ctx)
	defer cancel()

	exists, err := r.CheckExists(rctx, id)
	if err != nil {
		return "", err
	}
	if !exists {
		if _, err := r.RegisterIdentity(rctx, id); err != nil && !isConflict(err) {
			return "", err
		}
	}
	return id, e.adopt(ctx, id)
}

// Register creates a fresh identity on the server and opens it.
func (e *Engine) Register(ctx context.Context) (string, error) {
	id := identity.Generate()

	rctx, cancel := e.requestContext(ctx)
	defer cancel()
	if _, err := e.dial(id).RegisterIdentity(rctx, id); err != nil {
		return "", err
	}
	return id, e.adopt(ctx, id)
}

func (e *Engine) adopt(ctx context.Context, id string) error {
	current, err := e.ids.Current(ctx)
	if err != nil {
		return err
	}
	if current != id {
		if err := e.ids.Clear(ctx); err != nil {
			return err
		}
	}
	if _, err := e.ids.Persist(ctx, id); err != nil {
		return err
	}
	e.Load(ctx, id)
	return nil
}

// Logout ends the session and forgets the identity and the Local Cache.
func (e *Engine) Logout(ctx context.Context) error {
	e.Close(ctx)

	e.mu.Lock()
	e.data = nil
	e.mu.Unlock()

	return e.ids.Clear(ctx)
}

// DeleteAccount removes the account on the server, then logs out.
func (e *Engine) DeleteAccount(ctx context.Context) error {
	e.mu.Lock()
	s := e.session
	e.mu.Unlock()
	if s == nil {
		return ErrNotAuthenticated
	}

	rctx, cancel := e.requestContext(ctx)
	defer cancel()
	if err := s.remote.DeleteAccount(rctx); err != nil {
		return err
	}
	return e.Logout(ctx)
}

func isConflict(err error) bool {
	var apiErr *remote.APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusConflict
}

func (e *Engine) saveCache(data model.UserData) {
	if err := e.cache.save(context.Background(), data); err != nil {
		e.logger.WithError(err).Warn("local cache write failed")
	}
}

// Identity returns the identity of the open session, or "".
func (e *Engine) Identity() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return ""
	}
	return e.session.identity
}

func (e *Engine) Loading() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loading
}

// Snapshot returns a copy of the record; ok is false before the first load.
func (e *Engine) Snapshot() (model.UserData, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.data == nil {
		return model.UserData{}, false
	}
	return e.data.Clone(), true
}

func (e *Engine) Tasks() []model.Task {
	data, _ := e.Snapshot()
	return data.Tasks
}

func (e *Engine) Links() []model.Link {
	data, _ := e.Snapshot()
	return data.Links
}
