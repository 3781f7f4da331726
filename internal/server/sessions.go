package server

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/portfolio-engine/internal/achievements"
	"github.com/jonathan/portfolio-engine/internal/events"
	"github.com/jonathan/portfolio-engine/internal/scheduler"
	"github.com/jonathan/portfolio-engine/internal/store"
)

// SessionConfig controls how visitor sessions are created and expired.
type SessionConfig struct {
	Store        store.Store         // nil keeps badge state in memory only
	Scheduler    scheduler.Scheduler // nil uses wall-clock timers
	DismissDelay time.Duration
	TTL          time.Duration // idle sessions older than this are swept; 0 disables
	MaxSessions  int           // 0 means unlimited
	Now          func() time.Time
}

// Session is one visitor's achievement engine and the bus that feeds it.
type Session struct {
	ID     string
	Engine *achievements.Engine
	Bus    *events.Bus

	unsubscribe events.Unsubscribe

	mu       sync.Mutex
	lastSeen time.Time
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

func (s *Session) stop() {
	s.unsubscribe()
	s.Engine.Stop()
}

// SessionKey is the store key for a session's badge snapshot.
func SessionKey(id string) string {
	return store.DefaultKey + ":" + id
}

// Sessions tracks active visitor sessions.
type Sessions struct {
	mu       sync.Mutex
	sessions map[string]*Session
	cfg      SessionConfig
	logger   *zap.Logger
}

// NewSessions creates an empty session registry.
func NewSessions(cfg SessionConfig, logger *zap.Logger) *Sessions {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Scheduler == nil {
		cfg.Scheduler = scheduler.Real{}
	}
	if cfg.DismissDelay <= 0 {
		cfg.DismissDelay = achievements.DefaultDismissDelay
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sessions{
		sessions: make(map[string]*Session),
		cfg:      cfg,
		logger:   logger,
	}
}

// Create starts a session. An empty id allocates a new one; a previously used
// id resumes its persisted badges. The bool reports whether a new session was
// started rather than an active one returned.
func (m *Sessions) Create(ctx context.Context, id string) (*Session, bool, error) {
	if id == "" {
		id = uuid.NewString()
	} else {
		parsed, err := uuid.Parse(id)
		if err != nil {
			return nil, false, &ErrValidation{Field: "id", Message: "must be a UUID"}
		}
		id = parsed.String()
	}

	if existing, ok := m.lookup(id); ok {
		return existing, false, nil
	}
	if err := m.checkCapacity(); err != nil {
		return nil, false, err
	}

	opts := []achievements.Option{
		achievements.WithScheduler(m.cfg.Scheduler),
		achievements.WithDismissDelay(m.cfg.DismissDelay),
		achievements.WithLogger(m.logger.With(zap.String("session", id))),
	}
	if m.cfg.Store != nil {
		opts = append(opts, achievements.WithStore(m.cfg.Store, SessionKey(id)))
	}
	engine := achievements.New(nil, opts...)
	bus := events.NewBus()
	sess := &Session{
		ID:          id,
		Engine:      engine,
		Bus:         bus,
		unsubscribe: engine.Subscribe(bus),
		lastSeen:    m.cfg.Now(),
	}
	// Rehydration reads the store, so it runs outside the registry lock.
	engine.Start(ctx)

	m.mu.Lock()
	if existing, ok := m.sessions[id]; ok {
		m.mu.Unlock()
		sess.stop()
		return existing, false, nil
	}
	if m.cfg.MaxSessions > 0 && len(m.sessions) >= m.cfg.MaxSessions {
		m.mu.Unlock()
		sess.stop()
		return nil, false, &ErrTooManySessions{Limit: m.cfg.MaxSessions}
	}
	m.sessions[id] = sess
	m.mu.Unlock()

	m.logger.Debug("session started", zap.String("session", id))
	return sess, true, nil
}

func (m *Sessions) lookup(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	if ok {
		sess.touch(m.cfg.Now())
	}
	return sess, ok
}

func (m *Sessions) checkCapacity() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cfg.MaxSessions > 0 && len(m.sessions) >= m.cfg.MaxSessions {
		return &ErrTooManySessions{Limit: m.cfg.MaxSessions}
	}
	return nil
}

// Get returns an active session and marks it as seen.
func (m *Sessions) Get(id string) (*Session, error) {
	sess, ok := m.lookup(id)
	if !ok {
		return nil, &ErrSessionNotFound{ID: id}
	}
	return sess, nil
}

// Delete ends a session and erases its persisted badges.
func (m *Sessions) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	sess, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return &ErrSessionNotFound{ID: id}
	}

	err := sess.Engine.Reset(ctx)
	sess.stop()
	return err
}

// Sweep stops sessions idle for longer than the TTL. Their persisted badges
// stay in the store so the visitor can resume later.
func (m *Sessions) Sweep() int {
	if m.cfg.TTL <= 0 {
		return 0
	}
	cutoff := m.cfg.Now().Add(-m.cfg.TTL)

	var expired []*Session
	m.mu.Lock()
	for id, sess := range m.sessions {
		if sess.idleSince().Before(cutoff) {
			expired = append(expired, sess)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, sess := range expired {
		sess.stop()
	}
	if len(expired) > 0 {
		m.logger.Info("expired idle sessions", zap.Int("count", len(expired)))
	}
	return len(expired)
}

// Len reports the number of active sessions.
func (m *Sessions) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Close stops every session.
func (m *Sessions) Close() {
	m.mu.Lock()
	all := make([]*Session, 0, len(m.sessions))
	for id, sess := range m.sessions {
		all = append(all, sess)
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	for _, sess := range all {
		sess.stop()
	}
}
