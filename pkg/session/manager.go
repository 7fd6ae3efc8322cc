package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/aretw0/ttystep"
	"github.com/aretw0/ttystep/internal/logging"
	"github.com/aretw0/ttystep/pkg/domain"
	"github.com/aretw0/ttystep/pkg/ports"
	"github.com/google/uuid"
)

// DefaultLockTTL bounds how long a distributed session lock is held.
const DefaultLockTTL = 30 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// StartFunc creates a session. ttystep.Start is the default.
type StartFunc func(ctx context.Context, opts ...ttystep.Option) (*ttystep.Session, error)

// Manager orchestrates live sessions, ensuring one driver per session.
// It uses reference counting to garbage collect unused locks.
type Manager struct {
	store ports.SessionStore
	start StartFunc

	mu    sync.Mutex            // Global lock for the map
	locks map[string]*lockEntry // Map of active locks

	liveMu sync.RWMutex
	live   map[string]*ttystep.Session

	recordingDir string
	defaults     []ttystep.Option
	locker       ports.DistributedLocker
	lockTTL      time.Duration
	logger       *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the distributed lock TTL.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		m.lockTTL = ttl
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithRecordingDir places each session's recording at <dir>/<id>.ttyrec.
func WithRecordingDir(dir string) Option {
	return func(m *Manager) {
		m.recordingDir = dir
	}
}

// WithDefaults applies opts to every session before the per-call options.
func WithDefaults(opts ...ttystep.Option) Option {
	return func(m *Manager) {
		m.defaults = append(m.defaults, opts...)
	}
}

// WithStartFunc replaces the session constructor.
func WithStartFunc(fn StartFunc) Option {
	return func(m *Manager) {
		m.start = fn
	}
}

// NewManager creates a new Session Manager with the given persistence store.
func NewManager(store ports.SessionStore, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		start:   ttystep.Start,
		locks:   make(map[string]*lockEntry),
		live:    make(map[string]*ttystep.Session),
		lockTTL: DefaultLockTTL,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(sessionID) after unlocking.
func (m *Manager) acquire(sessionID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		entry = &lockEntry{}
		m.locks[sessionID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, sessionID)
	}
}

// Create starts a new session under a fresh ID and persists its info.
func (m *Manager) Create(ctx context.Context, opts ...ttystep.Option) (*ttystep.Session, error) {
	id := uuid.NewString()
	if m.recordingDir != "" {
		if err := os.MkdirAll(m.recordingDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create recording directory: %w", err)
		}
	}

	all := []ttystep.Option{ttystep.WithSessionID(id), ttystep.WithLogger(m.logger)}
	if m.recordingDir != "" {
		all = append(all, ttystep.WithRecording(filepath.Join(m.recordingDir, id+".ttyrec")))
	}
	all = append(all, m.defaults...)
	all = append(all, opts...)
	// The ID is not negotiable: it keys the lock, the store and the live map.
	all = append(all, ttystep.WithSessionID(id))

	var sess *ttystep.Session
	err := m.WithLock(ctx, id, func(ctx context.Context) error {
		var err error
		sess, err = m.start(ctx, all...)
		if err != nil {
			return err
		}

		m.liveMu.Lock()
		m.live[id] = sess
		m.liveMu.Unlock()

		return m.persist(ctx, sess)
	})
	return sess, err
}

// Step feeds one action to the session and returns its completion flag and observation.
func (m *Manager) Step(ctx context.Context, sessionID string, action domain.Action) (bool, []byte, error) {
	var (
		done bool
		obs  []byte
	)
	err := m.withSession(ctx, sessionID, func(ctx context.Context, sess *ttystep.Session) error {
		var err error
		done, err = sess.Step(ctx, action)
		obs = sess.Observation()
		return m.persistAfter(ctx, sess, err)
	})
	return done, obs, err
}

// Reset restores the session's program and returns the initial observation.
func (m *Manager) Reset(ctx context.Context, sessionID string) ([]byte, error) {
	var obs []byte
	err := m.withSession(ctx, sessionID, func(ctx context.Context, sess *ttystep.Session) error {
		err := sess.Reset(ctx)
		obs = sess.Observation()
		return m.persistAfter(ctx, sess, err)
	})
	return obs, err
}

// End terminates a live session. Its info stays in the store.
func (m *Manager) End(ctx context.Context, sessionID string) error {
	return m.withSession(ctx, sessionID, func(ctx context.Context, sess *ttystep.Session) error {
		err := sess.End()
		m.liveMu.Lock()
		delete(m.live, sessionID)
		m.liveMu.Unlock()
		return m.persistAfter(ctx, sess, err)
	})
}

// Delete ends the session if it is live and removes it from the store.
func (m *Manager) Delete(ctx context.Context, sessionID string) error {
	return m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		m.liveMu.Lock()
		sess, ok := m.live[sessionID]
		delete(m.live, sessionID)
		m.liveMu.Unlock()

		if ok {
			if err := sess.End(); err != nil {
				m.logger.Warn("Session ended with error", "session_id", sessionID, "err", err)
			}
		}
		return m.store.Delete(ctx, sessionID)
	})
}

// Get returns the session's info, live or persisted.
func (m *Manager) Get(ctx context.Context, sessionID string) (*domain.SessionInfo, error) {
	if sess, ok := m.Session(sessionID); ok {
		info := sess.Info()
		return &info, nil
	}
	return m.store.Load(ctx, sessionID)
}

// List returns the info of every known session.
func (m *Manager) List(ctx context.Context) ([]*domain.SessionInfo, error) {
	ids, err := m.store.List(ctx)
	if err != nil {
		return nil, err
	}
	infos := make([]*domain.SessionInfo, 0, len(ids))
	for _, id := range ids {
		info, err := m.Get(ctx, id)
		if errors.Is(err, domain.ErrSessionNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// Session returns the live session with the given ID.
func (m *Manager) Session(sessionID string) (*ttystep.Session, bool) {
	m.liveMu.RLock()
	defer m.liveMu.RUnlock()
	sess, ok := m.live[sessionID]
	return sess, ok
}

// Close ends every live session.
func (m *Manager) Close(ctx context.Context) error {
	m.liveMu.RLock()
	ids := make([]string, 0, len(m.live))
	for id := range m.live {
		ids = append(ids, id)
	}
	m.liveMu.RUnlock()

	var errs []error
	for _, id := range ids {
		if err := m.End(ctx, id); err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
			errs = append(errs, fmt.Errorf("session %s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

// Store returns the underlying session store.
func (m *Manager) Store() ports.SessionStore {
	return m.store
}

func (m *Manager) withSession(ctx context.Context, sessionID string, fn func(context.Context, *ttystep.Session) error) error {
	return m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		sess, ok := m.Session(sessionID)
		if !ok {
			if _, err := m.store.Load(ctx, sessionID); err == nil {
				return domain.ErrSessionEnded
			}
			return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, sessionID)
		}
		return fn(ctx, sess)
	})
}

// persistAfter saves the session info and reports opErr, which takes precedence.
func (m *Manager) persistAfter(ctx context.Context, sess *ttystep.Session, opErr error) error {
	if err := m.persist(ctx, sess); err != nil {
		if opErr != nil {
			m.logger.Warn("Failed to persist session", "session_id", sess.ID(), "err", err)
			return opErr
		}
		return err
	}
	return opErr
}

func (m *Manager) persist(ctx context.Context, sess *ttystep.Session) error {
	info := sess.Info()
	if err := m.store.Save(ctx, &info); err != nil {
		return fmt.Errorf("failed to persist session %s: %w", info.ID, err)
	}
	return nil
}

// WithLock executes a function while holding the lock for the session.
func (m *Manager) WithLock(ctx context.Context, sessionID string, fn func(context.Context) error) error {
	entry := m.acquire(sessionID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(sessionID)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, sessionID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"session_id", sessionID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
