package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"inclusao/internal/backend"
	"inclusao/internal/platform/metrics"
	"inclusao/internal/platform/schedule"
	"inclusao/internal/sentinel"
	id "inclusao/pkg/domain"
	dErrors "inclusao/pkg/domain-errors"
	"inclusao/pkg/platform/audit"
	syncx "inclusao/pkg/platform/sync"
)

// MsgExpired is shown when the watcher closed the session.
const MsgExpired = "Sua sessão expirou. Por favor, faça login novamente."

const msgNoSession = "sessão não encontrada"

var errShuttingDown = dErrors.New(dErrors.CodeUnavailable, "servidor encerrando")

type Config struct {
	MaxAge        time.Duration
	CheckInterval time.Duration
}

// DefaultConfig is a one hour session checked every minute.
func DefaultConfig() Config {
	return Config{MaxAge: time.Hour, CheckInterval: time.Minute}
}

// Manager owns admin sessions: it starts them after login, validates them
// per request, watches them for expiry and tears them down on sign-out.
type Manager struct {
	store     Store
	auth      backend.Auth
	scheduler schedule.Scheduler
	clock     schedule.Clock
	cfg       Config
	metrics   *metrics.Metrics
	auditor   *audit.Logger
	logger    *slog.Logger
	locks     *syncx.ShardedMutex
	watcher   *Watcher

	mu     sync.Mutex
	tasks  map[id.SessionID]schedule.Task
	closed bool
}

type Option func(*Manager)

func WithConfig(cfg Config) Option {
	return func(m *Manager) {
		if cfg.MaxAge > 0 {
			m.cfg.MaxAge = cfg.MaxAge
		}
		if cfg.CheckInterval > 0 {
			m.cfg.CheckInterval = cfg.CheckInterval
		}
	}
}

// WithScheduler sets both the scheduler for watchers and the clock used
// for expiry decisions.
func WithScheduler(s schedule.Scheduler, clock schedule.Clock) Option {
	return func(m *Manager) {
		if s != nil {
			m.scheduler = s
		}
		if clock != nil {
			m.clock = clock
		}
	}
}

func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Manager) {
		m.metrics = mt
	}
}

func WithAuditor(a *audit.Logger) Option {
	return func(m *Manager) {
		m.auditor = a
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

func NewManager(store Store, auth backend.Auth, opts ...Option) *Manager {
	m := &Manager{
		store:     store,
		auth:      auth,
		scheduler: schedule.NewTicker(nil),
		clock:     schedule.SystemClock{},
		cfg:       DefaultConfig(),
		logger:    slog.Default(),
		locks:     syncx.NewShardedMutex(),
		tasks:     make(map[id.SessionID]schedule.Task),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.watcher = &Watcher{
		scheduler: m.scheduler,
		interval:  m.cfg.CheckInterval,
		maxAge:    m.cfg.MaxAge,
		expire:    m.Expire,
	}
	return m
}

// Config returns the effective expiry settings.
func (m *Manager) Config() Config {
	return m.cfg
}

// Start records a freshly authenticated admin and begins watching it.
func (m *Manager) Start(ctx context.Context, bs *backend.Session, userAgent string) (*Session, error) {
	s := &Session{
		ID:           id.NewSessionID(),
		UserID:       bs.User.ID,
		Email:        bs.User.Email,
		AccessToken:  bs.AccessToken,
		RefreshToken: bs.RefreshToken,
		Device:       DeviceLabel(userAgent),
		LoginAt:      m.clock.Now(),
		Status:       StatusActive,
	}
	if m.isClosed() {
		return nil, errShuttingDown
	}
	if err := m.store.Create(ctx, s); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "falha ao registrar sessão")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		// Close ran between the check and Create.
		if err := m.store.Delete(ctx, s.ID); err != nil {
			m.logger.WarnContext(ctx, "remove session started during shutdown", "session_id", s.ID.String(), "error", err)
		}
		return nil, errShuttingDown
	}
	m.tasks[s.ID] = m.watcher.Watch(s)
	if m.metrics != nil {
		m.metrics.ActiveSessions.Inc()
	}
	m.logger.InfoContext(ctx, "admin session started", "session_id", s.ID.String(), "user_id", s.UserID.String(), "device", s.Device)
	return s, nil
}

// Resolve returns the active session for sessionID. A session past its max
// age is expired on the spot, so a restart never extends it. The backend
// must still recognise the access token.
func (m *Manager) Resolve(ctx context.Context, sessionID id.SessionID) (*Session, error) {
	s, err := m.store.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, msgNoSession)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "falha ao consultar sessão")
	}

	switch s.Status {
	case StatusExpired:
		return nil, dErrors.New(dErrors.CodeSessionExpired, MsgExpired)
	case StatusSignedOut:
		return nil, dErrors.New(dErrors.CodeUnauthorized, msgNoSession)
	}

	if s.ExpiredAt(m.clock.Now(), m.cfg.MaxAge) {
		if err := m.Expire(ctx, s.ID); err != nil {
			return nil, err
		}
		return nil, dErrors.New(dErrors.CodeSessionExpired, MsgExpired)
	}

	if _, err := m.auth.GetSession(ctx, s.AccessToken); err != nil {
		if errors.Is(err, sentinel.ErrUnauthorized) {
			m.drop(ctx, s.ID, "backend rejected token")
			return nil, dErrors.New(dErrors.CodeUnauthorized, backend.Message(err, msgNoSession))
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, backend.Message(err, "falha ao validar sessão"))
	}
	return s, nil
}

// SignOut ends the session at the admin's request. Backend failures are
// logged; the local session is removed regardless.
func (m *Manager) SignOut(ctx context.Context, sessionID id.SessionID) error {
	key := sessionID.String()
	m.locks.Lock(key)
	defer m.locks.Unlock(key)

	m.cancelWatch(sessionID)
	s, err := m.store.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "falha ao consultar sessão")
	}
	if s.IsActive() {
		if err := m.auth.SignOut(ctx, s.AccessToken); err != nil {
			m.logger.WarnContext(ctx, "backend sign-out failed", "session_id", key, "error", err)
		}
		m.decActive()
	}
	if err := m.store.Delete(ctx, sessionID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "falha ao remover sessão")
	}
	m.logger.InfoContext(ctx, "admin session signed out", "session_id", key)
	m.auditor.Log(ctx, audit.ActionAdminLogout, "user_id", s.UserID.String(), "subject", key)
	return nil
}

// Expire signs the session out because it reached its max age. The record
// stays with status expired so the next request can explain why. Expiring a
// session that is no longer active is a no-op.
func (m *Manager) Expire(ctx context.Context, sessionID id.SessionID) error {
	key := sessionID.String()
	m.locks.Lock(key)
	defer m.locks.Unlock(key)

	m.cancelWatch(sessionID)
	s, err := m.store.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "falha ao consultar sessão")
	}
	if !s.IsActive() {
		return nil
	}

	if err := m.auth.SignOut(ctx, s.AccessToken); err != nil {
		m.logger.WarnContext(ctx, "backend sign-out on expiry failed", "session_id", key, "error", err)
	}
	s.Status = StatusExpired
	if err := m.store.Update(ctx, s); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "falha ao atualizar sessão")
	}
	m.decActive()
	if m.metrics != nil {
		m.metrics.SessionsExpired.Inc()
	}
	m.logger.InfoContext(ctx, "admin session expired", "session_id", key, "login_at", s.LoginAt)
	m.auditor.Log(ctx, audit.ActionSessionExpired, "user_id", s.UserID.String(), "subject", key)
	return nil
}

// Run consumes backend auth events until ctx is done, then unsubscribes.
// A sign-out seen on the backend closes every local session holding that
// token without calling the backend again.
func (m *Manager) Run(ctx context.Context) error {
	sub := m.auth.Subscribe()
	defer sub.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-sub.Events():
			if !ok {
				return nil
			}
			if ev.Kind == backend.EventSignedOut {
				m.handleSignedOut(ctx, ev)
			}
		}
	}
}

func (m *Manager) handleSignedOut(ctx context.Context, ev backend.AuthEvent) {
	sessions, err := m.store.FindByAccessToken(ctx, ev.AccessToken)
	if err != nil {
		m.logger.ErrorContext(ctx, "lookup sessions for sign-out event", "error", err)
		return
	}
	for _, s := range sessions {
		if s.IsActive() {
			m.drop(ctx, s.ID, "signed out on backend")
		}
	}
}

// drop removes an active session without calling the backend. The status
// is read again under the lock: a session expired meanwhile keeps its
// record so the next request still sees the expiry notice.
func (m *Manager) drop(ctx context.Context, sessionID id.SessionID, reason string) {
	key := sessionID.String()
	m.locks.Lock(key)
	defer m.locks.Unlock(key)

	s, err := m.store.FindByID(ctx, sessionID)
	if err != nil || !s.IsActive() {
		return
	}
	m.cancelWatch(sessionID)
	m.decActive()
	if err := m.store.Delete(ctx, sessionID); err != nil {
		m.logger.ErrorContext(ctx, "delete session", "session_id", key, "error", err)
		return
	}
	m.logger.InfoContext(ctx, "admin session dropped", "session_id", key, "reason", reason)
}

// Watching reports whether sessionID has a live expiry task.
func (m *Manager) Watching(sessionID id.SessionID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.tasks[sessionID]
	return ok
}

// Close cancels every watcher and waits for them to finish. Sessions stay
// in the store; a later Resolve applies the same expiry rule.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	tasks := make([]schedule.Task, 0, len(m.tasks))
	for sid, t := range m.tasks {
		t.Cancel()
		tasks = append(tasks, t)
		delete(m.tasks, sid)
	}
	m.mu.Unlock()

	for _, t := range tasks {
		<-t.Done()
	}
}

func (m *Manager) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *Manager) cancelWatch(sessionID id.SessionID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.tasks[sessionID]; ok {
		t.Cancel()
		delete(m.tasks, sessionID)
	}
}

func (m *Manager) decActive() {
	if m.metrics != nil {
		m.metrics.ActiveSessions.Dec()
	}
}
