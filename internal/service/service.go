// Package service hosts terminal sessions. Each session owns one page
// controller and the notice queue drained into every response.
package service

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"flowork/terminal/internal/domain"
	"flowork/terminal/internal/logger"
	"flowork/terminal/internal/metrics"
	"flowork/terminal/internal/notify"
	"flowork/terminal/internal/page"
	"flowork/terminal/internal/view"
	"flowork/terminal/internal/xid"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")
	ErrPageForbidden   = errors.New("page not allowed for role")
)

const defaultIdleTTL = 30 * time.Minute

// WithActor and ActorFromContext share the page package's key so the role
// checks in controllers see the same operator.
func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return page.WithActor(ctx, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	return page.ActorFromContext(ctx)
}

// WithManagerApproval marks the request as carrying a verified manager PIN.
func WithManagerApproval(ctx context.Context) context.Context {
	return page.WithManagerApproval(ctx)
}

// CanOpen reports whether role may open a page of kind. Staff get every page
// except the store settings.
func CanOpen(role string, kind page.Kind) bool {
	switch role {
	case domain.RoleAdmin:
		return true
	case domain.RoleStaff:
		return kind != page.KindSetting
	default:
		return false
	}
}

type Snapshot struct {
	SessionID string          `json:"session_id"`
	Page      page.Kind       `json:"page"`
	View      view.Node       `json:"view"`
	Notices   []notify.Notice `json:"notices"`
}

type Session struct {
	ID         string
	Kind       page.Kind
	TerminalID string
	Owner      string
	OpenedAt   time.Time

	mu       sync.Mutex
	ctrl     page.Controller
	notes    *notify.Queue
	lastUsed time.Time
}

func (s *Session) snapshot() Snapshot {
	notices := s.notes.Drain()
	if notices == nil {
		notices = []notify.Notice{}
	}
	return Snapshot{
		SessionID: s.ID,
		Page:      s.Kind,
		View:      s.ctrl.View(),
		Notices:   notices,
	}
}

type Options struct {
	IdleTTL time.Duration
	Clock   func() time.Time
	Logger  *logger.Logger
	Metrics *metrics.Metrics
}

type Service struct {
	deps    page.Deps
	idleTTL time.Duration
	now     func() time.Time
	log     *logger.Logger
	metrics *metrics.Metrics

	mu       sync.RWMutex
	sessions map[string]*Session
}

func New(deps page.Deps, opts Options) *Service {
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = defaultIdleTTL
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	if deps.Clock == nil {
		deps.Clock = opts.Clock
	}
	if deps.Logger == nil {
		deps.Logger = opts.Logger
	}
	if deps.Metrics == nil {
		deps.Metrics = opts.Metrics
	}
	return &Service{
		deps:     deps,
		idleTTL:  opts.IdleTTL,
		now:      opts.Clock,
		log:      opts.Logger,
		metrics:  opts.Metrics,
		sessions: make(map[string]*Session),
	}
}

// Open starts a session hosting a page of kind. The terminal id is handed to
// the page as its terminal_id setting unless cfg already names one.
func (s *Service) Open(ctx context.Context, kind page.Kind, terminalID string, cfg map[string]string) (Snapshot, error) {
	actor, hasActor := ActorFromContext(ctx)
	if hasActor && !CanOpen(actor.Role, kind) {
		return Snapshot{}, errors.Wrapf(ErrPageForbidden, "%s cannot open %s", actor.Role, kind)
	}

	terminalID = strings.TrimSpace(terminalID)
	merged := make(map[string]string, len(cfg)+1)
	for k, v := range cfg {
		merged[k] = v
	}
	if terminalID != "" && merged["terminal_id"] == "" {
		merged["terminal_id"] = terminalID
	}

	notes := notify.NewQueue(s.deps.Clock)
	ctrl, err := page.New(kind, merged, s.deps, notes)
	if err != nil {
		return Snapshot{}, err
	}

	now := s.now()
	sess := &Session{
		ID:         xid.New("ses"),
		Kind:       kind,
		TerminalID: terminalID,
		OpenedAt:   now,
		ctrl:       ctrl,
		notes:      notes,
		lastUsed:   now,
	}
	if hasActor {
		sess.Owner = actor.Username
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
	s.metrics.SessionOpened()

	s.log.Info(s.log.WithFields(ctx, map[string]any{"session_id": sess.ID, "page": string(kind)}), "session opened")

	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.snapshot(), nil
}

// lookup finds a live session the caller may use. Sessions of other staff
// are reported as missing; admins can reach any session.
func (s *Service) lookup(ctx context.Context, id string) (*Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, errors.Wrap(ErrSessionNotFound, id)
	}
	if actor, ok := ActorFromContext(ctx); ok && actor.Role != domain.RoleAdmin && sess.Owner != "" && sess.Owner != actor.Username {
		return nil, errors.Wrap(ErrSessionNotFound, id)
	}
	return sess, nil
}

func (s *Service) Get(ctx context.Context, id string) (Snapshot, error) {
	sess, err := s.lookup(ctx, id)
	if err != nil {
		return Snapshot{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if s.expired(sess) {
		s.drop(ctx, sess)
		return Snapshot{}, errors.Wrap(ErrSessionExpired, id)
	}
	return sess.snapshot(), nil
}

// Dispatch runs one action on the session's page. With confirm set, every
// confirmation the action asks for is answered yes.
func (s *Service) Dispatch(ctx context.Context, id, action string, payload json.RawMessage, confirm bool) (Snapshot, error) {
	sess, err := s.lookup(ctx, id)
	if err != nil {
		return Snapshot{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if s.expired(sess) {
		s.drop(ctx, sess)
		return Snapshot{}, errors.Wrap(ErrSessionExpired, id)
	}
	sess.lastUsed = s.now()

	ctx = s.log.WithSessionID(ctx, sess.ID)
	if confirm {
		ctx = page.WithConfirmer(ctx, notify.Always(true))
	}
	if err := sess.ctrl.Dispatch(ctx, action, payload); err != nil {
		return Snapshot{}, err
	}
	return sess.snapshot(), nil
}

func (s *Service) Close(ctx context.Context, id string) error {
	sess, err := s.lookup(ctx, id)
	if err != nil {
		return err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	s.drop(ctx, sess)
	return nil
}

func (s *Service) expired(sess *Session) bool {
	return s.now().Sub(sess.lastUsed) > s.idleTTL
}

// drop removes sess and stops its page. The caller holds sess.mu.
func (s *Service) drop(ctx context.Context, sess *Session) {
	s.mu.Lock()
	_, live := s.sessions[sess.ID]
	delete(s.sessions, sess.ID)
	s.mu.Unlock()
	if !live {
		return
	}
	sess.ctrl.Close()
	s.metrics.SessionClosed()
	s.log.Info(s.log.WithSessionID(ctx, sess.ID), "session closed")
}

// Sweep closes every session idle for longer than the idle TTL at now and
// returns how many it closed.
func (s *Service) Sweep(ctx context.Context, now time.Time) int {
	s.mu.RLock()
	var stale []*Session
	for _, sess := range s.sessions {
		stale = append(stale, sess)
	}
	s.mu.RUnlock()

	closed := 0
	for _, sess := range stale {
		sess.mu.Lock()
		if now.Sub(sess.lastUsed) > s.idleTTL {
			s.drop(ctx, sess)
			closed++
		}
		sess.mu.Unlock()
	}
	return closed
}

// RunSweeper sweeps every interval until ctx is done.
func (s *Service) RunSweeper(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := s.Sweep(ctx, s.now()); n > 0 {
				s.log.Info(s.log.WithField(ctx, "closed", n), "idle sessions swept")
			}
		}
	}
}

// CloseAll stops every session, used on shutdown.
func (s *Service) CloseAll(ctx context.Context) {
	s.mu.RLock()
	all := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		all = append(all, sess)
	}
	s.mu.RUnlock()
	for _, sess := range all {
		sess.mu.Lock()
		s.drop(ctx, sess)
		sess.mu.Unlock()
	}
}

type SessionInfo struct {
	ID         string    `json:"session_id"`
	Page       page.Kind `json:"page"`
	TerminalID string    `json:"terminal_id,omitempty"`
	Owner      string    `json:"owner,omitempty"`
	OpenedAt   time.Time `json:"opened_at"`
	LastUsed   time.Time `json:"last_used"`
}

// List describes the sessions visible to the caller, oldest first.
func (s *Service) List(ctx context.Context) []SessionInfo {
	actor, hasActor := ActorFromContext(ctx)
	s.mu.RLock()
	all := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		all = append(all, sess)
	}
	s.mu.RUnlock()

	out := make([]SessionInfo, 0, len(all))
	for _, sess := range all {
		if hasActor && actor.Role != domain.RoleAdmin && sess.Owner != actor.Username {
			continue
		}
		sess.mu.Lock()
		out = append(out, SessionInfo{
			ID: sess.ID, Page: sess.Kind, TerminalID: sess.TerminalID,
			Owner: sess.Owner, OpenedAt: sess.OpenedAt, LastUsed: sess.lastUsed,
		})
		sess.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OpenedAt.Before(out[j].OpenedAt) })
	return out
}
