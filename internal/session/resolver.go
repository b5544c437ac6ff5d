package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	apperrors "github.com/sxk/signal-link/internal/errors"
	"github.com/sxk/signal-link/internal/kv"
	"github.com/sxk/signal-link/internal/model"
	"github.com/sxk/signal-link/internal/util"
)

const (
	CodeKey   = "sxk-session-code"
	OriginKey = "sxk-session-origin"
)

type Session struct {
	Code   string
	Origin model.SessionOrigin
}

func (s Session) Role() model.Role {
	return s.Origin.Role()
}

// Resolver decides the active session for this device. It resolves once per
// process; later calls without an inbound code return the cached session.
type Resolver struct {
	store     kv.Store
	generate  func() string
	mu        sync.Mutex
	current   *Session
	listeners []func(Session)
}

func NewResolver(store kv.Store) *Resolver {
	return &Resolver{
		store:    store,
		generate: util.GenerateSessionCode,
	}
}

// OnChange registers fn to be called whenever a session is adopted or minted.
func (r *Resolver) OnChange(fn func(Session)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, fn)
}

// Resolve adopts inbound (origin link) when given, otherwise resumes the
// persisted session, otherwise mints a new local one.
func (r *Resolver) Resolve(ctx context.Context, inbound string) (Session, error) {
	r.mu.Lock()

	if inbound != "" {
		code := util.NormalizeSessionCode(inbound)
		if !util.IsValidSessionCode(code) {
			r.mu.Unlock()
			return Session{}, apperrors.InvalidSessionCode(inbound)
		}
		if r.current != nil && r.current.Code == code && r.current.Origin == model.SessionOriginLink {
			s := *r.current
			r.mu.Unlock()
			return s, nil
		}
		s := Session{Code: code, Origin: model.SessionOriginLink}
		return r.adoptLocked(ctx, s)
	}

	if r.current != nil {
		s := *r.current
		r.mu.Unlock()
		return s, nil
	}

	if s, ok := r.loadLocked(ctx); ok {
		r.current = &s
		r.mu.Unlock()
		log.Debug().Str("sessionCode", util.MaskCode(s.Code)).Str("origin", string(s.Origin)).Msg("session resumed")
		return s, nil
	}

	s := Session{Code: r.generate(), Origin: model.SessionOriginLocal}
	return r.adoptLocked(ctx, s)
}

// Current returns the resolved session, if any.
func (r *Resolver) Current() (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil {
		return Session{}, false
	}
	return *r.current, true
}

// Clear forgets the persisted session so the next Resolve mints or adopts anew.
func (r *Resolver) Clear(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.current = nil
	if err := r.store.Remove(ctx, CodeKey); err != nil {
		return fmt.Errorf("remove session code: %w", err)
	}
	if err := r.store.Remove(ctx, OriginKey); err != nil {
		return fmt.Errorf("remove session origin: %w", err)
	}
	return nil
}

// adoptLocked persists s, records it and notifies listeners. It releases r.mu.
func (r *Resolver) adoptLocked(ctx context.Context, s Session) (Session, error) {
	if err := r.store.Set(ctx, CodeKey, s.Code); err != nil {
		log.Warn().Err(err).Msg("failed to persist session code")
	}
	if err := r.store.Set(ctx, OriginKey, string(s.Origin)); err != nil {
		log.Warn().Err(err).Msg("failed to persist session origin")
	}

	r.current = &s
	listeners := append([]func(Session){}, r.listeners...)
	r.mu.Unlock()

	log.Info().
		Str("sessionCode", util.MaskCode(s.Code)).
		Str("origin", string(s.Origin)).
		Msg("session resolved")

	for _, fn := range listeners {
		fn(s)
	}
	return s, nil
}

func (r *Resolver) loadLocked(ctx context.Context) (Session, bool) {
	code, err := r.store.Get(ctx, CodeKey)
	if err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			log.Warn().Err(err).Msg("failed to read persisted session code")
		}
		return Session{}, false
	}
	code = util.NormalizeSessionCode(code)
	if !util.IsValidSessionCode(code) {
		return Session{}, false
	}

	origin := model.SessionOriginLocal
	if stored, err := r.store.Get(ctx, OriginKey); err == nil && model.SessionOrigin(stored).Valid() {
		origin = model.SessionOrigin(stored)
	}
	return Session{Code: code, Origin: origin}, true
}
