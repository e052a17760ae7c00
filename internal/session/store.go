// Package session owns the authentication lifecycle of the console.
// The store is the single mutation surface for session state: it moves
// between Unresolved, Authenticated and Unauthenticated through
// Bootstrap, Login, Logout and the transport's 401 reaction, and
// nothing else writes the token.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"linkdeck/internal/models"
	"linkdeck/internal/vault"
)

// Phase is the resolution state of the session.
type Phase int

const (
	// PhaseUnresolved means bootstrap has not finished; protected views
	// hold instead of redirecting.
	PhaseUnresolved Phase = iota
	PhaseUnauthenticated
	PhaseAuthenticated
)

func (p Phase) String() string {
	switch p {
	case PhaseUnresolved:
		return "unresolved"
	case PhaseAuthenticated:
		return "authenticated"
	default:
		return "unauthenticated"
	}
}

// Snapshot is an immutable view of the session state handed to
// observers. User is non-nil exactly when the phase is authenticated.
type Snapshot struct {
	Phase Phase
	User  *models.User
}

func (s Snapshot) IsLoading() bool {
	return s.Phase == PhaseUnresolved
}

func (s Snapshot) IsAuthenticated() bool {
	return s.Phase == PhaseAuthenticated
}

// Client is the slice of the transport the store drives: credential
// exchange, user resolution, and the token slot attached to outgoing
// requests.
type Client interface {
	Login(ctx context.Context, username, password string) (string, error)
	CurrentUser(ctx context.Context) (*models.User, error)
	SetToken(token string)
	ClearToken()
	OnAuthExpired(fn func())
}

// TokenVault persists the bearer token across console restarts.
type TokenVault interface {
	SaveToken(ctx context.Context, token string) error
	LoadToken(ctx context.Context) (string, error)
	DeleteToken(ctx context.Context) error
}

// Store is the process-wide session state machine.
type Store struct {
	client Client
	vault  TokenVault
	logger zerolog.Logger

	// loginMu serializes concurrent Login calls so the last one to
	// complete determines the final state.
	loginMu sync.Mutex

	mu           sync.Mutex
	snap         Snapshot
	bootstrapped bool
	subs         map[int]func(Snapshot)
	nextSub      int
}

// NewStore creates the session store and registers itself as the
// transport's 401 reaction.
func NewStore(client Client, v TokenVault, logger zerolog.Logger) *Store {
	s := &Store{
		client: client,
		vault:  v,
		logger: logger,
		snap:   Snapshot{Phase: PhaseUnresolved},
		subs:   make(map[int]func(Snapshot)),
	}

	client.OnAuthExpired(s.handleExpired)

	return s
}

// Snapshot returns the current session state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.snap
}

// Subscribe registers an observer notified after every state change.
// The returned function cancels the subscription.
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// commit replaces the session state and notifies observers outside the
// lock.
func (s *Store) commit(snap Snapshot) {
	s.mu.Lock()
	s.snap = snap
	observers := make([]func(Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		observers = append(observers, fn)
	}
	s.mu.Unlock()

	for _, fn := range observers {
		fn(snap)
	}
}

// Bootstrap resolves the initial session state from the persisted
// token. It runs exactly once per process; later calls are no-ops.
// Any failure (no stored token, rejected token, unreachable server)
// resolves to unauthenticated and discards the stale token; bootstrap
// itself never fails the caller.
func (s *Store) Bootstrap(ctx context.Context) {
	s.mu.Lock()
	if s.bootstrapped {
		s.mu.Unlock()
		return
	}
	s.bootstrapped = true
	s.mu.Unlock()

	token, err := s.vault.LoadToken(ctx)
	if err != nil {
		if !errors.Is(err, vault.ErrNoToken) {
			s.logger.Warn().Err(err).Msg("failed to read persisted token")
		}
		s.commit(Snapshot{Phase: PhaseUnauthenticated})
		return
	}

	s.client.SetToken(token)

	user, err := s.client.CurrentUser(ctx)
	if err != nil {
		s.logger.Debug().Err(err).Msg("persisted token rejected")
		s.client.ClearToken()
		if err := s.vault.DeleteToken(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("failed to discard stale token")
		}
		s.commit(Snapshot{Phase: PhaseUnauthenticated})
		return
	}

	s.logger.Info().Str("username", user.Username).Msg("session restored")
	s.commit(Snapshot{Phase: PhaseAuthenticated, User: user})
}

// Login exchanges credentials for a token, persists it, and moves the
// session to authenticated. On any failure the session state is left
// untouched and the error is surfaced to the caller. Concurrent calls
// are serialized; the last one to complete wins.
func (s *Store) Login(ctx context.Context, username, password string) error {
	const op = "session.Store.Login"

	s.loginMu.Lock()
	defer s.loginMu.Unlock()

	token, err := s.client.Login(ctx, username, password)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.client.SetToken(token)

	user, err := s.client.CurrentUser(ctx)
	if err != nil {
		s.client.ClearToken()
		return fmt.Errorf("%s: failed to resolve user: %w", op, err)
	}

	// The session is usable even if persistence fails; the next
	// restart just starts unauthenticated.
	if err := s.vault.SaveToken(ctx, token); err != nil {
		s.logger.Warn().Err(err).Msg("failed to persist token")
	}

	s.logger.Info().Str("username", user.Username).Msg("logged in")
	s.commit(Snapshot{Phase: PhaseAuthenticated, User: user})

	return nil
}

// Logout clears the persisted token and the in-memory state. It
// succeeds unconditionally; no network call is involved.
func (s *Store) Logout(ctx context.Context) {
	s.client.ClearToken()

	if err := s.vault.DeleteToken(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("failed to delete persisted token")
	}

	s.logger.Info().Msg("logged out")
	s.commit(Snapshot{Phase: PhaseUnauthenticated})
}

// handleExpired is the transport's 401 reaction. The client has
// already cleared its token; here the user state follows. The persisted
// token is dropped so the next bootstrap does not retry a dead token.
func (s *Store) handleExpired() {
	if err := s.vault.DeleteToken(context.Background()); err != nil {
		s.logger.Warn().Err(err).Msg("failed to delete persisted token")
	}

	s.logger.Info().Msg("session expired")
	s.commit(Snapshot{Phase: PhaseUnauthenticated})
}
