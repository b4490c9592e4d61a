package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/rosterly/rosterly/pkg/observability"
	"github.com/rosterly/rosterly/pkg/permissions"
)

// Membership binds the identity to one organization with a role.
type Membership struct {
	OrgID   string           `json:"org_id"`
	OrgName string           `json:"org_name,omitempty"`
	Role    permissions.Role `json:"role"`
}

// Identity is the authenticated principal.
type Identity struct {
	ID          string       `json:"id"`
	Email       string       `json:"email"`
	Name        string       `json:"name,omitempty"`
	AvatarURL   string       `json:"avatar_url,omitempty"`
	Memberships []Membership `json:"memberships,omitempty"`
}

// MembershipFor returns the membership for an organization, if any.
func (id *Identity) MembershipFor(orgID string) (Membership, bool) {
	for _, m := range id.Memberships {
		if m.OrgID == orgID {
			return m, true
		}
	}
	return Membership{}, false
}

// Backend is the subset of the API client the session store needs.
type Backend interface {
	Get(ctx context.Context, path string, out interface{}) error
	Post(ctx context.Context, path string, body, out interface{}) error
}

// TokenStore persists the access and refresh credentials.
type TokenStore interface {
	AccessToken() string
	SetTokens(access, refresh string) error
	ClearTokens() error
}

// Config controls store behavior.
type Config struct {
	Logger *observability.Logger

	// OnReset runs whenever the identity is destroyed (logout or
	// unrecoverable auth failure). Wired to the permission cache's
	// InvalidateAll during composition.
	OnReset func()
}

// Store holds the current authenticated identity.
type Store struct {
	client  Backend
	tokens  TokenStore
	logger  *observability.Logger
	onReset func()

	mu               sync.RWMutex
	identity         *Identity
	restoring        bool
	restoreAttempted bool
}

// NewStore creates a session store.
func NewStore(client Backend, tokens TokenStore, config *Config) *Store {
	if config == nil {
		config = &Config{}
	}
	logger := config.Logger
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	return &Store{
		client:  client,
		tokens:  tokens,
		logger:  logger,
		onReset: config.OnReset,
	}
}

// Login authenticates with email and password, persists the issued
// credentials and loads the identity.
func (s *Store) Login(ctx context.Context, email, password string) (*Identity, error) {
	var resp struct {
		Token        string `json:"token"`
		RefreshToken string `json:"refresh_token"`
		Message      string `json:"message"`
	}
	body := map[string]string{"email": email, "password": password}
	if err := s.client.Post(ctx, "/auth/login", body, &resp); err != nil {
		return nil, err
	}
	if resp.Token == "" {
		return nil, fmt.Errorf("session: login response contained no token")
	}
	if err := s.tokens.SetTokens(resp.Token, resp.RefreshToken); err != nil {
		return nil, fmt.Errorf("session: storing credentials: %w", err)
	}
	return s.FetchIdentity(ctx)
}

// Logout tells the backend to drop the session (best effort) and always
// destroys the local identity and credentials.
func (s *Store) Logout(ctx context.Context) {
	if err := s.client.Post(ctx, "/auth/logout", nil, nil); err != nil {
		s.logger.WithError(err).Debug("backend logout failed")
	}
	s.reset()
}

// FetchIdentity loads the current identity from the backend.
func (s *Store) FetchIdentity(ctx context.Context) (*Identity, error) {
	var identity Identity
	if err := s.client.Get(ctx, "/me", &identity); err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.identity = &identity
	s.mu.Unlock()
	return &identity, nil
}

// Restore attempts to rebuild the session from a persisted credential.
// Failure means "no identity", never a fatal error.
func (s *Store) Restore(ctx context.Context) *Identity {
	s.mu.Lock()
	if s.restoring {
		s.mu.Unlock()
		return s.Current()
	}
	s.restoring = true
	s.restoreAttempted = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.restoring = false
		s.mu.Unlock()
	}()

	if s.tokens.AccessToken() == "" {
		s.clearIdentity()
		return nil
	}

	identity, err := s.FetchIdentity(ctx)
	if err != nil {
		s.logger.WithError(err).Debug("session restore failed")
		s.clearIdentity()
		return nil
	}
	return identity
}

// Current returns the authenticated identity, or nil.
func (s *Store) Current() *Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity
}

// IsAuthenticated reports whether an identity is loaded.
func (s *Store) IsAuthenticated() bool {
	return s.Current() != nil
}

// Restoring reports whether a session restore is in progress.
func (s *Store) Restoring() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.restoring
}

// RestoreAttempted reports whether a restore has been tried this process.
func (s *Store) RestoreAttempted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.restoreAttempted
}

func (s *Store) clearIdentity() {
	s.mu.Lock()
	s.identity = nil
	s.mu.Unlock()
}

// reset destroys the identity, credentials and dependent caches.
func (s *Store) reset() {
	if err := s.tokens.ClearTokens(); err != nil {
		s.logger.WithError(err).Warn("failed to clear credentials")
	}
	s.clearIdentity()
	if s.onReset != nil {
		s.onReset()
	}
}
