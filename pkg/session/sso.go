package session

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
)

// SSOConfig describes the provider used for the browser single-sign-on hop.
// The backend terminates the provider callback and hands the client a
// short-lived exchange code.
type SSOConfig struct {
	ClientID    string
	AuthURL     string
	RedirectURL string
	Scopes      []string
}

// SSOAuthCodeURL builds the provider authorization URL the user's browser is
// sent to. State must be an unguessable value checked on return.
func SSOAuthCodeURL(cfg SSOConfig, state string) string {
	conf := &oauth2.Config{
		ClientID:    cfg.ClientID,
		Endpoint:    oauth2.Endpoint{AuthURL: cfg.AuthURL},
		RedirectURL: cfg.RedirectURL,
		Scopes:      cfg.Scopes,
	}
	return conf.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// ExchangeOAuthCode trades the backend-issued exchange code for first-party
// credentials and loads the identity.
func (s *Store) ExchangeOAuthCode(ctx context.Context, code string) (*Identity, error) {
	var resp struct {
		Token        string `json:"token"`
		RefreshToken string `json:"refresh_token"`
	}
	if err := s.client.Post(ctx, "/auth/oauth/exchange", map[string]string{"code": code}, &resp); err != nil {
		return nil, err
	}
	if resp.Token == "" {
		return nil, fmt.Errorf("session: oauth exchange returned no token")
	}
	if err := s.tokens.SetTokens(resp.Token, resp.RefreshToken); err != nil {
		return nil, fmt.Errorf("session: storing credentials: %w", err)
	}
	return s.FetchIdentity(ctx)
}
