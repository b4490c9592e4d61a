package orgs

import (
	"context"
	"fmt"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/rosterly/rosterly/pkg/observability"
)

// Summary is the public view of one organization.
type Summary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	LogoURL     string `json:"logo_url"`
	MemberCount int    `json:"member_count"`
	IsPublic    bool   `json:"is_public"`
}

// Member is one entry of an organization's member list.
type Member struct {
	UserID   string `json:"user_id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	JoinedAt string `json:"joined_at"`
}

// client is the subset of pkg/api the directory consumes.
type client interface {
	Get(ctx context.Context, path string, out interface{}) error
	Post(ctx context.Context, path string, body, out interface{}) error
	Delete(ctx context.Context, path string, out interface{}) error
}

const (
	defaultCacheSize = 256
	defaultCacheTTL  = 5 * time.Minute
)

// Config carries optional directory settings.
type Config struct {
	// CacheSize bounds the number of cached summaries.
	CacheSize int
	// CacheTTL is how long a cached summary stays usable.
	CacheTTL time.Duration
	Logger   *observability.Logger
}

// Directory fetches organization summaries with a bounded TTL cache in
// front of the API. Mutations evict eagerly so readers never see a
// summary older than the TTL after a local change.
type Directory struct {
	api    client
	cache  *lru.LRU[string, Summary]
	logger *observability.Logger
}

// NewDirectory creates an organization directory.
func NewDirectory(api client, config *Config) *Directory {
	if config == nil {
		config = &Config{}
	}
	size := config.CacheSize
	if size <= 0 {
		size = defaultCacheSize
	}
	ttl := config.CacheTTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	logger := config.Logger
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	return &Directory{
		api:    api,
		cache:  lru.NewLRU[string, Summary](size, nil, ttl),
		logger: logger,
	}
}

// Get returns one organization summary, from cache when fresh.
func (d *Directory) Get(ctx context.Context, orgID string) (Summary, error) {
	orgID = strings.TrimSpace(orgID)
	if orgID == "" {
		return Summary{}, fmt.Errorf("orgs: organization id is required")
	}
	if summary, ok := d.cache.Get(orgID); ok {
		return summary, nil
	}

	var summary Summary
	if err := d.api.Get(ctx, "/organizations/"+orgID, &summary); err != nil {
		return Summary{}, fmt.Errorf("fetching organization %s: %w", orgID, err)
	}
	if summary.ID == "" {
		summary.ID = orgID
	}
	d.cache.Add(orgID, summary)
	return summary, nil
}

// MyOrganizations lists the organizations the current user belongs to.
// Results refresh the summary cache as a side effect.
func (d *Directory) MyOrganizations(ctx context.Context) ([]Summary, error) {
	var resp struct {
		Organizations []Summary `json:"organizations"`
	}
	if err := d.api.Get(ctx, "/organizations", &resp); err != nil {
		return nil, fmt.Errorf("listing organizations: %w", err)
	}
	for _, summary := range resp.Organizations {
		if summary.ID != "" {
			d.cache.Add(summary.ID, summary)
		}
	}
	return resp.Organizations, nil
}

// Members lists an organization's members. Member lists are not cached;
// the views showing them expect live data.
func (d *Directory) Members(ctx context.Context, orgID string) ([]Member, error) {
	orgID = strings.TrimSpace(orgID)
	if orgID == "" {
		return nil, fmt.Errorf("orgs: organization id is required")
	}
	var resp struct {
		Members []Member `json:"members"`
	}
	if err := d.api.Get(ctx, "/organizations/"+orgID+"/members", &resp); err != nil {
		return nil, fmt.Errorf("listing members of organization %s: %w", orgID, err)
	}
	return resp.Members, nil
}

// Join requests membership in an organization and evicts its summary so
// the member count refreshes on the next read.
func (d *Directory) Join(ctx context.Context, orgID string) error {
	orgID = strings.TrimSpace(orgID)
	if orgID == "" {
		return fmt.Errorf("orgs: organization id is required")
	}
	if err := d.api.Post(ctx, "/organizations/"+orgID+"/join", nil, nil); err != nil {
		return fmt.Errorf("joining organization %s: %w", orgID, err)
	}
	d.cache.Remove(orgID)
	return nil
}

// Leave gives up membership in an organization.
func (d *Directory) Leave(ctx context.Context, orgID string) error {
	orgID = strings.TrimSpace(orgID)
	if orgID == "" {
		return fmt.Errorf("orgs: organization id is required")
	}
	if err := d.api.Delete(ctx, "/organizations/"+orgID+"/membership", nil); err != nil {
		return fmt.Errorf("leaving organization %s: %w", orgID, err)
	}
	d.cache.Remove(orgID)
	return nil
}

// Evict drops one cached summary.
func (d *Directory) Evict(orgID string) {
	d.cache.Remove(orgID)
}

// CacheLen reports how many summaries are currently cached.
func (d *Directory) CacheLen() int {
	return d.cache.Len()
}
