package announcements

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Announcement is one organization announcement.
type Announcement struct {
	ID        string    `json:"id"`
	OrgID     string    `json:"org_id"`
	AuthorID  string    `json:"author_id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Pinned    bool      `json:"pinned"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Draft is the mutable part of an announcement.
type Draft struct {
	Title  string `json:"title"`
	Body   string `json:"body"`
	Pinned bool   `json:"pinned"`
}

// client is the subset of pkg/api the service consumes.
type client interface {
	Get(ctx context.Context, path string, out interface{}) error
	Post(ctx context.Context, path string, body, out interface{}) error
	Put(ctx context.Context, path string, body, out interface{}) error
	Delete(ctx context.Context, path string, out interface{}) error
}

// Service reads and mutates announcements through the API. Responses to
// mutations may carry cache invalidation signals; the API client applies
// those before this service sees the decoded body.
type Service struct {
	api client
}

// NewService creates an announcements service.
func NewService(api client) *Service {
	return &Service{api: api}
}

func (s *Service) basePath(orgID string) (string, error) {
	orgID = strings.TrimSpace(orgID)
	if orgID == "" {
		return "", fmt.Errorf("announcements: organization id is required")
	}
	return "/organizations/" + orgID + "/announcements", nil
}

// List returns an organization's announcements, pinned first as ordered
// by the backend.
func (s *Service) List(ctx context.Context, orgID string) ([]Announcement, error) {
	path, err := s.basePath(orgID)
	if err != nil {
		return nil, err
	}
	var resp struct {
		Announcements []Announcement `json:"announcements"`
	}
	if err := s.api.Get(ctx, path, &resp); err != nil {
		return nil, fmt.Errorf("listing announcements for organization %s: %w", orgID, err)
	}
	return resp.Announcements, nil
}

// Create posts a new announcement.
func (s *Service) Create(ctx context.Context, orgID string, draft Draft) (*Announcement, error) {
	path, err := s.basePath(orgID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(draft.Title) == "" {
		return nil, fmt.Errorf("announcements: title is required")
	}
	var created Announcement
	if err := s.api.Post(ctx, path, draft, &created); err != nil {
		return nil, fmt.Errorf("creating announcement: %w", err)
	}
	return &created, nil
}

// Update replaces an announcement's draft fields.
func (s *Service) Update(ctx context.Context, orgID, announcementID string, draft Draft) (*Announcement, error) {
	path, err := s.basePath(orgID)
	if err != nil {
		return nil, err
	}
	if announcementID == "" {
		return nil, fmt.Errorf("announcements: announcement id is required")
	}
	var updated Announcement
	if err := s.api.Put(ctx, path+"/"+announcementID, draft, &updated); err != nil {
		return nil, fmt.Errorf("updating announcement %s: %w", announcementID, err)
	}
	return &updated, nil
}

// Delete removes an announcement.
func (s *Service) Delete(ctx context.Context, orgID, announcementID string) error {
	path, err := s.basePath(orgID)
	if err != nil {
		return err
	}
	if announcementID == "" {
		return fmt.Errorf("announcements: announcement id is required")
	}
	if err := s.api.Delete(ctx, path+"/"+announcementID, nil); err != nil {
		return fmt.Errorf("deleting announcement %s: %w", announcementID, err)
	}
	return nil
}
