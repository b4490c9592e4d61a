package notifications

import (
	"context"
	"fmt"
	"time"
)

// Notification is one user-facing notification.
type Notification struct {
	ID        string    `json:"id"`
	OrgID     string    `json:"org_id"`
	Kind      string    `json:"kind"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

// client is the subset of pkg/api the service consumes.
type client interface {
	Get(ctx context.Context, path string, out interface{}) error
	Post(ctx context.Context, path string, body, out interface{}) error
}

// Service reads and acknowledges notifications through the API.
type Service struct {
	api client
}

// NewService creates a notifications service.
func NewService(api client) *Service {
	return &Service{api: api}
}

// List returns the current user's notifications, newest first.
func (s *Service) List(ctx context.Context) ([]Notification, error) {
	var resp struct {
		Notifications []Notification `json:"notifications"`
	}
	if err := s.api.Get(ctx, "/notifications", &resp); err != nil {
		return nil, fmt.Errorf("listing notifications: %w", err)
	}
	return resp.Notifications, nil
}

// UnreadCount returns the number of unread notifications.
func (s *Service) UnreadCount(ctx context.Context) (int, error) {
	var resp struct {
		Count int `json:"count"`
	}
	if err := s.api.Get(ctx, "/notifications/unread", &resp); err != nil {
		return 0, fmt.Errorf("fetching unread count: %w", err)
	}
	return resp.Count, nil
}

// MarkRead acknowledges one notification.
func (s *Service) MarkRead(ctx context.Context, notificationID string) error {
	if notificationID == "" {
		return fmt.Errorf("notifications: notification id is required")
	}
	if err := s.api.Post(ctx, "/notifications/"+notificationID+"/read", nil, nil); err != nil {
		return fmt.Errorf("marking notification %s read: %w", notificationID, err)
	}
	return nil
}

// MarkAllRead acknowledges every unread notification.
func (s *Service) MarkAllRead(ctx context.Context) error {
	if err := s.api.Post(ctx, "/notifications/read-all", nil, nil); err != nil {
		return fmt.Errorf("marking all notifications read: %w", err)
	}
	return nil
}
