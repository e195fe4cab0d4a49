// Package notifications exposes the user's inbox.
package notifications

import (
	"context"

	"github.com/alphadesk/alphadesk/internal/app/domain/notification"
	"github.com/alphadesk/alphadesk/internal/app/storage"
	"github.com/alphadesk/alphadesk/pkg/logger"
)

// Service reads and updates inbox entries.
type Service struct {
	store storage.NotificationStore
	log   *logger.Logger
}

// New constructs the notifications service.
func New(store storage.NotificationStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("notifications")
	}
	return &Service{store: store, log: log}
}

// List returns the user's notifications, newest first.
func (s *Service) List(ctx context.Context, userID string, unreadOnly bool) ([]notification.Notification, error) {
	return s.store.ListNotifications(ctx, userID, unreadOnly)
}

// MarkRead marks one entry as read.
func (s *Service) MarkRead(ctx context.Context, id string) error {
	return s.store.MarkNotificationRead(ctx, id)
}

// MarkAllRead clears the user's unread count.
func (s *Service) MarkAllRead(ctx context.Context, userID string) error {
	return s.store.MarkAllNotificationsRead(ctx, userID)
}
