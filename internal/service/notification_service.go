package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ict-helpdesk/servicedesk/internal/domain"
	"github.com/ict-helpdesk/servicedesk/internal/repository"
	apperrors "github.com/ict-helpdesk/servicedesk/pkg/util"
)

const unreadCacheTTL = time.Minute

// NotificationService dispatches user notifications and serves the
// recipient-facing read surface. Dispatch is fire-and-forget: store
// failures are logged here and never reach the triggering operation.
type NotificationService struct {
	notifications repository.NotificationRepository
	cache         *redis.Client
	logger        *zap.Logger
}

// NewNotificationService creates the service. cache may be nil, in which
// case unread counts always hit the store.
func NewNotificationService(notifications repository.NotificationRepository, cache *redis.Client, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		notifications: notifications,
		cache:         cache,
		logger:        logger,
	}
}

// Notify stores a notification for the recipient. A non-positive userID is
// a no-op, not an error. Failures are swallowed after logging.
func (s *NotificationService) Notify(ctx context.Context, userID int64, title, message, link string) {
	if userID <= 0 {
		return
	}
	notification := &domain.Notification{
		UserID:  userID,
		Title:   title,
		Message: message,
	}
	if link != "" {
		notification.Link = &link
	}
	if err := s.notifications.Create(ctx, notification); err != nil {
		s.logger.Warn("notification dispatch failed",
			zap.Int64("user_id", userID),
			zap.String("title", title),
			zap.Error(err))
		return
	}
	s.invalidateUnread(ctx, userID)
}

// ListForUser returns the recipient's notifications, newest first.
func (s *NotificationService) ListForUser(ctx context.Context, userID int64, limit, offset int) ([]domain.Notification, error) {
	items, err := s.notifications.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return items, nil
}

// UnreadCount returns the recipient's unread total, read through the cache.
func (s *NotificationService) UnreadCount(ctx context.Context, userID int64) (int64, error) {
	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, unreadKey(userID)).Result(); err == nil {
			if count, parseErr := strconv.ParseInt(raw, 10, 64); parseErr == nil {
				return count, nil
			}
		}
	}
	count, err := s.notifications.CountUnread(ctx, userID)
	if err != nil {
		return 0, apperrors.MapError(err)
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, unreadKey(userID), count, unreadCacheTTL).Err(); err != nil {
			s.logger.Debug("unread count cache write failed", zap.Error(err))
		}
	}
	return count, nil
}

// MarkRead flags one notification as read for its recipient.
func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID int64) error {
	if err := s.notifications.MarkRead(ctx, notificationID, userID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("notification", map[string]any{"notification_id": notificationID})
		}
		return apperrors.MapError(err)
	}
	s.invalidateUnread(ctx, userID)
	return nil
}

// MarkAllRead flags every unread notification for the recipient.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID int64) error {
	if err := s.notifications.MarkAllRead(ctx, userID); err != nil {
		return apperrors.MapError(err)
	}
	s.invalidateUnread(ctx, userID)
	return nil
}

func (s *NotificationService) invalidateUnread(ctx context.Context, userID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, unreadKey(userID)).Err(); err != nil {
		s.logger.Debug("unread count cache invalidation failed", zap.Error(err))
	}
}

func unreadKey(userID int64) string {
	return fmt.Sprintf("notifications:unread:%d", userID)
}
