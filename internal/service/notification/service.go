package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	"github.com/igronus/notify/internal/model"
	"github.com/igronus/notify/internal/repository/notification"
)

//go:generate mockgen -source=service.go -destination=../../mocks/service/notification/mock.go -package=mocks

type notificationRepository interface {
	Insert(context.Context, model.Notification) error
	GetByID(context.Context, string) (model.Notification, error)
	GetStatusByID(context.Context, string) (model.Status, error)
	MarkSent(ctx context.Context, id string, deliveredAt time.Time) error
	TopRecipients(context.Context, int64) ([]notification.RecipientStats, error)
}

type cache interface {
	SetWithRetry(ctx context.Context, strategy retry.Strategy, key string, value interface{}) error
	GetWithRetry(ctx context.Context, strategy retry.Strategy, key string) (string, error)
}

// Service implements the notification operations: creating delayed
// notifications, reading them back, and recording delivery. Status
// transitions go through the service so the store and the cache stay
// coherent.
type Service struct {
	repo  notificationRepository
	cache cache
}

// NewService creates a new Service.
func NewService(repo notificationRepository, cache cache) *Service {
	return &Service{repo: repo, cache: cache}
}

// CreateNotification persists a new PENDING notification and returns its
// generated id. The record's status is cached so subsequent status reads
// skip the store.
func (s *Service) CreateNotification(ctx context.Context, strategy retry.Strategy, n model.Notification) (model.Notification, error) {
	n.ID = uuid.New().String()
	n.Status = model.StatusPending
	n.CreatedAt = time.Now()

	if err := s.repo.Insert(ctx, n); err != nil {
		return model.Notification{}, fmt.Errorf("create notification: %w", err)
	}

	if err := s.cache.SetWithRetry(ctx, strategy, n.ID, string(n.Status)); err != nil {
		zlog.Logger.Error().Err(err).Str("id", n.ID).Msg("failed to cache notification status")
	}

	return n, nil
}

// GetNotificationByID retrieves the full record for the given id.
func (s *Service) GetNotificationByID(ctx context.Context, id string) (model.Notification, error) {
	n, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, notification.ErrNotificationNotFound) {
			return model.Notification{}, err
		}

		return model.Notification{}, fmt.Errorf("get notification: %w", err)
	}

	return n, nil
}

// GetNotificationStatusByID returns the status for the given id, reading
// through the cache and falling back to the store on a miss.
func (s *Service) GetNotificationStatusByID(ctx context.Context, strategy retry.Strategy, id string) (model.Status, error) {
	cached, err := s.cache.GetWithRetry(ctx, strategy, id)
	if err != nil && !errors.Is(err, redis.Nil) {
		zlog.Logger.Error().Err(err).Str("id", id).Msg("failed to get notification status from cache")
	}

	if err == nil && cached != "" {
		return model.Status(cached), nil
	}

	status, err := s.repo.GetStatusByID(ctx, id)
	if err != nil {
		if errors.Is(err, notification.ErrNotificationNotFound) {
			return "", err
		}

		return "", fmt.Errorf("get notification status: %w", err)
	}

	if err := s.cache.SetWithRetry(ctx, strategy, id, string(status)); err != nil {
		zlog.Logger.Error().Err(err).Str("id", id).Msg("failed to cache notification status")
	}

	return status, nil
}

// MarkSent advances the record to SENT in the store and refreshes the
// cached status, so status reads never serve a stale PENDING after
// delivery.
func (s *Service) MarkSent(ctx context.Context, strategy retry.Strategy, id string, deliveredAt time.Time) error {
	if err := s.repo.MarkSent(ctx, id, deliveredAt); err != nil {
		if errors.Is(err, notification.ErrNotificationNotFound) {
			return err
		}

		return fmt.Errorf("mark notification sent: %w", err)
	}

	if err := s.cache.SetWithRetry(ctx, strategy, id, string(model.StatusSent)); err != nil {
		zlog.Logger.Error().Err(err).Str("id", id).Msg("failed to cache notification status")
	}

	return nil
}

// TopRecipients returns the busiest recipients with per-status counts.
func (s *Service) TopRecipients(ctx context.Context, limit int64) ([]notification.RecipientStats, error) {
	stats, err := s.repo.TopRecipients(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("top recipients: %w", err)
	}

	return stats, nil
}
