package store

import (
	"context"
	"fmt"

	"gorm.io/gorm/clause"

	"dorm-allocation-backend/internal/model"
)

func (s *gormStore) CreateNotification(ctx context.Context, n *model.Notification) error {
	if err := s.db.WithContext(ctx).Create(n).Error; err != nil {
		return fmt.Errorf("failed to store notification for user %d: %w", n.UserID, err)
	}
	return nil
}

// ListNotifications returns a user's inbox, newest first.
func (s *gormStore) ListNotifications(ctx context.Context, userID int64, unreadOnly bool, limit int) ([]model.Notification, error) {
	query := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if unreadOnly {
		query = query.Where("is_read = ?", false)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var notifications []model.Notification
	if err := query.Order("created_at DESC").Order("id DESC").Find(&notifications).Error; err != nil {
		return nil, fmt.Errorf("failed to load notifications for user %d: %w", userID, err)
	}
	return notifications, nil
}

// SaveSubscription creates or replaces the subscription for its endpoint.
func (s *gormStore) SaveSubscription(ctx context.Context, sub *model.PushSubscription) error {
	if err := s.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "endpoint"}},
			DoUpdates: clause.AssignmentColumns([]string{"user_id", "p256dh", "auth"}),
		}).
		Create(sub).Error; err != nil {
		return fmt.Errorf("failed to save subscription: %w", err)
	}
	return nil
}

func (s *gormStore) GetSubscription(ctx context.Context, endpoint string) (*model.PushSubscription, error) {
	var sub model.PushSubscription
	if err := s.db.WithContext(ctx).First(&sub, "endpoint = ?", endpoint).Error; err != nil {
		return nil, notFound(err, "subscription", endpoint)
	}
	return &sub, nil
}

func (s *gormStore) DeleteSubscription(ctx context.Context, endpoint string) error {
	if err := s.db.WithContext(ctx).Delete(&model.PushSubscription{Endpoint: endpoint}).Error; err != nil {
		return fmt.Errorf("failed to delete subscription: %w", err)
	}
	return nil
}

func (s *gormStore) UserSubscriptions(ctx context.Context, userID int64) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("failed to load subscriptions for user %d: %w", userID, err)
	}
	return subs, nil
}
