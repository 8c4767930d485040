package database

import (
	"context"
	"time"

	"gorm.io/gorm"

	"prayer-notification-server/models"
)

// SubscriptionStore is the gorm-backed implementation of
// services.SubscriptionStore.
type SubscriptionStore struct {
	db *gorm.DB
}

// NewSubscriptionStore wraps a gorm handle as a subscription store.
func NewSubscriptionStore(db *gorm.DB) *SubscriptionStore {
	return &SubscriptionStore{db: db}
}

// FindEnabled returns every subscription with notifications enabled.
// Disabled records never enter dispatch processing.
func (s *SubscriptionStore) FindEnabled(ctx context.Context) ([]models.PushSubscription, error) {
	var subs []models.PushSubscription
	err := s.db.WithContext(ctx).
		Where("notifications_enabled = ?", true).
		Find(&subs).Error
	if err != nil {
		return nil, err
	}
	return subs, nil
}

// DeleteMany removes the given subscription ids in one batch.
func (s *SubscriptionStore) DeleteMany(ctx context.Context, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Delete(&models.PushSubscription{}, ids).Error
}

// UpdateLastSent persists the cooldown marker for one subscription.
func (s *SubscriptionStore) UpdateLastSent(ctx context.Context, id uint, sentAt time.Time) error {
	return s.db.WithContext(ctx).
		Model(&models.PushSubscription{}).
		Where("id = ?", id).
		Update("last_notification_sent", sentAt).Error
}
