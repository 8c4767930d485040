package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"prayer-notification-server/models"
)

// ResendInterval is the minimum gap between notifications to one subscriber.
// The persisted marker is the sole defense against duplicate sends from
// overlapping or sub-minute-apart invocations; there is no trigger-level
// lock.
const ResendInterval = time.Minute

// CooldownCoordinator enforces the per-subscriber resend interval and
// buffers expired subscription ids for one batched delete at the end of an
// invocation. One coordinator serves one invocation.
type CooldownCoordinator struct {
	store SubscriptionStore

	mu      sync.Mutex
	expired []uint
}

func NewCooldownCoordinator(store SubscriptionStore) *CooldownCoordinator {
	return &CooldownCoordinator{store: store}
}

// ShouldSend reports whether sub is outside its resend interval at now.
func (c *CooldownCoordinator) ShouldSend(sub *models.PushSubscription, now time.Time) bool {
	if sub.LastNotificationSent == nil {
		return true
	}
	return now.Sub(*sub.LastNotificationSent) >= ResendInterval
}

// RecordSent persists the cooldown marker. Called only after a confirmed
// successful send, never optimistically before dispatch.
func (c *CooldownCoordinator) RecordSent(ctx context.Context, sub *models.PushSubscription, now time.Time) error {
	if err := c.store.UpdateLastSent(ctx, sub.ID, now); err != nil {
		return fmt.Errorf("failed to persist last-sent marker: %w", err)
	}
	sub.LastNotificationSent = &now
	return nil
}

// RecordExpired buffers a subscription id that a transport reported as
// permanently undeliverable.
func (c *CooldownCoordinator) RecordExpired(id uint) {
	c.mu.Lock()
	c.expired = append(c.expired, id)
	c.mu.Unlock()
}

// FlushExpired issues one batched delete for all buffered ids and resets the
// buffer. Called once per invocation, after every dispatch attempt has
// finished.
func (c *CooldownCoordinator) FlushExpired(ctx context.Context) (int, error) {
	c.mu.Lock()
	ids := c.expired
	c.expired = nil
	c.mu.Unlock()

	if len(ids) == 0 {
		return 0, nil
	}
	if err := c.store.DeleteMany(ctx, ids); err != nil {
		return 0, fmt.Errorf("failed to delete %d expired subscriptions: %w", len(ids), err)
	}
	return len(ids), nil
}
