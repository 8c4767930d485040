package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"prayer-notification-server/models"
)

// Collaborator interfaces consumed by the dispatch engine. Concrete
// implementations: database.SubscriptionStore, PrayerTimeService,
// FCMTransport, VAPIDTransport.

// SubscriptionStore is the durable record set of push subscriptions.
type SubscriptionStore interface {
	FindEnabled(ctx context.Context) ([]models.PushSubscription, error)
	DeleteMany(ctx context.Context, ids []uint) error
	UpdateLastSent(ctx context.Context, id uint, sentAt time.Time) error
}

// TimeProvider resolves a day's prayer timings and timezone for a location.
type TimeProvider interface {
	GetTimings(ctx context.Context, location models.Location, date time.Time) (*models.PrayerTimings, error)
}

// MobilePushTransport sends to FCM registration tokens.
type MobilePushTransport interface {
	Send(ctx context.Context, token string, notification PushNotification, data map[string]string) SendResult
}

// WebPushTransport sends to web-push endpoints.
type WebPushTransport interface {
	Send(ctx context.Context, endpoint string, keys WebPushKeys, payload []byte) SendResult
}

// SendResult reports one transport attempt. Expired means the transport
// declared the device identity permanently undeliverable; anything else
// that is not Success is transient and retried naturally on a later cycle.
type SendResult struct {
	Success bool
	Expired bool
	Err     error
}

// DispatchSummary is one invocation's aggregate counters, returned to the
// trigger caller for observability.
type DispatchSummary struct {
	Processed    int    `json:"processed"`
	Sent         int    `json:"sent"`
	Expired      int    `json:"expired"`
	Deduplicated int    `json:"deduplicated"`
	Skipped      int    `json:"skipped"`
	Failures     int    `json:"failures"`
	CurrentTime  string `json:"current_time"`
}

const defaultDispatchWorkers = 8

// DispatchService is the prayer notification dispatch engine. One Run is one
// invocation: it reconciles enabled subscriptions against live prayer times,
// collapses duplicate device records, sends due notifications over the
// matching transport, and prunes permanently undeliverable records. The
// engine holds no state across invocations beyond what the store persists.
type DispatchService struct {
	store      SubscriptionStore
	times      TimeProvider
	mobilePush MobilePushTransport
	webPush    WebPushTransport
	policy     DedupPolicy
	workers    int

	// now is swappable for tests.
	now func() time.Time
}

func NewDispatchService(
	store SubscriptionStore,
	times TimeProvider,
	mobilePush MobilePushTransport,
	webPush WebPushTransport,
	policy DedupPolicy,
	workers int,
) *DispatchService {
	if workers <= 0 {
		workers = defaultDispatchWorkers
	}
	return &DispatchService{
		store:      store,
		times:      times,
		mobilePush: mobilePush,
		webPush:    webPush,
		policy:     policy,
		workers:    workers,
		now:        time.Now,
	}
}

// subscriptionOutcome records what happened to one subscription in one
// invocation. sent and failed can both be true when the notification went
// out but the cooldown marker could not be persisted.
type subscriptionOutcome struct {
	sent    bool
	expired bool
	failed  bool
}

// Run executes one dispatch invocation. Only a failure to load the
// subscription set aborts the run; every per-subscription failure is
// isolated, logged, and counted.
func (s *DispatchService) Run(ctx context.Context) (DispatchSummary, error) {
	now := s.now().UTC()
	summary := DispatchSummary{CurrentTime: now.Format(time.RFC3339)}

	subs, err := s.store.FindEnabled(ctx)
	if err != nil {
		return summary, fmt.Errorf("failed to load subscriptions: %w", err)
	}
	if len(subs) == 0 {
		log.Printf("📭 No active subscriptions to process")
		return summary, nil
	}

	// Collapse duplicate device records and delete the losers before any
	// dispatch work, so a crash mid-invocation can never resurrect a
	// duplicate send from a stale record.
	dedup := Deduplicate(subs, s.policy)
	summary.Skipped += dedup.Skipped
	if len(dedup.DeleteIDs) > 0 {
		if err := s.store.DeleteMany(ctx, dedup.DeleteIDs); err != nil {
			log.Printf("❌ Failed to delete %d duplicate subscriptions: %v", len(dedup.DeleteIDs), err)
			summary.Failures++
		} else {
			summary.Deduplicated = len(dedup.DeleteIDs)
			log.Printf("🧹 Removed %d duplicate subscriptions (%s policy)", len(dedup.DeleteIDs), s.policy.Name)
		}
	}

	summary.Processed = len(dedup.Canonical)
	cooldown := NewCooldownCoordinator(s.store)

	var mu sync.Mutex
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(s.workers)
	for i := range dedup.Canonical {
		sub := &dedup.Canonical[i]
		group.Go(func() error {
			outcome := s.processSubscription(groupCtx, sub, cooldown, now)
			mu.Lock()
			if outcome.sent {
				summary.Sent++
			}
			if outcome.expired {
				summary.Expired++
			}
			if outcome.failed {
				summary.Failures++
			}
			mu.Unlock()
			return nil
		})
	}
	// Workers never return errors; failures stay isolated per subscription.
	_ = group.Wait()

	// Expired ids are flushed only after every dispatch attempt finished.
	if _, err := cooldown.FlushExpired(ctx); err != nil {
		log.Printf("❌ %v", err)
		summary.Failures++
	}

	log.Printf("📊 Dispatch complete: processed=%d sent=%d expired=%d deduplicated=%d skipped=%d failures=%d",
		summary.Processed, summary.Sent, summary.Expired, summary.Deduplicated, summary.Skipped, summary.Failures)
	return summary, nil
}

// processSubscription handles one subscription in isolation: resolve prayer
// times, match the local minute, check the cooldown, send, record the
// outcome. Nothing here may abort the batch.
func (s *DispatchService) processSubscription(ctx context.Context, sub *models.PushSubscription, cooldown *CooldownCoordinator, now time.Time) subscriptionOutcome {
	timings, err := s.times.GetTimings(ctx, sub.Location(), now)
	if err != nil {
		log.Printf("⚠️ Subscription %d: could not resolve prayer times: %v", sub.ID, err)
		return subscriptionOutcome{failed: true}
	}

	prayer, err := MatchPrayer(timings, now)
	if err != nil {
		log.Printf("⚠️ Subscription %d: %v", sub.ID, err)
		return subscriptionOutcome{failed: true}
	}
	if prayer == "" {
		return subscriptionOutcome{}
	}

	if !cooldown.ShouldSend(sub, now) {
		log.Printf("⏳ Subscription %d: %s already notified within the last minute", sub.ID, prayer)
		return subscriptionOutcome{}
	}

	result := s.send(ctx, sub, prayer, NormalizeClock(timings.Time(prayer)))
	switch {
	case result.Success:
		outcome := subscriptionOutcome{sent: true}
		if err := cooldown.RecordSent(ctx, sub, now); err != nil {
			log.Printf("❌ Subscription %d: %s sent but cooldown marker not persisted: %v", sub.ID, prayer, err)
			outcome.failed = true
		} else {
			log.Printf("🔔 Subscription %d: %s notification sent", sub.ID, prayer)
		}
		return outcome
	case result.Expired:
		log.Printf("🗑️ Subscription %d: identity permanently undeliverable, queued for deletion: %v", sub.ID, result.Err)
		cooldown.RecordExpired(sub.ID)
		return subscriptionOutcome{expired: true}
	default:
		log.Printf("❌ Subscription %d: %s send failed, will retry next cycle: %v", sub.ID, prayer, result.Err)
		return subscriptionOutcome{failed: true}
	}
}

// send routes to the transport matching the subscription kind, with the
// payload shape that kind's client handler expects.
func (s *DispatchService) send(ctx context.Context, sub *models.PushSubscription, prayer, prayerTime string) SendResult {
	if sub.IsFCM() {
		notification, data := BuildFCMPayload(sub, prayer, prayerTime)
		return s.mobilePush.Send(ctx, sub.Token, notification, data)
	}

	if sub.Endpoint == "" {
		return SendResult{Err: fmt.Errorf("subscription has no deliverable identity")}
	}
	payload, err := BuildWebPushPayload(sub, prayer, prayerTime)
	if err != nil {
		return SendResult{Err: err}
	}
	return s.webPush.Send(ctx, sub.Endpoint, WebPushKeys{P256dh: sub.P256dh, Auth: sub.Auth}, payload)
}
