package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prayer-notification-server/models"
)

// fakeStore implements SubscriptionStore in memory.
type fakeStore struct {
	mu       sync.Mutex
	subs     []models.PushSubscription
	deletes  [][]uint
	lastSent map[uint]time.Time

	findErr       error
	deleteErr     error
	updateErr     error
}

func newFakeStore(subs ...models.PushSubscription) *fakeStore {
	return &fakeStore{subs: subs, lastSent: make(map[uint]time.Time)}
}

func (f *fakeStore) FindEnabled(ctx context.Context) ([]models.PushSubscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	var enabled []models.PushSubscription
	for _, s := range f.subs {
		if s.NotificationsEnabled {
			enabled = append(enabled, s)
		}
	}
	return enabled, nil
}

func (f *fakeStore) DeleteMany(ctx context.Context, ids []uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deletes = append(f.deletes, ids)
	gone := make(map[uint]bool, len(ids))
	for _, id := range ids {
		gone[id] = true
	}
	var remaining []models.PushSubscription
	for _, s := range f.subs {
		if !gone[s.ID] {
			remaining = append(remaining, s)
		}
	}
	f.subs = remaining
	return nil
}

func (f *fakeStore) UpdateLastSent(ctx context.Context, id uint, sentAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	f.lastSent[id] = sentAt
	return nil
}

func (f *fakeStore) deletedIDs() []uint {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []uint
	for _, batch := range f.deletes {
		all = append(all, batch...)
	}
	return all
}

// fakeTimeProvider returns the same timings for every location.
type fakeTimeProvider struct {
	timings *models.PrayerTimings
	err     error

	mu    sync.Mutex
	calls int
}

func (f *fakeTimeProvider) GetTimings(ctx context.Context, location models.Location, date time.Time) (*models.PrayerTimings, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	timings := *f.timings
	return &timings, nil
}

// fakeMobileTransport records sends to FCM tokens.
type fakeMobileTransport struct {
	mu      sync.Mutex
	tokens  []string
	results map[string]SendResult
}

func newFakeMobileTransport() *fakeMobileTransport {
	return &fakeMobileTransport{results: make(map[string]SendResult)}
}

func (f *fakeMobileTransport) Send(ctx context.Context, token string, notification PushNotification, data map[string]string) SendResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens = append(f.tokens, token)
	if result, ok := f.results[token]; ok {
		return result
	}
	return SendResult{Success: true}
}

// fakeWebTransport records sends to web-push endpoints.
type fakeWebTransport struct {
	mu        sync.Mutex
	endpoints []string
	payloads  [][]byte
	results   map[string]SendResult
}

func newFakeWebTransport() *fakeWebTransport {
	return &fakeWebTransport{results: make(map[string]SendResult)}
}

func (f *fakeWebTransport) Send(ctx context.Context, endpoint string, keys WebPushKeys, payload []byte) SendResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.endpoints = append(f.endpoints, endpoint)
	f.payloads = append(f.payloads, payload)
	if result, ok := f.results[endpoint]; ok {
		return result
	}
	return SendResult{Success: true}
}

// engineAt builds a DispatchService whose clock is pinned to now.
func engineAt(now time.Time, store SubscriptionStore, times TimeProvider, mobile MobilePushTransport, web WebPushTransport) *DispatchService {
	engine := NewDispatchService(store, times, mobile, web, RecencyPolicy, 4)
	engine.now = func() time.Time { return now }
	return engine
}

// fajrAtUTC returns timings with Fajr due at the given UTC instant.
func fajrAtUTC(now time.Time) *models.PrayerTimings {
	return &models.PrayerTimings{
		Fajr:     now.UTC().Format("15:04"),
		Dhuhr:    "12:30",
		Asr:      "15:45",
		Maghrib:  "18:05",
		Isha:     "19:30",
		Timezone: "UTC",
	}
}

func enabled(sub models.PushSubscription) models.PushSubscription {
	sub.NotificationsEnabled = true
	return sub
}

func TestRunDeduplicatesBeforeDispatch(t *testing.T) {
	now := time.Date(2025, 1, 9, 5, 7, 0, 0, time.UTC)
	t0 := now.Add(-48 * time.Hour)
	t1 := now.Add(-24 * time.Hour)

	store := newFakeStore(
		enabled(fcmSub(1, "tokA", t0)),
		enabled(fcmSub(2, "tokA", t1)),
	)
	times := &fakeTimeProvider{timings: fajrAtUTC(now)}
	mobile := newFakeMobileTransport()
	web := newFakeWebTransport()

	summary, err := engineAt(now, store, times, mobile, web).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Deduplicated)
	assert.Equal(t, 1, summary.Processed, "only the canonical record is processed")
	assert.Equal(t, 1, summary.Sent)
	assert.Equal(t, []uint{1}, store.deletedIDs(), "the older duplicate is deleted")
	assert.Len(t, mobile.tokens, 1, "one transport call for one physical device")

	// Only the surviving record carries the cooldown marker.
	_, ok := store.lastSent[2]
	assert.True(t, ok)
	_, ok = store.lastSent[1]
	assert.False(t, ok)
}

func TestRunDisabledSubscriptionsNeverDispatch(t *testing.T) {
	now := time.Date(2025, 1, 9, 5, 7, 0, 0, time.UTC)

	disabled := fcmSub(1, "tokA", now.Add(-time.Hour))
	store := newFakeStore(disabled, enabled(webSub(2, "https://push.example/bbb", now.Add(-time.Hour))))
	times := &fakeTimeProvider{timings: fajrAtUTC(now)}
	mobile := newFakeMobileTransport()
	web := newFakeWebTransport()

	summary, err := engineAt(now, store, times, mobile, web).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Processed)
	assert.Empty(t, mobile.tokens, "disabled subscription must never reach a transport")
	assert.Len(t, web.endpoints, 1)
}

func TestRunCooldownSuppressesResend(t *testing.T) {
	now := time.Date(2025, 1, 9, 5, 7, 30, 0, time.UTC)
	sentAt := now.Add(-30 * time.Second)

	sub := enabled(fcmSub(1, "tokA", now.Add(-time.Hour)))
	sub.LastNotificationSent = &sentAt

	store := newFakeStore(sub)
	times := &fakeTimeProvider{timings: fajrAtUTC(now)}
	mobile := newFakeMobileTransport()
	web := newFakeWebTransport()

	summary, err := engineAt(now, store, times, mobile, web).Run(context.Background())
	require.NoError(t, err)

	assert.Zero(t, summary.Sent)
	assert.Empty(t, mobile.tokens, "no transport call inside the resend interval")
	assert.Empty(t, store.lastSent, "cooldown marker unchanged")
}

func TestRunSendsAfterCooldownElapsed(t *testing.T) {
	now := time.Date(2025, 1, 9, 5, 7, 0, 0, time.UTC)
	sentAt := now.Add(-ResendInterval)

	sub := enabled(fcmSub(1, "tokA", now.Add(-time.Hour)))
	sub.LastNotificationSent = &sentAt

	store := newFakeStore(sub)
	times := &fakeTimeProvider{timings: fajrAtUTC(now)}
	mobile := newFakeMobileTransport()
	web := newFakeWebTransport()

	summary, err := engineAt(now, store, times, mobile, web).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Sent)
	assert.Equal(t, now, store.lastSent[1])
}

func TestRunExpiredTokenQueuedForBatchedDelete(t *testing.T) {
	now := time.Date(2025, 1, 9, 5, 7, 0, 0, time.UTC)

	store := newFakeStore(
		enabled(fcmSub(1, "tokDead", now.Add(-time.Hour))),
		enabled(fcmSub(2, "tokAlive", now.Add(-time.Hour))),
	)
	times := &fakeTimeProvider{timings: fajrAtUTC(now)}
	mobile := newFakeMobileTransport()
	mobile.results["tokDead"] = SendResult{Expired: true, Err: errors.New("registration token not registered")}
	web := newFakeWebTransport()

	summary, err := engineAt(now, store, times, mobile, web).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Expired)
	assert.Equal(t, 1, summary.Sent, "other subscription is unaffected")
	assert.Equal(t, []uint{1}, store.deletedIDs())
	assert.Equal(t, now, store.lastSent[2])
}

func TestRunTransientFailureLeavesStateUntouched(t *testing.T) {
	now := time.Date(2025, 1, 9, 5, 7, 0, 0, time.UTC)

	store := newFakeStore(enabled(webSub(1, "https://push.example/aaa", now.Add(-time.Hour))))
	times := &fakeTimeProvider{timings: fajrAtUTC(now)}
	mobile := newFakeMobileTransport()
	web := newFakeWebTransport()
	web.results["https://push.example/aaa"] = SendResult{Err: errors.New("503 service unavailable")}

	summary, err := engineAt(now, store, times, mobile, web).Run(context.Background())
	require.NoError(t, err)

	assert.Zero(t, summary.Sent)
	assert.Equal(t, 1, summary.Failures)
	assert.Empty(t, store.lastSent, "transient failure must not set the cooldown marker")
	assert.Empty(t, store.deletedIDs(), "transient failure must not delete the record")
}

func TestRunProviderFailureIsIsolated(t *testing.T) {
	now := time.Date(2025, 1, 9, 5, 7, 0, 0, time.UTC)

	store := newFakeStore(enabled(fcmSub(1, "tokA", now.Add(-time.Hour))))
	times := &fakeTimeProvider{err: errors.New("aladhan unreachable")}
	mobile := newFakeMobileTransport()
	web := newFakeWebTransport()

	summary, err := engineAt(now, store, times, mobile, web).Run(context.Background())
	require.NoError(t, err, "a provider failure never aborts the invocation")

	assert.Equal(t, 1, summary.Failures)
	assert.Empty(t, mobile.tokens)
}

func TestRunNoMatchMeansNoSend(t *testing.T) {
	now := time.Date(2025, 1, 9, 9, 0, 0, 0, time.UTC)

	store := newFakeStore(enabled(fcmSub(1, "tokA", now.Add(-time.Hour))))
	times := &fakeTimeProvider{timings: &models.PrayerTimings{
		Fajr: "05:07", Dhuhr: "12:30", Asr: "15:45", Maghrib: "18:05", Isha: "19:30",
		Timezone: "UTC",
	}}
	mobile := newFakeMobileTransport()
	web := newFakeWebTransport()

	summary, err := engineAt(now, store, times, mobile, web).Run(context.Background())
	require.NoError(t, err)

	assert.Zero(t, summary.Sent)
	assert.Zero(t, summary.Failures)
	assert.Empty(t, mobile.tokens)
}

func TestRunStoreFailureAbortsOnlyLoad(t *testing.T) {
	store := newFakeStore()
	store.findErr = errors.New("connection refused")

	_, err := engineAt(time.Now(), store, &fakeTimeProvider{}, newFakeMobileTransport(), newFakeWebTransport()).Run(context.Background())
	assert.Error(t, err)
}

func TestRunRoutesBySubscriptionKind(t *testing.T) {
	now := time.Date(2025, 1, 9, 5, 7, 0, 0, time.UTC)

	store := newFakeStore(
		enabled(fcmSub(1, "tokA", now.Add(-time.Hour))),
		enabled(webSub(2, "https://push.example/aaa", now.Add(-time.Hour))),
	)
	times := &fakeTimeProvider{timings: fajrAtUTC(now)}
	mobile := newFakeMobileTransport()
	web := newFakeWebTransport()

	summary, err := engineAt(now, store, times, mobile, web).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Sent)
	assert.Equal(t, []string{"tokA"}, mobile.tokens)
	assert.Equal(t, []string{"https://push.example/aaa"}, web.endpoints)
}
