package services

import (
	"log"

	"prayer-notification-server/models"
)

// DedupPolicy decides which of two subscriptions sharing a device identity
// survives deduplication. Policies are named values so a strategy change is
// a value swap, not a rewrite of engine flow. Earlier revisions of this
// system grouped by rounded location and preferred mobile records over web
// records; that rule would be another DedupPolicy value here.
type DedupPolicy struct {
	Name string
	// Wins reports whether candidate should replace current as the
	// surviving record for their shared identity key.
	Wins func(candidate, current *models.PushSubscription) bool
}

// RecencyPolicy keeps the most recently created record per device identity.
// Re-subscription creates the newer record, so recency tracks the live
// installation.
var RecencyPolicy = DedupPolicy{
	Name: "recency",
	Wins: func(candidate, current *models.PushSubscription) bool {
		return candidate.CreatedAt.After(current.CreatedAt)
	},
}

// DedupResult partitions a subscription batch into the canonical set and the
// superseded duplicates to delete.
type DedupResult struct {
	Canonical []models.PushSubscription
	DeleteIDs []uint
	// Skipped counts records with no device identity at all. They cannot
	// be dispatched to, but they are not deleted either.
	Skipped int
}

// Deduplicate collapses subscriptions that represent the same physical
// device into one record per identity key. The caller must apply DeleteIDs
// before any dispatch work begins.
func Deduplicate(subs []models.PushSubscription, policy DedupPolicy) DedupResult {
	winners := make(map[string]int, len(subs))
	order := make([]string, 0, len(subs))
	result := DedupResult{}

	for i := range subs {
		key, ok := subs[i].DeviceKey()
		if !ok {
			log.Printf("⚠️ Subscription %d has no device identity, skipping", subs[i].ID)
			result.Skipped++
			continue
		}

		current, seen := winners[key]
		if !seen {
			winners[key] = i
			order = append(order, key)
			continue
		}

		if policy.Wins(&subs[i], &subs[current]) {
			result.DeleteIDs = append(result.DeleteIDs, subs[current].ID)
			winners[key] = i
		} else {
			result.DeleteIDs = append(result.DeleteIDs, subs[i].ID)
		}
	}

	result.Canonical = make([]models.PushSubscription, 0, len(order))
	for _, key := range order {
		result.Canonical = append(result.Canonical, subs[winners[key]])
	}
	return result
}
