// Package entitlement derives an organization's tier and feature gate from payment-provider subscriptions.
package entitlement

import (
	"slices"
	"strings"

	"github.com/wolfeidau/orgkeeper/internal/models"
)

// Feature is a capability unlocked by a tier.
type Feature string

const (
	FeatureWebhooks         Feature = "webhooks"
	FeatureAPIKeysUnlimited Feature = "api_keys_unlimited"
	FeatureMembersUnlimited Feature = "members_unlimited"
)

var proFeatures = []Feature{
	FeatureWebhooks,
	FeatureAPIKeysUnlimited,
	FeatureMembersUnlimited,
}

// SelectSubscription picks one subscription deterministically: the earliest CreatedAt,
// then the lexicographically smallest ID. ambiguous is true when more than one was offered.
// The input slice is not modified.
func SelectSubscription(subs []models.Subscription) (selected models.Subscription, ambiguous bool) {
	if len(subs) == 0 {
		return models.Subscription{}, false
	}

	sel := slices.MinFunc(subs, func(a, b models.Subscription) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})

	return sel, len(subs) > 1
}

// ResolveTier maps subscriptions to a tier. It is pure: identical input yields identical output.
func ResolveTier(subs []models.Subscription, paidProductID string) models.Tier {
	if len(subs) == 0 {
		return models.TierFree
	}

	sel, _ := SelectSubscription(subs)
	if paidProductID == "" || sel.ProductID != paidProductID {
		return models.TierFree
	}
	if sel.CancelAtPeriodEnd {
		return models.TierProPendingCancel
	}
	return models.TierPro
}

// Features returns the capabilities granted by tier.
// ProPendingCancel keeps every Pro capability until the period ends.
func Features(tier models.Tier) []Feature {
	switch tier {
	case models.TierPro, models.TierProPendingCancel:
		return slices.Clone(proFeatures)
	default:
		return nil
	}
}

// Allows reports whether tier grants feature.
func Allows(tier models.Tier, feature Feature) bool {
	return slices.Contains(Features(tier), feature)
}
