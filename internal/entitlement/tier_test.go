package entitlement

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/orgkeeper/internal/models"
)

func TestResolveTier(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		subs     []models.Subscription
		expected models.Tier
	}{
		{
			name:     "empty is free",
			subs:     nil,
			expected: models.TierFree,
		},
		{
			name:     "paid product is pro",
			subs:     []models.Subscription{{ID: "sub_1", ProductID: "pro_123", Status: "active"}},
			expected: models.TierPro,
		},
		{
			name:     "cancel at period end is pro pending cancel",
			subs:     []models.Subscription{{ID: "sub_1", ProductID: "pro_123", CancelAtPeriodEnd: true}},
			expected: models.TierProPendingCancel,
		},
		{
			name:     "other product is free",
			subs:     []models.Subscription{{ID: "sub_1", ProductID: "basic_1"}},
			expected: models.TierFree,
		},
		{
			name: "earliest subscription wins regardless of order",
			subs: []models.Subscription{
				{ID: "sub_b", ProductID: "basic_1", CreatedAt: base.Add(time.Hour)},
				{ID: "sub_a", ProductID: "pro_123", CreatedAt: base},
			},
			expected: models.TierPro,
		},
		{
			name: "equal creation time breaks tie on id",
			subs: []models.Subscription{
				{ID: "sub_z", ProductID: "pro_123", CreatedAt: base},
				{ID: "sub_a", ProductID: "basic_1", CreatedAt: base},
			},
			expected: models.TierFree,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveTier(tt.subs, "pro_123")
			require.Equal(t, tt.expected, got)
			require.Equal(t, got, ResolveTier(tt.subs, "pro_123"))
		})
	}
}

func TestSelectSubscription(t *testing.T) {
	_, ambiguous := SelectSubscription(nil)
	require.False(t, ambiguous)

	one := []models.Subscription{{ID: "sub_1"}}
	sel, ambiguous := SelectSubscription(one)
	require.False(t, ambiguous)
	require.Equal(t, "sub_1", sel.ID)

	base := time.Now()
	many := []models.Subscription{
		{ID: "sub_2", CreatedAt: base},
		{ID: "sub_1", CreatedAt: base},
		{ID: "sub_0", CreatedAt: base.Add(time.Second)},
	}
	sel, ambiguous = SelectSubscription(many)
	require.True(t, ambiguous)
	require.Equal(t, "sub_1", sel.ID)
	require.Equal(t, "sub_2", many[0].ID)
}

func TestFeatures(t *testing.T) {
	require.Empty(t, Features(models.TierFree))
	require.False(t, Allows(models.TierFree, FeatureWebhooks))

	require.True(t, Allows(models.TierPro, FeatureWebhooks))
	require.ElementsMatch(t, Features(models.TierPro), Features(models.TierProPendingCancel))
	require.True(t, Allows(models.TierProPendingCancel, FeatureMembersUnlimited))
}
