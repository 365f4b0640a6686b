package billing

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/orgkeeper/internal/apperr"
	"github.com/wolfeidau/orgkeeper/internal/models"
	"github.com/wolfeidau/orgkeeper/internal/orgctx"
	"github.com/wolfeidau/orgkeeper/internal/store/memory"
	"github.com/wolfeidau/orgkeeper/internal/telemetry"
)

func TestService_Breakdown(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	stores := memory.NewStores()
	ownerID := uuid.New()
	org := &models.Organization{OrgID: uuid.New(), Slug: "acme", Name: "Acme", BillingAccountRef: "cus_1", OwnerActorID: ownerID, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, stores.Organizations.Create(ctx, org, &models.Membership{
		OrgID: org.OrgID, ActorID: ownerID, Email: "a@x.com", Role: models.RoleOwner, CreatedAt: now,
	}))

	provider := NewStaticProvider(map[string]Account{
		"cus_1": {
			Subscriptions: []models.Subscription{{ID: "sub_1", ProductID: "pro_123", Status: "active"}},
			LineItems: []models.LineItem{
				{Name: "Pro plan", Quantity: 1, UnitPrice: dec("29.00"), Currency: "usd", SubscriptionID: "sub_1"},
			},
			Taxes: []models.TaxLine{{Name: "GST", Amount: dec("2.90"), Currency: "usd", SubscriptionID: "sub_1"}},
		},
	})

	resolver := orgctx.NewResolver(stores.Organizations, stores.Memberships, telemetry.NewNoopMetrics())
	svc := NewService(provider, resolver)

	b, err := svc.Breakdown(ctx, ownerID, "acme")
	require.NoError(t, err)
	require.True(t, dec("31.90").Equal(b.TotalCurrent))
	require.True(t, b.TotalCurrent.Equal(b.TotalProjected))

	_, err = svc.Breakdown(ctx, uuid.New(), "acme")
	require.ErrorIs(t, err, apperr.ErrForbidden)

	provider.Set("cus_1", Account{
		Subscriptions: []models.Subscription{{ID: "sub_1", Status: "active"}},
		LineItems: []models.LineItem{
			{Name: "Ghost", Quantity: 1, UnitPrice: dec("1"), Currency: "usd", SubscriptionID: "sub_9"},
		},
	})
	_, err = svc.Breakdown(ctx, ownerID, "acme")
	require.ErrorIs(t, err, apperr.ErrDataIntegrity)
}
