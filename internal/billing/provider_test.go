package billing

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const accountsYAML = `
cus_1:
  subscriptions:
    - id: sub_1
      product_id: pro_123
      status: active
      cancel_at_period_end: true
      created_at: 2026-01-01T00:00:00Z
  line_items:
    - name: Pro plan
      quantity: 2
      unit_price: "24.50"
      currency: USD
      subscription_id: sub_1
  taxes:
    - name: GST
      amount: "4.90"
      currency: USD
      subscription_id: sub_1
`

func TestLoadStaticAccounts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accounts.yaml")
	require.NoError(t, os.WriteFile(path, []byte(accountsYAML), 0o600))

	accounts, err := LoadStaticAccounts(path)
	require.NoError(t, err)
	require.Contains(t, accounts, "cus_1")

	p := NewStaticProvider(accounts)
	ctx := context.Background()

	subs, err := p.ListSubscriptions(ctx, "cus_1")
	require.NoError(t, err)
	require.Len(t, subs, 1)
	require.Equal(t, "pro_123", subs[0].ProductID)
	require.True(t, subs[0].CancelAtPeriodEnd)
	require.True(t, subs[0].CreatedAt.Equal(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)))

	items, err := p.ListUpcomingLineItems(ctx, "cus_1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.True(t, decimal.RequireFromString("24.50").Equal(items[0].UnitPrice))

	taxes, err := p.ListUpcomingTaxes(ctx, "cus_1")
	require.NoError(t, err)
	require.Len(t, taxes, 1)

	empty, err := p.ListSubscriptions(ctx, "cus_unknown")
	require.NoError(t, err)
	require.Empty(t, empty)

	_, err = LoadStaticAccounts(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
