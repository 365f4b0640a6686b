package commands

import (
	"bytes"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/orgkeeper/internal/models"
)

func TestPrintBreakdown(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, printBreakdown(&out, &models.BillingBreakdown{}))
		require.Equal(t, "No upcoming charges.\n", out.String())
	})

	t.Run("groups and taxes", func(t *testing.T) {
		item := models.BreakdownItem{
			Name:           "Seats",
			Quantity:       3,
			UnitPrice:      decimal.RequireFromString("24.5"),
			Total:          decimal.RequireFromString("73.5"),
			Currency:       "usd",
			SubscriptionID: "sub_1",
			Status:         models.LineItemActive,
			Proration:      true,
		}
		b := &models.BillingBreakdown{
			Currency: "usd",
			Groups: []models.SubscriptionGroup{{
				SubscriptionID: "sub_1",
				Items:          []models.BreakdownItem{item},
				Subtotal:       item.Total,
			}},
			Taxes: []models.BreakdownTax{{
				Name:           "GST",
				Amount:         decimal.RequireFromString("7.35"),
				SubscriptionID: "sub_1",
				Status:         models.LineItemActive,
			}},
			TotalCurrent:   decimal.RequireFromString("80.85"),
			TotalProjected: decimal.RequireFromString("80.85"),
		}

		var out bytes.Buffer
		require.NoError(t, printBreakdown(&out, b))

		text := out.String()
		require.Contains(t, text, "Seats (proration)")
		require.Contains(t, text, "24.50")
		require.Contains(t, text, "73.50")
		require.Contains(t, text, "GST")
		require.Contains(t, text, "Current:   80.85 usd")
		require.Contains(t, text, "Projected: 80.85 usd")
	})
}
