// Package billing reads payment-provider state and aggregates it into a projected invoice view.
package billing

import (
	"strings"

	"github.com/shopspring/decimal"
	"github.com/wolfeidau/orgkeeper/internal/apperr"
	"github.com/wolfeidau/orgkeeper/internal/models"
)

// ItemStatus maps a provider subscription status to the status its line items inherit.
func ItemStatus(subscriptionStatus string) models.LineItemStatus {
	switch subscriptionStatus {
	case "active":
		return models.LineItemActive
	case "trialing":
		return models.LineItemTrialing
	case "canceled", "incomplete_expired", "unpaid":
		return models.LineItemCanceled
	default:
		return models.LineItemUpcoming
	}
}

// countsNow reports whether items of status are billed in the current period.
func countsNow(status models.LineItemStatus) bool {
	return status == models.LineItemActive || status == models.LineItemTrialing
}

// Aggregate groups line items and taxes under their subscriptions and computes totals.
//
// TotalCurrent sums active and trialing items and taxes; TotalProjected sums everything.
// Items or taxes referencing an unknown subscription, and mixed currencies, are DataIntegrity errors.
func Aggregate(subs []models.Subscription, items []models.LineItem, taxes []models.TaxLine) (*models.BillingBreakdown, error) {
	const op = "billing.Aggregate"

	byID := make(map[string]models.Subscription, len(subs))
	for _, s := range subs {
		byID[s.ID] = s
	}

	out := &models.BillingBreakdown{
		Groups:         []models.SubscriptionGroup{},
		Items:          []models.BreakdownItem{},
		Taxes:          []models.BreakdownTax{},
		TotalCurrent:   decimal.Zero,
		TotalProjected: decimal.Zero,
	}

	checkCurrency := func(c string) error {
		c = strings.ToLower(c)
		switch {
		case c == "":
			return apperr.E(apperr.KindDataIntegrity, op, "line without currency")
		case out.Currency == "":
			out.Currency = c
		case out.Currency != c:
			return apperr.Errorf(apperr.KindDataIntegrity, op, "mixed currencies %s and %s", out.Currency, c)
		}
		return nil
	}

	groups := make(map[string]*models.SubscriptionGroup)
	var order []string

	for _, li := range items {
		sub, ok := byID[li.SubscriptionID]
		if !ok {
			return nil, apperr.Errorf(apperr.KindDataIntegrity, op, "line item %q references unknown subscription %q", li.Name, li.SubscriptionID)
		}
		if err := checkCurrency(li.Currency); err != nil {
			return nil, err
		}

		total := li.UnitPrice.Mul(decimal.NewFromInt(li.Quantity))
		if li.Amount != nil {
			total = *li.Amount
		}

		status := ItemStatus(sub.Status)
		bi := models.BreakdownItem{
			Name:           li.Name,
			Quantity:       li.Quantity,
			UnitPrice:      li.UnitPrice,
			Currency:       out.Currency,
			Total:          total,
			SubscriptionID: sub.ID,
			Status:         status,
			Proration:      li.Proration,
		}

		g, ok := groups[sub.ID]
		if !ok {
			g = &models.SubscriptionGroup{
				SubscriptionID: sub.ID,
				ProductID:      sub.ProductID,
				Status:         status,
				Subtotal:       decimal.Zero,
			}
			groups[sub.ID] = g
			order = append(order, sub.ID)
		}
		g.Items = append(g.Items, bi)
		g.Subtotal = g.Subtotal.Add(total)

		out.Items = append(out.Items, bi)
		out.TotalProjected = out.TotalProjected.Add(total)
		if countsNow(status) {
			out.TotalCurrent = out.TotalCurrent.Add(total)
		}
	}

	for _, tx := range taxes {
		sub, ok := byID[tx.SubscriptionID]
		if !ok {
			return nil, apperr.Errorf(apperr.KindDataIntegrity, op, "tax %q references unknown subscription %q", tx.Name, tx.SubscriptionID)
		}
		if err := checkCurrency(tx.Currency); err != nil {
			return nil, err
		}

		status := ItemStatus(sub.Status)
		out.Taxes = append(out.Taxes, models.BreakdownTax{
			Name:           tx.Name,
			Amount:         tx.Amount,
			SubscriptionID: sub.ID,
			Status:         status,
		})
		out.TotalProjected = out.TotalProjected.Add(tx.Amount)
		if countsNow(status) {
			out.TotalCurrent = out.TotalCurrent.Add(tx.Amount)
		}
	}

	for _, id := range order {
		out.Groups = append(out.Groups, *groups[id])
	}

	return out, nil
}
