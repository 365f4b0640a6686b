package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Subscription is a read-only view of a payment-provider subscription.
type Subscription struct {
	ID                 string    `json:"id" yaml:"id"`
	ProductID          string    `json:"product_id" yaml:"product_id"`
	Status             string    `json:"status" yaml:"status"`
	CancelAtPeriodEnd  bool      `json:"cancel_at_period_end" yaml:"cancel_at_period_end"`
	CurrentPeriodStart time.Time `json:"current_period_start" yaml:"current_period_start"`
	CurrentPeriodEnd   time.Time `json:"current_period_end" yaml:"current_period_end"`
	CreatedAt          time.Time `json:"created_at" yaml:"created_at"`
}

// Tier is the entitlement level derived from subscription state. It is never persisted.
type Tier string

const (
	TierFree             Tier = "free"
	TierPro              Tier = "pro"
	TierProPendingCancel Tier = "pro_pending_cancel"
)

// LineItemStatus is inherited by a line item from its owning subscription.
type LineItemStatus string

const (
	LineItemUpcoming LineItemStatus = "upcoming"
	LineItemActive   LineItemStatus = "active"
	LineItemCanceled LineItemStatus = "canceled"
	LineItemTrialing LineItemStatus = "trialing"
)

// LineItem is one invoice line reported by the payment provider.
// Amount, when set, overrides Quantity x UnitPrice (proration credits are negative).
type LineItem struct {
	Name           string           `json:"name" yaml:"name"`
	Quantity       int64            `json:"quantity" yaml:"quantity"`
	UnitPrice      decimal.Decimal  `json:"unit_price" yaml:"unit_price"`
	Amount         *decimal.Decimal `json:"amount,omitempty" yaml:"amount,omitempty"`
	Currency       string           `json:"currency" yaml:"currency"`
	SubscriptionID string           `json:"subscription_id" yaml:"subscription_id"`
	Proration      bool             `json:"proration" yaml:"proration"`
}

// TaxLine is a tax amount attached to a subscription's upcoming invoice.
type TaxLine struct {
	Name           string          `json:"name" yaml:"name"`
	Amount         decimal.Decimal `json:"amount" yaml:"amount"`
	Currency       string          `json:"currency" yaml:"currency"`
	SubscriptionID string          `json:"subscription_id" yaml:"subscription_id"`
}

// BreakdownItem is a line item resolved against its subscription.
type BreakdownItem struct {
	Name           string          `json:"name" yaml:"name"`
	Quantity       int64           `json:"quantity" yaml:"quantity"`
	UnitPrice      decimal.Decimal `json:"unit_price" yaml:"unit_price"`
	Currency       string          `json:"currency" yaml:"currency"`
	Total          decimal.Decimal `json:"total" yaml:"total"`
	SubscriptionID string          `json:"subscription_id" yaml:"subscription_id"`
	Status         LineItemStatus  `json:"status" yaml:"status"`
	Proration      bool            `json:"proration" yaml:"proration"`
}

// BreakdownTax is a tax line resolved against its subscription.
type BreakdownTax struct {
	Name           string          `json:"name" yaml:"name"`
	Amount         decimal.Decimal `json:"amount" yaml:"amount"`
	SubscriptionID string          `json:"subscription_id" yaml:"subscription_id"`
	Status         LineItemStatus  `json:"status" yaml:"status"`
}

// SubscriptionGroup collects the items billed under one subscription.
type SubscriptionGroup struct {
	SubscriptionID string          `json:"subscription_id" yaml:"subscription_id"`
	ProductID      string          `json:"product_id" yaml:"product_id"`
	Status         LineItemStatus  `json:"status" yaml:"status"`
	Items          []BreakdownItem `json:"items" yaml:"items"`
	Subtotal       decimal.Decimal `json:"subtotal" yaml:"subtotal"`
}

// BillingBreakdown is a projected invoice view. It is recomputed per request.
type BillingBreakdown struct {
	Currency       string              `json:"currency" yaml:"currency"`
	Groups         []SubscriptionGroup `json:"groups" yaml:"groups"`
	Items          []BreakdownItem     `json:"items" yaml:"items"`
	Taxes          []BreakdownTax      `json:"taxes" yaml:"taxes"`
	TotalCurrent   decimal.Decimal     `json:"total_current" yaml:"total_current"`
	TotalProjected decimal.Decimal     `json:"total_projected" yaml:"total_projected"`
}
