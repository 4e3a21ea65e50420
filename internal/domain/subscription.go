/**
 * @description
 * This file defines the core domain models for subscription billing.
 * It includes the two subscription record kinds stored in the database
 * (creator plans and per-GPT customer plans) and the status values they
 * can carry.
 */
package domain

import "time"

// Subscription status values. They always mirror the most recently
// observed Stripe status for the subscription id; the webhook reconciler
// is the only writer of status after initial creation.
const (
	SubscriptionStatusActive   = "active"
	SubscriptionStatusPastDue  = "past_due"
	SubscriptionStatusCanceled = "canceled"
)

// CreatorSubscription represents a creator's platform plan ($19/month).
// At most one active record exists per user; rows are never deleted,
// only marked canceled.
type CreatorSubscription struct {
	ID                   string    `json:"id"`
	UserID               string    `json:"user_id"`
	StripeCustomerID     string    `json:"stripe_customer_id"`
	StripeSubscriptionID string    `json:"stripe_subscription_id"`
	Status               string    `json:"status"`
	CurrentPeriodStart   time.Time `json:"current_period_start"`
	CurrentPeriodEnd     time.Time `json:"current_period_end"`
}

// CustomerSubscription represents a customer's subscription to a single
// GPT listing. Keyed by (user_id, gpt_id); at most one active record per
// pair.
type CustomerSubscription struct {
	ID                   string    `json:"id"`
	UserID               string    `json:"user_id"`
	GPTID                string    `json:"gpt_id"`
	CreatorID            string    `json:"creator_id"`
	StripeCustomerID     string    `json:"stripe_customer_id"`
	StripeSubscriptionID string    `json:"stripe_subscription_id"`
	Status               string    `json:"status"`
	CurrentPeriodStart   time.Time `json:"current_period_start"`
	CurrentPeriodEnd     time.Time `json:"current_period_end"`
}
