/**
 * @description
 * This file defines minimal payload models for the Stripe webhook events this
 * service reconciles. Each struct decodes only the fields the reconciler
 * reads from `event.data.object`; everything else in the event is ignored.
 */
package domain

import "time"

// Subscription type tags carried in checkout session and subscription
// metadata. They disambiguate which table a webhook event belongs to.
const (
	SubscriptionTypeCreator  = "creator"
	SubscriptionTypeCustomer = "customer"
)

// CheckoutSessionEvent is the data object of a checkout.session.completed
// event.
type CheckoutSessionEvent struct {
	ID           string            `json:"id"`
	Customer     string            `json:"customer"`
	Subscription string            `json:"subscription"`
	Metadata     map[string]string `json:"metadata"`
}

// SubscriptionEvent is the data object of the customer.subscription.* events.
//
// Older Stripe API versions carry current_period_start/end at the top level;
// newer ones moved them onto the subscription items. Both shapes decode here
// and PeriodBounds picks whichever is populated.
type SubscriptionEvent struct {
	ID                 string `json:"id"`
	Customer           string `json:"customer"`
	Status             string `json:"status"`
	CancelAtPeriodEnd  bool   `json:"cancel_at_period_end"`
	CurrentPeriodStart int64  `json:"current_period_start"`
	CurrentPeriodEnd   int64  `json:"current_period_end"`
	Items              struct {
		Data []struct {
			CurrentPeriodStart int64 `json:"current_period_start"`
			CurrentPeriodEnd   int64 `json:"current_period_end"`
		} `json:"data"`
	} `json:"items"`
	Metadata map[string]string `json:"metadata"`
}

// PeriodBounds returns the billing period carried by the event, preferring
// the top-level fields and falling back to the first subscription item.
// ok is false when neither shape carries a period.
func (e *SubscriptionEvent) PeriodBounds() (start, end time.Time, ok bool) {
	if e.CurrentPeriodStart > 0 || e.CurrentPeriodEnd > 0 {
		return time.Unix(e.CurrentPeriodStart, 0).UTC(), time.Unix(e.CurrentPeriodEnd, 0).UTC(), true
	}
	if len(e.Items.Data) > 0 {
		item := e.Items.Data[0]
		if item.CurrentPeriodStart > 0 || item.CurrentPeriodEnd > 0 {
			return time.Unix(item.CurrentPeriodStart, 0).UTC(), time.Unix(item.CurrentPeriodEnd, 0).UTC(), true
		}
	}
	return time.Time{}, time.Time{}, false
}

// TypeTag returns the subscription type tag from the event metadata, or ""
// when the event carries none.
func (e *SubscriptionEvent) TypeTag() string {
	return e.Metadata["type"]
}

// InvoiceEvent is the data object of the invoice.payment_* events.
//
// Older Stripe API versions carry the subscription id at the top level;
// under the 2025-03-31 version it moved to parent.subscription_details.
// Both shapes decode here and SubscriptionID picks whichever is populated.
type InvoiceEvent struct {
	ID           string `json:"id"`
	Customer     string `json:"customer"`
	Subscription string `json:"subscription"`
	Parent       struct {
		SubscriptionDetails struct {
			Subscription string `json:"subscription"`
		} `json:"subscription_details"`
	} `json:"parent"`
}

// SubscriptionID returns the subscription the invoice bills, preferring the
// top-level field and falling back to parent.subscription_details, or ""
// when the invoice is not tied to a subscription.
func (e *InvoiceEvent) SubscriptionID() string {
	if e.Subscription != "" {
		return e.Subscription
	}
	return e.Parent.SubscriptionDetails.Subscription
}

// AccountEvent is the data object of an account.updated event.
type AccountEvent struct {
	ID               string `json:"id"`
	ChargesEnabled   bool   `json:"charges_enabled"`
	PayoutsEnabled   bool   `json:"payouts_enabled"`
	DetailsSubmitted bool   `json:"details_submitted"`
}
