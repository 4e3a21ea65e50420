/**
 * @description
 * This file contains the webhook event reconciler. It maps verified Stripe
 * events onto row updates so subscription status in the database always
 * mirrors the most recently observed Stripe state.
 *
 * Stripe delivers at least once, so every mutation here is an upsert or an
 * unconditional update; re-running any event is harmless.
 */
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/ejacques1/ErinGPT-Builder/internal/domain"
	"github.com/ejacques1/ErinGPT-Builder/internal/store"
)

// EventPublisher fans a reconciled lifecycle event out to downstream
// consumers. A nil publisher disables fan-out.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, body interface{}) error
}

// Reconciler applies Stripe webhook events to the database.
type Reconciler struct {
	repo      store.Repository
	publisher EventPublisher
}

// NewReconciler creates a webhook reconciler. publisher may be nil.
func NewReconciler(repo store.Repository, publisher EventPublisher) *Reconciler {
	return &Reconciler{repo: repo, publisher: publisher}
}

// LifecycleEvent is the fan-out payload published after a reconciled event.
type LifecycleEvent struct {
	EventType      string `json:"event_type"`
	SubscriptionID string `json:"subscription_id,omitempty"`
	AccountID      string `json:"account_id,omitempty"`
	Status         string `json:"status,omitempty"`
	OccurredAt     int64  `json:"occurred_at"`
}

// ProcessEvent dispatches a verified event by type. Unknown types are a
// logged no-op. The caller surfaces any returned error as a 500 so Stripe
// redelivers.
func (r *Reconciler) ProcessEvent(ctx context.Context, eventType string, raw []byte) error {
	switch eventType {
	case "checkout.session.completed":
		return r.handleCheckoutCompleted(ctx, eventType, raw)
	case "customer.subscription.created":
		return r.handleSubscriptionCreated(ctx, eventType, raw)
	case "customer.subscription.updated":
		return r.handleSubscriptionChange(ctx, eventType, raw)
	case "customer.subscription.deleted":
		return r.handleSubscriptionTerminal(ctx, eventType, raw, domain.SubscriptionStatusCanceled)
	case "invoice.payment_failed":
		return r.handleInvoiceStatus(ctx, eventType, raw, domain.SubscriptionStatusPastDue)
	case "invoice.payment_succeeded":
		return r.handleInvoiceStatus(ctx, eventType, raw, domain.SubscriptionStatusActive)
	case "account.updated":
		return r.handleAccountUpdated(ctx, eventType, raw)
	default:
		log.Printf("Ignoring unhandled webhook event type %q", eventType)
		return nil
	}
}

// handleCheckoutCompleted writes the subscription row a successful checkout
// produces, choosing the table by the type tag carried in session metadata.
func (r *Reconciler) handleCheckoutCompleted(ctx context.Context, eventType string, raw []byte) error {
	var sess domain.CheckoutSessionEvent
	if err := json.Unmarshal(raw, &sess); err != nil {
		return fmt.Errorf("decode checkout session: %w", err)
	}
	if sess.Subscription == "" {
		log.Printf("Checkout session %s completed without a subscription, skipping", sess.ID)
		return nil
	}

	now := time.Now().UTC()
	periodEnd := now.AddDate(0, 1, 0)

	switch sess.Metadata["type"] {
	case domain.SubscriptionTypeCreator:
		err := r.repo.UpsertCreatorSubscription(ctx, &domain.CreatorSubscription{
			UserID:               sess.Metadata["user_id"],
			StripeCustomerID:     sess.Customer,
			StripeSubscriptionID: sess.Subscription,
			Status:               domain.SubscriptionStatusActive,
			CurrentPeriodStart:   now,
			CurrentPeriodEnd:     periodEnd,
		})
		if err != nil {
			return err
		}
	case domain.SubscriptionTypeCustomer:
		err := r.repo.UpsertCustomerSubscription(ctx, &domain.CustomerSubscription{
			UserID:               sess.Metadata["user_id"],
			GPTID:                sess.Metadata["gpt_id"],
			CreatorID:            sess.Metadata["creator_id"],
			StripeCustomerID:     sess.Customer,
			StripeSubscriptionID: sess.Subscription,
			Status:               domain.SubscriptionStatusActive,
			CurrentPeriodStart:   now,
			CurrentPeriodEnd:     periodEnd,
		})
		if err != nil {
			return err
		}
	default:
		log.Printf("Checkout session %s has no subscription type tag, skipping", sess.ID)
		return nil
	}

	r.publish(ctx, LifecycleEvent{
		EventType:      eventType,
		SubscriptionID: sess.Subscription,
		Status:         domain.SubscriptionStatusActive,
	})
	return nil
}

// handleSubscriptionCreated sets the real period bounds once Stripe creates
// the subscription. The metadata type tag narrows the write to one table
// when present; otherwise both are attempted.
func (r *Reconciler) handleSubscriptionCreated(ctx context.Context, eventType string, raw []byte) error {
	var sub domain.SubscriptionEvent
	if err := json.Unmarshal(raw, &sub); err != nil {
		return fmt.Errorf("decode subscription: %w", err)
	}

	update := store.SubscriptionUpdate{Status: &sub.Status}
	if start, end, ok := sub.PeriodBounds(); ok {
		update.CurrentPeriodStart = &start
		update.CurrentPeriodEnd = &end
	}

	var matched int64
	switch sub.TypeTag() {
	case domain.SubscriptionTypeCreator:
		n, err := r.repo.UpdateCreatorSubscriptionBySubscriptionID(ctx, sub.ID, update)
		if err != nil {
			return err
		}
		matched = n
	case domain.SubscriptionTypeCustomer:
		n, err := r.repo.UpdateCustomerSubscriptionBySubscriptionID(ctx, sub.ID, update)
		if err != nil {
			return err
		}
		matched = n
	default:
		n, err := r.updateBothTables(ctx, sub.ID, update)
		if err != nil {
			return err
		}
		matched = n
	}

	if matched == 0 {
		log.Printf("Subscription %s created before its checkout row, nothing to update", sub.ID)
	}
	r.publish(ctx, LifecycleEvent{EventType: eventType, SubscriptionID: sub.ID, Status: sub.Status})
	return nil
}

// handleSubscriptionChange propagates status and period changes to whichever
// table holds the subscription id. At most one row matches; zero matches is
// logged only.
func (r *Reconciler) handleSubscriptionChange(ctx context.Context, eventType string, raw []byte) error {
	var sub domain.SubscriptionEvent
	if err := json.Unmarshal(raw, &sub); err != nil {
		return fmt.Errorf("decode subscription: %w", err)
	}

	update := store.SubscriptionUpdate{Status: &sub.Status}
	if start, end, ok := sub.PeriodBounds(); ok {
		update.CurrentPeriodStart = &start
		update.CurrentPeriodEnd = &end
	}

	matched, err := r.updateBothTables(ctx, sub.ID, update)
	if err != nil {
		return err
	}
	if matched == 0 {
		log.Printf("Subscription %s updated but no local row matched", sub.ID)
	}
	r.publish(ctx, LifecycleEvent{EventType: eventType, SubscriptionID: sub.ID, Status: sub.Status})
	return nil
}

// handleSubscriptionTerminal marks the subscription canceled in both tables.
// Rows are never deleted.
func (r *Reconciler) handleSubscriptionTerminal(ctx context.Context, eventType string, raw []byte, status string) error {
	var sub domain.SubscriptionEvent
	if err := json.Unmarshal(raw, &sub); err != nil {
		return fmt.Errorf("decode subscription: %w", err)
	}

	matched, err := r.updateBothTables(ctx, sub.ID, store.SubscriptionUpdate{Status: &status})
	if err != nil {
		return err
	}
	if matched == 0 {
		log.Printf("Subscription %s deleted but no local row matched", sub.ID)
	}
	r.publish(ctx, LifecycleEvent{EventType: eventType, SubscriptionID: sub.ID, Status: status})
	return nil
}

// handleInvoiceStatus marks the subscription past_due or active depending on
// the invoice outcome.
func (r *Reconciler) handleInvoiceStatus(ctx context.Context, eventType string, raw []byte, status string) error {
	var inv domain.InvoiceEvent
	if err := json.Unmarshal(raw, &inv); err != nil {
		return fmt.Errorf("decode invoice: %w", err)
	}
	subscriptionID := inv.SubscriptionID()
	if subscriptionID == "" {
		log.Printf("Invoice %s carries no subscription id, skipping", inv.ID)
		return nil
	}

	matched, err := r.updateBothTables(ctx, subscriptionID, store.SubscriptionUpdate{Status: &status})
	if err != nil {
		return err
	}
	if matched == 0 {
		log.Printf("Invoice %s for subscription %s matched no local row", inv.ID, subscriptionID)
	}
	r.publish(ctx, LifecycleEvent{EventType: eventType, SubscriptionID: subscriptionID, Status: status})
	return nil
}

// handleAccountUpdated overwrites the stored capability flags for the
// Connect account named in the event.
func (r *Reconciler) handleAccountUpdated(ctx context.Context, eventType string, raw []byte) error {
	var acct domain.AccountEvent
	if err := json.Unmarshal(raw, &acct); err != nil {
		return fmt.Errorf("decode account: %w", err)
	}

	matched, err := r.repo.UpdateConnectAccountFlagsByAccountID(ctx, acct.ID,
		acct.DetailsSubmitted, acct.ChargesEnabled, acct.PayoutsEnabled)
	if err != nil {
		return err
	}
	if matched == 0 {
		log.Printf("Account %s updated but no local row matched", acct.ID)
	}
	r.publish(ctx, LifecycleEvent{EventType: eventType, AccountID: acct.ID})
	return nil
}

// updateBothTables applies the update to both subscription tables by
// subscription id. At most one should match in practice; nothing structurally
// prevents an id existing in both, in which case both are updated.
func (r *Reconciler) updateBothTables(ctx context.Context, subscriptionID string, update store.SubscriptionUpdate) (int64, error) {
	creatorMatched, err := r.repo.UpdateCreatorSubscriptionBySubscriptionID(ctx, subscriptionID, update)
	if err != nil {
		return 0, err
	}
	customerMatched, err := r.repo.UpdateCustomerSubscriptionBySubscriptionID(ctx, subscriptionID, update)
	if err != nil {
		return 0, err
	}
	return creatorMatched + customerMatched, nil
}

// publish fans the event out when a producer is configured. Publish failures
// are logged and never fail the webhook response; Stripe should not redeliver
// an event whose row mutation already succeeded.
func (r *Reconciler) publish(ctx context.Context, event LifecycleEvent) {
	if r.publisher == nil {
		return
	}
	event.OccurredAt = time.Now().Unix()
	routingKey := "subscription." + event.EventType
	if err := r.publisher.Publish(ctx, routingKey, event); err != nil {
		log.Printf("WARN: failed to publish lifecycle event %s: %v", event.EventType, err)
	}
}
