/**
 * @description
 * This file implements the data access layer against PostgreSQL. It contains
 * all the SQL for the four tables this service touches: creator_subscriptions,
 * customer_subscriptions, connect_accounts, and gpt_listings.
 *
 * Writes driven by webhook delivery are upserts or unconditional updates so
 * they stay safe under Stripe's at-least-once redelivery.
 */
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ejacques1/ErinGPT-Builder/internal/domain"
)

// PostgresRepository is the pgx-backed implementation of Repository.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new repository backed by the given pool.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetActiveCreatorSubscription retrieves the active creator subscription row
// for a user, if one exists.
func (r *PostgresRepository) GetActiveCreatorSubscription(ctx context.Context, userID string) (*domain.CreatorSubscription, error) {
	var sub domain.CreatorSubscription
	query := `
        SELECT id, user_id, stripe_customer_id, stripe_subscription_id, status,
               current_period_start, current_period_end
        FROM creator_subscriptions
        WHERE user_id = $1 AND status = $2
        ORDER BY current_period_start DESC
        LIMIT 1
    `
	err := r.db.QueryRow(ctx, query, userID, domain.SubscriptionStatusActive).Scan(
		&sub.ID,
		&sub.UserID,
		&sub.StripeCustomerID,
		&sub.StripeSubscriptionID,
		&sub.Status,
		&sub.CurrentPeriodStart,
		&sub.CurrentPeriodEnd,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("query creator subscription: %w", err)
	}
	return &sub, nil
}

// UpsertCreatorSubscription creates or refreshes a creator subscription row
// keyed by its Stripe subscription id.
func (r *PostgresRepository) UpsertCreatorSubscription(ctx context.Context, sub *domain.CreatorSubscription) error {
	query := `
        INSERT INTO creator_subscriptions
            (user_id, stripe_customer_id, stripe_subscription_id, status,
             current_period_start, current_period_end)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (stripe_subscription_id) DO UPDATE SET
            status = EXCLUDED.status,
            current_period_start = EXCLUDED.current_period_start,
            current_period_end = EXCLUDED.current_period_end,
            updated_at = NOW()
    `
	_, err := r.db.Exec(ctx, query,
		sub.UserID,
		sub.StripeCustomerID,
		sub.StripeSubscriptionID,
		sub.Status,
		sub.CurrentPeriodStart,
		sub.CurrentPeriodEnd,
	)
	if err != nil {
		return fmt.Errorf("upsert creator subscription: %w", err)
	}
	return nil
}

// UpdateCreatorSubscriptionBySubscriptionID applies a webhook-driven update to
// the creator subscription row matching the Stripe subscription id. Returns
// the number of rows touched; zero matches is not an error.
func (r *PostgresRepository) UpdateCreatorSubscriptionBySubscriptionID(ctx context.Context, stripeSubscriptionID string, update SubscriptionUpdate) (int64, error) {
	query := `
        UPDATE creator_subscriptions SET
            status = COALESCE($2, status),
            current_period_start = COALESCE($3, current_period_start),
            current_period_end = COALESCE($4, current_period_end),
            updated_at = NOW()
        WHERE stripe_subscription_id = $1
    `
	tag, err := r.db.Exec(ctx, query,
		stripeSubscriptionID,
		update.Status,
		update.CurrentPeriodStart,
		update.CurrentPeriodEnd,
	)
	if err != nil {
		return 0, fmt.Errorf("update creator subscription: %w", err)
	}
	return tag.RowsAffected(), nil
}

// GetActiveCustomerSubscription retrieves the active subscription row for a
// (user, gpt) pair, if one exists.
func (r *PostgresRepository) GetActiveCustomerSubscription(ctx context.Context, userID, gptID string) (*domain.CustomerSubscription, error) {
	var sub domain.CustomerSubscription
	query := `
        SELECT id, user_id, gpt_id, creator_id, stripe_customer_id,
               stripe_subscription_id, status, current_period_start, current_period_end
        FROM customer_subscriptions
        WHERE user_id = $1 AND gpt_id = $2 AND status = $3
        ORDER BY current_period_start DESC
        LIMIT 1
    `
	err := r.db.QueryRow(ctx, query, userID, gptID, domain.SubscriptionStatusActive).Scan(
		&sub.ID,
		&sub.UserID,
		&sub.GPTID,
		&sub.CreatorID,
		&sub.StripeCustomerID,
		&sub.StripeSubscriptionID,
		&sub.Status,
		&sub.CurrentPeriodStart,
		&sub.CurrentPeriodEnd,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("query customer subscription: %w", err)
	}
	return &sub, nil
}

// UpsertCustomerSubscription creates or refreshes a customer subscription row
// keyed by its Stripe subscription id.
func (r *PostgresRepository) UpsertCustomerSubscription(ctx context.Context, sub *domain.CustomerSubscription) error {
	query := `
        INSERT INTO customer_subscriptions
            (user_id, gpt_id, creator_id, stripe_customer_id, stripe_subscription_id,
             status, current_period_start, current_period_end)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        ON CONFLICT (stripe_subscription_id) DO UPDATE SET
            status = EXCLUDED.status,
            current_period_start = EXCLUDED.current_period_start,
            current_period_end = EXCLUDED.current_period_end,
            updated_at = NOW()
    `
	_, err := r.db.Exec(ctx, query,
		sub.UserID,
		sub.GPTID,
		sub.CreatorID,
		sub.StripeCustomerID,
		sub.StripeSubscriptionID,
		sub.Status,
		sub.CurrentPeriodStart,
		sub.CurrentPeriodEnd,
	)
	if err != nil {
		return fmt.Errorf("upsert customer subscription: %w", err)
	}
	return nil
}

// UpdateCustomerSubscriptionBySubscriptionID applies a webhook-driven update
// to the customer subscription row matching the Stripe subscription id.
func (r *PostgresRepository) UpdateCustomerSubscriptionBySubscriptionID(ctx context.Context, stripeSubscriptionID string, update SubscriptionUpdate) (int64, error) {
	query := `
        UPDATE customer_subscriptions SET
            status = COALESCE($2, status),
            current_period_start = COALESCE($3, current_period_start),
            current_period_end = COALESCE($4, current_period_end),
            updated_at = NOW()
        WHERE stripe_subscription_id = $1
    `
	tag, err := r.db.Exec(ctx, query,
		stripeSubscriptionID,
		update.Status,
		update.CurrentPeriodStart,
		update.CurrentPeriodEnd,
	)
	if err != nil {
		return 0, fmt.Errorf("update customer subscription: %w", err)
	}
	return tag.RowsAffected(), nil
}

// GetConnectAccountByUserID retrieves the Connect account row for a user.
func (r *PostgresRepository) GetConnectAccountByUserID(ctx context.Context, userID string) (*domain.ConnectAccount, error) {
	var acct domain.ConnectAccount
	query := `
        SELECT id, user_id, stripe_account_id, onboarding_complete,
               charges_enabled, payouts_enabled
        FROM connect_accounts
        WHERE user_id = $1
    `
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&acct.ID,
		&acct.UserID,
		&acct.StripeAccountID,
		&acct.OnboardingComplete,
		&acct.ChargesEnabled,
		&acct.PayoutsEnabled,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrConnectAccountNotFound
		}
		return nil, fmt.Errorf("query connect account: %w", err)
	}
	return &acct, nil
}

// CreateConnectAccount persists the user-to-account mapping on first
// onboarding. Capability flags start false and are only ever refreshed by
// the status pull or the account.updated webhook.
func (r *PostgresRepository) CreateConnectAccount(ctx context.Context, account *domain.ConnectAccount) error {
	query := `
        INSERT INTO connect_accounts
            (user_id, stripe_account_id, onboarding_complete, charges_enabled, payouts_enabled)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (user_id) DO NOTHING
    `
	_, err := r.db.Exec(ctx, query,
		account.UserID,
		account.StripeAccountID,
		account.OnboardingComplete,
		account.ChargesEnabled,
		account.PayoutsEnabled,
	)
	if err != nil {
		return fmt.Errorf("insert connect account: %w", err)
	}
	return nil
}

// UpdateConnectAccountFlagsByUserID overwrites the capability flags on a
// user's Connect account row after a live pull from Stripe.
func (r *PostgresRepository) UpdateConnectAccountFlagsByUserID(ctx context.Context, userID string, onboardingComplete, chargesEnabled, payoutsEnabled bool) error {
	query := `
        UPDATE connect_accounts SET
            onboarding_complete = $2,
            charges_enabled = $3,
            payouts_enabled = $4,
            updated_at = NOW()
        WHERE user_id = $1
    `
	_, err := r.db.Exec(ctx, query, userID, onboardingComplete, chargesEnabled, payoutsEnabled)
	if err != nil {
		return fmt.Errorf("update connect account flags: %w", err)
	}
	return nil
}

// UpdateConnectAccountFlagsByAccountID overwrites the capability flags on the
// row matching a Stripe account id, driven by the account.updated webhook.
func (r *PostgresRepository) UpdateConnectAccountFlagsByAccountID(ctx context.Context, stripeAccountID string, onboardingComplete, chargesEnabled, payoutsEnabled bool) (int64, error) {
	query := `
        UPDATE connect_accounts SET
            onboarding_complete = $2,
            charges_enabled = $3,
            payouts_enabled = $4,
            updated_at = NOW()
        WHERE stripe_account_id = $1
    `
	tag, err := r.db.Exec(ctx, query, stripeAccountID, onboardingComplete, chargesEnabled, payoutsEnabled)
	if err != nil {
		return 0, fmt.Errorf("update connect account flags by account id: %w", err)
	}
	return tag.RowsAffected(), nil
}

// GetListingByID resolves a GPT listing for checkout line items.
func (r *PostgresRepository) GetListingByID(ctx context.Context, listingID string) (*domain.GPTListing, error) {
	var listing domain.GPTListing
	query := `
        SELECT id, name, COALESCE(description, ''), monthly_price
        FROM gpt_listings
        WHERE id = $1
    `
	err := r.db.QueryRow(ctx, query, listingID).Scan(
		&listing.ID,
		&listing.Name,
		&listing.Description,
		&listing.MonthlyPrice,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrListingNotFound
		}
		return nil, fmt.Errorf("query gpt listing: %w", err)
	}
	return &listing, nil
}
