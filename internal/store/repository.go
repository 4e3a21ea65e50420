/**
 * @description
 * This file defines the `Repository` interface, the contract for all data
 * access the billing service performs. Defining an interface decouples the
 * application layer from the PostgreSQL implementation and lets tests swap
 * in stubs.
 *
 * @dependencies
 * - context, time: Standard Go libraries.
 * - internal/domain: For the service's domain models.
 */

package store

import (
	"context"
	"errors"
	"time"

	"github.com/ejacques1/ErinGPT-Builder/internal/domain"
)

// Sentinel errors returned by repository implementations.
var (
	ErrSubscriptionNotFound   = errors.New("subscription not found")
	ErrConnectAccountNotFound = errors.New("connect account not found")
	ErrListingNotFound        = errors.New("gpt listing not found")
)

// SubscriptionUpdate carries the fields a webhook event writes onto a
// subscription row. Nil fields are left untouched.
type SubscriptionUpdate struct {
	Status             *string
	CurrentPeriodStart *time.Time
	CurrentPeriodEnd   *time.Time
}

// Repository defines the set of methods for interacting with the database.
type Repository interface {
	// Creator subscription methods
	GetActiveCreatorSubscription(ctx context.Context, userID string) (*domain.CreatorSubscription, error)
	UpsertCreatorSubscription(ctx context.Context, sub *domain.CreatorSubscription) error
	UpdateCreatorSubscriptionBySubscriptionID(ctx context.Context, stripeSubscriptionID string, update SubscriptionUpdate) (int64, error)

	// Customer subscription methods
	GetActiveCustomerSubscription(ctx context.Context, userID, gptID string) (*domain.CustomerSubscription, error)
	UpsertCustomerSubscription(ctx context.Context, sub *domain.CustomerSubscription) error
	UpdateCustomerSubscriptionBySubscriptionID(ctx context.Context, stripeSubscriptionID string, update SubscriptionUpdate) (int64, error)

	// Connect account methods
	GetConnectAccountByUserID(ctx context.Context, userID string) (*domain.ConnectAccount, error)
	CreateConnectAccount(ctx context.Context, account *domain.ConnectAccount) error
	UpdateConnectAccountFlagsByUserID(ctx context.Context, userID string, onboardingComplete, chargesEnabled, payoutsEnabled bool) error
	UpdateConnectAccountFlagsByAccountID(ctx context.Context, stripeAccountID string, onboardingComplete, chargesEnabled, payoutsEnabled bool) (int64, error)

	// GPT listing methods (read-only)
	GetListingByID(ctx context.Context, listingID string) (*domain.GPTListing, error)
}
