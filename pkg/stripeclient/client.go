/**
 * @description
 * This package provides a client for the Stripe Billing and Connect APIs.
 * It wraps the official stripe-go SDK behind a small surface shaped around
 * what the billing service actually needs: customers, checkout sessions,
 * express accounts, onboarding links, and subscription reads.
 *
 * @dependencies
 * - github.com/stripe/stripe-go/v82: The official Stripe SDK.
 */
package stripeclient

import (
	"context"
	"fmt"
	"strings"
	"time"

	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/account"
	"github.com/stripe/stripe-go/v82/accountlink"
	"github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/customer"
	"github.com/stripe/stripe-go/v82/subscription"
)

// Client is a client for the Stripe API.
type Client struct{}

// NewClient configures the SDK with the given secret key and returns a client.
func NewClient(secretKey string) *Client {
	stripe.Key = strings.TrimSpace(secretKey)
	return &Client{}
}

// CheckoutSession is the subset of a Stripe checkout session the service
// returns to callers.
type CheckoutSession struct {
	ID  string
	URL string
}

// CheckoutSessionRequest describes a subscription-mode checkout session.
// ConnectedAccountID and ApplicationFeePercent are only set for customer
// subscriptions charged on a creator's connected account.
type CheckoutSessionRequest struct {
	CustomerID            string
	ProductName           string
	ProductDescription    string
	UnitAmount            int64
	Currency              string
	SuccessURL            string
	CancelURL             string
	ClientReferenceID     string
	Metadata              map[string]string
	ConnectedAccountID    string
	ApplicationFeePercent float64
}

// Account mirrors the capability flags of a Stripe Connect account.
type Account struct {
	ID               string
	ChargesEnabled   bool
	PayoutsEnabled   bool
	DetailsSubmitted bool
}

// Subscription is the subset of a Stripe subscription exposed by the
// verify read path.
type Subscription struct {
	ID                string
	Status            string
	CancelAtPeriodEnd bool
	CurrentPeriodEnd  time.Time
}

// FindOrCreateCustomer looks up a Stripe customer by email and creates one
// when no match exists. When connectedAccountID is non-empty the lookup and
// creation are scoped to that connected account.
func (c *Client) FindOrCreateCustomer(ctx context.Context, email, connectedAccountID string) (string, error) {
	listParams := &stripe.CustomerListParams{Email: stripe.String(email)}
	listParams.Context = ctx
	listParams.Limit = stripe.Int64(1)
	if connectedAccountID != "" {
		listParams.SetStripeAccount(connectedAccountID)
	}

	iter := customer.List(listParams)
	if iter.Next() {
		return iter.Customer().ID, nil
	}
	if err := iter.Err(); err != nil {
		return "", fmt.Errorf("list customers: %w", err)
	}

	createParams := &stripe.CustomerParams{Email: stripe.String(email)}
	createParams.Context = ctx
	if connectedAccountID != "" {
		createParams.SetStripeAccount(connectedAccountID)
	}

	cust, err := customer.New(createParams)
	if err != nil {
		return "", fmt.Errorf("create customer: %w", err)
	}
	return cust.ID, nil
}

// CreateCheckoutSession creates a subscription-mode checkout session with an
// inline monthly price.
func (c *Client) CreateCheckoutSession(ctx context.Context, req CheckoutSessionRequest) (*CheckoutSession, error) {
	currency := req.Currency
	if currency == "" {
		currency = string(stripe.CurrencyUSD)
	}

	priceData := &stripe.CheckoutSessionLineItemPriceDataParams{
		Currency:   stripe.String(currency),
		UnitAmount: stripe.Int64(req.UnitAmount),
		Recurring: &stripe.CheckoutSessionLineItemPriceDataRecurringParams{
			Interval: stripe.String(string(stripe.PriceRecurringIntervalMonth)),
		},
		ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripe.String(req.ProductName),
		},
	}
	if strings.TrimSpace(req.ProductDescription) != "" {
		priceData.ProductData.Description = stripe.String(req.ProductDescription)
	}

	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		Customer:   stripe.String(req.CustomerID),
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: priceData,
				Quantity:  stripe.Int64(1),
			},
		},
		Metadata: req.Metadata,
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: req.Metadata,
		},
	}
	params.Context = ctx
	if req.ClientReferenceID != "" {
		params.ClientReferenceID = stripe.String(req.ClientReferenceID)
	}
	if req.ConnectedAccountID != "" {
		params.SetStripeAccount(req.ConnectedAccountID)
	}
	if req.ApplicationFeePercent > 0 {
		params.SubscriptionData.ApplicationFeePercent = stripe.Float64(req.ApplicationFeePercent)
	}

	sess, err := session.New(params)
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	if sess == nil || strings.TrimSpace(sess.URL) == "" {
		return nil, fmt.Errorf("stripe returned empty checkout URL")
	}
	return &CheckoutSession{ID: sess.ID, URL: sess.URL}, nil
}

// CreateExpressAccount creates a Connect Express account for a creator.
func (c *Client) CreateExpressAccount(ctx context.Context, email string) (string, error) {
	params := &stripe.AccountParams{
		Type:  stripe.String(string(stripe.AccountTypeExpress)),
		Email: stripe.String(email),
	}
	params.Context = ctx

	acct, err := account.New(params)
	if err != nil {
		return "", fmt.Errorf("create express account: %w", err)
	}
	return acct.ID, nil
}

// CreateOnboardingLink issues a fresh onboarding link for a Connect account.
// Links are single-use and expire, so one is minted on every request.
func (c *Client) CreateOnboardingLink(ctx context.Context, accountID, refreshURL, returnURL string) (string, error) {
	params := &stripe.AccountLinkParams{
		Account:    stripe.String(accountID),
		RefreshURL: stripe.String(refreshURL),
		ReturnURL:  stripe.String(returnURL),
		Type:       stripe.String("account_onboarding"),
	}
	params.Context = ctx

	link, err := accountlink.New(params)
	if err != nil {
		return "", fmt.Errorf("create onboarding link: %w", err)
	}
	return link.URL, nil
}

// GetAccount pulls the live capability flags for a Connect account.
func (c *Client) GetAccount(ctx context.Context, accountID string) (*Account, error) {
	params := &stripe.AccountParams{}
	params.Context = ctx

	acct, err := account.GetByID(accountID, params)
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	return &Account{
		ID:               acct.ID,
		ChargesEnabled:   acct.ChargesEnabled,
		PayoutsEnabled:   acct.PayoutsEnabled,
		DetailsSubmitted: acct.DetailsSubmitted,
	}, nil
}

// GetSubscription retrieves a subscription, scoped to a connected account
// when one is given.
func (c *Client) GetSubscription(ctx context.Context, subscriptionID, connectedAccountID string) (*Subscription, error) {
	params := &stripe.SubscriptionParams{}
	params.Context = ctx
	if connectedAccountID != "" {
		params.SetStripeAccount(connectedAccountID)
	}

	sub, err := subscription.Get(subscriptionID, params)
	if err != nil {
		return nil, fmt.Errorf("get subscription: %w", err)
	}

	result := &Subscription{
		ID:                sub.ID,
		Status:            string(sub.Status),
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
	}
	// Period bounds live on the subscription items since the 2025 API versions.
	if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].CurrentPeriodEnd > 0 {
		result.CurrentPeriodEnd = time.Unix(sub.Items.Data[0].CurrentPeriodEnd, 0).UTC()
	}
	return result, nil
}
