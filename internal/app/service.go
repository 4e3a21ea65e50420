/**
 * @description
 * This file contains the core business logic for the subscription action
 * dispatcher. The Service orchestrates the Stripe gateway and the repository
 * for the five billing operations the frontend can request.
 *
 * None of the operations run multi-row transactions; cross-system
 * consistency between Stripe and the database is reconciled later by the
 * webhook handler, not rolled back here.
 */
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/mail"
	"strings"

	"github.com/google/uuid"

	"github.com/ejacques1/ErinGPT-Builder/internal/domain"
	"github.com/ejacques1/ErinGPT-Builder/internal/store"
	"github.com/ejacques1/ErinGPT-Builder/pkg/stripeclient"
)

// BillingGateway defines the Stripe operations the dispatcher needs.
type BillingGateway interface {
	FindOrCreateCustomer(ctx context.Context, email, connectedAccountID string) (string, error)
	CreateCheckoutSession(ctx context.Context, req stripeclient.CheckoutSessionRequest) (*stripeclient.CheckoutSession, error)
	CreateExpressAccount(ctx context.Context, email string) (string, error)
	CreateOnboardingLink(ctx context.Context, accountID, refreshURL, returnURL string) (string, error)
	GetAccount(ctx context.Context, accountID string) (*stripeclient.Account, error)
	GetSubscription(ctx context.Context, subscriptionID, connectedAccountID string) (*stripeclient.Subscription, error)
}

// Options carries the billing knobs the dispatcher needs from configuration.
type Options struct {
	AppBaseURL         string
	CreatorPriceCents  int64
	PlatformFeePercent float64
}

// Service provides the business logic for the subscription actions.
type Service struct {
	repo    store.Repository
	billing BillingGateway
	opts    Options
}

// NewService creates a new dispatcher service.
func NewService(repo store.Repository, billing BillingGateway, opts Options) Service {
	return Service{repo: repo, billing: billing, opts: opts}
}

// CheckoutResult is returned by the checkout-creating actions.
type CheckoutResult struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
}

// CustomerCheckoutResult extends CheckoutResult with the computed amounts.
type CustomerCheckoutResult struct {
	SessionID      string `json:"sessionId"`
	URL            string `json:"url"`
	UnitAmount     int64  `json:"unitAmount"`
	ApplicationFee int64  `json:"applicationFee"`
}

// OnboardingResult is returned by create_connect_account.
type OnboardingResult struct {
	AccountID string `json:"accountId"`
	URL       string `json:"url"`
}

// SubscriptionView is returned by verify_subscription.
type SubscriptionView struct {
	Status            string `json:"status"`
	CurrentPeriodEnd  int64  `json:"currentPeriodEnd"`
	CancelAtPeriodEnd bool   `json:"cancelAtPeriodEnd"`
}

// ConnectStatusView is returned by get_connect_status.
type ConnectStatusView struct {
	Exists             bool   `json:"exists"`
	AccountID          string `json:"accountId,omitempty"`
	OnboardingComplete bool   `json:"onboardingComplete"`
	ChargesEnabled     bool   `json:"chargesEnabled"`
	PayoutsEnabled     bool   `json:"payoutsEnabled"`
}

// MarshalJSON emits the minimal {"exists":false} body when no account row
// exists; capability flags only appear alongside a real account.
func (v ConnectStatusView) MarshalJSON() ([]byte, error) {
	if !v.Exists {
		return []byte(`{"exists":false}`), nil
	}
	type view ConnectStatusView
	return json.Marshal(view(v))
}

// CreateCreatorSubscription starts the $19/month creator plan checkout.
// No row is written here; the webhook reconciler writes it when the
// checkout session completes.
func (s Service) CreateCreatorSubscription(ctx context.Context, userID, email string) (*CheckoutResult, error) {
	if err := validateUserAndEmail(userID, email); err != nil {
		return nil, err
	}

	// Advisory duplicate check only: two concurrent requests can both pass it.
	// Stripe remains the source of truth and duplicate sessions reconcile later.
	if _, err := s.repo.GetActiveCreatorSubscription(ctx, userID); err == nil {
		return nil, fmt.Errorf("%w: user already has an active creator subscription", ErrConflict)
	} else if !errors.Is(err, store.ErrSubscriptionNotFound) {
		return nil, fmt.Errorf("check existing creator subscription: %w", err)
	}

	customerID, err := s.billing.FindOrCreateCustomer(ctx, email, "")
	if err != nil {
		return nil, fmt.Errorf("find or create customer: %w", err)
	}

	sess, err := s.billing.CreateCheckoutSession(ctx, stripeclient.CheckoutSessionRequest{
		CustomerID:         customerID,
		ProductName:        "ErinGPT Creator Plan",
		ProductDescription: "Publish and monetize your GPTs",
		UnitAmount:         s.opts.CreatorPriceCents,
		SuccessURL:         s.opts.AppBaseURL + "/dashboard?checkout=success&session_id={CHECKOUT_SESSION_ID}",
		CancelURL:          s.opts.AppBaseURL + "/pricing?checkout=cancelled",
		ClientReferenceID:  userID,
		Metadata: map[string]string{
			"type":    domain.SubscriptionTypeCreator,
			"user_id": userID,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create creator checkout session: %w", err)
	}

	log.Printf("Created creator checkout session %s for user %s", sess.ID, userID)
	return &CheckoutResult{SessionID: sess.ID, URL: sess.URL}, nil
}

// CreateConnectAccount finds or creates the user's Express account and
// always issues a fresh onboarding link.
func (s Service) CreateConnectAccount(ctx context.Context, userID, email string) (*OnboardingResult, error) {
	if err := validateUserAndEmail(userID, email); err != nil {
		return nil, err
	}

	var accountID string
	acct, err := s.repo.GetConnectAccountByUserID(ctx, userID)
	switch {
	case err == nil:
		accountID = acct.StripeAccountID
	case errors.Is(err, store.ErrConnectAccountNotFound):
		accountID, err = s.billing.CreateExpressAccount(ctx, email)
		if err != nil {
			return nil, fmt.Errorf("create express account: %w", err)
		}
		// Capability flags start false; the status pull and the
		// account.updated webhook keep them current from here on.
		if err := s.repo.CreateConnectAccount(ctx, &domain.ConnectAccount{
			UserID:          userID,
			StripeAccountID: accountID,
		}); err != nil {
			return nil, fmt.Errorf("persist connect account: %w", err)
		}
		log.Printf("Created connect account %s for user %s", accountID, userID)
	default:
		return nil, fmt.Errorf("lookup connect account: %w", err)
	}

	// Onboarding links are single-use, so mint one on every call.
	linkURL, err := s.billing.CreateOnboardingLink(ctx, accountID,
		s.opts.AppBaseURL+"/dashboard/payouts?refresh=1",
		s.opts.AppBaseURL+"/dashboard/payouts?onboarding=complete",
	)
	if err != nil {
		return nil, fmt.Errorf("create onboarding link: %w", err)
	}

	return &OnboardingResult{AccountID: accountID, URL: linkURL}, nil
}

// CustomerSubscriptionInput carries the payload of create_customer_subscription.
type CustomerSubscriptionInput struct {
	UserID       string
	Email        string
	GPTID        string
	CreatorID    string
	MonthlyPrice float64
}

// CreateCustomerSubscription starts a checkout for a customer subscribing to
// a creator's GPT, charged on the creator's connected account with the
// platform's fee percentage applied.
func (s Service) CreateCustomerSubscription(ctx context.Context, in CustomerSubscriptionInput) (*CustomerCheckoutResult, error) {
	if err := validateUserAndEmail(in.UserID, in.Email); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.CreatorID) == "" {
		return nil, fmt.Errorf("%w: creatorId is required", ErrInvalidArgument)
	}
	if _, err := uuid.Parse(in.GPTID); err != nil {
		return nil, fmt.Errorf("%w: gptId must be a valid listing id", ErrInvalidArgument)
	}
	if in.MonthlyPrice <= 0 {
		return nil, fmt.Errorf("%w: monthlyPrice must be positive", ErrInvalidArgument)
	}

	creatorAcct, err := s.repo.GetConnectAccountByUserID(ctx, in.CreatorID)
	if err != nil {
		if errors.Is(err, store.ErrConnectAccountNotFound) {
			return nil, fmt.Errorf("%w: creator has no payout account", ErrPreconditionFailed)
		}
		return nil, fmt.Errorf("lookup creator connect account: %w", err)
	}
	if !creatorAcct.OnboardingComplete {
		return nil, fmt.Errorf("%w: creator payout onboarding is incomplete", ErrPreconditionFailed)
	}

	if _, err := s.repo.GetActiveCustomerSubscription(ctx, in.UserID, in.GPTID); err == nil {
		return nil, fmt.Errorf("%w: user already subscribes to this GPT", ErrConflict)
	} else if !errors.Is(err, store.ErrSubscriptionNotFound) {
		return nil, fmt.Errorf("check existing customer subscription: %w", err)
	}

	listing, err := s.repo.GetListingByID(ctx, in.GPTID)
	if err != nil {
		if errors.Is(err, store.ErrListingNotFound) {
			return nil, fmt.Errorf("%w: gpt listing %s", ErrNotFound, in.GPTID)
		}
		return nil, fmt.Errorf("resolve gpt listing: %w", err)
	}

	// Customers are scoped to the creator's connected account because the
	// charge settles there.
	customerID, err := s.billing.FindOrCreateCustomer(ctx, in.Email, creatorAcct.StripeAccountID)
	if err != nil {
		return nil, fmt.Errorf("find or create connected customer: %w", err)
	}

	unitAmount := ToMinorUnits(in.MonthlyPrice)
	feeAmount := PlatformFee(unitAmount, s.opts.PlatformFeePercent)

	sess, err := s.billing.CreateCheckoutSession(ctx, stripeclient.CheckoutSessionRequest{
		CustomerID:            customerID,
		ProductName:           listing.Name,
		ProductDescription:    listing.Description,
		UnitAmount:            unitAmount,
		SuccessURL:            s.opts.AppBaseURL + "/gpts/" + in.GPTID + "?checkout=success",
		CancelURL:             s.opts.AppBaseURL + "/gpts/" + in.GPTID + "?checkout=cancelled",
		ClientReferenceID:     in.UserID,
		ConnectedAccountID:    creatorAcct.StripeAccountID,
		ApplicationFeePercent: s.opts.PlatformFeePercent,
		Metadata: map[string]string{
			"type":       domain.SubscriptionTypeCustomer,
			"user_id":    in.UserID,
			"gpt_id":     in.GPTID,
			"creator_id": in.CreatorID,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create customer checkout session: %w", err)
	}

	log.Printf("Created customer checkout session %s for user %s on gpt %s (unit=%d fee=%d)",
		sess.ID, in.UserID, in.GPTID, unitAmount, feeAmount)
	return &CustomerCheckoutResult{
		SessionID:      sess.ID,
		URL:            sess.URL,
		UnitAmount:     unitAmount,
		ApplicationFee: feeAmount,
	}, nil
}

// VerifySubscription is a pure read-through to Stripe; no local state is
// touched.
func (s Service) VerifySubscription(ctx context.Context, subscriptionID, stripeAccountID string) (*SubscriptionView, error) {
	if strings.TrimSpace(subscriptionID) == "" {
		return nil, fmt.Errorf("%w: subscriptionId is required", ErrInvalidArgument)
	}

	sub, err := s.billing.GetSubscription(ctx, subscriptionID, stripeAccountID)
	if err != nil {
		return nil, fmt.Errorf("verify subscription: %w", err)
	}

	view := &SubscriptionView{
		Status:            sub.Status,
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
	}
	if !sub.CurrentPeriodEnd.IsZero() {
		view.CurrentPeriodEnd = sub.CurrentPeriodEnd.Unix()
	}
	return view, nil
}

// GetConnectStatus returns the creator's payout readiness. When a row exists
// this is the one read path that also writes: the stored capability flags
// are overwritten with a live pull from Stripe before responding.
func (s Service) GetConnectStatus(ctx context.Context, userID string) (*ConnectStatusView, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: userId is required", ErrInvalidArgument)
	}

	acct, err := s.repo.GetConnectAccountByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrConnectAccountNotFound) {
			return &ConnectStatusView{Exists: false}, nil
		}
		return nil, fmt.Errorf("lookup connect account: %w", err)
	}

	live, err := s.billing.GetAccount(ctx, acct.StripeAccountID)
	if err != nil {
		return nil, fmt.Errorf("pull connect account status: %w", err)
	}

	onboardingComplete := live.DetailsSubmitted
	if err := s.repo.UpdateConnectAccountFlagsByUserID(ctx, userID,
		onboardingComplete, live.ChargesEnabled, live.PayoutsEnabled); err != nil {
		return nil, fmt.Errorf("refresh connect account flags: %w", err)
	}

	return &ConnectStatusView{
		Exists:             true,
		AccountID:          acct.StripeAccountID,
		OnboardingComplete: onboardingComplete,
		ChargesEnabled:     live.ChargesEnabled,
		PayoutsEnabled:     live.PayoutsEnabled,
	}, nil
}

func validateUserAndEmail(userID, email string) error {
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("%w: userId is required", ErrInvalidArgument)
	}
	if _, err := mail.ParseAddress(strings.TrimSpace(email)); err != nil {
		return fmt.Errorf("%w: a valid email is required", ErrInvalidArgument)
	}
	return nil
}
