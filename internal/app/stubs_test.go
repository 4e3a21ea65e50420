package app

import (
	"context"
	"fmt"

	"github.com/ejacques1/ErinGPT-Builder/internal/domain"
	"github.com/ejacques1/ErinGPT-Builder/internal/store"
	"github.com/ejacques1/ErinGPT-Builder/pkg/stripeclient"
)

// stubRepo is an in-memory Repository for service and reconciler tests.
type stubRepo struct {
	activeCreator    map[string]*domain.CreatorSubscription  // by user id
	activeCustomer   map[string]*domain.CustomerSubscription // by user id + "|" + gpt id
	connectByUser    map[string]*domain.ConnectAccount       // by user id
	connectByAccount map[string]*domain.ConnectAccount       // by stripe account id
	listings         map[string]*domain.GPTListing           // by listing id
	creatorBySubID   map[string]*domain.CreatorSubscription  // by stripe subscription id
	customerBySubID  map[string]*domain.CustomerSubscription // by stripe subscription id

	creatorUpserts  int
	customerUpserts int
	mutations       int
	failNext        error
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		activeCreator:    map[string]*domain.CreatorSubscription{},
		activeCustomer:   map[string]*domain.CustomerSubscription{},
		connectByUser:    map[string]*domain.ConnectAccount{},
		connectByAccount: map[string]*domain.ConnectAccount{},
		listings:         map[string]*domain.GPTListing{},
		creatorBySubID:   map[string]*domain.CreatorSubscription{},
		customerBySubID:  map[string]*domain.CustomerSubscription{},
	}
}

func (s *stubRepo) GetActiveCreatorSubscription(ctx context.Context, userID string) (*domain.CreatorSubscription, error) {
	if sub, ok := s.activeCreator[userID]; ok {
		return sub, nil
	}
	return nil, store.ErrSubscriptionNotFound
}

func (s *stubRepo) UpsertCreatorSubscription(ctx context.Context, sub *domain.CreatorSubscription) error {
	if s.failNext != nil {
		return s.failNext
	}
	s.creatorUpserts++
	s.mutations++
	s.creatorBySubID[sub.StripeSubscriptionID] = sub
	return nil
}

func (s *stubRepo) UpdateCreatorSubscriptionBySubscriptionID(ctx context.Context, subID string, update store.SubscriptionUpdate) (int64, error) {
	if s.failNext != nil {
		return 0, s.failNext
	}
	sub, ok := s.creatorBySubID[subID]
	if !ok {
		return 0, nil
	}
	s.mutations++
	if update.Status != nil {
		sub.Status = *update.Status
	}
	if update.CurrentPeriodStart != nil {
		sub.CurrentPeriodStart = *update.CurrentPeriodStart
	}
	if update.CurrentPeriodEnd != nil {
		sub.CurrentPeriodEnd = *update.CurrentPeriodEnd
	}
	return 1, nil
}

func (s *stubRepo) GetActiveCustomerSubscription(ctx context.Context, userID, gptID string) (*domain.CustomerSubscription, error) {
	if sub, ok := s.activeCustomer[userID+"|"+gptID]; ok {
		return sub, nil
	}
	return nil, store.ErrSubscriptionNotFound
}

func (s *stubRepo) UpsertCustomerSubscription(ctx context.Context, sub *domain.CustomerSubscription) error {
	if s.failNext != nil {
		return s.failNext
	}
	s.customerUpserts++
	s.mutations++
	s.customerBySubID[sub.StripeSubscriptionID] = sub
	return nil
}

func (s *stubRepo) UpdateCustomerSubscriptionBySubscriptionID(ctx context.Context, subID string, update store.SubscriptionUpdate) (int64, error) {
	if s.failNext != nil {
		return 0, s.failNext
	}
	sub, ok := s.customerBySubID[subID]
	if !ok {
		return 0, nil
	}
	s.mutations++
	if update.Status != nil {
		sub.Status = *update.Status
	}
	if update.CurrentPeriodStart != nil {
		sub.CurrentPeriodStart = *update.CurrentPeriodStart
	}
	if update.CurrentPeriodEnd != nil {
		sub.CurrentPeriodEnd = *update.CurrentPeriodEnd
	}
	return 1, nil
}

func (s *stubRepo) GetConnectAccountByUserID(ctx context.Context, userID string) (*domain.ConnectAccount, error) {
	if acct, ok := s.connectByUser[userID]; ok {
		return acct, nil
	}
	return nil, store.ErrConnectAccountNotFound
}

func (s *stubRepo) CreateConnectAccount(ctx context.Context, account *domain.ConnectAccount) error {
	s.mutations++
	s.connectByUser[account.UserID] = account
	s.connectByAccount[account.StripeAccountID] = account
	return nil
}

func (s *stubRepo) UpdateConnectAccountFlagsByUserID(ctx context.Context, userID string, onboardingComplete, chargesEnabled, payoutsEnabled bool) error {
	acct, ok := s.connectByUser[userID]
	if !ok {
		return fmt.Errorf("no connect account for %s", userID)
	}
	s.mutations++
	acct.OnboardingComplete = onboardingComplete
	acct.ChargesEnabled = chargesEnabled
	acct.PayoutsEnabled = payoutsEnabled
	return nil
}

func (s *stubRepo) UpdateConnectAccountFlagsByAccountID(ctx context.Context, stripeAccountID string, onboardingComplete, chargesEnabled, payoutsEnabled bool) (int64, error) {
	acct, ok := s.connectByAccount[stripeAccountID]
	if !ok {
		return 0, nil
	}
	s.mutations++
	acct.OnboardingComplete = onboardingComplete
	acct.ChargesEnabled = chargesEnabled
	acct.PayoutsEnabled = payoutsEnabled
	return 1, nil
}

func (s *stubRepo) GetListingByID(ctx context.Context, listingID string) (*domain.GPTListing, error) {
	if listing, ok := s.listings[listingID]; ok {
		return listing, nil
	}
	return nil, store.ErrListingNotFound
}

// stubBilling records gateway calls without touching Stripe.
type stubBilling struct {
	customerCalls int
	sessions      []stripeclient.CheckoutSessionRequest
	accountCalls  int

	account      *stripeclient.Account
	subscription *stripeclient.Subscription
	sessionErr   error
}

func (b *stubBilling) FindOrCreateCustomer(ctx context.Context, email, connectedAccountID string) (string, error) {
	b.customerCalls++
	return "cus_test", nil
}

func (b *stubBilling) CreateCheckoutSession(ctx context.Context, req stripeclient.CheckoutSessionRequest) (*stripeclient.CheckoutSession, error) {
	if b.sessionErr != nil {
		return nil, b.sessionErr
	}
	b.sessions = append(b.sessions, req)
	return &stripeclient.CheckoutSession{ID: "cs_test", URL: "https://checkout.stripe.com/c/pay/cs_test"}, nil
}

func (b *stubBilling) CreateExpressAccount(ctx context.Context, email string) (string, error) {
	return "acct_new", nil
}

func (b *stubBilling) CreateOnboardingLink(ctx context.Context, accountID, refreshURL, returnURL string) (string, error) {
	return "https://connect.stripe.com/setup/s/" + accountID, nil
}

func (b *stubBilling) GetAccount(ctx context.Context, accountID string) (*stripeclient.Account, error) {
	b.accountCalls++
	if b.account != nil {
		return b.account, nil
	}
	return &stripeclient.Account{ID: accountID}, nil
}

func (b *stubBilling) GetSubscription(ctx context.Context, subscriptionID, connectedAccountID string) (*stripeclient.Subscription, error) {
	if b.subscription != nil {
		return b.subscription, nil
	}
	return &stripeclient.Subscription{ID: subscriptionID, Status: "active"}, nil
}
