package api

import (
	"context"

	"github.com/ejacques1/ErinGPT-Builder/internal/domain"
	"github.com/ejacques1/ErinGPT-Builder/internal/store"
	"github.com/ejacques1/ErinGPT-Builder/pkg/openaiclient"
	"github.com/ejacques1/ErinGPT-Builder/pkg/stripeclient"
)

// fakeRepo is a minimal Repository for handler tests. Lookups miss unless
// seeded; writes count mutations.
type fakeRepo struct {
	connectByUser map[string]*domain.ConnectAccount
	mutations     int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{connectByUser: map[string]*domain.ConnectAccount{}}
}

func (f *fakeRepo) GetActiveCreatorSubscription(ctx context.Context, userID string) (*domain.CreatorSubscription, error) {
	return nil, store.ErrSubscriptionNotFound
}

func (f *fakeRepo) UpsertCreatorSubscription(ctx context.Context, sub *domain.CreatorSubscription) error {
	f.mutations++
	return nil
}

func (f *fakeRepo) UpdateCreatorSubscriptionBySubscriptionID(ctx context.Context, subID string, update store.SubscriptionUpdate) (int64, error) {
	f.mutations++
	return 1, nil
}

func (f *fakeRepo) GetActiveCustomerSubscription(ctx context.Context, userID, gptID string) (*domain.CustomerSubscription, error) {
	return nil, store.ErrSubscriptionNotFound
}

func (f *fakeRepo) UpsertCustomerSubscription(ctx context.Context, sub *domain.CustomerSubscription) error {
	f.mutations++
	return nil
}

func (f *fakeRepo) UpdateCustomerSubscriptionBySubscriptionID(ctx context.Context, subID string, update store.SubscriptionUpdate) (int64, error) {
	f.mutations++
	return 1, nil
}

func (f *fakeRepo) GetConnectAccountByUserID(ctx context.Context, userID string) (*domain.ConnectAccount, error) {
	if acct, ok := f.connectByUser[userID]; ok {
		return acct, nil
	}
	return nil, store.ErrConnectAccountNotFound
}

func (f *fakeRepo) CreateConnectAccount(ctx context.Context, account *domain.ConnectAccount) error {
	f.mutations++
	f.connectByUser[account.UserID] = account
	return nil
}

func (f *fakeRepo) UpdateConnectAccountFlagsByUserID(ctx context.Context, userID string, onboardingComplete, chargesEnabled, payoutsEnabled bool) error {
	f.mutations++
	return nil
}

func (f *fakeRepo) UpdateConnectAccountFlagsByAccountID(ctx context.Context, stripeAccountID string, onboardingComplete, chargesEnabled, payoutsEnabled bool) (int64, error) {
	f.mutations++
	return 1, nil
}

func (f *fakeRepo) GetListingByID(ctx context.Context, listingID string) (*domain.GPTListing, error) {
	return nil, store.ErrListingNotFound
}

// fakeBilling answers gateway calls with fixed test objects.
type fakeBilling struct {
	subscription *stripeclient.Subscription
	accountCalls int
}

func (b *fakeBilling) FindOrCreateCustomer(ctx context.Context, email, connectedAccountID string) (string, error) {
	return "cus_test", nil
}

func (b *fakeBilling) CreateCheckoutSession(ctx context.Context, req stripeclient.CheckoutSessionRequest) (*stripeclient.CheckoutSession, error) {
	return &stripeclient.CheckoutSession{ID: "cs_test", URL: "https://checkout.stripe.com/c/pay/cs_test"}, nil
}

func (b *fakeBilling) CreateExpressAccount(ctx context.Context, email string) (string, error) {
	return "acct_test", nil
}

func (b *fakeBilling) CreateOnboardingLink(ctx context.Context, accountID, refreshURL, returnURL string) (string, error) {
	return "https://connect.stripe.com/setup/s/" + accountID, nil
}

func (b *fakeBilling) GetAccount(ctx context.Context, accountID string) (*stripeclient.Account, error) {
	b.accountCalls++
	return &stripeclient.Account{ID: accountID}, nil
}

func (b *fakeBilling) GetSubscription(ctx context.Context, subscriptionID, connectedAccountID string) (*stripeclient.Subscription, error) {
	if b.subscription != nil {
		return b.subscription, nil
	}
	return &stripeclient.Subscription{ID: subscriptionID, Status: "active"}, nil
}

// fakeCompletionClient returns a canned answer.
type fakeCompletionClient struct {
	calls int
	err   error
}

func (c *fakeCompletionClient) CreateChatCompletion(ctx context.Context, req openaiclient.ChatRequest) (*openaiclient.ChatResponse, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return &openaiclient.ChatResponse{
		Content: "The answer is 4.",
		Model:   req.Model,
		Usage:   openaiclient.Usage{PromptTokens: 12, CompletionTokens: 6, TotalTokens: 18},
	}, nil
}
