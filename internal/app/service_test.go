package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ejacques1/ErinGPT-Builder/internal/domain"
	"github.com/ejacques1/ErinGPT-Builder/pkg/stripeclient"
)

func newTestService(repo *stubRepo, billing *stubBilling) Service {
	return NewService(repo, billing, Options{
		AppBaseURL:         "https://eringpt.example.com",
		CreatorPriceCents:  1900,
		PlatformFeePercent: 30,
	})
}

func TestCreateCreatorSubscription_ConflictOnActiveRow(t *testing.T) {
	repo := newStubRepo()
	repo.activeCreator["user_1"] = &domain.CreatorSubscription{
		UserID: "user_1",
		Status: domain.SubscriptionStatusActive,
	}
	billing := &stubBilling{}
	service := newTestService(repo, billing)

	_, err := service.CreateCreatorSubscription(context.Background(), "user_1", "creator@example.com")
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if len(billing.sessions) != 0 {
		t.Fatalf("expected no checkout session for duplicate subscription, got %d", len(billing.sessions))
	}
}

func TestCreateCreatorSubscription_CreatesSessionWithoutWritingRow(t *testing.T) {
	repo := newStubRepo()
	billing := &stubBilling{}
	service := newTestService(repo, billing)

	result, err := service.CreateCreatorSubscription(context.Background(), "user_1", "creator@example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.SessionID != "cs_test" || result.URL == "" {
		t.Fatalf("unexpected checkout result: %+v", result)
	}

	// The row is written later by the webhook reconciler, not here.
	if repo.mutations != 0 {
		t.Fatalf("expected zero row mutations, got %d", repo.mutations)
	}

	if len(billing.sessions) != 1 {
		t.Fatalf("expected one checkout session, got %d", len(billing.sessions))
	}
	sess := billing.sessions[0]
	if sess.UnitAmount != 1900 {
		t.Errorf("expected unit amount 1900, got %d", sess.UnitAmount)
	}
	if sess.Metadata["type"] != domain.SubscriptionTypeCreator || sess.Metadata["user_id"] != "user_1" {
		t.Errorf("unexpected session metadata: %v", sess.Metadata)
	}
}

func TestCreateCreatorSubscription_RejectsInvalidInput(t *testing.T) {
	service := newTestService(newStubRepo(), &stubBilling{})

	if _, err := service.CreateCreatorSubscription(context.Background(), "", "a@b.com"); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("empty user: expected ErrInvalidArgument, got %v", err)
	}
	if _, err := service.CreateCreatorSubscription(context.Background(), "user_1", "not-an-email"); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("bad email: expected ErrInvalidArgument, got %v", err)
	}
}

func TestCreateConnectAccount_ReusesStoredAccount(t *testing.T) {
	repo := newStubRepo()
	repo.connectByUser["user_1"] = &domain.ConnectAccount{
		UserID:          "user_1",
		StripeAccountID: "acct_existing",
	}
	service := newTestService(repo, &stubBilling{})

	result, err := service.CreateConnectAccount(context.Background(), "user_1", "creator@example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.AccountID != "acct_existing" {
		t.Fatalf("expected stored account to be reused, got %s", result.AccountID)
	}
	if result.URL == "" {
		t.Fatal("expected a fresh onboarding link")
	}
}

func TestCreateConnectAccount_PersistsMappingOnFirstCreation(t *testing.T) {
	repo := newStubRepo()
	service := newTestService(repo, &stubBilling{})

	result, err := service.CreateConnectAccount(context.Background(), "user_1", "creator@example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.AccountID != "acct_new" {
		t.Fatalf("expected freshly created account, got %s", result.AccountID)
	}

	stored := repo.connectByUser["user_1"]
	if stored == nil {
		t.Fatal("expected connect account row to be persisted")
	}
	if stored.OnboardingComplete || stored.ChargesEnabled || stored.PayoutsEnabled {
		t.Fatal("capability flags must start false")
	}
}

const testGPTID = "6b1e6f2a-54d0-4c5e-9a3b-8f25c3f1d9e1"

func customerInput() CustomerSubscriptionInput {
	return CustomerSubscriptionInput{
		UserID:       "user_2",
		Email:        "customer@example.com",
		GPTID:        testGPTID,
		CreatorID:    "user_1",
		MonthlyPrice: 29.99,
	}
}

func TestCreateCustomerSubscription_RequiresOnboardedCreator(t *testing.T) {
	billing := &stubBilling{}
	service := newTestService(newStubRepo(), billing)

	// No connect account at all.
	_, err := service.CreateCustomerSubscription(context.Background(), customerInput())
	if !errors.Is(err, ErrPreconditionFailed) {
		t.Fatalf("missing account: expected ErrPreconditionFailed, got %v", err)
	}

	// Account exists but onboarding is incomplete.
	repo := newStubRepo()
	repo.connectByUser["user_1"] = &domain.ConnectAccount{
		UserID:          "user_1",
		StripeAccountID: "acct_creator",
	}
	service = newTestService(repo, billing)

	_, err = service.CreateCustomerSubscription(context.Background(), customerInput())
	if !errors.Is(err, ErrPreconditionFailed) {
		t.Fatalf("incomplete onboarding: expected ErrPreconditionFailed, got %v", err)
	}
	if len(billing.sessions) != 0 {
		t.Fatalf("expected no checkout session, got %d", len(billing.sessions))
	}
}

func onboardedRepo() *stubRepo {
	repo := newStubRepo()
	repo.connectByUser["user_1"] = &domain.ConnectAccount{
		UserID:             "user_1",
		StripeAccountID:    "acct_creator",
		OnboardingComplete: true,
		ChargesEnabled:     true,
		PayoutsEnabled:     true,
	}
	repo.listings[testGPTID] = &domain.GPTListing{
		ID:           testGPTID,
		Name:         "Recipe Wizard",
		MonthlyPrice: 29.99,
	}
	return repo
}

func TestCreateCustomerSubscription_ConflictOnActivePair(t *testing.T) {
	repo := onboardedRepo()
	repo.activeCustomer["user_2|"+testGPTID] = &domain.CustomerSubscription{
		UserID: "user_2",
		GPTID:  testGPTID,
		Status: domain.SubscriptionStatusActive,
	}
	billing := &stubBilling{}
	service := newTestService(repo, billing)

	_, err := service.CreateCustomerSubscription(context.Background(), customerInput())
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if len(billing.sessions) != 0 {
		t.Fatal("expected no checkout session for duplicate subscription")
	}
}

func TestCreateCustomerSubscription_NotFoundListing(t *testing.T) {
	repo := onboardedRepo()
	delete(repo.listings, testGPTID)
	service := newTestService(repo, &stubBilling{})

	_, err := service.CreateCustomerSubscription(context.Background(), customerInput())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateCustomerSubscription_FeeComputation(t *testing.T) {
	repo := onboardedRepo()
	billing := &stubBilling{}
	service := newTestService(repo, billing)

	result, err := service.CreateCustomerSubscription(context.Background(), customerInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.UnitAmount != 2999 {
		t.Errorf("expected unit amount 2999, got %d", result.UnitAmount)
	}
	if result.ApplicationFee != 900 {
		t.Errorf("expected application fee 900, got %d", result.ApplicationFee)
	}

	if len(billing.sessions) != 1 {
		t.Fatalf("expected one checkout session, got %d", len(billing.sessions))
	}
	sess := billing.sessions[0]
	if sess.ConnectedAccountID != "acct_creator" {
		t.Errorf("expected session on creator account, got %q", sess.ConnectedAccountID)
	}
	if sess.ApplicationFeePercent != 30 {
		t.Errorf("expected 30%% fee, got %v", sess.ApplicationFeePercent)
	}
	if sess.Metadata["user_id"] != "user_2" || sess.Metadata["gpt_id"] != testGPTID || sess.Metadata["creator_id"] != "user_1" {
		t.Errorf("unexpected session metadata: %v", sess.Metadata)
	}
}

func TestVerifySubscription_ReadThrough(t *testing.T) {
	periodEnd := time.Date(2026, 9, 30, 0, 0, 0, 0, time.UTC)
	billing := &stubBilling{subscription: &stripeclient.Subscription{
		ID:                "sub_1",
		Status:            "past_due",
		CancelAtPeriodEnd: true,
		CurrentPeriodEnd:  periodEnd,
	}}
	service := newTestService(newStubRepo(), billing)

	view, err := service.VerifySubscription(context.Background(), "sub_1", "acct_creator")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if view.Status != "past_due" || !view.CancelAtPeriodEnd {
		t.Fatalf("unexpected view: %+v", view)
	}
	if view.CurrentPeriodEnd != periodEnd.Unix() {
		t.Fatalf("expected period end %d, got %d", periodEnd.Unix(), view.CurrentPeriodEnd)
	}
}

func TestVerifySubscription_RequiresID(t *testing.T) {
	service := newTestService(newStubRepo(), &stubBilling{})
	if _, err := service.VerifySubscription(context.Background(), " ", ""); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestGetConnectStatus_NoRowSkipsGateway(t *testing.T) {
	billing := &stubBilling{}
	service := newTestService(newStubRepo(), billing)

	view, err := service.GetConnectStatus(context.Background(), "user_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if view.Exists {
		t.Fatal("expected exists=false")
	}
	if billing.accountCalls != 0 {
		t.Fatalf("expected no gateway call, got %d", billing.accountCalls)
	}
}

func TestGetConnectStatus_RefreshesStoredFlags(t *testing.T) {
	repo := newStubRepo()
	repo.connectByUser["user_1"] = &domain.ConnectAccount{
		UserID:          "user_1",
		StripeAccountID: "acct_creator",
	}
	billing := &stubBilling{account: &stripeclient.Account{
		ID:               "acct_creator",
		ChargesEnabled:   true,
		PayoutsEnabled:   true,
		DetailsSubmitted: true,
	}}
	service := newTestService(repo, billing)

	view, err := service.GetConnectStatus(context.Background(), "user_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !view.Exists || !view.OnboardingComplete || !view.ChargesEnabled {
		t.Fatalf("unexpected view: %+v", view)
	}

	stored := repo.connectByUser["user_1"]
	if !stored.OnboardingComplete || !stored.ChargesEnabled || !stored.PayoutsEnabled {
		t.Fatal("expected stored flags to be overwritten by the live pull")
	}
}
