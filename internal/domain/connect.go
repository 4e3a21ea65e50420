/**
 * @description
 * Domain model for a creator's Stripe Connect account. The stored row is a
 * cached mirror of the capability flags Stripe holds for the account; it is
 * refreshed both by a live pull (the connect-status read path) and by a push
 * (the account.updated webhook). Staleness is bounded only by whichever of
 * the two happens next.
 */
package domain

// ConnectAccount maps a platform user to their Stripe Express account.
type ConnectAccount struct {
	ID                 string `json:"id"`
	UserID             string `json:"user_id"`
	StripeAccountID    string `json:"stripe_account_id"`
	OnboardingComplete bool   `json:"onboarding_complete"`
	ChargesEnabled     bool   `json:"charges_enabled"`
	PayoutsEnabled     bool   `json:"payouts_enabled"`
}
