package domain

// GPTListing is a published GPT in the marketplace. This service only reads
// listings, to resolve checkout line items; creation and editing live in the
// frontend's own data path.
type GPTListing struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Description  string  `json:"description"`
	MonthlyPrice float64 `json:"monthly_price"`
}
