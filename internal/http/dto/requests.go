package dto

type CreateEscrowRequest struct {
	FavorID     string `json:"favor_id"`
	RequesterID string `json:"requester_id"`
	HelperID    string `json:"helper_id"`
	AmountCents int64  `json:"amount_cents"`
}

type ReleaseEscrowRequest struct {
	// TriggeredBy is "requester" or "dispute-resolution"; "auto" is
	// reserved for the scheduler.
	TriggeredBy string `json:"triggered_by"`
}

type AddPaymentMethodRequest struct {
	Kind      string `json:"kind"` // card/bank/internal
	Label     string `json:"label"`
	Last4     string `json:"last4"`
	IsDefault bool   `json:"is_default"`
}

type SetKYCStatusRequest struct {
	Status string `json:"status"`
}
