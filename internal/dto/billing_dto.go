package dto

type CheckoutRequest struct {
	Tier string `json:"tier"`
}

type CheckoutResponse struct {
	URL string `json:"url"`
}

type WebhookResponse struct {
	Received bool `json:"received"`
	Stale    bool `json:"stale,omitempty"`
}
