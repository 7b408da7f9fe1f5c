package apiv1

// Pong is the ping response.
type Pong struct {
	Ping string `json:"ping"`
}

// SubscriptionStatus is the JSON shape of the organization's current
// subscription state.
type SubscriptionStatus struct {
	Active             bool    `json:"active"`
	Status             string  `json:"status,omitempty"`
	PriceID            string  `json:"price_id,omitempty"`
	CancelAtPeriodEnd  bool    `json:"cancel_at_period_end,omitempty"`
	CurrentPeriodEnd   *string `json:"current_period_end,omitempty"`
}

// CheckoutSessionRequest asks for a hosted checkout page for a price.
type CheckoutSessionRequest struct {
	PriceID string `json:"price_id"`
}

// CheckoutSessionResponse carries the hosted checkout URL.
type CheckoutSessionResponse struct {
	URL string `json:"url"`
}
