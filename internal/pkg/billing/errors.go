package billing

import "errors"

// Failure taxonomy for webhook processing. All of these surface at the HTTP
// boundary as a 400 response; none are retried locally. Redelivery is owned
// by the billing provider.
var (
	// ErrConfiguration means the signature header or the signing secret was
	// missing, so verification was never attempted.
	ErrConfiguration = errors.New("billing: webhook signature or secret missing")

	// ErrSignatureInvalid means cryptographic verification of the payload
	// failed. The request is dropped with no side effects.
	ErrSignatureInvalid = errors.New("billing: webhook signature verification failed")

	// ErrUnknownCustomer means a subscription event referenced a provider
	// customer with no local organization mapping.
	ErrUnknownCustomer = errors.New("billing: no organization mapped to provider customer")

	// ErrReferentialIntegrity means a price referenced a product that does
	// not exist locally.
	ErrReferentialIntegrity = errors.New("billing: price references unknown product")
)
