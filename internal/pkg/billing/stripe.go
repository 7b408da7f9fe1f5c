package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v82"
	checkoutsession "github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/customer"
	"github.com/stripe/stripe-go/v82/subscription"

	"github.com/kontiq/kontiq/internal/pkg/env"
)

// ProviderClient is the outbound surface of the billing provider used by the
// sync service. It exists so the service and webhook ingress can be exercised
// in tests without network access.
type ProviderClient interface {
	CreateCustomer(ctx context.Context, email, organizationID string) (string, error)
	DeleteCustomer(ctx context.Context, customerID string) error
	GetSubscription(ctx context.Context, subscriptionID string) (*stripe.Subscription, error)
	CreateCheckoutSession(ctx context.Context, in CheckoutSessionInput) (string, error)
}

// CheckoutSessionInput describes a subscription checkout for one organization.
type CheckoutSessionInput struct {
	CustomerID     string
	PriceID        string
	OrganizationID string
	SuccessURL     string
	CancelURL      string
}

// StripeClient implements ProviderClient against the Stripe API.
type StripeClient struct{}

// NewStripeClient configures the Stripe SDK from the given secret key.
func NewStripeClient(apiKey string) (*StripeClient, error) {
	if apiKey == "" {
		return nil, errors.New("billing: stripe secret key is not configured")
	}
	stripe.Key = apiKey
	return &StripeClient{}, nil
}

// NewStripeClientFromEnv reads STRIPE_SECRET_KEY (live key wins if both are
// set, mirroring the provider dashboard convention).
func NewStripeClientFromEnv() (*StripeClient, error) {
	key := env.GetEnv("STRIPE_SECRET_KEY_LIVE", "")
	if key == "" {
		key = env.GetEnv("STRIPE_SECRET_KEY", "")
	}
	return NewStripeClient(key)
}

func (c *StripeClient) CreateCustomer(ctx context.Context, email, organizationID string) (string, error) {
	params := &stripe.CustomerParams{
		Email: stripe.String(email),
	}
	params.Context = ctx
	params.AddMetadata("organization_id", organizationID)

	cust, err := customer.New(params)
	if err != nil {
		return "", fmt.Errorf("create stripe customer: %w", err)
	}
	return cust.ID, nil
}

func (c *StripeClient) DeleteCustomer(ctx context.Context, customerID string) error {
	params := &stripe.CustomerParams{}
	params.Context = ctx
	if _, err := customer.Del(customerID, params); err != nil {
		return fmt.Errorf("delete stripe customer %s: %w", customerID, err)
	}
	return nil
}

// GetSubscription fetches the full current subscription state by id, with the
// default payment method expanded. Sync always works from this fetch, never
// from event payloads, so stale or partial events cannot regress local state.
func (c *StripeClient) GetSubscription(ctx context.Context, subscriptionID string) (*stripe.Subscription, error) {
	params := &stripe.SubscriptionParams{}
	params.Context = ctx
	params.AddExpand("default_payment_method")

	sub, err := subscription.Get(subscriptionID, params)
	if err != nil {
		return nil, fmt.Errorf("retrieve stripe subscription %s: %w", subscriptionID, err)
	}
	return sub, nil
}

func (c *StripeClient) CreateCheckoutSession(ctx context.Context, in CheckoutSessionInput) (string, error) {
	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes:       stripe.StringSlice([]string{"card"}),
		BillingAddressCollection: stripe.String("required"),
		Customer:                 stripe.String(in.CustomerID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(in.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		Mode:                stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		AllowPromotionCodes: stripe.Bool(true),
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{
				"organization_id": in.OrganizationID,
			},
		},
		SuccessURL: stripe.String(in.SuccessURL),
		CancelURL:  stripe.String(in.CancelURL),
	}
	params.Context = ctx

	sess, err := checkoutsession.New(params)
	if err != nil {
		return "", fmt.Errorf("create stripe checkout session: %w", err)
	}
	return sess.URL, nil
}
