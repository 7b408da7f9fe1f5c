package billing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kontiq/kontiq/app/models"
)

func TestStartCheckout_CreatesCustomerAndSession(t *testing.T) {
	repo := newFakeRepository()
	provider := newFakeProvider()
	svc := NewService(repo, provider)

	url, err := svc.StartCheckout(context.Background(), "org-1", "owner@example.com", "price_basic",
		"https://app.test/ok", "https://app.test/cancel")
	require.NoError(t, err)
	assert.Equal(t, "cs_test_1", url)
	assert.Equal(t, 1, provider.createCustomerCalls)

	// Second checkout reuses the stored mapping.
	_, err = svc.StartCheckout(context.Background(), "org-1", "owner@example.com", "price_basic",
		"https://app.test/ok", "https://app.test/cancel")
	require.NoError(t, err)
	assert.Equal(t, 1, provider.createCustomerCalls)
}

func TestStartCheckout_RequiresPriceID(t *testing.T) {
	svc := NewService(newFakeRepository(), newFakeProvider())

	_, err := svc.StartCheckout(context.Background(), "org-1", "owner@example.com", "",
		"https://app.test/ok", "https://app.test/cancel")
	assert.Error(t, err)
}

func TestResyncSubscription_RefetchesProviderTruth(t *testing.T) {
	repo := newFakeRepository()
	provider := newFakeProvider()
	svc := NewService(repo, provider)

	require.NoError(t, repo.CreateCustomer(&models.BillingCustomer{
		OrganizationID:   "org-1",
		StripeCustomerID: "cus_1",
	}))
	require.NoError(t, repo.UpsertSubscription(&models.Subscription{
		ID:             "sub_1",
		OrganizationID: "org-1",
		Status:         models.SubscriptionStatusActive,
	}))
	provider.subscriptions["sub_1"] = providerSubscription("sub_1", "cus_1", "past_due")

	sub, err := svc.ResyncSubscription(context.Background(), "org-1")
	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.Equal(t, models.SubscriptionStatusPastDue, sub.Status)
}

func TestResyncSubscription_NoActiveSubscription(t *testing.T) {
	svc := NewService(newFakeRepository(), newFakeProvider())

	sub, err := svc.ResyncSubscription(context.Background(), "org-1")
	require.NoError(t, err)
	assert.Nil(t, sub)
}
