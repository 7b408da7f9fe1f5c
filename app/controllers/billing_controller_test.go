package controllers

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82"
	"gorm.io/gorm"

	"github.com/kontiq/kontiq/app/models"
	"github.com/kontiq/kontiq/internal/pkg/billing"
)

// stubBillingRepo is an in-memory billing.Repository for handler tests.
type stubBillingRepo struct {
	customersByOrg    map[string]*models.BillingCustomer
	customersByStripe map[string]*models.BillingCustomer
	products          map[string]*models.Product
	prices            map[string]*models.Price
	subscriptions     map[string]*models.Subscription
	events            map[string]*models.BillingWebhookEvent

	recordErr   error
	nextEventID uint
}

func newStubBillingRepo() *stubBillingRepo {
	return &stubBillingRepo{
		customersByOrg:    map[string]*models.BillingCustomer{},
		customersByStripe: map[string]*models.BillingCustomer{},
		products:          map[string]*models.Product{},
		prices:            map[string]*models.Price{},
		subscriptions:     map[string]*models.Subscription{},
		events:            map[string]*models.BillingWebhookEvent{},
	}
}

func (r *stubBillingRepo) GetCustomerByOrganization(orgID string) (*models.BillingCustomer, error) {
	if m, ok := r.customersByOrg[orgID]; ok {
		return m, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubBillingRepo) GetCustomerByStripeID(stripeCustomerID string) (*models.BillingCustomer, error) {
	if m, ok := r.customersByStripe[stripeCustomerID]; ok {
		return m, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubBillingRepo) CreateCustomer(mapping *models.BillingCustomer) error {
	r.customersByOrg[mapping.OrganizationID] = mapping
	r.customersByStripe[mapping.StripeCustomerID] = mapping
	return nil
}

func (r *stubBillingRepo) UpsertProduct(product *models.Product) error {
	r.products[product.ID] = product
	return nil
}

func (r *stubBillingRepo) UpsertPrice(price *models.Price) error {
	if _, ok := r.products[price.ProductID]; !ok {
		return billing.ErrReferentialIntegrity
	}
	r.prices[price.ID] = price
	return nil
}

func (r *stubBillingRepo) UpsertSubscription(sub *models.Subscription) error {
	r.subscriptions[sub.ID] = sub
	return nil
}

func (r *stubBillingRepo) GetActiveSubscriptionByOrganization(orgID string) (*models.Subscription, error) {
	for _, sub := range r.subscriptions {
		if sub.OrganizationID == orgID && sub.IsEntitling() {
			return sub, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubBillingRepo) ListActiveProductsWithPrices() ([]models.Product, error) {
	var out []models.Product
	for _, p := range r.products {
		if p.Active {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *stubBillingRepo) CreateWebhookEventIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error) {
	if r.recordErr != nil {
		return false, nil, r.recordErr
	}
	if stored, ok := r.events[event.StripeEventID]; ok {
		return false, stored, nil
	}
	r.nextEventID++
	event.ID = r.nextEventID
	r.events[event.StripeEventID] = event
	return true, event, nil
}

func (r *stubBillingRepo) MarkWebhookProcessed(id uint, processingError string) error {
	for _, event := range r.events {
		if event.ID == id {
			now := time.Now()
			event.ProcessedAt = &now
			event.ProcessingError = processingError
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

// stubBillingProvider serves canned provider state to the sync service.
type stubBillingProvider struct {
	subscriptions map[string]*stripe.Subscription
}

func (p *stubBillingProvider) CreateCustomer(ctx context.Context, email, organizationID string) (string, error) {
	return "cus_stub", nil
}

func (p *stubBillingProvider) DeleteCustomer(ctx context.Context, customerID string) error {
	return nil
}

func (p *stubBillingProvider) GetSubscription(ctx context.Context, subscriptionID string) (*stripe.Subscription, error) {
	sub, ok := p.subscriptions[subscriptionID]
	if !ok {
		return nil, fmt.Errorf("no such subscription %s", subscriptionID)
	}
	return sub, nil
}

func (p *stubBillingProvider) CreateCheckoutSession(ctx context.Context, in billing.CheckoutSessionInput) (string, error) {
	return "https://checkout.test/cs_stub", nil
}

func installStubBillingService(t *testing.T, repo *stubBillingRepo, provider *stubBillingProvider) {
	t.Helper()
	if provider == nil {
		provider = &stubBillingProvider{subscriptions: map[string]*stripe.Subscription{}}
	}
	orig := billingServiceFactory
	billingServiceFactory = func() (*billing.Service, error) {
		return billing.NewService(repo, provider), nil
	}
	t.Cleanup(func() { billingServiceFactory = orig })
}

func newWebhookApp() *fiber.App {
	app := fiber.New()
	app.Post("/webhooks/stripe", HandleStripeWebhook)
	return app
}

func signWebhookPayload(payload []byte, secret string) string {
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts, payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func webhookEventPayload(t *testing.T, id, eventType string, object interface{}) []byte {
	t.Helper()
	raw, err := json.Marshal(object)
	require.NoError(t, err)
	payload, err := json.Marshal(map[string]interface{}{
		"id":   id,
		"type": eventType,
		"data": map[string]interface{}{"object": json.RawMessage(raw)},
	})
	require.NoError(t, err)
	return payload
}

func postSignedWebhook(t *testing.T, app *fiber.App, payload []byte) (int, string) {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, "/webhooks/stripe", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", signWebhookPayload(payload, "whsec_test"))

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func TestHandleStripeWebhook_MissingSecretIsRejected(t *testing.T) {
	t.Setenv("STRIPE_WEBHOOK_SECRET", "")

	app := newWebhookApp()
	req := httptest.NewRequest(fiber.MethodPost, "/webhooks/stripe", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Stripe-Signature", "t=1,v1=deadbeef")

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "secret or signature missing")
}

func TestHandleStripeWebhook_MissingSignatureHeaderIsRejected(t *testing.T) {
	t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec_test")

	app := newWebhookApp()
	req := httptest.NewRequest(fiber.MethodPost, "/webhooks/stripe", bytes.NewReader([]byte(`{}`)))

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestHandleStripeWebhook_BadSignatureIsRejected(t *testing.T) {
	t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec_test")

	payload := []byte(`{"id":"evt_1","type":"product.created"}`)

	app := newWebhookApp()
	req := httptest.NewRequest(fiber.MethodPost, "/webhooks/stripe", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", signWebhookPayload(payload, "whsec_other"))

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "signature verification failed")
}

func TestHandleStripeWebhook_ValidSignatureWithoutProviderConfig(t *testing.T) {
	t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec_test")
	t.Setenv("STRIPE_SECRET_KEY", "")
	t.Setenv("STRIPE_SECRET_KEY_LIVE", "")

	payload := []byte(`{"id":"evt_1","type":"product.created","data":{"object":{"id":"prod_1"}}}`)

	app := newWebhookApp()
	req := httptest.NewRequest(fiber.MethodPost, "/webhooks/stripe", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", signWebhookPayload(payload, "whsec_test"))

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	// Signature passed, but the billing provider is unconfigured.
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "provider not configured")
}

func TestHandleStripeWebhook_RelevantEventIsProcessed(t *testing.T) {
	t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec_test")
	repo := newStubBillingRepo()
	installStubBillingService(t, repo, nil)

	app := newWebhookApp()
	payload := webhookEventPayload(t, "evt_1", "product.created", map[string]interface{}{
		"id":     "prod_1",
		"active": true,
		"name":   "Starter",
	})

	status, body := postSignedWebhook(t, app, payload)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, body, `"received":true`)
	assert.NotContains(t, body, "duplicate")
	assert.NotContains(t, body, "ignored")

	require.NotNil(t, repo.products["prod_1"])
	stored := repo.events["evt_1"]
	require.NotNil(t, stored)
	assert.True(t, stored.ProcessedSuccessfully())
}

func TestHandleStripeWebhook_IrrelevantEventIsAcknowledged(t *testing.T) {
	t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec_test")
	repo := newStubBillingRepo()
	installStubBillingService(t, repo, nil)

	app := newWebhookApp()
	payload := webhookEventPayload(t, "evt_1", "invoice.paid", map[string]interface{}{
		"id": "in_1",
	})

	status, body := postSignedWebhook(t, app, payload)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, body, `"ignored":true`)

	stored := repo.events["evt_1"]
	require.NotNil(t, stored)
	assert.True(t, stored.ProcessedSuccessfully())
}

func TestHandleStripeWebhook_ProcessedDuplicateIsAcknowledged(t *testing.T) {
	t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec_test")
	repo := newStubBillingRepo()
	installStubBillingService(t, repo, nil)

	processedAt := time.Now().Add(-time.Minute)
	repo.nextEventID = 1
	repo.events["evt_1"] = &models.BillingWebhookEvent{
		ID:            1,
		StripeEventID: "evt_1",
		EventType:     "product.created",
		ProcessedAt:   &processedAt,
	}

	app := newWebhookApp()
	payload := webhookEventPayload(t, "evt_1", "product.created", map[string]interface{}{
		"id":     "prod_1",
		"active": true,
		"name":   "Starter",
	})

	status, body := postSignedWebhook(t, app, payload)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, body, `"duplicate":true`)
	assert.Empty(t, repo.products, "a duplicate must not be reprocessed")
}

func TestHandleStripeWebhook_FailedDeliveryIsReprocessedOnRedelivery(t *testing.T) {
	t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec_test")
	repo := newStubBillingRepo()
	provider := &stubBillingProvider{subscriptions: map[string]*stripe.Subscription{
		"sub_1": {
			ID:       "sub_1",
			Status:   stripe.SubscriptionStatusActive,
			Customer: &stripe.Customer{ID: "cus_1"},
			Items: &stripe.SubscriptionItemList{
				Data: []*stripe.SubscriptionItem{
					{Price: &stripe.Price{ID: "price_basic"}, Quantity: 1},
				},
			},
		},
	}}
	installStubBillingService(t, repo, provider)

	app := newWebhookApp()
	payload := webhookEventPayload(t, "evt_1", "customer.subscription.updated", map[string]interface{}{
		"id":       "sub_1",
		"customer": "cus_1",
		"status":   "active",
	})

	// First delivery fails: no customer mapping exists yet.
	status, body := postSignedWebhook(t, app, payload)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Contains(t, body, "Webhook handler failed")
	stored := repo.events["evt_1"]
	require.NotNil(t, stored)
	assert.NotEmpty(t, stored.ProcessingError)
	assert.Empty(t, repo.subscriptions)

	// The mapping appears out-of-band; the provider's redelivery of the same
	// event id must now run the sync instead of being swallowed as duplicate.
	require.NoError(t, repo.CreateCustomer(&models.BillingCustomer{
		OrganizationID:   "org-1",
		StripeCustomerID: "cus_1",
	}))

	status, body = postSignedWebhook(t, app, payload)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, body, `"received":true`)
	assert.NotContains(t, body, "duplicate")

	row := repo.subscriptions["sub_1"]
	require.NotNil(t, row)
	assert.Equal(t, "org-1", row.OrganizationID)
	assert.True(t, repo.events["evt_1"].ProcessedSuccessfully())
}

func TestHandleStripeWebhook_PersistFailureIsRetriable(t *testing.T) {
	t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec_test")
	repo := newStubBillingRepo()
	repo.recordErr = fmt.Errorf("connection refused")
	installStubBillingService(t, repo, nil)

	app := newWebhookApp()
	payload := webhookEventPayload(t, "evt_1", "product.created", map[string]interface{}{
		"id": "prod_1",
	})

	status, body := postSignedWebhook(t, app, payload)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Contains(t, body, "could not be recorded")
}
