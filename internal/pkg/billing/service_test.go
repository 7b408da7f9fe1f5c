package billing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v82"
	"gorm.io/gorm"

	"github.com/kontiq/kontiq/app/models"
)

// fakeRepository is an in-memory Repository used to exercise the service
// without a database.
type fakeRepository struct {
	customersByOrg    map[string]*models.BillingCustomer
	customersByStripe map[string]*models.BillingCustomer
	products          map[string]*models.Product
	prices            map[string]*models.Price
	subscriptions     map[string]*models.Subscription
	webhookEvents     map[string]*models.BillingWebhookEvent
	processedErrors   map[uint]string

	failCreateCustomer bool
	nextEventID        uint
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		customersByOrg:    map[string]*models.BillingCustomer{},
		customersByStripe: map[string]*models.BillingCustomer{},
		products:          map[string]*models.Product{},
		prices:            map[string]*models.Price{},
		subscriptions:     map[string]*models.Subscription{},
		webhookEvents:     map[string]*models.BillingWebhookEvent{},
		processedErrors:   map[uint]string{},
	}
}

func (r *fakeRepository) GetCustomerByOrganization(orgID string) (*models.BillingCustomer, error) {
	if m, ok := r.customersByOrg[orgID]; ok {
		return m, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeRepository) GetCustomerByStripeID(stripeCustomerID string) (*models.BillingCustomer, error) {
	if m, ok := r.customersByStripe[stripeCustomerID]; ok {
		return m, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeRepository) CreateCustomer(mapping *models.BillingCustomer) error {
	if r.failCreateCustomer {
		return errors.New("simulated insert failure")
	}
	r.customersByOrg[mapping.OrganizationID] = mapping
	r.customersByStripe[mapping.StripeCustomerID] = mapping
	return nil
}

func (r *fakeRepository) UpsertProduct(product *models.Product) error {
	r.products[product.ID] = product
	return nil
}

func (r *fakeRepository) UpsertPrice(price *models.Price) error {
	if _, ok := r.products[price.ProductID]; !ok {
		return ErrReferentialIntegrity
	}
	r.prices[price.ID] = price
	return nil
}

func (r *fakeRepository) UpsertSubscription(sub *models.Subscription) error {
	r.subscriptions[sub.ID] = sub
	return nil
}

func (r *fakeRepository) GetActiveSubscriptionByOrganization(orgID string) (*models.Subscription, error) {
	for _, sub := range r.subscriptions {
		if sub.OrganizationID == orgID && sub.IsEntitling() {
			return sub, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeRepository) ListActiveProductsWithPrices() ([]models.Product, error) {
	var out []models.Product
	for _, p := range r.products {
		if p.Active {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *fakeRepository) CreateWebhookEventIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error) {
	if stored, ok := r.webhookEvents[event.StripeEventID]; ok {
		return false, stored, nil
	}
	r.nextEventID++
	event.ID = r.nextEventID
	r.webhookEvents[event.StripeEventID] = event
	return true, event, nil
}

func (r *fakeRepository) MarkWebhookProcessed(id uint, processingError string) error {
	r.processedErrors[id] = processingError
	return nil
}

// fakeProvider simulates the billing provider. Subscriptions returned by
// GetSubscription represent "current provider truth" regardless of which
// event triggered the fetch.
type fakeProvider struct {
	subscriptions map[string]*stripe.Subscription

	createCustomerCalls int
	deletedCustomers    []string
	subscriptionErr     error
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{subscriptions: map[string]*stripe.Subscription{}}
}

func (p *fakeProvider) CreateCustomer(ctx context.Context, email, organizationID string) (string, error) {
	p.createCustomerCalls++
	return "cus_test_1", nil
}

func (p *fakeProvider) DeleteCustomer(ctx context.Context, customerID string) error {
	p.deletedCustomers = append(p.deletedCustomers, customerID)
	return nil
}

func (p *fakeProvider) GetSubscription(ctx context.Context, subscriptionID string) (*stripe.Subscription, error) {
	if p.subscriptionErr != nil {
		return nil, p.subscriptionErr
	}
	sub, ok := p.subscriptions[subscriptionID]
	if !ok {
		return nil, errors.New("no such subscription")
	}
	return sub, nil
}

func (p *fakeProvider) CreateCheckoutSession(ctx context.Context, in CheckoutSessionInput) (string, error) {
	return "cs_test_1", nil
}

func providerSubscription(id, customerID string, status stripe.SubscriptionStatus) *stripe.Subscription {
	now := time.Now().Unix()
	return &stripe.Subscription{
		ID:       id,
		Status:   status,
		Customer: &stripe.Customer{ID: customerID},
		Created:  now,
		Items: &stripe.SubscriptionItemList{
			Data: []*stripe.SubscriptionItem{
				{
					Price:              &stripe.Price{ID: "price_basic"},
					Quantity:           1,
					CurrentPeriodStart: now,
					CurrentPeriodEnd:   now + 30*24*3600,
				},
			},
		},
	}
}

func TestCreateOrRetrieveCustomer_ExistingMappingSkipsRemoteCall(t *testing.T) {
	repo := newFakeRepository()
	provider := newFakeProvider()
	repo.customersByOrg["org-1"] = &models.BillingCustomer{
		OrganizationID:   "org-1",
		StripeCustomerID: "cus_existing",
	}

	svc := NewService(repo, provider)
	got, err := svc.CreateOrRetrieveCustomer(context.Background(), "org-1", "a@b.test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "cus_existing" {
		t.Fatalf("expected existing customer id, got %q", got)
	}
	if provider.createCustomerCalls != 0 {
		t.Fatalf("expected no remote create for existing mapping, got %d calls", provider.createCustomerCalls)
	}
}

func TestCreateOrRetrieveCustomer_CreatesExactlyOneMapping(t *testing.T) {
	repo := newFakeRepository()
	provider := newFakeProvider()

	svc := NewService(repo, provider)
	got, err := svc.CreateOrRetrieveCustomer(context.Background(), "org-1", "a@b.test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "cus_test_1" {
		t.Fatalf("expected new customer id, got %q", got)
	}
	if provider.createCustomerCalls != 1 {
		t.Fatalf("expected one remote create, got %d", provider.createCustomerCalls)
	}
	if len(repo.customersByOrg) != 1 {
		t.Fatalf("expected exactly one mapping row, got %d", len(repo.customersByOrg))
	}
}

func TestCreateOrRetrieveCustomer_CompensatesOnLocalFailure(t *testing.T) {
	repo := newFakeRepository()
	repo.failCreateCustomer = true
	provider := newFakeProvider()

	svc := NewService(repo, provider)
	if _, err := svc.CreateOrRetrieveCustomer(context.Background(), "org-1", "a@b.test"); err == nil {
		t.Fatalf("expected error when local persist fails")
	}
	if len(provider.deletedCustomers) != 1 || provider.deletedCustomers[0] != "cus_test_1" {
		t.Fatalf("expected compensating remote delete, got %v", provider.deletedCustomers)
	}
}

func TestSyncSubscription_UnknownCustomerIsFatalWithoutWrite(t *testing.T) {
	repo := newFakeRepository()
	provider := newFakeProvider()
	provider.subscriptions["sub_1"] = providerSubscription("sub_1", "cus_unknown", stripe.SubscriptionStatusActive)

	svc := NewService(repo, provider)
	_, err := svc.SyncSubscription(context.Background(), "sub_1", "cus_unknown", false)
	if !errors.Is(err, ErrUnknownCustomer) {
		t.Fatalf("expected ErrUnknownCustomer, got %v", err)
	}
	if len(repo.subscriptions) != 0 {
		t.Fatalf("expected no subscription row, got %d", len(repo.subscriptions))
	}
}

func TestSyncSubscription_StoresProviderTruth(t *testing.T) {
	repo := newFakeRepository()
	provider := newFakeProvider()
	repo.customersByStripe["cus_1"] = &models.BillingCustomer{OrganizationID: "t1", StripeCustomerID: "cus_1"}
	provider.subscriptions["sub_1"] = providerSubscription("sub_1", "cus_1", stripe.SubscriptionStatusActive)

	svc := NewService(repo, provider)
	row, err := svc.SyncSubscription(context.Background(), "sub_1", "cus_1", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if row.OrganizationID != "t1" {
		t.Fatalf("expected organization t1, got %q", row.OrganizationID)
	}
	if row.Status != models.SubscriptionStatusActive {
		t.Fatalf("expected status active, got %q", row.Status)
	}
	if row.PriceID != "price_basic" {
		t.Fatalf("expected price_basic, got %q", row.PriceID)
	}
	if row.CurrentPeriodEnd == nil || row.CurrentPeriodStart == nil {
		t.Fatalf("expected period timestamps to be set")
	}
	if row.CanceledAt != nil || row.EndedAt != nil {
		t.Fatalf("expected never-occurred timestamps to stay nil")
	}
}

func TestSyncSubscription_ReplayConvergesToSameState(t *testing.T) {
	repo := newFakeRepository()
	provider := newFakeProvider()
	repo.customersByStripe["cus_1"] = &models.BillingCustomer{OrganizationID: "t1", StripeCustomerID: "cus_1"}
	provider.subscriptions["sub_1"] = providerSubscription("sub_1", "cus_1", stripe.SubscriptionStatusTrialing)

	svc := NewService(repo, provider)
	first, err := svc.SyncSubscription(context.Background(), "sub_1", "cus_1", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Provider state changes between the two deliveries; whichever event is
	// processed later must win, because sync re-fetches current truth.
	provider.subscriptions["sub_1"].Status = stripe.SubscriptionStatusCanceled
	second, err := svc.SyncSubscription(context.Background(), "sub_1", "cus_1", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.Status != models.SubscriptionStatusCanceled {
		t.Fatalf("expected canceled after later fetch, got %q", second.Status)
	}
	if len(repo.subscriptions) != 1 {
		t.Fatalf("expected a single row after replay, got %d", len(repo.subscriptions))
	}
	_ = first

	// Replaying the identical event again changes nothing.
	third, err := svc.SyncSubscription(context.Background(), "sub_1", "cus_1", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if third.Status != second.Status || third.PriceID != second.PriceID {
		t.Fatalf("replay diverged: %+v vs %+v", third, second)
	}
}

func TestSyncSubscription_ProviderErrorCommitsNothing(t *testing.T) {
	repo := newFakeRepository()
	provider := newFakeProvider()
	repo.customersByStripe["cus_1"] = &models.BillingCustomer{OrganizationID: "t1", StripeCustomerID: "cus_1"}
	provider.subscriptionErr = errors.New("network down")

	svc := NewService(repo, provider)
	if _, err := svc.SyncSubscription(context.Background(), "sub_1", "cus_1", false); err == nil {
		t.Fatalf("expected provider error to propagate")
	}
	if len(repo.subscriptions) != 0 {
		t.Fatalf("expected no partial state, got %d rows", len(repo.subscriptions))
	}
}

func TestUpsertPriceRecord_MissingProductFails(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo, newFakeProvider())

	price := &stripe.Price{
		ID:      "price_orphan",
		Product: &stripe.Product{ID: "prod_missing"},
		Active:  true,
	}
	if err := svc.UpsertPriceRecord(context.Background(), price); !errors.Is(err, ErrReferentialIntegrity) {
		t.Fatalf("expected ErrReferentialIntegrity, got %v", err)
	}
	if len(repo.prices) != 0 {
		t.Fatalf("expected no partial price row, got %d", len(repo.prices))
	}
}

func TestUpsertPriceRecord_ZeroAmountFreePriceIsKept(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo, newFakeProvider())
	repo.products["prod_1"] = &models.Product{ID: "prod_1", Active: true}

	price := &stripe.Price{
		ID:            "price_free",
		Product:       &stripe.Product{ID: "prod_1"},
		Active:        true,
		Currency:      stripe.CurrencyEUR,
		BillingScheme: stripe.PriceBillingSchemePerUnit,
		UnitAmount:    0,
		Type:          stripe.PriceTypeRecurring,
	}
	if err := svc.UpsertPriceRecord(context.Background(), price); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored := repo.prices["price_free"]
	if stored == nil {
		t.Fatalf("expected price row")
	}
	if stored.UnitAmount == nil || *stored.UnitAmount != 0 {
		t.Fatalf("expected zero unit amount to be preserved, got %v", stored.UnitAmount)
	}
}

func TestUpsertPriceRecord_TieredPriceHasNoUnitAmount(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo, newFakeProvider())
	repo.products["prod_1"] = &models.Product{ID: "prod_1", Active: true}

	price := &stripe.Price{
		ID:            "price_tiered",
		Product:       &stripe.Product{ID: "prod_1"},
		Active:        true,
		Currency:      stripe.CurrencyEUR,
		BillingScheme: stripe.PriceBillingSchemeTiered,
		Type:          stripe.PriceTypeRecurring,
	}
	if err := svc.UpsertPriceRecord(context.Background(), price); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored := repo.prices["price_tiered"]
	if stored == nil {
		t.Fatalf("expected price row")
	}
	if stored.UnitAmount != nil {
		t.Fatalf("expected no unit amount for tiered pricing, got %v", *stored.UnitAmount)
	}
}

func TestUpsertProductThenPrice(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo, newFakeProvider())

	product := &stripe.Product{
		ID:     "prod_1",
		Active: true,
		Name:   "Starter",
		Images: []string{"https://img.test/starter.png"},
	}
	if err := svc.UpsertProductRecord(context.Background(), product); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	price := &stripe.Price{
		ID:         "price_1",
		Product:    &stripe.Product{ID: "prod_1"},
		Active:     true,
		Currency:   stripe.CurrencyEUR,
		UnitAmount: 990,
		Type:       stripe.PriceTypeRecurring,
		Recurring: &stripe.PriceRecurring{
			Interval:      stripe.PriceRecurringIntervalMonth,
			IntervalCount: 1,
		},
	}
	if err := svc.UpsertPriceRecord(context.Background(), price); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored := repo.prices["price_1"]
	if stored == nil {
		t.Fatalf("expected price row")
	}
	if stored.UnitAmount == nil || *stored.UnitAmount != 990 {
		t.Fatalf("unexpected unit amount: %v", stored.UnitAmount)
	}
	if stored.Interval != "month" || stored.Currency != "eur" {
		t.Fatalf("unexpected interval/currency: %q %q", stored.Interval, stored.Currency)
	}
}
