package billing

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/stripe/stripe-go/v82"
	"gorm.io/gorm"

	"github.com/kontiq/kontiq/app/models"
)

// Service keeps the local billing tables convergent with the provider's
// event stream. The provider is the system of record; the local copy is a
// cache that must converge to match it.
type Service struct {
	repo     Repository
	provider ProviderClient
}

// NewService creates a billing service from injected dependencies.
func NewService(repo Repository, provider ProviderClient) *Service {
	return &Service{repo: repo, provider: provider}
}

// NewServiceFromDB creates a billing service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB, provider ProviderClient) *Service {
	return NewService(NewRepository(db), provider)
}

// UpsertProductRecord overwrites the local product row from a provider
// product payload. Last write wins, no version check.
func (s *Service) UpsertProductRecord(ctx context.Context, product *stripe.Product) error {
	_ = ctx
	if product == nil || product.ID == "" {
		return errors.New("billing: product payload missing id")
	}

	image := ""
	if len(product.Images) > 0 {
		image = product.Images[0]
	}

	row := &models.Product{
		ID:           product.ID,
		Active:       product.Active,
		Name:         product.Name,
		Description:  product.Description,
		Image:        image,
		MetadataJSON: marshalMetadata(product.Metadata),
	}
	if err := s.repo.UpsertProduct(row); err != nil {
		return err
	}
	log.Infof("[Billing] product upserted: %s", product.ID)
	return nil
}

// UpsertPriceRecord overwrites the local price row from a provider price
// payload. The referenced product must already exist.
func (s *Service) UpsertPriceRecord(ctx context.Context, price *stripe.Price) error {
	_ = ctx
	if price == nil || price.ID == "" {
		return errors.New("billing: price payload missing id")
	}
	if price.Product == nil || price.Product.ID == "" {
		return ErrReferentialIntegrity
	}

	// The provider reports no unit amount for tiered and custom pricing.
	// A plain zero on a per-unit price is a real free price and is kept.
	var unitAmount *int64
	if price.BillingScheme != stripe.PriceBillingSchemeTiered && price.CustomUnitAmount == nil {
		v := price.UnitAmount
		unitAmount = &v
	}

	row := &models.Price{
		ID:           price.ID,
		ProductID:    price.Product.ID,
		Active:       price.Active,
		Currency:     strings.ToLower(string(price.Currency)),
		UnitAmount:   unitAmount,
		Type:         string(price.Type),
		Nickname:     price.Nickname,
		MetadataJSON: marshalMetadata(price.Metadata),
	}
	if price.Recurring != nil {
		row.Interval = string(price.Recurring.Interval)
		row.IntervalCount = price.Recurring.IntervalCount
		row.TrialPeriodDays = price.Recurring.TrialPeriodDays
	}
	if err := s.repo.UpsertPrice(row); err != nil {
		return err
	}
	log.Infof("[Billing] price upserted: %s", price.ID)
	return nil
}

// CreateOrRetrieveCustomer resolves the provider customer id for an
// organization, creating the customer remotely on first use. An existing
// mapping never triggers a remote call. If the local persist fails after the
// remote create succeeded, the remote customer is deleted best-effort so no
// orphan is left behind.
func (s *Service) CreateOrRetrieveCustomer(ctx context.Context, organizationID, email string) (string, error) {
	if organizationID == "" {
		return "", errors.New("billing: organization id is required")
	}

	mapping, err := s.repo.GetCustomerByOrganization(organizationID)
	if err == nil {
		return mapping.StripeCustomerID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}

	customerID, err := s.provider.CreateCustomer(ctx, email, organizationID)
	if err != nil {
		return "", err
	}

	if err := s.repo.CreateCustomer(&models.BillingCustomer{
		OrganizationID:   organizationID,
		StripeCustomerID: customerID,
	}); err != nil {
		if delErr := s.provider.DeleteCustomer(ctx, customerID); delErr != nil {
			log.Errorf("[Billing] failed to clean up orphaned customer %s: %v", customerID, delErr)
		}
		return "", err
	}
	return customerID, nil
}

// SyncSubscription reconciles one subscription's full state into the local
// store. The event payload is never trusted: the current state is re-fetched
// from the provider so concurrent deliveries converge to the same final row
// regardless of arrival order.
func (s *Service) SyncSubscription(ctx context.Context, subscriptionID, customerID string, isNew bool) (*models.Subscription, error) {
	mapping, err := s.repo.GetCustomerByStripeID(customerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnknownCustomer
		}
		return nil, err
	}

	sub, err := s.provider.GetSubscription(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}

	row := &models.Subscription{
		ID:                sub.ID,
		OrganizationID:    mapping.OrganizationID,
		Status:            MapSubscriptionStatus(sub.Status),
		ProviderStatus:    string(sub.Status),
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
		Created:           unixTimePtr(sub.Created),
		CancelAt:          unixTimePtr(sub.CancelAt),
		CanceledAt:        unixTimePtr(sub.CanceledAt),
		EndedAt:           unixTimePtr(sub.EndedAt),
		TrialStart:        unixTimePtr(sub.TrialStart),
		TrialEnd:          unixTimePtr(sub.TrialEnd),
		MetadataJSON:      marshalMetadata(sub.Metadata),
	}
	if sub.Items != nil && len(sub.Items.Data) > 0 {
		item := sub.Items.Data[0]
		if item.Price != nil {
			row.PriceID = item.Price.ID
		}
		row.Quantity = item.Quantity
		row.CurrentPeriodStart = unixTimePtr(item.CurrentPeriodStart)
		row.CurrentPeriodEnd = unixTimePtr(item.CurrentPeriodEnd)
	}

	if err := s.repo.UpsertSubscription(row); err != nil {
		return nil, err
	}

	action := "updated"
	if isNew {
		action = "created"
	}
	log.Infof("[Billing] subscription %s %s for organization %s (status %s)",
		sub.ID, action, mapping.OrganizationID, row.Status)
	return row, nil
}

// StartCheckout creates (or reuses) the organization's provider customer
// and opens a hosted checkout session for the given price.
func (s *Service) StartCheckout(ctx context.Context, organizationID, email, priceID, successURL, cancelURL string) (string, error) {
	if priceID == "" {
		return "", errors.New("billing: price id is required")
	}

	customerID, err := s.CreateOrRetrieveCustomer(ctx, organizationID, email)
	if err != nil {
		return "", err
	}

	return s.provider.CreateCheckoutSession(ctx, CheckoutSessionInput{
		CustomerID:     customerID,
		PriceID:        priceID,
		OrganizationID: organizationID,
		SuccessURL:     successURL,
		CancelURL:      cancelURL,
	})
}

// ResyncSubscription re-fetches the organization's entitling subscription
// from the provider and overwrites the local row with provider truth.
func (s *Service) ResyncSubscription(ctx context.Context, organizationID string) (*models.Subscription, error) {
	sub, err := s.repo.GetActiveSubscriptionByOrganization(organizationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	mapping, err := s.repo.GetCustomerByOrganization(organizationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnknownCustomer
		}
		return nil, err
	}

	return s.SyncSubscription(ctx, sub.ID, mapping.StripeCustomerID, false)
}

// RecordWebhookEvent persists a verified webhook delivery idempotently.
// The returned bool is false when the event id was already stored.
func (s *Service) RecordWebhookEvent(ctx context.Context, event stripe.Event) (bool, *models.BillingWebhookEvent, error) {
	_ = ctx
	row := &models.BillingWebhookEvent{
		StripeEventID: event.ID,
		EventType:     string(event.Type),
		PayloadJSON:   string(event.Data.Raw),
	}
	return s.repo.CreateWebhookEventIfNotExists(row)
}

// MarkWebhookProcessed marks an event as processed and stores an optional error.
func (s *Service) MarkWebhookProcessed(ctx context.Context, webhookEventID uint, processingErr error) error {
	_ = ctx
	if webhookEventID == 0 {
		return errors.New("billing: webhook event id is required")
	}
	errMsg := ""
	if processingErr != nil {
		errMsg = processingErr.Error()
	}
	return s.repo.MarkWebhookProcessed(webhookEventID, errMsg)
}

// GetActiveSubscription returns the organization's entitling subscription,
// or nil when the organization is on the free tier.
func (s *Service) GetActiveSubscription(ctx context.Context, organizationID string) (*models.Subscription, error) {
	_ = ctx
	sub, err := s.repo.GetActiveSubscriptionByOrganization(organizationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return sub, nil
}

// ListActiveProductsWithPrices returns the purchasable catalog for the
// pricing page.
func (s *Service) ListActiveProductsWithPrices(ctx context.Context) ([]models.Product, error) {
	_ = ctx
	return s.repo.ListActiveProductsWithPrices()
}

func unixTimePtr(v int64) *time.Time {
	if v == 0 {
		return nil
	}
	t := time.Unix(v, 0).UTC()
	return &t
}

func marshalMetadata(metadata map[string]string) string {
	if len(metadata) == 0 {
		return ""
	}
	raw, err := json.Marshal(metadata)
	if err != nil {
		return ""
	}
	return string(raw)
}
