package billing

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kontiq/kontiq/app/models"
)

// Repository provides DB operations used by the billing service. All upserts
// are full-row overwrites keyed by the provider-assigned id.
type Repository interface {
	GetCustomerByOrganization(orgID string) (*models.BillingCustomer, error)
	GetCustomerByStripeID(stripeCustomerID string) (*models.BillingCustomer, error)
	CreateCustomer(mapping *models.BillingCustomer) error
	UpsertProduct(product *models.Product) error
	UpsertPrice(price *models.Price) error
	UpsertSubscription(sub *models.Subscription) error
	GetActiveSubscriptionByOrganization(orgID string) (*models.Subscription, error)
	ListActiveProductsWithPrices() ([]models.Product, error)
	CreateWebhookEventIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error)
	MarkWebhookProcessed(id uint, processingError string) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a billing repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) GetCustomerByOrganization(orgID string) (*models.BillingCustomer, error) {
	var mapping models.BillingCustomer
	err := r.db.Where("organization_id = ?", orgID).First(&mapping).Error
	if err != nil {
		return nil, err
	}
	return &mapping, nil
}

func (r *gormRepository) GetCustomerByStripeID(stripeCustomerID string) (*models.BillingCustomer, error) {
	var mapping models.BillingCustomer
	err := r.db.Where("stripe_customer_id = ?", stripeCustomerID).First(&mapping).Error
	if err != nil {
		return nil, err
	}
	return &mapping, nil
}

func (r *gormRepository) CreateCustomer(mapping *models.BillingCustomer) error {
	return r.db.Create(mapping).Error
}

func (r *gormRepository) UpsertProduct(product *models.Product) error {
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"active",
			"name",
			"description",
			"image",
			"metadata_json",
			"updated_at",
		}),
	}).Create(product).Error
}

func (r *gormRepository) UpsertPrice(price *models.Price) error {
	// The referenced product must exist before the price row is written.
	var product models.Product
	if err := r.db.Select("id").Where("id = ?", price.ProductID).First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrReferentialIntegrity
		}
		return err
	}

	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"product_id",
			"active",
			"currency",
			"unit_amount",
			"type",
			"interval",
			"interval_count",
			"trial_period_days",
			"nickname",
			"metadata_json",
			"updated_at",
		}),
	}).Create(price).Error
}

func (r *gormRepository) UpsertSubscription(sub *models.Subscription) error {
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"organization_id",
			"status",
			"provider_status",
			"price_id",
			"quantity",
			"cancel_at_period_end",
			"current_period_start",
			"current_period_end",
			"created",
			"cancel_at",
			"canceled_at",
			"ended_at",
			"trial_start",
			"trial_end",
			"metadata_json",
			"updated_at",
		}),
	}).Create(sub).Error
}

func (r *gormRepository) GetActiveSubscriptionByOrganization(orgID string) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.
		Where("organization_id = ? AND status IN ?", orgID, []string{
			models.SubscriptionStatusTrialing,
			models.SubscriptionStatusActive,
		}).
		Order("created_at DESC").
		First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *gormRepository) ListActiveProductsWithPrices() ([]models.Product, error) {
	var products []models.Product
	err := r.db.
		Where("active = ?", true).
		Preload("Prices", func(db *gorm.DB) *gorm.DB {
			return db.Where("active = ?", true).Order("unit_amount ASC")
		}).
		Order("name ASC").
		Find(&products).Error
	return products, err
}

func (r *gormRepository) CreateWebhookEventIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "stripe_event_id"}},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.BillingWebhookEvent
	if err := r.db.Where("stripe_event_id = ?", event.StripeEventID).First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *gormRepository) MarkWebhookProcessed(id uint, processingError string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"processed_at":     &now,
		"processing_error": processingError,
	}
	return r.db.Model(&models.BillingWebhookEvent{}).Where("id = ?", id).Updates(updates).Error
}
