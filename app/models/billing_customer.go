package models

import "time"

// BillingCustomer maps an organization to its customer record at the billing
// provider. One provider customer per organization, created lazily on the
// first checkout attempt and never deleted in normal operation.
type BillingCustomer struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	OrganizationID   string    `gorm:"type:char(36);not null;uniqueIndex:ux_billing_customers_org" json:"organization_id"`
	StripeCustomerID string    `gorm:"type:varchar(191);not null;uniqueIndex:ux_billing_customers_stripe" json:"stripe_customer_id"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
