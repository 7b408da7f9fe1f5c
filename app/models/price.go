package models

import "time"

const (
	PriceTypeOneTime   = "one_time"
	PriceTypeRecurring = "recurring"
)

// Price mirrors a provider-owned price definition. References an existing
// product; UnitAmount is nil only for non-recurring/custom pricing.
type Price struct {
	ID              string    `gorm:"type:varchar(191);primaryKey" json:"id"`
	ProductID       string    `gorm:"type:varchar(191);not null;index" json:"product_id"`
	Product         *Product  `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE" json:"product,omitempty"`
	Active          bool      `gorm:"not null;default:true;index" json:"active"`
	Currency        string    `gorm:"type:varchar(3);not null" json:"currency"`
	UnitAmount      *int64    `gorm:"default:null" json:"unit_amount,omitempty"`
	Type            string    `gorm:"type:varchar(20);not null;default:'recurring'" json:"type"`
	Interval        string    `gorm:"type:varchar(16)" json:"interval"`
	IntervalCount   int64     `gorm:"default:0" json:"interval_count"`
	TrialPeriodDays int64     `gorm:"default:0" json:"trial_period_days"`
	Nickname        string    `gorm:"type:varchar(200)" json:"nickname"`
	MetadataJSON    string    `gorm:"type:longtext" json:"metadata_json"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
