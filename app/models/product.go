package models

import "time"

// Product mirrors a provider-owned product definition. Rows are created and
// updated only via provider push events, never locally; the provider-assigned
// id is immutable.
type Product struct {
	ID           string    `gorm:"type:varchar(191);primaryKey" json:"id"`
	Active       bool      `gorm:"not null;default:true;index" json:"active"`
	Name         string    `gorm:"type:varchar(200);not null" json:"name"`
	Description  string    `gorm:"type:text" json:"description"`
	Image        string    `gorm:"type:varchar(500)" json:"image"`
	MetadataJSON string    `gorm:"type:longtext" json:"metadata_json"`
	Prices       []Price   `gorm:"foreignKey:ProductID" json:"prices,omitempty"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
