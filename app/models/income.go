package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	IncomeStatusPending   = "pending"
	IncomeStatusReceived  = "received"
	IncomeStatusInvoiced  = "invoiced"
	IncomeStatusCancelled = "cancelled"
)

// Income is a single incoming transaction for an organization.
type Income struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	OrganizationID string          `gorm:"type:char(36);not null;index:idx_income_org_date,priority:1" json:"organization_id"`
	PaymentDate    time.Time       `gorm:"type:date;not null;index:idx_income_org_date,priority:2" json:"payment_date"`
	Category       string          `gorm:"type:varchar(100);not null;index" json:"category"`
	TotalAmount    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total_amount"`
	Description    string          `gorm:"type:text" json:"description"`
	Status         string          `gorm:"type:varchar(20);not null;default:'received'" json:"status"`
	CreatedBy      uint            `gorm:"index" json:"created_by"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// Income rows live in the singular "income" table, matching the reporting SQL.
func (Income) TableName() string {
	return "income"
}
