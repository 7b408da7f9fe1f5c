package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	ExpenseStatusPending  = "pending"
	ExpenseStatusPaid     = "paid"
	ExpenseStatusApproved = "approved"
	ExpenseStatusRejected = "rejected"
)

// Expense is a single outgoing transaction for an organization.
type Expense struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	OrganizationID string          `gorm:"type:char(36);not null;index:idx_expenses_org_date,priority:1" json:"organization_id"`
	ReceiptDate    time.Time       `gorm:"type:date;not null;index:idx_expenses_org_date,priority:2" json:"receipt_date"`
	VendorMerchant string          `gorm:"type:varchar(200);not null" json:"vendor_merchant"`
	Category       string          `gorm:"type:varchar(100);not null;index" json:"category"`
	TotalAmount    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total_amount"`
	Description    string          `gorm:"type:text" json:"description"`
	PaymentMethod  string          `gorm:"type:varchar(50)" json:"payment_method"`
	Status         string          `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	ReceiptURL     string          `gorm:"type:varchar(500)" json:"receipt_url"`
	CreatedBy      uint            `gorm:"index" json:"created_by"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}
