package models

import "time"

// Local subscription status values. The provider's status string is mapped
// through billing.MapSubscriptionStatus; anything unrecognized becomes
// SubscriptionStatusUnknown with the raw value kept in ProviderStatus.
const (
	SubscriptionStatusTrialing          = "trialing"
	SubscriptionStatusActive            = "active"
	SubscriptionStatusPastDue           = "past_due"
	SubscriptionStatusCanceled          = "canceled"
	SubscriptionStatusUnpaid            = "unpaid"
	SubscriptionStatusIncomplete        = "incomplete"
	SubscriptionStatusIncompleteExpired = "incomplete_expired"
	SubscriptionStatusPaused            = "paused"
	SubscriptionStatusUnknown           = "unknown"
)

// Subscription mirrors one provider subscription for an organization. The
// provider is the source of truth; every relevant event fully overwrites the
// row from freshly fetched provider state.
type Subscription struct {
	ID                 string     `gorm:"type:varchar(191);primaryKey" json:"id"`
	OrganizationID     string     `gorm:"type:char(36);not null;index:idx_subscriptions_org_status,priority:1" json:"organization_id"`
	Status             string     `gorm:"type:varchar(32);not null;index:idx_subscriptions_org_status,priority:2" json:"status"`
	ProviderStatus     string     `gorm:"type:varchar(64);not null" json:"provider_status"`
	PriceID            string     `gorm:"type:varchar(191);index" json:"price_id"`
	Quantity           int64      `gorm:"default:1" json:"quantity"`
	CancelAtPeriodEnd  bool       `gorm:"default:false" json:"cancel_at_period_end"`
	CurrentPeriodStart *time.Time `gorm:"type:timestamp;default:null" json:"current_period_start,omitempty"`
	CurrentPeriodEnd   *time.Time `gorm:"type:timestamp;default:null" json:"current_period_end,omitempty"`
	Created            *time.Time `gorm:"type:timestamp;default:null" json:"created,omitempty"`
	CancelAt           *time.Time `gorm:"type:timestamp;default:null" json:"cancel_at,omitempty"`
	CanceledAt         *time.Time `gorm:"type:timestamp;default:null" json:"canceled_at,omitempty"`
	EndedAt            *time.Time `gorm:"type:timestamp;default:null" json:"ended_at,omitempty"`
	TrialStart         *time.Time `gorm:"type:timestamp;default:null" json:"trial_start,omitempty"`
	TrialEnd           *time.Time `gorm:"type:timestamp;default:null" json:"trial_end,omitempty"`
	MetadataJSON       string     `gorm:"type:longtext" json:"metadata_json"`
	CreatedAt          time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsEntitling reports whether this subscription grants the organization a
// paid plan right now.
func (s *Subscription) IsEntitling() bool {
	switch s.Status {
	case SubscriptionStatusActive, SubscriptionStatusTrialing:
		return true
	default:
		return false
	}
}
