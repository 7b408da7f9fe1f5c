package models

import "time"

const (
	InviteStatusPending  = "pending"
	InviteStatusAccepted = "accepted"
	InviteStatusRevoked  = "revoked"
)

// OrganizationInvite is a pending email invitation to join an organization.
type OrganizationInvite struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	OrganizationID string    `gorm:"type:char(36);not null;index:ux_organization_invites_org_email,unique,priority:1" json:"organization_id"`
	Email          string    `gorm:"type:varchar(200);not null;index:ux_organization_invites_org_email,unique,priority:2" json:"email" validate:"required,email"`
	Role           string    `gorm:"type:varchar(20);not null;default:'member'" json:"role" validate:"oneof=owner admin member viewer"`
	Status         string    `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	InvitedBy      uint      `gorm:"not null" json:"invited_by"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
