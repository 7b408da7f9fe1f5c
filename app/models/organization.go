package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Membership roles within an organization.
const (
	OrgRoleOwner  = "owner"
	OrgRoleAdmin  = "admin"
	OrgRoleMember = "member"
	OrgRoleViewer = "viewer"
)

// Organization is the tenant boundary. All financial and subscription data
// is partitioned by organization.
type Organization struct {
	ID        string    `gorm:"type:char(36);primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(200);not null" json:"name" validate:"required,min=2,max=200"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (o *Organization) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	return nil
}

// UserOrganization links a user to an organization with a role.
type UserOrganization struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	UserID         uint      `gorm:"not null;index:ux_user_organizations_user_org,unique,priority:1" json:"user_id"`
	OrganizationID string    `gorm:"type:char(36);not null;index:ux_user_organizations_user_org,unique,priority:2;index" json:"organization_id"`
	Role           string    `gorm:"type:varchar(20);not null;default:'member'" json:"role" validate:"oneof=owner admin member viewer"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
}
