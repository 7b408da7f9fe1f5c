package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/kontiq/kontiq/app/models"
)

// organizationRepository implements the OrganizationRepository interface
type organizationRepository struct {
	db *gorm.DB
}

// NewOrganizationRepository creates a new organization repository instance
func NewOrganizationRepository(db *gorm.DB) OrganizationRepository {
	return &organizationRepository{db: db}
}

func (r *organizationRepository) Create(org *models.Organization) error {
	return r.db.Create(org).Error
}

func (r *organizationRepository) GetByID(id string) (*models.Organization, error) {
	var org models.Organization
	err := r.db.Where("id = ?", id).First(&org).Error
	if err != nil {
		return nil, err
	}
	return &org, nil
}

func (r *organizationRepository) AddMember(membership *models.UserOrganization) error {
	return r.db.Create(membership).Error
}

// GetMembershipByUser returns the user's organization membership. Users
// belong to a single organization for now; the unique index keeps this
// assumption honest.
func (r *organizationRepository) GetMembershipByUser(userID uint) (*models.UserOrganization, error) {
	var membership models.UserOrganization
	err := r.db.Where("user_id = ?", userID).First(&membership).Error
	if err != nil {
		return nil, err
	}
	return &membership, nil
}

func (r *organizationRepository) ListMembers(orgID string) ([]MemberWithUser, error) {
	var members []MemberWithUser
	err := r.db.Model(&models.UserOrganization{}).
		Select("user_organizations.*, users.name AS user_name, users.email AS user_email").
		Joins("JOIN users ON users.id = user_organizations.user_id").
		Where("user_organizations.organization_id = ?", orgID).
		Order("user_organizations.created_at ASC").
		Scan(&members).Error
	return members, err
}

func (r *organizationRepository) CreateInvite(invite *models.OrganizationInvite) error {
	return r.db.Create(invite).Error
}

func (r *organizationRepository) ListPendingInvites(orgID string) ([]models.OrganizationInvite, error) {
	var invites []models.OrganizationInvite
	err := r.db.
		Where("organization_id = ? AND status = ?", orgID, models.InviteStatusPending).
		Order("created_at DESC").
		Find(&invites).Error
	return invites, err
}

func (r *organizationRepository) GetPendingInviteByEmail(email string) (*models.OrganizationInvite, error) {
	var invite models.OrganizationInvite
	err := r.db.
		Where("email = ? AND status = ?", email, models.InviteStatusPending).
		First(&invite).Error
	if err != nil {
		return nil, err
	}
	return &invite, nil
}

// AcceptInvite links the user to the invite's organization and marks the
// invite accepted, in one transaction.
func (r *organizationRepository) AcceptInvite(invite *models.OrganizationInvite, userID uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&models.UserOrganization{
			UserID:         userID,
			OrganizationID: invite.OrganizationID,
			Role:           invite.Role,
		}).Error; err != nil {
			return err
		}
		return tx.Model(invite).
			Updates(map[string]interface{}{
				"status":     models.InviteStatusAccepted,
				"updated_at": time.Now(),
			}).Error
	})
}
