package controllers

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/sujit-baniya/flash"

	"github.com/kontiq/kontiq/app/models"
	"github.com/kontiq/kontiq/app/repository"
	"github.com/kontiq/kontiq/internal/pkg/usercontext"
)

// HandleTeam lists the members and pending invites of the organization.
func HandleTeam(c *fiber.Ctx) error {
	uc := usercontext.GetUserContext(c)
	orgRepo := repository.GetGlobalFactory().GetOrganizationRepository()

	members, err := orgRepo.ListMembers(uc.OrganizationID)
	if err != nil {
		log.Errorf("[Team] list members failed: %v", err)
		return fiber.NewError(fiber.StatusInternalServerError, "could not load team")
	}

	invites, err := orgRepo.ListPendingInvites(uc.OrganizationID)
	if err != nil {
		log.Errorf("[Team] list invites failed: %v", err)
		return fiber.NewError(fiber.StatusInternalServerError, "could not load team")
	}

	return renderPage(c, "team/index", fiber.Map{
		"Title":     " | Team",
		"Members":   members,
		"Invites":   invites,
		"CanInvite": uc.OrgRole == models.OrgRoleOwner || uc.OrgRole == models.OrgRoleAdmin,
	})
}

// HandleInviteMember creates a pending invite for an email address. Only
// owners and admins may invite.
func HandleInviteMember(c *fiber.Ctx) error {
	uc := usercontext.GetUserContext(c)
	if uc.OrgRole != models.OrgRoleOwner && uc.OrgRole != models.OrgRoleAdmin {
		return formError(c, "/team", "Nur Besitzer und Admins können Mitglieder einladen.")
	}

	email := strings.ToLower(strings.TrimSpace(c.FormValue("email")))
	if email == "" {
		return formError(c, "/team", "Bitte gib eine E-Mail-Adresse an.")
	}

	role := c.FormValue("role")
	switch role {
	case models.OrgRoleAdmin, models.OrgRoleMember, models.OrgRoleViewer:
	default:
		role = models.OrgRoleMember
	}

	invite := &models.OrganizationInvite{
		OrganizationID: uc.OrganizationID,
		Email:          email,
		Role:           role,
		InvitedBy:      uc.UserID,
		Status:         models.InviteStatusPending,
	}

	orgRepo := repository.GetGlobalFactory().GetOrganizationRepository()
	if err := orgRepo.CreateInvite(invite); err != nil {
		log.Errorf("[Team] create invite failed: %v", err)
		return formError(c, "/team", fmt.Sprintf("something went wrong: %s", err))
	}

	fm := fiber.Map{
		"type":    "success",
		"message": fmt.Sprintf("Einladung an %s verschickt.", email),
	}
	return flash.WithSuccess(c, fm).Redirect("/team")
}
