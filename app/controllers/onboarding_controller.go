package controllers

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sujit-baniya/flash"

	"github.com/kontiq/kontiq/app/models"
	"github.com/kontiq/kontiq/app/repository"
	"github.com/kontiq/kontiq/internal/pkg/session"
	"github.com/kontiq/kontiq/internal/pkg/usercontext"
)

// HandleOnboarding lets a fresh user create their organization. Users whose
// registration answered an invite already have one and are sent home.
func HandleOnboarding(c *fiber.Ctx) error {
	uc := usercontext.GetUserContext(c)
	if uc.HasOrganization() {
		return c.Redirect("/")
	}

	if c.Method() == fiber.MethodPost {
		name := strings.TrimSpace(c.FormValue("organization_name"))
		if name == "" {
			fm := fiber.Map{
				"type":    "error",
				"message": "Bitte gib einen Namen für deine Organisation an.",
			}

			return flash.WithError(c, fm).Redirect("/onboarding")
		}

		orgRepo := repository.GetGlobalFactory().GetOrganizationRepository()

		org := &models.Organization{Name: name}
		if err := orgRepo.Create(org); err != nil {
			fm := fiber.Map{
				"type":    "error",
				"message": fmt.Sprintf("something went wrong: %s", err),
			}

			return flash.WithError(c, fm).Redirect("/onboarding")
		}

		membership := &models.UserOrganization{
			UserID:         uc.UserID,
			OrganizationID: org.ID,
			Role:           models.OrgRoleOwner,
		}
		if err := orgRepo.AddMember(membership); err != nil {
			fm := fiber.Map{
				"type":    "error",
				"message": fmt.Sprintf("something went wrong: %s", err),
			}

			return flash.WithError(c, fm).Redirect("/onboarding")
		}

		_ = session.SetSessionValue(c, usercontext.KeyOrgID, org.ID)
		_ = session.SetSessionValue(c, usercontext.KeyOrgRole, membership.Role)

		fm := fiber.Map{
			"type":    "success",
			"message": "Deine Organisation ist startklar!",
		}

		return flash.WithSuccess(c, fm).Redirect("/")
	}

	return renderPage(c, "onboarding/index", fiber.Map{
		"Title": " | Loslegen",
	})
}
