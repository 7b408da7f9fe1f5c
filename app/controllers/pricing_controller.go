package controllers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/kontiq/kontiq/internal/pkg/billing"
	"github.com/kontiq/kontiq/internal/pkg/database"
	"github.com/kontiq/kontiq/internal/pkg/usercontext"
)

// HandlePricing renders the catalog of active products and prices. The
// catalog comes from our own tables, kept current by the webhook stream.
func HandlePricing(c *fiber.Ctx) error {
	svc := billing.NewServiceFromDB(database.GetDB(), nil)

	products, err := svc.ListActiveProductsWithPrices(context.Background())
	if err != nil {
		log.Errorf("[Pricing] catalog load failed: %v", err)
		return fiber.NewError(fiber.StatusInternalServerError, "could not load pricing")
	}

	uc := usercontext.GetUserContext(c)
	bind := fiber.Map{
		"Title":          " | Preise",
		"Products":       products,
		"CurrentPriceID": "",
	}

	if uc.HasOrganization() {
		if sub, err := svc.GetActiveSubscription(context.Background(), uc.OrganizationID); err == nil && sub != nil {
			bind["CurrentPriceID"] = sub.PriceID
		}
	}

	return renderPage(c, "pricing/index", bind)
}
