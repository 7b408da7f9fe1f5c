package controllers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/kontiq/kontiq/app/repository"
	"github.com/kontiq/kontiq/internal/pkg/billing"
	"github.com/kontiq/kontiq/internal/pkg/database"
	"github.com/kontiq/kontiq/internal/pkg/usercontext"
)

const dashboardRecentLimit = 10

// HandleDashboard is the workspace home: current month totals, the latest
// transactions and the subscription state.
func HandleDashboard(c *fiber.Ctx) error {
	uc := usercontext.GetUserContext(c)
	if !uc.IsLoggedIn {
		return renderPage(c, "home/index", fiber.Map{
			"Title": "",
		})
	}
	if !uc.HasOrganization() {
		return c.Redirect("/onboarding")
	}

	txRepo := repository.GetGlobalFactory().GetTransactionRepository()

	now := time.Now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	income, expenses, err := txRepo.MonthTotals(uc.OrganizationID, monthStart)
	if err != nil {
		log.Errorf("[Dashboard] totals query failed: %v", err)
		return fiber.NewError(fiber.StatusInternalServerError, "could not load dashboard")
	}

	recent, err := txRepo.ListRecent(uc.OrganizationID, dashboardRecentLimit)
	if err != nil {
		log.Errorf("[Dashboard] recent query failed: %v", err)
		return fiber.NewError(fiber.StatusInternalServerError, "could not load dashboard")
	}

	bind := fiber.Map{
		"Title":         " | Übersicht",
		"Month":         monthStart.Format("2006-01"),
		"MonthIncome":   income,
		"MonthExpenses": expenses,
		"MonthNet":      income.Sub(expenses),
		"Recent":        recent,
	}

	// Subscription banner. The local row is provider truth as of the last
	// webhook; absence simply means free tier.
	svc := billing.NewServiceFromDB(database.GetDB(), nil)
	if sub, err := svc.GetActiveSubscription(context.Background(), uc.OrganizationID); err == nil && sub != nil {
		bind["Subscription"] = sub
		bind["IsEntitled"] = sub.IsEntitling()
	}

	return renderPage(c, "dashboard/index", bind)
}
