package router

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/csrf"

	"github.com/kontiq/kontiq/app/controllers"
	"github.com/kontiq/kontiq/internal/pkg/env"
	"github.com/kontiq/kontiq/internal/pkg/middleware"
)

func (h HttpRouter) registerCSRFProtectedRoutes(app *fiber.App) {
	csrfConf := csrf.Config{
		KeyLookup:      "form:_csrf",
		ContextKey:     "csrf",
		CookieName:     "csrf_",
		CookieSameSite: "Lax",
		Expiration:     1 * time.Hour,
		CookieSecure:   !env.IsDev(),
		Next: func(c *fiber.Ctx) bool {
			return strings.HasPrefix(c.Path(), "/api/") || strings.HasPrefix(c.Path(), "/webhooks/")
		},
	}

	group := app.Group("", cors.New(), csrf.New(csrfConf))
	group.Get("/", loggedInMiddleware, controllers.HandleDashboard)
	group.Get("/login", loggedInMiddleware, controllers.HandleAuthLogin)
	group.Post("/login", loggedInMiddleware, controllers.HandleAuthLogin)
	group.Get("/register", loggedInMiddleware, controllers.HandleAuthRegister)
	group.Post("/register", loggedInMiddleware, controllers.HandleAuthRegister)

	// Onboarding (auth, but no organization yet)
	group.Get("/onboarding", middleware.RequireAuth, controllers.HandleOnboarding)
	group.Post("/onboarding", middleware.RequireAuth, controllers.HandleOnboarding)

	// Workspace
	group.Get("/transactions", middleware.RequireOrganization, controllers.HandleTransactions)
	group.Post("/transactions/expense", middleware.RequireOrganization, controllers.HandleCreateExpense)
	group.Post("/transactions/income", middleware.RequireOrganization, controllers.HandleCreateIncome)
	group.Get("/reports", middleware.RequireOrganization, controllers.HandleReports)
	group.Get("/reports/balance-sheet", middleware.RequireOrganization, controllers.HandleBalanceSheet)
	group.Get("/analytics", middleware.RequireOrganization, controllers.HandleAnalytics)
	group.Get("/team", middleware.RequireOrganization, controllers.HandleTeam)
	group.Post("/team/invite", middleware.RequireOrganization, controllers.HandleInviteMember)

	// Billing
	group.Post("/billing/checkout", middleware.RequireOrganization, controllers.HandleCreateCheckoutSession)
	group.Post("/billing/resync", middleware.RequireOrganization, controllers.HandleBillingResync)
}
