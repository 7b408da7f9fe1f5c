package controllers

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/template/html/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kontiq/kontiq/app/models"
	"github.com/kontiq/kontiq/internal/pkg/billing"
	"github.com/kontiq/kontiq/internal/pkg/usercontext"
)

func installStubReadService(t *testing.T, repo *stubBillingRepo) {
	t.Helper()
	orig := billingReadServiceFactory
	billingReadServiceFactory = func() *billing.Service {
		return billing.NewService(repo, nil)
	}
	t.Cleanup(func() { billingReadServiceFactory = orig })
}

func newReportApp(uc usercontext.UserContext) *fiber.App {
	engine := html.New("../../views", ".html")
	app := fiber.New(fiber.Config{Views: engine})
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("USER_CONTEXT", uc)
		return c.Next()
	})
	app.Get("/reports/balance-sheet", HandleBalanceSheet)
	app.Get("/analytics", HandleAnalytics)
	return app
}

func TestOrganizationEntitled(t *testing.T) {
	repo := newStubBillingRepo()
	installStubReadService(t, repo)

	assert.False(t, organizationEntitled(context.Background(), "org-1"),
		"free tier must not be entitled")

	repo.subscriptions["sub_1"] = &models.Subscription{
		ID:             "sub_1",
		OrganizationID: "org-1",
		Status:         models.SubscriptionStatusActive,
	}
	assert.True(t, organizationEntitled(context.Background(), "org-1"))

	repo.subscriptions["sub_1"].Status = models.SubscriptionStatusCanceled
	assert.False(t, organizationEntitled(context.Background(), "org-1"),
		"a canceled subscription must not entitle")
}

func TestHandleBalanceSheet_LockedWithoutSubscription(t *testing.T) {
	repo := newStubBillingRepo()
	installStubReadService(t, repo)

	app := newReportApp(usercontext.UserContext{
		UserID:         1,
		Username:       "demo",
		IsLoggedIn:     true,
		OrganizationID: "org-1",
		OrgRole:        models.OrgRoleOwner,
	})

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/reports/balance-sheet", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "Jetzt upgraden")
	assert.NotContains(t, string(body), "<th>Jahr</th>")
}

func TestHandleAnalytics_LockedWithoutSubscription(t *testing.T) {
	repo := newStubBillingRepo()
	installStubReadService(t, repo)

	app := newReportApp(usercontext.UserContext{
		UserID:         1,
		Username:       "demo",
		IsLoggedIn:     true,
		OrganizationID: "org-1",
		OrgRole:        models.OrgRoleMember,
	})

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/analytics", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "Jetzt upgraden")
	assert.NotContains(t, string(body), "Cashflow der letzten 12 Monate")
}
