package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/kontiq/kontiq/app/repository"
	"github.com/kontiq/kontiq/internal/pkg/usercontext"
)

const (
	cashflowMonths    = 12
	balanceSheetYears = 5
)

// HandleReports renders the monthly cashflow series and the category
// breakdown for the selected month.
func HandleReports(c *fiber.Ctx) error {
	uc := usercontext.GetUserContext(c)
	txRepo := repository.GetGlobalFactory().GetTransactionRepository()

	monthStart := monthParam(c)
	monthEnd := monthStart.AddDate(0, 1, 0)

	cashflow, err := txRepo.MonthlyCashflow(uc.OrganizationID, cashflowMonths)
	if err != nil {
		log.Errorf("[Reports] cashflow query failed: %v", err)
		return fiber.NewError(fiber.StatusInternalServerError, "could not load reports")
	}

	categories, err := txRepo.CategoryBreakdown(uc.OrganizationID, monthStart, monthEnd)
	if err != nil {
		log.Errorf("[Reports] category query failed: %v", err)
		return fiber.NewError(fiber.StatusInternalServerError, "could not load reports")
	}

	income, expenses, err := txRepo.MonthTotals(uc.OrganizationID, monthStart)
	if err != nil {
		log.Errorf("[Reports] totals query failed: %v", err)
		return fiber.NewError(fiber.StatusInternalServerError, "could not load reports")
	}

	return renderPage(c, "reports/index", fiber.Map{
		"Title":         " | Berichte",
		"Month":         monthStart.Format("2006-01"),
		"Cashflow":      cashflow,
		"Categories":    categories,
		"MonthIncome":   income,
		"MonthExpenses": expenses,
		"MonthNet":      income.Sub(expenses),
	})
}

// HandleBalanceSheet renders the yearly balance sheet over the last five
// years. The report is part of the paid plan; organizations without an
// entitling subscription get the locked page with an upgrade prompt instead.
func HandleBalanceSheet(c *fiber.Ctx) error {
	uc := usercontext.GetUserContext(c)

	if !organizationEntitled(c.Context(), uc.OrganizationID) {
		return renderPage(c, "reports/balance_sheet", fiber.Map{
			"Title":  " | Bilanz",
			"Locked": true,
		})
	}

	years, err := repository.GetGlobalFactory().GetTransactionRepository().
		YearlyTotals(uc.OrganizationID, balanceSheetYears)
	if err != nil {
		log.Errorf("[Reports] balance sheet query failed: %v", err)
		return fiber.NewError(fiber.StatusInternalServerError, "could not load reports")
	}

	return renderPage(c, "reports/balance_sheet", fiber.Map{
		"Title":  " | Bilanz",
		"Locked": false,
		"Years":  years,
	})
}

// HandleAnalytics renders the paid analytics view: the twelve-month cashflow
// trend plus the category breakdown over the same window.
func HandleAnalytics(c *fiber.Ctx) error {
	uc := usercontext.GetUserContext(c)

	if !organizationEntitled(c.Context(), uc.OrganizationID) {
		return renderPage(c, "analytics/index", fiber.Map{
			"Title":  " | Analytics",
			"Locked": true,
		})
	}

	txRepo := repository.GetGlobalFactory().GetTransactionRepository()

	cashflow, err := txRepo.MonthlyCashflow(uc.OrganizationID, cashflowMonths)
	if err != nil {
		log.Errorf("[Analytics] cashflow query failed: %v", err)
		return fiber.NewError(fiber.StatusInternalServerError, "could not load analytics")
	}

	now := time.Now()
	windowEnd := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	windowStart := windowEnd.AddDate(0, -cashflowMonths, 0)
	categories, err := txRepo.CategoryBreakdown(uc.OrganizationID, windowStart, windowEnd)
	if err != nil {
		log.Errorf("[Analytics] category query failed: %v", err)
		return fiber.NewError(fiber.StatusInternalServerError, "could not load analytics")
	}

	return renderPage(c, "analytics/index", fiber.Map{
		"Title":      " | Analytics",
		"Locked":     false,
		"Cashflow":   cashflow,
		"Categories": categories,
	})
}

// monthParam reads ?month=YYYY-MM, defaulting to the current month.
func monthParam(c *fiber.Ctx) time.Time {
	if raw := c.Query("month"); raw != "" {
		if t, err := time.Parse("2006-01", raw); err == nil {
			return t
		}
	}
	now := time.Now()
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
}
