package repository

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/kontiq/kontiq/app/models"
)

// transactionRepository implements the TransactionRepository interface
type transactionRepository struct {
	db *gorm.DB
}

// NewTransactionRepository creates a new transaction repository instance
func NewTransactionRepository(db *gorm.DB) TransactionRepository {
	return &transactionRepository{db: db}
}

func (r *transactionRepository) CreateExpense(expense *models.Expense) error {
	return r.db.Create(expense).Error
}

func (r *transactionRepository) CreateIncome(income *models.Income) error {
	return r.db.Create(income).Error
}

func (r *transactionRepository) ListExpenses(orgID string, limit int) ([]models.Expense, error) {
	var expenses []models.Expense
	err := r.db.
		Where("organization_id = ?", orgID).
		Order("receipt_date DESC").
		Limit(limit).
		Find(&expenses).Error
	return expenses, err
}

func (r *transactionRepository) ListIncome(orgID string, limit int) ([]models.Income, error) {
	var income []models.Income
	err := r.db.
		Where("organization_id = ?", orgID).
		Order("payment_date DESC").
		Limit(limit).
		Find(&income).Error
	return income, err
}

// ListRecent returns the organization's most recent transactions of both
// kinds as one list, newest first.
func (r *transactionRepository) ListRecent(orgID string, limit int) ([]TransactionRow, error) {
	var rows []TransactionRow
	err := r.db.Raw(`
		SELECT 'expense' AS type, receipt_date AS date, category, description,
		       vendor_merchant AS counterparty, total_amount AS amount, status
		FROM expenses WHERE organization_id = ?
		UNION ALL
		SELECT 'income' AS type, payment_date AS date, category, description,
		       '' AS counterparty, total_amount AS amount, status
		FROM income WHERE organization_id = ?
		ORDER BY date DESC
		LIMIT ?`, orgID, orgID, limit).Scan(&rows).Error
	return rows, err
}

// MonthlyCashflow aggregates income vs. expenses per calendar month.
// Cancelled income and rejected expenses do not count.
func (r *transactionRepository) MonthlyCashflow(orgID string, months int) ([]MonthlyCashflow, error) {
	var rows []MonthlyCashflow
	err := r.db.Raw(`
		SELECT month,
		       SUM(income) AS total_income,
		       SUM(expense) AS total_expenses,
		       SUM(income) - SUM(expense) AS net_cashflow
		FROM (
			SELECT DATE_FORMAT(payment_date, '%Y-%m') AS month,
			       total_amount AS income, 0 AS expense
			FROM income
			WHERE organization_id = ? AND status <> ?
			UNION ALL
			SELECT DATE_FORMAT(receipt_date, '%Y-%m') AS month,
			       0 AS income, total_amount AS expense
			FROM expenses
			WHERE organization_id = ? AND status <> ?
		) t
		GROUP BY month
		ORDER BY month DESC
		LIMIT ?`,
		orgID, models.IncomeStatusCancelled,
		orgID, models.ExpenseStatusRejected,
		months).Scan(&rows).Error
	return rows, err
}

// YearlyTotals aggregates income vs. expenses per calendar year, newest
// first, for the balance sheet.
func (r *transactionRepository) YearlyTotals(orgID string, years int) ([]YearlyTotal, error) {
	var rows []YearlyTotal
	err := r.db.Raw(`
		SELECT year,
		       SUM(income) AS total_income,
		       SUM(expense) AS total_expenses,
		       SUM(income) - SUM(expense) AS net_cashflow
		FROM (
			SELECT DATE_FORMAT(payment_date, '%Y') AS year,
			       total_amount AS income, 0 AS expense
			FROM income
			WHERE organization_id = ? AND status <> ?
			UNION ALL
			SELECT DATE_FORMAT(receipt_date, '%Y') AS year,
			       0 AS income, total_amount AS expense
			FROM expenses
			WHERE organization_id = ? AND status <> ?
		) t
		GROUP BY year
		ORDER BY year DESC
		LIMIT ?`,
		orgID, models.IncomeStatusCancelled,
		orgID, models.ExpenseStatusRejected,
		years).Scan(&rows).Error
	return rows, err
}

// CategoryBreakdown aggregates amounts per category and transaction type
// within [from, to).
func (r *transactionRepository) CategoryBreakdown(orgID string, from, to time.Time) ([]CategoryTotal, error) {
	var rows []CategoryTotal
	err := r.db.Raw(`
		SELECT 'income' AS transaction_type, category, SUM(total_amount) AS amount
		FROM income
		WHERE organization_id = ? AND status <> ? AND payment_date >= ? AND payment_date < ?
		GROUP BY category
		UNION ALL
		SELECT 'expense' AS transaction_type, category, SUM(total_amount) AS amount
		FROM expenses
		WHERE organization_id = ? AND status <> ? AND receipt_date >= ? AND receipt_date < ?
		GROUP BY category
		ORDER BY transaction_type, amount DESC`,
		orgID, models.IncomeStatusCancelled, from, to,
		orgID, models.ExpenseStatusRejected, from, to).Scan(&rows).Error
	return rows, err
}

// MonthTotals returns the income and expense sums for the month containing
// the given time.
func (r *transactionRepository) MonthTotals(orgID string, month time.Time) (decimal.Decimal, decimal.Decimal, error) {
	start := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, month.Location())
	end := start.AddDate(0, 1, 0)

	var result struct {
		Income   decimal.Decimal
		Expenses decimal.Decimal
	}
	err := r.db.Raw(`
		SELECT
			(SELECT COALESCE(SUM(total_amount), 0) FROM income
			 WHERE organization_id = ? AND status <> ? AND payment_date >= ? AND payment_date < ?) AS income,
			(SELECT COALESCE(SUM(total_amount), 0) FROM expenses
			 WHERE organization_id = ? AND status <> ? AND receipt_date >= ? AND receipt_date < ?) AS expenses`,
		orgID, models.IncomeStatusCancelled, start, end,
		orgID, models.ExpenseStatusRejected, start, end).Scan(&result).Error
	return result.Income, result.Expenses, err
}
