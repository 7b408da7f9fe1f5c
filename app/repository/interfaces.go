package repository

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/kontiq/kontiq/app/models"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	Update(user *models.User) error
}

// OrganizationRepository defines the interface for tenant-related database operations
type OrganizationRepository interface {
	Create(org *models.Organization) error
	GetByID(id string) (*models.Organization, error)
	AddMember(membership *models.UserOrganization) error
	GetMembershipByUser(userID uint) (*models.UserOrganization, error)
	ListMembers(orgID string) ([]MemberWithUser, error)
	CreateInvite(invite *models.OrganizationInvite) error
	ListPendingInvites(orgID string) ([]models.OrganizationInvite, error)
	GetPendingInviteByEmail(email string) (*models.OrganizationInvite, error)
	AcceptInvite(invite *models.OrganizationInvite, userID uint) error
}

// TransactionRepository defines the interface for expense/income operations
// and the grouped reporting queries built on top of them.
type TransactionRepository interface {
	CreateExpense(expense *models.Expense) error
	CreateIncome(income *models.Income) error
	ListExpenses(orgID string, limit int) ([]models.Expense, error)
	ListIncome(orgID string, limit int) ([]models.Income, error)
	ListRecent(orgID string, limit int) ([]TransactionRow, error)
	MonthlyCashflow(orgID string, months int) ([]MonthlyCashflow, error)
	CategoryBreakdown(orgID string, from, to time.Time) ([]CategoryTotal, error)
	MonthTotals(orgID string, month time.Time) (income, expenses decimal.Decimal, err error)
	YearlyTotals(orgID string, years int) ([]YearlyTotal, error)
}

// MemberWithUser joins a membership row with the user it belongs to.
type MemberWithUser struct {
	models.UserOrganization
	UserName  string `json:"user_name"`
	UserEmail string `json:"user_email"`
}

// TransactionRow is a unified expense/income row for the transactions list.
type TransactionRow struct {
	Type         string          `json:"type"`
	Date         time.Time       `json:"date"`
	Category     string          `json:"category"`
	Description  string          `json:"description"`
	Counterparty string          `json:"counterparty"`
	Amount       decimal.Decimal `json:"amount"`
	Status       string          `json:"status"`
}

// MonthlyCashflow is one month of aggregated income vs. expenses.
type MonthlyCashflow struct {
	Month         string          `json:"month"`
	TotalIncome   decimal.Decimal `json:"total_income"`
	TotalExpenses decimal.Decimal `json:"total_expenses"`
	NetCashflow   decimal.Decimal `json:"net_cashflow"`
}

// YearlyTotal is one calendar year of aggregated income vs. expenses for the
// balance sheet.
type YearlyTotal struct {
	Year          string          `json:"year"`
	TotalIncome   decimal.Decimal `json:"total_income"`
	TotalExpenses decimal.Decimal `json:"total_expenses"`
	NetCashflow   decimal.Decimal `json:"net_cashflow"`
}

// CategoryTotal is one category's aggregated amount for a period.
type CategoryTotal struct {
	TransactionType string          `json:"transaction_type"`
	Category        string          `json:"category"`
	Amount          decimal.Decimal `json:"amount"`
}

// Repositories struct holds all repository instances
type Repositories struct {
	User         UserRepository
	Organization OrganizationRepository
	Transaction  TransactionRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:         NewUserRepository(db),
		Organization: NewOrganizationRepository(db),
		Transaction:  NewTransactionRepository(db),
	}
}
