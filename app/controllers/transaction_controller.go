package controllers

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/shopspring/decimal"
	"github.com/sujit-baniya/flash"

	"github.com/kontiq/kontiq/app/models"
	"github.com/kontiq/kontiq/app/repository"
	"github.com/kontiq/kontiq/internal/pkg/storage"
	"github.com/kontiq/kontiq/internal/pkg/usercontext"
)

const transactionListLimit = 100

var validate = validator.New()

// expenseForm carries the parsed expense fields for validation.
type expenseForm struct {
	ReceiptDate    string `validate:"required,datetime=2006-01-02"`
	VendorMerchant string `validate:"required,min=1,max=200"`
	Category       string `validate:"required,min=1,max=100"`
	TotalAmount    string `validate:"required"`
	PaymentMethod  string `validate:"max=50"`
	Status         string `validate:"omitempty,oneof=pending paid approved rejected"`
}

// incomeForm carries the parsed income fields for validation.
type incomeForm struct {
	PaymentDate string `validate:"required,datetime=2006-01-02"`
	Category    string `validate:"required,min=1,max=100"`
	TotalAmount string `validate:"required"`
	Status      string `validate:"omitempty,oneof=pending received invoiced cancelled"`
}

// HandleTransactions shows the unified expense/income list.
func HandleTransactions(c *fiber.Ctx) error {
	uc := usercontext.GetUserContext(c)
	txRepo := repository.GetGlobalFactory().GetTransactionRepository()

	rows, err := txRepo.ListRecent(uc.OrganizationID, transactionListLimit)
	if err != nil {
		log.Errorf("[Transactions] list failed: %v", err)
		return fiber.NewError(fiber.StatusInternalServerError, "could not load transactions")
	}

	return renderPage(c, "transactions/index", fiber.Map{
		"Title":        " | Transaktionen",
		"Transactions": rows,
	})
}

// HandleCreateExpense records a new expense, including an optional receipt
// upload.
func HandleCreateExpense(c *fiber.Ctx) error {
	uc := usercontext.GetUserContext(c)

	form := expenseForm{
		ReceiptDate:    c.FormValue("receipt_date"),
		VendorMerchant: c.FormValue("vendor_merchant"),
		Category:       c.FormValue("category"),
		TotalAmount:    c.FormValue("total_amount"),
		PaymentMethod:  c.FormValue("payment_method"),
		Status:         c.FormValue("status"),
	}
	if err := validate.Struct(form); err != nil {
		return formError(c, "/transactions", "Bitte prüfe deine Eingaben.")
	}

	amount, err := decimal.NewFromString(form.TotalAmount)
	if err != nil || amount.IsNegative() {
		return formError(c, "/transactions", "Der Betrag ist ungültig.")
	}

	receiptDate, _ := time.Parse("2006-01-02", form.ReceiptDate)

	expense := &models.Expense{
		OrganizationID: uc.OrganizationID,
		ReceiptDate:    receiptDate,
		VendorMerchant: form.VendorMerchant,
		Category:       form.Category,
		TotalAmount:    amount,
		Description:    c.FormValue("description"),
		PaymentMethod:  form.PaymentMethod,
		Status:         form.Status,
		CreatedBy:      uc.UserID,
	}
	if expense.Status == "" {
		expense.Status = models.ExpenseStatusPending
	}

	// Receipt file is optional. A failed upload blocks the expense so the
	// row never references a receipt that was not stored.
	if fileHeader, err := c.FormFile("receipt"); err == nil && fileHeader != nil {
		store := storage.GetReceiptStore()
		if store == nil {
			return formError(c, "/transactions", "Beleg-Uploads sind derzeit nicht verfügbar.")
		}

		file, err := fileHeader.Open()
		if err != nil {
			return formError(c, "/transactions", "Der Beleg konnte nicht gelesen werden.")
		}
		defer file.Close()

		url, err := store.Upload(c.Context(), uc.OrganizationID, fileHeader.Filename, file, fileHeader.Size)
		if err != nil {
			log.Errorf("[Transactions] receipt upload failed: %v", err)
			return formError(c, "/transactions", "Der Beleg konnte nicht hochgeladen werden.")
		}
		expense.ReceiptURL = url
	}

	txRepo := repository.GetGlobalFactory().GetTransactionRepository()
	if err := txRepo.CreateExpense(expense); err != nil {
		log.Errorf("[Transactions] create expense failed: %v", err)
		return formError(c, "/transactions", fmt.Sprintf("something went wrong: %s", err))
	}

	fm := fiber.Map{
		"type":    "success",
		"message": "Ausgabe gespeichert.",
	}
	return flash.WithSuccess(c, fm).Redirect("/transactions")
}

// HandleCreateIncome records a new income entry.
func HandleCreateIncome(c *fiber.Ctx) error {
	uc := usercontext.GetUserContext(c)

	form := incomeForm{
		PaymentDate: c.FormValue("payment_date"),
		Category:    c.FormValue("category"),
		TotalAmount: c.FormValue("total_amount"),
		Status:      c.FormValue("status"),
	}
	if err := validate.Struct(form); err != nil {
		return formError(c, "/transactions", "Bitte prüfe deine Eingaben.")
	}

	amount, err := decimal.NewFromString(form.TotalAmount)
	if err != nil || amount.IsNegative() {
		return formError(c, "/transactions", "Der Betrag ist ungültig.")
	}

	paymentDate, _ := time.Parse("2006-01-02", form.PaymentDate)

	income := &models.Income{
		OrganizationID: uc.OrganizationID,
		PaymentDate:    paymentDate,
		Category:       form.Category,
		TotalAmount:    amount,
		Description:    c.FormValue("description"),
		Status:         form.Status,
		CreatedBy:      uc.UserID,
	}
	if income.Status == "" {
		income.Status = models.IncomeStatusReceived
	}

	txRepo := repository.GetGlobalFactory().GetTransactionRepository()
	if err := txRepo.CreateIncome(income); err != nil {
		log.Errorf("[Transactions] create income failed: %v", err)
		return formError(c, "/transactions", fmt.Sprintf("something went wrong: %s", err))
	}

	fm := fiber.Map{
		"type":    "success",
		"message": "Einnahme gespeichert.",
	}
	return flash.WithSuccess(c, fm).Redirect("/transactions")
}

func formError(c *fiber.Ctx, redirect, message string) error {
	fm := fiber.Map{
		"type":    "error",
		"message": message,
	}
	return flash.WithError(c, fm).Redirect(redirect)
}
