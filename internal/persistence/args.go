package persistence

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/JaimeStill/tally/internal/expenses"
	"github.com/JaimeStill/tally/internal/receipts"
)

// Args are the save-record tool arguments. Required fields are non-pointer
// except Items, which must be present even when empty.
type Args struct {
	ExpenseFileID      string          `json:"expense_file_id"`
	FileDisplayName    *string         `json:"file_display_name,omitempty"`
	MerchantName       string          `json:"merchant_name"`
	MerchantAddress    *string         `json:"merchant_address,omitempty"`
	MerchantContact    *string         `json:"merchant_contact,omitempty"`
	TransactionDate    *string         `json:"transaction_date,omitempty"`
	TransactionAmount  string          `json:"transaction_amount"`
	Currency           string          `json:"currency"`
	ExpenseFileSummary *string         `json:"expense_file_summary,omitempty"`
	Items              []expenses.Item `json:"items"`
}

// ArgsFromRecord maps an extracted record onto save-record arguments.
// Missing record values stay empty so validation rejects them.
func ArgsFromRecord(expenseFileID string, r *receipts.Record) Args {
	args := Args{ExpenseFileID: expenseFileID}
	if r == nil {
		return args
	}

	args.FileDisplayName = r.DisplayName
	args.MerchantName = receipts.Value(r.Merchant.Name)
	args.MerchantAddress = r.Merchant.Address
	args.MerchantContact = r.Merchant.Contact
	args.TransactionDate = r.Transaction.Date
	args.Currency = receipts.Value(r.Totals.Currency)
	args.ExpenseFileSummary = r.Summary

	if amount, ok := r.Amount(); ok {
		args.TransactionAmount = receipts.FormatAmount(amount)
	}

	args.Items = make([]expenses.Item, 0, len(r.Items))
	for _, it := range r.Items {
		args.Items = append(args.Items, expenses.Item{
			Name:       it.Name,
			Quantity:   it.Quantity,
			UnitPrice:  it.UnitPrice,
			TotalPrice: it.TotalPrice,
		})
	}

	return args
}

// Validate checks that every required field is present.
func (a Args) Validate() error {
	var errs []error
	if blank(a.ExpenseFileID) {
		errs = append(errs, errors.New("expense_file_id required"))
	}
	if blank(a.MerchantName) {
		errs = append(errs, errors.New("merchant_name required"))
	}
	if blank(a.TransactionAmount) {
		errs = append(errs, errors.New("transaction_amount required"))
	}
	if blank(a.Currency) {
		errs = append(errs, errors.New("currency required"))
	}
	if a.Items == nil {
		errs = append(errs, errors.New("items required"))
	}
	return errors.Join(errs...)
}

// Command converts validated arguments into a store command. The amount is
// normalized to two decimal places.
func (a Args) Command() (expenses.CompleteCommand, error) {
	amount, err := strconv.ParseFloat(a.TransactionAmount, 64)
	if err != nil {
		return expenses.CompleteCommand{}, fmt.Errorf("transaction_amount %q: %w", a.TransactionAmount, err)
	}

	return expenses.CompleteCommand{
		FileDisplayName:   a.FileDisplayName,
		MerchantName:      a.MerchantName,
		MerchantAddress:   a.MerchantAddress,
		MerchantContact:   a.MerchantContact,
		TransactionDate:   a.TransactionDate,
		TransactionAmount: receipts.FormatAmount(amount),
		Currency:          a.Currency,
		Summary:           a.ExpenseFileSummary,
		Items:             a.Items,
	}, nil
}
