// Package receipts defines the structured record produced by document
// extraction. Optional values are pointers: nil means the value was not
// found on the document and must not be fabricated downstream.
package receipts

import (
	"math"
	"strconv"
	"strings"
)

// Merchant identifies who issued the receipt.
type Merchant struct {
	Name    *string `json:"name"`
	Address *string `json:"address"`
	Contact *string `json:"contact"`
}

// Transaction holds receipt-level transaction details.
type Transaction struct {
	Date          *string `json:"date"`
	ReceiptNumber *string `json:"receipt_number"`
	PaymentMethod *string `json:"payment_method"`
}

// Item is a single purchased line.
type Item struct {
	Name       string   `json:"name"`
	Quantity   *float64 `json:"quantity"`
	UnitPrice  *float64 `json:"unit_price"`
	TotalPrice *float64 `json:"total_price"`
}

// Totals holds the receipt summary amounts.
type Totals struct {
	Subtotal  *float64 `json:"subtotal"`
	Tax       *float64 `json:"tax"`
	TotalPaid *float64 `json:"total_paid"`
	Currency  *string  `json:"currency"`
}

// Record is the extraction result for one document.
type Record struct {
	DisplayName *string     `json:"file_display_name"`
	Merchant    Merchant    `json:"merchant"`
	Transaction Transaction `json:"transaction"`
	Items       []Item      `json:"items"`
	Totals      Totals      `json:"totals"`
	Summary     *string     `json:"summary"`
}

// Empty reports whether nothing identifying a receipt was extracted.
func (r *Record) Empty() bool {
	return blank(r.Merchant.Name) && len(r.Items) == 0 && r.Totals.TotalPaid == nil
}

// Amount returns the transaction amount: the total paid when present,
// otherwise the sum of item totals. The second result is false when neither
// is available.
func (r *Record) Amount() (float64, bool) {
	if r.Totals.TotalPaid != nil {
		return *r.Totals.TotalPaid, true
	}

	if len(r.Items) == 0 {
		return 0, false
	}

	var sum float64
	for _, it := range r.Items {
		if it.TotalPrice == nil {
			return 0, false
		}
		sum += *it.TotalPrice
	}
	return sum, true
}

// Missing lists the dotted paths of fields that were not extracted.
func (r *Record) Missing() []string {
	var missing []string

	check := func(path string, v *string) {
		if blank(v) {
			missing = append(missing, path)
		}
	}

	check("file_display_name", r.DisplayName)
	check("merchant.name", r.Merchant.Name)
	check("merchant.address", r.Merchant.Address)
	check("merchant.contact", r.Merchant.Contact)
	check("transaction.date", r.Transaction.Date)
	check("transaction.receipt_number", r.Transaction.ReceiptNumber)
	check("transaction.payment_method", r.Transaction.PaymentMethod)
	check("totals.currency", r.Totals.Currency)
	check("summary", r.Summary)

	if r.Totals.Subtotal == nil {
		missing = append(missing, "totals.subtotal")
	}
	if r.Totals.Tax == nil {
		missing = append(missing, "totals.tax")
	}
	if r.Totals.TotalPaid == nil {
		missing = append(missing, "totals.total_paid")
	}
	if len(r.Items) == 0 {
		missing = append(missing, "items")
	}

	return missing
}

// FormatAmount renders an amount with two decimal places.
func FormatAmount(v float64) string {
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', 2, 64)
}

// Value dereferences an optional string, returning "" for missing values.
func Value(v *string) string {
	if v == nil {
		return ""
	}
	return strings.TrimSpace(*v)
}

func blank(v *string) bool {
	return v == nil || strings.TrimSpace(*v) == ""
}
