// Package expenses implements the expense file domain: uploaded receipt
// documents, their processing status, and the extracted expense data
// committed when processing completes.
package expenses

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/JaimeStill/tally/pkg/query"
)

// Status is the processing state of an expense file.
type Status string

const (
	StatusPending   Status = "pending"
	StatusProcessed Status = "processed"
	StatusError     Status = "error"
)

// transitions lists the status moves UpdateStatus accepts. Processed is
// reached only through Complete.
var transitions = map[Status]Status{
	StatusError:   StatusPending,
	StatusPending: StatusError,
}

// ParseStatus validates s as a known status.
func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.TrimSpace(s)); st {
	case StatusPending, StatusProcessed, StatusError:
		return st, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

// Item is one purchased line stored with a processed expense file.
type Item struct {
	Name       string   `json:"name"`
	Quantity   *float64 `json:"quantity,omitempty"`
	UnitPrice  *float64 `json:"unit_price,omitempty"`
	TotalPrice *float64 `json:"total_price,omitempty"`
}

// ExpenseFile is an uploaded receipt document and, once processed, its
// extracted expense data.
type ExpenseFile struct {
	ID                string     `json:"id"`
	UserID            string     `json:"user_id"`
	FileName          string     `json:"file_name"`
	FileDisplayName   *string    `json:"file_display_name"`
	StorageKey        string     `json:"storage_key"`
	UploadedAt        time.Time  `json:"uploaded_at"`
	SizeBytes         int64      `json:"size_bytes"`
	MimeType          string     `json:"mime_type"`
	PageCount         *int       `json:"page_count"`
	Status            Status     `json:"status"`
	MerchantName      *string    `json:"merchant_name"`
	MerchantAddress   *string    `json:"merchant_address"`
	MerchantContact   *string    `json:"merchant_contact"`
	TransactionDate   *string    `json:"transaction_date"`
	TransactionAmount *string    `json:"transaction_amount"`
	Currency          *string    `json:"currency"`
	Summary           *string    `json:"expense_file_summary"`
	Items             []Item     `json:"items"`
	ProcessedAt       *time.Time `json:"processed_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// DocumentURL is the location the extraction pipeline fetches the file from.
func (e *ExpenseFile) DocumentURL() string {
	return "blob://" + e.StorageKey
}

// Filters narrows a listing. Zero values match everything.
type Filters struct {
	Status       *Status
	Search       string
	UploadedFrom *time.Time
	UploadedTo   *time.Time
	Sort         []query.SortField
}

// FiltersFromQuery reads status, search, uploaded_from, uploaded_to, and
// sort. Timestamps are RFC 3339 or YYYY-MM-DD; uploaded_to is exclusive.
func FiltersFromQuery(values url.Values) (Filters, error) {
	var f Filters

	if v := strings.TrimSpace(values.Get("status")); v != "" {
		s, err := ParseStatus(v)
		if err != nil {
			return f, fmt.Errorf("%w: %w", ErrInvalidFilter, err)
		}
		f.Status = &s
	}

	var err error
	if f.UploadedFrom, err = parseTime(values.Get("uploaded_from")); err != nil {
		return f, fmt.Errorf("%w: uploaded_from: %w", ErrInvalidFilter, err)
	}
	if f.UploadedTo, err = parseTime(values.Get("uploaded_to")); err != nil {
		return f, fmt.Errorf("%w: uploaded_to: %w", ErrInvalidFilter, err)
	}

	f.Search = values.Get("search")
	f.Sort = query.ParseSortFields(values.Get("sort"))
	return f, nil
}

func parseTime(v string) (*time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, v); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("unrecognized time %q", v)
}

// CreateCommand carries an upload. PageCount is nil for non-PDF files.
type CreateCommand struct {
	Data      []byte
	FileName  string
	MimeType  string
	UserID    string
	PageCount *int
}

// StatusCommand is the body of a status update request.
type StatusCommand struct {
	Status string `json:"status"`
}

// CompleteCommand is the extracted data committed when a pending file is
// processed. TransactionAmount is a decimal string with two places.
type CompleteCommand struct {
	FileDisplayName   *string
	MerchantName      string
	MerchantAddress   *string
	MerchantContact   *string
	TransactionDate   *string
	TransactionAmount string
	Currency          string
	Summary           *string
	Items             []Item
}

// Completion reports the outcome of Complete. Applied is false when the
// file was already processed and nothing was written.
type Completion struct {
	Applied bool
	File    *ExpenseFile
}
