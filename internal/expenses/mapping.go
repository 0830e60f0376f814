package expenses

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/JaimeStill/tally/pkg/query"
	"github.com/JaimeStill/tally/pkg/repository"
)

// scan order
var columnNames = []string{
	"id", "user_id", "file_name", "file_display_name", "storage_key", "uploaded_at",
	"size_bytes", "mime_type", "page_count", "status", "merchant_name", "merchant_address",
	"merchant_contact", "transaction_date", "transaction_amount", "currency",
	"expense_file_summary", "items", "processed_at", "updated_at",
}

var columns = strings.Join(columnNames, ", ")

var selectByID = "SELECT " + columns + " FROM expense_files WHERE id = $1"

var projection = func() *query.Projection {
	p := query.NewProjection("expense_files", "e")
	for _, c := range columnNames {
		p.Project(c, c)
	}
	return p
}()

var searchFields = []string{"merchant_name", "file_name", "file_display_name", "expense_file_summary"}

var defaultSort = []query.SortField{
	{Field: "uploaded_at", Descending: true},
	{Field: "id"},
}

func scanExpenseFile(s repository.Scanner) (ExpenseFile, error) {
	var (
		e     ExpenseFile
		items []byte
	)

	err := s.Scan(
		&e.ID,
		&e.UserID,
		&e.FileName,
		&e.FileDisplayName,
		&e.StorageKey,
		&e.UploadedAt,
		&e.SizeBytes,
		&e.MimeType,
		&e.PageCount,
		&e.Status,
		&e.MerchantName,
		&e.MerchantAddress,
		&e.MerchantContact,
		&e.TransactionDate,
		&e.TransactionAmount,
		&e.Currency,
		&e.Summary,
		&items,
		&e.ProcessedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		return e, err
	}

	if len(items) > 0 {
		if err := json.Unmarshal(items, &e.Items); err != nil {
			return e, fmt.Errorf("decode items: %w", err)
		}
	}
	if e.Items == nil {
		e.Items = []Item{}
	}

	return e, nil
}

func encodeItems(items []Item) (string, error) {
	if items == nil {
		items = []Item{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("encode items: %w", err)
	}
	return string(data), nil
}
