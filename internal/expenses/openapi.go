package expenses

import "github.com/JaimeStill/tally/pkg/openapi"

var idParam = openapi.PathParam("id", "Expense file ID")

var schemas = map[string]*openapi.Schema{
	"Item": {
		Type: "object",
		Properties: map[string]*openapi.Schema{
			"name":        {Type: "string"},
			"quantity":    {Type: "number"},
			"unit_price":  {Type: "number"},
			"total_price": {Type: "number"},
		},
		Required: []string{"name"},
	},
	"ExpenseFile": {
		Type: "object",
		Properties: map[string]*openapi.Schema{
			"id":                   {Type: "string"},
			"user_id":              {Type: "string"},
			"file_name":            {Type: "string"},
			"file_display_name":    {Type: "string"},
			"storage_key":          {Type: "string"},
			"uploaded_at":          {Type: "string", Format: "date-time"},
			"size_bytes":           {Type: "integer"},
			"mime_type":            {Type: "string"},
			"page_count":           {Type: "integer"},
			"status":               {Type: "string", Enum: []any{StatusPending, StatusProcessed, StatusError}},
			"merchant_name":        {Type: "string"},
			"merchant_address":     {Type: "string"},
			"merchant_contact":     {Type: "string"},
			"transaction_date":     {Type: "string"},
			"transaction_amount":   {Type: "string", Description: "Decimal with two places", Example: "54.50"},
			"currency":             {Type: "string", Example: "USD"},
			"expense_file_summary": {Type: "string"},
			"items":                {Type: "array", Items: openapi.SchemaRef("Item")},
			"processed_at":         {Type: "string", Format: "date-time"},
			"updated_at":           {Type: "string", Format: "date-time"},
		},
	},
	"StatusUpdate": {
		Type: "object",
		Properties: map[string]*openapi.Schema{
			"status": {Type: "string", Enum: []any{StatusPending, StatusError}},
		},
		Required: []string{"status"},
	},
	"ExpenseFilePage": {
		Type: "object",
		Properties: map[string]*openapi.Schema{
			"data":        {Type: "array", Items: openapi.SchemaRef("ExpenseFile")},
			"total":       {Type: "integer"},
			"page":        {Type: "integer"},
			"page_size":   {Type: "integer"},
			"total_pages": {Type: "integer"},
		},
	},
}

var docs = struct {
	List, Find, Document, Upload, UpdateStatus, Delete *openapi.Operation
}{
	List: &openapi.Operation{
		Summary: "List a user's expense files",
		Parameters: []*openapi.Parameter{
			openapi.QueryParam("user_id", "string", "Owner of the files", true),
			openapi.QueryParam("page", "integer", "Page number (1-indexed)", false),
			openapi.QueryParam("page_size", "integer", "Results per page", false),
			openapi.QueryParam("status", "string", "pending, processed, or error", false),
			openapi.QueryParam("search", "string", "Matches merchant, file name, or summary", false),
			openapi.QueryParam("uploaded_from", "string", "Inclusive lower bound, RFC 3339 or YYYY-MM-DD", false),
			openapi.QueryParam("uploaded_to", "string", "Exclusive upper bound, RFC 3339 or YYYY-MM-DD", false),
			openapi.QueryParam("sort", "string", "Comma-separated fields, - prefix for descending. Default -uploaded_at", false),
		},
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseJSON("Expense file page", "ExpenseFilePage"),
			400: openapi.ResponseRef("BadRequest"),
		},
	},
	Find: &openapi.Operation{
		Summary:    "Get an expense file",
		Parameters: []*openapi.Parameter{idParam},
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseJSON("Expense file", "ExpenseFile"),
			404: openapi.ResponseRef("NotFound"),
		},
	},
	Document: &openapi.Operation{
		Summary:    "Download the stored receipt document",
		Parameters: []*openapi.Parameter{idParam},
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseBinary("Receipt document"),
			404: openapi.ResponseRef("NotFound"),
		},
	},
	Upload: &openapi.Operation{
		Summary:     "Upload a receipt",
		Description: "Stores the file as pending. When async dispatch is enabled the file is queued for extraction.",
		RequestBody: openapi.RequestBodyMultipart(map[string]*openapi.Schema{
			"file":    {Type: "string", Format: "binary"},
			"user_id": {Type: "string"},
		}, "file", "user_id"),
		Responses: map[int]*openapi.Response{
			201: openapi.ResponseJSON("Stored expense file", "ExpenseFile"),
			400: openapi.ResponseRef("BadRequest"),
			413: {Description: "File exceeds the upload limit"},
		},
	},
	UpdateStatus: &openapi.Operation{
		Summary:     "Update an expense file's status",
		Description: "Moves a pending file to error, or an errored file back to pending for another extraction. Processed files are final.",
		Parameters:  []*openapi.Parameter{idParam},
		RequestBody: openapi.RequestBodyJSON("StatusUpdate", true),
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseJSON("Updated expense file", "ExpenseFile"),
			400: openapi.ResponseRef("BadRequest"),
			404: openapi.ResponseRef("NotFound"),
			409: openapi.ResponseRef("Conflict"),
		},
	},
	Delete: &openapi.Operation{
		Summary:    "Delete an expense file and its document",
		Parameters: []*openapi.Parameter{idParam},
		Responses: map[int]*openapi.Response{
			204: {Description: "Deleted"},
			404: openapi.ResponseRef("NotFound"),
		},
	},
}
