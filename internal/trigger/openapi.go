package trigger

import "github.com/JaimeStill/tally/pkg/openapi"

var schemas = map[string]*openapi.Schema{
	"ExtractionRequest": {
		Type: "object",
		Properties: map[string]*openapi.Schema{
			"document_url":   {Type: "string", Description: "http(s)://, blob://<key>, or s3://<bucket>/<key>"},
			"correlation_id": {Type: "string", Description: "Expense file ID to complete"},
		},
		Required: []string{"document_url", "correlation_id"},
	},
	"ExtractionResult": {
		Type: "object",
		Properties: map[string]*openapi.Schema{
			"record_id": {Type: "string"},
			"turns":     {Type: "integer"},
		},
	},
	"ExtractionError": {
		Type: "object",
		Properties: map[string]*openapi.Schema{
			"kind": {Type: "string", Enum: []any{
				"ExtractionFailed", "InvalidArguments", "PersistenceFailed",
				"PipelineIncomplete", "RouterError",
			}},
			"message":       {Type: "string"},
			"turns_elapsed": {Type: "integer"},
		},
	},
	"ExtractionQueued": {
		Type: "object",
		Properties: map[string]*openapi.Schema{
			"correlation_id": {Type: "string"},
			"message_id":     {Type: "string"},
			"status":         {Type: "string", Example: "queued"},
		},
	},
}

var createDoc = &openapi.Operation{
	Summary:     "Run receipt extraction",
	Description: "Runs the pipeline and returns the committed record, or queues the request when async=true.",
	Parameters: []*openapi.Parameter{
		openapi.QueryParam("async", "boolean", "Queue the run instead of waiting", false),
	},
	RequestBody: openapi.RequestBodyJSON("ExtractionRequest", true),
	Responses: map[int]*openapi.Response{
		200: openapi.ResponseJSON("Record committed", "ExtractionResult"),
		202: openapi.ResponseJSON("Run queued", "ExtractionQueued"),
		400: openapi.ResponseRef("BadRequest"),
		404: openapi.ResponseJSON("Expense file not found", "ExtractionError"),
		409: openapi.ResponseJSON("Expense file not pending", "ExtractionError"),
		422: openapi.ResponseJSON("Document could not be read", "ExtractionError"),
		500: openapi.ResponseJSON("Pipeline did not complete", "ExtractionError"),
		502: openapi.ResponseJSON("Persistence failed", "ExtractionError"),
		503: openapi.ResponseRef("ServiceUnavailable"),
		504: openapi.ResponseJSON("Run timed out", "ExtractionError"),
	},
}
