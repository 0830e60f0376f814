package expenses

import (
	"context"
	"io"

	"github.com/JaimeStill/tally/pkg/pagination"
)

// System defines the public contract for expense file operations.
type System interface {
	Handler(maxUploadSize int64, dispatch Dispatcher) *Handler

	Find(ctx context.Context, id string) (*ExpenseFile, error)
	// ListByUser pages through a user's files, newest first unless filters
	// set a sort.
	ListByUser(ctx context.Context, userID string, page pagination.PageRequest, filters Filters) (*pagination.PageResult[ExpenseFile], error)
	Create(ctx context.Context, cmd CreateCommand) (*ExpenseFile, error)

	// Complete moves a pending file to processed with the extracted data in
	// a single conditional update. A file that is already processed is left
	// untouched and reported with Applied false. Any other status yields
	// ErrNotPending.
	Complete(ctx context.Context, id string, cmd CompleteCommand) (*Completion, error)

	// UpdateStatus moves a file between pending and error with a conditional
	// update. Processed files are final; any other move yields
	// ErrInvalidTransition.
	UpdateStatus(ctx context.Context, id string, status Status) (*ExpenseFile, error)

	// Document opens the stored receipt file. The caller closes the reader.
	Document(ctx context.Context, id string) (*ExpenseFile, io.ReadCloser, error)

	Delete(ctx context.Context, id string) error
}

// Completer commits extracted data to a pending file.
type Completer interface {
	Complete(ctx context.Context, id string, cmd CompleteCommand) (*Completion, error)
}

// StatusUpdater records a failed extraction on a pending file.
type StatusUpdater interface {
	UpdateStatus(ctx context.Context, id string, status Status) (*ExpenseFile, error)
}

// Dispatcher queues a document for asynchronous extraction.
type Dispatcher interface {
	Dispatch(ctx context.Context, documentURL, correlationID string) error
}
