package expenses

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/JaimeStill/tally/pkg/pagination"
	"github.com/JaimeStill/tally/pkg/query"
	"github.com/JaimeStill/tally/pkg/repository"
	"github.com/JaimeStill/tally/pkg/storage"
)

type repo struct {
	db         *sql.DB
	storage    storage.System
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates an expense repository implementing the System interface.
func New(
	db *sql.DB,
	store storage.System,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	return &repo{
		db:         db,
		storage:    store,
		logger:     logger.With("system", "expenses"),
		pagination: pagination,
	}
}

func (r *repo) Handler(maxUploadSize int64, dispatch Dispatcher) *Handler {
	return NewHandler(r, dispatch, r.logger, r.pagination, maxUploadSize)
}

func (r *repo) Find(ctx context.Context, id string) (*ExpenseFile, error) {
	e, err := repository.QueryOne(ctx, r.db, selectByID, []any{id}, scanExpenseFile)
	if err != nil {
		return nil, repository.MapError(err, dbErrors)
	}
	return &e, nil
}

func (r *repo) ListByUser(
	ctx context.Context,
	userID string,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[ExpenseFile], error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrUserRequired
	}
	page.Normalize(r.pagination)

	b := query.NewBuilder(projection, defaultSort...).
		WhereEquals("user_id", userID).
		WhereEquals("status", filters.Status).
		WhereAtLeast("uploaded_at", filters.UploadedFrom).
		WhereBefore("uploaded_at", filters.UploadedTo).
		WhereSearch(filters.Search, searchFields...).
		OrderBy(filters.Sort)

	countSQL, countArgs, err := b.BuildCount()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFilter, err)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count expense files: %w", err)
	}

	pageSQL, pageArgs, err := b.BuildPage(page.PageSize, page.Offset())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFilter, err)
	}

	files, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanExpenseFile)
	if err != nil {
		return nil, fmt.Errorf("query expense files: %w", err)
	}

	result := pagination.NewPageResult(files, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Create(ctx context.Context, cmd CreateCommand) (*ExpenseFile, error) {
	if strings.TrimSpace(cmd.UserID) == "" {
		return nil, ErrUserRequired
	}

	id := uuid.NewString()
	key := buildStorageKey(cmd.UserID, id, sanitizeFilename(cmd.FileName))

	if err := r.storage.Upload(ctx, key, bytes.NewReader(cmd.Data), cmd.MimeType); err != nil {
		return nil, fmt.Errorf("upload expense blob: %w", err)
	}

	q := `
		INSERT INTO expense_files(id, user_id, file_name, storage_key, size_bytes, mime_type, page_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + columns

	args := []any{
		id,
		cmd.UserID,
		cmd.FileName,
		key,
		int64(len(cmd.Data)),
		cmd.MimeType,
		cmd.PageCount,
	}

	e, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (ExpenseFile, error) {
		return repository.QueryOne(ctx, tx, q, args, scanExpenseFile)
	})

	if err != nil {
		if delErr := r.storage.Delete(ctx, key); delErr != nil {
			r.logger.Warn("compensating blob delete failed", "key", key, "error", delErr)
		}
		return nil, repository.MapError(err, dbErrors)
	}

	r.logger.Info("expense file created", "id", e.ID, "user_id", e.UserID, "file_name", e.FileName)
	return &e, nil
}

func (r *repo) Complete(ctx context.Context, id string, cmd CompleteCommand) (*Completion, error) {
	items, err := encodeItems(cmd.Items)
	if err != nil {
		return nil, err
	}

	update := `
		UPDATE expense_files SET
			status = 'processed',
			file_display_name = COALESCE($2, file_display_name),
			merchant_name = $3,
			merchant_address = $4,
			merchant_contact = $5,
			transaction_date = $6,
			transaction_amount = $7,
			currency = $8,
			expense_file_summary = $9,
			items = $10::jsonb,
			processed_at = NOW(),
			updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
		RETURNING ` + columns

	args := []any{
		id,
		cmd.FileDisplayName,
		cmd.MerchantName,
		cmd.MerchantAddress,
		cmd.MerchantContact,
		cmd.TransactionDate,
		cmd.TransactionAmount,
		cmd.Currency,
		cmd.Summary,
		items,
	}

	guard := repository.Guarded[ExpenseFile]{
		Update:      update,
		Args:        args,
		Current:     selectByID,
		CurrentArgs: []any{id},
		Scan:        scanExpenseFile,
		Rejected: func(current ExpenseFile) error {
			if current.Status != StatusProcessed {
				return fmt.Errorf("%w: %s is %s", ErrNotPending, id, current.Status)
			}
			return nil
		},
	}

	completion, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (*Completion, error) {
		e, applied, err := guard.Exec(ctx, tx)
		if err != nil {
			return nil, err
		}
		return &Completion{Applied: applied, File: &e}, nil
	})

	if err != nil {
		return nil, repository.MapError(err, dbErrors)
	}

	if completion.Applied {
		r.logger.Info("expense file processed", "id", id, "merchant", cmd.MerchantName)
	} else {
		r.logger.Info("expense file already processed", "id", id)
	}
	return completion, nil
}

func (r *repo) UpdateStatus(ctx context.Context, id string, status Status) (*ExpenseFile, error) {
	from, ok := transitions[status]
	if !ok {
		return nil, fmt.Errorf("%w: cannot move a file to %s", ErrInvalidTransition, status)
	}

	update := `
		UPDATE expense_files SET
			status = $2,
			updated_at = NOW()
		WHERE id = $1 AND status = $3
		RETURNING ` + columns

	guard := repository.Guarded[ExpenseFile]{
		Update:      update,
		Args:        []any{id, string(status), string(from)},
		Current:     selectByID,
		CurrentArgs: []any{id},
		Scan:        scanExpenseFile,
		Rejected: func(current ExpenseFile) error {
			return fmt.Errorf("%w: %s is %s, not %s", ErrInvalidTransition, id, current.Status, from)
		},
	}

	e, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (ExpenseFile, error) {
		e, _, err := guard.Exec(ctx, tx)
		return e, err
	})

	if err != nil {
		return nil, repository.MapError(err, dbErrors)
	}

	r.logger.Info("expense file status updated", "id", id, "from", from, "to", status)
	return &e, nil
}

func (r *repo) Document(ctx context.Context, id string) (*ExpenseFile, io.ReadCloser, error) {
	e, err := r.Find(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	body, err := r.storage.Download(ctx, e.StorageKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil, fmt.Errorf("%w: document %s missing from storage", ErrNotFound, e.StorageKey)
		}
		return nil, nil, err
	}

	return e, body, nil
}

func (r *repo) Delete(ctx context.Context, id string) error {
	e, err := r.Find(ctx, id)
	if err != nil {
		return err
	}

	_, err = repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		return struct{}{}, repository.ExecExpectOne(ctx, tx, "DELETE FROM expense_files WHERE id = $1", id)
	})
	if err != nil {
		return repository.MapError(err, dbErrors)
	}

	if delErr := r.storage.Delete(ctx, e.StorageKey); delErr != nil && !errors.Is(delErr, storage.ErrNotFound) {
		r.logger.Warn("blob delete failed after row delete", "key", e.StorageKey, "error", delErr)
	}

	r.logger.Info("expense file deleted", "id", id)
	return nil
}

func buildStorageKey(userID, id, filename string) string {
	return fmt.Sprintf("expenses/%s/%s/%s", url.PathEscape(userID), id, filename)
}

func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	if name == "." || name == "/" || name == "" {
		name = "receipt"
	}
	return url.PathEscape(name)
}
