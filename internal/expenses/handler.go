package expenses

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/JaimeStill/tally/pkg/formatting"
	"github.com/JaimeStill/tally/pkg/handlers"
	"github.com/JaimeStill/tally/pkg/pagination"
	"github.com/JaimeStill/tally/pkg/routes"
)

var uploadTypes = map[string]bool{
	"application/pdf": true,
	"image/png":       true,
	"image/jpeg":      true,
	"image/gif":       true,
	"image/webp":      true,
}

const maxStatusBytes = 4 * 1024

// Handler provides HTTP endpoints for expense files.
type Handler struct {
	sys           System
	dispatch      Dispatcher
	logger        *slog.Logger
	pagination    pagination.Config
	maxUploadSize int64
}

// NewHandler creates a Handler. A nil dispatch disables queuing on upload.
func NewHandler(
	sys System,
	dispatch Dispatcher,
	logger *slog.Logger,
	pagination pagination.Config,
	maxUploadSize int64,
) *Handler {
	return &Handler{
		sys:           sys,
		dispatch:      dispatch,
		logger:        logger.With("handler", "expenses"),
		pagination:    pagination,
		maxUploadSize: maxUploadSize,
	}
}

// Routes returns the route group for expense endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix:  "/expenses",
		Tag:     "Expenses",
		Schemas: schemas,
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.List, Doc: docs.List},
			{Method: "GET", Pattern: "/{id}", Handler: h.Find, Doc: docs.Find},
			{Method: "GET", Pattern: "/{id}/document", Handler: h.Document, Doc: docs.Document},
			{Method: "POST", Pattern: "", Handler: h.Upload, Doc: docs.Upload},
			{Method: "PUT", Pattern: "/{id}/status", Handler: h.UpdateStatus, Doc: docs.UpdateStatus},
			{Method: "DELETE", Pattern: "/{id}", Handler: h.Delete, Doc: docs.Delete},
		},
	}
}

// List returns a page of a user's expense files, newest first unless a sort
// is given.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page := pagination.PageRequestFromQuery(r.URL.Query(), h.pagination)

	filters, err := FiltersFromQuery(r.URL.Query())
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	result, err := h.sys.ListByUser(r.Context(), r.URL.Query().Get("user_id"), page, filters)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	e, err := h.sys.Find(r.Context(), r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, e)
}

// Document streams the stored receipt file back to the caller.
func (h *Handler) Document(w http.ResponseWriter, r *http.Request) {
	e, body, err := h.sys.Document(r.Context(), r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", e.MimeType)
	w.Header().Set("Content-Length", strconv.FormatInt(e.SizeBytes, 10))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", e.FileName))
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, body); err != nil {
		h.logger.Warn("document stream interrupted", "id", e.ID, "error", err)
	}
}

// Upload stores a receipt from a multipart form (file, user_id), records it
// as pending, and queues it for extraction. A queuing failure is logged; the
// file stays pending and can be triggered again.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		handlers.RespondError(w, h.logger, http.StatusRequestEntityTooLarge,
			fmt.Errorf("%w: limit %s", ErrFileTooLarge, formatting.FormatBytes(h.maxUploadSize, 1)))
		return
	}

	userID := strings.TrimSpace(r.FormValue("user_id"))
	if userID == "" {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrUserRequired)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidFile)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil || len(data) == 0 {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidFile)
		return
	}

	mimeType := http.DetectContentType(data)
	if !uploadTypes[mimeType] {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidFile)
		return
	}

	var pageCount *int
	if mimeType == "application/pdf" {
		count, err := api.PageCount(bytes.NewReader(data), nil)
		if err != nil || count < 1 {
			handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidFile)
			return
		}
		pageCount = &count
	}

	e, err := h.sys.Create(r.Context(), CreateCommand{
		Data:      data,
		FileName:  header.Filename,
		MimeType:  mimeType,
		UserID:    userID,
		PageCount: pageCount,
	})
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	if h.dispatch != nil {
		if err := h.dispatch.Dispatch(r.Context(), e.DocumentURL(), e.ID); err != nil {
			h.logger.Error("extraction dispatch failed", "id", e.ID, "error", err)
		}
	}

	handlers.RespondJSON(w, http.StatusCreated, e)
}

// UpdateStatus marks a pending file as errored, or returns an errored file
// to pending and queues it again when dispatch is enabled.
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	cmd, err := handlers.DecodeJSON[StatusCommand](r, maxStatusBytes)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	status, err := ParseStatus(cmd.Status)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	e, err := h.sys.UpdateStatus(r.Context(), r.PathValue("id"), status)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	if e.Status == StatusPending && h.dispatch != nil {
		if err := h.dispatch.Dispatch(r.Context(), e.DocumentURL(), e.ID); err != nil {
			h.logger.Error("extraction dispatch failed", "id", e.ID, "error", err)
		}
	}

	handlers.RespondJSON(w, http.StatusOK, e)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.sys.Delete(r.Context(), r.PathValue("id")); err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
