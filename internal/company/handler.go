package company

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/jiwoo-ai/jiwoo/internal/api"
	"github.com/jiwoo-ai/jiwoo/internal/domain"
)

const maxLimit = 50

type CreateResponse struct {
	ID int64 `json:"id"`
}

type Handler struct {
	directory *Directory
	validate  *validator.Validate
}

func NewHandler(directory *Directory) *Handler {
	return &Handler{directory: directory, validate: validator.New()}
}

// Create handles POST /api/v1/companies.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req Company
	if err := api.DecodeJSON(w, r, &req); err != nil {
		api.HandleError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	id, err := h.directory.Insert(r.Context(), req)
	switch {
	case errors.Is(err, domain.ErrRecordTooLarge), errors.Is(err, domain.ErrDimensionMismatch):
		slog.Error("rejecting company", "error", err)
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	case err != nil:
		slog.Error("inserting company", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSON(w, http.StatusCreated, CreateResponse{ID: id})
}

// Search handles POST /api/v1/companies/search. The body is a profile;
// ?limit= overrides DefaultLimit.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	limit := DefaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxLimit {
			api.HandleError(w, api.NewBadRequestError("limit must be between 1 and 50"))
			return
		}
		limit = n
	}

	var req Info
	if err := api.DecodeJSON(w, r, &req); err != nil {
		api.HandleError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	matches, err := h.directory.Similar(r.Context(), req, limit)
	if err != nil {
		slog.Error("searching companies", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSON(w, http.StatusOK, matches)
}
