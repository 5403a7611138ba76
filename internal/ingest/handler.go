package ingest

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/jiwoo-ai/jiwoo/internal/api"
	"github.com/jiwoo-ai/jiwoo/internal/domain"
)

type RecordRequest struct {
	Content string `json:"content" validate:"required"`
	URL     string `json:"url" validate:"omitempty,max=1024"`
}

type RecordResponse struct {
	Chunks int `json:"chunks"`
}

type Handler struct {
	loader   *Loader
	validate *validator.Validate
}

func NewHandler(loader *Loader) *Handler {
	return &Handler{loader: loader, validate: validator.New()}
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req RecordRequest
	if err := api.DecodeJSON(w, r, &req); err != nil {
		api.HandleError(w, err)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	n, err := h.loader.LoadText(r.Context(), req.Content, req.URL)
	switch {
	case errors.Is(err, ErrEmptyDocument):
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	case errors.Is(err, domain.ErrRecordTooLarge), errors.Is(err, domain.ErrDimensionMismatch):
		slog.Error("rejecting record", "error", err)
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	case err != nil:
		slog.Error("ingesting record", "error", err, "written", n)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSON(w, http.StatusCreated, RecordResponse{Chunks: n})
}
