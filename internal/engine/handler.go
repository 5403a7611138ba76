package engine

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/jiwoo-ai/jiwoo/internal/api"
	"github.com/jiwoo-ai/jiwoo/internal/domain"
)

const SessionHeader = "X-Session-ID"

type ChatRequest struct {
	SessionID string `json:"session_id" validate:"omitempty,max=128,printascii"`
	Message   string `json:"message" validate:"max=4000"`
}

type MemoryResponse struct {
	SessionID string                    `json:"session_id"`
	Turns     []domain.ConversationTurn `json:"turns"`
	Summary   string                    `json:"summary"`
}

type Handler struct {
	engine   *Engine
	validate *validator.Validate
}

func NewHandler(e *Engine) *Handler {
	return &Handler{engine: e, validate: validator.New()}
}

func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := api.DecodeJSON(w, r, &req); err != nil {
		api.HandleError(w, err)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	resp := h.engine.Answer(r.Context(), req.SessionID, req.Message)

	w.Header().Set(SessionHeader, req.SessionID)
	api.JSON(w, http.StatusOK, resp)
}

func (h *Handler) GetMemory(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	turns, err := h.engine.Memory.Turns(r.Context(), sessionID)
	if err != nil {
		slog.Error("reading session turns", "error", err, "session_id", sessionID)
		api.HandleError(w, api.ErrInternalServer)
		return
	}
	summary, err := h.engine.Memory.Summary(r.Context(), sessionID)
	if err != nil {
		slog.Error("reading session summary", "error", err, "session_id", sessionID)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	if turns == nil {
		turns = []domain.ConversationTurn{}
	}
	api.JSON(w, http.StatusOK, MemoryResponse{SessionID: sessionID, Turns: turns, Summary: summary})
}

func (h *Handler) ClearMemory(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	if err := h.engine.ClearSession(r.Context(), sessionID); err != nil {
		slog.Error("clearing session", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
