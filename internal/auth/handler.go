package auth

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/joao-fontenele/dropship-storefront/internal/domain"
)

type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

type signInRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

func (h *Handler) HandleSignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Login == "" || req.Password == "" {
		h.writeError(w, http.StatusBadRequest, "login and password are required")
		return
	}

	session, err := h.service.SignIn(r.Context(), req.Login, req.Password)
	if err != nil {
		h.handleError(w, err, "failed to sign in")
		return
	}

	h.writeJSON(w, http.StatusOK, session)
}

type inviteRequest struct {
	Email string `json:"email"`
}

func (h *Handler) HandleInvite(w http.ResponseWriter, r *http.Request) {
	var req inviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	inv, err := h.service.Invite(r.Context(), req.Email)
	if err != nil {
		h.handleError(w, err, "failed to invite staff")
		return
	}

	if claims, ok := ClaimsFromContext(r.Context()); ok {
		h.logger.Info("staff invitation issued", "invited_by", claims.StaffID, "staff_id", inv.AccountID)
	}
	h.writeJSON(w, http.StatusCreated, inv)
}

func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, ErrInvalidToken.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{
		"id":       claims.StaffID,
		"email":    claims.Email,
		"username": claims.Username,
	})
}

func (h *Handler) handleError(w http.ResponseWriter, err error, msg string) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		h.writeError(w, http.StatusBadRequest, verr.Error())
	case errors.Is(err, ErrInvalidCredentials):
		h.writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, ErrStaffExists):
		h.writeError(w, http.StatusConflict, err.Error())
	default:
		h.logger.Error(msg, "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
