package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dukerupert/pixelquest/internal/model"
	"github.com/dukerupert/pixelquest/internal/progression"
	"github.com/dukerupert/pixelquest/internal/session"
)

type SessionHandler struct {
	mgr    *session.Manager
	logger *slog.Logger
}

func NewSessionHandler(mgr *session.Manager, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{mgr: mgr, logger: logger}
}

type loginRequest struct {
	Username string `json:"username" validate:"required,max=64"`
}

type sessionView struct {
	User          *model.User `json:"user"`
	XPToNextLevel int         `json:"xp_to_next_level,omitempty"`
}

func newSessionView(u *model.User) sessionView {
	if u == nil {
		return sessionView{}
	}
	return sessionView{User: u, XPToNextLevel: progression.XPToNextLevel(*u)}
}

func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, h.logger, err, "log in")
		return
	}

	u, err := h.mgr.Login(r.Context(), req.Username)
	if errors.Is(err, session.ErrInvalidUsername) {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		writeError(w, h.logger, err, "log in")
		return
	}
	writeJSON(w, http.StatusOK, newSessionView(u))
}

// Current returns the logged-in user, or a null user when nobody is.
func (h *SessionHandler) Current(w http.ResponseWriter, r *http.Request) {
	u, err := h.mgr.Current(r.Context())
	if err != nil {
		writeError(w, h.logger, err, "load session")
		return
	}
	writeJSON(w, http.StatusOK, newSessionView(u))
}

func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.mgr.Logout(r.Context()); err != nil {
		writeError(w, h.logger, err, "log out")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}
