package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/pixelquest/internal/coach"
	"github.com/dukerupert/pixelquest/internal/resolution"
	"github.com/dukerupert/pixelquest/internal/session"
)

type CoachHandler struct {
	advisor *coach.Advisor
	mgr     *resolution.Manager
	logger  *slog.Logger
}

func NewCoachHandler(advisor *coach.Advisor, mgr *resolution.Manager, logger *slog.Logger) *CoachHandler {
	return &CoachHandler{advisor: advisor, mgr: mgr, logger: logger}
}

// Consult always answers 200 once the user's resolutions load; coach
// failures show up as fallback content.
func (h *CoachHandler) Consult(w http.ResponseWriter, r *http.Request) {
	u, _ := session.UserFromContext(r.Context())
	list, err := h.mgr.ListFor(r.Context(), u.ID)
	if err != nil {
		writeError(w, h.logger, err, "consult coach")
		return
	}
	writeJSON(w, http.StatusOK, h.advisor.Consult(r.Context(), u, list))
}
