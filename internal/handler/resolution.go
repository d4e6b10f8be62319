package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/pixelquest/internal/model"
	"github.com/dukerupert/pixelquest/internal/progression"
	"github.com/dukerupert/pixelquest/internal/resolution"
	"github.com/dukerupert/pixelquest/internal/session"
)

type ResolutionHandler struct {
	mgr    *resolution.Manager
	today  func() model.Date
	logger *slog.Logger
}

func NewResolutionHandler(mgr *resolution.Manager, logger *slog.Logger) *ResolutionHandler {
	return &ResolutionHandler{mgr: mgr, today: model.Today, logger: logger}
}

type resolutionRequest struct {
	Title    string `json:"title" validate:"required"`
	Category string `json:"category" validate:"omitempty,oneof=Health Coding Reading Finance Other"`
}

type toggleRequest struct {
	Date string `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

// resolutionView is a resolution plus how its card should render today.
type resolutionView struct {
	model.Resolution
	Status progression.CardStatus `json:"status"`
}

func (h *ResolutionHandler) view(r model.Resolution) resolutionView {
	return resolutionView{Resolution: r, Status: progression.ComputeStatus(r, h.today())}
}

func (h *ResolutionHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.mgr.ListFor(r.Context(), session.UserID(r.Context()))
	if err != nil {
		writeError(w, h.logger, err, "list resolutions")
		return
	}
	views := make([]resolutionView, 0, len(list))
	for _, res := range list {
		views = append(views, h.view(res))
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *ResolutionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req resolutionRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, h.logger, err, "create resolution")
		return
	}

	res, err := h.mgr.Add(r.Context(), session.UserID(r.Context()), req.Title, req.Category)
	if err != nil {
		writeError(w, h.logger, err, "create resolution")
		return
	}
	writeJSON(w, http.StatusCreated, h.view(*res))
}

func (h *ResolutionHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, h.logger, err, "update resolution")
		return
	}
	if err := h.owned(r, id); err != nil {
		writeError(w, h.logger, err, "update resolution")
		return
	}

	var req resolutionRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, h.logger, err, "update resolution")
		return
	}

	res, err := h.mgr.Update(r.Context(), id, req.Title, req.Category)
	if err != nil {
		writeError(w, h.logger, err, "update resolution")
		return
	}
	writeJSON(w, http.StatusOK, h.view(*res))
}

// Delete requires ?confirm=true since it discards the resolution's history.
func (h *ResolutionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, h.logger, err, "delete resolution")
		return
	}
	if r.URL.Query().Get("confirm") != "true" {
		writeMessage(w, http.StatusBadRequest, "deletion must be confirmed with confirm=true")
		return
	}
	if err := h.owned(r, id); err != nil {
		writeError(w, h.logger, err, "delete resolution")
		return
	}

	if err := h.mgr.Delete(r.Context(), id); err != nil {
		writeError(w, h.logger, err, "delete resolution")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// History lists the dates a resolution was completed on.
func (h *ResolutionHandler) History(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, h.logger, err, "load history")
		return
	}
	if err := h.owned(r, id); err != nil {
		writeError(w, h.logger, err, "load history")
		return
	}

	logs, err := h.mgr.History(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err, "load history")
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

// Toggle flips completion for the given date, or today when none is sent.
func (h *ResolutionHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, h.logger, err, "toggle resolution")
		return
	}

	var req toggleRequest
	if err := decodeJSON(r, &req, true); err != nil {
		writeError(w, h.logger, err, "toggle resolution")
		return
	}
	date := h.today()
	if req.Date != "" {
		date = model.Date(req.Date)
	}

	out, err := h.mgr.Toggle(r.Context(), id, session.UserID(r.Context()), date)
	if err != nil {
		writeError(w, h.logger, err, "toggle resolution")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"kind":          out.Kind,
		"resolution":    h.view(out.Resolution),
		"user":          out.User,
		"xp_awarded":    out.XPAwarded,
		"levels_gained": out.LevelsGained,
		"xp_to_next":    progression.XPToNextLevel(out.User),
	})
}

// owned reports ErrNotFound for resolutions of other users.
func (h *ResolutionHandler) owned(r *http.Request, id string) error {
	res, err := h.mgr.Get(r.Context(), id)
	if err != nil {
		return err
	}
	if res.UserID != session.UserID(r.Context()) {
		return resolution.ErrNotFound
	}
	return nil
}
