package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dukerupert/pixelquest/internal/backup"
	"github.com/dukerupert/pixelquest/internal/model"
)

const backupHistoryLimit = 20

type BackupHandler struct {
	mgr    *backup.Manager
	logger *slog.Logger
}

func NewBackupHandler(mgr *backup.Manager, logger *slog.Logger) *BackupHandler {
	return &BackupHandler{mgr: mgr, logger: logger}
}

type passphraseRequest struct {
	Passphrase string `json:"passphrase" validate:"required"`
}

func (h *BackupHandler) Run(w http.ResponseWriter, r *http.Request) {
	var req passphraseRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, h.logger, err, "run backup")
		return
	}

	rec, err := h.mgr.RunNow(r.Context(), req.Passphrase)
	if errors.Is(err, backup.ErrPassphraseRequired) {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		writeError(w, h.logger, err, "run backup")
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (h *BackupHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.mgr.List(r.Context(), backupHistoryLimit)
	if err != nil {
		writeError(w, h.logger, err, "list backups")
		return
	}
	if list == nil {
		list = []model.Backup{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  h.mgr.Status(),
		"backups": list,
	})
}

func (h *BackupHandler) Restore(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req passphraseRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, h.logger, err, "restore backup")
		return
	}

	err = h.mgr.Restore(r.Context(), id, req.Passphrase)
	if errors.Is(err, backup.ErrBackupNotFound) {
		writeMessage(w, http.StatusNotFound, err.Error())
		return
	}
	if errors.Is(err, backup.ErrDecrypt) || errors.Is(err, backup.ErrCiphertextTooSmall) {
		writeMessage(w, http.StatusBadRequest, "wrong passphrase or corrupted backup")
		return
	}
	if err != nil {
		writeError(w, h.logger, err, "restore backup")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "restored"})
}
