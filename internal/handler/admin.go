package handler

import (
	"context"
	"net/http"

	"github.com/sakif/chatkeeper/internal/apperror"
)

// Backuper snapshots the live database into a file at the given path.
type Backuper interface {
	Backup(ctx context.Context, target string) error
}

// AdminHandler holds operator-only maintenance endpoints.
type AdminHandler struct {
	db Backuper
}

func NewAdminHandler(db Backuper) *AdminHandler {
	return &AdminHandler{db: db}
}

type backupRequest struct {
	Target string `json:"target"`
}

type backupResponse struct {
	Target string `json:"target"`
}

func (h *AdminHandler) Backup(w http.ResponseWriter, r *http.Request) {
	var req backupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Target == "" {
		writeError(w, apperror.ValidationFailed("target", "target path is required"))
		return
	}

	if err := h.db.Backup(r.Context(), req.Target); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, backupResponse{Target: req.Target})
}
