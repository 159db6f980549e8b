package maintenance

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"gallery-api/internal/media"
	"gallery-api/internal/observability"
)

// SrcLister exposes the set of upload srcs still referenced by image rows.
type SrcLister interface {
	ReferencedSrcs(ctx context.Context) (map[string]struct{}, error)
}

// CleanupHandler removes upload files that no image row references anymore.
// The endpoint is invisible (404) unless a cron secret is configured, and
// callers must present that secret as a bearer token.
type CleanupHandler struct {
	images     SrcLister
	files      *media.DiskStore
	logger     *observability.Logger
	cronSecret string
	retention  time.Duration
}

func NewCleanupHandler(
	images SrcLister,
	files *media.DiskStore,
	logger *observability.Logger,
	cronSecret string,
	retention time.Duration,
) *CleanupHandler {
	if retention <= 0 {
		retention = 14 * 24 * time.Hour
	}
	return &CleanupHandler{
		images:     images,
		files:      files,
		logger:     logger,
		cronSecret: strings.TrimSpace(cronSecret),
		retention:  retention,
	}
}

func (h *CleanupHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if h.cronSecret == "" {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}

	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) != h.cronSecret {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	referenced, err := h.images.ReferencedSrcs(r.Context())
	if err != nil {
		h.logger.Error("upload_cleanup_failed", map[string]any{"error": err.Error()})
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "cleanup failed"})
		return
	}

	cutoff := time.Now().UTC().Add(-h.retention)
	removed, err := h.files.Sweep(referenced, cutoff)
	if err != nil {
		h.logger.Error("upload_cleanup_failed", map[string]any{
			"error":   err.Error(),
			"removed": removed,
		})
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "cleanup failed"})
		return
	}

	h.logger.Info("upload_cleanup_completed", map[string]any{"removed_files": removed})

	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"removed_files": removed,
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
