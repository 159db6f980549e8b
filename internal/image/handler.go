package image

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"

	"gallery-api/internal/auth"
	"gallery-api/internal/media"
)

const (
	maxJSONBodyBytes = 1 << 20
	maxUploadBytes   = 5 << 20
	maxNameLength    = 100
)

// Gallery is the repository surface the handler needs.
type Gallery interface {
	List(ctx context.Context) ([]APIImage, error)
	Search(ctx context.Context, substring string) ([]APIImage, error)
	UpdateName(ctx context.Context, id, name string) (int64, error)
	Create(ctx context.Context, src, name, authorID string) (Image, error)
}

// FileStore persists uploaded image bytes and returns the stored filename.
type FileStore interface {
	Save(data []byte, contentType string) (string, error)
}

type Handler struct {
	repo  Gallery
	guard *Guard
	files FileStore
}

func NewHandler(repo Gallery, guard *Guard, files FileStore) *Handler {
	return &Handler{repo: repo, guard: guard, files: files}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	images, err := h.repo.List(r.Context())
	if err != nil {
		sentry.CaptureException(err)
		writeError(w, http.StatusInternalServerError, "failed to list images")
		return
	}

	writeJSON(w, http.StatusOK, images)
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	substring := r.URL.Query().Get("substring")
	if substring == "" {
		writeError(w, http.StatusBadRequest, "substring query parameter is required")
		return
	}

	images, err := h.repo.Search(r.Context(), substring)
	if err != nil {
		sentry.CaptureException(err)
		writeError(w, http.StatusInternalServerError, "failed to search images")
		return
	}

	writeJSON(w, http.StatusOK, images)
}

type renameRequest struct {
	Name string `json:"name"`
}

func (h *Handler) Rename(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing identity")
		return
	}

	id := r.PathValue("id")
	if _, err := uuid.Parse(id); err != nil {
		writeError(w, http.StatusNotFound, "image does not exist")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
	var body renameRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	body.Name = strings.TrimSpace(body.Name)
	if body.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if len(body.Name) > maxNameLength {
		writeError(w, http.StatusUnprocessableEntity, "image name exceeds 100 characters")
		return
	}

	// Ownership is settled before the write; a denied caller never mutates.
	if err := h.guard.AuthorizeMutation(r.Context(), id, identity); err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			writeError(w, http.StatusNotFound, "image does not exist")
		case errors.Is(err, ErrForbidden):
			writeError(w, http.StatusForbidden, "only the owner may rename an image")
		default:
			sentry.CaptureException(err)
			writeError(w, http.StatusInternalServerError, "failed to rename image")
		}
		return
	}

	matched, err := h.repo.UpdateName(r.Context(), id, body.Name)
	if err != nil {
		sentry.CaptureException(err)
		writeError(w, http.StatusInternalServerError, "failed to rename image")
		return
	}
	if matched == 0 {
		writeError(w, http.StatusNotFound, "image does not exist")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing identity")
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read file")
		return
	}
	if len(data) == 0 {
		writeError(w, http.StatusBadRequest, "file is empty")
		return
	}
	if len(data) > maxUploadBytes {
		writeError(w, http.StatusBadRequest, "file is too large")
		return
	}

	contentType := strings.TrimSpace(header.Header.Get("Content-Type"))
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	name := strings.TrimSpace(r.FormValue("name"))
	if name == "" {
		name = path.Base(header.Filename)
	}
	if name == "" || name == "." {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if len(name) > maxNameLength {
		writeError(w, http.StatusUnprocessableEntity, "image name exceeds 100 characters")
		return
	}

	filename, err := h.files.Save(data, contentType)
	if err != nil {
		if errors.Is(err, media.ErrUnsupportedFormat) {
			writeError(w, http.StatusBadRequest, "unsupported image type")
			return
		}
		sentry.CaptureException(err)
		writeError(w, http.StatusInternalServerError, "failed to store image")
		return
	}

	img, err := h.repo.Create(r.Context(), "/uploads/"+filename, name, identity.Username)
	if err != nil {
		sentry.CaptureException(err)
		writeError(w, http.StatusInternalServerError, "failed to create image")
		return
	}

	writeJSON(w, http.StatusCreated, APIImage{
		ID:     img.ID,
		Src:    img.Src,
		Name:   img.Name,
		Author: Author{ID: identity.Username, Username: identity.Username},
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
