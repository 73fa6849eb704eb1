package server

import (
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/dhowden/tag"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tunecrate/tunecrate/server/store"
)

var validCategories = map[string]bool{
	"artist": true,
	"genre":  true,
	"album":  true,
}

type Handler struct {
	db       *store.DB
	mediaDir string

	maxUploadBytes int64
}

func NewHandler(db *store.DB, mediaDir string, maxUploadBytes int64) *Handler {
	return &Handler{db: db, mediaDir: mediaDir, maxUploadBytes: maxUploadBytes}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/songs", h.ListSongs)
		r.Post("/songs", h.CreateSong)
		r.Put("/songs/{id}", h.UpdateSong)
		r.Delete("/songs/{id}", h.DeleteSong)

		r.Get("/lookups", h.ListLookups)
		r.Post("/lookups", h.CreateLookup)
		r.Put("/lookups/{id}", h.UpdateLookup)
		r.Delete("/lookups/{id}", h.DeleteLookup)

		r.Get("/stats", h.GetStats)
	})
}

func (h *Handler) ListSongs(w http.ResponseWriter, r *http.Request) {
	songs, err := h.db.ListSongs()
	if err != nil {
		h.serverError(w, "listing songs", err)
		return
	}
	writeJSON(w, http.StatusOK, songs)
}

func (h *Handler) CreateSong(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	song := &store.Song{
		ID:     uuid.NewString(),
		Title:  r.FormValue("title"),
		Artist: r.FormValue("artist"),
		Genre:  r.FormValue("genre"),
		Album:  r.FormValue("album"),
	}

	audioPath, err := h.saveUpload(r, "audio", song.ID)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if audioPath == "" {
		writeError(w, http.StatusBadRequest, "audio file is required")
		return
	}
	song.AudioURL = audioPath

	imagePath, err := h.saveUpload(r, "image", song.ID)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if imagePath == "" {
		writeError(w, http.StatusBadRequest, "image file is required")
		return
	}
	song.ImageURL = imagePath

	h.fillFromAudioTags(song)

	if song.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}

	if err := h.db.CreateSong(song); err != nil {
		h.serverError(w, "creating song", err)
		return
	}
	writeJSON(w, http.StatusCreated, song)
}

func (h *Handler) UpdateSong(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	song, err := h.db.GetSongByID(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "song not found")
		} else {
			h.serverError(w, "loading song", err)
		}
		return
	}

	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	// partial update: fields absent from the form keep their stored value
	if v, ok := formField(r, "title"); ok {
		song.Title = v
	}
	if v, ok := formField(r, "artist"); ok {
		song.Artist = v
	}
	if v, ok := formField(r, "genre"); ok {
		song.Genre = v
	}
	if v, ok := formField(r, "album"); ok {
		song.Album = v
	}
	if song.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}

	// replacement uploads are optional; existing files are kept
	if p, err := h.saveUpload(r, "audio", song.ID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	} else if p != "" {
		song.AudioURL = p
	}
	if p, err := h.saveUpload(r, "image", song.ID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	} else if p != "" {
		song.ImageURL = p
	}

	if err := h.db.UpdateSong(song); err != nil {
		h.serverError(w, "updating song", err)
		return
	}
	writeJSON(w, http.StatusOK, song)
}

func (h *Handler) DeleteSong(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	song, err := h.db.GetSongByID(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "song not found")
		} else {
			h.serverError(w, "loading song", err)
		}
		return
	}

	if err := h.db.DeleteSong(id); err != nil {
		h.serverError(w, "deleting song", err)
		return
	}
	h.removeMediaFile(song.AudioURL)
	h.removeMediaFile(song.ImageURL)

	writeJSON(w, http.StatusOK, map[string]string{"id": id})
}

func (h *Handler) ListLookups(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	if category != "" && !validCategories[category] {
		writeError(w, http.StatusBadRequest, "unknown lookup category")
		return
	}
	lookups, err := h.db.ListLookups(category)
	if err != nil {
		h.serverError(w, "listing lookups", err)
		return
	}
	writeJSON(w, http.StatusOK, lookups)
}

type lookupRequest struct {
	Category string `json:"category"`
	Value    string `json:"value"`
}

func (r lookupRequest) validate() string {
	if !validCategories[r.Category] {
		return "unknown lookup category"
	}
	if strings.TrimSpace(r.Value) == "" {
		return "value is required"
	}
	return ""
}

func (h *Handler) CreateLookup(w http.ResponseWriter, r *http.Request) {
	var req lookupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	lookup := &store.Lookup{
		ID:       uuid.NewString(),
		Category: req.Category,
		Value:    strings.TrimSpace(req.Value),
	}
	if err := h.db.CreateLookup(lookup); err != nil {
		h.serverError(w, "creating lookup", err)
		return
	}
	writeJSON(w, http.StatusCreated, lookup)
}

func (h *Handler) UpdateLookup(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req lookupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	lookup, err := h.db.GetLookupByID(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "lookup not found")
		} else {
			h.serverError(w, "loading lookup", err)
		}
		return
	}

	lookup.Category = req.Category
	lookup.Value = strings.TrimSpace(req.Value)
	if err := h.db.UpdateLookup(lookup); err != nil {
		h.serverError(w, "updating lookup", err)
		return
	}
	writeJSON(w, http.StatusOK, lookup)
}

func (h *Handler) DeleteLookup(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.db.DeleteLookup(id); err != nil {
		writeError(w, http.StatusNotFound, "lookup not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id})
}

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.db.GetStats()
	if err != nil {
		h.serverError(w, "aggregating stats", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// formField reports whether the parsed multipart form carried the
// named field, distinguishing an absent field from an empty value.
func formField(r *http.Request, name string) (string, bool) {
	if r.MultipartForm == nil {
		return "", false
	}
	vals, ok := r.MultipartForm.Value[name]
	if !ok || len(vals) == 0 {
		return "", false
	}
	return vals[0], true
}

// saveUpload writes the named multipart file into the media dir and
// returns its public /media/ path, or "" if the field was not sent.
func (h *Handler) saveUpload(r *http.Request, field, songID string) (string, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return "", nil
		}
		return "", errors.New("invalid " + field + " upload")
	}
	defer file.Close()

	ext := filepath.Ext(header.Filename)
	name := songID + "-" + field + ext
	dst, err := os.Create(filepath.Join(h.mediaDir, name))
	if err != nil {
		return "", errors.New("failed to store " + field + " file")
	}
	defer dst.Close()
	if _, err := io.Copy(dst, file); err != nil {
		return "", errors.New("failed to store " + field + " file")
	}
	return "/media/" + name, nil
}

// fillFromAudioTags defaults empty song metadata from the uploaded
// audio file's embedded tags.
func (h *Handler) fillFromAudioTags(song *store.Song) {
	if song.Title != "" && song.Artist != "" && song.Album != "" && song.Genre != "" {
		return
	}
	f, err := os.Open(h.mediaFilePath(song.AudioURL))
	if err != nil {
		return
	}
	defer f.Close()
	meta, err := tag.ReadFrom(f)
	if err != nil {
		return
	}
	if song.Title == "" {
		song.Title = meta.Title()
	}
	if song.Artist == "" {
		song.Artist = meta.Artist()
	}
	if song.Album == "" {
		song.Album = meta.Album()
	}
	if song.Genre == "" {
		song.Genre = meta.Genre()
	}
}

func (h *Handler) mediaFilePath(publicPath string) string {
	return filepath.Join(h.mediaDir, strings.TrimPrefix(publicPath, "/media/"))
}

func (h *Handler) removeMediaFile(publicPath string) {
	if publicPath == "" {
		return
	}
	if err := os.Remove(h.mediaFilePath(publicPath)); err != nil && !os.IsNotExist(err) {
		Logger().Warn("failed to remove media file", zap.String("path", publicPath), zap.Error(err))
	}
}

func (h *Handler) serverError(w http.ResponseWriter, op string, err error) {
	Logger().Error("request failed", zap.String("op", op), zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal server error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		Logger().Error("failed to encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
