package api

import (
	"io"
	"net/http"

	"github.com/apex/log"
	"github.com/go-chi/chi/v5"
)

// FrameHandler streams one archived monitoring frame. Only available when a
// snapshot directory is configured.
func (app *App) FrameHandler(w http.ResponseWriter, r *http.Request) {
	if app.Archive == nil {
		respondError(w, http.StatusNotFound, "Snapshot archive not enabled")
		return
	}

	name := chi.URLParam(r, "name")
	file, err := app.Archive.OpenFrame(name)
	if err != nil {
		respondError(w, http.StatusNotFound, "Frame not found")
		return
	}
	defer file.Close()

	w.Header().Set("Content-Type", "image/jpeg")
	if _, err := io.Copy(w, file); err != nil {
		log.WithError(err).WithField("frame", name).Error("failed to stream frame")
	}
}

// FrameDeleteHandler removes one archived frame.
func (app *App) FrameDeleteHandler(w http.ResponseWriter, r *http.Request) {
	if app.Archive == nil {
		respondError(w, http.StatusNotFound, "Snapshot archive not enabled")
		return
	}

	name := chi.URLParam(r, "name")
	if err := app.Archive.RemoveFrame(name); err != nil {
		respondError(w, http.StatusNotFound, "Frame not found")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
	})
}
