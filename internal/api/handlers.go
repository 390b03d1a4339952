package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"io"
	"net/http"
	"time"

	_ "image/jpeg"
	_ "image/png"

	"github.com/apex/log"
	"github.com/google/uuid"

	"maskwatch/internal/annotate"
	"maskwatch/internal/capture"
	"maskwatch/internal/detector"
	"maskwatch/internal/metrics"
	"maskwatch/internal/model"
	"maskwatch/internal/monitor"
	"maskwatch/internal/pipeline"
	"maskwatch/internal/storage"
	"maskwatch/internal/ws"
)

const (
	uploadField = "images"
	singleField = "image"
	cropPadding = 20
	healthProbe = 3 * time.Second
)

// App bundles the wired components the handlers need.
type App struct {
	Pipeline        *pipeline.Pipeline
	Detect          *detector.Client
	Camera          capture.Source
	Gate            *capture.Gate
	Monitor         *monitor.Scheduler
	Hub             *ws.Hub
	Metrics         *metrics.Metrics
	Archive         storage.Archive // optional
	MaxUploadSize   int64
	MonitorInterval int
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.WithError(err).Error("failed to write response")
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]interface{}{
		"success": false,
		"error":   message,
	})
}

// parseUploadForm caps and parses the multipart body, writing the error
// response itself on failure. Oversize bodies get a 413, anything else that
// fails to parse a 400.
func (app *App) parseUploadForm(w http.ResponseWriter, r *http.Request) bool {
	r.Body = http.MaxBytesReader(w, r.Body, app.MaxUploadSize)
	if err := r.ParseMultipartForm(app.MaxUploadSize); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respondError(w, http.StatusRequestEntityTooLarge, "File too large. Please upload a smaller image.")
		} else {
			respondError(w, http.StatusBadRequest, "Invalid multipart request")
		}
		return false
	}
	return true
}

// DetectHandler runs a batch of uploaded images through the pipeline. Bad
// files are skipped with per-file errors; the rest of the batch proceeds.
func (app *App) DetectHandler(w http.ResponseWriter, r *http.Request) {
	if !app.parseUploadForm(w, r) {
		return
	}

	captures, fileErrs := capture.ReadMultipartImages(r, uploadField)
	if len(captures) == 0 && len(fileErrs) == 0 {
		// Single-file clients use the "image" field.
		captures, fileErrs = capture.ReadMultipartImages(r, singleField)
	}
	if len(captures) == 0 && len(fileErrs) == 0 {
		respondError(w, http.StatusBadRequest, "No image provided")
		return
	}

	if app.Metrics != nil && len(fileErrs) > 0 {
		app.Metrics.SkippedFiles.Add(float64(len(fileErrs)))
	}

	results := make([]*pipeline.Outcome, 0, len(captures))
	alert := false
	for _, c := range captures {
		outcome := app.Pipeline.Process(r.Context(), c, "upload")
		alert = alert || outcome.Alert
		results = append(results, outcome)
	}

	if fileErrs == nil {
		fileErrs = []capture.FileError{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"results": results,
		"errors":  fileErrs,
		"session": app.Pipeline.Tracker().Session(),
		"alert":   alert,
	})
}

type facePayload struct {
	ID         int               `json:"id"`
	Class      string            `json:"class"`
	Confidence float64           `json:"confidence"`
	Image      string            `json:"image"`
	Box        model.BoundingBox `json:"bbox"`
}

// CropFacesHandler detects faces in one uploaded image and returns each as
// a padded crop. Crops do not touch session statistics.
func (app *App) CropFacesHandler(w http.ResponseWriter, r *http.Request) {
	if !app.parseUploadForm(w, r) {
		return
	}

	captures, fileErrs := capture.ReadMultipartImages(r, singleField)
	if len(captures) == 0 {
		if len(fileErrs) > 0 {
			respondError(w, http.StatusBadRequest, fileErrs[0].Reason)
			return
		}
		respondError(w, http.StatusBadRequest, "No image provided")
		return
	}
	snap := captures[0]

	img, _, err := image.Decode(bytes.NewReader(snap.Bytes))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid image data")
		return
	}

	result := app.Detect.Detect(r.Context(), snap.ID, snap.Bytes)

	faces := make([]facePayload, 0, len(result.Detections))
	for i, d := range result.Detections {
		crop := annotate.CropPadded(img, d.Box, cropPadding)
		jpegBytes, err := annotate.EncodeJPEG(crop)
		if err != nil {
			log.WithError(err).WithField("capture", snap.ID).Error("failed to encode face crop")
			continue
		}
		faces = append(faces, facePayload{
			ID:         i,
			Class:      string(d.Class),
			Confidence: d.Confidence,
			Image:      annotate.DataURL(jpegBytes),
			Box:        d.Box,
		})
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"provenance":  result.Provenance,
		"faces":       faces,
		"total_faces": len(faces),
	})
}

// SnapshotHandler captures one frame from the camera on explicit trigger
// and runs it through the pipeline. Taking a manual snapshot evicts the
// monitor from the camera if it holds it.
func (app *App) SnapshotHandler(w http.ResponseWriter, r *http.Request) {
	app.Gate.Acquire("camera", nil)
	defer app.Gate.Release("camera")

	frame, err := app.Camera.Snapshot(r.Context())
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "Camera unavailable: "+err.Error())
		return
	}

	snap := capture.Capture{ID: uuid.New().String(), Bytes: frame}
	outcome := app.Pipeline.Process(r.Context(), snap, "snapshot")

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"result":  outcome,
		"session": app.Pipeline.Tracker().Session(),
		"alert":   outcome.Alert,
	})
}

// StatsHandler reports the cumulative session statistics.
func (app *App) StatsHandler(w http.ResponseWriter, r *http.Request) {
	session := app.Pipeline.Tracker().Session()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"session":    session,
		"alert":      session.Alert(),
		"started_at": app.Pipeline.Tracker().StartedAt().Format(time.RFC3339),
	})
}

// HealthHandler reports service health plus the backend's model status. The
// probe is informational; a dead backend never fails this endpoint.
func (app *App) HealthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthProbe)
	defer cancel()

	modelLoaded := false
	backendStatus := "unreachable"
	if status, err := app.Detect.Health(ctx); err == nil {
		modelLoaded = status.ModelLoaded
		backendStatus = status.Status
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":       "healthy",
		"model_loaded": modelLoaded,
		"backend":      backendStatus,
	})
}

// MonitorStartHandler starts scheduled monitoring.
func (app *App) MonitorStartHandler(w http.ResponseWriter, r *http.Request) {
	interval := app.MonitorInterval
	var body struct {
		IntervalSeconds int `json:"interval_seconds"`
	}
	// An empty body means "use the configured default"; a body that fails
	// to decode is a client mistake and must not be masked.
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if body.IntervalSeconds != 0 {
		interval = body.IntervalSeconds
	}

	if interval <= 0 {
		respondError(w, http.StatusBadRequest, "interval_seconds must be positive")
		return
	}

	if err := app.Monitor.Start(interval); err != nil {
		status := http.StatusServiceUnavailable // camera acquisition failed
		if errors.Is(err, monitor.ErrAlreadyActive) {
			status = http.StatusConflict
		}
		respondError(w, status, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"status":  app.Monitor.Status(),
	})
}

// MonitorStopHandler stops scheduled monitoring; stopping an already
// stopped monitor succeeds.
func (app *App) MonitorStopHandler(w http.ResponseWriter, r *http.Request) {
	app.Monitor.Stop()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"status":  app.Monitor.Status(),
	})
}

// MonitorStatusHandler reports the scheduler snapshot.
func (app *App) MonitorStatusHandler(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"status":  app.Monitor.Status(),
	})
}
