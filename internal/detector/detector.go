package detector

import (
	"context"

	"maskwatch/internal/model"
)

// Detector produces classified detections for one encoded image.
type Detector interface {
	Detect(ctx context.Context, imageData []byte) ([]model.Detection, error)
}

// HealthStatus is the backend's self-reported state. Informational only; it
// never gates detection.
type HealthStatus struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
	ModelPath   string `json:"model_path,omitempty"`
}
