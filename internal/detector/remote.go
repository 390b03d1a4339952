package detector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"maskwatch/internal/model"
)

const defaultTimeout = 30 * time.Second

// RemoteDetector talks to the external inference service. One attempt per
// call, no retries; any transport, status, or payload problem is returned as
// an error for the caller to absorb.
type RemoteDetector struct {
	baseURL    string
	httpClient *http.Client
}

func NewRemoteDetector(baseURL string, timeout time.Duration) *RemoteDetector {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &RemoteDetector{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type detectionPayload struct {
	Class      string  `json:"class"`
	Confidence float64 `json:"confidence"`
	Box        struct {
		X      int `json:"x"`
		Y      int `json:"y"`
		Width  int `json:"width"`
		Height int `json:"height"`
	} `json:"bbox"`
}

type detectResponse struct {
	Success    bool               `json:"success"`
	Error      string             `json:"error"`
	Detections []detectionPayload `json:"detections"`
}

// Detect posts the image to the backend /detect endpoint and normalizes the
// response into model detections.
func (d *RemoteDetector) Detect(ctx context.Context, imageData []byte) ([]model.Detection, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("image", "capture.jpg")
	if err != nil {
		return nil, fmt.Errorf("failed to build request body: %w", err)
	}
	if _, err := part.Write(imageData); err != nil {
		return nil, fmt.Errorf("failed to build request body: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to build request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+"/detect", &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach detection service: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("detection service returned status %d", resp.StatusCode)
	}

	var parsed detectResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if !parsed.Success {
		if parsed.Error != "" {
			return nil, fmt.Errorf("detection service error: %s", parsed.Error)
		}
		return nil, fmt.Errorf("detection service reported failure")
	}

	dets := make([]model.Detection, 0, len(parsed.Detections))
	for _, p := range parsed.Detections {
		det := model.Detection{
			Class:      model.ParseClass(p.Class),
			Confidence: p.Confidence,
			Box: model.BoundingBox{
				X:      p.Box.X,
				Y:      p.Box.Y,
				Width:  p.Box.Width,
				Height: p.Box.Height,
			},
		}
		if det.Class == model.ClassUnknown {
			det.Label = p.Class
		}
		dets = append(dets, det)
	}

	return dets, nil
}

// Health probes the backend /health endpoint.
func (d *RemoteDetector) Health(ctx context.Context) (*HealthStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+"/health", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach detection service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("health probe returned status %d", resp.StatusCode)
	}

	var status HealthStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("failed to unmarshal health response: %w", err)
	}

	return &status, nil
}
