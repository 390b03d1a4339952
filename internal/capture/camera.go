package capture

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Source produces one still frame per call.
type Source interface {
	Snapshot(ctx context.Context) ([]byte, error)
}

// CameraSource pulls stills from an IP-camera style HTTP snapshot URL. Each
// Snapshot is one GET; acquisition failure is surfaced to the caller, never
// papered over (the synthetic fallback applies to detection, not capture).
type CameraSource struct {
	url        string
	httpClient *http.Client
}

func NewCameraSource(url string, timeout time.Duration) *CameraSource {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &CameraSource{
		url: url,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *CameraSource) Snapshot(ctx context.Context) ([]byte, error) {
	if c.url == "" {
		return nil, fmt.Errorf("no camera snapshot URL configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach camera: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("camera returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read frame: %w", err)
	}

	if sniffed := http.DetectContentType(data); !strings.HasPrefix(sniffed, "image/") {
		return nil, fmt.Errorf("camera returned %s, not an image", sniffed)
	}

	return data, nil
}
