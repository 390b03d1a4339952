package detector

import (
	"context"
	"time"

	"github.com/apex/log"

	"maskwatch/internal/metrics"
	"maskwatch/internal/model"
)

// Client is the detection entry point the rest of the service uses. It makes
// at most one real attempt per capture; any backend failure is absorbed by
// the synthetic fallback, so Detect never fails. Every result carries a
// provenance flag so callers can tell the two apart.
type Client struct {
	remote    Detector
	synthetic *SyntheticDetector
	metrics   *metrics.Metrics
}

// NewClient wires the remote detector and fallback together. remote may be
// nil, in which case every call is served synthetically. m may be nil in
// tests.
func NewClient(remote Detector, synthetic *SyntheticDetector, m *metrics.Metrics) *Client {
	return &Client{
		remote:    remote,
		synthetic: synthetic,
		metrics:   m,
	}
}

// Detect runs one detection for one capture. On backend failure the
// synthetic fallback is used and the result is flagged ProvenanceSynthetic.
func (c *Client) Detect(ctx context.Context, captureID string, imageData []byte) *model.Result {
	result := &model.Result{
		CaptureID: captureID,
		Timestamp: time.Now(),
	}

	if c.remote != nil {
		dets, err := c.remote.Detect(ctx, imageData)
		if err == nil {
			result.Provenance = model.ProvenanceReal
			result.Detections = dets
			return result
		}
		log.WithError(err).WithField("capture", captureID).
			Warn("detection backend failed, using synthetic fallback")
	}

	dets, _ := c.synthetic.Detect(ctx, imageData)
	result.Provenance = model.ProvenanceSynthetic
	result.Detections = dets

	if c.metrics != nil {
		c.metrics.FallbacksTotal.Inc()
	}
	return result
}

// Health reports the backend's status, or an error when no backend is
// configured or reachable. Never gates detection.
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	probe, ok := c.remote.(interface {
		Health(ctx context.Context) (*HealthStatus, error)
	})
	if !ok || c.remote == nil {
		return &HealthStatus{Status: "degraded", ModelLoaded: false}, nil
	}
	return probe.Health(ctx)
}
