package pipeline

import (
	"bytes"
	"context"
	"image"
	"time"

	_ "image/jpeg"
	_ "image/png"

	"github.com/apex/log"

	"maskwatch/internal/annotate"
	"maskwatch/internal/capture"
	"maskwatch/internal/detector"
	"maskwatch/internal/metrics"
	"maskwatch/internal/model"
	"maskwatch/internal/stats"
)

// Outcome is everything the presentation layer needs about one processed
// capture. The annotated image is rendered here and forgotten; nothing about
// the capture is kept once the outcome is delivered.
type Outcome struct {
	CaptureID   string             `json:"capture_id"`
	Filename    string             `json:"filename,omitempty"`
	Provenance  model.Provenance   `json:"provenance"`
	Detections  []model.Detection  `json:"detections"`
	Stats       stats.ClassCounts  `json:"stats"`
	Session     stats.SessionStats `json:"session"`
	Alert       bool               `json:"alert"`
	ResultImage string             `json:"result_image,omitempty"`
	Timestamp   time.Time          `json:"timestamp"`
}

// Pipeline runs one capture through detect, annotate, and accumulate. Every
// capture source funnels through here.
type Pipeline struct {
	detect  *detector.Client
	tracker *stats.Tracker
	metrics *metrics.Metrics
}

func New(detect *detector.Client, tracker *stats.Tracker, m *metrics.Metrics) *Pipeline {
	return &Pipeline{
		detect:  detect,
		tracker: tracker,
		metrics: m,
	}
}

// Tracker exposes the session aggregate this pipeline folds into.
func (p *Pipeline) Tracker() *stats.Tracker {
	return p.tracker
}

// Process runs the full detect/annotate/accumulate cycle for one capture.
// Detection never fails (synthetic fallback); annotation is skipped when the
// image bytes cannot be decoded, which upstream validation makes rare.
func (p *Pipeline) Process(ctx context.Context, snap capture.Capture, source string) *Outcome {
	result := p.detect.Detect(ctx, snap.ID, snap.Bytes)

	batch, session := p.tracker.Apply(result.Detections)

	outcome := &Outcome{
		CaptureID:  snap.ID,
		Filename:   snap.Filename,
		Provenance: result.Provenance,
		Detections: result.Detections,
		Stats:      batch,
		Session:    session,
		Alert:      batch.Alert(),
		Timestamp:  result.Timestamp,
	}
	if outcome.Detections == nil {
		outcome.Detections = []model.Detection{}
	}

	if img, _, err := image.Decode(bytes.NewReader(snap.Bytes)); err == nil {
		rendered := annotate.Annotate(img, result.Detections)
		if jpegBytes, err := annotate.EncodeJPEG(rendered); err == nil {
			outcome.ResultImage = annotate.DataURL(jpegBytes)
		} else {
			log.WithError(err).WithField("capture", snap.ID).Error("failed to encode annotated image")
		}
	} else {
		log.WithError(err).WithField("capture", snap.ID).Warn("capture not decodable, skipping annotation")
	}

	if p.metrics != nil {
		p.metrics.CapturesTotal.WithLabelValues(source).Inc()
		for _, d := range result.Detections {
			p.metrics.DetectionsTotal.WithLabelValues(string(d.Class)).Inc()
		}
		if outcome.Alert {
			p.metrics.AlertsTotal.Inc()
		}
	}

	return outcome
}
