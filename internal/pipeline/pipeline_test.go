package pipeline

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"strings"
	"testing"

	"maskwatch/internal/capture"
	"maskwatch/internal/detector"
	"maskwatch/internal/model"
	"maskwatch/internal/stats"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 160, 120))); err != nil {
		t.Fatalf("encoding test image: %v", err)
	}
	return buf.Bytes()
}

type fixedDetector struct{ dets []model.Detection }

func (f fixedDetector) Detect(ctx context.Context, imageData []byte) ([]model.Detection, error) {
	return f.dets, nil
}

type failingDetector struct{}

func (failingDetector) Detect(ctx context.Context, imageData []byte) ([]model.Detection, error) {
	return nil, errors.New("backend down")
}

func TestProcessRealResult(t *testing.T) {
	dets := []model.Detection{
		{Class: model.ClassWithMask, Confidence: 0.95, Box: model.BoundingBox{X: 10, Y: 10, Width: 50, Height: 60}},
		{Class: model.ClassWithoutMask, Confidence: 0.80, Box: model.BoundingBox{X: 100, Y: 20, Width: 40, Height: 50}},
	}
	client := detector.NewClient(fixedDetector{dets: dets}, detector.NewSyntheticDetector(1), nil)
	p := New(client, stats.NewTracker(), nil)

	outcome := p.Process(context.Background(), capture.Capture{ID: "cap-1", Bytes: pngBytes(t)}, "upload")

	if outcome.Provenance != model.ProvenanceReal {
		t.Errorf("provenance = %s", outcome.Provenance)
	}
	if outcome.Stats != (stats.ClassCounts{WithMask: 1, WithoutMask: 1}) {
		t.Errorf("batch stats = %+v", outcome.Stats)
	}
	if outcome.Session.Captures != 1 {
		t.Errorf("session captures = %d", outcome.Session.Captures)
	}
	if !outcome.Alert {
		t.Error("without_mask > 0 must set the alert flag")
	}
	if !strings.HasPrefix(outcome.ResultImage, "data:image/jpeg;base64,") {
		t.Error("missing annotated result image")
	}
}

func TestProcessFallbackIsFlagged(t *testing.T) {
	client := detector.NewClient(failingDetector{}, detector.NewSyntheticDetector(2), nil)
	p := New(client, stats.NewTracker(), nil)

	outcome := p.Process(context.Background(), capture.Capture{ID: "cap-2", Bytes: pngBytes(t)}, "snapshot")

	if outcome.Provenance != model.ProvenanceSynthetic {
		t.Errorf("provenance = %s, want synthetic", outcome.Provenance)
	}
	if n := len(outcome.Detections); n < 1 || n > 4 {
		t.Errorf("got %d detections, want 1-4", n)
	}
}

func TestProcessAccumulatesAcrossCaptures(t *testing.T) {
	dets := []model.Detection{{Class: model.ClassWithMask, Confidence: 0.9, Box: model.BoundingBox{X: 1, Y: 1, Width: 10, Height: 10}}}
	client := detector.NewClient(fixedDetector{dets: dets}, detector.NewSyntheticDetector(1), nil)
	p := New(client, stats.NewTracker(), nil)

	img := pngBytes(t)
	for i := 0; i < 3; i++ {
		p.Process(context.Background(), capture.Capture{ID: "cap", Bytes: img}, "upload")
	}

	session := p.Tracker().Session()
	if session.WithMask != 3 || session.Captures != 3 {
		t.Errorf("session = %+v", session)
	}
}

func TestProcessUndecodableBytesStillCounts(t *testing.T) {
	dets := []model.Detection{{Class: model.ClassWithoutMask, Confidence: 0.6, Box: model.BoundingBox{X: 1, Y: 1, Width: 5, Height: 5}}}
	client := detector.NewClient(fixedDetector{dets: dets}, detector.NewSyntheticDetector(1), nil)
	p := New(client, stats.NewTracker(), nil)

	outcome := p.Process(context.Background(), capture.Capture{ID: "cap", Bytes: []byte("garbage")}, "upload")

	if outcome.ResultImage != "" {
		t.Error("undecodable capture must not produce a rendered image")
	}
	if outcome.Stats.WithoutMask != 1 {
		t.Errorf("stats = %+v", outcome.Stats)
	}
}
