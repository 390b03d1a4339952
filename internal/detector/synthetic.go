package detector

import (
	"bytes"
	"context"
	"image"
	"math/rand"
	"sync"

	_ "image/jpeg"
	_ "image/png"

	"maskwatch/internal/model"
)

// Dimensions assumed when the image bytes cannot be decoded; the fallback
// must still fabricate something plausible.
const (
	fallbackWidth  = 640
	fallbackHeight = 480
)

// SyntheticDetector fabricates 1-4 pseudo-random detections. It stands in
// for the real backend when it is unreachable, so a demo session always has
// something to show. Results carry no relation to the image content.
type SyntheticDetector struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSyntheticDetector seeds the generator. A fixed seed makes the fallback
// deterministic for tests.
func NewSyntheticDetector(seed int64) *SyntheticDetector {
	return &SyntheticDetector{rng: rand.New(rand.NewSource(seed))}
}

var syntheticClasses = []model.Class{
	model.ClassWithMask,
	model.ClassWithoutMask,
	model.ClassIncorrectMask,
}

// Detect never fails. Boxes land in the upper-left 3/4 of the image, each
// axis sized 10-40% of the image dimension; confidence is uniform in
// [0.5, 1.0).
func (s *SyntheticDetector) Detect(_ context.Context, imageData []byte) ([]model.Detection, error) {
	width, height := fallbackWidth, fallbackHeight
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(imageData)); err == nil {
		width, height = cfg.Width, cfg.Height
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n := 1 + s.rng.Intn(4)
	dets := make([]model.Detection, 0, n)
	for i := 0; i < n; i++ {
		boxW := int(float64(width) * (0.1 + s.rng.Float64()*0.3))
		boxH := int(float64(height) * (0.1 + s.rng.Float64()*0.3))
		if boxW < 1 {
			boxW = 1
		}
		if boxH < 1 {
			boxH = 1
		}
		dets = append(dets, model.Detection{
			Class:      syntheticClasses[s.rng.Intn(len(syntheticClasses))],
			Confidence: 0.5 + s.rng.Float64()*0.5,
			Box: model.BoundingBox{
				X:      s.rng.Intn(max(1, width*3/4)),
				Y:      s.rng.Intn(max(1, height*3/4)),
				Width:  boxW,
				Height: boxH,
			},
		})
	}

	return dets, nil
}
