package model

import (
	"fmt"
	"time"
)

// Class is the closed set of mask-wearing classifications the detector
// produces. Labels outside the set map to ClassUnknown rather than failing.
type Class string

const (
	ClassWithMask      Class = "with_mask"
	ClassWithoutMask   Class = "without_mask"
	ClassIncorrectMask Class = "mask_weared_incorrect"
	ClassUnknown       Class = "unknown"
)

// ParseClass maps a backend label into the closed class set.
func ParseClass(label string) Class {
	switch Class(label) {
	case ClassWithMask:
		return ClassWithMask
	case ClassWithoutMask:
		return ClassWithoutMask
	case ClassIncorrectMask:
		return ClassIncorrectMask
	default:
		return ClassUnknown
	}
}

// DisplayName returns the label text used on annotations, with underscores
// replaced by spaces.
func (c Class) DisplayName() string {
	switch c {
	case ClassWithMask:
		return "with mask"
	case ClassWithoutMask:
		return "without mask"
	case ClassIncorrectMask:
		return "mask weared incorrect"
	default:
		return "unknown"
	}
}

// BoundingBox locates one detection in source-image pixel space. Width and
// Height are always positive; X and Y may lie outside the image bounds, so
// consumers that extract pixels must clip first.
type BoundingBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Valid reports whether the box has positive extent on both axes.
func (b BoundingBox) Valid() bool {
	return b.Width > 0 && b.Height > 0
}

// Detection is one classified, localized region in an image. Immutable once
// produced.
type Detection struct {
	Class      Class       `json:"class"`
	Label      string      `json:"label,omitempty"` // raw backend label when Class is unknown
	Confidence float64     `json:"confidence"`
	Box        BoundingBox `json:"bbox"`
}

// Provenance records whether a result came from the real inference backend
// or from the local synthetic fallback.
type Provenance string

const (
	ProvenanceReal      Provenance = "real"
	ProvenanceSynthetic Provenance = "synthetic"
)

// Result is the output of one detection call for one capture. Annotated, when
// present, is a JPEG rendering of the source with boxes drawn on; it is
// handed to the presentation layer and then discarded.
type Result struct {
	CaptureID  string
	Provenance Provenance
	Detections []Detection
	Annotated  []byte
	Timestamp  time.Time
}

// Synthetic reports whether the result was fabricated by the fallback
// detector.
func (r *Result) Synthetic() bool {
	return r.Provenance == ProvenanceSynthetic
}

func (d Detection) String() string {
	return fmt.Sprintf("%s %.2f @ (%d,%d %dx%d)",
		d.Class, d.Confidence, d.Box.X, d.Box.Y, d.Box.Width, d.Box.Height)
}
