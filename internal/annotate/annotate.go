package annotate

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"maskwatch/internal/model"
)

const (
	strokeWidth = 3
	chipPadding = 10
	chipHeight  = 25
	chipGap     = 8 // gap between chip bottom and box top
	jpegQuality = 85
)

// classColor is the exhaustive class-to-color mapping. Unknown (and any
// future class) falls through to gray.
func classColor(c model.Class) color.RGBA {
	switch c {
	case model.ClassWithMask:
		return color.RGBA{0, 200, 83, 255} // green
	case model.ClassWithoutMask:
		return color.RGBA{229, 57, 53, 255} // red
	case model.ClassIncorrectMask:
		return color.RGBA{255, 179, 0, 255} // amber
	default:
		return color.RGBA{120, 120, 120, 255} // gray
	}
}

// Annotate draws each detection, in input order, onto a copy of img: a
// stroked rectangle in the class color plus a filled label chip above the
// box. The source image is never modified. Chips for boxes near the top edge
// may extend off-canvas; that is accepted and simply clipped.
func Annotate(img image.Image, dets []model.Detection) *image.RGBA {
	bounds := img.Bounds()
	out := image.NewRGBA(bounds)
	draw.Draw(out, bounds, img, bounds.Min, draw.Src)

	face := basicfont.Face7x13

	for _, d := range dets {
		col := classColor(d.Class)
		box := image.Rect(d.Box.X, d.Box.Y, d.Box.X+d.Box.Width, d.Box.Y+d.Box.Height)

		strokeRect(out, box, col, strokeWidth)

		label := fmt.Sprintf("%s %.1f%%", d.Class.DisplayName(), d.Confidence*100)
		textWidth := font.MeasureString(face, label).Ceil()

		chip := image.Rect(
			box.Min.X,
			box.Min.Y-chipGap-chipHeight,
			box.Min.X+textWidth+chipPadding,
			box.Min.Y-chipGap,
		)
		draw.Draw(out, chip.Intersect(bounds), &image.Uniform{col}, image.Point{}, draw.Src)

		drawer := &font.Drawer{
			Dst:  out,
			Src:  image.NewUniform(color.White),
			Face: face,
			Dot: fixed.P(
				chip.Min.X+chipPadding/2,
				chip.Min.Y+(chipHeight+face.Metrics().Ascent.Ceil())/2,
			),
		}
		drawer.DrawString(label)
	}

	return out
}

// strokeRect draws the four edges of r with the given thickness, clipped to
// the destination bounds.
func strokeRect(dst *image.RGBA, r image.Rectangle, col color.RGBA, w int) {
	src := &image.Uniform{col}
	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+w), // top
		image.Rect(r.Min.X, r.Max.Y-w, r.Max.X, r.Max.Y), // bottom
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+w, r.Max.Y), // left
		image.Rect(r.Max.X-w, r.Min.Y, r.Max.X, r.Max.Y), // right
	}
	for _, e := range edges {
		draw.Draw(dst, e.Intersect(dst.Bounds()), src, image.Point{}, draw.Src)
	}
}

// Crop extracts the region of img covered by box, clipped to the image
// bounds. A box entirely outside the image yields an empty image, never an
// error. Output pixels are copied, so repeated calls with the same inputs
// are pixel-identical and independent of the source.
func Crop(img image.Image, box model.BoundingBox) image.Image {
	region := image.Rect(box.X, box.Y, box.X+box.Width, box.Y+box.Height).
		Intersect(img.Bounds())
	if region.Empty() {
		return image.NewRGBA(image.Rectangle{})
	}

	out := image.NewRGBA(image.Rect(0, 0, region.Dx(), region.Dy()))
	draw.Draw(out, out.Bounds(), img, region.Min, draw.Src)
	return out
}

// CropPadded extracts box grown by pad pixels on every side, clipped to the
// image bounds. Used for face crops so a little context survives around the
// detection.
func CropPadded(img image.Image, box model.BoundingBox, pad int) image.Image {
	return Crop(img, model.BoundingBox{
		X:      box.X - pad,
		Y:      box.Y - pad,
		Width:  box.Width + 2*pad,
		Height: box.Height + 2*pad,
	})
}

// EncodeJPEG renders img to JPEG bytes.
func EncodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// DataURL wraps JPEG bytes as a data URL for the presentation layer.
func DataURL(jpegBytes []byte) string {
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(jpegBytes)
}
