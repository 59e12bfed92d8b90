package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"sort"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/JIVTESH28/facewatch/internal/config"
	"github.com/JIVTESH28/facewatch/internal/matcher"
)

const (
	boxBorderPx = 3
	jpegQuality = 85
)

// Tier is one display confidence band. Tiers only affect how a decision is
// drawn; accept/reject is governed solely by the matcher threshold.
type Tier struct {
	Name  string
	Min   float64
	Color color.RGBA
}

// Palette is an ordered set of tiers, highest Min first.
type Palette []Tier

// DefaultPalette covers the standard bands: high above 0.70,
// medium from 0.40, low below.
func DefaultPalette() Palette {
	return Palette{
		{Name: "high", Min: 0.70, Color: color.RGBA{R: 0x2e, G: 0xcc, B: 0x71, A: 0xff}},
		{Name: "medium", Min: 0.40, Color: color.RGBA{R: 0xf3, G: 0x9c, B: 0x12, A: 0xff}},
		{Name: "low", Min: 0.00, Color: color.RGBA{R: 0xe7, G: 0x4c, B: 0x3c, A: 0xff}},
	}
}

// PaletteFromSpecs builds a palette from configured tier specs.
// Falls back to the default palette when specs are empty or malformed.
func PaletteFromSpecs(specs []config.TierSpec) Palette {
	if len(specs) == 0 {
		return DefaultPalette()
	}

	p := make(Palette, 0, len(specs))
	for _, s := range specs {
		c, err := ParseHexColor(s.Color)
		if err != nil {
			return DefaultPalette()
		}
		p = append(p, Tier{Name: s.Name, Min: s.Min, Color: c})
	}
	sort.SliceStable(p, func(a, b int) bool { return p[a].Min > p[b].Min })
	return p
}

// ParseHexColor parses a "#rrggbb" string.
func ParseHexColor(s string) (color.RGBA, error) {
	var r, g, b uint8
	if _, err := fmt.Sscanf(s, "#%02x%02x%02x", &r, &g, &b); err != nil {
		return color.RGBA{}, fmt.Errorf("invalid hex color %q: %w", s, err)
	}
	return color.RGBA{R: r, G: g, B: b, A: 0xff}, nil
}

// HexColor formats a color as "#rrggbb".
func HexColor(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// TierFor returns the tier the score falls into. The top tier is exclusive of
// its lower boundary (a score exactly on it belongs to the tier below).
func (p Palette) TierFor(score float64) Tier {
	if len(p) == 0 {
		return Tier{Name: "low"}
	}
	if score > p[0].Min {
		return p[0]
	}
	for _, t := range p[1:] {
		if score >= t.Min {
			return t
		}
	}
	return p[len(p)-1]
}

// Annotated is a rendered frame plus its textual status.
type Annotated struct {
	Image  *image.RGBA
	Status string
	Tier   string
}

// Label formats the overlay text for a decision: the display name (or
// "Unknown") and the score to two decimals.
func Label(dec matcher.Decision) string {
	name := dec.Name
	if !dec.Matched || name == "" {
		name = "Unknown"
	}
	return fmt.Sprintf("%s %.2f", name, dec.Score)
}

// status derives the textual status shown when no box is drawn.
func status(dec matcher.Decision) string {
	switch dec.Reason {
	case matcher.ReasonNoFace:
		return "no face detected"
	case matcher.ReasonCaptureFailed:
		return "no frame this cycle"
	case matcher.ReasonEmptyGallery:
		return "gallery is empty"
	default:
		return Label(dec)
	}
}

// Annotate renders a decision onto a copy of the frame. When a bounding
// region is available it is drawn in the tier color with the label overlaid;
// otherwise the frame is returned unchanged apart from the copy, with the
// status text set. Pure: never mutates src and never fails on a decision
// without an identity.
func Annotate(src image.Image, dec matcher.Decision, bbox []float64, p Palette) Annotated {
	bounds := src.Bounds()
	dst := image.NewRGBA(bounds)
	draw.Draw(dst, bounds, src, bounds.Min, draw.Src)

	tier := p.TierFor(dec.Score)
	if len(bbox) != 4 {
		return Annotated{Image: dst, Status: status(dec), Tier: tier.Name}
	}

	rect := image.Rect(int(bbox[0]), int(bbox[1]), int(bbox[2]), int(bbox[3]))
	rect = rect.Intersect(bounds)
	drawBorder(dst, rect, tier.Color)

	label := Label(dec)
	drawLabel(dst, rect, label, tier.Color)

	return Annotated{Image: dst, Status: label, Tier: tier.Name}
}

// AnnotateJPEG decodes an encoded frame, annotates it, and re-encodes as JPEG.
func AnnotateJPEG(frame []byte, dec matcher.Decision, bbox []float64, p Palette) ([]byte, string, error) {
	img, _, err := image.Decode(bytes.NewReader(frame))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode frame: %w", err)
	}

	annotated := Annotate(img, dec, bbox, p)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, annotated.Image, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, "", fmt.Errorf("failed to encode annotated frame: %w", err)
	}
	return buf.Bytes(), annotated.Status, nil
}

// drawBorder draws a rectangle outline.
func drawBorder(dst *image.RGBA, rect image.Rectangle, c color.RGBA) {
	if rect.Empty() {
		return
	}
	fill := image.NewUniform(c)
	// Top, bottom, left, right bands.
	draw.Draw(dst, image.Rect(rect.Min.X, rect.Min.Y, rect.Max.X, rect.Min.Y+boxBorderPx), fill, image.Point{}, draw.Src)
	draw.Draw(dst, image.Rect(rect.Min.X, rect.Max.Y-boxBorderPx, rect.Max.X, rect.Max.Y), fill, image.Point{}, draw.Src)
	draw.Draw(dst, image.Rect(rect.Min.X, rect.Min.Y, rect.Min.X+boxBorderPx, rect.Max.Y), fill, image.Point{}, draw.Src)
	draw.Draw(dst, image.Rect(rect.Max.X-boxBorderPx, rect.Min.Y, rect.Max.X, rect.Max.Y), fill, image.Point{}, draw.Src)
}

// drawLabel draws the label text just above the box (or inside its top edge
// when there is no room above).
func drawLabel(dst *image.RGBA, rect image.Rectangle, label string, c color.RGBA) {
	face := basicfont.Face7x13
	y := rect.Min.Y - 4
	if y-face.Ascent < dst.Bounds().Min.Y {
		y = rect.Min.Y + face.Ascent + boxBorderPx + 2
	}

	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(rect.Min.X, y),
	}
	d.DrawString(label)
}
