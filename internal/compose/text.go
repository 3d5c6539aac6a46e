package compose

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// Align is horizontal text alignment within a box.
type Align int

const (
	AlignStart Align = iota
	AlignMiddle
	AlignEnd
)

// Weight selects the font face.
type Weight int

const (
	WeightRegular Weight = iota
	WeightBold
)

// textDPI makes one point equal one pixel.
const textDPI = 72

// TextStyle describes how a Text leaf is drawn.
type TextStyle struct {
	// Size is the font size in points.
	Size   float64
	Weight Weight
	Align  Align
	Color  color.Color

	// Stroke, if set, outlines the glyphs StrokeWidth pixels wide.
	Stroke      color.Color
	StrokeWidth int
}

var loadFonts = sync.OnceValues(func() (map[Weight]*opentype.Font, error) {
	fonts := make(map[Weight]*opentype.Font, 2)
	for w, ttf := range map[Weight][]byte{WeightRegular: goregular.TTF, WeightBold: gobold.TTF} {
		f, err := opentype.Parse(ttf)
		if err != nil {
			return nil, fmt.Errorf("parse font: %w", err)
		}
		fonts[w] = f
	}
	return fonts, nil
})

// newFace returns a face for style. Faces are not safe for concurrent use,
// so each render gets its own.
func newFace(style TextStyle) (font.Face, error) {
	fonts, err := loadFonts()
	if err != nil {
		return nil, err
	}
	f, ok := fonts[style.Weight]
	if !ok {
		return nil, fmt.Errorf("unknown font weight %d", style.Weight)
	}
	if style.Size <= 0 {
		return nil, fmt.Errorf("font size must be positive, got %v", style.Size)
	}
	return opentype.NewFace(f, &opentype.FaceOptions{
		Size:    style.Size,
		DPI:     textDPI,
		Hinting: font.HintingFull,
	})
}

// Text is a single line of text in a fixed box. Its size is always the box,
// whatever the glyphs measure.
type Text struct {
	pos     Position
	box     Size
	content string
	style   TextStyle
}

// NewText creates a text leaf.
func NewText(pos Position, box Size, content string, style TextStyle) *Text {
	if style.Color == nil {
		style.Color = color.White
	}
	return &Text{pos: pos, box: box, content: content, style: style}
}

func (t *Text) Position() Position { return t.pos }

func (t *Text) Size(context.Context) (Size, error) { return t.box, nil }

// Render draws the text aligned horizontally and centered vertically in the
// box. Glyphs that overflow the box are clipped.
func (t *Text) Render(ctx context.Context) (*image.RGBA, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	face, err := newFace(t.style)
	if err != nil {
		return nil, fmt.Errorf("render text %q: %w", t.content, err)
	}
	defer face.Close()

	dst := image.NewRGBA(image.Rect(0, 0, t.box.W, t.box.H))

	width := font.MeasureString(face, t.content)
	var x fixed.Int26_6
	switch t.style.Align {
	case AlignMiddle:
		x = (fixed.I(t.box.W) - width) / 2
	case AlignEnd:
		x = fixed.I(t.box.W) - width
	}

	m := face.Metrics()
	y := (fixed.I(t.box.H)-m.Ascent-m.Descent)/2 + m.Ascent
	dot := fixed.Point26_6{X: x, Y: y}

	d := &font.Drawer{Dst: dst, Face: face}
	if t.style.Stroke != nil && t.style.StrokeWidth > 0 {
		d.Src = image.NewUniform(t.style.Stroke)
		r := t.style.StrokeWidth
		for dy := -r; dy <= r; dy++ {
			for dx := -r; dx <= r; dx++ {
				if dx*dx+dy*dy > r*r || (dx == 0 && dy == 0) {
					continue
				}
				d.Dot = dot.Add(fixed.P(dx, dy))
				d.DrawString(t.content)
			}
		}
	}

	d.Src = image.NewUniform(t.style.Color)
	d.Dot = dot
	d.DrawString(t.content)
	return dst, nil
}

// MeasureText returns the advance width and line height content would take
// in style. It measures with the same faces Text renders with, but glyph
// overhang and stroke are not included.
func MeasureText(content string, style TextStyle) (Size, error) {
	face, err := newFace(style)
	if err != nil {
		return Size{}, err
	}
	defer face.Close()

	m := face.Metrics()
	return Size{
		W: font.MeasureString(face, content).Ceil(),
		H: (m.Ascent + m.Descent).Ceil(),
	}, nil
}
