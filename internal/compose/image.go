package compose

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"math"
	"sync"

	// Decoders for DecodeImage.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// ErrInvalidResize is returned when a resize target is not a positive size.
var ErrInvalidResize = errors.New("invalid resize target")

// Dimension is a resize target for one axis. The zero value, like
// Absolute(0) or Scale(0), keeps the axis proportional to the other one.
type Dimension struct {
	px    int
	scale float64
}

// Absolute resizes an axis to exactly n pixels.
func Absolute(n int) Dimension { return Dimension{px: n} }

// Scale resizes an axis by factor f relative to its current size.
func Scale(f float64) Dimension { return Dimension{scale: f} }

// Auto keeps an axis in proportion to the other.
var Auto = Dimension{}

func (d Dimension) auto() bool { return d.px == 0 && d.scale == 0 }

func (d Dimension) apply(current int) int {
	if d.px != 0 {
		return d.px
	}
	return int(math.Round(float64(current) * d.scale))
}

// Image is a raster leaf.
type Image struct {
	pos  Position
	src  image.Image
	size Size

	mu sync.Mutex
	// rendered caches Render's output until the next Resize.
	rendered *image.RGBA
}

// NewImage wraps src at pos.
func NewImage(pos Position, src image.Image) *Image {
	b := src.Bounds()
	return &Image{pos: pos, src: src, size: Size{W: b.Dx(), H: b.Dy()}}
}

// DecodeImage decodes PNG, JPEG, GIF or WebP data into an Image at pos.
func DecodeImage(pos Position, data []byte) (*Image, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return NewImage(pos, src), nil
}

// Resize scales the image. Either axis may be Auto, in which case the
// aspect ratio is kept; both Auto leaves the image untouched. The new size is
// taken from the scaled output, so rounding is what later layout sees.
func (i *Image) Resize(w, h Dimension) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if w.auto() && h.auto() {
		return nil
	}

	var tw, th int
	switch {
	case w.auto():
		th = h.apply(i.size.H)
		tw = int(math.Round(float64(i.size.W) * float64(th) / float64(i.size.H)))
	case h.auto():
		tw = w.apply(i.size.W)
		th = int(math.Round(float64(i.size.H) * float64(tw) / float64(i.size.W)))
	default:
		tw, th = w.apply(i.size.W), h.apply(i.size.H)
	}
	if tw <= 0 || th <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidResize, tw, th)
	}

	dst := image.NewRGBA(image.Rect(0, 0, tw, th))
	draw.CatmullRom.Scale(dst, dst.Bounds(), i.src, i.src.Bounds(), draw.Src, nil)

	b := dst.Bounds()
	i.src = dst
	i.size = Size{W: b.Dx(), H: b.Dy()}
	i.rendered = nil
	return nil
}

func (i *Image) Position() Position { return i.pos }

func (i *Image) Size(context.Context) (Size, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.size, nil
}

// Render returns the image as an RGBA buffer. The buffer is reused until the
// image is resized.
func (i *Image) Render(ctx context.Context) (*image.RGBA, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.rendered == nil {
		if rgba, ok := i.src.(*image.RGBA); ok && rgba.Bounds().Min == (image.Point{}) {
			i.rendered = rgba
		} else {
			i.rendered = toRGBA(i.src)
		}
	}
	return i.rendered, nil
}
