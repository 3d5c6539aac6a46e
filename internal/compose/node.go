package compose

import (
	"context"
	"image"

	"golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"
)

// Coord is one axis of a node position: either a concrete pixel offset or
// Center.
type Coord struct {
	px     int
	center bool
}

// Center places a node in the middle of its parent on that axis.
var Center = Coord{center: true}

// Px is a concrete offset from the parent's top-left corner.
func Px(v int) Coord { return Coord{px: v} }

// IsCenter reports whether c is the Center sentinel.
func (c Coord) IsCenter() bool { return c.center }

// Value returns the concrete offset. It is zero for Center.
func (c Coord) Value() int { return c.px }

// Position places a node inside its parent.
type Position struct {
	X, Y Coord
}

// Pos is a concrete position.
func Pos(x, y int) Position { return Position{X: Px(x), Y: Px(y)} }

// At builds a position from independent axes, e.g. At(Center, Px(12)).
func At(x, y Coord) Position { return Position{X: x, Y: y} }

// Size is a width and height in pixels.
type Size struct {
	W, H int
}

// Node is an element of a scene.
type Node interface {
	// Position is where the node sits inside its parent.
	Position() Position

	// Size is the node's layout size. Implementations memoize it.
	Size(ctx context.Context) (Size, error)

	// Render draws the node into a buffer of its own size.
	Render(ctx context.Context) (*image.RGBA, error)
}

// resolve returns the child's top-left offset within a parent of the given
// size. Center is resolved per axis; mirror reflects only a concrete x.
func resolve(parent Size, pos Position, child Size, mirror bool) image.Point {
	var pt image.Point

	switch {
	case pos.X.center:
		pt.X = floorDiv(parent.W-child.W, 2)
	case mirror:
		pt.X = parent.W - pos.X.px - child.W
	default:
		pt.X = pos.X.px
	}

	if pos.Y.center {
		pt.Y = floorDiv(parent.H-child.H, 2)
	} else {
		pt.Y = pos.Y.px
	}
	return pt
}

// floorDiv divides rounding toward negative infinity, so children larger
// than their parent center symmetrically.
func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

type layer struct {
	img    *image.RGBA
	offset image.Point
}

// renderChildren renders every child concurrently and resolves its offset.
// Layers come back in child order.
func renderChildren(ctx context.Context, parent Size, children []Node, mirror bool) ([]layer, error) {
	layers := make([]layer, len(children))

	g, ctx := errgroup.WithContext(ctx)
	for i, child := range children {
		g.Go(func() error {
			size, err := child.Size(ctx)
			if err != nil {
				return err
			}
			img, err := child.Render(ctx)
			if err != nil {
				return err
			}
			layers[i] = layer{img: img, offset: resolve(parent, child.Position(), size, mirror)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return layers, nil
}

// composite draws layers over dst in order.
func composite(dst *image.RGBA, layers []layer) {
	for _, l := range layers {
		r := l.img.Bounds().Sub(l.img.Bounds().Min).Add(l.offset)
		draw.Draw(dst, r, l.img, l.img.Bounds().Min, draw.Over)
	}
}

// toRGBA copies src into a new RGBA buffer anchored at the origin.
func toRGBA(src image.Image) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return dst
}
