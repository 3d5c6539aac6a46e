package compose

import (
	"context"
	"image"
)

// Container is an invisible box of a declared size. Mirroring reflects
// every child with a concrete x about the container's vertical centerline,
// so one layout can serve both sides of a two-team card.
type Container struct {
	pos      Position
	size     Size
	mirror   bool
	children []Node
}

// NewContainer creates a container at pos with the given size.
func NewContainer(pos Position, size Size, children ...Node) *Container {
	return &Container{pos: pos, size: size, children: children}
}

// Mirror enables mirroring.
func (c *Container) Mirror() *Container {
	c.mirror = true
	return c
}

// SetMirror sets the mirror flag.
func (c *Container) SetMirror(on bool) *Container {
	c.mirror = on
	return c
}

// Add appends children.
func (c *Container) Add(children ...Node) *Container {
	c.children = append(c.children, children...)
	return c
}

func (c *Container) Position() Position { return c.pos }

func (c *Container) Size(context.Context) (Size, error) { return c.size, nil }

// Render draws the children onto a transparent buffer of the declared size.
func (c *Container) Render(ctx context.Context) (*image.RGBA, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	layers, err := renderChildren(ctx, c.size, c.children, c.mirror)
	if err != nil {
		return nil, err
	}
	dst := image.NewRGBA(image.Rect(0, 0, c.size.W, c.size.H))
	composite(dst, layers)
	return dst, nil
}
