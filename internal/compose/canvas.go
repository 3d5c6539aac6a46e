package compose

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
)

// Canvas is the root of a scene. Its size is the base image's size and
// children are drawn over the base in the order they were added.
type Canvas struct {
	base     image.Image
	children []Node
}

// NewCanvas creates a canvas over base.
func NewCanvas(base image.Image, children ...Node) *Canvas {
	return &Canvas{base: base, children: children}
}

// Add appends children. Later children draw over earlier ones.
func (c *Canvas) Add(children ...Node) *Canvas {
	c.children = append(c.children, children...)
	return c
}

// Size returns the base image's dimensions.
func (c *Canvas) Size() Size {
	b := c.base.Bounds()
	return Size{W: b.Dx(), H: b.Dy()}
}

// Render composites every child onto a copy of the base image.
func (c *Canvas) Render(ctx context.Context) (*image.RGBA, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	layers, err := renderChildren(ctx, c.Size(), c.children, false)
	if err != nil {
		return nil, fmt.Errorf("render canvas: %w", err)
	}
	dst := toRGBA(c.base)
	composite(dst, layers)
	return dst, nil
}

// EncodePNG encodes img as PNG.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
