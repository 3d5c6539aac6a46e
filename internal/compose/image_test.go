package compose

import (
	"context"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeImage(t *testing.T) {
	data, err := EncodePNG(solid(5, 3, red))
	require.NoError(t, err)

	img, err := DecodeImage(Pos(2, 4), data)
	require.NoError(t, err)

	size, err := img.Size(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Size{W: 5, H: 3}, size)
	assert.Equal(t, Pos(2, 4), img.Position())

	rendered, err := img.Render(context.Background())
	require.NoError(t, err)
	assert.Equal(t, red, rendered.RGBAAt(4, 2))
}

func TestDecodeImage_Garbage(t *testing.T) {
	_, err := DecodeImage(Pos(0, 0), []byte("not an image"))
	assert.Error(t, err)
}

func TestImage_Resize(t *testing.T) {
	tests := []struct {
		name string
		src  Size
		w, h Dimension
		want Size
	}{
		{"absolute both", Size{W: 10, H: 10}, Absolute(4), Absolute(6), Size{W: 4, H: 6}},
		{"scale rounds half away from zero", Size{W: 5, H: 3}, Scale(0.5), Scale(0.5), Size{W: 3, H: 2}},
		{"mixed axes", Size{W: 8, H: 8}, Absolute(3), Scale(1.5), Size{W: 3, H: 12}},
		{"width only keeps aspect", Size{W: 10, H: 4}, Absolute(5), Auto, Size{W: 5, H: 2}},
		{"height only keeps aspect", Size{W: 3, H: 7}, Auto, Absolute(14), Size{W: 6, H: 14}},
		{"aspect rounding", Size{W: 3, H: 7}, Absolute(2), Auto, Size{W: 2, H: 5}},
		{"both auto is a no-op", Size{W: 3, H: 7}, Auto, Auto, Size{W: 3, H: 7}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := NewImage(Pos(0, 0), solid(tt.src.W, tt.src.H, red))
			require.NoError(t, img.Resize(tt.w, tt.h))

			size, err := img.Size(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, size)

			rendered, err := img.Render(context.Background())
			require.NoError(t, err)
			assert.Equal(t, image.Rect(0, 0, tt.want.W, tt.want.H), rendered.Bounds())
		})
	}
}

func TestImage_ResizeToNothing(t *testing.T) {
	img := NewImage(Pos(0, 0), solid(5, 5, red))
	err := img.Resize(Scale(0.01), Scale(0.01))
	assert.ErrorIs(t, err, ErrInvalidResize)

	size, _ := img.Size(context.Background())
	assert.Equal(t, Size{W: 5, H: 5}, size, "failed resize leaves the image unchanged")
}

func TestImage_ResizedSizeDrivesLayout(t *testing.T) {
	// 5x5 scaled by 0.5 rounds to 3x3, which centers at floor((9-3)/2) = 3.
	img := NewImage(At(Center, Center), solid(5, 5, red))
	require.NoError(t, img.Resize(Scale(0.5), Scale(0.5)))

	out, err := NewCanvas(solid(9, 9, white), img).Render(context.Background())
	require.NoError(t, err)

	assert.Equal(t, white, out.RGBAAt(2, 2))
	assert.Equal(t, red, out.RGBAAt(3, 3))
	assert.Equal(t, red, out.RGBAAt(5, 5))
	assert.Equal(t, white, out.RGBAAt(6, 6))
}

func TestImage_SubImageSource(t *testing.T) {
	sheet := solid(10, 10, red)
	sub := sheet.SubImage(image.Rect(4, 4, 7, 6))

	img := NewImage(Pos(0, 0), sub)
	rendered, err := img.Render(context.Background())
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 3, 2), rendered.Bounds())
}

func TestImage_ResizeAfterRender(t *testing.T) {
	img := NewImage(Pos(0, 0), solid(8, 4, red))
	before, err := img.Render(context.Background())
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 8, 4), before.Bounds())

	again, err := img.Render(context.Background())
	require.NoError(t, err)
	assert.Same(t, before, again, "render output is reused")

	require.NoError(t, img.Resize(Absolute(4), Auto))

	size, err := img.Size(context.Background())
	require.NoError(t, err)
	after, err := img.Render(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Size{W: 4, H: 2}, size)
	assert.Equal(t, image.Rect(0, 0, size.W, size.H), after.Bounds())
}
