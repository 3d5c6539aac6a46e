// Package jobs holds the card jobs workers can run and the registry that
// maps job names to them.
package jobs

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"log/slog"

	"github.com/phrazzld/cardfarm/internal/assets"
	"github.com/phrazzld/cardfarm/internal/compose"
	"github.com/phrazzld/cardfarm/internal/protocol"
	"github.com/phrazzld/cardfarm/internal/worker"
)

// Background asset names.
const (
	RankBackground  = "rank.png"
	MatchBackground = "match.png"
)

var (
	textPrimary   = color.RGBA{R: 0xf0, G: 0xe6, B: 0xd2, A: 0xff}
	textSecondary = color.RGBA{R: 0xa0, G: 0x9b, B: 0x8c, A: 0xff}
	textVictory   = color.RGBA{R: 0x0a, G: 0xc8, B: 0xb9, A: 0xff}
	textDefeat    = color.RGBA{R: 0xe8, G: 0x40, B: 0x57, A: 0xff}
	outline       = color.RGBA{A: 0xc0}
)

// Registry returns the registry of every job, reading images from resolver.
func Registry(resolver assets.Resolver, logger *slog.Logger) worker.Registry {
	logger = logger.With("component", "jobs")
	return worker.Registry{
		protocol.JobRank:  rankLoader(resolver, logger),
		protocol.JobMatch: matchLoader(resolver, logger),
	}
}

// loadBackground resolves and decodes a background once per loader.
func loadBackground(ctx context.Context, resolver assets.Resolver, name string) (image.Image, error) {
	data, err := resolver.Resolve(ctx, assets.CategoryBackground, name, "")
	if err != nil {
		return nil, fmt.Errorf("load background: %w", err)
	}
	img, err := compose.DecodeImage(compose.Pos(0, 0), data)
	if err != nil {
		return nil, fmt.Errorf("background %s: %w", name, err)
	}
	return img.Render(ctx)
}

// loadImage resolves an asset into a raster leaf at pos. A missing asset
// fails the job.
func loadImage(ctx context.Context, resolver assets.Resolver, category assets.Category, name, locale string, pos compose.Position) (*compose.Image, error) {
	data, err := resolver.Resolve(ctx, category, name, locale)
	if err != nil {
		return nil, err
	}
	img, err := compose.DecodeImage(pos, data)
	if err != nil {
		return nil, fmt.Errorf("%s/%s: %w", category, name, err)
	}
	return img, nil
}

// renderPNG renders canvas and packages it as a job result.
func renderPNG(ctx context.Context, canvas *compose.Canvas) (protocol.RenderResult, error) {
	img, err := canvas.Render(ctx)
	if err != nil {
		return protocol.RenderResult{}, err
	}
	data, err := compose.EncodePNG(img)
	if err != nil {
		return protocol.RenderResult{}, err
	}
	b := img.Bounds()
	return protocol.RenderResult{Format: "png", Width: b.Dx(), Height: b.Dy(), Image: data}, nil
}

func style(size float64, weight compose.Weight, align compose.Align, c color.Color) compose.TextStyle {
	return compose.TextStyle{
		Size:        size,
		Weight:      weight,
		Align:       align,
		Color:       c,
		Stroke:      outline,
		StrokeWidth: 1,
	}
}
