package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/phrazzld/cardfarm/internal/assets"
	"github.com/phrazzld/cardfarm/internal/compose"
	"github.com/phrazzld/cardfarm/internal/protocol"
	"github.com/phrazzld/cardfarm/internal/worker"
)

const (
	rankMargin     = 24
	rankHeader     = 72
	rankEmblemSize = 128
)

func rankLoader(resolver assets.Resolver, logger *slog.Logger) worker.JobLoader {
	return func(ctx context.Context) (worker.JobFunc, error) {
		bg, err := loadBackground(ctx, resolver, RankBackground)
		if err != nil {
			return nil, err
		}
		r := &rankCard{resolver: resolver, background: bg, logger: logger.With("job_name", protocol.JobRank)}
		return r.render, nil
	}
}

type rankCard struct {
	resolver   assets.Resolver
	background image.Image
	logger     *slog.Logger
}

func (r *rankCard) render(ctx context.Context, raw json.RawMessage) (protocol.RenderResult, error) {
	v, err := protocol.DecodePayload(protocol.JobRank, raw)
	if err != nil {
		return protocol.RenderResult{}, err
	}
	p := v.(*protocol.RankPayload)
	start := time.Now()

	b := r.background.Bounds()
	width, height := b.Dx(), b.Dy()

	canvas := compose.NewCanvas(r.background,
		compose.NewText(compose.At(compose.Center, compose.Px(20)),
			compose.Size{W: width - 2*rankMargin, H: 40},
			p.Summoner,
			style(28, compose.WeightBold, compose.AlignMiddle, textPrimary)),
	)

	colW := (width - 2*rankMargin) / len(p.Ranks)
	colH := height - rankHeader - rankMargin
	for i, entry := range p.Ranks {
		col, err := r.column(ctx, entry, p.Locale, compose.Size{W: colW, H: colH})
		if err != nil {
			return protocol.RenderResult{}, err
		}
		canvas.Add(compose.NewContainer(compose.Pos(rankMargin+i*colW, rankHeader), compose.Size{W: colW, H: colH}, col...))
	}

	res, err := renderPNG(ctx, canvas)
	if err != nil {
		return protocol.RenderResult{}, fmt.Errorf("render rank card: %w", err)
	}
	r.logger.Debug("rank card rendered",
		"summoner", p.Summoner,
		"queues", len(p.Ranks),
		"duration_ms", time.Since(start).Milliseconds())
	return res, nil
}

// column lays out one queue: label, emblem, tier, LP and record, stacked and
// centered.
func (r *rankCard) column(ctx context.Context, e protocol.RankEntry, locale string, size compose.Size) ([]compose.Node, error) {
	emblemSize := min(rankEmblemSize, size.W-16)
	emblem, err := loadImage(ctx, r.resolver, assets.CategoryEmblem, e.Tier+".png", locale,
		compose.At(compose.Center, compose.Px(28)))
	if err != nil {
		return nil, fmt.Errorf("emblem for %s: %w", e.Tier, err)
	}
	if err := emblem.Resize(compose.Absolute(emblemSize), compose.Auto); err != nil {
		return nil, fmt.Errorf("emblem for %s: %w", e.Tier, err)
	}
	emblemBox, err := emblem.Size(ctx)
	if err != nil {
		return nil, err
	}

	y := 28 + emblemBox.H + 8
	line := func(offset int) compose.Position {
		return compose.At(compose.Center, compose.Px(y+offset))
	}

	nodes := []compose.Node{
		compose.NewText(compose.At(compose.Center, compose.Px(0)), compose.Size{W: size.W, H: 24},
			queueLabel(e.Queue), style(16, compose.WeightRegular, compose.AlignMiddle, textSecondary)),
		emblem,
		compose.NewText(line(0), compose.Size{W: size.W, H: 32},
			tierLabel(e.Tier, e.Division), style(24, compose.WeightBold, compose.AlignMiddle, textPrimary)),
	}
	if e.Tier != "unranked" {
		nodes = append(nodes,
			compose.NewText(line(36), compose.Size{W: size.W, H: 24},
				fmt.Sprintf("%d LP", e.LP), style(18, compose.WeightRegular, compose.AlignMiddle, textPrimary)),
			compose.NewText(line(64), compose.Size{W: size.W, H: 24},
				winRate(e.Wins, e.Losses), style(16, compose.WeightRegular, compose.AlignMiddle, textSecondary)),
		)
	}
	return nodes, nil
}
