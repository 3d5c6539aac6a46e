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
	matchMargin    = 16
	matchHeader    = 60
	matchRowTop    = 40
	matchRowHeight = 48
	matchIconSize  = 40
	matchKDAWidth  = 96
)

func matchLoader(resolver assets.Resolver, logger *slog.Logger) worker.JobLoader {
	return func(ctx context.Context) (worker.JobFunc, error) {
		bg, err := loadBackground(ctx, resolver, MatchBackground)
		if err != nil {
			return nil, err
		}
		m := &matchCard{resolver: resolver, background: bg, logger: logger.With("job_name", protocol.JobMatch)}
		return m.render, nil
	}
}

type matchCard struct {
	resolver   assets.Resolver
	background image.Image
	logger     *slog.Logger
}

func (m *matchCard) render(ctx context.Context, raw json.RawMessage) (protocol.RenderResult, error) {
	v, err := protocol.DecodePayload(protocol.JobMatch, raw)
	if err != nil {
		return protocol.RenderResult{}, err
	}
	p := v.(*protocol.MatchPayload)
	start := time.Now()

	b := m.background.Bounds()
	width, height := b.Dx(), b.Dy()
	half := width / 2

	canvas := compose.NewCanvas(m.background,
		compose.NewText(compose.At(compose.Center, compose.Px(12)),
			compose.Size{W: width - 2*matchMargin, H: 36},
			p.Queue+"   "+matchDuration(p.DurationSeconds),
			style(20, compose.WeightBold, compose.AlignMiddle, textPrimary)),
	)

	// Both teams share one layout; the second side is the first mirrored.
	for i, team := range p.Teams {
		mirrored := i == 1
		nodes, err := m.team(ctx, team, p.Locale, half, mirrored)
		if err != nil {
			return protocol.RenderResult{}, err
		}
		side := compose.NewContainer(compose.Pos(i*half, matchHeader), compose.Size{W: half, H: height - matchHeader}, nodes...)
		canvas.Add(side.SetMirror(mirrored))
	}

	res, err := renderPNG(ctx, canvas)
	if err != nil {
		return protocol.RenderResult{}, fmt.Errorf("render match card: %w", err)
	}
	m.logger.Debug("match card rendered",
		"queue", p.Queue,
		"players", len(p.Teams[0].Players)+len(p.Teams[1].Players),
		"duration_ms", time.Since(start).Milliseconds())
	return res, nil
}

// team lays out one side of the scoreboard in left-to-right coordinates.
// Text alignment is flipped on the mirrored side so names hug the icons.
func (m *matchCard) team(ctx context.Context, team protocol.TeamResult, locale string, width int, mirrored bool) ([]compose.Node, error) {
	label, labelColor := "Defeat", textDefeat
	if team.Win {
		label, labelColor = "Victory", textVictory
	}

	nodes := []compose.Node{
		compose.NewText(compose.Pos(matchMargin, 0), compose.Size{W: width - 2*matchMargin, H: 32},
			label, style(22, compose.WeightBold, flip(compose.AlignStart, mirrored), labelColor)),
	}

	nameX := matchMargin + matchIconSize + 8
	nameW := width - nameX - matchMargin - matchKDAWidth
	for j, player := range team.Players {
		rowY := matchRowTop + j*matchRowHeight

		icon, err := loadImage(ctx, m.resolver, assets.CategoryChampion, player.Champion+".png", locale,
			compose.Pos(matchMargin, rowY+(matchRowHeight-matchIconSize)/2))
		if err != nil {
			return nil, fmt.Errorf("champion icon for %s: %w", player.Champion, err)
		}
		if err := icon.Resize(compose.Absolute(matchIconSize), compose.Absolute(matchIconSize)); err != nil {
			return nil, fmt.Errorf("champion icon for %s: %w", player.Champion, err)
		}

		nodes = append(nodes,
			icon,
			compose.NewText(compose.Pos(nameX, rowY), compose.Size{W: nameW, H: matchRowHeight},
				player.Name, style(18, compose.WeightRegular, flip(compose.AlignStart, mirrored), textPrimary)),
			compose.NewText(compose.Pos(width-matchMargin-matchKDAWidth, rowY), compose.Size{W: matchKDAWidth, H: matchRowHeight},
				kda(player.Kills, player.Deaths, player.Assists), style(18, compose.WeightRegular, flip(compose.AlignEnd, mirrored), textSecondary)),
		)
	}
	return nodes, nil
}

func flip(a compose.Align, mirrored bool) compose.Align {
	if !mirrored {
		return a
	}
	switch a {
	case compose.AlignStart:
		return compose.AlignEnd
	case compose.AlignEnd:
		return compose.AlignStart
	}
	return a
}
