package jobs

import (
	"fmt"
	"strings"
)

var queueLabels = map[string]string{
	"solo": "Ranked Solo/Duo",
	"flex": "Ranked Flex",
}

func queueLabel(queue string) string {
	if label, ok := queueLabels[queue]; ok {
		return label
	}
	return queue
}

// apex tiers have no divisions.
var apexTiers = map[string]bool{"master": true, "grandmaster": true, "challenger": true}

func tierLabel(tier, division string) string {
	name := titleCase(tier)
	if apexTiers[tier] || tier == "unranked" || division == "" {
		return name
	}
	return name + " " + division
}

func winRate(wins, losses int) string {
	games := wins + losses
	if games == 0 {
		return "No games"
	}
	return fmt.Sprintf("%dW %dL (%d%%)", wins, losses, wins*100/games)
}

func kda(kills, deaths, assists int) string {
	return fmt.Sprintf("%d / %d / %d", kills, deaths, assists)
}

func matchDuration(seconds int) string {
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
