package pipeline

import (
	"context"

	"github.com/kittclouds/m3a/internal/affect"
	"github.com/kittclouds/m3a/internal/config"
	"github.com/kittclouds/m3a/internal/salience"
)

// writeSalience scores content locally (section 4.6) using the L2 result's
// intensity when available, and persists only if the score clears
// cfg.L4SalienceThreshold.
func (p *Pipeline) writeSalience(ctx context.Context, chatID, messageID, content string, cfg config.Snapshot, l2 LayerStatus) LayerStatus {
	var affectIntensity float64
	if l2.Success {
		entries, err := p.affect.Get(ctx, chatID, affect.DefaultGetOptions())
		if err == nil {
			for _, e := range entries {
				if e.MessageID == messageID {
					affectIntensity = e.Intensity
					break
				}
			}
		}
	}

	score := salience.Score(content, affectIntensity)
	if score < cfg.L4SalienceThreshold {
		return LayerStatus{Skipped: true, Reason: "below salience threshold"}
	}

	entry, err := p.salience.Add(ctx, chatID, messageID, content, score, nil)
	if err != nil {
		return LayerStatus{Success: false, Reason: err.Error()}
	}
	return LayerStatus{Success: true, ID: entry.ID}
}
