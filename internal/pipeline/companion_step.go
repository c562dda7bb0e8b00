package pipeline

import (
	"context"

	"github.com/kittclouds/m3a/internal/store"
)

// writeConcepts implements section 4.8 step 7: tokenize up to 10 concepts,
// upsert a CONCEPT node per concept, and reinforce an edge between every
// pair of concepts co-occurring in this message.
func (p *Pipeline) writeConcepts(ctx context.Context, chatID, content string) LayerStatus {
	concepts := extractConcepts(content)
	if len(concepts) == 0 {
		return LayerStatus{Skipped: true, Reason: "no concepts extracted"}
	}

	ids := make([]string, 0, len(concepts))
	for _, concept := range concepts {
		node, err := p.companion.AddNode(ctx, store.NodeConcept, concept, &chatID)
		if err != nil {
			continue
		}
		ids = append(ids, node.ID)
	}

	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			_ = p.companion.Reinforce(ctx, ids[i], ids[j], 1.0)
		}
	}

	return LayerStatus{Success: true, ID: concepts[0]}
}
