package pipeline

import (
	"context"
	"fmt"

	"github.com/kittclouds/m3a/internal/llm"
)

// writeGraph extracts entities and relations and upserts them into the L3
// entity-relation graph. Relations are added only when both endpoints
// resolved to an entity created or seen in this same run.
func (p *Pipeline) writeGraph(ctx context.Context, chatID, messageID, content string, opts Options) LayerStatus {
	if opts.Classifier == nil {
		return LayerStatus{Skipped: true, Reason: "no classifier available"}
	}
	result, usedHeuristic := p.extractGraph(ctx, content, opts)
	if len(result.Entities) == 0 {
		return LayerStatus{Skipped: true, Reason: "no entities extracted"}
	}

	nameToID := make(map[string]string, len(result.Entities))
	for _, e := range result.Entities {
		entity, err := p.echo.AddEntity(ctx, e.Type, e.Value, e.CanonicalForm, &chatID)
		if err != nil {
			continue
		}
		nameToID[e.Value] = entity.ID
		if e.CanonicalForm != "" {
			nameToID[e.CanonicalForm] = entity.ID
		}
	}

	var added int
	for _, r := range result.Relations {
		sourceID, sourceOK := nameToID[r.Source]
		targetID, targetOK := nameToID[r.Target]
		if !sourceOK || !targetOK {
			continue
		}
		if _, err := p.echo.AddRelation(ctx, sourceID, targetID, r.Type, messageID, r.Confidence); err == nil {
			added++
		}
	}

	reason := ""
	if usedHeuristic {
		reason = "classifier unavailable or unparseable; used heuristic extraction"
	}
	return LayerStatus{Success: true, ID: fmt.Sprintf("%d entities, %d relations", len(nameToID), added), Reason: reason}
}

func (p *Pipeline) extractGraph(ctx context.Context, content string, opts Options) (llm.ExtractionResult, bool) {
	if opts.Classifier == nil {
		return llm.HeuristicExtract(content), true
	}

	system, user := defaultExtractionPrompt(content)
	if opts.ExtractionPrompter != nil {
		system, user = opts.ExtractionPrompter(content)
	}

	raw, err := opts.Classifier.Complete(ctx, user, system)
	if err != nil {
		return llm.HeuristicExtract(content), true
	}

	result := llm.ParseExtraction(raw)
	if len(result.Entities) == 0 {
		return llm.HeuristicExtract(content), true
	}
	return result, false
}

func defaultExtractionPrompt(content string) (string, string) {
	system := "Extract entities and relations from the text. Respond with JSON: " +
		`{"entities":[{"type":"PERSON|CONCEPT|TOOL|LOCATION|FILE|TECHNOLOGY|OTHER","value":string,"canonicalForm":string}],` +
		`"relations":[{"source":string,"target":string,"type":"USES|PART_OF|RELATED_TO|MENTIONED_WITH|DEPENDS_ON","confidence":0-1}]}.`
	return system, content
}
