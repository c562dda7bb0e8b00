package llm

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/kittclouds/m3a/internal/store"
)

// ExtractedEntity is one entity surfaced by a classifier completion, before
// it has been resolved to a stored L3Entity id.
type ExtractedEntity struct {
	Type          store.EntityType `json:"type"`
	Value         string           `json:"value"`
	CanonicalForm string           `json:"canonicalForm,omitempty"`
}

// ExtractedRelation references its endpoints by value/canonicalForm, not by
// id — the pipeline resolves both ends against the in-run name→id map
// before persisting.
type ExtractedRelation struct {
	Source     string              `json:"source"`
	Target     string              `json:"target"`
	Type       store.RelationType  `json:"type"`
	Confidence float64             `json:"confidence"`
}

// ExtractionResult is the unified output of a single entity-extraction
// completion.
type ExtractionResult struct {
	Entities  []ExtractedEntity   `json:"entities"`
	Relations []ExtractedRelation `json:"relations"`
}

var (
	entityObjectPattern = regexp.MustCompile(
		`\{\s*"type"\s*:\s*"[^"]+"\s*,\s*"value"\s*:\s*"[^"]+"\s*(?:,\s*"[^"]+"\s*:\s*(?:"[^"]*"|[\d.]+|true|false|null))*\s*\}`,
	)
	relationObjectPattern = regexp.MustCompile(
		`\{\s*"source"\s*:\s*"[^"]+"\s*,\s*"target"\s*:\s*"[^"]+"\s*,\s*"type"\s*:\s*"[^"]+"\s*(?:,\s*"[^"]+"\s*:\s*(?:"[^"]*"|[\d.]+|true|false|null))*\s*\}`,
	)
)

// stripCodeFence removes a surrounding markdown code block, tolerating a
// language tag on the opening fence.
func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	lines := strings.Split(s, "\n")
	if len(lines) > 0 {
		lines = lines[1:]
	}
	if len(lines) > 0 && strings.HasPrefix(strings.TrimSpace(lines[len(lines)-1]), "```") {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n")
}

// ParseExtraction parses a classifier completion into an ExtractionResult.
// Invalid entity types are dropped; relations are kept only when both
// endpoints appear in the (filtered) entity list by value or canonical
// form. Markdown fences are tolerated and stripped. A malformed body falls
// through to regex repair before giving up.
func ParseExtraction(raw string) ExtractionResult {
	cleaned := strings.TrimSpace(stripCodeFence(strings.TrimSpace(raw)))
	if cleaned == "" {
		return ExtractionResult{}
	}

	var result ExtractionResult
	if err := json.Unmarshal([]byte(cleaned), &result); err == nil {
		return filterExtraction(result)
	}

	return filterExtraction(ExtractionResult{
		Entities:  repairEntities(cleaned),
		Relations: repairRelations(cleaned),
	})
}

func filterExtraction(r ExtractionResult) ExtractionResult {
	out := ExtractionResult{
		Entities:  make([]ExtractedEntity, 0, len(r.Entities)),
		Relations: make([]ExtractedRelation, 0, len(r.Relations)),
	}

	known := make(map[string]bool)
	for _, e := range r.Entities {
		value := strings.TrimSpace(e.Value)
		if value == "" {
			continue
		}
		entityType := store.EntityType(strings.ToUpper(string(e.Type)))
		if !store.IsValidEntityType(string(entityType)) {
			continue
		}
		e.Value = value
		e.Type = entityType
		e.CanonicalForm = strings.TrimSpace(e.CanonicalForm)
		out.Entities = append(out.Entities, e)
		known[value] = true
		if e.CanonicalForm != "" {
			known[e.CanonicalForm] = true
		}
	}

	for _, r := range r.Relations {
		source := strings.TrimSpace(r.Source)
		target := strings.TrimSpace(r.Target)
		relType := store.RelationType(strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(string(r.Type)), " ", "_")))
		if source == "" || target == "" || !store.IsValidRelationType(string(relType)) {
			continue
		}
		if !known[source] || !known[target] {
			continue
		}
		if r.Confidence <= 0 {
			r.Confidence = 1.0
		}
		out.Relations = append(out.Relations, ExtractedRelation{
			Source: source, Target: target, Type: relType, Confidence: r.Confidence,
		})
	}

	return out
}

func repairEntities(raw string) []ExtractedEntity {
	matches := entityObjectPattern.FindAllString(raw, -1)
	out := make([]ExtractedEntity, 0, len(matches))
	for _, m := range matches {
		var e ExtractedEntity
		if err := json.Unmarshal([]byte(m), &e); err != nil {
			continue
		}
		out = append(out, e)
	}
	return out
}

func repairRelations(raw string) []ExtractedRelation {
	matches := relationObjectPattern.FindAllString(raw, -1)
	out := make([]ExtractedRelation, 0, len(matches))
	for _, m := range matches {
		var r ExtractedRelation
		if err := json.Unmarshal([]byte(m), &r); err != nil {
			continue
		}
		out = append(out, r)
	}
	return out
}
