package llm

import (
	"strings"
	"unicode"

	"github.com/coregx/ahocorasick"
	"github.com/kittclouds/m3a/internal/store"
)

var technologyDictionary = []string{
	"go", "golang", "python", "typescript", "javascript", "rust", "java", "kotlin",
	"docker", "kubernetes", "postgres", "postgresql", "sqlite", "redis", "kafka",
	"react", "vue", "grpc", "graphql", "terraform", "aws", "gcp", "azure",
	"linux", "git", "github", "nginx", "webassembly", "wasm",
}

var technologyAutomaton, _ = ahocorasick.NewBuilder().
	AddStrings(technologyDictionary).
	SetMatchKind(ahocorasick.LeftmostLongest).
	Build()

var fileNamePattern = func() func(string) []string {
	// matches token.ext shapes without pulling in a regexp dependency for
	// something this mechanical.
	return func(text string) []string {
		var out []string
		for _, tok := range strings.Fields(text) {
			tok = strings.Trim(tok, ".,;:!?()[]{}\"'")
			if i := strings.LastIndexByte(tok, '.'); i > 0 && i < len(tok)-1 {
				ext := tok[i+1:]
				if len(ext) >= 1 && len(ext) <= 4 && isAllLower(ext) {
					out = append(out, tok)
				}
			}
		}
		return out
	}
}()

func isAllLower(s string) bool {
	for _, r := range s {
		if !unicode.IsLower(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func isCapitalizedWord(s string) bool {
	if s == "" {
		return false
	}
	r := []rune(s)[0]
	return unicode.IsUpper(r)
}

// HeuristicExtract is the deterministic fallback used when a classifier
// completion fails to parse (section 6): dictionary matches for
// technologies, token-shape matches for file names, and capitalized
// proper-noun concepts, capped at
// 5 entities, connected pairwise by MENTIONED_WITH relations.
func HeuristicExtract(text string) ExtractionResult {
	seen := make(map[string]bool)
	var entities []ExtractedEntity

	addEntity := func(value string, entityType store.EntityType) {
		key := strings.ToLower(value)
		if seen[key] || len(entities) >= 5 {
			return
		}
		seen[key] = true
		entities = append(entities, ExtractedEntity{Type: entityType, Value: value})
	}

	if technologyAutomaton != nil {
		lower := strings.ToLower(text)
		for _, m := range technologyAutomaton.FindAllOverlapping([]byte(lower)) {
			addEntity(lower[m.Start:m.End], store.EntityTechnology)
		}
	}

	for _, f := range fileNamePattern(text) {
		addEntity(f, store.EntityFile)
	}

	for _, tok := range strings.Fields(text) {
		trimmed := strings.Trim(tok, ".,;:!?()[]{}\"'")
		if isCapitalizedWord(trimmed) && len(trimmed) > 2 {
			addEntity(trimmed, store.EntityConcept)
		}
	}

	var relations []ExtractedRelation
	for i := 0; i < len(entities); i++ {
		for j := i + 1; j < len(entities); j++ {
			relations = append(relations, ExtractedRelation{
				Source:     entities[i].Value,
				Target:     entities[j].Value,
				Type:       store.RelMentionedWith,
				Confidence: 0.5,
			})
		}
	}

	return ExtractionResult{Entities: entities, Relations: relations}
}
