package pipeline

import (
	"strings"
	"unicode"

	"github.com/orsinium-labs/stopwords"
)

var stopwordChecker = stopwords.MustGet("en")

var technologyConcepts = map[string]bool{
	"go": true, "golang": true, "python": true, "typescript": true, "javascript": true,
	"rust": true, "docker": true, "kubernetes": true, "postgres": true, "sqlite": true,
	"redis": true, "kafka": true, "react": true, "vue": true, "grpc": true, "graphql": true,
	"terraform": true, "linux": true, "git": true, "github": true, "nginx": true, "wasm": true,
}

// extractConcepts implements the L5 "cheap tokenizer" of section 4.8 step
// 7: case-folded, length ≥ 4, stop-word filtered, augmented by a small
// technology dictionary (which bypasses the length floor), capped at 10.
func extractConcepts(content string) []string {
	var out []string
	seen := make(map[string]bool)

	for _, field := range strings.FieldsFunc(content, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		word := strings.ToLower(field)
		if seen[word] {
			continue
		}
		if technologyConcepts[word] {
			seen[word] = true
			out = append(out, word)
		} else if len(word) >= 4 && !stopwordChecker.Contains(word) {
			seen[word] = true
			out = append(out, word)
		}
		if len(out) >= 10 {
			break
		}
	}
	return out
}
