package llm

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/kittclouds/m3a/internal/store"
)

// AffectClassification is the parsed shape of an affect classification
// completion.
type AffectClassification struct {
	Category  store.AffectCategory `json:"category"`
	Intensity float64              `json:"intensity"`
	Reasoning string               `json:"reasoning"`
}

// ParseAffect parses a classifier completion into an AffectClassification.
// Markdown fences are tolerated and stripped; intensity is clamped to
// [0,1]. Returns ok=false if the body doesn't parse or names an unknown
// category, signalling the caller to fall back to KeywordClassify.
func ParseAffect(raw string) (AffectClassification, bool) {
	cleaned := strings.TrimSpace(stripCodeFence(strings.TrimSpace(raw)))
	if cleaned == "" {
		return AffectClassification{}, false
	}

	var c AffectClassification
	if err := json.Unmarshal([]byte(cleaned), &c); err != nil {
		return AffectClassification{}, false
	}

	c.Category = store.AffectCategory(strings.ToUpper(string(c.Category)))
	if !store.IsValidAffectCategory(string(c.Category)) {
		return AffectClassification{}, false
	}
	if c.Intensity < 0 {
		c.Intensity = 0
	}
	if c.Intensity > 1 {
		c.Intensity = 1
	}
	return c, true
}

var (
	frustratedPattern = regexp.MustCompile(`(?i)ugh|annoying|frustrat|tired of|sick of|fed up`)
	confusedPattern   = regexp.MustCompile(`(?i)confus|don't understand|not sure|unclear|lost\b`)
	curiousPattern    = regexp.MustCompile(`(?i)curious|wonder|what if|how does|why does`)
	satisfiedPattern  = regexp.MustCompile(`(?i)great|awesome|perfect|works now|finally|thank`)
	urgentPattern     = regexp.MustCompile(`(?i)urgent|asap|immediately|critical|emergency`)
	reflectivePattern = regexp.MustCompile(`(?i)thinking about|in retrospect|looking back|reflect`)
	exclaimPattern    = regexp.MustCompile(`!`)
)

// KeywordClassify is the deterministic fallback affect classifier (section
// 6): a keyword scan that never fails. It always returns a category, even
// when no pattern hits (REFLECTIVE at low intensity, the most neutral
// default).
func KeywordClassify(content string) AffectClassification {
	switch {
	case urgentPattern.MatchString(content):
		return AffectClassification{Category: store.AffectUrgent, Intensity: 0.8, Reasoning: "keyword match: urgency markers"}
	case frustratedPattern.MatchString(content):
		return AffectClassification{Category: store.AffectFrustrated, Intensity: 0.7, Reasoning: "keyword match: frustration markers"}
	case confusedPattern.MatchString(content):
		return AffectClassification{Category: store.AffectConfused, Intensity: 0.6, Reasoning: "keyword match: confusion markers"}
	case satisfiedPattern.MatchString(content):
		return AffectClassification{Category: store.AffectSatisfied, Intensity: 0.6, Reasoning: "keyword match: satisfaction markers"}
	case curiousPattern.MatchString(content):
		return AffectClassification{Category: store.AffectCurious, Intensity: 0.5, Reasoning: "keyword match: curiosity markers"}
	case reflectivePattern.MatchString(content):
		return AffectClassification{Category: store.AffectReflective, Intensity: 0.4, Reasoning: "keyword match: reflective markers"}
	case exclaimPattern.MatchString(content):
		return AffectClassification{Category: store.AffectUrgent, Intensity: 0.4, Reasoning: "keyword match: exclamation"}
	default:
		return AffectClassification{Category: store.AffectReflective, Intensity: 0.2, Reasoning: "no keyword match; neutral default"}
	}
}
