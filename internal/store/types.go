// Package store provides the SQLite-backed persistence layer for M3A:
// schema, migrations, connection handling, transaction helpers, and
// prepared-statement-shaped CRUD for every L1-L5 table. Higher-level
// per-layer semantics (eviction policy, decay, scoring) live in the
// sibling internal/river, internal/affect, internal/echo, internal/salience
// and internal/companion packages, which call down into this one.
package store

import "time"

// AffectCategory is the closed set of L2 categorical markers.
type AffectCategory string

const (
	AffectFrustrated AffectCategory = "FRUSTRATED"
	AffectConfused   AffectCategory = "CONFUSED"
	AffectCurious    AffectCategory = "CURIOUS"
	AffectSatisfied  AffectCategory = "SATISFIED"
	AffectUrgent     AffectCategory = "URGENT"
	AffectReflective AffectCategory = "REFLECTIVE"
)

var validAffectCategories = map[AffectCategory]bool{
	AffectFrustrated: true, AffectConfused: true, AffectCurious: true,
	AffectSatisfied: true, AffectUrgent: true, AffectReflective: true,
}

// IsValidAffectCategory reports whether s names a recognized category.
func IsValidAffectCategory(s string) bool { return validAffectCategories[AffectCategory(s)] }

// EntityType is the closed set of L3 entity kinds.
type EntityType string

const (
	EntityPerson     EntityType = "PERSON"
	EntityConcept    EntityType = "CONCEPT"
	EntityTool       EntityType = "TOOL"
	EntityLocation   EntityType = "LOCATION"
	EntityFile       EntityType = "FILE"
	EntityTechnology EntityType = "TECHNOLOGY"
	EntityOther      EntityType = "OTHER"
)

var validEntityTypes = map[EntityType]bool{
	EntityPerson: true, EntityConcept: true, EntityTool: true,
	EntityLocation: true, EntityFile: true, EntityTechnology: true, EntityOther: true,
}

// IsValidEntityType reports whether s names a recognized entity type.
func IsValidEntityType(s string) bool { return validEntityTypes[EntityType(s)] }

// RelationType is the closed set of L3 relation kinds.
type RelationType string

const (
	RelUses         RelationType = "USES"
	RelPartOf       RelationType = "PART_OF"
	RelRelatedTo    RelationType = "RELATED_TO"
	RelMentionedWith RelationType = "MENTIONED_WITH"
	RelDependsOn    RelationType = "DEPENDS_ON"
)

var validRelationTypes = map[RelationType]bool{
	RelUses: true, RelPartOf: true, RelRelatedTo: true,
	RelMentionedWith: true, RelDependsOn: true,
}

// IsValidRelationType reports whether s names a recognized relation type.
func IsValidRelationType(s string) bool { return validRelationTypes[RelationType(s)] }

// NodeType is the closed set of L5 companion-graph node kinds.
type NodeType string

const (
	NodeConcept NodeType = "CONCEPT"
	NodeTopic   NodeType = "TOPIC"
	NodeEntity  NodeType = "ENTITY"
)

// TriggerType is the closed set of consolidation run triggers.
type TriggerType string

const (
	TriggerOverflow  TriggerType = "overflow"
	TriggerScheduled TriggerType = "scheduled"
	TriggerManual    TriggerType = "manual"
)

// L1RiverEntry is a recency-buffer row.
type L1RiverEntry struct {
	ID         string
	ChatID     string
	MessageID  string
	Content    string
	TokenCount uint32
	Timestamp  time.Time
	EvictedAt  *time.Time
}

// L2AffectEntry is a categorical affect marker.
type L2AffectEntry struct {
	ID             string
	ChatID         string
	MessageID      string
	Category       AffectCategory
	Intensity      float64
	Reasoning      string
	DecayFactor    float64
	IsMuted        bool
	CreatedAt      time.Time
	LastAccessedAt time.Time
}

// L3VectorEntry is a dense-vector row.
type L3VectorEntry struct {
	ID          string
	ChatID      string
	MessageID   string
	ContentHash string
	Embedding   []float32
	Model       string
	Dimensions  int
	BoostFactor float64
	IsMuted     bool
	CreatedAt   time.Time
}

// L3LexicalMeta is the metadata sibling row for a lexical (FTS) entry.
type L3LexicalMeta struct {
	ChatID      string
	MessageID   string
	Content     string
	BoostFactor float64
	IsMuted     bool
}

// L3Entity is a node in the entity-relation graph.
type L3Entity struct {
	ID             string
	EntityType     EntityType
	Value          string
	CanonicalForm  string
	ChatID         *string // nil = global
	FirstSeenAt    time.Time
	LastSeenAt     time.Time
}

// L3Relation is an edge in the entity-relation graph.
type L3Relation struct {
	ID               string
	SourceEntityID   string
	TargetEntityID   string
	RelationType     RelationType
	ContextMessageID string
	Confidence       float64
	IsMuted          bool
	CreatedAt        time.Time
}

// L4SalienceEntry is a retention-priority row.
type L4SalienceEntry struct {
	ID                string
	ChatID            string
	MessageID         string
	Content           string
	SalienceScore     float64
	PredictionError   *float64
	UserPinned        bool
	RetentionPriority int
	IsMuted           bool
	CreatedAt         time.Time
	LastAccessedAt    time.Time
}

// L5Node is a concept/topic/entity node in the companion graph.
type L5Node struct {
	ID          string
	NodeType    NodeType
	Value       string
	ChatID      *string
	FirstSeenAt time.Time
	LastSeenAt  time.Time
}

// L5Edge is a reinforced, decaying co-occurrence edge.
type L5Edge struct {
	ID               string
	SourceNodeID     string
	TargetNodeID     string
	Weight           float64
	TemporalDecay    float64
	LastReinforcedAt time.Time
	CreatedAt        time.Time
}

// EmbeddingCacheEntry is a content-hash-deduplicated cached embedding.
type EmbeddingCacheEntry struct {
	ContentHash    string
	Embedding      []float32
	Model          string
	Dimensions     int
	CreatedAt      time.Time
	LastAccessedAt time.Time
}

// ConsolidationRun is the audit row for a consolidator pass.
type ConsolidationRun struct {
	ID                string
	ChatID            string
	TriggerType       TriggerType
	ItemsProcessed    int
	SummariesCreated  int
	ConflictsDetected int
	StartedAt         time.Time
	CompletedAt       *time.Time
}
