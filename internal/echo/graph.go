package echo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/kittclouds/m3a/internal/store"
)

// RelatedEntity is one result of a getRelated traversal.
type RelatedEntity struct {
	Entity   store.L3Entity
	Distance int
}

// AddEntity upserts on (type, value, chatId); on conflict bumps lastSeenAt
// and returns the existing entity unchanged otherwise.
func (e *Echo) AddEntity(ctx context.Context, entityType store.EntityType, value, canonicalForm string, chatID *string) (store.L3Entity, error) {
	now := time.Now()
	entry := store.L3Entity{
		ID:            uuid.NewString(),
		EntityType:    entityType,
		Value:         value,
		CanonicalForm: canonicalForm,
		ChatID:        chatID,
		FirstSeenAt:   now,
		LastSeenAt:    now,
	}
	id, err := e.store.UpsertEntity(ctx, entry)
	if err != nil {
		return store.L3Entity{}, err
	}
	return e.store.EntityByID(ctx, id)
}

// AddRelation always appends a new edge; relations are never deduplicated
// so repeat extraction preserves provenance per message.
func (e *Echo) AddRelation(ctx context.Context, sourceID, targetID string, relType store.RelationType, contextMessageID string, confidence float64) (store.L3Relation, error) {
	rel := store.L3Relation{
		ID:               uuid.NewString(),
		SourceEntityID:   sourceID,
		TargetEntityID:   targetID,
		RelationType:     relType,
		ContextMessageID: contextMessageID,
		Confidence:       confidence,
		CreatedAt:        time.Now(),
	}
	if err := e.store.InsertRelation(ctx, rel); err != nil {
		return store.L3Relation{}, err
	}
	return rel, nil
}

// GetRelated performs an undirected breadth-first traversal out to hops
// from every entity whose value matches, scoped to chatID plus the global
// scope. Seeds themselves are excluded from the result; muted relations are
// skipped; a visited set prevents revisiting a node and re-walking cycles.
func (e *Echo) GetRelated(ctx context.Context, value string, chatID *string, hops int) ([]RelatedEntity, error) {
	seeds, err := e.store.FindEntitiesByValue(ctx, value, chatID)
	if err != nil {
		return nil, err
	}

	visited := make(map[string]bool)
	for _, seed := range seeds {
		visited[seed.ID] = true
	}

	type frontierNode struct {
		id       string
		distance int
	}
	var frontier []frontierNode
	for _, seed := range seeds {
		frontier = append(frontier, frontierNode{id: seed.ID, distance: 0})
	}

	var results []RelatedEntity
	for len(frontier) > 0 {
		cur := frontier[0]
		frontier = frontier[1:]

		if cur.distance >= hops {
			continue
		}

		rels, err := e.store.RelationsTouching(ctx, cur.id)
		if err != nil {
			return nil, err
		}

		for _, rel := range rels {
			neighborID := rel.TargetEntityID
			if neighborID == cur.id {
				neighborID = rel.SourceEntityID
			}
			if visited[neighborID] {
				continue
			}
			visited[neighborID] = true

			neighbor, err := e.store.EntityByID(ctx, neighborID)
			if err != nil {
				continue
			}

			dist := cur.distance + 1
			results = append(results, RelatedEntity{Entity: neighbor, Distance: dist})
			frontier = append(frontier, frontierNode{id: neighborID, distance: dist})
		}
	}

	return results, nil
}
