// Package companion implements L5 Companion: a decaying concept
// co-occurrence graph, per section 4.7.
package companion

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/kittclouds/m3a/internal/store"
)

// Neighbor is one scored neighbor of a companion-graph node.
type Neighbor struct {
	Node  store.L5Node
	Score float64
}

// Companion is the L5 layer, backed by a *store.Store.
type Companion struct {
	store *store.Store
}

// New wraps s as the L5 Companion layer.
func New(s *store.Store) *Companion {
	return &Companion{store: s}
}

// AddNode upserts on (type, value, chatId), bumping lastSeenAt on conflict.
func (c *Companion) AddNode(ctx context.Context, nodeType store.NodeType, value string, chatID *string) (store.L5Node, error) {
	now := time.Now()
	node := store.L5Node{
		ID:          uuid.NewString(),
		NodeType:    nodeType,
		Value:       value,
		ChatID:      chatID,
		FirstSeenAt: now,
		LastSeenAt:  now,
	}
	id, err := c.store.UpsertNode(ctx, node)
	if err != nil {
		return store.L5Node{}, err
	}
	return c.store.NodeByID(ctx, id)
}

// Reinforce blends a co-occurrence observation into the edge between
// source and target: weight ← weight·0.7 + strength·0.3 if the edge
// exists, or weight=strength on first observation; temporalDecay resets
// to 1.0 either way. The edge is undirected, so the pair is canonicalized
// (lower id first) before touching storage. ReinforceEdge's conflict
// target is (source_node_id, target_node_id); without a fixed order,
// "golang, then python" and "python, then golang" would insert two
// directed rows for what is really one edge.
func (c *Companion) Reinforce(ctx context.Context, sourceID, targetID string, strength float64) error {
	sourceID, targetID = canonicalPair(sourceID, targetID)

	// ReinforceEdge's additive upsert computes weight+delta on conflict, so
	// the 0.7/0.3 blend is expressed as a delta of strength·0.3 - weight·0.3.
	// Simpler and exactly equivalent: read current weight first.
	neighbors, err := c.store.Neighbors(ctx, sourceID)
	if err != nil {
		return err
	}

	var current float64
	var exists bool
	for _, n := range neighbors {
		if (n.SourceNodeID == sourceID && n.TargetNodeID == targetID) ||
			(n.SourceNodeID == targetID && n.TargetNodeID == sourceID) {
			current = n.Weight
			exists = true
			break
		}
	}

	var newWeight float64
	if exists {
		newWeight = current*0.7 + strength*0.3
	} else {
		newWeight = strength
	}
	delta := newWeight - current

	return c.store.ReinforceEdge(ctx, uuid.NewString(), sourceID, targetID, delta, time.Now())
}

// canonicalPair orders an undirected node pair so repeated observations of
// the same two nodes, regardless of which one is seen as "source" on a
// given call, always address the same stored edge.
func canonicalPair(a, b string) (string, string) {
	if a > b {
		return b, a
	}
	return a, b
}

// Neighbors returns the edges touching nodeID, undirected, sorted by
// weight·temporalDecay descending, capped at topK.
func (c *Companion) Neighbors(ctx context.Context, nodeID string, topK int) ([]Neighbor, error) {
	edges, err := c.store.Neighbors(ctx, nodeID)
	if err != nil {
		return nil, err
	}

	out := make([]Neighbor, 0, len(edges))
	for _, e := range edges {
		otherID := e.TargetNodeID
		if otherID == nodeID {
			otherID = e.SourceNodeID
		}
		node, err := c.store.NodeByID(ctx, otherID)
		if err != nil {
			continue
		}
		out = append(out, Neighbor{Node: node, Score: e.Weight * e.TemporalDecay})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > topK {
		out = out[:topK]
	}
	return out, nil
}

// DecayEdges multiplies every edge's temporalDecay by rate.
func (c *Companion) DecayEdges(ctx context.Context, rate float64) error {
	return c.store.DecayEdges(ctx, rate)
}

// PruneWeakEdges deletes every edge whose weight·temporalDecay has fallen
// below threshold (I6), returning the count removed.
func (c *Companion) PruneWeakEdges(ctx context.Context, threshold float64) (int, error) {
	return c.store.PruneWeakEdges(ctx, threshold)
}
