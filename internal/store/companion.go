package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/kittclouds/m3a/internal/m3aerrors"
)

// UpsertNode inserts a node or returns the existing id for the same
// (node_type, value, chat scope), bumping last_seen_at.
func (s *Store) UpsertNode(ctx context.Context, n L5Node) (string, error) {
	var chatScope string
	if n.ChatID != nil {
		chatScope = *n.ChatID
	}

	var existingID string
	err := s.db.QueryRowContext(ctx, `
		SELECT id FROM l5_nodes WHERE node_type = ? AND value = ? AND COALESCE(chat_id, '') = ?
	`, string(n.NodeType), n.Value, chatScope).Scan(&existingID)
	if err == nil {
		if _, err := s.db.ExecContext(ctx, `
			UPDATE l5_nodes SET last_seen_at = ? WHERE id = ?
		`, n.LastSeenAt.UnixMilli(), existingID); err != nil {
			return "", m3aerrors.StorageFailure("upsertNode.touch", err)
		}
		return existingID, nil
	}
	if err != sql.ErrNoRows {
		return "", m3aerrors.StorageFailure("upsertNode.lookup", err)
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO l5_nodes (id, node_type, value, chat_id, first_seen_at, last_seen_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, n.ID, string(n.NodeType), n.Value, n.ChatID, n.FirstSeenAt.UnixMilli(), n.LastSeenAt.UnixMilli()); err != nil {
		return "", m3aerrors.StorageFailure("upsertNode.insert", err)
	}
	return n.ID, nil
}

// ReinforceEdge upserts the edge between two nodes: a new co-occurrence adds
// weight and resets temporal_decay to 1.0 and last_reinforced_at to now.
func (s *Store) ReinforceEdge(ctx context.Context, id, sourceID, targetID string, weightDelta float64, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO l5_edges (id, source_node_id, target_node_id, weight, temporal_decay, last_reinforced_at, created_at)
		VALUES (?, ?, ?, ?, 1.0, ?, ?)
		ON CONFLICT(source_node_id, target_node_id) DO UPDATE SET
			weight = weight + excluded.weight,
			temporal_decay = 1.0,
			last_reinforced_at = excluded.last_reinforced_at
	`, id, sourceID, targetID, weightDelta, at.UnixMilli(), at.UnixMilli())
	if err != nil {
		return m3aerrors.StorageFailure("reinforceEdge", err)
	}
	return nil
}

// Neighbors returns every edge touching nodeID. internal/companion uses it
// in Reinforce and Neighbors; the retriever does not read L5.
func (s *Store) Neighbors(ctx context.Context, nodeID string) ([]L5Edge, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source_node_id, target_node_id, weight, temporal_decay, last_reinforced_at, created_at
		FROM l5_edges
		WHERE source_node_id = ? OR target_node_id = ?
		ORDER BY weight * temporal_decay DESC
	`, nodeID, nodeID)
	if err != nil {
		return nil, m3aerrors.StorageFailure("neighbors", err)
	}
	defer rows.Close()

	var out []L5Edge
	for rows.Next() {
		var e L5Edge
		var lastReinforced, createdAt int64
		if err := rows.Scan(&e.ID, &e.SourceNodeID, &e.TargetNodeID, &e.Weight, &e.TemporalDecay,
			&lastReinforced, &createdAt); err != nil {
			return nil, m3aerrors.StorageFailure("scanEdge", err)
		}
		e.LastReinforcedAt = time.UnixMilli(lastReinforced)
		e.CreatedAt = time.UnixMilli(createdAt)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, m3aerrors.StorageFailure("neighbors", err)
	}
	return out, nil
}

// DecayEdges multiplies temporal_decay by rate for every edge.
func (s *Store) DecayEdges(ctx context.Context, rate float64) error {
	_, err := s.db.ExecContext(ctx, `UPDATE l5_edges SET temporal_decay = temporal_decay * ?`, rate)
	if err != nil {
		return m3aerrors.StorageFailure("decayEdges", err)
	}
	return nil
}

// PruneWeakEdges deletes every edge whose effective weight (weight *
// temporal_decay) has fallen below threshold, returning the count removed.
func (s *Store) PruneWeakEdges(ctx context.Context, threshold float64) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM l5_edges WHERE weight * temporal_decay < ?
	`, threshold)
	if err != nil {
		return 0, m3aerrors.StorageFailure("pruneWeakEdges", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, m3aerrors.StorageFailure("pruneWeakEdges", err)
	}
	return int(n), nil
}

// NodeByID fetches a single companion-graph node.
func (s *Store) NodeByID(ctx context.Context, id string) (L5Node, error) {
	var n L5Node
	var nodeType string
	var chatID sql.NullString
	var firstSeen, lastSeen int64
	err := s.db.QueryRowContext(ctx, `
		SELECT id, node_type, value, chat_id, first_seen_at, last_seen_at FROM l5_nodes WHERE id = ?
	`, id).Scan(&n.ID, &nodeType, &n.Value, &chatID, &firstSeen, &lastSeen)
	if err == sql.ErrNoRows {
		return L5Node{}, m3aerrors.NotFound("node not found").WithContext("id", id)
	}
	if err != nil {
		return L5Node{}, m3aerrors.StorageFailure("nodeByID", err)
	}
	n.NodeType = NodeType(nodeType)
	if chatID.Valid {
		n.ChatID = &chatID.String
	}
	n.FirstSeenAt = time.UnixMilli(firstSeen)
	n.LastSeenAt = time.UnixMilli(lastSeen)
	return n, nil
}
