package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/kittclouds/m3a/internal/m3aerrors"
)

// UpsertEntity inserts a new entity or, if one already exists with the same
// (entity_type, value, chat scope), bumps its last_seen_at and returns the
// existing id (I7: entity identity survives repeat mentions).
func (s *Store) UpsertEntity(ctx context.Context, e L3Entity) (string, error) {
	var chatScope string
	if e.ChatID != nil {
		chatScope = *e.ChatID
	}

	var existingID string
	err := s.db.QueryRowContext(ctx, `
		SELECT id FROM l3_entities WHERE entity_type = ? AND value = ? AND COALESCE(chat_id, '') = ?
	`, string(e.EntityType), e.Value, chatScope).Scan(&existingID)
	if err == nil {
		if _, err := s.db.ExecContext(ctx, `
			UPDATE l3_entities SET last_seen_at = ? WHERE id = ?
		`, e.LastSeenAt.UnixMilli(), existingID); err != nil {
			return "", m3aerrors.StorageFailure("upsertEntity.touch", err)
		}
		return existingID, nil
	}
	if err != sql.ErrNoRows {
		return "", m3aerrors.StorageFailure("upsertEntity.lookup", err)
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO l3_entities (id, entity_type, value, canonical_form, chat_id, first_seen_at, last_seen_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, e.ID, string(e.EntityType), e.Value, e.CanonicalForm, e.ChatID, e.FirstSeenAt.UnixMilli(), e.LastSeenAt.UnixMilli()); err != nil {
		return "", m3aerrors.StorageFailure("upsertEntity.insert", err)
	}
	return e.ID, nil
}

// InsertRelation appends a new, immutable edge between two entities.
// Relations are append-only: repeat extraction of the same fact adds
// another row rather than mutating one, preserving provenance per message.
func (s *Store) InsertRelation(ctx context.Context, r L3Relation) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO l3_relations (id, source_entity_id, target_entity_id, relation_type, context_message_id, confidence, is_muted, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.SourceEntityID, r.TargetEntityID, string(r.RelationType), r.ContextMessageID,
		r.Confidence, boolToInt(r.IsMuted), r.CreatedAt.UnixMilli())
	if err != nil {
		return m3aerrors.StorageFailure("insertRelation", err)
	}
	return nil
}

// EntityByID fetches a single entity row.
func (s *Store) EntityByID(ctx context.Context, id string) (L3Entity, error) {
	var e L3Entity
	var entityType string
	var chatID sql.NullString
	var firstSeen, lastSeen int64
	err := s.db.QueryRowContext(ctx, `
		SELECT id, entity_type, value, canonical_form, chat_id, first_seen_at, last_seen_at
		FROM l3_entities WHERE id = ?
	`, id).Scan(&e.ID, &entityType, &e.Value, &e.CanonicalForm, &chatID, &firstSeen, &lastSeen)
	if err == sql.ErrNoRows {
		return L3Entity{}, m3aerrors.NotFound("entity not found").WithContext("id", id)
	}
	if err != nil {
		return L3Entity{}, m3aerrors.StorageFailure("entityByID", err)
	}
	e.EntityType = EntityType(entityType)
	if chatID.Valid {
		e.ChatID = &chatID.String
	}
	e.FirstSeenAt = time.UnixMilli(firstSeen)
	e.LastSeenAt = time.UnixMilli(lastSeen)
	return e, nil
}

// RelationsTouching returns every unmuted relation where entityID appears as
// either source or target, used by the BFS neighbor expansion in
// internal/echo's getRelated.
func (s *Store) RelationsTouching(ctx context.Context, entityID string) ([]L3Relation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source_entity_id, target_entity_id, relation_type, context_message_id, confidence, is_muted, created_at
		FROM l3_relations
		WHERE (source_entity_id = ? OR target_entity_id = ?) AND is_muted = 0
	`, entityID, entityID)
	if err != nil {
		return nil, m3aerrors.StorageFailure("relationsTouching", err)
	}
	defer rows.Close()

	var out []L3Relation
	for rows.Next() {
		var r L3Relation
		var relType string
		var muted int
		var createdAt int64
		var contextMsg sql.NullString
		if err := rows.Scan(&r.ID, &r.SourceEntityID, &r.TargetEntityID, &relType, &contextMsg,
			&r.Confidence, &muted, &createdAt); err != nil {
			return nil, m3aerrors.StorageFailure("scanRelation", err)
		}
		r.RelationType = RelationType(relType)
		r.ContextMessageID = contextMsg.String
		r.IsMuted = intToBool(muted)
		r.CreatedAt = time.UnixMilli(createdAt)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, m3aerrors.StorageFailure("relationsTouching", err)
	}
	return out, nil
}

// FindEntitiesByValue returns every entity matching value, scoped to chatID
// plus the global scope (chat_id IS NULL) when chatID is non-nil, used to
// seed the getRelated BFS.
func (s *Store) FindEntitiesByValue(ctx context.Context, value string, chatID *string) ([]L3Entity, error) {
	var rows *sql.Rows
	var err error
	if chatID != nil {
		rows, err = s.db.QueryContext(ctx, `
			SELECT id, entity_type, value, canonical_form, chat_id, first_seen_at, last_seen_at
			FROM l3_entities WHERE value = ? AND (chat_id = ? OR chat_id IS NULL)
		`, value, *chatID)
	} else {
		rows, err = s.db.QueryContext(ctx, `
			SELECT id, entity_type, value, canonical_form, chat_id, first_seen_at, last_seen_at
			FROM l3_entities WHERE value = ?
		`, value)
	}
	if err != nil {
		return nil, m3aerrors.StorageFailure("findEntitiesByValue", err)
	}
	defer rows.Close()

	var out []L3Entity
	for rows.Next() {
		var ent L3Entity
		var entityType string
		var cid sql.NullString
		var firstSeen, lastSeen int64
		if err := rows.Scan(&ent.ID, &entityType, &ent.Value, &ent.CanonicalForm, &cid, &firstSeen, &lastSeen); err != nil {
			return nil, m3aerrors.StorageFailure("scanEntity", err)
		}
		ent.EntityType = EntityType(entityType)
		if cid.Valid {
			ent.ChatID = &cid.String
		}
		ent.FirstSeenAt = time.UnixMilli(firstSeen)
		ent.LastSeenAt = time.UnixMilli(lastSeen)
		out = append(out, ent)
	}
	if err := rows.Err(); err != nil {
		return nil, m3aerrors.StorageFailure("findEntitiesByValue", err)
	}
	return out, nil
}

// FindEntityByValue looks up an entity by exact value within a chat scope
// (or the global scope when chatID is nil). The write pipeline does not call
// it; it resolves relation endpoints from the entities upserted in the same
// run.
func (s *Store) FindEntityByValue(ctx context.Context, entityType EntityType, value string, chatID *string) (string, bool, error) {
	var scope string
	if chatID != nil {
		scope = *chatID
	}
	var id string
	err := s.db.QueryRowContext(ctx, `
		SELECT id FROM l3_entities WHERE entity_type = ? AND value = ? AND COALESCE(chat_id, '') = ?
	`, string(entityType), value, scope).Scan(&id)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, m3aerrors.StorageFailure("findEntityByValue", err)
	}
	return id, true, nil
}
