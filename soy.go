package arbor

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/zoobzio/astql/postgres"
	"github.com/zoobzio/soy"
)

// SoyArchive implements Archive using soy for PostgreSQL persistence.
type SoyArchive struct {
	sessions *soy.Soy[SessionRecord]
	nodes    *soy.Soy[NodeRecord]
	db       *sqlx.DB
}

// NewSoyArchive creates a new soy-backed Archive implementation.
func NewSoyArchive(db *sqlx.DB) (*SoyArchive, error) {
	renderer := postgres.New()

	sessions, err := soy.New[SessionRecord](db, "sessions", renderer)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sessions table: %w", err)
	}

	nodes, err := soy.New[NodeRecord](db, "thought_nodes", renderer)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize thought_nodes table: %w", err)
	}

	return &SoyArchive{
		sessions: sessions,
		nodes:    nodes,
		db:       db,
	}, nil
}

// SaveSession persists the session row and then one row per node.
// If a node insert fails, the rows already written for the session are
// removed before the error is returned.
func (a *SoyArchive) SaveSession(ctx context.Context, s *Session) error {
	inserted, err := a.sessions.Insert().Exec(ctx, NewSessionRecord(s))
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}

	for _, node := range s.graph.Nodes() {
		if _, err := a.nodes.Insert().Exec(ctx, NewNodeRecord(inserted.ID, node)); err != nil {
			err = fmt.Errorf("failed to insert node %s: %w", node.ID, err)
			if purgeErr := a.purge(ctx, inserted.ID); purgeErr != nil {
				return errors.Join(err, purgeErr)
			}
			return err
		}
	}

	return nil
}

// LoadSession loads an archived session by trace ID with its nodes in insertion order.
func (a *SoyArchive) LoadSession(ctx context.Context, traceID string) (*SessionRecord, []NodeRecord, error) {
	session, err := a.sessions.Select().
		Where("trace_id", "=", "trace_id").
		Exec(ctx, map[string]any{"trace_id": traceID})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get session: %w", err)
	}

	nodePtrs, err := a.nodes.Query().
		Where("session_id", "=", "session_id").
		OrderBy("seq", "asc").
		Exec(ctx, map[string]any{"session_id": session.ID})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get nodes: %w", err)
	}

	nodes := make([]NodeRecord, len(nodePtrs))
	for i, n := range nodePtrs {
		nodes[i] = *n
	}
	return session, nodes, nil
}

// DeleteSession removes an archived session and its nodes.
func (a *SoyArchive) DeleteSession(ctx context.Context, traceID string) error {
	session, err := a.sessions.Select().
		Where("trace_id", "=", "trace_id").
		Exec(ctx, map[string]any{"trace_id": traceID})
	if err != nil {
		return fmt.Errorf("failed to get session: %w", err)
	}

	return a.purge(ctx, session.ID)
}

// purge removes a session row and its nodes by session id.
func (a *SoyArchive) purge(ctx context.Context, sessionID string) error {
	// Nodes first (foreign key constraint).
	_, err := a.nodes.Remove().
		Where("session_id", "=", "session_id").
		Exec(ctx, map[string]any{"session_id": sessionID})
	if err != nil {
		return fmt.Errorf("failed to delete nodes: %w", err)
	}

	_, err = a.sessions.Remove().
		Where("id", "=", "id").
		Exec(ctx, map[string]any{"id": sessionID})
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	return nil
}

// Close closes the underlying database connection.
func (a *SoyArchive) Close() error {
	return a.db.Close()
}

var _ Archive = (*SoyArchive)(nil)
