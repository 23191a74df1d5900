package arbor

import (
	"context"
	"strings"
	"time"
)

// Archive stores finished sessions for auditing.
// Archived graphs are never read back into a running session.
type Archive interface {
	// SaveSession persists the session and every node in its graph.
	// A failed save leaves nothing of the session behind.
	SaveSession(ctx context.Context, s *Session) error

	// LoadSession loads an archived session and its nodes in insertion order.
	LoadSession(ctx context.Context, traceID string) (*SessionRecord, []NodeRecord, error)
}

// SessionRecord is the archived form of a Session.
type SessionRecord struct {
	ID         string    `db:"id" type:"uuid" constraints:"primarykey" default:"gen_random_uuid()"`
	TraceID    string    `db:"trace_id" type:"text" constraints:"notnull,unique"`
	Problem    string    `db:"problem" type:"text" constraints:"notnull"`
	Outcome    string    `db:"outcome" type:"text" constraints:"notnull"`
	CyclesRun  int       `db:"cycles_run" type:"integer" constraints:"notnull"`
	NodeCount  int       `db:"node_count" type:"integer" constraints:"notnull"`
	BestNodeID *string   `db:"best_node_id" type:"text"`
	BestScore  *float64  `db:"best_score" type:"double precision"`
	StartedAt  time.Time `db:"started_at" type:"timestamp" constraints:"notnull"`
	ArchivedAt time.Time `db:"archived_at" type:"timestamp" constraints:"notnull"`
}

// NodeRecord is the archived form of a ThoughtNode.
type NodeRecord struct {
	ID        string    `db:"id" type:"uuid" constraints:"primarykey" default:"gen_random_uuid()"`
	SessionID string    `db:"session_id" type:"uuid" constraints:"notnull" references:"sessions(id)"`
	NodeID    string    `db:"node_id" type:"text" constraints:"notnull"`
	Seq       int       `db:"seq" type:"integer" constraints:"notnull"`
	Operation string    `db:"operation" type:"text" constraints:"notnull"`
	Parents   string    `db:"parents" type:"text"` // comma-separated node ids
	Content   string    `db:"content" type:"text" constraints:"notnull"`
	Score     float64   `db:"score" type:"double precision" constraints:"notnull"`
	Created   time.Time `db:"created" type:"timestamp" constraints:"notnull"`
}

// NewSessionRecord converts a session into its archived form.
func NewSessionRecord(s *Session) *SessionRecord {
	rec := &SessionRecord{
		TraceID:    s.TraceID,
		Problem:    s.Problem,
		Outcome:    string(s.Outcome()),
		CyclesRun:  s.CyclesRun(),
		NodeCount:  s.graph.Len(),
		StartedAt:  s.startedAt,
		ArchivedAt: time.Now(),
	}
	if best, ok := s.Best(); ok {
		id := string(best.ID)
		score := best.Score
		rec.BestNodeID = &id
		rec.BestScore = &score
	}
	return rec
}

// NewNodeRecord converts a node into its archived form.
func NewNodeRecord(sessionID string, n ThoughtNode) *NodeRecord {
	return &NodeRecord{
		SessionID: sessionID,
		NodeID:    string(n.ID),
		Seq:       n.Seq,
		Operation: string(n.Op),
		Parents:   joinIDs(n.Lineage.IDs()),
		Content:   n.Content,
		Score:     n.Score,
		Created:   n.Created,
	}
}

// Lineage rebuilds the typed lineage of an archived node.
// It returns nil if the stored parents do not fit the stored operation.
func (r NodeRecord) Lineage() Lineage {
	var ids []NodeID
	if r.Parents != "" {
		for _, part := range strings.Split(r.Parents, ",") {
			ids = append(ids, NodeID(part))
		}
	}

	switch Operation(r.Operation) {
	case OpInitial:
		if len(ids) == 0 {
			return NoParent{}
		}
	case OpSeed:
		if len(ids) == 1 && ids[0] == RootID {
			return RootParent{}
		}
	case OpRefine:
		if len(ids) == 1 {
			return SingleParent{ID: ids[0]}
		}
	case OpAggregate:
		if len(ids) == 2 {
			return PairParent{A: ids[0], B: ids[1]}
		}
	}
	return nil
}

// SessionSnapshot is a serialisable copy of a session for file export.
type SessionSnapshot struct {
	TraceID   string         `json:"trace_id" yaml:"trace_id"`
	Problem   string         `json:"problem" yaml:"problem"`
	Outcome   Outcome        `json:"outcome" yaml:"outcome"`
	CyclesRun int            `json:"cycles_run" yaml:"cycles_run"`
	Best      *NodeSnapshot  `json:"best,omitempty" yaml:"best,omitempty"`
	Nodes     []NodeSnapshot `json:"nodes" yaml:"nodes"`
}

// NodeSnapshot is a serialisable copy of a node.
type NodeSnapshot struct {
	ID        NodeID    `json:"id" yaml:"id"`
	Operation Operation `json:"operation" yaml:"operation"`
	Parents   []NodeID  `json:"parents,omitempty" yaml:"parents,omitempty"`
	Score     float64   `json:"score" yaml:"score"`
	Content   string    `json:"content" yaml:"content"`
	Created   time.Time `json:"created" yaml:"created"`
}

// Snapshot copies the session's current state. Nodes are in insertion order.
func (s *Session) Snapshot() SessionSnapshot {
	nodes := s.graph.Nodes()
	snap := SessionSnapshot{
		TraceID:   s.TraceID,
		Problem:   s.Problem,
		Outcome:   s.Outcome(),
		CyclesRun: s.CyclesRun(),
		Nodes:     make([]NodeSnapshot, len(nodes)),
	}
	for i, n := range nodes {
		snap.Nodes[i] = nodeSnapshot(n)
	}
	if best, ok := s.Best(); ok {
		b := nodeSnapshot(best)
		snap.Best = &b
	}
	return snap
}

func nodeSnapshot(n ThoughtNode) NodeSnapshot {
	return NodeSnapshot{
		ID:        n.ID,
		Operation: n.Op,
		Parents:   n.Lineage.IDs(),
		Score:     n.Score,
		Content:   n.Content,
		Created:   n.Created,
	}
}
