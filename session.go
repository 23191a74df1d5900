package arbor

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zoobzio/capitan"
)

// Outcome describes how a run ended.
type Outcome string

// Outcomes.
const (
	// OutcomePending means the session has not been processed yet.
	OutcomePending Outcome = "pending"
	// OutcomeDirect means the classifier judged the problem simple; the graph was not expanded.
	OutcomeDirect Outcome = "direct"
	// OutcomeNoExpansion means a cycle found fewer than two nodes to work with.
	OutcomeNoExpansion Outcome = "no_expansion"
	// OutcomeCompleted means every requested cycle ran.
	OutcomeCompleted Outcome = "completed"
)

// Session is one problem-solving run. It owns its graph exclusively; the
// reasoner is the only writer for the duration of a run.
type Session struct {
	TraceID string
	Problem string

	graph *Graph

	outcome    Outcome
	cyclesRun  int
	startedAt  time.Time
	finishedAt time.Time
	mu         sync.RWMutex
}

// NewSession creates a session for problem with a fresh graph.
// TraceID is auto-generated using UUID.
func NewSession(ctx context.Context, problem string) *Session {
	return NewSessionWithTrace(ctx, problem, uuid.New().String())
}

// NewSessionWithTrace creates a session with an explicit trace ID.
func NewSessionWithTrace(ctx context.Context, problem, traceID string) *Session {
	s := &Session{
		TraceID:   traceID,
		Problem:   problem,
		graph:     NewGraph(),
		outcome:   OutcomePending,
		startedAt: time.Now(),
	}

	capitan.Emit(ctx, SessionStarted,
		FieldTraceID.Field(s.TraceID),
		FieldProblem.Field(truncate(problem, 200)),
	)

	return s
}

// Graph returns the session's graph.
func (s *Session) Graph() *Graph {
	return s.graph
}

// Best returns the highest-scoring non-root thought.
// ok is false when no solution was produced.
func (s *Session) Best() (ThoughtNode, bool) {
	return s.graph.Best()
}

// Outcome returns how the run ended.
func (s *Session) Outcome() Outcome {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.outcome
}

// CyclesRun returns the number of cycles that performed expansion.
func (s *Session) CyclesRun() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cyclesRun
}

// Duration returns the time between creation and the end of the run,
// or the time elapsed so far if the run is in progress.
func (s *Session) Duration() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.finishedAt.IsZero() {
		return time.Since(s.startedAt)
	}
	return s.finishedAt.Sub(s.startedAt)
}

// StartedAt returns when the session was created.
func (s *Session) StartedAt() time.Time {
	return s.startedAt
}

func (s *Session) cycleDone() {
	s.mu.Lock()
	s.cyclesRun++
	s.mu.Unlock()
}

func (s *Session) finish(outcome Outcome) {
	s.mu.Lock()
	s.outcome = outcome
	s.finishedAt = time.Now()
	s.mu.Unlock()
}

type traceKeyType struct{}

var traceKey = traceKeyType{}

// withTraceID tags ctx so collaborators can correlate their signals with the session.
func withTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceKey, traceID)
}

func traceIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(traceKey).(string)
	return id
}
