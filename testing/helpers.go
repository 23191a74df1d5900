// Package arbortest provides test utilities for arbor.
package arbortest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/zoobzio/arbor"
	"github.com/zoobzio/zyn"
)

// Role identifies which phase issued an oracle call.
type Role string

// Roles, matched against the default system instructions.
const (
	RoleClassify  Role = "classify"
	RoleScore     Role = "score"
	RoleSeed      Role = "seed"
	RoleRefine    Role = "refine"
	RoleAggregate Role = "aggregate"
	RoleUnknown   Role = "unknown"
)

// RoleOf maps a system instruction to the phase that sends it.
// Only the default prompts are recognised.
func RoleOf(system string) Role {
	p := arbor.DefaultPrompts()
	switch {
	case strings.HasPrefix(system, p.Classifier):
		return RoleClassify
	case strings.HasPrefix(system, p.Scorer):
		return RoleScore
	case strings.HasPrefix(system, p.Seeder):
		return RoleSeed
	case strings.HasPrefix(system, p.Refiner):
		return RoleRefine
	case strings.HasPrefix(system, p.Aggregator):
		return RoleAggregate
	default:
		return RoleUnknown
	}
}

// Call records a single oracle invocation.
type Call struct {
	Role       Role
	Prompt     string
	System     string
	Structured bool
}

// ScriptedOracle is an arbor.Oracle that answers from per-role scripts.
//
// Responses for a role are served in order; once exhausted the last response
// repeats. A role with no script answers "". Handlers set with Handle take
// precedence over scripts.
type ScriptedOracle struct {
	scripts  map[Role][]string
	handlers map[Role]func(Call) string
	counts   map[Role]int
	calls    []Call
	mu       sync.Mutex
}

// NewScriptedOracle creates an oracle with no scripts.
func NewScriptedOracle() *ScriptedOracle {
	return &ScriptedOracle{
		scripts:  make(map[Role][]string),
		handlers: make(map[Role]func(Call) string),
		counts:   make(map[Role]int),
	}
}

// NewSucceedingOracle creates an oracle whose every call succeeds:
// the classifier says YES, seeding returns seeds thoughts, refinement and
// aggregation return numbered thoughts, and every score is 5.
func NewSucceedingOracle(seeds int) *ScriptedOracle {
	ideas := make([]string, seeds)
	for i := range ideas {
		ideas[i] = fmt.Sprintf("%q", fmt.Sprintf("seed idea %d", i+1))
	}

	o := NewScriptedOracle().
		On(RoleClassify, "YES").
		On(RoleSeed, "["+strings.Join(ideas, ",")+"]").
		On(RoleScore, `{"score": 5, "reason": "reasonable step"}`)
	o.Handle(RoleRefine, func(c Call) string {
		return fmt.Sprintf("refined thought %d", o.Count(RoleRefine))
	})
	o.Handle(RoleAggregate, func(c Call) string {
		return fmt.Sprintf("aggregated thought %d", o.Count(RoleAggregate))
	})
	return o
}

// On appends scripted responses for role.
func (o *ScriptedOracle) On(role Role, responses ...string) *ScriptedOracle {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.scripts[role] = append(o.scripts[role], responses...)
	return o
}

// Handle answers every call for role with fn.
func (o *ScriptedOracle) Handle(role Role, fn func(Call) string) *ScriptedOracle {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.handlers[role] = fn
	return o
}

// Generate implements arbor.Oracle.
func (o *ScriptedOracle) Generate(_ context.Context, prompt, system string, structured bool) string {
	call := Call{
		Role:       RoleOf(system),
		Prompt:     prompt,
		System:     system,
		Structured: structured,
	}

	o.mu.Lock()
	o.calls = append(o.calls, call)
	n := o.counts[call.Role]
	o.counts[call.Role] = n + 1
	handler := o.handlers[call.Role]
	script := o.scripts[call.Role]
	o.mu.Unlock()

	if handler != nil {
		return handler(call)
	}
	if len(script) == 0 {
		return ""
	}
	if n >= len(script) {
		n = len(script) - 1
	}
	return script[n]
}

// Calls returns every recorded call in order.
func (o *ScriptedOracle) Calls() []Call {
	o.mu.Lock()
	defer o.mu.Unlock()
	calls := make([]Call, len(o.calls))
	copy(calls, o.calls)
	return calls
}

// Count returns how many calls role has received.
func (o *ScriptedOracle) Count(role Role) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.counts[role]
}

var _ arbor.Oracle = (*ScriptedOracle)(nil)

// MockProvider implements arbor.Provider with a response function.
type MockProvider struct {
	name    string
	respond func(messages []zyn.Message) (string, error)
	calls   [][]zyn.Message
	mu      sync.Mutex
}

// NewMockProvider creates a provider that answers with respond.
func NewMockProvider(name string, respond func(messages []zyn.Message) (string, error)) *MockProvider {
	return &MockProvider{name: name, respond: respond}
}

// Call implements arbor.Provider.
func (m *MockProvider) Call(_ context.Context, messages []zyn.Message, _ float32) (*zyn.ProviderResponse, error) {
	m.mu.Lock()
	m.calls = append(m.calls, messages)
	m.mu.Unlock()

	content, err := m.respond(messages)
	if err != nil {
		return nil, err
	}
	return &zyn.ProviderResponse{
		Content: content,
		Usage: zyn.TokenUsage{
			Prompt:     10,
			Completion: 5,
			Total:      15,
		},
	}, nil
}

// Name implements arbor.Provider.
func (m *MockProvider) Name() string {
	return m.name
}

// CallCount returns the number of calls received.
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

var _ arbor.Provider = (*MockProvider)(nil)

// MockArchive implements arbor.Archive in memory.
type MockArchive struct {
	sessions map[string]*arbor.SessionRecord
	nodes    map[string][]arbor.NodeRecord
	mu       sync.RWMutex
}

// NewMockArchive creates an empty in-memory archive.
func NewMockArchive() *MockArchive {
	return &MockArchive{
		sessions: make(map[string]*arbor.SessionRecord),
		nodes:    make(map[string][]arbor.NodeRecord),
	}
}

// SaveSession implements arbor.Archive.
func (m *MockArchive) SaveSession(_ context.Context, s *arbor.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[s.TraceID]; exists {
		return fmt.Errorf("session already archived: %s", s.TraceID)
	}

	rec := arbor.NewSessionRecord(s)
	rec.ID = s.TraceID
	m.sessions[s.TraceID] = rec

	nodes := s.Graph().Nodes()
	records := make([]arbor.NodeRecord, len(nodes))
	for i, n := range nodes {
		records[i] = *arbor.NewNodeRecord(rec.ID, n)
	}
	m.nodes[s.TraceID] = records
	return nil
}

// LoadSession implements arbor.Archive.
func (m *MockArchive) LoadSession(_ context.Context, traceID string) (*arbor.SessionRecord, []arbor.NodeRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.sessions[traceID]
	if !ok {
		return nil, nil, fmt.Errorf("session not found: %s", traceID)
	}
	nodes := make([]arbor.NodeRecord, len(m.nodes[traceID]))
	copy(nodes, m.nodes[traceID])
	return rec, nodes, nil
}

var _ arbor.Archive = (*MockArchive)(nil)

// NewTestSession creates a session with a fixed trace ID for testing.
func NewTestSession(t *testing.T, problem string) *arbor.Session {
	t.Helper()
	return arbor.NewSessionWithTrace(context.Background(), problem, "test-"+t.Name())
}

// RequireNodeCount asserts the number of non-root nodes in the session's graph.
func RequireNodeCount(t *testing.T, s *arbor.Session, expected int) {
	t.Helper()
	got := s.Graph().Len() - 1
	if got != expected {
		t.Fatalf("expected %d non-root nodes, got %d", expected, got)
	}
}

// RequireLineageValid asserts that every node's parents were inserted before it.
func RequireLineageValid(t *testing.T, s *arbor.Session) {
	t.Helper()
	seen := make(map[arbor.NodeID]bool)
	for _, n := range s.Graph().Nodes() {
		for _, parent := range n.Lineage.IDs() {
			if !seen[parent] {
				t.Fatalf("node %s references %s before it was inserted", n.ID, parent)
			}
		}
		seen[n.ID] = true
	}
}
