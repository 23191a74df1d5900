package arbor

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/zoobzio/zyn"
)

// oracleCall records one Generate invocation.
type oracleCall struct {
	prompt     string
	system     string
	structured bool
}

// mockOracle answers by system instruction. Each entry is a queue; the last
// response repeats once the queue is drained. Unknown instructions get "".
type mockOracle struct {
	responses map[string][]string
	served    map[string]int
	calls     []oracleCall
	mu        sync.Mutex
}

func newMockOracle() *mockOracle {
	return &mockOracle{
		responses: make(map[string][]string),
		served:    make(map[string]int),
	}
}

func (m *mockOracle) on(system string, responses ...string) *mockOracle {
	m.responses[system] = append(m.responses[system], responses...)
	return m
}

func (m *mockOracle) Generate(_ context.Context, prompt, system string, structured bool) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, oracleCall{prompt: prompt, system: system, structured: structured})
	queue := m.responses[system]
	if len(queue) == 0 {
		return ""
	}
	n := m.served[system]
	m.served[system] = n + 1
	if n >= len(queue) {
		n = len(queue) - 1
	}
	return queue[n]
}

func (m *mockOracle) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func (m *mockOracle) callsFor(system string) []oracleCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []oracleCall
	for _, c := range m.calls {
		if c.system == system {
			out = append(out, c)
		}
	}
	return out
}

// newExpandingOracle scripts a run that says YES, seeds the given thoughts
// and scores every candidate with score.
func newExpandingOracle(seeds string, score string) *mockOracle {
	p := DefaultPrompts()
	return newMockOracle().
		on(p.Classifier, "YES").
		on(p.Seeder, seeds).
		on(p.Scorer, score).
		on(p.Refiner, "refined thought").
		on(p.Aggregator, "aggregated thought")
}

// mockProvider implements Provider for testing.
type mockProvider struct {
	name     string
	response string
	err      error
	messages [][]zyn.Message
	temps    []float32
	mu       sync.Mutex
}

func (m *mockProvider) Call(_ context.Context, messages []zyn.Message, temperature float32) (*zyn.ProviderResponse, error) {
	m.mu.Lock()
	m.messages = append(m.messages, messages)
	m.temps = append(m.temps, temperature)
	m.mu.Unlock()

	if m.err != nil {
		return nil, m.err
	}
	return &zyn.ProviderResponse{
		Content: m.response,
		Usage: zyn.TokenUsage{
			Prompt:     10,
			Completion: 5,
			Total:      15,
		},
	}, nil
}

func (m *mockProvider) Name() string {
	return m.name
}

// mockStructuredProvider records which entry point served each call.
type mockStructuredProvider struct {
	mockProvider
	structuredCalls int
}

func (m *mockStructuredProvider) CallStructured(ctx context.Context, messages []zyn.Message, temperature float32) (*zyn.ProviderResponse, error) {
	m.mu.Lock()
	m.structuredCalls++
	m.mu.Unlock()
	return m.mockProvider.Call(ctx, messages, temperature)
}

// scriptedProvider answers by the leading system instruction, like mockOracle
// but behind the Provider interface.
type scriptedProvider struct {
	responses map[string]string
}

func (s *scriptedProvider) Call(_ context.Context, messages []zyn.Message, _ float32) (*zyn.ProviderResponse, error) {
	if len(messages) == 0 {
		return nil, errors.New("no messages")
	}
	for system, resp := range s.responses {
		if strings.HasPrefix(messages[0].Content, system) {
			return &zyn.ProviderResponse{Content: resp}, nil
		}
	}
	return &zyn.ProviderResponse{}, nil
}

func (s *scriptedProvider) Name() string {
	return "scripted"
}
