package arbor

import (
	"strings"
	"testing"
)

func TestLineageIDs(t *testing.T) {
	tests := []struct {
		name     string
		lineage  Lineage
		op       Operation
		expected string
	}{
		{"root", NoParent{}, OpInitial, ""},
		{"seed", RootParent{}, OpSeed, "root"},
		{"refine", SingleParent{ID: "node_3"}, OpRefine, "node_3"},
		{"aggregate", PairParent{A: "node_1", B: "node_0"}, OpAggregate, "node_1,node_0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := joinIDs(tt.lineage.IDs()); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
			if tt.lineage.operation() != tt.op {
				t.Errorf("expected operation %q, got %q", tt.op, tt.lineage.operation())
			}
		})
	}
}

func TestPairParentContains(t *testing.T) {
	p := PairParent{A: "node_1", B: "node_2"}
	if !p.Contains("node_1") || !p.Contains("node_2") {
		t.Error("expected both members to be contained")
	}
	if p.Contains("node_3") {
		t.Error("unexpected member")
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		limit    int
		expected string
	}{
		{"short", "hello", 10, "hello"},
		{"exact", "hello", 5, "hello"},
		{"long", "hello world", 5, "hello..."},
		{"multibyte", "سلام دنیا", 4, "سلام..."},
		{"no limit", "hello", 0, "hello"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := truncate(tt.input, tt.limit); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestThoughtNodeString(t *testing.T) {
	n := ThoughtNode{
		ID:      "node_4",
		Op:      OpRefine,
		Score:   7.256,
		Content: strings.Repeat("x", 80),
	}

	s := n.String()
	if !strings.HasPrefix(s, "node_4 [refine] score=7.26 ") {
		t.Errorf("unexpected prefix: %s", s)
	}
	if !strings.Contains(s, strings.Repeat("x", previewLength)+"...") {
		t.Errorf("expected content truncated to %d runes: %s", previewLength, s)
	}
}
