package arbor

import (
	"context"
	"strings"
	"testing"
)

func TestIsAffirmative(t *testing.T) {
	tests := []struct {
		resp     string
		expected bool
	}{
		{"YES", true},
		{"yes", true},
		{"Yes, it does.", true},
		{"  yes\n", true},
		{"NO", false},
		{"MAYBE", false},
		{"", false},
		{"no, not really", false},
		// Substring match: any occurrence counts.
		{"eyes", true},
	}

	for _, tt := range tests {
		t.Run(tt.resp, func(t *testing.T) {
			if got := IsAffirmative(tt.resp); got != tt.expected {
				t.Errorf("IsAffirmative(%q) = %v, want %v", tt.resp, got, tt.expected)
			}
		})
	}
}

func TestClassifier(t *testing.T) {
	ctx := context.Background()
	p := DefaultPrompts()

	t.Run("makes exactly one unstructured call", func(t *testing.T) {
		oracle := newMockOracle().on(p.Classifier, "YES")
		if !NewClassifier(oracle).NeedsComplexReasoning(ctx, "Plan a migration") {
			t.Error("expected YES to need complex reasoning")
		}
		if oracle.callCount() != 1 {
			t.Fatalf("expected 1 call, got %d", oracle.callCount())
		}

		call := oracle.callsFor(p.Classifier)[0]
		if call.structured {
			t.Error("classification must not be structured")
		}
		if !strings.Contains(call.prompt, `"Plan a migration"`) {
			t.Errorf("prompt should quote the problem: %s", call.prompt)
		}
		if !strings.Contains(call.prompt, "YES or NO") {
			t.Errorf("prompt should ask for YES or NO: %s", call.prompt)
		}
	})

	t.Run("failed call is fail-closed", func(t *testing.T) {
		if NewClassifier(newMockOracle()).NeedsComplexReasoning(ctx, "problem") {
			t.Error("empty response must not expand")
		}
	})

	t.Run("custom system instruction", func(t *testing.T) {
		oracle := newMockOracle().on("triage", "yes")
		if !NewClassifier(oracle).WithSystem("triage").NeedsComplexReasoning(ctx, "problem") {
			t.Error("expected custom instruction to be used")
		}
	})
}
