package arbor

import (
	"context"
	"strings"

	"github.com/zoobzio/capitan"
)

// Classifier decides whether a problem warrants multi-step reasoning.
//
// The decision is fail-closed: only a response containing "YES"
// (case-insensitive) counts as a positive answer. Empty, garbled and
// failed responses all mean no expansion.
type Classifier struct {
	oracle Oracle
	system string
}

// NewClassifier creates a classifier that consults oracle.
func NewClassifier(oracle Oracle) *Classifier {
	return &Classifier{
		oracle: oracle,
		system: DefaultPrompts().Classifier,
	}
}

// WithSystem overrides the system instruction sent with the classification call.
func (c *Classifier) WithSystem(system string) *Classifier {
	c.system = system
	return c
}

// NeedsComplexReasoning makes exactly one oracle call.
func (c *Classifier) NeedsComplexReasoning(ctx context.Context, problem string) bool {
	resp := c.oracle.Generate(ctx, buildClassifierPrompt(problem), c.system, false)
	decision := IsAffirmative(resp)

	answer := "no"
	if decision {
		answer = "yes"
	}
	capitan.Emit(ctx, ClassificationCompleted,
		FieldTraceID.Field(traceIDFrom(ctx)),
		FieldDecision.Field(answer),
		FieldResponse.Field(truncate(resp, previewLength)),
	)

	return decision
}

// IsAffirmative applies the classifier's decision rule to a raw response.
func IsAffirmative(resp string) bool {
	return strings.Contains(strings.ToUpper(resp), "YES")
}
