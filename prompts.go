package arbor

import (
	"fmt"
	"strings"
)

// Prompts holds the system instructions sent with each kind of oracle call.
// User prompts are built from the problem and node content and are not configurable.
type Prompts struct {
	Classifier string
	Scorer     string
	Seeder     string
	Refiner    string
	Aggregator string
}

// DefaultPrompts returns the built-in system instructions.
func DefaultPrompts() Prompts {
	return Prompts{
		Classifier: "You are an expert at classifying tasks by the kind of reasoning they require.",
		Scorer:     "You are a strict, logical evaluator of reasoning steps.",
		Seeder:     "You are a creative idea generator for problem solving.",
		Refiner:    "You are a precise and logical thinker.",
		Aggregator: "You are a strategist who combines ideas into stronger ones.",
	}
}

// withDefaults fills empty instructions from DefaultPrompts.
func (p Prompts) withDefaults() Prompts {
	d := DefaultPrompts()
	if p.Classifier == "" {
		p.Classifier = d.Classifier
	}
	if p.Scorer == "" {
		p.Scorer = d.Scorer
	}
	if p.Seeder == "" {
		p.Seeder = d.Seeder
	}
	if p.Refiner == "" {
		p.Refiner = d.Refiner
	}
	if p.Aggregator == "" {
		p.Aggregator = d.Aggregator
	}
	return p
}

func buildClassifierPrompt(problem string) string {
	var b strings.Builder
	b.WriteString("Consider the following question:\n")
	fmt.Fprintf(&b, "%q\n\n", problem)
	b.WriteString("Does answering it require multi-step thinking, planning or deep reasoning, ")
	b.WriteString("or is it a simple factual question that can be answered directly?\n")
	b.WriteString("Answer with a single word: YES or NO.")
	return b.String()
}

func buildScorerPrompt(problem, candidate string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The problem is: %q\n", problem)
	fmt.Fprintf(&b, "A proposed thought or step towards solving it is: %q\n\n", candidate)
	b.WriteString("As a logician, evaluate how much this thought advances the final solution. ")
	b.WriteString("Is it a valid and useful step?\n")
	b.WriteString("Rate it from 1 to 10.\n")
	b.WriteString(`Respond only in this JSON format: {"score": <number>, "reason": "<short reason>"}`)
	return b.String()
}

func buildSeedPrompt(problem string, count int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The problem is: %q\n", problem)
	fmt.Fprintf(&b, "Propose %d different initial ideas or first steps for solving it.\n", count)
	b.WriteString(`The answer must be a JSON list of strings. Example: ["The first step is to...", "It may be better to start with..."]`)
	return b.String()
}

func buildRefinePrompt(problem, thought string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Problem: %q\n", problem)
	fmt.Fprintf(&b, "The current thought is: %q\n", thought)
	b.WriteString("Make this thought more precise, more complete or more correct, ")
	b.WriteString("or add the next logical step to it.\n")
	b.WriteString("Important: return only the text of the improved thought.")
	return b.String()
}

func buildAggregatePrompt(problem, first, second string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Problem: %q\n", problem)
	b.WriteString("There are two ideas for solving it:\n")
	fmt.Fprintf(&b, "Idea A: %q\n", first)
	fmt.Fprintf(&b, "Idea B: %q\n", second)
	b.WriteString("Combine the best aspects of both ideas into a single, stronger thought or solution.\n")
	b.WriteString("Important: return only the text of the new thought.")
	return b.String()
}
