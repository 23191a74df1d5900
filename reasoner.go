package arbor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/pipz"
)

// Reasoner errors.
var (
	ErrNilSession       = errors.New("session is nil")
	ErrSessionProcessed = errors.New("session has already been processed")
)

// Reasoner is the expansion policy that grows a session's thought graph.
// It implements pipz.Chainable[*Session].
//
// A run has three phases:
//
//  1. Gate: one classifier call. A negative answer ends the run with OutcomeDirect.
//  2. Seed: one generation call for the initial thoughts, then one scoring
//     call per thought. Each is inserted under the root.
//  3. Cycles: exactly the configured number of times, rank every node (root
//     included) by score, refine the best and aggregate the top two. Both
//     steps use the ranking taken at the start of the cycle, so a node
//     refined in this cycle is not eligible for this cycle's aggregation.
//     A cycle with fewer than two nodes ends the run with OutcomeNoExpansion.
//
// Calls are sequential. A run makes at most 1 + 2N + 4*cycles oracle calls,
// where N is the configured number of initial thoughts. Extra seeds from the
// oracle are dropped, so a completed run holds at most N + 2*cycles thoughts.
//
// # Failure Behavior
//
// Oracle failures never abort a run. A blank refinement or aggregation is
// skipped for that cycle. An unreadable seed response leaves the graph with
// only its root, and an unreadable score becomes 0. Process only returns an
// error for configuration faults.
type Reasoner struct {
	identity pipz.Identity

	oracle   Oracle
	judge    Oracle
	provider Provider

	temperature          float32
	judgementTemperature float32
	initialThoughts      int
	cycles               int
	prompts              Prompts
}

// NewReasoner creates a reasoner with the package defaults.
func NewReasoner() *Reasoner {
	return &Reasoner{
		identity:             pipz.NewIdentity("graph-of-thoughts", "Graph-of-thoughts expansion policy"),
		temperature:          DefaultTemperature,
		judgementTemperature: DefaultJudgementTemperature,
		initialThoughts:      DefaultInitialThoughts,
		cycles:               DefaultCycles,
		prompts:              DefaultPrompts(),
	}
}

// Solve creates a session for problem and runs it to completion.
func (r *Reasoner) Solve(ctx context.Context, problem string) (*Session, error) {
	return r.Process(ctx, NewSession(ctx, problem))
}

// Process implements pipz.Chainable[*Session].
func (r *Reasoner) Process(ctx context.Context, s *Session) (*Session, error) {
	if s == nil {
		return nil, ErrNilSession
	}
	if s.Outcome() != OutcomePending {
		return s, fmt.Errorf("reasoner: %w: %s", ErrSessionProcessed, s.TraceID)
	}

	generator, judge, err := r.resolveOracles(ctx)
	if err != nil {
		return s, fmt.Errorf("reasoner: %w", err)
	}

	ctx = withTraceID(ctx, s.TraceID)
	start := time.Now()

	run := &expansion{
		session:    s,
		generator:  generator,
		scorer:     NewScorer(judge).WithSystem(r.prompts.Scorer),
		classifier: NewClassifier(judge).WithSystem(r.prompts.Classifier),
		prompts:    r.prompts,
	}

	if !run.classifier.NeedsComplexReasoning(ctx, s.Problem) {
		s.finish(OutcomeDirect)
		r.emitCompleted(ctx, s, start)
		return s, nil
	}

	run.seed(ctx, r.initialThoughts)

	outcome := OutcomeCompleted
	for i := 0; i < r.cycles; i++ {
		if !run.cycle(ctx, i+1, r.cycles) {
			outcome = OutcomeNoExpansion
			break
		}
	}

	s.finish(outcome)
	r.emitCompleted(ctx, s, start)

	return s, nil
}

// resolveOracles picks the generative and judgement oracles.
// An explicit oracle wins; otherwise both wrap the resolved provider
// at their respective temperatures.
func (r *Reasoner) resolveOracles(ctx context.Context) (Oracle, Oracle, error) {
	generator := r.oracle
	judge := r.judge

	if generator == nil {
		provider, err := ResolveProvider(ctx, r.provider)
		if err != nil {
			return nil, nil, err
		}
		generator = NewProviderOracle(provider).WithTemperature(r.temperature)
		if judge == nil {
			judge = NewProviderOracle(provider).WithTemperature(r.judgementTemperature)
		}
	}
	if judge == nil {
		judge = generator
	}

	return generator, judge, nil
}

func (r *Reasoner) emitCompleted(ctx context.Context, s *Session, start time.Time) {
	fields := []capitan.Field{
		FieldTraceID.Field(s.TraceID),
		FieldOutcome.Field(string(s.Outcome())),
		FieldNodeCount.Field(s.graph.Len()),
		FieldCycles.Field(s.CyclesRun()),
		FieldDuration.Field(time.Since(start)),
	}
	if best, ok := s.Best(); ok {
		fields = append(fields,
			FieldNodeID.Field(string(best.ID)),
			FieldScore.Field(float32(best.Score)),
			FieldPreview.Field(best.Preview(previewLength)),
		)
	}
	capitan.Emit(ctx, SolveCompleted, fields...)
}

// expansion carries the collaborators of a single run.
type expansion struct {
	session    *Session
	generator  Oracle
	scorer     *Scorer
	classifier *Classifier
	prompts    Prompts
}

// seed requests the initial thoughts and inserts each one under the root.
// Seeds beyond count are dropped in the order the oracle returned them.
func (e *expansion) seed(ctx context.Context, count int) {
	raw := e.generator.Generate(ctx, buildSeedPrompt(e.session.Problem, count), e.prompts.Seeder, true)

	resp, err := ParseSeeds(raw)
	if err != nil {
		capitan.Error(ctx, SeedFailed,
			FieldTraceID.Field(e.session.TraceID),
			FieldResponse.Field(truncate(raw, 200)),
			FieldError.Field(err),
		)
		return
	}

	thoughts := resp.Thoughts
	if len(thoughts) > count {
		capitan.Emit(ctx, SeedsTrimmed,
			FieldTraceID.Field(e.session.TraceID),
			FieldRequested.Field(count),
			FieldReceived.Field(len(thoughts)),
		)
		thoughts = thoughts[:count]
	}

	for _, thought := range thoughts {
		score := e.scorer.Evaluate(ctx, e.session.Problem, thought)
		e.insert(ctx, OpSeed, RootParent{}, thought, score)
	}
}

// cycle runs one rank/refine/aggregate iteration. It reports false when the
// graph is too small to expand.
func (e *expansion) cycle(ctx context.Context, index, total int) bool {
	ranked := e.session.graph.Ranked()

	capitan.Emit(ctx, CycleStarted,
		FieldTraceID.Field(e.session.TraceID),
		FieldCycle.Field(index),
		FieldCycles.Field(total),
		FieldNodeCount.Field(len(ranked)),
	)

	if len(ranked) < 2 {
		return false
	}

	first, second := ranked[0], ranked[1]
	e.refine(ctx, index, first)
	e.aggregate(ctx, index, first, second)

	e.session.cycleDone()
	return true
}

func (e *expansion) refine(ctx context.Context, index int, parent ThoughtNode) {
	refined := e.generator.Generate(ctx, buildRefinePrompt(e.session.Problem, parent.Content), e.prompts.Refiner, false)
	if strings.TrimSpace(refined) == "" {
		e.skipped(ctx, index, "refine", parent.ID)
		return
	}

	score := e.scorer.Evaluate(ctx, e.session.Problem, refined)
	e.insert(ctx, OpRefine, SingleParent{ID: parent.ID}, refined, score)
}

func (e *expansion) aggregate(ctx context.Context, index int, a, b ThoughtNode) {
	merged := e.generator.Generate(ctx, buildAggregatePrompt(e.session.Problem, a.Content, b.Content), e.prompts.Aggregator, false)
	if strings.TrimSpace(merged) == "" {
		e.skipped(ctx, index, "aggregate", a.ID, b.ID)
		return
	}

	score := e.scorer.Evaluate(ctx, e.session.Problem, merged)
	e.insert(ctx, OpAggregate, PairParent{A: a.ID, B: b.ID}, merged, score)
}

func (e *expansion) insert(ctx context.Context, op Operation, lineage Lineage, content string, score float64) {
	node, err := e.session.graph.Insert(op, lineage, content, score)
	if err != nil {
		capitan.Error(ctx, CycleSkipped,
			FieldTraceID.Field(e.session.TraceID),
			FieldStep.Field(string(op)),
			FieldParents.Field(joinIDs(lineage.IDs())),
			FieldError.Field(err),
		)
		return
	}

	capitan.Emit(ctx, NodeAdded,
		FieldTraceID.Field(e.session.TraceID),
		FieldNodeID.Field(string(node.ID)),
		FieldOperation.Field(string(node.Op)),
		FieldParents.Field(joinIDs(node.Lineage.IDs())),
		FieldScore.Field(float32(node.Score)),
		FieldPreview.Field(node.Preview(previewLength)),
		FieldNodeCount.Field(node.Seq+1),
	)
}

func (e *expansion) skipped(ctx context.Context, index int, step string, parents ...NodeID) {
	capitan.Emit(ctx, CycleSkipped,
		FieldTraceID.Field(e.session.TraceID),
		FieldCycle.Field(index),
		FieldStep.Field(step),
		FieldParents.Field(joinIDs(parents)),
	)
}

// Identity implements pipz.Chainable[*Session].
func (r *Reasoner) Identity() pipz.Identity {
	return r.identity
}

// Schema implements pipz.Chainable[*Session].
func (r *Reasoner) Schema() pipz.Node {
	return pipz.Node{Identity: r.identity, Type: "reasoner"}
}

// Close implements pipz.Chainable[*Session].
func (r *Reasoner) Close() error {
	return nil
}

var _ pipz.Chainable[*Session] = (*Reasoner)(nil)

// Builder methods

// WithOracle sets the oracle for every call. It takes precedence over providers.
func (r *Reasoner) WithOracle(o Oracle) *Reasoner {
	r.oracle = o
	return r
}

// WithJudge sets a separate oracle for classification and scoring calls.
func (r *Reasoner) WithJudge(o Oracle) *Reasoner {
	r.judge = o
	return r
}

// WithProvider sets the provider for this reasoner.
// This takes precedence over context and global providers.
func (r *Reasoner) WithProvider(p Provider) *Reasoner {
	r.provider = p
	return r
}

// WithTemperature sets the temperature for seeding, refinement and aggregation.
func (r *Reasoner) WithTemperature(temp float32) *Reasoner {
	r.temperature = temp
	return r
}

// WithJudgementTemperature sets the temperature for classification and scoring.
func (r *Reasoner) WithJudgementTemperature(temp float32) *Reasoner {
	r.judgementTemperature = temp
	return r
}

// WithInitialThoughts sets how many seed thoughts to request. Values below 1 become 1.
func (r *Reasoner) WithInitialThoughts(n int) *Reasoner {
	if n < 1 {
		n = 1
	}
	r.initialThoughts = n
	return r
}

// WithCycles sets the number of reasoning cycles. Negative values become 0.
func (r *Reasoner) WithCycles(n int) *Reasoner {
	if n < 0 {
		n = 0
	}
	r.cycles = n
	return r
}

// WithPrompts overrides system instructions. Empty fields keep their defaults.
func (r *Reasoner) WithPrompts(p Prompts) *Reasoner {
	r.prompts = p.withDefaults()
	return r
}

// InitialThoughts returns the configured seed count.
func (r *Reasoner) InitialThoughts() int {
	return r.initialThoughts
}

// Cycles returns the configured cycle count.
func (r *Reasoner) Cycles() int {
	return r.cycles
}
