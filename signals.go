package arbor

import "github.com/zoobzio/capitan"

// Signal definitions for arbor reasoning events.
// Signals follow the pattern: arbor.<entity>.<event>.
var (
	// Session lifecycle signals.
	SessionStarted = capitan.NewSignal(
		"arbor.session.started",
		"New reasoning session created for a problem statement",
	)
	SolveCompleted = capitan.NewSignal(
		"arbor.solve.completed",
		"Reasoning session finished with an outcome and best node",
	)

	// Gate signals.
	ClassificationCompleted = capitan.NewSignal(
		"arbor.classification.completed",
		"Complexity classifier decided whether to expand the graph",
	)

	// Graph signals.
	NodeAdded = capitan.NewSignal(
		"arbor.node.added",
		"Thought node inserted into the graph",
	)
	SeedFailed = capitan.NewSignal(
		"arbor.seed.failed",
		"Seed response could not be normalised into thoughts",
	)
	SeedsTrimmed = capitan.NewSignal(
		"arbor.seed.trimmed",
		"Oracle returned more seeds than requested; the extras were dropped",
	)

	// Cycle signals.
	CycleStarted = capitan.NewSignal(
		"arbor.cycle.started",
		"Rank/refine/aggregate cycle began",
	)
	CycleSkipped = capitan.NewSignal(
		"arbor.cycle.skipped",
		"Expansion step produced no content and was skipped",
	)

	// Oracle signals.
	OracleFailed = capitan.NewSignal(
		"arbor.oracle.failed",
		"Provider call failed and was replaced with an empty response",
	)
	ScoreFailed = capitan.NewSignal(
		"arbor.score.failed",
		"Scorer response could not be parsed; score defaulted to zero",
	)
)

// Field keys for arbor event data.
var (
	// Session metadata.
	FieldProblem   = capitan.NewStringKey("problem")
	FieldTraceID   = capitan.NewStringKey("trace_id")
	FieldOutcome   = capitan.NewStringKey("outcome")
	FieldNodeCount = capitan.NewIntKey("node_count")

	// Node metadata.
	FieldNodeID    = capitan.NewStringKey("node_id")
	FieldOperation = capitan.NewStringKey("operation")
	FieldParents   = capitan.NewStringKey("parents")
	FieldScore     = capitan.NewFloat32Key("score")
	FieldPreview   = capitan.NewStringKey("preview") // content truncated for display

	// Seed metadata.
	FieldRequested = capitan.NewIntKey("requested")
	FieldReceived  = capitan.NewIntKey("received")

	// Cycle metadata.
	FieldCycle  = capitan.NewIntKey("cycle")
	FieldCycles = capitan.NewIntKey("cycles")
	FieldStep   = capitan.NewStringKey("step") // refine, aggregate

	// Gate metadata.
	FieldDecision = capitan.NewStringKey("decision") // "yes" or "no"

	// Oracle metadata.
	FieldProvider    = capitan.NewStringKey("provider")
	FieldStructured  = capitan.NewStringKey("structured")
	FieldTemperature = capitan.NewFloat32Key("temperature")
	FieldResponse    = capitan.NewStringKey("response")

	// Timing.
	FieldDuration = capitan.NewDurationKey("duration")

	// Error information.
	FieldError = capitan.NewErrorKey("error")
)
