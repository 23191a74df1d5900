package arbor

import "github.com/zoobzio/zyn"

// Default configuration for reasoners.
// These can be overridden per-reasoner using builder methods.
var (
	// DefaultInitialThoughts is the number of seed thoughts requested from the oracle.
	DefaultInitialThoughts = 3

	// DefaultCycles is the number of rank/refine/aggregate cycles run after seeding.
	DefaultCycles = 2

	// DefaultTemperature is used for generative calls (seeding, refinement, aggregation).
	DefaultTemperature = zyn.DefaultTemperatureCreative

	// DefaultJudgementTemperature is used for classification and scoring calls.
	DefaultJudgementTemperature = zyn.DefaultTemperatureDeterministic
)

// previewLength bounds the content carried on trace signals.
const previewLength = 50
