package arbor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/zoobzio/capitan"
)

// Evaluation parse errors.
var (
	ErrMalformedJSON = errors.New("response is not valid JSON")
	ErrMissingScore  = errors.New("response has no score field")
	ErrInvalidScore  = errors.New("score is not a finite number")
)

// Evaluation is the oracle's judgement of a candidate thought.
// Only Score is kept on the graph; Reason is informational.
type Evaluation struct {
	Score  float64 `json:"score"`
	Reason string  `json:"reason"`
}

// ParseEvaluation decodes a scorer response of the form
// {"score": <number>, "reason": "<text>"}.
//
// Numeric strings such as "7.5" are accepted for score. Booleans, null,
// objects, arrays and non-finite values are rejected.
func ParseEvaluation(raw string) (Evaluation, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || !gjson.Valid(raw) {
		return Evaluation{}, ErrMalformedJSON
	}

	doc := gjson.Parse(raw)
	if !doc.IsObject() {
		return Evaluation{}, fmt.Errorf("%w: expected an object", ErrMalformedJSON)
	}

	field := doc.Get("score")
	if !field.Exists() {
		return Evaluation{}, ErrMissingScore
	}

	score, err := coerceScore(field)
	if err != nil {
		return Evaluation{}, err
	}

	return Evaluation{
		Score:  score,
		Reason: doc.Get("reason").String(),
	}, nil
}

func coerceScore(field gjson.Result) (float64, error) {
	var score float64
	switch field.Type {
	case gjson.Number:
		score = field.Num
	case gjson.String:
		f, err := strconv.ParseFloat(strings.TrimSpace(field.Str), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidScore, field.Str)
		}
		score = f
	default:
		return 0, fmt.Errorf("%w: %s", ErrInvalidScore, field.Raw)
	}

	if math.IsNaN(score) || math.IsInf(score, 0) {
		return 0, fmt.Errorf("%w: %s", ErrInvalidScore, field.Raw)
	}
	return score, nil
}

// Scorer rates how much a candidate thought advances a solution.
type Scorer struct {
	oracle Oracle
	system string
}

// NewScorer creates a scorer that consults oracle.
func NewScorer(oracle Oracle) *Scorer {
	return &Scorer{
		oracle: oracle,
		system: DefaultPrompts().Scorer,
	}
}

// WithSystem overrides the system instruction sent with scoring calls.
func (s *Scorer) WithSystem(system string) *Scorer {
	s.system = system
	return s
}

// Assess asks the oracle for an evaluation and returns the parsed result.
// The returned error is one of the Evaluation parse errors.
func (s *Scorer) Assess(ctx context.Context, problem, candidate string) (Evaluation, error) {
	raw := s.oracle.Generate(ctx, buildScorerPrompt(problem, candidate), s.system, true)
	eval, err := ParseEvaluation(raw)
	if err != nil {
		return Evaluation{}, &scoreError{raw: raw, err: err}
	}
	return eval, nil
}

// Evaluate returns the candidate's score, or 0 when the oracle's answer
// cannot be parsed. It never fails; parse problems are reported through
// the ScoreFailed signal.
func (s *Scorer) Evaluate(ctx context.Context, problem, candidate string) float64 {
	eval, err := s.Assess(ctx, problem, candidate)
	if err != nil {
		var se *scoreError
		raw := ""
		if errors.As(err, &se) {
			raw = se.raw
		}
		capitan.Error(ctx, ScoreFailed,
			FieldTraceID.Field(traceIDFrom(ctx)),
			FieldPreview.Field(truncate(candidate, previewLength)),
			FieldResponse.Field(truncate(raw, 200)),
			FieldError.Field(err),
		)
		return 0
	}
	return eval.Score
}

// scoreError keeps the raw response next to the parse failure.
type scoreError struct {
	raw string
	err error
}

func (e *scoreError) Error() string {
	return "score: " + e.err.Error()
}

func (e *scoreError) Unwrap() error {
	return e.err
}
