package arbor

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/zyn"
)

// Oracle is the text-generation collaborator behind every phase of a run.
//
// Generate must not fail. Implementations swallow provider errors and return
// an empty string so callers can apply their own degradation policy. When
// structured is true the output is expected to be parseable JSON.
type Oracle interface {
	Generate(ctx context.Context, prompt, system string, structured bool) string
}

// OracleFunc adapts a function to the Oracle interface.
type OracleFunc func(ctx context.Context, prompt, system string, structured bool) string

// Generate implements Oracle.
func (f OracleFunc) Generate(ctx context.Context, prompt, system string, structured bool) string {
	return f(ctx, prompt, system, structured)
}

// structuredDirective is appended to the system message of structured calls
// for providers without a native JSON mode.
const structuredDirective = "Respond with valid JSON only. Do not wrap it in markdown or add commentary."

// ProviderOracle adapts a Provider to the Oracle contract.
// Each call is a fresh two-message exchange; no conversation state is kept.
type ProviderOracle struct {
	provider    Provider
	temperature float32

	usage zyn.TokenUsage
	calls int
	mu    sync.Mutex
}

// NewProviderOracle creates an oracle backed by provider.
func NewProviderOracle(provider Provider) *ProviderOracle {
	return &ProviderOracle{
		provider:    provider,
		temperature: DefaultTemperature,
	}
}

// WithTemperature sets the sampling temperature for every call.
func (o *ProviderOracle) WithTemperature(temp float32) *ProviderOracle {
	o.temperature = temp
	return o
}

// Generate implements Oracle.
func (o *ProviderOracle) Generate(ctx context.Context, prompt, system string, structured bool) string {
	start := time.Now()

	messages := make([]zyn.Message, 0, 2)
	if system != "" || structured {
		content := system
		if structured {
			if content != "" {
				content += "\n\n"
			}
			content += structuredDirective
		}
		messages = append(messages, zyn.Message{Role: "system", Content: content})
	}
	messages = append(messages, zyn.Message{Role: "user", Content: prompt})

	var resp *zyn.ProviderResponse
	var err error
	if sp, ok := o.provider.(StructuredProvider); ok && structured {
		resp, err = sp.CallStructured(ctx, messages, o.temperature)
	} else {
		resp, err = o.provider.Call(ctx, messages, o.temperature)
	}

	o.mu.Lock()
	o.calls++
	if resp != nil {
		o.usage.Prompt += resp.Usage.Prompt
		o.usage.Completion += resp.Usage.Completion
		o.usage.Total += resp.Usage.Total
	}
	o.mu.Unlock()

	if err != nil {
		capitan.Error(ctx, OracleFailed,
			FieldTraceID.Field(traceIDFrom(ctx)),
			FieldProvider.Field(o.provider.Name()),
			FieldStructured.Field(strconv.FormatBool(structured)),
			FieldTemperature.Field(o.temperature),
			FieldDuration.Field(time.Since(start)),
			FieldError.Field(err),
		)
		return ""
	}
	if resp == nil {
		return ""
	}

	return resp.Content
}

// Usage returns the token usage accumulated across all calls.
func (o *ProviderOracle) Usage() zyn.TokenUsage {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.usage
}

// Calls returns the number of provider calls made.
func (o *ProviderOracle) Calls() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.calls
}

// Provider returns the wrapped provider.
func (o *ProviderOracle) Provider() Provider {
	return o.provider
}
