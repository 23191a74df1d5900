package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/zoobzio/arbor"
	"github.com/zoobzio/capitan"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// newLogger builds a console logger at the given level writing to stderr.
func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stderr"}
	cfg.DisableStacktrace = true
	cfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout(time.TimeOnly)
	return cfg.Build()
}

// tracer renders one session's signals through a zap logger.
type tracer struct {
	logger    *zap.Logger
	traceID   string
	listeners []*capitan.Listener
	done      chan struct{}
	once      sync.Once
}

func newTracer(logger *zap.Logger, traceID string) *tracer {
	t := &tracer{
		logger:  logger,
		traceID: traceID,
		done:    make(chan struct{}),
	}

	t.hook(arbor.ClassificationCompleted, t.classification)
	t.hook(arbor.SeedFailed, t.failure("seed response unusable"))
	t.hook(arbor.SeedsTrimmed, t.seedsTrimmed)
	t.hook(arbor.NodeAdded, t.nodeAdded)
	t.hook(arbor.CycleStarted, t.cycleStarted)
	t.hook(arbor.CycleSkipped, t.cycleSkipped)
	t.hook(arbor.OracleFailed, t.failure("oracle call failed"))
	t.hook(arbor.ScoreFailed, t.failure("score response unusable"))
	t.hook(arbor.SolveCompleted, t.completed)
	return t
}

func (t *tracer) hook(sig capitan.Signal, fn func(*capitan.Event)) {
	t.listeners = append(t.listeners, capitan.Hook(sig, func(_ context.Context, e *capitan.Event) {
		if id, _ := arbor.FieldTraceID.From(e); id != t.traceID {
			return
		}
		fn(e)
	}))
}

func (t *tracer) classification(e *capitan.Event) {
	decision, _ := arbor.FieldDecision.From(e)
	if decision == "yes" {
		t.logger.Info("problem needs complex reasoning, expanding graph")
		return
	}
	t.logger.Info("problem does not need complex reasoning, skipping expansion")
}

func (t *tracer) nodeAdded(e *capitan.Event) {
	id, _ := arbor.FieldNodeID.From(e)
	op, _ := arbor.FieldOperation.From(e)
	parents, _ := arbor.FieldParents.From(e)
	score, _ := arbor.FieldScore.From(e)
	preview, _ := arbor.FieldPreview.From(e)

	t.logger.Info("node added",
		zap.String("node", id),
		zap.String("op", op),
		zap.String("parents", parents),
		zap.String("score", fmt.Sprintf("%.2f", score)),
		zap.String("thought", preview),
	)
}

func (t *tracer) cycleStarted(e *capitan.Event) {
	cycle, _ := arbor.FieldCycle.From(e)
	cycles, _ := arbor.FieldCycles.From(e)
	nodes, _ := arbor.FieldNodeCount.From(e)

	t.logger.Info(fmt.Sprintf("reasoning cycle %d/%d", cycle, cycles), zap.Int("nodes", nodes))
}

func (t *tracer) seedsTrimmed(e *capitan.Event) {
	requested, _ := arbor.FieldRequested.From(e)
	received, _ := arbor.FieldReceived.From(e)
	t.logger.Info("extra seeds dropped", zap.Int("requested", requested), zap.Int("received", received))
}

func (t *tracer) cycleSkipped(e *capitan.Event) {
	step, _ := arbor.FieldStep.From(e)
	parents, _ := arbor.FieldParents.From(e)

	fields := []zap.Field{zap.String("step", step), zap.String("parents", parents)}
	if err, ok := arbor.FieldError.From(e); ok && err != nil {
		fields = append(fields, zap.Error(err))
	}
	t.logger.Warn("expansion step skipped", fields...)
}

func (t *tracer) failure(msg string) func(*capitan.Event) {
	return func(e *capitan.Event) {
		fields := []zap.Field{}
		if resp, ok := arbor.FieldResponse.From(e); ok && resp != "" {
			fields = append(fields, zap.String("response", resp))
		}
		if provider, ok := arbor.FieldProvider.From(e); ok {
			fields = append(fields, zap.String("provider", provider))
		}
		if err, ok := arbor.FieldError.From(e); ok && err != nil {
			fields = append(fields, zap.Error(err))
		}
		t.logger.Warn(msg, fields...)
	}
}

func (t *tracer) completed(e *capitan.Event) {
	outcome, _ := arbor.FieldOutcome.From(e)
	nodes, _ := arbor.FieldNodeCount.From(e)
	duration, _ := arbor.FieldDuration.From(e)

	t.logger.Info("reasoning finished",
		zap.String("outcome", outcome),
		zap.Int("nodes", nodes),
		zap.Duration("duration", duration),
	)
	t.once.Do(func() { close(t.done) })
}

// Wait blocks until the session's completion signal has been rendered.
// Signals are delivered asynchronously, so the report waits on this.
func (t *tracer) Wait(timeout time.Duration) bool {
	select {
	case <-t.done:
		return true
	case <-time.After(timeout):
		return false
	}
}

// Close releases every listener.
func (t *tracer) Close() {
	for _, l := range t.listeners {
		l.Close()
	}
	_ = t.logger.Sync()
}
