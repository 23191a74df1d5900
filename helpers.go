package arbor

import (
	"context"
	"fmt"

	"github.com/zoobzio/pipz"
)

// -----------------------------------------------------------------------------
// Adapter Functions - wrap functions to create Session processors
// -----------------------------------------------------------------------------

// Do creates a processor from a custom function that can fail.
//
// Example:
//
//	notify := arbor.Do("notify", "Post the best thought", func(ctx context.Context, s *arbor.Session) (*arbor.Session, error) {
//	    best, ok := s.Best()
//	    if !ok {
//	        return s, nil
//	    }
//	    return s, chat.Post(ctx, best.Content)
//	})
func Do(name, description string, fn func(context.Context, *Session) (*Session, error)) pipz.Processor[*Session] {
	return pipz.Apply(pipz.NewIdentity(name, description), fn)
}

// Effect creates a processor that performs a side effect without modifying the session.
func Effect(name, description string, fn func(context.Context, *Session) error) pipz.Processor[*Session] {
	return pipz.Effect(pipz.NewIdentity(name, description), fn)
}

// Archived creates a processor that saves the session to archive.
// Place it after a Reasoner; archiving a pending session is an error.
func Archived(archive Archive) pipz.Processor[*Session] {
	return Effect("archive", "Save the finished session for auditing", func(ctx context.Context, s *Session) error {
		if s.Outcome() == OutcomePending {
			return fmt.Errorf("archive: session %s has not been processed", s.TraceID)
		}
		return archive.SaveSession(ctx, s)
	})
}

// -----------------------------------------------------------------------------
// Connectors
// -----------------------------------------------------------------------------

// Sequence creates a sequential pipeline of session processors.
//
// Example:
//
//	pipeline := arbor.Sequence("solve-and-archive",
//	    arbor.NewReasoner().WithProvider(provider),
//	    arbor.Archived(archive),
//	)
func Sequence(name string, processors ...pipz.Chainable[*Session]) *pipz.Sequence[*Session] {
	return pipz.NewSequence(pipz.NewIdentity(name, "Sequential session pipeline"), processors...)
}

// Filter runs processor only when predicate holds; otherwise the session passes through.
//
// Example:
//
//	archiveExpanded := arbor.Filter("expanded-only", arbor.Expanded, arbor.Archived(archive))
func Filter(name string, predicate func(context.Context, *Session) bool, processor pipz.Chainable[*Session]) *pipz.Filter[*Session] {
	return pipz.NewFilter(pipz.NewIdentity(name, "Conditional session processor"), predicate, processor)
}

// Expanded reports whether the session's graph grew beyond its root.
func Expanded(_ context.Context, s *Session) bool {
	return s.graph.Len() > 1
}
