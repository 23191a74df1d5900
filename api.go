// Package arbor provides a graph-of-thoughts reasoning controller for Go.
//
// arbor decomposes a problem into a branching graph of intermediate thoughts,
// scores each thought with an LLM, and repeatedly refines and merges the
// best-scoring thoughts until a fixed number of cycles has run.
//
// # Core Types
//
//   - [Graph] - Append-only store of [ThoughtNode] values rooted at a sentinel node
//   - [Session] - One problem-solving run: the problem, its graph, and its outcome
//   - [Reasoner] - The expansion policy that grows a Session's graph
//   - [Oracle] - The text-generation collaborator every phase delegates to
//
// # Solving
//
//	reasoner := arbor.NewReasoner().
//	    WithProvider(provider).
//	    WithInitialThoughts(3).
//	    WithCycles(2)
//
//	session, err := reasoner.Solve(ctx, "Plan a three-city rail trip under $500")
//	if best, ok := session.Best(); ok {
//	    fmt.Println(best.Score, best.Content)
//	}
//
// A run passes through three phases:
//
//  1. Gate - a [Classifier] asks whether the problem needs multi-step reasoning.
//     A negative or unreadable answer ends the run with [OutcomeDirect].
//  2. Seed - the oracle proposes initial thoughts, each scored by the [Scorer].
//  3. Cycles - rank all nodes, refine the best, aggregate the top two.
//
// Oracle failures never abort a run. A failed call yields an empty response
// and the dependent insertion is skipped; a failed score becomes 0.
//
// # Provider Resolution
//
// LLM access uses the same resolution hierarchy for every Reasoner:
//
//  1. Explicit parameter (.WithProvider(p) or .WithOracle(o))
//  2. Context value (arbor.WithProvider(ctx, p))
//  3. Global default (arbor.SetProvider(p))
//
// # Auditing
//
// Graphs are not persisted between runs. Hosts that want an audit trail can
// export a [SessionSnapshot] or hand the finished Session to an [Archive]
// such as [SoyArchive].
//
// # Observability
//
// arbor emits capitan signals throughout execution. See [signals.go] for the
// complete list, including NodeAdded, CycleStarted, ScoreFailed and
// SolveCompleted.
package arbor
