//go:build integration

package integration_test

import (
	"context"
	"os"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/zoobzio/arbor"
	arbortest "github.com/zoobzio/arbor/testing"
)

func getTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		t.Fatalf("failed to connect to database: %v", err)
	}

	return db
}

func solved(t *testing.T, traceID string) *arbor.Session {
	t.Helper()

	ctx := context.Background()
	session := arbor.NewSessionWithTrace(ctx, "integration problem", traceID)
	_, err := arbor.NewReasoner().
		WithOracle(arbortest.NewSucceedingOracle(2)).
		WithCycles(1).
		Process(ctx, session)
	if err != nil {
		t.Fatalf("failed to solve: %v", err)
	}
	return session
}

func TestSoyArchive_SaveAndLoad(t *testing.T) {
	db := getTestDB(t)
	defer db.Close()

	archive, err := arbor.NewSoyArchive(db)
	if err != nil {
		t.Fatalf("failed to create archive: %v", err)
	}

	ctx := context.Background()
	session := solved(t, "integration-save-load")
	if err := archive.SaveSession(ctx, session); err != nil {
		t.Fatalf("failed to save session: %v", err)
	}
	defer func() { _ = archive.DeleteSession(ctx, session.TraceID) }()

	rec, nodes, err := archive.LoadSession(ctx, session.TraceID)
	if err != nil {
		t.Fatalf("failed to load session: %v", err)
	}

	if rec.Problem != "integration problem" {
		t.Errorf("expected problem 'integration problem', got %q", rec.Problem)
	}
	if rec.Outcome != string(arbor.OutcomeCompleted) {
		t.Errorf("expected outcome %q, got %q", arbor.OutcomeCompleted, rec.Outcome)
	}
	if rec.BestNodeID == nil {
		t.Error("expected best node to be recorded")
	}
	if len(nodes) != session.Graph().Len() {
		t.Fatalf("expected %d nodes, got %d", session.Graph().Len(), len(nodes))
	}

	for i, n := range nodes {
		if n.Seq != i {
			t.Errorf("expected seq %d, got %d", i, n.Seq)
		}
		if n.Lineage() == nil {
			t.Errorf("node %s has inconsistent lineage %q for %s", n.NodeID, n.Parents, n.Operation)
		}
	}
}

func TestSoyArchive_DirectSession(t *testing.T) {
	db := getTestDB(t)
	defer db.Close()

	archive, err := arbor.NewSoyArchive(db)
	if err != nil {
		t.Fatalf("failed to create archive: %v", err)
	}

	ctx := context.Background()
	session := arbor.NewSessionWithTrace(ctx, "what is 2+2", "integration-direct")
	oracle := arbortest.NewScriptedOracle().On(arbortest.RoleClassify, "NO")
	if _, err := arbor.NewReasoner().WithOracle(oracle).Process(ctx, session); err != nil {
		t.Fatalf("failed to process: %v", err)
	}

	if err := archive.SaveSession(ctx, session); err != nil {
		t.Fatalf("failed to save session: %v", err)
	}
	defer func() { _ = archive.DeleteSession(ctx, session.TraceID) }()

	rec, nodes, err := archive.LoadSession(ctx, session.TraceID)
	if err != nil {
		t.Fatalf("failed to load session: %v", err)
	}
	if rec.BestNodeID != nil {
		t.Errorf("expected no best node, got %q", *rec.BestNodeID)
	}
	if len(nodes) != 1 {
		t.Errorf("expected only the root, got %d nodes", len(nodes))
	}
}

func TestSoyArchive_DeleteSession(t *testing.T) {
	db := getTestDB(t)
	defer db.Close()

	archive, err := arbor.NewSoyArchive(db)
	if err != nil {
		t.Fatalf("failed to create archive: %v", err)
	}

	ctx := context.Background()
	session := solved(t, "integration-delete")
	if err := archive.SaveSession(ctx, session); err != nil {
		t.Fatalf("failed to save session: %v", err)
	}

	if err := archive.DeleteSession(ctx, session.TraceID); err != nil {
		t.Fatalf("failed to delete session: %v", err)
	}

	if _, _, err := archive.LoadSession(ctx, session.TraceID); err == nil {
		t.Error("expected error when loading deleted session")
	}
}

func TestSoyArchive_FailedSaveLeavesNothing(t *testing.T) {
	db := getTestDB(t)
	defer db.Close()

	archive, err := arbor.NewSoyArchive(db)
	if err != nil {
		t.Fatalf("failed to create archive: %v", err)
	}

	// Postgres rejects NUL bytes in text, so the seed row fails after the
	// session row and the root row have been written.
	ctx := context.Background()
	session := arbor.NewSessionWithTrace(ctx, "integration problem", "integration-failed-save")
	oracle := arbortest.NewScriptedOracle().
		On(arbortest.RoleClassify, "YES").
		On(arbortest.RoleSeed, `["bad\u0000idea"]`).
		On(arbortest.RoleScore, `{"score": 5}`)
	if _, err := arbor.NewReasoner().WithOracle(oracle).WithCycles(0).Process(ctx, session); err != nil {
		t.Fatalf("failed to process: %v", err)
	}
	if session.Graph().Len() != 2 {
		t.Fatalf("expected root and one seed, got %d nodes", session.Graph().Len())
	}

	if err := archive.SaveSession(ctx, session); err == nil {
		_ = archive.DeleteSession(ctx, session.TraceID)
		t.Fatal("expected save to fail on the seed row")
	}

	if _, _, err := archive.LoadSession(ctx, session.TraceID); err == nil {
		t.Error("expected no archived session after a failed save")
	}
}
