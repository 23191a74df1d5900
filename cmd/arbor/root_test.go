package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zoobzio/arbor"
	arbortest "github.com/zoobzio/arbor/testing"
	"github.com/zoobzio/zyn"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gopkg.in/yaml.v3"
)

type closingArchive struct {
	*arbortest.MockArchive
	closed bool
}

func (c *closingArchive) Close() error {
	c.closed = true
	return nil
}

// respondByRole answers each phase with a fixed response.
func respondByRole(responses map[arbortest.Role]string) func([]zyn.Message) (string, error) {
	return func(messages []zyn.Message) (string, error) {
		if len(messages) == 0 {
			return "", errors.New("no messages")
		}
		return responses[arbortest.RoleOf(messages[0].Content)], nil
	}
}

var expanding = map[arbortest.Role]string{
	arbortest.RoleClassify:  "YES",
	arbortest.RoleSeed:      `["cache hot keys", "shard the database"]`,
	arbortest.RoleScore:     `{"score": 7, "reason": "sound"}`,
	arbortest.RoleRefine:    "cache hot keys with a TTL",
	arbortest.RoleAggregate: "cache hot keys and shard cold data",
}

type harness struct {
	app     *app
	out     *bytes.Buffer
	logs    *observer.ObservedLogs
	archive *closingArchive
}

func newHarness(t *testing.T, responses map[arbortest.Role]string) *harness {
	t.Helper()
	t.Setenv("OPENAI_API_KEY", "")

	core, logs := observer.New(zap.DebugLevel)
	h := &harness{
		out:     &bytes.Buffer{},
		logs:    logs,
		archive: &closingArchive{MockArchive: arbortest.NewMockArchive()},
	}
	h.app = &app{
		out:    h.out,
		logger: zap.New(core),
		newProvider: func(Config) arbor.Provider {
			return arbortest.NewMockProvider("mock", respondByRole(responses))
		},
		openArchive: func(context.Context, string) (archiver, error) {
			return h.archive, nil
		},
	}
	return h
}

func (h *harness) execute(args ...string) error {
	cmd := newRootCmd(h.app)
	cmd.SetArgs(append([]string{"--env-file", "", "--base-url", "http://localhost:8080/v1"}, args...))
	cmd.SetOut(h.out)
	return cmd.Execute()
}

func TestRun_Expands(t *testing.T) {
	h := newHarness(t, expanding)

	require.NoError(t, h.execute("--cycles", "1", "How do we speed up the API?"))

	out := h.out.String()
	assert.Contains(t, out, "Problem: How do we speed up the API?")
	assert.Contains(t, out, "Best thought found:")
	assert.Contains(t, out, "Score: 7.00")
	assert.Contains(t, out, `Solution: "cache hot keys"`, "ties resolve to the earliest node")
	// classify + seed + 2 scores + (refine, score, aggregate, score)
	assert.Contains(t, out, "Oracle calls: 8")
	assert.Contains(t, out, "120 total")
}

func TestRun_Trace(t *testing.T) {
	h := newHarness(t, expanding)

	require.NoError(t, h.execute("--cycles", "1", "trace me"))

	assert.Eventually(t, func() bool {
		return h.logs.FilterMessage("node added").Len() == 4
	}, time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool {
		return h.logs.FilterMessage("problem needs complex reasoning, expanding graph").Len() == 1
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, h.logs.FilterMessage("reasoning finished").Len())

	for _, entry := range h.logs.FilterMessage("node added").All() {
		assert.Equal(t, "7.00", entry.ContextMap()["score"])
	}
}

func TestRun_TraceSeedsTrimmed(t *testing.T) {
	h := newHarness(t, expanding)

	require.NoError(t, h.execute("--thoughts", "1", "--cycles", "0", "trim me"))

	assert.Eventually(t, func() bool {
		return h.logs.FilterMessage("extra seeds dropped").Len() == 1
	}, time.Second, 10*time.Millisecond)

	entry := h.logs.FilterMessage("extra seeds dropped").All()[0]
	assert.EqualValues(t, 1, entry.ContextMap()["requested"])
	assert.EqualValues(t, 2, entry.ContextMap()["received"])
	assert.Contains(t, h.out.String(), "Oracle calls: 3", "classify + seed + one score")
}

func TestRun_Direct(t *testing.T) {
	responses := map[arbortest.Role]string{
		arbortest.RoleClassify: "NO",
		arbortest.RoleUnknown:  "4",
	}

	t.Run("without direct flag", func(t *testing.T) {
		h := newHarness(t, responses)
		require.NoError(t, h.execute("What is 2+2?"))

		assert.Contains(t, h.out.String(), "No solution produced.")
		assert.Contains(t, h.out.String(), "Oracle calls: 1")
	})

	t.Run("with direct flag", func(t *testing.T) {
		h := newHarness(t, responses)
		require.NoError(t, h.execute("--direct", "What is 2+2?"))

		assert.Contains(t, h.out.String(), "Direct answer:")
		assert.Contains(t, h.out.String(), "   4\n")
		assert.Contains(t, h.out.String(), "Oracle calls: 2")
	})
}

func TestRun_NoSeeds(t *testing.T) {
	h := newHarness(t, map[arbortest.Role]string{
		arbortest.RoleClassify: "YES",
		arbortest.RoleSeed:     "no json here",
	})

	require.NoError(t, h.execute("unlucky problem"))
	assert.Contains(t, h.out.String(), "No solution produced.")

	assert.Eventually(t, func() bool {
		return h.logs.FilterMessage("seed response unusable").Len() == 1
	}, time.Second, 10*time.Millisecond)
}

func TestRun_Export(t *testing.T) {
	h := newHarness(t, expanding)
	path := filepath.Join(t.TempDir(), "graph.yaml")

	require.NoError(t, h.execute("--cycles", "1", "--export", path, "export me"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var snap arbor.SessionSnapshot
	require.NoError(t, yaml.Unmarshal(data, &snap))
	assert.Equal(t, "export me", snap.Problem)
	assert.Equal(t, arbor.OutcomeCompleted, snap.Outcome)
	assert.Len(t, snap.Nodes, 5)
	require.NotNil(t, snap.Best)
	assert.Equal(t, arbor.NodeID("node_0"), snap.Best.ID)
}

func TestRun_Archive(t *testing.T) {
	h := newHarness(t, expanding)

	require.NoError(t, h.execute("--cycles", "1", "--archive-dsn", "postgres://localhost/arbor", "archive me"))
	assert.True(t, h.archive.closed)

	snapshot := h.logs.FilterMessage("session archived").All()
	require.Len(t, snapshot, 1)
	traceID, ok := snapshot[0].ContextMap()["trace_id"].(string)
	require.True(t, ok)

	rec, nodes, err := h.archive.LoadSession(context.Background(), traceID)
	require.NoError(t, err)
	assert.Equal(t, "archive me", rec.Problem)
	assert.Len(t, nodes, 5)
}

func TestRun_InvalidConfig(t *testing.T) {
	h := newHarness(t, expanding)

	cmd := newRootCmd(h.app)
	cmd.SetArgs([]string{"--env-file", "", "problem"})
	err := cmd.Execute()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "OPENAI_API_KEY")
	assert.Empty(t, h.out.String())
}

func TestResolveConfig_Precedence(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "env-key")
	path := writeFile(t, "arbor.yaml", `
problem_statement: from file
model_name: file-model
cycles: 5
`)

	cmd := newRootCmd(newApp(&bytes.Buffer{}))
	require.NoError(t, cmd.ParseFlags([]string{"--env-file", "", "--config", path, "--cycles", "1"}))

	cfg, err := resolveConfig(cmd, nil)
	require.NoError(t, err)
	assert.Equal(t, "from file", cfg.ProblemStatement)
	assert.Equal(t, "file-model", cfg.ModelName)
	assert.Equal(t, 1, cfg.Cycles, "flags override the file")
	assert.Equal(t, arbor.DefaultInitialThoughts, cfg.InitialThoughtCount, "unchanged flags keep file values")
	assert.Equal(t, "env-key", cfg.APIKey)

	cfg, err = resolveConfig(cmd, []string{"from args"})
	require.NoError(t, err)
	assert.Equal(t, "from args", cfg.ProblemStatement)
}
