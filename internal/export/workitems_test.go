package export_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/aviator-co/adoexport/internal/devops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDumpWorkItems(t *testing.T) {
	s := runFakeDevOps(t)
	s.relations = []devops.WorkItemRelation{root(10), child(10, 11), child(10, 12)}
	for _, wi := range workItems(10, 11, 12) {
		wi.Fields["System.Title"] = json.RawMessage(`"item"`)
		s.workItems[wi.ID] = wi
	}

	cfg := s.config(t)
	cfg.WorkItems.HistoryWord = "Doe"
	e := s.exporter(t, cfg)

	report, err := e.DumpWorkItems(context.Background())
	require.NoError(t, err)
	assert.False(t, report.Skipped)
	assert.Equal(t, 3, report.Relations)
	assert.Equal(t, 1, report.Batches)
	assert.Equal(t, 1, report.Roots)
	assert.Equal(t, 3, report.Nodes)

	wiql := s.RequestsTo("/wit/wiql")
	require.Len(t, wiql, 1)
	assert.Contains(t, wiql[0].Query, "api-version=6.0")
	assert.Equal(t, e.Query(), wiql[0].Body["query"])
	assert.Contains(t, e.Query(), "contains words 'Doe'")

	batch := s.RequestsTo("/wit/workitemsbatch")
	require.Len(t, batch, 1)
	assert.Equal(t, "all", batch[0].Body["$expand"])
	assert.Equal(t, []any{10.0, 11.0, 12.0}, batch[0].Body["ids"])

	var tree []map[string]any
	readJSON(t, filepath.Join(cfg.OutputDir, "wi.json"), &tree)
	require.Len(t, tree, 1)
	assert.Equal(t, 10.0, tree[0]["id"])
	assert.Equal(t, "item", tree[0]["fields"].(map[string]any)["System_Title"])
	assert.Len(t, tree[0]["items"], 2)

	entry, ok := e.Ledger().WorkItems()
	require.True(t, ok)
	assert.Equal(t, "wi.json", entry.File)
	assert.Equal(t, 3, entry.Count)
}

func TestDumpWorkItemsBatches(t *testing.T) {
	s := runFakeDevOps(t)
	for id := 1; id <= 450; id++ {
		s.relations = append(s.relations, root(id))
		s.workItems[id] = devops.WorkItem{ID: id, Fields: map[string]json.RawMessage{}}
	}
	// Duplicate targets must not be requested twice.
	s.relations = append(s.relations, child(1, 2), child(3, 4))

	cfg := s.config(t)
	report, err := s.exporter(t, cfg).DumpWorkItems(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, report.Batches)

	batches := s.RequestsTo("/wit/workitemsbatch")
	require.Len(t, batches, 3)
	var sizes []int
	seen := map[int]bool{}
	for _, b := range batches {
		ids := b.Body["ids"].([]any)
		sizes = append(sizes, len(ids))
		for _, id := range ids {
			n := int(id.(float64))
			assert.False(t, seen[n], "work item %d requested twice", n)
			seen[n] = true
		}
	}
	assert.Equal(t, []int{200, 200, 50}, sizes)
	assert.Len(t, seen, 450)
}

func TestDumpWorkItemsSkipsExistingFile(t *testing.T) {
	s := runFakeDevOps(t)
	s.relations = []devops.WorkItemRelation{root(1)}
	cfg := s.config(t)
	path := filepath.Join(cfg.OutputDir, "wi.json")
	require.NoError(t, os.WriteFile(path, []byte("[]"), 0644))

	report, err := s.exporter(t, cfg).DumpWorkItems(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Skipped)
	assert.Empty(t, s.Requests())
}

func TestDumpWorkItemsEmptyResult(t *testing.T) {
	s := runFakeDevOps(t)
	cfg := s.config(t)
	report, err := s.exporter(t, cfg).DumpWorkItems(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Batches)
	assert.Empty(t, s.RequestsTo("/wit/workitemsbatch"))

	data, err := os.ReadFile(filepath.Join(cfg.OutputDir, "wi.json"))
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestQueryIsRestrictedToUser(t *testing.T) {
	s := runFakeDevOps(t)
	cfg := s.config(t)
	e := s.exporter(t, cfg)
	assert.Contains(t, e.Query(), "Target.[System.AssignedTo] = 'jane@contoso.com'")
	assert.NotContains(t, e.Query(), "contains words")

	cfg.WorkItems.AssignedTo = "Jane Doe <jane@contoso.com>"
	assert.Contains(t, e.Query(), "Target.[System.AssignedTo] = 'Jane Doe <jane@contoso.com>'")

	cfg.WorkItems.AssignedTo = ""
	cfg.WorkItems.HistoryWord = "Doe"
	assert.Contains(t, e.Query(), "(Target.[System.History] contains words 'Doe')")

	cfg.WorkItems.Query = "select [System.Id] from WorkItemLinks"
	assert.Equal(t, cfg.WorkItems.Query, e.Query())
}

func TestRun(t *testing.T) {
	s := runFakeDevOps(t)
	s.repos = []devops.Repository{{ID: "r1", Name: "api"}}
	s.commits["r1"] = []map[string]any{{"commitId": "c1"}}
	s.relations = []devops.WorkItemRelation{root(1)}
	s.workItems[1] = devops.WorkItem{ID: 1, Fields: map[string]json.RawMessage{}}

	cfg := s.config(t)
	report, err := s.exporter(t, cfg).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Commits.Written)
	assert.Equal(t, 1, report.WorkItems.Nodes)

	var paths []string
	for _, r := range s.Requests() {
		paths = append(paths, filepath.Base(r.Path))
	}
	assert.Equal(t, []string{"repositories", "commitsbatch", "wiql", "workitemsbatch"}, paths, "stages run in order")
}

func TestRunStopsAfterCommitStageFailure(t *testing.T) {
	s := runFakeDevOps(t)
	cfg := s.config(t)
	// A file where the commits directory should go.
	require.NoError(t, os.WriteFile(filepath.Join(cfg.OutputDir, "commits"), nil, 0644))

	_, err := s.exporter(t, cfg).Run(context.Background())
	require.Error(t, err)
	assert.Empty(t, s.Requests())
}
