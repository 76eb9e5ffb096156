package export

import (
	"context"
	"os"
	"path/filepath"

	"emperror.dev/errors"
	"github.com/aviator-co/adoexport/internal/devops"
	"github.com/aviator-co/adoexport/internal/utils/jsonfile"
	"github.com/aviator-co/adoexport/internal/utils/sliceutils"
	"github.com/sirupsen/logrus"
)

type WorkItemsReport struct {
	// Skipped is set if the work items had already been dumped.
	Skipped   bool
	Path      string
	Relations int
	Batches   int
	TreeStats
	Bytes int64
}

// Query returns the WIQL link query for the configured filters.
// The query is always restricted to the configured user: without an explicit
// history word or assignee, work items assigned to the username match.
func (e *Exporter) Query() string {
	if e.cfg.WorkItems.Query != "" {
		return e.cfg.WorkItems.Query
	}
	q := devops.HierarchyQuery{
		Types:       e.cfg.WorkItems.Types,
		ClosedAfter: e.cfg.FromDate,
		HistoryWord: e.cfg.WorkItems.HistoryWord,
		AssignedTo:  e.cfg.WorkItems.AssignedTo,
	}
	if q.HistoryWord == "" && q.AssignedTo == "" {
		q.AssignedTo = e.cfg.Username
	}
	return q.String()
}

// DumpWorkItems runs the hierarchical work item query, fetches the full
// records of every work item it returns, and writes them as a tree to a single
// file. Nothing is requested if that file already exists.
func (e *Exporter) DumpWorkItems(ctx context.Context) (*WorkItemsReport, error) {
	path := e.cfg.WorkItemsPath()
	report := &WorkItemsReport{Path: path}
	if jsonfile.Exists(path) {
		logrus.WithField("file", path).Info("work items already dumped")
		report.Skipped = true
		return report, nil
	}
	logrus.Info("dumping work items")

	relations, err := e.api.QueryWorkItemLinks(ctx, e.Query())
	if err != nil {
		return nil, err
	}
	report.Relations = len(relations)

	items, batches, err := e.fetchWorkItems(ctx, relations)
	if err != nil {
		return nil, err
	}
	report.Batches = batches

	tree, stats := BuildTree(relations, items)
	report.TreeStats = stats

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.WrapIff(err, "failed to create directory for %s", path)
	}
	if tree == nil {
		tree = []*Node{}
	}
	data, err := jsonfile.Write(path, tree)
	if err != nil {
		return nil, err
	}
	if err := e.ledger.RecordWorkItems(path, stats.Nodes, data); err != nil {
		return nil, err
	}
	report.Bytes = int64(len(data))
	logrus.WithFields(logrus.Fields{
		"roots": stats.Roots,
		"items": stats.Nodes,
		"file":  path,
	}).Info("done")
	return report, nil
}

// TargetIDs returns the distinct target IDs of relations, in the order they
// first appear.
func TargetIDs(relations []devops.WorkItemRelation) []int {
	ids := make([]int, len(relations))
	for i, rel := range relations {
		ids[i] = rel.Target.ID
	}
	return sliceutils.Unique(ids)
}

// fetchWorkItems fetches every work item referenced by relations, one batch
// request at a time. It returns the work items and the number of requests
// made.
func (e *Exporter) fetchWorkItems(ctx context.Context, relations []devops.WorkItemRelation) ([]devops.WorkItem, int, error) {
	ids := TargetIDs(relations)
	if len(ids) == 0 {
		return nil, 0, nil
	}
	size := min(e.cfg.BatchSize, devops.MaxBatchSize)
	if size <= 0 {
		size = devops.MaxBatchSize
	}
	chunks := sliceutils.Chunk(ids, size)

	var items []devops.WorkItem
	for i, chunk := range chunks {
		logrus.WithFields(logrus.Fields{
			"batch": i + 1,
			"of":    len(chunks),
			"ids":   len(chunk),
		}).Debug("fetching work items")
		batch, err := e.api.WorkItemsBatch(ctx, chunk, devops.ExpandAll)
		if err != nil {
			return nil, i, err
		}
		items = append(items, batch...)
	}
	return items, len(chunks), nil
}
