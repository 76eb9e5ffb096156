// Package export implements the two export stages (commits and work items)
// and runs them in order.
package export

import (
	"context"

	"emperror.dev/errors"
	"github.com/aviator-co/adoexport/internal/config"
	"github.com/aviator-co/adoexport/internal/devops"
	"github.com/aviator-co/adoexport/internal/ledger"
	"github.com/sirupsen/logrus"
)

// API is the subset of the Azure DevOps client the export needs.
type API interface {
	ListRepositories(ctx context.Context, includeHidden bool) ([]devops.Repository, error)
	CommitsBatch(ctx context.Context, repositoryID string, search devops.CommitSearch, top int) (*devops.CommitList, error)
	QueryWorkItemLinks(ctx context.Context, wiql string) ([]devops.WorkItemRelation, error)
	WorkItemsBatch(ctx context.Context, ids []int, expand string) ([]devops.WorkItem, error)
}

var _ API = (*devops.Client)(nil)

type Exporter struct {
	api    API
	cfg    *config.Config
	ledger *ledger.Ledger
}

// New creates an Exporter. The ledger is opened (but not created) from the
// configured output directory.
func New(cfg *config.Config, api API) (*Exporter, error) {
	l, err := ledger.Open(cfg.LedgerPath())
	if err != nil {
		return nil, err
	}
	return &Exporter{api: api, cfg: cfg, ledger: l}, nil
}

func (e *Exporter) Ledger() *ledger.Ledger {
	return e.ledger
}

type Report struct {
	Commits   *CommitsReport
	WorkItems *WorkItemsReport
}

// Run dumps commits and then work items. An error from the commit stage stops
// the run before the work item stage starts.
func (e *Exporter) Run(ctx context.Context) (*Report, error) {
	commits, err := e.DumpCommits(ctx)
	if err != nil {
		return nil, errors.WrapIf(err, "commit export failed")
	}
	workItems, err := e.DumpWorkItems(ctx)
	if err != nil {
		return &Report{Commits: commits}, errors.WrapIf(err, "work item export failed")
	}
	logrus.Debug("export finished")
	return &Report{Commits: commits, WorkItems: workItems}, nil
}
