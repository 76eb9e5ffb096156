package export

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"emperror.dev/errors"
	"github.com/aviator-co/adoexport/internal/devops"
	"github.com/aviator-co/adoexport/internal/utils/jsonfile"
	"github.com/aviator-co/adoexport/internal/utils/sanitize"
	"github.com/sirupsen/logrus"
)

// EmptyPrefix marks the dump of a repository in which no matching commits
// were found, so that it isn't mistaken for a repository that was never
// processed.
const EmptyPrefix = "@"

type CommitsReport struct {
	// Written is the number of repositories with at least one commit.
	Written int
	// Empty is the number of repositories without matching commits.
	Empty int
	// Skipped is the number of repositories that were already dumped.
	Skipped int
	// Missing is the number of repositories that the service reported as
	// not found.
	Missing int
	// Failed is the number of repositories whose commit search failed for
	// any other reason.
	Failed  int
	Commits int
	Bytes   int64
}

// CommitFilePath returns the path the commits of the named repository are
// written to.
//
// Leading EmptyPrefix characters in the repository name are doubled, so plain
// file names always start with an even number of them and empty-marker names
// with an odd number: an empty repository "foo" ("@foo.json") never collides
// with a repository literally named "@foo" ("@@foo.json").
func (e *Exporter) CommitFilePath(repoName string, empty bool) string {
	name := sanitize.FileName(repoName)
	trimmed := strings.TrimLeft(name, EmptyPrefix)
	name = strings.Repeat(EmptyPrefix, 2*(len(name)-len(trimmed))) + trimmed
	if empty {
		name = EmptyPrefix + name
	}
	return filepath.Join(e.cfg.CommitsPath(), name+".json")
}

// DumpCommits writes the commits authored by the configured author in every
// enabled repository, one file per repository.
// A failed commit search is logged and the repository skipped; failing to
// list repositories or to write a file aborts the stage.
func (e *Exporter) DumpCommits(ctx context.Context) (*CommitsReport, error) {
	dir := e.cfg.CommitsPath()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.WrapIff(err, "failed to create commits directory %s", dir)
	}

	repos, err := e.api.ListRepositories(ctx, e.cfg.IncludeHidden)
	if err != nil {
		return nil, err
	}
	enabled := devops.EnabledRepositories(repos)
	logrus.WithFields(logrus.Fields{
		"repositories": len(repos),
		"enabled":      len(enabled),
	}).Debug("listed repositories")

	report := &CommitsReport{}
	search := devops.CommitSearch{Author: e.cfg.Author, FromDate: e.cfg.FromDate}
	for _, repo := range enabled {
		if err := ctx.Err(); err != nil {
			return report, errors.WithStack(err)
		}

		log := logrus.WithField("repository", repo.Name)
		if e.commitsDumped(repo) {
			log.Info("dump for repository already exists, omitting")
			report.Skipped++
			continue
		}

		log.Info("processing repository")
		list, err := e.api.CommitsBatch(ctx, repo.ID, search, e.cfg.CommitTop)
		if err != nil {
			if ctx.Err() != nil {
				return report, errors.WithStack(ctx.Err())
			}
			if devops.IsNotFound(err) {
				log.Warn("cannot query repository for commits: it does not exist")
				report.Missing++
			} else {
				log.WithError(err).Error("unknown error for repository")
				report.Failed++
			}
			continue
		}

		empty := list.Count == 0 && len(list.Value) == 0
		path := e.CommitFilePath(repo.Name, empty)
		data, err := jsonfile.Write(path, list.Value)
		if err != nil {
			return report, err
		}
		if err := e.ledger.RecordRepository(repo.ID, repo.Name, path, len(list.Value), data); err != nil {
			return report, err
		}

		if empty {
			report.Empty++
		} else {
			report.Written++
		}
		report.Commits += len(list.Value)
		report.Bytes += int64(len(data))
		log.WithFields(logrus.Fields{
			"commits": len(list.Value),
			"file":    path,
		}).Debug("wrote commits")
	}
	return report, nil
}

// commitsDumped reports whether repo has already been dumped.
//
// A ledger entry whose file still exists counts (this also covers
// repositories renamed since they were dumped). Otherwise the presence of
// either the plain or the empty-marker file counts, which keeps dumps made
// without a ledger from being redone.
func (e *Exporter) commitsDumped(repo devops.Repository) bool {
	if entry, ok := e.ledger.Repository(repo.ID); ok && e.ledger.HasFile(entry) {
		return true
	}
	return jsonfile.Exists(e.CommitFilePath(repo.Name, false)) ||
		jsonfile.Exists(e.CommitFilePath(repo.Name, true))
}
