package ledger

import (
	"os"
	"sort"

	"emperror.dev/errors"
)

type Problem struct {
	// Key is the repository ID, or "workitems".
	Key    string
	Entry  Entry
	Reason string
}

// Verify re-hashes every recorded file and reports the ones that are missing
// or whose content no longer matches the ledger. Problems are sorted by
// entry name.
func (l *Ledger) Verify() ([]Problem, error) {
	var problems []Problem
	check := func(key string, e Entry) error {
		data, err := os.ReadFile(l.Path(e))
		if os.IsNotExist(err) {
			problems = append(problems, Problem{key, e, "file is missing"})
			return nil
		}
		if err != nil {
			return errors.WrapIff(err, "failed to read %s", e.File)
		}
		if got := Hash(data); got != e.Hash {
			problems = append(problems, Problem{key, e, "content changed (hash " + got + ", recorded " + e.Hash + ")"})
		}
		return nil
	}

	for id, e := range l.state.Repositories {
		if err := check(id, e); err != nil {
			return nil, err
		}
	}
	if e, ok := l.WorkItems(); ok {
		if err := check("workitems", e); err != nil {
			return nil, err
		}
	}
	sort.Slice(problems, func(i, j int) bool {
		return problems[i].Entry.Name < problems[j].Entry.Name
	})
	return problems, nil
}

// Len returns the number of recorded entries.
func (l *Ledger) Len() int {
	n := len(l.state.Repositories)
	if l.state.WorkItems != nil {
		n++
	}
	return n
}

// ErrVerifyFailed is returned by callers that want to signal that Verify
// found problems.
var ErrVerifyFailed = errors.Sentinel("some exported files do not match the export ledger")
