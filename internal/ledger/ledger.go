// Package ledger records which parts of an export have completed, so that a
// re-run can skip them.
//
// The ledger is a JSON file that lives next to the exported files. Each entry
// names the file that was written and a content hash of it, which lets Verify
// detect dumps that were edited or deleted after the fact.
package ledger

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"emperror.dev/errors"
	"github.com/cespare/xxhash/v2"
)

type Entry struct {
	// Name is a human-readable label (e.g., the repository name).
	Name string `json:"name"`
	// File is the path of the written file, relative to the ledger's
	// directory.
	File string `json:"file"`
	// Count is the number of records in the file.
	Count       int       `json:"count"`
	Hash        string    `json:"hash"`
	CompletedAt time.Time `json:"completedAt"`
}

// Hash returns the content hash recorded for data.
func Hash(data []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(data))
}

type Ledger struct {
	*state
	filepath string
	now      func() time.Time
}

// Open opens the ledger at the given path.
// If the file does not exist, an empty ledger is returned; the file is only
// created on the first write.
func Open(filepath string) (*Ledger, error) {
	state, err := readState(filepath)
	if err != nil {
		return nil, err
	}
	return &Ledger{state: state, filepath: filepath, now: time.Now}, nil
}

func (l *Ledger) Dir() string {
	return filepath.Dir(l.filepath)
}

// Repository returns the entry for the repository with the given ID.
func (l *Ledger) Repository(id string) (Entry, bool) {
	e, ok := l.state.Repositories[id]
	return e, ok
}

// WorkItems returns the entry for the work item export.
func (l *Ledger) WorkItems() (Entry, bool) {
	if l.state.WorkItems == nil {
		return Entry{}, false
	}
	return *l.state.WorkItems, true
}

// Path resolves an entry's file against the ledger's directory.
func (l *Ledger) Path(e Entry) string {
	return filepath.Join(l.Dir(), filepath.FromSlash(e.File))
}

// HasFile reports whether the file recorded in e is still present.
func (l *Ledger) HasFile(e Entry) bool {
	_, err := os.Stat(l.Path(e))
	return err == nil
}

// RecordRepository stores the outcome of dumping one repository. data is the
// content that was written to file.
func (l *Ledger) RecordRepository(id, name, file string, count int, data []byte) error {
	e, err := l.entry(name, file, count, data)
	if err != nil {
		return err
	}
	return l.withTx(func(s *state) {
		s.Repositories[id] = e
	})
}

// RecordWorkItems stores the outcome of the work item export.
func (l *Ledger) RecordWorkItems(file string, count int, data []byte) error {
	e, err := l.entry("work items", file, count, data)
	if err != nil {
		return err
	}
	return l.withTx(func(s *state) {
		s.WorkItems = &e
	})
}

func (l *Ledger) entry(name, file string, count int, data []byte) (Entry, error) {
	rel, err := l.rel(file)
	if err != nil {
		return Entry{}, err
	}
	return Entry{
		Name:        name,
		File:        rel,
		Count:       count,
		Hash:        Hash(data),
		CompletedAt: l.now().UTC(),
	}, nil
}

func (l *Ledger) rel(file string) (string, error) {
	absDir, err := filepath.Abs(l.Dir())
	if err != nil {
		return "", errors.WithStack(err)
	}
	absFile, err := filepath.Abs(file)
	if err != nil {
		return "", errors.WithStack(err)
	}
	rel, err := filepath.Rel(absDir, absFile)
	if err != nil {
		return "", errors.WrapIff(err, "file %q is not inside the ledger directory", file)
	}
	return filepath.ToSlash(rel), nil
}

// withTx applies fn to a copy of the state, persists it, and only then makes
// it the current state.
func (l *Ledger) withTx(fn func(s *state)) error {
	s := l.state.copy()
	fn(&s)
	if err := s.write(l.filepath); err != nil {
		return err
	}
	l.state = &s
	return nil
}
