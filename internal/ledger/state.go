package ledger

import (
	"maps"

	"emperror.dev/errors"
	"github.com/aviator-co/adoexport/internal/utils/jsonfile"
)

type state struct {
	Repositories map[string]Entry `json:"repositories"`
	WorkItems    *Entry           `json:"workitems,omitempty"`
}

func readState(filepath string) (*state, error) {
	var s state
	if _, err := jsonfile.Read(filepath, &s); err != nil {
		return nil, errors.WrapIf(err, "failed to read export ledger")
	}
	if s.Repositories == nil {
		s.Repositories = make(map[string]Entry)
	}
	return &s, nil
}

func (s *state) copy() state {
	c := state{Repositories: maps.Clone(s.Repositories)}
	if s.WorkItems != nil {
		wi := *s.WorkItems
		c.WorkItems = &wi
	}
	return c
}

func (s *state) write(filepath string) error {
	if _, err := jsonfile.Write(filepath, s); err != nil {
		return errors.WrapIf(err, "failed to write export ledger")
	}
	return nil
}
