package devops

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
)

// CommitSearch is the body of a batch commit search.
type CommitSearch struct {
	Author   string `json:"author,omitempty"`
	FromDate string `json:"fromDate,omitempty"`
}

// CommitList is the result of a batch commit search. Commits are kept as raw
// JSON so that they can be persisted exactly as the service returned them.
type CommitList struct {
	Count int               `json:"count"`
	Value []json.RawMessage `json:"value"`
}

// CommitsBatch searches the commits of one repository, returning at most top
// results.
func (c *Client) CommitsBatch(ctx context.Context, repositoryID string, search CommitSearch, top int) (*CommitList, error) {
	endpoint := "git/repositories/" + repositoryID + "/commitsbatch"
	query := url.Values{
		"$top":        {strconv.Itoa(top)},
		"api-version": {gitAPIVersion},
	}
	var list CommitList
	if err := c.post(ctx, endpoint, query, search, &list); err != nil {
		return nil, err
	}
	if list.Value == nil {
		list.Value = []json.RawMessage{}
	}
	return &list, nil
}
