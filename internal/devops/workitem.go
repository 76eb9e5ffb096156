package devops

import (
	"context"
	"encoding/json"
	"net/url"

	"emperror.dev/errors"
)

// MaxBatchSize is the largest number of IDs the service accepts in a single
// work items batch request.
const MaxBatchSize = 200

const ExpandAll = "all"

type WorkItem struct {
	ID  int `json:"id"`
	Rev int `json:"rev,omitempty"`
	// Fields maps field reference names to their values, kept verbatim.
	Fields map[string]json.RawMessage `json:"fields"`
	// The remaining properties are passed through untouched.
	Relations         json.RawMessage `json:"relations,omitempty"`
	CommentVersionRef json.RawMessage `json:"commentVersionRef,omitempty"`
	Links             json.RawMessage `json:"_links,omitempty"`
	URL               string          `json:"url,omitempty"`
}

type workItemsBatchRequest struct {
	IDs    []int    `json:"ids"`
	Fields []string `json:"fields,omitempty"`
	Expand string   `json:"$expand,omitempty"`
}

type workItemList struct {
	Count int        `json:"count"`
	Value []WorkItem `json:"value"`
}

// WorkItemsBatch fetches the work items with the given IDs. The caller is
// responsible for keeping len(ids) within MaxBatchSize.
func (c *Client) WorkItemsBatch(ctx context.Context, ids []int, expand string) ([]WorkItem, error) {
	if len(ids) > MaxBatchSize {
		return nil, errors.Errorf("too many work item IDs in one batch: %d (max %d)", len(ids), MaxBatchSize)
	}
	query := url.Values{"api-version": {gitAPIVersion}}
	var list workItemList
	err := c.post(ctx, "wit/workitemsbatch", query, workItemsBatchRequest{
		IDs:    ids,
		Expand: expand,
	}, &list)
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to fetch %d work items", len(ids))
	}
	return list.Value, nil
}
