package devops

import (
	"context"
	"net/url"
	"strconv"

	"emperror.dev/errors"
)

const gitAPIVersion = "7.1-preview.1"

type Repository struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	DefaultBranch string `json:"defaultBranch,omitempty"`
	RemoteURL     string `json:"remoteUrl,omitempty"`
	Size          int64  `json:"size,omitempty"`
	IsDisabled    bool   `json:"isDisabled"`
}

type repositoryList struct {
	Count int          `json:"count"`
	Value []Repository `json:"value"`
}

// ListRepositories returns every repository in the project. Hidden
// repositories are only included if includeHidden is set; disabled
// repositories are always included (see EnabledRepositories).
func (c *Client) ListRepositories(ctx context.Context, includeHidden bool) ([]Repository, error) {
	query := url.Values{
		"includeLinks":   {"false"},
		"includeAllUrls": {"false"},
		"includeHidden":  {strconv.FormatBool(includeHidden)},
		"api-version":    {gitAPIVersion},
	}
	var list repositoryList
	if err := c.get(ctx, "git/repositories", query, &list); err != nil {
		return nil, errors.WithMessage(err, "failed to list repositories")
	}
	return list.Value, nil
}

// EnabledRepositories filters out repositories that are disabled.
func EnabledRepositories(repos []Repository) []Repository {
	var enabled []Repository
	for _, r := range repos {
		if !r.IsDisabled {
			enabled = append(enabled, r)
		}
	}
	return enabled
}
