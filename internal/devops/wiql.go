package devops

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"emperror.dev/errors"
)

const wiqlAPIVersion = "6.0"

const hierarchyForward = "System.LinkTypes.Hierarchy-Forward"

type WorkItemRef struct {
	ID  int    `json:"id"`
	URL string `json:"url,omitempty"`
}

// WorkItemRelation is one row of a link query. Source is nil for top-level
// rows, which denote root work items.
type WorkItemRelation struct {
	Rel    string       `json:"rel,omitempty"`
	Source *WorkItemRef `json:"source,omitempty"`
	Target WorkItemRef  `json:"target"`
}

type wiqlRequest struct {
	Query string `json:"query"`
}

type wiqlResponse struct {
	QueryType         string             `json:"queryType"`
	QueryResultType   string             `json:"queryResultType"`
	WorkItemRelations []WorkItemRelation `json:"workItemRelations"`
}

// QueryWorkItemLinks runs a WIQL link query and returns its relations in the
// order the service produced them.
func (c *Client) QueryWorkItemLinks(ctx context.Context, wiql string) ([]WorkItemRelation, error) {
	query := url.Values{"api-version": {wiqlAPIVersion}}
	var res wiqlResponse
	if err := c.post(ctx, "wit/wiql", query, wiqlRequest{Query: wiql}, &res); err != nil {
		return nil, errors.WithMessage(err, "failed to run work item query")
	}
	return res.WorkItemRelations, nil
}

// HierarchyQuery describes the parent/child link query used to find the work
// items someone worked on.
type HierarchyQuery struct {
	Types []string
	// ClosedAfter is a date (YYYY-MM-DD) that link targets must have been
	// closed on or after.
	ClosedAfter string
	HistoryWord string
	AssignedTo  string
}

// String renders the query as WIQL.
func (q HierarchyQuery) String() string {
	types := make([]string, len(q.Types))
	for i, t := range q.Types {
		types[i] = quote(t)
	}
	typeList := strings.Join(types, ", ")

	var b strings.Builder
	b.WriteString("select [System.Id], [System.WorkItemType], [System.Title] from WorkItemLinks where ")
	fmt.Fprintf(&b, "(Source.[System.TeamProject] = @project and Source.[System.WorkItemType] in (%s))", typeList)
	fmt.Fprintf(&b, " and ([System.Links.LinkType] = %s)", quote(hierarchyForward))
	fmt.Fprintf(&b, " and (Target.[System.TeamProject] = @project and Target.[System.WorkItemType] in (%s)", typeList)
	if q.ClosedAfter != "" {
		fmt.Fprintf(&b, " and Target.[Microsoft.VSTS.Common.ClosedDate] >= %s", quote(q.ClosedAfter+"T00:00:00.0000000"))
	}
	var who []string
	if q.HistoryWord != "" {
		who = append(who, "Target.[System.History] contains words "+quote(q.HistoryWord))
	}
	if q.AssignedTo != "" {
		who = append(who, "Target.[System.AssignedTo] = "+quote(q.AssignedTo))
	}
	if len(who) > 0 {
		fmt.Fprintf(&b, " and (%s)", strings.Join(who, " or "))
	}
	b.WriteString(")")
	b.WriteString(" order by [Microsoft.VSTS.Common.ClosedDate] mode (Recursive, ReturnMatchingChildren)")
	return b.String()
}

// quote renders s as a WIQL string literal.
func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
