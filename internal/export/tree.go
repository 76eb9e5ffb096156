package export

import (
	"encoding/json"
	"slices"
	"strings"

	"github.com/aviator-co/adoexport/internal/devops"
	"github.com/sirupsen/logrus"
)

// Node is a work item in the exported tree. It serializes as the work item
// itself plus an "items" array holding its children, if it has any.
type Node struct {
	devops.WorkItem
	Items []*Node `json:"items,omitempty"`
}

type TreeStats struct {
	Roots int
	// Nodes is the total number of work items placed in the tree.
	Nodes int
	// Orphans counts relations whose parent never appeared in the tree;
	// their targets were promoted to roots.
	Orphans int
	// Missing counts relations whose target was not among the fetched work
	// items; they are dropped.
	Missing int
}

// BuildTree assembles work items into a tree following the parent/child
// relations of a link query.
//
// A relation without a source makes its target a root. A relation with a
// source appends its target to the children of the node with the source's ID,
// at any depth. The service returns parents before their children, so one
// pass normally suffices; relations whose parent is not placed yet are
// retried once the pass is over. A relation that still cannot be placed has
// its target promoted to a root (with a warning) rather than dropped, and
// whatever was waiting for that target is then placed below it.
func BuildTree(relations []devops.WorkItemRelation, items []devops.WorkItem) ([]*Node, TreeStats) {
	byID := make(map[int]devops.WorkItem, len(items))
	for _, wi := range items {
		byID[wi.ID] = wi
	}

	var (
		roots []*Node
		stats TreeStats
		// Placed nodes by ID. If a work item appears more than once, the
		// most recently placed node wins as a parent for later relations.
		nodes = make(map[int]*Node)
	)

	// place reports false if the relation's parent hasn't been placed yet.
	place := func(rel devops.WorkItemRelation) bool {
		wi, ok := byID[rel.Target.ID]
		if !ok {
			logrus.WithField("id", rel.Target.ID).Warn("work item referenced by query was not returned, skipping")
			stats.Missing++
			return true
		}
		node := &Node{WorkItem: RewriteFieldNames(wi)}
		if rel.Source == nil {
			roots = append(roots, node)
		} else {
			parent, ok := nodes[rel.Source.ID]
			if !ok {
				return false
			}
			parent.Items = append(parent.Items, node)
		}
		nodes[wi.ID] = node
		stats.Nodes++
		return true
	}

	// placeAll places as many relations as it can, retrying deferred ones
	// until no more progress is made, and returns those left over.
	placeAll := func(rels []devops.WorkItemRelation) []devops.WorkItemRelation {
		for {
			var next []devops.WorkItemRelation
			for _, rel := range rels {
				if !place(rel) {
					next = append(next, rel)
				}
			}
			if len(next) == 0 || len(next) == len(rels) {
				return next
			}
			rels = next
		}
	}

	pending := placeAll(relations)
	// Promote one orphan at a time: its descendants may be waiting for it.
	for len(pending) > 0 {
		i := orphanIndex(pending)
		rel := pending[i]
		logrus.WithFields(logrus.Fields{
			"id":     rel.Target.ID,
			"parent": rel.Source.ID,
		}).Warn("parent of work item is not part of the result, exporting it as a root")
		orphan := rel
		orphan.Source = nil
		place(orphan)
		stats.Orphans++
		pending = placeAll(slices.Delete(pending, i, i+1))
	}

	stats.Roots = len(roots)
	return roots, stats
}

// orphanIndex picks the pending relation to promote to a root: the first one
// whose parent isn't itself waiting to be placed. If every parent is waiting
// (a cycle), the first relation is picked.
func orphanIndex(pending []devops.WorkItemRelation) int {
	waiting := make(map[int]bool, len(pending))
	for _, rel := range pending {
		waiting[rel.Target.ID] = true
	}
	for i, rel := range pending {
		if !waiting[rel.Source.ID] {
			return i
		}
	}
	return 0
}

// FieldSeparator is the character in field reference names (e.g.
// "System.Title") that is rewritten on export.
const FieldSeparator = "."

// RewriteFieldNames returns a copy of wi whose top-level field names have
// their first FieldSeparator replaced by an underscore ("System.Title"
// becomes "System_Title", "Microsoft.VSTS.Common.ClosedDate" becomes
// "Microsoft_VSTS.Common.ClosedDate"). Field values are left untouched.
func RewriteFieldNames(wi devops.WorkItem) devops.WorkItem {
	if wi.Fields == nil {
		return wi
	}
	fields := make(map[string]json.RawMessage, len(wi.Fields))
	for key, value := range wi.Fields {
		renamed := strings.Replace(key, FieldSeparator, "_", 1)
		if _, clash := fields[renamed]; clash && renamed != key {
			// A field already named like the rewritten key keeps its own
			// value.
			continue
		}
		fields[renamed] = value
	}
	wi.Fields = fields
	return wi
}
