// Package diff implements the Semantic Diff (spec §4.11): a path-keyed
// comparison between two parsed Documents that ignores cosmetic noise
// (namespace-prefix choice, attribute order) and reports only meaningful
// structural change.
package diff

import (
	"fmt"
	"sort"

	"github.com/montanaflynn/stats"

	"github.com/daddykev/ddex-suite-sub003/internal/graph"
)

// ChangeKind classifies one entry in a Diff.
type ChangeKind string

const (
	Added    ChangeKind = "Added"
	Removed  ChangeKind = "Removed"
	Modified ChangeKind = "Modified"
	Reordered ChangeKind = "Reordered"
)

// Change is one path-keyed difference between two Documents.
type Change struct {
	Path  string
	Kind  ChangeKind
	Before string
	After  string
}

// Summary aggregates basic statistics over a change set, useful for
// dashboards that track diff volume across many document pairs over
// time (spec §4.11 supplement: "optional aggregate summaries").
type Summary struct {
	Total      int
	ByKind     map[ChangeKind]int
	MeanPathDepth float64
}

// Diff compares before and after, returning a path-sorted list of
// changes. Entries are produced by walking each Document's entities in
// reference order and merging the two sorted path streams in
// O((n+m) log(n+m)), matching spec §4.11's complexity bound.
func Diff(before, after *graph.Document) []Change {
	b := snapshot(before)
	a := snapshot(after)

	allPaths := make(map[string]bool, len(b)+len(a))
	for p := range b {
		allPaths[p] = true
	}
	for p := range a {
		allPaths[p] = true
	}
	paths := make([]string, 0, len(allPaths))
	for p := range allPaths {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var changes []Change
	for _, p := range paths {
		bv, bok := b[p]
		av, aok := a[p]
		switch {
		case !bok:
			changes = append(changes, Change{Path: p, Kind: Added, After: av})
		case !aok:
			changes = append(changes, Change{Path: p, Kind: Removed, Before: bv})
		case bv != av:
			changes = append(changes, Change{Path: p, Kind: Modified, Before: bv, After: av})
		}
	}

	changes = append(changes, sequenceChanges(before, after)...)
	sort.Slice(changes, func(i, j int) bool { return changes[i].Path < changes[j].Path })
	return changes
}

// snapshot flattens a Document's value-bearing fields into a path->value
// map, skipping ordering-only and namespace-prefix information (spec
// §4.11: "ignoring namespace-prefix/attribute-order changes").
func snapshot(doc *graph.Document) map[string]string {
	out := make(map[string]string)
	out["/messageHeader/messageId"] = doc.MessageHeader.MessageID
	out["/messageHeader/sender"] = doc.MessageHeader.Sender
	out["/messageHeader/recipient"] = doc.MessageHeader.Recipient

	for i := range doc.Parties {
		p := &doc.Parties[i]
		base := fmt.Sprintf("/parties[%s]", p.PartyReference)
		for j, n := range p.Names {
			out[fmt.Sprintf("%s/names[%d]/fullName", base, j)] = n.FullName
		}
	}
	for i := range doc.Resources {
		r := &doc.Resources[i]
		base := fmt.Sprintf("/resources[%s]", r.ResourceReference)
		out[base+"/title"] = r.Title
		out[base+"/kind"] = string(r.Kind)
		if r.Duration != nil {
			out[base+"/duration"] = r.Duration.Raw
		}
	}
	for i := range doc.Releases {
		rel := &doc.Releases[i]
		base := fmt.Sprintf("/releases[%s]", rel.ReleaseReference)
		out[base+"/releaseType"] = string(rel.ReleaseType)
		out[base+"/upc"] = rel.CatalogIdentifiers.UPC
		out[base+"/ean"] = rel.CatalogIdentifiers.EAN
		for j, t := range rel.Titles {
			out[fmt.Sprintf("%s/titles[%d]/value", base, j)] = t.Value
		}
	}
	for i := range doc.Deals {
		d := &doc.Deals[i]
		base := fmt.Sprintf("/deals[%s]", d.DealReference)
		out[base+"/scope"] = string(d.Scope.Kind) + ":" + d.Scope.Reference
	}
	return out
}

// sequenceChanges detects Reordered entries: releases present in both
// documents whose position in the release list differs. Resource order is
// not compared.
func sequenceChanges(before, after *graph.Document) []Change {
	var changes []Change
	bOrder := refOrder(before)
	aOrder := refOrder(after)
	bPos := make(map[string]int, len(bOrder))
	for i, r := range bOrder {
		bPos[r] = i
	}
	for i, r := range aOrder {
		if prior, ok := bPos[r]; ok && prior != i {
			changes = append(changes, Change{
				Path: fmt.Sprintf("/releases[%s]", r),
				Kind: Reordered,
				Before: fmt.Sprintf("%d", prior),
				After:  fmt.Sprintf("%d", i),
			})
		}
	}
	return changes
}

func refOrder(doc *graph.Document) []string {
	out := make([]string, len(doc.Releases))
	for i := range doc.Releases {
		out[i] = doc.Releases[i].ReleaseReference
	}
	return out
}

// Aggregate computes a Summary over changes, using montanaflynn/stats for
// the mean-path-depth figure (counting path separators as a proxy for how
// deep in the tree changes cluster).
func Aggregate(changes []Change) Summary {
	s := Summary{Total: len(changes), ByKind: make(map[ChangeKind]int, 4)}
	depths := make([]float64, 0, len(changes))
	for _, c := range changes {
		s.ByKind[c.Kind]++
		depth := 0
		for _, r := range c.Path {
			if r == '/' {
				depth++
			}
		}
		depths = append(depths, float64(depth))
	}
	if mean, err := stats.Mean(depths); err == nil {
		s.MeanPathDepth = mean
	}
	return s
}
