package graph

import "fmt"

// Resolver is the read-only reference index built over a Document: a map
// from every local key to the kind of entity that owns it, used to check
// reference closure (spec §3 invariant, §4.3 "resolve references in two
// passes").
type Resolver struct {
	parties   map[string]*Party
	resources map[string]*Resource
	releases  map[string]*Release
	deals     map[string]*Deal
}

// BuildResolver performs pass 1 (record all local keys) over doc. Pass 2
// (check closure) is performed separately by Resolver.Closure, so that
// callers who only need lookups don't pay for a full closure scan.
func BuildResolver(doc *Document) *Resolver {
	r := &Resolver{
		parties:   make(map[string]*Party, len(doc.Parties)),
		resources: make(map[string]*Resource, len(doc.Resources)),
		releases:  make(map[string]*Release, len(doc.Releases)),
		deals:     make(map[string]*Deal, len(doc.Deals)),
	}
	for i := range doc.Parties {
		r.parties[doc.Parties[i].PartyReference] = &doc.Parties[i]
	}
	for i := range doc.Resources {
		r.resources[doc.Resources[i].ResourceReference] = &doc.Resources[i]
	}
	for i := range doc.Releases {
		r.releases[doc.Releases[i].ReleaseReference] = &doc.Releases[i]
	}
	for i := range doc.Deals {
		r.deals[doc.Deals[i].DealReference] = &doc.Deals[i]
	}
	return r
}

// Party looks up a Party by its local reference key.
func (r *Resolver) Party(ref string) (*Party, bool) {
	p, ok := r.parties[ref]
	return p, ok
}

// Resource looks up a Resource by its local reference key.
func (r *Resolver) Resource(ref string) (*Resource, bool) {
	res, ok := r.resources[ref]
	return res, ok
}

// Release looks up a Release by its local reference key.
func (r *Resolver) Release(ref string) (*Release, bool) {
	rel, ok := r.releases[ref]
	return rel, ok
}

// Deal looks up a Deal by its local reference key.
func (r *Resolver) Deal(ref string) (*Deal, bool) {
	d, ok := r.deals[ref]
	return d, ok
}

// UnresolvedRef names a reference that pointed nowhere, with the logical
// path at which it was found (pass 2 of spec §4.3).
type UnresolvedRef struct {
	Path   string
	Target string
	Kind   string // "Party" | "Resource" | "Release"
}

// Closure walks every reference-bearing field in doc and returns the
// unresolved ones. This is pass 2 of the two-pass reference resolution
// algorithm described in spec §4.3.
func (r *Resolver) Closure(doc *Document) []UnresolvedRef {
	var unresolved []UnresolvedRef

	checkParty := func(path, ref string) {
		if ref == "" {
			return
		}
		if _, ok := r.parties[ref]; !ok {
			unresolved = append(unresolved, UnresolvedRef{Path: path, Target: ref, Kind: "Party"})
		}
	}
	checkResource := func(path, ref string) {
		if ref == "" {
			return
		}
		if _, ok := r.resources[ref]; !ok {
			unresolved = append(unresolved, UnresolvedRef{Path: path, Target: ref, Kind: "Resource"})
		}
	}

	// MessageHeader.Sender/Recipient hold the sending/receiving party's
	// DPID (an external identifier), not a local PartyReference key, so
	// they are never checked against the local Party index here.

	for i := range doc.Resources {
		res := &doc.Resources[i]
		checkParty(fmt.Sprintf("/resources[%s]/rightsController", res.ResourceReference), res.RightsController)
		for j, a := range res.DisplayArtist {
			checkParty(fmt.Sprintf("/resources[%s]/displayArtist[%d]", res.ResourceReference, j), a.PartyReference)
		}
	}

	for i := range doc.Releases {
		rel := &doc.Releases[i]
		for j, a := range rel.DisplayArtists {
			checkParty(fmt.Sprintf("/releases[%s]/displayArtists[%d]", rel.ReleaseReference, j), a.PartyReference)
		}
		var walk func(nodes []*ResourceGroupNode, idx int, base string)
		walk = func(nodes []*ResourceGroupNode, idx int, base string) {
			for i, n := range nodes {
				path := fmt.Sprintf("%s/leaf[%d]", base, i)
				if n.IsLeaf() {
					checkResource(path+"/ref", n.ReleaseResourceReference)
				}
				walk(n.Children, idx, path)
			}
		}
		walk(rel.ResourceGroups, 0, fmt.Sprintf("/releases[%s]/resourceGroup", rel.ReleaseReference))
	}

	for i := range doc.Deals {
		deal := &doc.Deals[i]
		path := fmt.Sprintf("/deals[%s]/scope", deal.DealReference)
		switch deal.Scope.Kind {
		case ScopeRelease:
			if _, ok := r.releases[deal.Scope.Reference]; !ok && deal.Scope.Reference != "" {
				unresolved = append(unresolved, UnresolvedRef{Path: path, Target: deal.Scope.Reference, Kind: "Release"})
			}
		case ScopeResource:
			checkResource(path, deal.Scope.Reference)
		}
	}

	return unresolved
}
