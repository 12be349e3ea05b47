package canon

import (
	"strconv"

	"github.com/daddykev/ddex-suite-sub003/internal/graph"
)

// FromDocument builds the canonical-form element tree for doc. It is the
// single field mapping shared by the real XML emission path
// (internal/builder.Build) and the canonical-hash path
// (ddex.CanonicalHash): both canonicalize and, where applicable, render
// the same tree, so they can never drift apart the way two independently
// maintained mappings did before this existed.
func FromDocument(doc *graph.Document) *Node {
	root := &Node{LocalName: "NewReleaseMessage", IsSequence: true}
	var version string
	switch doc.Variant {
	case graph.V43:
		version = "43"
	case graph.V42:
		version = "42"
	case graph.V382:
		version = "382"
	}
	if version != "" {
		root.Attrs = append(root.Attrs,
			Attr{Name: "xmlns", Value: "http://ddex.net/xml/ern/" + version},
			Attr{Name: "MessageSchemaVersionId", Value: "ern/" + version},
		)
	}
	root.Children = append(root.Children, messageHeaderNode(doc.MessageHeader))

	if len(doc.Parties) > 0 {
		list := &Node{LocalName: "PartyList"}
		for i := range doc.Parties {
			list.Children = append(list.Children, partyNode(&doc.Parties[i]))
		}
		root.Children = append(root.Children, list)
	}
	if len(doc.Resources) > 0 {
		list := &Node{LocalName: "ResourceList"}
		for i := range doc.Resources {
			list.Children = append(list.Children, resourceNode(&doc.Resources[i]))
		}
		root.Children = append(root.Children, list)
	}
	if len(doc.Releases) > 0 {
		list := &Node{LocalName: "ReleaseList", IsSequence: true}
		for i := range doc.Releases {
			list.Children = append(list.Children, releaseNode(&doc.Releases[i]))
		}
		root.Children = append(root.Children, list)
	}
	if len(doc.Deals) > 0 {
		list := &Node{LocalName: "DealList"}
		for i := range doc.Deals {
			list.Children = append(list.Children, dealNode(&doc.Deals[i]))
		}
		root.Children = append(root.Children, list)
	}
	return root
}

// addLeaf appends a text leaf only when text is non-empty, matching the
// builder's historical convention of never emitting empty optional
// elements (spec §4.6: canonical output carries no element whose absence
// and empty presence would otherwise hash differently).
func addLeaf(children []*Node, name, text string) []*Node {
	if text == "" {
		return children
	}
	return append(children, &Node{LocalName: name, Text: text})
}

func messageHeaderNode(h graph.MessageHeader) *Node {
	n := &Node{LocalName: "MessageHeader", IsSequence: true}
	if h.ControlType != "" {
		n.Attrs = append(n.Attrs, Attr{Name: "MessageControlType", Value: string(h.ControlType)})
	}
	n.Children = addLeaf(n.Children, "MessageId", h.MessageID)
	if h.Sender != "" {
		sender := &Node{LocalName: "MessageSender"}
		sender.Children = addLeaf(sender.Children, "PartyId", h.Sender)
		n.Children = append(n.Children, sender)
	}
	if h.Recipient != "" {
		recipient := &Node{LocalName: "MessageRecipient"}
		recipient.Children = addLeaf(recipient.Children, "PartyId", h.Recipient)
		n.Children = append(n.Children, recipient)
	}
	if !h.CreatedAt.IsZero() {
		n.Children = addLeaf(n.Children, "MessageCreatedDateTime", h.CreatedAt.Format("2006-01-02T15:04:05Z07:00"))
	}
	n.Children = addLeaf(n.Children, "UpdateIndicator", string(h.UpdateIndicator))
	return n
}

func partyNode(p *graph.Party) *Node {
	n := &Node{LocalName: "Party"}
	n.Children = addLeaf(n.Children, "PartyReference", p.PartyReference)
	for _, id := range p.Identifiers {
		idNode := &Node{LocalName: "PartyId", Text: id.Value}
		idNode.Attrs = append(idNode.Attrs, Attr{Name: "Namespace", Value: id.Namespace})
		n.Children = append(n.Children, idNode)
	}
	for _, name := range p.Names {
		nameNode := &Node{LocalName: "PartyName"}
		if name.LanguageCode != "" {
			nameNode.Attrs = append(nameNode.Attrs, Attr{Name: "LanguageAndScriptCode", Value: name.LanguageCode})
		}
		nameNode.Children = addLeaf(nameNode.Children, "FullName", name.FullName)
		n.Children = append(n.Children, nameNode)
	}
	for _, r := range p.Roles {
		n.Children = addLeaf(n.Children, "PartyRole", string(r))
	}
	return n
}

func resourceElementName(kind graph.ResourceKind) string {
	switch kind {
	case graph.KindSoundRecording:
		return "SoundRecording"
	case graph.KindMusicVideo:
		return "MusicVideo"
	case graph.KindImage:
		return "Image"
	case graph.KindText:
		return "Text"
	default:
		return "Other"
	}
}

func resourceNode(r *graph.Resource) *Node {
	n := &Node{LocalName: resourceElementName(r.Kind)}
	n.Children = addLeaf(n.Children, "ResourceReference", r.ResourceReference)
	for _, id := range r.Identifiers {
		if id.Namespace == "ISRC" {
			n.Children = addLeaf(n.Children, "ISRC", id.Value)
			continue
		}
		idWrap := &Node{LocalName: "ResourceId"}
		idWrap.Children = append(idWrap.Children, &Node{LocalName: id.Namespace, Text: id.Value})
		n.Children = append(n.Children, idWrap)
	}
	n.Children = addLeaf(n.Children, "RightsController", r.RightsController)
	for _, a := range r.DisplayArtist {
		artistNode := &Node{LocalName: "DisplayArtist"}
		artistNode.Attrs = append(artistNode.Attrs, Attr{Name: "Role", Value: a.Role})
		artistNode.Children = addLeaf(artistNode.Children, "PartyReference", a.PartyReference)
		n.Children = append(n.Children, artistNode)
	}
	for _, ts := range r.TerritoryScope {
		for _, t := range ts.Included {
			n.Children = addLeaf(n.Children, "TerritoryCode", t)
		}
		for _, t := range ts.Excluded {
			n.Children = addLeaf(n.Children, "ExcludedTerritoryCode", t)
		}
	}
	if r.Duration != nil {
		n.Children = addLeaf(n.Children, "Duration", r.Duration.Raw)
	}
	n.Children = addLeaf(n.Children, "Title", r.Title)
	return n
}

func releaseNode(rel *graph.Release) *Node {
	n := &Node{LocalName: "Release"}
	n.Children = addLeaf(n.Children, "ReleaseReference", rel.ReleaseReference)
	n.Children = addLeaf(n.Children, "ReleaseType", string(rel.ReleaseType))
	for _, t := range rel.Titles {
		titleNode := &Node{LocalName: "ReferenceTitle"}
		if t.LanguageCode != "" {
			titleNode.Attrs = append(titleNode.Attrs, Attr{Name: "LanguageAndScriptCode", Value: t.LanguageCode})
		}
		titleNode.Children = addLeaf(titleNode.Children, "TitleText", t.Value)
		n.Children = append(n.Children, titleNode)
	}
	for _, a := range rel.DisplayArtists {
		artistNode := &Node{LocalName: "DisplayArtist"}
		artistNode.Attrs = append(artistNode.Attrs, Attr{Name: "Role", Value: a.Role})
		artistNode.Children = addLeaf(artistNode.Children, "PartyReference", a.PartyReference)
		n.Children = append(n.Children, artistNode)
	}
	for _, g := range rel.ResourceGroups {
		n.Children = append(n.Children, resourceGroupNode(g))
	}
	n.Children = addLeaf(n.Children, "UPC", rel.CatalogIdentifiers.UPC)
	n.Children = addLeaf(n.Children, "EAN", rel.CatalogIdentifiers.EAN)
	n.Children = addLeaf(n.Children, "GRid", rel.CatalogIdentifiers.GRid)
	n.Children = addLeaf(n.Children, "CatalogNumber", rel.CatalogIdentifiers.LabelCatalogNumber)
	return n
}

func resourceGroupNode(g *graph.ResourceGroupNode) *Node {
	n := &Node{LocalName: "ResourceGroup", IsSequence: true}
	if g.SequenceNumber != 0 {
		n.Children = addLeaf(n.Children, "SequenceNumber", strconv.Itoa(g.SequenceNumber))
	}
	if g.IsLeaf() {
		item := &Node{LocalName: "ResourceGroupContentItem"}
		item.Children = addLeaf(item.Children, "ReleaseResourceReference", g.ReleaseResourceReference)
		n.Children = append(n.Children, item)
	}
	for _, c := range g.Children {
		n.Children = append(n.Children, resourceGroupNode(c))
	}
	return n
}

func dealNode(d *graph.Deal) *Node {
	n := &Node{LocalName: "ReleaseDeal"}
	if d.Scope.Kind == graph.ScopeRelease {
		n.Children = addLeaf(n.Children, "ReleaseReference", d.Scope.Reference)
	}
	terms := &Node{LocalName: "DealTerms"}
	terms.Attrs = append(terms.Attrs, Attr{Name: "DealReference", Value: d.DealReference})
	for _, ur := range d.UsageRights {
		for _, ut := range ur.UseTypes {
			terms.Children = addLeaf(terms.Children, "UseType", ut)
		}
	}
	for _, cm := range d.CommercialModelTypes {
		terms.Children = addLeaf(terms.Children, "CommercialModelType", cm)
	}
	for _, ts := range d.TerritoryScope {
		for _, t := range ts.Included {
			terms.Children = addLeaf(terms.Children, "TerritoryOfUse", t)
		}
		for _, t := range ts.Excluded {
			terms.Children = addLeaf(terms.Children, "ExcludedTerritoryCode", t)
		}
	}
	if d.ValidityPeriod.Start != nil || d.ValidityPeriod.End != nil {
		vp := &Node{LocalName: "ValidityPeriod", IsSequence: true}
		if d.ValidityPeriod.Start != nil {
			vp.Children = addLeaf(vp.Children, "StartDate", d.ValidityPeriod.Start.Format("2006-01-02"))
		}
		if d.ValidityPeriod.End != nil {
			vp.Children = addLeaf(vp.Children, "EndDate", d.ValidityPeriod.End.Format("2006-01-02"))
		}
		terms.Children = append(terms.Children, vp)
	}
	n.Children = append(n.Children, terms)
	return n
}
