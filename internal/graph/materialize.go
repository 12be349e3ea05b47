package graph

import (
	"context"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/daddykev/ddex-suite-sub003/internal/ddexerr"
	"github.com/daddykev/ddex-suite-sub003/internal/xmlreader"
	"github.com/daddykev/ddex-suite-sub003/pkg/logger"
)

var log = logger.New("graph")

// knownElements is the per-variant dictionary of element local-names the
// materializer understands structurally. Anything else encountered while
// walking the token stream is captured into the ExtensionVault instead of
// being dropped (spec §4.5).
var knownElements = map[string]bool{
	"NewReleaseMessage": true, "MessageHeader": true, "MessageId": true,
	"MessageSender": true, "MessageRecipient": true, "PartyId": true,
	"MessageCreatedDateTime": true, "PartyList": true, "Party": true,
	"PartyReference": true, "PartyName": true, "FullName": true,
	"PartyRole": true, "ResourceList": true, "SoundRecording": true,
	"MusicVideo": true, "Image": true, "Text": true, "ResourceReference": true,
	"ResourceId": true, "ISRC": true, "TechnicalDetails": true,
	"RightsController": true, "TerritoryCode": true, "DisplayArtist": true,
	"Duration": true, "Title": true, "TitleText": true, "ReleaseList": true,
	"Release": true, "ReleaseReference": true, "ReleaseType": true,
	"ReferenceTitle": true, "ResourceGroup": true, "ResourceGroupContentItem": true,
	"SequenceNumber": true, "ReleaseResourceReference": true,
	"UpdateIndicator": true,
	"PLine": true, "CLine": true, "PLineText": true, "CLineText": true,
	"Genre": true, "GenreText": true, "ParentalWarningType": true,
	"UPC": true, "EAN": true, "GRid": true, "CatalogNumber": true,
	"DealList": true, "ReleaseDeal": true, "Deal": true, "DealTerms": true,
	"DealReference": true, "UseType": true, "TerritoryOfUse": true,
	"ValidityPeriod": true, "StartDate": true, "EndDate": true,
	"CommercialModelType": true, "ExcludedTerritoryCode": true,
}

type elem struct {
	name     string
	attrs    map[string]string
	text     strings.Builder
	path     string
	children []*elem
}

// Materialize consumes a hardened token stream and builds a Document. It
// performs a single structural pass (building a lightweight DOM of elem
// nodes while classifying known vs. unknown subtrees), then a second pass
// over that DOM translating known elements into the typed Document. The
// Resolver closure check (pass 2 of reference resolution, spec §4.3) is
// left to the caller via Document.Resolver().Closure.
func Materialize(ctx context.Context, rd *xmlreader.Reader, v Variant) (*Document, error) {
	defer log.WithMemoryStats().Timer("materialize")()

	root, err := buildElemTree(ctx, rd)
	if err != nil {
		return nil, err
	}

	doc := &Document{Variant: v, Extensions: NewExtensionVault()}
	walkRoot(doc, root)
	log.Debug("materialized document", "variant", v, "parties", len(doc.Parties),
		"resources", len(doc.Resources), "releases", len(doc.Releases), "deals", len(doc.Deals))
	return doc, nil
}

func buildElemTree(ctx context.Context, rd *xmlreader.Reader) (*elem, error) {
	var stack []*elem
	var root *elem

	for {
		tok, err := rd.Next(ctx)
		if err != nil {
			if err == io.EOF {
				if root == nil {
					return nil, ddexerr.New(ddexerr.CodeMalformedXml, ddexerr.XmlParsing, ddexerr.Fatal, "empty document")
				}
				return root, nil
			}
			return nil, err
		}
		switch tok.Kind {
		case xmlreader.StartElement:
			attrs := make(map[string]string, len(tok.Attrs))
			for _, a := range tok.Attrs {
				attrs[a.Name.Local] = a.Value
			}
			e := &elem{name: tok.Name.Local, attrs: attrs, path: tok.Path}
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, e)
			} else {
				root = e
			}
			stack = append(stack, e)
		case xmlreader.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
			if len(stack) == 0 && root != nil {
				return root, nil
			}
		case xmlreader.Text:
			if len(stack) > 0 {
				stack[len(stack)-1].text.WriteString(tok.Text)
			}
		}
	}
}

func childText(e *elem, name string) string {
	for _, c := range e.children {
		if c.name == name {
			return strings.TrimSpace(c.text.String())
		}
	}
	return ""
}

func children(e *elem, name string) []*elem {
	var out []*elem
	for _, c := range e.children {
		if c.name == name {
			out = append(out, c)
		}
	}
	return out
}

func attachUnknown(doc *Document, ownerPath string, e *elem, idx int) {
	ext := &Extension{
		LocalName: e.name,
		RawBytes:  nil,
	}
	for k, val := range e.attrs {
		ext.Attributes = append(ext.Attributes, ExtAttribute{Name: k, Value: val})
	}
	ext.InsertionIndex = idx
	doc.Extensions.Attach(ownerPath, ext)
}

func walkRoot(doc *Document, root *elem) {
	for i, c := range root.children {
		switch c.name {
		case "MessageHeader":
			walkMessageHeader(doc, c)
		case "PartyList":
			for _, p := range children(c, "Party") {
				doc.Parties = append(doc.Parties, walkParty(doc, p))
			}
		case "ResourceList":
			for _, r := range c.children {
				if kind, ok := resourceKindFor(r.name); ok {
					doc.Resources = append(doc.Resources, walkResource(doc, r, kind))
				} else if !knownElements[r.name] {
					attachUnknown(doc, "/", r, i)
				}
			}
		case "ReleaseList":
			for _, r := range children(c, "Release") {
				doc.Releases = append(doc.Releases, walkRelease(doc, r))
			}
		case "DealList":
			for _, d := range children(c, "ReleaseDeal") {
				doc.Deals = append(doc.Deals, walkDeal(doc, d)...)
			}
		default:
			if !knownElements[c.name] {
				attachUnknown(doc, "/", c, i)
			}
		}
	}
}

func resourceKindFor(name string) (ResourceKind, bool) {
	switch name {
	case "SoundRecording":
		return KindSoundRecording, true
	case "MusicVideo":
		return KindMusicVideo, true
	case "Image":
		return KindImage, true
	case "Text":
		return KindText, true
	default:
		return "", false
	}
}

func walkMessageHeader(doc *Document, e *elem) {
	h := MessageHeader{
		MessageID: childText(e, "MessageId"),
	}
	for _, c := range e.children {
		switch c.name {
		case "MessageSender":
			h.Sender = childText(c, "PartyId")
		case "MessageRecipient":
			h.Recipient = childText(c, "PartyId")
		case "MessageCreatedDateTime":
			if t, err := time.Parse(time.RFC3339, strings.TrimSpace(c.text.String())); err == nil {
				h.CreatedAt = t
			}
		case "UpdateIndicator":
			h.UpdateIndicator = UpdateIndicator(strings.TrimSpace(c.text.String()))
		}
	}
	if ct := e.attrs["MessageControlType"]; ct != "" {
		h.ControlType = ControlType(strings.ToLower(ct))
	}
	doc.MessageHeader = h
}

func walkParty(doc *Document, e *elem) Party {
	p := Party{PartyReference: childText(e, "PartyReference")}
	for _, id := range children(e, "PartyId") {
		p.Identifiers = append(p.Identifiers, Identifier{Namespace: id.attrs["Namespace"], Value: strings.TrimSpace(id.text.String())})
	}
	for _, n := range children(e, "PartyName") {
		p.Names = append(p.Names, LocalizedName{FullName: childText(n, "FullName"), LanguageCode: langOf(n)})
	}
	for _, r := range children(e, "PartyRole") {
		p.Roles = append(p.Roles, PartyRole(strings.TrimSpace(r.text.String())))
	}
	for i, c := range e.children {
		if !knownElements[c.name] {
			attachUnknown(doc, "/parties/"+p.PartyReference, c, i)
		}
	}
	return p
}

func langOf(e *elem) string {
	if l, ok := e.attrs["LanguageAndScriptCode"]; ok && l != "" {
		return l
	}
	return "und"
}

func walkResource(doc *Document, e *elem, kind ResourceKind) Resource {
	r := Resource{ResourceReference: childText(e, "ResourceReference"), Kind: kind}
	for _, id := range children(e, "ResourceId") {
		for _, c := range id.children {
			r.Identifiers = append(r.Identifiers, Identifier{Namespace: c.name, Value: strings.TrimSpace(c.text.String())})
		}
	}
	for _, isrc := range children(e, "ISRC") {
		r.Identifiers = append(r.Identifiers, Identifier{Namespace: "ISRC", Value: strings.TrimSpace(isrc.text.String())})
	}
	if td := childText(e, "TechnicalDetails"); td != "" {
		r.TechnicalDetails = map[string]string{"raw": td}
	}
	r.RightsController = childText(e, "RightsController")
	for _, a := range children(e, "DisplayArtist") {
		r.DisplayArtist = append(r.DisplayArtist, ArtistRef{PartyReference: childText(a, "PartyReference"), Role: a.attrs["Role"]})
	}
	for _, t := range children(e, "TerritoryCode") {
		r.TerritoryScope = append(r.TerritoryScope, TerritoryScope{Included: []string{strings.TrimSpace(t.text.String())}})
	}
	for _, t := range children(e, "ExcludedTerritoryCode") {
		r.TerritoryScope = append(r.TerritoryScope, TerritoryScope{Excluded: []string{strings.TrimSpace(t.text.String())}})
	}
	if dur := childText(e, "Duration"); dur != "" {
		r.Duration = &Duration{Seconds: parseISODuration(dur), Raw: dur}
	}
	r.Title = childText(e, "Title")
	for i, c := range e.children {
		if !knownElements[c.name] {
			attachUnknown(doc, "/resources/"+r.ResourceReference, c, i)
		}
	}
	return r
}

func walkRelease(doc *Document, e *elem) Release {
	rel := Release{
		ReleaseReference: childText(e, "ReleaseReference"),
		ReleaseType:      ReleaseType(childText(e, "ReleaseType")),
	}
	for _, t := range children(e, "ReferenceTitle") {
		rel.Titles = append(rel.Titles, LocalizedTitle{
			LocalizedString: LocalizedString{Value: childText(t, "TitleText"), LanguageCode: langOf(t)},
			Type:             TitleDisplay,
		})
	}
	for _, a := range children(e, "DisplayArtist") {
		rel.DisplayArtists = append(rel.DisplayArtists, ArtistRef{PartyReference: childText(a, "PartyReference"), Role: a.attrs["Role"]})
	}
	for _, g := range children(e, "ResourceGroup") {
		rel.ResourceGroups = append(rel.ResourceGroups, walkResourceGroup(g))
	}
	rel.CatalogIdentifiers = CatalogIdentifiers{
		UPC:                childText(e, "UPC"),
		EAN:                childText(e, "EAN"),
		GRid:               childText(e, "GRid"),
		LabelCatalogNumber: childText(e, "CatalogNumber"),
	}
	for i, c := range e.children {
		if !knownElements[c.name] {
			attachUnknown(doc, "/releases/"+rel.ReleaseReference, c, i)
		}
	}
	return rel
}

func walkResourceGroup(e *elem) *ResourceGroupNode {
	n := &ResourceGroupNode{}
	if sn := childText(e, "SequenceNumber"); sn != "" {
		n.SequenceNumber, _ = strconv.Atoi(sn)
	}
	for _, item := range children(e, "ResourceGroupContentItem") {
		n.ReleaseResourceReference = childText(item, "ReleaseResourceReference")
	}
	for _, sub := range children(e, "ResourceGroup") {
		n.Children = append(n.Children, walkResourceGroup(sub))
	}
	return n
}

func walkDeal(doc *Document, e *elem) []Deal {
	releaseRef := childText(e, "ReleaseReference")
	var out []Deal
	for _, dt := range children(e, "DealTerms") {
		d := Deal{
			DealReference: dt.attrs["DealReference"],
			Scope:         DealScope{Kind: ScopeRelease, Reference: releaseRef},
		}
		for _, u := range children(dt, "UseType") {
			d.UsageRights = append(d.UsageRights, UsageRight{UseTypes: []string{strings.TrimSpace(u.text.String())}})
		}
		for _, c := range children(dt, "CommercialModelType") {
			d.CommercialModelTypes = append(d.CommercialModelTypes, strings.TrimSpace(c.text.String()))
		}
		for _, t := range children(dt, "TerritoryOfUse") {
			scope := TerritoryScope{Included: []string{strings.TrimSpace(t.text.String())}}
			d.TerritoryScope = append(d.TerritoryScope, scope)
		}
		for _, t := range children(dt, "ExcludedTerritoryCode") {
			scope := TerritoryScope{Excluded: []string{strings.TrimSpace(t.text.String())}}
			d.TerritoryScope = append(d.TerritoryScope, scope)
		}
		if vp := children(dt, "ValidityPeriod"); len(vp) > 0 {
			d.ValidityPeriod = walkValidityPeriod(vp[0])
		}
		for i, c := range dt.children {
			if !knownElements[c.name] {
				attachUnknown(doc, "/deals/"+d.DealReference, c, i)
			}
		}
		out = append(out, d)
	}
	return out
}

func walkValidityPeriod(e *elem) ValidityPeriod {
	vp := ValidityPeriod{}
	if s := childText(e, "StartDate"); s != "" {
		if t, err := time.Parse("2006-01-02", s); err == nil {
			vp.Start = &t
		}
	}
	if s := childText(e, "EndDate"); s != "" {
		if t, err := time.Parse("2006-01-02", s); err == nil {
			vp.End = &t
		}
	} else {
		vp.OpenEnded = true
	}
	return vp
}

// parseISODuration parses the restricted PnYnMnDTnHnMnS subset used by the
// Format (spec §4.3: "numeric/temporal literal parsing"). It counts nD in
// the date part and nH, nM and nS (fractional values allowed) in the time
// part; other designators contribute nothing, and input without a leading
// P returns 0. The raw text is preserved for round-trip via Duration.Raw.
func parseISODuration(s string) float64 {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "P") {
		return 0
	}
	s = s[1:]
	var datePart, timePart string
	if idx := strings.Index(s, "T"); idx >= 0 {
		datePart, timePart = s[:idx], s[idx+1:]
	} else {
		datePart = s
	}
	var total float64
	total += parseDesignators(datePart, map[byte]float64{'D': 86400})
	total += parseDesignators(timePart, map[byte]float64{'H': 3600, 'M': 60, 'S': 1})
	return total
}

func parseDesignators(s string, units map[byte]float64) float64 {
	var total float64
	var num strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c >= '0' && c <= '9') || c == '.' {
			num.WriteByte(c)
			continue
		}
		if mult, ok := units[c]; ok {
			v, err := strconv.ParseFloat(num.String(), 64)
			if err == nil {
				total += v * mult
			}
		}
		num.Reset()
	}
	return total
}
