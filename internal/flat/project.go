// Package flat implements the Flat Projector (spec §4.4): a pure,
// restartable, denormalized one-row-per-(Release,Track) view over a
// Document. It performs no caching and no I/O; every call recomputes from
// the Document it is given, mirroring the teacher's batch-transform
// helpers that take a decoded value and return a derived view with no
// side effects.
package flat

import (
	"strings"

	"github.com/daddykev/ddex-suite-sub003/internal/graph"
)

// Row is one denormalized (Release, Track) projection.
type Row struct {
	ReleaseReference   string
	ReleaseType        string
	ReleaseTitle       string
	UPC                string
	EAN                string
	TrackReference     string
	TrackTitle         string
	ISRC               string
	DurationSeconds    float64
	SequenceNumber     int
	Contributors       string // ", "-joined display-artist party references
	RightsController   string
	Genre              string
	LabelName          string
}

// Project flattens every Release in doc into one Row per leaf resource
// group entry (track), resolving the track's underlying Resource via the
// Document's Resolver (spec §4.4: "resolved through the same Resolver used
// by the graph, not a second lookup mechanism").
func Project(doc *graph.Document) []Row {
	resolver := doc.Resolver()
	var rows []Row

	for i := range doc.Releases {
		rel := &doc.Releases[i]
		title := primaryTitle(rel)
		contributors := joinArtistRefs(rel.DisplayArtists)
		var genre, labelName string
		if len(rel.TerritorialDetails) > 0 {
			genre = rel.TerritorialDetails[0].Genre
			labelName = rel.TerritorialDetails[0].LabelName
		}

		var walk func(nodes []*graph.ResourceGroupNode)
		walk = func(nodes []*graph.ResourceGroupNode) {
			for _, n := range nodes {
				if n.IsLeaf() {
					row := Row{
						ReleaseReference: rel.ReleaseReference,
						ReleaseType:      string(rel.ReleaseType),
						ReleaseTitle:     title,
						UPC:              rel.CatalogIdentifiers.UPC,
						EAN:              rel.CatalogIdentifiers.EAN,
						TrackReference:   n.ReleaseResourceReference,
						SequenceNumber:   n.SequenceNumber,
						Contributors:     contributors,
						Genre:            genre,
						LabelName:        labelName,
					}
					if res, ok := resolver.Resource(n.ReleaseResourceReference); ok {
						row.TrackTitle = res.Title
						row.RightsController = res.RightsController
						if res.Duration != nil {
							row.DurationSeconds = res.Duration.Seconds
						}
						for _, id := range res.Identifiers {
							if id.Namespace == "ISRC" {
								row.ISRC = id.Value
							}
						}
					}
					rows = append(rows, row)
				}
				walk(n.Children)
			}
		}
		walk(rel.ResourceGroups)
	}
	return rows
}

func primaryTitle(rel *graph.Release) string {
	for _, t := range rel.Titles {
		if t.Type == graph.TitleDisplay {
			return t.Value
		}
	}
	if len(rel.Titles) > 0 {
		return rel.Titles[0].Value
	}
	return ""
}

func joinArtistRefs(refs []graph.ArtistRef) string {
	names := make([]string, 0, len(refs))
	for _, r := range refs {
		names = append(names, r.PartyReference)
	}
	return strings.Join(names, ", ")
}
