package diff

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/daddykev/ddex-suite-sub003/internal/graph"
)

func baseDoc() *graph.Document {
	return &graph.Document{
		MessageHeader: graph.MessageHeader{MessageID: "MSG1", Sender: "SENDER1", Recipient: "RECIP1"},
		Releases: []graph.Release{
			{ReleaseReference: "R1", ReleaseType: graph.ReleaseSingle, Titles: []graph.LocalizedTitle{{LocalizedString: graph.LocalizedString{Value: "Alpha"}}}},
			{ReleaseReference: "R2", ReleaseType: graph.ReleaseAlbum, Titles: []graph.LocalizedTitle{{LocalizedString: graph.LocalizedString{Value: "Beta"}}}},
		},
	}
}

func TestDiffReportsNoChangesForIdenticalDocuments(t *testing.T) {
	a := baseDoc()
	b := baseDoc()
	changes := Diff(a, b)
	assert.Empty(t, changes)
}

func TestDiffReportsAddedRelease(t *testing.T) {
	before := baseDoc()
	after := baseDoc()
	after.Releases = append(after.Releases, graph.Release{
		ReleaseReference: "R3", ReleaseType: graph.ReleaseEP,
		Titles: []graph.LocalizedTitle{{LocalizedString: graph.LocalizedString{Value: "Gamma"}}},
	})

	changes := Diff(before, after)
	found := false
	for _, c := range changes {
		if c.Kind == Added && c.After == "Gamma" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestDiffReportsRemovedRelease(t *testing.T) {
	before := baseDoc()
	after := baseDoc()
	after.Releases = after.Releases[:1]

	changes := Diff(before, after)
	found := false
	for _, c := range changes {
		if c.Kind == Removed && c.Before == "Beta" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestDiffDetectsReorderedReleases(t *testing.T) {
	before := baseDoc()
	after := baseDoc()
	after.Releases[0], after.Releases[1] = after.Releases[1], after.Releases[0]

	changes := Diff(before, after)
	found := false
	for _, c := range changes {
		if c.Kind == Reordered {
			found = true
		}
	}
	assert.True(t, found)
}

func TestAggregateCountsByKind(t *testing.T) {
	before := baseDoc()
	after := baseDoc()
	after.Releases[0].Titles[0].Value = "Alpha Remix"

	changes := Diff(before, after)
	summary := Aggregate(changes)
	assert.Equal(t, len(changes), summary.Total)
	assert.Equal(t, 1, summary.ByKind[Modified])
}
