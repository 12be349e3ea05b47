package preflight

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/daddykev/ddex-suite-sub003/internal/ddexerr"
	"github.com/daddykev/ddex-suite-sub003/internal/graph"
)

func minimalDoc() *graph.Document {
	return &graph.Document{
		Extensions: graph.NewExtensionVault(),
		MessageHeader: graph.MessageHeader{MessageID: "MSG1"},
		Releases: []graph.Release{
			{
				ReleaseReference: "R1",
				Titles:           []graph.LocalizedTitle{{LocalizedString: graph.LocalizedString{Value: "Album"}}},
			},
		},
	}
}

func TestValidateFlagsMissingMessageID(t *testing.T) {
	doc := minimalDoc()
	doc.MessageHeader.MessageID = ""
	diags := Validate(doc, LevelStrict)
	assert.True(t, diags.HasErrors())
}

func TestValidateFlagsInvalidISRC(t *testing.T) {
	doc := minimalDoc()
	doc.Resources = []graph.Resource{
		{ResourceReference: "A1", Identifiers: []graph.Identifier{{Namespace: "ISRC", Value: "not-an-isrc"}}},
	}
	diags := Validate(doc, LevelStrict)
	found := false
	for _, d := range diags {
		if d.Code == "InvalidIsrc" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestValidateWarnLevelDowngradesBusinessRuleSeverity(t *testing.T) {
	doc := minimalDoc()
	doc.Resources = []graph.Resource{
		{ResourceReference: "A1", Identifiers: []graph.Identifier{{Namespace: "ISRC", Value: "bad"}}},
	}
	diags := Validate(doc, LevelWarn)
	for _, d := range diags {
		if d.Code == "InvalidIsrc" {
			assert.Equal(t, ddexerr.Warning, d.Severity)
		}
	}
}

func TestValidateCatchesWorldwideTerritoryConflict(t *testing.T) {
	doc := minimalDoc()
	doc.Resources = []graph.Resource{
		{
			ResourceReference: "A1",
			TerritoryScope: []graph.TerritoryScope{
				{Included: []string{graph.WorldwideTerritory, "US"}},
			},
		},
	}
	diags := Validate(doc, LevelStrict)
	found := false
	for _, d := range diags {
		if d.Code == "InvalidTerritory" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestValidateNoneLevelSkipsBusinessRules(t *testing.T) {
	doc := minimalDoc()
	doc.Resources = []graph.Resource{
		{ResourceReference: "A1", Identifiers: []graph.Identifier{{Namespace: "ISRC", Value: "bad"}}},
	}
	diags := Validate(doc, LevelNone)
	for _, d := range diags {
		assert.NotEqual(t, "InvalidIsrc", d.Code)
	}
}
