package builder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daddykev/ddex-suite-sub003/internal/graph"
	"github.com/daddykev/ddex-suite-sub003/internal/idgen"
	"github.com/daddykev/ddex-suite-sub003/internal/preflight"
)

func docWithMissingReferences() *graph.Document {
	return &graph.Document{
		Variant:    graph.V43,
		Extensions: graph.NewExtensionVault(),
		MessageHeader: graph.MessageHeader{
			MessageID: "MSG1",
			Sender:    "SENDER1",
			Recipient: "RECIP1",
		},
		Parties: []graph.Party{
			{Identifiers: []graph.Identifier{{Namespace: "DPID", Value: "PADI2000000001"}}, Names: []graph.LocalizedName{{FullName: "Example Artist"}}},
		},
		Resources: []graph.Resource{
			{
				Kind:        graph.KindSoundRecording,
				Identifiers: []graph.Identifier{{Namespace: "ISRC", Value: "USABC1234567"}},
				Title:       "Track One",
			},
		},
		Releases: []graph.Release{
			{
				ReleaseType:        graph.ReleaseSingle,
				Titles:             []graph.LocalizedTitle{{LocalizedString: graph.LocalizedString{Value: "Track One"}}},
				CatalogIdentifiers: graph.CatalogIdentifiers{UPC: "036000291452"},
			},
		},
	}
}

func TestBuildMintsMissingReferenceKeys(t *testing.T) {
	doc := docWithMissingReferences()
	xmlBytes, diags, err := Build(doc, Options{IDStrategy: idgen.StrategyStableHash, PreflightLevel: preflight.LevelStrict})
	require.NoError(t, err)
	assert.False(t, diags.HasErrors())
	assert.NotEmpty(t, doc.Parties[0].PartyReference)
	assert.NotEmpty(t, doc.Resources[0].ResourceReference)
	assert.NotEmpty(t, doc.Releases[0].ReleaseReference)
	assert.Contains(t, string(xmlBytes), "Track One")
}

func TestBuildIsDeterministicForEqualInput(t *testing.T) {
	opts := Options{IDStrategy: idgen.StrategyStableHash, PreflightLevel: preflight.LevelStrict}
	a, _, err := Build(docWithMissingReferences(), opts)
	require.NoError(t, err)
	b, _, err := Build(docWithMissingReferences(), opts)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestBuildPreservesExistingReferenceKeys(t *testing.T) {
	doc := docWithMissingReferences()
	doc.Parties[0].PartyReference = "P9"
	doc.Resources[0].ResourceReference = "A9"
	doc.Releases[0].ReleaseReference = "R9"

	_, _, err := Build(doc, Options{IDStrategy: idgen.StrategyUUIDv4, PreflightLevel: preflight.LevelStrict})
	require.NoError(t, err)
	assert.Equal(t, "P9", doc.Parties[0].PartyReference)
	assert.Equal(t, "A9", doc.Resources[0].ResourceReference)
	assert.Equal(t, "R9", doc.Releases[0].ReleaseReference)
}

func TestBuildFailsOnFatalPreflightFinding(t *testing.T) {
	doc := docWithMissingReferences()
	doc.MessageHeader.MessageID = ""
	_, diags, err := Build(doc, DefaultOptions())
	require.Error(t, err)
	assert.True(t, diags.HasErrors())
}
