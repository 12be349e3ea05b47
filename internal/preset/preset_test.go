package preset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daddykev/ddex-suite-sub003/internal/graph"
)

func TestRegistryLookupReturnsRegisteredPreset(t *testing.T) {
	r := NewRegistry()
	p := &Preset{Name: "partner.example", Version: "1.0"}
	r.Register(p)

	got, err := r.Lookup("partner.example", "1.0")
	require.NoError(t, err)
	assert.Same(t, p, got)
}

func TestRegistryLookupFailsForUnknownPreset(t *testing.T) {
	r := NewRegistry()
	_, err := r.Lookup("nope", "1.0")
	assert.Error(t, err)
}

func TestApplyAdditiveIntersectsValueConstraints(t *testing.T) {
	a := &Preset{Name: "a", ValueConstraints: []ValueConstraint{
		{Field: "releaseType", Allowed: []string{"Album", "Single", "EP"}},
	}}
	b := &Preset{Name: "b", ValueConstraints: []ValueConstraint{
		{Field: "releaseType", Allowed: []string{"Single", "EP"}},
	}}

	combined, err := ApplyAdditive(a, b)
	require.NoError(t, err)
	require.Len(t, combined.ValueConstraints, 1)
	assert.ElementsMatch(t, []string{"Single", "EP"}, combined.ValueConstraints[0].Allowed)
}

func TestApplyAdditiveRejectsCombiningSafetyLockedPreset(t *testing.T) {
	locked := &Preset{Name: "locked", SafetyLocked: true}
	other := &Preset{Name: "other"}
	_, err := ApplyAdditive(locked, other)
	assert.Error(t, err)
}

func TestCheckFlagsDisallowedReleaseType(t *testing.T) {
	doc := &graph.Document{
		Releases: []graph.Release{
			{ReleaseReference: "R1", ReleaseType: graph.ReleaseRemix},
		},
	}
	p := &Preset{Name: "strict-albums", ValueConstraints: []ValueConstraint{
		{Field: "releaseType", Allowed: []string{"Album", "Single"}},
	}}

	diags := Check(doc, p)
	assert.NotEmpty(t, diags)
}

func TestCheckPassesForAllowedReleaseType(t *testing.T) {
	doc := &graph.Document{
		Releases: []graph.Release{
			{ReleaseReference: "R1", ReleaseType: graph.ReleaseAlbum},
		},
	}
	p := &Preset{Name: "strict-albums", ValueConstraints: []ValueConstraint{
		{Field: "releaseType", Allowed: []string{"Album", "Single"}},
	}}

	diags := Check(doc, p)
	assert.Empty(t, diags)
}

func TestInjectDefaultsFillsEmptyGenreAndLabel(t *testing.T) {
	doc := &graph.Document{
		Releases: []graph.Release{{ReleaseReference: "R1"}},
	}
	p := &Preset{Name: "defaults", DefaultGenre: "Electronic", DefaultLabel: "Example Records"}

	InjectDefaults(doc, p)
	require.Len(t, doc.Releases[0].TerritorialDetails, 1)
	assert.Equal(t, "Electronic", doc.Releases[0].TerritorialDetails[0].Genre)
	assert.Equal(t, "Example Records", doc.Releases[0].TerritorialDetails[0].LabelName)
}

func TestInjectDefaultsDoesNotOverwriteExistingValues(t *testing.T) {
	doc := &graph.Document{
		Releases: []graph.Release{{
			ReleaseReference:   "R1",
			TerritorialDetails: []graph.TerritorialDetail{{Genre: "Jazz"}},
		}},
	}
	p := &Preset{Name: "defaults", DefaultGenre: "Electronic"}

	InjectDefaults(doc, p)
	assert.Equal(t, "Jazz", doc.Releases[0].TerritorialDetails[0].Genre)
}
