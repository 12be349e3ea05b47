package ddex

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDoc = `<?xml version="1.0" encoding="UTF-8"?>
<NewReleaseMessage xmlns="http://ddex.net/xml/ern/43" MessageSchemaVersionId="ern/43">
  <MessageHeader>
    <MessageId>MSG-0001</MessageId>
    <MessageSender><PartyId>SENDER1</PartyId></MessageSender>
    <MessageRecipient><PartyId>RECIP1</PartyId></MessageRecipient>
    <MessageCreatedDateTime>2026-01-01T00:00:00Z</MessageCreatedDateTime>
  </MessageHeader>
  <PartyList>
    <Party>
      <PartyReference>P1</PartyReference>
      <PartyName><FullName>Example Artist</FullName></PartyName>
    </Party>
  </PartyList>
  <ResourceList>
    <SoundRecording>
      <ResourceReference>A1</ResourceReference>
      <ISRC>USABC1234567</ISRC>
      <Title>Track One</Title>
      <Duration>PT3M30S</Duration>
    </SoundRecording>
  </ResourceList>
  <ReleaseList>
    <Release>
      <ReleaseReference>R1</ReleaseReference>
      <ReleaseType>Single</ReleaseType>
      <ReferenceTitle><TitleText>Track One</TitleText></ReferenceTitle>
      <ResourceGroup>
        <SequenceNumber>1</SequenceNumber>
        <ResourceGroupContentItem>
          <ReleaseResourceReference>A1</ReleaseResourceReference>
        </ResourceGroupContentItem>
      </ResourceGroup>
      <UPC>036000291452</UPC>
    </Release>
  </ReleaseList>
</NewReleaseMessage>`

func TestParseBuildRoundTrip(t *testing.T) {
	doc, err := Parse(context.Background(), []byte(sampleDoc), DefaultParseOptions())
	require.NoError(t, err)
	assert.Equal(t, V43, doc.Variant)
	assert.Len(t, doc.Releases, 1)
	assert.Len(t, doc.Resources, 1)
	assert.Equal(t, "Track One", doc.Resources[0].Title)

	diags := Preflight(doc, LevelStrict)
	assert.False(t, diags.HasErrors(), "expected sample document to pass preflight: %+v", diags)

	result, err := Build(doc, DefaultBuildOptions())
	require.NoError(t, err)
	assert.Contains(t, string(result.XML), "Track One")
	assert.NotEmpty(t, result.CanonicalHashHex)

	reparsed, err := Parse(context.Background(), result.XML, DefaultParseOptions())
	require.NoError(t, err)
	changes := Diff(doc, reparsed)
	assert.Empty(t, changes, "build output must re-parse to a Document identical to the one it was built from")
}

func TestFlattenProjectsOneRowPerTrack(t *testing.T) {
	doc, err := Parse(context.Background(), []byte(sampleDoc), DefaultParseOptions())
	require.NoError(t, err)

	rows := Flatten(doc)
	require.Len(t, rows, 1)
	assert.Equal(t, "USABC1234567", rows[0].ISRC)
	assert.Equal(t, "Track One", rows[0].TrackTitle)
	assert.InDelta(t, 210.0, rows[0].DurationSeconds, 0.001)
}

func TestDiffDetectsTitleChange(t *testing.T) {
	before, err := Parse(context.Background(), []byte(sampleDoc), DefaultParseOptions())
	require.NoError(t, err)
	after, err := Parse(context.Background(), []byte(sampleDoc), DefaultParseOptions())
	require.NoError(t, err)
	after.Resources[0].Title = "Track One (Remix)"

	changes := Diff(before, after)
	found := false
	for _, c := range changes {
		if c.Kind == "Modified" && c.After == "Track One (Remix)" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestCanonicalizeIsStableAcrossEquivalentDocuments(t *testing.T) {
	a, err := Parse(context.Background(), []byte(sampleDoc), DefaultParseOptions())
	require.NoError(t, err)
	b, err := Parse(context.Background(), []byte(sampleDoc), DefaultParseOptions())
	require.NoError(t, err)

	assert.Equal(t, CanonicalHash(a), CanonicalHash(b))
}

const sampleDocIdentifiersISNIFirst = `<?xml version="1.0" encoding="UTF-8"?>
<NewReleaseMessage xmlns="http://ddex.net/xml/ern/43" MessageSchemaVersionId="ern/43">
  <MessageHeader>
    <MessageId>MSG-0002</MessageId>
  </MessageHeader>
  <PartyList>
    <Party>
      <PartyReference>P1</PartyReference>
      <PartyId Namespace="ISNI">0000000123456789</PartyId>
      <PartyId Namespace="DPID">PADI2000000001</PartyId>
    </Party>
  </PartyList>
</NewReleaseMessage>`

const sampleDocIdentifiersDPIDFirst = `<?xml version="1.0" encoding="UTF-8"?>
<NewReleaseMessage xmlns="http://ddex.net/xml/ern/43" MessageSchemaVersionId="ern/43">
  <MessageHeader>
    <MessageId>MSG-0002</MessageId>
  </MessageHeader>
  <PartyList>
    <Party>
      <PartyReference>P1</PartyReference>
      <PartyId Namespace="DPID">PADI2000000001</PartyId>
      <PartyId Namespace="ISNI">0000000123456789</PartyId>
    </Party>
  </PartyList>
</NewReleaseMessage>`

// TestCanonicalizeIsStableUnderSiblingPermutation is the spec's own S4
// scenario: a Party's unordered PartyId bag listed [ISNI, DPID] in one
// document and [DPID, ISNI] in another must canonicalize identically,
// both as a hash and as re-emitted bytes (spec §4.6 rule 6).
func TestCanonicalizeIsStableUnderSiblingPermutation(t *testing.T) {
	isniFirst, err := Parse(context.Background(), []byte(sampleDocIdentifiersISNIFirst), DefaultParseOptions())
	require.NoError(t, err)
	dpidFirst, err := Parse(context.Background(), []byte(sampleDocIdentifiersDPIDFirst), DefaultParseOptions())
	require.NoError(t, err)

	assert.Equal(t, CanonicalHash(isniFirst), CanonicalHash(dpidFirst),
		"sibling order of an unordered identifier bag must not affect the canonical hash")

	canonA, err := Canonicalize(context.Background(), []byte(sampleDocIdentifiersISNIFirst))
	require.NoError(t, err)
	canonB, err := Canonicalize(context.Background(), []byte(sampleDocIdentifiersDPIDFirst))
	require.NoError(t, err)
	assert.Equal(t, string(canonA), string(canonB),
		"canonicalized bytes must be identical regardless of input sibling order")
}

// TestCanonicalizeFixpoint is spec §8 invariant 3: canonicalizing already
// canonical bytes must return them unchanged.
func TestCanonicalizeFixpoint(t *testing.T) {
	once, err := Canonicalize(context.Background(), []byte(sampleDocIdentifiersDPIDFirst))
	require.NoError(t, err)
	twice, err := Canonicalize(context.Background(), once)
	require.NoError(t, err)
	assert.Equal(t, string(once), string(twice))
}

func TestDetectVariantRejectsUnknownNamespace(t *testing.T) {
	_, err := DetectVariant([]byte(`<Root xmlns="http://example.com/not-ddex"/>`))
	assert.Error(t, err)
}
