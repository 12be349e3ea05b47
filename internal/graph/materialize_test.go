package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daddykev/ddex-suite-sub003/internal/xmlreader"
)

const sampleWithExtensionAndNestedGroups = `<?xml version="1.0" encoding="UTF-8"?>
<NewReleaseMessage>
  <MessageHeader>
    <MessageId>MSG-0001</MessageId>
    <MessageSender><PartyId>SENDER1</PartyId></MessageSender>
    <MessageRecipient><PartyId>RECIP1</PartyId></MessageRecipient>
  </MessageHeader>
  <ResourceList>
    <SoundRecording>
      <ResourceReference>A1</ResourceReference>
      <ISRC>USABC1234567</ISRC>
      <Title>Track One</Title>
    </SoundRecording>
    <SoundRecording>
      <ResourceReference>A2</ResourceReference>
      <ISRC>USABC1234568</ISRC>
      <Title>Track Two</Title>
    </SoundRecording>
    <PartnerProprietaryResource>
      <CustomField>foreign payload</CustomField>
    </PartnerProprietaryResource>
  </ResourceList>
  <ReleaseList>
    <Release>
      <ReleaseReference>R1</ReleaseReference>
      <ReleaseType>Album</ReleaseType>
      <ReferenceTitle><TitleText>Compilation</TitleText></ReferenceTitle>
      <ResourceGroup>
        <SequenceNumber>1</SequenceNumber>
        <ResourceGroup>
          <SequenceNumber>1</SequenceNumber>
          <ResourceGroupContentItem>
            <ReleaseResourceReference>A1</ReleaseResourceReference>
          </ResourceGroupContentItem>
        </ResourceGroup>
        <ResourceGroup>
          <SequenceNumber>2</SequenceNumber>
          <ResourceGroupContentItem>
            <ReleaseResourceReference>A2</ReleaseResourceReference>
          </ResourceGroupContentItem>
        </ResourceGroup>
      </ResourceGroup>
    </Release>
  </ReleaseList>
</NewReleaseMessage>`

func materialize(t *testing.T, xmlText string) *Document {
	t.Helper()
	rd, err := xmlreader.NewReader([]byte(xmlText), xmlreader.DefaultConfig())
	require.NoError(t, err)
	doc, err := Materialize(context.Background(), rd, V43)
	require.NoError(t, err)
	return doc
}

func TestMaterializeCapturesUnknownElementInExtensionVault(t *testing.T) {
	doc := materialize(t, sampleWithExtensionAndNestedGroups)
	require.Equal(t, 1, doc.Extensions.Len())
	ext := doc.Extensions.All()[0]
	assert.Equal(t, "PartnerProprietaryResource", ext.LocalName)
	assert.Equal(t, doc.Extensions.For("/"), []*Extension{ext})
}

func TestMaterializeBuildsNestedResourceGroupTree(t *testing.T) {
	doc := materialize(t, sampleWithExtensionAndNestedGroups)
	require.Len(t, doc.Releases, 1)
	rel := doc.Releases[0]
	require.Len(t, rel.ResourceGroups, 1)
	top := rel.ResourceGroups[0]
	assert.False(t, top.IsLeaf())
	require.Len(t, top.Children, 2)
	assert.True(t, top.Children[0].IsLeaf())
	assert.Equal(t, "A1", top.Children[0].ReleaseResourceReference)
	assert.Equal(t, "A2", top.Children[1].ReleaseResourceReference)
}

func TestResolverClosureFindsNoUnresolvedReferencesForValidDocument(t *testing.T) {
	doc := materialize(t, sampleWithExtensionAndNestedGroups)
	unresolved := doc.Resolver().Closure(doc)
	assert.Empty(t, unresolved)
}

func TestResolverClosureFlagsDanglingResourceGroupReference(t *testing.T) {
	doc := materialize(t, sampleWithExtensionAndNestedGroups)
	doc.Releases[0].ResourceGroups[0].Children[0].ReleaseResourceReference = "DOES-NOT-EXIST"
	doc.InvalidateResolver()

	unresolved := doc.Resolver().Closure(doc)
	require.NotEmpty(t, unresolved)
	assert.Equal(t, "Resource", unresolved[0].Kind)
	assert.Equal(t, "DOES-NOT-EXIST", unresolved[0].Target)
}
