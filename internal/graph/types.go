// Package graph implements the Document object model (spec Data Model
// §3): the faithful tree mirroring the Format with resolved references,
// and the materializer that builds it from a token stream.
package graph

import "time"

// Variant identifies one of the three schema versions the Format defines.
// It is frozen on a Document once chosen by the variant detector.
type Variant string

const (
	V382              Variant = "V382"
	V42               Variant = "V42"
	V43               Variant = "V43"
	UnsupportedVariant Variant = ""
)

// ControlType marks whether a message is production, a test, or a sandbox
// exchange.
type ControlType string

const (
	ControlLive    ControlType = "live"
	ControlTest    ControlType = "test"
	ControlSandbox ControlType = "sandbox"
)

// UpdateIndicator marks whether a message is an original, an update, or a
// purge of a prior message.
type UpdateIndicator string

const (
	UpdateOriginal UpdateIndicator = "original"
	UpdateUpdate   UpdateIndicator = "update"
	UpdatePurge    UpdateIndicator = "purge"
)

// ResourceKind enumerates the Resource.kind values.
type ResourceKind string

const (
	KindSoundRecording ResourceKind = "SoundRecording"
	KindMusicVideo     ResourceKind = "MusicVideo"
	KindImage          ResourceKind = "Image"
	KindText           ResourceKind = "Text"
	KindOther          ResourceKind = "Other"
)

// ReleaseType enumerates the Release.releaseType values.
type ReleaseType string

const (
	ReleaseAlbum      ReleaseType = "Album"
	ReleaseSingle     ReleaseType = "Single"
	ReleaseEP         ReleaseType = "EP"
	ReleaseCompilation ReleaseType = "Compilation"
	ReleaseSoundtrack ReleaseType = "Soundtrack"
	ReleaseLive       ReleaseType = "Live"
	ReleaseRemix      ReleaseType = "Remix"
	ReleaseOther      ReleaseType = "Other"
)

// TitleType enumerates the localized-title type tags.
type TitleType string

const (
	TitleDisplay     TitleType = "Display"
	TitleSort        TitleType = "Sort"
	TitleSearch      TitleType = "Search"
	TitleSub         TitleType = "Sub"
	TitleAlternative TitleType = "Alternative"
)

// DealScopeKind selects whether a Deal targets a Release or a Resource.
type DealScopeKind string

const (
	ScopeRelease  DealScopeKind = "ReleaseReference"
	ScopeResource DealScopeKind = "ResourceReference"
)

// WorldwideTerritory is the special literal that cannot be combined with
// specific territory codes (spec §4.9 business rule).
const WorldwideTerritory = "Worldwide"

// LocalizedString carries text with an optional BCP-47-ish language/script
// tag; an absent tag is recorded as "und" per spec §4.3.
type LocalizedString struct {
	Value        string
	LanguageCode string
}

// Identifier is a (namespace, value) pair, e.g. a Party DPID or a Resource
// ISRC/UPC/EAN.
type Identifier struct {
	Namespace string
	Value     string
}

// LocalizedName is a Party name with an optional language/script tag.
type LocalizedName struct {
	FullName     string
	LanguageCode string
}

// LocalizedTitle is a Release title carrying a TitleType tag.
type LocalizedTitle struct {
	LocalizedString
	Type TitleType
}

// ArtistRef binds a Party reference to the role it plays for the owning
// entity (display artist, contributor, ...).
type ArtistRef struct {
	PartyReference string
	Role           string
}

// TerritoryScope is an ordered set of territory codes (2-letter, or the
// literal "Worldwide") together with inclusion/exclusion semantics.
type TerritoryScope struct {
	Included []string
	Excluded []string
}

// IsWorldwide reports whether this scope is the unqualified Worldwide
// literal (cannot carry Excluded or additional Included codes).
func (t TerritoryScope) IsWorldwide() bool {
	return len(t.Included) == 1 && t.Included[0] == WorldwideTerritory
}

// Duration is a parsed ISO-8601 period value of the restricted form
// P...T...H...M...S... used throughout the Format.
type Duration struct {
	// Seconds is the total duration expressed in whole/fractional seconds.
	Seconds float64
	// Raw preserves the literal input text so the canonicalizer can decide
	// whether fractional precision was present in the source (spec §4.6
	// rule 9: "no fractional seconds unless present in input").
	Raw string
}

// PartyRole enumerates role tags a Party can carry.
type PartyRole string

const (
	RoleMainArtist        PartyRole = "MainArtist"
	RoleFeaturedArtist    PartyRole = "FeaturedArtist"
	RoleProducer          PartyRole = "Producer"
	RoleLabel             PartyRole = "Label"
	RoleRightsController  PartyRole = "RightsController"
	RolePublisher         PartyRole = "Publisher"
	RoleDistributor       PartyRole = "Distributor"
)

// Party is a document-local actor referenced by opaque key from Resources,
// Releases, and Deals.
type Party struct {
	PartyReference string
	Identifiers    []Identifier
	Names          []LocalizedName
	Roles          []PartyRole

	Extensions []ExtensionID
}

// Resource is a document-local asset (sound recording, video, image, ...)
// referenced by opaque key from Release resource groups.
type Resource struct {
	ResourceReference string
	Kind              ResourceKind
	Identifiers       []Identifier
	TechnicalDetails  map[string]string
	RightsController  string // optional Party reference, "" if absent
	TerritoryScope    []TerritoryScope
	DisplayArtist     []ArtistRef
	Duration          *Duration
	Title             string

	Extensions []ExtensionID
}

// ResourceGroupNode is a node in a Release's resource-group tree. A leaf
// carries a non-empty ReleaseResourceReference; an interior node carries
// children and no reference.
type ResourceGroupNode struct {
	SequenceNumber             int
	ReleaseResourceReference   string // leaf only
	Children                   []*ResourceGroupNode
}

// IsLeaf reports whether this node references a Resource directly.
func (n *ResourceGroupNode) IsLeaf() bool {
	return n != nil && n.ReleaseResourceReference != ""
}

// TerritorialDetail binds a territory set to copyright/marketing metadata
// that can vary by territory within a single Release.
type TerritorialDetail struct {
	TerritoryScope          TerritoryScope
	CopyrightLine           string
	ProducerCopyrightLine   string
	Genre                   string
	SubGenre                string
	ParentalWarning         bool
	MarketingComment        string
	ReleaseDate             *time.Time
	OriginalReleaseDate     *time.Time
	LabelName               string
}

// CatalogIdentifiers groups the product-level identifiers of a Release.
type CatalogIdentifiers struct {
	UPC                string
	EAN                string
	GRid               string
	LabelCatalogNumber string
}

// Release is a document-local product referenced by opaque key from Deals.
type Release struct {
	ReleaseReference   string
	ReleaseType        ReleaseType
	Titles             []LocalizedTitle
	DisplayArtists     []ArtistRef
	ResourceGroups     []*ResourceGroupNode
	TerritorialDetails []TerritorialDetail
	CatalogIdentifiers CatalogIdentifiers

	Extensions []ExtensionID
}

// DealScope identifies what a Deal applies to.
type DealScope struct {
	Kind      DealScopeKind
	Reference string
}

// UsageRight is one (useTypes, territoryScope, validityPeriod) triple
// within a Deal.
type UsageRight struct {
	UseTypes       []string
	TerritoryScope TerritoryScope
	ValidityPeriod ValidityPeriod
}

// ValidityPeriod bounds a Deal or UsageRight in time.
type ValidityPeriod struct {
	Start      *time.Time
	End        *time.Time
	OpenEnded  bool
}

// Deal is a document-local commercial term set bound to exactly one
// Release or Resource by opaque key.
type Deal struct {
	DealReference        string
	Scope                DealScope
	UsageRights          []UsageRight
	CommercialModelTypes []string
	TerritoryScope       []TerritoryScope
	ValidityPeriod       ValidityPeriod

	Extensions []ExtensionID
}

// MessageHeader carries envelope metadata for a Document.
type MessageHeader struct {
	MessageID        string
	Sender           string // sender's PartyId (external identifier, not a local PartyReference)
	Recipient        string // recipient's PartyId (external identifier, not a local PartyReference)
	CreatedAt        time.Time
	ControlType      ControlType
	UpdateIndicator  UpdateIndicator
}

// Document is the root container owning every child entity. References
// between entities are by local-key lookup only (Resolver), never by
// direct aliasing.
type Document struct {
	Variant       Variant
	MessageHeader MessageHeader
	Parties       []Party
	Resources     []Resource
	Releases      []Release
	Deals         []Deal

	Extensions *ExtensionVault

	resolver *Resolver
}

// Resolver returns the Document's reference index, building it lazily.
func (d *Document) Resolver() *Resolver {
	if d.resolver == nil {
		d.resolver = BuildResolver(d)
	}
	return d.resolver
}

// InvalidateResolver forces the next Resolver() call to rebuild the
// index; callers must invoke this after mutating Parties/Resources/
// Releases/Deals between parse and build.
func (d *Document) InvalidateResolver() {
	d.resolver = nil
}
