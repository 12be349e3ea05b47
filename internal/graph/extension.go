package graph

// ExtensionID is an opaque handle into a Document's ExtensionVault,
// recorded on the owning entity so the Builder can re-emit the extension
// at the right insertion point without the entity needing to know the
// vault's internal storage layout.
type ExtensionID int

// ExtAttribute is a (namespace, name, value) attribute on a foreign
// element, order-preserved.
type ExtAttribute struct {
	Namespace string
	Name      string
	Value     string
}

// ExtChild is either a nested Extension (Element != nil) or a text run
// (Text set, Element nil); exactly one of the two is populated so that
// sibling element/text order inside a captured subtree can be replayed
// exactly.
type ExtChild struct {
	Element *Extension
	Text    string
}

// Extension is a foreign/unknown XML subtree captured verbatim so the
// Builder can re-emit it in its original position (spec §4.5).
type Extension struct {
	ID         ExtensionID
	OwnerPath  string // logical path to the owning entity
	Namespace  string
	LocalName  string
	Attributes []ExtAttribute
	Children   []ExtChild
	RawBytes   []byte

	// InsertionIndex is the position of this extension relative to the
	// owning entity's own known children, in that entity's emission
	// order (spec §4.5: "insertion markers (integer indices into the
	// ancestor's emission order list)").
	InsertionIndex int

	// NamespaceDecls records prefix->URI declarations introduced at this
	// element's depth, preserved verbatim; the canonicalizer may rewrite
	// the prefixes used to reference them without semantic change.
	NamespaceDecls map[string]string
}

// ExtensionVault stores every Extension attached anywhere in a Document,
// indexed by owner path so the Builder can look up "what attaches here,
// in what order" in O(1) per owner.
type ExtensionVault struct {
	byOwner map[string][]ExtensionID
	store   []*Extension
}

// NewExtensionVault returns an empty vault.
func NewExtensionVault() *ExtensionVault {
	return &ExtensionVault{byOwner: make(map[string][]ExtensionID)}
}

// Attach records ext as belonging to ownerPath and returns the ID it was
// assigned. The nearest known ancestor entity (or the root Document, via
// the conventional path "/") is always a valid ownerPath.
func (v *ExtensionVault) Attach(ownerPath string, ext *Extension) ExtensionID {
	id := ExtensionID(len(v.store))
	ext.ID = id
	ext.OwnerPath = ownerPath
	v.store = append(v.store, ext)
	v.byOwner[ownerPath] = append(v.byOwner[ownerPath], id)
	return id
}

// For returns every Extension attached to ownerPath, in insertion order.
func (v *ExtensionVault) For(ownerPath string) []*Extension {
	ids := v.byOwner[ownerPath]
	if len(ids) == 0 {
		return nil
	}
	out := make([]*Extension, len(ids))
	for i, id := range ids {
		out[i] = v.store[id]
	}
	return out
}

// Get resolves a single extension by ID.
func (v *ExtensionVault) Get(id ExtensionID) *Extension {
	if int(id) < 0 || int(id) >= len(v.store) {
		return nil
	}
	return v.store[id]
}

// Len reports how many extensions the vault holds across the whole
// Document.
func (v *ExtensionVault) Len() int {
	return len(v.store)
}

// All returns every extension in attachment order, for diffing/iteration.
func (v *ExtensionVault) All() []*Extension {
	out := make([]*Extension, len(v.store))
	copy(out, v.store)
	return out
}

// Discard removes every extension owned by ownerPath, e.g. when user code
// deletes the owning entity between parse and build (spec §3: "when that
// entity is removed by user code, its extensions are discarded").
func (v *ExtensionVault) Discard(ownerPath string) {
	ids, ok := v.byOwner[ownerPath]
	if !ok {
		return
	}
	delete(v.byOwner, ownerPath)
	for _, id := range ids {
		v.store[id] = nil
	}
}
