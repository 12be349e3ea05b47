// Package idgen implements the Stable ID Generator (spec §4.8): four
// strategies for minting entity reference keys at build time, grounded on
// the teacher's use of google/uuid for externally-visible identifiers and
// extended here with a deterministic stable-hash strategy for
// reproducible builds.
package idgen

import (
	"encoding/base32"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"

	"github.com/daddykev/ddex-suite-sub003/internal/ddexerr"
)

// Strategy selects how new local reference keys are minted.
type Strategy string

const (
	StrategyUUIDv4      Strategy = "uuid-v4"
	StrategyUUIDv7       Strategy = "uuid-v7"
	StrategySequential   Strategy = "sequential"
	StrategyStableHash   Strategy = "stable-hash"
)

// Kind identifies which entity kind an ID is being generated for; it
// selects the kind-letter prefix. The stable-hash material tuple for each
// kind is assembled by the caller (internal/builder's
// assignMissingReferences).
type Kind string

const (
	KindParty   Kind = "Party"
	KindRelease Kind = "Release"
	KindRes     Kind = "Resource"
	KindDeal    Kind = "Deal"
)

var kindLetter = map[Kind]string{
	KindParty:   "P",
	KindRelease: "R",
	KindRes:     "A", // "Asset", avoiding collision with Release's "R"
	KindDeal:    "D",
}

// Generator mints local reference keys and tracks every key it has
// issued, so IdConflict (spec §4.8) can be detected against both
// generator-issued and pre-existing document keys.
type Generator struct {
	strategy Strategy
	seq      map[Kind]*uint64
	issued   map[string]bool
}

// New returns a Generator using strategy, seeded with the keys already
// present in the document so freshly generated keys never collide with
// user-authored ones.
func New(strategy Strategy, existing []string) *Generator {
	g := &Generator{
		strategy: strategy,
		seq:      make(map[Kind]*uint64),
		issued:   make(map[string]bool, len(existing)),
	}
	for _, k := range existing {
		g.issued[k] = true
	}
	return g
}

// Next mints a new local reference key for kind, using material as the
// stable-hash input tuple when the strategy is StrategyStableHash
// (ignored otherwise).
func (g *Generator) Next(kind Kind, material []string) (string, error) {
	var id string
	switch g.strategy {
	case StrategyUUIDv4:
		id = fmt.Sprintf("%s%s", kindLetter[kind], uuid.New().String())
	case StrategyUUIDv7:
		u, err := uuid.NewV7()
		if err != nil {
			return "", ddexerr.Wrap(ddexerr.CodeInternal, ddexerr.Internal, ddexerr.Fatal, "uuid-v7 generation failed", err)
		}
		id = fmt.Sprintf("%s%s", kindLetter[kind], u.String())
	case StrategySequential:
		ctr := g.counter(kind)
		n := atomic.AddUint64(ctr, 1)
		id = fmt.Sprintf("%s%d", kindLetter[kind], n)
	case StrategyStableHash:
		id = StableHash(kind, material)
	default:
		return "", ddexerr.New(ddexerr.CodeInternal, ddexerr.Internal, ddexerr.Fatal, "unknown id generation strategy")
	}

	if g.issued[id] {
		return "", ddexerr.New(
			ddexerr.CodeIdConflict, ddexerr.Build, ddexerr.Fatal,
			fmt.Sprintf("generated id %q collides with an existing reference", id),
		)
	}
	g.issued[id] = true
	return id, nil
}

func (g *Generator) counter(kind Kind) *uint64 {
	if g.seq[kind] == nil {
		var z uint64
		g.seq[kind] = &z
	}
	return g.seq[kind]
}

// StableHash computes the deterministic reference key for kind from
// the ordered material tuple the caller supplies: it joins the
// ordered material tuple with a unit separator, hashes with blake2b, and
// base32-encodes the first 10 bytes of the digest with a kind-letter
// prefix (spec §4.8: "a documented material-tuple recipe per entity
// kind, base32-encoded with kind-letter prefix").
func StableHash(kind Kind, material []string) string {
	h, _ := blake2b.New256(nil)
	for i, m := range material {
		if i > 0 {
			h.Write([]byte{0x1F}) // unit separator
		}
		h.Write([]byte(m))
	}
	sum := h.Sum(nil)
	enc := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(sum[:10])
	return kindLetter[kind] + enc
}
