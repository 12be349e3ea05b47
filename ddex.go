// Package ddex is the public facade over the parser, builder, and
// validation engine (spec §6 API surface): the one import point external
// callers use instead of reaching into internal/*.
package ddex

import (
	"context"

	"github.com/daddykev/ddex-suite-sub003/internal/builder"
	"github.com/daddykev/ddex-suite-sub003/internal/canon"
	"github.com/daddykev/ddex-suite-sub003/internal/ddexerr"
	"github.com/daddykev/ddex-suite-sub003/internal/diff"
	"github.com/daddykev/ddex-suite-sub003/internal/flat"
	"github.com/daddykev/ddex-suite-sub003/internal/graph"
	"github.com/daddykev/ddex-suite-sub003/internal/idgen"
	"github.com/daddykev/ddex-suite-sub003/internal/preflight"
	"github.com/daddykev/ddex-suite-sub003/internal/preset"
	"github.com/daddykev/ddex-suite-sub003/internal/variant"
	"github.com/daddykev/ddex-suite-sub003/internal/xmlreader"
)

// Re-exported types so callers never need to import internal/graph directly.
type (
	Document = graph.Document
	Variant  = graph.Variant
	Row      = flat.Row
	Change   = diff.Change
	Diagnostics = ddexerr.Diagnostics
	Level    = preflight.Level
	Preset   = preset.Preset
)

const (
	V382 = graph.V382
	V42  = graph.V42
	V43  = graph.V43
)

const (
	LevelStrict = preflight.LevelStrict
	LevelWarn   = preflight.LevelWarn
	LevelNone   = preflight.LevelNone
)

// ParseOptions configures Parse.
type ParseOptions struct {
	Config xmlreader.Config
}

// DefaultParseOptions returns the spec §4.1 DOM-path default hardening
// envelope.
func DefaultParseOptions() ParseOptions {
	return ParseOptions{Config: xmlreader.DefaultConfig()}
}

// Parse detects the document's variant and materializes a Document from
// raw bytes, applying the full security hardening envelope.
func Parse(ctx context.Context, data []byte, opts ParseOptions) (*Document, error) {
	v, err := DetectVariant(data)
	if err != nil {
		return nil, err
	}
	rd, err := xmlreader.NewReader(data, opts.Config)
	if err != nil {
		return nil, err
	}
	return graph.Materialize(ctx, rd, v)
}

// DetectVariant sniffs which of the three schema variants data uses,
// without performing a full parse.
func DetectVariant(data []byte) (Variant, error) {
	return variant.Detect(data)
}

// Flatten projects doc into the one-row-per-(Release,Track) flat view.
func Flatten(doc *Document) []Row {
	return flat.Project(doc)
}

// Preflight runs structural, referential, and (at level != LevelNone)
// business-rule checks over doc.
func Preflight(doc *Document, level Level) Diagnostics {
	return preflight.Validate(doc, level)
}

// BuildOptions configures Build/BuildSync.
type BuildOptions struct {
	IDStrategy     idgen.Strategy
	PreflightLevel Level
	Preset         *Preset
}

// DefaultBuildOptions mirrors builder.DefaultOptions with no preset
// applied.
func DefaultBuildOptions() BuildOptions {
	d := builder.DefaultOptions()
	return BuildOptions{IDStrategy: d.IDStrategy, PreflightLevel: d.PreflightLevel}
}

// BuildResult carries the rendered bytes alongside the diagnostics
// accumulated along the way, so a caller that chose LevelWarn can inspect
// what was relaxed without a build failure.
type BuildResult struct {
	XML         []byte
	Diagnostics Diagnostics
	CanonicalHashHex string
}

// Build renders doc to canonical-order Format XML synchronously,
// optionally checking it against a Preset first.
func Build(doc *Document, opts BuildOptions) (*BuildResult, error) {
	if opts.Preset != nil {
		presetDiags := preset.Check(doc, opts.Preset)
		if presetDiags.HasErrors() {
			return nil, ddexerr.New(
				ddexerr.CodePresetViolation, ddexerr.PresetViolation, ddexerr.Fatal,
				"document violates the applied preset",
			)
		}
		preset.InjectDefaults(doc, opts.Preset)
	}

	xmlBytes, diags, err := builder.Build(doc, builder.Options{
		IDStrategy:     opts.IDStrategy,
		PreflightLevel: opts.PreflightLevel,
	})
	if err != nil {
		return nil, err
	}
	return &BuildResult{XML: xmlBytes, Diagnostics: diags, CanonicalHashHex: CanonicalHash(doc)}, nil
}

// BuildSync is an alias for Build: this implementation's Build is already
// synchronous, so BuildSync simply delegates.
func BuildSync(doc *Document, opts BuildOptions) (*BuildResult, error) {
	return Build(doc, opts)
}

// ApplyPreset validates doc against p and injects its defaults in place.
func ApplyPreset(doc *Document, p *Preset) Diagnostics {
	diags := preset.Check(doc, p)
	preset.InjectDefaults(doc, p)
	return diags
}

// Diff compares two parsed Documents and returns the path-keyed change
// list.
func Diff(before, after *Document) []Change {
	return diff.Diff(before, after)
}

// DryRunID previews the stable reference key a given entity kind and
// material tuple would receive under the stable-hash strategy, without
// mutating any Document (spec §6: "DryRunID").
func DryRunID(kind idgen.Kind, material []string) string {
	return idgen.StableHash(kind, material)
}

// CanonicalHash computes doc's CANON/1.0 canonical hash directly from the
// object model (spec §4.6 rule 11), via the same internal/canon field
// mapping (FromDocument) that Build renders to bytes — not a second,
// independently maintained tree, so a document's hash always reflects
// every field its built XML actually carries.
func CanonicalHash(doc *Document) string {
	return builder.CanonicalHash(doc)
}

// Canonicalize is spec §6's bytes-to-bytes normalization entry point:
// it parses data, re-emits it through the same canonical field mapping
// and renderer Build uses, and returns the result without altering the
// document's semantics. Canonicalizing already-canonical bytes returns
// them unchanged (spec §8 invariant 3, the canonicalization fixpoint).
func Canonicalize(ctx context.Context, data []byte) ([]byte, error) {
	doc, err := Parse(ctx, data, DefaultParseOptions())
	if err != nil {
		return nil, err
	}
	tree := canon.Canonicalize(canon.FromDocument(doc))
	out := append([]byte(`<?xml version="1.0" encoding="UTF-8"?>`+"\n"), canon.Render(tree)...)
	return out, nil
}
