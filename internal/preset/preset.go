// Package preset implements the Preset Engine (spec §4.10): read-only,
// named and versioned partner constraint bundles applied on top of
// (never in place of) the base preflight/canonicalization rules.
package preset

import (
	"fmt"

	"github.com/daddykev/ddex-suite-sub003/internal/ddexerr"
	"github.com/daddykev/ddex-suite-sub003/internal/graph"
)

// ValueConstraint restricts a single field's Resource/Release-scoped
// value to a fixed allowed set, e.g. a partner that only accepts certain
// ReleaseType values.
type ValueConstraint struct {
	Field   string
	Allowed []string
}

// Preset is a named, versioned constraint bundle. Presets are immutable
// once loaded (spec §4.10: "read-only bundles") — ApplyAdditive never
// mutates a Preset, only the Document it is applied to (via diagnostics,
// never silent field rewriting except for the explicit default
// injection pass).
type Preset struct {
	Name    string
	Version string

	// RequiredFields and ForbiddenFields are dotted-path-style identifiers.
	// ApplyAdditive unions them; no code in this module checks a Document
	// against them.
	RequiredFields []string
	ForbiddenFields []string

	ValueConstraints []ValueConstraint

	// Defaults are injected into a Release's first TerritorialDetail when
	// the corresponding field is empty (spec §4.10: "default injection").
	DefaultGenre string
	DefaultLabel string

	// TightenCanonicalization is a flag that ApplyAdditive ORs across the
	// combined presets. No canonicalization code reads it, so setting it
	// does not change the canonical form.
	TightenCanonicalization bool

	// SafetyLocked presets refuse ApplyAdditive combination with any
	// other preset (spec §4.10: "safety locks").
	SafetyLocked bool
}

// Registry is an in-process, read-only collection of named presets
// (spec §4.10: no external cache, no network I/O — presets ship with the
// binary or are registered once at process start).
type Registry struct {
	presets map[string]*Preset
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{presets: make(map[string]*Preset)}
}

// Register adds preset under "name@version" (e.g.
// "partner.streaming_a.audio@1.0").
func (r *Registry) Register(p *Preset) {
	r.presets[key(p.Name, p.Version)] = p
}

func key(name, version string) string {
	return fmt.Sprintf("%s@%s", name, version)
}

// Lookup resolves a preset by name and version, returning UnknownPreset
// if absent.
func (r *Registry) Lookup(name, version string) (*Preset, error) {
	p, ok := r.presets[key(name, version)]
	if !ok {
		return nil, ddexerr.New(
			ddexerr.CodeUnknownPreset, ddexerr.PresetViolation, ddexerr.Fatal,
			fmt.Sprintf("no preset registered for %s@%s", name, version),
		)
	}
	return p, nil
}

// ApplyAdditive composes presets additively: their field constraint sets
// intersect (spec §4.10: "additive/intersection semantics" — applying
// two presets can only ever narrow what is acceptable, never widen it).
// Combining any SafetyLocked preset with another returns PresetConflict.
func ApplyAdditive(presets ...*Preset) (*Preset, error) {
	if len(presets) == 0 {
		return &Preset{}, nil
	}
	for _, p := range presets {
		if p.SafetyLocked && len(presets) > 1 {
			return nil, ddexerr.New(
				ddexerr.CodePresetConflict, ddexerr.PresetViolation, ddexerr.Fatal,
				fmt.Sprintf("preset %q is safety-locked and cannot be combined with others", p.Name),
			)
		}
	}

	combined := &Preset{Name: "combined", Version: "n/a"}
	allowedByField := map[string][]string{}
	for _, p := range presets {
		combined.RequiredFields = union(combined.RequiredFields, p.RequiredFields)
		combined.ForbiddenFields = union(combined.ForbiddenFields, p.ForbiddenFields)
		combined.TightenCanonicalization = combined.TightenCanonicalization || p.TightenCanonicalization
		if p.DefaultGenre != "" {
			combined.DefaultGenre = p.DefaultGenre
		}
		if p.DefaultLabel != "" {
			combined.DefaultLabel = p.DefaultLabel
		}
		for _, vc := range p.ValueConstraints {
			if existing, ok := allowedByField[vc.Field]; ok {
				allowedByField[vc.Field] = intersect(existing, vc.Allowed)
			} else {
				allowedByField[vc.Field] = vc.Allowed
			}
		}
	}
	for field, allowed := range allowedByField {
		combined.ValueConstraints = append(combined.ValueConstraints, ValueConstraint{Field: field, Allowed: allowed})
	}
	return combined, nil
}

func union(a, b []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, s := range append(append([]string{}, a...), b...) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func intersect(a, b []string) []string {
	set := map[string]bool{}
	for _, s := range b {
		set[s] = true
	}
	var out []string
	for _, s := range a {
		if set[s] {
			out = append(out, s)
		}
	}
	return out
}

// Check validates doc's ReleaseType and Resource.Kind values against
// every ValueConstraint in p, returning PresetViolation diagnostics. It
// does not check RequiredFields or ForbiddenFields, and neither do its
// callers (ddex.Build and ddex.ApplyPreset).
func Check(doc *graph.Document, p *Preset) ddexerr.Diagnostics {
	var diags ddexerr.Diagnostics
	for _, vc := range p.ValueConstraints {
		switch vc.Field {
		case "releaseType":
			for i := range doc.Releases {
				if !contains(vc.Allowed, string(doc.Releases[i].ReleaseType)) {
					diags = append(diags, ddexerr.New(
						ddexerr.CodePresetViolation, ddexerr.PresetViolation, ddexerr.Fatal,
						fmt.Sprintf("releaseType %q is not permitted by preset %q", doc.Releases[i].ReleaseType, p.Name),
						ddexerr.WithLocation(ddexerr.Location{Path: "/releases[" + doc.Releases[i].ReleaseReference + "]/releaseType"}),
					))
				}
			}
		case "resourceKind":
			for i := range doc.Resources {
				if !contains(vc.Allowed, string(doc.Resources[i].Kind)) {
					diags = append(diags, ddexerr.New(
						ddexerr.CodePresetViolation, ddexerr.PresetViolation, ddexerr.Fatal,
						fmt.Sprintf("resource kind %q is not permitted by preset %q", doc.Resources[i].Kind, p.Name),
					))
				}
			}
		}
	}
	return diags
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

// InjectDefaults fills empty Genre/LabelName fields on every Release's
// first TerritorialDetail from p's defaults (spec §4.10: "default
// injection"), creating a TerritorialDetail entry if the Release has
// none yet.
func InjectDefaults(doc *graph.Document, p *Preset) {
	if p.DefaultGenre == "" && p.DefaultLabel == "" {
		return
	}
	for i := range doc.Releases {
		rel := &doc.Releases[i]
		if len(rel.TerritorialDetails) == 0 {
			rel.TerritorialDetails = append(rel.TerritorialDetails, graph.TerritorialDetail{
				TerritoryScope: graph.TerritoryScope{Included: []string{graph.WorldwideTerritory}},
			})
		}
		td := &rel.TerritorialDetails[0]
		if td.Genre == "" {
			td.Genre = p.DefaultGenre
		}
		if td.LabelName == "" {
			td.LabelName = p.DefaultLabel
		}
	}
}
