// Package preflight implements the Preflight Validator (spec §4.9):
// structural, referential, and business-rule checks run at strict/warn/
// none levels before a document is considered safe to build or hand to a
// downstream partner.
package preflight

import (
	"regexp"
	"time"

	"github.com/daddykev/ddex-suite-sub003/internal/ddexerr"
	"github.com/daddykev/ddex-suite-sub003/internal/graph"
)

// Level selects how strictly business-rule violations are treated.
type Level string

const (
	LevelStrict Level = "strict" // business-rule violations are Error (duration and release-date checks stay Warning)
	LevelWarn   Level = "warn"   // business-rule violations are Warning
	LevelNone   Level = "none"   // only structural/referential checks run
)

var isrcPattern = regexp.MustCompile(`^[A-Z]{2}[A-Z0-9]{3}\d{7}$`)

// Validate runs every check appropriate to level and returns the full
// diagnostics list; it never stops early on the first violation so a
// caller can report everything wrong with a document in one pass (spec
// §4.9: "accumulate, don't short-circuit").
func Validate(doc *graph.Document, level Level) ddexerr.Diagnostics {
	var diags ddexerr.Diagnostics

	diags = append(diags, structuralChecks(doc)...)
	diags = append(diags, referentialChecks(doc)...)

	if level != LevelNone {
		sev := ddexerr.SevError
		if level == LevelWarn {
			sev = ddexerr.Warning
		}
		diags = append(diags, businessRuleChecks(doc, sev)...)
	}
	return diags
}

func structuralChecks(doc *graph.Document) ddexerr.Diagnostics {
	var diags ddexerr.Diagnostics
	if doc.MessageHeader.MessageID == "" {
		diags = append(diags, ddexerr.New(
			ddexerr.CodeMissingRequiredField, ddexerr.Preflight, ddexerr.Fatal,
			"messageHeader.messageId is required",
			ddexerr.WithLocation(ddexerr.Location{Path: "/messageHeader/messageId"}),
		))
	}
	for i := range doc.Releases {
		rel := &doc.Releases[i]
		if rel.ReleaseReference == "" {
			diags = append(diags, ddexerr.New(
				ddexerr.CodeMissingRequiredField, ddexerr.Preflight, ddexerr.Fatal,
				"release is missing releaseReference",
			))
		}
		if len(rel.Titles) == 0 {
			diags = append(diags, ddexerr.New(
				ddexerr.CodeMissingRequiredField, ddexerr.Preflight, ddexerr.Fatal,
				"release has no title",
				ddexerr.WithLocation(ddexerr.Location{Path: "/releases[" + rel.ReleaseReference + "]/titles"}),
			))
		}
	}
	return diags
}

func referentialChecks(doc *graph.Document) ddexerr.Diagnostics {
	var diags ddexerr.Diagnostics
	for _, u := range doc.Resolver().Closure(doc) {
		diags = append(diags, ddexerr.New(
			ddexerr.CodeUnresolvedReference, ddexerr.ReferenceValidation, ddexerr.Fatal,
			"reference to "+u.Kind+" \""+u.Target+"\" does not resolve to any entity in the document",
			ddexerr.WithLocation(ddexerr.Location{Path: u.Path}),
		))
	}
	return diags
}

func businessRuleChecks(doc *graph.Document, sev ddexerr.Severity) ddexerr.Diagnostics {
	var diags ddexerr.Diagnostics
	now := time.Now()
	horizon := now.AddDate(0, 0, 365) // 365 days

	for i := range doc.Resources {
		res := &doc.Resources[i]
		for _, id := range res.Identifiers {
			if id.Namespace == "ISRC" && !isrcPattern.MatchString(id.Value) {
				diags = append(diags, ddexerr.New(
					ddexerr.CodeInvalidIsrc, ddexerr.Preflight, sev,
					"ISRC \""+id.Value+"\" does not match the required format",
					ddexerr.WithLocation(ddexerr.Location{Path: "/resources[" + res.ResourceReference + "]"}),
				))
			}
		}
		if res.Duration != nil {
			if res.Duration.Seconds <= 0 || res.Duration.Seconds > 30*60 {
				diags = append(diags, ddexerr.New(
					ddexerr.CodeInvalidDuration, ddexerr.Preflight, ddexerr.Warning,
					"resource duration is outside the expected (0, 30min] range",
					ddexerr.WithLocation(ddexerr.Location{Path: "/resources[" + res.ResourceReference + "]/duration"}),
				))
			}
		}
		for _, scope := range res.TerritoryScope {
			if err := checkTerritoryScope(scope, "/resources["+res.ResourceReference+"]/territoryScope", sev); err != nil {
				diags = append(diags, err)
			}
		}
	}

	for i := range doc.Releases {
		rel := &doc.Releases[i]
		if rel.CatalogIdentifiers.UPC != "" {
			if err := checkGTIN(rel.CatalogIdentifiers.UPC, 12, sev, "/releases["+rel.ReleaseReference+"]/upc"); err != nil {
				diags = append(diags, err)
			}
		}
		if rel.CatalogIdentifiers.EAN != "" {
			if err := checkGTIN(rel.CatalogIdentifiers.EAN, 13, sev, "/releases["+rel.ReleaseReference+"]/ean"); err != nil {
				diags = append(diags, err)
			}
		}
		for _, td := range rel.TerritorialDetails {
			if td.ReleaseDate != nil && td.ReleaseDate.After(horizon) {
				diags = append(diags, ddexerr.New(
					ddexerr.CodeInvalidDateRange, ddexerr.Preflight, ddexerr.Warning,
					"release date is more than 365 days in the future",
					ddexerr.WithLocation(ddexerr.Location{Path: "/releases[" + rel.ReleaseReference + "]/releaseDate"}),
				))
			}
			if err := checkTerritoryScope(td.TerritoryScope, "/releases["+rel.ReleaseReference+"]/territorialDetails", sev); err != nil {
				diags = append(diags, err)
			}
		}
	}
	return diags
}

// checkTerritoryScope enforces the Worldwide-vs-specific-territory
// conflict rule (spec §4.9: a scope cannot combine the Worldwide literal
// with specific included/excluded territory codes).
func checkTerritoryScope(scope graph.TerritoryScope, path string, sev ddexerr.Severity) *ddexerr.Error {
	hasWorldwide := false
	hasSpecific := len(scope.Excluded) > 0
	for _, t := range scope.Included {
		if t == graph.WorldwideTerritory {
			hasWorldwide = true
		} else {
			hasSpecific = true
		}
	}
	if hasWorldwide && hasSpecific {
		return ddexerr.New(
			ddexerr.CodeInvalidTerritory, ddexerr.Preflight, sev,
			"territory scope combines Worldwide with specific territory codes",
			ddexerr.WithLocation(ddexerr.Location{Path: path}),
		)
	}
	return nil
}

// checkGTIN validates length and the standard mod-10 GTIN check digit.
func checkGTIN(code string, wantLen int, sev ddexerr.Severity, path string) *ddexerr.Error {
	if len(code) != wantLen {
		return ddexerr.New(
			ddexerr.CodeInvalidUpcEan, ddexerr.Preflight, sev,
			"catalog identifier has unexpected length",
			ddexerr.WithLocation(ddexerr.Location{Path: path}),
		)
	}
	sum := 0
	for i, c := range code {
		if c < '0' || c > '9' {
			return ddexerr.New(ddexerr.CodeInvalidUpcEan, ddexerr.Preflight, sev, "catalog identifier contains non-digit characters", ddexerr.WithLocation(ddexerr.Location{Path: path}))
		}
		d := int(c - '0')
		pos := wantLen - i
		if pos%2 == 0 {
			sum += d * 3
		} else {
			sum += d
		}
	}
	if sum%10 != 0 {
		return ddexerr.New(
			ddexerr.CodeInvalidUpcEan, ddexerr.Preflight, sev,
			"catalog identifier fails check-digit validation",
			ddexerr.WithLocation(ddexerr.Location{Path: path}),
		)
	}
	return nil
}
