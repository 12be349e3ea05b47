// Package variant implements the Format variant detector (spec §4.2):
// it inspects the first 64 KiB of a document (or the tokens preceding the
// root element's first child in streaming mode) and decides which of the
// three schema variants the document uses, before the full parse begins.
package variant

import (
	"bytes"
	"encoding/xml"
	"strings"

	mxj "github.com/clbanning/mxj/v2"

	"github.com/daddykev/ddex-suite-sub003/internal/ddexerr"
	"github.com/daddykev/ddex-suite-sub003/internal/graph"
	"github.com/daddykev/ddex-suite-sub003/internal/xmlreader"
)

// namespaceTable maps the canonical root namespace URI for each variant.
// Priority on ties is V43 > V42 > V382 (spec §4.2).
var namespaceTable = map[string]graph.Variant{
	"http://ddex.net/xml/ern/43": graph.V43,
	"http://ddex.net/xml/ern/42": graph.V42,
	"http://ddex.net/xml/ern/382": graph.V382,
}

var priorityOrder = []graph.Variant{graph.V43, graph.V42, graph.V382}

// schemaVersionTable maps a MessageSchemaVersionId attribute value to a
// variant, used when the root carries no recognizable namespace.
var schemaVersionTable = map[string]graph.Variant{
	"ern/43":  graph.V43,
	"ern/382": graph.V382,
	"ern/42":  graph.V42,
}

// Detect inspects up to xmlreader.VariantSniffWindow bytes of data and
// returns the chosen Variant, or a ddexerr error with code
// CodeUnsupportedVariant when no variant can be determined.
func Detect(data []byte) (graph.Variant, error) {
	window := data
	if len(window) > xmlreader.VariantSniffWindow {
		window = window[:xmlreader.VariantSniffWindow]
	}

	root, attrs, nsDecls, err := sniffRoot(window)
	if err != nil {
		return graph.UnsupportedVariant, err
	}

	if v, ok := namespaceTable[root.Space]; ok {
		return v, nil
	}

	if schemaID, ok := attrs["MessageSchemaVersionId"]; ok {
		if v, ok := schemaVersionTable[strings.ToLower(schemaID)]; ok {
			return v, nil
		}
	}

	if v, ok := heuristicScan(window, nsDecls); ok {
		return v, nil
	}

	return graph.UnsupportedVariant, ddexerr.New(
		ddexerr.CodeUnsupportedVariant, ddexerr.XmlParsing, ddexerr.Fatal,
		"unable to determine schema variant from root element",
		ddexerr.WithHint("ensure the root element declares a recognized ERN namespace or MessageSchemaVersionId"),
	)
}

// sniffRoot tokenizes only as far as the root start element, returning
// its name, attributes, and the set of namespace declarations that root
// start element introduced.
func sniffRoot(window []byte) (xml.Name, map[string]string, map[string]string, error) {
	dec := xml.NewDecoder(bytes.NewReader(window))
	dec.Strict = true

	nsDecls := make(map[string]string)
	for {
		tok, err := dec.Token()
		if err != nil {
			return xml.Name{}, nil, nil, ddexerr.Wrap(
				ddexerr.CodeMalformedXml, ddexerr.XmlParsing, ddexerr.Fatal,
				"unable to locate root element within sniff window", err,
			)
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		attrs := make(map[string]string, len(start.Attr))
		for _, a := range start.Attr {
			if a.Name.Space == "xmlns" {
				nsDecls[a.Name.Local] = a.Value
			} else if a.Name.Local == "xmlns" {
				nsDecls[""] = a.Value
			}
			attrs[a.Name.Local] = a.Value
		}
		return start.Name, attrs, nsDecls, nil
	}
}

// heuristicScan falls back to an mxj-based namespace-declaration scan when
// neither the root namespace nor MessageSchemaVersionId settled the
// question: it folds the sniff window into a map and walks every
// "xmlns*" key looking for a recognizable ERN namespace fragment,
// breaking ties by priorityOrder.
func heuristicScan(window []byte, directNsDecls map[string]string) (graph.Variant, bool) {
	found := map[graph.Variant]bool{}
	for _, uri := range directNsDecls {
		if v, ok := matchNamespaceFragment(uri); ok {
			found[v] = true
		}
	}

	if len(found) == 0 {
		m, err := mxj.NewMapXml(window)
		if err != nil {
			return graph.UnsupportedVariant, false
		}
		walkMap(map[string]any(m), found)
	}

	for _, v := range priorityOrder {
		if found[v] {
			return v, true
		}
	}
	return graph.UnsupportedVariant, false
}

func walkMap(m map[string]any, found map[graph.Variant]bool) {
	for k, v := range m {
		if strings.HasPrefix(k, "-xmlns") {
			if s, ok := v.(string); ok {
				if variant, ok := matchNamespaceFragment(s); ok {
					found[variant] = true
				}
			}
		}
		switch vv := v.(type) {
		case map[string]any:
			walkMap(vv, found)
		case []any:
			for _, item := range vv {
				if nested, ok := item.(map[string]any); ok {
					walkMap(nested, found)
				}
			}
		}
	}
}

func matchNamespaceFragment(uri string) (graph.Variant, bool) {
	switch {
	case strings.Contains(uri, "ern/43"):
		return graph.V43, true
	case strings.Contains(uri, "ern/42"):
		return graph.V42, true
	case strings.Contains(uri, "ern/382"):
		return graph.V382, true
	default:
		return graph.UnsupportedVariant, false
	}
}
