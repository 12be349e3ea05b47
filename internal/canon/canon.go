// Package canon implements CANON/1.0 (spec §4.6): the deterministic
// canonicalization rules applied before hashing or byte-identical
// re-emission. It operates on its own Node tree, which FromDocument
// builds from a typed graph.Document.
package canon

import (
	"sort"
	"strconv"
	"strings"

	"golang.org/x/crypto/blake2b"

	"github.com/shopspring/decimal"
)

// Node is a canonicalizer-facing element tree node. FromDocument
// constructs trees of this shape for the builder, the hash, and
// ddex.Canonicalize; Canonicalize never mutates its input, it returns a
// new tree.
type Node struct {
	Namespace  string
	LocalName  string
	Attrs      []Attr
	Children   []*Node
	Text       string
	IsSequence bool // true: children are an ordered sequence, preserve order
}

// Attr is a single canonical-form attribute.
type Attr struct {
	Namespace string
	Name      string
	Value     string
}

// Canonicalize applies the full CANON/1.0 rule set to root and returns the
// canonical tree: attributes sorted by (namespace, name); children of
// unordered-bag elements sorted by a stable key (namespace, name, then
// first attribute value, then text); numeric literals normalized via
// shopspring/decimal; whitespace collapsed per the text-node policy.
func Canonicalize(root *Node) *Node {
	return canonNode(root)
}

func canonNode(n *Node) *Node {
	if n == nil {
		return nil
	}
	out := &Node{
		Namespace:  n.Namespace,
		LocalName:  n.LocalName,
		Text:       canonText(n.Text),
		IsSequence: n.IsSequence,
	}
	out.Attrs = append([]Attr{}, n.Attrs...)
	sort.Slice(out.Attrs, func(i, j int) bool {
		if out.Attrs[i].Namespace != out.Attrs[j].Namespace {
			return out.Attrs[i].Namespace < out.Attrs[j].Namespace
		}
		return out.Attrs[i].Name < out.Attrs[j].Name
	})
	for i := range out.Attrs {
		out.Attrs[i].Value = canonValue(out.Attrs[i].Value)
	}

	children := make([]*Node, len(n.Children))
	for i, c := range n.Children {
		children[i] = canonNode(c)
	}
	if !n.IsSequence {
		children = sortUnorderedChildren(children)
	}
	out.Children = children
	return out
}

// sortUnorderedChildren orders an unordered bag by sortKey (rule 6),
// breaking ties with the blake2b-256 hash of each tied child's own
// canonical serialization (rule 10). Because the tie-break is derived
// from content rather than input position, two structurally equivalent
// documents whose tied bag members arrive in different input order still
// converge on the same order — sort.SliceStable's fallback to input
// order does not.
func sortUnorderedChildren(children []*Node) []*Node {
	keyed := make([]struct {
		node *Node
		key  string
		hash string
	}, len(children))
	for i, c := range children {
		keyed[i].node = c
		keyed[i].key = sortKey(c)
	}
	sort.Slice(keyed, func(i, j int) bool {
		if keyed[i].key != keyed[j].key {
			return keyed[i].key < keyed[j].key
		}
		if keyed[i].hash == "" {
			keyed[i].hash = tieBreakHash(keyed[i].node)
		}
		if keyed[j].hash == "" {
			keyed[j].hash = tieBreakHash(keyed[j].node)
		}
		return keyed[i].hash < keyed[j].hash
	})
	out := make([]*Node, len(keyed))
	for i, k := range keyed {
		out[i] = k.node
	}
	return out
}

// tieBreakHash hashes a child's own canonical serialization, used only to
// break sortKey ties (rule 10). n is already the product of canonNode, so
// its attributes/text are already in canonical form.
func tieBreakHash(n *Node) string {
	var buf strings.Builder
	writeCanonicalForm(&buf, n, 0)
	sum := blake2b.Sum256([]byte(buf.String()))
	return string(sum[:])
}

// sortKey builds the primary sort key for unordered-bag siblings (rule
// 6): namespace, local name, first attribute value, text. Ties on this
// key are broken by tieBreakHash.
func sortKey(n *Node) string {
	var b strings.Builder
	b.WriteString(n.Namespace)
	b.WriteByte('\x1f')
	b.WriteString(n.LocalName)
	b.WriteByte('\x1f')
	if len(n.Attrs) > 0 {
		b.WriteString(n.Attrs[0].Value)
	}
	b.WriteByte('\x1f')
	b.WriteString(n.Text)
	return b.String()
}

// canonText applies the whitespace policy: leading/trailing whitespace is
// trimmed, and interior runs of whitespace are collapsed to a single
// space, in every text node. Whitespace inside text is not preserved, and
// mixed content (text beside child elements) is not rejected anywhere
// upstream.
func canonText(s string) string {
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}

// canonValue normalizes a scalar value's literal form: integers and
// decimals are reprinted via shopspring/decimal in their minimal form (no
// superfluous leading zeros, no trailing fractional zeros beyond what the
// source specified), and are left untouched if they don't parse as
// numeric (spec §4.6 rule 9: "numeric forms").
func canonValue(v string) string {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return v
	}
	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return v
	}
	if exp := d.Exponent(); exp < 0 {
		return d.StringFixed(-exp)
	}
	return d.String()
}

// Hash computes the final 256-bit canonical hash of the canonical tree
// (spec §4.6 rule 11): the blake2b-256 digest of the bytes Render produces
// for it (the same hash primitive idgen.StableHash uses, consistent across
// the module instead of mixing hash families). The XML declaration line
// that Build prepends is not part of the digested bytes.
func Hash(root *Node) [32]byte {
	return blake2b.Sum256(Render(root))
}

// HashHex returns Hash as a lowercase hex string.
func HashHex(root *Node) string {
	sum := Hash(root)
	const hextable = "0123456789abcdef"
	out := make([]byte, len(sum)*2)
	for i, b := range sum {
		out[i*2] = hextable[b>>4]
		out[i*2+1] = hextable[b&0x0f]
	}
	return string(out)
}

// writeCanonicalForm serializes the canonical tree deterministically: a
// fixed element/attribute text encoding that two independent runs over an
// equal tree always reproduce byte-for-byte. It is not meant to be valid
// standalone XML; it is a hash input encoding only.
func writeCanonicalForm(b *strings.Builder, n *Node, depth int) {
	if n == nil {
		return
	}
	b.WriteByte('<')
	b.WriteString(n.Namespace)
	b.WriteByte(':')
	b.WriteString(n.LocalName)
	for _, a := range n.Attrs {
		b.WriteByte(' ')
		b.WriteString(a.Namespace)
		b.WriteByte(':')
		b.WriteString(a.Name)
		b.WriteByte('=')
		b.WriteString(strconv.Quote(a.Value))
	}
	b.WriteByte('>')
	if n.Text != "" {
		b.WriteString(strconv.Quote(n.Text))
	}
	for _, c := range n.Children {
		writeCanonicalForm(b, c, depth+1)
	}
	b.WriteString("</>")
}
