package canon

import (
	"bytes"
	"encoding/xml"
)

// Render serializes a canonical tree as Format XML. It performs no
// reordering or normalization of its own — callers pass the output of
// Canonicalize so that Render's bytes and Hash's digest are computed over
// the identical tree (spec §4.6 rule 11: the hash is a digest of the
// actual output, not a separate shadow encoding of it).
func Render(root *Node) []byte {
	var buf bytes.Buffer
	writeElement(&buf, root)
	return buf.Bytes()
}

func writeElement(buf *bytes.Buffer, n *Node) {
	if n == nil {
		return
	}
	buf.WriteByte('<')
	buf.WriteString(n.LocalName)
	for _, a := range n.Attrs {
		buf.WriteByte(' ')
		buf.WriteString(a.Name)
		buf.WriteString(`="`)
		_ = xml.EscapeText(buf, []byte(a.Value))
		buf.WriteByte('"')
	}
	if n.Text == "" && len(n.Children) == 0 {
		buf.WriteString("/>")
		return
	}
	buf.WriteByte('>')
	if n.Text != "" {
		_ = xml.EscapeText(buf, []byte(n.Text))
	}
	for _, c := range n.Children {
		writeElement(buf, c)
	}
	buf.WriteString("</")
	buf.WriteString(n.LocalName)
	buf.WriteByte('>')
}
