// Package xmlreader implements the secure streaming+DOM hybrid tokenizer
// (spec §4.1): entity/size/depth/timeout hardening over encoding/xml,
// producing a token stream annotated with byte offset, line/column, and
// the path from the root.
package xmlreader

import (
	"bufio"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/dustin/go-humanize"

	"github.com/daddykev/ddex-suite-sub003/internal/ddexerr"
	"github.com/daddykev/ddex-suite-sub003/pkg/logger"
)

var log = logger.New("xmlreader")

func bufReader(r io.Reader) *bufio.Reader {
	if br, ok := r.(*bufio.Reader); ok {
		return br
	}
	return bufio.NewReaderSize(r, 4096)
}

// TokenKind enumerates the token shapes the reader emits.
type TokenKind int

const (
	StartElement TokenKind = iota
	EndElement
	Text
	Comment
	ProcessingInstruction
	NamespaceDecl
)

// Token is one node in the secure token stream, carrying enough location
// context for error reporting downstream (spec §4.1: "each token carries
// byte offset, (line, column), and the path from the root").
type Token struct {
	Kind       TokenKind
	Name       xml.Name
	Attrs      []xml.Attr
	Text       string
	ByteOffset int64
	Line       int
	Column     int
	Path       string
}

// Reader is a hardened token stream over raw Format bytes.
type Reader struct {
	cfg      Config
	dec      *xml.Decoder
	counting *countingReader
	path     []string
	depth    int
	start    time.Time
	deadline time.Time
}

// NewReader builds a hardened Reader over raw bytes (the DOM path). It
// enforces MaxDocumentBytes up front rather than discovering the
// violation element-by-element, since for the DOM path the full input is
// already resident.
func NewReader(data []byte, cfg Config) (*Reader, error) {
	log.Debug("opening DOM reader", "bytes", len(data))
	if cfg.MaxDocumentBytes > 0 && int64(len(data)) > cfg.MaxDocumentBytes {
		return nil, sizeExceeded(int64(len(data)), cfg.MaxDocumentBytes, "document")
	}
	if err := rejectDangerousDoctype(data); err != nil {
		return nil, err
	}
	return newReader(bytes.NewReader(data), cfg)
}

// NewStreamReader builds a hardened Reader over an io.Reader (the
// streaming path, spec §4.1: "unlimited for streaming with
// back-pressure"). Size is enforced incrementally as bytes are consumed.
func NewStreamReader(r io.Reader, cfg Config) (*Reader, error) {
	return newReader(r, cfg)
}

func newReader(r io.Reader, cfg Config) (*Reader, error) {
	decoded, err := decodeToUTF8(r)
	if err != nil {
		return nil, err
	}

	cr := &countingReader{r: decoded, line: 1, col: 1}
	dec := xml.NewDecoder(cr)
	// No Entity map is ever installed: undefined entities fail decode
	// rather than being silently expanded, which is the structural
	// defense against entity-expansion attacks (see config.go).
	dec.Strict = true

	now := time.Now()
	rd := &Reader{
		cfg:      cfg,
		dec:      dec,
		counting: cr,
		start:    now,
	}
	if cfg.Timeout > 0 {
		rd.deadline = now.Add(cfg.Timeout)
	}
	return rd, nil
}

// Next returns the next token in the stream, or io.EOF when exhausted.
// ctx is checked at every element boundary per spec §5 suspension points.
func (rd *Reader) Next(ctx context.Context) (Token, error) {
	select {
	case <-ctx.Done():
		return Token{}, ddexerr.New(ddexerr.CodeCancelled, ddexerr.Internal, ddexerr.Fatal, "parse cancelled")
	default:
	}
	if !rd.deadline.IsZero() && time.Now().After(rd.deadline) {
		return Token{}, timeoutErr(rd.cfg.Timeout)
	}
	if rd.cfg.MaxDocumentBytes > 0 && rd.counting.n > rd.cfg.MaxDocumentBytes {
		return Token{}, sizeExceeded(rd.counting.n, rd.cfg.MaxDocumentBytes, "document")
	}

	tok, err := rd.dec.Token()
	if err != nil {
		if err == io.EOF {
			return Token{}, io.EOF
		}
		return Token{}, malformed(err, rd.offset())
	}

	var out Token
	switch t := tok.(type) {
	case xml.StartElement:
		rd.depth++
		if rd.cfg.MaxDepth > 0 && rd.depth > rd.cfg.MaxDepth {
			return Token{}, depthExceeded(rd.depth, rd.cfg.MaxDepth, rd.currentPath(t.Name.Local))
		}
		rd.path = append(rd.path, t.Name.Local)
		out = Token{
			Kind:       StartElement,
			Name:       t.Name,
			Attrs:      t.Attr,
			ByteOffset: rd.offset(),
			Path:       rd.currentPath(""),
		}

	case xml.EndElement:
		path := rd.currentPath("")
		if len(rd.path) > 0 {
			rd.path = rd.path[:len(rd.path)-1]
		}
		rd.depth--
		out = Token{Kind: EndElement, Name: t.Name, ByteOffset: rd.offset(), Path: path}

	case xml.CharData:
		text := string(t)
		if rd.cfg.MaxTextNodeLen > 0 && len(text) > rd.cfg.MaxTextNodeLen {
			return Token{}, sizeExceeded(int64(len(text)), int64(rd.cfg.MaxTextNodeLen), "text node")
		}
		out = Token{Kind: Text, Text: text, ByteOffset: rd.offset(), Path: rd.currentPath("")}

	case xml.Comment:
		out = Token{Kind: Comment, Text: string(t), ByteOffset: rd.offset(), Path: rd.currentPath("")}

	case xml.ProcInst:
		out = Token{Kind: ProcessingInstruction, Name: xml.Name{Local: t.Target}, Text: string(t.Inst), ByteOffset: rd.offset()}

	case xml.Directive:
		if err := rejectDirective(string(t)); err != nil {
			return Token{}, err
		}
		// Benign directives (e.g. a DOCTYPE with neither SYSTEM/PUBLIC
		// nor ENTITY) are skipped; they carry no token-stream meaning.
		return rd.Next(ctx)

	default:
		return rd.Next(ctx)
	}

	out.Line = rd.counting.line + 1
	out.Column = rd.counting.col
	return out, nil
}

func (rd *Reader) currentPath(trailing string) string {
	parts := rd.path
	if trailing != "" {
		parts = append(append([]string{}, rd.path...), trailing)
	}
	if len(parts) == 0 {
		return "/"
	}
	return "/" + strings.Join(parts, "/")
}

func (rd *Reader) offset() int64 {
	return rd.counting.n
}

// countingReader tracks total bytes consumed, plus an approximate
// line/column (approximate because encoding/xml buffers ahead of the
// token boundary it last returned; exact enough for error reporting).
type countingReader struct {
	r    io.Reader
	n    int64
	line int
	col  int
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	for i := 0; i < n; i++ {
		c.n++
		if p[i] == '\n' {
			c.line++
			c.col = 0
		} else {
			c.col++
		}
	}
	return n, err
}

// decodeToUTF8 sniffs a BOM (UTF-8/16LE/16BE) and transcodes to UTF-8;
// absent a BOM the input is assumed UTF-8 per spec §4.1.
func decodeToUTF8(r io.Reader) (io.Reader, error) {
	br := bufReader(r)
	head, err := br.Peek(4)
	if err != nil && err != io.EOF && len(head) == 0 {
		return nil, ddexerr.New(ddexerr.CodeEncodingError, ddexerr.XmlParsing, ddexerr.Fatal, "unable to read input header")
	}

	switch {
	case len(head) >= 3 && head[0] == 0xEF && head[1] == 0xBB && head[2] == 0xBF:
		_, _ = br.Discard(3)
		return br, nil
	case len(head) >= 2 && head[0] == 0xFF && head[1] == 0xFE:
		_, _ = br.Discard(2)
		return utf16Reader(br, false)
	case len(head) >= 2 && head[0] == 0xFE && head[1] == 0xFF:
		_, _ = br.Discard(2)
		return utf16Reader(br, true)
	default:
		return br, nil
	}
}

func utf16Reader(r io.Reader, bigEndian bool) (io.Reader, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, ddexerr.Wrap(ddexerr.CodeEncodingError, ddexerr.XmlParsing, ddexerr.Fatal, "failed to read UTF-16 input", err)
	}
	if len(raw)%2 != 0 {
		return nil, ddexerr.New(ddexerr.CodeEncodingError, ddexerr.XmlParsing, ddexerr.Fatal, "truncated UTF-16 input")
	}
	u16 := make([]uint16, len(raw)/2)
	for i := range u16 {
		if bigEndian {
			u16[i] = uint16(raw[2*i])<<8 | uint16(raw[2*i+1])
		} else {
			u16[i] = uint16(raw[2*i+1])<<8 | uint16(raw[2*i])
		}
	}
	runes := utf16.Decode(u16)
	buf := make([]byte, 0, len(runes)*utf8.UTFMax)
	for _, rn := range runes {
		buf = utf8.AppendRune(buf, rn)
	}
	return bytes.NewReader(buf), nil
}

// rejectDangerousDoctype scans raw bytes up front for a DOCTYPE before
// decoding even begins, so SizeExceeded/EntityExpansionExceeded on a
// hostile DOCTYPE never triggers unbounded work (spec §8 invariant 6).
func rejectDangerousDoctype(data []byte) error {
	idx := bytes.Index(data, []byte("<!DOCTYPE"))
	if idx < 0 {
		return nil
	}
	end := bytes.IndexByte(data[idx:], '>')
	if end < 0 {
		return nil // malformed; let the tokenizer report it normally
	}
	return rejectDirective(string(data[idx+2 : idx+end]))
}

// rejectDirective inspects a <!...> directive body for external-entity
// or entity-expansion hazards.
func rejectDirective(body string) error {
	if !strings.HasPrefix(strings.TrimSpace(body), "DOCTYPE") {
		return nil
	}
	upper := strings.ToUpper(body)
	if strings.Contains(upper, "SYSTEM") || strings.Contains(upper, "PUBLIC") {
		log.Warn("rejected DOCTYPE with external SYSTEM/PUBLIC identifier")
		return ddexerr.New(
			ddexerr.CodeExternalEntityForbidden, ddexerr.Security, ddexerr.Fatal,
			"DOCTYPE declares an external SYSTEM/PUBLIC identifier",
			ddexerr.WithHint("remove external DTD references; external entity resolution is always disallowed"),
		)
	}
	if strings.Contains(upper, "<!ENTITY") || strings.Contains(upper, "%") {
		log.Warn("rejected DOCTYPE with internal entity declaration")
		return ddexerr.New(
			ddexerr.CodeEntityExpansionExceeded, ddexerr.Security, ddexerr.Fatal,
			"DOCTYPE declares one or more internal entities",
			ddexerr.WithHint("remove <!ENTITY> declarations; custom entity expansion is never permitted"),
		)
	}
	return nil
}

func sizeExceeded(got, limit int64, what string) error {
	log.Warn("size limit exceeded", "what", what, "bytes", got, "limit", limit)
	return ddexerr.New(
		ddexerr.CodeSizeExceeded, ddexerr.Security, ddexerr.Fatal,
		fmt.Sprintf("%s size %s exceeds limit %s", what, humanize.IBytes(uint64(got)), humanize.IBytes(uint64(limit))),
		ddexerr.WithHint("reduce input size or use the streaming path"),
		ddexerr.WithContext("bytes", got, "limit", limit),
	)
}

func depthExceeded(got, limit int, path string) error {
	log.Warn("nesting depth limit exceeded", "depth", got, "limit", limit, "path", path)
	return ddexerr.New(
		ddexerr.CodeDepthExceeded, ddexerr.Security, ddexerr.Fatal,
		fmt.Sprintf("nesting depth %d exceeds limit %d", got, limit),
		ddexerr.WithLocation(ddexerr.Location{Path: path}),
		ddexerr.WithContext("depth", got, "limit", limit),
	)
}

func timeoutErr(budget time.Duration) error {
	log.Warn("parse exceeded wall-clock budget", "budget", budget)
	return ddexerr.New(
		ddexerr.CodeTimeout, ddexerr.Security, ddexerr.Fatal,
		fmt.Sprintf("operation exceeded wall-clock budget of %s", budget),
	)
}

func malformed(err error, offset int64) error {
	return ddexerr.Wrap(
		ddexerr.CodeMalformedXml, ddexerr.XmlParsing, ddexerr.Fatal,
		"malformed XML input", err,
		ddexerr.WithLocation(ddexerr.Location{ByteOffset: offset}),
	)
}
