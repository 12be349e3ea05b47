package xmlreader

import "time"

// Config is the hardening envelope every parse operation honors (spec
// §4.1). All fields are mandatory to support; the zero value of Config is
// not a safe configuration — use DefaultConfig() as a starting point.
type Config struct {
	// MaxDocumentBytes bounds total input size for the DOM path. 0 means
	// unlimited, appropriate only for the streaming fallback path with
	// back-pressure.
	MaxDocumentBytes int64
	// MaxDepth bounds element nesting depth.
	MaxDepth int
	// MaxEntityExpansions bounds document-wide entity-expansion fan-out.
	// Enforced structurally: any DOCTYPE internal-subset ENTITY
	// declaration at all is refused, which is strictly stronger than
	// counting expansions up to this bound (see reader.go).
	MaxEntityExpansions int
	// MaxTextNodeLen bounds the length of any single text node.
	MaxTextNodeLen int
	// Timeout bounds wall-clock time for the whole parse/build operation.
	Timeout time.Duration
	// AllowExternalEntities is always false; the field exists so callers
	// see the policy explicitly instead of it being implicit. Setting it
	// true has no effect — external entity resolution is disallowed
	// unconditionally per spec §4.1.
	AllowExternalEntities bool
}

// DOM size / depth / text-node / timeout defaults from spec §4.1.
const (
	DefaultMaxDocumentBytes    = 10 * 1024 * 1024 // 10 MiB
	DefaultMaxDepth            = 100
	DefaultMaxEntityExpansions = 1000
	DefaultMaxTextNodeLen      = 10 * 1024 * 1024 // 10 MiB
	DefaultTimeout             = 30 * time.Second
	VariantSniffWindow         = 64 * 1024 // 64 KiB, spec §4.2
)

// DefaultConfig returns the spec §4.1 default hardening envelope for the
// single-pass DOM path (inputs up to 10 MiB).
func DefaultConfig() Config {
	return Config{
		MaxDocumentBytes:    DefaultMaxDocumentBytes,
		MaxDepth:            DefaultMaxDepth,
		MaxEntityExpansions: DefaultMaxEntityExpansions,
		MaxTextNodeLen:      DefaultMaxTextNodeLen,
		Timeout:             DefaultTimeout,
	}
}

// StreamingConfig returns the spec §4.1 default envelope for the >10 MiB
// streaming fallback path: unlimited total size, same depth/text/timeout
// bounds.
func StreamingConfig() Config {
	c := DefaultConfig()
	c.MaxDocumentBytes = 0
	return c
}
