// Package language models compiled grammar definitions as opaque handles.
package language

// Language is a loaded grammar definition owned by some parsing engine. The
// handle is immutable and safe to share read-only across parsers; whether a
// particular engine can use it is decided at attach time by checking the
// ABI version it was generated with.
type Language interface {
	// Name identifies the grammar, e.g. "go".
	Name() string

	// ABIVersion is the compatibility tag embedded in the compiled grammar.
	ABIVersion() uint32
}
