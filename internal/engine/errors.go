package engine

import "fmt"

var (
	// ErrGrammarVersion is returned when attaching a grammar generated
	// with an ABI version the engine does not support.
	ErrGrammarVersion = fmt.Errorf("incompatible grammar ABI version")

	// ErrNoLanguage is returned when parsing without an attached grammar.
	ErrNoLanguage = fmt.Errorf("no language attached")

	// ErrNoTree is returned when the engine gives up on a parse without a
	// more specific cause.
	ErrNoTree = fmt.Errorf("engine produced no tree")

	// ErrTimeout is returned when a parse is halted by the configured
	// deadline. The engine keeps the interrupted state and resumes from it
	// on the next parse unless Reset is called first.
	ErrTimeout = fmt.Errorf("parse halted by timeout")
)
