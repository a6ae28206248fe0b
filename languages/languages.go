// Package languages registers the grammars bundled with the tree-sitter
// binding and resolves them by name or file extension.
package languages

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/html"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"

	"arbor/internal/engine/sitter"
	"arbor/internal/language"
)

type entry struct {
	grammar    *sitter.Grammar
	extensions []string
}

var registry = map[string]entry{
	"go": {
		grammar:    sitter.NewGrammar("go", sitter.ABIVersion, golang.GetLanguage()),
		extensions: []string{".go"},
	},
	"python": {
		grammar:    sitter.NewGrammar("python", sitter.ABIVersion, python.GetLanguage()),
		extensions: []string{".py"},
	},
	"javascript": {
		grammar:    sitter.NewGrammar("javascript", sitter.ABIVersion, javascript.GetLanguage()),
		extensions: []string{".js", ".mjs", ".cjs"},
	},
	"html": {
		grammar:    sitter.NewGrammar("html", sitter.ABIVersion, html.GetLanguage()),
		extensions: []string{".html", ".htm"},
	},
}

// ByName returns the grammar registered under name.
func ByName(name string) (language.Language, error) {
	e, ok := registry[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown language %q (known: %s)", name, strings.Join(Names(), ", "))
	}
	return e.grammar, nil
}

// ByFilename picks a grammar from the file extension.
func ByFilename(path string) (language.Language, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range registry {
		for _, x := range e.extensions {
			if x == ext {
				return e.grammar, true
			}
		}
	}
	return nil, false
}

// Names lists the registered language names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
