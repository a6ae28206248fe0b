// Package lsp exposes the parse coordinator to editors over the Language
// Server Protocol. It is host glue only: documents arrive through
// textDocument sync, get parsed incrementally, and parse failures surface
// as diagnostics.
package lsp

import (
	"arbor/internal/config"
	"arbor/internal/document"
	"arbor/internal/index"

	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"
)

const serverName = "arbor"

type Server struct {
	handler *protocol.Handler
	manager *document.Manager
	idx     *index.Index
	config  config.Config
}

func NewServer() (*server.Server, error) {
	ls := &Server{}

	ls.handler = &protocol.Handler{
		Initialize:            ls.initialize,
		Initialized:           ls.initialized,
		TextDocumentDidOpen:   ls.textDocumentDidOpen,
		TextDocumentDidChange: ls.textDocumentDidChange,
		TextDocumentDidSave:   ls.textDocumentDidSave,
		TextDocumentDidClose:  ls.textDocumentDidClose,
		Shutdown:              ls.shutdown,
	}

	return server.NewServer(ls.handler, serverName, false), nil
}
