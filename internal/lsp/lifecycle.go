package lsp

import (
	"log"
	"os"
	"path"

	"arbor/internal/config"
	"arbor/internal/document"
	"arbor/internal/engine"
	"arbor/internal/engine/sitter"
	"arbor/internal/index"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

func (s *Server) initialize(
	context *glsp.Context,
	params *protocol.InitializeParams,
) (any, error) {
	cfg, err := config.Load(params.InitializationOptions)
	if err != nil {
		return nil, err
	}
	s.config = cfg
	log.Printf("Config: %+v", cfg)

	indexPath := cfg.IndexPath
	if indexPath == "" {
		if stateDir, err := getXDGStateHome(serverName); err == nil {
			if err := os.MkdirAll(stateDir, 0700); err == nil {
				indexPath = path.Join(stateDir, "index.db")
			}
		}
	}
	if indexPath != "" {
		idx, err := index.Open(indexPath)
		if err != nil {
			log.Printf("Index disabled: %v", err)
		} else {
			s.idx = idx
		}
	}

	s.manager = document.NewManager(
		func() engine.Engine { return sitter.New() },
		s.idx,
		cfg.TimeoutMicros,
		cfg.ChunkSize,
	)

	syncKind := protocol.TextDocumentSyncKindIncremental

	capabilities := s.handler.CreateServerCapabilities()
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: &protocol.True,
		Change:    &syncKind,
		Save:      &protocol.SaveOptions{IncludeText: &protocol.True},
	}

	return protocol.InitializeResult{
		Capabilities: capabilities,
	}, nil
}

func (s *Server) initialized(
	context *glsp.Context,
	params *protocol.InitializedParams,
) error {
	log.Println("Client initialized.")
	return nil
}

func (s *Server) shutdown(context *glsp.Context) error {
	if s.manager != nil {
		if err := s.manager.CloseAll(); err != nil {
			log.Printf("Error closing documents: %v", err)
		}
	}
	if s.idx != nil {
		if err := s.idx.Close(); err != nil {
			log.Printf("Error closing index: %v", err)
		}
	}
	return nil
}

func getXDGStateHome(appName string) (string, error) {
	xdgStateHome := os.Getenv("XDG_STATE_HOME")
	if xdgStateHome == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		xdgStateHome = path.Join(homeDir, ".local", "state")
	}
	return path.Join(xdgStateHome, appName), nil
}
