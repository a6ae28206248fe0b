package lsp

import (
	"context"
	"fmt"
	"log"

	"arbor/internal/document"
	"arbor/internal/language"
	"arbor/languages"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

func (s *Server) textDocumentDidOpen(
	glspContext *glsp.Context,
	params *protocol.DidOpenTextDocumentParams,
) error {
	uri := params.TextDocument.URI
	lang, err := s.pickLanguage(params.TextDocument.LanguageID, uri)
	if err != nil {
		return err
	}

	if _, err := s.manager.Open(context.Background(), uri, lang, []byte(params.TextDocument.Text)); err != nil {
		publishParseError(glspContext, uri, err)
		return err
	}

	s.commit(uri)
	clearDiagnostics(glspContext, uri)
	return nil
}

func (s *Server) textDocumentDidChange(
	glspContext *glsp.Context,
	params *protocol.DidChangeTextDocumentParams,
) error {
	uri := params.TextDocument.TextDocumentIdentifier.URI
	doc, ok := s.manager.Get(uri)
	if !ok {
		return fmt.Errorf("document not open: %s", uri)
	}

	for _, raw := range params.ContentChanges {
		switch change := raw.(type) {
		case protocol.TextDocumentContentChangeEvent:
			content := doc.Content()
			chg := document.Change{
				Start:   fromLSPPosition(content, change.Range.Start),
				End:     fromLSPPosition(content, change.Range.End),
				NewText: change.Text,
			}
			if err := doc.ApplyChanges(context.Background(), []document.Change{chg}); err != nil {
				publishParseError(glspContext, uri, err)
				return err
			}
		case protocol.TextDocumentContentChangeEventWhole:
			if err := doc.SetContent(context.Background(), []byte(change.Text)); err != nil {
				publishParseError(glspContext, uri, err)
				return err
			}
		default:
			return fmt.Errorf("unexpected change event type %T", raw)
		}
	}

	s.commit(uri)
	clearDiagnostics(glspContext, uri)
	return nil
}

func (s *Server) textDocumentDidSave(
	glspContext *glsp.Context,
	params *protocol.DidSaveTextDocumentParams,
) error {
	uri := params.TextDocument.URI
	doc, ok := s.manager.Get(uri)
	if !ok {
		return fmt.Errorf("document not open: %s", uri)
	}

	if params.Text != nil {
		if err := doc.SetContent(context.Background(), []byte(*params.Text)); err != nil {
			publishParseError(glspContext, uri, err)
			return err
		}
	}

	s.commit(uri)
	return nil
}

func (s *Server) textDocumentDidClose(
	glspContext *glsp.Context,
	params *protocol.DidCloseTextDocumentParams,
) error {
	return s.manager.Close(params.TextDocument.URI)
}

// pickLanguage resolves the grammar from the client's language id, the file
// extension, or the configured default, in that order.
func (s *Server) pickLanguage(languageID string, uri string) (language.Language, error) {
	if languageID != "" {
		if lang, err := languages.ByName(languageID); err == nil {
			return lang, nil
		}
	}
	if lang, ok := languages.ByFilename(uri); ok {
		return lang, nil
	}
	return languages.ByName(s.config.DefaultLanguage)
}

func (s *Server) commit(uri string) {
	if err := s.manager.Commit(uri); err != nil {
		log.Printf("Failed to commit parse record for %s: %v", uri, err)
	}
}

func publishParseError(glspContext *glsp.Context, uri string, err error) {
	severity := protocol.DiagnosticSeverityError
	glspContext.Notify("textDocument/publishDiagnostics", protocol.PublishDiagnosticsParams{
		URI: uri,
		Diagnostics: []protocol.Diagnostic{{
			Range:    protocol.Range{},
			Severity: &severity,
			Message:  err.Error(),
		}},
	})
}

func clearDiagnostics(glspContext *glsp.Context, uri string) {
	glspContext.Notify("textDocument/publishDiagnostics", protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []protocol.Diagnostic{},
	})
}
