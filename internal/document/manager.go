package document

import (
	"context"
	"fmt"
	"sync"
	"time"

	"arbor/internal/engine"
	"arbor/internal/index"
	"arbor/internal/language"
	"arbor/internal/parser"
)

// Manager tracks open documents per URI. Each document gets its own engine
// and parser; parse records are committed to the index when one is
// configured.
type Manager struct {
	mu        sync.Mutex
	docs      map[string]*Document
	engines   func() engine.Engine
	idx       *index.Index
	timeout   uint64
	chunkSize int
}

// NewManager creates a Manager. engines is the factory for per-document
// engines; idx may be nil to disable persistence.
func NewManager(engines func() engine.Engine, idx *index.Index, timeoutMicros uint64, chunkSize int) *Manager {
	return &Manager{
		docs:      make(map[string]*Document),
		engines:   engines,
		idx:       idx,
		timeout:   timeoutMicros,
		chunkSize: chunkSize,
	}
}

// Open parses content and registers the document under uri.
func (m *Manager) Open(ctx context.Context, uri string, lang language.Language, content []byte) (*Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.docs[uri]; exists {
		return nil, fmt.Errorf("document already open: %s", uri)
	}

	p := parser.New(m.engines())
	if err := p.SetLanguage(lang); err != nil {
		p.Close()
		return nil, err
	}
	if m.timeout > 0 {
		p.SetTimeoutMicros(m.timeout)
	}

	doc, err := NewWithChunkSize(ctx, p, content, m.chunkSize)
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("failed to open document %s: %w", uri, err)
	}

	m.docs[uri] = doc
	return doc, nil
}

// Get returns the open document for uri.
func (m *Manager) Get(uri string) (*Document, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, exists := m.docs[uri]
	return doc, exists
}

// Commit writes the document's latest parse record to the index. A nil
// index makes this a no-op.
func (m *Manager) Commit(uri string) error {
	if m.idx == nil {
		return nil
	}

	m.mu.Lock()
	doc, exists := m.docs[uri]
	m.mu.Unlock()
	if !exists {
		return fmt.Errorf("document not found: %s", uri)
	}

	stats := doc.Stats()
	return m.idx.WithTx(func(tx *index.Tx) error {
		return tx.Upsert(&index.Record{
			Path:         uri,
			Language:     doc.Language().Name(),
			Bytes:        int64(stats.Bytes),
			RootStart:    int64(stats.Root.StartByte),
			RootEnd:      int64(stats.Root.EndByte),
			ParseMicros:  stats.Elapsed.Microseconds(),
			Incremental:  stats.Incremental,
			LastModified: time.Now().Unix(),
		})
	})
}

// Close closes and forgets the document for uri.
func (m *Manager) Close(uri string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, exists := m.docs[uri]
	if !exists {
		return fmt.Errorf("document not found: %s", uri)
	}
	if err := doc.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", uri, err)
	}
	delete(m.docs, uri)
	return nil
}

// CloseAll closes every open document, keeping going on errors.
func (m *Manager) CloseAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for uri, doc := range m.docs {
		if err := doc.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close %s: %w", uri, err))
		}
	}
	m.docs = make(map[string]*Document)

	if len(errs) > 0 {
		return fmt.Errorf("errors closing documents: %v", errs)
	}
	return nil
}
