// Package lsp implements the semantic layer of a language-server
// session (spec component C6b) over the PNML-YAML document text: open
// documents, document symbols, and the workspace/executeCommand
// surface named in spec.md §6.4. As with dap, wire framing
// (Content-Length headers, JSON-RPC transport) is out of scope — Shim
// takes and returns plain values a transport layer would marshal.
package lsp

import (
	"os"
	"sync"

	"github.com/evoflow/pnmlcore/pnml"
)

// Capabilities is the body of the "initialize" response.
type Capabilities struct {
	TextDocumentSyncKind   int
	DocumentSymbolProvider bool
	ExecuteCommands        []string
}

// Range is an LSP-shaped line range, zero-based; EndLine is the last
// line of the place's block, inclusive.
type Range struct {
	StartLine int
	EndLine   int
}

// Symbol is one documentSymbol entry, one per place in the document.
type Symbol struct {
	Name          string
	Kind          int // 12 is SymbolKind.Function in the LSP numbering (Variable is 13)
	Range         Range
	SelectionLine int
}

// PlaceInfo is the workspace/executeCommand "places" result shape.
type PlaceInfo struct {
	ID        string
	IDLine    int
	StartLine int
	EndLine   int
}

const preserveRunDirsEnvVar = "EVOLVE_PRESERVE_RUNS"

// Shim holds open document text, keyed by URI, and serves the
// documentSymbol / executeCommand surface over it.
type Shim struct {
	mu        sync.RWMutex
	documents map[string]string
}

// New returns an empty Shim.
func New() *Shim {
	return &Shim{documents: make(map[string]string)}
}

// Initialize returns this shim's capabilities.
func (s *Shim) Initialize() Capabilities {
	return Capabilities{
		TextDocumentSyncKind:   1, // full-document sync, matching the original
		DocumentSymbolProvider: true,
		ExecuteCommands:        []string{"evolve.places", "evolve.setPreserveRunDirs"},
	}
}

// DidOpen records a document's initial text.
func (s *Shim) DidOpen(uri, text string) {
	if uri == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents[uri] = text
}

// DidChange replaces a document's text with the last of changes, per
// the original's "apply only the final full-content change" rule.
func (s *Shim) DidChange(uri string, changes []string) {
	if uri == "" || len(changes) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents[uri] = changes[len(changes)-1]
}

// DidClose drops a document from the open set.
func (s *Shim) DidClose(uri string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.documents, uri)
}

func (s *Shim) text(uri string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.documents[uri]
}

// DocumentSymbol returns one Symbol per place in uri's current text, in
// document order.
func (s *Shim) DocumentSymbol(uri string) []Symbol {
	places := pnml.ExtractPlaceIndex(s.text(uri))
	symbols := make([]Symbol, 0, len(places))
	for _, p := range places {
		if p.ID == "" {
			continue
		}
		symbols = append(symbols, Symbol{
			Name:          p.ID,
			Kind:          12,
			Range:         Range{StartLine: p.StartLine, EndLine: p.EndLine},
			SelectionLine: p.IDLine,
		})
	}
	return symbols
}

// Places implements the "evolve.places" executeCommand: the full place
// index for uri's current text.
func (s *Shim) Places(uri string) []PlaceInfo {
	places := pnml.ExtractPlaceIndex(s.text(uri))
	out := make([]PlaceInfo, 0, len(places))
	for _, p := range places {
		out = append(out, PlaceInfo{ID: p.ID, IDLine: p.IDLine, StartLine: p.StartLine, EndLine: p.EndLine})
	}
	return out
}

// SetPreserveRunDirs implements the "evolve.setPreserveRunDirs"
// executeCommand: toggles an environment variable an external run-dir
// cleanup routine consults, matching the original's
// EVOLVE_PRESERVE_RUNS toggle.
func (s *Shim) SetPreserveRunDirs(preserve bool) bool {
	if preserve {
		os.Setenv(preserveRunDirsEnvVar, "1")
	} else {
		os.Unsetenv(preserveRunDirsEnvVar)
	}
	return preserve
}

// ExecuteCommand dispatches by command name, matching the original's
// handle_workspace_executeCommand branch structure. args mirrors the
// LSP arguments array's first element as a string map; result is the
// value a transport would place in the JSON-RPC response's "result".
// An unrecognized command returns (nil, false).
func (s *Shim) ExecuteCommand(command string, args map[string]any) (any, bool) {
	switch command {
	case "evolve.places":
		uri, _ := args["uri"].(string)
		return s.Places(uri), true
	case "evolve.setPreserveRunDirs":
		preserve, _ := args["preserve"].(bool)
		return map[string]any{"preserve": s.SetPreserveRunDirs(preserve)}, true
	default:
		return nil, false
	}
}
