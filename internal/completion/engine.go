// Package completion produces completion candidates from the symbol table.
package completion

import (
	"strings"

	"github.com/tliron/commonlog"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/CWBudde/go-ada-lsp/internal/lexer"
	"github.com/CWBudde/go-ada-lsp/internal/symbols"
)

var log = commonlog.GetLogger("ada-lsp.completion")

// Candidate is one completion suggestion.
type Candidate struct {
	Label    string `json:"label"`
	Category string `json:"category"`
	Detail   string `json:"detail"`
}

// Item converts the candidate to an LSP completion item.
func (c Candidate) Item() protocol.CompletionItem {
	kind := kindForCategory(c.Category)
	detail := c.Detail

	return protocol.CompletionItem{
		Label:  c.Label,
		Kind:   &kind,
		Detail: &detail,
	}
}

// Items converts candidates to LSP completion items, preserving order.
// The result is never nil.
func Items(candidates []Candidate) []protocol.CompletionItem {
	items := make([]protocol.CompletionItem, 0, len(candidates))
	for _, c := range candidates {
		items = append(items, c.Item())
	}

	return items
}

// Engine answers completion queries against a symbol table.
type Engine struct {
	table *symbols.Table
}

// NewEngine creates an engine over table.
func NewEngine(table *symbols.Table) *Engine {
	return &Engine{table: table}
}

// Table returns the symbol table the engine reads from.
func (e *Engine) Table() *symbols.Table {
	return e.table
}

// Complete returns the visible declarations whose name starts with
// partialText, in symbol table order. Matching is exact and case-sensitive;
// an empty partialText matches every visible declaration.
// The result is never nil.
func (e *Engine) Complete(partialText, context string) []Candidate {
	tokens := lexer.Tokenize(context)
	visible := e.table.VisibleInScope(tokens)

	candidates := make([]Candidate, 0, len(visible))

	for _, d := range visible {
		if !strings.HasPrefix(d.Name, partialText) {
			continue
		}

		candidates = append(candidates, Candidate{
			Label:    d.Name,
			Category: d.Category,
			Detail:   d.Detail(),
		})
	}

	log.Debugf("completion for %q: %d of %d visible declarations (%d context tokens)",
		partialText, len(candidates), len(visible), len(tokens))

	return candidates
}

// kindForCategory maps a declaration category to an LSP item kind.
func kindForCategory(category string) protocol.CompletionItemKind {
	switch category {
	case symbols.CategoryProcedure, symbols.CategoryFunction:
		return protocol.CompletionItemKindFunction
	case symbols.CategoryVariable:
		return protocol.CompletionItemKindVariable
	default:
		return protocol.CompletionItemKindText
	}
}
