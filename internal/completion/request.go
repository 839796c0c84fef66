package completion

import (
	"encoding/json"
	"fmt"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/CWBudde/go-ada-lsp/internal/document"
	"github.com/CWBudde/go-ada-lsp/internal/lexer"
)

// Params are the textDocument/completion parameters.
// The LSP fields are accepted as sent by editors. PartialText and Text are
// extensions that carry the typed prefix and the surrounding source directly,
// since the server keeps no open documents.
type Params struct {
	TextDocument *protocol.TextDocumentIdentifier `json:"textDocument,omitempty"`
	Position     *protocol.Position               `json:"position,omitempty"`
	Context      *protocol.CompletionContext      `json:"context,omitempty"`

	PartialText *string `json:"partialText,omitempty"`
	Text        *string `json:"text,omitempty"`
}

// Query is a resolved completion request.
type Query struct {
	PartialText string
	Context     string
}

// ParseParams decodes raw completion params. Absent or null params are valid
// and yield a query that matches every visible declaration.
func ParseParams(raw json.RawMessage) (Query, error) {
	var params Params

	if len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, &params); err != nil {
			return Query{}, fmt.Errorf("invalid completion params: %w", err)
		}
	}

	return params.Query()
}

// Query resolves the partial text and context.
// An explicit PartialText wins. Otherwise, when Text is given, the partial
// text is the name being typed at Position (or at the end of Text when no
// position is sent).
func (p Params) Query() (Query, error) {
	var q Query

	if p.Text != nil {
		q.Context = *p.Text
	}

	if p.PartialText != nil {
		q.PartialText = *p.PartialText
		return q, nil
	}

	if p.Text == nil {
		return q, nil
	}

	before := q.Context

	if p.Position != nil {
		var err error

		before, err = document.TextBeforeCursor(q.Context, *p.Position)
		if err != nil {
			return Query{}, fmt.Errorf("invalid completion position: %w", err)
		}
	}

	q.PartialText = PartialName(before)

	return q, nil
}

// PartialName returns the name being typed at the end of textBeforeCursor:
// the trailing identifier or keyword token, or "" when the text ends in a
// symbol, literal or whitespace.
// Example: "X := proc" -> "proc"
// Example: "Pkg." -> "".
func PartialName(textBeforeCursor string) string {
	tokens := lexer.Tokenize(textBeforeCursor)
	if len(tokens) == 0 {
		return ""
	}

	if last := tokens[len(tokens)-1]; last.IsName() {
		return last.Text
	}

	return ""
}
