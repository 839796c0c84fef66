// Package lexer tokenizes Ada source fragments for completion.
package lexer

// Kind classifies a token.
type Kind int

const (
	// Identifier is a name that is not a reserved word.
	Identifier Kind = iota

	// Keyword is a reserved word.
	Keyword

	// Symbol is an operator or punctuation, including unrecognized characters.
	Symbol

	// Literal is an integer literal.
	Literal

	// Whitespace is a maximal run of whitespace.
	Whitespace
)

// String returns the lower-case name of the kind.
func (k Kind) String() string {
	switch k {
	case Identifier:
		return "identifier"
	case Keyword:
		return "keyword"
	case Symbol:
		return "symbol"
	case Literal:
		return "literal"
	case Whitespace:
		return "whitespace"
	default:
		return "unknown"
	}
}

// Token is a classified slice of the source.
type Token struct {
	Kind Kind
	Text string

	// Offset is the byte offset of Text in the source.
	Offset int
}

// End returns the byte offset just past the token.
func (t Token) End() int {
	return t.Offset + len(t.Text)
}

// IsName reports whether the token is a word: an identifier, or a keyword
// that may still be the prefix of a longer name being typed.
func (t Token) IsName() bool {
	return t.Kind == Identifier || t.Kind == Keyword
}

// keywords is the reserved-word set. Matching is exact and case-sensitive.
var keywords = map[string]struct{}{
	"procedure": {},
	"function":  {},
	"begin":     {},
	"end":       {},
	"if":        {},
	"then":      {},
	"else":      {},
	"while":     {},
	"for":       {},
	"loop":      {},
	"return":    {},
}

// symbols lists the multi-character operators, longest first.
// Single-character symbols need no entry: any unmatched rune becomes one.
var symbols = []string{":=", "<=", ">=", "/="}

// IsKeyword reports whether text is a reserved word.
func IsKeyword(text string) bool {
	_, ok := keywords[text]
	return ok
}
