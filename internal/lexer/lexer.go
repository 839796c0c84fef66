package lexer

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Tokenize splits source into tokens in source order.
// It never fails: characters that start no known token become single-rune
// Symbol tokens. Concatenating the Text of all tokens yields source.
func Tokenize(source string) []Token {
	tokens := make([]Token, 0, len(source)/4+1)
	pos := 0

	for pos < len(source) {
		r, _ := utf8.DecodeRuneInString(source[pos:])

		var end int

		var kind Kind

		switch {
		case unicode.IsSpace(r):
			kind = Whitespace
			end = scanWhile(source, pos, unicode.IsSpace)
		case unicode.IsLetter(r):
			end = scanWhile(source, pos, isIdentifierRune)
			kind = Identifier

			if IsKeyword(source[pos:end]) {
				kind = Keyword
			}
		case unicode.IsDigit(r):
			kind = Literal
			end = scanWhile(source, pos, unicode.IsDigit)
		default:
			kind = Symbol
			end = scanSymbol(source, pos)
		}

		tokens = append(tokens, Token{Kind: kind, Text: source[pos:end], Offset: pos})
		pos = end
	}

	return tokens
}

// Significant returns tokens without Whitespace.
func Significant(tokens []Token) []Token {
	result := make([]Token, 0, len(tokens))

	for _, tok := range tokens {
		if tok.Kind != Whitespace {
			result = append(result, tok)
		}
	}

	return result
}

// scanWhile returns the end of the maximal run starting at pos whose runes satisfy pred.
func scanWhile(source string, pos int, pred func(rune) bool) int {
	for pos < len(source) {
		r, size := utf8.DecodeRuneInString(source[pos:])
		if !pred(r) {
			break
		}

		pos += size
	}

	return pos
}

// scanSymbol matches the longest known symbol at pos, falling back to one rune.
func scanSymbol(source string, pos int) int {
	for _, sym := range symbols {
		if strings.HasPrefix(source[pos:], sym) {
			return pos + len(sym)
		}
	}

	_, size := utf8.DecodeRuneInString(source[pos:])

	return pos + size
}

func isIdentifierRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}
