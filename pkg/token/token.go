// Package token defines K's lexical tokens and source locations.
//
// Design: a tagged union over {eof, keyword, identifier, number, char},
// mirroring the closed token set a hand-written lexer produces. A
// token's start location is the lexer's location captured just before
// the token is requested; Token.Loc itself is the position after it.
package token

import "fmt"

// Location is a running (line, column) position in the source text.
// Line is 1-based; Column is 0-based. After a newline, Column resets to
// 0 and Line increments; otherwise Column increments by one per
// character consumed.
type Location struct {
	Line   int
	Column int
}

func (l Location) String() string {
	return fmt.Sprintf("%d:%d", l.Line, l.Column)
}

// Keyword identifies one of K's reserved words.
type Keyword int

const (
	KwDef Keyword = iota
	KwExtern
	KwIf
	KwThen
	KwElse
	KwFor
	KwIn
	KwVar
	KwUnary
	KwBinary
)

var keywordNames = map[string]Keyword{
	"def":    KwDef,
	"extern": KwExtern,
	"if":     KwIf,
	"then":   KwThen,
	"else":   KwElse,
	"for":    KwFor,
	"in":     KwIn,
	"var":    KwVar,
	"unary":  KwUnary,
	"binary": KwBinary,
}

// LookupKeyword returns the Keyword for s and true if s is a reserved word.
func LookupKeyword(s string) (Keyword, bool) {
	k, ok := keywordNames[s]
	return k, ok
}

func (k Keyword) String() string {
	for s, kw := range keywordNames {
		if kw == k {
			return s
		}
	}
	return "<unknown keyword>"
}

// Kind tags which payload a Token carries.
type Kind int

const (
	Eof Kind = iota
	KeywordTok
	Identifier
	Number
	Char
)

// Token is a tagged union: exactly one of the payload fields below is
// meaningful, selected by Kind. Loc is the lexer's post-advance
// location at the moment the token was returned (i.e. the location of
// the token's own successor, not its start) — it is diagnostic only.
// Callers that need a token's start location must snapshot
// Lexer.GetLocation() before requesting that token, per spec.md §4.1.
type Token struct {
	Kind Kind
	Loc  Location

	KeywordVal Keyword // valid when Kind == KeywordTok
	Ident      string  // valid when Kind == Identifier
	Num        float64 // valid when Kind == Number
	Ch         byte    // valid when Kind == Char
}

// Equal reports whether two tokens have the same tag and payload.
func (t Token) Equal(o Token) bool {
	if t.Kind != o.Kind {
		return false
	}
	switch t.Kind {
	case KeywordTok:
		return t.KeywordVal == o.KeywordVal
	case Identifier:
		return t.Ident == o.Ident
	case Number:
		return t.Num == o.Num
	case Char:
		return t.Ch == o.Ch
	default:
		return true
	}
}

func (t Token) String() string {
	switch t.Kind {
	case Eof:
		return "<eof>"
	case KeywordTok:
		return t.KeywordVal.String()
	case Identifier:
		return fmt.Sprintf("ident(%s)", t.Ident)
	case Number:
		return fmt.Sprintf("number(%g)", t.Num)
	case Char:
		return fmt.Sprintf("char(%c)", t.Ch)
	default:
		return "<invalid token>"
	}
}
