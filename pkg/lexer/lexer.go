// Package lexer implements K's streaming, character-at-a-time scanner.
//
// Design: a one-byte lookahead over a buffered reader, in the shape of
// the teacher's frontend scanner (peek/advance over a rune buffer), but
// driven off a single lookahead byte per spec.md §4.1 rather than a
// random-access buffer, since the source is consumed as a stream.
package lexer

import (
	"bufio"
	"io"
	"strconv"
	"unicode"

	"github.com/kale-lang/kalec/pkg/token"
)

// Lexer scans K source text into a Token stream.
//
// Invariant: between calls to Next, lastChar always holds either the
// first character of the next real token or EOF — all whitespace and
// comments have already been skipped. This is what lets a caller do
//
//	loc := lex.GetLocation()
//	tok := lex.Next()
//
// and have loc equal tok's own start location (spec.md §4.1's
// "Lexer.getLocation() ... reports the location of the NEXT character"
// invariant, tested from the parser's point of view in spec.md §8).
type Lexer struct {
	r        *bufio.Reader
	lastChar byte
	atEOF    bool
	loc      token.Location // location of lastChar (the next byte to be consumed)
	count    int            // tokens produced so far, for klog.Lexed
}

// New wraps r for scanning. The lookahead is primed to a space so
// construction can reuse the ordinary trivia-skipping path to land on
// the first real token, per spec.md §4.1.
func New(r io.Reader) *Lexer {
	l := &Lexer{
		r:        bufio.NewReader(r),
		lastChar: ' ',
		loc:      token.Location{Line: 1, Column: -1}, // the primed space sits just before column 0
	}
	l.skipTrivia()
	return l
}

// GetLocation reports the location of the next unconsumed character:
// the start of whatever token Next will return next (or the EOF
// position, if the input is exhausted).
func (l *Lexer) GetLocation() token.Location {
	return l.loc
}

// TokenCount reports how many tokens Next has produced so far.
func (l *Lexer) TokenCount() int {
	return l.count
}

// advance moves loc past lastChar, then reads the next byte into
// lastChar, so loc is always lastChar's own (0-based column) location.
func (l *Lexer) advance() {
	if l.lastChar == '\n' {
		l.loc.Line++
		l.loc.Column = 0
	} else {
		l.loc.Column++
	}
	b, err := l.r.ReadByte()
	if err != nil {
		l.atEOF = true
		l.lastChar = 0
		return
	}
	l.lastChar = b
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\v' || b == '\f'
}

func isAlpha(b byte) bool {
	return unicode.IsLetter(rune(b))
}

func isAlnum(b byte) bool {
	return isAlpha(b) || unicode.IsDigit(rune(b))
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

// skipTrivia advances past whitespace and '#' line comments until
// lastChar holds the first character of the next real token, or EOF.
func (l *Lexer) skipTrivia() {
	for {
		for !l.atEOF && isSpace(l.lastChar) {
			l.advance()
		}
		if l.atEOF || l.lastChar != '#' {
			return
		}
		for !l.atEOF && l.lastChar != '\n' {
			l.advance()
		}
	}
}

// Next returns the next token in the stream, per the algorithm in
// spec.md §4.1.
func (l *Lexer) Next() token.Token {
	if l.atEOF {
		return token.Token{Kind: token.Eof, Loc: l.loc}
	}

	var tok token.Token
	switch {
	case isAlpha(l.lastChar):
		tok = l.lexIdentifierOrKeyword()
	case isDigit(l.lastChar) || l.lastChar == '.':
		tok = l.lexNumber()
	default:
		ch := l.lastChar
		l.advance()
		tok = token.Token{Kind: token.Char, Ch: ch}
	}

	l.skipTrivia()
	tok.Loc = l.loc
	l.count++
	return tok
}

func (l *Lexer) lexIdentifierOrKeyword() token.Token {
	var buf []byte
	buf = append(buf, l.lastChar)
	l.advance()
	for !l.atEOF && isAlnum(l.lastChar) {
		buf = append(buf, l.lastChar)
		l.advance()
	}
	ident := string(buf)
	if kw, ok := token.LookupKeyword(ident); ok {
		return token.Token{Kind: token.KeywordTok, KeywordVal: kw}
	}
	return token.Token{Kind: token.Identifier, Ident: ident}
}

// lexNumber collects a maximal run of [0-9.] and parses it as f64. The
// grammar deliberately accepts malformed numerals like "1.2.3" (spec.md
// §4.1 point 4, §9); Go's strconv.ParseFloat rejects a second decimal
// point outright, so on failure we trim back to the longest valid
// decimal prefix and reparse, replicating the greedy-prefix behavior of
// a C-style strtod without inventing new numeric semantics. See
// DESIGN.md's "malformed numeral" open-question entry.
func (l *Lexer) lexNumber() token.Token {
	var buf []byte
	buf = append(buf, l.lastChar)
	l.advance()
	for !l.atEOF && (isDigit(l.lastChar) || l.lastChar == '.') {
		buf = append(buf, l.lastChar)
		l.advance()
	}

	numStr := string(buf)
	val, err := strconv.ParseFloat(numStr, 64)
	if err != nil {
		val = parseLongestDecimalPrefix(numStr)
	}
	return token.Token{Kind: token.Number, Num: val}
}

// parseLongestDecimalPrefix parses the longest prefix of s that forms a
// valid decimal numeral (at most one '.'), mimicking strtod's behavior
// on inputs like "1.2.3" -> 1.2.
func parseLongestDecimalPrefix(s string) float64 {
	dot := false
	end := len(s)
	for i, c := range s {
		if c == '.' {
			if dot {
				end = i
				break
			}
			dot = true
		}
	}
	for end > 0 {
		if v, err := strconv.ParseFloat(s[:end], 64); err == nil {
			return v
		}
		end--
	}
	return 0
}
