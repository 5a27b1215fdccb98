// Package scanner turns Quixil source text into a stream of tokens, one per
// call to Next. It understands template-string interpolation: a `$(` inside
// a string literal opens a nested expression that the compiler parses by
// calling back into the same scanner, and the scanner tracks paren depth so
// it knows when the interpolation closes and string scanning should resume.
package scanner

import (
	"strings"

	"golang.org/x/exp/slices"

	"github.com/quixil-lang/quixil/lang/token"
)

// MaxTemplateInterpolationNesting bounds how many `$(` interpolations may be
// nested within one another inside a single template string.
const MaxTemplateInterpolationNesting = 8

// Scanner produces a token at a time from a source string. The source must
// outlive every Token the Scanner hands out, since tokens reference it by
// byte offset.
type Scanner struct {
	src     string
	start   int // start of the token currently being scanned
	current int // cursor into src
	line    int

	// parens tracks, for each currently-open template interpolation, the
	// number of unmatched '(' seen since it opened (starts at 1, the '(' of
	// "$(" itself). numParens is the depth index into parens.
	parens    [MaxTemplateInterpolationNesting]int
	numParens int
}

// New returns a Scanner over src, starting at line 1.
func New(src string) *Scanner {
	return &Scanner{src: src, line: 1}
}

// Next scans and returns the next token.
func (s *Scanner) Next() token.Token {
	s.skipWhitespace()
	s.start = s.current

	if s.isAtEnd() {
		return s.make(token.EOF)
	}

	c := s.advance()
	switch {
	case isAlpha(c):
		return s.identifier()
	case isDigit(c):
		return s.number()
	}

	switch c {
	case '(':
		if s.numParens > 0 {
			s.parens[s.numParens-1]++
		}
		return s.make(token.LPAREN)
	case ')':
		if s.numParens > 0 {
			s.parens[s.numParens-1]--
			if s.parens[s.numParens-1] == 0 {
				s.numParens--
				return s.scanStringBody()
			}
		}
		return s.make(token.RPAREN)
	case '{':
		return s.make(token.LBRACE)
	case '}':
		return s.make(token.RBRACE)
	case ',':
		return s.make(token.COMMA)
	case '.':
		return s.make(token.DOT)
	case '-':
		if s.match('>') {
			return s.make(token.ARROW)
		}
		return s.make(token.MINUS)
	case '+':
		return s.make(token.PLUS)
	case ';':
		return s.make(token.SEMI)
	case '*':
		return s.make(token.STAR)
	case '/':
		return s.make(token.SLASH)
	case '!':
		if s.match('=') {
			return s.make(token.BANG_EQ)
		}
		return s.make(token.BANG)
	case '=':
		if s.match('=') {
			return s.make(token.EQ_EQ)
		}
		return s.make(token.EQ)
	case '<':
		if s.match('=') {
			return s.make(token.LT_EQ)
		}
		return s.make(token.LT)
	case '>':
		if s.match('=') {
			return s.make(token.GT_EQ)
		}
		return s.make(token.GT)
	case '"':
		return s.scanStringBody()
	}

	return s.errorToken("unexpected character '" + string(c) + "'")
}

func (s *Scanner) isAtEnd() bool { return s.current >= len(s.src) }

func (s *Scanner) advance() byte {
	c := s.src[s.current]
	s.current++
	return c
}

func (s *Scanner) peek() byte {
	if s.isAtEnd() {
		return 0
	}
	return s.src[s.current]
}

func (s *Scanner) peekNext() byte {
	if s.current+1 >= len(s.src) {
		return 0
	}
	return s.src[s.current+1]
}

func (s *Scanner) match(want byte) bool {
	if s.isAtEnd() || s.src[s.current] != want {
		return false
	}
	s.current++
	return true
}

func (s *Scanner) skipWhitespace() {
	for {
		switch s.peek() {
		case ' ', '\r', '\t':
			s.advance()
		case '\n':
			s.line++
			s.advance()
		case '/':
			if s.peekNext() == '/' {
				for s.peek() != '\n' && !s.isAtEnd() {
					s.advance()
				}
			} else {
				return
			}
		default:
			return
		}
	}
}

func (s *Scanner) make(k token.Kind) token.Token {
	return token.Token{Kind: k, Start: s.start, Length: s.current - s.start, Line: s.line}
}

func (s *Scanner) makeText(k token.Kind, text string) token.Token {
	return token.Token{Kind: k, Start: s.start, Length: s.current - s.start, Line: s.line, Text: text}
}

func (s *Scanner) errorToken(msg string) token.Token {
	return token.Token{Kind: token.ILLEGAL, Start: s.start, Length: s.current - s.start, Line: s.line, Text: msg}
}

func isAlpha(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func (s *Scanner) identifier() token.Token {
	for isAlpha(s.peek()) || isDigit(s.peek()) {
		s.advance()
	}
	lit := s.src[s.start:s.current]
	return s.make(token.LookupIdent(lit))
}

func (s *Scanner) number() token.Token {
	for isDigit(s.peek()) {
		s.advance()
	}
	if s.peek() == '.' && isDigit(s.peekNext()) {
		s.advance()
		for isDigit(s.peek()) {
			s.advance()
		}
	}
	return s.make(token.NUMBER)
}

// scanStringBody scans string content up to either the closing quote (in
// which case it produces a STRING token) or the start of a `$(`
// interpolation (in which case it produces an INTEROP token holding the
// literal segment seen so far, and leaves the scanner positioned right
// after the '(' with a fresh interpolation counter pushed).
func (s *Scanner) scanStringBody() token.Token {
	var buf strings.Builder
	for {
		if s.isAtEnd() {
			return s.errorToken("unterminated string")
		}

		c := s.peek()
		if c == '"' {
			s.advance()
			return s.makeText(token.STRING, buf.String())
		}
		if c == '$' && s.peekNext() == '(' {
			if s.numParens >= MaxTemplateInterpolationNesting {
				return s.errorToken("template interpolation nested too deeply")
			}
			s.advance() // '$'
			s.advance() // '('
			s.parens[s.numParens] = 1
			s.numParens++
			return s.makeText(token.INTEROP, buf.String())
		}
		if c == '\n' {
			s.line++
		}
		buf.WriteByte(c)
		s.advance()
	}
}

// syncKinds lists the statement-starting keywords synchronize() resumes at
// after a parse error; kept as a slice (rather than a switch) so it can share
// the lookup idiom used elsewhere in the toolchain for small constant sets.
var syncKinds = []token.Kind{
	token.CLASS, token.FUNCTION, token.VAR, token.FOR,
	token.IF, token.WHILE, token.PRINT, token.RETURN,
}

// IsSyncPoint reports whether k begins a statement that the compiler's error
// recovery should treat as a synchronization point.
func IsSyncPoint(k token.Kind) bool {
	return slices.Contains(syncKinds, k)
}
