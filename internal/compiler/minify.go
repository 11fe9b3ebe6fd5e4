package compiler

import (
	"strings"

	"github.com/dop251/goja/parser"
)

// minifyPass strips comments and collapses insignificant whitespace. It is a
// lexical minifier: strings, template literals and regular expressions pass
// through untouched, identifiers are never renamed.
func minifyPass() pass {
	return pass{
		name: "minify",
		apply: func(src, filename string) (string, error) {
			out := minifySource(src)
			// The scanner is conservative, but a parse check keeps a bad
			// round from ever leaving this pass.
			if _, err := parser.ParseFile(nil, filename, out, 0); err != nil {
				return src, nil
			}
			return out, nil
		},
	}
}

func minifySource(src string) string {
	var b strings.Builder
	var prev byte // last significant byte written

	// needsSpace reports whether dropping whitespace between prev and next
	// would glue two tokens together.
	needsSpace := func(next byte) bool {
		return isIdentByte(prev) && isIdentByte(next)
	}

	i := 0
	for i < len(src) {
		c := src[i]

		switch {
		case c == '/' && i+1 < len(src) && src[i+1] == '/':
			for i < len(src) && src[i] != '\n' {
				i++
			}

		case c == '/' && i+1 < len(src) && src[i+1] == '*':
			i += 2
			for i+1 < len(src) && !(src[i] == '*' && src[i+1] == '/') {
				i++
			}
			i += 2

		case c == '\'' || c == '"':
			end := scanString(src, i)
			b.WriteString(src[i:end])
			prev = c
			i = end

		case c == '`':
			end := scanTemplate(src, i)
			b.WriteString(src[i:end])
			prev = c
			i = end

		case c == '/' && regexCanFollow(prev):
			end := scanRegex(src, i)
			b.WriteString(src[i:end])
			prev = '/'
			i = end

		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			j := i
			sawNewline := false
			for j < len(src) && (src[j] == ' ' || src[j] == '\t' || src[j] == '\r' || src[j] == '\n') {
				if src[j] == '\n' {
					sawNewline = true
				}
				j++
			}
			if j < len(src) && prev != 0 {
				if sawNewline && newlineSignificant(prev, src[j]) {
					b.WriteByte('\n')
					prev = '\n'
				} else if needsSpace(src[j]) {
					b.WriteByte(' ')
				}
			}
			i = j

		default:
			b.WriteByte(c)
			prev = c
			i++
		}
	}
	return strings.TrimSpace(b.String())
}

func isIdentByte(c byte) bool {
	return c == '_' || c == '$' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// regexCanFollow reports whether a / after prev starts a regex literal
// rather than a division. This is the usual lexer heuristic: a regex can
// follow an operator, opening bracket, or statement boundary.
func regexCanFollow(prev byte) bool {
	switch prev {
	case 0, '(', ',', '=', ':', '[', '!', '&', '|', '?', '{', '}', ';', '\n', '+', '-', '*', '%', '<', '>', '^', '~':
		return true
	}
	return false
}

// newlineSignificant keeps a newline where automatic semicolon insertion
// might depend on it.
func newlineSignificant(prev, next byte) bool {
	if prev == ';' || prev == '{' || prev == ',' || prev == '(' {
		return false
	}
	// A line starting with an operator or bracket continues the previous
	// expression; collapsing there changes nothing.
	switch next {
	case '.', '+', '-', '*', '/', '=', ')', ']', '}', ',', ';', ':', '?', '&', '|', '<', '>':
		return false
	}
	return true
}

func scanString(src string, start int) int {
	quote := src[start]
	for i := start + 1; i < len(src); i++ {
		switch src[i] {
		case '\\':
			i++
		case quote:
			return i + 1
		}
	}
	return len(src)
}

func scanTemplate(src string, start int) int {
	for i := start + 1; i < len(src); i++ {
		switch src[i] {
		case '\\':
			i++
		case '$':
			if i+1 < len(src) && src[i+1] == '{' {
				end := matchBrace(src, i+1)
				if end < 0 {
					return len(src)
				}
				i = end
			}
		case '`':
			return i + 1
		}
	}
	return len(src)
}

func scanRegex(src string, start int) int {
	inClass := false
	for i := start + 1; i < len(src); i++ {
		switch src[i] {
		case '\\':
			i++
		case '[':
			inClass = true
		case ']':
			inClass = false
		case '/':
			if !inClass {
				// Consume trailing flags.
				j := i + 1
				for j < len(src) && isIdentByte(src[j]) {
					j++
				}
				return j
			}
		case '\n':
			return i
		}
	}
	return len(src)
}
