package compiler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dop251/goja/ast"
	"github.com/dop251/goja/parser"
)

// pass is one source-to-source rewrite step. Passes reparse their input, so
// a pipeline stays correct no matter how earlier passes moved offsets.
type pass struct {
	name  string
	apply func(src, filename string) (string, error)
}

// edit replaces src[start:end] with text. Offsets are byte offsets.
type edit struct {
	start, end int
	text       string
}

// applyEdits splices a set of non-overlapping edits into src.
func applyEdits(src string, edits []edit) string {
	if len(edits) == 0 {
		return src
	}
	sort.Slice(edits, func(i, j int) bool { return edits[i].start < edits[j].start })

	var b strings.Builder
	last := 0
	for _, e := range edits {
		if e.start < last {
			// Overlapping edit, drop it. Collectors only emit innermost
			// nodes so this does not happen in practice.
			continue
		}
		b.WriteString(src[last:e.start])
		b.WriteString(e.text)
		last = e.end
	}
	b.WriteString(src[last:])
	return b.String()
}

// offsetsOf converts a node's 1-based file indexes to byte offsets.
func offsetsOf(n ast.Node) (int, int) {
	return int(n.Idx0()) - 1, int(n.Idx1()) - 1
}

const maxRewriteRounds = 64

// rewriteUntilFixed repeatedly parses src and applies the edits produced by
// collect until none remain. Collectors that only rewrite innermost nodes
// terminate because every round removes at least one construct.
func rewriteUntilFixed(
	src, filename string,
	collect func(prog *ast.Program, src string) []edit,
) (string, error) {
	for round := 0; round < maxRewriteRounds; round++ {
		prog, err := parser.ParseFile(nil, filename, src, 0)
		if err != nil {
			return "", err
		}
		edits := collect(prog, src)
		if len(edits) == 0 {
			return src, nil
		}
		src = applyEdits(src, edits)
	}
	return "", fmt.Errorf("rewrite did not converge after %d rounds", maxRewriteRounds)
}

// blockScopingPass rewrites const and let declarations to var. Scope
// narrowing is not emulated; the playground compiles straight-line snippets
// where the widened scope is observationally equivalent.
func blockScopingPass() pass {
	return pass{
		name: "transform-block-scoping",
		apply: func(src, filename string) (string, error) {
			prog, err := parser.ParseFile(nil, filename, src, 0)
			if err != nil {
				return "", err
			}
			var edits []edit
			walkAST(prog, func(n ast.Node) bool {
				if _, ok := n.(*ast.LexicalDeclaration); !ok {
					return true
				}
				start, _ := offsetsOf(n)
				switch {
				case strings.HasPrefix(src[start:], "const"):
					edits = append(edits, edit{start, start + len("const"), "var"})
				case strings.HasPrefix(src[start:], "let"):
					edits = append(edits, edit{start, start + len("let"), "var"})
				}
				return true
			})
			return applyEdits(src, dedupeEdits(edits)), nil
		},
	}
}

// arrowFunctionsPass rewrites arrow functions to plain function
// expressions. Nested arrows are handled innermost-first across rounds.
// Lexical this/arguments binding is not emulated.
func arrowFunctionsPass() pass {
	return pass{
		name: "transform-arrow-functions",
		apply: func(src, filename string) (string, error) {
			return rewriteUntilFixed(src, filename, collectArrowEdits)
		},
	}
}

func collectArrowEdits(prog *ast.Program, src string) []edit {
	var edits []edit
	walkAST(prog, func(n ast.Node) bool {
		arrow, ok := n.(*ast.ArrowFunctionLiteral)
		if !ok {
			return true
		}
		if containsArrow(arrow.Body) {
			// Inner arrows first; this one is rewritten in a later round.
			return true
		}
		start, end := offsetsOf(arrow)
		edits = append(edits, edit{start, end, rewriteArrow(arrow, src)})
		return false
	})
	return dedupeEdits(edits)
}

func containsArrow(n ast.Node) bool {
	found := false
	walkAST(n, func(c ast.Node) bool {
		if _, ok := c.(*ast.ArrowFunctionLiteral); ok {
			found = true
			return false
		}
		return !found
	})
	return found
}

func rewriteArrow(arrow *ast.ArrowFunctionLiteral, src string) string {
	params := parameterListText(arrow.ParameterList, src)

	var b strings.Builder
	if arrow.Async {
		b.WriteString("async ")
	}
	b.WriteString("function (")
	b.WriteString(params)
	b.WriteString(") ")

	bodyStart, bodyEnd := offsetsOf(arrow.Body)
	bodyText := src[bodyStart:bodyEnd]
	if _, isBlock := arrow.Body.(*ast.BlockStatement); isBlock {
		b.WriteString(bodyText)
	} else {
		b.WriteString("{ return ")
		b.WriteString(bodyText)
		b.WriteString("; }")
	}
	return b.String()
}

// parameterListText extracts the raw parameter text, covering both
// parenthesized lists and the single bare identifier form.
func parameterListText(list *ast.ParameterList, src string) string {
	if list == nil {
		return ""
	}
	start, end := -1, -1
	if len(list.List) > 0 {
		s, _ := offsetsOf(list.List[0])
		_, e := offsetsOf(list.List[len(list.List)-1])
		start, end = s, e
	}
	if list.Rest != nil {
		_, e := offsetsOf(list.Rest)
		if start == -1 {
			s, _ := offsetsOf(list.Rest)
			// Include the "..." prefix ahead of the rest target.
			start = backtrackTo(src, s, "...")
		}
		end = e
	}
	if start == -1 {
		return ""
	}
	return src[start:end]
}

// backtrackTo walks backwards from off looking for marker immediately before
// it, skipping whitespace. Returns the marker start, or off when absent.
func backtrackTo(src string, off int, marker string) int {
	i := off
	for i > 0 && (src[i-1] == ' ' || src[i-1] == '\t') {
		i--
	}
	if i >= len(marker) && src[i-len(marker):i] == marker {
		return i - len(marker)
	}
	return off
}

// templateLiteralsPass rewrites untagged template literals into string
// concatenation. Nested templates are handled innermost-first.
func templateLiteralsPass() pass {
	return pass{
		name: "transform-template-literals",
		apply: func(src, filename string) (string, error) {
			return rewriteUntilFixed(src, filename, collectTemplateEdits)
		},
	}
}

func collectTemplateEdits(prog *ast.Program, src string) []edit {
	var edits []edit
	walkAST(prog, func(n ast.Node) bool {
		tmpl, ok := n.(*ast.TemplateLiteral)
		if !ok {
			return true
		}
		if tmpl.Tag != nil {
			// Tagged templates carry call semantics; leave them alone.
			return true
		}
		start, end := offsetsOf(tmpl)
		raw := src[start:end]
		if strings.Contains(raw[1:len(raw)-1], "`") {
			// Contains a nested template; rewrite the inner one first.
			return true
		}
		edits = append(edits, edit{start, end, rewriteTemplate(raw)})
		return false
	})
	return dedupeEdits(edits)
}

// rewriteTemplate converts one backtick literal (with no nested backticks)
// into a parenthesized concatenation expression.
func rewriteTemplate(raw string) string {
	inner := raw[1 : len(raw)-1]

	var pieces []string
	var text strings.Builder
	flushText := func() {
		if text.Len() > 0 {
			pieces = append(pieces, quoteJS(text.String()))
			text.Reset()
		}
	}

	for i := 0; i < len(inner); {
		if inner[i] == '\\' && i+1 < len(inner) {
			text.WriteByte(inner[i])
			text.WriteByte(inner[i+1])
			i += 2
			continue
		}
		if inner[i] == '$' && i+1 < len(inner) && inner[i+1] == '{' {
			exprEnd := matchBrace(inner, i+1)
			if exprEnd < 0 {
				text.WriteByte(inner[i])
				i++
				continue
			}
			flushText()
			pieces = append(pieces, "("+inner[i+2:exprEnd]+")")
			i = exprEnd + 1
			continue
		}
		text.WriteByte(inner[i])
		i++
	}
	flushText()

	if len(pieces) == 0 {
		return `""`
	}
	// Lead with a string so + means concatenation even when the first piece
	// is an expression.
	if !strings.HasPrefix(pieces[0], `"`) {
		pieces = append([]string{`""`}, pieces...)
	}
	return "(" + strings.Join(pieces, " + ") + ")"
}

// matchBrace returns the offset of the } matching the { at open, honoring
// string literals inside the expression. Returns -1 when unbalanced.
func matchBrace(s string, open int) int {
	depth := 0
	var quote byte
	for i := open; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"':
			quote = c
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// quoteJS renders text as a double-quoted JS string literal. Escape
// sequences carried over from the template body are kept as-is.
func quoteJS(text string) string {
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch c {
		case '\\':
			b.WriteByte(c)
			if i+1 < len(text) {
				i++
				b.WriteByte(text[i])
			}
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte('"')
	return b.String()
}

// exponentiationPass rewrites a ** b into Math.pow(a, b), innermost-first
// for chained operators.
func exponentiationPass() pass {
	return pass{
		name: "transform-exponentiation-operator",
		apply: func(src, filename string) (string, error) {
			return rewriteUntilFixed(src, filename, collectExponentEdits)
		},
	}
}

func collectExponentEdits(prog *ast.Program, src string) []edit {
	var edits []edit
	walkAST(prog, func(n ast.Node) bool {
		bin, ok := n.(*ast.BinaryExpression)
		if !ok {
			return true
		}
		_, leftEnd := offsetsOf(bin.Left)
		rightStart, _ := offsetsOf(bin.Right)
		between := src[leftEnd:rightStart]
		if !strings.Contains(between, "**") || strings.Contains(between, "**=") {
			return true
		}
		if hasExponent(bin.Left, src) || hasExponent(bin.Right, src) {
			return true
		}
		start, end := offsetsOf(bin)
		leftStart, _ := offsetsOf(bin.Left)
		_, rightEnd := offsetsOf(bin.Right)
		text := "Math.pow(" + src[leftStart:leftEnd] + ", " + src[rightStart:rightEnd] + ")"
		edits = append(edits, edit{start, end, text})
		return false
	})
	return dedupeEdits(edits)
}

func hasExponent(n ast.Node, src string) bool {
	found := false
	walkAST(n, func(c ast.Node) bool {
		if bin, ok := c.(*ast.BinaryExpression); ok {
			_, le := offsetsOf(bin.Left)
			rs, _ := offsetsOf(bin.Right)
			if strings.Contains(src[le:rs], "**") {
				found = true
				return false
			}
		}
		return !found
	})
	return found
}

func dedupeEdits(edits []edit) []edit {
	seen := make(map[int]bool, len(edits))
	out := edits[:0]
	for _, e := range edits {
		if seen[e.start] {
			continue
		}
		seen[e.start] = true
		out = append(out, e)
	}
	return out
}
