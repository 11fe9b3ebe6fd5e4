package compiler

import (
	"reflect"
	"strings"

	"github.com/dop251/goja/ast"
)

// ASTNode is the serializable view of one syntax tree node. Offsets are
// 0-based byte offsets into the source the tree was parsed from.
type ASTNode struct {
	Type     string     `json:"type"`
	Start    int        `json:"start"`
	End      int        `json:"end"`
	Text     string     `json:"text,omitempty"`
	Children []*ASTNode `json:"children,omitempty"`
}

// astToTree converts a parsed program into the serializable tree. Leaf
// nodes carry their source text so the tree is readable on its own.
func astToTree(root ast.Node, src string) *ASTNode {
	out := buildASTNode(root, src)
	return out
}

func buildASTNode(n ast.Node, src string) *ASTNode {
	start, end := offsetsOf(n)
	node := &ASTNode{
		Type:  nodeTypeName(n),
		Start: start,
		End:   end,
	}

	walkChildren(n, func(child ast.Node) bool {
		node.Children = append(node.Children, buildASTNode(child, src))
		return false // buildASTNode already recursed
	})

	if len(node.Children) == 0 && start >= 0 && end <= len(src) && start <= end {
		node.Text = src[start:end]
	}
	return node
}

func nodeTypeName(n ast.Node) string {
	t := reflect.TypeOf(n)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return strings.TrimPrefix(t.String(), "ast.")
}
