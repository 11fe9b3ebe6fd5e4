package compiler

import (
	"reflect"

	"github.com/dop251/goja/ast"
)

// walkAST visits root and every ast.Node reachable from it, parents before
// children. The visit function returns false to skip a node's children.
// Traversal is reflection-driven so it covers every node type the parser can
// produce without enumerating them.
func walkAST(root ast.Node, visit func(n ast.Node) bool) {
	if root == nil {
		return
	}
	if !visit(root) {
		return
	}
	walkChildren(root, visit)
}

var nodeType = reflect.TypeOf((*ast.Node)(nil)).Elem()

func walkChildren(n ast.Node, visit func(n ast.Node) bool) {
	v := reflect.ValueOf(n)
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return
	}
	for i := 0; i < v.NumField(); i++ {
		f := v.Field(i)
		if !f.CanInterface() {
			continue
		}
		scanValue(f, visit)
	}
}

func scanValue(v reflect.Value, visit func(n ast.Node) bool) {
	switch v.Kind() {
	case reflect.Ptr, reflect.Interface:
		if v.IsNil() {
			return
		}
		if v.Type().Implements(nodeType) {
			if n, ok := v.Interface().(ast.Node); ok && n != nil {
				walkAST(n, visit)
				return
			}
		}
		scanValue(v.Elem(), visit)
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			scanValue(v.Index(i), visit)
		}
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			f := v.Field(i)
			if !f.CanInterface() {
				continue
			}
			scanValue(f, visit)
		}
	}
}
