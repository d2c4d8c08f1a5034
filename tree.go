package skein

import (
	"fmt"
	"io"
	"strings"
)

// Walk visits every context preorder, roots in creation order. The
// visitor returning false stops the walk.
func (env *Env) Walk(visit func(*Context) bool) {
	if env == nil || visit == nil {
		return
	}
	for _, root := range env.Roots() {
		if !walkFrom(root, visit) {
			return
		}
	}
}

func walkFrom(c *Context, visit func(*Context) bool) bool {
	if !visit(c) {
		return false
	}
	for _, kid := range c.Children() {
		if !walkFrom(kid, visit) {
			return false
		}
	}
	return true
}

// FindContext returns the first context satisfying pred in walk order,
// or nil.
func (env *Env) FindContext(pred func(*Context) bool) *Context {
	var found *Context
	env.Walk(func(c *Context) bool {
		if pred(c) {
			found = c
			return false
		}
		return true
	})
	return found
}

// Descendants returns every context below c, preorder.
func (c *Context) Descendants() []*Context {
	if c == nil {
		return nil
	}
	var out []*Context
	for _, kid := range c.Children() {
		out = append(out, kid)
		out = append(out, kid.Descendants()...)
	}
	return out
}

// PrintTree writes an indented rendering of the forest: one line per
// context with id, relation, state, and buffer length.
func (env *Env) PrintTree(w io.Writer) {
	if env == nil {
		return
	}
	for _, root := range env.Roots() {
		printFrom(w, root, 0)
	}
}

func printFrom(w io.Writer, c *Context, indent int) {
	fmt.Fprintf(w, "%s[%d] %s %s (%d tokens)\n",
		strings.Repeat("  ", indent), c.id, c.relation, c.State(), c.editor.Len())
	for _, kid := range c.Children() {
		printFrom(w, kid, indent+1)
	}
}
