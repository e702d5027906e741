package core

import (
	"fmt"
	"strings"
)

// CtxFrame is one binder in a typing context: the bound name, an optional
// definition, the binder's type, and whether the binder is erased.
type CtxFrame struct {
	Name string
	Term Term
	Type Term
	Eras bool
}

// Ctx is a typing context. The zero value is the empty context; Extend
// shares structure, so contexts may be held across backtracking.
type Ctx []CtxFrame

// Extend pushes a frame on top of the context.
func (c Ctx) Extend(f CtxFrame) Ctx {
	return append(c[:len(c):len(c)], f)
}

// Len is the number of binders in scope.
func (c Ctx) Len() int {
	return len(c)
}

// Get retrieves the i-th frame from the top, with the frame's type (and
// definition, if any) shifted to the depth of the retrieval site.
func (c Ctx) Get(i int) (CtxFrame, bool) {
	if i < 0 || i >= len(c) {
		return CtxFrame{}, false
	}
	f := c[len(c)-1-i]
	out := CtxFrame{Name: f.Name, Eras: f.Eras}
	if f.Type != nil {
		out.Type = Shift(f.Type, i+1, 0)
	}
	if f.Term != nil {
		out.Term = Shift(f.Term, i+1, 0)
	}
	return out, true
}

// Names returns the bound names from outermost to innermost, for rendering
// variables.
func (c Ctx) Names() []string {
	names := make([]string, len(c))
	for i, f := range c {
		names[i] = f.Name
	}
	return names
}

// Show renders the context for diagnostics, innermost binder last.
func (c Ctx) Show() string {
	if len(c) == 0 {
		return ""
	}
	var sb strings.Builder
	names := c.Names()
	for i, f := range c {
		name := f.Name
		if name == "" {
			name = fmt.Sprintf("x%d", i)
		}
		if f.Type != nil {
			fmt.Fprintf(&sb, "- %s : %s\n", name, ShowWith(f.Type, names[:i]))
		} else {
			fmt.Fprintf(&sb, "- %s\n", name)
		}
	}
	return sb.String()
}
