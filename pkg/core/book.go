package core

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Defs maps fully-qualified names to definitions.
type Defs map[string]Term

// Types caches the inferred type of checked references.
type Types map[string]Term

// Hole is the registry entry for a metavariable: the expected type and
// context at first sighting, the binding depth, and the current solution.
// A solved hole keeps its first assignment; a conflicting second assignment
// downgrades the hole to Conflict and clears the value, never touching any
// other hole.
type Hole struct {
	Name     string
	Expect   Term
	Ctx      Ctx
	Depth    int
	Value    Term
	Conflict bool
}

// Solved reports whether the hole carries a usable assignment.
func (h *Hole) Solved() bool {
	return h.Value != nil && !h.Conflict
}

type erasedKey struct {
	Name string
	Eras bool
}

// Book owns the state of one checking session: the definitions, the type
// cache, the hole registry, and the erased-form cache used by delta
// reduction. Books are not safe for concurrent use.
type Book struct {
	Defs  Defs
	Types Types
	Holes map[string]*Hole

	erased    *lru.Cache[erasedKey, Term]
	holeCount int
}

const erasedCacheSize = 1024

func NewBook() *Book {
	cache, err := lru.New[erasedKey, Term](erasedCacheSize)
	if err != nil {
		panic(err)
	}
	return &Book{
		Defs:   make(Defs),
		Types:  make(Types),
		Holes:  make(map[string]*Hole),
		erased: cache,
	}
}

// Define registers a top-level definition.
func (b *Book) Define(name string, t Term) {
	b.Defs[name] = t
}

// ErasedDef returns the erased form of a definition, caching it keyed by
// (name, erased). Recursive references would otherwise re-erase their bodies
// on every delta step.
func (b *Book) ErasedDef(name string) (Term, bool) {
	key := erasedKey{Name: name, Eras: true}
	if t, ok := b.erased.Get(key); ok {
		return t, true
	}
	body, ok := b.Defs[name]
	if !ok {
		return nil, false
	}
	t := Erase(body)
	b.erased.Add(key, t)
	return t, true
}

// HoleAt returns the registry entry for a hole, creating it on first
// sighting with the given goal, context and depth.
func (b *Book) HoleAt(name string, expect Term, ctx Ctx, depth int) *Hole {
	if h, ok := b.Holes[name]; ok {
		if h.Expect == nil {
			h.Expect = expect
		}
		return h
	}
	h := &Hole{Name: name, Expect: expect, Ctx: ctx, Depth: depth}
	b.Holes[name] = h
	return h
}

// FreshHoleName yields an autogenerated (anonymous) hole name.
func (b *Book) FreshHoleName() string {
	b.holeCount++
	return fmt.Sprintf("_%d", b.holeCount)
}

// FillHoles replaces every solved hole occurrence in t by its value, shifted
// from the hole's binding depth to the occurrence depth.
func (b *Book) FillHoles(t Term) Term {
	return b.fillHoles(t, 0)
}

func (b *Book) fillHoles(t Term, depth int) Term {
	switch t := t.(type) {
	case *Hol:
		if h, ok := b.Holes[t.Name]; ok && h.Solved() {
			return b.fillHoles(Shift(h.Value, depth-h.Depth, 0), depth)
		}
		return t
	case *All:
		return &All{
			termBase: termBase{L: t.L},
			Name:     t.Name,
			Bind:     b.fillHoles(t.Bind, depth),
			Body:     b.fillHoles(t.Body, depth+1),
			Eras:     t.Eras,
		}
	case *Lam:
		var bind Term
		if t.Bind != nil {
			bind = b.fillHoles(t.Bind, depth)
		}
		return &Lam{
			termBase: termBase{L: t.L},
			Name:     t.Name,
			Bind:     bind,
			Body:     b.fillHoles(t.Body, depth+1),
			Eras:     t.Eras,
		}
	case *App:
		return &App{
			termBase: termBase{L: t.L},
			Func:     b.fillHoles(t.Func, depth),
			Argm:     b.fillHoles(t.Argm, depth),
			Eras:     t.Eras,
		}
	case *Slf:
		return &Slf{termBase: termBase{L: t.L}, Name: t.Name, Type: b.fillHoles(t.Type, depth+1)}
	case *New:
		return &New{
			termBase: termBase{L: t.L},
			Type:     b.fillHoles(t.Type, depth),
			Expr:     b.fillHoles(t.Expr, depth),
		}
	case *Use:
		return &Use{termBase: termBase{L: t.L}, Expr: b.fillHoles(t.Expr, depth)}
	case *Op1:
		return &Op1{
			termBase: termBase{L: t.L},
			Oper:     t.Oper,
			Num0:     b.fillHoles(t.Num0, depth),
			Num1:     b.fillHoles(t.Num1, depth),
		}
	case *Op2:
		return &Op2{
			termBase: termBase{L: t.L},
			Oper:     t.Oper,
			Num0:     b.fillHoles(t.Num0, depth),
			Num1:     b.fillHoles(t.Num1, depth),
		}
	case *Ite:
		return &Ite{
			termBase: termBase{L: t.L},
			Cond:     b.fillHoles(t.Cond, depth),
			IfT:      b.fillHoles(t.IfT, depth),
			IfF:      b.fillHoles(t.IfF, depth),
		}
	case *Ann:
		return &Ann{
			termBase: termBase{L: t.L},
			Type:     b.fillHoles(t.Type, depth),
			Expr:     b.fillHoles(t.Expr, depth),
			Done:     t.Done,
		}
	case *Log:
		return &Log{
			termBase: termBase{L: t.L},
			Msge:     b.fillHoles(t.Msge, depth),
			Expr:     b.fillHoles(t.Expr, depth),
		}
	}
	return t
}
