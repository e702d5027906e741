package core

import (
	"context"
)

// Equality is decided by evaluating a search tree of obligations. Bop nodes
// short-circuit: an AND collapses as soon as a child is false, an OR as soon
// as one is true. The tree lets the App "hint" branch race the structural
// branch without committing to either.

type eqNode interface{ isEq() }

type eqVal bool

type eqObl struct {
	a, b  Term
	depth int
}

type eqBop struct {
	short bool // the value that short-circuits: false = AND, true = OR
	x, y  eqNode
}

func (eqVal) isEq()  {}
func (*eqObl) isEq() {}
func (*eqBop) isEq() {}

func eqAnd(xs ...eqNode) eqNode {
	node := xs[len(xs)-1]
	for i := len(xs) - 2; i >= 0; i-- {
		node = &eqBop{short: false, x: xs[i], y: node}
	}
	return node
}

// Equal decides definitional equality of a and b at the given binding depth,
// modulo delta/beta/iota/nu reduction, alpha equivalence, and hole
// assignment. Both sides are erased on entry so proof-irrelevant content
// cannot break equality.
func (bk *Book) Equal(ctx context.Context, a, b Term, depth int) (bool, error) {
	var node eqNode = &eqObl{a: Erase(a), b: Erase(b), depth: depth}
	for {
		if v, ok := node.(eqVal); ok {
			return bool(v), nil
		}
		next, err := bk.eqStep(ctx, node)
		if err != nil {
			return false, err
		}
		node = next
	}
}

// eqStep advances the leftmost unexpanded obligation by one step.
func (bk *Book) eqStep(ctx context.Context, node eqNode) (eqNode, error) {
	switch n := node.(type) {
	case eqVal:
		return n, nil
	case *eqBop:
		x, err := bk.eqStep(ctx, n.x)
		if err != nil {
			return nil, err
		}
		if v, ok := x.(eqVal); ok {
			if bool(v) == n.short {
				return eqVal(n.short), nil
			}
			return n.y, nil
		}
		return &eqBop{short: n.short, x: x, y: n.y}, nil
	case *eqObl:
		return bk.eqExpand(ctx, n.a, n.b, n.depth)
	}
	return eqVal(false), nil
}

// eqExpand reduces both sides of one obligation (once without delta, once
// with) and applies the shortcut ladder: hash agreement, identical reference
// heads, hole assignment, the App hint branch, and finally structural
// descent.
func (bk *Book) eqExpand(ctx context.Context, a, b Term, depth int) (eqNode, error) {
	noDelta := ReduceOpts{Weak: true, Beta: true, Iota: true, Nu: true, Holes: true}
	withDelta := ReduceOpts{Weak: true, Delta: true, Beta: true, Iota: true, Nu: true, Holes: true}

	ax, err := bk.Reduce(ctx, a, noDelta)
	if err != nil {
		return nil, err
	}
	bx, err := bk.Reduce(ctx, b, noDelta)
	if err != nil {
		return nil, err
	}
	ay, err := bk.Reduce(ctx, a, withDelta)
	if err != nil {
		return nil, err
	}
	by, err := bk.Reduce(ctx, b, withDelta)
	if err != nil {
		return nil, err
	}

	if HashOf(a) == HashOf(b) || HashOf(ax) == HashOf(bx) || HashOf(ay) == HashOf(by) {
		return eqVal(true), nil
	}

	if ar, ok := ax.(*Ref); ok {
		if br, ok := bx.(*Ref); ok && ar.Name == br.Name {
			return eqVal(true), nil
		}
	}

	if hol, other, ok := holSide(ax, bx); ok {
		return bk.eqAssign(ctx, hol, other, ay, by, depth)
	}

	if aApp, ok := ax.(*App); ok {
		if bApp, ok := bx.(*App); ok {
			hint := eqAnd(
				&eqObl{a: aApp.Func, b: bApp.Func, depth: depth},
				&eqObl{a: aApp.Argm, b: bApp.Argm, depth: depth},
			)
			return &eqBop{short: true, x: hint, y: bk.eqStruct(ay, by, depth)}, nil
		}
	}

	return bk.eqStruct(ay, by, depth), nil
}

func holSide(a, b Term) (*Hol, Term, bool) {
	if h, ok := a.(*Hol); ok && h.Name != ErasedName {
		return h, b, true
	}
	if h, ok := b.(*Hol); ok && h.Name != ErasedName {
		return h, a, true
	}
	return nil, nil, false
}

// eqAssign fills a hole with the opposing side, shifted from the comparison
// depth back to the hole's binding depth. A second, disagreeing solution
// downgrades the hole to a conflict but the comparison still proceeds.
func (bk *Book) eqAssign(ctx context.Context, hol *Hol, other Term, ay, by Term, depth int) (eqNode, error) {
	h := bk.HoleAt(hol.Name, nil, nil, depth)
	if h.Conflict {
		return bk.eqStruct(ay, by, depth), nil
	}
	shifted := Shift(other, h.Depth-depth, 0)
	if h.Value == nil {
		h.Value = shifted
		return eqVal(true), nil
	}
	same, err := bk.Equal(ctx, h.Value, shifted, h.Depth)
	if err != nil {
		return nil, err
	}
	if same {
		return eqVal(true), nil
	}
	h.Value = nil
	h.Conflict = true
	return bk.eqStruct(ay, by, depth), nil
}

// eqStruct compares two delta-reduced heads structurally, descending under
// binders with an incremented depth.
func (bk *Book) eqStruct(a, b Term, depth int) eqNode {
	switch at := a.(type) {
	case *Var:
		if bt, ok := b.(*Var); ok {
			return eqVal(at.Indx == bt.Indx)
		}
	case *Typ:
		if _, ok := b.(*Typ); ok {
			return eqVal(true)
		}
	case *Num:
		if _, ok := b.(*Num); ok {
			return eqVal(true)
		}
	case *Val:
		if bt, ok := b.(*Val); ok {
			return eqVal(at.Numb == bt.Numb)
		}
	case *All:
		if bt, ok := b.(*All); ok {
			if at.Eras != bt.Eras {
				return eqVal(false)
			}
			return eqAnd(
				&eqObl{a: at.Bind, b: bt.Bind, depth: depth},
				&eqObl{a: at.Body, b: bt.Body, depth: depth + 1},
			)
		}
	case *Lam:
		if bt, ok := b.(*Lam); ok {
			if at.Eras != bt.Eras {
				return eqVal(false)
			}
			return &eqObl{a: at.Body, b: bt.Body, depth: depth + 1}
		}
	case *App:
		if bt, ok := b.(*App); ok {
			if at.Eras != bt.Eras {
				return eqVal(false)
			}
			return eqAnd(
				&eqObl{a: at.Func, b: bt.Func, depth: depth},
				&eqObl{a: at.Argm, b: bt.Argm, depth: depth},
			)
		}
	case *Slf:
		if bt, ok := b.(*Slf); ok {
			return &eqObl{a: at.Type, b: bt.Type, depth: depth + 1}
		}
	case *Use:
		if bt, ok := b.(*Use); ok {
			return &eqObl{a: at.Expr, b: bt.Expr, depth: depth}
		}
	case *Op1:
		if bt, ok := b.(*Op1); ok {
			if at.Oper != bt.Oper {
				return eqVal(false)
			}
			// Both sides must agree on the reduced literal, not just one.
			av, aok := at.Num1.(*Val)
			bv, bok := bt.Num1.(*Val)
			if !aok || !bok || av.Numb != bv.Numb {
				return eqVal(false)
			}
			return &eqObl{a: at.Num0, b: bt.Num0, depth: depth}
		}
	case *Op2:
		if bt, ok := b.(*Op2); ok {
			if at.Oper != bt.Oper {
				return eqVal(false)
			}
			return eqAnd(
				&eqObl{a: at.Num0, b: bt.Num0, depth: depth},
				&eqObl{a: at.Num1, b: bt.Num1, depth: depth},
			)
		}
	case *Ite:
		if bt, ok := b.(*Ite); ok {
			return eqAnd(
				&eqObl{a: at.Cond, b: bt.Cond, depth: depth},
				&eqObl{a: at.IfT, b: bt.IfT, depth: depth},
				&eqObl{a: at.IfF, b: bt.IfF, depth: depth},
			)
		}
	case *Hol:
		if at.Name == ErasedName {
			return eqVal(true)
		}
		if bt, ok := b.(*Hol); ok {
			return eqVal(at.Name == bt.Name)
		}
	case *Ref:
		if bt, ok := b.(*Ref); ok {
			return eqVal(at.Name == bt.Name && at.Eras == bt.Eras)
		}
	}
	if bt, ok := b.(*Hol); ok && bt.Name == ErasedName {
		return eqVal(true)
	}
	return eqVal(false)
}
