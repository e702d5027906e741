package core

import (
	"context"

	"github.com/Xuexl-Mack/Formality/pkg/ioctx"
)

// ReduceOpts selects which reduction classes fire. Weak stops reduction from
// recursing under binders and into arguments.
type ReduceOpts struct {
	Weak  bool
	Delta bool // unfold references
	Beta  bool // apply lambdas, eliminate use(new(..))
	Iota  bool // select numeric conditionals
	Nu    bool // compute word operators
	Logs  bool // emit Log messages to the context sink
	Holes bool // substitute solved holes
}

// WhnfOpts reduces to weak head normal form with every rule class enabled
// except logging.
func WhnfOpts() ReduceOpts {
	return ReduceOpts{Weak: true, Delta: true, Beta: true, Iota: true, Nu: true, Holes: true}
}

// NormalizeOpts reduces to full normal form.
func NormalizeOpts() ReduceOpts {
	return ReduceOpts{Delta: true, Beta: true, Iota: true, Nu: true, Logs: true, Holes: true}
}

// Reduce normalizes t under opts. Log messages are emitted to the sink
// carried by ctx.
func (b *Book) Reduce(ctx context.Context, t Term, opts ReduceOpts) (out Term, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			if ne, ok := rec.(*NormError); ok {
				out, err = nil, ne
				return
			}
			panic(rec)
		}
	}()
	r := &reducer{book: b, opts: opts, ctx: ctx}
	v := r.whnf(r.eval(t, nil))
	return r.quote(v, 0), nil
}

// Normalize fully normalizes t with every rule class enabled.
func (b *Book) Normalize(ctx context.Context, t Term) (Term, error) {
	return b.Reduce(ctx, t, NormalizeOpts())
}

// Whnf reduces t to weak head normal form.
func (b *Book) Whnf(ctx context.Context, t Term) (Term, error) {
	return b.Reduce(ctx, t, WhnfOpts())
}

// The semantic domain: binders become closures holding their body and the
// environment it was reached under, so the reducer never performs term-level
// substitution on the hot path.

type value interface{ isValue() }

type env struct {
	val  value
	next *env
	size int
}

func extend(e *env, v value) *env {
	size := 1
	if e != nil {
		size = e.size + 1
	}
	return &env{val: v, next: e, size: size}
}

func envLen(e *env) int {
	if e == nil {
		return 0
	}
	return e.size
}

func envGet(e *env, i int) (value, bool) {
	for e != nil {
		if i == 0 {
			return e.val, true
		}
		i--
		e = e.next
	}
	return nil, false
}

type clos struct {
	name string
	body Term
	env  *env
}

type (
	vVar struct{ lvl int }
	vTyp struct{}
	vNum struct{}
	vVal struct{ numb uint32 }
	vAll struct {
		name string
		bind value
		body clos
		eras bool
	}
	vLam struct {
		name string
		bind value // nil when unannotated
		body clos
		eras bool
	}
	vApp struct {
		fun, arg value
		eras     bool
	}
	vSlf struct {
		name string
		typ  clos
	}
	vNew struct{ typ, expr value }
	vUse struct{ expr value }
	vOp1 struct {
		oper Oper
		num0 value
		num1 uint32
	}
	vOp2 struct {
		oper Oper
		num0 value
		num1 value
	}
	vIte struct{ cond, ift, iff value }
	vAnn struct {
		typ, expr value
		done      bool
	}
	vLog struct{ msge, expr value }
	vHol struct{ name string }
	vRef struct {
		name string
		eras bool
	}
)

func (*vVar) isValue() {}
func (*vTyp) isValue() {}
func (*vNum) isValue() {}
func (*vVal) isValue() {}
func (*vAll) isValue() {}
func (*vLam) isValue() {}
func (*vApp) isValue() {}
func (*vSlf) isValue() {}
func (*vNew) isValue() {}
func (*vUse) isValue() {}
func (*vOp1) isValue() {}
func (*vOp2) isValue() {}
func (*vIte) isValue() {}
func (*vAnn) isValue() {}
func (*vLog) isValue() {}
func (*vHol) isValue() {}
func (*vRef) isValue() {}

type reducer struct {
	book *Book
	opts ReduceOpts
	ctx  context.Context
}

func (r *reducer) apply(c clos, arg value) value {
	return r.eval(c.body, extend(c.env, arg))
}

// eval unquotes a term into the semantic domain without reducing. Solved
// holes are substituted here, where the environment length gives the current
// binding depth.
func (r *reducer) eval(t Term, e *env) value {
	switch t := t.(type) {
	case *Var:
		if v, ok := envGet(e, t.Indx); ok {
			return v
		}
		return &vVar{lvl: envLen(e) - 1 - t.Indx}
	case *Typ:
		return &vTyp{}
	case *Num:
		return &vNum{}
	case *Val:
		return &vVal{numb: t.Numb}
	case *All:
		return &vAll{
			name: t.Name,
			bind: r.eval(t.Bind, e),
			body: clos{name: t.Name, body: t.Body, env: e},
			eras: t.Eras,
		}
	case *Lam:
		var bind value
		if t.Bind != nil {
			bind = r.eval(t.Bind, e)
		}
		return &vLam{
			name: t.Name,
			bind: bind,
			body: clos{name: t.Name, body: t.Body, env: e},
			eras: t.Eras,
		}
	case *App:
		return &vApp{fun: r.eval(t.Func, e), arg: r.eval(t.Argm, e), eras: t.Eras}
	case *Slf:
		return &vSlf{name: t.Name, typ: clos{name: t.Name, body: t.Type, env: e}}
	case *New:
		return &vNew{typ: r.eval(t.Type, e), expr: r.eval(t.Expr, e)}
	case *Use:
		return &vUse{expr: r.eval(t.Expr, e)}
	case *Op1:
		lit, ok := t.Num1.(*Val)
		if !ok {
			panic(&NormError{Kind: ErrUnknownOper, Msg: "op1 right operand is not a literal", Term: t})
		}
		return &vOp1{oper: t.Oper, num0: r.eval(t.Num0, e), num1: lit.Numb}
	case *Op2:
		return &vOp2{oper: t.Oper, num0: r.eval(t.Num0, e), num1: r.eval(t.Num1, e)}
	case *Ite:
		return &vIte{cond: r.eval(t.Cond, e), ift: r.eval(t.IfT, e), iff: r.eval(t.IfF, e)}
	case *Ann:
		return &vAnn{typ: r.eval(t.Type, e), expr: r.eval(t.Expr, e), done: t.Done}
	case *Log:
		return &vLog{msge: r.eval(t.Msge, e), expr: r.eval(t.Expr, e)}
	case *Hol:
		if r.opts.Holes {
			if h, ok := r.book.Holes[t.Name]; ok && h.Solved() {
				return r.eval(Shift(h.Value, envLen(e)-h.Depth, 0), e)
			}
		}
		return &vHol{name: t.Name}
	case *Ref:
		return &vRef{name: t.Name, eras: t.Eras}
	}
	panic(&NormError{Kind: ErrUnknownOper, Msg: "unreachable term variant", Term: t})
}

// whnf exposes the outermost constructor, firing whichever rule classes the
// options enable.
func (r *reducer) whnf(v value) value {
	for {
		switch t := v.(type) {
		case *vApp:
			if !r.opts.Beta {
				return v
			}
			fun := r.whnf(t.fun)
			if lam, ok := fun.(*vLam); ok {
				v = r.apply(lam.body, t.arg)
				continue
			}
			return &vApp{fun: fun, arg: t.arg, eras: t.eras}
		case *vRef:
			if !r.opts.Delta {
				return v
			}
			var body Term
			var ok bool
			if t.eras {
				body, ok = r.book.ErasedDef(t.name)
			} else {
				body, ok = r.book.Defs[t.name]
			}
			if !ok {
				return v
			}
			v = r.eval(body, nil)
		case *vAnn:
			v = t.expr
		case *vUse:
			if !r.opts.Beta {
				return v
			}
			expr := r.whnf(t.expr)
			if nw, ok := expr.(*vNew); ok {
				v = nw.expr
				continue
			}
			return &vUse{expr: expr}
		case *vLog:
			if r.opts.Logs {
				msge := r.quoteFull(t.msge)
				ioctx.SinkFromContext(r.ctx).Log(ioctx.LogRecord{
					Phase:   "reduce",
					Message: Show(msge),
				})
			}
			v = t.expr
		case *vOp2:
			if !r.opts.Nu {
				return v
			}
			num1 := r.whnf(t.num1)
			if lit, ok := num1.(*vVal); ok {
				v = &vOp1{oper: t.oper, num0: t.num0, num1: lit.numb}
				continue
			}
			return &vOp2{oper: t.oper, num0: t.num0, num1: num1}
		case *vOp1:
			if !r.opts.Nu {
				return v
			}
			num0 := r.whnf(t.num0)
			if lit, ok := num0.(*vVal); ok {
				res, err := EvalOper(t.oper, lit.numb, t.num1)
				if err != nil {
					panic(&NormError{Kind: ErrUnknownOper, Msg: err.Error()})
				}
				return &vVal{numb: res}
			}
			return &vOp1{oper: t.oper, num0: num0, num1: t.num1}
		case *vIte:
			if !r.opts.Iota {
				return v
			}
			cond := r.whnf(t.cond)
			if lit, ok := cond.(*vVal); ok {
				if lit.numb != 0 {
					v = t.ift
				} else {
					v = t.iff
				}
				continue
			}
			return &vIte{cond: cond, ift: t.ift, iff: t.iff}
		default:
			return v
		}
	}
}

// quote reads a value back into a term at the given depth. Under Weak the
// children are reified as-is; otherwise each is reduced on the way out.
func (r *reducer) quote(v value, depth int) Term {
	if !r.opts.Weak {
		v = r.whnf(v)
	}
	switch t := v.(type) {
	case *vVar:
		return &Var{Indx: depth - 1 - t.lvl}
	case *vTyp:
		return &Typ{}
	case *vNum:
		return &Num{}
	case *vVal:
		return &Val{Numb: t.numb}
	case *vAll:
		return &All{
			Name: t.name,
			Bind: r.quote(t.bind, depth),
			Body: r.quote(r.apply(t.body, &vVar{lvl: depth}), depth+1),
			Eras: t.eras,
		}
	case *vLam:
		var bind Term
		if t.bind != nil {
			bind = r.quote(t.bind, depth)
		}
		return &Lam{
			Name: t.name,
			Bind: bind,
			Body: r.quote(r.apply(t.body, &vVar{lvl: depth}), depth+1),
			Eras: t.eras,
		}
	case *vApp:
		return &App{Func: r.quote(t.fun, depth), Argm: r.quote(t.arg, depth), Eras: t.eras}
	case *vSlf:
		return &Slf{Name: t.name, Type: r.quote(r.apply(t.typ, &vVar{lvl: depth}), depth+1)}
	case *vNew:
		return &New{Type: r.quote(t.typ, depth), Expr: r.quote(t.expr, depth)}
	case *vUse:
		return &Use{Expr: r.quote(t.expr, depth)}
	case *vOp1:
		return &Op1{Oper: t.oper, Num0: r.quote(t.num0, depth), Num1: &Val{Numb: t.num1}}
	case *vOp2:
		return &Op2{Oper: t.oper, Num0: r.quote(t.num0, depth), Num1: r.quote(t.num1, depth)}
	case *vIte:
		return &Ite{
			Cond: r.quote(t.cond, depth),
			IfT:  r.quote(t.ift, depth),
			IfF:  r.quote(t.iff, depth),
		}
	case *vAnn:
		return &Ann{Type: r.quote(t.typ, depth), Expr: r.quote(t.expr, depth), Done: t.done}
	case *vLog:
		return &Log{Msge: r.quote(t.msge, depth), Expr: r.quote(t.expr, depth)}
	case *vHol:
		return &Hol{Name: t.name}
	case *vRef:
		return &Ref{Name: t.name, Eras: t.eras}
	}
	panic(&NormError{Kind: ErrUnknownOper, Msg: "unreachable value variant"})
}

// quoteFull normalizes a value regardless of the Weak option; used for Log
// messages, which always print normalized.
func (r *reducer) quoteFull(v value) Term {
	sub := &reducer{book: r.book, opts: r.opts, ctx: r.ctx}
	sub.opts.Weak = false
	sub.opts.Logs = false
	return sub.quote(sub.whnf(v), 0)
}
