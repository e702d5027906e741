package core

import (
	"context"
	"strings"

	"github.com/Xuexl-Mack/Formality/pkg/ioctx"
)

// Check type-checks a top-level definition and returns its type. Every named
// hole, solved or not, is reported through the context sink after the check
// completes; anonymous "_" holes are not.
func (b *Book) Check(ctx context.Context, name string) (Term, error) {
	return b.CheckAgainst(ctx, name, nil)
}

// CheckAgainst checks a top-level definition under an expected type.
func (b *Book) CheckAgainst(ctx context.Context, name string, expected Term) (Term, error) {
	typ, err := b.checkRef(ctx, name, expected)
	if err != nil {
		return nil, err
	}
	b.reportHoles(ctx)
	return typ, nil
}

// checkRef checks a referenced definition in the empty context, substitutes
// any holes the check resolved, caches the type, and rewrites the definition
// into a done annotation so later references are free.
func (b *Book) checkRef(ctx context.Context, name string, expected Term) (Term, error) {
	if typ, ok := b.Types[name]; ok {
		if expected != nil {
			same, err := b.Equal(ctx, typ, expected, 0)
			if err != nil {
				return nil, err
			}
			if !same {
				return nil, newTypeError(ErrTypeMismatch, b.Defs[name], nil,
					"%s has type %s, expected %s", name, Show(typ), Show(expected))
			}
		}
		return typ, nil
	}

	body, ok := b.Defs[name]
	if !ok {
		return nil, newTypeError(ErrUnknownRef, nil, nil, "undefined reference %s", name)
	}

	typ, err := b.checkTerm(ctx, body, expected, nil, false)
	if err != nil {
		return nil, err
	}

	typ = b.FillHoles(typ)
	body = b.FillHoles(body)
	b.Types[name] = typ
	if ann, ok := body.(*Ann); ok && ann.Done {
		b.Defs[name] = ann
	} else {
		b.Defs[name] = &Ann{Type: typ, Expr: body, Done: true}
	}
	return typ, nil
}

// checkTerm runs the per-constructor rule and then, when an expected type
// was provided, compares it against the inferred one.
func (b *Book) checkTerm(ctx context.Context, t Term, expect Term, c Ctx, eras bool) (Term, error) {
	var expectW Term
	if expect != nil {
		var err error
		expectW, err = b.Whnf(ctx, expect)
		if err != nil {
			return nil, err
		}
	}

	inferred, err := b.inferTerm(ctx, t, expectW, c, eras)
	if err != nil {
		return nil, err
	}

	if expect != nil {
		same, err := b.Equal(ctx, inferred, expect, c.Len())
		if err != nil {
			return nil, err
		}
		if !same {
			return nil, b.mismatch(ctx, t, c, inferred, expect)
		}
	}
	return inferred, nil
}

func (b *Book) mismatch(ctx context.Context, t Term, c Ctx, inferred, expect Term) error {
	opts := NormalizeOpts()
	opts.Logs = false
	names := c.Names()
	shownInf := ShowWith(inferred, names)
	if ni, err := b.Reduce(ctx, inferred, opts); err == nil {
		shownInf = ShowWith(ni, names)
	}
	shownExp := ShowWith(expect, names)
	if ne, err := b.Reduce(ctx, expect, opts); err == nil {
		shownExp = ShowWith(ne, names)
	}
	return newTypeError(ErrTypeMismatch, t, c, "expected %s, found %s", shownExp, shownInf)
}

func (b *Book) inferTerm(ctx context.Context, t Term, expect Term, c Ctx, eras bool) (Term, error) {
	switch t := t.(type) {
	case *Var:
		frame, ok := c.Get(t.Indx)
		if !ok {
			return nil, newTypeError(ErrUnboundVariable, t, c, "variable #%d has no binder", t.Indx)
		}
		if frame.Eras && !eras {
			return nil, newTypeError(ErrErasedUse, t, c,
				"erased variable %s used in a relevant position", frame.Name)
		}
		return frame.Type, nil

	case *Typ:
		return &Typ{}, nil

	case *Num:
		return &Typ{}, nil

	case *Val:
		return &Num{}, nil

	case *All:
		if err := b.checkIsType(ctx, t.Bind, c, ErrNonTypeForall); err != nil {
			return nil, err
		}
		bodyCtx := c.Extend(CtxFrame{Name: t.Name, Type: t.Bind, Eras: t.Eras})
		if err := b.checkIsType(ctx, t.Body, bodyCtx, ErrNonTypeForall); err != nil {
			return nil, err
		}
		return &Typ{}, nil

	case *Lam:
		var bind Term
		var bodyExpect Term
		if all, ok := expect.(*All); ok {
			if all.Eras != t.Eras {
				return nil, newTypeError(ErrTypeMismatch, t, c,
					"lambda erasure disagrees with its function type")
			}
			bind = all.Bind
			bodyExpect = all.Body
		} else if t.Bind != nil {
			if _, err := b.checkTerm(ctx, t.Bind, &Typ{}, c, true); err != nil {
				return nil, err
			}
			bind = t.Bind
		} else {
			return nil, newTypeError(ErrNeedsAnnotation, t, c,
				"unannotated lambda in a position with no expected function type")
		}
		bodyCtx := c.Extend(CtxFrame{Name: t.Name, Type: bind, Eras: t.Eras})
		bodyType, err := b.checkTerm(ctx, t.Body, bodyExpect, bodyCtx, eras)
		if err != nil {
			return nil, err
		}
		return &All{Name: t.Name, Bind: bind, Body: bodyType, Eras: t.Eras}, nil

	case *App:
		funcType, err := b.checkTerm(ctx, t.Func, nil, c, eras)
		if err != nil {
			return nil, err
		}
		funcW, err := b.Whnf(ctx, funcType)
		if err != nil {
			return nil, err
		}
		all, ok := funcW.(*All)
		if !ok {
			return nil, newTypeError(ErrNonFunction, t, c,
				"applied a value of type %s", ShowWith(funcType, c.Names()))
		}
		if all.Eras != t.Eras {
			return nil, newTypeError(ErrErasureMismatch, t, c,
				"application erasure disagrees with the function type")
		}
		if _, err := b.checkTerm(ctx, t.Argm, all.Bind, c, eras || t.Eras); err != nil {
			return nil, err
		}
		return Subst(all.Body, &Ann{Type: all.Bind, Expr: t.Argm, Done: true}, 0), nil

	case *Op1:
		if t.Oper >= operCount {
			return nil, newTypeError(ErrUnknownOper, t, c, "operator code %d", t.Oper)
		}
		if _, err := b.checkTerm(ctx, t.Num0, &Num{}, c, eras); err != nil {
			return nil, err
		}
		if _, err := b.checkTerm(ctx, t.Num1, &Num{}, c, eras); err != nil {
			return nil, err
		}
		return &Num{}, nil

	case *Op2:
		if t.Oper >= operCount {
			return nil, newTypeError(ErrUnknownOper, t, c, "operator code %d", t.Oper)
		}
		if _, err := b.checkTerm(ctx, t.Num0, &Num{}, c, eras); err != nil {
			return nil, err
		}
		if _, err := b.checkTerm(ctx, t.Num1, &Num{}, c, eras); err != nil {
			return nil, err
		}
		return &Num{}, nil

	case *Ite:
		condType, err := b.checkTerm(ctx, t.Cond, nil, c, eras)
		if err != nil {
			return nil, err
		}
		sameNum, err := b.Equal(ctx, condType, &Num{}, c.Len())
		if err != nil {
			return nil, err
		}
		if !sameNum {
			return nil, newTypeError(ErrIfCondNotNum, t, c,
				"condition has type %s", ShowWith(condType, c.Names()))
		}
		iftType, err := b.checkTerm(ctx, t.IfT, expect, c, eras)
		if err != nil {
			return nil, err
		}
		if _, err := b.checkTerm(ctx, t.IfF, iftType, c, eras); err != nil {
			return nil, err
		}
		if expect != nil {
			return expect, nil
		}
		return iftType, nil

	case *Slf:
		bodyCtx := c.Extend(CtxFrame{Name: t.Name, Type: t, Eras: true})
		if err := b.checkIsType(ctx, t.Type, bodyCtx, ErrNonTypeForall); err != nil {
			return nil, err
		}
		return &Typ{}, nil

	case *New:
		typW, err := b.Whnf(ctx, t.Type)
		if err != nil {
			return nil, err
		}
		slf, ok := typW.(*Slf)
		if !ok {
			return nil, newTypeError(ErrNewNonSelf, t, c,
				"new of %s", ShowWith(t.Type, c.Names()))
		}
		selfAnn := &Ann{Type: typW, Expr: t, Done: true}
		if _, err := b.checkTerm(ctx, t.Expr, Subst(slf.Type, selfAnn, 0), c, eras); err != nil {
			return nil, err
		}
		return t.Type, nil

	case *Use:
		exprType, err := b.checkTerm(ctx, t.Expr, nil, c, eras)
		if err != nil {
			return nil, err
		}
		exprW, err := b.Whnf(ctx, exprType)
		if err != nil {
			return nil, err
		}
		slf, ok := exprW.(*Slf)
		if !ok {
			return nil, newTypeError(ErrUseNonSelf, t, c,
				"use of a value of type %s", ShowWith(exprType, c.Names()))
		}
		return Subst(slf.Type, &Ann{Type: exprW, Expr: t.Expr, Done: true}, 0), nil

	case *Ann:
		if t.Done {
			return t.Type, nil
		}
		if _, err := b.checkTerm(ctx, t.Type, &Typ{}, c, true); err != nil {
			return nil, err
		}
		// Optimistically mark the ascription checked so self-references
		// through the definition table see the declared type instead of
		// looping; rolled back if the body fails.
		t.Done = true
		if _, err := b.checkTerm(ctx, t.Expr, t.Type, c, eras); err != nil {
			t.Done = false
			return nil, err
		}
		return t.Type, nil

	case *Log:
		msgType, err := b.checkTerm(ctx, t.Msge, nil, c, true)
		if err == nil {
			ioctx.SinkFromContext(ctx).Log(ioctx.LogRecord{
				Phase:   "check",
				Message: ShowWith(t.Msge, c.Names()),
				Type:    ShowWith(msgType, c.Names()),
			})
		}
		return b.checkTerm(ctx, t.Expr, expect, c, eras)

	case *Hol:
		h := b.HoleAt(t.Name, expect, c, c.Len())
		if h.Expect != nil {
			return h.Expect, nil
		}
		typeName := t.Name + "_type"
		b.HoleAt(typeName, nil, c, c.Len())
		return &Hol{Name: typeName}, nil

	case *Ref:
		typ, err := b.checkRef(ctx, t.Name, nil)
		if err != nil {
			if te, ok := err.(*TypeError); ok && te.Kind == ErrUnknownRef && te.Term == nil {
				return nil, newTypeError(ErrUnknownRef, t, c, "undefined reference %s", t.Name)
			}
			return nil, err
		}
		return typ, nil
	}

	return nil, newTypeError(ErrTypeMismatch, t, c, "unhandled term variant")
}

// checkIsType infers a term and requires the result to be Type, reporting
// kind on failure.
func (b *Book) checkIsType(ctx context.Context, t Term, c Ctx, kind ErrKind) error {
	typ, err := b.checkTerm(ctx, t, nil, c, true)
	if err != nil {
		return err
	}
	same, err := b.Equal(ctx, typ, &Typ{}, c.Len())
	if err != nil {
		return err
	}
	if !same {
		return newTypeError(kind, t, c, "has type %s", ShowWith(typ, c.Names()))
	}
	return nil
}

// reportHoles emits every named hole, and nothing for autogenerated ones.
// Solved holes report their value; unsolved ones their goal and context.
func (b *Book) reportHoles(ctx context.Context) {
	sink := ioctx.SinkFromContext(ctx)
	for name, h := range b.Holes {
		if strings.HasPrefix(name, "_") || name == ErasedName {
			continue
		}
		rec := ioctx.LogRecord{Phase: "hole", Name: name}
		switch {
		case h.Conflict:
			rec.Message = "has conflicting solutions"
		case h.Solved():
			rec.Message = "solved to " + Show(h.Value)
		default:
			rec.Message = "unsolved"
		}
		if h.Expect != nil {
			rec.Type = ShowWith(h.Expect, h.Ctx.Names())
		}
		rec.Context = h.Ctx.Show()
		sink.Log(rec)
	}
}
