package core

// Shift adds inc to every free variable with index >= cutoff. inc may be
// negative, which is only meaningful when the caller knows no index crosses
// the cutoff.
func Shift(t Term, inc, cutoff int) Term {
	if inc == 0 {
		return t
	}
	switch t := t.(type) {
	case *Var:
		if t.Indx < cutoff {
			return t
		}
		return &Var{termBase: termBase{L: t.L}, Indx: t.Indx + inc}
	case *Typ, *Num, *Val, *Hol, *Ref:
		return t
	case *All:
		return &All{
			termBase: termBase{L: t.L},
			Name:     t.Name,
			Bind:     Shift(t.Bind, inc, cutoff),
			Body:     Shift(t.Body, inc, cutoff+1),
			Eras:     t.Eras,
		}
	case *Lam:
		var bind Term
		if t.Bind != nil {
			bind = Shift(t.Bind, inc, cutoff)
		}
		return &Lam{
			termBase: termBase{L: t.L},
			Name:     t.Name,
			Bind:     bind,
			Body:     Shift(t.Body, inc, cutoff+1),
			Eras:     t.Eras,
		}
	case *App:
		return &App{
			termBase: termBase{L: t.L},
			Func:     Shift(t.Func, inc, cutoff),
			Argm:     Shift(t.Argm, inc, cutoff),
			Eras:     t.Eras,
		}
	case *Slf:
		return &Slf{
			termBase: termBase{L: t.L},
			Name:     t.Name,
			Type:     Shift(t.Type, inc, cutoff+1),
		}
	case *New:
		return &New{
			termBase: termBase{L: t.L},
			Type:     Shift(t.Type, inc, cutoff),
			Expr:     Shift(t.Expr, inc, cutoff),
		}
	case *Use:
		return &Use{termBase: termBase{L: t.L}, Expr: Shift(t.Expr, inc, cutoff)}
	case *Op1:
		return &Op1{
			termBase: termBase{L: t.L},
			Oper:     t.Oper,
			Num0:     Shift(t.Num0, inc, cutoff),
			Num1:     Shift(t.Num1, inc, cutoff),
		}
	case *Op2:
		return &Op2{
			termBase: termBase{L: t.L},
			Oper:     t.Oper,
			Num0:     Shift(t.Num0, inc, cutoff),
			Num1:     Shift(t.Num1, inc, cutoff),
		}
	case *Ite:
		return &Ite{
			termBase: termBase{L: t.L},
			Cond:     Shift(t.Cond, inc, cutoff),
			IfT:      Shift(t.IfT, inc, cutoff),
			IfF:      Shift(t.IfF, inc, cutoff),
		}
	case *Ann:
		return &Ann{
			termBase: termBase{L: t.L},
			Type:     Shift(t.Type, inc, cutoff),
			Expr:     Shift(t.Expr, inc, cutoff),
			Done:     t.Done,
		}
	case *Log:
		return &Log{
			termBase: termBase{L: t.L},
			Msge:     Shift(t.Msge, inc, cutoff),
			Expr:     Shift(t.Expr, inc, cutoff),
		}
	}
	return t
}

// Subst replaces Var d in t by v, decrementing every free index above d. The
// replacement is shifted on the way down so occurrences under extra binders
// see a correctly adjusted copy.
func Subst(t Term, v Term, d int) Term {
	switch t := t.(type) {
	case *Var:
		switch {
		case t.Indx == d:
			return v
		case t.Indx > d:
			return &Var{termBase: termBase{L: t.L}, Indx: t.Indx - 1}
		default:
			return t
		}
	case *Typ, *Num, *Val, *Hol, *Ref:
		return t
	case *All:
		return &All{
			termBase: termBase{L: t.L},
			Name:     t.Name,
			Bind:     Subst(t.Bind, v, d),
			Body:     Subst(t.Body, Shift(v, 1, 0), d+1),
			Eras:     t.Eras,
		}
	case *Lam:
		var bind Term
		if t.Bind != nil {
			bind = Subst(t.Bind, v, d)
		}
		return &Lam{
			termBase: termBase{L: t.L},
			Name:     t.Name,
			Bind:     bind,
			Body:     Subst(t.Body, Shift(v, 1, 0), d+1),
			Eras:     t.Eras,
		}
	case *App:
		return &App{
			termBase: termBase{L: t.L},
			Func:     Subst(t.Func, v, d),
			Argm:     Subst(t.Argm, v, d),
			Eras:     t.Eras,
		}
	case *Slf:
		return &Slf{
			termBase: termBase{L: t.L},
			Name:     t.Name,
			Type:     Subst(t.Type, Shift(v, 1, 0), d+1),
		}
	case *New:
		return &New{
			termBase: termBase{L: t.L},
			Type:     Subst(t.Type, v, d),
			Expr:     Subst(t.Expr, v, d),
		}
	case *Use:
		return &Use{termBase: termBase{L: t.L}, Expr: Subst(t.Expr, v, d)}
	case *Op1:
		return &Op1{
			termBase: termBase{L: t.L},
			Oper:     t.Oper,
			Num0:     Subst(t.Num0, v, d),
			Num1:     Subst(t.Num1, v, d),
		}
	case *Op2:
		return &Op2{
			termBase: termBase{L: t.L},
			Oper:     t.Oper,
			Num0:     Subst(t.Num0, v, d),
			Num1:     Subst(t.Num1, v, d),
		}
	case *Ite:
		return &Ite{
			termBase: termBase{L: t.L},
			Cond:     Subst(t.Cond, v, d),
			IfT:      Subst(t.IfT, v, d),
			IfF:      Subst(t.IfF, v, d),
		}
	case *Ann:
		return &Ann{
			termBase: termBase{L: t.L},
			Type:     Subst(t.Type, v, d),
			Expr:     Subst(t.Expr, v, d),
			Done:     t.Done,
		}
	case *Log:
		return &Log{
			termBase: termBase{L: t.L},
			Msge:     Subst(t.Msge, v, d),
			Expr:     Subst(t.Expr, v, d),
		}
	}
	return t
}

// SubstMany substitutes vals for the innermost len(vals) binders at depth d,
// right to left, shifting each value so that independent bindings compose.
func SubstMany(t Term, vals []Term, d int) Term {
	for i := 0; i < len(vals); i++ {
		t = Subst(t, Shift(vals[i], len(vals)-i-1, 0), d+len(vals)-i-1)
	}
	return t
}
