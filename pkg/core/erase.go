package core

// Erase strips computationally irrelevant content: erased lambdas lose their
// binder (the variable is replaced by a sentinel hole), erased applications
// lose their argument, and the self-type wrappers New/Use as well as Ann
// unwrap to their expressions. Slf and All stay, since they belong to the
// type-level language. Erase is idempotent.
func Erase(t Term) Term {
	switch t := t.(type) {
	case *Var, *Typ, *Num, *Val, *Hol:
		return t
	case *All:
		return &All{
			termBase: termBase{L: t.L},
			Name:     t.Name,
			Bind:     Erase(t.Bind),
			Body:     Erase(t.Body),
			Eras:     t.Eras,
		}
	case *Lam:
		if t.Eras {
			erased := &Hol{termBase: termBase{L: t.L}, Name: ErasedName}
			return Erase(Subst(t.Body, erased, 0))
		}
		return &Lam{
			termBase: termBase{L: t.L},
			Name:     t.Name,
			Body:     Erase(t.Body),
		}
	case *App:
		if t.Eras {
			return Erase(t.Func)
		}
		return &App{
			termBase: termBase{L: t.L},
			Func:     Erase(t.Func),
			Argm:     Erase(t.Argm),
		}
	case *Slf:
		return &Slf{termBase: termBase{L: t.L}, Name: t.Name, Type: Erase(t.Type)}
	case *New:
		return Erase(t.Expr)
	case *Use:
		return Erase(t.Expr)
	case *Op1:
		return &Op1{
			termBase: termBase{L: t.L},
			Oper:     t.Oper,
			Num0:     Erase(t.Num0),
			Num1:     Erase(t.Num1),
		}
	case *Op2:
		return &Op2{
			termBase: termBase{L: t.L},
			Oper:     t.Oper,
			Num0:     Erase(t.Num0),
			Num1:     Erase(t.Num1),
		}
	case *Ite:
		return &Ite{
			termBase: termBase{L: t.L},
			Cond:     Erase(t.Cond),
			IfT:      Erase(t.IfT),
			IfF:      Erase(t.IfF),
		}
	case *Ann:
		return Erase(t.Expr)
	case *Log:
		return &Log{
			termBase: termBase{L: t.L},
			Msge:     Erase(t.Msge),
			Expr:     Erase(t.Expr),
		}
	case *Ref:
		return &Ref{termBase: termBase{L: t.L}, Name: t.Name, Eras: true}
	}
	return t
}
