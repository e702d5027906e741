package core

import (
	"fmt"
	"strings"
)

// Show renders a closed term in surface-ish syntax.
func Show(t Term) string {
	return ShowWith(t, nil)
}

// ShowWith renders a term under the given binder names, outermost first.
// Unnamed or shadowed binders get positional names.
func ShowWith(t Term, names []string) string {
	var sb strings.Builder
	showTerm(&sb, t, names)
	return sb.String()
}

func pickName(name string, depth int) string {
	if name == "" {
		return fmt.Sprintf("x%d", depth)
	}
	return name
}

func showTerm(sb *strings.Builder, t Term, names []string) {
	switch t := t.(type) {
	case *Var:
		i := len(names) - 1 - t.Indx
		if i >= 0 && i < len(names) && names[i] != "" {
			sb.WriteString(names[i])
		} else {
			fmt.Fprintf(sb, "#%d", t.Indx)
		}
	case *Typ:
		sb.WriteString("Type")
	case *Num:
		sb.WriteString("Num")
	case *Val:
		fmt.Fprintf(sb, "%d", t.Numb)
	case *All:
		name := pickName(t.Name, len(names))
		semi := ""
		if t.Eras {
			semi = ";"
		}
		fmt.Fprintf(sb, "(%s : ", name)
		showTerm(sb, t.Bind, names)
		fmt.Fprintf(sb, "%s) -> ", semi)
		showTerm(sb, t.Body, append(names, name))
	case *Lam:
		name := pickName(t.Name, len(names))
		semi := ""
		if t.Eras {
			semi = ";"
		}
		if t.Bind != nil {
			fmt.Fprintf(sb, "(%s : ", name)
			showTerm(sb, t.Bind, names)
			fmt.Fprintf(sb, "%s) => ", semi)
		} else {
			fmt.Fprintf(sb, "(%s%s) => ", name, semi)
		}
		showTerm(sb, t.Body, append(names, name))
	case *App:
		showAppFunc(sb, t.Func, names)
		sb.WriteString("(")
		showTerm(sb, t.Argm, names)
		if t.Eras {
			sb.WriteString(";")
		}
		sb.WriteString(")")
	case *Slf:
		name := pickName(t.Name, len(names))
		fmt.Fprintf(sb, "${%s} ", name)
		showTerm(sb, t.Type, append(names, name))
	case *New:
		sb.WriteString("new(")
		showTerm(sb, t.Type, names)
		sb.WriteString(") ")
		showTerm(sb, t.Expr, names)
	case *Use:
		sb.WriteString("use(")
		showTerm(sb, t.Expr, names)
		sb.WriteString(")")
	case *Op1:
		sb.WriteString("(")
		showTerm(sb, t.Num0, names)
		fmt.Fprintf(sb, " %s ", t.Oper)
		showTerm(sb, t.Num1, names)
		sb.WriteString(")")
	case *Op2:
		sb.WriteString("(")
		showTerm(sb, t.Num0, names)
		fmt.Fprintf(sb, " %s ", t.Oper)
		showTerm(sb, t.Num1, names)
		sb.WriteString(")")
	case *Ite:
		sb.WriteString("if ")
		showTerm(sb, t.Cond, names)
		sb.WriteString(" then ")
		showTerm(sb, t.IfT, names)
		sb.WriteString(" else ")
		showTerm(sb, t.IfF, names)
	case *Ann:
		showTerm(sb, t.Expr, names)
		sb.WriteString(" :: ")
		showTerm(sb, t.Type, names)
	case *Log:
		sb.WriteString("log(")
		showTerm(sb, t.Msge, names)
		sb.WriteString(") ")
		showTerm(sb, t.Expr, names)
	case *Hol:
		fmt.Fprintf(sb, "?%s", t.Name)
	case *Ref:
		sb.WriteString(t.Name)
	default:
		sb.WriteString("<term>")
	}
}

// showAppFunc parenthesizes heads that would otherwise swallow the argument
// list.
func showAppFunc(sb *strings.Builder, t Term, names []string) {
	switch t.(type) {
	case *Var, *Ref, *App, *Hol:
		showTerm(sb, t, names)
	default:
		sb.WriteString("(")
		showTerm(sb, t, names)
		sb.WriteString(")")
	}
}
