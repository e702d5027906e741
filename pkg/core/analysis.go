package core

// Uses counts the free occurrences of Var depth in t. Erased applications
// contribute nothing, since their argument never exists at runtime.
func Uses(t Term, depth int) int {
	switch t := t.(type) {
	case *Var:
		if t.Indx == depth {
			return 1
		}
		return 0
	case *All:
		return Uses(t.Bind, depth) + Uses(t.Body, depth+1)
	case *Lam:
		n := 0
		if t.Bind != nil {
			n += Uses(t.Bind, depth)
		}
		return n + Uses(t.Body, depth+1)
	case *App:
		if t.Eras {
			return Uses(t.Func, depth)
		}
		return Uses(t.Func, depth) + Uses(t.Argm, depth)
	case *Slf:
		return Uses(t.Type, depth+1)
	case *New:
		return Uses(t.Type, depth) + Uses(t.Expr, depth)
	case *Use:
		return Uses(t.Expr, depth)
	case *Op1:
		return Uses(t.Num0, depth) + Uses(t.Num1, depth)
	case *Op2:
		return Uses(t.Num0, depth) + Uses(t.Num1, depth)
	case *Ite:
		return Uses(t.Cond, depth) + Uses(t.IfT, depth) + Uses(t.IfF, depth)
	case *Ann:
		return Uses(t.Type, depth) + Uses(t.Expr, depth)
	case *Log:
		return Uses(t.Msge, depth) + Uses(t.Expr, depth)
	}
	return 0
}

// IsAffine reports whether every relevant lambda in t uses its bound
// variable at most once. References are followed once, so recursive
// definitions terminate the walk.
func IsAffine(t Term, defs Defs) bool {
	return isAffine(t, defs, map[string]bool{})
}

func isAffine(t Term, defs Defs, seen map[string]bool) bool {
	switch t := t.(type) {
	case *Lam:
		if !t.Eras && Uses(t.Body, 0) > 1 {
			return false
		}
		return isAffine(t.Body, defs, seen)
	case *App:
		if !isAffine(t.Func, defs, seen) {
			return false
		}
		if t.Eras {
			return true
		}
		return isAffine(t.Argm, defs, seen)
	case *All, *Slf:
		// type-level only; nothing of it survives erasure
		return true
	case *New:
		return isAffine(t.Expr, defs, seen)
	case *Use:
		return isAffine(t.Expr, defs, seen)
	case *Ann:
		return isAffine(t.Expr, defs, seen)
	case *Log:
		return isAffine(t.Expr, defs, seen)
	case *Op1:
		return isAffine(t.Num0, defs, seen) && isAffine(t.Num1, defs, seen)
	case *Op2:
		return isAffine(t.Num0, defs, seen) && isAffine(t.Num1, defs, seen)
	case *Ite:
		return isAffine(t.Cond, defs, seen) &&
			isAffine(t.IfT, defs, seen) &&
			isAffine(t.IfF, defs, seen)
	case *Ref:
		if seen[t.Name] {
			return true
		}
		seen[t.Name] = true
		if body, ok := defs[t.Name]; ok {
			return isAffine(body, defs, seen)
		}
		return true
	}
	return true
}

// IsTerminating is a conservative recursion check: it fails as soon as a
// reference recurs within its own transitive expansion. Terms without
// references are always considered terminating.
func IsTerminating(t Term, defs Defs) bool {
	return terminates(t, defs, map[string]bool{})
}

func terminates(t Term, defs Defs, path map[string]bool) bool {
	switch t := t.(type) {
	case *All:
		return terminates(t.Bind, defs, path) && terminates(t.Body, defs, path)
	case *Lam:
		if t.Bind != nil && !terminates(t.Bind, defs, path) {
			return false
		}
		return terminates(t.Body, defs, path)
	case *App:
		return terminates(t.Func, defs, path) && terminates(t.Argm, defs, path)
	case *Slf:
		return terminates(t.Type, defs, path)
	case *New:
		return terminates(t.Type, defs, path) && terminates(t.Expr, defs, path)
	case *Use:
		return terminates(t.Expr, defs, path)
	case *Op1:
		return terminates(t.Num0, defs, path) && terminates(t.Num1, defs, path)
	case *Op2:
		return terminates(t.Num0, defs, path) && terminates(t.Num1, defs, path)
	case *Ite:
		return terminates(t.Cond, defs, path) &&
			terminates(t.IfT, defs, path) &&
			terminates(t.IfF, defs, path)
	case *Ann:
		return terminates(t.Type, defs, path) && terminates(t.Expr, defs, path)
	case *Log:
		return terminates(t.Msge, defs, path) && terminates(t.Expr, defs, path)
	case *Ref:
		if path[t.Name] {
			return false
		}
		body, ok := defs[t.Name]
		if !ok {
			return true
		}
		path[t.Name] = true
		ok = terminates(body, defs, path)
		delete(path, t.Name)
		return ok
	}
	return true
}
