package core

// Term is the kernel's abstract syntax. The grammar is small on purpose:
// dependent functions, self types for data encodings, machine words, holes
// and named references. Terms are immutable after construction except for
// the Done flag on Ann, which memoizes a successful type check.
type Term interface {
	Loc() *Loc
	base() *termBase
}

type termBase struct {
	L    *Loc
	hash uint64
}

func (b *termBase) Loc() *Loc       { return b.L }
func (b *termBase) base() *termBase { return b }

// Var is a bound variable addressed by its de-Bruijn index.
type Var struct {
	termBase
	Indx int
}

// Typ is the type of types. There is no universe hierarchy.
type Typ struct {
	termBase
}

// All is the dependent function type (x : Bind) -> Body. Body is open in one
// variable. Eras marks the argument as computationally irrelevant.
type All struct {
	termBase
	Name string
	Bind Term
	Body Term
	Eras bool
}

// Lam is a lambda abstraction. Bind is an optional domain annotation and may
// be nil.
type Lam struct {
	termBase
	Name string
	Bind Term
	Body Term
	Eras bool
}

// App applies Func to Argm. Eras must agree with the erasure of the
// function's domain.
type App struct {
	termBase
	Func Term
	Argm Term
	Eras bool
}

// Slf is a self type: Type may mention the eventual inhabitant through the
// bound self variable.
type Slf struct {
	termBase
	Name string
	Type Term
}

// New introduces a self type.
type New struct {
	termBase
	Type Term
	Expr Term
}

// Use eliminates a self type.
type Use struct {
	termBase
	Expr Term
}

// Num is the type of unsigned 32-bit machine words.
type Num struct {
	termBase
}

// Val is a word literal.
type Val struct {
	termBase
	Numb uint32
}

// Op1 is a binary operation whose right operand has already reduced to a
// literal; Num1 is always a Val.
type Op1 struct {
	termBase
	Oper Oper
	Num0 Term
	Num1 Term
}

// Op2 is a binary operation on two arbitrary operands.
type Op2 struct {
	termBase
	Oper Oper
	Num0 Term
	Num1 Term
}

// Ite branches on a word: non-zero selects IfT.
type Ite struct {
	termBase
	Cond Term
	IfT  Term
	IfF  Term
}

// Ann ascribes a type to a term. Done records that the ascription has been
// checked; it is reset when a check below it fails.
type Ann struct {
	termBase
	Type Term
	Expr Term
	Done bool
}

// Log prints its message when reduced and continues with Expr.
type Log struct {
	termBase
	Msge Term
	Expr Term
}

// Hol is a named metavariable, solved by unification. Two occurrences of the
// same name denote the same metavariable.
type Hol struct {
	termBase
	Name string
}

// Ref names a top-level definition. Eras requests the erased form of the
// definition when delta-reduced.
type Ref struct {
	termBase
	Name string
	Eras bool
}

// ErasedName is the hole name substituted for erased lambda binders.
const ErasedName = "<erased>"

const (
	fnvOffset uint64 = 14695981039346656037
	fnvPrime  uint64 = 1099511628211
)

func hashMix(h, w uint64) uint64 {
	for i := 0; i < 8; i++ {
		h ^= (w >> (8 * uint(i))) & 0xff
		h *= fnvPrime
	}
	return h
}

func hashString(h uint64, s string) uint64 {
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= fnvPrime
	}
	return h
}

func hashBool(h uint64, b bool) uint64 {
	if b {
		return hashMix(h, 1)
	}
	return hashMix(h, 0)
}

// HashOf returns the structural hash of a term: stable under alpha
// equivalence (binder names are not hashed) and independent of source
// locations and of Ann's Done flag. The hash is computed on first use and
// cached in the node.
func HashOf(t Term) uint64 {
	b := t.base()
	if b.hash != 0 {
		return b.hash
	}
	h := computeHash(t)
	if h == 0 {
		h = 1
	}
	b.hash = h
	return h
}

func computeHash(t Term) uint64 {
	h := fnvOffset
	switch t := t.(type) {
	case *Var:
		h = hashMix(h, 0x01)
		h = hashMix(h, uint64(t.Indx))
	case *Typ:
		h = hashMix(h, 0x02)
	case *All:
		h = hashMix(h, 0x03)
		h = hashMix(h, HashOf(t.Bind))
		h = hashMix(h, HashOf(t.Body))
		h = hashBool(h, t.Eras)
	case *Lam:
		h = hashMix(h, 0x04)
		if t.Bind != nil {
			h = hashMix(h, HashOf(t.Bind))
		}
		h = hashMix(h, HashOf(t.Body))
		h = hashBool(h, t.Eras)
	case *App:
		h = hashMix(h, 0x05)
		h = hashMix(h, HashOf(t.Func))
		h = hashMix(h, HashOf(t.Argm))
		h = hashBool(h, t.Eras)
	case *Slf:
		h = hashMix(h, 0x06)
		h = hashMix(h, HashOf(t.Type))
	case *New:
		h = hashMix(h, 0x07)
		h = hashMix(h, HashOf(t.Type))
		h = hashMix(h, HashOf(t.Expr))
	case *Use:
		h = hashMix(h, 0x08)
		h = hashMix(h, HashOf(t.Expr))
	case *Num:
		h = hashMix(h, 0x09)
	case *Val:
		h = hashMix(h, 0x0a)
		h = hashMix(h, uint64(t.Numb))
	case *Op1:
		h = hashMix(h, 0x0b)
		h = hashMix(h, uint64(t.Oper))
		h = hashMix(h, HashOf(t.Num0))
		h = hashMix(h, HashOf(t.Num1))
	case *Op2:
		h = hashMix(h, 0x0c)
		h = hashMix(h, uint64(t.Oper))
		h = hashMix(h, HashOf(t.Num0))
		h = hashMix(h, HashOf(t.Num1))
	case *Ite:
		h = hashMix(h, 0x0d)
		h = hashMix(h, HashOf(t.Cond))
		h = hashMix(h, HashOf(t.IfT))
		h = hashMix(h, HashOf(t.IfF))
	case *Ann:
		h = hashMix(h, 0x0e)
		h = hashMix(h, HashOf(t.Type))
		h = hashMix(h, HashOf(t.Expr))
	case *Log:
		h = hashMix(h, 0x0f)
		h = hashMix(h, HashOf(t.Msge))
		h = hashMix(h, HashOf(t.Expr))
	case *Hol:
		h = hashMix(h, 0x10)
		h = hashString(h, t.Name)
	case *Ref:
		h = hashMix(h, 0x11)
		h = hashString(h, t.Name)
		h = hashBool(h, t.Eras)
	}
	return h
}
