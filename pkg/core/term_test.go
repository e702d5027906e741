package core

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// builders keep the tests readable
func v(i int) *Var { return &Var{Indx: i} }
func lam(name string, b Term) *Lam { return &Lam{Name: name, Body: b} }
func app(f, a Term) *App { return &App{Func: f, Argm: a} }
func all(n string, b, t Term) *All { return &All{Name: n, Bind: b, Body: t} }
func word(n uint32) *Val { return &Val{Numb: n} }
func op2(o Oper, a, b Term) *Op2 { return &Op2{Oper: o, Num0: a, Num1: b} }
func ann(t, e Term) *Ann { return &Ann{Type: t, Expr: e} }
func ref(n string) *Ref { return &Ref{Name: n} }

func TestHashAlphaStable(t *testing.T) {
	a := lam("x", app(v(0), lam("y", v(1))))
	b := lam("p", app(v(0), lam("q", v(1))))
	require.Equal(t, HashOf(a), HashOf(b))

	c := lam("x", app(v(0), lam("y", v(0))))
	require.NotEqual(t, HashOf(a), HashOf(c))
}

func TestHashIgnoresLocAndDone(t *testing.T) {
	a := ann(&Num{}, word(1))
	b := ann(&Num{}, word(1))
	b.Done = true
	At(b, &Loc{File: "x.fm", Row: 3, Col: 1})
	require.Equal(t, HashOf(a), HashOf(b))
}

func TestHashDistinguishesErasure(t *testing.T) {
	a := &App{Func: ref("f"), Argm: word(1)}
	b := &App{Func: ref("f"), Argm: word(1), Eras: true}
	require.NotEqual(t, HashOf(a), HashOf(b))
}

func TestShiftComposes(t *testing.T) {
	terms := []Term{
		v(0),
		lam("x", app(v(0), v(3))),
		all("x", &Num{}, op2(OpAdd, v(0), v(2))),
		&Slf{Name: "s", Type: app(v(0), v(1))},
	}
	for _, tm := range terms {
		lhs := Shift(Shift(tm, 2, 1), 3, 1)
		rhs := Shift(tm, 5, 1)
		require.Equal(t, Show(rhs), Show(lhs))
		require.Equal(t, HashOf(rhs), HashOf(lhs))
	}
}

func TestSubstOfShiftIsIdentity(t *testing.T) {
	terms := []Term{
		v(0),
		v(2),
		lam("x", app(v(0), v(1))),
		op2(OpMul, v(1), word(2)),
	}
	for _, tm := range terms {
		got := Subst(Shift(tm, 1, 0), word(9), 0)
		require.Equal(t, Show(tm), Show(got))
		require.Equal(t, HashOf(tm), HashOf(got))
	}
}

func TestSubstUnderBinder(t *testing.T) {
	// (λx. x #1)[#0 := 7] = λx. x 7
	tm := lam("x", app(v(0), v(1)))
	got := Subst(tm, word(7), 0)
	want := lam("x", app(v(0), word(7)))
	require.Equal(t, Show(want), Show(got))
}

func TestSubstMany(t *testing.T) {
	// #0 and #1 replaced in one pass, innermost binder first
	tm := app(v(0), v(1))
	got := SubstMany(tm, []Term{word(1), word(2)}, 0)
	require.Equal(t, Show(app(word(1), word(2))), Show(got))
}

func TestEraseIdempotent(t *testing.T) {
	id := &Lam{Name: "A", Eras: true, Body: lam("x", v(0))}
	terms := []Term{
		id,
		&App{Func: ref("id"), Argm: &Typ{}, Eras: true},
		&New{Type: ref("Bool"), Expr: lam("t", lam("f", v(1)))},
		&Use{Expr: ref("b")},
		ann(&Num{}, op2(OpAdd, word(1), word(2))),
	}
	for _, tm := range terms {
		once := Erase(tm)
		twice := Erase(once)
		require.Equal(t, Show(once), Show(twice))
		require.Equal(t, HashOf(once), HashOf(twice))
	}
}

func TestEraseDropsIrrelevantContent(t *testing.T) {
	// (A;) => (x) => x loses its type binder entirely
	id := &Lam{Name: "A", Eras: true, Body: lam("x", v(0))}
	require.Equal(t, Show(lam("x", v(0))), Show(Erase(id)))

	// erased application keeps only the function
	a := &App{Func: ref("f"), Argm: &Typ{}, Eras: true}
	require.Equal(t, "f", Show(Erase(a)))
}

func TestCtxGetShifts(t *testing.T) {
	var c Ctx
	c = c.Extend(CtxFrame{Name: "A", Type: &Typ{}})
	c = c.Extend(CtxFrame{Name: "x", Type: v(0)}) // x : A

	f, ok := c.Get(0)
	require.True(t, ok)
	require.Equal(t, "x", f.Name)
	require.Equal(t, Show(v(1)), Show(f.Type)) // A seen from under x

	f, ok = c.Get(1)
	require.True(t, ok)
	require.Equal(t, "A", f.Name)

	_, ok = c.Get(2)
	require.False(t, ok)
}
