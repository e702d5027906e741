package inet

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Xuexl-Mack/Formality/pkg/core"
)

func v(i int) *core.Var { return &core.Var{Indx: i} }
func lam(n string, b core.Term) *core.Lam { return &core.Lam{Name: n, Body: b} }
func app(f, a core.Term) *core.App { return &core.App{Func: f, Argm: a} }
func word(n uint32) *core.Val { return &core.Val{Numb: n} }
func op2(o core.Oper, a, b core.Term) *core.Op2 { return &core.Op2{Oper: o, Num0: a, Num1: b} }

func requireAlphaEqual(t *testing.T, want, got core.Term) {
	t.Helper()
	require.Equal(t, core.HashOf(want), core.HashOf(got),
		"want %s, got %s", core.Show(want), core.Show(got))
}

func reduceBoth(t *testing.T, book *core.Book, tm core.Term, lazy bool) core.Term {
	t.Helper()
	net, err := CompileTerm(book, tm)
	require.NoError(t, err)
	if lazy {
		require.NoError(t, net.ReduceLazy())
	} else {
		require.NoError(t, net.Reduce())
	}
	out, err := net.Decompile()
	require.NoError(t, err)
	return out
}

func termNormal(t *testing.T, book *core.Book, tm core.Term) core.Term {
	t.Helper()
	norm, err := book.Normalize(context.Background(), core.Erase(tm))
	require.NoError(t, err)
	return norm
}

func TestNetIdentity(t *testing.T) {
	book := core.NewBook()
	tm := app(lam("x", v(0)), lam("y", v(0)))
	out := reduceBoth(t, book, tm, false)
	requireAlphaEqual(t, termNormal(t, book, tm), out)
}

func TestNetNumericFold(t *testing.T) {
	// ((n) => (n .+. 1) .*. 2)(3) reduces to 8
	book := core.NewBook()
	body := op2(core.OpMul, op2(core.OpAdd, v(0), word(1)), word(2))
	tm := app(lam("n", body), word(3))

	out := reduceBoth(t, book, tm, false)
	require.Equal(t, "8", core.Show(out))
}

func TestNetNumericFoldLazy(t *testing.T) {
	book := core.NewBook()
	body := op2(core.OpMul, op2(core.OpAdd, v(0), word(1)), word(2))
	tm := app(lam("n", body), word(3))

	net, err := CompileTerm(book, tm)
	require.NoError(t, err)
	require.NoError(t, net.ReduceLazy())
	out, err := net.Decompile()
	require.NoError(t, err)
	require.Equal(t, "8", core.Show(out))
	require.NotZero(t, net.Stats.Rewrites)
	require.NotZero(t, net.Stats.Loops)
}

func TestNetConditional(t *testing.T) {
	book := core.NewBook()
	tests := []struct {
		cond uint32
		want string
	}{
		{1, "10"},
		{7, "10"},
		{0, "20"},
	}
	for _, tt := range tests {
		tm := &core.Ite{Cond: word(tt.cond), IfT: word(10), IfF: word(20)}
		out := reduceBoth(t, book, tm, false)
		require.Equal(t, tt.want, core.Show(out))
	}
}

func TestNetDuplicatedVariable(t *testing.T) {
	// (n) => n .+. n applied to 4 requires a duplicator for n
	book := core.NewBook()
	tm := app(lam("n", op2(core.OpAdd, v(0), v(0))), word(4))
	out := reduceBoth(t, book, tm, false)
	require.Equal(t, "8", core.Show(out))
}

func TestNetErasedIdApply(t *testing.T) {
	// id<Num>(5): after erasure ((x) => x)(5)
	book := core.NewBook()
	idTyp := &core.All{Name: "A", Bind: &core.Typ{}, Eras: true,
		Body: &core.All{Name: "x", Bind: v(0), Body: v(1)}}
	idBody := &core.Lam{Name: "A", Eras: true, Body: lam("x", v(0))}
	book.Define("id", &core.Ann{Type: idTyp, Expr: idBody})

	main := app(&core.App{Func: &core.Ref{Name: "id"}, Argm: &core.Num{}, Eras: true}, word(5))
	out := reduceBoth(t, book, main, false)
	require.Equal(t, "5", core.Show(out))
}

func TestNetSharedReference(t *testing.T) {
	// two uses of the same definition share one compiled body through a
	// duplicator
	book := core.NewBook()
	book.Define("id", lam("x", v(0)))
	tm := app(&core.Ref{Name: "id"}, app(&core.Ref{Name: "id"}, word(7)))
	out := reduceBoth(t, book, tm, false)
	require.Equal(t, "7", core.Show(out))
}

func TestNetAgreementWithTermReducer(t *testing.T) {
	book := core.NewBook()
	terms := []core.Term{
		lam("x", v(0)),
		app(lam("x", v(0)), lam("y", v(0))),
		app(lam("f", lam("x", app(v(1), v(0)))), lam("y", v(0))),
		app(lam("n", op2(core.OpSub, word(10), v(0))), word(4)),
	}
	for _, tm := range terms {
		out := reduceBoth(t, book, tm, false)
		requireAlphaEqual(t, termNormal(t, book, tm), out)
	}
}

func TestNetDecompileRoundTrip(t *testing.T) {
	book := core.NewBook()
	terms := []core.Term{
		lam("x", v(0)),
		lam("x", lam("y", app(v(1), v(0)))),
		op2(core.OpAdd, word(1), word(2)),
		&core.Ite{Cond: word(1), IfT: word(2), IfF: word(3)},
	}
	for _, tm := range terms {
		net, err := CompileTerm(book, tm)
		require.NoError(t, err)
		out, err := net.Decompile()
		require.NoError(t, err)
		requireAlphaEqual(t, core.Erase(tm), out)
	}
}

func TestNetFreeListReuse(t *testing.T) {
	book := core.NewBook()
	tm := app(lam("x", v(0)), lam("y", v(0)))
	net, err := CompileTerm(book, tm)
	require.NoError(t, err)
	require.NoError(t, net.Reduce())
	require.NotEmpty(t, net.Freed)

	before := len(net.Nodes)
	addr := net.Alloc(NOD, 1)
	require.Equal(t, before, len(net.Nodes), "allocation should reuse the free-list")
	require.False(t, net.freed(addr))
}

func TestNetStats(t *testing.T) {
	book := core.NewBook()
	tm := app(lam("x", v(0)), lam("y", v(0)))
	net, err := CompileTerm(book, tm)
	require.NoError(t, err)
	require.NoError(t, net.Reduce())
	require.Equal(t, uint64(1), net.Stats.Rewrites)
	require.NotZero(t, net.Stats.MaxLen)
}
