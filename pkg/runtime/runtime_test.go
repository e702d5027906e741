package runtime

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Xuexl-Mack/Formality/pkg/core"
)

func v(i int) *core.Var { return &core.Var{Indx: i} }
func lam(n string, b core.Term) *core.Lam { return &core.Lam{Name: n, Body: b} }
func app(f, a core.Term) *core.App { return &core.App{Func: f, Argm: a} }

func normalizeHere(t *testing.T, book *core.Book, tm core.Term) core.Term {
	t.Helper()
	norm, err := book.Normalize(context.Background(), core.Erase(tm))
	require.NoError(t, err)
	return norm
}

func runGraph(t *testing.T, book *core.Book, tm core.Term) (*Machine, core.Term) {
	t.Helper()
	m, err := CompileTerm(book, tm)
	require.NoError(t, err)
	require.NoError(t, m.Normalize())
	out, err := m.Decompile()
	require.NoError(t, err)
	return m, out
}

// requireAlphaEqual compares up to alpha: decompilation invents fresh names.
func requireAlphaEqual(t *testing.T, want, got core.Term) {
	t.Helper()
	require.Equal(t, core.HashOf(want), core.HashOf(got),
		"want %s, got %s", core.Show(want), core.Show(got))
}

func TestIdentity(t *testing.T) {
	book := core.NewBook()
	tm := app(lam("x", v(0)), lam("y", v(0)))
	m, got := runGraph(t, book, tm)
	requireAlphaEqual(t, normalizeHere(t, book, tm), got)
	require.Equal(t, uint64(1), m.Stats.Beta)
}

func TestNestedApplications(t *testing.T) {
	book := core.NewBook()
	// (λf.λx. f (f x)) (λy.y) reduces to λx.x
	two := lam("f", lam("x", app(v(1), app(v(1), v(0)))))
	tm := app(two, lam("y", v(0)))
	_, got := runGraph(t, book, tm)
	requireAlphaEqual(t, normalizeHere(t, book, tm), got)
}

func TestUnusedBinderDropsArgument(t *testing.T) {
	book := core.NewBook()
	// (λx.λy.y) (λz.z) — the argument is never demanded
	tm := app(lam("x", lam("y", v(0))), lam("z", v(0)))
	_, got := runGraph(t, book, tm)
	requireAlphaEqual(t, normalizeHere(t, book, tm), got)
}

func TestRefCopying(t *testing.T) {
	book := core.NewBook()
	book.Define("id", lam("x", v(0)))
	book.Define("main", app(&core.Ref{Name: "id"}, app(&core.Ref{Name: "id"}, lam("w", v(0)))))

	m, err := Compile(book, "main")
	require.NoError(t, err)
	require.NoError(t, m.Normalize())
	out, err := m.Decompile()
	require.NoError(t, err)

	norm, err := book.Normalize(context.Background(), core.Erase(&core.Ref{Name: "main"}))
	require.NoError(t, err)
	requireAlphaEqual(t, norm, out)
	require.GreaterOrEqual(t, m.Stats.Copy, uint64(2))
}

func TestLazyArgumentsOnNeutralSpine(t *testing.T) {
	book := core.NewBook()
	// λf. f ((λx.x) (λy.y)) — the argument of a neutral application still
	// normalizes on the way out
	tm := lam("f", app(v(0), app(lam("x", v(0)), lam("y", v(0)))))
	_, got := runGraph(t, book, tm)
	requireAlphaEqual(t, normalizeHere(t, book, tm), got)
}

func TestAgreementWithTermReducer(t *testing.T) {
	book := core.NewBook()
	book.Define("id", lam("x", v(0)))
	terms := []core.Term{
		lam("x", v(0)),
		app(lam("x", v(0)), lam("y", v(0))),
		lam("a", app(lam("x", v(0)), v(0))),
		app(lam("f", lam("x", app(v(1), v(0)))), lam("y", v(0))),
		app(&core.Ref{Name: "id"}, lam("q", lam("r", app(v(1), v(0))))),
	}
	for _, tm := range terms {
		_, got := runGraph(t, book, tm)
		requireAlphaEqual(t, normalizeHere(t, book, tm), got)
	}
}

func TestCompileRejectsNumericTerms(t *testing.T) {
	book := core.NewBook()
	_, err := CompileTerm(book, &core.Val{Numb: 5})
	require.Error(t, err)
}

func TestCollectionCompacts(t *testing.T) {
	book := core.NewBook()
	book.Define("id", lam("x", v(0)))
	// chain enough copies to grow memory, then force an early collection
	tm := app(&core.Ref{Name: "id"},
		app(&core.Ref{Name: "id"},
			app(&core.Ref{Name: "id"}, lam("w", v(0)))))
	m, err := CompileTerm(book, tm)
	require.NoError(t, err)
	m.lastLen = 1 // the first growth check triggers a collection, which resets the threshold
	require.NoError(t, m.Normalize())
	out, err := m.Decompile()
	require.NoError(t, err)
	requireAlphaEqual(t, normalizeHere(t, book, tm), out)
	require.LessOrEqual(t, len(m.Mem), int(m.Stats.MaxLen))
}

func TestDecompileRoundTripsWithoutReduction(t *testing.T) {
	book := core.NewBook()
	tm := lam("x", lam("y", app(v(1), v(0))))
	m, err := CompileTerm(book, tm)
	require.NoError(t, err)
	out, err := m.Decompile()
	require.NoError(t, err)
	// round trip up to alpha: fresh names, same structure
	require.Equal(t, core.HashOf(core.Erase(tm)), core.HashOf(out))
}
