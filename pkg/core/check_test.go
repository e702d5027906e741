package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Xuexl-Mack/Formality/pkg/ioctx"
)

func allE(n string, b, t Term) *All { return &All{Name: n, Bind: b, Body: t, Eras: true} }

// id : (A : Type;) -> (x : A) -> A = (A;) => (x) => x
func defineId(book *Book) {
	typ := allE("A", &Typ{}, all("x", v(0), v(1)))
	body := &Lam{Name: "A", Eras: true, Body: lam("x", v(0))}
	book.Define("id", ann(typ, body))
}

func TestCheckIdentityApplication(t *testing.T) {
	book := NewBook()
	tm := app(&Lam{Name: "x", Bind: &Typ{}, Body: v(0)}, &Typ{})
	book.Define("main", tm)

	typ, err := book.CheckAgainst(context.Background(), "main", &Typ{})
	require.NoError(t, err)
	require.Equal(t, "Type", Show(typ))
}

func TestCheckDependentApply(t *testing.T) {
	book := NewBook()
	defineId(book)
	// id<Num>(5)
	main := app(&App{Func: ref("id"), Argm: &Num{}, Eras: true}, word(5))
	book.Define("main", main)

	typ, err := book.CheckAgainst(context.Background(), "main", &Num{})
	require.NoError(t, err)
	w, err := book.Whnf(context.Background(), typ)
	require.NoError(t, err)
	require.Equal(t, "Num", Show(w))

	norm, err := book.Normalize(context.Background(), main)
	require.NoError(t, err)
	require.Equal(t, "5", Show(norm))
}

func TestCheckCachesRefTypes(t *testing.T) {
	book := NewBook()
	defineId(book)
	book.Define("main", app(&App{Func: ref("id"), Argm: &Num{}, Eras: true}, word(5)))

	_, err := book.Check(context.Background(), "main")
	require.NoError(t, err)

	// the reference was rewritten into a done annotation with its type cached
	require.Contains(t, book.Types, "id")
	cached, ok := book.Defs["id"].(*Ann)
	require.True(t, ok)
	require.True(t, cached.Done)
}

func TestCheckNumericRules(t *testing.T) {
	book := NewBook()
	book.Define("main", op2(OpAdd, word(1), op2(OpMul, word(2), word(3))))
	typ, err := book.Check(context.Background(), "main")
	require.NoError(t, err)
	require.Equal(t, "Num", Show(typ))

	book.Define("cond", &Ite{Cond: word(1), IfT: word(2), IfF: word(3)})
	typ, err = book.Check(context.Background(), "cond")
	require.NoError(t, err)
	require.Equal(t, "Num", Show(typ))
}

func TestCheckErrors(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		def  Term
		kind ErrKind
	}{
		{"unbound", v(0), ErrUnboundVariable},
		{"non-function", app(word(1), word(2)), ErrNonFunction},
		{"needs-annotation", lam("x", v(0)), ErrNeedsAnnotation},
		{"unknown-ref", ref("missing"), ErrUnknownRef},
		{"if-cond", &Ite{Cond: &Typ{}, IfT: word(1), IfF: word(2)}, ErrIfCondNotNum},
		{"non-type-forall", all("x", word(1), &Num{}), ErrNonTypeForall},
		{"use-non-self", &Use{Expr: word(1)}, ErrUseNonSelf},
		{"new-non-self", &New{Type: &Num{}, Expr: word(1)}, ErrNewNonSelf},
		{
			"erased-use",
			ann(
				allE("x", &Num{}, &Num{}),
				&Lam{Name: "x", Eras: true, Body: op2(OpAdd, v(0), word(1))},
			),
			ErrErasedUse,
		},
		{
			"erasure-mismatch",
			&App{
				Func: ann(all("x", &Num{}, &Num{}), &Lam{Name: "x", Bind: &Num{}, Body: v(0)}),
				Argm: word(1),
				Eras: true,
			},
			ErrErasureMismatch,
		},
		{
			"mismatch",
			ann(&Num{}, &Typ{}),
			ErrTypeMismatch,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			book := NewBook()
			book.Define("main", tt.def)
			_, err := book.Check(ctx, "main")
			require.Error(t, err)
			te, ok := err.(*TypeError)
			require.True(t, ok, "expected a TypeError, got %v", err)
			require.Equal(t, tt.kind, te.Kind)
		})
	}
}

func TestCheckAnnotationMemoization(t *testing.T) {
	book := NewBook()
	good := ann(&Num{}, word(1))
	book.Define("main", good)
	_, err := book.Check(context.Background(), "main")
	require.NoError(t, err)
	require.True(t, good.Done)

	// a failing sub-check rolls the flag back
	bad := ann(&Num{}, &Typ{})
	book2 := NewBook()
	book2.Define("main", bad)
	_, err = book2.Check(context.Background(), "main")
	require.Error(t, err)
	require.False(t, bad.Done)
}

func TestCheckSelfType(t *testing.T) {
	// Bool := ${self} (P : (b : Bool) -> Type;) -> (t : P(true)) -> (f : P(false)) -> P(self)
	// true := new(Bool) (P;) => (t) => (f) => t
	book := NewBook()
	boolTy := &Slf{Name: "self", Type: allE(
		"P", all("b", ref("Bool"), &Typ{}),
		all("t", app(v(0), ref("true")),
			all("f", app(v(1), ref("false")),
				app(v(2), v(3)))),
	)}
	book.Define("Bool", ann(&Typ{}, boolTy))

	mkBranch := func(pick int) Term {
		return &New{Type: ref("Bool"), Expr: &Lam{
			Name: "P", Eras: true,
			Body: lam("t", lam("f", v(pick))),
		}}
	}
	book.Define("true", ann(ref("Bool"), mkBranch(1)))
	book.Define("false", ann(ref("Bool"), mkBranch(0)))

	typ, err := book.Check(context.Background(), "true")
	require.NoError(t, err)
	require.Equal(t, "Bool", Show(typ))

	typ, err = book.Check(context.Background(), "false")
	require.NoError(t, err)
	require.Equal(t, "Bool", Show(typ))
}

func TestCheckUseEliminatesSelf(t *testing.T) {
	book := NewBook()
	boolTy := &Slf{Name: "self", Type: allE(
		"P", all("b", ref("Bool"), &Typ{}),
		all("t", app(v(0), ref("true")),
			all("f", app(v(1), ref("false")),
				app(v(2), v(3)))),
	)}
	book.Define("Bool", ann(&Typ{}, boolTy))
	book.Define("true", ann(ref("Bool"), &New{Type: ref("Bool"), Expr: &Lam{
		Name: "P", Eras: true, Body: lam("t", lam("f", v(1))),
	}}))
	book.Define("false", ann(ref("Bool"), &New{Type: ref("Bool"), Expr: &Lam{
		Name: "P", Eras: true, Body: lam("t", lam("f", v(0))),
	}}))
	// elim := use(true) : (P : ...;) -> (t : P(true)) -> (f : P(false)) -> P(true)
	book.Define("elim", &Use{Expr: ref("true")})

	typ, err := book.Check(context.Background(), "elim")
	require.NoError(t, err)
	w, err := book.Whnf(context.Background(), typ)
	require.NoError(t, err)
	_, ok := w.(*All)
	require.True(t, ok, "use should expose the self type's body, got %s", Show(w))
}

func TestCheckHoleInference(t *testing.T) {
	// ((x) => x) :: (x : ?A) -> ?A demanded at (x : Num) -> Num solves ?A to Num
	book := NewBook()
	tm := ann(all("x", &Hol{Name: "A"}, &Hol{Name: "A"}), lam("x", v(0)))
	book.Define("main", tm)

	typ, err := book.CheckAgainst(context.Background(), "main", all("x", &Num{}, &Num{}))
	require.NoError(t, err)

	h := book.Holes["A"]
	require.NotNil(t, h)
	require.True(t, h.Solved())
	require.Equal(t, "Num", Show(h.Value))

	norm, err := book.Normalize(context.Background(), typ)
	require.NoError(t, err)
	require.Equal(t, "(x : Num) -> Num", Show(norm))
}

func TestCheckReportsNamedHoles(t *testing.T) {
	book := NewBook()
	sink := &ioctx.RecordSink{}
	ctx := ioctx.SinkToContext(context.Background(), sink)

	book.Define("main", ann(&Num{}, &Hol{Name: "goal"}))
	_, err := book.Check(ctx, "main")
	require.NoError(t, err)

	var names []string
	for _, rec := range sink.Records {
		if rec.Phase == "hole" {
			names = append(names, rec.Name)
		}
	}
	require.Contains(t, names, "goal")
}

func TestCheckAffineScenario(t *testing.T) {
	// (x) => x .+. x type-checks at Num -> Num but is not affine
	book := NewBook()
	tm := ann(all("x", &Num{}, &Num{}), lam("x", op2(OpAdd, v(0), v(0))))
	book.Define("main", tm)

	_, err := book.Check(context.Background(), "main")
	require.NoError(t, err)
	require.False(t, IsAffine(book.Defs["main"], book.Defs))
}
