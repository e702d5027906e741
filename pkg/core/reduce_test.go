package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Xuexl-Mack/Formality/pkg/ioctx"
)

func TestIdentityApplication(t *testing.T) {
	// (λx:Type. x) Type reduces to Type
	book := NewBook()
	tm := app(&Lam{Name: "x", Bind: &Typ{}, Body: v(0)}, &Typ{})
	norm, err := book.Normalize(context.Background(), tm)
	require.NoError(t, err)
	require.Equal(t, "Type", Show(norm))
}

func TestNumericFold(t *testing.T) {
	// ((n : Num) => (n .+. 1) .*. 2)(3) normalizes to 8
	book := NewBook()
	body := op2(OpMul, op2(OpAdd, v(0), word(1)), word(2))
	tm := app(&Lam{Name: "n", Bind: &Num{}, Body: body}, word(3))
	norm, err := book.Normalize(context.Background(), tm)
	require.NoError(t, err)
	require.Equal(t, "8", Show(norm))
}

func TestOperatorTable(t *testing.T) {
	tests := []struct {
		op   Oper
		a, b uint32
		want uint32
	}{
		{OpAdd, 4294967295, 1, 0},
		{OpSub, 0, 1, 4294967295},
		{OpMul, 3, 4, 12},
		{OpDiv, 7, 2, 3},
		{OpDiv, 7, 0, 0},
		{OpMod, 7, 3, 1},
		{OpMod, 7, 0, 0},
		{OpPow, 2, 10, 1024},
		{OpAnd, 6, 3, 2},
		{OpOr, 6, 3, 7},
		{OpXor, 6, 3, 5},
		{OpNot, 0, 0, 4294967295},
		{OpShr, 16, 2, 4},
		{OpShl, 1, 4, 16},
		{OpGth, 2, 1, 1},
		{OpLth, 2, 1, 0},
		{OpEql, 5, 5, 1},
	}
	for _, tt := range tests {
		t.Run(tt.op.String(), func(t *testing.T) {
			got, err := EvalOper(tt.op, tt.a, tt.b)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestOp2ReducesRightOperandFirst(t *testing.T) {
	// with an irreducible left side the Op2 still demotes to Op1
	book := NewBook()
	tm := lam("n", op2(OpAdd, v(0), op2(OpMul, word(2), word(3))))
	norm, err := book.Normalize(context.Background(), tm)
	require.NoError(t, err)
	require.Equal(t, "(n) => (n .+. 6)", Show(norm))
	_, ok := norm.(*Lam).Body.(*Op1)
	require.True(t, ok, "a literal right operand should demote Op2 to Op1")
}

func TestIteSelects(t *testing.T) {
	book := NewBook()
	ctx := context.Background()

	tm := &Ite{Cond: word(2), IfT: word(10), IfF: word(20)}
	norm, err := book.Normalize(ctx, tm)
	require.NoError(t, err)
	require.Equal(t, "10", Show(norm))

	tm = &Ite{Cond: word(0), IfT: word(10), IfF: word(20)}
	norm, err = book.Normalize(ctx, tm)
	require.NoError(t, err)
	require.Equal(t, "20", Show(norm))
}

func TestDeltaUnfoldsRefs(t *testing.T) {
	book := NewBook()
	book.Define("two", word(2))
	book.Define("double", lam("n", op2(OpMul, v(0), word(2))))

	norm, err := book.Normalize(context.Background(), app(ref("double"), ref("two")))
	require.NoError(t, err)
	require.Equal(t, "4", Show(norm))
}

func TestWeakReductionStopsAtBinders(t *testing.T) {
	book := NewBook()
	inner := app(lam("y", v(0)), word(1))
	tm := lam("x", inner)
	out, err := book.Whnf(context.Background(), tm)
	require.NoError(t, err)
	// the outer lambda is already weak head normal; the redex inside stays
	require.Equal(t, "(x) => ((y) => y)(1)", Show(out))
}

func TestReduceIdempotentOnNormalForms(t *testing.T) {
	book := NewBook()
	ctx := context.Background()
	terms := []Term{
		app(&Lam{Name: "x", Bind: &Typ{}, Body: v(0)}, &Typ{}),
		app(lam("f", lam("x", app(v(1), v(0)))), lam("y", v(0))),
		op2(OpAdd, word(1), op2(OpMul, word(2), word(3))),
	}
	for _, tm := range terms {
		once, err := book.Normalize(ctx, tm)
		require.NoError(t, err)
		twice, err := book.Normalize(ctx, once)
		require.NoError(t, err)
		require.Equal(t, Show(once), Show(twice))
	}
}

func TestUseOfNewReduces(t *testing.T) {
	book := NewBook()
	tm := &Use{Expr: &New{Type: ref("Nat"), Expr: word(5)}}
	norm, err := book.Normalize(context.Background(), tm)
	require.NoError(t, err)
	require.Equal(t, "5", Show(norm))
}

func TestLogEmitsNormalizedMessage(t *testing.T) {
	book := NewBook()
	sink := &ioctx.RecordSink{}
	ctx := ioctx.SinkToContext(context.Background(), sink)

	tm := &Log{Msge: op2(OpAdd, word(1), word(1)), Expr: word(9)}
	norm, err := book.Normalize(ctx, tm)
	require.NoError(t, err)
	require.Equal(t, "9", Show(norm))
	require.Len(t, sink.Records, 1)
	require.Equal(t, "reduce", sink.Records[0].Phase)
	require.Equal(t, "2", sink.Records[0].Message)
}

func TestSelfEncodedNatInduction(t *testing.T) {
	// zero := new(Nat) λP λz λs. z
	// succ := λn. new(Nat) λP λz λs. s(n)(use(n)(P)(z)(s))
	// use(succ(zero))(P)(z)(s) is definitionally s(zero)(z)
	book := NewBook()
	book.Define("Nat", &Typ{})
	book.Define("zero", &New{
		Type: ref("Nat"),
		Expr: lam("P", lam("z", lam("s", v(1)))),
	})
	book.Define("succ", lam("n", &New{
		Type: ref("Nat"),
		Expr: lam("P", lam("z", lam("s", app(
			app(v(0), v(3)),
			app(app(app(&Use{Expr: v(3)}, v(2)), v(1)), v(0)),
		)))),
	}))

	lhs := app(app(app(
		&Use{Expr: app(ref("succ"), ref("zero"))},
		ref("P0")), ref("z0")), ref("s0"))
	rhs := app(app(ref("s0"), ref("zero")), ref("z0"))

	same, err := book.Equal(context.Background(), lhs, rhs, 0)
	require.NoError(t, err)
	require.True(t, same)
}

func TestHoleSubstitutionInReduction(t *testing.T) {
	book := NewBook()
	h := book.HoleAt("h", nil, nil, 0)
	h.Value = word(3)

	norm, err := book.Normalize(context.Background(), op2(OpAdd, &Hol{Name: "h"}, word(1)))
	require.NoError(t, err)
	require.Equal(t, "4", Show(norm))
}
