package core

import (
	"fmt"
	"strings"
)

// ErrKind classifies kernel errors.
type ErrKind int

const (
	ErrUnboundVariable ErrKind = iota
	ErrErasedUse
	ErrErasureMismatch
	ErrNonFunction
	ErrNeedsAnnotation
	ErrNonTypeForall
	ErrIfCondNotNum
	ErrNewNonSelf
	ErrUseNonSelf
	ErrUnknownRef
	ErrTypeMismatch
	ErrUnknownOper
)

var errKindNames = map[ErrKind]string{
	ErrUnboundVariable: "unbound variable",
	ErrErasedUse:       "erased use in relevant position",
	ErrErasureMismatch: "mismatched erasure on application",
	ErrNonFunction:     "non-function applied",
	ErrNeedsAnnotation: "lambda needs annotation",
	ErrNonTypeForall:   "non-Type in forall position",
	ErrIfCondNotNum:    "if-cond not numeric",
	ErrNewNonSelf:      "new of non-self type",
	ErrUseNonSelf:      "use of non-self value",
	ErrUnknownRef:      "unknown reference",
	ErrTypeMismatch:    "type mismatch",
	ErrUnknownOper:     "unknown primitive operator",
}

func (k ErrKind) String() string {
	if s, ok := errKindNames[k]; ok {
		return s
	}
	return "error"
}

// TypeError is a structured checking failure: the kind, a message, the
// offending term, the typing context it was checked under, and a source
// location when one is known.
type TypeError struct {
	Kind ErrKind
	Msg  string
	Term Term
	Ctx  Ctx
	Loc  *Loc
}

func (e *TypeError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %s", e.Kind, e.Msg)
	if e.Loc != nil {
		fmt.Fprintf(&sb, "\n  --> %s", e.Loc)
	}
	if e.Term != nil {
		fmt.Fprintf(&sb, "\n  term: %s", ShowWith(e.Term, e.Ctx.Names()))
	}
	if ctx := e.Ctx.Show(); ctx != "" {
		fmt.Fprintf(&sb, "\n  context:\n%s", indent(ctx, "  "))
	}
	return sb.String()
}

// NormError is a failure raised by the reducer, currently only for invalid
// primitive operators.
type NormError struct {
	Kind ErrKind
	Msg  string
	Term Term
}

func (e *NormError) Error() string {
	if e.Term != nil {
		return fmt.Sprintf("%s: %s in %s", e.Kind, e.Msg, Show(e.Term))
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func newTypeError(kind ErrKind, t Term, ctx Ctx, format string, args ...any) *TypeError {
	var loc *Loc
	if t != nil {
		loc = t.Loc()
	}
	return &TypeError{
		Kind: kind,
		Msg:  fmt.Sprintf(format, args...),
		Term: t,
		Ctx:  ctx,
		Loc:  loc,
	}
}

// FormatWithSource renders the error with its surrounding source lines and a
// caret underline of the offending span.
func (e *TypeError) FormatWithSource(source string) string {
	if e.Loc == nil || source == "" {
		return e.Error()
	}

	lines := strings.Split(source, "\n")
	if e.Loc.Row < 1 || e.Loc.Row > len(lines) {
		return e.Error()
	}

	const (
		red   = "\033[31m"
		blue  = "\033[34m"
		bold  = "\033[1m"
		reset = "\033[0m"
		dim   = "\033[2m"
	)

	var sb strings.Builder

	fmt.Fprintf(&sb, "%s%sError:%s %s: %s\n", bold, red, reset, e.Kind, e.Msg)
	fmt.Fprintf(&sb, "  %s%s--> %s%s\n", dim, blue, e.Loc, reset)
	fmt.Fprintf(&sb, " %s%s |%s\n", dim, padLeft("", 3), reset)

	startLine := max(1, e.Loc.Row-2)
	endLine := min(len(lines), e.Loc.Row+2)

	for i := startLine; i <= endLine; i++ {
		lineNum := padLeft(fmt.Sprintf("%d", i), 3)
		if i == e.Loc.Row {
			fmt.Fprintf(&sb, " %s%s%s%s | %s%s\n", dim, blue, bold, lineNum, reset, lines[i-1])
			padding := strings.Repeat(" ", 1+3+3+e.Loc.Col-1)
			underline := strings.Repeat("^", max(1, e.Loc.Len))
			fmt.Fprintf(&sb, "%s%s%s%s\n", padding, red, underline, reset)
		} else {
			fmt.Fprintf(&sb, " %s%s | %s%s\n", dim, lineNum, lines[i-1], reset)
		}
	}

	fmt.Fprintf(&sb, " %s%s |%s\n", dim, padLeft("", 3), reset)

	return sb.String()
}

func padLeft(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat(" ", width-len(s)) + s
}

func indent(s, prefix string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n") + "\n"
}
