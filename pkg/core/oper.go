package core

import (
	"math"

	"github.com/pkg/errors"
)

// Oper is a primitive word operator. The codes are shared by the term
// reducer, the equality engine and both runtimes.
type Oper uint16

const (
	OpAdd Oper = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpPow
	OpAnd
	OpOr
	OpXor
	OpNot
	OpShr
	OpShl
	OpGth
	OpLth
	OpEql

	operCount
)

var operNames = [...]string{
	OpAdd: ".+.",
	OpSub: ".-.",
	OpMul: ".*.",
	OpDiv: "./.",
	OpMod: ".%.",
	OpPow: ".**.",
	OpAnd: ".&.",
	OpOr:  ".|.",
	OpXor: ".^.",
	OpNot: ".~.",
	OpShr: ".>>>.",
	OpShl: ".<<.",
	OpGth: ".>.",
	OpLth: ".<.",
	OpEql: ".==.",
}

func (o Oper) String() string {
	if o < operCount {
		return operNames[o]
	}
	return "<bad-oper>"
}

// ParseOper resolves a surface operator name.
func ParseOper(s string) (Oper, bool) {
	for op, name := range operNames {
		if name == s {
			return Oper(op), true
		}
	}
	return 0, false
}

// EvalOper computes a op b in unsigned 32-bit word semantics. Division and
// power go through float64 and truncate, matching the word semantics of the
// surface language; division or modulo by zero yields zero.
func EvalOper(op Oper, a, b uint32) (uint32, error) {
	switch op {
	case OpAdd:
		return a + b, nil
	case OpSub:
		return a - b, nil
	case OpMul:
		return a * b, nil
	case OpDiv:
		if b == 0 {
			return 0, nil
		}
		return uint32(float64(a) / float64(b)), nil
	case OpMod:
		if b == 0 {
			return 0, nil
		}
		return a % b, nil
	case OpPow:
		p := math.Trunc(math.Pow(float64(a), float64(b)))
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return 0, nil
		}
		m := math.Mod(p, 4294967296)
		if m < 0 {
			m += 4294967296
		}
		return uint32(m), nil
	case OpAnd:
		return a & b, nil
	case OpOr:
		return a | b, nil
	case OpXor:
		return a ^ b, nil
	case OpNot:
		return ^b, nil
	case OpShr:
		return a >> (b & 31), nil
	case OpShl:
		return a << (b & 31), nil
	case OpGth:
		return boolWord(a > b), nil
	case OpLth:
		return boolWord(a < b), nil
	case OpEql:
		return boolWord(a == b), nil
	default:
		return 0, errors.Errorf("unknown primitive operator %d", op)
	}
}

func boolWord(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
