package inet

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/Xuexl-Mack/Formality/pkg/core"
)

// Decompile reads the net back into a term starting from port 0 of the
// root anchor. Duplicators resolve to a consistent side per path through
// the exit stack.
func (n *Net) Decompile() (core.Term, error) {
	r := &reader{net: n, lvls: map[uint32]int{}}
	w := n.enter(n.root, 0)
	return r.read(w, 0)
}

type reader struct {
	net   *Net
	lvls  map[uint32]int // lambda address -> binder depth
	exits []uint32       // duplicator sides pending on the current path
	steps int
}

const maxReadSteps = 1 << 22

func (r *reader) read(w wire, depth int) (core.Term, error) {
	r.steps++
	if r.steps > maxReadSteps {
		return nil, errors.New("net readback did not terminate")
	}
	if w.num {
		return &core.Val{Numb: w.word}, nil
	}
	net := r.net
	addr, slot := addrOf(w.word), slotOf(w.word)

	switch net.typOf(addr) {
	case NOD:
		kind := net.kindOf(addr)
		if kind == 0 {
			switch slot {
			case 0: // a lambda seen from outside
				r.lvls[addr] = depth
				body, err := r.read(net.enter(addr, 2), depth+1)
				if err != nil {
					return nil, err
				}
				return &core.Lam{Name: fmt.Sprintf("x%d", depth), Body: body}, nil
			case 1: // a lambda's variable port
				lvl, ok := r.lvls[addr]
				if !ok {
					return nil, errors.Errorf("variable with no binder at node %d", addr)
				}
				return &core.Var{Indx: depth - 1 - lvl}, nil
			default: // an application seen from its result
				fn, err := r.read(net.enter(addr, 0), depth)
				if err != nil {
					return nil, err
				}
				arg, err := r.read(net.enter(addr, 1), depth)
				if err != nil {
					return nil, err
				}
				return &core.App{Func: fn, Argm: arg}, nil
			}
		}
		// duplicator: pick the side the path last entered through
		if slot == 0 {
			if len(r.exits) == 0 {
				return nil, errors.Errorf("unmatched duplicator at node %d", addr)
			}
			side := r.exits[len(r.exits)-1]
			r.exits = r.exits[:len(r.exits)-1]
			t, err := r.read(net.enter(addr, side), depth)
			r.exits = append(r.exits, side)
			return t, err
		}
		r.exits = append(r.exits, slot)
		t, err := r.read(net.enter(addr, 0), depth)
		r.exits = r.exits[:len(r.exits)-1]
		return t, err

	case OP1:
		if slot != 2 {
			return nil, errors.Errorf("op1 read from port %d", slot)
		}
		n0, err := r.read(net.enter(addr, 0), depth)
		if err != nil {
			return nil, err
		}
		lit, _ := net.readPort(addr, 1)
		return &core.Op1{
			Oper: core.Oper(net.kindOf(addr)),
			Num0: n0,
			Num1: &core.Val{Numb: lit},
		}, nil

	case OP2:
		if slot != 2 {
			return nil, errors.Errorf("op2 read from port %d", slot)
		}
		n1, err := r.read(net.enter(addr, 0), depth)
		if err != nil {
			return nil, err
		}
		n0, err := r.read(net.enter(addr, 1), depth)
		if err != nil {
			return nil, err
		}
		return &core.Op2{Oper: core.Oper(net.kindOf(addr)), Num0: n0, Num1: n1}, nil

	case ITE:
		if slot != 2 {
			return nil, errors.Errorf("ite read from port %d", slot)
		}
		cond, err := r.read(net.enter(addr, 0), depth)
		if err != nil {
			return nil, err
		}
		pairW := net.enter(addr, 1)
		if pairW.num {
			return nil, errors.New("ite branch pair is a scalar")
		}
		pair := addrOf(pairW.word)
		ift, err := r.read(net.enter(pair, 1), depth)
		if err != nil {
			return nil, err
		}
		iff, err := r.read(net.enter(pair, 2), depth)
		if err != nil {
			return nil, err
		}
		return &core.Ite{Cond: cond, IfT: ift, IfF: iff}, nil
	}
	return nil, errors.Errorf("bad node type %d at %d", net.typOf(addr), addr)
}
