package inet

import (
	"github.com/pkg/errors"

	"github.com/Xuexl-Mack/Formality/pkg/core"
)

// active reports whether the node at addr still heads a redex: a numeric on
// its principal port, or another principal port facing back. Stale entries
// from earlier rewrites fail this check and are skipped, and so does the
// root anchor, which never fires.
func (n *Net) active(addr uint32) bool {
	if addr == n.root || n.freed(addr) {
		return false
	}
	w := n.enter(addr, 0)
	if w.num {
		return true
	}
	if slotOf(w.word) != 0 {
		return false
	}
	peer := addrOf(w.word)
	if peer == n.root || n.freed(peer) {
		return false
	}
	pw := n.enter(peer, 0)
	return !pw.num && pw.word == port(addr, 0)
}

// Rewrite fires the redex headed at addr.
func (n *Net) Rewrite(addr uint32) error {
	w := n.enter(addr, 0)
	n.Stats.Rewrites++
	if w.num {
		return n.rewriteNum(addr, w.word)
	}
	n.rewritePair(addr, addrOf(w.word))
	return nil
}

// rewritePair handles two nodes joined through their principal ports:
// annihilation when they agree, commutation otherwise.
func (n *Net) rewritePair(a, b uint32) {
	if n.typOf(a) != NOD && n.typOf(b) == NOD {
		a, b = b, a
	}
	ta, tb := n.typOf(a), n.typOf(b)

	switch {
	case ta == NOD && tb == NOD && n.kindOf(a) != n.kindOf(b):
		n.commute(a, b)
	case ta == tb:
		n.annihilate(a, b)
	case ta == NOD && tb == OP1:
		n.commuteOp1(a, b)
	case ta == NOD:
		// OP2 and ITE both carry two live aux ports, so they duplicate
		// through a NOD exactly like a constructor
		n.commute(a, b)
	default:
		n.annihilate(a, b)
	}
}

// annihilate joins the aux destinations pairwise and frees both nodes.
// Destinations pointing back into the dying pair (a lambda whose variable
// and body ports interlink, for one) are redirected across the pair: the
// wire continues at the partner port's destination. A fully internal loop
// drops its wire.
func (n *Net) annihilate(a, b uint32) {
	dest := map[uint32]wire{
		port(a, 1): n.enter(a, 1),
		port(a, 2): n.enter(a, 2),
		port(b, 1): n.enter(b, 1),
		port(b, 2): n.enter(b, 2),
	}
	partner := func(p uint32) uint32 {
		if addrOf(p) == a {
			return port(b, slotOf(p))
		}
		return port(a, slotOf(p))
	}
	resolve := func(w wire) (wire, bool) {
		for steps := 0; ; steps++ {
			if w.num {
				return w, true
			}
			if _, dying := dest[w.word]; !dying {
				return w, true
			}
			if steps >= 4 {
				return w, false
			}
			w = dest[partner(w.word)]
		}
	}

	n.Free(a)
	n.Free(b)
	for i := uint32(1); i <= 2; i++ {
		x, okx := resolve(dest[port(a, i)])
		y, oky := resolve(dest[port(b, i)])
		if okx && oky {
			n.link(x, y)
		}
	}
}

// commute duplicates each node through the other: two copies of b face a's
// aux ports, two copies of a face b's, and the four meet crosswise. An aux
// destination inside the dying pair reroutes to that port's replacement.
func (n *Net) commute(a, b uint32) {
	p := n.Alloc(n.typOf(b), n.kindOf(b))
	q := n.Alloc(n.typOf(b), n.kindOf(b))
	r := n.Alloc(n.typOf(a), n.kindOf(a))
	s := n.Alloc(n.typOf(a), n.kindOf(a))

	n.link(ptrWire(r, 1), ptrWire(p, 1))
	n.link(ptrWire(s, 1), ptrWire(p, 2))
	n.link(ptrWire(r, 2), ptrWire(q, 1))
	n.link(ptrWire(s, 2), ptrWire(q, 2))

	repl := map[uint32]uint32{
		port(a, 1): port(p, 0),
		port(a, 2): port(q, 0),
		port(b, 1): port(r, 0),
		port(b, 2): port(s, 0),
	}
	n.relinkOut(repl, a, b)
}

// commuteOp1 duplicates an OP1 through a NOD. The literal aux is copied, so
// only one NOD is needed to join the result ports.
func (n *Net) commuteOp1(nod, op uint32) {
	lit, _ := n.readPort(op, 1)
	p := n.Alloc(OP1, n.kindOf(op))
	q := n.Alloc(OP1, n.kindOf(op))
	r := n.Alloc(NOD, n.kindOf(nod))

	n.setPort(p, 1, lit, true)
	n.setPort(q, 1, lit, true)
	n.link(ptrWire(r, 1), ptrWire(p, 2))
	n.link(ptrWire(r, 2), ptrWire(q, 2))

	repl := map[uint32]uint32{
		port(nod, 1): port(p, 0),
		port(nod, 2): port(q, 0),
		port(op, 2):  port(r, 0),
	}
	n.relinkOut(repl, nod, op)
}

// relinkOut reconnects the dying nodes' aux destinations to their
// replacement ports, routing pair-internal wires replacement-to-replacement.
func (n *Net) relinkOut(repl map[uint32]uint32, a, b uint32) {
	dests := make(map[uint32]wire, len(repl))
	for dying := range repl {
		dests[dying] = n.enter(addrOf(dying), slotOf(dying))
	}
	n.Free(a)
	n.Free(b)
	for dying, np := range repl {
		d := dests[dying]
		if !d.num {
			if other, ok := repl[d.word]; ok {
				n.link(wire{word: np}, wire{word: other})
				continue
			}
		}
		n.link(wire{word: np}, d)
	}
}

// rewriteNum handles a numeric scalar arriving at a principal port.
func (n *Net) rewriteNum(addr, v uint32) error {
	switch n.typOf(addr) {
	case NOD:
		dest := map[uint32]wire{
			port(addr, 1): n.enter(addr, 1),
			port(addr, 2): n.enter(addr, 2),
		}
		n.Free(addr)
		for _, d := range dest {
			// a self-wired aux pair swallows its copy
			if !d.num {
				if _, internal := dest[d.word]; internal {
					continue
				}
			}
			n.link(d, numWire(v))
		}
		return nil
	case OP1:
		lit, _ := n.readPort(addr, 1)
		out := n.enter(addr, 2)
		res, err := core.EvalOper(core.Oper(n.kindOf(addr)), v, lit)
		if err != nil {
			return errors.Wrap(err, "net op1")
		}
		n.Free(addr)
		n.link(out, numWire(res))
		return nil
	case OP2:
		// demote to OP1: the other operand rotates onto the principal
		// port and the scalar parks on the literal aux
		operand := n.enter(addr, 1)
		n.Nodes[addr*4+3] = n.Nodes[addr*4+3]&^infoType | OP1
		n.setPort(addr, 1, v, true)
		n.link(ptrWire(addr, 0), operand)
		return nil
	case ITE:
		pairW := n.enter(addr, 1)
		if pairW.num {
			return errors.New("net ite: branch pair is a scalar")
		}
		pair := addrOf(pairW.word)
		out := n.enter(addr, 2)
		sel := uint32(2)
		if v != 0 {
			sel = 1
		}
		branch := n.enter(pair, sel)
		n.Free(addr)
		n.link(out, branch)
		// park the pair node: the discarded branch stays attached but the
		// pair can never fire again
		n.link(ptrWire(pair, 0), ptrWire(pair, sel))
		return nil
	}
	return errors.Errorf("net: bad node type %d", n.typOf(addr))
}
