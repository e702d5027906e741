package inet

import (
	"github.com/pkg/errors"

	"github.com/Xuexl-Mack/Formality/pkg/core"
)

// Compile builds a net from the erased form of a named definition.
// Multi-use variables and references fan out through uniquely-labelled
// duplicators, so shared structure is duplicated lazily by the rewrite
// rules instead of eagerly by the compiler.
func Compile(book *core.Book, entry string) (*Net, error) {
	body, ok := book.ErasedDef(entry)
	if !ok {
		return nil, errors.Errorf("undefined reference %s", entry)
	}
	return compileTerm(book, body)
}

// CompileTerm builds a net from a standalone term; references are resolved
// through the book.
func CompileTerm(book *core.Book, t core.Term) (*Net, error) {
	return compileTerm(book, core.Erase(t))
}

func compileTerm(book *core.Book, body core.Term) (*Net, error) {
	net := New()
	c := &compiler{
		book:    book,
		net:     net,
		counts:  map[string]int{},
		outs:    map[string][]uint32{},
		scanned: map[string]bool{},
		label:   1,
	}
	if err := c.scan(body); err != nil {
		return nil, err
	}
	w, err := c.encode(body, nil)
	if err != nil {
		return nil, err
	}
	net.link(ptrWire(net.root, 0), w)
	return net, nil
}

type compiler struct {
	book    *core.Book
	net     *Net
	counts  map[string]int  // reference use counts across the program
	outs    map[string][]uint32 // unconsumed duplicator outputs per reference
	scanned map[string]bool
	label   uint32
}

func (c *compiler) freshLabel() uint32 {
	c.label++
	return c.label
}

// scan counts reference occurrences so each definition's sharing fan-out is
// sized before its body is encoded. Every definition body is scanned once.
func (c *compiler) scan(t core.Term) error {
	switch t := t.(type) {
	case *core.All, *core.Slf:
		// type-level only; encode never visits these
		return nil
	case *core.Lam:
		return c.scan(t.Body)
	case *core.App:
		if err := c.scan(t.Func); err != nil {
			return err
		}
		return c.scan(t.Argm)
	case *core.Op1:
		if err := c.scan(t.Num0); err != nil {
			return err
		}
		return c.scan(t.Num1)
	case *core.Op2:
		if err := c.scan(t.Num0); err != nil {
			return err
		}
		return c.scan(t.Num1)
	case *core.Ite:
		if err := c.scan(t.Cond); err != nil {
			return err
		}
		if err := c.scan(t.IfT); err != nil {
			return err
		}
		return c.scan(t.IfF)
	case *core.Log:
		return c.scan(t.Expr)
	case *core.Ref:
		c.counts[t.Name]++
		if c.scanned[t.Name] {
			return nil
		}
		c.scanned[t.Name] = true
		body, ok := c.book.ErasedDef(t.Name)
		if !ok {
			return errors.Errorf("undefined reference %s", t.Name)
		}
		return c.scan(body)
	}
	return nil
}

// binding tracks the fan-out ports of one lambda binder.
type binding struct {
	outs []uint32
}

func (b *binding) next() uint32 {
	p := b.outs[len(b.outs)-1]
	b.outs = b.outs[:len(b.outs)-1]
	return p
}

// supplyChain builds a duplicator chain with n >= 2 output ports and
// returns its unlinked head, so a recursive source can be attached after
// its own outputs exist.
func (c *compiler) supplyChain(n int) (outs []uint32, head uint32) {
	var first uint32
	var prev uint32
	for i := 0; i < n-1; i++ {
		d := c.net.Alloc(NOD, c.freshLabel())
		if i == 0 {
			first = d
		} else {
			c.net.link(ptrWire(prev, 2), ptrWire(d, 0))
		}
		outs = append(outs, port(d, 1))
		prev = d
	}
	outs = append(outs, port(prev, 2))
	return outs, port(first, 0)
}

func (c *compiler) encode(t core.Term, scope []*binding) (wire, error) {
	net := c.net
	switch t := t.(type) {
	case *core.Lam:
		addr := net.Alloc(NOD, 0)
		uses := core.Uses(t.Body, 0)
		bind := &binding{}
		switch {
		case uses == 0:
			net.link(ptrWire(addr, 1), ptrWire(addr, 1))
		case uses == 1:
			bind.outs = []uint32{port(addr, 1)}
		default:
			outs, head := c.supplyChain(uses)
			net.link(wire{word: head}, ptrWire(addr, 1))
			bind.outs = outs
		}
		body, err := c.encode(t.Body, append(scope, bind))
		if err != nil {
			return wire{}, err
		}
		net.link(ptrWire(addr, 2), body)
		return ptrWire(addr, 0), nil

	case *core.Var:
		if t.Indx >= len(scope) {
			return wire{}, errors.Errorf("open term: variable #%d has no binder", t.Indx)
		}
		return wire{word: scope[len(scope)-1-t.Indx].next()}, nil

	case *core.App:
		addr := net.Alloc(NOD, 0)
		fn, err := c.encode(t.Func, scope)
		if err != nil {
			return wire{}, err
		}
		net.link(ptrWire(addr, 0), fn)
		arg, err := c.encode(t.Argm, scope)
		if err != nil {
			return wire{}, err
		}
		net.link(ptrWire(addr, 1), arg)
		return ptrWire(addr, 2), nil

	case *core.Val:
		return numWire(t.Numb), nil

	case *core.Op1:
		lit, ok := t.Num1.(*core.Val)
		if !ok {
			return wire{}, errors.New("op1 right operand is not a literal")
		}
		addr := net.Alloc(OP1, uint32(t.Oper))
		net.setPort(addr, 1, lit.Numb, true)
		n0, err := c.encode(t.Num0, scope)
		if err != nil {
			return wire{}, err
		}
		net.link(ptrWire(addr, 0), n0)
		return ptrWire(addr, 2), nil

	case *core.Op2:
		addr := net.Alloc(OP2, uint32(t.Oper))
		// the right operand faces the principal port: it reduces first,
		// demoting the node to OP1, exactly like the term reducer
		n1, err := c.encode(t.Num1, scope)
		if err != nil {
			return wire{}, err
		}
		net.link(ptrWire(addr, 0), n1)
		n0, err := c.encode(t.Num0, scope)
		if err != nil {
			return wire{}, err
		}
		net.link(ptrWire(addr, 1), n0)
		return ptrWire(addr, 2), nil

	case *core.Ite:
		ite := net.Alloc(ITE, 0)
		pair := net.Alloc(NOD, pairKind)
		cond, err := c.encode(t.Cond, scope)
		if err != nil {
			return wire{}, err
		}
		net.link(ptrWire(ite, 0), cond)
		net.link(ptrWire(ite, 1), ptrWire(pair, 0))
		ift, err := c.encode(t.IfT, scope)
		if err != nil {
			return wire{}, err
		}
		net.link(ptrWire(pair, 1), ift)
		iff, err := c.encode(t.IfF, scope)
		if err != nil {
			return wire{}, err
		}
		net.link(ptrWire(pair, 2), iff)
		return ptrWire(ite, 2), nil

	case *core.Log:
		return c.encode(t.Expr, scope)

	case *core.Ref:
		if outs := c.outs[t.Name]; len(outs) > 0 {
			c.outs[t.Name] = outs[:len(outs)-1]
			return wire{word: outs[len(outs)-1]}, nil
		}
		body, ok := c.book.ErasedDef(t.Name)
		if !ok {
			return wire{}, errors.Errorf("undefined reference %s", t.Name)
		}
		if c.counts[t.Name] <= 1 {
			return c.encode(body, nil)
		}
		// first occurrence of a shared reference: stand the fan-out up
		// before encoding the body so recursive uses tap into it
		outs, head := c.supplyChain(c.counts[t.Name])
		mine := outs[len(outs)-1]
		c.outs[t.Name] = outs[:len(outs)-1]
		root, err := c.encode(body, nil)
		if err != nil {
			return wire{}, err
		}
		net.link(wire{word: head}, root)
		return wire{word: mine}, nil

	default:
		return wire{}, errors.Errorf("term %s is outside the net runtime's fragment", core.Show(t))
	}
}
