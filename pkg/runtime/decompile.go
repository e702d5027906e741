package runtime

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/Xuexl-Mack/Formality/pkg/core"
)

// Decompile reads the machine's root back into a term, inventing fresh
// variable names per binder depth.
func (m *Machine) Decompile() (core.Term, error) {
	return m.decomp(m.Root(), 0, make(map[uint32]int))
}

// decomp walks the graph; lvls maps binder variable cells to the depth they
// were introduced at.
func (m *Machine) decomp(p Ptr, depth int, lvls map[uint32]int) (core.Term, error) {
	if p == Nil {
		return nil, errors.New("dangling pointer in runtime memory")
	}
	switch p.Tag() {
	case TagLam:
		addr := p.Addr()
		lvls[addr] = depth
		body, err := m.decomp(m.load(addr+1), depth+1, lvls)
		if err != nil {
			return nil, err
		}
		return &core.Lam{Name: fmt.Sprintf("x%d", depth), Body: body}, nil
	case TagApp:
		addr := p.Addr()
		fn, err := m.decomp(m.load(addr), depth, lvls)
		if err != nil {
			return nil, err
		}
		arg, err := m.decomp(m.load(addr+1), depth, lvls)
		if err != nil {
			return nil, err
		}
		return &core.App{Func: fn, Argm: arg}, nil
	case TagVar:
		addr := p.Addr()
		if lvl, ok := lvls[addr]; ok {
			return &core.Var{Indx: depth - 1 - lvl}, nil
		}
		cell := m.load(addr)
		if cell != Nil && !isLvl(cell) && cell != p {
			// substituted occurrence that reduction never demanded
			return m.decomp(cell, depth, lvls)
		}
		return nil, errors.Errorf("variable cell %d has no binder on the path", addr)
	case TagRef:
		return &core.Ref{Name: m.Table.Name(p.Addr()), Eras: true}, nil
	}
	return nil, errors.Errorf("bad pointer tag %d", p.Tag())
}
