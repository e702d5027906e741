package runtime

import (
	"github.com/pkg/errors"

	"github.com/Xuexl-Mack/Formality/pkg/core"
)

// Compile flattens the erased form of a named definition, and everything it
// reaches, into runtime memory. The returned machine's cell 0 holds the root
// pointer.
func Compile(book *core.Book, entry string) (*Machine, error) {
	table := newTable()
	id, err := compileDef(book, table, entry)
	if err != nil {
		return nil, err
	}

	m := &Machine{Table: table}
	m.Mem = append(m.Mem, Nil)
	root, err := m.copyDef(uint32(id))
	if err != nil {
		return nil, err
	}
	m.Stats.Copy = 0
	m.store(0, root)
	m.lastLen = len(m.Mem)
	return m, nil
}

// CompileTerm compiles a standalone erased term against a book, for callers
// that do not want to name an entry definition.
func CompileTerm(book *core.Book, t core.Term) (*Machine, error) {
	table := newTable()
	c := &compiler{book: book, table: table}
	mem, root, err := c.flatten(core.Erase(t))
	if err != nil {
		return nil, err
	}

	m := &Machine{Table: table}
	m.Mem = append(m.Mem, Nil)
	base := uint32(len(m.Mem))
	for _, w := range mem {
		m.Mem = append(m.Mem, relocate(w, base))
	}
	m.store(0, relocate(root, base))
	m.lastLen = len(m.Mem)
	if l := uint64(len(m.Mem)); l > m.Stats.MaxLen {
		m.Stats.MaxLen = l
	}
	return m, nil
}

func compileDef(book *core.Book, table *Table, name string) (int, error) {
	if id, ok := table.ids[name]; ok {
		return id, nil
	}
	body, ok := book.ErasedDef(name)
	if !ok {
		return 0, errors.Errorf("undefined reference %s", name)
	}

	// Reserve the id first so self-references resolve while the body is
	// still being flattened.
	id := len(table.Defs)
	table.ids[name] = id
	table.Defs = append(table.Defs, Def{Name: name})

	c := &compiler{book: book, table: table}
	mem, root, err := c.flatten(body)
	if err != nil {
		return 0, err
	}
	table.Defs[id] = Def{Name: name, Mem: mem, Root: root}
	return id, nil
}

type compiler struct {
	book  *core.Book
	table *Table
	mem   []Ptr
}

func (c *compiler) alloc(n int) uint32 {
	addr := uint32(len(c.mem))
	for i := 0; i < n; i++ {
		c.mem = append(c.mem, Nil)
	}
	return addr
}

func (c *compiler) flatten(t core.Term) ([]Ptr, Ptr, error) {
	root, err := c.emit(t, nil)
	if err != nil {
		return nil, Nil, err
	}
	return c.mem, root, nil
}

// emit writes a term into the compiler's memory. binders holds the variable
// cell address of every enclosing lambda, outermost first; a variable
// occurrence back-links its binder cell so beta reduction can substitute
// through it.
func (c *compiler) emit(t core.Term, binders []uint32) (Ptr, error) {
	switch t := t.(type) {
	case *core.Lam:
		addr := c.alloc(2)
		body, err := c.emit(t.Body, append(binders, addr))
		if err != nil {
			return Nil, err
		}
		c.mem[addr+1] = body
		return NewPtr(TagLam, addr), nil
	case *core.Var:
		if t.Indx >= len(binders) {
			return Nil, errors.Errorf("open term: variable #%d has no binder", t.Indx)
		}
		cell := binders[len(binders)-1-t.Indx]
		c.mem[cell] = NewPtr(TagVar, cell)
		return NewPtr(TagVar, cell), nil
	case *core.App:
		addr := c.alloc(2)
		fn, err := c.emit(t.Func, binders)
		if err != nil {
			return Nil, err
		}
		arg, err := c.emit(t.Argm, binders)
		if err != nil {
			return Nil, err
		}
		c.mem[addr] = fn
		c.mem[addr+1] = arg
		return NewPtr(TagApp, addr), nil
	case *core.Ref:
		id, err := compileDef(c.book, c.table, t.Name)
		if err != nil {
			return Nil, err
		}
		return NewPtr(TagRef, uint32(id)), nil
	case *core.Log:
		return c.emit(t.Expr, binders)
	default:
		return Nil, errors.Errorf("term %s is outside the graph runtime's lambda fragment", core.Show(t))
	}
}
