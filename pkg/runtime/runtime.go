// Package runtime compiles erased terms into a compact pointer-graph memory
// and reduces them by lazy, in-place rewriting. Memory is a flat vector of
// 32-bit words; a pointer packs a 4-bit constructor tag and a 28-bit cell
// address. Only the lambda fragment (variables, lambdas, applications and
// references) is representable; numeric terms belong to the interaction-net
// runtime.
package runtime

import (
	"github.com/pkg/errors"
)

// Ptr is a tagged pointer into machine memory.
type Ptr uint32

const (
	// TagVar points at the binder's variable cell.
	TagVar uint32 = 0
	// TagLam points at two cells: variable cell, body pointer.
	TagLam uint32 = 1
	// TagApp points at two cells: function pointer, argument pointer.
	TagApp uint32 = 2
	// TagRef carries a definition id instead of an address.
	TagRef uint32 = 3

	// tagLvl marks a binder cell with the de-Bruijn level recorded while
	// walking under its lambda.
	tagLvl uint32 = 0xE

	// Nil fills unused binder cells.
	Nil Ptr = 0xFFFFFFFF

	addrMask uint32 = 0x0FFFFFFF
)

// NewPtr builds a tagged pointer.
func NewPtr(tag, addr uint32) Ptr {
	return Ptr(tag<<28 | addr&addrMask)
}

// Tag extracts the constructor tag.
func (p Ptr) Tag() uint32 { return uint32(p) >> 28 }

// Addr extracts the cell address (or definition id, for TagRef).
func (p Ptr) Addr() uint32 { return uint32(p) & addrMask }

func mkLvl(depth uint32) Ptr { return Ptr(tagLvl<<28 | depth&addrMask) }

func isLvl(p Ptr) bool { return p != Nil && p.Tag() == tagLvl }

func lvlOf(p Ptr) uint32 { return p.Addr() }

// Def is one compiled definition: its own memory and entry pointer.
type Def struct {
	Name string
	Mem  []Ptr
	Root Ptr
}

// Table holds the compiled definitions, indexed by definition id.
type Table struct {
	Defs []Def
	ids  map[string]int
}

func newTable() *Table {
	return &Table{ids: make(map[string]int)}
}

// Stats counts reduction work: beta steps, definition copies, and the peak
// memory length.
type Stats struct {
	Beta   uint64
	Copy   uint64
	MaxLen uint64
}

// Machine is a runtime term under reduction: a memory, a root cell (always
// cell 0), the definition table, and the back-stack driving the walk.
type Machine struct {
	Mem   []Ptr
	Table *Table
	Stats Stats

	lastLen int
	stack   []frame
}

// Root returns the current root pointer.
func (m *Machine) Root() Ptr { return m.Mem[0] }

func (m *Machine) load(slot uint32) Ptr { return m.Mem[slot] }

func (m *Machine) store(slot uint32, p Ptr) { m.Mem[slot] = p }

func (m *Machine) alloc(n int) uint32 {
	addr := uint32(len(m.Mem))
	for i := 0; i < n; i++ {
		m.Mem = append(m.Mem, Nil)
	}
	if l := uint64(len(m.Mem)); l > m.Stats.MaxLen {
		m.Stats.MaxLen = l
	}
	return addr
}

// copyDef appends a definition's memory to the machine, offsetting its
// internal pointers, and returns the relocated entry pointer.
func (m *Machine) copyDef(id uint32) (Ptr, error) {
	if int(id) >= len(m.Table.Defs) {
		return Nil, errors.Errorf("no definition with id %d", id)
	}
	def := m.Table.Defs[id]
	base := uint32(len(m.Mem))
	for _, w := range def.Mem {
		m.Mem = append(m.Mem, relocate(w, base))
	}
	if l := uint64(len(m.Mem)); l > m.Stats.MaxLen {
		m.Stats.MaxLen = l
	}
	m.Stats.Copy++
	return relocate(def.Root, base), nil
}

func relocate(p Ptr, base uint32) Ptr {
	if p == Nil || isLvl(p) {
		return p
	}
	switch p.Tag() {
	case TagVar, TagLam, TagApp:
		return NewPtr(p.Tag(), p.Addr()+base)
	default:
		return p
	}
}

// Name resolves a definition id for decompilation.
func (t *Table) Name(id uint32) string {
	if int(id) < len(t.Defs) {
		return t.Defs[id].Name
	}
	return "<bad-ref>"
}
