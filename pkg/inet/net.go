// Package inet is the symmetric interaction-net runtime. Nodes have three
// ports (0 is principal) and rewrite locally when two principal ports meet,
// or when a numeric scalar arrives at a principal port. Numeric values are
// inlined into port words, marked by a per-port flag in the node's metadata
// word.
package inet

// Node types.
const (
	NOD uint32 = 0 // constructor/duplicator; the kind discriminates labels
	OP1 uint32 = 1 // unary operator: port1 holds the literal operand
	OP2 uint32 = 2 // binary operator
	ITE uint32 = 3 // conditional; port1 holds the branch pair
)

// pairKind labels the NOD holding a conditional's two branches.
const pairKind uint32 = 0xFFFF

const (
	infoType  uint32 = 0x7
	infoFreed uint32 = 1 << 6
	infoNum0  uint32 = 1 << 3
	infoKind  uint32 = 0xFFFF0000
)

// Stats counts net reduction work.
type Stats struct {
	Rewrites uint64
	Loops    uint64
	MaxLen   uint64
}

// Net is an arena of 4-word nodes, a free-list, and the list of active
// node addresses awaiting rewrite.
type Net struct {
	Nodes []uint32
	Freed []uint32
	Redex []uint32
	Stats Stats

	root uint32
}

// New returns a net with an allocated root anchor node. The term under
// evaluation hangs off the anchor's port 0.
func New() *Net {
	n := &Net{}
	n.root = n.Alloc(NOD, 0)
	// keep the anchor inert: its aux ports loop back to themselves
	n.setPort(n.root, 1, port(n.root, 1), false)
	n.setPort(n.root, 2, port(n.root, 2), false)
	return n
}

// Root returns the root anchor's address.
func (n *Net) Root() uint32 { return n.root }

func port(addr, slot uint32) uint32 { return addr<<2 | slot }

func addrOf(p uint32) uint32 { return p >> 2 }

func slotOf(p uint32) uint32 { return p & 3 }

// Alloc takes a node from the free-list or grows the arena.
func (n *Net) Alloc(typ, kind uint32) uint32 {
	var addr uint32
	if len(n.Freed) > 0 {
		addr = n.Freed[len(n.Freed)-1]
		n.Freed = n.Freed[:len(n.Freed)-1]
		for i := uint32(0); i < 4; i++ {
			n.Nodes[addr*4+i] = 0
		}
	} else {
		addr = uint32(len(n.Nodes) / 4)
		n.Nodes = append(n.Nodes, 0, 0, 0, 0)
	}
	n.Nodes[addr*4+3] = typ&infoType | kind<<16
	if l := uint64(len(n.Nodes) / 4); l > n.Stats.MaxLen {
		n.Stats.MaxLen = l
	}
	return addr
}

// Free returns a node to the free-list.
func (n *Net) Free(addr uint32) {
	n.Nodes[addr*4+3] |= infoFreed
	n.Freed = append(n.Freed, addr)
}

func (n *Net) freed(addr uint32) bool {
	return n.Nodes[addr*4+3]&infoFreed != 0
}

func (n *Net) typOf(addr uint32) uint32 { return n.Nodes[addr*4+3] & infoType }

func (n *Net) kindOf(addr uint32) uint32 { return n.Nodes[addr*4+3] >> 16 }

// readPort returns a port's word and whether it holds an inlined numeric.
func (n *Net) readPort(addr, slot uint32) (uint32, bool) {
	return n.Nodes[addr*4+slot], n.Nodes[addr*4+3]&(infoNum0<<slot) != 0
}

func (n *Net) setPort(addr, slot, word uint32, num bool) {
	n.Nodes[addr*4+slot] = word
	if num {
		n.Nodes[addr*4+3] |= infoNum0 << slot
	} else {
		n.Nodes[addr*4+3] &^= infoNum0 << slot
	}
}

// wire is one end of a link: either a port pointer or a numeric scalar.
type wire struct {
	word uint32
	num  bool
}

func ptrWire(addr, slot uint32) wire { return wire{word: port(addr, slot)} }

func numWire(v uint32) wire { return wire{word: v, num: true} }

func (n *Net) enter(addr, slot uint32) wire {
	w, num := n.readPort(addr, slot)
	return wire{word: w, num: num}
}

// link connects two wires. Pointer ends are written on both sides; a
// numeric end is inlined into the pointer side. Linking two numerics drops
// both. Any principal port that ends up holding a numeric, or facing
// another principal, becomes active.
func (n *Net) link(a, b wire) {
	switch {
	case !a.num && !b.num:
		n.setPort(addrOf(a.word), slotOf(a.word), b.word, false)
		n.setPort(addrOf(b.word), slotOf(b.word), a.word, false)
		if slotOf(a.word) == 0 && slotOf(b.word) == 0 {
			n.Redex = append(n.Redex, addrOf(a.word))
		}
	case !a.num && b.num:
		n.setPort(addrOf(a.word), slotOf(a.word), b.word, true)
		if slotOf(a.word) == 0 {
			n.Redex = append(n.Redex, addrOf(a.word))
		}
	case a.num && !b.num:
		n.link(b, a)
	}
}
