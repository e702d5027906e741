package runtime

const (
	modeWhnf uint8 = iota
	modeNorm
)

// frame is one entry of the back-stack: the cell whose pointer is being
// reduced, which side of the walk it is on, and the binder depth there.
type frame struct {
	slot  uint32
	depth uint32
	mode  uint8
	stage uint8
}

func (m *Machine) push(f frame) {
	m.stack = append(m.stack, f)
}

func (m *Machine) pop() {
	m.stack = m.stack[:len(m.stack)-1]
}

// collectThreshold triggers a compacting collection once memory outgrows the
// last collected size by this factor.
const collectThreshold = 8

// Normalize reduces the machine's root to full normal form. The walk is
// lazy: arguments are only entered when a variable surfaces at the head of
// an application spine.
func (m *Machine) Normalize() error {
	m.stack = m.stack[:0]
	m.push(frame{slot: 0, mode: modeNorm})

	for len(m.stack) > 0 {
		if len(m.Mem) > collectThreshold*m.lastLen {
			m.collect()
		}
		f := &m.stack[len(m.stack)-1]
		p := m.load(f.slot)

		if f.mode == modeWhnf {
			if err := m.stepWhnf(f, p); err != nil {
				return err
			}
			continue
		}

		switch f.stage {
		case 0:
			f.stage = 1
			m.push(frame{slot: f.slot, depth: f.depth, mode: modeWhnf})
		case 1:
			switch p.Tag() {
			case TagLam:
				addr := p.Addr()
				m.store(addr, mkLvl(f.depth))
				f.stage = 2
				m.push(frame{slot: addr + 1, depth: f.depth + 1, mode: modeNorm})
			case TagApp:
				// a neutral spine: normalize the function side and the
				// argument we never entered
				addr := p.Addr()
				f.stage = 2
				m.push(frame{slot: addr + 1, depth: f.depth, mode: modeNorm})
				m.push(frame{slot: addr, depth: f.depth, mode: modeNorm})
			default:
				m.pop()
			}
		default:
			m.pop()
		}
	}
	return nil
}

// stepWhnf advances one weak-head frame: unfold references, follow
// substituted variables, and fire beta when an application's head is a
// lambda.
func (m *Machine) stepWhnf(f *frame, p Ptr) error {
	switch p.Tag() {
	case TagRef:
		np, err := m.copyDef(p.Addr())
		if err != nil {
			return err
		}
		m.store(f.slot, np)
	case TagVar:
		cell := m.load(p.Addr())
		if isLvl(cell) || cell == p {
			m.pop()
			return nil
		}
		m.store(f.slot, cell)
	case TagLam:
		m.pop()
	case TagApp:
		addr := p.Addr()
		if f.stage == 0 {
			f.stage = 1
			m.push(frame{slot: addr, depth: f.depth, mode: modeWhnf})
			return nil
		}
		fn := m.load(addr)
		if fn.Tag() == TagLam && !isLvl(fn) {
			lam := fn.Addr()
			if m.load(lam) != Nil {
				m.store(lam, m.load(addr+1))
			}
			m.store(f.slot, m.load(lam+1))
			m.Stats.Beta++
			f.stage = 0
			return nil
		}
		m.pop()
	default:
		m.pop()
	}
	return nil
}

// collect rebuilds the arena from the live root, path-compressing
// substituted variables, and rewrites the back-stack's cell addresses into
// the new memory.
func (m *Machine) collect() {
	old := m.Mem
	relmap := make(map[uint32]uint32)
	m.Mem = make([]Ptr, 1, len(old)/2+1)
	m.Mem[0] = m.copyLive(old, old[0], relmap)

	for i := range m.stack {
		if m.stack[i].slot == 0 {
			continue
		}
		if ns, ok := relmap[m.stack[i].slot]; ok {
			m.stack[i].slot = ns
		}
	}
	m.lastLen = len(m.Mem)
}

func (m *Machine) copyLive(old []Ptr, p Ptr, relmap map[uint32]uint32) Ptr {
	switch {
	case p == Nil, isLvl(p):
		return p
	}
	switch p.Tag() {
	case TagRef:
		return p
	case TagVar:
		cell := old[p.Addr()]
		if isLvl(cell) || cell == p {
			// still bound: the binder is an ancestor and was already
			// relocated
			return NewPtr(TagVar, relmap[p.Addr()])
		}
		return m.copyLive(old, cell, relmap)
	case TagLam:
		addr := p.Addr()
		if na, ok := relmap[addr]; ok {
			return NewPtr(TagLam, na)
		}
		na := m.allocNew(2)
		relmap[addr] = na
		relmap[addr+1] = na + 1
		cell := old[addr]
		switch {
		case cell == Nil:
			m.Mem[na] = Nil
		case isLvl(cell):
			m.Mem[na] = cell
		case cell == NewPtr(TagVar, addr):
			m.Mem[na] = NewPtr(TagVar, na)
		default:
			// substituted binder: occurrences were compressed away
			m.Mem[na] = Nil
		}
		m.Mem[na+1] = m.copyLive(old, old[addr+1], relmap)
		return NewPtr(TagLam, na)
	case TagApp:
		addr := p.Addr()
		if na, ok := relmap[addr]; ok {
			return NewPtr(TagApp, na)
		}
		na := m.allocNew(2)
		relmap[addr] = na
		relmap[addr+1] = na + 1
		m.Mem[na] = m.copyLive(old, old[addr], relmap)
		m.Mem[na+1] = m.copyLive(old, old[addr+1], relmap)
		return NewPtr(TagApp, na)
	}
	return p
}

func (m *Machine) allocNew(n int) uint32 {
	addr := uint32(len(m.Mem))
	for i := 0; i < n; i++ {
		m.Mem = append(m.Mem, Nil)
	}
	return addr
}
