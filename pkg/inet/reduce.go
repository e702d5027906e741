package inet

// Reduce drains the redex list to a fixpoint: every active pair fires,
// whether or not it is reachable from the root.
func (n *Net) Reduce() error {
	for len(n.Redex) > 0 {
		addr := n.Redex[len(n.Redex)-1]
		n.Redex = n.Redex[:len(n.Redex)-1]
		n.Stats.Loops++
		if !n.active(addr) {
			continue
		}
		if err := n.Rewrite(addr); err != nil {
			return err
		}
	}
	return nil
}

// ReduceLazy walks principal ports from the root, firing only the redexes
// on the demanded path, matching the graph runtime's call-by-need order.
// Sub-structure behind a head constructor is scheduled after its head
// settles.
func (n *Net) ReduceLazy() error {
	queue := []uint32{port(n.root, 0)}
	enqueued := map[uint32]bool{queue[0]: true}

	enqueue := func(p uint32) {
		if !enqueued[p] {
			enqueued[p] = true
			queue = append(queue, p)
		}
	}

	for len(queue) > 0 {
		start := queue[0]
		queue = queue[1:]
		if n.freed(addrOf(start)) {
			continue
		}
		spine, err := n.whnfWalk(start)
		if err != nil {
			return err
		}

		head := n.enter(addrOf(start), slotOf(start))
		if !head.num && slotOf(head.word) == 0 {
			a := addrOf(head.word)
			switch n.typOf(a) {
			case NOD:
				if n.kindOf(a) == 0 {
					// lambda: demand its body
					enqueue(port(a, 2))
				} else {
					enqueue(port(a, 1))
					enqueue(port(a, 2))
				}
			}
		}

		// neutral spine members keep un-demanded arguments; schedule them
		for _, s := range spine {
			if n.freed(s.addr) {
				continue
			}
			switch n.typOf(s.addr) {
			case NOD:
				if n.kindOf(s.addr) == 0 && s.slot == 2 {
					enqueue(port(s.addr, 1))
				}
			case OP2:
				enqueue(port(s.addr, 1))
			case ITE:
				pairW := n.enter(s.addr, 1)
				if !pairW.num {
					pair := addrOf(pairW.word)
					enqueue(port(pair, 1))
					enqueue(port(pair, 2))
				}
			}
		}
	}
	return nil
}

// spineEntry records a node the weak-head walk passed through via an aux
// port; its remaining aux structure is normalized later.
type spineEntry struct {
	addr uint32
	slot uint32
}

// whnfWalk reduces the path hanging off one port to weak head form. back
// holds the ports we descended from, so a rewrite can resume one level up
// with the rewired net.
func (n *Net) whnfWalk(start uint32) ([]spineEntry, error) {
	var back []uint32
	var spine []spineEntry
	prev := start

	for {
		n.Stats.Loops++
		next := n.enter(addrOf(prev), slotOf(prev))

		if next.num {
			if slotOf(prev) == 0 && addrOf(prev) != n.root && prev != start {
				node := addrOf(prev)
				if err := n.Rewrite(node); err != nil {
					return nil, err
				}
				if len(back) == 0 {
					prev = start
				} else {
					prev = back[len(back)-1]
					back = back[:len(back)-1]
				}
				continue
			}
			// a scalar surfaced at the demanded port
			return spine, nil
		}

		a, s := addrOf(next.word), slotOf(next.word)

		if s == 0 {
			if slotOf(prev) == 0 && addrOf(prev) != n.root && prev != start {
				if err := n.Rewrite(addrOf(prev)); err != nil {
					return nil, err
				}
				if len(back) == 0 {
					prev = start
				} else {
					prev = back[len(back)-1]
					back = back[:len(back)-1]
				}
				continue
			}
			// head constructor reached
			return spine, nil
		}

		if s == 1 && n.typOf(a) == NOD && n.kindOf(a) == 0 {
			// a lambda's variable port: the path is neutral
			return spine, nil
		}

		// arrived at an aux port: resolve that node's principal first
		spine = append(spine, spineEntry{addr: a, slot: s})
		back = append(back, prev)
		prev = port(a, 0)
	}
}
