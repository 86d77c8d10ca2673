package jit

import (
	"fmt"
	"math"
	"sort"
)

// xmm is an SSE register number.
type xmm uint8

const (
	// numAlloc registers (XMM0..XMM12) hold program values.
	numAlloc = 13
	// XMM13 and XMM14 are scratch for multi-instruction sequences. XMM15
	// is never touched.
	scratchA xmm = 13
	scratchB xmm = 14
)

// mop is a machine-level operation with physical locations.
type mop uint8

const (
	mLoad   mop = iota // dst ← in[idx]
	mConst             // dst ← imm
	mReload            // dst ← scratch[idx]
	mSpill             // scratch[idx] ← src[0]
	mStore             // out[idx] ← src[0]
	mAdd
	mSub
	mMul
	mDiv
	mMin
	mMax
	mNeg
	mAbs
	mSqrt
	mSelect
)

var vopToMop = map[vop]mop{
	vAdd: mAdd, vSub: mSub, vMul: mMul, vDiv: mDiv, vMin: mMin, vMax: mMax,
	vNeg: mNeg, vAbs: mAbs, vSqrt: mSqrt, vSelect: mSelect,
}

// minst is an allocated instruction. args names the program values the
// source registers must hold; val is the value written to dst (or, for a
// spill, the value stored).
type minst struct {
	op   mop
	dst  xmm
	src  [4]xmm
	nsrc int
	imm  float64
	idx  int
	val  int
	args [4]int
}

// allocated is a program after register allocation.
type allocated struct {
	code   []minst
	nin    int
	nout   int
	nslots int
}

type allocator struct {
	p     *program
	uses  [][]int // per value, increasing positions of live uses
	reg   []int   // per value: register or -1
	slot  []int   // per value: spill slot or -1
	holds [numAlloc]int
	free  []int // released spill slots
	out   allocated
}

// allocate assigns registers in a single forward pass. When every register
// is taken, the value whose next use is farthest away is spilled to the
// scratch buffer. Instructions whose values are never used are dropped.
func allocate(p *program) *allocated {
	n := len(p.insts)
	a := &allocator{
		p:    p,
		uses: make([][]int, n),
		reg:  make([]int, n),
		slot: make([]int, n),
		out:  allocated{nin: p.nin, nout: p.nout},
	}
	for i := range a.reg {
		a.reg[i], a.slot[i] = -1, -1
	}
	for r := range a.holds {
		a.holds[r] = -1
	}

	live := make([]bool, n)
	for i := n - 1; i >= 0; i-- {
		in := p.insts[i]
		if in.op == vStore {
			live[i] = true
		}
		if !live[i] {
			continue
		}
		for _, arg := range in.args[:in.op.arity()] {
			live[arg] = true
		}
	}
	for i, in := range p.insts {
		if !live[i] {
			continue
		}
		for _, arg := range distinct(in) {
			a.uses[arg] = append(a.uses[arg], i)
		}
	}

	for i, in := range p.insts {
		if live[i] {
			a.step(i, in)
		}
	}
	return &a.out
}

// distinct returns an instruction's operands without repeats.
func distinct(in inst) []int {
	var out []int
	for _, arg := range in.args[:in.op.arity()] {
		dup := false
		for _, seen := range out {
			dup = dup || seen == arg
		}
		if !dup {
			out = append(out, arg)
		}
	}
	return out
}

func (a *allocator) nextUse(v, from int) int {
	u := a.uses[v]
	k := sort.SearchInts(u, from)
	if k == len(u) {
		return math.MaxInt
	}
	return u[k]
}

func (a *allocator) lastUse(v int) int {
	u := a.uses[v]
	if len(u) == 0 {
		return -1
	}
	return u[len(u)-1]
}

func (a *allocator) emit(m minst) { a.out.code = append(a.out.code, m) }

// grab returns a free register, spilling the value with the farthest next
// use if none is free. Pinned registers are never chosen.
func (a *allocator) grab(at int, pinned *[numAlloc]bool) xmm {
	victim, far := -1, -1
	for r := 0; r < numAlloc; r++ {
		if pinned[r] {
			continue
		}
		if a.holds[r] < 0 {
			return xmm(r)
		}
		if nu := a.nextUse(a.holds[r], at); nu > far {
			victim, far = r, nu
		}
	}
	v := a.holds[victim]
	if far != math.MaxInt && a.slot[v] < 0 {
		a.slot[v] = a.newSlot()
		a.emit(minst{op: mSpill, src: [4]xmm{xmm(victim)}, nsrc: 1, idx: a.slot[v], val: v, args: [4]int{v}})
	}
	a.reg[v] = -1
	a.holds[victim] = -1
	return xmm(victim)
}

func (a *allocator) newSlot() int {
	if k := len(a.free); k > 0 {
		s := a.free[k-1]
		a.free = a.free[:k-1]
		return s
	}
	s := a.out.nslots
	a.out.nslots++
	return s
}

func (a *allocator) bind(v int, r xmm) {
	a.reg[v] = int(r)
	a.holds[r] = v
}

func (a *allocator) step(i int, in inst) {
	if in.op != vStore && len(a.uses[i]) == 0 {
		return
	}

	var pinned [numAlloc]bool
	for _, arg := range distinct(in) {
		if a.reg[arg] >= 0 {
			pinned[a.reg[arg]] = true
		}
	}
	for _, arg := range distinct(in) {
		if a.reg[arg] < 0 {
			r := a.grab(i, &pinned)
			a.emit(minst{op: mReload, dst: r, idx: a.slot[arg], val: arg})
			a.bind(arg, r)
		}
		pinned[a.reg[arg]] = true
	}

	m := minst{idx: in.idx, imm: in.imm, val: i, nsrc: in.op.arity()}
	for k := 0; k < m.nsrc; k++ {
		m.args[k] = in.args[k]
		m.src[k] = xmm(a.reg[in.args[k]])
	}

	// Operands at their last use free their register for the result.
	for _, arg := range distinct(in) {
		if a.lastUse(arg) == i {
			r := a.reg[arg]
			pinned[r] = false
			a.holds[r] = -1
			a.reg[arg] = -1
			if a.slot[arg] >= 0 {
				a.free = append(a.free, a.slot[arg])
			}
		}
	}

	switch in.op {
	case vStore:
		m.op = mStore
		m.val = in.args[0]
		a.emit(m)
		return
	case vInput:
		m.op = mLoad
	case vConst:
		m.op = mConst
	default:
		m.op = vopToMop[in.op]
	}
	m.dst = a.grab(i, &pinned)
	a.emit(m)
	a.bind(i, m.dst)
}

// verify replays an allocated program and checks that every instruction
// reads registers and spill slots holding the values it expects, that no
// value is read before it is produced, and that every memory access stays
// inside the input, output and scratch buffers.
func verify(al *allocated) error {
	var regs [numAlloc]int
	for r := range regs {
		regs[r] = -1
	}
	slots := make([]int, al.nslots)
	for s := range slots {
		slots[s] = -1
	}

	for k, m := range al.code {
		for j := 0; j < m.nsrc; j++ {
			r := m.src[j]
			if r >= numAlloc {
				return fmt.Errorf("jit: verify: inst %d reads reserved register %d", k, r)
			}
			if regs[r] != m.args[j] {
				return fmt.Errorf("jit: verify: inst %d expects value %d in xmm%d, found %d", k, m.args[j], r, regs[r])
			}
		}
		switch m.op {
		case mSpill:
			if m.idx < 0 || m.idx >= al.nslots {
				return fmt.Errorf("jit: verify: inst %d spills to slot %d of %d", k, m.idx, al.nslots)
			}
			slots[m.idx] = m.args[0]
			continue
		case mStore:
			if m.idx < 0 || m.idx >= al.nout {
				return fmt.Errorf("jit: verify: inst %d stores output %d of %d", k, m.idx, al.nout)
			}
			continue
		case mReload:
			if m.idx < 0 || m.idx >= al.nslots {
				return fmt.Errorf("jit: verify: inst %d reloads slot %d of %d", k, m.idx, al.nslots)
			}
			if slots[m.idx] != m.val {
				return fmt.Errorf("jit: verify: inst %d reloads value %d from slot %d holding %d", k, m.val, m.idx, slots[m.idx])
			}
		case mLoad:
			if m.idx < 0 || m.idx >= al.nin {
				return fmt.Errorf("jit: verify: inst %d loads input %d of %d", k, m.idx, al.nin)
			}
		}
		if m.dst >= numAlloc {
			return fmt.Errorf("jit: verify: inst %d writes reserved register %d", k, m.dst)
		}
		regs[m.dst] = m.val
	}
	return nil
}
