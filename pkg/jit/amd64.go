package jit

import (
	"encoding/binary"
	"math"
)

// gpr is a general purpose register number.
type gpr uint8

// Registers used by generated code. RAX is scratch for immediates; the
// rest carry the call arguments.
const (
	rax gpr = 0
	rcx gpr = 1 // remaining point count
	rdx gpr = 2 // scratch buffer for spills
	rsi gpr = 6 // output cursor
	rdi gpr = 7 // input cursor
)

// SSE opcode bytes following the 0F escape.
const (
	opMovsdLoad  = 0x10 // F2: MOVSD xmm, m64
	opMovsdStore = 0x11 // F2: MOVSD m64, xmm
	opMovapd     = 0x28 // 66: MOVAPD xmm, xmm
	opSqrt       = 0x51 // F2: SQRTSD
	opAnd        = 0x54 // 66: ANDPD
	opAndn       = 0x55 // 66: ANDNPD
	opOr         = 0x56 // 66: ORPD
	opXor        = 0x57 // 66: XORPD
	opAdd        = 0x58 // F2: ADDSD
	opMul        = 0x59 // F2: MULSD
	opSub        = 0x5C // F2: SUBSD
	opMin        = 0x5D // F2: MINSD
	opDiv        = 0x5E // F2: DIVSD
	opMax        = 0x5F // F2: MAXSD
	opMovq       = 0x6E // 66 REX.W: MOVQ xmm, r64
	opCmp        = 0xC2 // F2: CMPSD xmm, xmm, imm8

	prefixSD = 0xF2 // scalar double
	prefixPD = 0x66 // packed double

	cmpLT    = 1
	cmpUnord = 3

	signBit = 1 << 63
)

type amd64 struct {
	buf []byte
}

func (e *amd64) emit(b ...byte) { e.buf = append(e.buf, b...) }

func (e *amd64) u32(v uint32) { e.buf = binary.LittleEndian.AppendUint32(e.buf, v) }

func (e *amd64) u64(v uint64) { e.buf = binary.LittleEndian.AppendUint64(e.buf, v) }

// rex builds a REX prefix, or returns 0 when none is needed.
func rex(w, r, b bool) byte {
	var x byte
	if w {
		x |= 0x08
	}
	if r {
		x |= 0x04
	}
	if b {
		x |= 0x01
	}
	if x != 0 {
		x |= 0x40
	}
	return x
}

// sse emits prefix [REX] 0F op with a register-direct ModRM.
func (e *amd64) sse(prefix, op byte, reg, rm xmm) {
	e.emit(prefix)
	if x := rex(false, reg >= 8, rm >= 8); x != 0 {
		e.emit(x)
	}
	e.emit(0x0F, op, 0xC0|byte(reg&7)<<3|byte(rm&7))
}

// sseMem emits prefix [REX] 0F op with a [base + disp32] operand. The bases
// used here (RDI, RSI, RDX) need neither a SIB byte nor special casing.
func (e *amd64) sseMem(prefix, op byte, reg xmm, base gpr, disp int32) {
	e.emit(prefix)
	if x := rex(false, reg >= 8, base >= 8); x != 0 {
		e.emit(x)
	}
	e.emit(0x0F, op, 0x80|byte(reg&7)<<3|byte(base&7))
	e.u32(uint32(disp))
}

func (e *amd64) movsdLoad(dst xmm, base gpr, disp int32) {
	e.sseMem(prefixSD, opMovsdLoad, dst, base, disp)
}

func (e *amd64) movsdStore(base gpr, disp int32, src xmm) {
	e.sseMem(prefixSD, opMovsdStore, src, base, disp)
}

func (e *amd64) movapd(dst, src xmm) {
	if dst != src {
		e.sse(prefixPD, opMovapd, dst, src)
	}
}

func (e *amd64) cmpsd(dst, src xmm, pred byte) {
	e.sse(prefixSD, opCmp, dst, src)
	e.emit(pred)
}

// loadImm materializes raw bits in an XMM register through RAX.
func (e *amd64) loadImm(dst xmm, bits uint64) {
	e.emit(0x48, 0xB8) // MOV RAX, imm64
	e.u64(bits)
	e.emit(prefixPD, rex(true, dst >= 8, false), 0x0F, opMovq, 0xC0|byte(dst&7)<<3|byte(rax))
}

// arith emits dst = a op b for a scalar SSE op, which overwrites its
// first operand.
func (e *amd64) arith(op byte, commutative bool, dst, a, b xmm) {
	switch {
	case dst == a:
		e.sse(prefixSD, op, dst, b)
	case dst == b && commutative:
		e.sse(prefixSD, op, dst, a)
	case dst == b:
		e.movapd(scratchA, a)
		e.sse(prefixSD, op, scratchA, b)
		e.movapd(dst, scratchA)
	default:
		e.movapd(dst, a)
		e.sse(prefixSD, op, dst, b)
	}
}

// minmax emits MINSD/MAXSD with an unordered mask ORed in, so a NaN in
// either operand produces NaN. Ties return b.
func (e *amd64) minmax(op byte, dst, a, b xmm) {
	e.movapd(scratchA, a)
	e.cmpsd(scratchA, b, cmpUnord)
	e.movapd(scratchB, a)
	e.sse(prefixSD, op, scratchB, b)
	e.sse(prefixPD, opOr, scratchB, scratchA)
	e.movapd(dst, scratchB)
}

// selectLess emits dst = p < q ? x : y without branching.
func (e *amd64) selectLess(dst, p, q, x, y xmm) {
	e.movapd(scratchA, p)
	e.cmpsd(scratchA, q, cmpLT)
	e.movapd(scratchB, scratchA)
	e.sse(prefixPD, opAnd, scratchB, x)
	e.sse(prefixPD, opAndn, scratchA, y)
	e.sse(prefixPD, opOr, scratchA, scratchB)
	e.movapd(dst, scratchA)
}

// mask emits dst = a with a bitwise op against a constant.
func (e *amd64) mask(op byte, bits uint64, dst, a xmm) {
	e.loadImm(scratchA, bits)
	e.movapd(dst, a)
	e.sse(prefixPD, op, dst, scratchA)
}

func (e *amd64) inst(m minst) {
	s := m.src
	switch m.op {
	case mLoad:
		e.movsdLoad(m.dst, rdi, int32(8*m.idx))
	case mConst:
		e.loadImm(m.dst, math.Float64bits(m.imm))
	case mReload:
		e.movsdLoad(m.dst, rdx, int32(8*m.idx))
	case mSpill:
		e.movsdStore(rdx, int32(8*m.idx), s[0])
	case mStore:
		e.movsdStore(rsi, int32(8*m.idx), s[0])
	case mAdd:
		e.arith(opAdd, true, m.dst, s[0], s[1])
	case mSub:
		e.arith(opSub, false, m.dst, s[0], s[1])
	case mMul:
		e.arith(opMul, true, m.dst, s[0], s[1])
	case mDiv:
		e.arith(opDiv, false, m.dst, s[0], s[1])
	case mMin:
		e.minmax(opMin, m.dst, s[0], s[1])
	case mMax:
		e.minmax(opMax, m.dst, s[0], s[1])
	case mNeg:
		e.mask(opXor, signBit, m.dst, s[0])
	case mAbs:
		e.mask(opAnd, ^uint64(signBit), m.dst, s[0])
	case mSqrt:
		e.sse(prefixSD, opSqrt, m.dst, s[0])
	case mSelect:
		e.selectLess(m.dst, s[0], s[1], s[2], s[3])
	}
}

// encodeAMD64 wraps the allocated body in a loop over RCX points:
//
//	top:  TEST RCX, RCX
//	      JZ   done
//	      <body>
//	      ADD  RDI, 8*nin
//	      ADD  RSI, 8*nout
//	      DEC  RCX
//	      JMP  top
//	done: RET
func encodeAMD64(al *allocated) []byte {
	e := &amd64{}
	e.emit(0x48, 0x85, 0xC9) // TEST RCX, RCX
	e.emit(0x0F, 0x84)       // JZ rel32
	fixup := len(e.buf)
	e.u32(0)

	for _, m := range al.code {
		e.inst(m)
	}

	if al.nin > 0 {
		e.emit(0x48, 0x81, 0xC0|byte(rdi)) // ADD RDI, imm32
		e.u32(uint32(8 * al.nin))
	}
	e.emit(0x48, 0x81, 0xC0|byte(rsi)) // ADD RSI, imm32
	e.u32(uint32(8 * al.nout))
	e.emit(0x48, 0xFF, 0xC9) // DEC RCX
	e.emit(0xE9)             // JMP rel32
	e.u32(uint32(int32(-(len(e.buf) + 4))))

	binary.LittleEndian.PutUint32(e.buf[fixup:], uint32(int32(len(e.buf)-(fixup+4))))
	e.emit(0xC3) // RET
	return e.buf
}
