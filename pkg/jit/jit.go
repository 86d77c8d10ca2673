// Package jit compiles tapes to native machine code.
//
// A tape is lowered to a scalar program (optionally extended with
// forward-mode derivatives), registers are assigned in one pass with
// spills to a caller-provided scratch buffer, the assignment is verified
// and the result is encoded as a loop over a batch of points. The generated
// code reads only the input buffer, writes only the output buffer and the
// scratch buffer, and computes the same values as the interpreters in
// package eval.
//
// Only x86-64 code is generated. Other targets, and tapes using sin, cos,
// exp or ln, report ErrUnsupported so callers can fall back to the
// interpreter.
package jit

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/cpu"

	"github.com/LukeP0WERS/fidget/internal/logger"
	"github.com/LukeP0WERS/fidget/pkg/eval"
	"github.com/LukeP0WERS/fidget/pkg/tape"
)

var (
	// ErrUnsupported is returned for targets or ops the generator cannot
	// handle. It is recoverable: interpret the tape instead.
	ErrUnsupported = errors.New("unsupported by native code generator")
	// ErrClosed is returned when evaluating a Function after Close.
	ErrClosed = errors.New("function is closed")
)

// Arch identifies a target instruction set.
type Arch int

const (
	ArchUnknown Arch = iota
	ArchAMD64
	ArchARM64
)

func (a Arch) String() string {
	switch a {
	case ArchAMD64:
		return "amd64"
	case ArchARM64:
		return "arm64"
	default:
		return "unknown"
	}
}

// HostArch returns the architecture whose code can run in this process, or
// ArchUnknown if generated code cannot be executed here.
func HostArch() Arch {
	if runtime.GOARCH == "amd64" && cpu.X86.HasSSE2 && hostExecutable {
		return ArchAMD64
	}
	return ArchUnknown
}

// routine is one generated loop and the buffer sizes it expects.
type routine struct {
	code   []byte
	nin    int
	nout   int
	nslots int
	mem    *execMem
}

func build(t *tape.Tape, arch Arch, grad bool) (*routine, error) {
	if arch != ArchAMD64 {
		return nil, fmt.Errorf("jit: target %s: %w", arch, ErrUnsupported)
	}
	p, err := lower(t, grad)
	if err != nil {
		return nil, err
	}
	al := allocate(p)
	if err := verify(al); err != nil {
		return nil, err
	}
	return &routine{code: encodeAMD64(al), nin: al.nin, nout: al.nout, nslots: al.nslots}, nil
}

// Assemble returns machine code computing the tape's value. The code is
// position independent and can be produced on any host.
func Assemble(t *tape.Tape, arch Arch) ([]byte, error) {
	r, err := build(t, arch, false)
	if err != nil {
		return nil, err
	}
	return r.code, nil
}

// AssembleGrad returns machine code computing the tape's value followed by
// its partial derivatives.
func AssembleGrad(t *tape.Tape, arch Arch) ([]byte, error) {
	r, err := build(t, arch, true)
	if err != nil {
		return nil, err
	}
	return r.code, nil
}

// run executes the routine over n points. in holds n*nin values point
// major; out receives n*nout values.
func (r *routine) run(in, out []float64, n int) {
	scratch := make([]float64, max(r.nslots, 1))
	var inPtr unsafe.Pointer
	if len(in) > 0 {
		inPtr = unsafe.Pointer(&in[0])
	}
	r.mem.call(inPtr, unsafe.Pointer(&out[0]), unsafe.Pointer(&scratch[0]), n)
	runtime.KeepAlive(in)
	runtime.KeepAlive(out)
	runtime.KeepAlive(scratch)
}

// Info describes a compiled Function.
type Info struct {
	ValueBytes int // size of the value routine
	GradBytes  int // size of the gradient routine
	Spills     int // scratch slots used by the value routine
}

// Function is a tape compiled to native code. It may be called from many
// goroutines at once; Close must not race with calls.
type Function struct {
	tape   *tape.Tape
	nvars  int
	value  *routine
	grad   *routine
	once   sync.Once
	err    error
	closed atomic.Bool
}

// Compile generates native value and gradient routines for t. The memory
// they occupy is released by Close, or by a finalizer if Close is never
// called.
func Compile(t *tape.Tape, arch Arch) (*Function, error) {
	if host := HostArch(); arch != host {
		return nil, fmt.Errorf("jit: cannot run %s code on this host: %w", arch, ErrUnsupported)
	}
	value, err := build(t, arch, false)
	if err != nil {
		return nil, err
	}
	grad, err := build(t, arch, true)
	if err != nil {
		return nil, err
	}
	if value.mem, err = mapExec(value.code); err != nil {
		return nil, err
	}
	if grad.mem, err = mapExec(grad.code); err != nil {
		value.mem.release()
		return nil, err
	}

	f := &Function{tape: t, nvars: len(t.Vars()), value: value, grad: grad}
	runtime.SetFinalizer(f, func(f *Function) { f.Close() })
	logger.Get().Debug("jit: compiled tape",
		"records", t.Len(), "value_bytes", len(value.code), "grad_bytes", len(grad.code), "spills", value.nslots)
	return f, nil
}

// Tape returns the compiled tape.
func (f *Function) Tape() *tape.Tape { return f.tape }

// Info reports code sizes.
func (f *Function) Info() Info {
	return Info{ValueBytes: len(f.value.code), GradBytes: len(f.grad.code), Spills: f.value.nslots}
}

func (f *Function) check(n int) error {
	if f.closed.Load() {
		return fmt.Errorf("jit: eval: %w", ErrClosed)
	}
	if n < f.nvars {
		return fmt.Errorf("jit: got %d values for %d variables: %w", n, f.nvars, eval.ErrMissingVar)
	}
	return nil
}

// Eval computes the tape's value at one point.
func (f *Function) Eval(vars []float64) (float64, error) {
	if err := f.check(len(vars)); err != nil {
		return 0, err
	}
	out := make([]float64, 1)
	f.value.run(vars[:f.nvars], out, 1)
	return out[0], nil
}

// EvalBatch fills out[k] with the value at point k. Input is column major
// as for eval.BatchEval.
func (f *Function) EvalBatch(vars [][]float64, out []float64) error {
	if err := f.check(len(vars)); err != nil {
		return err
	}
	n := len(out)
	if n == 0 {
		return nil
	}
	in := make([]float64, n*f.nvars)
	for i := 0; i < f.nvars; i++ {
		col := vars[i]
		if len(col) < n {
			return fmt.Errorf("jit: column %d has %d values for %d outputs: %w", i, len(col), n, eval.ErrShortColumn)
		}
		for k := 0; k < n; k++ {
			in[k*f.nvars+i] = col[k]
		}
	}
	f.value.run(in, out, n)
	return nil
}

// EvalGrad computes the value and partial derivatives at one point.
func (f *Function) EvalGrad(vars []float64) (eval.Grad, error) {
	if err := f.check(len(vars)); err != nil {
		return eval.Grad{}, err
	}
	out := make([]float64, 1+f.nvars)
	f.grad.run(vars[:f.nvars], out, 1)
	return eval.Grad{Value: out[0], D: out[1:]}, nil
}

// Close releases the executable memory. It is safe to call more than once.
func (f *Function) Close() error {
	f.once.Do(func() {
		f.closed.Store(true)
		runtime.SetFinalizer(f, nil)
		f.err = errors.Join(f.value.mem.release(), f.grad.mem.release())
	})
	return f.err
}

// PointOrFallback returns a native evaluator for t when the host supports
// one, and the interpreter otherwise. A native result is a *Function whose
// memory is reclaimed by its finalizer; callers may Close it sooner.
func PointOrFallback(t *tape.Tape) eval.Point {
	f, err := Compile(t, HostArch())
	if err != nil {
		logger.Get().Debug("jit: interpreting tape", "records", t.Len(), "reason", err)
		return eval.NewPointEval(t)
	}
	return f
}
