//go:build amd64 && (linux || darwin)

package jit

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

const hostExecutable = true

// callCode calls generated code with RDI=in, RSI=out, RDX=scratch and
// RCX=n. Implemented in call_amd64.s.
func callCode(code, in, out, scratch unsafe.Pointer, n int)

// execMem is a read-only executable mapping holding generated code.
type execMem struct {
	mem []byte
}

func mapExec(code []byte) (*execMem, error) {
	page := unix.Getpagesize()
	size := (len(code) + page - 1) / page * page
	mem, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, fmt.Errorf("jit: mmap %d bytes: %w", size, err)
	}
	copy(mem, code)
	if err := unix.Mprotect(mem, unix.PROT_READ|unix.PROT_EXEC); err != nil {
		unix.Munmap(mem)
		return nil, fmt.Errorf("jit: mprotect: %w", err)
	}
	return &execMem{mem: mem}, nil
}

func (m *execMem) call(in, out, scratch unsafe.Pointer, n int) {
	callCode(unsafe.Pointer(&m.mem[0]), in, out, scratch, n)
}

func (m *execMem) release() error {
	if err := unix.Munmap(m.mem); err != nil {
		return fmt.Errorf("jit: munmap: %w", err)
	}
	return nil
}
