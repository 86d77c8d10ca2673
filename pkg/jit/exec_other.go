//go:build !(amd64 && (linux || darwin))

package jit

import (
	"fmt"
	"runtime"
	"unsafe"
)

const hostExecutable = false

// execMem is never created on hosts that cannot run generated code.
type execMem struct{}

func mapExec([]byte) (*execMem, error) {
	return nil, fmt.Errorf("jit: executing code on %s/%s: %w", runtime.GOOS, runtime.GOARCH, ErrUnsupported)
}

func (m *execMem) call(in, out, scratch unsafe.Pointer, n int) {}

func (m *execMem) release() error { return nil }
