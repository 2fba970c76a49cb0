package unittest

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/nickbruun/zkelection/logging"
)

const stdHijackerBufferSize = 4096

// stdout/stderr hijacker.
//
// Captures everything written to stdout, stderr and the log while a test
// runs, so the output can be shown next to the test's result.
type stdHijacker struct {
	r    *os.File
	w    *os.File
	out  bytes.Buffer
	done chan struct{}

	// Guaranteed access to stdout.
	Stdout *os.File

	// Guaranteed access to stderr.
	Stderr *os.File
}

// New stdout/stderr hijacker.
func newStdHijacker() (h *stdHijacker, err error) {
	h = &stdHijacker{
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		done:   make(chan struct{}),
	}
	h.r, h.w, err = os.Pipe()
	return
}

// Hijack.
func (h *stdHijacker) Hijack() {
	if h.w == nil {
		panic("stdHijacker can only be used once")
	}

	os.Stdout = h.w
	os.Stderr = h.w
	logging.SetOutput(h.w)

	go func() {
		b := make([]byte, stdHijackerBufferSize)

		for {
			n, err := h.r.Read(b)
			h.out.Write(b[:n])

			if err == io.EOF {
				break
			} else if err != nil {
				panic(fmt.Sprintf("failed to read from stdout/stderr hijack pipe's read end: %v", err))
			}
		}

		h.r.Close()
		close(h.done)
	}()
}

// Release.
//
// Restores stdout, stderr and the log output, and waits for the captured
// output to be drained.
func (h *stdHijacker) Release() {
	if h.w == nil {
		return
	}

	logging.SetOutput(h.Stderr)
	os.Stdout = h.Stdout
	os.Stderr = h.Stderr

	h.w.Close()
	h.w = nil

	<-h.done
}

// Bytes.
//
// Combined output from stdout/stderr. Safe to access after return from
// Release.
func (h *stdHijacker) Bytes() []byte {
	return h.out.Bytes()
}
