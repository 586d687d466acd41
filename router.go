// MIT License
//
// Copyright (c) 2024 The Nailgun Authors
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package nailgun

import (
	"bytes"
	"io"
	"runtime"
	"strconv"
	"sync"
)

// sessionStreams is the triple of streams a worker binds into the router
// for the lifetime of one session.
type sessionStreams struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// streamRouter gives every concurrently-serving worker the illusion that it
// owns the single host-wide stdin/stdout/stderr triple. Go has no ambient
// thread-local storage, so the binding is keyed by the calling goroutine's
// runtime identifier instead of a thread id; a worker serves exactly one
// session per goroutine for the lifetime of that session, so the identity
// is stable for install/uninstall pairs. This exists only for legacy
// static-entry handlers (func([]string) error) which have no Context to
// read stdio from directly; context handlers should prefer ctx.Stdin /
// ctx.Stdout / ctx.Stderr and never touch the router.
type streamRouter struct {
	mu       sync.RWMutex
	bindings map[int64]*sessionStreams

	defaultIn  io.Reader
	defaultOut io.Writer
	defaultErr io.Writer
}

func newStreamRouter(defaultIn io.Reader, defaultOut, defaultErr io.Writer) *streamRouter {
	return &streamRouter{
		bindings:   make(map[int64]*sessionStreams),
		defaultIn:  defaultIn,
		defaultOut: defaultOut,
		defaultErr: defaultErr,
	}
}

// install binds the calling goroutine's identity to s. O(1).
func (r *streamRouter) install(s *sessionStreams) {
	id := goroutineID()
	r.mu.Lock()
	r.bindings[id] = s
	r.mu.Unlock()
}

// uninstall removes the calling goroutine's binding, if any. Writes and
// reads from this goroutine afterwards fall back to the configured
// defaults. O(1).
func (r *streamRouter) uninstall() {
	id := goroutineID()
	r.mu.Lock()
	delete(r.bindings, id)
	r.mu.Unlock()
}

func (r *streamRouter) current() *sessionStreams {
	id := goroutineID()
	r.mu.RLock()
	s := r.bindings[id]
	r.mu.RUnlock()
	return s
}

// Stdin returns the stdin bound to the calling goroutine, or the default.
func (r *streamRouter) Stdin() io.Reader {
	if s := r.current(); s != nil {
		return s.Stdin
	}
	return r.defaultIn
}

// Stdout returns the stdout bound to the calling goroutine, or the default.
func (r *streamRouter) Stdout() io.Writer {
	if s := r.current(); s != nil {
		return s.Stdout
	}
	return r.defaultOut
}

// Stderr returns the stderr bound to the calling goroutine, or the default.
func (r *streamRouter) Stderr() io.Writer {
	if s := r.current(); s != nil {
		return s.Stderr
	}
	return r.defaultErr
}

// goroutineID extracts the numeric goroutine id from the runtime's stack
// trace header ("goroutine 123 [running]: ..."). It is a well known, if
// unofficial, stand-in for thread-local storage in Go; it is only ever used
// here to key the stdio router, never for scheduling decisions.
func goroutineID() int64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	b := buf[:n]

	const prefix = "goroutine "
	if !bytes.HasPrefix(b, []byte(prefix)) {
		return 0
	}
	b = b[len(prefix):]

	end := bytes.IndexByte(b, ' ')
	if end < 0 {
		return 0
	}

	id, err := strconv.ParseInt(string(b[:end]), 10, 64)
	if err != nil {
		return 0
	}
	return id
}
