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
	"io"
	"sync"
	"time"
)

// chunkedInput presents a byte-stream view of stdin assembled from inbound
// TagStdin, TagStdinEOF and TagHeartbeat chunks. A background pump (see
// worker.go) feeds it via pushData/pushHeartbeat/pushEOF/fail; Read is
// called from the handler goroutine.
//
// The read side never blocks past heartbeatTimeout past the last observed
// activity: every pushed chunk, including heartbeats, resets the activity
// clock.
type chunkedInput struct {
	mu  sync.Mutex
	buf []byte
	eof bool
	err error

	lastActivity time.Time
	timeout      time.Duration

	wake chan struct{} // buffered(1); signalled whenever state changes
}

func newChunkedInput(timeout time.Duration) *chunkedInput {
	return &chunkedInput{
		lastActivity: time.Now(),
		timeout:      timeout,
		wake:         make(chan struct{}, 1),
	}
}

func (in *chunkedInput) notify() {
	select {
	case in.wake <- struct{}{}:
	default:
	}
}

// pushData appends newly-arrived stdin bytes and resets the activity clock.
func (in *chunkedInput) pushData(b []byte) {
	in.mu.Lock()
	in.buf = append(in.buf, b...)
	in.lastActivity = time.Now()
	in.mu.Unlock()
	in.notify()
}

// pushHeartbeat resets the activity clock without adding data.
func (in *chunkedInput) pushHeartbeat() {
	in.mu.Lock()
	in.lastActivity = time.Now()
	in.mu.Unlock()
	in.notify()
}

// pushEOF marks the stream as drained once buffered data is consumed.
func (in *chunkedInput) pushEOF() {
	in.mu.Lock()
	in.eof = true
	in.mu.Unlock()
	in.notify()
}

// fail records a terminal error (connection reset, etc.) surfaced by the
// pump reading the socket.
func (in *chunkedInput) fail(err error) {
	in.mu.Lock()
	if in.err == nil {
		in.err = err
	}
	in.mu.Unlock()
	in.notify()
}

// Read implements io.Reader. It blocks until bytes are available, EOF is
// reached, a pump error is recorded, or the heartbeat timeout elapses since
// the last activity, whichever comes first.
func (in *chunkedInput) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	for {
		in.mu.Lock()
		if len(in.buf) > 0 {
			n := copy(p, in.buf)
			in.buf = in.buf[n:]
			in.mu.Unlock()
			return n, nil
		}
		if in.err != nil {
			err := in.err
			in.mu.Unlock()
			return 0, err
		}
		if in.eof {
			in.mu.Unlock()
			return 0, io.EOF
		}
		elapsed := time.Since(in.lastActivity)
		in.mu.Unlock()

		remaining := in.timeout - elapsed
		if remaining <= 0 {
			in.fail(ErrClientDisconnected)
			continue
		}

		timer := time.NewTimer(remaining)
		select {
		case <-in.wake:
			timer.Stop()
		case <-timer.C:
			// loop back around and re-check elapsed time against lastActivity;
			// a heartbeat may have raced in just before the timer fired.
		}
	}
}
