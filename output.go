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

import "sync"

// chunkedOutput is a write-through stream that wraps bytes written to it
// into chunks of a fixed tag (TagStdout or TagStderr), batching up to
// blockSize bytes per chunk. Close does not emit anything; the session's
// exit is always signalled explicitly by the worker writing a TagExit
// chunk.
type chunkedOutput struct {
	mu        sync.Mutex
	codec     *Codec
	tag       Tag
	blockSize int
	buf       []byte
	closed    bool
}

func newChunkedOutput(codec *Codec, tag Tag, blockSize int) *chunkedOutput {
	return &chunkedOutput{
		codec:     codec,
		tag:       tag,
		blockSize: blockSize,
	}
}

// Write implements io.Writer. Writes after the stream is closed (i.e. after
// the session's exit chunk has been sent) are discarded rather than
// erroring.
func (o *chunkedOutput) Write(p []byte) (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return len(p), nil
	}

	total := len(p)
	o.buf = append(o.buf, p...)
	for len(o.buf) >= o.blockSize {
		if err := o.codec.WriteChunk(o.tag, o.buf[:o.blockSize]); err != nil {
			return total - len(p), err
		}
		o.buf = o.buf[o.blockSize:]
		p = nil
	}
	return total, nil
}

// Flush emits a chunk for any partially-filled batch, even if it is smaller
// than blockSize.
func (o *chunkedOutput) Flush() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed || len(o.buf) == 0 {
		return nil
	}
	err := o.codec.WriteChunk(o.tag, o.buf)
	o.buf = o.buf[:0]
	return err
}

// close marks the stream closed: subsequent writes are silently discarded.
// Called once the worker has written the session's exit chunk.
func (o *chunkedOutput) close() {
	o.mu.Lock()
	o.closed = true
	o.buf = nil
	o.mu.Unlock()
}
