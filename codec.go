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
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"sync"
)

// Codec reads and writes chunks on one connection. A single Codec is owned
// exclusively by the worker serving that connection; reads and writes are
// never called concurrently from more than one goroutine on the read side,
// but WriteChunk is safe to call from the handler goroutine and the worker
// goroutine at once (stdout/stderr may be written from the handler while the
// worker itself writes the final exit chunk).
type Codec struct {
	r io.Reader
	w io.Writer

	wmu sync.Mutex
	bw  *bufio.Writer
}

// NewCodec wraps conn for chunk-level reads and writes.
func NewCodec(conn io.ReadWriter) *Codec {
	return &Codec{
		r:  conn,
		w:  conn,
		bw: bufio.NewWriter(conn),
	}
}

// ReadChunk reads exactly one chunk, rejecting any whose declared payload
// length exceeds maxPayload. Short reads on the underlying connection are
// returned unwrapped so callers can distinguish EOF/disconnect from a
// protocol violation.
func (c *Codec) ReadChunk(maxPayload int) (Chunk, error) {
	var hdr [chunkHeaderSize]byte
	if _, err := io.ReadFull(c.r, hdr[:]); err != nil {
		return Chunk{}, err
	}

	length := binary.BigEndian.Uint32(hdr[0:4])
	tag := Tag(hdr[4])

	if length > uint32(maxPayload) {
		return Chunk{}, fmt.Errorf("%w: chunk %q length %d exceeds max %d", ErrProtocol, tag, length, maxPayload)
	}

	var payload []byte
	if length > 0 {
		payload = make([]byte, length)
		if _, err := io.ReadFull(c.r, payload); err != nil {
			return Chunk{}, err
		}
	}

	return Chunk{Tag: tag, Payload: payload}, nil
}

// WriteChunk writes one chunk. Writes are buffered and flushed lazily,
// except TagExit which always flushes: it is the terminating frame of the
// session and nothing should be left sitting in the write buffer once it is
// sent.
func (c *Codec) WriteChunk(tag Tag, payload []byte) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()

	var hdr [chunkHeaderSize]byte
	binary.BigEndian.PutUint32(hdr[0:4], uint32(len(payload)))
	hdr[4] = byte(tag)

	if _, err := c.bw.Write(hdr[:]); err != nil {
		return err
	}
	if len(payload) > 0 {
		if _, err := c.bw.Write(payload); err != nil {
			return err
		}
	}
	if tag == TagExit {
		return c.bw.Flush()
	}
	return nil
}

// Flush forces any chunks buffered by WriteChunk onto the connection.
func (c *Codec) Flush() error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	return c.bw.Flush()
}
