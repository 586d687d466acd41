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
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCodecRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	c := NewCodec(&buf)

	require.NoError(t, c.WriteChunk(TagArg, []byte("hello")))
	require.NoError(t, c.WriteChunk(TagStdinEOF, nil))
	require.NoError(t, c.Flush())

	got, err := c.ReadChunk(DefaultMaxHeaderChunk)
	require.NoError(t, err)
	require.Equal(t, TagArg, got.Tag)
	require.Equal(t, []byte("hello"), got.Payload)

	got, err = c.ReadChunk(DefaultMaxHeaderChunk)
	require.NoError(t, err)
	require.Equal(t, TagStdinEOF, got.Tag)
	require.Empty(t, got.Payload)
}

func TestCodecExitChunkAlwaysFlushes(t *testing.T) {
	var buf bytes.Buffer
	c := NewCodec(&buf)

	require.NoError(t, c.WriteChunk(TagExit, []byte("0\n")))
	// No explicit Flush call: TagExit must have flushed on its own.
	require.Equal(t, 5+2, buf.Len())
}

func TestCodecRejectsOversizeChunk(t *testing.T) {
	var buf bytes.Buffer
	c := NewCodec(&buf)
	require.NoError(t, c.WriteChunk(TagArg, make([]byte, 128)))

	_, err := c.ReadChunk(64)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrProtocol))
}

func TestCodecShortReadPropagates(t *testing.T) {
	c := NewCodec(&shortReader{})
	_, err := c.ReadChunk(DefaultMaxHeaderChunk)
	require.Error(t, err)
}

// shortReader returns io.EOF immediately, simulating a peer that closes the
// connection before a full chunk header arrives.
type shortReader struct{}

func (shortReader) Read(p []byte) (int, error) { return 0, io.EOF }
func (shortReader) Write(p []byte) (int, error) { return len(p), nil }
