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
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/require"
)

func TestDecodeHeaderArgsEnvDirCommand(t *testing.T) {
	var buf bytes.Buffer
	c := NewCodec(&buf)

	require.NoError(t, c.WriteChunk(TagArg, []byte("env")))
	require.NoError(t, c.WriteChunk(TagEnv, []byte("FOO=bar")))
	require.NoError(t, c.WriteChunk(TagEnv, []byte("BAZ=qux")))
	require.NoError(t, c.WriteChunk(TagDir, []byte("/tmp")))
	require.NoError(t, c.WriteChunk(TagCommand, []byte("printenv")))
	require.NoError(t, c.Flush())

	h, err := decodeHeader(c, DefaultMaxHeaderChunk, hclog.NewNullLogger())
	require.NoError(t, err)
	require.Equal(t, []string{"env"}, h.Args)
	require.Equal(t, "bar", h.Env["FOO"])
	require.Equal(t, "qux", h.Env["BAZ"])
	require.Equal(t, "/tmp", h.Dir)
	require.True(t, h.HasDir)
	require.Equal(t, "printenv", h.Command)
}

func TestDecodeHeaderDuplicateEnvLastWins(t *testing.T) {
	var buf bytes.Buffer
	c := NewCodec(&buf)
	require.NoError(t, c.WriteChunk(TagEnv, []byte("FOO=first")))
	require.NoError(t, c.WriteChunk(TagEnv, []byte("FOO=second")))
	require.NoError(t, c.WriteChunk(TagCommand, []byte("cmd")))
	require.NoError(t, c.Flush())

	h, err := decodeHeader(c, DefaultMaxHeaderChunk, hclog.NewNullLogger())
	require.NoError(t, err)
	require.Equal(t, "second", h.Env["FOO"])
}

func TestDecodeHeaderDuplicateDirLastWins(t *testing.T) {
	var buf bytes.Buffer
	c := NewCodec(&buf)
	require.NoError(t, c.WriteChunk(TagDir, []byte("/first")))
	require.NoError(t, c.WriteChunk(TagDir, []byte("/second")))
	require.NoError(t, c.WriteChunk(TagCommand, []byte("cmd")))
	require.NoError(t, c.Flush())

	h, err := decodeHeader(c, DefaultMaxHeaderChunk, hclog.NewNullLogger())
	require.NoError(t, err)
	require.Equal(t, "/second", h.Dir)
}

func TestDecodeHeaderMalformedEnvIgnored(t *testing.T) {
	var buf bytes.Buffer
	c := NewCodec(&buf)
	require.NoError(t, c.WriteChunk(TagEnv, []byte("NOVALUE")))
	require.NoError(t, c.WriteChunk(TagEnv, []byte("GOOD=1")))
	require.NoError(t, c.WriteChunk(TagCommand, []byte("cmd")))
	require.NoError(t, c.Flush())

	h, err := decodeHeader(c, DefaultMaxHeaderChunk, hclog.NewNullLogger())
	require.NoError(t, err)
	require.Equal(t, map[string]string{"GOOD": "1"}, h.Env)
}

func TestDecodeHeaderUnknownTagIgnored(t *testing.T) {
	var buf bytes.Buffer
	c := NewCodec(&buf)
	require.NoError(t, c.WriteChunk(Tag('Z'), []byte("whatever")))
	require.NoError(t, c.WriteChunk(TagCommand, []byte("cmd")))
	require.NoError(t, c.Flush())

	h, err := decodeHeader(c, DefaultMaxHeaderChunk, hclog.NewNullLogger())
	require.NoError(t, err)
	require.Equal(t, "cmd", h.Command)
}

func TestDecodeHeaderAccumulatesArgsInOrder(t *testing.T) {
	var buf bytes.Buffer
	c := NewCodec(&buf)
	require.NoError(t, c.WriteChunk(TagArg, []byte("-n")))
	require.NoError(t, c.WriteChunk(TagArg, []byte("-v")))
	require.NoError(t, c.WriteChunk(TagCommand, []byte("cat")))
	require.NoError(t, c.Flush())

	h, err := decodeHeader(c, DefaultMaxHeaderChunk, hclog.NewNullLogger())
	require.NoError(t, err)
	require.Equal(t, []string{"-n", "-v"}, h.Args)
}
