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

// Package nailgun implements the server-side session engine of the nailgun
// protocol: a framed, length-prefixed wire format that lets a thin client
// process hand its argv, environment, working directory and stdin to a
// long-running daemon and get back stdout, stderr and an exit status, as if
// it had forked a local process.
package nailgun

import "fmt"

// Tag identifies the kind of payload carried by a chunk. Tags are part of
// the wire contract; changing their byte values breaks compatibility with
// existing clients.
type Tag byte

const (
	TagArg       Tag = 'A' // argument, client->server, pre-dispatch
	TagEnv       Tag = 'E' // KEY=VALUE environment entry, client->server, pre-dispatch
	TagDir       Tag = 'D' // working directory, client->server, pre-dispatch
	TagCommand   Tag = 'C' // command name, client->server, ends the header
	TagStdin     Tag = '0' // stdin bytes, client->server, post-dispatch
	TagStdinEOF  Tag = '.' // zero-length stdin-closed marker, client->server
	TagHeartbeat Tag = 'H' // zero-length keepalive, client->server
	TagStdout    Tag = '1' // stdout bytes, server->client
	TagStderr    Tag = '2' // stderr bytes, server->client
	TagExit      Tag = 'X' // "<status>\n", server->client, always last
)

func (t Tag) String() string {
	return string(rune(t))
}

// Chunk is the atomic wire unit: a 32-bit big-endian length, a one byte tag,
// and exactly that many payload bytes. No framing exists beyond this;
// chunks are simply concatenated on the stream.
type Chunk struct {
	Tag     Tag
	Payload []byte
}

// chunkHeaderSize is the length of the length+tag prefix in front of every
// chunk's payload.
const chunkHeaderSize = 5

// Default size limits, see DefaultMaxHeaderChunk and DefaultMaxStdinChunk.
const (
	DefaultMaxHeaderChunk = 64 * 1024        // header chunks: args, env, dir, command
	DefaultMaxStdinChunk  = 2 * 1024 * 1024  // stdin chunks once dispatched
	DefaultOutputBlock    = 64 * 1024        // chunked output stream batching size
	DefaultHeartbeatMs    = 10000            // heartbeat timeout, milliseconds
	ExitStatusOK        = 0
	ExitStatusException = 1   // documented "exception" status
	ExitStatusNoSuchCmd = 127 // distinct from ExitStatusException, shell "command not found" convention
)

var errChunkTooLarge = fmt.Errorf("%w: chunk payload exceeds configured maximum", ErrProtocol)
