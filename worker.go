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
	"fmt"
	"net"
	"runtime/debug"
	"sync/atomic"

	"github.com/hashicorp/go-hclog"
)

type workerState int32

const (
	stateIdle workerState = iota
	stateBound
	stateServing
	stateDraining
	stateTerminated
)

// Worker owns one accepted connection end-to-end: it decodes the header,
// resolves and invokes a handler, multiplexes stdio, and writes the final
// exit chunk. Workers are reused across sessions via Pool; a Worker never
// shares its connection, codec or streams with another Worker.
type Worker struct {
	id    int64
	pool  *Pool   // non-owning back-reference
	server *Server // non-owning back-reference

	state int32 // workerState, accessed atomically
}

var nextWorkerID int64

func newWorker(pool *Pool, server *Server) *Worker {
	return &Worker{
		id:     atomic.AddInt64(&nextWorkerID, 1),
		pool:   pool,
		server: server,
	}
}

func (w *Worker) setState(s workerState) {
	atomic.StoreInt32(&w.state, int32(s))
}

func (w *Worker) State() workerState {
	return workerState(atomic.LoadInt32(&w.state))
}

// Serve runs exactly one session to completion on conn: decode the header,
// resolve a handler, dispatch it with per-session stdio installed, write the
// exit chunk, and return the worker to the pool. Serve never panics; any
// handler panic is recovered and converted into the "exception" exit
// status.
func (w *Worker) Serve(conn net.Conn) {
	w.setState(stateServing)
	defer func() {
		w.setState(stateDraining)
		if err := w.pool.Give(w); err != nil {
			w.server.logger.Error("failed to return worker to pool", "worker", w.id, "error", err)
		}
	}()

	log := w.server.logger.With("worker", w.id, "remote", conn.RemoteAddr())
	codec := NewCodec(conn)

	header, err := decodeHeader(codec, w.server.maxHeaderChunk, log)
	if err != nil {
		log.Warn("failed to decode session header", "error", err)
		_ = codec.WriteChunk(TagExit, exitPayload(ExitStatusException))
		conn.Close()
		return
	}

	handler, resolvedName, ok := w.resolve(header.Command)
	if !ok {
		unresolved := fmt.Errorf("%w: %w", ErrHandlerUnresolvable, fmt.Errorf("%w: %s", ErrNoSuchCommand, header.Command))
		log.Info("no such command", "command", header.Command, "error", unresolved)
		_ = codec.WriteChunk(TagExit, exitPayload(ExitStatusNoSuchCmd))
		conn.Close()
		return
	}

	heartbeat := w.server.collaborator.HeartbeatTimeout()
	in := newChunkedInput(heartbeat)
	out := newChunkedOutput(codec, TagStdout, w.server.outputBlock)
	errOut := newChunkedOutput(codec, TagStderr, w.server.outputBlock)

	ctx := &Context{
		Args:       header.Args,
		Env:        header.Env,
		Dir:        header.Dir,
		HasDir:     header.HasDir,
		Command:    resolvedName,
		RemoteAddr: conn.RemoteAddr(),
		Stdin:      in,
		Stdout:     out,
		Stderr:     errOut,
		Server:     w.server,
	}

	w.server.router.install(&sessionStreams{Stdin: in, Stdout: out, Stderr: errOut})
	w.server.collaborator.NailStarted(resolvedName)

	pumpDone := make(chan struct{})
	go w.pumpStdin(codec, in, w.server.maxStdinChunk, pumpDone)

	status, invokeErr := w.invoke(handler, ctx, log)
	if invokeErr != nil {
		log.Error("handler returned an error", "command", resolvedName, "error", invokeErr)
	}

	out.Flush()
	errOut.Flush()
	if err := codec.WriteChunk(TagExit, exitPayload(status)); err != nil {
		log.Warn("failed to write exit chunk, connection likely already gone", "error", err)
	}
	out.close()
	errOut.close()

	conn.Close()
	<-pumpDone

	w.server.router.uninstall()
	w.server.collaborator.NailFinished(resolvedName)
}

// resolve tries, in order: alias registry, raw handler identifier (if
// enabled), then the configured default handler.
func (w *Worker) resolve(command string) (Handler, string, bool) {
	c := w.server.collaborator
	if h, ok := c.Resolve(command); ok {
		return h, command, true
	}
	if c.AllowsRawClassNames() {
		if h, ok := c.ResolveRaw(command); ok {
			return h, command, true
		}
	}
	if h, ok := c.DefaultHandler(); ok {
		return h, command, true
	}
	return nil, command, false
}

// invoke dispatches handler with ctx, recovering a panic raised by Exit (or
// any other panic, which is logged and converted to the exception status).
func (w *Worker) invoke(handler Handler, ctx *Context, log hclog.Logger) (status int, err error) {
	defer func() {
		if r := recover(); r != nil {
			if es, ok := r.(exitSignal); ok {
				status = es.status
				err = nil
				return
			}
			status = ExitStatusException
			err = fmt.Errorf("%w: %v", ErrHandlerPanicked, r)
			log.Error("recovered from handler panic", "error", err, "stack", string(debug.Stack()))
		}
	}()

	var callErr error
	switch h := handler.(type) {
	case StaticHandler:
		callErr = h(ctx.Args)
	case ContextHandler:
		callErr = h(ctx)
	default:
		callErr = fmt.Errorf("%w: unrecognized handler shape %T", ErrHandlerFailed, handler)
	}

	if callErr != nil {
		return ExitStatusException, fmt.Errorf("%w: %v", ErrHandlerFailed, callErr)
	}
	return ExitStatusOK, nil
}

// pumpStdin reads chunks from codec after the header until a TagStdinEOF
// chunk or a connection error, feeding in. It is the background reader that
// runs for the lifetime of the session regardless of whether the handler
// ever reads stdin.
func (w *Worker) pumpStdin(codec *Codec, in *chunkedInput, maxStdinChunk int, done chan<- struct{}) {
	defer close(done)
	for {
		chunk, err := codec.ReadChunk(maxStdinChunk)
		if err != nil {
			in.fail(ErrClientDisconnected)
			return
		}
		switch chunk.Tag {
		case TagStdin:
			in.pushData(chunk.Payload)
		case TagStdinEOF:
			in.pushEOF()
			return
		case TagHeartbeat:
			in.pushHeartbeat()
		default:
			// unknown post-dispatch tag: ignored without logging (unlike the
			// header, which logs unrecognized tags before ignoring them).
		}
	}
}

func exitPayload(status int) []byte {
	return []byte(fmt.Sprintf("%d\n", status))
}
