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

import "errors"

var (
	// ErrProtocol is returned when a chunk violates the wire contract by
	// declaring a payload length above the configured maximum. Unknown tags
	// are ignored rather than reported with this error.
	ErrProtocol = errors.New("nailgun: protocol error")

	// ErrClientDisconnected is surfaced from a chunked input read when the
	// heartbeat timeout elapses with no client activity, or when the
	// underlying connection is reset by the peer.
	ErrClientDisconnected = errors.New("nailgun: client disconnected")

	// ErrNoSuchCommand is returned when the command name in the header
	// resolves to nothing: no alias, no raw handler identifier, no default.
	ErrNoSuchCommand = errors.New("nailgun: no such command")

	// ErrHandlerUnresolvable wraps ErrNoSuchCommand when logged, so the
	// distinction between a registry miss and other dispositions is visible
	// in server logs without changing the wire status.
	ErrHandlerUnresolvable = errors.New("nailgun: handler unresolvable")

	// ErrHandlerPanicked marks a handler invocation that was recovered from
	// a panic rather than a returned error.
	ErrHandlerPanicked = errors.New("nailgun: handler panicked")

	// ErrHandlerFailed marks a handler invocation that returned a non-nil
	// error through the normal Go error path.
	ErrHandlerFailed = errors.New("nailgun: handler failed")

	// ErrPoolShutdown is returned by Pool.Take after Pool.Shutdown has been
	// called.
	ErrPoolShutdown = errors.New("nailgun: pool is shutting down")

	// ErrPoolAtCapacity is returned by Pool.Take when the pool is configured
	// with the reject-new overflow policy and no idle worker is available.
	ErrPoolAtCapacity = errors.New("nailgun: pool at capacity")

	// ErrWorkerNotOwned is a programming error: Pool.Give was called with a
	// worker whose owning pool is a different pool.
	ErrWorkerNotOwned = errors.New("nailgun: worker not owned by pool")
)

// exitSignal is the value recovered from the panic raised by Exit. It never
// escapes the worker that invokes a handler.
type exitSignal struct {
	status int
}
