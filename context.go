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
	"net"
)

// Context is the session context delivered to a Contextual handler: the
// decoded argument vector, environment, working directory, command name,
// the remote peer (where the transport exposes one), and the per-session
// stdio streams the handler should read and write instead of the process's
// global os.Stdin/os.Stdout/os.Stderr.
type Context struct {
	Args       []string
	Env        map[string]string
	Dir        string
	HasDir     bool
	Command    string
	RemoteAddr net.Addr

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// Server is a non-owning back-reference for handler introspection,
	// e.g. to read server-wide configuration.
	Server *Server
}

// Handler is a tagged variant sealed to StaticHandler and ContextHandler,
// the two accepted handler shapes. Dispatch is a type switch against this
// interface rather than reflection.
type Handler interface {
	isHandler()
}

// StaticHandler is handler shape 1: an entry point taking only the ordered
// argument vector. Static handlers have no Context and must use the
// process-wide stream router (see Server.Stdin/Stdout/Stderr) if they need
// to read or write outside of the return value.
type StaticHandler func(args []string) error

func (StaticHandler) isHandler() {}

// ContextHandler is handler shape 2: an entry point taking the full session
// Context. The worker prefers this shape when a registered Handler supports
// both (in practice, registration only ever associates one concrete
// function value with a name, so preference is enforced by registration
// order: registering a ContextHandler under a name that also has a
// StaticHandler replaces it).
type ContextHandler func(ctx *Context) error

func (ContextHandler) isHandler() {}

// Exit raises a recoverable exit signal carrying status, equivalent to the
// reference's process-exit interception: a handler calls Exit instead of
// os.Exit, and the worker's recover converts the panic into the session's
// exit chunk. Exit never returns.
func Exit(status int) {
	panic(exitSignal{status: status})
}
