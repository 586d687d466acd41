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
	"os"
	"time"

	"github.com/hashicorp/go-hclog"
)

// Collaborator is the embedding interface consumed by the core from the
// server's host application: the command registry and the lifecycle hooks.
// A real deployment implements this once (see internal/registry for a
// concrete adapter) and passes it to NewServer.
type Collaborator interface {
	// Resolve looks up name in the alias registry.
	Resolve(name string) (Handler, bool)
	// ResolveRaw looks up name as a fully qualified handler identifier,
	// consulted only when AllowsRawClassNames is true.
	ResolveRaw(name string) (Handler, bool)
	// AllowsRawClassNames reports whether unresolved alias lookups may
	// fall back to ResolveRaw.
	AllowsRawClassNames() bool
	// DefaultHandler is consulted when neither Resolve nor ResolveRaw
	// found anything.
	DefaultHandler() (Handler, bool)
	// HeartbeatTimeout bounds how long a stdin read may go without any
	// client activity before the session is torn down as disconnected.
	HeartbeatTimeout() time.Duration
	// NailStarted and NailFinished are lifecycle hooks invoked as a
	// matched pair around every handler invocation, in that order.
	NailStarted(name string)
	NailFinished(name string)
}

// Config configures a Server beyond its Collaborator.
type Config struct {
	Pool            PoolConfig
	MaxHeaderChunk  int
	MaxStdinChunk   int
	OutputBlockSize int

	// Logger receives structured server, pool and session log lines. If
	// nil, a default hclog.Logger named "nailgun" is used.
	Logger hclog.Logger
}

func (c Config) withDefaults() Config {
	if c.MaxHeaderChunk <= 0 {
		c.MaxHeaderChunk = DefaultMaxHeaderChunk
	}
	if c.MaxStdinChunk <= 0 {
		c.MaxStdinChunk = DefaultMaxStdinChunk
	}
	if c.OutputBlockSize <= 0 {
		c.OutputBlockSize = DefaultOutputBlock
	}
	if c.Pool.Capacity <= 0 {
		c.Pool.Capacity = 1
	}
	if c.Pool.IdleHighWater <= 0 {
		c.Pool.IdleHighWater = c.Pool.Capacity
	}
	if c.Logger == nil {
		c.Logger = hclog.New(&hclog.LoggerOptions{Name: "nailgun", Level: hclog.Info})
	}
	return c
}

// Server ties together the pool, the stream router and the host's
// Collaborator to accept connections and run sessions. A Server does not
// own the listener: Serve accepts from whatever net.Listener is passed to
// it, so the transport (TCP, Windows named pipe, or a net.Pipe in tests) is
// interchangeable.
type Server struct {
	collaborator Collaborator
	pool         *Pool
	router       *streamRouter
	logger       hclog.Logger

	maxHeaderChunk int
	maxStdinChunk  int
	outputBlock    int
}

// NewServer constructs a Server bound to collaborator. The pool is created
// empty; workers are spawned lazily as connections arrive.
func NewServer(collaborator Collaborator, cfg Config) *Server {
	cfg = cfg.withDefaults()

	s := &Server{
		collaborator:   collaborator,
		logger:         cfg.Logger,
		maxHeaderChunk: cfg.MaxHeaderChunk,
		maxStdinChunk:  cfg.MaxStdinChunk,
		outputBlock:    cfg.OutputBlockSize,
	}
	s.router = newStreamRouter(os.Stdin, os.Stdout, os.Stderr)
	s.pool = newPool(cfg.Pool, s)
	return s
}

// Stdin, Stdout and Stderr return the stdio streams bound to the calling
// goroutine by the stream router, falling back to the process-wide
// os.Stdin/os.Stdout/os.Stderr outside of a session. Static handlers
// (func([]string) error) that need to read or write outside of their
// return value should use these instead of the os package directly.
func (s *Server) Stdin() io.Reader  { return s.router.Stdin() }
func (s *Server) Stdout() io.Writer { return s.router.Stdout() }
func (s *Server) Stderr() io.Writer { return s.router.Stderr() }

// Serve accepts connections from ln, dispatching each to a pooled Worker on
// its own goroutine. It returns the error from Accept (for example once ln
// is closed), or nil when a connection is accepted after Shutdown has been
// called; Shutdown alone does not interrupt a blocked Accept.
func (s *Server) Serve(ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}

		worker, err := s.pool.Take()
		if err != nil {
			s.logger.Warn("dropping connection, pool unavailable", "error", err)
			conn.Close()
			if err == ErrPoolShutdown {
				return nil
			}
			continue
		}

		go worker.Serve(conn)
	}
}

// Shutdown signals the pool to drain: idle workers are terminated
// immediately and no further Take succeeds, but in-flight sessions are
// allowed to finish. Shutdown does not close the listener; callers close it
// as well so that Serve's Accept loop returns.
func (s *Server) Shutdown() {
	s.pool.Shutdown()
}
