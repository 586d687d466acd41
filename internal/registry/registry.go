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

// Package registry is a minimal concrete adapter for the command registry
// the core treats as an external collaborator. It is read-mostly and safe
// for concurrent use from many session workers at once.
package registry

import (
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/bhamiltoncx/nailgun"
)

// Registry implements nailgun.Collaborator with two lookup tiers: short
// aliases (the common case) and fully qualified handler identifiers
// (consulted only when raw identifiers are enabled), matching the
// reference's alias-then-raw-class-name resolution order without Go's
// lacking any equivalent to reflective class loading.
type Registry struct {
	mu sync.RWMutex

	aliases     map[string]nailgun.Handler
	identifiers map[string]nailgun.Handler

	allowRaw bool
	def      nailgun.Handler
	hasDef   bool

	heartbeat time.Duration
	log       hclog.Logger
}

// New constructs an empty Registry. heartbeat is the duration handed back
// from HeartbeatTimeout; log receives NailStarted/NailFinished lines.
func New(heartbeat time.Duration, log hclog.Logger) *Registry {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &Registry{
		aliases:     make(map[string]nailgun.Handler),
		identifiers: make(map[string]nailgun.Handler),
		heartbeat:   heartbeat,
		log:         log,
	}
}

// Register adds h under the short alias name, replacing any handler
// previously registered under that name.
func (r *Registry) Register(name string, h nailgun.Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.aliases[name] = h
}

// RegisterIdentifier adds h under a fully qualified handler identifier,
// only consulted when AllowRawClassNames(true) has been set.
func (r *Registry) RegisterIdentifier(id string, h nailgun.Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.identifiers[id] = h
}

// SetDefaultHandler configures the handler used when neither alias nor raw
// identifier resolution finds anything.
func (r *Registry) SetDefaultHandler(h nailgun.Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.def = h
	r.hasDef = true
}

// AllowRawClassNames toggles whether ResolveRaw is consulted on an alias
// miss.
func (r *Registry) AllowRawClassNames(allow bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.allowRaw = allow
}

func (r *Registry) Resolve(name string) (nailgun.Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.aliases[name]
	return h, ok
}

func (r *Registry) ResolveRaw(name string) (nailgun.Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.identifiers[name]
	return h, ok
}

func (r *Registry) AllowsRawClassNames() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.allowRaw
}

func (r *Registry) DefaultHandler() (nailgun.Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.def, r.hasDef
}

func (r *Registry) HeartbeatTimeout() time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.heartbeat
}

func (r *Registry) NailStarted(name string) {
	r.log.Debug("nail started", "command", name)
}

func (r *Registry) NailFinished(name string) {
	r.log.Debug("nail finished", "command", name)
}
