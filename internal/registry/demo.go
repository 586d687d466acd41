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

package registry

import (
	"fmt"
	"io"
	"sort"

	"github.com/bhamiltoncx/nailgun"
)

// RegisterDemoHandlers wires a handful of toy nails: echo, printenv and
// cat. They are not meant for production use, only to give the daemon
// something runnable out of the box.
func RegisterDemoHandlers(r *Registry) {
	r.Register("echo", nailgun.ContextHandler(echoHandler))
	r.Register("printenv", nailgun.ContextHandler(printenvHandler))
	r.Register("cat", nailgun.ContextHandler(catHandler))
}

// echoHandler writes its first argument to stdout.
func echoHandler(ctx *nailgun.Context) error {
	if len(ctx.Args) == 0 {
		return nil
	}
	_, err := fmt.Fprint(ctx.Stdout, ctx.Args[0])
	return err
}

// printenvHandler writes each KEY=VALUE pair, sorted by key for
// determinism.
func printenvHandler(ctx *nailgun.Context) error {
	keys := make([]string, 0, len(ctx.Env))
	for k := range ctx.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if _, err := fmt.Fprintf(ctx.Stdout, "%s=%s\n", k, ctx.Env[k]); err != nil {
			return err
		}
	}
	return nil
}

// catHandler copies stdin to stdout until EOF.
func catHandler(ctx *nailgun.Context) error {
	_, err := io.Copy(ctx.Stdout, ctx.Stdin)
	if err != nil {
		return err
	}
	return nil
}
