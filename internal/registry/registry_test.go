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
	"sync"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/require"

	"github.com/bhamiltoncx/nailgun"
)

// taggedHandler returns a StaticHandler that records tag into calls when
// invoked, letting tests tell two registered handlers apart without relying
// on reflect.DeepEqual over func values (which treats any two non-nil funcs
// as unequal).
func taggedHandler(tag string, calls *[]string) nailgun.Handler {
	return nailgun.StaticHandler(func(args []string) error {
		*calls = append(*calls, tag)
		return nil
	})
}

func invoke(t *testing.T, h nailgun.Handler) {
	t.Helper()
	sh, ok := h.(nailgun.StaticHandler)
	require.True(t, ok)
	require.NoError(t, sh(nil))
}

func TestRegistryResolveByAlias(t *testing.T) {
	r := New(time.Second, hclog.NewNullLogger())
	var calls []string
	r.Register("echo", taggedHandler("echo", &calls))

	got, ok := r.Resolve("echo")
	require.True(t, ok)
	invoke(t, got)
	require.Equal(t, []string{"echo"}, calls)

	_, ok = r.Resolve("missing")
	require.False(t, ok)
}

func TestRegistryRawIdentifierRequiresOptIn(t *testing.T) {
	r := New(time.Second, hclog.NewNullLogger())
	var calls []string
	r.RegisterIdentifier("com.example.Echo", taggedHandler("raw", &calls))

	got, ok := r.ResolveRaw("com.example.Echo")
	require.True(t, ok, "ResolveRaw itself is unconditional; gating happens in AllowsRawClassNames")
	invoke(t, got)
	require.Equal(t, []string{"raw"}, calls)
	require.False(t, r.AllowsRawClassNames())

	r.AllowRawClassNames(true)
	require.True(t, r.AllowsRawClassNames())
}

func TestRegistryDefaultHandlerUnsetByDefault(t *testing.T) {
	r := New(time.Second, hclog.NewNullLogger())
	_, ok := r.DefaultHandler()
	require.False(t, ok)

	var calls []string
	r.SetDefaultHandler(taggedHandler("default", &calls))
	got, ok := r.DefaultHandler()
	require.True(t, ok)
	invoke(t, got)
	require.Equal(t, []string{"default"}, calls)
}

func TestRegistryRegisterReplacesExistingAlias(t *testing.T) {
	r := New(time.Second, hclog.NewNullLogger())
	var calls []string
	r.Register("echo", taggedHandler("first", &calls))
	r.Register("echo", taggedHandler("second", &calls))

	got, ok := r.Resolve("echo")
	require.True(t, ok)
	invoke(t, got)
	require.Equal(t, []string{"second"}, calls)
}

func TestRegistryHeartbeatTimeoutReturnsConfiguredValue(t *testing.T) {
	r := New(250*time.Millisecond, hclog.NewNullLogger())
	require.Equal(t, 250*time.Millisecond, r.HeartbeatTimeout())
}

func TestRegistryConcurrentRegisterAndResolve(t *testing.T) {
	r := New(time.Second, hclog.NewNullLogger())
	var wg sync.WaitGroup
	var calls []string
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r.Register("cmd", taggedHandler("cmd", &calls))
			r.Resolve("cmd")
		}(i)
	}
	wg.Wait()

	_, ok := r.Resolve("cmd")
	require.True(t, ok)
}
