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
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStreamRouterFallsBackToDefaults(t *testing.T) {
	var defOut, defErr bytes.Buffer
	r := newStreamRouter(bytes.NewReader(nil), &defOut, &defErr)

	require.Equal(t, &defOut, r.Stdout())
	require.Equal(t, &defErr, r.Stderr())
}

func TestStreamRouterInstallUninstall(t *testing.T) {
	var defOut bytes.Buffer
	r := newStreamRouter(bytes.NewReader(nil), &defOut, &defOut)

	var sessionOut bytes.Buffer
	r.install(&sessionStreams{Stdout: &sessionOut, Stderr: &sessionOut})
	require.Equal(t, &sessionOut, r.Stdout())

	r.uninstall()
	require.Equal(t, &defOut, r.Stdout())
}

func TestStreamRouterNoCrossSessionLeakage(t *testing.T) {
	var defOut bytes.Buffer
	r := newStreamRouter(bytes.NewReader(nil), &defOut, &defOut)

	const n = 20
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			var mine bytes.Buffer
			r.install(&sessionStreams{Stdout: &mine, Stderr: &mine})
			defer r.uninstall()

			for j := 0; j < 50; j++ {
				got := r.Stdout()
				if got != io.Writer(&mine) {
					t.Errorf("goroutine %d observed another goroutine's stdout binding", i)
					return
				}
			}
		}(i)
	}
	wg.Wait()
}
