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
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestChunkedInputReadsPushedData(t *testing.T) {
	in := newChunkedInput(time.Second)
	in.pushData([]byte("abc"))
	in.pushData([]byte("def"))

	buf := make([]byte, 3)
	n, err := in.Read(buf)
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.Equal(t, "abc", string(buf[:n]))

	n, err = in.Read(buf)
	require.NoError(t, err)
	require.Equal(t, "def", string(buf[:n]))
}

func TestChunkedInputEOFAfterDrain(t *testing.T) {
	in := newChunkedInput(time.Second)
	in.pushData([]byte("ab"))
	in.pushEOF()

	buf := make([]byte, 16)
	n, err := in.Read(buf)
	require.NoError(t, err)
	require.Equal(t, "ab", string(buf[:n]))

	_, err = in.Read(buf)
	require.ErrorIs(t, err, io.EOF)
}

func TestChunkedInputHeartbeatResetsClock(t *testing.T) {
	in := newChunkedInput(80 * time.Millisecond)

	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(20 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				in.pushHeartbeat()
			case <-stop:
				return
			}
		}
	}()

	// Feed heartbeats for longer than the timeout while a read is blocked;
	// the read must not fail as long as heartbeats keep arriving.
	go func() {
		time.Sleep(150 * time.Millisecond)
		in.pushEOF()
		close(stop)
	}()

	buf := make([]byte, 1)
	_, err := in.Read(buf)
	require.ErrorIs(t, err, io.EOF)
}

func TestChunkedInputTimesOutWithoutActivity(t *testing.T) {
	in := newChunkedInput(30 * time.Millisecond)

	start := time.Now()
	buf := make([]byte, 1)
	_, err := in.Read(buf)
	elapsed := time.Since(start)

	require.True(t, errors.Is(err, ErrClientDisconnected))
	require.Less(t, elapsed, 60*time.Millisecond, "read must fail within 2x the heartbeat timeout")
}

func TestChunkedInputFailSurfacesError(t *testing.T) {
	in := newChunkedInput(time.Second)
	in.fail(ErrClientDisconnected)

	buf := make([]byte, 1)
	_, err := in.Read(buf)
	require.ErrorIs(t, err, ErrClientDisconnected)
}
