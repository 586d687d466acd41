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
	"strings"

	"github.com/hashicorp/go-hclog"
)

// Header is the decoded session header: everything the client sends before
// the first TagCommand chunk.
type Header struct {
	Args    []string
	Env     map[string]string
	Dir     string
	HasDir  bool
	Command string
}

// decodeHeader reads chunks from c until a TagCommand chunk is observed,
// accumulating args, env and the working directory. D and C take the last
// value seen; A accumulates in order; E is last-wins per key. Unknown tags
// and malformed E entries are logged and ignored.
func decodeHeader(c *Codec, maxHeaderChunk int, log hclog.Logger) (*Header, error) {
	h := &Header{Env: make(map[string]string)}

	for {
		chunk, err := c.ReadChunk(maxHeaderChunk)
		if err != nil {
			return nil, err
		}

		switch chunk.Tag {
		case TagArg:
			h.Args = append(h.Args, string(chunk.Payload))
		case TagEnv:
			kv := string(chunk.Payload)
			eq := strings.IndexByte(kv, '=')
			if eq < 0 {
				log.Warn("malformed environment chunk ignored, no '=' separator", "payload", kv)
				continue
			}
			h.Env[kv[:eq]] = kv[eq+1:]
		case TagDir:
			h.Dir = string(chunk.Payload)
			h.HasDir = true
		case TagCommand:
			h.Command = string(chunk.Payload)
			return h, nil
		default:
			log.Warn("unknown header chunk tag ignored", "tag", chunk.Tag.String())
		}
	}
}
