// Copyright 2021-2022 Buf Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package argdata

import "sync"

// bufferPool recycles the fixed-size byte slices Reader.Pull allocates for
// a frame's payload and SCM_RIGHTS ancillary data. A Server handling many
// connections calls Pull once per frame, so these buffers turn over
// constantly; pooling them avoids reallocating on every call the way
// connect-go's own bufferPool avoids reallocating per-request codec
// buffers.
//
// Only the default buffer sizes are pooled. A Reader configured with
// WithMaxPayloadBytes or WithMaxFds away from the default allocates
// directly, since a pool keyed by one size cannot usefully recycle slices
// of another.
type bufferPool struct {
	sync.Pool
	size int
}

func newBufferPool(size int) *bufferPool {
	return &bufferPool{
		Pool: sync.Pool{
			New: func() any {
				return make([]byte, size)
			},
		},
		size: size,
	}
}

func (p *bufferPool) Get() []byte {
	buf := p.Pool.Get().([]byte)
	for i := range buf {
		buf[i] = 0
	}
	return buf
}

func (p *bufferPool) Put(buf []byte) {
	if cap(buf) != p.size {
		return
	}
	p.Pool.Put(buf[:p.size]) //nolint:staticcheck
}

var (
	defaultPayloadPool = newBufferPool(DefaultMaxPayloadBytes)
	defaultOOBPool     = newBufferPool(defaultOOBSize)
)
