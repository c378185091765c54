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

// Builder is an arena that accumulates the values referenced by the root
// of one frame. Builders are single-threaded and use-once: construct one
// per call's construction phase, build the root value, push the frame,
// then Close the builder.
//
// The only thing a Builder must track explicitly — beyond what the Go
// garbage collector already keeps alive — is the set of file descriptor
// handles it has built fd atoms against, since those need to stay open at
// least until the frame referencing them has been pushed. Close releases
// that builder's share of each of them.
type Builder struct {
	handles []*FileDescriptorHandle
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// BuildFd returns a value node referencing handle's descriptor. The
// builder takes its own reference on handle, so the descriptor stays open
// at least until the builder is closed, independent of what the caller
// does with handle afterwards.
func (b *Builder) BuildFd(handle *FileDescriptorHandle) Value {
	b.handles = append(b.handles, handle.Ref())
	return Value{kind: KindFd, fd: handle.Get()}
}

// BuildMap returns a value node over the two parallel key/value slices.
// The builder takes ownership of the slices; callers must not mutate them
// afterwards.
func (b *Builder) BuildMap(keys, values []Value) Value {
	if len(keys) != len(values) {
		panic("argdata: BuildMap called with mismatched key/value counts")
	}
	return Value{kind: KindMap, keys: keys, vals: values}
}

// BuildSeq returns a value node over elements. The builder takes ownership
// of the slice.
func (b *Builder) BuildSeq(elements []Value) Value {
	return Value{kind: KindSeq, seq: elements}
}

// BuildStr returns a value node over a private copy of bytes.
func (b *Builder) BuildStr(bytes []byte) Value {
	cp := make([]byte, len(bytes))
	copy(cp, bytes)
	return Value{kind: KindStr, s: cp}
}

// BuildInt returns a value node for n.
func (b *Builder) BuildInt(n int64) Value {
	return Value{kind: KindInt, i: n}
}

// Null returns the null value node. Equivalent to the package-level Null,
// provided on Builder for symmetry with the other Build* methods.
func (b *Builder) Null() Value {
	return Value{kind: KindNull}
}

// Close releases the builder's references on every file descriptor handle
// it built an fd atom against. Call it once the frame referencing this
// builder's root value has been pushed (or the attempt has been
// abandoned) — never before.
func (b *Builder) Close() {
	for _, h := range b.handles {
		h.Release()
	}
	b.handles = nil
}
