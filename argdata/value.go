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

import "errors"

// Kind is the discriminant of a Value node.
type Kind uint8

const (
	KindNull Kind = iota
	KindInt
	KindStr
	KindFd
	KindMap
	KindSeq
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindInt:
		return "int"
	case KindStr:
		return "str"
	case KindFd:
		return "fd"
	case KindMap:
		return "map"
	case KindSeq:
		return "seq"
	default:
		return "unknown"
	}
}

// ErrNotAMap is returned by Value.Map when the value is not a map atom.
var ErrNotAMap = errors.New("argdata: value is not a map")

// ErrNotAnFd is returned by Value.Fd when the value is not a fd atom.
var ErrNotAnFd = errors.New("argdata: value is not a file descriptor")

// Value is a node in a codec value tree: a null, an integer, a string, a
// file descriptor, a map, or a sequence. Values are plain, immutable Go
// data — the Go garbage collector keeps them alive for as long as anything
// references them, so unlike the C++ original there is no separate arena
// bookkeeping for value nodes themselves. The one resource a Value can
// reference that the GC does not manage is a file descriptor; see Builder
// and FileDescriptorHandle for how that lifetime is kept explicit.
type Value struct {
	kind Kind
	i    int64
	s    []byte
	fd   int
	keys []Value
	vals []Value
	seq  []Value
}

// Null returns the codec's null/empty value. It is available directly from
// the package, not only through a Builder, matching the codec contract in
// spec.md §6.
func Null() Value { return Value{kind: KindNull} }

// Kind reports which atom this value is.
func (v Value) Kind() Kind { return v.kind }

// Int returns the integer payload and whether v is an int atom.
func (v Value) Int() (int64, bool) {
	if v.kind != KindInt {
		return 0, false
	}
	return v.i, true
}

// Str returns the string payload and whether v is a str atom. The returned
// slice is owned by the value tree and must not be mutated.
func (v Value) Str() ([]byte, bool) {
	if v.kind != KindStr {
		return nil, false
	}
	return v.s, true
}

// Fd returns the raw descriptor number carried by a fd atom. On the
// decoding side this number has already been resolved from the frame's
// SCM_RIGHTS table to the descriptor number valid in this process; on the
// building side it is the number the Builder was given. Returns ErrNotAnFd
// if v is not a fd atom.
func (v Value) Fd() (int, error) {
	if v.kind != KindFd {
		return 0, ErrNotAnFd
	}
	return v.fd, nil
}

// Seq returns the elements of a seq atom and whether v is a seq atom.
func (v Value) Seq() ([]Value, bool) {
	if v.kind != KindSeq {
		return nil, false
	}
	return v.seq, true
}

// Map returns a MapIterator over v's entries. Returns ErrNotAMap if v is
// not a map atom.
func (v Value) Map() (*MapIterator, error) {
	if v.kind != KindMap {
		return nil, ErrNotAMap
	}
	return &MapIterator{keys: v.keys, vals: v.vals, pos: -1}, nil
}

// MapLen returns the number of entries in a map atom, or -1 if v is not a
// map atom. Used by envelope decoders to reject the wrong shape quickly.
func (v Value) MapLen() int {
	if v.kind != KindMap {
		return -1
	}
	return len(v.keys)
}

// MapIterator walks the entries of a map Value in encounter order. It is
// the Go counterpart of the codec's argdata_map_iterator_t.
type MapIterator struct {
	keys []Value
	vals []Value
	pos  int
}

// Next advances the iterator and reports whether an entry is available.
func (it *MapIterator) Next() bool {
	it.pos++
	return it.pos < len(it.keys)
}

// Key returns the key half of the current entry.
func (it *MapIterator) Key() Value { return it.keys[it.pos] }

// Value returns the value half of the current entry.
func (it *MapIterator) Value() Value { return it.vals[it.pos] }

// Len reports the total number of entries the iterator walks.
func (it *MapIterator) Len() int { return len(it.keys) }

// mapFind returns the value stored under the string key in map v, looking
// the field up by name rather than streaming through ParseAnyFromMap. It
// reports false if no entry has that key. The root package's envelope and
// Message decoders do not use it; they walk maps with MapIterator and
// Parser.ParseAnyFromMap.
func mapFind(v Value, key string) (Value, bool) {
	for i, k := range v.keys {
		if s, ok := k.Str(); ok && string(s) == key {
			return v.vals[i], true
		}
	}
	return Value{}, false
}
