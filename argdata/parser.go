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

// Parser is paired with a single Reader pull and interns the file
// descriptors it hands to Message implementations. The first call to
// ParseFileDescriptor for a given numeric fd creates a fresh handle; every
// later call in this Parser's life returns that same handle.
//
// Close is the critical handoff described in spec.md §4.3: for every fd
// this parser interned, it tells the Reader to release that fd, so the
// Reader's own Close (which runs after the Parser's, by defer ordering at
// the call site) will not close a descriptor the user's Message now owns.
type Parser struct {
	reader   *Reader
	interned map[int]*FileDescriptorHandle
}

// NewParser returns a Parser bound to reader.
func NewParser(reader *Reader) *Parser {
	return &Parser{reader: reader, interned: make(map[int]*FileDescriptorHandle)}
}

// ParseAnyFromMap returns the value half of the map iterator's current
// entry. It exists as its own method, rather than callers using
// it.Value() directly, because spec.md §4.3 specifies it as part of the
// Parser's surface: a real external codec might need this call to thread
// per-parser bookkeeping through map traversal, even though this port's
// MapIterator needs none.
func (p *Parser) ParseAnyFromMap(it *MapIterator) Value {
	return it.Value()
}

// ParseFileDescriptor returns a shared handle for value if it is a fd
// atom, interning it on first sight. If value is not a fd atom, it returns
// nil; Message implementations translate that into a field-absent or
// field-error condition as appropriate for that field.
func (p *Parser) ParseFileDescriptor(value Value) *FileDescriptorHandle {
	fd, err := value.Fd()
	if err != nil {
		return nil
	}
	if h, ok := p.interned[fd]; ok {
		return h
	}
	h := NewFileDescriptorHandle(fd)
	p.interned[fd] = h
	return h
}

// Close hands every interned descriptor back to the Reader by releasing
// it, so the Reader stops planning to close it. Safe to call once; safe
// to call on a zero-value Parser (nil reader) as a no-op for tests that
// never actually read a frame.
func (p *Parser) Close() {
	if p.reader == nil {
		return
	}
	for fd := range p.interned {
		p.reader.ReleaseFd(fd)
	}
}
