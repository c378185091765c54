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

import (
	"sync"

	"golang.org/x/sys/unix"
)

// FileDescriptorHandle is scoped, reference-counted ownership of a kernel
// file descriptor. The constructor takes ownership of fd; Release decrements
// the reference count and closes fd exactly once, when the count reaches
// zero. Go has no destructors, so every holder of a handle — a Message, a
// Channel, a Server, the wire codec's own in-flight builders — must call
// Release when it is done, the same way the C++ original relies on
// std::shared_ptr's refcounted destructor.
//
// A FileDescriptorHandle is safe for concurrent use.
type FileDescriptorHandle struct {
	mu     sync.Mutex
	fd     int
	refs   int
	closed bool
}

// NewFileDescriptorHandle takes ownership of fd and returns a handle with
// a single reference.
func NewFileDescriptorHandle(fd int) *FileDescriptorHandle {
	return &FileDescriptorHandle{fd: fd, refs: 1}
}

// Get returns the raw descriptor number without relinquishing ownership.
func (h *FileDescriptorHandle) Get() int {
	return h.fd
}

// Ref adds a reference and returns the same handle, for chaining at call
// sites that hand the handle to a second owner.
func (h *FileDescriptorHandle) Ref() *FileDescriptorHandle {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		panic("argdata: Ref called on a closed FileDescriptorHandle")
	}
	h.refs++
	return h
}

// Release drops one reference. When the last reference is dropped, the
// descriptor is closed. Failure to close (EINTR/EBADF) is not reported —
// spec.md §4.1 declines to define a path that could double-close.
func (h *FileDescriptorHandle) Release() {
	h.mu.Lock()
	h.refs--
	refs := h.refs
	shouldClose := refs == 0 && !h.closed
	if shouldClose {
		h.closed = true
	}
	h.mu.Unlock()

	if refs < 0 {
		panic("argdata: Release called more times than Ref/New on a FileDescriptorHandle")
	}
	if shouldClose {
		_ = unix.Close(h.fd)
	}
}
