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
	"io"

	"golang.org/x/sys/unix"
)

// Reader pulls exactly one frame from a raw file descriptor. It is
// single-use, mirroring the C++ original's argdata_reader_t, which is
// constructed, pulled once, and destroyed: see client_reader_impl.cc and
// server_reader_impl.cc, which allocate a fresh reader per frame rather
// than reusing one across a stream.
//
// Reader owns every descriptor it reads out of the frame's SCM_RIGHTS
// ancillary data until either a Parser releases it (because user code
// claimed it) or Close is called (which closes whatever is left).
type Reader struct {
	cfg      frameConfig
	pulled   bool
	fds      []int
	released []bool
}

// NewReader returns a Reader configured with the given options.
func NewReader(opts ...Option) *Reader {
	return &Reader{cfg: applyOptions(opts)}
}

var defaultOOBSize = unix.CmsgSpace(DefaultMaxFds * 4)

// Pull reads one frame from fd. It returns io.EOF if the peer has closed
// the connection, the raw unix.Errno from the underlying syscall on
// I/O failure, or ErrMalformedFrame if the bytes read do not decode to a
// well-formed value tree.
func (r *Reader) Pull(fd int) (Value, error) {
	if r.pulled {
		panic("argdata: Reader.Pull called more than once")
	}
	r.pulled = true

	payload, payloadPooled := r.getBuffer(r.cfg.maxPayloadBytes)
	oob, oobPooled := r.getOOBBuffer()
	defer func() {
		if payloadPooled {
			defaultPayloadPool.Put(payload)
		}
		if oobPooled {
			defaultOOBPool.Put(oob)
		}
	}()

	n, oobn, _, _, err := unix.Recvmsg(fd, payload, oob, 0)
	if err != nil {
		return Value{}, err
	}
	if n == 0 && oobn == 0 {
		return Value{}, io.EOF
	}

	var fds []int
	if oobn > 0 {
		scms, err := unix.ParseSocketControlMessage(oob[:oobn])
		if err != nil {
			return Value{}, ErrMalformedFrame
		}
		for _, scm := range scms {
			parsed, err := unix.ParseUnixRights(&scm)
			if err != nil {
				continue
			}
			fds = append(fds, parsed...)
		}
	}
	if len(fds) > r.cfg.maxFds {
		closeAll(fds)
		return Value{}, ErrMalformedFrame
	}

	value, err := decode(payload[:n], fds)
	if err != nil {
		closeAll(fds)
		return Value{}, err
	}

	r.fds = fds
	r.released = make([]bool, len(fds))
	return value, nil
}

// getBuffer returns a payload buffer of size bytes, drawn from the shared
// pool when size matches the default (the common case), or allocated
// directly otherwise. The bool return reports whether the buffer came from
// the pool and so should be returned to it.
func (r *Reader) getBuffer(size int) ([]byte, bool) {
	if size == DefaultMaxPayloadBytes {
		return defaultPayloadPool.Get(), true
	}
	return make([]byte, size), false
}

func (r *Reader) getOOBBuffer() ([]byte, bool) {
	size := unix.CmsgSpace(r.cfg.maxFds * 4)
	if size == defaultOOBSize {
		return defaultOOBPool.Get(), true
	}
	return make([]byte, size), false
}

// ReleaseFd marks fd as claimed by user code, so Close will not close it.
// A Parser calls this once per descriptor it interned, when the Parser is
// itself closed.
func (r *Reader) ReleaseFd(fd int) {
	for i, f := range r.fds {
		if f == fd {
			r.released[i] = true
			return
		}
	}
}

// Close closes every descriptor this reader pulled that nobody released.
// Call it after the Parser bound to this reader has been closed — the
// usual idiom is:
//
//	reader := argdata.NewReader()
//	value, err := reader.Pull(fd)
//	defer reader.Close()
//	parser := argdata.NewParser(reader)
//	defer parser.Close()
//
// Go runs deferred calls in LIFO order, so parser.Close (which releases
// claimed descriptors) always runs before reader.Close (which closes
// whatever is left).
func (r *Reader) Close() {
	closeUnreleased(r.fds, r.released)
	r.fds = nil
	r.released = nil
}

func closeUnreleased(fds []int, released []bool) {
	for i, fd := range fds {
		if !released[i] {
			_ = unix.Close(fd)
		}
	}
}

func closeAll(fds []int) {
	for _, fd := range fds {
		_ = unix.Close(fd)
	}
}
