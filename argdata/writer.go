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

import "golang.org/x/sys/unix"

// Writer pushes framed values to a raw file descriptor. Unlike Reader, a
// Writer carries no per-push state beyond its configured size limits, so a
// single Writer can be reused across every frame a Channel or Server
// pushes over the lifetime of a connection.
type Writer struct {
	cfg frameConfig
}

// NewWriter returns a Writer configured with the given options.
func NewWriter(opts ...Option) *Writer {
	return &Writer{cfg: applyOptions(opts)}
}

// Push encodes v and writes it to fd as a single frame, along with any
// file descriptors v's fd atoms reference, via a single sendmsg(2) so the
// payload and its ancillary descriptors arrive atomically together.
func (w *Writer) Push(fd int, v Value) error {
	payload, fds, err := encode(v)
	if err != nil {
		return err
	}
	if len(payload) > w.cfg.maxPayloadBytes || len(fds) > w.cfg.maxFds {
		return unix.EMSGSIZE
	}
	var oob []byte
	if len(fds) > 0 {
		oob = unix.UnixRights(fds...)
	}
	return unix.Sendmsg(fd, payload, oob, nil, 0)
}
