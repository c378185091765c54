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

// Package argdata implements the self-describing value codec that the
// arpc wire protocol is built on: a small set of atoms (null, int, str,
// fd, map, seq) that can be built into an arena with a Builder, pushed as
// a single framed document with a Writer, and read back with a Reader and
// a Parser.
//
// The distinguishing feature of the codec is the fd atom. A fd atom does
// not carry a raw descriptor number on the wire; it carries an index into
// the frame's ancillary SCM_RIGHTS array, which the kernel renumbers as it
// crosses the socket. Reader and Parser jointly track which descriptors a
// frame owns, so that a descriptor handed to user code outlives the frame
// it arrived in, while a descriptor nobody claimed is closed when the
// frame is done with.
package argdata
