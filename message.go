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

package arpc

import "github.com/NuxiNL/arpc/argdata"

// Message is a user-defined value with a codec-tree conversion in both
// directions. Generated request/response types (out of scope for this
// core, per spec.md §1) implement Message the way the hand-written
// echoService/adderService/fibonacciService messages in this module's
// tests do.
//
// Parse populates the receiver from a decoded value, using parser to
// intern any fd atoms it encounters. Build returns a value describing the
// receiver, allocating into builder. Unlike the C++ original, Parse
// returns an error: this port's Parser.ParseFileDescriptor returns nil for
// a field that is absent or malformed, and a Message implementation that
// requires the field reports that as an error rather than silently
// producing a zero value.
type Message interface {
	Parse(v argdata.Value, p *argdata.Parser) error
	Build(b *argdata.Builder) argdata.Value
}

// Releaser is implemented by a Message that retains FileDescriptorHandle
// references obtained from Parser.ParseFileDescriptor (for instance one it
// is simply forwarding from a request it parsed). Build takes its own ref
// on each handle it writes an fd atom from, so a Message's own ref is no
// longer needed once a frame built from it has been sent; the dispatcher
// calls Release at that point, standing in for the explicit cleanup Go
// gives the caller no destructor to run automatically.
type Releaser interface {
	Release()
}
