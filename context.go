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

import "sync/atomic"

// ClientContext is the per-call side channel on the client. It currently
// carries no data (spec.md §3) but is kept as its own type so its surface
// can grow without changing call signatures, the way connect-go keeps
// Peer and Spec as separate structs.
type ClientContext struct{}

// NewClientContext returns an empty ClientContext.
func NewClientContext() *ClientContext { return &ClientContext{} }

// ServerContext is the per-call side channel on the server. IsCancelled
// reports the cancellation flag the caller passed to Server.HandleRequest
// — the only form of cancellation this transport defines (spec.md §5:
// "there is no explicit cancel frame"). HandleRequest never sets that flag
// itself; a peer disconnect or local I/O error is visible here only once
// the caller has set it.
type ServerContext struct {
	cancelled *int32
}

// IsCancelled reports whether the caller-supplied cancellation flag is
// non-zero. It is safe to call from the service implementation at any
// point during a call.
func (c *ServerContext) IsCancelled() bool {
	return atomic.LoadInt32(c.cancelled) != 0
}
