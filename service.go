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

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/NuxiNL/arpc/argdata"
)

// Service implements one or more RPCs under a single service name. Unlike
// connect-go's generated handlers, a Service here dispatches by RPC name
// itself — generated service stubs are out of scope for this core (spec.md
// §1) — and its methods take no context.Context, since this transport has
// no deadline or cancellation signal beyond ServerContext.IsCancelled.
type Service interface {
	// Name returns the service's identifier, matched against
	// Method.Service.
	Name() string

	// CallUnary dispatches a unary or server-streaming call for rpc. For a
	// unary call, stream is nil and the handler returns its single
	// response and Status directly. For a server-streaming call, the
	// handler writes zero or more responses to stream and its returned
	// Status becomes the stream's terminal status.
	CallUnary(ctx *ServerContext, rpc string, request argdata.Value, parser *argdata.Parser, stream *ServerWriter) (Message, Status)

	// CallClientStream dispatches a client-streaming call for rpc. reader
	// yields the client's request messages; the handler's returned
	// response and Status become the call's single reply.
	CallClientStream(ctx *ServerContext, rpc string, reader *ServerReader) (Message, Status)

	// IsStreaming reports whether rpc is a client-streaming RPC, so the
	// dispatcher knows whether an incoming streaming_request_start frame
	// names a real client-streaming method before committing to reading
	// a stream of request frames for it.
	IsStreaming(rpc string) bool
}

// ServerBuilder accumulates registered services before producing an
// immutable Server, the way connect-go's http.ServeMux is built up one
// handler at a time and then served. RegisterService panics if called
// after Build, since a Server's dispatch table must not change underneath
// a connection already being served.
type ServerBuilder struct {
	services map[string]Service
	log      *logrus.Logger
	built    bool
}

// NewServerBuilder returns an empty ServerBuilder. Protocol-level anomalies
// (a malformed frame, a write failure mid-stream) are logged through
// logrus.StandardLogger() unless overridden with WithServerLogger — this is
// diagnostic only, never part of the dispatch control flow (spec.md §9).
func NewServerBuilder() *ServerBuilder {
	return &ServerBuilder{services: make(map[string]Service), log: logrus.StandardLogger()}
}

// WithServerLogger overrides the logger the built Server uses for
// protocol-level diagnostics.
func (b *ServerBuilder) WithServerLogger(log *logrus.Logger) *ServerBuilder {
	b.log = log
	return b
}

// RegisterService adds svc to the builder under its own Name(). Panics if
// a service with that name is already registered, or if the builder has
// already been Built.
func (b *ServerBuilder) RegisterService(svc Service) *ServerBuilder {
	if b.built {
		panic("arpc: RegisterService called after Build")
	}
	name := svc.Name()
	if _, exists := b.services[name]; exists {
		panic(fmt.Sprintf("arpc: service %q registered twice", name))
	}
	b.services[name] = svc
	return b
}

// Build freezes the builder's registrations into a Server. The builder
// must not be used again afterward.
func (b *ServerBuilder) Build() *Server {
	b.built = true
	return &Server{services: b.services, log: b.log}
}

// Server dispatches incoming frames on a single connection to registered
// services. One Server can back many concurrently running connections, as
// long as each connection's HandleRequest calls run from one goroutine at
// a time — the dispatch table is read-only after Build, so no additional
// locking is needed for that sharing.
type Server struct {
	services map[string]Service
	log      *logrus.Logger
}

func (s *Server) lookup(method Method) (Service, bool) {
	svc, ok := s.services[method.Service]
	return svc, ok
}
