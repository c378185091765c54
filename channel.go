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
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/NuxiNL/arpc/argdata"
)

// Channel is a client's view of a single arpc connection. Exactly one call
// may be in flight on a Channel at a time; spec.md §4.1 describes the
// transport as carrying one call's frames at a time with no multiplexing,
// so a Channel enforces that serialization with a mutex rather than
// leaving it to the caller.
type Channel struct {
	handle *argdata.FileDescriptorHandle
	log    *logrus.Logger

	mu sync.Mutex
}

// CreateChannel returns a Channel that sends and receives frames over fd.
// The Channel takes its own reference to handle; the caller keeps whatever
// reference it already holds. Protocol-level anomalies are logged through
// logrus.StandardLogger() unless overridden with WithChannelLogger.
func CreateChannel(handle *argdata.FileDescriptorHandle) *Channel {
	return &Channel{handle: handle.Ref(), log: logrus.StandardLogger()}
}

// WithChannelLogger overrides the Channel's diagnostic logger and returns
// the same Channel for chaining at the call site.
func (c *Channel) WithChannelLogger(log *logrus.Logger) *Channel {
	c.log = log
	return c
}

// Close releases the Channel's reference to its underlying descriptor.
func (c *Channel) Close() {
	c.handle.Release()
}

// BlockingUnaryCall performs method as a single request/single response
// call: it sends one unary_request frame and blocks for the matching
// unary_response frame. ctx is currently unused by this transport (spec.md
// §3 notes ClientContext carries no data yet) but is threaded through the
// call surface so it can grow without an API break.
func (c *Channel) BlockingUnaryCall(ctx *ClientContext, method Method, request, response Message) Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	builder := argdata.NewBuilder()
	defer builder.Close()

	msg := ClientMessage{
		Tag: TagUnaryRequest,
		UnaryRequest: &UnaryRequest{
			Method:  method,
			Request: request.Build(builder),
		},
	}
	writer := argdata.NewWriter()
	if err := writer.Push(c.handle.Get(), msg.Build(builder)); err != nil {
		return statusFromIOError(err)
	}

	return c.readUnaryResponse(response)
}

func (c *Channel) readUnaryResponse(response Message) Status {
	reader := argdata.NewReader()
	value, err := reader.Pull(c.handle.Get())
	if err != nil {
		return statusFromIOError(err)
	}
	parser := argdata.NewParser(reader)
	defer reader.Close()
	defer parser.Close()

	var sm ServerMessage
	if err := sm.Parse(value, parser); err != nil {
		c.log.WithError(err).Warn("arpc: received an invalid response envelope")
		return New(CodeInternal, "received an invalid response envelope")
	}
	if sm.Tag != TagUnaryResponse {
		c.log.Warn("arpc: expected a unary response envelope")
		return New(CodeInternal, "expected a unary response envelope")
	}
	if sm.UnaryResponse.Status.Ok() {
		if err := response.Parse(sm.UnaryResponse.Response, parser); err != nil {
			return New(CodeInternal, "failed to parse response payload")
		}
	}
	return sm.UnaryResponse.Status
}

// startClientStream writes the streaming_request_start frame that opens a
// client-streaming call and returns the ClientStreamWriter that later
// frames are pushed through. A push failure is kept on the writer and
// reported by its Write, WritesDone and Finish.
func (c *Channel) startClientStream(method Method) *ClientStreamWriter {
	builder := argdata.NewBuilder()
	msg := ClientMessage{
		Tag:                   TagStreamingRequestStart,
		StreamingRequestStart: &StreamingRequestStart{Method: method},
	}
	writer := argdata.NewWriter()
	firstErr := writer.Push(c.handle.Get(), msg.Build(builder))
	builder.Close()

	return &ClientStreamWriter{channel: c, writer: writer, pushErr: firstErr}
}

// NewClientStreamWriter begins a client-streaming call: the caller writes
// zero or more request messages with Write, signals completion with
// WritesDone, and obtains the server's single response with Finish.
func (c *Channel) NewClientStreamWriter(ctx *ClientContext, method Method) *ClientStreamWriter {
	c.mu.Lock()
	return c.startClientStream(method)
}

// NewServerStreamReader begins a server-streaming call: request is sent
// immediately as the opening frame, and the caller reads zero or more
// response messages with Read until it returns false, then calls Finish
// for the terminal Status.
func (c *Channel) NewServerStreamReader(ctx *ClientContext, method Method, request Message) *ServerStreamReader {
	c.mu.Lock()

	builder := argdata.NewBuilder()
	msg := ClientMessage{
		Tag: TagUnaryRequest,
		UnaryRequest: &UnaryRequest{
			Method:          method,
			Request:         request.Build(builder),
			ServerStreaming: true,
		},
	}
	writer := argdata.NewWriter()
	firstErr := writer.Push(c.handle.Get(), msg.Build(builder))
	builder.Close()

	return &ServerStreamReader{channel: c, pushErr: firstErr}
}

func statusFromIOError(err error) Status {
	return New(CodeUnavailable, err.Error())
}
