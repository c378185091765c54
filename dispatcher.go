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
	"errors"
	"io"

	"golang.org/x/sys/unix"

	"github.com/NuxiNL/arpc/argdata"
)

// HandleRequest reads and dispatches exactly one top-level call arriving on
// fd, running it to completion (including every frame of a streaming
// call), and returns a Linux errno describing the outcome at the transport
// level:
//
//	 0  call handled; any application-level outcome was sent as a Status
//	    inside a response frame, not as this return value.
//	-1  the peer closed the connection cleanly (EOF) before sending a call.
//	 >0 a transport-level errno: EBADF if fd is invalid, EBADMSG if a frame's
//	    bytes do not decode, EOPNOTSUPP if a frame decodes but describes an
//	    envelope shape or call sequence HandleRequest does not recognize, or
//	    another raw syscall errno on I/O failure.
//
// cancelled is shared with the ServerContext handed to service
// implementations, so a caller running HandleRequest in a loop can signal
// disconnect/shutdown independently of the read itself. This mirrors the
// C++ original's arpc::Server::HandleRequest, which returns an int with
// the same three-way split, documented in spec.md §4.7.
func (s *Server) HandleRequest(fd int, cancelled *int32) int {
	reader := argdata.NewReader()
	value, err := reader.Pull(fd)
	if err != nil {
		return errnoForPullError(err)
	}
	parser := argdata.NewParser(reader)
	defer reader.Close()
	defer parser.Close()

	var cm ClientMessage
	if err := cm.Parse(value, parser); err != nil {
		if errors.Is(err, ErrInvalidEnvelope) {
			s.log.WithError(err).Warn("arpc: received an unrecognized envelope shape")
			return int(unix.EOPNOTSUPP)
		}
		s.log.WithError(err).Warn("arpc: received a malformed frame")
		return int(unix.EBADMSG)
	}

	ctx := &ServerContext{cancelled: cancelled}
	writer := argdata.NewWriter()

	switch cm.Tag {
	case TagUnaryRequest:
		return s.dispatchUnary(fd, ctx, writer, parser, cm.UnaryRequest)
	case TagStreamingRequestStart:
		return s.dispatchClientStream(fd, ctx, writer, cm.StreamingRequestStart)
	default:
		// A streaming_request_data or streaming_request_finish frame
		// arriving as the opening frame of a call is a sequencing
		// error: those variants only make sense mid-stream.
		s.log.Warn("arpc: received a mid-stream frame as a call's opening frame")
		return int(unix.EOPNOTSUPP)
	}
}

func errnoForPullError(err error) int {
	if errors.Is(err, io.EOF) {
		return -1
	}
	if errors.Is(err, argdata.ErrMalformedFrame) {
		return int(unix.EBADMSG)
	}
	if errors.Is(err, ErrInvalidEnvelope) {
		return int(unix.EOPNOTSUPP)
	}
	var errno unix.Errno
	if errors.As(err, &errno) {
		return int(errno)
	}
	return int(unix.EIO)
}

func (s *Server) dispatchUnary(fd int, ctx *ServerContext, writer *argdata.Writer, parser *argdata.Parser, req *UnaryRequest) int {
	svc, ok := s.lookup(req.Method)
	if !ok {
		return s.sendUnaryStatus(fd, writer, New(CodeUnimplemented, "Service not registered"))
	}

	var stream *ServerWriter
	if req.ServerStreaming {
		stream = newServerWriter(writer, fd)
	}

	response, status := svc.CallUnary(ctx, req.Method.RPC, req.Request, parser, stream)

	if req.ServerStreaming {
		return s.sendStreamingFinish(fd, writer, status)
	}
	return s.sendUnaryResponse(fd, writer, response, status)
}

func (s *Server) dispatchClientStream(fd int, ctx *ServerContext, writer *argdata.Writer, start *StreamingRequestStart) int {
	svc, ok := s.lookup(start.Method)
	if !ok || !svc.IsStreaming(start.Method.RPC) {
		// Drain and discard the client's stream so the connection
		// stays in a well-defined state before reporting UNIMPLEMENTED.
		reader := newServerReader(fd, nil)
		for reader.Read(discardMessage{}) {
		}
		message := "Service not registered"
		if ok {
			message = "unknown rpc: " + start.Method.RPC
		}
		return s.sendUnaryStatus(fd, writer, New(CodeUnimplemented, message))
	}

	reader := newServerReader(fd, nil)
	response, status := svc.CallClientStream(ctx, start.Method.RPC, reader)
	if reader.Err() != nil {
		s.log.WithError(reader.Err()).Debug("arpc: client stream ended with an I/O error")
		return errnoForPullError(reader.Err())
	}
	return s.sendUnaryResponse(fd, writer, response, status)
}

// discardMessage implements Message by ignoring its payload entirely; used
// to drain an unwanted client-streaming call without allocating a real
// request type.
type discardMessage struct{}

func (discardMessage) Parse(v argdata.Value, p *argdata.Parser) error { return nil }
func (discardMessage) Build(b *argdata.Builder) argdata.Value         { return b.Null() }

func (s *Server) sendUnaryResponse(fd int, writer *argdata.Writer, response Message, status Status) int {
	builder := argdata.NewBuilder()
	defer builder.Close()

	var respValue argdata.Value
	if status.Ok() {
		if response == nil {
			response = discardMessage{}
		}
		respValue = response.Build(builder)
	} else {
		respValue = builder.Null()
	}

	msg := ServerMessage{
		Tag:           TagUnaryResponse,
		UnaryResponse: &UnaryResponse{Status: status, Response: respValue},
	}
	err := writer.Push(fd, msg.Build(builder))
	if r, ok := response.(Releaser); ok {
		r.Release()
	}
	if err != nil {
		s.log.WithError(err).Debug("arpc: failed to write a unary response")
		return errnoForPushError(err)
	}
	return 0
}

func (s *Server) sendUnaryStatus(fd int, writer *argdata.Writer, status Status) int {
	return s.sendUnaryResponse(fd, writer, nil, status)
}

func (s *Server) sendStreamingFinish(fd int, writer *argdata.Writer, status Status) int {
	builder := argdata.NewBuilder()
	defer builder.Close()
	msg := ServerMessage{
		Tag:                     TagStreamingResponseFinish,
		StreamingResponseFinish: &StreamingResponseFinish{Status: status},
	}
	if err := writer.Push(fd, msg.Build(builder)); err != nil {
		s.log.WithError(err).Debug("arpc: failed to write a streaming finish frame")
		return errnoForPushError(err)
	}
	return 0
}

func errnoForPushError(err error) int {
	var errno unix.Errno
	if errors.As(err, &errno) {
		return int(errno)
	}
	return int(unix.EIO)
}
