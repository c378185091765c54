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

// ClientStreamWriter drives a client-streaming call: the client sends any
// number of request messages and receives exactly one response, delivered
// once WritesDone has been called and the server has replied. Mirrors
// connect-go's StreamingClientConn, minus the context and header surface
// this transport has no room for (spec.md §2 non-goals).
type ClientStreamWriter struct {
	channel *Channel
	writer  *argdata.Writer
	pushErr error

	writesDone bool
	finished   bool
}

// Write sends one request message. Reports false once a prior error has
// made the stream unusable; callers should stop writing and call Finish to
// retrieve the Status explaining why.
func (w *ClientStreamWriter) Write(request Message) bool {
	if w.writesDone {
		panic("arpc: Write called after WritesDone on a ClientStreamWriter")
	}
	if w.pushErr != nil {
		return false
	}

	builder := argdata.NewBuilder()
	msg := ClientMessage{
		Tag:                  TagStreamingRequestData,
		StreamingRequestData: &StreamingRequestData{Request: request.Build(builder)},
	}
	w.pushErr = w.writer.Push(w.channel.handle.Get(), msg.Build(builder))
	builder.Close()
	return w.pushErr == nil
}

// WritesDone signals that no further requests follow, letting the server
// produce its response. Reports false if the finish frame could not be
// sent.
func (w *ClientStreamWriter) WritesDone() bool {
	if w.writesDone {
		panic("arpc: WritesDone called twice on a ClientStreamWriter")
	}
	w.writesDone = true
	if w.pushErr != nil {
		return false
	}

	builder := argdata.NewBuilder()
	defer builder.Close()
	msg := ClientMessage{Tag: TagStreamingRequestFinish}
	w.pushErr = w.writer.Push(w.channel.handle.Get(), msg.Build(builder))
	return w.pushErr == nil
}

// Finish blocks for the server's single response and returns its Status,
// populating response when the status is OK. Panics if called before
// WritesDone, matching the C++ original's contract that the finish frame
// must precede waiting on the reply.
func (w *ClientStreamWriter) Finish(response Message) Status {
	if !w.writesDone {
		panic("arpc: Finish called before WritesDone on a ClientStreamWriter")
	}
	if w.finished {
		panic("arpc: Finish called twice on a ClientStreamWriter")
	}
	w.finished = true
	defer w.channel.mu.Unlock()

	if w.pushErr != nil {
		return statusFromIOError(w.pushErr)
	}
	return w.channel.readUnaryResponse(response)
}

// ServerStreamReader drives a server-streaming call: the client sends one
// request and receives any number of response messages, terminated by a
// Status.
type ServerStreamReader struct {
	channel *Channel
	pushErr error

	done     bool
	status   Status
	finished bool
}

// Read blocks for the next response message. It returns false once the
// stream has ended, whether by normal completion or by error; call Finish
// afterward for the terminal Status.
func (r *ServerStreamReader) Read(response Message) bool {
	if r.done {
		return false
	}
	if r.pushErr != nil {
		r.done = true
		r.status = statusFromIOError(r.pushErr)
		return false
	}

	reader := argdata.NewReader()
	value, err := reader.Pull(r.channel.handle.Get())
	if err != nil {
		r.done = true
		r.status = statusFromIOError(err)
		return false
	}
	parser := argdata.NewParser(reader)
	defer reader.Close()
	defer parser.Close()

	var sm ServerMessage
	if err := sm.Parse(value, parser); err != nil {
		r.done = true
		r.status = New(CodeInternal, "received an invalid response envelope")
		return false
	}

	switch sm.Tag {
	case TagStreamingResponseData:
		if err := response.Parse(sm.StreamingResponseData.Response, parser); err != nil {
			r.done = true
			r.status = New(CodeInternal, "failed to parse response payload")
			return false
		}
		return true
	case TagStreamingResponseFinish:
		r.done = true
		r.status = sm.StreamingResponseFinish.Status
		return false
	default:
		r.done = true
		r.status = New(CodeInternal, "expected a streaming response envelope")
		return false
	}
}

// Finish returns the terminal Status of the stream. Panics if called
// before Read has returned false, so callers cannot observe a status
// before the stream has actually settled.
func (r *ServerStreamReader) Finish() Status {
	if !r.done {
		panic("arpc: Finish called before Read returned false on a ServerStreamReader")
	}
	if r.finished {
		panic("arpc: Finish called twice on a ServerStreamReader")
	}
	r.finished = true
	r.channel.mu.Unlock()
	return r.status
}
