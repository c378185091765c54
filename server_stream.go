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

// ServerWriter lets a server-streaming Service handler push response
// messages to the client as they become available, ahead of the call's
// final Status.
type ServerWriter struct {
	writer *argdata.Writer
	fd     int

	err error
}

func newServerWriter(writer *argdata.Writer, fd int) *ServerWriter {
	return &ServerWriter{writer: writer, fd: fd}
}

// Write sends one response message. Reports false once a prior send has
// failed; the handler should stop and return, letting the dispatcher
// report the failure.
func (w *ServerWriter) Write(response Message) bool {
	if w.err != nil {
		return false
	}
	builder := argdata.NewBuilder()
	msg := ServerMessage{
		Tag:                   TagStreamingResponseData,
		StreamingResponseData: &StreamingResponseData{Response: response.Build(builder)},
	}
	w.err = w.writer.Push(w.fd, msg.Build(builder))
	builder.Close()
	if r, ok := response.(Releaser); ok {
		r.Release()
	}
	return w.err == nil
}

// ServerReader lets a client-streaming Service handler pull request
// messages one at a time until the client signals it is done.
type ServerReader struct {
	fd  int
	cfg []argdata.Option

	err error
}

func newServerReader(fd int, cfg []argdata.Option) *ServerReader {
	return &ServerReader{fd: fd, cfg: cfg}
}

// Read blocks for the next request message. It returns false once the
// client has sent its streaming_request_finish frame, the peer has
// disconnected, or a read error occurred; Err distinguishes the latter
// from ordinary completion.
func (r *ServerReader) Read(request Message) bool {
	if r.err != nil {
		return false
	}

	reader := argdata.NewReader(r.cfg...)
	value, err := reader.Pull(r.fd)
	if err != nil {
		r.err = err
		return false
	}
	parser := argdata.NewParser(reader)
	defer reader.Close()
	defer parser.Close()

	var cm ClientMessage
	if err := cm.Parse(value, parser); err != nil {
		r.err = err
		return false
	}

	switch cm.Tag {
	case TagStreamingRequestData:
		if err := request.Parse(cm.StreamingRequestData.Request, parser); err != nil {
			r.err = err
			return false
		}
		return true
	case TagStreamingRequestFinish:
		return false
	default:
		r.err = ErrInvalidEnvelope
		return false
	}
}

// Err returns the error that caused Read to stop returning true, or nil if
// the stream ended because the client sent streaming_request_finish.
func (r *ServerReader) Err() error {
	return r.err
}
