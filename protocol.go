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

	"github.com/NuxiNL/arpc/argdata"
)

// ErrInvalidEnvelope is returned by ClientMessage.Parse/ServerMessage.Parse
// when a frame decoded to a well-formed codec value that nonetheless isn't
// a recognized envelope shape. HandleRequest reports this to the caller as
// EOPNOTSUPP, distinct from the underlying Reader reporting a frame whose
// bytes don't even decode (ErrMalformedFrame, reported as EBADMSG).
var ErrInvalidEnvelope = errors.New("arpc: invalid protocol envelope")

// ClientMessageTag discriminates the ClientMessage envelope variants in
// spec.md §4.5.
type ClientMessageTag int

const (
	TagUnaryRequest ClientMessageTag = iota
	TagStreamingRequestStart
	TagStreamingRequestData
	TagStreamingRequestFinish
)

// ClientMessage is the tagged union every client->server frame carries.
type ClientMessage struct {
	Tag                   ClientMessageTag
	UnaryRequest          *UnaryRequest
	StreamingRequestStart *StreamingRequestStart
	StreamingRequestData  *StreamingRequestData
}

// UnaryRequest is the payload of the unary_request variant: the first and
// only frame of a unary call, or the opening frame of a server-streaming
// call when ServerStreaming is true.
type UnaryRequest struct {
	Method          Method
	Request         argdata.Value
	ServerStreaming bool
}

// StreamingRequestStart is the payload of the streaming_request_start
// variant: the opening frame of a client-streaming call.
type StreamingRequestStart struct {
	Method Method
}

// StreamingRequestData is the payload of the streaming_request_data
// variant: a subsequent frame of a client-streaming call.
type StreamingRequestData struct {
	Request argdata.Value
}

func tagWrap(b *argdata.Builder, tag string, inner argdata.Value) argdata.Value {
	return b.BuildMap([]argdata.Value{b.BuildStr([]byte(tag))}, []argdata.Value{inner})
}

func boolToInt(v bool) int64 {
	if v {
		return 1
	}
	return 0
}

// Build renders m as a codec value.
func (m ClientMessage) Build(b *argdata.Builder) argdata.Value {
	switch m.Tag {
	case TagUnaryRequest:
		ur := m.UnaryRequest
		inner := b.BuildMap(
			[]argdata.Value{b.BuildStr([]byte("rpc_method")), b.BuildStr([]byte("request")), b.BuildStr([]byte("server_streaming"))},
			[]argdata.Value{ur.Method.build(b), ur.Request, b.BuildInt(boolToInt(ur.ServerStreaming))},
		)
		return tagWrap(b, "unary_request", inner)
	case TagStreamingRequestStart:
		inner := b.BuildMap(
			[]argdata.Value{b.BuildStr([]byte("rpc_method"))},
			[]argdata.Value{m.StreamingRequestStart.Method.build(b)},
		)
		return tagWrap(b, "streaming_request_start", inner)
	case TagStreamingRequestData:
		inner := b.BuildMap(
			[]argdata.Value{b.BuildStr([]byte("request"))},
			[]argdata.Value{m.StreamingRequestData.Request},
		)
		return tagWrap(b, "streaming_request_data", inner)
	case TagStreamingRequestFinish:
		return tagWrap(b, "streaming_request_finish", b.Null())
	default:
		panic("arpc: ClientMessage has an invalid Tag")
	}
}

// Parse decodes v, which must have been produced by ClientMessage.Build
// (possibly by a different process on the other side of the wire), into m.
// Returns ErrInvalidEnvelope if v isn't a recognized envelope shape.
func (m *ClientMessage) Parse(v argdata.Value, p *argdata.Parser) error {
	if v.MapLen() != 1 {
		return ErrInvalidEnvelope
	}
	it, _ := v.Map()
	if !it.Next() {
		return ErrInvalidEnvelope
	}
	tag, ok := it.Key().Str()
	if !ok {
		return ErrInvalidEnvelope
	}
	inner := p.ParseAnyFromMap(it)

	switch string(tag) {
	case "unary_request":
		fields, err := inner.Map()
		if err != nil {
			return ErrInvalidEnvelope
		}
		ur := &UnaryRequest{}
		for fields.Next() {
			key, ok := fields.Key().Str()
			if !ok {
				return ErrInvalidEnvelope
			}
			val := p.ParseAnyFromMap(fields)
			switch string(key) {
			case "rpc_method":
				method, err := parseMethod(val)
				if err != nil {
					return err
				}
				ur.Method = method
			case "request":
				ur.Request = val
			case "server_streaming":
				n, ok := val.Int()
				if !ok {
					return ErrInvalidEnvelope
				}
				ur.ServerStreaming = n != 0
			}
		}
		m.Tag = TagUnaryRequest
		m.UnaryRequest = ur
	case "streaming_request_start":
		fields, err := inner.Map()
		if err != nil {
			return ErrInvalidEnvelope
		}
		start := &StreamingRequestStart{}
		for fields.Next() {
			key, ok := fields.Key().Str()
			if !ok {
				return ErrInvalidEnvelope
			}
			if string(key) == "rpc_method" {
				method, err := parseMethod(p.ParseAnyFromMap(fields))
				if err != nil {
					return err
				}
				start.Method = method
			}
		}
		m.Tag = TagStreamingRequestStart
		m.StreamingRequestStart = start
	case "streaming_request_data":
		fields, err := inner.Map()
		if err != nil {
			return ErrInvalidEnvelope
		}
		data := &StreamingRequestData{}
		for fields.Next() {
			key, ok := fields.Key().Str()
			if !ok {
				return ErrInvalidEnvelope
			}
			if string(key) == "request" {
				data.Request = p.ParseAnyFromMap(fields)
			}
		}
		m.Tag = TagStreamingRequestData
		m.StreamingRequestData = data
	case "streaming_request_finish":
		m.Tag = TagStreamingRequestFinish
	default:
		return ErrInvalidEnvelope
	}
	return nil
}

// ServerMessageTag discriminates the ServerMessage envelope variants in
// spec.md §4.5.
type ServerMessageTag int

const (
	TagUnaryResponse ServerMessageTag = iota
	TagStreamingResponseData
	TagStreamingResponseFinish
)

// ServerMessage is the tagged union every server->client frame carries.
type ServerMessage struct {
	Tag                     ServerMessageTag
	UnaryResponse           *UnaryResponse
	StreamingResponseData   *StreamingResponseData
	StreamingResponseFinish *StreamingResponseFinish
}

// UnaryResponse is the payload of the unary_response variant: the reply to
// a unary call, or to a completed client-streaming call.
type UnaryResponse struct {
	Status   Status
	Response argdata.Value
}

// StreamingResponseData is the payload of the streaming_response_data
// variant: each message of a server-streaming call.
type StreamingResponseData struct {
	Response argdata.Value
}

// StreamingResponseFinish is the payload of the streaming_response_finish
// variant: the terminator of a server-streaming call.
type StreamingResponseFinish struct {
	Status Status
}

// Build renders m as a codec value.
func (m ServerMessage) Build(b *argdata.Builder) argdata.Value {
	switch m.Tag {
	case TagUnaryResponse:
		ur := m.UnaryResponse
		inner := b.BuildMap(
			[]argdata.Value{b.BuildStr([]byte("status")), b.BuildStr([]byte("response"))},
			[]argdata.Value{ur.Status.Build(b), ur.Response},
		)
		return tagWrap(b, "unary_response", inner)
	case TagStreamingResponseData:
		inner := b.BuildMap(
			[]argdata.Value{b.BuildStr([]byte("response"))},
			[]argdata.Value{m.StreamingResponseData.Response},
		)
		return tagWrap(b, "streaming_response_data", inner)
	case TagStreamingResponseFinish:
		inner := b.BuildMap(
			[]argdata.Value{b.BuildStr([]byte("status"))},
			[]argdata.Value{m.StreamingResponseFinish.Status.Build(b)},
		)
		return tagWrap(b, "streaming_response_finish", inner)
	default:
		panic("arpc: ServerMessage has an invalid Tag")
	}
}

// Parse decodes v, which must have been produced by ServerMessage.Build,
// into m. Returns ErrInvalidEnvelope if v isn't a recognized envelope
// shape.
func (m *ServerMessage) Parse(v argdata.Value, p *argdata.Parser) error {
	if v.MapLen() != 1 {
		return ErrInvalidEnvelope
	}
	it, _ := v.Map()
	if !it.Next() {
		return ErrInvalidEnvelope
	}
	tag, ok := it.Key().Str()
	if !ok {
		return ErrInvalidEnvelope
	}
	inner := p.ParseAnyFromMap(it)

	switch string(tag) {
	case "unary_response":
		fields, err := inner.Map()
		if err != nil {
			return ErrInvalidEnvelope
		}
		ur := &UnaryResponse{}
		for fields.Next() {
			key, ok := fields.Key().Str()
			if !ok {
				return ErrInvalidEnvelope
			}
			val := p.ParseAnyFromMap(fields)
			switch string(key) {
			case "status":
				status, err := ParseStatus(val)
				if err != nil {
					return err
				}
				ur.Status = status
			case "response":
				ur.Response = val
			}
		}
		m.Tag = TagUnaryResponse
		m.UnaryResponse = ur
	case "streaming_response_data":
		fields, err := inner.Map()
		if err != nil {
			return ErrInvalidEnvelope
		}
		data := &StreamingResponseData{}
		for fields.Next() {
			key, ok := fields.Key().Str()
			if !ok {
				return ErrInvalidEnvelope
			}
			if string(key) == "response" {
				data.Response = p.ParseAnyFromMap(fields)
			}
		}
		m.Tag = TagStreamingResponseData
		m.StreamingResponseData = data
	case "streaming_response_finish":
		fields, err := inner.Map()
		if err != nil {
			return ErrInvalidEnvelope
		}
		finish := &StreamingResponseFinish{}
		for fields.Next() {
			key, ok := fields.Key().Str()
			if !ok {
				return ErrInvalidEnvelope
			}
			if string(key) == "status" {
				status, err := ParseStatus(p.ParseAnyFromMap(fields))
				if err != nil {
					return err
				}
				finish.Status = status
			}
		}
		m.Tag = TagStreamingResponseFinish
		m.StreamingResponseFinish = finish
	default:
		return ErrInvalidEnvelope
	}
	return nil
}
