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

// echoMessage carries a text field and an optional file descriptor field,
// used by echoService's unary "Echo" rpc to exercise both plain values and
// descriptor passing in one call.
type echoMessage struct {
	Text   string
	Handle *argdata.FileDescriptorHandle
}

func (m *echoMessage) Build(b *argdata.Builder) argdata.Value {
	keys := []argdata.Value{b.BuildStr([]byte("text"))}
	vals := []argdata.Value{b.BuildStr([]byte(m.Text))}
	if m.Handle != nil {
		keys = append(keys, b.BuildStr([]byte("fd")))
		vals = append(vals, b.BuildFd(m.Handle))
	}
	return b.BuildMap(keys, vals)
}

// Release gives up this message's own hold on its descriptor, called by the
// dispatcher once the frame referencing it has been sent.
func (m *echoMessage) Release() {
	if m.Handle != nil {
		m.Handle.Release()
		m.Handle = nil
	}
}

func (m *echoMessage) Parse(v argdata.Value, p *argdata.Parser) error {
	it, err := v.Map()
	if err != nil {
		return err
	}
	for it.Next() {
		key, ok := it.Key().Str()
		if !ok {
			continue
		}
		val := p.ParseAnyFromMap(it)
		switch string(key) {
		case "text":
			s, ok := val.Str()
			if !ok {
				return errors.New("text field is not a string")
			}
			m.Text = string(s)
		case "fd":
			h := p.ParseFileDescriptor(val)
			if h == nil {
				return errors.New("fd field is not a file descriptor")
			}
			m.Handle = h
		}
	}
	return nil
}

// intMessage carries a single integer field, used by adderService's
// client-streaming "Sum" rpc and fibonacciService's server-streaming
// "Generate" rpc.
type intMessage struct {
	N int64
}

func (m *intMessage) Build(b *argdata.Builder) argdata.Value {
	return b.BuildMap(
		[]argdata.Value{b.BuildStr([]byte("n"))},
		[]argdata.Value{b.BuildInt(m.N)},
	)
}

func (m *intMessage) Parse(v argdata.Value, p *argdata.Parser) error {
	it, err := v.Map()
	if err != nil {
		return err
	}
	for it.Next() {
		key, ok := it.Key().Str()
		if ok && string(key) == "n" {
			n, ok := p.ParseAnyFromMap(it).Int()
			if !ok {
				return errors.New("n field is not an integer")
			}
			m.N = n
		}
	}
	return nil
}

// fibonacciRequest carries the three parameters of fibonacciService's
// "Generate" rpc: the first two terms and how many terms to emit.
type fibonacciRequest struct {
	A, B  int64
	Terms int64
}

func (m *fibonacciRequest) Build(b *argdata.Builder) argdata.Value {
	return b.BuildMap(
		[]argdata.Value{b.BuildStr([]byte("a")), b.BuildStr([]byte("b")), b.BuildStr([]byte("terms"))},
		[]argdata.Value{b.BuildInt(m.A), b.BuildInt(m.B), b.BuildInt(m.Terms)},
	)
}

func (m *fibonacciRequest) Parse(v argdata.Value, p *argdata.Parser) error {
	it, err := v.Map()
	if err != nil {
		return err
	}
	for it.Next() {
		key, ok := it.Key().Str()
		if !ok {
			continue
		}
		n, ok := p.ParseAnyFromMap(it).Int()
		if !ok {
			return errors.New("field is not an integer")
		}
		switch string(key) {
		case "a":
			m.A = n
		case "b":
			m.B = n
		case "terms":
			m.Terms = n
		}
	}
	return nil
}

// echoService implements a single unary rpc, "Echo", that returns its
// request's text and fd fields unchanged.
type echoService struct{}

func (echoService) Name() string { return "test.Echo" }

func (echoService) IsStreaming(rpc string) bool { return false }

func (echoService) CallUnary(ctx *ServerContext, rpc string, request argdata.Value, parser *argdata.Parser, stream *ServerWriter) (Message, Status) {
	if rpc != "Echo" {
		return nil, New(CodeUnimplemented, "unknown rpc: "+rpc)
	}
	req := &echoMessage{}
	if err := req.Parse(request, parser); err != nil {
		return nil, New(CodeInvalidArgument, err.Error())
	}
	return &echoMessage{Text: req.Text, Handle: req.Handle}, OK()
}

func (echoService) CallClientStream(ctx *ServerContext, rpc string, reader *ServerReader) (Message, Status) {
	return nil, New(CodeUnimplemented, "test.Echo has no client-streaming rpcs")
}

// adderService implements a client-streaming rpc, "Sum", that adds every
// streamed integer and returns the total.
type adderService struct{}

func (adderService) Name() string { return "test.Adder" }

func (adderService) IsStreaming(rpc string) bool { return rpc == "Sum" }

func (adderService) CallUnary(ctx *ServerContext, rpc string, request argdata.Value, parser *argdata.Parser, stream *ServerWriter) (Message, Status) {
	return nil, New(CodeUnimplemented, "test.Adder has no unary rpcs")
}

func (adderService) CallClientStream(ctx *ServerContext, rpc string, reader *ServerReader) (Message, Status) {
	if rpc != "Sum" {
		return nil, New(CodeUnimplemented, "unknown rpc: "+rpc)
	}
	var total int64
	for {
		var elem intMessage
		if !reader.Read(&elem) {
			break
		}
		total += elem.N
	}
	if err := reader.Err(); err != nil {
		return nil, New(CodeUnavailable, err.Error())
	}
	return &intMessage{N: total}, OK()
}

// fibonacciService implements a server-streaming rpc, "Generate", that
// writes the request's Terms terms of the sequence starting at (A, B).
type fibonacciService struct{}

func (fibonacciService) Name() string { return "test.Fibonacci" }

func (fibonacciService) IsStreaming(rpc string) bool { return false }

func (fibonacciService) CallUnary(ctx *ServerContext, rpc string, request argdata.Value, parser *argdata.Parser, stream *ServerWriter) (Message, Status) {
	if rpc != "Generate" {
		return nil, New(CodeUnimplemented, "unknown rpc: "+rpc)
	}
	req := &fibonacciRequest{}
	if err := req.Parse(request, parser); err != nil {
		return nil, New(CodeInvalidArgument, err.Error())
	}
	a, b := req.A, req.B
	for i := int64(0); i < req.Terms; i++ {
		if !stream.Write(&intMessage{N: a}) {
			return nil, New(CodeUnavailable, "failed to write stream element")
		}
		a, b = b, a+b
	}
	return nil, OK()
}

func (fibonacciService) CallClientStream(ctx *ServerContext, rpc string, reader *ServerReader) (Message, Status) {
	return nil, New(CodeUnimplemented, "test.Fibonacci has no client-streaming rpcs")
}
