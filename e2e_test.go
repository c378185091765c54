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
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/NuxiNL/arpc/argdata"
)

func socketpair(t *testing.T) (a, b int) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	require.NoError(t, err)
	return fds[0], fds[1]
}

func mustPipe(t *testing.T) (r, w int) {
	t.Helper()
	var fds [2]int
	require.NoError(t, unix.Pipe(fds[:]))
	return fds[0], fds[1]
}

func testServer() *Server {
	return NewServerBuilder().
		RegisterService(echoService{}).
		RegisterService(adderService{}).
		RegisterService(fibonacciService{}).
		Build()
}

// Scenario 1: bad descriptor.
func TestHandleRequest_BadDescriptor(t *testing.T) {
	server := testServer()
	var cancelled int32
	require.Equal(t, int(unix.EBADF), server.HandleRequest(-1, &cancelled))
}

// Scenario 2: EOF.
func TestHandleRequest_EOF(t *testing.T) {
	a, b := socketpair(t)
	require.NoError(t, unix.Close(a))
	defer unix.Close(b)

	server := testServer()
	var cancelled int32
	require.Equal(t, -1, server.HandleRequest(b, &cancelled))
}

// Scenario 3: garbage byte.
func TestHandleRequest_GarbageByte(t *testing.T) {
	a, b := socketpair(t)
	defer unix.Close(b)

	_, err := unix.Write(a, []byte("a"))
	require.NoError(t, err)
	require.NoError(t, unix.Close(a))

	server := testServer()
	var cancelled int32
	require.Equal(t, int(unix.EBADMSG), server.HandleRequest(b, &cancelled))
}

// Scenario 4: valid frame, unknown variant — a bare null envelope instead
// of a single-key tagged union.
func TestHandleRequest_UnknownVariant(t *testing.T) {
	a, b := socketpair(t)
	defer unix.Close(a)
	defer unix.Close(b)

	w := argdata.NewWriter()
	require.NoError(t, w.Push(a, argdata.Null()))

	server := testServer()
	var cancelled int32
	require.Equal(t, int(unix.EOPNOTSUPP), server.HandleRequest(b, &cancelled))
}

// Scenario 5: unknown service.
func TestBlockingUnaryCall_UnknownService(t *testing.T) {
	a, b := socketpair(t)
	defer unix.Close(a)

	server := testServer()
	var cancelled int32
	done := make(chan int, 1)
	go func() { done <- server.HandleRequest(b, &cancelled) }()
	defer unix.Close(b)

	handle := argdata.NewFileDescriptorHandle(a)
	channel := CreateChannel(handle)
	defer channel.Close()
	defer handle.Release()

	req := &echoMessage{Text: "hi"}
	resp := &echoMessage{}
	status := channel.BlockingUnaryCall(NewClientContext(), Method{Service: "nonexistent.Service", RPC: "Foo"}, req, resp)

	require.Equal(t, CodeUnimplemented, status.Code())
	require.Equal(t, "Service not registered", status.Message())
	<-done
}

// Scenario 6: unary echo, with a descriptor passed alongside the text.
func TestBlockingUnaryCall_Echo(t *testing.T) {
	a, b := socketpair(t)
	defer unix.Close(a)

	server := testServer()
	var cancelled int32
	done := make(chan int, 1)
	go func() { done <- server.HandleRequest(b, &cancelled) }()
	defer unix.Close(b)

	pr, pw := mustPipe(t)
	defer unix.Close(pw)
	_, err := unix.Write(pw, []byte("Hello"))
	require.NoError(t, err)

	handle := argdata.NewFileDescriptorHandle(a)
	channel := CreateChannel(handle)
	defer channel.Close()
	defer handle.Release()

	pipeHandle := argdata.NewFileDescriptorHandle(pr)
	defer pipeHandle.Release()

	req := &echoMessage{Text: "Hello, world!", Handle: pipeHandle}
	resp := &echoMessage{}
	status := channel.BlockingUnaryCall(NewClientContext(), Method{Service: "test.Echo", RPC: "Echo"}, req, resp)

	require.True(t, status.Ok())
	require.Equal(t, "Hello, world!", resp.Text)
	require.NotNil(t, resp.Handle)

	buf := make([]byte, 5)
	n, err := unix.Read(resp.Handle.Get(), buf)
	require.NoError(t, err)
	require.Equal(t, "Hello", string(buf[:n]))
	resp.Handle.Release()

	<-done
}

// Scenario 7: client-streaming sum.
func TestClientStream_Sum(t *testing.T) {
	a, b := socketpair(t)
	defer unix.Close(a)

	server := testServer()
	var cancelled int32
	done := make(chan int, 1)
	go func() { done <- server.HandleRequest(b, &cancelled) }()
	defer unix.Close(b)

	handle := argdata.NewFileDescriptorHandle(a)
	channel := CreateChannel(handle)
	defer channel.Close()
	defer handle.Release()

	writer := channel.NewClientStreamWriter(NewClientContext(), Method{Service: "test.Adder", RPC: "Sum"})
	for _, n := range []int64{237, 7845, 57592, 3, 7284} {
		require.True(t, writer.Write(&intMessage{N: n}))
	}
	require.True(t, writer.WritesDone())

	resp := &intMessage{}
	status := writer.Finish(resp)
	require.True(t, status.Ok())
	require.Equal(t, int64(72961), resp.N)

	<-done
}

// Scenario 8: server-streaming Fibonacci-like sequence.
func TestServerStream_Fibonacci(t *testing.T) {
	a, b := socketpair(t)
	defer unix.Close(a)

	server := testServer()
	var cancelled int32
	done := make(chan int, 1)
	go func() { done <- server.HandleRequest(b, &cancelled) }()
	defer unix.Close(b)

	handle := argdata.NewFileDescriptorHandle(a)
	channel := CreateChannel(handle)
	defer channel.Close()
	defer handle.Release()

	req := &fibonacciRequest{A: 2308, B: 4261, Terms: 5}
	reader := channel.NewServerStreamReader(NewClientContext(), Method{Service: "test.Fibonacci", RPC: "Generate"}, req)

	want := []int64{2308, 4261, 6569, 10830, 17399}
	var got []int64
	var elem intMessage
	for reader.Read(&elem) {
		got = append(got, elem.N)
	}
	require.False(t, reader.Read(&elem))
	status := reader.Finish()
	require.True(t, status.Ok())
	require.Equal(t, want, got)

	<-done
}
