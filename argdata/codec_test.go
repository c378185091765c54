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

package argdata

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func roundTrip(t *testing.T, v Value, fds []int) Value {
	t.Helper()
	payload, encodedFds, err := encode(v)
	require.NoError(t, err)
	require.Equal(t, fds, encodedFds)
	got, err := decode(payload, encodedFds)
	require.NoError(t, err)
	return got
}

func TestCodec_RoundTripScalars(t *testing.T) {
	require.Equal(t, KindNull, roundTrip(t, Null(), nil).Kind())

	b := NewBuilder()
	got := roundTrip(t, b.BuildInt(-12345), nil)
	n, ok := got.Int()
	require.True(t, ok)
	require.Equal(t, int64(-12345), n)

	got = roundTrip(t, b.BuildStr([]byte("hello, world!")), nil)
	s, ok := got.Str()
	require.True(t, ok)
	require.Equal(t, "hello, world!", string(s))
}

func TestCodec_RoundTripMapAndSeq(t *testing.T) {
	b := NewBuilder()
	m := b.BuildMap(
		[]Value{b.BuildStr([]byte("a")), b.BuildStr([]byte("b"))},
		[]Value{b.BuildInt(1), b.BuildInt(2)},
	)
	got := roundTrip(t, m, nil)
	it, err := got.Map()
	require.NoError(t, err)
	require.Equal(t, 2, it.Len())
	require.True(t, it.Next())
	k, _ := it.Key().Str()
	require.Equal(t, "a", string(k))
	v, _ := it.Value().Int()
	require.Equal(t, int64(1), v)

	seq := b.BuildSeq([]Value{b.BuildInt(1), b.BuildInt(2), b.BuildInt(3)})
	got = roundTrip(t, seq, nil)
	elems, ok := got.Seq()
	require.True(t, ok)
	require.Len(t, elems, 3)
}

func TestCodec_FdAtomsDedupAndIndex(t *testing.T) {
	b := NewBuilder()
	h := NewFileDescriptorHandle(7)
	defer h.Release()
	seq := b.BuildSeq([]Value{b.BuildFd(h), b.BuildFd(h)})
	payload, fds, err := encode(seq)
	require.NoError(t, err)
	require.Equal(t, []int{7}, fds, "the same fd referenced twice must only be sent once")

	got, err := decode(payload, fds)
	require.NoError(t, err)
	elems, _ := got.Seq()
	require.Len(t, elems, 2)
	fd0, err := elems[0].Fd()
	require.NoError(t, err)
	fd1, err := elems[1].Fd()
	require.NoError(t, err)
	require.Equal(t, 7, fd0)
	require.Equal(t, 7, fd1)
}

func TestCodec_DecodeMalformed(t *testing.T) {
	_, err := decode([]byte{0x61}, nil) // ASCII 'a', not a valid tag
	require.ErrorIs(t, err, ErrMalformedFrame)
}

func TestCodec_DecodeTruncated(t *testing.T) {
	_, err := decode([]byte{tagStr, 10}, nil) // claims 10 bytes, has none
	require.ErrorIs(t, err, ErrMalformedFrame)
}

func TestCodec_DecodeFdIndexOutOfRange(t *testing.T) {
	b := NewBuilder()
	h := NewFileDescriptorHandle(3)
	defer h.Release()
	payload, _, err := encode(b.BuildFd(h))
	require.NoError(t, err)
	_, err = decode(payload, nil) // no fd table supplied
	require.ErrorIs(t, err, ErrMalformedFrame)
}

func TestCodec_DecodeTrailingBytes(t *testing.T) {
	payload, _, err := encode(Null())
	require.NoError(t, err)
	_, err = decode(append(payload, 0x00), nil)
	require.ErrorIs(t, err, ErrMalformedFrame)
}
