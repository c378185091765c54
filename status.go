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
	"strconv"

	"github.com/NuxiNL/arpc/argdata"
)

// Code is the closed taxonomy of RPC outcomes from spec.md §7. The numeric
// values match the order spec.md lists them in, which is also the
// standard gRPC status code numbering — see DESIGN.md for why this port
// does not follow the C++ original's (alphabetical, not wire-stable)
// enum order.
type Code int

const (
	CodeOK Code = iota
	CodeCancelled
	CodeUnknown
	CodeInvalidArgument
	CodeDeadlineExceeded
	CodeNotFound
	CodeAlreadyExists
	CodePermissionDenied
	CodeResourceExhausted
	CodeFailedPrecondition
	CodeAborted
	CodeOutOfRange
	CodeUnimplemented
	CodeInternal
	CodeUnavailable
	CodeDataLoss
	CodeUnauthenticated
)

var codeNames = [...]string{
	CodeOK:                 "OK",
	CodeCancelled:          "CANCELLED",
	CodeUnknown:            "UNKNOWN",
	CodeInvalidArgument:    "INVALID_ARGUMENT",
	CodeDeadlineExceeded:   "DEADLINE_EXCEEDED",
	CodeNotFound:           "NOT_FOUND",
	CodeAlreadyExists:      "ALREADY_EXISTS",
	CodePermissionDenied:   "PERMISSION_DENIED",
	CodeResourceExhausted:  "RESOURCE_EXHAUSTED",
	CodeFailedPrecondition: "FAILED_PRECONDITION",
	CodeAborted:            "ABORTED",
	CodeOutOfRange:         "OUT_OF_RANGE",
	CodeUnimplemented:      "UNIMPLEMENTED",
	CodeInternal:           "INTERNAL",
	CodeUnavailable:        "UNAVAILABLE",
	CodeDataLoss:           "DATA_LOSS",
	CodeUnauthenticated:    "UNAUTHENTICATED",
}

func (c Code) String() string {
	if int(c) < 0 || int(c) >= len(codeNames) {
		return "CODE(" + strconv.Itoa(int(c)) + ")"
	}
	return codeNames[c]
}

// Status is a (code, message) pair, the universal error carrier of the
// protocol. The zero Status is OK, matching the C++ original's default
// constructor.
type Status struct {
	code    Code
	message string
}

// New returns a Status with the given code and message.
func New(code Code, message string) Status {
	return Status{code: code, message: message}
}

// OK returns the success Status.
func OK() Status { return Status{} }

// Code returns the status code.
func (s Status) Code() Code { return s.code }

// Message returns the human-readable message.
func (s Status) Message() string { return s.message }

// Ok reports whether the status is CodeOK. Calling it repeatedly is
// side-effect-free, per the testable property in spec.md §8.
func (s Status) Ok() bool { return s.code == CodeOK }

// Error implements the error interface, so a Status composes with
// errors.Is/errors.As the way connect-go's own *Error does.
func (s Status) Error() string {
	if s.message == "" {
		return s.code.String()
	}
	return s.code.String() + ": " + s.message
}

// Build renders the status as a codec value: {"code": int, "message": str}.
func (s Status) Build(b *argdata.Builder) argdata.Value {
	return b.BuildMap(
		[]argdata.Value{b.BuildStr([]byte("code")), b.BuildStr([]byte("message"))},
		[]argdata.Value{b.BuildInt(int64(s.code)), b.BuildStr([]byte(s.message))},
	)
}

// ParseStatus decodes a Status built by Status.Build.
func ParseStatus(v argdata.Value) (Status, error) {
	it, err := v.Map()
	if err != nil {
		return Status{}, ErrInvalidEnvelope
	}
	var s Status
	for it.Next() {
		key, ok := it.Key().Str()
		if !ok {
			return Status{}, ErrInvalidEnvelope
		}
		switch string(key) {
		case "code":
			n, ok := it.Value().Int()
			if !ok {
				return Status{}, ErrInvalidEnvelope
			}
			s.code = Code(n)
		case "message":
			m, ok := it.Value().Str()
			if !ok {
				return Status{}, ErrInvalidEnvelope
			}
			s.message = string(m)
		}
	}
	return s, nil
}
