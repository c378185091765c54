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

// Method identifies an RPC as an immutable (service, rpc) pair, both short
// identifiers, per spec.md §3.
type Method struct {
	Service string
	RPC     string
}

func (m Method) build(b *argdata.Builder) argdata.Value {
	return b.BuildMap(
		[]argdata.Value{b.BuildStr([]byte("service")), b.BuildStr([]byte("rpc"))},
		[]argdata.Value{b.BuildStr([]byte(m.Service)), b.BuildStr([]byte(m.RPC))},
	)
}

func parseMethod(v argdata.Value) (Method, error) {
	it, err := v.Map()
	if err != nil {
		return Method{}, ErrInvalidEnvelope
	}
	var m Method
	for it.Next() {
		key, ok := it.Key().Str()
		if !ok {
			return Method{}, ErrInvalidEnvelope
		}
		val, ok := it.Value().Str()
		if !ok {
			return Method{}, ErrInvalidEnvelope
		}
		switch string(key) {
		case "service":
			m.Service = string(val)
		case "rpc":
			m.RPC = string(val)
		}
	}
	return m, nil
}
