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

// Defaults for the framed IO adapter, per spec.md §4.4.
const (
	DefaultMaxPayloadBytes = 4096
	DefaultMaxFds          = 16
)

type frameConfig struct {
	maxPayloadBytes int
	maxFds          int
}

func defaultFrameConfig() frameConfig {
	return frameConfig{maxPayloadBytes: DefaultMaxPayloadBytes, maxFds: DefaultMaxFds}
}

// Option configures a Reader or Writer's frame size limits.
type Option func(*frameConfig)

// WithMaxPayloadBytes overrides the default maximum payload size of a
// single frame.
func WithMaxPayloadBytes(n int) Option {
	return func(c *frameConfig) { c.maxPayloadBytes = n }
}

// WithMaxFds overrides the default maximum number of file descriptors
// carried by a single frame.
func WithMaxFds(n int) Option {
	return func(c *frameConfig) { c.maxFds = n }
}

func applyOptions(opts []Option) frameConfig {
	c := defaultFrameConfig()
	for _, opt := range opts {
		opt(&c)
	}
	return c
}
