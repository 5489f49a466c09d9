// Copyright 2024 The WSRelay Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ws

import "bytes"

// memState backs a matched pair of in-memory InputSink/OutputSink used by
// tests to exercise the inbound framer's resumability against arbitrary
// TCP chunking, without a real socket.
type memState struct {
	chunks [][]byte
	cur    []byte
	pos    int

	out bytes.Buffer
}

// feed queues a chunk of "arriving" bytes, consumed one per TryFill call.
func (m *memState) feed(b []byte) {
	cp := make([]byte, len(b))
	copy(cp, b)
	m.chunks = append(m.chunks, cp)
}

func (m *memState) tryFill() bool {
	if m.pos < len(m.cur) {
		return true
	}
	if len(m.chunks) == 0 {
		return false
	}
	m.cur = m.chunks[0]
	m.chunks = m.chunks[1:]
	m.pos = 0
	return true
}

// memIn is the InputSink half of a memState.
type memIn struct{ s *memState }

func (m memIn) Empty() bool {
	return m.s.pos >= len(m.s.cur) && len(m.s.chunks) == 0
}

func (m memIn) TryFill() bool { return m.s.tryFill() }

func (m memIn) TakeExact(dst []byte, n int) bool {
	got := 0
	for got < n {
		if m.s.pos >= len(m.s.cur) {
			if !m.s.tryFill() {
				return false
			}
		}
		c := copy(dst[got:n], m.s.cur[m.s.pos:])
		m.s.pos += c
		got += c
	}
	return true
}

func (m memIn) TakeAtMost(dst []byte, n int) int {
	if m.s.pos >= len(m.s.cur) {
		if !m.s.tryFill() {
			return 0
		}
	}
	c := copy(dst[:n], m.s.cur[m.s.pos:])
	m.s.pos += c
	return c
}

// memOut is the OutputSink half of a memState: writes are immediate, so
// it is always "flushed".
type memOut struct{ s *memState }

func (m memOut) Push(b []byte) bool {
	m.s.out.Write(b)
	return true
}

func (m memOut) Flush(blocking bool) {}

func (m memOut) Empty() bool { return true }

// newMemSinks returns a fresh matched InputSink/OutputSink pair and the
// shared state used to feed input and inspect output in tests.
func newMemSinks() (*memState, InputSink, OutputSink) {
	s := &memState{}
	return s, memIn{s}, memOut{s}
}
