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

import (
	"math/rand"
	"testing"
)

func hexBytes(t *testing.T, s string) []byte {
	t.Helper()
	b := make([]byte, 0, len(s)/2)
	var hi byte
	have := false
	for _, c := range s {
		if c == ' ' {
			continue
		}
		var v byte
		switch {
		case c >= '0' && c <= '9':
			v = byte(c - '0')
		case c >= 'a' && c <= 'f':
			v = byte(c-'a') + 10
		case c >= 'A' && c <= 'F':
			v = byte(c-'A') + 10
		default:
			t.Fatalf("bad hex char %q", c)
		}
		if !have {
			hi = v
			have = true
		} else {
			b = append(b, hi<<4|v)
			have = false
		}
	}
	return b
}

func newTestSession() (*memState, *Session) {
	state, in, out := newMemSinks()
	return state, newSession(in, out)
}

func TestSmallTextMessage(t *testing.T) {
	state, s := newTestSession()
	var got string
	s.OnText(func(text string) { got = text })

	state.feed(hexBytes(t, "81 85 37 fa 21 3d 7f 9f 4d 51 58"))
	for !state.s_empty() {
		if cont, _ := s.step(); !cont {
			break
		}
	}
	if got != "Hello" {
		t.Fatalf("onText = %q, want Hello", got)
	}
}

func TestUnsolicitedPong(t *testing.T) {
	state, s := newTestSession()
	fired := false
	s.OnPong(func(b []byte) {
		fired = true
		if len(b) != 0 {
			t.Fatalf("expected empty pong payload, got %v", b)
		}
	})

	state.feed(hexBytes(t, "8A 80 11 22 33 44"))
	for !state.s_empty() {
		if cont, _ := s.step(); !cont {
			break
		}
	}
	if !fired {
		t.Fatal("onPong never fired")
	}
	if state.out.Len() != 0 {
		t.Fatalf("expected nothing sent, got %d bytes", state.out.Len())
	}
}

func TestPingTriggersPong(t *testing.T) {
	state, s := newTestSession()
	var pinged []byte
	s.OnPing(func(b []byte) { pinged = append([]byte{}, b...) })

	state.feed(hexBytes(t, "89 85 ab cd ef 01 cb af 83 6d c4"))
	for !state.s_empty() {
		if cont, _ := s.step(); !cont {
			break
		}
	}
	// cb af 83 6d c4 XOR ab cd ef 01 ab = 60 62 6c 6c 6f.
	if string(pinged) != "`bllo" {
		t.Fatalf("onPing payload = %q, want `bllo", pinged)
	}
	got := state.out.Bytes()
	want := append([]byte{0x8A, 0x05}, []byte("`bllo")...)
	if !bytesEqual(got, want) {
		t.Fatalf("pong frame = % x, want % x", got, want)
	}
}

func TestFragmentedBinary(t *testing.T) {
	state, s := newTestSession()
	var got []byte
	s.OnBinary(func(b []byte) { got = append([]byte{}, b...) })

	state.feed(hexBytes(t, "02 82 AA AA AA AA"))
	// The exact wire bytes for m1/m2 aren't pinned by the spec beyond "4
	// unmasked bytes in order"; mask them ourselves against the stated
	// key so the unmask step is exercised identically to a real client.
	mask1 := [4]byte{0xAA, 0xAA, 0xAA, 0xAA}
	payload1 := []byte{0x01, 0x02}
	masked1 := make([]byte, len(payload1))
	for i, b := range payload1 {
		masked1[i] = b ^ mask1[i%4]
	}
	state.feed(masked1)

	mask2 := [4]byte{0xBB, 0xBB, 0xBB, 0xBB}
	payload2 := []byte{0x03, 0x04}
	masked2 := make([]byte, len(payload2))
	for i, b := range payload2 {
		masked2[i] = b ^ mask2[i%4]
	}
	state.feed(hexBytes(t, "80 82 BB BB BB BB"))
	state.feed(masked2)

	for !state.s_empty() {
		if cont, _ := s.step(); !cont {
			break
		}
	}
	want := []byte{0x01, 0x02, 0x03, 0x04}
	if !bytesEqual(got, want) {
		t.Fatalf("onBinary = % x, want % x", got, want)
	}
}

func TestUnmaskedFrameIsProtocolViolation(t *testing.T) {
	state, s := newTestSession()
	state.feed(hexBytes(t, "81 05 48 65 6c 6c 6f"))
	for !state.s_empty() {
		if cont, _ := s.step(); !cont {
			break
		}
	}
	if !s.sentClose {
		t.Fatal("expected sentClose after protocol violation")
	}
	code, ok := s.CloseReason()
	if !ok || code != CloseProtocolError {
		t.Fatalf("closeReason = %v (ok=%v), want PROTOCOL_ERROR", code, ok)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	_, s := newTestSession()
	s.Close(CloseNormalClosure)
	firstLen := lastOutLen(s)
	s.Close(CloseNormalClosure)
	if lastOutLen(s) != firstLen {
		t.Fatal("second Close call enqueued additional bytes")
	}
}

func TestUnmaskIdempotenceUnderChunking(t *testing.T) {
	state, s := newTestSession()
	var got []byte
	s.OnBinary(func(b []byte) { got = append([]byte{}, b...) })

	payload := make([]byte, 1000)
	rand.New(rand.NewSource(1)).Read(payload)
	var mask [4]byte
	rand.New(rand.NewSource(2)).Read(mask[:])

	masked := make([]byte, len(payload))
	for i, b := range payload {
		masked[i] = b ^ mask[i%4]
	}

	header := make([]byte, 4)
	header[0] = 0x80 | byte(OpBinary)
	header[1] = 0x80 | 126
	header[2] = byte(len(payload) >> 8)
	header[3] = byte(len(payload))
	frame := append(append(header, mask[:]...), masked...)

	r := rand.New(rand.NewSource(3))
	for len(frame) > 0 {
		n := 1 + r.Intn(7)
		if n > len(frame) {
			n = len(frame)
		}
		state.feed(frame[:n])
		frame = frame[n:]
	}

	for i := 0; i < 10000 && got == nil; i++ {
		if cont, _ := s.step(); !cont {
			break
		}
	}
	if !bytesEqual(got, payload) {
		t.Fatalf("reassembled payload mismatch (got %d bytes, want %d)", len(got), len(payload))
	}
}

func lastOutLen(s *Session) int {
	ms, ok := s.out.(memOut)
	if !ok {
		return -1
	}
	return ms.s.out.Len()
}

func (m *memState) s_empty() bool {
	return m.pos >= len(m.cur) && len(m.chunks) == 0
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
