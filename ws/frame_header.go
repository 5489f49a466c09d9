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

import "encoding/binary"

// fillFrameHeader encodes an outbound (never masked) frame header for a
// payload of length l into fh, returning the number of bytes written.
// Server frames always have the mask bit clear; see §8's "server frames
// never masked" property.
func fillFrameHeader(fh []byte, final bool, op OpCode, l int) int {
	b := byte(op)
	if final {
		b |= finalBit
	}
	switch {
	case l <= 125:
		fh[0] = b
		fh[1] = byte(l)
		return 2
	case l < 65536:
		fh[0] = b
		fh[1] = 126
		binary.BigEndian.PutUint16(fh[2:], uint16(l))
		return 4
	default:
		fh[0] = b
		fh[1] = 127
		binary.BigEndian.PutUint64(fh[2:], uint64(l))
		return 10
	}
}

// createFrameHeader returns a freshly allocated, final, unmasked frame
// header for op and payload length l.
func createFrameHeader(op OpCode, l int) []byte {
	fh := make([]byte, maxFrameHeaderSize)
	n := fillFrameHeader(fh, true, op, l)
	return fh[:n]
}

// createCloseMessage builds a Close frame's payload: a 2-byte big-endian
// status code, optionally followed by a UTF-8 reason, truncated to fit
// within maxControlPayloadSize.
func createCloseMessage(status CloseCode, body string) []byte {
	if len(body) > maxControlPayloadSize-2 {
		body = body[:maxControlPayloadSize-5] + "..."
	}
	buf := make([]byte, 2+len(body))
	binary.BigEndian.PutUint16(buf[:2], uint16(status))
	copy(buf[2:], body)
	return buf
}
