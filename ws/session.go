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

import "time"

// Session mediates one RFC 6455 WebSocket connection: a resumable inbound
// framer and an unmasked outbound framer, driven cooperatively by Process.
// A Session is not safe for concurrent use; exactly one goroutine must own
// and drive it.
type Session struct {
	id string

	in  InputSink
	out OutputSink

	open        bool
	sentClose   bool
	closeReason CloseCode
	haveReason  bool

	// Fragment-reassembly state (spec.md §3's pending* fields).
	pendingOpcode OpCode
	pendingFin    bool // true while awaiting more fragments
	pendingLeft   int64
	pendingMask   [4]byte
	pendingBuf    []byte

	onText   func(string)
	onBinary func([]byte)
	onPing   func([]byte)
	onPong   func([]byte)

	logger  Logger
	limiter *Limiter

	checksumPayloads bool
}

// SessionOption configures optional, non-protocol-affecting behavior of a
// Session at construction time.
type SessionOption func(*Session)

// WithLogger attaches a Logger used for diagnostic output while driving the
// session. A nil logger (the default) discards everything.
func WithLogger(l Logger) SessionOption {
	return func(s *Session) { s.logger = l }
}

// WithLimiter attaches a rate Limiter checked once per Process tick before
// any inbound frame is drained.
func WithLimiter(l *Limiter) SessionOption {
	return func(s *Session) { s.limiter = l }
}

// WithChecksumLogging enables a trace-level log line, carrying a
// HighwayHash checksum of the payload, on every delivered text/binary
// message.
func WithChecksumLogging(enabled bool) SessionOption {
	return func(s *Session) { s.checksumPayloads = enabled }
}

// newSession constructs a live Session bound to in/out with all pending
// state at its zero/default value, per spec.md §4.1's handshake success
// contract.
func newSession(in InputSink, out OutputSink, opts ...SessionOption) *Session {
	s := &Session{
		id:     newSessionID(),
		in:     in,
		out:    out,
		open:   true,
		logger: nopLogger{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = nopLogger{}
	}
	return s
}

// ID returns the session's stable, log-correlation identifier.
func (s *Session) ID() string { return s.id }

// Open reports whether the session is still logically alive.
func (s *Session) Open() bool { return s.open }

// CloseReason returns the final close reason once the session has stopped,
// and whether one has been recorded.
func (s *Session) CloseReason() (CloseCode, bool) { return s.closeReason, s.haveReason }

// OnText registers the callback invoked for each complete, delivered text
// message.
func (s *Session) OnText(f func(string)) { s.onText = f }

// OnBinary registers the callback invoked for each complete, delivered
// binary message.
func (s *Session) OnBinary(f func([]byte)) { s.onBinary = f }

// OnPing registers the callback invoked when an inbound PING is received,
// after the automatic PONG reply has been enqueued.
func (s *Session) OnPing(f func([]byte)) { s.onPing = f }

// OnPong registers the callback invoked when an inbound PONG is received.
func (s *Session) OnPong(f func([]byte)) { s.onPong = f }

// recordCloseReason latches the final reason for the session's termination.
// Only the first call has any effect. It does not clear open: per invariant
// 4 in spec.md §3, open is cleared only once the output buffer has actually
// drained, which Process alone observes.
func (s *Session) recordCloseReason(reason CloseCode) {
	if !s.haveReason {
		s.closeReason = reason
		s.haveReason = true
	}
}

// pollInterval bounds how often Process re-probes the input sink while
// waiting out timeoutSeconds with no real readiness notification available.
const pollInterval = 2 * time.Millisecond

// Process performs one driver tick: flush pending output, wait (up to
// timeoutSeconds) for read readiness, drain available inbound frames, and
// keep the invariants of spec.md §3 intact. It returns false once the
// session is fully terminated and should be discarded.
//
// There is no OS-level readiness notification behind InputSink/OutputSink
// (see connSink's TryFill), so "wait for readiness up to timeoutSeconds" is
// realized as a bounded probe loop rather than a single blocking select.
func (s *Session) Process(timeoutSeconds float64) bool {
	s.out.Flush(false)
	if s.sentClose && s.out.Empty() {
		s.open = false
		return false
	}
	if s.limiter != nil && !s.limiter.Allow() {
		return true
	}
	if s.sentClose {
		return true
	}

	deadline := time.Now().Add(time.Duration(timeoutSeconds * float64(time.Second)))
	for {
		filled := !s.in.Empty()
		if !filled {
			filled = s.in.TryFill()
		}
		if filled {
			for !s.in.Empty() {
				cont, err := s.step()
				if err != nil {
					s.logger.Debugf("websocket session %s: %v", s.id, err)
				}
				if !cont {
					break
				}
			}
			s.out.Flush(false)
			if s.sentClose && s.out.Empty() {
				s.open = false
				return false
			}
			return true
		}
		if time.Now().After(deadline) {
			return true
		}
		time.Sleep(pollInterval)
	}
}

// Send writes a complete, final, unmasked data frame for payload b with
// the given opcode (OpText or OpBinary).
func (s *Session) Send(op OpCode, b []byte) {
	s.sendFrame(op, b)
}

// SendText is a convenience wrapper over Send for OpText.
func (s *Session) SendText(text string) {
	s.sendFrame(OpText, []byte(text))
}

// Ping enqueues a PING control frame. payload must be <=125 bytes.
func (s *Session) Ping(payload []byte) {
	s.sendFrame(OpPing, payload)
}

// Pong enqueues a PONG control frame. payload must be <=125 bytes.
func (s *Session) Pong(payload []byte) {
	s.sendFrame(OpPong, payload)
}

// Close enqueues a Close frame carrying code, and is idempotent: once a
// Close has already been sent, further calls are a no-op (REDESIGN FLAGS:
// spec.md §9c). The session stays open, in the sense Open() reports, until
// Process observes the Close frame has actually drained.
func (s *Session) Close(code CloseCode) {
	if s.sentClose {
		return
	}
	s.recordCloseReason(code)
	body := createCloseMessage(code, "")
	s.enqueueControl(OpClose, body)
	s.sentClose = true
}

// sendFrame pushes a single-frame, final, unmasked message of the given
// opcode and payload to the output sink. A push failure means the
// transport is already broken, so it latches an abnormal closure and stops
// sending further frames; Process still owns clearing open once drained.
func (s *Session) sendFrame(op OpCode, payload []byte) {
	if s.sentClose {
		return
	}
	fh := createFrameHeader(op, len(payload))
	if !s.out.Push(fh) || (len(payload) > 0 && !s.out.Push(payload)) {
		s.recordCloseReason(CloseAbnormalClosure)
		s.sentClose = true
		return
	}
	s.out.Flush(false)
}

// enqueueControl pushes a control frame (header + payload) as a single
// unit; used for PONG replies and Close frames.
func (s *Session) enqueueControl(op OpCode, payload []byte) {
	fh := createFrameHeader(op, len(payload))
	if !s.out.Push(fh) || (len(payload) > 0 && !s.out.Push(payload)) {
		s.recordCloseReason(CloseAbnormalClosure)
		s.sentClose = true
		return
	}
	s.out.Flush(false)
}
