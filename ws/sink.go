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
	"bufio"
	"io"
	"net"
	"time"
)

// InputSink is the byte-oriented read side a Session drains. It is always
// owned and closed by the caller; a Session only borrows it.
type InputSink interface {
	// Empty reports whether the sink currently holds any buffered bytes.
	Empty() bool
	// TryFill attempts one non-blocking read from the underlying transport
	// into the sink's buffer. It returns false on EOF, error, or "nothing
	// available right now".
	TryFill() bool
	// TakeExact copies exactly n bytes into dst, blocking (up to the sink's
	// own bounded wait policy) until they are available. It returns false
	// if n bytes could never be assembled.
	TakeExact(dst []byte, n int) bool
	// TakeAtMost copies up to n bytes, already buffered or from one
	// immediate read, into dst and returns the count actually copied.
	TakeAtMost(dst []byte, n int) int
}

// OutputSink is the byte-oriented write side a Session pushes frames into.
type OutputSink interface {
	// Push buffers b for later flushing. It returns false only on a fatal
	// write error.
	Push(b []byte) bool
	// Flush attempts to drain buffered bytes to the transport. When
	// blocking is false this must not stall indefinitely.
	Flush(blocking bool)
	// Empty reports whether all buffered bytes have been flushed.
	Empty() bool
}

// connSink is the production InputSink/OutputSink pair over a net.Conn,
// implementing the non-blocking-probe idiom with an already-expired read
// deadline in place of a raw poll/epoll syscall.
type connSink struct {
	conn net.Conn
	r    *bufio.Reader
	w    *bufio.Writer

	readBuf []byte
	rPos    int
	rEnd    int
}

// NewConnSink wraps conn in an InputSink/OutputSink pair backed by buffered
// I/O. readBufSize bounds the size of one TryFill probe; 4096 is a
// reasonable default when 0 is passed. The two returned values share the
// same underlying connSink but are distinct wrapper types, each with an
// Empty() that reports its own side's state rather than the other's.
func NewConnSink(conn net.Conn, readBufSize int) (InputSink, OutputSink) {
	if readBufSize <= 0 {
		readBufSize = 4096
	}
	cs := &connSink{
		conn:    conn,
		r:       bufio.NewReader(conn),
		w:       bufio.NewWriter(conn),
		readBuf: make([]byte, readBufSize),
	}
	return connInSink{cs}, connOutSink{cs}
}

// connInSink is the InputSink half of a connSink.
type connInSink struct{ c *connSink }

// connOutSink is the OutputSink half of a connSink.
type connOutSink struct{ c *connSink }

func (s connInSink) Empty() bool                      { return s.c.inEmpty() }
func (s connInSink) TryFill() bool                    { return s.c.TryFill() }
func (s connInSink) TakeExact(dst []byte, n int) bool { return s.c.TakeExact(dst, n) }
func (s connInSink) TakeAtMost(dst []byte, n int) int { return s.c.TakeAtMost(dst, n) }

func (s connOutSink) Push(b []byte) bool  { return s.c.Push(b) }
func (s connOutSink) Flush(blocking bool) { s.c.Flush(blocking) }
func (s connOutSink) Empty() bool         { return s.c.outEmpty() }

func (c *connSink) inEmpty() bool {
	return c.rPos >= c.rEnd && c.r.Buffered() == 0
}

func (c *connSink) outEmpty() bool {
	return c.w.Buffered() == 0
}

// TryFill is the non-blocking probe: set a read deadline one millisecond
// out, attempt a Read, and treat a timeout with zero bytes as "nothing
// right now" rather than an error. (A deadline already in the past makes
// Read fail at once without reading, even when data is waiting.)
func (c *connSink) TryFill() bool {
	if c.rPos < c.rEnd {
		return true
	}
	_ = c.conn.SetReadDeadline(time.Now().Add(time.Millisecond))
	n, err := c.r.Read(c.readBuf)
	_ = c.conn.SetReadDeadline(time.Time{})
	if n > 0 {
		c.rPos, c.rEnd = 0, n
		return true
	}
	_ = err
	return false
}

func (c *connSink) drain(dst []byte) int {
	n := copy(dst, c.readBuf[c.rPos:c.rEnd])
	c.rPos += n
	return n
}

// TakeExact clears any non-blocking deadline, then reads exactly n bytes,
// first from whatever is already buffered from a prior TryFill, then
// directly (and, if necessary, blockingly) from the connection.
func (c *connSink) TakeExact(dst []byte, n int) bool {
	if len(dst) < n {
		return false
	}
	got := c.drain(dst[:n])
	if got == n {
		return true
	}
	_ = c.conn.SetReadDeadline(time.Time{})
	_, err := io.ReadFull(c.r, dst[got:n])
	return err == nil
}

// TakeAtMost returns whatever is immediately available, up to n bytes:
// first from the residual TryFill buffer, then one more buffered read.
func (c *connSink) TakeAtMost(dst []byte, n int) int {
	if n > len(dst) {
		n = len(dst)
	}
	got := c.drain(dst[:n])
	if got == n || c.r.Buffered() == 0 {
		return got
	}
	m, _ := c.r.Read(dst[got:n])
	return got + m
}

func (c *connSink) Push(b []byte) bool {
	_, err := c.w.Write(b)
	return err == nil
}

// Flush drains the bufio.Writer to the connection. A blocking flush sets a
// generous write deadline; a non-blocking flush sets a 100ms one. A flush
// that times out leaves the unwritten bytes buffered, and the bufio.Writer
// keeps the error, so every later Push reports failure.
func (c *connSink) Flush(blocking bool) {
	if c.w.Buffered() == 0 {
		return
	}
	if blocking {
		_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	} else {
		_ = c.conn.SetWriteDeadline(time.Now().Add(100 * time.Millisecond))
	}
	_ = c.w.Flush()
	_ = c.conn.SetWriteDeadline(time.Time{})
}
