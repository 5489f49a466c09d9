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

// Package ws implements the server side of a single RFC 6455 WebSocket
// session: the HTTP Upgrade handshake, the inbound framing state machine and
// the outbound frame encoder. A Session takes ownership of an already
// hijacked net.Conn (through an InputSink/OutputSink pair) and mediates
// bidirectional, framed, masked message exchange with exactly one client.
package ws
