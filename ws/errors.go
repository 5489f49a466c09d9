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

import "github.com/pkg/errors"

// Sentinel handshake errors returned by Accept alongside the HTTP response
// it has already written.
var (
	errBadUpgrade    = errors.New("must send a websocket request")
	errBadVersion    = errors.New("unsupported version")
	errMissingKey    = errors.New("cannot accept without key")
	errOriginDenied  = errors.New("origin not allowed")
	errAuthRejected  = errors.New("handshake authentication rejected")
	errNotHijackable = errors.New("response writer does not support hijacking")
)

// protocolError wraps the inbound framer's protocol-violation detail so a
// caller logging %+v gets the offending reason plus a stack trace.
func protocolError(reason string) error {
	return errors.Wrap(errors.New(reason), "websocket protocol error")
}
