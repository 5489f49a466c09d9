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
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/nats-io/jwt/v2"
	"github.com/nats-io/nkeys"
)

// verifyNkeyProtocol requires a Sec-WebSocket-Protocol header of the form
// "nkey.<public-key>.<base64-signature>", where the signature is an Ed25519
// signature (via the NATS nkeys ecosystem) over the request's
// Sec-WebSocket-Key bytes. It is a standalone-session analogue of the
// teacher's user/nkey config table: since this package owns no user
// database, the credential itself carries the identity to verify against.
func verifyNkeyProtocol(r *http.Request, key string) error {
	proto := r.Header.Get("Sec-WebSocket-Protocol")
	parts := strings.SplitN(proto, ".", 3)
	if len(parts) != 3 || parts[0] != "nkey" {
		return errAuthRejected
	}
	pub, sigB64 := parts[1], parts[2]

	sig, err := base64.StdEncoding.DecodeString(sigB64)
	if err != nil {
		return errAuthRejected
	}
	kp, err := nkeys.FromPublicKey(pub)
	if err != nil {
		return errAuthRejected
	}
	if err := kp.Verify([]byte(key), sig); err != nil {
		return errAuthRejected
	}
	return nil
}

// verifyJWTCookie requires a cookie named cookieName carrying a JWT that
// decodes and verifies via nats-io/jwt's generic claims decoder. Grounded
// in the teacher's opts.Websocket.JWTCookie / ws.cookieJwt fields, which
// stash the raw cookie value for later verification by a downstream auth
// subsystem this standalone package does not have, so verification happens
// here instead.
func verifyJWTCookie(r *http.Request, cookieName string) error {
	c, err := r.Cookie(cookieName)
	if err != nil || c.Value == "" {
		return errAuthRejected
	}
	claims, err := jwt.DecodeGeneric(c.Value)
	if err != nil {
		return errAuthRejected
	}
	vr := jwt.CreateValidationResults()
	claims.Validate(vr)
	if !vr.IsEmpty() && vr.IsBlocking(true) {
		return errAuthRejected
	}
	return nil
}
