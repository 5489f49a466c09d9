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

// Command wsrelayd runs a standalone WebSocket endpoint: it accepts HTTP
// Upgrade requests on a configurable path and drives one ws.Session per
// connection, echoing text/binary messages back to the sender, until
// proven otherwise by a real application wiring its own callbacks.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/lithammer/shortuuid/v4"
	nats "github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"

	"github.com/onepiec1/wsrelay/ws"
)

func main() {
	cmd := &cli.Command{
		Name:  "wsrelayd",
		Usage: "standalone RFC 6455 WebSocket session endpoint",
		Flags: flags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return run(cmd)
		},
	}
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "wsrelayd: %v\n", err)
		os.Exit(1)
	}
}

func run(cmd *cli.Command) error {
	logger := newLogger(cmd.Bool("pretty-log"))

	opts := &ws.AcceptOptions{
		SameOrigin: cmd.Bool("same-origin"),
	}
	if jc := cmd.String("jwt-cookie"); jc != "" {
		opts.JWTCookieName = jc
	}
	if cmd.String("nkey-auth") != "" {
		opts.NkeyAuth = true
	}

	tickTimeout := cmd.Float64("tick-timeout")
	checksum := cmd.Bool("checksum-payloads")

	rateLimit := cmd.Float64("rate-limit")
	rateBurst := int(cmd.Int("rate-burst"))

	natsSubject := cmd.String("nats-subject")
	var nc *nats.Conn
	if natsSubject != "" {
		var err error
		nc, err = nats.Connect(cmd.String("nats-url"))
		if err != nil {
			return fmt.Errorf("nats connect: %w", err)
		}
		defer nc.Close()
	}

	mux := http.NewServeMux()
	mux.HandleFunc(cmd.String("path"), func(w http.ResponseWriter, r *http.Request) {
		reqID := shortuuid.New()
		reqLogger := logger.With().Str("request_id", reqID).Str("remote_addr", r.RemoteAddr).Logger()

		sessOpts := []ws.SessionOption{
			ws.WithLogger(ws.NewZerologLogger(reqLogger)),
			ws.WithChecksumLogging(checksum),
		}
		if rateLimit > 0 {
			sessOpts = append(sessOpts, ws.WithLimiter(ws.NewLimiter(rateLimit, rateBurst)))
		}
		acceptOpts := *opts
		acceptOpts.SessionOptions = sessOpts

		sess, err := ws.Accept(w, r, &acceptOpts)
		if err != nil {
			reqLogger.Warn().Err(err).Msg("websocket handshake rejected")
			return
		}
		reqLogger.Info().Str("session_id", sess.ID()).Msg("websocket session accepted")

		sub, natsOut := wireCallbacks(sess, nc, natsSubject, reqLogger)

		go driveSession(sess, tickTimeout, reqLogger, sub, natsOut)
	})

	addr := cmd.String("addr")
	logger.Info().Str("addr", addr).Str("path", cmd.String("path")).Msg("wsrelayd listening")
	return http.ListenAndServe(addr, mux)
}

// wireCallbacks registers the echo behavior on sess and, when nc is
// non-nil, bridges delivered messages onto subject+".in". Inbound bridge
// traffic from subject+".out" is handed to driveSession as a channel
// rather than sent directly, since nc's delivery goroutine is not the one
// goroutine allowed to drive sess (spec.md §5).
func wireCallbacks(sess *ws.Session, nc *nats.Conn, subject string, logger zerolog.Logger) (*nats.Subscription, <-chan *nats.Msg) {
	if nc == nil {
		sess.OnText(func(text string) { sess.SendText(text) })
		sess.OnBinary(func(b []byte) { sess.Send(ws.OpBinary, b) })
		return nil, nil
	}

	inSubject, outSubject := subject+".in", subject+".out"
	sess.OnText(func(text string) {
		sess.SendText(text)
		if err := nc.Publish(inSubject, []byte(text)); err != nil {
			logger.Warn().Err(err).Msg("nats publish failed")
		}
	})
	sess.OnBinary(func(b []byte) {
		sess.Send(ws.OpBinary, b)
		if err := nc.Publish(inSubject, b); err != nil {
			logger.Warn().Err(err).Msg("nats publish failed")
		}
	})

	natsOut := make(chan *nats.Msg, 64)
	sub, err := nc.ChanSubscribe(outSubject, natsOut)
	if err != nil {
		logger.Warn().Err(err).Msg("nats subscribe failed")
		return nil, nil
	}
	return sub, natsOut
}

// driveSession owns sess exclusively, calling Process in a loop until the
// session terminates, per spec.md §5's single-driver rule. Between ticks it
// drains whatever has piled up on natsOut itself, so every sess.Send call
// still happens on this one goroutine. sub, if non-nil, is unsubscribed
// once the session ends.
func driveSession(sess *ws.Session, tickTimeout float64, logger zerolog.Logger, sub *nats.Subscription, natsOut <-chan *nats.Msg) {
	for sess.Process(tickTimeout) {
		drainNatsOut(sess, natsOut)
	}
	if sub != nil {
		_ = sub.Unsubscribe()
	}
	reason, _ := sess.CloseReason()
	logger.Info().Str("session_id", sess.ID()).Int("close_code", int(reason)).Msg("websocket session closed")
}

func drainNatsOut(sess *ws.Session, natsOut <-chan *nats.Msg) {
	for {
		select {
		case msg := <-natsOut:
			sess.Send(ws.OpBinary, msg.Data)
		default:
			return
		}
	}
}

func newLogger(pretty bool) zerolog.Logger {
	if pretty {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}
