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

package main

import (
	nats "github.com/nats-io/nats.go"
	"github.com/urfave/cli/v3"
)

func flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "addr",
			Value: ":8080",
			Usage: "address to listen on for WebSocket upgrade requests",
		},
		&cli.StringFlag{
			Name:  "path",
			Value: "/ws",
			Usage: "HTTP path that accepts WebSocket upgrades",
		},
		&cli.BoolFlag{
			Name:  "pretty-log",
			Usage: "human-readable console logging instead of JSON",
		},
		&cli.Float64Flag{
			Name:  "tick-timeout",
			Value: 1.0,
			Usage: "seconds each session's Process call waits for readiness",
		},
		&cli.Float64Flag{
			Name:  "rate-limit",
			Value: 0,
			Usage: "max inbound Process ticks per second per session, 0 disables",
		},
		&cli.IntFlag{
			Name:  "rate-burst",
			Value: 20,
			Usage: "token bucket burst size when -rate-limit is set",
		},
		&cli.BoolFlag{
			Name:  "same-origin",
			Usage: "require the Origin header to match the request Host",
		},
		&cli.StringFlag{
			Name:  "nkey-auth",
			Usage: "require a signed Sec-WebSocket-Protocol nkey challenge",
		},
		&cli.StringFlag{
			Name:  "jwt-cookie",
			Usage: "name of a cookie carrying a JWT required at handshake time",
		},
		&cli.BoolFlag{
			Name:  "checksum-payloads",
			Usage: "trace-log a HighwayHash checksum of every delivered message",
		},
		&cli.StringFlag{
			Name:  "nats-url",
			Value: nats.DefaultURL,
			Usage: "NATS server URL used when -nats-subject bridges sessions to NATS",
		},
		&cli.StringFlag{
			Name:  "nats-subject",
			Usage: "base subject to bridge session traffic to/from; empty disables NATS",
		},
	}
}
