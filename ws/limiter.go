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

import "golang.org/x/time/rate"

// Limiter throttles how often a Session's Process tick is allowed to drain
// inbound frames. It is the module's only backpressure knob beyond the
// synchronous push-to-output-buffer contract.
type Limiter struct {
	rl *rate.Limiter
}

// NewLimiter returns a Limiter admitting framesPerSecond ticks per second,
// with burst allowed to accumulate up to burst tokens.
func NewLimiter(framesPerSecond float64, burst int) *Limiter {
	return &Limiter{rl: rate.NewLimiter(rate.Limit(framesPerSecond), burst)}
}

// Allow reports whether the current tick may drain inbound frames.
func (l *Limiter) Allow() bool {
	if l == nil {
		return true
	}
	return l.rl.Allow()
}
