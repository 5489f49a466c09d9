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
	"github.com/pion/logging"
	"github.com/rs/zerolog"
)

// Logger is the leveled-logger seam used by the hot path. It is the same
// shape as pion's LeveledLogger so callers already wiring pion-based
// transports can reuse a single logging factory across both.
type Logger = logging.LeveledLogger

// nopLogger satisfies Logger by discarding everything; used when a Session
// is constructed without an explicit logger.
type nopLogger struct{}

func (nopLogger) Trace(string)          {}
func (nopLogger) Tracef(string, ...any) {}
func (nopLogger) Debug(string)          {}
func (nopLogger) Debugf(string, ...any) {}
func (nopLogger) Info(string)           {}
func (nopLogger) Infof(string, ...any)  {}
func (nopLogger) Warn(string)           {}
func (nopLogger) Warnf(string, ...any)  {}
func (nopLogger) Error(string)          {}
func (nopLogger) Errorf(string, ...any) {}

// zerologLeveledLogger adapts a zerolog.Logger to pion/logging's
// LeveledLogger interface.
type zerologLeveledLogger struct {
	l zerolog.Logger
}

// NewZerologLogger returns a Logger backed by the given zerolog.Logger,
// for use as a Session's logger or as part of a LoggerFactory.
func NewZerologLogger(l zerolog.Logger) Logger {
	return &zerologLeveledLogger{l: l}
}

func (z *zerologLeveledLogger) Trace(msg string)                 { z.l.Trace().Msg(msg) }
func (z *zerologLeveledLogger) Tracef(format string, args ...any) { z.l.Trace().Msgf(format, args...) }
func (z *zerologLeveledLogger) Debug(msg string)                 { z.l.Debug().Msg(msg) }
func (z *zerologLeveledLogger) Debugf(format string, args ...any) { z.l.Debug().Msgf(format, args...) }
func (z *zerologLeveledLogger) Info(msg string)                  { z.l.Info().Msg(msg) }
func (z *zerologLeveledLogger) Infof(format string, args ...any)  { z.l.Info().Msgf(format, args...) }
func (z *zerologLeveledLogger) Warn(msg string)                  { z.l.Warn().Msg(msg) }
func (z *zerologLeveledLogger) Warnf(format string, args ...any)  { z.l.Warn().Msgf(format, args...) }
func (z *zerologLeveledLogger) Error(msg string)                 { z.l.Error().Msg(msg) }
func (z *zerologLeveledLogger) Errorf(format string, args ...any) { z.l.Error().Msgf(format, args...) }

// zerologLoggerFactory adapts a base zerolog.Logger into a
// logging.LoggerFactory, handing out per-scope child loggers.
type zerologLoggerFactory struct {
	base zerolog.Logger
}

// NewZerologLoggerFactory returns a logging.LoggerFactory that derives
// scoped Loggers from base, tagging each with a "scope" field.
func NewZerologLoggerFactory(base zerolog.Logger) logging.LoggerFactory {
	return &zerologLoggerFactory{base: base}
}

func (f *zerologLoggerFactory) NewLogger(scope string) logging.LeveledLogger {
	return NewZerologLogger(f.base.With().Str("scope", scope).Logger())
}
