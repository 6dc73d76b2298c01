// Copyright (c) 2025 Tulir Asokan
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package waLog contains a simple logger interface used by the other tgbridge packages.
package waLog

import (
	"fmt"
	"strings"
	"time"
)

const (
	DebugLevel = "DEBUG"
	InfoLevel  = "INFO"
	WarnLevel  = "WARN"
	ErrorLevel = "ERROR"
)

// Logger is a simple logger interface that can have subloggers for specific areas.
type Logger interface {
	Warnf(msg string, args ...any)
	Errorf(msg string, args ...any)
	Infof(msg string, args ...any)
	Debugf(msg string, args ...any)
	Sub(module string) Logger
}

type noopLogger struct{}

func (n *noopLogger) Errorf(_ string, _ ...any) {}
func (n *noopLogger) Warnf(_ string, _ ...any)  {}
func (n *noopLogger) Infof(_ string, _ ...any)  {}
func (n *noopLogger) Debugf(_ string, _ ...any) {}
func (n *noopLogger) Sub(_ string) Logger       { return n }

// Noop is a no-op Logger implementation that silently drops everything.
var Noop Logger = &noopLogger{}

var levelToInt = map[string]int{
	"":         -1,
	DebugLevel: 0,
	InfoLevel:  1,
	WarnLevel:  2,
	ErrorLevel: 3,
}

type stdoutLogger struct {
	mod   string
	color bool
	min   int
}

var colors = map[string]string{
	InfoLevel:  "\033[36m",
	WarnLevel:  "\033[33m",
	ErrorLevel: "\033[31m",
}

func (s *stdoutLogger) outputf(level, msg string, args ...any) {
	if levelToInt[level] < s.min {
		return
	}
	var colorStart, colorReset string
	if s.color {
		colorStart = colors[level]
		colorReset = "\033[0m"
	}
	fmt.Printf("%s%s [%s %s] %s%s\n", time.Now().Format("15:04:05.000"), colorStart, s.mod, level, fmt.Sprintf(msg, args...), colorReset)
}

func (s *stdoutLogger) Errorf(msg string, args ...any) { s.outputf(ErrorLevel, msg, args...) }
func (s *stdoutLogger) Warnf(msg string, args ...any)  { s.outputf(WarnLevel, msg, args...) }
func (s *stdoutLogger) Infof(msg string, args ...any)  { s.outputf(InfoLevel, msg, args...) }
func (s *stdoutLogger) Debugf(msg string, args ...any) { s.outputf(DebugLevel, msg, args...) }
func (s *stdoutLogger) Sub(mod string) Logger {
	return &stdoutLogger{mod: s.mod + "/" + mod, color: s.color, min: s.min}
}

// Stdout is a simple Logger implementation that outputs to stdout. The module name given is
// included in log lines.
//
// If color is true, then info, warn and error logs will be colored cyan, yellow and red
// respectively using ANSI color escape codes.
//
// The minLevel is the minimum level to log and can be DebugLevel, InfoLevel, WarnLevel or
// ErrorLevel.
func Stdout(module string, minLevel string, color bool) Logger {
	return &stdoutLogger{mod: module, color: color, min: levelToInt[strings.ToUpper(minLevel)]}
}
