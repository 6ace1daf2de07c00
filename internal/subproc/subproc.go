// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Amp Authors

// Package subproc runs external commands on behalf of scripts.
// Output is captured into size-capped buffers and stderr is mirrored
// to the log, so a chatty child cannot exhaust the host.
package subproc

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os/exec"

	"github.com/amp-player/amp/internal/msg"
)

// DefaultMaxOutput caps captured stdout and stderr when the request
// does not say otherwise.
const DefaultMaxOutput = 16 * 1024 * 1024

// MaxArgs bounds the argument list of a single request.
const MaxArgs = 256

// Request describes one command to run. Cancellable ties the child's
// lifetime to the caller's context; a non-cancellable command runs to
// completion even when playback is aborted.
type Request struct {
	Args        []string
	Cancellable bool
	MaxSize     int
	Env         []string
	Dir         string
}

// Result is the outcome of a finished command. Error is "" when the
// process ran to completion, "init" when it could not be started and
// "killed" when it was cancelled. A non-zero exit code is reported
// through Status alone.
type Result struct {
	Error      string
	Status     int
	Stdout     []byte
	Stderr     []byte
	KilledByUs bool
}

// outputBuffer caps captured process output. Writes past the limit
// are discarded but reported as complete, so the pipe keeps draining.
type outputBuffer struct {
	buf       bytes.Buffer
	limit     int
	truncated bool
}

func newOutputBuffer(limit int) *outputBuffer {
	return &outputBuffer{limit: limit}
}

func (b *outputBuffer) Write(p []byte) (int, error) {
	remaining := b.limit - b.buf.Len()
	if remaining <= 0 {
		b.truncated = true
		return len(p), nil
	}
	if len(p) > remaining {
		b.truncated = true
		b.buf.Write(p[:remaining])
		return len(p), nil
	}
	return b.buf.Write(p)
}

func (b *outputBuffer) Bytes() []byte { return b.buf.Bytes() }

// lineLogger forwards complete stderr lines to the log as the child
// produces them.
type lineLogger struct {
	log     *msg.Logger
	pending []byte
}

func (l *lineLogger) Write(p []byte) (int, error) {
	l.pending = append(l.pending, p...)
	for {
		i := bytes.IndexByte(l.pending, '\n')
		if i < 0 {
			break
		}
		l.log.Infof("%s", l.pending[:i])
		l.pending = l.pending[i+1:]
	}
	return len(p), nil
}

func (l *lineLogger) flush() {
	if len(l.pending) > 0 {
		l.log.Infof("%s", l.pending)
		l.pending = nil
	}
}

// Run executes req and blocks until the child exits. The context only
// kills the child when the request is cancellable. Run never returns
// an error; failures are part of the Result.
func Run(ctx context.Context, log *msg.Logger, req Request) Result {
	if len(req.Args) == 0 || len(req.Args) > MaxArgs {
		return Result{Error: "init", Status: -1}
	}
	max := req.MaxSize
	if max <= 0 {
		max = DefaultMaxOutput
	}
	runCtx := ctx
	if !req.Cancellable || runCtx == nil {
		runCtx = context.Background()
	}

	cmd := exec.CommandContext(runCtx, req.Args[0], req.Args[1:]...)
	if len(req.Env) > 0 {
		cmd.Env = req.Env
	}
	if req.Dir != "" {
		cmd.Dir = req.Dir
	}

	stdout := newOutputBuffer(max)
	stderr := newOutputBuffer(max)
	cmd.Stdout = stdout
	var mirror *lineLogger
	if log != nil {
		mirror = &lineLogger{log: log}
		cmd.Stderr = io.MultiWriter(stderr, mirror)
	} else {
		cmd.Stderr = stderr
	}

	err := cmd.Run()
	if mirror != nil {
		mirror.flush()
	}

	res := Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	if stdout.truncated || stderr.truncated {
		if log != nil {
			log.Warnf("%s: output exceeded %d bytes, truncated", req.Args[0], max)
		}
	}
	if err == nil {
		return res
	}

	var exitErr *exec.ExitError
	switch {
	case runCtx.Err() != nil:
		res.Error = "killed"
		res.KilledByUs = true
		res.Status = -1
	case errors.As(err, &exitErr):
		res.Status = exitErr.ExitCode()
	default:
		res.Error = "init"
		res.Status = -1
	}
	return res
}
