// Package executor runs build and deploy commands the way CodeBuild does:
// each command through a shell, phases in install, pre_build, build,
// post_build order, stopping at the first non-zero exit.
package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"os/exec"
	"slices"
	"strings"
	"sync"
)

// Result holds the output and exit status of one command.
type Result struct {
	Command  string
	Stdout   string
	Stderr   string
	Combined string
	ExitCode int
	Err      error
}

// Executor defines the interface for command execution.
type Executor interface {
	// Run executes one shell command.
	Run(ctx context.Context, command string, opts ...Option) (*Result, error)
}

// Options configures command execution behavior.
type Options struct {
	// Output capture into the Result.
	CaptureStdout   bool
	CaptureStderr   bool
	CaptureCombined bool

	// Working directory
	WorkingDir string

	// Environment variables, appended to the inherited environment.
	Env map[string]string

	// Inherited variables with any of these prefixes are dropped.
	DropInherited []string

	// Additional destinations for the command's streams.
	StdoutWriter io.Writer
	StderrWriter io.Writer
}

// Option is a function that modifies Options.
type Option func(*Options)

// DefaultOptions returns default execution options.
func DefaultOptions() *Options {
	return &Options{
		CaptureStdout: true,
		CaptureStderr: true,
		Env:           make(map[string]string),
	}
}

// Shell runs commands through a POSIX shell.
type Shell struct {
	program string
	options *Options
}

// NewShell creates a Shell running commands with "sh -c".
func NewShell(opts ...Option) *Shell {
	options := DefaultOptions()
	for _, opt := range opts {
		opt(options)
	}
	return &Shell{program: "sh", options: options}
}

// Run implements Executor. A non-zero exit is returned as an error together
// with a Result carrying the exit code and captured output.
func (s *Shell) Run(ctx context.Context, command string, opts ...Option) (*Result, error) {
	options := s.with(opts...)

	cmd := exec.CommandContext(ctx, s.program, "-c", command)
	cmd.Dir = options.WorkingDir
	if len(options.Env) > 0 || len(options.DropInherited) > 0 {
		cmd.Env = environ(os.Environ(), options)
	}
	out := newOutput(options)
	cmd.Stdout, cmd.Stderr = out.stdout, out.stderr

	err := cmd.Run()
	result := out.result(command, err)
	if err != nil {
		return result, fmt.Errorf("command %q failed: %w", command, err)
	}
	return result, nil
}

// environ filters inherited and appends configured variables in key order.
func environ(inherited []string, options *Options) []string {
	env := make([]string, 0, len(inherited)+len(options.Env))
	for _, kv := range inherited {
		if !dropped(kv, options.DropInherited) {
			env = append(env, kv)
		}
	}
	for _, k := range slices.Sorted(maps.Keys(options.Env)) {
		env = append(env, k+"="+options.Env[k])
	}
	return env
}

func dropped(kv string, prefixes []string) bool {
	return slices.ContainsFunc(prefixes, func(p string) bool {
		return strings.HasPrefix(kv, p)
	})
}

// output fans a command's streams out to the capture buffers and any
// configured writers.
type output struct {
	stdoutBuf, stderrBuf bytes.Buffer
	combined             lockedBuffer
	stdout, stderr       io.Writer
}

// lockedBuffer is written by both stream copiers of a command.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newOutput(options *Options) *output {
	o := &output{}
	var outs, errs []io.Writer
	if options.CaptureCombined {
		outs = append(outs, &o.combined)
		errs = append(errs, &o.combined)
	}
	if options.CaptureStdout {
		outs = append(outs, &o.stdoutBuf)
	}
	if options.CaptureStderr {
		errs = append(errs, &o.stderrBuf)
	}
	if options.StdoutWriter != nil {
		outs = append(outs, options.StdoutWriter)
	}
	if options.StderrWriter != nil {
		errs = append(errs, options.StderrWriter)
	}
	if len(outs) > 0 {
		o.stdout = io.MultiWriter(outs...)
	}
	if len(errs) > 0 {
		o.stderr = io.MultiWriter(errs...)
	}
	return o
}

// result maps err to an exit code: 0 on success, the process status for
// an exit error, -1 when the command never ran to completion.
func (o *output) result(command string, err error) *Result {
	code := 0
	if err != nil {
		code = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		}
	}
	return &Result{
		Command:  command,
		Stdout:   o.stdoutBuf.String(),
		Stderr:   o.stderrBuf.String(),
		Combined: o.combined.String(),
		ExitCode: code,
		Err:      err,
	}
}

// with returns the shell's options with opts applied on a copy.
func (s *Shell) with(opts ...Option) *Options {
	merged := *s.options
	merged.Env = maps.Clone(s.options.Env)
	if merged.Env == nil {
		merged.Env = make(map[string]string)
	}
	merged.DropInherited = slices.Clone(s.options.DropInherited)
	for _, opt := range opts {
		opt(&merged)
	}
	return &merged
}

// WithCapture configures output capture.
func WithCapture(stdout, stderr, combined bool) Option {
	return func(o *Options) {
		o.CaptureStdout = stdout
		o.CaptureStderr = stderr
		o.CaptureCombined = combined
	}
}

// WithWorkingDir sets the working directory.
func WithWorkingDir(dir string) Option {
	return func(o *Options) {
		o.WorkingDir = dir
	}
}

// WithEnv adds environment variables.
func WithEnv(env map[string]string) Option {
	return func(o *Options) {
		if o.Env == nil {
			o.Env = make(map[string]string)
		}
		for k, v := range env {
			o.Env[k] = v
		}
	}
}

// WithEnvVar adds a single environment variable.
func WithEnvVar(key, value string) Option {
	return func(o *Options) {
		if o.Env == nil {
			o.Env = make(map[string]string)
		}
		o.Env[key] = value
	}
}

// WithEnviron adds "KEY=value" pairs. Malformed entries are ignored.
func WithEnviron(kvs []string) Option {
	return func(o *Options) {
		if o.Env == nil {
			o.Env = make(map[string]string)
		}
		for _, kv := range kvs {
			if k, v, ok := strings.Cut(kv, "="); ok && k != "" {
				o.Env[k] = v
			}
		}
	}
}

// WithoutInherited drops inherited variables whose "KEY=value" form starts
// with any of prefixes, e.g. "AWS_" to keep ambient credentials out.
func WithoutInherited(prefixes ...string) Option {
	return func(o *Options) {
		o.DropInherited = append(o.DropInherited, prefixes...)
	}
}

// WithStdoutWriter sets a custom stdout writer.
func WithStdoutWriter(w io.Writer) Option {
	return func(o *Options) {
		o.StdoutWriter = w
	}
}

// WithStderrWriter sets a custom stderr writer.
func WithStderrWriter(w io.Writer) Option {
	return func(o *Options) {
		o.StderrWriter = w
	}
}
