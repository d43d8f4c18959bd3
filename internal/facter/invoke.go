package facter

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/rshade/facter-lookup/internal/logging"
	"github.com/rshade/facter-lookup/internal/metrics"
)

// DefaultPath is the executable name used when Options.Path is empty.
const DefaultPath = "facter"

// RunResult is the captured outcome of a process that started.
type RunResult struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// CommandRunner executes an external command. The error is reserved for
// failures to start the process; a non-zero exit is reported in ExitCode.
// This interface enables testing without spawning real subprocesses.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) (RunResult, error)
}

// execRunner is the default CommandRunner that uses exec.CommandContext.
type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) (RunResult, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = os.Environ()

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := RunResult{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		return res, nil
	}
	return res, err
}

// Runner is the package-level CommandRunner used when Options.Runner is nil.
var Runner CommandRunner = execRunner{} //nolint:gochecknoglobals // Default for injection.

// ResolvePath resolves path through PATH once. An unresolvable path is
// returned unchanged so the failure surfaces as an InvocationError on first
// use rather than at construction.
func ResolvePath(path string) string {
	if path == "" {
		path = DefaultPath
	}
	if resolved, err := exec.LookPath(path); err == nil {
		return resolved
	}
	return path
}

// BuildArgs returns the facter arguments for one run: the format flag, the
// external facts directory, --puppet, --show-legacy and then any fact names.
func BuildArgs(cfg Config, format Format, names ...string) []string {
	args := make([]string, 0, 6+len(names))
	if flag := format.flag(); flag != "" {
		args = append(args, flag)
	}
	if cfg.ExternalDir != "" {
		args = append(args, "--external-dir", cfg.ExternalDir)
	}
	if cfg.PuppetFacts {
		args = append(args, "--puppet")
	}
	if cfg.Legacy {
		args = append(args, "--show-legacy")
	}
	return append(args, names...)
}

// invoker runs facter for one Config.
type invoker struct {
	cfg    Config
	runner CommandRunner
}

// run executes facter once with args and returns its standard output.
func (iv *invoker) run(ctx context.Context, format Format, args []string) ([]byte, error) {
	log := logging.FromContext(ctx)

	if iv.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, iv.cfg.Timeout)
		defer cancel()
	}

	log.Debug().
		Ctx(ctx).
		Str("component", "facter").
		Str("operation", "invoke").
		Str("path", iv.cfg.Path).
		Strs("args", args).
		Msg("running facter")

	start := time.Now()
	res, err := iv.runner.Run(ctx, iv.cfg.Path, args...)
	elapsed := time.Since(start)
	metrics.InvocationLatency.WithLabelValues(format.String()).Observe(elapsed.Seconds())

	if err != nil {
		switch {
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			metrics.Invocations.WithLabelValues(format.String(), metrics.OutcomeTimeout).Inc()
			return nil, &ExecutionError{
				Path:     iv.cfg.Path,
				Args:     args,
				ExitCode: -1,
				Stderr:   strings.TrimSpace(string(res.Stderr)),
				Err:      context.DeadlineExceeded,
			}
		case ctx.Err() != nil:
			metrics.Invocations.WithLabelValues(format.String(), metrics.OutcomeCanceled).Inc()
			return nil, ctx.Err()
		}
		metrics.Invocations.WithLabelValues(format.String(), metrics.OutcomeStartFailed).Inc()
		return nil, &InvocationError{Path: iv.cfg.Path, Err: err}
	}

	if res.ExitCode != 0 {
		metrics.Invocations.WithLabelValues(format.String(), metrics.OutcomeNonZeroExit).Inc()
		log.Debug().
			Ctx(ctx).
			Str("component", "facter").
			Int("exit_code", res.ExitCode).
			Dur("elapsed", elapsed).
			Msg("facter exited non-zero")
		return nil, &ExecutionError{
			Path:     iv.cfg.Path,
			Args:     args,
			ExitCode: res.ExitCode,
			Stderr:   strings.TrimSpace(string(res.Stderr)),
		}
	}

	metrics.Invocations.WithLabelValues(format.String(), metrics.OutcomeOK).Inc()
	log.Debug().
		Ctx(ctx).
		Str("component", "facter").
		Int("output_bytes", len(res.Stdout)).
		Dur("elapsed", elapsed).
		Msg("facter completed")

	return res.Stdout, nil
}

// acquire runs facter and parses its output. With FormatAuto a JSON attempt
// whose output fails to parse is retried once in text mode. Any other
// failure, including a non-zero exit, is returned as is.
func (iv *invoker) acquire(ctx context.Context, names ...string) (Mapping, Format, error) {
	format := iv.cfg.Format
	if format != FormatAuto {
		m, err := iv.acquireAs(ctx, format, names)
		return m, format, err
	}

	m, err := iv.acquireAs(ctx, FormatJSON, names)
	if err == nil {
		return m, FormatJSON, nil
	}

	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		return nil, FormatJSON, err
	}

	metrics.FormatFallbacks.Inc()
	logging.FromContext(ctx).Debug().
		Ctx(ctx).
		Str("component", "facter").
		Str("operation", "acquire").
		Err(err).
		Msg("JSON output unavailable, falling back to text output")

	m, err = iv.acquireAs(ctx, FormatText, names)
	return m, FormatText, err
}

func (iv *invoker) acquireAs(ctx context.Context, format Format, names []string) (Mapping, error) {
	out, err := iv.run(ctx, format, BuildArgs(iv.cfg, format, names...))
	if err != nil {
		return nil, err
	}
	if format == FormatText && len(names) == 1 {
		return parseSingle(names[0], out)
	}
	p, err := ParserFor(format)
	if err != nil {
		return nil, err
	}
	return p.Parse(out)
}
