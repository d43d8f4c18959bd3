package facter

import (
	"context"
	"slices"
	"sync"
)

// mockCall is one scripted response of mockRunner.
type mockCall struct {
	stdout   string
	stderr   string
	exitCode int
	err      error
}

// mockRunner implements CommandRunner for testing. Responses are consumed in
// order; the last one repeats once the script is exhausted.
type mockRunner struct {
	mu        sync.Mutex
	responses []mockCall
	calls     [][]string
	lastName  string
}

func newMockRunner(responses ...mockCall) *mockRunner {
	return &mockRunner{responses: responses}
}

func (m *mockRunner) Run(_ context.Context, name string, args ...string) (RunResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lastName = name
	m.calls = append(m.calls, slices.Clone(args))

	idx := min(len(m.calls)-1, len(m.responses)-1)
	if idx < 0 {
		return RunResult{Stdout: []byte("{}")}, nil
	}
	r := m.responses[idx]
	if r.err != nil {
		return RunResult{}, r.err
	}
	return RunResult{Stdout: []byte(r.stdout), Stderr: []byte(r.stderr), ExitCode: r.exitCode}, nil
}

func (m *mockRunner) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func (m *mockRunner) lastArgs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return nil
	}
	return m.calls[len(m.calls)-1]
}

func (m *mockRunner) argsAt(i int) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[i]
}

// jsonOK is a successful JSON response.
func jsonOK(body string) mockCall { return mockCall{stdout: body} }

// newTestFacter builds a Facter over runner with a fixed executable path.
func newTestFacter(t testingT, runner CommandRunner, opts Options) *Facter {
	t.Helper()
	if opts.Path == "" {
		opts.Path = "/opt/puppetlabs/bin/facter-test-does-not-exist"
	}
	opts.Runner = runner
	f, err := New(context.Background(), opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return f
}

type testingT interface {
	Helper()
	Fatalf(format string, args ...any)
}
