package facter

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleJSON = `{
  "architecture": "x86_64",
  "kernel": "Linux",
  "os": {"architecture": "x86_64", "family": "Debian", "release": {"full": "12.5", "major": "12"}},
  "processors": {"count": 4},
  "system_uptime": {"seconds": 195106}
}`

func TestNew_Defaults(t *testing.T) {
	f, err := New(context.Background(), Options{Runner: newMockRunner()})
	require.NoError(t, err)

	cfg := f.Config()
	assert.NotEmpty(t, cfg.Path)
	assert.True(t, cfg.CacheEnabled)
	assert.False(t, cfg.Legacy)
	assert.Equal(t, FormatAuto, cfg.Format)
	assert.Empty(t, cfg.Deprecations)
	assert.False(t, f.HasCache())
}

func TestNew_InvalidOptions(t *testing.T) {
	_, err := New(context.Background(), Options{Format: "xml"})
	assert.Error(t, err)

	_, err = New(context.Background(), Options{UseYAML: true, Format: FormatJSON})
	assert.ErrorIs(t, err, errYAMLWithFormat)

	_, err = New(context.Background(), Options{Timeout: -time.Second})
	assert.Error(t, err)
}

func TestNew_DeprecatedUseYAML(t *testing.T) {
	var buf bytes.Buffer
	ctx := zerolog.New(&buf).WithContext(context.Background())

	runner := newMockRunner(mockCall{stdout: "architecture => x86_64\n"})
	f, err := New(ctx, Options{UseYAML: true, Runner: runner})
	require.NoError(t, err)

	assert.Equal(t, FormatText, f.Config().Format)
	require.Len(t, f.Config().Deprecations, 1)
	assert.Contains(t, f.Config().Deprecations[0], "deprecated")
	assert.Contains(t, buf.String(), `"level":"warn"`)
	assert.Contains(t, buf.String(), "deprecated")

	v, err := f.Lookup(ctx, "architecture")
	require.NoError(t, err)
	assert.Equal(t, String("x86_64"), v)
	assert.NotContains(t, runner.lastArgs(), "--json")
	assert.NotContains(t, runner.lastArgs(), "--yaml")
}

func TestLookup_ReturnsParsedValues(t *testing.T) {
	runner := newMockRunner(jsonOK(sampleJSON))
	f := newTestFacter(t, runner, Options{})
	ctx := context.Background()

	want, err := jsonParser{}.Parse([]byte(sampleJSON))
	require.NoError(t, err)

	for name, v := range want {
		got, lookupErr := f.Lookup(ctx, name)
		require.NoError(t, lookupErr)
		assert.True(t, v.Equal(got), name)
	}
	assert.Equal(t, 1, runner.callCount())
	assert.Equal(t, []string{"--json"}, runner.argsAt(0))
}

func TestLookup_Missing(t *testing.T) {
	f := newTestFacter(t, newMockRunner(jsonOK(sampleJSON)), Options{})
	ctx := context.Background()

	_, err := f.Lookup(ctx, "no_such_fact")
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "no_such_fact", nf.Name)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "unknown fact")

	for _, def := range []Value{Null(), String("fallback"), Int(3), List(Bool(true))} {
		got, getErr := f.Get(ctx, "no_such_fact", def)
		require.NoError(t, getErr)
		assert.True(t, def.Equal(got))
	}

	got, err := f.Get(ctx, "kernel", String("fallback"))
	require.NoError(t, err)
	assert.Equal(t, String("Linux"), got)
}

func TestGet_PropagatesOtherErrors(t *testing.T) {
	runner := newMockRunner(mockCall{err: exec.ErrNotFound})
	f := newTestFacter(t, runner, Options{})

	_, err := f.Get(context.Background(), "kernel", String("fallback"))
	var invErr *InvocationError
	require.ErrorAs(t, err, &invErr)
	assert.ErrorIs(t, err, exec.ErrNotFound)
}

func TestLookup_CachedIsIdempotent(t *testing.T) {
	runner := newMockRunner(jsonOK(sampleJSON))
	f := newTestFacter(t, runner, Options{})
	ctx := context.Background()

	first, err := f.Lookup(ctx, "os")
	require.NoError(t, err)
	second, err := f.Fact(ctx, "os")
	require.NoError(t, err)

	assert.True(t, first.Equal(second))
	assert.Equal(t, 1, runner.callCount())
	assert.True(t, f.HasCache())
}

func TestLookup_WithoutCacheAlwaysInvokes(t *testing.T) {
	runner := newMockRunner(
		jsonOK(`{"uptime": "1 day"}`),
		jsonOK(`{"uptime": "2 days"}`),
		jsonOK(`{"uptime": "3 days"}`),
	)
	f := newTestFacter(t, runner, Options{})
	ctx := context.Background()

	v, err := f.Lookup(ctx, "uptime")
	require.NoError(t, err)
	assert.Equal(t, String("1 day"), v)

	v, err = f.Lookup(ctx, "uptime", WithoutCache())
	require.NoError(t, err)
	assert.Equal(t, String("2 days"), v)
	assert.Equal(t, 2, runner.callCount())

	// The bypass refreshed the cache.
	v, err = f.Lookup(ctx, "uptime")
	require.NoError(t, err)
	assert.Equal(t, String("2 days"), v)
	assert.Equal(t, 2, runner.callCount())

	v, err = f.Get(ctx, "uptime", Null(), WithCache(false))
	require.NoError(t, err)
	assert.Equal(t, String("3 days"), v)
	assert.Equal(t, 3, runner.callCount())
}

func TestLookup_CacheDisabled(t *testing.T) {
	runner := newMockRunner(jsonOK(sampleJSON))
	f := newTestFacter(t, runner, Options{CacheDisabled: true})
	ctx := context.Background()

	_, err := f.Lookup(ctx, "kernel", WithCache(true))
	require.NoError(t, err)
	_, err = f.Lookup(ctx, "kernel", WithCache(true))
	require.NoError(t, err)
	_, err = f.All(ctx)
	require.NoError(t, err)

	assert.Equal(t, 3, runner.callCount())
	assert.False(t, f.HasCache())
	_, ok := f.Snapshot()
	assert.False(t, ok)

	require.NoError(t, f.Refresh(ctx))
	assert.False(t, f.HasCache())
}

func TestAll_RoundTrip(t *testing.T) {
	f := newTestFacter(t, newMockRunner(jsonOK(`{"architecture": "x86_64"}`)), Options{})

	all, err := f.All(context.Background())
	require.NoError(t, err)
	assert.Equal(t, String("x86_64"), all["architecture"])

	// Mutating the returned mapping leaves the cache alone.
	all["architecture"] = String("arm64")
	v, err := f.Lookup(context.Background(), "architecture")
	require.NoError(t, err)
	assert.Equal(t, String("x86_64"), v)
}

func TestKeysAndJSON(t *testing.T) {
	f := newTestFacter(t, newMockRunner(jsonOK(`{"b": 1, "a": {"c": [true]}}`)), Options{})
	ctx := context.Background()

	keys, err := f.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, keys)

	data, err := f.JSON(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"b": 1, "a": {"c": [true]}}`, string(data))
}

func TestTextFallback(t *testing.T) {
	t.Run("unparseable JSON output", func(t *testing.T) {
		runner := newMockRunner(
			jsonOK("uptime_seconds => 195106\n"),
			mockCall{stdout: "uptime_seconds => 195106\n"},
		)
		f := newTestFacter(t, runner, Options{})

		v, err := f.Lookup(context.Background(), "uptime_seconds")
		require.NoError(t, err)
		assert.Equal(t, String("195106"), v)
		assert.Equal(t, KindString, v.Kind())

		require.Equal(t, 2, runner.callCount())
		assert.Equal(t, []string{"--json"}, runner.argsAt(0))
		assert.Empty(t, runner.argsAt(1))

		snap, ok := f.Snapshot()
		require.True(t, ok)
		assert.Equal(t, FormatText, snap.Format)
	})

	t.Run("JSON flag rejected is fatal", func(t *testing.T) {
		runner := newMockRunner(
			mockCall{stderr: "unrecognized option --json", exitCode: 1},
			mockCall{stdout: "architecture => x86_64\n"},
		)
		f := newTestFacter(t, runner, Options{})

		_, err := f.Lookup(context.Background(), "architecture")
		var execErr *ExecutionError
		require.ErrorAs(t, err, &execErr)
		assert.Equal(t, 1, execErr.ExitCode)
		assert.Equal(t, "unrecognized option --json", execErr.Stderr)
		assert.NotErrorIs(t, err, ErrParse)
		assert.Contains(t, err.Error(), "facter command failed")
		assert.Equal(t, 1, runner.callCount())
		assert.False(t, f.HasCache())
	})

	t.Run("text attempt failure is returned", func(t *testing.T) {
		runner := newMockRunner(jsonOK("not json"), mockCall{stderr: "error message", exitCode: 1})
		f := newTestFacter(t, runner, Options{})

		_, err := f.All(context.Background())
		var execErr *ExecutionError
		require.ErrorAs(t, err, &execErr)
		assert.Equal(t, 1, execErr.ExitCode)
		assert.Equal(t, "error message", execErr.Stderr)
		assert.Equal(t, 2, runner.callCount())
		assert.False(t, f.HasCache())
	})

	t.Run("text parse failure is fatal", func(t *testing.T) {
		runner := newMockRunner(jsonOK("not json"), mockCall{stdout: "still garbage"})
		f := newTestFacter(t, runner, Options{})

		_, err := f.All(context.Background())
		var parseErr *ParseError
		require.ErrorAs(t, err, &parseErr)
		assert.Equal(t, FormatText, parseErr.Format)
		assert.Equal(t, 2, runner.callCount())
	})

	t.Run("start failure is not retried", func(t *testing.T) {
		runner := newMockRunner(mockCall{err: exec.ErrNotFound})
		f := newTestFacter(t, runner, Options{})

		_, err := f.All(context.Background())
		assert.ErrorIs(t, err, ErrInvocation)
		assert.Equal(t, 1, runner.callCount())
	})

	t.Run("explicit JSON never falls back", func(t *testing.T) {
		runner := newMockRunner(jsonOK("architecture => x86_64"))
		f := newTestFacter(t, runner, Options{Format: FormatJSON})

		_, err := f.All(context.Background())
		assert.ErrorIs(t, err, ErrParse)
		assert.Equal(t, 1, runner.callCount())
	})
}

func TestExplicitYAMLFormat(t *testing.T) {
	runner := newMockRunner(mockCall{stdout: "os:\n  family: RedHat\nprocessorcount: 2\n"})
	f := newTestFacter(t, runner, Options{Format: FormatYAML})

	v, err := f.Lookup(context.Background(), "processorcount")
	require.NoError(t, err)
	assert.Equal(t, Int(2), v)
	assert.Equal(t, []string{"--yaml"}, runner.lastArgs())
}

func TestLegacyFlattening(t *testing.T) {
	body := `{"os": {"architecture": "x86_64"}}`

	t.Run("enabled", func(t *testing.T) {
		runner := newMockRunner(jsonOK(body))
		f := newTestFacter(t, runner, Options{Legacy: true})

		v, err := f.Lookup(context.Background(), "architecture")
		require.NoError(t, err)
		assert.Equal(t, String("x86_64"), v)

		_, err = f.Lookup(context.Background(), "os")
		require.NoError(t, err)
		assert.Contains(t, runner.lastArgs(), "--show-legacy")

		_, err = f.Lookup(context.Background(), "operatingsystem")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("disabled", func(t *testing.T) {
		f := newTestFacter(t, newMockRunner(jsonOK(body)), Options{})

		_, err := f.Lookup(context.Background(), "architecture")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("custom alias", func(t *testing.T) {
		f := newTestFacter(t, newMockRunner(jsonOK(body)), Options{
			Legacy:        true,
			LegacyAliases: map[string]string{"arch": "os.architecture", "architecture": ""},
		})

		v, err := f.Lookup(context.Background(), "arch")
		require.NoError(t, err)
		assert.Equal(t, String("x86_64"), v)
		_, err = f.Lookup(context.Background(), "architecture")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestQuery_BypassesCache(t *testing.T) {
	runner := newMockRunner(
		jsonOK(`{"kernel": "Linux", "os": {"family": "Debian"}}`),
		jsonOK(`{"kernel": "Darwin"}`),
	)
	f := newTestFacter(t, runner, Options{ExternalDir: "/etc/facts.d"})
	ctx := context.Background()

	_, err := f.All(ctx)
	require.NoError(t, err)

	m, err := f.Query(ctx, "kernel")
	require.NoError(t, err)
	assert.Equal(t, Mapping{"kernel": String("Darwin")}, m)
	assert.Equal(t, []string{"--json", "--external-dir", "/etc/facts.d", "kernel"}, runner.lastArgs())

	v, err := f.Lookup(ctx, "kernel")
	require.NoError(t, err)
	assert.Equal(t, String("Linux"), v)
	assert.Equal(t, 2, runner.callCount())
}

func TestQuery_SingleTextFact(t *testing.T) {
	runner := newMockRunner(mockCall{stdout: "x86_64\n"})
	f := newTestFacter(t, runner, Options{Format: FormatText})

	m, err := f.Query(context.Background(), "architecture")
	require.NoError(t, err)
	assert.Equal(t, Mapping{"architecture": String("x86_64")}, m)
	assert.Equal(t, []string{"architecture"}, runner.lastArgs())
}

func TestRefreshAndClear(t *testing.T) {
	runner := newMockRunner(jsonOK(`{"n": 1}`), jsonOK(`{"n": 2}`), mockCall{stderr: "boom", exitCode: 3})
	f := newTestFacter(t, runner, Options{Format: FormatJSON})
	ctx := context.Background()

	require.NoError(t, f.Refresh(ctx))
	first, ok := f.Snapshot()
	require.True(t, ok)
	assert.Equal(t, Int(1), first.Facts["n"])
	assert.Equal(t, FormatJSON, first.Format)
	assert.GreaterOrEqual(t, first.Age(), time.Duration(0))

	require.NoError(t, f.Refresh(ctx))
	second, _ := f.Snapshot()
	assert.Equal(t, Int(2), second.Facts["n"])
	assert.NotEqual(t, first.ID, second.ID)

	// A failed refresh keeps the previous snapshot.
	err := f.Refresh(ctx)
	assert.ErrorIs(t, err, ErrExecution)
	kept, ok := f.Snapshot()
	require.True(t, ok)
	assert.Equal(t, second.ID, kept.ID)

	f.ClearCache()
	assert.False(t, f.HasCache())
}

func TestString(t *testing.T) {
	f := newTestFacter(t, newMockRunner(jsonOK(`{}`)), Options{})
	assert.Equal(t, "<Facter format=auto cache_enabled=true cache_active=false>", f.String())

	require.NoError(t, f.Refresh(context.Background()))
	assert.Contains(t, f.String(), "cache_active=true")
	assert.NotContains(t, f.String(), "yaml=")
}

func TestConcurrentLookupsInvokeOnce(t *testing.T) {
	runner := newMockRunner(jsonOK(sampleJSON))
	f := newTestFacter(t, runner, Options{})
	ctx := context.Background()

	const workers = 16
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := f.Lookup(ctx, "kernel")
			if err == nil && !v.Equal(String("Linux")) {
				err = errors.New("unexpected kernel value")
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, 1, runner.callCount())
}

func TestGetFact_SharedDefault(t *testing.T) {
	runner := newMockRunner(jsonOK(sampleJSON))
	saved := Runner
	Runner = runner
	t.Cleanup(func() { Runner = saved })

	var buf bytes.Buffer
	ctx := zerolog.New(&buf).Level(zerolog.DebugLevel).WithContext(context.Background())

	v, err := GetFact(ctx, "kernel", Null())
	require.NoError(t, err)
	assert.Equal(t, String("Linux"), v)

	v, err = GetFact(context.Background(), "no_such_fact", String("none"))
	require.NoError(t, err)
	assert.Equal(t, String("none"), v)
	assert.Equal(t, 1, runner.callCount())

	first, err := defaultInstance()
	require.NoError(t, err)
	second, err := defaultInstance()
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Same(t, runner, first.runner)
}
