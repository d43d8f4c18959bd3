package facter

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// ToolVersion runs "facter --version" and parses the reported version.
// Some releases append a build suffix in parentheses, which is ignored.
func (f *Facter) ToolVersion(ctx context.Context) (*semver.Version, error) {
	out, err := f.store.invoker.run(ctx, FormatText, []string{"--version"})
	if err != nil {
		return nil, err
	}
	return parseToolVersion(out)
}

func parseToolVersion(out []byte) (*semver.Version, error) {
	raw := strings.TrimSpace(string(out))
	if i := strings.IndexAny(raw, " \t\n("); i >= 0 {
		raw = raw[:i]
	}
	v, err := semver.NewVersion(raw)
	if err != nil {
		return nil, &ParseError{Format: FormatText, Err: fmt.Errorf("version %q: %w", raw, err)}
	}
	return v, nil
}
