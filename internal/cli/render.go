package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/davecgh/go-spew/spew"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"

	"github.com/rshade/facter-lookup/internal/facter"
)

// Output formats accepted by --output.
const (
	outputTable = "table"
	outputJSON  = "json"
	outputYAML  = "yaml"
	outputDump  = "dump"
)

// formatValue renders a single value the way facter does: strings raw,
// everything else as JSON.
func formatValue(v facter.Value) string {
	if s, ok := v.AsString(); ok {
		return s
	}
	return v.String()
}

// renderFacts writes m in the requested output format.
func renderFacts(w io.Writer, m facter.Mapping, output string, styled bool) error {
	switch strings.ToLower(output) {
	case "", outputTable:
		return renderTable(w, m, styled)
	case outputJSON:
		return renderJSON(w, m, true)
	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(m.Interface()); err != nil {
			return fmt.Errorf("encoding YAML: %w", err)
		}
		return enc.Close()
	case outputDump:
		spew.Fdump(w, m.Interface())
		return nil
	}
	return fmt.Errorf("unknown output format %q (want table, json, yaml or dump)", output)
}

// renderJSON writes v as JSON followed by a newline.
func renderJSON(w io.Writer, v any, indent bool) error {
	enc := json.NewEncoder(w)
	if indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding JSON: %w", err)
	}
	return nil
}

// renderTable writes one "name  value" row per fact in name order, with a
// localized count footer. Keys are highlighted when styled is set.
func renderTable(w io.Writer, m facter.Mapping, styled bool) error {
	const tabPadding = 2
	tw := tabwriter.NewWriter(w, 0, 0, tabPadding, ' ', 0)

	keyStyle := lipgloss.NewStyle()
	if styled {
		keyStyle = keyStyle.Bold(true).Foreground(lipgloss.Color("39"))
	}

	for _, name := range m.Keys() {
		fmt.Fprintf(tw, "%s\t%s\n", keyStyle.Render(name), formatValue(m[name]))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	p := message.NewPrinter(language.English)
	_, err := p.Fprintf(w, "\n%d facts\n", len(m))
	return err
}
