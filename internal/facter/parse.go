package facter

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format selects the output format requested from facter.
type Format string

// Supported formats. FormatAuto tries JSON and falls back to text.
const (
	FormatAuto Format = ""
	FormatJSON Format = "json"
	FormatText Format = "text"
	FormatYAML Format = "yaml"
)

func (f Format) String() string {
	if f == FormatAuto {
		return "auto"
	}
	return string(f)
}

// ParseFormat converts a user supplied name into a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return FormatAuto, nil
	case "json":
		return FormatJSON, nil
	case "text", "plain":
		return FormatText, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return FormatAuto, fmt.Errorf("unknown facter output format %q (want auto, json, text or yaml)", s)
}

// flag returns the facter command line switch selecting f.
func (f Format) flag() string {
	switch f {
	case FormatJSON:
		return "--json"
	case FormatYAML:
		return "--yaml"
	}
	return ""
}

// Parser converts raw facter output into a Mapping.
type Parser interface {
	Parse(data []byte) (Mapping, error)
	Format() Format
}

// ParserFor returns the parser for an explicit format.
func ParserFor(f Format) (Parser, error) {
	switch f {
	case FormatJSON:
		return jsonParser{}, nil
	case FormatText:
		return textParser{}, nil
	case FormatYAML:
		return yamlParser{}, nil
	}
	return nil, fmt.Errorf("no parser for format %s", f)
}

type jsonParser struct{}

func (jsonParser) Format() Format { return FormatJSON }

// Parse requires a single JSON object. Numbers keep their integer-ness.
func (jsonParser) Parse(data []byte) (Mapping, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, &ParseError{Format: FormatJSON, Err: err}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, &ParseError{Format: FormatJSON, Err: errors.New("unexpected data after top-level object")}
	}
	return toMapping(FormatJSON, raw)
}

type yamlParser struct{}

func (yamlParser) Format() Format { return FormatYAML }

// Parse requires a YAML document whose root is a mapping.
func (yamlParser) Parse(data []byte) (Mapping, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &ParseError{Format: FormatYAML, Err: err}
	}
	return toMapping(FormatYAML, raw)
}

func toMapping(format Format, raw any) (Mapping, error) {
	var entries map[string]any
	switch x := raw.(type) {
	case map[string]any:
		entries = x
	case map[any]any:
		entries = make(map[string]any, len(x))
		for k, v := range x {
			entries[fmt.Sprint(k)] = v
		}
	default:
		return nil, &ParseError{Format: format, Err: fmt.Errorf("top level is %s, not an object", describe(raw))}
	}

	out := make(Mapping, len(entries))
	for k, item := range entries {
		v, err := FromInterface(item)
		if err != nil {
			return nil, &ParseError{Format: format, Err: fmt.Errorf("fact %q: %w", k, err)}
		}
		out[k] = v
	}
	return out, nil
}

func describe(raw any) string {
	switch raw.(type) {
	case nil:
		return "null"
	case []any:
		return "an array"
	case string:
		return "a string"
	case bool:
		return "a boolean"
	case json.Number, int, int64, uint64, float64:
		return "a number"
	}
	return fmt.Sprintf("%T", raw)
}

// textSeparator separates a fact name from its value in plain output.
const textSeparator = "=>"

type textParser struct{}

func (textParser) Format() Format { return FormatText }

// Parse reads "name => value" lines. Values are always strings. Lines
// without a separator are skipped, except inside a value that starts with
// "{" or "[": those lines are kept until the brackets balance.
// Non-blank input without a single fact line is an error.
func (textParser) Parse(data []byte) (Mapping, error) {
	out := make(Mapping)
	if len(bytes.TrimSpace(data)) == 0 {
		return out, nil
	}

	var (
		blockKey   string
		blockLines []string
		depth      int
	)

	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")

		if depth > 0 {
			blockLines = append(blockLines, line)
			depth += bracketDelta(line)
			if depth <= 0 {
				out[blockKey] = String(strings.Join(blockLines, "\n"))
				blockKey, blockLines, depth = "", nil, 0
			}
			continue
		}

		if strings.TrimSpace(line) == "" {
			continue
		}
		key, value, ok := strings.Cut(line, textSeparator)
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		value = strings.TrimSpace(value)

		if d := bracketDelta(value); d > 0 && opensBlock(value) {
			blockKey, blockLines, depth = key, []string{value}, d
			continue
		}
		out[key] = String(value)
	}
	if err := sc.Err(); err != nil {
		return nil, &ParseError{Format: FormatText, Err: err}
	}

	// Unterminated block: keep what was collected.
	if blockKey != "" {
		out[blockKey] = String(strings.Join(blockLines, "\n"))
	}

	if len(out) == 0 {
		return nil, &ParseError{Format: FormatText, Err: errors.New(`no "name => value" lines in output`)}
	}
	return out, nil
}

// opensBlock reports whether a value starts a structured "{" or "[" block.
func opensBlock(value string) bool {
	return strings.HasPrefix(value, "{") || strings.HasPrefix(value, "[")
}

// bracketDelta counts opening minus closing brackets outside of quotes.
func bracketDelta(s string) int {
	var (
		delta   int
		inQuote rune
		escaped bool
	)
	for _, r := range s {
		switch {
		case escaped:
			escaped = false
		case r == '\\' && inQuote != 0:
			escaped = true
		case inQuote != 0:
			if r == inQuote {
				inQuote = 0
			}
		case r == '"' || r == '\'':
			inQuote = r
		case r == '{' || r == '[':
			delta++
		case r == '}' || r == ']':
			delta--
		}
	}
	return delta
}

// parseSingle handles a text query for exactly one fact, where facter
// prints the bare value with no separator.
func parseSingle(name string, data []byte) (Mapping, error) {
	m, err := textParser{}.Parse(data)
	if err == nil {
		if _, ok := m[name]; ok {
			return m, nil
		}
	}
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return Mapping{}, nil
	}
	return Mapping{name: String(trimmed)}, nil
}
