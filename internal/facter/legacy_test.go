package facter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func structuredFacts() Mapping {
	return Mapping{
		"os": Map(map[string]Value{
			"architecture": String("x86_64"),
			"release":      Map(map[string]Value{"full": String("22.04"), "major": String("22")}),
		}),
		"processors": Map(map[string]Value{
			"count":  Int(8),
			"models": List(String("Intel A"), String("Intel B")),
		}),
		"hostname": String("already-top-level"),
		"networking": Map(map[string]Value{
			"hostname": String("nested-host"),
		}),
	}
}

func TestFlattenLegacy(t *testing.T) {
	m := structuredFacts()
	added := flattenLegacy(m, aliasTable(nil))

	assert.Equal(t, String("x86_64"), m["architecture"])
	assert.Equal(t, String("22.04"), m["operatingsystemrelease"])
	assert.Equal(t, String("22"), m["operatingsystemmajrelease"])
	assert.Equal(t, Int(8), m["processorcount"])
	assert.Equal(t, String("Intel A"), m["processor0"])
	assert.ElementsMatch(t, []string{
		"architecture", "operatingsystemrelease", "operatingsystemmajrelease",
		"processorcount", "processor0",
	}, added)

	// Existing top-level keys win over aliases.
	assert.Equal(t, String("already-top-level"), m["hostname"])

	// Structured entries remain.
	_, ok := m["os"]
	assert.True(t, ok)
}

func TestFlattenLegacy_MissingPaths(t *testing.T) {
	m := Mapping{"os": String("not a map")}
	added := flattenLegacy(m, map[string]string{"architecture": "os.architecture"})
	assert.Empty(t, added)
	assert.Len(t, m, 1)
}

func TestAliasTable_Overrides(t *testing.T) {
	table := aliasTable(map[string]string{
		"architecture": "",
		"cpu_count":    "processors.count",
	})
	_, ok := table["architecture"]
	assert.False(t, ok)
	assert.Equal(t, "processors.count", table["cpu_count"])

	// The package table is untouched.
	assert.Equal(t, "os.architecture", LegacyAliases["architecture"])
}

func TestResolvePath(t *testing.T) {
	m := structuredFacts()
	tests := []struct {
		path string
		want Value
		ok   bool
	}{
		{"os.architecture", String("x86_64"), true},
		{"os.release.full", String("22.04"), true},
		{"processors.models.1", String("Intel B"), true},
		{"processors.models.2", Value{}, false},
		{"processors.models.x", Value{}, false},
		{"processors.models.", Value{}, false},
		{"os.architecture.deeper", Value{}, false},
		{"missing", Value{}, false},
		{"hostname", String("already-top-level"), true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, ok := resolvePath(m, tt.path)
			require.Equal(t, tt.ok, ok)
			assert.True(t, tt.want.Equal(got))
		})
	}
}
