package params

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParseEntry_PreservesOrder(t *testing.T) {
	path := writeFile(t, "params.json",
		`{"zeta": 1, "alpha": "x", "mid": true, "last": null}`)

	m, err := ParseEntry(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"zeta", "alpha", "mid", "last"}, m.Keys())
}

func TestParseEntry_ScalarTypes(t *testing.T) {
	path := writeFile(t, "params.json",
		`{"temperature": 300, "ratio": 0.5, "label": "5\" pipe", "active": true, "missing": null}`)

	m, err := ParseEntry(path)
	require.NoError(t, err)
	require.Equal(t, 5, m.Len())

	v, ok := m.Get("temperature")
	require.True(t, ok)
	assert.Equal(t, float64(300), v)

	v, _ = m.Get("ratio")
	assert.Equal(t, 0.5, v)

	v, _ = m.Get("label")
	assert.Equal(t, `5" pipe`, v)

	v, _ = m.Get("active")
	assert.Equal(t, true, v)

	v, ok = m.Get("missing")
	require.True(t, ok)
	assert.Nil(t, v)
}

func TestParseEntry_EmptyObject(t *testing.T) {
	path := writeFile(t, "params.json", `{}`)

	m, err := ParseEntry(path)
	require.NoError(t, err)
	assert.Equal(t, 0, m.Len())
}

func TestParseEntry_Errors(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"malformed", `{"a": `},
		{"top-level array", `[1, 2]`},
		{"top-level scalar", `42`},
		{"nested object", `{"a": {"b": 1}}`},
		{"nested array", `{"a": [1]}`},
		{"trailing data", `{"a": 1} {"b": 2}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeFile(t, "params.json", tc.content)
			_, err := ParseEntry(path)
			var parseErr *ParseError
			require.ErrorAs(t, err, &parseErr)
			assert.Equal(t, path, parseErr.Path)
		})
	}
}

func TestParseEntry_MissingFile(t *testing.T) {
	_, err := ParseEntry(filepath.Join(t.TempDir(), "absent.json"))
	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
}

func TestParseSchema_CoercesDescriptions(t *testing.T) {
	path := writeFile(t, "headers.json",
		`{"temperature": "deg C", "runs": 3, "calibrated": false}`)

	s, err := ParseSchema(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"temperature", "runs", "calibrated"}, s.Names())

	d, ok := s.Description("temperature")
	require.True(t, ok)
	assert.Equal(t, "deg C", d)

	d, _ = s.Description("runs")
	assert.Equal(t, "3", d)

	d, _ = s.Description("calibrated")
	assert.Equal(t, "false", d)
}

func TestParseSchema_NotAMapping(t *testing.T) {
	path := writeFile(t, "headers.json", `["temperature"]`)
	_, err := ParseSchema(path)
	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
}

func TestMap_SetOverwritesInPlace(t *testing.T) {
	m := NewMap()
	m.Set("a", 1.0)
	m.Set("b", 2.0)
	m.Set("a", 3.0)

	assert.Equal(t, []string{"a", "b"}, m.Keys())
	v, _ := m.Get("a")
	assert.Equal(t, 3.0, v)
}

func TestSchema_AppendIgnoresDuplicates(t *testing.T) {
	s := NewSchema()
	s.Append("a", "first")
	s.Append("a", "second")

	assert.Equal(t, []string{"a"}, s.Names())
	d, _ := s.Description("a")
	assert.Equal(t, "first", d)
}
