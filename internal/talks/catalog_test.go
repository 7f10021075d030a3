package talks

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/speaker-scheduler/internal/scheduler"
)

const sample = `
talks:
  - number: 42
    title: "  Il Regno di Dio  "
  - number: 5
    title: Il matrimonio felice
`

func TestParse(t *testing.T) {
	cat, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)

	title, ok := cat.Title(42)
	require.True(t, ok)
	assert.Equal(t, "Il Regno di Dio", title)

	_, ok = cat.Title(7)
	assert.False(t, ok)

	assert.Equal(t, 2, cat.Len())
	assert.Equal(t, []Entry{{Number: 5, Title: "Il matrimonio felice"}, {Number: 42, Title: "Il Regno di Dio"}}, cat.Entries())
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "out of range", body: "talks:\n  - number: 195\n    title: x\n"},
		{name: "duplicate", body: "talks:\n  - number: 3\n    title: a\n  - number: 3\n    title: b\n"},
		{name: "malformed", body: "talks: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.body))
			require.Error(t, err)
		})
	}
}

func TestParse_EmptyDocument(t *testing.T) {
	cat, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, 0, cat.Len())
}

func TestLoad(t *testing.T) {
	t.Run("empty path gives empty catalog", func(t *testing.T) {
		cat, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, 0, cat.Len())
	})

	t.Run("reads file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "talks.yaml")
		require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

		cat, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, 2, cat.Len())
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
	})
}

func TestCatalogDrivesTalkFilter(t *testing.T) {
	cat, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)

	speakers := []scheduler.Speaker{
		{ID: "a", Talks: scheduler.Repertoire{42}},
		{ID: "b", Talks: scheduler.Repertoire{5}},
	}
	got := scheduler.FilterByTalk(speakers, "regno", cat)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].ID)
}
