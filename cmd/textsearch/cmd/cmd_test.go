package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Adithya-Monish-Kumar-K/textsearch/pkg/errors"
)

func writeCorpus(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"doc1.txt": "weather forecast in moscow tomorrow",
		"doc2.txt": "technology news and artificial intelligence",
		"doc3.txt": "weather report: rain in london",
	}
	for name, text := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(text), 0o644))
	}
	return dir
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := cmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func TestRootCmd_Help(t *testing.T) {
	out, err := execute(t, "", "--help")
	require.NoError(t, err)
	for _, sub := range []string{"index", "search", "interactive", "serve", "analytics"} {
		assert.Contains(t, out, sub)
	}
}

func TestIndexThenSearch(t *testing.T) {
	corpus := writeCorpus(t)
	indexFile := filepath.Join(t.TempDir(), "index.json")

	out, err := execute(t, "", "index", "--dir", corpus, "--index-file", indexFile)
	require.NoError(t, err)
	assert.Contains(t, out, "Indexing finished. Documents: 3")
	assert.FileExists(t, indexFile)

	out, err = execute(t, "", "search", "-f", indexFile, "weather", "in", "moscow")
	require.NoError(t, err)
	assert.Contains(t, out, "Documents found: 2")
	assert.Contains(t, out, "1. doc1.txt")
}

func TestSearch_JSON(t *testing.T) {
	corpus := writeCorpus(t)
	indexFile := filepath.Join(t.TempDir(), "index.json")
	_, err := execute(t, "", "index", "-d", corpus, "-f", indexFile)
	require.NoError(t, err)

	out, err := execute(t, "", "search", "-f", indexFile, "--format", "json", "--limit", "1", "weather")
	require.NoError(t, err)

	var resp struct {
		Query     string `json:"query"`
		TotalHits int    `json:"total_hits"`
		Results   []struct {
			DocID string `json:"doc_id"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "weather", resp.Query)
	assert.Equal(t, 2, resp.TotalHits)
	assert.Len(t, resp.Results, 1)
}

func TestSearch_Errors(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "absent.json")

	_, err := execute(t, "", "search", "-f", missing, "weather")
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound), "got %v", err)

	_, err = execute(t, "", "search", "-f", missing, "--format", "xml", "weather")
	assert.ErrorContains(t, err, "unknown format")

	_, err = execute(t, "", "search", "-f", missing)
	assert.Error(t, err)
}

func TestIndex_RequiresDir(t *testing.T) {
	_, err := execute(t, "", "index")
	assert.ErrorContains(t, err, "dir")
}

func TestIndex_HelpMentionsLockFile(t *testing.T) {
	out, err := execute(t, "", "index", "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "<index-file>.lock")
}

func TestInteractive_ReadsCommandsFromStdin(t *testing.T) {
	corpus := writeCorpus(t)
	indexFile := filepath.Join(t.TempDir(), "index.json")
	script := strings.Join([]string{
		"index " + corpus,
		"weather moscow",
		"save",
		"exit",
	}, "\n") + "\n"

	out, err := execute(t, script, "-f", indexFile)
	require.NoError(t, err)
	assert.Contains(t, out, "Indexing finished. Documents: 3")
	assert.Contains(t, out, "1. doc1.txt")
	assert.Contains(t, out, "Index saved to "+indexFile)
	assert.FileExists(t, indexFile)
}

func TestInteractive_LoadMissingIndex(t *testing.T) {
	indexFile := filepath.Join(t.TempDir(), "index.json")
	out, err := execute(t, "stats\nexit\n", "interactive", "--load", "-f", indexFile)
	require.NoError(t, err)
	assert.Contains(t, out, "No index at "+indexFile)
	assert.Contains(t, out, "No index loaded.")
}

func TestAnalytics_RequiresKafka(t *testing.T) {
	_, err := execute(t, "", "analytics")
	assert.ErrorContains(t, err, "kafka.enabled")
}

func TestRoot_InvalidLogLevel(t *testing.T) {
	cmd := NewRootCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetArgs([]string{"--log-level", "trace", "index", "--dir", t.TempDir()})
	assert.ErrorContains(t, cmd.Execute(), "Level")
}
