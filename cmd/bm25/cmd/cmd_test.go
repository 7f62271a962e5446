package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/rankengine/internal/searcher/executor"
)

const linkedListCorpus = `{"id":1,"text":"A linked list is a fundamental data structure which consists of Nodes that are connected to each other."}
{"id":2,"text":"The Linked List data structure permits the storage of data in an efficient manner."}
{"id":3,"text":"The space and time complexity of the linked list operations depends on the implementation."}
{"id":4,"text":"The operations that take O(N) time takes this much because you have to traverse the list’s for at least N nodes in order to perform it successfully. On the other hand, operations that take O(1) time do not require any traversals because the list holds pointers to the head first Node and tail last Node."}
`

func writeCorpus(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "docs.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(linkedListCorpus), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCmdHasSubcommands(t *testing.T) {
	root := NewRootCmd()
	for _, name := range []string{"query", "stats"} {
		sub, _, err := root.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, sub.Name())
	}
}

func TestQueryJSON(t *testing.T) {
	out, err := execute(t, "query", "--file", writeCorpus(t), "--json", "linked", "list", "complexity")
	require.NoError(t, err)

	var result executor.SearchResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	require.Len(t, result.Results, 4)
	assert.Equal(t, 3, result.Results[0].Document.ID)
	assert.InDelta(t, 1.8201189421708297, result.Results[0].Score, 1e-12)
}

func TestQueryText(t *testing.T) {
	out, err := execute(t, "query", "-f", writeCorpus(t), "-n", "2", "complexity")
	require.NoError(t, err)
	assert.Contains(t, out, "RANK")
	assert.Contains(t, out, "1 of 1 matching documents")

	out, err = execute(t, "query", "-f", writeCorpus(t), "batman")
	require.NoError(t, err)
	assert.Equal(t, "no results for \"batman\"\n", out)
}

func TestQueryRequiresFileAndTerms(t *testing.T) {
	_, err := execute(t, "query", "linked")
	assert.Error(t, err)
	_, err = execute(t, "query", "--file", writeCorpus(t))
	assert.Error(t, err)
	_, err = execute(t, "query", "--file", filepath.Join(t.TempDir(), "missing.jsonl"), "x")
	assert.Error(t, err)
}

func TestStats(t *testing.T) {
	out, err := execute(t, "stats", "--file", writeCorpus(t), "--json", "--top", "2")
	require.NoError(t, err)

	var stats StatsOutput
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, 4, stats.DocCount)
	require.Len(t, stats.TopTerms, 2)
	assert.Equal(t, TermCount{Term: "list", DocFrequency: 4}, stats.TopTerms[0])

	text, err := execute(t, "stats", "--file", writeCorpus(t))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(text, "documents:    4\n"))
}

func TestSnippet(t *testing.T) {
	assert.Equal(t, "short", snippet("short"))
	long := strings.Repeat("ă", 100)
	assert.Len(t, []rune(snippet(long)), snippetLength)
}
