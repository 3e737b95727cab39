package cmd

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Adithya-Monish-Kumar-K/cacherch/pkg/errors"
)

type testEnv struct {
	configPath string
	docs       string
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	dir := t.TempDir()
	docs := filepath.Join(dir, "docs")
	require.NoError(t, os.MkdirAll(docs, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(docs, "a.txt"), []byte("apple banana"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(docs, "b.txt"), []byte("banana cherry"), 0o644))

	configPath := filepath.Join(dir, "cacherch.yaml")
	cfg := fmt.Sprintf("index:\n  dir: %s\ncache:\n  backend: memory\nlogging:\n  level: error\n", filepath.Join(dir, "index"))
	require.NoError(t, os.WriteFile(configPath, []byte(cfg), 0o644))
	return testEnv{configPath: configPath, docs: docs}
}

func (e testEnv) run(args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	args = append([]string{"--config", e.configPath, "--no-color"}, args...)
	code := Execute(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestIndexThenSearch(t *testing.T) {
	env := newTestEnv(t)

	code, out, _ := env.run("index", env.docs)
	require.Equal(t, 0, code)
	assert.Contains(t, out, "[Info] Indexing directory: "+env.docs)
	assert.Contains(t, out, "[Success] Indexing complete. 2 documents")

	code, out, _ = env.run("search", "apple")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "[Cache Miss]")
	assert.Contains(t, out, "1. a.txt (")
	assert.Contains(t, out, ") - "+filepath.Join(env.docs, "a.txt"))
	assert.NotContains(t, out, "2. ")
	assert.Contains(t, out, "[Info] Cached results for the coming 30 seconds")
}

func TestSearchTTLFlag(t *testing.T) {
	env := newTestEnv(t)
	code, _, _ := env.run("index", env.docs)
	require.Equal(t, 0, code)

	code, out, _ := env.run("search", "banana", "--ttl", "90")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "1. ")
	assert.Contains(t, out, "2. ")
	assert.Contains(t, out, "for the coming 90 seconds")

	code, _, errOut := env.run("search", "banana", "--ttl", "0")
	assert.Equal(t, apperrors.ExitUsage, code)
	assert.Contains(t, errOut, "[Error]")
}

func TestSearchWithoutIndex(t *testing.T) {
	env := newTestEnv(t)
	code, out, errOut := env.run("search", "banana")
	assert.Equal(t, apperrors.ExitIndexNotFound, code)
	assert.Empty(t, out)
	assert.Contains(t, errOut, "[Error] index not found")
}

func TestSearchParseError(t *testing.T) {
	env := newTestEnv(t)
	code, _, _ := env.run("index", env.docs)
	require.Equal(t, 0, code)

	code, _, errOut := env.run("search", "apple AND")
	assert.Equal(t, apperrors.ExitQueryParse, code)
	assert.Contains(t, errOut, "dangling AND")
}

func TestIndexUnsupportedExtension(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, os.WriteFile(filepath.Join(env.docs, "data.csv"), []byte("a,b"), 0o644))

	code, _, errOut := env.run("index", env.docs)
	assert.Equal(t, apperrors.ExitUnsupportedExtension, code)
	assert.Contains(t, errOut, "csv")
}

func TestIndexRequiresPath(t *testing.T) {
	env := newTestEnv(t)
	code, _, errOut := env.run("index")
	assert.NotEqual(t, 0, code)
	assert.Contains(t, errOut, "accepts 1 arg")
}

func TestStatus(t *testing.T) {
	env := newTestEnv(t)

	code, out, _ := env.run("status")
	assert.Equal(t, apperrors.ExitIndexNotFound, code)
	assert.Contains(t, out, "[Error] index:")
	assert.Contains(t, out, "[Success] cache: memory")

	code, _, _ = env.run("index", env.docs)
	require.Equal(t, 0, code)

	code, out, _ = env.run("status")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "[Success] index:")
	assert.Contains(t, out, "    documents: 2")
}

func TestInvalidCacheFlag(t *testing.T) {
	env := newTestEnv(t)
	code, _, errOut := env.run("--cache", "memcached", "status")
	assert.Equal(t, apperrors.ExitUsage, code)
	assert.Contains(t, errOut, "cache.backend")
}

func TestCacheFlagOverridesInvalidEnvironment(t *testing.T) {
	env := newTestEnv(t)
	t.Setenv("CACHERCH_CACHE_BACKEND", "bogus")

	code, _, errOut := env.run("status")
	assert.Equal(t, apperrors.ExitUsage, code)
	assert.Contains(t, errOut, "cache.backend")

	code, out, _ := env.run("--cache", "memory", "status")
	assert.Equal(t, apperrors.ExitIndexNotFound, code, "only the missing index is reported")
	assert.Contains(t, out, "[Success] cache: memory")
}
