package app

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/japaniel/primeword/pkg/anagram"
	"github.com/japaniel/primeword/pkg/config"
)

// newDictionary serves a dictionaryapi.dev style response for every word in
// defs and 404 for the rest.
func newDictionary(t *testing.T, defs map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		word := strings.TrimPrefix(r.URL.Path, "/")
		def, ok := defs[word]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `[{"word":"`+word+`","meanings":[{"definitions":[{"definition":"`+def+`"}]}]}]`)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func writeList(t *testing.T, name string, words ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(words, "\n")+"\n"), 0o644))
	return path
}

func testConfig(t *testing.T, corpus, common, dictURL string) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Sources.Corpus = corpus
	cfg.Sources.Common = common
	cfg.Sources.FetchTimeout = 2 * time.Second
	cfg.Definitions.BaseURL = dictURL
	cfg.Definitions.LookupTimeout = time.Second
	cfg.Definitions.Workers = 4
	cfg.Definitions.RateLimit = 0
	require.NoError(t, cfg.Validate())
	return cfg
}

func newTestApp(t *testing.T, cfg config.Config) *App {
	t.Helper()
	a, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, a.Close()) })
	return a
}

func TestNewAnswersQueries(t *testing.T) {
	dict := newDictionary(t, map[string]string{
		"islet":  "A small island.",
		"listen": "To pay attention to sound.",
		"silent": "Free from sound.",
		"enlist": "To enroll.",
	})
	cfg := testConfig(t,
		writeList(t, "words.txt", "islet", "istle", "listen", "silent", "enlist", "tinsel"),
		writeList(t, "common.txt", "listen", "silent"),
		dict.URL)
	a := newTestApp(t, cfg)
	assert.True(t, a.Ready())

	res, err := a.Engine.Query(context.Background(), "islet")
	require.NoError(t, err)
	assert.True(t, res.IsPrime)
	require.Len(t, res.Candidates, 1)
	assert.Equal(t, "A small island.", *res.Candidates[0].Definition)

	res, err = a.Engine.Query(context.Background(), "Listen")
	require.NoError(t, err)
	assert.False(t, res.IsPrime)
	assert.Equal(t, 3, res.ValidCount)
	words := make([]string, 0, len(res.Candidates))
	for _, c := range res.Candidates {
		words = append(words, c.Word)
		assert.Equal(t, c.Word == "listen" || c.Word == "silent", c.IsCommon, c.Word)
	}
	assert.Equal(t, []string{"enlist", "listen", "silent"}, words)
	assert.Equal(t, "720", res.TotalPermutations.String())
}

func TestNewToleratesFailedSource(t *testing.T) {
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer broken.Close()
	dict := newDictionary(t, map[string]string{"stone": "A rock."})

	cfg := testConfig(t, writeList(t, "words.txt", "stone", "notes"), broken.URL+"/common.txt", dict.URL)
	a := newTestApp(t, cfg)
	assert.True(t, a.Ready())

	res, err := a.Engine.Query(context.Background(), "stone")
	require.NoError(t, err)
	require.Len(t, res.Candidates, 1)
	assert.False(t, res.Candidates[0].IsCommon)

	body := scrape(t, a)
	assert.Contains(t, body, `primeword_source_loads_total{source="common",status="error"} 1`)
	assert.Contains(t, body, `primeword_source_loads_total{source="corpus",status="ok"} 1`)
	assert.Contains(t, body, "primeword_index_words 2")
}

func TestNewWithoutCorpus(t *testing.T) {
	dict := newDictionary(t, nil)
	a := newTestApp(t, testConfig(t, "", "", dict.URL))
	assert.False(t, a.Ready())

	res, err := a.Engine.Query(context.Background(), "anything")
	require.NoError(t, err)
	assert.Empty(t, res.Candidates)
	assert.False(t, res.IsPrime)
}

func TestNewCancelledContext(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer slow.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(ctx, testConfig(t, slow.URL+"/words.txt", "", slow.URL), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestInvalidQueryIsCounted(t *testing.T) {
	dict := newDictionary(t, nil)
	a := newTestApp(t, testConfig(t, writeList(t, "words.txt", "a"), "", dict.URL))

	_, err := a.Engine.Query(context.Background(), "no spaces")
	assert.ErrorIs(t, err, anagram.ErrInvalidWord)
	assert.Contains(t, scrape(t, a), `primeword_queries_total{outcome="invalid"} 1`)
}

func TestDefinitionCacheIsScraped(t *testing.T) {
	dict := newDictionary(t, map[string]string{"islet": "A small island."})
	a := newTestApp(t, testConfig(t, writeList(t, "words.txt", "islet", "istle"), "", dict.URL))

	_, err := a.Engine.Query(context.Background(), "islet")
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		found, missing, err := a.cache.Entries()
		return err == nil && found == 1 && missing == 1
	}, 2*time.Second, 10*time.Millisecond)

	res, err := a.Engine.Query(context.Background(), "islet")
	require.NoError(t, err)
	assert.True(t, res.IsPrime)

	body := scrape(t, a)
	assert.Contains(t, body, `primeword_definition_cache_total{result="hit"} 2`)
	assert.Contains(t, body, `primeword_definition_cache_total{result="miss"} 2`)
	assert.Contains(t, body, `primeword_definition_cache_entries{state="found"} 1`)
	assert.Contains(t, body, `primeword_definition_cache_entries{state="missing"} 1`)
}

func scrape(t *testing.T, a *App) string {
	t.Helper()
	rec := httptest.NewRecorder()
	a.Metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}
