package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/japaniel/primeword/pkg/anagram"
)

var _ anagram.Observer = (*Metrics)(nil)

func TestObserveQueryAndLookup(t *testing.T) {
	m := New()
	m.ObserveQuery(anagram.QueryOK, 20*time.Millisecond)
	m.ObserveQuery(anagram.QueryOK, 30*time.Millisecond)
	m.ObserveQuery(anagram.QueryInvalid, time.Millisecond)
	m.ObserveLookup(anagram.LookupTimeout, 5*time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.queriesTotal.WithLabelValues(anagram.QueryOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.queriesTotal.WithLabelValues(anagram.QueryInvalid)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.lookupsTotal.WithLabelValues(anagram.LookupTimeout)))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.lookupsTotal.WithLabelValues(anagram.LookupFound)))
}

func TestSetIndexStats(t *testing.T) {
	m := New()
	m.SetIndexStats(370105, 312000, 10000)
	assert.Equal(t, 370105.0, testutil.ToFloat64(m.indexWords))
	assert.Equal(t, 312000.0, testutil.ToFloat64(m.indexGroups))
	assert.Equal(t, 10000.0, testutil.ToFloat64(m.commonWords))
}

func TestRecordSourceLoad(t *testing.T) {
	m := New()
	m.RecordSourceLoad("corpus", nil)
	m.RecordSourceLoad("common", errors.New("boom"))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sourceLoads.WithLabelValues("corpus", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sourceLoads.WithLabelValues("common", "error")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.ObserveHTTP(http.MethodGet, "/api/check", http.StatusOK, 10*time.Millisecond)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `primeword_http_requests_total{method="GET",route="/api/check",status_code="200"} 1`)
}

func TestRegistriesAreIndependent(t *testing.T) {
	a, b := New(), New()
	a.ObserveQuery(anagram.QueryOK, time.Millisecond)
	assert.Equal(t, 0.0, testutil.ToFloat64(b.queriesTotal.WithLabelValues(anagram.QueryOK)))
	assert.NotSame(t, a.registry, b.registry)
}

type fakeCache struct {
	hits, misses   int64
	found, missing int
	err            error
}

func (f *fakeCache) Stats() (int64, int64) { return f.hits, f.misses }

func (f *fakeCache) Entries() (int, int, error) { return f.found, f.missing, f.err }

func TestRegisterDefinitionCache(t *testing.T) {
	m := New()
	c := &fakeCache{hits: 3, misses: 1, found: 2, missing: 1}
	require.NoError(t, m.RegisterDefinitionCache(c))

	expected := `
# HELP primeword_definition_cache_total Definition cache reads by result
# TYPE primeword_definition_cache_total counter
primeword_definition_cache_total{result="hit"} 3
primeword_definition_cache_total{result="miss"} 1
# HELP primeword_definition_cache_entries Stored definition cache entries by state
# TYPE primeword_definition_cache_entries gauge
primeword_definition_cache_entries{state="found"} 2
primeword_definition_cache_entries{state="missing"} 1
`
	require.NoError(t, testutil.GatherAndCompare(m.registry, strings.NewReader(expected),
		"primeword_definition_cache_total", "primeword_definition_cache_entries"))

	// values are read at scrape time
	c.hits = 4
	n, err := testutil.GatherAndCount(m.registry, "primeword_definition_cache_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Contains(t, scrapeBody(t, m), `primeword_definition_cache_total{result="hit"} 4`)
}

func TestDefinitionCacheEntriesSkippedOnError(t *testing.T) {
	m := New()
	require.NoError(t, m.RegisterDefinitionCache(&fakeCache{hits: 1, err: errors.New("db closed")}))

	n, err := testutil.GatherAndCount(m.registry, "primeword_definition_cache_entries")
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Contains(t, scrapeBody(t, m), `primeword_definition_cache_total{result="hit"} 1`)
}

func TestRegisterDefinitionCacheTwiceFails(t *testing.T) {
	m := New()
	require.NoError(t, m.RegisterDefinitionCache(&fakeCache{}))
	assert.Error(t, m.RegisterDefinitionCache(&fakeCache{}))
}

func scrapeBody(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}
