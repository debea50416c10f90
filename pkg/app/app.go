// Package app assembles the query engine from configuration: it loads the
// word lists, builds the immutable index and wires the definition chain.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/japaniel/primeword/pkg/anagram"
	"github.com/japaniel/primeword/pkg/config"
	"github.com/japaniel/primeword/pkg/db"
	"github.com/japaniel/primeword/pkg/define"
	"github.com/japaniel/primeword/pkg/metrics"
	"github.com/japaniel/primeword/pkg/wordlist"
)

// Source names used in logs and metrics.
const (
	SourceCorpus = "corpus"
	SourceCommon = "common"
)

const purgeInterval = 15 * time.Minute

// App owns everything a running service needs.
type App struct {
	Engine  *anagram.Engine
	Metrics *metrics.Metrics

	index  *anagram.Index
	common anagram.CommonSet
	cache  *define.CachedResolver
	conn   *sql.DB
	logger *slog.Logger

	stopPurge context.CancelFunc
	purgeDone chan struct{}
}

// New loads the configured sources and builds the engine. A source that
// cannot be loaded is logged and left empty; New only fails when ctx is
// cancelled or the definition cache cannot be opened.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	m := metrics.New()

	loader := wordlist.NewLoader(cfg.Sources.FetchTimeout)
	if cfg.Sources.UserAgent != "" {
		loader.UserAgent = cfg.Sources.UserAgent
	}
	if cfg.Sources.MaxBytes > 0 {
		loader.MaxBytes = cfg.Sources.MaxBytes
	}

	corpus, common, err := loadSources(ctx, loader, cfg.Sources, logger, m)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	index := anagram.BuildIndex(corpus)
	commonSet := anagram.NewCommonSet(common)
	m.SetIndexStats(index.Len(), index.Groups(), commonSet.Len())
	logger.Info("index built",
		"words", index.Len(),
		"groups", index.Groups(),
		"common_words", commonSet.Len(),
		"elapsed", time.Since(start))

	conn, err := db.Open(cfg.Definitions.CacheDSN)
	if err != nil {
		return nil, fmt.Errorf("open definition cache: %w", err)
	}

	api := define.NewDictionaryAPI(cfg.Definitions.BaseURL)
	api.Client = &http.Client{Timeout: cfg.Definitions.LookupTimeout}
	if cfg.Sources.UserAgent != "" {
		api.UserAgent = cfg.Sources.UserAgent
	}
	if cfg.Definitions.RateLimit > 0 {
		burst := max(cfg.Definitions.Burst, 1)
		api.Limiter = rate.NewLimiter(rate.Limit(cfg.Definitions.RateLimit), burst)
	}

	cache := define.NewCachedResolver(conn, api)
	cache.TTL = cfg.Definitions.CacheTTL
	cache.NegativeTTL = cfg.Definitions.NegativeTTL
	cache.Logger = logger
	if err := m.RegisterDefinitionCache(cache); err != nil {
		cache.Close()
		conn.Close()
		return nil, fmt.Errorf("register cache metrics: %w", err)
	}

	engine := anagram.NewEngine(index, commonSet, cache)
	engine.LookupTimeout = cfg.Definitions.LookupTimeout
	engine.Workers = cfg.Definitions.Workers
	engine.Queue = cfg.Definitions.Queue
	engine.MaxLength = cfg.Query.MaxLength
	engine.Logger = logger
	engine.Observer = m

	a := &App{
		Engine:    engine,
		Metrics:   m,
		index:     index,
		common:    commonSet,
		cache:     cache,
		conn:      conn,
		logger:    logger,
		purgeDone: make(chan struct{}),
	}

	purgeCtx, cancel := context.WithCancel(context.Background())
	a.stopPurge = cancel
	go a.purgeLoop(purgeCtx, purgeInterval)

	return a, nil
}

// Ready reports whether a non-empty corpus was loaded.
func (a *App) Ready() bool {
	return a.index.Len() > 0
}

// Close stops the engine, flushes the cache and closes the database.
func (a *App) Close() error {
	a.stopPurge()
	<-a.purgeDone
	a.Engine.Close()
	var errs []error
	if err := a.cache.Close(); err != nil {
		errs = append(errs, fmt.Errorf("flush definition cache: %w", err))
	}
	if err := a.conn.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close definition cache: %w", err))
	}
	return errors.Join(errs...)
}

func (a *App) purgeLoop(ctx context.Context, every time.Duration) {
	defer close(a.purgeDone)
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := a.cache.PurgeExpired()
			if err != nil {
				a.logger.Warn("definition cache purge failed", "error", err)
				continue
			}
			if n > 0 {
				a.logger.Debug("definition cache purged", "rows", n)
			}
		}
	}
}

// loadSources fetches the corpus and the common-word list concurrently. A
// failed source is logged, counted and returned empty.
func loadSources(ctx context.Context, loader *wordlist.Loader, cfg config.SourcesConfig, logger *slog.Logger, m *metrics.Metrics) (corpus, common []string, err error) {
	g, gctx := errgroup.WithContext(ctx)

	load := func(name, location string, dst *[]string) {
		g.Go(func() error {
			if strings.TrimSpace(location) == "" {
				logger.Info("source not configured", "source", name)
				return nil
			}
			start := time.Now()
			words, err := loader.Load(gctx, location)
			m.RecordSourceLoad(name, err)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				logger.Warn("source unavailable, continuing without it",
					"source", name, "location", location, "error", err)
				return nil
			}
			logger.Info("source loaded",
				"source", name, "lines", len(words), "elapsed", time.Since(start))
			*dst = words
			return nil
		})
	}
	load(SourceCorpus, cfg.Corpus, &corpus)
	load(SourceCommon, cfg.Common, &common)

	if err := g.Wait(); err != nil {
		return nil, nil, fmt.Errorf("load sources: %w", err)
	}
	return corpus, common, nil
}
