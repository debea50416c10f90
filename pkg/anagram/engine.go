package anagram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"strings"
	"sync"
	"time"
)

// Defaults applied when the corresponding Engine field is zero.
const (
	DefaultLookupTimeout = 5 * time.Second
	DefaultWorkers       = 16
)

// Lookup outcomes reported to an Observer.
const (
	LookupFound    = "found"
	LookupAbsent   = "absent"
	LookupTimeout  = "timeout"
	LookupRejected = "rejected"
)

// Query outcomes reported to an Observer.
const (
	QueryOK      = "ok"
	QueryInvalid = "invalid"
)

// DefinitionResolver looks up the definition of a normalized word. Any
// error, or an empty definition, means the word has no definition.
type DefinitionResolver interface {
	Define(ctx context.Context, word string) (string, error)
}

// ResolverFunc adapts a function to DefinitionResolver.
type ResolverFunc func(ctx context.Context, word string) (string, error)

func (f ResolverFunc) Define(ctx context.Context, word string) (string, error) {
	return f(ctx, word)
}

// Observer receives query and lookup outcomes, e.g. for metrics.
type Observer interface {
	ObserveQuery(outcome string, elapsed time.Duration)
	ObserveLookup(outcome string, elapsed time.Duration)
}

// Candidate is one corpus word sharing the query's signature.
type Candidate struct {
	Word       string  `json:"word"`
	IsCommon   bool    `json:"isCommon"`
	Definition *string `json:"definition,omitempty"`
}

// Result is the answer to a single query. Only candidates with a resolved
// definition are listed.
type Result struct {
	Word              string      `json:"word"`
	Signature         string      `json:"sortedKey"`
	TotalPermutations *big.Int    `json:"totalPermutations"`
	Candidates        []Candidate `json:"annotatedAnagrams"`
	ValidCount        int         `json:"validCount"`
	IsPrime           bool        `json:"isPrime"`
}

// Engine answers anagram queries against an immutable Index and CommonSet.
// Configure the exported fields before the first Query.
type Engine struct {
	// LookupTimeout bounds each definition lookup.
	LookupTimeout time.Duration
	// Workers is the number of concurrent definition lookups per query.
	Workers int
	// Queue is the per-query lookup queue capacity. Zero means twice Workers.
	Queue int
	// MaxLength rejects longer words. Zero means unlimited.
	MaxLength int
	// Logger is used for debug and warning output. nil means no logging.
	Logger *slog.Logger
	// Observer is notified of outcomes. May be nil.
	Observer Observer

	index    *Index
	common   CommonSet
	resolver DefinitionResolver

	mu       sync.Mutex
	closed   bool
	inflight sync.WaitGroup
}

// NewEngine creates an engine. index and common must not be mutated
// afterwards. A nil resolver leaves every candidate undefined.
func NewEngine(index *Index, common CommonSet, resolver DefinitionResolver) *Engine {
	return &Engine{
		LookupTimeout: DefaultLookupTimeout,
		Workers:       DefaultWorkers,
		index:         index,
		common:        common,
		resolver:      resolver,
	}
}

// Query validates raw, collects the corpus words sharing its signature and
// keeps those with a resolvable definition. The only error returned is a
// *ValidationError; lookup failures just drop the candidate.
func (e *Engine) Query(ctx context.Context, raw string) (*Result, error) {
	start := time.Now()

	word, err := ParseWord(raw)
	if err == nil && e.MaxLength > 0 && len(word) > e.MaxLength {
		err = &ValidationError{
			Input:  raw,
			Reason: fmt.Sprintf("word must be at most %d letters", e.MaxLength),
		}
	}
	if err != nil {
		e.observeQuery(QueryInvalid, time.Since(start))
		return nil, err
	}

	sig := Signature(word)
	res := &Result{
		Word:              word,
		Signature:         sig,
		TotalPermutations: Permutations(word),
		Candidates:        []Candidate{},
	}

	group := e.index.Lookup(sig)
	candidates := make([]Candidate, len(group))
	for i, w := range group {
		candidates[i] = Candidate{Word: w, IsCommon: e.common.IsCommon(w)}
	}

	e.resolve(ctx, candidates)

	for _, c := range candidates {
		if c.Definition != nil {
			res.Candidates = append(res.Candidates, c)
		}
	}
	res.ValidCount = len(res.Candidates)
	res.IsPrime = res.ValidCount == 1 && res.Candidates[0].Word == word

	e.logger().Debug("query answered",
		"word", word,
		"candidates", len(candidates),
		"valid", res.ValidCount,
		"prime", res.IsPrime,
		"elapsed", time.Since(start))
	e.observeQuery(QueryOK, time.Since(start))
	return res, nil
}

// Close waits for queries that are resolving definitions. Queries issued
// afterwards resolve no definitions.
func (e *Engine) Close() {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
	e.inflight.Wait()
}

func (e *Engine) acquire() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return false
	}
	e.inflight.Add(1)
	return true
}

// resolve fills in Definition for every candidate it can. Each query gets
// its own pool so hung lookups never hold another query's workers. Every
// candidate shares one deadline taken before the first Submit, so queueing
// counts against it and the query settles within one LookupTimeout.
func (e *Engine) resolve(ctx context.Context, candidates []Candidate) {
	if len(candidates) == 0 || e.resolver == nil {
		return
	}
	if !e.acquire() {
		for range candidates {
			e.observeLookup(LookupRejected, 0)
		}
		e.logger().Debug("engine closed, lookups skipped", "candidates", len(candidates))
		return
	}
	defer e.inflight.Done()

	pool := NewWorkerPool(min(e.workers(), len(candidates)), e.Queue)
	pool.Start(ctx)
	defer pool.Close()

	start := time.Now()
	deadline := start.Add(e.lookupTimeout())

	var wg sync.WaitGroup
	for i := range candidates {
		c := &candidates[i]
		lctx, cancel := context.WithDeadline(ctx, deadline)
		wg.Add(1)
		job := func(context.Context) {
			defer wg.Done()
			defer cancel()
			c.Definition = e.lookup(lctx, c.Word, start)
		}
		if err := pool.Submit(lctx, job); err != nil {
			wg.Done()
			cancel()
			outcome := LookupRejected
			if errors.Is(err, context.DeadlineExceeded) {
				outcome = LookupTimeout
			}
			e.observeLookup(outcome, time.Since(start))
			e.logger().Debug("lookup not scheduled", "word", c.Word, "error", err)
		}
	}
	wg.Wait()
}

type answer struct {
	text string
	err  error
}

// lookup runs one definition lookup bounded by lctx. A lookup dequeued
// after its deadline is absent without calling the resolver. The resolver
// call is detached so a resolver that ignores ctx cannot hold the worker
// past the deadline.
func (e *Engine) lookup(lctx context.Context, word string, start time.Time) *string {
	if err := lctx.Err(); err != nil {
		outcome := LookupAbsent
		if errors.Is(err, context.DeadlineExceeded) {
			outcome = LookupTimeout
		}
		e.observeLookup(outcome, time.Since(start))
		e.logger().Debug("definition lookup expired in queue", "word", word, "error", err)
		return nil
	}

	ch := make(chan answer, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- answer{err: fmt.Errorf("resolver panic: %v", r)}
			}
		}()
		text, err := e.resolver.Define(lctx, word)
		ch <- answer{text: text, err: err}
	}()

	var a answer
	select {
	case a = <-ch:
	case <-lctx.Done():
		a = answer{err: lctx.Err()}
	}

	switch {
	case a.err == nil && strings.TrimSpace(a.text) != "":
		e.observeLookup(LookupFound, time.Since(start))
		text := a.text
		return &text
	case errors.Is(a.err, context.DeadlineExceeded):
		e.observeLookup(LookupTimeout, time.Since(start))
		e.logger().Debug("definition lookup timed out", "word", word)
	default:
		e.observeLookup(LookupAbsent, time.Since(start))
		if a.err != nil {
			e.logger().Debug("definition unavailable", "word", word, "error", a.err)
		}
	}
	return nil
}

func (e *Engine) workers() int {
	if e.Workers <= 0 {
		return DefaultWorkers
	}
	return e.Workers
}

func (e *Engine) lookupTimeout() time.Duration {
	if e.LookupTimeout <= 0 {
		return DefaultLookupTimeout
	}
	return e.LookupTimeout
}

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func (e *Engine) logger() *slog.Logger {
	if e.Logger == nil {
		return discardLogger
	}
	return e.Logger
}

func (e *Engine) observeQuery(outcome string, d time.Duration) {
	if e.Observer != nil {
		e.Observer.ObserveQuery(outcome, d)
	}
}

func (e *Engine) observeLookup(outcome string, d time.Duration) {
	if e.Observer != nil {
		e.Observer.ObserveLookup(outcome, d)
	}
}
