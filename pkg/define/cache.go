package define

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/japaniel/primeword/pkg/db"
	"golang.org/x/sync/singleflight"
)

// Default cache lifetimes.
const (
	DefaultTTL         = 24 * time.Hour
	DefaultNegativeTTL = time.Hour
)

// CachedResolver answers from the definitions table when it can and asks
// the next resolver otherwise. Concurrent misses for the same word share a
// single upstream call. Definitions and ErrNotFound answers are cached;
// ErrUnavailable and other failures are not.
type CachedResolver struct {
	// TTL is how long a definition stays valid. Zero keeps it forever.
	TTL time.Duration
	// NegativeTTL is how long a "not found" answer stays valid. Zero keeps it forever.
	NegativeTTL time.Duration
	// Logger receives cache read/write problems. nil means no logging.
	Logger *slog.Logger

	next   Resolver
	conn   *sql.DB
	writer *db.DefinitionWriter
	flight singleflight.Group
	now    func() time.Time

	hits   atomic.Int64
	misses atomic.Int64
}

// NewCachedResolver wraps next with a cache stored in conn, which must have
// been migrated with db.InitDB. Call Close to flush pending writes.
func NewCachedResolver(conn *sql.DB, next Resolver) *CachedResolver {
	c := &CachedResolver{
		TTL:         DefaultTTL,
		NegativeTTL: DefaultNegativeTTL,
		next:        next,
		conn:        conn,
		writer:      db.NewDefinitionWriter(conn, 32, 100*time.Millisecond),
		now:         time.Now,
	}
	c.writer.OnError = func(err error) {
		c.logger().Warn("definition cache write failed", "error", err)
	}
	return c
}

// Define implements Resolver.
func (c *CachedResolver) Define(ctx context.Context, word string) (string, error) {
	cached, err := db.GetDefinition(c.conn, word)
	switch {
	case err == nil:
		ttl := c.TTL
		if !cached.Found {
			ttl = c.NegativeTTL
		}
		if !cached.Expired(c.now(), ttl) {
			c.hits.Add(1)
			if cached.Found {
				return cached.Text, nil
			}
			return "", ErrNotFound
		}
	case !errors.Is(err, db.ErrNoDefinition):
		c.logger().Debug("definition cache read failed", "word", word, "error", err)
	}
	c.misses.Add(1)

	// The shared call outlives any single waiter; the upstream client's own
	// timeout bounds it.
	shared := context.WithoutCancel(ctx)
	ch := c.flight.DoChan(word, func() (interface{}, error) {
		def, err := c.next.Define(shared, word)
		c.store(word, def, err)
		return def, err
	})
	select {
	case r := <-ch:
		if r.Err != nil {
			return "", r.Err
		}
		return r.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (c *CachedResolver) store(word, def string, lookupErr error) {
	entry := db.Definition{Word: word, FetchedAt: c.now()}
	switch {
	case lookupErr == nil && def != "":
		entry.Text = def
		entry.Found = true
	case errors.Is(lookupErr, ErrNotFound):
	default:
		return
	}
	if err := c.writer.Submit(entry); err != nil {
		c.logger().Debug("definition not cached", "word", word, "error", err)
	}
}

// PurgeExpired deletes entries older than the longer of the two TTLs.
// Nothing is purged while either TTL keeps entries forever.
func (c *CachedResolver) PurgeExpired() (int64, error) {
	if c.TTL <= 0 || c.NegativeTTL <= 0 {
		return 0, nil
	}
	return db.DeleteDefinitionsBefore(c.conn, c.now().Add(-max(c.TTL, c.NegativeTTL)))
}

// Stats returns the number of cache hits and misses so far.
func (c *CachedResolver) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Entries counts the stored definitions and "not found" answers, expired
// or not.
func (c *CachedResolver) Entries() (found, missing int, err error) {
	return db.CountDefinitions(c.conn)
}

// Close flushes pending cache writes.
func (c *CachedResolver) Close() error {
	return c.writer.Close()
}

func (c *CachedResolver) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return c.Logger
}
