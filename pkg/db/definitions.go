package db

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// DBExecutor is an interface that allows methods to accept either *sql.DB or *sql.Tx
type DBExecutor interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

// ErrNoDefinition is returned by GetDefinition for a word that was never cached.
var ErrNoDefinition = errors.New("definition not cached")

// Definition is a cached lookup outcome. Found is false for a cached
// "no such word" answer.
type Definition struct {
	Word      string
	Text      string
	Found     bool
	FetchedAt time.Time
}

// Expired reports whether the entry is older than ttl at now.
func (d Definition) Expired(now time.Time, ttl time.Duration) bool {
	return ttl > 0 && now.Sub(d.FetchedAt) > ttl
}

// GetDefinition returns the cached outcome for word or ErrNoDefinition.
func GetDefinition(db DBExecutor, word string) (Definition, error) {
	var (
		d       Definition
		found   int
		fetched int64
	)
	err := db.QueryRow(
		`SELECT word, definition, found, fetched_at FROM definitions WHERE word = ?`, word,
	).Scan(&d.Word, &d.Text, &found, &fetched)
	if errors.Is(err, sql.ErrNoRows) {
		return Definition{}, ErrNoDefinition
	}
	if err != nil {
		return Definition{}, fmt.Errorf("get definition %q: %w", word, err)
	}
	d.Found = found != 0
	d.FetchedAt = time.Unix(fetched, 0)
	return d, nil
}

// PutDefinition inserts or replaces the cached outcome for d.Word.
func PutDefinition(db DBExecutor, d Definition) error {
	word := strings.TrimSpace(d.Word)
	if word == "" {
		return fmt.Errorf("word must be non-empty")
	}
	found := 0
	if d.Found {
		found = 1
	}
	fetched := d.FetchedAt
	if fetched.IsZero() {
		fetched = time.Now()
	}
	_, err := db.Exec(`INSERT INTO definitions (word, definition, found, fetched_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(word) DO UPDATE SET
		  definition = excluded.definition,
		  found = excluded.found,
		  fetched_at = excluded.fetched_at`,
		word, d.Text, found, fetched.Unix())
	if err != nil {
		return fmt.Errorf("put definition %q: %w", word, err)
	}
	return nil
}

// DeleteDefinitionsBefore removes entries fetched before cutoff and returns
// how many were removed.
func DeleteDefinitionsBefore(db DBExecutor, cutoff time.Time) (int64, error) {
	res, err := db.Exec(`DELETE FROM definitions WHERE fetched_at < ?`, cutoff.Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// CountDefinitions returns the number of cached entries, positive and negative.
func CountDefinitions(db DBExecutor) (found, missing int, err error) {
	rows, err := db.Query(`SELECT found, COUNT(*) FROM definitions GROUP BY found`)
	if err != nil {
		return 0, 0, err
	}
	defer rows.Close()
	for rows.Next() {
		var f, n int
		if err := rows.Scan(&f, &n); err != nil {
			return 0, 0, err
		}
		if f != 0 {
			found = n
		} else {
			missing = n
		}
	}
	return found, missing, rows.Err()
}
