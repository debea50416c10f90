// Package wordlist fetches newline-separated word lists from a URL or a
// local file.
package wordlist

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// Default list locations used by the original service.
const (
	DefaultCorpusURL = "https://raw.githubusercontent.com/dwyl/english-words/master/words_alpha.txt"
	DefaultCommonURL = "https://raw.githubusercontent.com/first20hours/google-10000-english/master/google-10000-english.txt"
)

// DefaultMaxBytes caps a list body. words_alpha.txt is about 4 MB.
const DefaultMaxBytes = 64 << 20

// ErrSourceUnavailable wraps every failure to obtain a list.
var ErrSourceUnavailable = errors.New("word list unavailable")

// Loader reads word lists. The zero value is usable.
type Loader struct {
	Client    *http.Client
	UserAgent string
	MaxBytes  int64
}

// NewLoader returns a Loader whose HTTP requests time out after timeout.
func NewLoader(timeout time.Duration) *Loader {
	return &Loader{
		Client:    &http.Client{Timeout: timeout},
		UserAgent: "primeword",
		MaxBytes:  DefaultMaxBytes,
	}
}

// Load returns the lines of the list at location: an http(s) URL or a file
// path, optionally prefixed with file://. A ".gz" suffix is decompressed.
// Lines are returned raw apart from a trailing "\r"; blank lines are dropped.
func (l *Loader) Load(ctx context.Context, location string) ([]string, error) {
	if strings.TrimSpace(location) == "" {
		return nil, fmt.Errorf("%w: empty location", ErrSourceUnavailable)
	}
	body, err := l.read(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSourceUnavailable, location, err)
	}
	return Parse(bytes.NewReader(body))
}

func (l *Loader) read(ctx context.Context, location string) ([]byte, error) {
	rc, err := l.open(ctx, location)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var r io.Reader = rc
	if strings.HasSuffix(strings.ToLower(location), ".gz") {
		gz, err := gzip.NewReader(rc)
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		defer gz.Close()
		r = gz
	}

	limit := l.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxBytes
	}
	// Read one byte past the limit to tell "exactly at the limit" from "over it".
	body, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > limit {
		return nil, fmt.Errorf("body exceeds limit of %d bytes", limit)
	}
	return body, nil
}

func (l *Loader) open(ctx context.Context, location string) (io.ReadCloser, error) {
	if !isHTTP(location) {
		return os.Open(strings.TrimPrefix(location, "file://"))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, err
	}
	if l.UserAgent != "" {
		req.Header.Set("User-Agent", l.UserAgent)
	}
	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("download failed: %s", resp.Status)
	}
	if l.MaxBytes > 0 && resp.ContentLength > l.MaxBytes {
		resp.Body.Close()
		return nil, fmt.Errorf("content-length %d exceeds limit of %d bytes", resp.ContentLength, l.MaxBytes)
	}
	return resp.Body, nil
}

func isHTTP(location string) bool {
	lower := strings.ToLower(location)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// Parse splits r into lines, dropping "\r" line endings and blank lines.
func Parse(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := strings.TrimSuffix(sc.Text(), "\r")
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
