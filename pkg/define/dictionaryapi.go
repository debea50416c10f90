package define

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// DefaultBaseURL is the free dictionaryapi.dev English endpoint.
const DefaultBaseURL = "https://api.dictionaryapi.dev/api/v2/entries/en"

const maxResponseSize = 1 << 20 // 1 MB; real entries are a few KB

// Entry matches the structure of dictionaryapi.dev entries.
type Entry struct {
	Word     string    `json:"word"`
	Phonetic string    `json:"phonetic"`
	Meanings []Meaning `json:"meanings"`
}

type Meaning struct {
	PartOfSpeech string  `json:"partOfSpeech"`
	Definitions  []Sense `json:"definitions"`
}

type Sense struct {
	Definition string `json:"definition"`
	Example    string `json:"example"`
}

// FirstDefinition returns the first definition of the first meaning of the
// first entry, or "" if there is none.
func FirstDefinition(entries []Entry) string {
	if len(entries) == 0 || len(entries[0].Meanings) == 0 {
		return ""
	}
	senses := entries[0].Meanings[0].Definitions
	if len(senses) == 0 {
		return ""
	}
	return strings.TrimSpace(senses[0].Definition)
}

// DictionaryAPI queries a dictionaryapi.dev compatible service.
type DictionaryAPI struct {
	BaseURL   string
	Client    *http.Client
	UserAgent string
	// Limiter, when set, is waited on before every request.
	Limiter *rate.Limiter
}

// NewDictionaryAPI returns a client for baseURL ("" means DefaultBaseURL).
func NewDictionaryAPI(baseURL string) *DictionaryAPI {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &DictionaryAPI{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		Client:    &http.Client{Timeout: 10 * time.Second},
		UserAgent: "primeword",
	}
}

// Define implements Resolver.
func (d *DictionaryAPI) Define(ctx context.Context, word string) (string, error) {
	if d.Limiter != nil {
		if err := d.Limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("%w: rate limit wait: %v", ErrUnavailable, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.BaseURL+"/"+url.PathEscape(word), nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")
	if d.UserAgent != "" {
		req.Header.Set("User-Agent", d.UserAgent)
	}

	client := d.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", ErrNotFound
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("%w: status %s", ErrUnavailable, resp.Status)
	}

	var entries []Entry
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&entries); err != nil {
		return "", fmt.Errorf("%w: decode %q: %v", ErrUnavailable, word, err)
	}
	def := FirstDefinition(entries)
	if def == "" {
		return "", ErrNotFound
	}
	return def, nil
}
