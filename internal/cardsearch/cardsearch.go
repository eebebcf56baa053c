// Package cardsearch queries the external card databases and normalises
// their payloads into one card shape.
package cardsearch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"cardvault/internal/logger"
	"cardvault/internal/metrics"
)

const (
	DefaultScryfallURL   = "https://api.scryfall.com/cards/search"
	DefaultPokemonTCGURL = "https://api.pokemontcg.io/v2/cards"
	DefaultYGOProDeckURL = "https://db.ygoprodeck.com/api/v7/cardinfo.php"

	pageSize  = 30
	userAgent = "cardvault/1.0"
	// maxErrorBody caps how much of an error response gets logged.
	maxErrorBody = 512
)

// Card is the provider-independent search hit. It carries everything the
// import endpoint needs.
type Card struct {
	ExternalID string `json:"external_id"`
	Name       string `json:"name"`
	ImageURL   string `json:"image_url"`
	SetName    string `json:"set_name"`
	SetCode    string `json:"set_code"`
	Rarity     string `json:"rarity"`
	TypeLine   string `json:"type_line"`
	Source     string `json:"source"`
}

type Result struct {
	Cards   []Card `json:"cards"`
	Total   int    `json:"total"`
	HasMore bool   `json:"has_more"`
	Error   string `json:"error,omitempty"`
}

func emptyResult() *Result {
	return &Result{Cards: []Card{}}
}

// Provider searches one external database.
type Provider interface {
	Name() string
	Search(ctx context.Context, query string, page int) (*Result, error)
}

type Endpoints struct {
	Scryfall   string
	PokemonTCG string
	YGOProDeck string
}

// Client fans a search out to the provider named by the caller.
type Client struct {
	providers map[string]Provider
	metrics   metrics.Recorder
}

// New builds a Client with the three stock providers. Empty endpoints use
// the public API addresses.
func New(httpClient *http.Client, endpoints Endpoints, recorder metrics.Recorder) *Client {
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	return NewWithProviders(recorder,
		&Scryfall{httpClient: httpClient, endpoint: orDefault(endpoints.Scryfall, DefaultScryfallURL)},
		&PokemonTCG{httpClient: httpClient, endpoint: orDefault(endpoints.PokemonTCG, DefaultPokemonTCGURL)},
		&YGOProDeck{httpClient: httpClient, endpoint: orDefault(endpoints.YGOProDeck, DefaultYGOProDeckURL)},
	)
}

func NewWithProviders(recorder metrics.Recorder, providers ...Provider) *Client {
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	c := &Client{providers: make(map[string]Provider, len(providers)), metrics: recorder}
	for _, p := range providers {
		c.providers[p.Name()] = p
	}
	return c
}

// NewHTTPClient returns the client used for every provider call. There is
// no retry: one attempt bounded by timeout.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

// unknownProvider labels searches for a source no provider serves. The
// requested tag is caller input and never becomes a label value.
const unknownProvider = "unknown"

// Search never fails: an empty query or unknown source gives an empty
// result and provider failures are reported in Result.Error.
func (c *Client) Search(ctx context.Context, source, query string, page int) *Result {
	query = strings.TrimSpace(query)
	if query == "" {
		return emptyResult()
	}
	if page < 1 {
		page = 1
	}

	provider, ok := c.providers[source]
	if !ok {
		c.metrics.RecordCardSearch(unknownProvider, "unknown_source")
		return emptyResult()
	}

	result, err := provider.Search(ctx, query, page)
	if err != nil {
		logger.Warn("Card search failed",
			"provider", provider.Name(),
			"query", query,
			"error", err)
		c.metrics.RecordCardSearch(provider.Name(), "error")
		failed := emptyResult()
		failed.Error = err.Error()
		return failed
	}

	c.metrics.RecordCardSearch(provider.Name(), "ok")
	if result.Cards == nil {
		result.Cards = []Card{}
	}
	return result
}

// StatusError is returned for a non-2xx provider response.
type StatusError struct {
	Provider string
	Code     int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d", e.Provider, e.Code)
}

func getJSON(ctx context.Context, httpClient *http.Client, provider, endpoint string, params url.Values, v any) error {
	reqURL, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("failed to parse %s endpoint: %w", provider, err)
	}
	reqURL.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", provider, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", provider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		logger.Debug("Card search provider error body",
			"provider", provider,
			"status", resp.StatusCode,
			"body", string(body))
		return &StatusError{Provider: provider, Code: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", provider, err)
	}

	return nil
}
