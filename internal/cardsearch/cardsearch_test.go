package cardsearch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cardvault/internal/metrics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type searchCall struct {
	provider string
	outcome  string
}

type recordingMetrics struct {
	metrics.Nop
	searches []searchCall
}

func (r *recordingMetrics) RecordCardSearch(provider, outcome string) {
	r.searches = append(r.searches, searchCall{provider, outcome})
}

func serve(t *testing.T, status int, body string, check func(*http.Request)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			check(r)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestScryfallSearch(t *testing.T) {
	srv := serve(t, http.StatusOK, `{
		"total_cards": 2,
		"has_more": false,
		"data": [
			{"id": "abc", "name": "Black Lotus", "set_name": "Alpha", "set": "lea", "rarity": "rare",
			 "type_line": "Artifact", "image_uris": {"normal": "https://img/normal.jpg", "small": "https://img/small.jpg"}},
			{"id": "dfc", "name": "Delver of Secrets", "set": "isd",
			 "card_faces": [{"image_uris": {"small": "https://img/front.jpg"}}]}
		]
	}`, func(r *http.Request) {
		assert.Equal(t, "lotus", r.URL.Query().Get("q"))
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "cards", r.URL.Query().Get("unique"))
		assert.Equal(t, userAgent, r.Header.Get("User-Agent"))
	})

	s := &Scryfall{httpClient: srv.Client(), endpoint: srv.URL}
	result, err := s.Search(context.Background(), "lotus", 2)
	require.NoError(t, err)

	require.Len(t, result.Cards, 2)
	assert.Equal(t, 2, result.Total)
	assert.False(t, result.HasMore)
	assert.Equal(t, Card{
		ExternalID: "abc",
		Name:       "Black Lotus",
		ImageURL:   "https://img/normal.jpg",
		SetName:    "Alpha",
		SetCode:    "lea",
		Rarity:     "rare",
		TypeLine:   "Artifact",
		Source:     "scryfall",
	}, result.Cards[0])
	assert.Equal(t, "https://img/front.jpg", result.Cards[1].ImageURL)
}

func TestScryfallNotFoundIsEmpty(t *testing.T) {
	srv := serve(t, http.StatusNotFound, `{"object":"error","code":"not_found"}`, nil)

	s := &Scryfall{httpClient: srv.Client(), endpoint: srv.URL}
	result, err := s.Search(context.Background(), "zzzz", 1)
	require.NoError(t, err)
	assert.Empty(t, result.Cards)
	assert.NotNil(t, result.Cards)
}

func TestPokemonSearch(t *testing.T) {
	srv := serve(t, http.StatusOK, `{
		"totalCount": 45,
		"data": [
			{"id": "base1-4", "name": "Charizard", "rarity": "Rare Holo", "types": ["Fire", "Dragon"],
			 "images": {"small": "https://img/s.png", "large": "https://img/l.png"},
			 "set": {"id": "base1", "name": "Base"}},
			{"id": "base1-5", "name": "Charmander", "images": {"small": "https://img/c.png"}, "set": {"id": "base1", "name": "Base"}}
		]
	}`, func(r *http.Request) {
		assert.Equal(t, "name:char*", r.URL.Query().Get("q"))
		assert.Equal(t, "30", r.URL.Query().Get("pageSize"))
	})

	p := &PokemonTCG{httpClient: srv.Client(), endpoint: srv.URL}

	result, err := p.Search(context.Background(), "char", 1)
	require.NoError(t, err)
	require.Len(t, result.Cards, 2)
	assert.Equal(t, 45, result.Total)
	assert.True(t, result.HasMore)
	assert.Equal(t, "https://img/l.png", result.Cards[0].ImageURL)
	assert.Equal(t, "Fire, Dragon", result.Cards[0].TypeLine)
	assert.Equal(t, "base1", result.Cards[0].SetCode)
	assert.Equal(t, "https://img/c.png", result.Cards[1].ImageURL)

	result, err = p.Search(context.Background(), "char", 2)
	require.NoError(t, err)
	assert.False(t, result.HasMore)
}

func TestYGOProDeckSearch(t *testing.T) {
	srv := serve(t, http.StatusOK, `{
		"data": [
			{"id": 89631139, "name": "Blue-Eyes White Dragon", "type": "Normal Monster", "race": "Dragon",
			 "card_images": [{"image_url": "https://img/bewd.jpg"}]}
		]
	}`, func(r *http.Request) {
		assert.Equal(t, "blue-eyes", r.URL.Query().Get("fname"))
		assert.Equal(t, "0", r.URL.Query().Get("offset"))
	})

	y := &YGOProDeck{httpClient: srv.Client(), endpoint: srv.URL}
	result, err := y.Search(context.Background(), "blue-eyes", 3)
	require.NoError(t, err)

	require.Len(t, result.Cards, 1)
	assert.Equal(t, "89631139", result.Cards[0].ExternalID)
	assert.Equal(t, "Dragon", result.Cards[0].Rarity)
	assert.Equal(t, "Normal Monster", result.Cards[0].TypeLine)
	assert.Equal(t, 1, result.Total)
	assert.False(t, result.HasMore)
}

func TestYGOProDeckNoMatchIsEmpty(t *testing.T) {
	srv := serve(t, http.StatusBadRequest, `{"error":"No card matching your query was found in the database."}`, nil)

	y := &YGOProDeck{httpClient: srv.Client(), endpoint: srv.URL}
	result, err := y.Search(context.Background(), "nothing", 1)
	require.NoError(t, err)
	assert.Empty(t, result.Cards)
}

func TestProviderStatusError(t *testing.T) {
	srv := serve(t, http.StatusInternalServerError, `oops`, nil)

	p := &PokemonTCG{httpClient: srv.Client(), endpoint: srv.URL}
	_, err := p.Search(context.Background(), "pika", 1)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, "pokemon", statusErr.Provider)
	assert.Equal(t, http.StatusInternalServerError, statusErr.Code)
}

func TestClientSearch(t *testing.T) {
	ok := serve(t, http.StatusOK, `{"totalCount": 0, "data": []}`, nil)
	broken := serve(t, http.StatusBadGateway, ``, nil)

	rec := &recordingMetrics{}
	client := New(NewHTTPClient(time.Second), Endpoints{
		Scryfall:   broken.URL,
		PokemonTCG: ok.URL,
	}, rec)

	result := client.Search(context.Background(), "pokemon", "pika", 0)
	assert.Empty(t, result.Error)
	assert.NotNil(t, result.Cards)

	result = client.Search(context.Background(), "scryfall", "lotus", 1)
	assert.Contains(t, result.Error, "scryfall returned status 502")
	assert.Empty(t, result.Cards)

	result = client.Search(context.Background(), "digimon", "agumon", 1)
	assert.Empty(t, result.Error)
	assert.Empty(t, result.Cards)

	result = client.Search(context.Background(), "pokemon", "   ", 1)
	assert.Empty(t, result.Cards)

	assert.Equal(t, []searchCall{
		{"pokemon", "ok"},
		{"scryfall", "error"},
		{"unknown", "unknown_source"},
	}, rec.searches)
}

func TestClientSearchUnknownSourcesShareOneLabel(t *testing.T) {
	rec := &recordingMetrics{}
	client := NewWithProviders(rec)

	for i := 0; i < 100; i++ {
		result := client.Search(context.Background(), fmt.Sprintf("junk-%d", i), "lotus", 1)
		assert.Empty(t, result.Cards)
	}

	providers := map[string]bool{}
	for _, call := range rec.searches {
		providers[call.provider] = true
	}
	assert.Len(t, rec.searches, 100)
	assert.Equal(t, map[string]bool{"unknown": true}, providers)
}

func TestClientSearchTimeout(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	t.Cleanup(slow.Close)

	client := New(NewHTTPClient(50*time.Millisecond), Endpoints{YGOProDeck: slow.URL}, nil)
	result := client.Search(context.Background(), "yugioh", "kuriboh", 1)

	assert.NotEmpty(t, result.Error)
	assert.Empty(t, result.Cards)
}

func TestDefaultEndpoints(t *testing.T) {
	client := New(http.DefaultClient, Endpoints{}, nil)

	assert.Equal(t, DefaultScryfallURL, client.providers["scryfall"].(*Scryfall).endpoint)
	assert.Equal(t, DefaultPokemonTCGURL, client.providers["pokemon"].(*PokemonTCG).endpoint)
	assert.Equal(t, DefaultYGOProDeckURL, client.providers["yugioh"].(*YGOProDeck).endpoint)
}
