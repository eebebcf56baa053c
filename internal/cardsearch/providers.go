package cardsearch

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// Scryfall searches Magic: The Gathering cards.
type Scryfall struct {
	httpClient *http.Client
	endpoint   string
}

func (s *Scryfall) Name() string { return "scryfall" }

type scryfallImages struct {
	Normal string `json:"normal"`
	Small  string `json:"small"`
}

func (i *scryfallImages) best() string {
	if i == nil {
		return ""
	}
	if i.Normal != "" {
		return i.Normal
	}
	return i.Small
}

type scryfallResponse struct {
	TotalCards *int  `json:"total_cards"`
	HasMore    bool  `json:"has_more"`
	Data       []struct {
		ID        string          `json:"id"`
		Name      string          `json:"name"`
		ImageURIs *scryfallImages `json:"image_uris"`
		CardFaces []struct {
			ImageURIs *scryfallImages `json:"image_uris"`
		} `json:"card_faces"`
		SetName  string `json:"set_name"`
		Set      string `json:"set"`
		Rarity   string `json:"rarity"`
		TypeLine string `json:"type_line"`
	} `json:"data"`
}

func (s *Scryfall) Search(ctx context.Context, query string, page int) (*Result, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("page", strconv.Itoa(page))
	params.Set("unique", "cards")

	var payload scryfallResponse
	if err := getJSON(ctx, s.httpClient, s.Name(), s.endpoint, params, &payload); err != nil {
		// Scryfall answers 404 when nothing matches.
		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.Code == http.StatusNotFound {
			return emptyResult(), nil
		}
		return nil, err
	}

	result := emptyResult()
	for i, c := range payload.Data {
		if i == pageSize {
			break
		}
		image := c.ImageURIs.best()
		if c.ImageURIs == nil && len(c.CardFaces) > 0 {
			image = c.CardFaces[0].ImageURIs.best()
		}
		result.Cards = append(result.Cards, Card{
			ExternalID: c.ID,
			Name:       c.Name,
			ImageURL:   image,
			SetName:    c.SetName,
			SetCode:    c.Set,
			Rarity:     c.Rarity,
			TypeLine:   c.TypeLine,
			Source:     s.Name(),
		})
	}

	result.Total = len(result.Cards)
	if payload.TotalCards != nil {
		result.Total = *payload.TotalCards
	}
	result.HasMore = payload.HasMore

	return result, nil
}

// PokemonTCG searches the Pokémon TCG API by name prefix.
type PokemonTCG struct {
	httpClient *http.Client
	endpoint   string
}

func (p *PokemonTCG) Name() string { return "pokemon" }

type pokemonResponse struct {
	TotalCount *int `json:"totalCount"`
	Data       []struct {
		ID     string `json:"id"`
		Name   string `json:"name"`
		Images struct {
			Large string `json:"large"`
			Small string `json:"small"`
		} `json:"images"`
		Set struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"set"`
		Rarity string   `json:"rarity"`
		Types  []string `json:"types"`
	} `json:"data"`
}

func (p *PokemonTCG) Search(ctx context.Context, query string, page int) (*Result, error) {
	params := url.Values{}
	params.Set("q", "name:"+query+"*")
	params.Set("page", strconv.Itoa(page))
	params.Set("pageSize", strconv.Itoa(pageSize))

	var payload pokemonResponse
	if err := getJSON(ctx, p.httpClient, p.Name(), p.endpoint, params, &payload); err != nil {
		return nil, err
	}

	result := emptyResult()
	for _, c := range payload.Data {
		image := c.Images.Large
		if image == "" {
			image = c.Images.Small
		}
		result.Cards = append(result.Cards, Card{
			ExternalID: c.ID,
			Name:       c.Name,
			ImageURL:   image,
			SetName:    c.Set.Name,
			SetCode:    c.Set.ID,
			Rarity:     c.Rarity,
			TypeLine:   strings.Join(c.Types, ", "),
			Source:     p.Name(),
		})
	}

	result.Total = len(result.Cards)
	if payload.TotalCount != nil {
		result.Total = *payload.TotalCount
	}
	result.HasMore = page*pageSize < result.Total

	return result, nil
}

// YGOProDeck searches Yu-Gi-Oh! cards by fuzzy name. It has no paging.
type YGOProDeck struct {
	httpClient *http.Client
	endpoint   string
}

func (y *YGOProDeck) Name() string { return "yugioh" }

type ygoResponse struct {
	Data []struct {
		ID         int64  `json:"id"`
		Name       string `json:"name"`
		Type       string `json:"type"`
		Race       string `json:"race"`
		CardImages []struct {
			ImageURL string `json:"image_url"`
		} `json:"card_images"`
	} `json:"data"`
}

func (y *YGOProDeck) Search(ctx context.Context, query string, _ int) (*Result, error) {
	params := url.Values{}
	params.Set("fname", query)
	params.Set("num", strconv.Itoa(pageSize))
	params.Set("offset", "0")

	var payload ygoResponse
	if err := getJSON(ctx, y.httpClient, y.Name(), y.endpoint, params, &payload); err != nil {
		// YGOPRODeck answers 400 when nothing matches.
		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.Code == http.StatusBadRequest {
			return emptyResult(), nil
		}
		return nil, err
	}

	result := emptyResult()
	for _, c := range payload.Data {
		image := ""
		if len(c.CardImages) > 0 {
			image = c.CardImages[0].ImageURL
		}
		result.Cards = append(result.Cards, Card{
			ExternalID: strconv.FormatInt(c.ID, 10),
			Name:       c.Name,
			ImageURL:   image,
			Rarity:     c.Race,
			TypeLine:   c.Type,
			Source:     y.Name(),
		})
	}
	result.Total = len(result.Cards)

	return result, nil
}
