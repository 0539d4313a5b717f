package api

import (
	"context"
	"fmt"
	"net/url"

	"lol-tracker/internal/config"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

const ddragonBaseURL = "https://ddragon.leagueoflegends.com"

// DDragonClient reads the static, versioned champion dataset. It needs no API key.
type DDragonClient struct {
	gate    *Gate
	baseURL string
}

func NewDDragonClient(cfg *config.Config, logger zerolog.Logger) *DDragonClient {
	gate := NewGate(GateOptions{
		MaxRetries: cfg.APIMaxRetries,
		Deadline:   cfg.APICallDeadline,
	}, logger.With().Str("component", "ddragon").Logger())
	return NewDDragonClientWithGate(gate, ddragonBaseURL)
}

func NewDDragonClientWithGate(gate *Gate, baseURL string) *DDragonClient {
	return &DDragonClient{gate: gate, baseURL: baseURL}
}

func (c *DDragonClient) LatestVersion(ctx context.Context) (string, error) {
	versions, err := doRequest[[]string](ctx, c.gate, c.baseURL+"/api/versions.json")
	if err != nil {
		return "", err
	}
	if len(*versions) == 0 {
		return "", errors.New("version list is empty")
	}
	return (*versions)[0], nil
}

func (c *DDragonClient) Champions(ctx context.Context, version, locale string) ([]ChampionSummary, error) {
	u := fmt.Sprintf("%s/cdn/%s/data/%s/champion.json", c.baseURL, url.PathEscape(version), url.PathEscape(locale))
	resp, err := doRequest[ChampionListResponse](ctx, c.gate, u)
	if err != nil {
		return nil, err
	}

	out := make([]ChampionSummary, 0, len(resp.Data))
	for _, champ := range resp.Data {
		out = append(out, ChampionSummary{
			ID:      champ.ID,
			Key:     champ.Key,
			Name:    champ.Name,
			IconURL: fmt.Sprintf("%s/cdn/%s/img/champion/%s", c.baseURL, version, champ.Image.Full),
		})
	}
	return out, nil
}

type ChampionListResponse struct {
	Type    string                  `json:"type"`
	Version string                  `json:"version"`
	Data    map[string]ChampionData `json:"data"`
}

type ChampionData struct {
	ID    string `json:"id"`
	Key   string `json:"key"`
	Name  string `json:"name"`
	Title string `json:"title"`
	Image struct {
		Full string `json:"full"`
	} `json:"image"`
}

type ChampionSummary struct {
	ID      string
	Key     string
	Name    string
	IconURL string
}
