package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"lol-tracker/internal/config"

	"github.com/rs/zerolog"
)

const riotHostFormat = "https://%s.api.riotgames.com"

type RiotClient struct {
	gate       *Gate
	hostFormat string
}

func NewRiotClient(cfg *config.Config, logger zerolog.Logger) *RiotClient {
	gate := NewGate(GateOptions{
		APIKey:     cfg.RiotAPIKey,
		MaxRetries: cfg.APIMaxRetries,
		Deadline:   cfg.APICallDeadline,
	}, logger.With().Str("component", "riot").Logger())
	return NewRiotClientWithGate(gate, riotHostFormat)
}

// NewRiotClientWithGate builds a client over an existing gate; hostFormat receives the routing value.
func NewRiotClientWithGate(gate *Gate, hostFormat string) *RiotClient {
	return &RiotClient{gate: gate, hostFormat: hostFormat}
}

func (c *RiotClient) GetRateLimitInfo() RateLimitInfo {
	return c.gate.GetRateLimitInfo()
}

func (c *RiotClient) host(routing string) string {
	return fmt.Sprintf(c.hostFormat, routing)
}

func (c *RiotClient) GetAccountByRiotID(ctx context.Context, region, gameName, tagLine string) (*AccountResponse, error) {
	u := fmt.Sprintf("%s/riot/account/v1/accounts/by-riot-id/%s/%s",
		c.host(region), url.PathEscape(gameName), url.PathEscape(tagLine))
	return doRequest[AccountResponse](ctx, c.gate, u)
}

func (c *RiotClient) GetLeagueEntries(ctx context.Context, platform, puuid string) ([]LeagueEntry, error) {
	u := fmt.Sprintf("%s/lol/league/v4/entries/by-puuid/%s", c.host(platform), url.PathEscape(puuid))
	entries, err := doRequest[[]LeagueEntry](ctx, c.gate, u)
	if err != nil {
		return nil, err
	}
	return *entries, nil
}

type MatchIDFilter struct {
	StartTime int64
	EndTime   int64
	Queue     int
	Start     int
	Count     int
}

func (f MatchIDFilter) query() string {
	q := url.Values{}
	if f.StartTime > 0 {
		q.Set("startTime", strconv.FormatInt(f.StartTime, 10))
	}
	if f.EndTime > 0 {
		q.Set("endTime", strconv.FormatInt(f.EndTime, 10))
	}
	if f.Queue > 0 {
		q.Set("queue", strconv.Itoa(f.Queue))
	}
	q.Set("start", strconv.Itoa(f.Start))
	if f.Count > 0 {
		q.Set("count", strconv.Itoa(f.Count))
	}
	return q.Encode()
}

// GetMatchIDs lists match ids newest first.
func (c *RiotClient) GetMatchIDs(ctx context.Context, region, puuid string, filter MatchIDFilter) ([]string, error) {
	u := fmt.Sprintf("%s/lol/match/v5/matches/by-puuid/%s/ids?%s", c.host(region), url.PathEscape(puuid), filter.query())
	ids, err := doRequest[[]string](ctx, c.gate, u)
	if err != nil {
		return nil, err
	}
	return *ids, nil
}

func (c *RiotClient) GetMatch(ctx context.Context, region, matchID string) (*MatchResponse, error) {
	u := fmt.Sprintf("%s/lol/match/v5/matches/%s", c.host(region), url.PathEscape(matchID))
	return doRequest[MatchResponse](ctx, c.gate, u)
}

func (c *RiotClient) GetTopMasteries(ctx context.Context, platform, puuid string, count int) ([]ChampionMastery, error) {
	u := fmt.Sprintf("%s/lol/champion-mastery/v4/champion-masteries/by-puuid/%s/top?count=%d",
		c.host(platform), url.PathEscape(puuid), count)
	masteries, err := doRequest[[]ChampionMastery](ctx, c.gate, u)
	if err != nil {
		return nil, err
	}
	return *masteries, nil
}

type AccountResponse struct {
	Puuid    string `json:"puuid"`
	GameName string `json:"gameName"`
	TagLine  string `json:"tagLine"`
}

type LeagueEntry struct {
	LeagueID     string `json:"leagueId"`
	QueueType    string `json:"queueType"`
	Tier         string `json:"tier"`
	Rank         string `json:"rank"`
	Puuid        string `json:"puuid"`
	LeaguePoints int    `json:"leaguePoints"`
	Wins         int    `json:"wins"`
	Losses       int    `json:"losses"`
	HotStreak    bool   `json:"hotStreak"`
}

type MatchResponse struct {
	Metadata struct {
		MatchID      string   `json:"matchId"`
		Participants []string `json:"participants"`
	} `json:"metadata"`
	Info MatchInfo `json:"info"`
}

type MatchInfo struct {
	GameCreation       int64              `json:"gameCreation"`
	GameStartTimestamp int64              `json:"gameStartTimestamp"`
	GameEndTimestamp   int64              `json:"gameEndTimestamp"`
	GameDuration       int64              `json:"gameDuration"`
	QueueID            int                `json:"queueId"`
	Participants       []MatchParticipant `json:"participants"`
}

type MatchParticipant struct {
	Puuid        string `json:"puuid"`
	ChampionID   int    `json:"championId"`
	ChampionName string `json:"championName"`
	Win          bool   `json:"win"`
	Kills        int    `json:"kills"`
	Deaths       int    `json:"deaths"`
	Assists      int    `json:"assists"`
}

// DurationSeconds normalizes gameDuration, which older records report in milliseconds
// (those records carry no gameEndTimestamp).
func (m *MatchResponse) DurationSeconds() int {
	if m.Info.GameEndTimestamp == 0 {
		return int(m.Info.GameDuration / 1000)
	}
	return int(m.Info.GameDuration)
}

type ChampionMastery struct {
	ChampionID     int `json:"championId"`
	ChampionLevel  int `json:"championLevel"`
	ChampionPoints int `json:"championPoints"`
}
