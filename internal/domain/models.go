package domain

import (
	"strings"
	"time"
)

type State struct {
	Players   []*Player `json:"players"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (s *State) Player(id string) *Player {
	for _, p := range s.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

type Player struct {
	ID           string                 `json:"id"`
	DisplayName  string                 `json:"displayName"`
	GameName     string                 `json:"gameName"`
	TagLine      string                 `json:"tagLine"`
	Platform     string                 `json:"platform"`
	Puuid        string                 `json:"puuid,omitempty"`
	Rank         *RankSnapshot          `json:"rank,omitempty"`
	PreviousRank *RankSnapshot          `json:"previousRank,omitempty"`
	Totals       Totals                 `json:"totals"`
	Aggregates   map[int]*YearAggregate `json:"aggregates,omitempty"`
	RecentGames  []RecentGame           `json:"recentGames,omitempty"`
	RecentStale  bool                   `json:"recentStale,omitempty"`
	TopMastery   []MasteryEntry         `json:"topMastery,omitempty"`
	PendingBan   *PendingPromotion      `json:"pendingBan,omitempty"`
	Bans         []BanRecord            `json:"bans,omitempty"`
	History      []HistoryEntry         `json:"history,omitempty"`
	LastError    string                 `json:"lastError,omitempty"`
	LastErrorAt  *time.Time             `json:"lastErrorAt,omitempty"`
	LastRefresh  *time.Time             `json:"lastRefreshAt,omitempty"`
}

// Ref is the subset of a player the remote lookups need.
type Ref struct {
	Puuid    string
	Platform string
	Region   string
}

func (p *Player) Ref() Ref {
	return Ref{Puuid: p.Puuid, Platform: p.Platform, Region: RegionForPlatform(p.Platform)}
}

func (p *Player) RiotID() string {
	return p.GameName + "#" + p.TagLine
}

func (p *Player) HasBan(entityName string) bool {
	want := NormalizeName(entityName)
	for _, b := range p.Bans {
		if NormalizeName(b.EntityName) == want {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so a refresh cycle can work on a snapshot of the document.
func (p *Player) Clone() *Player {
	c := *p
	c.Rank = p.Rank.Clone()
	c.PreviousRank = p.PreviousRank.Clone()
	if p.Aggregates != nil {
		c.Aggregates = make(map[int]*YearAggregate, len(p.Aggregates))
		for year, agg := range p.Aggregates {
			c.Aggregates[year] = agg.Clone()
		}
	}
	c.RecentGames = append([]RecentGame(nil), p.RecentGames...)
	c.TopMastery = append([]MasteryEntry(nil), p.TopMastery...)
	if p.PendingBan != nil {
		pending := p.PendingBan.Clone()
		c.PendingBan = &pending
	}
	c.Bans = append([]BanRecord(nil), p.Bans...)
	c.History = append([]HistoryEntry(nil), p.History...)
	return &c
}

type Totals struct {
	Wins   int `json:"wins"`
	Losses int `json:"losses"`
}

func (t Totals) Games() int {
	return t.Wins + t.Losses
}

type PendingPromotion struct {
	DetectedAt time.Time    `json:"detectedAt"`
	From       RankSnapshot `json:"from"`
	To         RankSnapshot `json:"to"`
}

func (p PendingPromotion) Clone() PendingPromotion {
	return p
}

type BanRecord struct {
	ID         string    `json:"id"`
	EntityName string    `json:"entityName"`
	Note       string    `json:"note,omitempty"`
	RecordedAt time.Time `json:"recordedAt"`
}

type HistoryEntry struct {
	ID         string           `json:"id"`
	Ban        BanRecord        `json:"ban"`
	Promotion  PendingPromotion `json:"promotion"`
	RecordedAt time.Time        `json:"recordedAt"`
}

type RecentGame struct {
	MatchID         string    `json:"matchId"`
	ChampionKey     int       `json:"championKey"`
	ChampionName    string    `json:"championName"`
	IconURL         string    `json:"iconUrl,omitempty"`
	Win             bool      `json:"win"`
	Kills           int       `json:"kills"`
	Deaths          int       `json:"deaths"`
	Assists         int       `json:"assists"`
	DurationSeconds int       `json:"durationSeconds"`
	PlayedAt        time.Time `json:"playedAt"`
	Queue           int       `json:"queue"`
}

type MasteryEntry struct {
	ChampionKey  int    `json:"championKey"`
	ChampionName string `json:"championName"`
	IconURL      string `json:"iconUrl,omitempty"`
	Level        int    `json:"level"`
	Points       int    `json:"points"`
}

type MatchDetail struct {
	MatchID         string             `json:"matchId"`
	Region          string             `json:"region"`
	Queue           int                `json:"queue"`
	DurationSeconds int                `json:"durationSeconds"`
	StartedAt       time.Time          `json:"startedAt"`
	Participants    []MatchParticipant `json:"participants"`
}

func (m *MatchDetail) Participant(puuid string) (MatchParticipant, bool) {
	for _, p := range m.Participants {
		if p.Puuid == puuid {
			return p, true
		}
	}
	return MatchParticipant{}, false
}

// IsRemake reports whether the match ended before threshold and should not count as a game.
func (m *MatchDetail) IsRemake(threshold time.Duration) bool {
	return time.Duration(m.DurationSeconds)*time.Second < threshold
}

type MatchParticipant struct {
	Puuid        string `json:"puuid"`
	ChampionKey  int    `json:"championKey"`
	ChampionName string `json:"championName"`
	Win          bool   `json:"win"`
	Kills        int    `json:"kills"`
	Deaths       int    `json:"deaths"`
	Assists      int    `json:"assists"`
}

type RankHistory struct {
	ID           string    `db:"id" json:"id"`
	PlayerID     string    `db:"player_id" json:"playerId"`
	Puuid        string    `db:"puuid" json:"puuid"`
	Unranked     bool      `db:"unranked" json:"unranked"`
	Tier         string    `db:"tier" json:"tier"`
	Division     string    `db:"division" json:"division"`
	LeaguePoints int       `db:"league_points" json:"leaguePoints"`
	Wins         int       `db:"wins" json:"wins"`
	Losses       int       `db:"losses" json:"losses"`
	RecordedAt   time.Time `db:"recorded_at" json:"recordedAt"`
}

// NormalizeName folds case and collapses whitespace for ban-list comparisons.
func NormalizeName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}
