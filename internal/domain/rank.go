package domain

import (
	"fmt"
	"math"
	"strings"
)

var tiers = []string{
	"IRON",
	"BRONZE",
	"SILVER",
	"GOLD",
	"PLATINUM",
	"EMERALD",
	"DIAMOND",
	"MASTER",
	"GRANDMASTER",
	"CHALLENGER",
}

var divisions = []string{"IV", "III", "II", "I"}

const apexTiers = 3

type RankSnapshot struct {
	Unranked     bool    `json:"unranked,omitempty"`
	Tier         string  `json:"tier,omitempty"`
	Division     string  `json:"division,omitempty"`
	LeaguePoints int     `json:"leaguePoints"`
	Wins         int     `json:"wins"`
	Losses       int     `json:"losses"`
	Winrate      float64 `json:"winrate"`
}

func Unranked() RankSnapshot {
	return RankSnapshot{Unranked: true}
}

func NewRankSnapshot(tier, division string, lp, wins, losses int) RankSnapshot {
	s := RankSnapshot{
		Tier:         strings.ToUpper(strings.TrimSpace(tier)),
		Division:     strings.ToUpper(strings.TrimSpace(division)),
		LeaguePoints: lp,
		Wins:         wins,
		Losses:       losses,
	}
	if s.Tier == "" {
		return Unranked()
	}
	if games := wins + losses; games > 0 {
		s.Winrate = math.Round(float64(wins)/float64(games)*1000) / 10
	}
	if IsApex(s.Tier) {
		s.Division = ""
	}
	return s
}

func (r *RankSnapshot) Clone() *RankSnapshot {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}

func (r RankSnapshot) Totals() Totals {
	return Totals{Wins: r.Wins, Losses: r.Losses}
}

func (r RankSnapshot) String() string {
	if r.Unranked {
		return "UNRANKED"
	}
	if r.Division == "" {
		return fmt.Sprintf("%s %dLP", r.Tier, r.LeaguePoints)
	}
	return fmt.Sprintf("%s %s %dLP", r.Tier, r.Division, r.LeaguePoints)
}

// Equal compares every recorded field, league points included.
func (r RankSnapshot) Equal(o RankSnapshot) bool {
	return r == o
}

func IsApex(tier string) bool {
	idx := tierIndex(tier)
	return idx >= len(tiers)-apexTiers
}

// Score places a snapshot on the ladder as tier*divisions+division. League points are not part of it.
// Unranked and unknown tiers score -1.
func (r RankSnapshot) Score() int {
	if r.Unranked {
		return -1
	}
	t := tierIndex(r.Tier)
	if t < 0 {
		return -1
	}
	d := len(divisions) - 1
	if !IsApex(r.Tier) {
		if idx := divisionIndex(r.Division); idx >= 0 {
			d = idx
		}
	}
	return t*len(divisions) + d
}

// CompareRank returns -1, 0 or 1 as a ranks below, equal to or above b on the ladder.
func CompareRank(a, b RankSnapshot) int {
	sa, sb := a.Score(), b.Score()
	switch {
	case sa < sb:
		return -1
	case sa > sb:
		return 1
	default:
		return 0
	}
}

// IsPromotion reports a strict climb between two ranked snapshots.
func IsPromotion(prev, next RankSnapshot) bool {
	if prev.Score() < 0 || next.Score() < 0 {
		return false
	}
	return CompareRank(next, prev) > 0
}

func tierIndex(tier string) int {
	tier = strings.ToUpper(strings.TrimSpace(tier))
	for i, t := range tiers {
		if t == tier {
			return i
		}
	}
	return -1
}

func divisionIndex(division string) int {
	division = strings.ToUpper(strings.TrimSpace(division))
	for i, d := range divisions {
		if d == division {
			return i
		}
	}
	return -1
}
