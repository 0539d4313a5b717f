package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompareRank_DivisionOrderWithinAndAcrossTiers(t *testing.T) {
	t.Parallel()

	silver2 := NewRankSnapshot("SILVER", "II", 90, 10, 10)
	silver1 := NewRankSnapshot("SILVER", "I", 0, 10, 10)
	gold4 := NewRankSnapshot("GOLD", "IV", 0, 10, 10)

	assert.Equal(t, -1, CompareRank(silver2, silver1))
	assert.Equal(t, -1, CompareRank(silver1, gold4))
	assert.Equal(t, -1, CompareRank(silver2, gold4))
	assert.Equal(t, 1, CompareRank(gold4, silver2))
}

func TestCompareRank_ApexAboveDiamondOne(t *testing.T) {
	t.Parallel()

	diamond1 := NewRankSnapshot("DIAMOND", "I", 99, 0, 0)
	master := NewRankSnapshot("MASTER", "I", 0, 0, 0)
	grandmaster := NewRankSnapshot("GRANDMASTER", "", 0, 0, 0)
	challenger := NewRankSnapshot("CHALLENGER", "", 1200, 0, 0)

	assert.Equal(t, 1, CompareRank(master, diamond1))
	assert.Equal(t, 1, CompareRank(grandmaster, master))
	assert.Equal(t, 1, CompareRank(challenger, grandmaster))
	assert.Empty(t, master.Division, "apex tiers are stored without a division")
}

func TestIsPromotion_IgnoresLeaguePoints(t *testing.T) {
	t.Parallel()

	low := NewRankSnapshot("GOLD", "II", 0, 10, 10)
	high := NewRankSnapshot("GOLD", "II", 99, 11, 10)

	assert.False(t, IsPromotion(low, high))
	assert.False(t, IsPromotion(high, low))
	assert.Equal(t, 0, CompareRank(low, high))

	masterLow := NewRankSnapshot("MASTER", "", 0, 0, 0)
	masterHigh := NewRankSnapshot("MASTER", "", 400, 0, 0)
	assert.False(t, IsPromotion(masterLow, masterHigh))
}

func TestIsPromotion_UnrankedNeverPromotes(t *testing.T) {
	t.Parallel()

	assert.False(t, IsPromotion(Unranked(), NewRankSnapshot("IRON", "IV", 0, 1, 0)))
	assert.False(t, IsPromotion(NewRankSnapshot("IRON", "IV", 0, 1, 0), Unranked()))
}

func TestIsPromotion_TierWithoutDivisionTreatedAsTop(t *testing.T) {
	t.Parallel()

	gold := NewRankSnapshot("GOLD", "", 0, 0, 0)
	gold1 := NewRankSnapshot("GOLD", "I", 0, 0, 0)
	gold2 := NewRankSnapshot("GOLD", "II", 0, 0, 0)

	assert.Equal(t, 0, CompareRank(gold, gold1))
	assert.True(t, IsPromotion(gold2, gold))
}

func TestNewRankSnapshot_Winrate(t *testing.T) {
	t.Parallel()

	s := NewRankSnapshot("gold", "iii", 12, 11, 10)
	require.False(t, s.Unranked)
	assert.Equal(t, "GOLD", s.Tier)
	assert.Equal(t, "III", s.Division)
	assert.InDelta(t, 52.4, s.Winrate, 0.001)
	assert.True(t, NewRankSnapshot("", "", 0, 0, 0).Unranked)
}

func TestYearAggregate_RebuildKeepsCountsConsistent(t *testing.T) {
	t.Parallel()

	agg := NewYearAggregate(2025, 420)
	for _, key := range []int{266, 103, 266, 84, 266, 103} {
		agg.Count(key)
	}
	agg.Rebuild(func(key int) (string, string, bool) {
		if key == 266 {
			return "Aatrox", "", true
		}
		return "", "", false
	})

	sum := 0
	for _, e := range agg.ByEntity {
		sum += e.Count
	}
	assert.Equal(t, 6, agg.TotalGames)
	assert.Equal(t, agg.TotalGames, sum)
	require.Len(t, agg.ByEntity, 3)
	assert.Equal(t, EntityCount{Key: 266, Name: "Aatrox", Count: 3}, agg.ByEntity[0])
	assert.Equal(t, "103", agg.ByEntity[1].Name)
	assert.Equal(t, 84, agg.ByEntity[2].Key)
}

func TestPlayer_HasBanNormalizesName(t *testing.T) {
	t.Parallel()

	p := &Player{Bans: []BanRecord{{EntityName: "Lee  Sin"}}}
	assert.True(t, p.HasBan(" lee sin "))
	assert.True(t, p.HasBan("LEE\tSIN"))
	assert.False(t, p.HasBan("LeeSin"))
}

func TestPlayer_CloneIsDeep(t *testing.T) {
	t.Parallel()

	agg := NewYearAggregate(2025, 0)
	agg.Count(1)
	rank := NewRankSnapshot("GOLD", "IV", 0, 1, 1)
	p := &Player{
		ID:         "p1",
		Rank:       &rank,
		Aggregates: map[int]*YearAggregate{2025: agg},
		Bans:       []BanRecord{{EntityName: "Teemo"}},
	}

	c := p.Clone()
	c.Aggregates[2025].Count(2)
	c.Rank.Tier = "SILVER"
	c.Bans[0].EntityName = "Yuumi"

	assert.Equal(t, 1, p.Aggregates[2025].TotalGames)
	assert.Equal(t, "GOLD", p.Rank.Tier)
	assert.Equal(t, "Teemo", p.Bans[0].EntityName)
}

func TestRegionForPlatform(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "europe", RegionForPlatform("EUW1"))
	assert.Equal(t, "americas", RegionForPlatform("na1"))
	assert.Equal(t, "asia", RegionForPlatform("kr"))
	assert.Equal(t, "sea", RegionForPlatform("oc1"))
}
