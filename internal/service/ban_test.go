package service

import (
	"context"
	"testing"

	"lol-tracker/internal/domain"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pendingPlayer(id string) *domain.Player {
	p := trackedPlayer(id, "puuid-"+id)
	p.PendingBan = &domain.PendingPromotion{
		From: domain.NewRankSnapshot("GOLD", "IV", 90, 10, 10),
		To:   domain.NewRankSnapshot("GOLD", "III", 0, 11, 10),
	}
	return p
}

func TestRecordBan_ResolvesPendingPromotion(t *testing.T) {
	h := newHarness(20, pendingPlayer("p1"))

	record, err := h.bans.RecordBan(context.Background(), "p1", "  Lee   Sin ", "lost lane")
	require.NoError(t, err)
	assert.Equal(t, "Lee Sin", record.EntityName)
	assert.NotEmpty(t, record.ID)

	stored := h.store.player("p1")
	assert.Nil(t, stored.PendingBan)
	require.Len(t, stored.Bans, 1)
	require.Len(t, stored.History, 1)
	assert.Equal(t, record.ID, stored.History[0].Ban.ID)
	assert.Equal(t, "IV", stored.History[0].Promotion.From.Division)
	assert.Equal(t, "III", stored.History[0].Promotion.To.Division)
}

func TestRecordBan_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		player   *domain.Player
		playerID string
		entity   string
		want     error
	}{
		{name: "empty name", player: pendingPlayer("p1"), playerID: "p1", entity: "   ", want: domain.ErrInvalidInput},
		{name: "unknown player", player: pendingPlayer("p1"), playerID: "nobody", entity: "Zed", want: domain.ErrEntityNotFound},
		{name: "no pending promotion", player: trackedPlayer("p1", "x"), playerID: "p1", entity: "Zed", want: domain.ErrInvariantViolation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(20, tt.player)

			_, err := h.bans.RecordBan(context.Background(), tt.playerID, tt.entity, "")
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
			assert.Zero(t, h.store.saves)
		})
	}
}

func TestRecordBan_DuplicateNameIsRejected(t *testing.T) {
	p := pendingPlayer("p1")
	p.Bans = []domain.BanRecord{{ID: "b0", EntityName: "Lee Sin"}}
	h := newHarness(20, p)

	_, err := h.bans.RecordBan(context.Background(), "p1", "LEE  sin", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvariantViolation))

	stored := h.store.player("p1")
	assert.NotNil(t, stored.PendingBan)
	assert.Len(t, stored.Bans, 1)
	assert.Empty(t, stored.History)
}

func TestRecordBan_SecondBanNeedsNewPromotion(t *testing.T) {
	h := newHarness(20, pendingPlayer("p1"))

	_, err := h.bans.RecordBan(context.Background(), "p1", "Zed", "")
	require.NoError(t, err)

	_, err = h.bans.RecordBan(context.Background(), "p1", "Yasuo", "")
	assert.True(t, errors.Is(err, domain.ErrInvariantViolation))
	assert.Len(t, h.store.player("p1").Bans, 1)
}
