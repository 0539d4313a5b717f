package repository

import (
	"context"
	"time"

	"lol-tracker/internal/domain"

	"github.com/cockroachdb/errors"
	"github.com/jmoiron/sqlx"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

type RankHistoryRepository struct {
	db     *sqlx.DB
	logger zerolog.Logger
}

func NewRankHistoryRepository(db *sqlx.DB, logger zerolog.Logger) *RankHistoryRepository {
	return &RankHistoryRepository{
		db:     db,
		logger: logger,
	}
}

func (r *RankHistoryRepository) Record(ctx context.Context, playerID, puuid string, snap domain.RankSnapshot, at time.Time) error {
	id, err := gonanoid.New()
	if err != nil {
		return errors.Wrap(err, "failed to generate nanoid")
	}

	record := domain.RankHistory{
		ID:           id,
		PlayerID:     playerID,
		Puuid:        puuid,
		Unranked:     snap.Unranked,
		Tier:         snap.Tier,
		Division:     snap.Division,
		LeaguePoints: snap.LeaguePoints,
		Wins:         snap.Wins,
		Losses:       snap.Losses,
		RecordedAt:   at.UTC(),
	}

	_, err = r.db.NamedExecContext(ctx, `
		INSERT INTO rank_history (id, player_id, puuid, unranked, tier, division, league_points, wins, losses, recorded_at)
		VALUES (:id, :player_id, :puuid, :unranked, :tier, :division, :league_points, :wins, :losses, :recorded_at)`,
		record)
	if err != nil {
		return errors.Wrap(err, "failed to insert rank history")
	}
	return nil
}

// ListByPlayer returns the newest records first.
func (r *RankHistoryRepository) ListByPlayer(ctx context.Context, playerID string, limit int) ([]domain.RankHistory, error) {
	records := []domain.RankHistory{}
	err := r.db.SelectContext(ctx, &records, `
		SELECT id, player_id, puuid, unranked, tier, division, league_points, wins, losses, recorded_at
		FROM rank_history
		WHERE player_id = ?
		ORDER BY recorded_at DESC, rowid DESC
		LIMIT ?`, playerID, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list rank history")
	}
	return records, nil
}
