package repository

import (
	"context"
	"database/sql"
	"time"

	"lol-tracker/internal/domain"

	"github.com/bytedance/sonic"
	"github.com/cockroachdb/errors"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
)

// MatchRepository is the durable tier of the match detail cache. Rows are immutable.
type MatchRepository struct {
	db     *sqlx.DB
	logger zerolog.Logger
}

func NewMatchRepository(db *sqlx.DB, logger zerolog.Logger) *MatchRepository {
	return &MatchRepository{
		db:     db,
		logger: logger,
	}
}

func (r *MatchRepository) Get(ctx context.Context, matchID string) (*domain.MatchDetail, error) {
	var body []byte
	err := r.db.GetContext(ctx, &body, `SELECT body FROM match_details WHERE match_id = ?`, matchID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(domain.ErrEntityNotFound, "match %s", matchID)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to load match detail")
	}

	var detail domain.MatchDetail
	if err := sonic.Unmarshal(body, &detail); err != nil {
		return nil, errors.Wrap(err, "failed to decode match detail")
	}
	return &detail, nil
}

func (r *MatchRepository) Put(ctx context.Context, detail *domain.MatchDetail) error {
	body, err := sonic.Marshal(detail)
	if err != nil {
		return errors.Wrap(err, "failed to encode match detail")
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO match_details (match_id, region, queue_id, started_at, body, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(match_id) DO NOTHING`,
		detail.MatchID, detail.Region, detail.Queue, detail.StartedAt.UTC(), body, time.Now().UTC())
	if err != nil {
		return errors.Wrap(err, "failed to store match detail")
	}
	return nil
}

func (r *MatchRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM match_details`); err != nil {
		return 0, errors.Wrap(err, "failed to count match details")
	}
	return n, nil
}
