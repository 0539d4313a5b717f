package repository

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"lol-tracker/internal/constants"
	"lol-tracker/internal/domain"

	"github.com/bytedance/sonic"
	"github.com/cockroachdb/errors"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
)

// StateRepository persists the whole tracker state as one document row.
// Every write goes through mu, so load, mutate and save never interleave.
type StateRepository struct {
	db     *sqlx.DB
	name   string
	mu     sync.Mutex
	logger zerolog.Logger
}

func NewStateRepository(db *sqlx.DB, logger zerolog.Logger) *StateRepository {
	return &StateRepository{
		db:     db,
		name:   constants.StateDocument,
		logger: logger,
	}
}

// Load returns the stored state, or an empty one when nothing was saved yet.
func (r *StateRepository) Load(ctx context.Context) (*domain.State, error) {
	var body []byte
	err := r.db.GetContext(ctx, &body, `SELECT body FROM documents WHERE name = ?`, r.name)
	if errors.Is(err, sql.ErrNoRows) {
		return &domain.State{}, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to load state")
	}

	var state domain.State
	if err := sonic.Unmarshal(body, &state); err != nil {
		return nil, errors.Wrap(err, "failed to decode state")
	}
	return &state, nil
}

func (r *StateRepository) Save(ctx context.Context, state *domain.State) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.save(ctx, state)
}

// Update runs fn against the latest stored state and saves the result.
// Nothing is written when fn returns an error.
func (r *StateRepository) Update(ctx context.Context, fn func(*domain.State) error) (*domain.State, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, err := r.Load(ctx)
	if err != nil {
		return nil, err
	}
	if err := fn(state); err != nil {
		return nil, err
	}
	if err := r.save(ctx, state); err != nil {
		return nil, err
	}
	return state, nil
}

func (r *StateRepository) save(ctx context.Context, state *domain.State) error {
	state.UpdatedAt = time.Now().UTC()

	body, err := sonic.Marshal(state)
	if err != nil {
		return errors.Wrap(err, "failed to encode state")
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO documents (name, body, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`,
		r.name, body, state.UpdatedAt)
	if err != nil {
		return errors.Wrap(err, "failed to save state")
	}

	r.logger.Debug().Int("players", len(state.Players)).Int("bytes", len(body)).Msg("state saved")
	return nil
}

// SeedRoster adds roster entries whose id is not stored yet. Existing players are left untouched.
func (r *StateRepository) SeedRoster(ctx context.Context, roster []RosterEntry) (int, error) {
	added := 0
	_, err := r.Update(ctx, func(state *domain.State) error {
		for _, entry := range roster {
			if state.Player(entry.ID) != nil {
				continue
			}
			state.Players = append(state.Players, entry.Player())
			added++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	r.logger.Info().Int("roster", len(roster)).Int("added", added).Msg("roster seeded")
	return added, nil
}
