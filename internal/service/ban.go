package service

import (
	"context"
	"strings"
	"time"

	"lol-tracker/internal/domain"

	"github.com/cockroachdb/errors"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

type BanService struct {
	store  StateStore
	now    func() time.Time
	logger zerolog.Logger
}

func NewBanService(store StateStore, logger zerolog.Logger) *BanService {
	return &BanService{store: store, now: time.Now, logger: logger}
}

// RecordBan resolves the player's pending promotion with a ban on entityName.
// Every check runs inside the store update, so a rejected request writes nothing.
func (s *BanService) RecordBan(ctx context.Context, playerID, entityName, note string) (*domain.BanRecord, error) {
	name := strings.Join(strings.Fields(entityName), " ")
	if name == "" {
		return nil, errors.Wrap(domain.ErrInvalidInput, "entity name is required")
	}

	banID, err := gonanoid.New()
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate nanoid")
	}
	historyID, err := gonanoid.New()
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate nanoid")
	}

	var record domain.BanRecord
	_, err = s.store.Update(ctx, func(state *domain.State) error {
		p := state.Player(playerID)
		if p == nil {
			return errors.Wrapf(domain.ErrEntityNotFound, "player %s", playerID)
		}
		if p.PendingBan == nil {
			return errors.Wrapf(domain.ErrInvariantViolation, "player %s has no pending promotion", playerID)
		}
		if p.HasBan(name) {
			return errors.Wrapf(domain.ErrInvariantViolation, "%q is already banned for player %s", name, playerID)
		}

		now := s.now().UTC()
		record = domain.BanRecord{
			ID:         banID,
			EntityName: name,
			Note:       strings.TrimSpace(note),
			RecordedAt: now,
		}
		p.Bans = append(p.Bans, record)
		p.History = append(p.History, domain.HistoryEntry{
			ID:         historyID,
			Ban:        record,
			Promotion:  p.PendingBan.Clone(),
			RecordedAt: now,
		})
		p.PendingBan = nil
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("player_id", playerID).
		Str("entity", record.EntityName).
		Msg("ban recorded")
	return &record, nil
}
