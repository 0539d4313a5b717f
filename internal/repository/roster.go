package repository

import (
	"os"
	"strings"

	"lol-tracker/internal/domain"

	"github.com/bytedance/sonic"
	"github.com/cockroachdb/errors"
)

type RosterEntry struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	GameName    string `json:"gameName"`
	TagLine     string `json:"tagLine"`
	Platform    string `json:"platform"`
}

func (e RosterEntry) Player() *domain.Player {
	display := e.DisplayName
	if display == "" {
		display = e.GameName
	}
	return &domain.Player{
		ID:          e.ID,
		DisplayName: display,
		GameName:    e.GameName,
		TagLine:     e.TagLine,
		Platform:    strings.ToLower(e.Platform),
	}
}

// LoadRoster reads the roster file, a JSON array of players.
func LoadRoster(path string) ([]RosterEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read roster %s", path)
	}

	var roster []RosterEntry
	if err := sonic.Unmarshal(data, &roster); err != nil {
		return nil, errors.Wrap(err, "failed to decode roster")
	}

	seen := make(map[string]bool, len(roster))
	for i, entry := range roster {
		if entry.ID == "" || entry.GameName == "" || entry.TagLine == "" || entry.Platform == "" {
			return nil, errors.Wrapf(domain.ErrInvalidInput, "roster entry %d is incomplete", i)
		}
		if seen[entry.ID] {
			return nil, errors.Wrapf(domain.ErrInvalidInput, "duplicate roster id %q", entry.ID)
		}
		seen[entry.ID] = true
	}
	return roster, nil
}
