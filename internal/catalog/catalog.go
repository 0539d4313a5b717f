package catalog

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"lol-tracker/internal/api"
	"lol-tracker/internal/config"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Source is the static dataset provider.
type Source interface {
	LatestVersion(ctx context.Context) (string, error)
	Champions(ctx context.Context, version, locale string) ([]api.ChampionSummary, error)
}

type Entity struct {
	ID      string `json:"id"`
	Key     int    `json:"key"`
	Name    string `json:"name"`
	IconURL string `json:"iconUrl"`
}

type Catalog struct {
	Version   string    `json:"version"`
	Locale    string    `json:"locale"`
	Entities  []Entity  `json:"entities"`
	FetchedAt time.Time `json:"fetchedAt"`

	byKey map[int]int
}

// Lookup resolves a numeric champion key.
func (c *Catalog) Lookup(key int) (Entity, bool) {
	if c == nil {
		return Entity{}, false
	}
	i, ok := c.byKey[key]
	if !ok {
		return Entity{}, false
	}
	return c.Entities[i], true
}

type Cache struct {
	source Source
	ttl    time.Duration
	now    func() time.Time
	group  singleflight.Group
	logger zerolog.Logger

	mu      sync.RWMutex
	current *Catalog
}

func NewCache(source Source, cfg *config.Config, logger zerolog.Logger) *Cache {
	return newCache(source, cfg.CatalogTTL, logger)
}

func newCache(source Source, ttl time.Duration, logger zerolog.Logger) *Cache {
	return &Cache{
		source: source,
		ttl:    ttl,
		now:    time.Now,
		logger: logger,
	}
}

// Get returns the catalog for locale, refreshing it when missing, expired or cached for another locale.
func (c *Cache) Get(ctx context.Context, locale string) (*Catalog, error) {
	if cat := c.fresh(locale); cat != nil {
		return cat, nil
	}

	v, err, _ := c.group.Do(locale, func() (any, error) {
		if cat := c.fresh(locale); cat != nil {
			return cat, nil
		}
		return c.refresh(ctx, locale)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Catalog), nil
}

func (c *Cache) fresh(locale string) *Catalog {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.current == nil || c.current.Locale != locale {
		return nil
	}
	if c.now().Sub(c.current.FetchedAt) >= c.ttl {
		return nil
	}
	return c.current
}

func (c *Cache) refresh(ctx context.Context, locale string) (*Catalog, error) {
	version, err := c.source.LatestVersion(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch catalog version")
	}

	champs, err := c.source.Champions(ctx, version, locale)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch champion catalog")
	}

	entities := make([]Entity, 0, len(champs))
	for _, champ := range champs {
		key, err := strconv.Atoi(champ.Key)
		if err != nil {
			c.logger.Warn().Str("id", champ.ID).Str("key", champ.Key).Msg("skipping champion with non numeric key")
			continue
		}
		entities = append(entities, Entity{
			ID:      champ.ID,
			Key:     key,
			Name:    champ.Name,
			IconURL: champ.IconURL,
		})
	}
	sortByName(entities, locale)

	cat := &Catalog{
		Version:   version,
		Locale:    locale,
		Entities:  entities,
		FetchedAt: c.now(),
		byKey:     make(map[int]int, len(entities)),
	}
	for i, e := range entities {
		cat.byKey[e.Key] = i
	}

	c.mu.Lock()
	c.current = cat
	c.mu.Unlock()

	c.logger.Info().
		Str("version", version).
		Str("locale", locale).
		Int("entities", len(entities)).
		Msg("champion catalog refreshed")
	return cat, nil
}

func sortByName(entities []Entity, locale string) {
	tag, err := language.Parse(strings.ReplaceAll(locale, "_", "-"))
	if err != nil {
		tag = language.English
	}
	collate.New(tag, collate.Loose).Sort(byName{entities: entities})
}

type byName struct {
	entities []Entity
}

func (b byName) Len() int { return len(b.entities) }

func (b byName) Swap(i, j int) { b.entities[i], b.entities[j] = b.entities[j], b.entities[i] }

func (b byName) Bytes(i int) []byte { return []byte(b.entities[i].Name) }
