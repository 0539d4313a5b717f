package domain

import (
	"sort"
	"strconv"
	"time"
)

type YearAggregate struct {
	Year           int           `json:"year"`
	Queue          int           `json:"queue"`
	TotalGames     int           `json:"totalGames"`
	CountsByEntity map[int]int   `json:"countsByEntity"`
	ByEntity       []EntityCount `json:"byEntity"`
	CursorMatchID  string        `json:"cursorMatchId,omitempty"`
	ComputedAt     time.Time     `json:"computedAt"`
	NeedsCatchup   bool          `json:"needsCatchup,omitempty"`
	Backlog        []string      `json:"backlog,omitempty"`
}

type EntityCount struct {
	Key     int    `json:"key"`
	Name    string `json:"name"`
	IconURL string `json:"iconUrl,omitempty"`
	Count   int    `json:"count"`
}

func NewYearAggregate(year, queue int) *YearAggregate {
	return &YearAggregate{
		Year:           year,
		Queue:          queue,
		CountsByEntity: make(map[int]int),
	}
}

func (a *YearAggregate) Clone() *YearAggregate {
	if a == nil {
		return nil
	}
	c := *a
	c.CountsByEntity = make(map[int]int, len(a.CountsByEntity))
	for k, v := range a.CountsByEntity {
		c.CountsByEntity[k] = v
	}
	c.ByEntity = append([]EntityCount(nil), a.ByEntity...)
	c.Backlog = append([]string(nil), a.Backlog...)
	return &c
}

func (a *YearAggregate) Count(entityKey int) {
	if a.CountsByEntity == nil {
		a.CountsByEntity = make(map[int]int)
	}
	a.CountsByEntity[entityKey]++
	a.TotalGames++
}

// Rebuild re-derives ByEntity from CountsByEntity, sorted by count descending then key.
func (a *YearAggregate) Rebuild(lookup func(key int) (name, iconURL string, ok bool)) {
	list := make([]EntityCount, 0, len(a.CountsByEntity))
	for key, count := range a.CountsByEntity {
		entry := EntityCount{Key: key, Count: count, Name: strconv.Itoa(key)}
		if lookup != nil {
			if name, icon, ok := lookup(key); ok {
				entry.Name = name
				entry.IconURL = icon
			}
		}
		list = append(list, entry)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Count != list[j].Count {
			return list[i].Count > list[j].Count
		}
		return list[i].Key < list[j].Key
	})
	a.ByEntity = list
}

func (a *YearAggregate) SetBacklog(ids []string) {
	a.Backlog = ids
	a.NeedsCatchup = len(ids) > 0
}
