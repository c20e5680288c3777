package poewatch

import (
	"github.com/briangreenhill/poewatch/query"
	"github.com/briangreenhill/poewatch/record"
)

// Item is one entry of the poe.watch item data. Prices are fetched on
// demand, see Prices.
type Item struct {
	*record.Entity

	ID         int64
	Name       string
	Type       string
	Category   string
	Group      string
	Frame      int64
	StackSize  int64
	Icon       string
	MapTier    int64
	LinkCount  int64
	Variation  string
	BaseLevel  int64
	Influences []string

	source Fetcher
	prices query.Lazy[[]Price]
}

// NewItem builds an Item from a materialized record. source is used for
// price lookups and may be nil when prices are not needed.
func NewItem(e *record.Entity, source Fetcher) (*Item, error) {
	it := &Item{
		Entity:    e,
		ID:        e.Int("id"),
		Name:      e.Text("name"),
		Type:      e.Text("type"),
		Category:  e.Text("category"),
		Group:     e.Text("group"),
		Frame:     e.Int("frame"),
		StackSize: e.Int("stack_size"),
		Icon:      e.Text("icon"),
		MapTier:   e.Int("map_tier"),
		LinkCount: e.Int("link_count"),
		Variation: e.Text("variation"),
		BaseLevel: e.Int("base_level"),
		source:    source,
	}

	influences, _ := e.Get("influences")
	for _, inf := range influences.Items() {
		it.Influences = append(it.Influences, inf.Text())
	}
	return it, nil
}

// itemBuilder binds the price source into the collection builder
func itemBuilder(source Fetcher) query.Builder[*Item] {
	return func(e *record.Entity) (*Item, error) {
		return NewItem(e, source)
	}
}
