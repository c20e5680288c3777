package poewatch

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/briangreenhill/poewatch/record"
)

// Price is the price of an item in one league
type Price struct {
	*record.Entity

	ID       int64
	Name     string
	Display  string
	Mean     float64
	Median   float64
	Mode     float64
	Min      float64
	Max      float64
	Exalted  float64
	Total    int64
	Daily    int64
	Current  int64
	Accepted int64
}

// NewPrice builds a Price from a materialized record
func NewPrice(e *record.Entity) Price {
	return Price{
		Entity:   e,
		ID:       e.Int("id"),
		Name:     e.Text("name"),
		Display:  e.Text("display"),
		Mean:     e.Float("mean"),
		Median:   e.Float("median"),
		Mode:     e.Float("mode"),
		Min:      e.Float("min"),
		Max:      e.Float("max"),
		Exalted:  e.Float("exalted"),
		Total:    e.Int("total"),
		Daily:    e.Int("daily"),
		Current:  e.Int("current"),
		Accepted: e.Int("accepted"),
	}
}

// Prices returns the item's price in every league. The first successful
// lookup is kept for the life of the item; failures are retried.
func (it *Item) Prices(ctx context.Context) ([]Price, error) {
	return it.prices.Get(func() ([]Price, bool, error) {
		prices, err := it.fetchPrices(ctx)
		return prices, err == nil, err
	})
}

func (it *Item) fetchPrices(ctx context.Context) ([]Price, error) {
	if it.source == nil {
		return nil, ErrNotConfigured
	}

	body, err := it.source.Get(ctx, ItemPath, map[string]string{"id": strconv.FormatInt(it.ID, 10)})
	if err != nil {
		return nil, fmt.Errorf("item %d prices: %w", it.ID, err)
	}

	leagues := gjson.GetBytes(body, "leagues")
	if !leagues.IsArray() {
		return nil, fmt.Errorf("item %d prices: %w", it.ID, ErrBadResponse)
	}

	prices := make([]Price, 0, int(leagues.Get("#").Int()))
	var parseErr error
	leagues.ForEach(func(_, value gjson.Result) bool {
		e, err := record.FromJSON(value)
		if err != nil {
			parseErr = fmt.Errorf("item %d prices: %w", it.ID, err)
			return false
		}
		prices = append(prices, NewPrice(e))
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}
	return prices, nil
}

// PriceForLeague returns the price in the league whose name equals name,
// ignoring case.
func (it *Item) PriceForLeague(ctx context.Context, name string) (Price, bool, error) {
	prices, err := it.Prices(ctx)
	if err != nil {
		return Price{}, false, err
	}
	for _, p := range prices {
		if strings.EqualFold(p.Name, name) {
			return p, true, nil
		}
	}
	return Price{}, false, nil
}

// PriceForLeagueMatching returns the price in the first league whose name
// matches re.
func (it *Item) PriceForLeagueMatching(ctx context.Context, re *regexp.Regexp) (Price, bool, error) {
	prices, err := it.Prices(ctx)
	if err != nil {
		return Price{}, false, err
	}
	for _, p := range prices {
		if re.MatchString(p.Name) {
			return p, true, nil
		}
	}
	return Price{}, false, nil
}

// PriceForLeagues returns the prices in every league whose name matches
// expr, ignoring case.
func (it *Item) PriceForLeagues(ctx context.Context, expr string) ([]Price, error) {
	re, err := regexp.Compile("(?i)" + expr)
	if err != nil {
		return nil, fmt.Errorf("compile league pattern %q: %w", expr, err)
	}
	return it.PriceForLeaguesMatching(ctx, re)
}

// PriceForLeaguesMatching returns the prices in every league whose name
// matches re.
func (it *Item) PriceForLeaguesMatching(ctx context.Context, re *regexp.Regexp) ([]Price, error) {
	prices, err := it.Prices(ctx)
	if err != nil {
		return nil, err
	}

	matched := make([]Price, 0)
	for _, p := range prices {
		if re.MatchString(p.Name) {
			matched = append(matched, p)
		}
	}
	return matched, nil
}
