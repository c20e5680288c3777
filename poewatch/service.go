// Package poewatch caches the poe.watch bulk datasets and exposes them as
// queryable collections of items, leagues and categories.
//
// Examples
//
//	svc := poewatch.NewService(ctrl)
//	leagues, err := svc.Leagues.Where(ctx, query.Predicates{"hardcore": query.Exact(true)})
//	item, ok, err := svc.Items.Find(ctx, query.Predicates{"name": query.Exact("Mirror of Kalandra")})
//	price, ok, err := item.PriceForLeague(ctx, "Standard")
package poewatch

import (
	"github.com/briangreenhill/poewatch/query"
	"github.com/briangreenhill/poewatch/record"
)

// Service bundles the controller with one collection per dataset. Build it
// once at startup and share it.
type Service struct {
	Controller *Controller
	Items      *query.Collection[*Item]
	Leagues    *query.Collection[*League]
	Categories *query.Collection[*Category]
}

// NewService creates the collections over ctrl
func NewService(ctrl *Controller) *Service {
	loader := func(d Dataset) datasetLoader {
		return datasetLoader{ctrl: ctrl, dataset: d, logger: ctrl.logger}
	}

	return &Service{
		Controller: ctrl,
		Items:      query.NewCollection(string(Items), loader(Items), itemBuilder(ctrl.Source())),
		Leagues:    query.NewCollection(string(Leagues), loader(Leagues), query.Builder[*League](NewLeague)),
		Categories: query.NewCollection(string(Categories), loader(Categories), query.Builder[*Category](NewCategory)),
	}
}

// Entities returns a collection of plain entities for d, for callers that
// only need the generic record view.
func (s *Service) Entities(d Dataset) *query.Collection[*record.Entity] {
	loader := datasetLoader{ctrl: s.Controller, dataset: d, logger: s.Controller.logger}
	return query.NewCollection(string(d), loader, func(e *record.Entity) (*record.Entity, error) { return e, nil })
}
