package poewatch

import "github.com/briangreenhill/poewatch/record"

// League is a poe.watch league. Fields outside the known schema stay
// reachable through the embedded entity.
type League struct {
	*record.Entity

	ID        int64
	Name      string
	Display   string
	Hardcore  bool
	Active    bool
	Upcoming  bool
	Event     bool
	Challenge bool
	Start     string
	End       string
}

// NewLeague builds a League from a materialized record
func NewLeague(e *record.Entity) (*League, error) {
	return &League{
		Entity:    e,
		ID:        e.Int("id"),
		Name:      e.Text("name"),
		Display:   e.Text("display"),
		Hardcore:  e.Bool("hardcore"),
		Active:    e.Bool("active"),
		Upcoming:  e.Bool("upcoming"),
		Event:     e.Bool("event"),
		Challenge: e.Bool("challenge"),
		Start:     e.Text("start"),
		End:       e.Text("end"),
	}, nil
}
