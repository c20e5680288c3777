package poewatch

import "time"

// DefaultTTL is how long bulk datasets stay cached
const DefaultTTL = 45 * time.Minute

// Dataset is one of the bulk collections fetched and cached as a unit. Its
// value is both the cache name and the API path.
type Dataset string

const (
	Items      Dataset = "itemdata"
	Categories Dataset = "categories"
	Leagues    Dataset = "leagues"
)

// Datasets lists every bulk dataset in refresh order
var Datasets = []Dataset{Items, Categories, Leagues}

// Path returns the API path of the dataset
func (d Dataset) Path() string { return "/" + string(d) }

func (d Dataset) String() string { return string(d) }
