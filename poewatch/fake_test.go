package poewatch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/briangreenhill/poewatch/cache"
)

const (
	itemdataJSON = `[
		{"id": 1, "name": "Mirror of Kalandra", "type": null, "category": "currency", "group": "currency", "frame": 5, "stackSize": 10, "icon": "mirror.png"},
		{"id": 2, "name": "Exalted Orb", "category": "currency", "group": "currency", "frame": 5, "stackSize": 10},
		{"id": 3, "name": "Tabula Rasa", "type": "Simple Robe", "category": "armour", "group": "chest", "frame": 3, "linkCount": 6, "influences": ["shaper"]}
	]`
	categoriesJSON = `[
		{"id": 1, "name": "armour", "display": "Armour", "groups": [{"id": 1, "name": "boots", "display": "Boots"}, {"id": 2, "name": "chest", "display": "Body Armour"}]},
		{"id": 2, "name": "currency", "display": "Currency", "groups": [{"id": 3, "name": "currency", "display": "Currency"}]}
	]`
	leaguesJSON = `[
		{"id": 1, "name": "Standard", "display": "Standard", "hardcore": false, "active": true, "start": null, "end": null},
		{"id": 2, "name": "Hardcore", "display": "Hardcore", "hardcore": true, "active": true},
		{"id": 3, "name": "Metamorph", "display": "Metamorph", "hardcore": false, "active": true, "challenge": true},
		{"id": 4, "name": "Hardcore Metamorph", "display": "HC Metamorph", "hardcore": true, "active": true, "challenge": true}
	]`
	itemPricesJSON = `{"id": 1, "leagues": [
		{"id": 1, "name": "Standard", "display": "Standard", "mean": 120.5, "median": 118, "mode": 115, "min": 90, "max": 150, "exalted": 1.2, "total": 5000, "daily": 12, "current": 4},
		{"id": 3, "name": "Metamorph", "display": "Metamorph", "mean": 210, "exalted": 2.1, "daily": 40},
		{"id": 4, "name": "Hardcore Metamorph", "display": "HC Metamorph", "mean": 260}
	]}`
)

// fakeAPI is an httptest stand-in for poe.watch that counts requests
type fakeAPI struct {
	*httptest.Server

	mu     sync.Mutex
	hits   map[string]int
	status map[string]int
	bodies map[string]string

	// gate, when set, blocks bulk requests until closed
	gate    chan struct{}
	started chan struct{}
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()

	f := &fakeAPI{
		hits:   make(map[string]int),
		status: make(map[string]int),
		bodies: map[string]string{
			"/itemdata":   itemdataJSON,
			"/categories": categoriesJSON,
			"/leagues":    leaguesJSON,
			"/item":       itemPricesJSON,
		},
	}

	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.hits[r.URL.Path]++
		status := f.status[r.URL.Path]
		body, ok := f.bodies[r.URL.Path]
		gate, started := f.gate, f.started
		f.mu.Unlock()

		if gate != nil && r.URL.Path != ItemPath {
			if started != nil {
				select {
				case started <- struct{}{}:
				default:
				}
			}
			<-gate
		}

		if status != 0 {
			http.Error(w, "upstream unavailable", status)
			return
		}
		if !ok {
			http.NotFound(w, r)
			return
		}
		if r.URL.Path == ItemPath && r.URL.Query().Get("id") == "" {
			http.Error(w, "missing id", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(f.Close)

	return f
}

func (f *fakeAPI) Hits(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[path]
}

func (f *fakeAPI) TotalHits() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.hits {
		total += n
	}
	return total
}

func (f *fakeAPI) Fail(path string, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status[path] = status
}

func (f *fakeAPI) SetBody(path, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bodies[path] = body
}

// Hold makes bulk requests block until the returned release func is called
func (f *fakeAPI) Hold() (started <-chan struct{}, release func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gate = make(chan struct{})
	f.started = make(chan struct{}, 1)
	gate := f.gate
	var once sync.Once
	return f.started, func() { once.Do(func() { close(gate) }) }
}

// countingStore records writes made through it
type countingStore struct {
	cache.Store

	mu      sync.Mutex
	sets    int
	expires map[string]time.Duration
}

func newCountingStore() *countingStore {
	return &countingStore{Store: cache.NewMemoryStore(0), expires: make(map[string]time.Duration)}
}

func (s *countingStore) Set(ctx context.Context, key, blob string) error {
	s.mu.Lock()
	s.sets++
	s.mu.Unlock()
	return s.Store.Set(ctx, key, blob)
}

func (s *countingStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	s.mu.Lock()
	s.expires[key] = ttl
	s.mu.Unlock()
	return s.Store.Expire(ctx, key, ttl)
}

func (s *countingStore) Sets() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sets
}

func newTestController(t *testing.T, api *fakeAPI, store cache.Store, opts ...ControllerOption) *Controller {
	t.Helper()
	ctrl, err := NewController(store, New(WithBaseURL(api.URL), WithTimeout(5*time.Second)), opts...)
	if err != nil {
		t.Fatalf("NewController() failed: %v", err)
	}
	return ctrl
}
