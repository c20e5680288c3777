// Package kinds exposes the queryable record kinds by name so the HTTP and
// CLI front ends can dispatch on a string
package kinds

import (
	"context"
	"net/url"
	"sort"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/briangreenhill/poewatch/poewatch"
	"github.com/briangreenhill/poewatch/query"
)

// Kind is one queryable collection with results flattened to plain maps
type Kind interface {
	// Name returns the kind name, e.g. "items"
	Name() string

	Where(ctx context.Context, p query.Predicates) ([]map[string]any, error)
	Find(ctx context.Context, p query.Predicates) (map[string]any, bool, error)
	Count(ctx context.Context) (int, error)
}

// Registry manages the available kinds
type Registry struct {
	kinds map[string]Kind
}

func NewRegistry() *Registry {
	return &Registry{kinds: make(map[string]Kind)}
}

// Register adds a kind, replacing any kind with the same name
func (r *Registry) Register(k Kind) {
	r.kinds[k.Name()] = k
}

func (r *Registry) Get(name string) (Kind, bool) {
	k, ok := r.kinds[strings.ToLower(name)]
	return k, ok
}

// List returns the registered names in sorted order
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.kinds))
	for name := range r.kinds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FromService registers the items, leagues and categories of svc
func FromService(svc *poewatch.Service) *Registry {
	r := NewRegistry()
	r.Register(Of("items", svc.Items))
	r.Register(Of("leagues", svc.Leagues))
	r.Register(Of("categories", svc.Categories))
	return r
}

type mapper interface {
	query.Fielder
	Map() map[string]any
}

type collectionKind[T mapper] struct {
	name string
	c    *query.Collection[T]
}

// Of adapts a typed collection to a Kind
func Of[T mapper](name string, c *query.Collection[T]) Kind {
	return collectionKind[T]{name: name, c: c}
}

func (k collectionKind[T]) Name() string { return k.name }

func (k collectionKind[T]) Where(ctx context.Context, p query.Predicates) ([]map[string]any, error) {
	found, err := k.c.Where(ctx, p)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, len(found))
	for i, v := range found {
		out[i] = v.Map()
	}
	return out, nil
}

func (k collectionKind[T]) Find(ctx context.Context, p query.Predicates) (map[string]any, bool, error) {
	v, ok, err := k.c.Find(ctx, p)
	if err != nil || !ok {
		return nil, ok, err
	}
	return v.Map(), true, nil
}

func (k collectionKind[T]) Count(ctx context.Context) (int, error) {
	return k.c.Count(ctx)
}

// ParsePredicates turns field=value pairs into predicates. A value starting
// with ~ is a regular expression. Other values are read as JSON scalars
// when they parse as one, so id=3 matches a number and hardcore=true a
// boolean; anything else is a string. A quoted value such as name="1"
// always matches a string.
func ParsePredicates(values url.Values) (query.Predicates, error) {
	p := make(query.Predicates, len(values))
	for field, vs := range values {
		if len(vs) == 0 {
			continue
		}
		raw := vs[0]
		if expr, ok := strings.CutPrefix(raw, "~"); ok {
			m, err := query.Regexp(expr)
			if err != nil {
				return nil, err
			}
			p[field] = m
			continue
		}
		p[field] = query.Exact(Literal(raw))
	}
	return p, nil
}

// Literal reads raw as a JSON scalar, falling back to the raw string
func Literal(raw string) any {
	if !gjson.Valid(raw) {
		return raw
	}
	r := gjson.Parse(raw)
	switch r.Type {
	case gjson.Null:
		return nil
	case gjson.True, gjson.False:
		return r.Bool()
	case gjson.Number:
		return r.Float()
	case gjson.String:
		return r.Str
	}
	return raw
}
