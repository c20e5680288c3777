package poewatch

import "github.com/briangreenhill/poewatch/record"

// Category is an item category with its groups, e.g. armour with boots,
// chest and gloves.
type Category struct {
	*record.Entity

	ID      int64
	Name    string
	Display string
	Groups  []Group
}

type Group struct {
	ID      int64
	Name    string
	Display string
}

// NewCategory builds a Category from a materialized record
func NewCategory(e *record.Entity) (*Category, error) {
	c := &Category{
		Entity:  e,
		ID:      e.Int("id"),
		Name:    e.Text("name"),
		Display: e.Text("display"),
	}

	groups, _ := e.Get("groups")
	for _, g := range groups.Items() {
		c.Groups = append(c.Groups, Group{
			ID:      g.Get("id").Int(),
			Name:    g.Get("name").Text(),
			Display: g.Get("display").Text(),
		})
	}
	return c, nil
}

// Group returns the group called name
func (c *Category) Group(name string) (Group, bool) {
	for _, g := range c.Groups {
		if g.Name == name {
			return g, true
		}
	}
	return Group{}, false
}
