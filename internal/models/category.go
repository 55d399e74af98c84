package models

// Category is one of the fixed editorial sections an article can be filed under.
type Category string

const (
	CategoryWorldExclusive Category = "world-exclusive"
	CategoryIndiaExclusive Category = "india-exclusive"
	CategoryIssotExclusive Category = "issot-exclusive"
	CategoryCommentary     Category = "commentary"
)

// Categories lists every valid category in navigation order.
var Categories = []Category{
	CategoryWorldExclusive,
	CategoryIndiaExclusive,
	CategoryIssotExclusive,
	CategoryCommentary,
}

var categoryLabels = map[Category]string{
	CategoryWorldExclusive: "World Exclusive",
	CategoryIndiaExclusive: "India Exclusive",
	CategoryIssotExclusive: "ISSOT Exclusive",
	CategoryCommentary:     "Commentary",
}

// ParseCategory validates s against the fixed enumeration.
func ParseCategory(s string) (Category, bool) {
	c := Category(s)
	return c, c.Valid()
}

// Valid reports whether c is a member of the enumeration.
func (c Category) Valid() bool {
	_, ok := categoryLabels[c]
	return ok
}

// Label returns the display label, or the raw value for unknown categories.
func (c Category) Label() string {
	if label, ok := categoryLabels[c]; ok {
		return label
	}
	return string(c)
}

func (c Category) String() string { return string(c) }
