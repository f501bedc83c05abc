package query

import (
	"sort"
	"strings"

	"github.com/rpattn/billingapi/internal/domain"
	"github.com/rpattn/billingapi/internal/schema"
)

// Direction is the sort direction of an ordering.
type Direction string

const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// ParseDirection accepts asc/desc and their long forms, ignoring case.
// An empty direction means ascending.
func ParseDirection(raw string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "asc", "ascending":
		return Ascending, nil
	case "desc", "descending":
		return Descending, nil
	default:
		return "", domain.InvalidSort("", "unsupported sort order")
	}
}

// Ordering sorts a result set by one declared scalar field.
type Ordering struct {
	Field     string    `json:"field"`
	Direction Direction `json:"direction"`
}

// CompileSort validates a sort request. A blank field means no ordering and
// the direction is then ignored.
func CompileSort(desc *schema.Descriptor, field, direction string) (*Ordering, error) {
	name := strings.TrimSpace(field)
	if name == "" {
		return nil, nil
	}
	f, ok := desc.Field(name)
	if !ok {
		return nil, domain.InvalidSort(name, "unknown field")
	}
	if !f.IsScalar() || !f.Sortable {
		return nil, domain.InvalidSort(f.Name, "field is not sortable")
	}
	dir, err := ParseDirection(direction)
	if err != nil {
		return nil, err
	}
	return &Ordering{Field: f.Name, Direction: dir}, nil
}

// Comparator returns a three-way comparison implementing o. Nulls sort
// first ascending and last descending. A nil ordering treats all entities as equal.
func Comparator(desc *schema.Descriptor, o *Ordering) func(a, b any) int {
	if o == nil {
		return func(a, b any) int { return 0 }
	}
	field, ok := desc.Field(o.Field)
	if !ok {
		return func(a, b any) int { return 0 }
	}
	sign := 1
	if o.Direction == Descending {
		sign = -1
	}
	return func(a, b any) int {
		av, bv := field.Value(a), field.Value(b)
		switch {
		case av == nil && bv == nil:
			return 0
		case av == nil:
			return -sign
		case bv == nil:
			return sign
		}
		c, _ := compareValues(av, bv)
		return c * sign
	}
}

// Sort orders entities in place. Entities with equal keys keep their
// relative order.
func Sort(desc *schema.Descriptor, o *Ordering, entities []any) {
	if o == nil || len(entities) < 2 {
		return
	}
	compare := Comparator(desc, o)
	sort.SliceStable(entities, func(i, j int) bool {
		return compare(entities[i], entities[j]) < 0
	})
}
