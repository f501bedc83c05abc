package query

import (
	"github.com/google/uuid"

	"github.com/rpattn/billingapi/internal/schema"
)

// ListParams carries the raw list parameters decoded by the transport.
type ListParams struct {
	Filters    string
	SearchTerm string
	PageNumber int
	PageSize   int
	SortField  string
	SortOrder  string
	Fields     string
}

// ListPlan is a validated list request ready to hand to a store.
type ListPlan struct {
	Predicate Predicate
	Ordering  *Ordering
	Skip      int
	Take      int
	Selection Selection
	Relations []string
}

// Engine validates and compiles requests against a registry.
type Engine struct {
	registry *schema.Registry
	guard    PageGuard
}

// NewEngine creates an engine. maxPageSize of zero leaves page size unbounded.
func NewEngine(registry *schema.Registry, maxPageSize int) *Engine {
	return &Engine{registry: registry, guard: PageGuard{MaxSize: maxPageSize}}
}

// Registry returns the registry the engine compiles against.
func (e *Engine) Registry() *schema.Registry { return e.registry }

// PlanList validates every list parameter and builds the tenant scoped plan.
// An empty field list selects every declared scalar.
func (e *Engine) PlanList(desc *schema.Descriptor, tenantID uuid.UUID, params ListParams) (ListPlan, error) {
	skip, take, err := e.guard.Validate(params.PageNumber, params.PageSize)
	if err != nil {
		return ListPlan{}, err
	}

	raw, err := ParseFilters(params.Filters)
	if err != nil {
		return ListPlan{}, err
	}
	criteria, err := ValidateCriteria(desc, raw)
	if err != nil {
		return ListPlan{}, err
	}

	ordering, err := CompileSort(desc, params.SortField, params.SortOrder)
	if err != nil {
		return ListPlan{}, err
	}

	sel := ParseSelection(params.Fields)
	if len(sel) == 0 {
		sel = AllScalars(desc)
	}

	return ListPlan{
		Predicate: Compile(desc, tenantID, criteria, params.SearchTerm),
		Ordering:  ordering,
		Skip:      skip,
		Take:      take,
		Selection: sel,
		Relations: RequiredRelations(desc, sel),
	}, nil
}

// Project narrows entity to sel.
func (e *Engine) Project(desc *schema.Descriptor, entity any, sel Selection) Record {
	return Project(e.registry, desc, entity, sel)
}

// ProjectAll narrows each entity to sel.
func (e *Engine) ProjectAll(desc *schema.Descriptor, entities []any, sel Selection) []Record {
	return ProjectAll(e.registry, desc, entities, sel)
}
