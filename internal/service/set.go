package service

import (
	"strings"

	"github.com/rpattn/billingapi/internal/query"
	"github.com/rpattn/billingapi/internal/repository"
)

// Set holds one Service per registered entity type.
type Set struct {
	services []*Service
	byRoute  map[string]*Service
}

// NewSet builds a service for every descriptor in the engine's registry.
func NewSet(engine *query.Engine, store repository.Store, opts ...Option) *Set {
	descs := engine.Registry().Descriptors()
	set := &Set{
		services: make([]*Service, 0, len(descs)),
		byRoute:  make(map[string]*Service, len(descs)),
	}
	for _, desc := range descs {
		svc := New(desc, engine, store, opts...)
		set.services = append(set.services, svc)
		set.byRoute[desc.Route()] = svc
	}
	return set
}

// Lookup finds the service for a route segment or entity name.
func (s *Set) Lookup(name string) (*Service, bool) {
	svc, ok := s.byRoute[strings.ToLower(name)]
	return svc, ok
}

// All returns the services in registry order.
func (s *Set) All() []*Service {
	return s.services
}
