package objects

import (
	"context"
	"sort"

	"assetgraph/internal/domain"
	"assetgraph/internal/repository"
)

// FindRoutes searches paths from object a to object b made only of special
// relationships called name, followed in either direction. A path never
// visits a node twice. At most maxRoutes routes of at most maxHops hops are
// returned, shortest first.
func (s *Store) FindRoutes(ctx context.Context, tx repository.Tx, aClass, aID, bClass, bID, name string) ([][]domain.BusinessObjectLight, error) {
	a, _, err := s.lookup(ctx, tx, aClass, aID)
	if err != nil {
		return nil, err
	}
	b, _, err := s.lookup(ctx, tx, bClass, bID)
	if err != nil {
		return nil, err
	}

	r := &routeSearch{tx: tx, name: name, target: b.ID, maxHops: s.maxHops, maxRoutes: s.maxRoutes}
	if a.ID == b.ID {
		r.routes = [][]string{{a.ID}}
	} else if err := r.walk(ctx, []string{a.ID}, map[string]bool{a.ID: true}); err != nil {
		return nil, err
	}

	sort.SliceStable(r.routes, func(i, j int) bool { return len(r.routes[i]) < len(r.routes[j]) })

	routes := make([][]domain.BusinessObjectLight, 0, len(r.routes))
	for _, ids := range r.routes {
		route, err := s.lights(ctx, tx, ids)
		if err != nil {
			return nil, err
		}
		routes = append(routes, route)
	}
	return routes, nil
}

type routeSearch struct {
	tx        repository.Tx
	name      string
	target    string
	maxHops   int
	maxRoutes int
	routes    [][]string
}

func (r *routeSearch) walk(ctx context.Context, path []string, onPath map[string]bool) error {
	if len(r.routes) >= r.maxRoutes || len(path) > r.maxHops {
		return nil
	}
	current := path[len(path)-1]
	edges, err := r.tx.Edges(ctx, current, repository.Both, domain.EdgeRelatedToSpecial)
	if err != nil {
		return err
	}

	for _, e := range edges {
		if e.Name() != r.name {
			continue
		}
		next := e.Other(current)
		if onPath[next] {
			continue
		}
		if next == r.target {
			route := append(append([]string(nil), path...), next)
			r.routes = append(r.routes, route)
			if len(r.routes) >= r.maxRoutes {
				return nil
			}
			continue
		}
		onPath[next] = true
		if err := r.walk(ctx, append(path, next), onPath); err != nil {
			return err
		}
		delete(onPath, next)
	}
	return nil
}
