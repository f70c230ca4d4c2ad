package search

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"collateral-backend/internal/clients"
	"collateral-backend/internal/properties"
	"collateral-backend/internal/shared/geo"
)

var ErrInvalidQuery = errors.New("invalid search query")

// PropertyLister lists properties matching a filter.
type PropertyLister interface {
	List(ctx context.Context, filter properties.Filter) ([]properties.Property, error)
}

// ClientLookup resolves a client by tax id.
type ClientLookup interface {
	GetByTaxID(ctx context.Context, taxID string) (clients.Client, error)
}

// Query narrows a property search. Near without RadiusKm only keeps
// located properties and orders them by distance.
type Query struct {
	Address  string
	TaxID    string
	Near     *geo.Point
	RadiusKm float64
}

// Hit is a matching property with its distance from Query.Near, if any.
type Hit struct {
	Property   properties.Property
	DistanceKm *float64
}

type Service struct {
	Properties PropertyLister
	Clients    ClientLookup
}

func NewService(props PropertyLister, cl ClientLookup) *Service {
	return &Service{Properties: props, Clients: cl}
}

func (s *Service) Search(ctx context.Context, q Query) ([]Hit, error) {
	if q.RadiusKm < 0 {
		return nil, fmt.Errorf("%w: radiusKm must not be negative", ErrInvalidQuery)
	}
	if q.RadiusKm > 0 && q.Near == nil {
		return nil, fmt.Errorf("%w: radiusKm needs lat and lon", ErrInvalidQuery)
	}
	if q.Near != nil && !q.Near.Valid() {
		return nil, fmt.Errorf("%w: lat/lon out of range", ErrInvalidQuery)
	}

	filter := properties.Filter{
		AddressContains: strings.TrimSpace(q.Address),
		HasLocation:     q.Near != nil,
	}
	if taxID := strings.TrimSpace(q.TaxID); taxID != "" {
		c, err := s.Clients.GetByTaxID(ctx, taxID)
		if errors.Is(err, clients.ErrNotFound) {
			return []Hit{}, nil
		}
		if err != nil {
			return nil, err
		}
		filter.ClientIDs = []string{c.ID}
	}

	list, err := s.Properties.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	hits := make([]Hit, 0, len(list))
	for _, p := range list {
		hit := Hit{Property: p}
		if q.Near != nil && p.Location != nil {
			d := geo.DistanceKm(*q.Near, *p.Location)
			if q.RadiusKm > 0 && d > q.RadiusKm {
				continue
			}
			hit.DistanceKm = &d
		}
		hits = append(hits, hit)
	}
	if q.Near != nil {
		sort.SliceStable(hits, func(i, j int) bool {
			return *hits[i].DistanceKm < *hits[j].DistanceKm
		})
	}
	return hits, nil
}
